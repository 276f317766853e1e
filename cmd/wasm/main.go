//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"repolens/config"
	"repolens/internal/adapter/insight"
	"repolens/internal/adapter/parser"
	"repolens/internal/adapter/prompt"
	"repolens/internal/adapter/selector"
	"repolens/internal/domain"
)

var (
	units   []domain.CodeUnit
	prompts *prompt.Builder
	parse   *parser.Parser
	cfg     = config.DefaultConfig().Analysis
)

func init() {
	prompts, _ = prompt.NewBuilder()
	parse = parser.New(nil)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("repolensAdd", js.FuncOf(addFile))
	js.Global().Set("repolensSelect", js.FuncOf(selectFiles))
	js.Global().Set("repolensPrompt", js.FuncOf(renderPrompt))
	js.Global().Set("repolensParse", js.FuncOf(parseReply))
	js.Global().Set("repolensSummarize", js.FuncOf(summarize))
	js.Global().Set("repolensClear", js.FuncOf(clearFiles))

	<-c
}

func addFile(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: repolensAdd(path, content)")
	}
	u := domain.NewCodeUnit(args[0].String(), args[1].String())
	units = append(units, u)
	return makeResult(map[string]interface{}{
		"success":  true,
		"path":     u.Path,
		"language": u.Language,
		"files":    len(units),
	})
}

func selectFiles(this js.Value, args []js.Value) interface{} {
	maxFiles := cfg.MaxFiles
	if len(args) > 0 && args[0].Int() > 0 {
		maxFiles = args[0].Int()
	}
	var focus []string
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1].String()), &focus); err != nil {
			return makeError("focus must be a JSON array of paths: " + err.Error())
		}
	}

	sel := selector.New(cfg.Extensions, cfg.MaxContentLength, maxFiles, nil).Select(units, focus)
	output := make([]map[string]interface{}, 0, len(sel))
	for _, s := range sel {
		output = append(output, map[string]interface{}{
			"path":    s.Unit.Path,
			"score":   s.Score,
			"focused": s.Focused,
		})
	}
	return makeResult(map[string]interface{}{
		"selected":  output,
		"collected": len(units),
	})
}

func renderPrompt(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: repolensPrompt(path)")
	}
	if prompts == nil {
		return makeError("prompt templates unavailable")
	}
	path := args[0].String()
	for _, u := range units {
		if u.Path != path {
			continue
		}
		text, err := prompts.Build(u)
		if err != nil {
			return makeError("render failed: " + err.Error())
		}
		return makeResult(map[string]interface{}{
			"system": prompts.System(),
			"prompt": text,
		})
	}
	return makeError("unknown file: " + path)
}

func parseReply(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: repolensParse(path, reply)")
	}
	path := args[0].String()
	lang, ok := domain.LanguageFor(path)
	if !ok {
		lang = domain.UnknownLanguage
	}
	return makeResult(map[string]interface{}{
		"result": parse.Parse(path, lang, args[1].String()),
	})
}

func summarize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: repolensSummarize(resultsJSON)")
	}
	var results map[string]domain.AnalysisResult
	if err := json.Unmarshal([]byte(args[0].String()), &results); err != nil {
		return makeError("results must map paths to analysis results: " + err.Error())
	}
	summary := insight.NewAggregator(nil).Summarize(results)
	return makeResult(map[string]interface{}{
		"summary":    summary,
		"candidates": insight.DebtCandidates(summary, results),
	})
}

func clearFiles(this js.Value, args []js.Value) interface{} {
	units = nil
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
