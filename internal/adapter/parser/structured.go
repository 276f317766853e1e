package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"repolens/internal/domain"
)

// StructuredStage decodes the JSON object spanning the first '{' to the last
// '}' of the reply. Text around the object, such as markdown fences or prose,
// is ignored.
type StructuredStage struct{}

func (StructuredStage) Name() string { return "structured" }

func (StructuredStage) Parse(path, language, raw string) (domain.AnalysisResult, bool) {
	obj, ok := ExtractObject(raw)
	if !ok {
		return domain.AnalysisResult{}, false
	}

	return domain.AnalysisResult{
		FilePath:               path,
		Language:               language,
		Summary:                stringField(obj, "summary", DefaultSummary),
		MainFunctionality:      stringField(obj, "main_functionality", DefaultMainFunctionality),
		KeyComponents:          listField(obj, "key_components"),
		Dependencies:           listField(obj, "dependencies"),
		ComplexityAssessment:   stringField(obj, "complexity_assessment", DefaultComplexity),
		ImprovementSuggestions: listField(obj, "improvement_suggestions"),
		CodePatterns:           listField(obj, "code_patterns"),
	}, true
}

// ExtractObject decodes the outermost brace span of text as a JSON object.
func ExtractObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

func stringField(obj map[string]any, key, def string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(scalarText(v))
	if s == "" {
		return def
	}
	return s
}

// listField reads a list of strings. Objects contribute their text,
// description or name member; nulls and empty strings are dropped. A bare
// string is treated as a one-element list.
func listField(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(itemText(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

func itemText(v any) string {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"text", "description", "name"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return scalarText(v)
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
