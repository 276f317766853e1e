package insight

import (
	"fmt"
	"strings"

	"repolens/internal/domain"
)

const (
	maxTitleRunes = 120
	dedupKeyRunes = 200
)

// DebtCandidates turns themes and per-file suggestions into deduplicated
// tracker items. Themes come first, then suggestions in path order.
func DebtCandidates(summary domain.InsightSummary, results map[string]domain.AnalysisResult) []domain.DebtCandidate {
	type source struct {
		text string
		path string
	}
	var sources []source
	for _, theme := range summary.ImprovementThemes {
		sources = append(sources, source{text: "Investigate: " + theme})
	}
	for _, p := range sortedPaths(results) {
		for _, s := range results[p].ImprovementSuggestions {
			sources = append(sources, source{text: s, path: p})
		}
	}

	seen := make(map[string]bool)
	var out []domain.DebtCandidate
	for _, s := range sources {
		text := strings.TrimSpace(s.text)
		key := dedupKey(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.DebtCandidate{
			Title: Title(text),
			Body:  body(text, s.path),
		})
	}
	return out
}

// Title shortens text to a tracker title of at most 120 characters.
func Title(text string) string {
	r := []rune(text)
	if len(r) <= maxTitleRunes {
		return text
	}
	return string(r[:maxTitleRunes-3]) + "..."
}

func dedupKey(text string) string {
	r := []rune(strings.ToLower(text))
	if len(r) > dedupKeyRunes {
		r = r[:dedupKeyRunes]
	}
	return string(r)
}

func body(text, path string) string {
	var b strings.Builder
	b.WriteString("Technical debt identified by automated code analysis:\n\n")
	b.WriteString(text)
	b.WriteString("\n")
	if path != "" {
		fmt.Fprintf(&b, "\nFile: `%s`\n", path)
	}
	return b.String()
}
