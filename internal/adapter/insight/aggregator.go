package insight

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/logging"
)

const (
	DefaultTopPatterns     = 5
	DefaultTopTechnologies = 10
)

// Theme is an improvement category and the keywords that select it.
type Theme struct {
	Label    string
	Keywords []string
}

// Themes are matched against lower-cased suggestions, in this order.
var Themes = []Theme{
	{Label: "Testing", Keywords: []string{"test"}},
	{Label: "Error Handling", Keywords: []string{"error", "exception"}},
	{Label: "Performance", Keywords: []string{"performance"}},
	{Label: "Documentation", Keywords: []string{"documentation", "comment"}},
}

type Aggregator struct {
	topPatterns     int
	topTechnologies int
	logger          *zap.Logger
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		topPatterns:     DefaultTopPatterns,
		topTechnologies: DefaultTopTechnologies,
		logger:          logging.OrNop(logger),
	}
}

// Summarize reduces per-file results to corpus-level insights. Results are
// visited in path order, which defines "first seen" for tie breaking.
func (a *Aggregator) Summarize(results map[string]domain.AnalysisResult) domain.InsightSummary {
	summary := domain.EmptySummary()
	if len(results) == 0 {
		return summary
	}

	patterns := newCounter()
	deps := newCounter()
	themes := make(map[string]bool)

	for _, p := range sortedPaths(results) {
		r := results[p]
		summary.TotalFilesAnalyzed++

		if fields := strings.Fields(r.ComplexityAssessment); len(fields) > 0 {
			summary.ComplexityDistribution[fields[0]]++
		}

		for _, pattern := range a.clean(p, "code_patterns", r.CodePatterns) {
			patterns.add(pattern)
		}
		for _, dep := range a.clean(p, "dependencies", r.Dependencies) {
			deps.add(dep)
		}
		for _, s := range a.clean(p, "improvement_suggestions", r.ImprovementSuggestions) {
			for _, label := range ThemesOf(s) {
				themes[label] = true
			}
		}
	}

	summary.CommonPatterns = patterns.top(a.topPatterns)
	summary.KeyTechnologies = deps.top(a.topTechnologies)
	for _, t := range Themes {
		if themes[t.Label] {
			summary.ImprovementThemes = append(summary.ImprovementThemes, t.Label)
		}
	}
	return summary
}

// clean drops blank entries, logging each one.
func (a *Aggregator) clean(path, field string, items []string) []string {
	out := items[:0:0]
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			a.logger.Debug("skipping blank entry", zap.String("path", path), zap.String("field", field))
			continue
		}
		out = append(out, item)
	}
	return out
}

// ThemesOf returns the labels of every theme the suggestion matches.
func ThemesOf(suggestion string) []string {
	lower := strings.ToLower(suggestion)
	var labels []string
	for _, t := range Themes {
		for _, k := range t.Keywords {
			if strings.Contains(lower, k) {
				labels = append(labels, t.Label)
				break
			}
		}
	}
	return labels
}

func sortedPaths(results map[string]domain.AnalysisResult) []string {
	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// counter counts occurrences and remembers first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) top(k int) []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	if keys == nil {
		keys = []string{}
	}
	return keys
}
