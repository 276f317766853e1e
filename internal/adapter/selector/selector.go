package selector

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/logging"
)

const DefaultMaxFiles = 15

// Selection is one unit chosen for analysis, with its score.
type Selection struct {
	Unit    domain.CodeUnit `json:"unit" yaml:"unit"`
	Score   int             `json:"score" yaml:"score"`
	Focused bool            `json:"focused,omitempty" yaml:"focused,omitempty"`
}

// Selector filters, ranks and truncates a CodeUnit collection.
type Selector struct {
	extensions       map[string]bool
	maxContentLength int
	maxFiles         int
	logger           *zap.Logger
}

// New builds a selector. Non-positive maxFiles falls back to DefaultMaxFiles;
// non-positive maxContentLength disables the length ceiling.
func New(extensions []string, maxContentLength, maxFiles int, logger *zap.Logger) *Selector {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Selector{
		extensions:       exts,
		maxContentLength: maxContentLength,
		maxFiles:         maxFiles,
		logger:           logging.OrNop(logger),
	}
}

// Eligible reports whether u passes the extension and length filters.
func (s *Selector) Eligible(u domain.CodeUnit) bool {
	if !s.extensions[u.Ext()] {
		return false
	}
	return s.maxContentLength <= 0 || u.Length() <= s.maxContentLength
}

// Select returns at most maxFiles eligible units, highest score first. Ties
// keep collection order. Only the first unit with a given path is considered. Focused units rank ahead of all others, so every
// eligible focused unit is kept while their count fits in maxFiles.
func (s *Selector) Select(units []domain.CodeUnit, focus []string) []Selection {
	focusSet := make(map[string]bool, len(focus))
	for _, f := range focus {
		focusSet[strings.ReplaceAll(f, "\\", "/")] = true
	}

	seen := make(map[string]bool, len(units))
	selected := make([]Selection, 0, len(units))
	for _, u := range units {
		if seen[u.Path] {
			s.logger.Warn("skipping duplicate path", zap.String("path", u.Path))
			continue
		}
		seen[u.Path] = true
		if !s.Eligible(u) {
			s.logger.Debug("skipping ineligible file", zap.String("path", u.Path), zap.Int("length", u.Length()))
			continue
		}
		norm := strings.ReplaceAll(u.Path, "\\", "/")
		selected = append(selected, Selection{
			Unit:    u,
			Score:   Score(u.Path, u.Content, focusSet, s.extensions),
			Focused: focusSet[norm],
		})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Focused != selected[j].Focused {
			return selected[i].Focused
		}
		return selected[i].Score > selected[j].Score
	})

	if len(selected) > s.maxFiles {
		selected = selected[:s.maxFiles]
	}

	s.logger.Debug("selected files for analysis",
		zap.Int("candidates", len(units)),
		zap.Int("selected", len(selected)),
		zap.Int("max_files", s.maxFiles))
	return selected
}

// Units strips the scores from a selection.
func Units(sel []Selection) []domain.CodeUnit {
	out := make([]domain.CodeUnit, len(sel))
	for i, s := range sel {
		out[i] = s.Unit
	}
	return out
}
