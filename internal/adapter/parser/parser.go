// Package parser turns raw model replies into AnalysisResult records.
//
// Parsing runs as an ordered list of stages. Each stage either produces a
// record or declines; the last stage of the default chain never declines, so
// Parse always returns a fully populated record.
package parser

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/logging"
)

const (
	DefaultSummary           = "No summary provided"
	DefaultMainFunctionality = "No functionality description provided"
	DefaultComplexity        = "Unknown"
	FallbackSummary          = "Analysis provided"

	maxSummaryRunes       = 200
	maxFunctionalityRunes = 500
)

// Stage is one parsing strategy. ok is false when the stage cannot handle raw.
type Stage interface {
	Name() string
	Parse(path, language, raw string) (result domain.AnalysisResult, ok bool)
}

type Parser struct {
	stages []Stage
	logger *zap.Logger
}

// New returns the default two-stage parser: structured, then fallback.
func New(logger *zap.Logger) *Parser {
	return NewWithStages(logger, StructuredStage{}, FallbackStage{})
}

func NewWithStages(logger *zap.Logger, stages ...Stage) *Parser {
	return &Parser{stages: stages, logger: logging.OrNop(logger)}
}

// Parse never panics and never returns a partially filled record.
func (p *Parser) Parse(path, language, raw string) domain.AnalysisResult {
	for _, stage := range p.stages {
		result, ok := p.try(stage, path, language, raw)
		if ok {
			return normalize(result, path, language)
		}
		p.logger.Debug("parse stage declined", zap.String("path", path), zap.String("stage", stage.Name()))
	}
	p.logger.Warn("no parse stage accepted the response", zap.String("path", path))
	result, _ := FallbackStage{}.Parse(path, language, raw)
	return normalize(result, path, language)
}

func (p *Parser) try(stage Stage, path, language, raw string) (result domain.AnalysisResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parse stage panicked",
				zap.String("path", path),
				zap.String("stage", stage.Name()),
				zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	return stage.Parse(path, language, raw)
}

// normalize fills any empty field with its default.
func normalize(r domain.AnalysisResult, path, language string) domain.AnalysisResult {
	r.FilePath = path
	r.Language = language
	if r.Summary == "" {
		r.Summary = DefaultSummary
	}
	if r.MainFunctionality == "" {
		r.MainFunctionality = DefaultMainFunctionality
	}
	if r.ComplexityAssessment == "" {
		r.ComplexityAssessment = DefaultComplexity
	}
	r.KeyComponents = nonNil(r.KeyComponents)
	r.Dependencies = nonNil(r.Dependencies)
	r.ImprovementSuggestions = nonNil(r.ImprovementSuggestions)
	r.CodePatterns = nonNil(r.CodePatterns)
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// FallbackStage extracts a summary from free text. It always succeeds.
type FallbackStage struct{}

func (FallbackStage) Name() string { return "fallback" }

func (FallbackStage) Parse(path, language, raw string) (domain.AnalysisResult, bool) {
	summary := FallbackSummary
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "{") {
			summary = truncateRunes(line, maxSummaryRunes)
			break
		}
	}

	functionality := DefaultMainFunctionality
	if strings.TrimSpace(raw) != "" {
		functionality = truncateRunes(raw, maxFunctionalityRunes)
	}

	return domain.AnalysisResult{
		FilePath:               path,
		Language:               language,
		Summary:                summary,
		MainFunctionality:      functionality,
		KeyComponents:          []string{},
		Dependencies:           []string{},
		ComplexityAssessment:   DefaultComplexity,
		ImprovementSuggestions: []string{},
		CodePatterns:           []string{},
	}, true
}
