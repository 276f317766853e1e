package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"repolens/config"
	"repolens/internal/adapter/dispatcher"
	"repolens/internal/adapter/insight"
	"repolens/internal/adapter/selector"
	"repolens/internal/domain"
	"repolens/internal/logging"
	"repolens/internal/port"
)

// Report is the outcome of one analysis run.
type Report struct {
	Target     string                           `json:"target" yaml:"target"`
	Enabled    bool                             `json:"enabled" yaml:"enabled"`
	Model      string                           `json:"model,omitempty" yaml:"model,omitempty"`
	Collected  int                              `json:"collected" yaml:"collected"`
	Selected   []selector.Selection             `json:"selected" yaml:"selected"`
	Results    map[string]domain.AnalysisResult `json:"results" yaml:"results"`
	Summary    domain.InsightSummary            `json:"summary" yaml:"summary"`
	Candidates []domain.DebtCandidate           `json:"debt_candidates" yaml:"debt_candidates"`
	Issues     []string                         `json:"created_issues,omitempty" yaml:"created_issues,omitempty"`
	Duration   time.Duration                    `json:"duration" yaml:"duration"`
}

// AnalyzeUseCase runs select, dispatch and aggregate over collected units.
type AnalyzeUseCase struct {
	llm      port.LLM
	prompts  dispatcher.PromptBuilder
	cfg      config.AnalysisConfig
	logger   *zap.Logger
	progress dispatcher.ProgressFunc
}

// NewAnalyzeUseCase builds the use case. A nil llm disables analysis:
// Run then returns an empty report with Enabled false.
func NewAnalyzeUseCase(llm port.LLM, prompts dispatcher.PromptBuilder, cfg config.AnalysisConfig, logger *zap.Logger) *AnalyzeUseCase {
	return &AnalyzeUseCase{llm: llm, prompts: prompts, cfg: cfg, logger: logging.OrNop(logger)}
}

func (a *AnalyzeUseCase) OnProgress(fn dispatcher.ProgressFunc) { a.progress = fn }

func (a *AnalyzeUseCase) Enabled() bool { return a.llm != nil }

// Select ranks units without calling the model.
func (a *AnalyzeUseCase) Select(units []domain.CodeUnit) []selector.Selection {
	sel := selector.New(a.cfg.Extensions, a.cfg.MaxContentLength, a.cfg.MaxFiles, a.logger)
	return sel.Select(units, a.cfg.Focus)
}

func (a *AnalyzeUseCase) Run(ctx context.Context, target string, units []domain.CodeUnit) (*Report, error) {
	start := time.Now()
	report := &Report{
		Target:     target,
		Enabled:    a.Enabled(),
		Collected:  len(units),
		Selected:   []selector.Selection{},
		Results:    map[string]domain.AnalysisResult{},
		Summary:    domain.EmptySummary(),
		Candidates: []domain.DebtCandidate{},
	}
	if !a.Enabled() {
		a.logger.Warn("model analysis disabled; no credentials configured")
		report.Duration = time.Since(start)
		return report, nil
	}
	report.Model = a.llm.ModelName()

	report.Selected = a.Select(units)
	if len(report.Selected) == 0 {
		a.logger.Info("no files eligible for analysis", zap.Int("collected", len(units)))
		report.Duration = time.Since(start)
		return report, nil
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(a.logger)}
	if a.progress != nil {
		opts = append(opts, dispatcher.WithProgress(a.progress))
	}
	d := dispatcher.New(a.llm, a.prompts, a.cfg.MaxConcurrent, opts...)

	results, err := d.Analyze(ctx, selector.Units(report.Selected))
	if err != nil {
		return nil, err
	}
	report.Results = results
	report.Summary = insight.NewAggregator(a.logger).Summarize(results)
	report.Candidates = insight.DebtCandidates(report.Summary, results)
	if report.Candidates == nil {
		report.Candidates = []domain.DebtCandidate{}
	}
	report.Duration = time.Since(start)

	a.logger.Info("analysis complete",
		zap.Int("analyzed", len(results)),
		zap.Int("peak_concurrency", d.Gate().Peak()),
		zap.Duration("duration", report.Duration))
	return report, nil
}
