package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"repolens/internal/adapter/parser"
	"repolens/internal/domain"
	"repolens/internal/errs"
	"repolens/internal/logging"
	"repolens/internal/port"
)

const DefaultMaxConcurrent = 3

// PromptBuilder renders the analysis prompt for one unit.
type PromptBuilder interface {
	System() string
	Build(u domain.CodeUnit) (string, error)
}

// ProgressFunc is called after each unit completes.
type ProgressFunc func(done, total int, path string)

// Dispatcher fans analysis requests out to the model service through a Gate.
type Dispatcher struct {
	llm      port.LLM
	prompts  PromptBuilder
	parser   *parser.Parser
	gate     *Gate
	logger   *zap.Logger
	progress ProgressFunc
}

type Option func(*Dispatcher)

func WithProgress(fn ProgressFunc) Option {
	return func(d *Dispatcher) { d.progress = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrNop(l) }
}

func WithParser(p *parser.Parser) Option {
	return func(d *Dispatcher) { d.parser = p }
}

func New(llm port.LLM, prompts PromptBuilder, maxConcurrent int, opts ...Option) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	d := &Dispatcher{
		llm:     llm,
		prompts: prompts,
		gate:    NewGate(maxConcurrent),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.parser == nil {
		d.parser = parser.New(d.logger)
	}
	return d
}

func (d *Dispatcher) Gate() *Gate { return d.gate }

// Analyze submits every unit at once and returns one result per unit path.
// A failing unit yields a placeholder result; it never affects its
// siblings. Unit paths must be unique: a duplicate is a validation error
// raised before any request is sent. Otherwise the only error is ctx's, in
// which case the batch is abandoned.
func (d *Dispatcher) Analyze(ctx context.Context, units []domain.CodeUnit) (map[string]domain.AnalysisResult, error) {
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if seen[u.Path] {
			return nil, errs.Validationf("dispatcher.Analyze", "duplicate unit path: %s", u.Path)
		}
		seen[u.Path] = true
	}

	results := make([]domain.AnalysisResult, len(units))
	total := len(units)
	var done atomic.Int64
	var wg sync.WaitGroup

	for i := range units {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := units[i]

			if err := d.gate.Acquire(ctx); err != nil {
				results[i] = domain.FailedAnalysis(u.Path)
				return
			}
			results[i] = d.analyzeOne(ctx, u)
			d.gate.Release()

			n := done.Add(1)
			if d.progress != nil {
				d.progress(int(n), total, u.Path)
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.AnalysisResult, len(units))
	for i, u := range units {
		out[u.Path] = results[i]
	}
	return out, nil
}

func (d *Dispatcher) analyzeOne(ctx context.Context, u domain.CodeUnit) (result domain.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("analysis panicked", zap.String("path", u.Path), zap.String("panic", fmt.Sprint(r)))
			result = domain.FailedAnalysis(u.Path)
		}
	}()

	language := u.Language
	if language == "" {
		language = domain.UnknownLanguage
	}

	prompt, err := d.prompts.Build(u)
	if err != nil {
		d.logger.Warn("failed to build prompt", zap.String("path", u.Path), zap.Error(err))
		return domain.FailedAnalysis(u.Path)
	}

	raw, err := d.llm.CompleteWithSystem(ctx, d.prompts.System(), prompt)
	if err != nil {
		d.logger.Warn("model call failed",
			zap.String("path", u.Path),
			zap.String("model", d.llm.ModelName()),
			zap.Error(err))
		return domain.FailedAnalysis(u.Path)
	}

	return d.parser.Parse(u.Path, language, raw)
}
