package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repolens/config"
	"repolens/internal/adapter/cache"
	"repolens/internal/adapter/llm"
	"repolens/internal/adapter/prompt"
	"repolens/internal/adapter/store"
	"repolens/internal/errs"
	"repolens/internal/formatter"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

var (
	analyzeOutput       string
	analyzeFocus        []string
	analyzeMaxFiles     int
	analyzeCreateIssues bool
	analyzeMaxIssues    int
	analyzeCache        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [target]",
	Short: "Explain the most relevant files of a repository",
	Long: `Collect files from the target, select the most informative ones, ask the
configured model to explain each, and print repository-wide insights.

The target is a local directory (default: --dir), a GitHub repository
(owner/repo or URL) or an Azure DevOps repository URL.

Examples:
  repolens analyze .
  repolens analyze https://github.com/acme/widgets --focus cmd/server/main.go
  repolens analyze acme/widgets --create-issues -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output format: human, json, yaml (default from config)")
	analyzeCmd.Flags().StringArrayVar(&analyzeFocus, "focus", nil, "file to prioritise (repeatable)")
	analyzeCmd.Flags().IntVar(&analyzeMaxFiles, "max-files", 0, "maximum number of files to analyze")
	analyzeCmd.Flags().BoolVar(&analyzeCreateIssues, "create-issues", false, "file technical-debt candidates as issues")
	analyzeCmd.Flags().IntVar(&analyzeMaxIssues, "max-issues", 10, "maximum number of issues to create")
	analyzeCmd.Flags().BoolVar(&analyzeCache, "cache", false, "cache model replies on disk")
	addExecFlag(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if analyzeOutput != "" {
		cfg.Output = analyzeOutput
	}
	if analyzeMaxFiles > 0 {
		cfg.Analysis.MaxFiles = analyzeMaxFiles
	}
	cfg.Analysis.Focus = append(cfg.Analysis.Focus, analyzeFocus...)
	if analyzeCache {
		cfg.Cache.Enabled = true
		if cfg.Cache.Path == "" {
			if err := config.EnsureDir(rootDir); err != nil {
				return fmt.Errorf("failed to create cache directory: %w", err)
			}
			cfg.Cache.Path = config.CacheDBPath(rootDir)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prompts, err := prompt.NewBuilder()
	if err != nil {
		return err
	}
	model, closeModel, err := buildModel(ctx, prompts)
	if err != nil {
		return err
	}
	defer closeModel()

	client, target, release, err := connect(ctx, args)
	if err != nil {
		return err
	}
	defer release()

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Collecting files from " + target + "..."
	s.Start()
	units, err := usecase.NewCollector(client, cfg.Analysis, logger).Collect(ctx)
	s.Stop()
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	uc := usecase.NewAnalyzeUseCase(model, prompts, cfg.Analysis, logger)
	if cfg.Output == "human" {
		uc.OnProgress(progressReporter())
	}

	report, err := uc.Run(ctx, target, units)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeCreateIssues && report.Enabled && len(report.Candidates) > 0 {
		urls, err := usecase.NewIssueFiler(analyzeMaxIssues, logger).File(ctx, client, report.Candidates)
		if err != nil {
			logger.Warn("issue creation failed", zap.Error(err))
		}
		report.Issues = urls
	}

	return formatter.Display(cmd.OutOrStdout(), report, cfg.Output)
}

// buildModel returns the configured model, wrapped in the completion cache
// when enabled. A nil model means analysis is disabled.
func buildModel(ctx context.Context, prompts *prompt.Builder) (port.LLM, func(), error) {
	noop := func() {}
	model, err := llm.New(ctx, cfg.Model)
	if err != nil {
		if errs.Is(err, errs.Configuration) {
			logger.Warn("model analysis disabled", zap.Error(err))
			return nil, noop, nil
		}
		return nil, noop, err
	}
	if !cfg.Cache.Enabled {
		return model, noop, nil
	}

	tiers := []port.CompletionCache{cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL)}
	if cfg.Cache.Path == "" {
		return cache.NewCachedLLM(model, logger, tiers...), noop, nil
	}

	bolt, err := store.NewBoltStore(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		return nil, noop, err
	}
	res, err := bolt.Migrate(store.SettingsHash(cfg.Model, prompts.Version()))
	if err != nil {
		bolt.Close()
		return nil, noop, err
	}
	if res.NeedsClear {
		logger.Info("cleared completion cache", zap.String("reason", res.Reason))
	}
	if n, err := bolt.Prune(); err == nil && n > 0 {
		logger.Debug("pruned expired completions", zap.Int("count", n))
	}
	tiers = append(tiers, bolt)
	cached := cache.NewCachedLLM(model, logger, tiers...)
	return cached, func() {
		hits, misses := cached.Stats()
		logger.Debug("completion cache", zap.Int64("hits", hits), zap.Int64("misses", misses))
		bolt.Close()
	}, nil
}

func progressReporter() func(done, total int, path string) {
	var bar *progressbar.ProgressBar
	var mu sync.Mutex
	var start time.Time

	return func(done, total int, path string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			start = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Analyzing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		_ = bar.Set(done)
		if done < total {
			rate := float64(done) / time.Since(start).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Analyzing[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
