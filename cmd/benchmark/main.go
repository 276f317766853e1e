package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"repolens/config"
	"repolens/internal/adapter/dispatcher"
	"repolens/internal/adapter/llm"
	"repolens/internal/adapter/prompt"
	"repolens/internal/adapter/selector"
	"repolens/internal/domain"
	"repolens/internal/mcp"
	"repolens/internal/port"
	"repolens/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Local repository to analyze")
	levels := flag.String("c", "1,3,5", "Comma-separated concurrency limits to compare")
	maxFiles := flag.Int("n", 10, "Number of files to analyze per run")
	mockDelay := flag.Duration("mock-delay", 0, "Use the offline model with this simulated latency")
	flag.Parse()

	limits, err := parseLevels(*levels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -c: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Analysis.MaxFiles = *maxFiles

	ctx := context.Background()
	model, err := setupModel(ctx, cfg, *mockDelay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Model not available: %v\n", err)
		fmt.Fprintln(os.Stderr, "Set credentials or pass -mock-delay 200ms to benchmark offline.")
		os.Exit(1)
	}

	units, err := collect(ctx, cfg, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error collecting files: %v\n", err)
		os.Exit(1)
	}

	prompts, err := prompt.NewBuilder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prompts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ANALYSIS CONCURRENCY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Repository: %s\n", *dir)
	fmt.Printf("Model:      %s\n", model.ModelName())
	fmt.Printf("Files:      %d\n", len(units))
	fmt.Println()
	fmt.Printf("%-8s %-12s %-10s %-8s %s\n", "LIMIT", "WALL", "PER FILE", "PEAK", "FAILED")
	fmt.Println(strings.Repeat("-", 70))

	var baseline time.Duration
	for _, limit := range limits {
		d := dispatcher.New(model, prompts, limit)
		start := time.Now()
		results, err := d.Analyze(ctx, units)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Run with limit %d aborted: %v\n", limit, err)
			os.Exit(1)
		}

		perFile := time.Duration(0)
		if len(units) > 0 {
			perFile = elapsed / time.Duration(len(units))
		}
		fmt.Printf("%-8d %-12s %-10s %-8d %d\n",
			limit, elapsed.Round(time.Millisecond), perFile.Round(time.Millisecond),
			d.Gate().Peak(), failures(results))

		if baseline == 0 {
			baseline = elapsed
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	if baseline > 0 && len(limits) > 1 {
		fmt.Printf("Baseline (limit %d): %s\n", limits[0], baseline.Round(time.Millisecond))
	}
}

func parseLevels(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no limits given")
	}
	return out, nil
}

func setupModel(ctx context.Context, cfg *config.Config, mockDelay time.Duration) (port.LLM, error) {
	if mockDelay <= 0 {
		return llm.New(ctx, cfg.Model)
	}
	m := llm.NewMock()
	canned := llm.NewMock()
	m.Respond = func(system, prompt string) (string, error) {
		time.Sleep(mockDelay)
		return canned.CompleteWithSystem(ctx, system, prompt)
	}
	return m, nil
}

func collect(ctx context.Context, cfg *config.Config, dir string) ([]domain.CodeUnit, error) {
	target, err := usecase.ParseTarget(dir)
	if err != nil {
		return nil, err
	}
	if target.Kind != usecase.TargetLocal {
		return nil, fmt.Errorf("%s is not a local directory", dir)
	}
	srv, err := usecase.OpenBackend(target, cfg, "benchmark", nil)
	if err != nil {
		return nil, err
	}
	units, err := usecase.NewCollector(mcp.NewClient(srv), cfg.Analysis, nil).Collect(ctx)
	if err != nil {
		return nil, err
	}

	sel := usecase.NewAnalyzeUseCase(nil, nil, cfg.Analysis, nil).Select(units)
	return selector.Units(sel), nil
}

func failures(results map[string]domain.AnalysisResult) int {
	failed := domain.FailedAnalysis("").Summary
	n := 0
	for _, r := range results {
		if r.Summary == failed {
			n++
		}
	}
	return n
}
