package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/config"
	"repolens/internal/adapter/fs"
	"repolens/internal/adapter/llm"
	"repolens/internal/adapter/prompt"
	"repolens/internal/domain"
	"repolens/internal/mcp"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func localClient(t *testing.T, root string) *mcp.Client {
	t.Helper()
	repo, err := fs.NewRepository(root, fs.NewWalker(nil, nil), nil)
	require.NoError(t, err)
	return mcp.NewClient(repo.Server("test"))
}

func paths(units []domain.CodeUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Path
	}
	return out
}

func TestCollector_DepthAndFilters(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":        "package main",
		"README.md":      "# docs",
		"big.py":         strings.Repeat("x", 100),
		"a/one.go":       "package a",
		"a/b/two.go":     "package b",
		"a/b/c/three.go": "package c",
		"z/last.ts":      "export {}",
	})
	cfg := config.DefaultConfig().Analysis
	cfg.MaxContentLength = 50

	units, err := NewCollector(localClient(t, root), cfg, nil).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/two.go", "a/one.go", "z/last.ts", "main.go"}, paths(units))
	assert.Equal(t, "package b", units[0].Content)
	assert.Equal(t, "Go", units[0].Language)
}

func TestCollector_MaxFetch(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("f%d.go", i)] = "package x"
	}
	cfg := config.DefaultConfig().Analysis
	cfg.MaxFetch = 4

	units, err := NewCollector(localClient(t, writeTree(t, files)), cfg, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"f0.go", "f1.go", "f2.go", "f3.go"}, paths(units))
}

func TestCollector_MaxFetchStopsTraversal(t *testing.T) {
	var listed []string
	reg := mcp.NewRegistry()
	reg.MustRegister(
		mcp.Tool{
			Name:   "list_contents",
			Params: map[string]mcp.Param{"path": {Type: "string", Default: ""}},
			Handler: func(ctx context.Context, args mcp.Args) (any, error) {
				dir := args.String("path")
				listed = append(listed, dir)
				if dir == "" {
					return map[string]any{"items": []domain.Entry{
						{Path: "a", IsDirectory: true}, {Path: "b", IsDirectory: true}, {Path: "c", IsDirectory: true},
					}}, nil
				}
				return map[string]any{"items": []domain.Entry{
					{Path: dir + "/x.go", Size: 9}, {Path: dir + "/y.go", Size: 9}, {Path: dir + "/z.go", Size: 9},
				}}, nil
			},
		},
		mcp.Tool{
			Name:   "get_file_content",
			Params: map[string]mcp.Param{"path": {Type: "string"}},
			Handler: func(ctx context.Context, args mcp.Args) (any, error) {
				return map[string]any{"path": args.String("path"), "content": "package x"}, nil
			},
		},
	)
	cfg := config.DefaultConfig().Analysis
	cfg.MaxFetch = 2

	units, err := NewCollector(mcp.NewClient(mcp.NewServer("counting", "test", reg, nil)), cfg, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x.go", "a/y.go"}, paths(units))
	assert.Equal(t, []string{"", "a"}, listed)
}

// flakyBackend lists three files and fails to serve one of them.
func flakyBackend(t *testing.T) *mcp.Client {
	reg := mcp.NewRegistry()
	reg.MustRegister(
		mcp.Tool{
			Name:   "list_contents",
			Params: map[string]mcp.Param{"path": {Type: "string", Default: ""}},
			Handler: func(ctx context.Context, args mcp.Args) (any, error) {
				return map[string]any{"items": []domain.Entry{
					{Path: "a.go", Size: 9}, {Path: "broken.go", Size: 9}, {Path: "c.go", Size: 9},
				}}, nil
			},
		},
		mcp.Tool{
			Name:   "get_file_content",
			Params: map[string]mcp.Param{"path": {Type: "string"}},
			Handler: func(ctx context.Context, args mcp.Args) (any, error) {
				if args.String("path") == "broken.go" {
					return nil, errors.New("boom")
				}
				return map[string]any{"path": args.String("path"), "content": "package x"}, nil
			},
		},
	)
	return mcp.NewClient(mcp.NewServer("flaky", "test", reg, nil))
}

func TestCollector_SkipsFailedFetches(t *testing.T) {
	units, err := NewCollector(flakyBackend(t), config.DefaultConfig().Analysis, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "c.go"}, paths(units))
}

func TestAnalyze_EndToEndWithMock(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":            "package main\n\nfunc main() {}\n",
		"internal/api/h.go":  "package api\n",
		"internal/util/x.go": "package util\n",
		"docs/readme.md":     "# hi",
	})
	cfg := config.DefaultConfig()
	units, err := NewCollector(localClient(t, root), cfg.Analysis, nil).Collect(context.Background())
	require.NoError(t, err)

	prompts, err := prompt.NewBuilder()
	require.NoError(t, err)
	mock := llm.NewMock()
	uc := NewAnalyzeUseCase(mock, prompts, cfg.Analysis, nil)

	var mu sync.Mutex
	var done []int
	uc.OnProgress(func(n, total int, path string) {
		mu.Lock()
		done = append(done, n)
		mu.Unlock()
	})

	report, err := uc.Run(context.Background(), root, units)
	require.NoError(t, err)

	assert.True(t, report.Enabled)
	assert.Equal(t, "mock", report.Model)
	require.Len(t, report.Selected, 3)
	assert.Equal(t, "main.go", report.Selected[0].Unit.Path)
	assert.Len(t, report.Results, 3)
	assert.Len(t, mock.Prompts(), 3)
	assert.Len(t, done, 3)

	assert.Equal(t, 3, report.Summary.TotalFilesAnalyzed)
	assert.Equal(t, map[string]int{"Simple": 3}, report.Summary.ComplexityDistribution)
	assert.Equal(t, []string{"Testing"}, report.Summary.ImprovementThemes)
	require.NotEmpty(t, report.Candidates)
	assert.Equal(t, "Investigate: Testing", report.Candidates[0].Title)
}

func TestAnalyze_Disabled(t *testing.T) {
	uc := NewAnalyzeUseCase(nil, nil, config.DefaultConfig().Analysis, nil)
	report, err := uc.Run(context.Background(), "x", []domain.CodeUnit{domain.NewCodeUnit("a.go", "package a")})
	require.NoError(t, err)
	assert.False(t, report.Enabled)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Summary.TotalFilesAnalyzed)
	assert.Equal(t, 1, report.Collected)
}

func TestAnalyze_Cancelled(t *testing.T) {
	prompts, err := prompt.NewBuilder()
	require.NoError(t, err)
	uc := NewAnalyzeUseCase(llm.NewMock(), prompts, config.DefaultConfig().Analysis, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = uc.Run(ctx, "x", []domain.CodeUnit{domain.NewCodeUnit("a.go", "package a")})
	assert.ErrorIs(t, err, context.Canceled)
}

// trackerBackend records created issues.
type trackerBackend struct {
	mu      sync.Mutex
	created []string
	open    []string
	noList  bool
}

func (b *trackerBackend) client() *mcp.Client {
	reg := mcp.NewRegistry()
	reg.MustRegister(mcp.Tool{
		Name:   "create_issue",
		Params: map[string]mcp.Param{"title": {Type: "string"}, "body": {Type: "string", Default: ""}},
		Handler: func(ctx context.Context, args mcp.Args) (any, error) {
			title := args.String("title")
			if title == "fails" {
				return nil, errors.New("tracker down")
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.created = append(b.created, title)
			return map[string]any{"url": fmt.Sprintf("https://tracker/%d", len(b.created))}, nil
		},
	})
	if !b.noList {
		reg.MustRegister(mcp.Tool{
			Name: "list_open_issues",
			Handler: func(ctx context.Context, args mcp.Args) (any, error) {
				return map[string]any{"titles": b.open}, nil
			},
		})
	}
	return mcp.NewClient(mcp.NewServer("tracker", "test", reg, nil))
}

func TestIssueFiler_SkipsOpenAndFailures(t *testing.T) {
	b := &trackerBackend{open: []string{"Add Tests"}}
	candidates := []domain.DebtCandidate{
		{Title: "add tests"},
		{Title: "fails"},
		{Title: "Improve logging"},
		{Title: "Improve logging"},
	}

	urls, err := NewIssueFiler(0, nil).File(context.Background(), b.client(), candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://tracker/1"}, urls)
	assert.Equal(t, []string{"Improve logging"}, b.created)
}

func TestIssueFiler_Limit(t *testing.T) {
	b := &trackerBackend{noList: true}
	candidates := []domain.DebtCandidate{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	urls, err := NewIssueFiler(2, nil).File(context.Background(), b.client(), candidates)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestIssueFiler_Unsupported(t *testing.T) {
	_, err := NewIssueFiler(0, nil).File(context.Background(), localClient(t, t.TempDir()), nil)
	assert.Error(t, err)
}
