package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repolens/config"
	"repolens/internal/domain"
	"repolens/internal/logging"
	"repolens/internal/mcp"
)

const (
	DefaultMaxDepth = 3
	DefaultMaxFetch = 50
)

// Collector turns a backend's tool surface into CodeUnits: it walks the
// tree with list_contents and fetches candidate files with get_file_content.
type Collector struct {
	client           *mcp.Client
	extensions       map[string]bool
	maxContentLength int
	maxDepth         int
	maxFetch         int
	maxConcurrent    int
	logger           *zap.Logger
}

func NewCollector(client *mcp.Client, cfg config.AnalysisConfig, logger *zap.Logger) *Collector {
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	c := &Collector{
		client:           client,
		extensions:       exts,
		maxContentLength: cfg.MaxContentLength,
		maxDepth:         cfg.MaxDepth,
		maxFetch:         cfg.MaxFetch,
		maxConcurrent:    cfg.MaxConcurrent,
		logger:           logging.OrNop(logger),
	}
	if c.maxFetch <= 0 {
		c.maxFetch = DefaultMaxFetch
	}
	if c.maxConcurrent <= 0 {
		c.maxConcurrent = 3
	}
	return c
}

// errFetchLimit ends the traversal once max_fetch candidates are found.
var errFetchLimit = errors.New("fetch limit reached")

type listResult struct {
	Items []domain.Entry `json:"items"`
}

type fileResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Candidates walks the tree depth first and returns the files worth
// fetching, in traversal order. A directory that cannot be listed is
// logged and skipped; only a failure at the root is returned.
func (c *Collector) Candidates(ctx context.Context) ([]domain.Entry, error) {
	var out []domain.Entry
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		var listing listResult
		if err := c.client.CallTool(ctx, "list_contents", map[string]any{"path": dir}, &listing); err != nil {
			if dir == "" {
				return err
			}
			c.logger.Warn("failed to list directory", zap.String("path", dir), zap.Error(err))
			return nil
		}
		for _, e := range listing.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(out) >= c.maxFetch {
				return errFetchLimit
			}
			if e.IsDirectory {
				if c.maxDepth > 0 && depth+1 >= c.maxDepth {
					continue
				}
				if err := walk(e.Path, depth+1); err != nil {
					return err
				}
				continue
			}
			if c.wanted(e) {
				out = append(out, e)
			}
		}
		return nil
	}
	if err := walk("", 0); err != nil && !errors.Is(err, errFetchLimit) {
		return nil, err
	}
	return out, nil
}

func (c *Collector) wanted(e domain.Entry) bool {
	if !c.extensions[domain.Ext(e.Path)] {
		return false
	}
	return c.maxContentLength <= 0 || e.Size < int64(c.maxContentLength)
}

// Collect fetches every candidate with bounded concurrency. Results keep
// traversal order; a file that cannot be fetched is logged and dropped.
func (c *Collector) Collect(ctx context.Context) ([]domain.CodeUnit, error) {
	candidates, err := c.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	fetched := make([]*domain.CodeUnit, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, e := range candidates {
		g.Go(func() error {
			var file fileResult
			if err := c.client.CallTool(gctx, "get_file_content", map[string]any{"path": e.Path}, &file); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("failed to fetch file", zap.String("path", e.Path), zap.Error(err))
				return nil
			}
			u := domain.NewCodeUnit(e.Path, file.Content)
			fetched[i] = &u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	units := make([]domain.CodeUnit, 0, len(fetched))
	for _, u := range fetched {
		if u != nil {
			units = append(units, *u)
		}
	}
	c.logger.Info("collected files", zap.Int("candidates", len(candidates)), zap.Int("fetched", len(units)))
	return units, nil
}
