package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/errs"
	"repolens/internal/logging"
	"repolens/internal/mcp"
)

// IssueFiler files technical-debt candidates through a backend's
// create_issue tool.
type IssueFiler struct {
	logger *zap.Logger
	limit  int
}

func NewIssueFiler(limit int, logger *zap.Logger) *IssueFiler {
	return &IssueFiler{limit: limit, logger: logging.OrNop(logger)}
}

// File creates one issue per candidate and returns the created URLs.
// Candidates whose title matches an open issue are skipped when the backend
// can list open issues. A failed creation is logged and does not stop the rest.
func (f *IssueFiler) File(ctx context.Context, client *mcp.Client, candidates []domain.DebtCandidate) ([]string, error) {
	can, err := client.HasTool(ctx, "create_issue")
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, errs.Validationf("IssueFiler.File", "backend does not support issue creation")
	}

	existing := map[string]bool{}
	if ok, _ := client.HasTool(ctx, "list_open_issues"); ok {
		var open struct {
			Titles []string `json:"titles"`
		}
		if err := client.CallTool(ctx, "list_open_issues", nil, &open); err != nil {
			f.logger.Warn("failed to list open issues; duplicates are not filtered", zap.Error(err))
		}
		for _, t := range open.Titles {
			existing[normalizeTitle(t)] = true
		}
	}

	urls := []string{}
	for _, c := range candidates {
		if f.limit > 0 && len(urls) >= f.limit {
			break
		}
		if existing[normalizeTitle(c.Title)] {
			f.logger.Debug("issue already open", zap.String("title", c.Title))
			continue
		}
		var created struct {
			URL string `json:"url"`
		}
		err := client.CallTool(ctx, "create_issue", map[string]any{"title": c.Title, "body": c.Body}, &created)
		if err != nil {
			if ctx.Err() != nil {
				return urls, ctx.Err()
			}
			f.logger.Warn("failed to create issue", zap.String("title", c.Title), zap.Error(err))
			continue
		}
		existing[normalizeTitle(c.Title)] = true
		urls = append(urls, created.URL)
	}
	return urls, nil
}

func normalizeTitle(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
