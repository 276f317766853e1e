package azdo

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/errs"
	"repolens/internal/logging"
	"repolens/internal/mcp"
)

const ServerName = "azure-devops-repository"

// Repository exposes one Azure Repos git repository on a fixed branch
// through the tool surface.
type Repository struct {
	client  *Client
	project string
	repo    string
	branch  string
	logger  *zap.Logger
}

func NewRepository(client *Client, project, repo, branch string, logger *zap.Logger) (*Repository, error) {
	if !client.Enabled() {
		return nil, errs.Configurationf("azdo.NewRepository", "Azure DevOps organization and personal access token are required")
	}
	if project == "" || repo == "" {
		return nil, errs.Validationf("azdo.NewRepository", "project and repository are required")
	}
	if branch == "" {
		branch = "main"
	}
	return &Repository{client: client, project: project, repo: repo, branch: branch, logger: logging.OrNop(logger)}, nil
}

func (r *Repository) Server(version string) *mcp.Server {
	reg := mcp.NewRegistry()
	r.Register(reg)
	return mcp.NewServer(ServerName, version, reg, r.logger)
}

func (r *Repository) Register(reg *mcp.Registry) {
	reg.MustRegister(
		mcp.Tool{
			Name:        "list_repositories",
			Description: "List repositories in the project",
			Handler:     r.listRepositories,
		},
		mcp.Tool{
			Name:        "get_repository_info",
			Description: "Get repository metadata",
			Handler:     r.getRepositoryInfo,
		},
		mcp.Tool{
			Name:        "list_contents",
			Description: "List files and folders at a repository path",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "Path to explore (default: root)", Default: ""},
			},
			Handler: r.listContents,
		},
		mcp.Tool{
			Name:        "get_file_content",
			Description: "Get the content of a file on the configured branch",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "File path"},
			},
			Handler: r.getFileContent,
		},
		mcp.Tool{
			Name:        "get_commits",
			Description: "List recent commits on the branch",
			Params: map[string]mcp.Param{
				"top": {Type: "integer", Description: "Number of commits to return", Default: 10},
			},
			Handler: r.getCommits,
		},
		mcp.Tool{
			Name:        "get_pull_requests",
			Description: "List pull requests",
			Params: map[string]mcp.Param{
				"status": {Type: "string", Description: "PR status (active, completed, abandoned, all)", Default: "active"},
			},
			Handler: r.getPullRequests,
		},
		mcp.Tool{
			Name:        "create_issue",
			Description: "Create an Issue work item",
			Params: map[string]mcp.Param{
				"title": {Type: "string", Description: "Work item title"},
				"body":  {Type: "string", Description: "Work item description", Default: ""},
			},
			Handler: r.createIssue,
		},
	)
	_ = reg.AddResource("repository", map[string]any{
		"type":         "azure-devops",
		"organization": r.client.org,
		"project":      r.project,
		"repo":         r.repo,
		"branch":       r.branch,
	}, "Repository coordinates", "")
}

func (r *Repository) repoEndpoint(suffix string) string {
	return "git/repositories/" + url.PathEscape(r.repo) + suffix
}

type gitRepository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
	WebURL        string `json:"webUrl"`
	Size          int64  `json:"size"`
}

func (r *Repository) listRepositories(ctx context.Context, _ mcp.Args) (any, error) {
	var resp struct {
		Value []gitRepository `json:"value"`
		Count int             `json:"count"`
	}
	if err := r.client.get(ctx, "git/repositories", url.Values{"project": {r.project}}, &resp); err != nil {
		return nil, err
	}
	return map[string]any{"repositories": resp.Value, "count": len(resp.Value)}, nil
}

func (r *Repository) getRepositoryInfo(ctx context.Context, _ mcp.Args) (any, error) {
	var info gitRepository
	if err := r.client.get(ctx, r.repoEndpoint(""), url.Values{"project": {r.project}}, &info); err != nil {
		return nil, err
	}
	return info, nil
}

type item struct {
	Path            string `json:"path"`
	IsFolder        bool   `json:"isFolder"`
	GitObjectType   string `json:"gitObjectType"`
	Size            int64  `json:"size"`
	Content         string `json:"content"`
	ContentMetadata struct {
		Encoding any `json:"encoding"`
	} `json:"contentMetadata"`
}

func (r *Repository) listContents(ctx context.Context, args mcp.Args) (any, error) {
	scope := "/" + strings.Trim(args.String("path"), "/")
	q := url.Values{
		"project":                   {r.project},
		"scopePath":                 {scope},
		"recursionLevel":            {"OneLevel"},
		"versionDescriptor.version": {r.branch},
	}
	var resp struct {
		Value []item `json:"value"`
	}
	if err := r.client.get(ctx, r.repoEndpoint("/items"), q, &resp); err != nil {
		return nil, err
	}
	items := make([]domain.Entry, 0, len(resp.Value))
	for _, it := range resp.Value {
		p := strings.TrimPrefix(it.Path, "/")
		// The scope folder itself is part of the listing.
		if "/"+p == scope || p == "" {
			continue
		}
		items = append(items, domain.Entry{Path: p, IsDirectory: it.IsFolder, Size: it.Size})
	}
	return map[string]any{"items": items}, nil
}

func (r *Repository) getFileContent(ctx context.Context, args mcp.Args) (any, error) {
	p := strings.Trim(args.String("path"), "/")
	if p == "" {
		return nil, errs.Validationf("get_file_content", "path is empty")
	}
	q := url.Values{
		"project":        {r.project},
		"path":           {"/" + p},
		"version":        {r.branch},
		"includeContent": {"true"},
	}
	var it item
	if err := r.client.get(ctx, r.repoEndpoint("/items"), q, &it); err != nil {
		return nil, err
	}
	content := it.Content
	if enc, _ := it.ContentMetadata.Encoding.(string); enc == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, errs.NewParse("get_file_content", fmt.Errorf("decode %s: %w", p, err))
		}
		content = string(decoded)
	}
	return map[string]any{"path": p, "content": content, "size": len(content)}, nil
}

func (r *Repository) getCommits(ctx context.Context, args mcp.Args) (any, error) {
	top := args.Int("top")
	if top <= 0 {
		top = 10
	}
	q := url.Values{
		"project":                                {r.project},
		"searchCriteria.itemVersion.version":     {r.branch},
		"searchCriteria.itemVersion.versionType": {"branch"},
		"$top":                                   {strconv.Itoa(top)},
	}
	var resp struct {
		Value []struct {
			CommitID string `json:"commitId"`
			Comment  string `json:"comment"`
			Author   struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"value"`
	}
	if err := r.client.get(ctx, r.repoEndpoint("/commits"), q, &resp); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(resp.Value))
	for _, c := range resp.Value {
		out = append(out, map[string]any{
			"sha":     c.CommitID,
			"message": c.Comment,
			"author":  c.Author.Name,
			"date":    c.Author.Date,
		})
	}
	return map[string]any{"commits": out, "count": len(out)}, nil
}

func (r *Repository) getPullRequests(ctx context.Context, args mcp.Args) (any, error) {
	q := url.Values{"project": {r.project}, "searchCriteria.status": {args.String("status")}}
	var resp struct {
		Value []struct {
			PullRequestID int    `json:"pullRequestId"`
			Title         string `json:"title"`
			Status        string `json:"status"`
			CreatedBy     struct {
				DisplayName string `json:"displayName"`
			} `json:"createdBy"`
			CreationDate string `json:"creationDate"`
		} `json:"value"`
	}
	if err := r.client.get(ctx, r.repoEndpoint("/pullrequests"), q, &resp); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(resp.Value))
	for _, pr := range resp.Value {
		out = append(out, map[string]any{
			"number":     pr.PullRequestID,
			"title":      pr.Title,
			"state":      pr.Status,
			"author":     pr.CreatedBy.DisplayName,
			"created_at": pr.CreationDate,
		})
	}
	return map[string]any{"pull_requests": out, "count": len(out)}, nil
}

func (r *Repository) createIssue(ctx context.Context, args mcp.Args) (any, error) {
	title := strings.TrimSpace(args.String("title"))
	if title == "" {
		return nil, errs.Validationf("create_issue", "title is empty")
	}
	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: title},
		{Op: "add", Path: "/fields/System.Description", Value: args.String("body")},
	}
	var created struct {
		ID    int `json:"id"`
		Links struct {
			HTML struct {
				Href string `json:"href"`
			} `json:"html"`
		} `json:"_links"`
		URL string `json:"url"`
	}
	if err := r.client.createWorkItem(ctx, r.project, "Issue", ops, &created); err != nil {
		return nil, err
	}
	link := created.Links.HTML.Href
	if link == "" {
		link = created.URL
	}
	r.logger.Info("created work item", zap.Int("id", created.ID), zap.String("url", link))
	return map[string]any{"number": created.ID, "url": link}, nil
}
