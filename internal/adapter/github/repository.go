package github

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

const ServerName = "github-repository"

// DebtLabels are attached to every issue filed by the analyzer.
var DebtLabels = []string{"technical-debt", "automated"}

// Repository exposes one GitHub repository at a fixed ref through the
// tool surface.
type Repository struct {
	client *Client
	owner  string
	repo   string
	ref    string
	logger *zap.Logger
}

func NewRepository(client *Client, owner, repo, ref string, logger *zap.Logger) (*Repository, error) {
	if owner == "" || repo == "" {
		return nil, errs.Validationf("github.NewRepository", "owner and repo are required")
	}
	if ref == "" {
		ref = "main"
	}
	r := &Repository{client: client, owner: owner, repo: repo, ref: ref, logger: logging.OrNop(logger)}
	if !client.HasToken() {
		r.logger.Warn("no GitHub token configured; requests are unauthenticated and rate limited")
	}
	return r, nil
}

func (r *Repository) FullName() string { return r.owner + "/" + r.repo }

func (r *Repository) endpoint(parts ...string) string {
	return "repos/" + r.owner + "/" + r.repo + strings.Join(parts, "")
}

func (r *Repository) Server(version string) *mcp.Server {
	reg := mcp.NewRegistry()
	r.Register(reg)
	return mcp.NewServer(ServerName, version, reg, r.logger)
}

func (r *Repository) Register(reg *mcp.Registry) {
	reg.MustRegister(
		mcp.Tool{
			Name:        "get_repository_info",
			Description: "Get repository metadata",
			Handler:     r.getRepositoryInfo,
		},
		mcp.Tool{
			Name:        "list_contents",
			Description: "List files and directories at a repository path",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "Path to explore (default: root)", Default: ""},
			},
			Handler: r.listContents,
		},
		mcp.Tool{
			Name:        "get_file_content",
			Description: "Get the decoded content of a file",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "File path"},
			},
			Handler: r.getFileContent,
		},
		mcp.Tool{
			Name:        "get_commits",
			Description: "List commits",
			Params: map[string]mcp.Param{
				"sha":      {Type: "string", Description: "Branch or commit SHA", Default: r.ref},
				"per_page": {Type: "integer", Description: "Number of commits per page (max 100)", Default: 10},
				"page":     {Type: "integer", Description: "Page number", Default: 1},
			},
			Handler: r.getCommits,
		},
		mcp.Tool{
			Name:        "get_pull_requests",
			Description: "List pull requests",
			Params: map[string]mcp.Param{
				"state":    {Type: "string", Description: "PR state (open, closed, all)", Default: "open"},
				"per_page": {Type: "integer", Description: "Number of PRs per page (max 100)", Default: 10},
			},
			Handler: r.getPullRequests,
		},
		mcp.Tool{
			Name:        "get_branches",
			Description: "List branches",
			Params: map[string]mcp.Param{
				"per_page": {Type: "integer", Description: "Number of branches per page (max 100)", Default: 10},
			},
			Handler: r.getBranches,
		},
		mcp.Tool{
			Name:        "get_languages",
			Description: "Get the language breakdown in bytes",
			Handler:     r.getLanguages,
		},
		mcp.Tool{
			Name:        "search_code",
			Description: "Search code in the repository",
			Params: map[string]mcp.Param{
				"query":    {Type: "string", Description: "Search query"},
				"per_page": {Type: "integer", Description: "Number of results per page (max 100)", Default: 10},
			},
			Handler: r.searchCode,
		},
		mcp.Tool{
			Name:        "list_open_issues",
			Description: "List open issue titles",
			Handler:     r.listOpenIssues,
		},
		mcp.Tool{
			Name:        "create_issue",
			Description: "Create an issue labelled as technical debt",
			Params: map[string]mcp.Param{
				"title": {Type: "string", Description: "Issue title"},
				"body":  {Type: "string", Description: "Issue body", Default: ""},
			},
			Handler: r.createIssue,
		},
	)
	_ = reg.AddResource("repository", map[string]any{
		"type":  "github",
		"owner": r.owner,
		"repo":  r.repo,
		"ref":   r.ref,
	}, "Repository coordinates", "")
}

func perPage(n int) string {
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}
	return strconv.Itoa(n)
}

type repoInfo struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	DefaultBranch   string `json:"default_branch"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	OpenIssuesCount int    `json:"open_issues_count"`
	HTMLURL         string `json:"html_url"`
}

func (r *Repository) getRepositoryInfo(ctx context.Context, _ mcp.Args) (any, error) {
	var info repoInfo
	if err := r.client.get(ctx, r.endpoint(), nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

type contentItem struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (r *Repository) listContents(ctx context.Context, args mcp.Args) (any, error) {
	p := strings.Trim(args.String("path"), "/")
	endpoint := r.endpoint("/contents")
	if p != "" {
		endpoint += "/" + escapePath(p)
	}
	var listing []contentItem
	if err := r.client.get(ctx, endpoint, url.Values{"ref": {r.ref}}, &listing); err != nil {
		return nil, err
	}
	items := make([]domain.Entry, 0, len(listing))
	for _, it := range listing {
		items = append(items, domain.Entry{Path: it.Path, IsDirectory: it.Type == "dir", Size: it.Size})
	}
	return map[string]any{"items": items}, nil
}

func (r *Repository) getFileContent(ctx context.Context, args mcp.Args) (any, error) {
	p := strings.Trim(args.String("path"), "/")
	if p == "" {
		return nil, errs.Validationf("get_file_content", "path is empty")
	}
	var item contentItem
	if err := r.client.get(ctx, r.endpoint("/contents/", escapePath(p)), url.Values{"ref": {r.ref}}, &item); err != nil {
		return nil, err
	}
	if item.Type != "" && item.Type != "file" {
		return nil, errs.Validationf("get_file_content", "not a file: %s", p)
	}
	content := item.Content
	if item.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
		if err != nil {
			return nil, errs.NewParse("get_file_content", fmt.Errorf("decode %s: %w", p, err))
		}
		content = string(decoded)
	}
	return map[string]any{"path": p, "content": content, "size": len(content)}, nil
}

type commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	HTMLURL string `json:"html_url"`
}

func (r *Repository) getCommits(ctx context.Context, args mcp.Args) (any, error) {
	q := url.Values{
		"sha":      {args.String("sha")},
		"per_page": {perPage(args.Int("per_page"))},
		"page":     {strconv.Itoa(max(args.Int("page"), 1))},
	}
	var commits []commit
	if err := r.client.get(ctx, r.endpoint("/commits"), q, &commits); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(commits))
	for _, c := range commits {
		out = append(out, map[string]any{
			"sha":     c.SHA,
			"message": c.Commit.Message,
			"author":  c.Commit.Author.Name,
			"date":    c.Commit.Author.Date,
			"url":     c.HTMLURL,
		})
	}
	return map[string]any{"commits": out, "count": len(out)}, nil
}

type pullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	CreatedAt string `json:"created_at"`
	HTMLURL   string `json:"html_url"`
}

func (r *Repository) getPullRequests(ctx context.Context, args mcp.Args) (any, error) {
	q := url.Values{"state": {args.String("state")}, "per_page": {perPage(args.Int("per_page"))}}
	var prs []pullRequest
	if err := r.client.get(ctx, r.endpoint("/pulls"), q, &prs); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(prs))
	for _, pr := range prs {
		out = append(out, map[string]any{
			"number":     pr.Number,
			"title":      pr.Title,
			"state":      pr.State,
			"author":     pr.User.Login,
			"created_at": pr.CreatedAt,
			"url":        pr.HTMLURL,
		})
	}
	return map[string]any{"pull_requests": out, "count": len(out)}, nil
}

func (r *Repository) getBranches(ctx context.Context, args mcp.Args) (any, error) {
	var branches []struct {
		Name      string `json:"name"`
		Protected bool   `json:"protected"`
	}
	q := url.Values{"per_page": {perPage(args.Int("per_page"))}}
	if err := r.client.get(ctx, r.endpoint("/branches"), q, &branches); err != nil {
		return nil, err
	}
	return map[string]any{"branches": branches, "count": len(branches)}, nil
}

func (r *Repository) getLanguages(ctx context.Context, _ mcp.Args) (any, error) {
	languages := map[string]int64{}
	if err := r.client.get(ctx, r.endpoint("/languages"), nil, &languages); err != nil {
		return nil, err
	}
	return map[string]any{"languages": languages}, nil
}

func (r *Repository) searchCode(ctx context.Context, args mcp.Args) (any, error) {
	query := strings.TrimSpace(args.String("query"))
	if query == "" {
		return nil, errs.Validationf("search_code", "query is empty")
	}
	q := url.Values{
		"q":        {query + " repo:" + r.FullName()},
		"per_page": {perPage(args.Int("per_page"))},
	}
	var resp struct {
		TotalCount int `json:"total_count"`
		Items      []struct {
			Name    string `json:"name"`
			Path    string `json:"path"`
			HTMLURL string `json:"html_url"`
		} `json:"items"`
	}
	if err := r.client.get(ctx, "search/code", q, &resp); err != nil {
		return nil, err
	}
	return map[string]any{"total_count": resp.TotalCount, "items": resp.Items}, nil
}

func (r *Repository) listOpenIssues(ctx context.Context, _ mcp.Args) (any, error) {
	var issues []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	}
	q := url.Values{"state": {"open"}, "per_page": {"100"}}
	if err := r.client.get(ctx, r.endpoint("/issues"), q, &issues); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(issues))
	for _, is := range issues {
		titles = append(titles, is.Title)
	}
	return map[string]any{"titles": titles, "count": len(titles)}, nil
}

func (r *Repository) createIssue(ctx context.Context, args mcp.Args) (any, error) {
	if !r.client.HasToken() {
		return nil, errs.Configurationf("create_issue", "a GitHub token is required to create issues")
	}
	title := strings.TrimSpace(args.String("title"))
	if title == "" {
		return nil, errs.Validationf("create_issue", "title is empty")
	}
	payload := map[string]any{
		"title":  title,
		"body":   args.String("body"),
		"labels": DebtLabels,
	}
	var created struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := r.client.post(ctx, r.endpoint("/issues"), payload, &created); err != nil {
		return nil, err
	}
	r.logger.Info("created issue", zap.String("repo", r.FullName()), zap.String("url", created.HTMLURL))
	return map[string]any{"number": created.Number, "url": created.HTMLURL}, nil
}
