package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/mcp"
)

func newTestRepo(t *testing.T, token string, handler http.HandlerFunc) *mcp.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	repo, err := NewRepository(NewClient(srv.URL, token, 0), "acme", "widgets", "dev", nil)
	require.NoError(t, err)
	return mcp.NewClient(repo.Server("test"))
}

func TestListContents(t *testing.T) {
	c := newTestRepo(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/contents/src", r.URL.Path)
		assert.Equal(t, "dev", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "app", "path": "src/app", "type": "dir", "size": 0},
			{"name": "main.go", "path": "src/main.go", "type": "file", "size": 42},
		})
	})

	var out struct {
		Items []struct {
			Path        string `json:"path"`
			IsDirectory bool   `json:"is_directory"`
			Size        int64  `json:"size"`
		} `json:"items"`
	}
	require.NoError(t, c.CallTool(context.Background(), "list_contents", map[string]any{"path": "src"}, &out))
	require.Len(t, out.Items, 2)
	assert.True(t, out.Items[0].IsDirectory)
	assert.Equal(t, "src/main.go", out.Items[1].Path)
	assert.Equal(t, int64(42), out.Items[1].Size)
}

func TestGetFileContent_DecodesBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("package main\n\nfunc main() {}\n"))
	c := newTestRepo(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/contents/cmd/main.go", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"path":     "cmd/main.go",
			"encoding": "base64",
			"content":  encoded[:10] + "\n" + encoded[10:],
		})
	})

	var out struct {
		Content string `json:"content"`
		Size    int    `json:"size"`
	}
	require.NoError(t, c.CallTool(context.Background(), "get_file_content", map[string]any{"path": "cmd/main.go"}, &out))
	assert.Equal(t, "package main\n\nfunc main() {}\n", out.Content)
	assert.Equal(t, len(out.Content), out.Size)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   string
	}{
		{http.StatusUnauthorized, `{}`, "authentication failed"},
		{http.StatusForbidden, `{"message":"API rate limit exceeded"}`, "rate limit exceeded"},
		{http.StatusNotFound, `{}`, "not found"},
		{http.StatusBadGateway, `upstream`, "status 502"},
	}
	for _, tc := range cases {
		c := newTestRepo(t, "tok", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})
		err := c.CallTool(context.Background(), "get_repository_info", nil, nil)
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Contains(t, rpcErr.Message, tc.want)
		assert.Equal(t, "transport", rpcErr.Data["kind"])
	}
}

func TestGetCommits_ClampsPerPage(t *testing.T) {
	c := newTestRepo(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "dev", r.URL.Query().Get("sha"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`[{"sha":"abc","commit":{"message":"init","author":{"name":"Ana","date":"2024-01-01"}}}]`))
	})

	var out struct {
		Commits []map[string]any `json:"commits"`
		Count   int              `json:"count"`
	}
	require.NoError(t, c.CallTool(context.Background(), "get_commits", map[string]any{"per_page": 500}, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "init", out.Commits[0]["message"])
}

func TestSearchCode_ScopesToRepository(t *testing.T) {
	c := newTestRepo(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/code", r.URL.Path)
		assert.Equal(t, "TODO repo:acme/widgets", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"name":"a.go","path":"a.go"}]}`))
	})

	var out struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, c.CallTool(context.Background(), "search_code", map[string]any{"query": "TODO"}, &out))
	assert.Equal(t, 1, out.TotalCount)
}

func TestCreateIssue(t *testing.T) {
	c := newTestRepo(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/issues", r.URL.Path)
		var payload struct {
			Title  string   `json:"title"`
			Labels []string `json:"labels"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Add tests", payload.Title)
		assert.Equal(t, DebtLabels, payload.Labels)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/acme/widgets/issues/7"}`))
	})

	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, c.CallTool(context.Background(), "create_issue", map[string]any{"title": "Add tests"}, &out))
	assert.Equal(t, "https://github.com/acme/widgets/issues/7", out.URL)
}

func TestCreateIssue_RequiresToken(t *testing.T) {
	c := newTestRepo(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	err := c.CallTool(context.Background(), "create_issue", map[string]any{"title": "x"}, nil)
	var rpcErr *mcp.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "configuration", rpcErr.Data["kind"])
}

func TestNewRepository_Validation(t *testing.T) {
	_, err := NewRepository(NewClient("", "", 0), "", "x", "", nil)
	assert.Error(t, err)
}
