package azdo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/errs"
	"repolens/internal/mcp"
)

func newTestRepo(t *testing.T, handler http.HandlerFunc) *mcp.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	repo, err := NewRepository(NewClient(srv.URL, "contoso", "secret", "", 0), "Platform", "api", "develop", nil)
	require.NoError(t, err)
	return mcp.NewClient(repo.Server("test"))
}

func TestNewRepository_RequiresCredentials(t *testing.T) {
	_, err := NewRepository(NewClient("", "contoso", "", "", 0), "p", "r", "", nil)
	assert.True(t, errs.Is(err, errs.Configuration))

	_, err = NewRepository(NewClient("", "contoso", "pat", "", 0), "", "r", "", nil)
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestListContents(t *testing.T) {
	c := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contoso/_apis/git/repositories/api/items", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "7.0", q.Get("api-version"))
		assert.Equal(t, "Platform", q.Get("project"))
		assert.Equal(t, "/src", q.Get("scopePath"))
		assert.Equal(t, "OneLevel", q.Get("recursionLevel"))

		want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret"))
		assert.Equal(t, want, r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"value":[
			{"path":"/src","isFolder":true},
			{"path":"/src/lib","isFolder":true},
			{"path":"/src/app.py","isFolder":false,"size":120}
		]}`))
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
	assert.Equal(t, "src/lib", out.Items[0].Path)
	assert.True(t, out.Items[0].IsDirectory)
	assert.Equal(t, "src/app.py", out.Items[1].Path)
	assert.Equal(t, int64(120), out.Items[1].Size)
}

func TestGetFileContent(t *testing.T) {
	c := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/src/app.py", q.Get("path"))
		assert.Equal(t, "develop", q.Get("version"))
		assert.Equal(t, "true", q.Get("includeContent"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":            "/src/app.py",
			"content":         base64.StdEncoding.EncodeToString([]byte("print('hi')\n")),
			"contentMetadata": map[string]any{"encoding": "base64"},
		})
	})

	var out struct {
		Content string `json:"content"`
	}
	require.NoError(t, c.CallTool(context.Background(), "get_file_content", map[string]any{"path": "/src/app.py"}, &out))
	assert.Equal(t, "print('hi')\n", out.Content)
}

func TestGetCommits(t *testing.T) {
	c := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "develop", q.Get("searchCriteria.itemVersion.version"))
		assert.Equal(t, "5", q.Get("$top"))
		_, _ = w.Write([]byte(`{"value":[{"commitId":"c1","comment":"fix","author":{"name":"Kim"}}]}`))
	})

	var out struct {
		Count   int              `json:"count"`
		Commits []map[string]any `json:"commits"`
	}
	require.NoError(t, c.CallTool(context.Background(), "get_commits", map[string]any{"top": 5}, &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "c1", out.Commits[0]["sha"])
}

func TestCreateIssue(t *testing.T) {
	c := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contoso/Platform/_apis/wit/workitems/$Issue", r.URL.Path)
		assert.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))

		var ops []patchOp
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ops))
		require.Len(t, ops, 2)
		assert.Equal(t, "/fields/System.Title", ops[0].Path)
		assert.Equal(t, "Add tests", ops[0].Value)
		assert.Equal(t, "/fields/System.Description", ops[1].Path)

		_, _ = w.Write([]byte(`{"id":42,"_links":{"html":{"href":"https://dev.azure.com/contoso/Platform/_workitems/edit/42"}}}`))
	})

	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, c.CallTool(context.Background(), "create_issue", map[string]any{"title": "Add tests", "body": "details"}, &out))
	assert.Equal(t, "https://dev.azure.com/contoso/Platform/_workitems/edit/42", out.URL)
}

func TestUnauthorized(t *testing.T) {
	c := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := c.CallTool(context.Background(), "get_repository_info", nil, nil)
	var rpcErr *mcp.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Contains(t, rpcErr.Message, "authentication failed")
}
