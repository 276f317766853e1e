package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func newClient(t *testing.T, root string, excludes ...string) *mcp.Client {
	t.Helper()
	repo, err := NewRepository(root, NewWalker(nil, excludes), nil)
	require.NoError(t, err)
	return mcp.NewClient(repo.Server("test"))
}

type listing struct {
	Items []struct {
		Path        string `json:"path"`
		IsDirectory bool   `json:"is_directory"`
		Size        int64  `json:"size"`
	} `json:"items"`
}

func TestRepository_ListContents(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":         "package main",
		"pkg/util.go":     "package pkg",
		"vendor/dep/x.go": "package dep",
		"README.md":       "# hi",
	})
	c := newClient(t, root, "**/vendor")
	ctx := context.Background()

	var out listing
	require.NoError(t, c.CallTool(ctx, "list_contents", nil, &out))

	var paths []string
	for _, it := range out.Items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"pkg", "README.md", "main.go"}, paths)
	assert.True(t, out.Items[0].IsDirectory)
	assert.Equal(t, int64(len("package main")), out.Items[2].Size)

	require.NoError(t, c.CallTool(ctx, "list_contents", map[string]any{"path": "pkg"}, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "pkg/util.go", out.Items[0].Path)
}

func TestRepository_GetFileContent(t *testing.T) {
	root := writeTree(t, map[string]string{"pkg/util.go": "package pkg\n"})
	c := newClient(t, root)

	var out struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Size    int    `json:"size"`
	}
	require.NoError(t, c.CallTool(context.Background(), "get_file_content", map[string]any{"path": "pkg/util.go"}, &out))
	assert.Equal(t, "pkg/util.go", out.Path)
	assert.Equal(t, "package pkg\n", out.Content)
	assert.Equal(t, 12, out.Size)
}

func TestRepository_RejectsEscapes(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a"})
	c := newClient(t, root)
	ctx := context.Background()

	for _, p := range []string{"../etc/passwd", "/etc/passwd", "pkg/../../x"} {
		err := c.CallTool(ctx, "get_file_content", map[string]any{"path": p}, nil)
		var rpcErr *mcp.Error
		require.ErrorAs(t, err, &rpcErr, p)
		assert.Equal(t, mcp.InternalError, rpcErr.Code)
		assert.Equal(t, "validation", rpcErr.Data["kind"])
	}

	err := c.CallTool(ctx, "get_file_content", map[string]any{}, nil)
	var rpcErr *mcp.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcp.InvalidParams, rpcErr.Code)
}

func TestRepository_InfoAndFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go":      "package a",
		"b/c.py":    "print(1)",
		"b/d.go":    "package b",
		"notes.txt": "x",
	})
	c := newClient(t, root)
	ctx := context.Background()

	var info struct {
		FileCount int            `json:"file_count"`
		Languages map[string]int `json:"languages"`
	}
	require.NoError(t, c.CallTool(ctx, "get_repository_info", nil, &info))
	assert.Equal(t, 4, info.FileCount)
	assert.Equal(t, map[string]int{"Go": 2, "Python": 1}, info.Languages)

	var files struct {
		Files []struct {
			Path string `json:"path"`
		} `json:"files"`
	}
	require.NoError(t, c.CallTool(ctx, "list_files", nil, &files))
	require.Len(t, files.Files, 4)
	assert.Equal(t, "a.go", files.Files[0].Path)
	assert.Equal(t, "b/c.py", files.Files[1].Path)
}

func TestNewRepository_NotADirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a"})
	_, err := NewRepository(filepath.Join(root, "a.go"), nil, nil)
	assert.Error(t, err)
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func requireValidationError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	var rpcErr *mcp.Error
	require.ErrorAs(t, err, &rpcErr, msgAndArgs...)
	assert.Equal(t, mcp.InternalError, rpcErr.Code, msgAndArgs...)
	assert.Equal(t, "validation", rpcErr.Data["kind"], msgAndArgs...)
}

func TestRepository_SymlinksOutsideRootAreNotServed(t *testing.T) {
	outside := writeTree(t, map[string]string{"secret.py": "TOP_SECRET = 1\n"})
	root := writeTree(t, map[string]string{"main.go": "package main"})
	symlink(t, filepath.Join(outside, "secret.py"), filepath.Join(root, "leak.py"))
	symlink(t, outside, filepath.Join(root, "ext"))

	c := newClient(t, root)
	ctx := context.Background()

	var out listing
	require.NoError(t, c.CallTool(ctx, "list_contents", nil, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "main.go", out.Items[0].Path)

	for _, p := range []string{"leak.py", "ext/secret.py"} {
		var file struct {
			Content string `json:"content"`
		}
		err := c.CallTool(ctx, "get_file_content", map[string]any{"path": p}, &file)
		requireValidationError(t, err, p)
		assert.Empty(t, file.Content, p)
	}
	requireValidationError(t, c.CallTool(ctx, "list_contents", map[string]any{"path": "ext"}, nil))

	var files struct {
		Files []struct {
			Path string `json:"path"`
		} `json:"files"`
	}
	require.NoError(t, c.CallTool(ctx, "list_files", nil, &files))
	require.Len(t, files.Files, 1)
	assert.Equal(t, "main.go", files.Files[0].Path)
}

func TestRepository_SymlinkInsideRoot(t *testing.T) {
	root := writeTree(t, map[string]string{"pkg/util.go": "package pkg\n"})
	symlink(t, filepath.Join(root, "pkg", "util.go"), filepath.Join(root, "alias.go"))

	c := newClient(t, root)
	ctx := context.Background()

	var out listing
	require.NoError(t, c.CallTool(ctx, "list_contents", nil, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "pkg", out.Items[0].Path)

	var file struct {
		Content string `json:"content"`
	}
	require.NoError(t, c.CallTool(ctx, "get_file_content", map[string]any{"path": "alias.go"}, &file))
	assert.Equal(t, "package pkg\n", file.Content)
}

func TestRepository_RootBehindSymlink(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "package a"})
	link := filepath.Join(t.TempDir(), "repo")
	symlink(t, root, link)

	c := newClient(t, link)
	ctx := context.Background()

	var out listing
	require.NoError(t, c.CallTool(ctx, "list_contents", nil, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "a.go", out.Items[0].Path)

	var file struct {
		Content string `json:"content"`
	}
	require.NoError(t, c.CallTool(ctx, "get_file_content", map[string]any{"path": "a.go"}, &file))
	assert.Equal(t, "package a", file.Content)
}
