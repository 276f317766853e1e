package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"repolens/internal/domain"
	"repolens/internal/errs"
	"repolens/internal/logging"
	"repolens/internal/mcp"
	"repolens/internal/port"
)

const ServerName = "local-repository"

// Repository exposes a directory on disk through the tool surface.
type Repository struct {
	root     string
	realRoot string
	walker   port.FileWalker
	logger   *zap.Logger
}

func NewRepository(root string, walker port.FileWalker, logger *zap.Logger) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.Validationf("fs.NewRepository", "invalid root %q: %v", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, errs.Validationf("fs.NewRepository", "not a directory: %s", root)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errs.Validationf("fs.NewRepository", "invalid root %q: %v", root, err)
	}
	if walker == nil {
		walker = NewWalker(nil, nil)
	}
	return &Repository{root: abs, realRoot: real, walker: walker, logger: logging.OrNop(logger)}, nil
}

func (r *Repository) Root() string { return r.root }

// Server builds a sealed tool server over the repository.
func (r *Repository) Server(version string) *mcp.Server {
	reg := mcp.NewRegistry()
	r.Register(reg)
	return mcp.NewServer(ServerName, version, reg, r.logger)
}

// Register adds the repository's tools to reg.
func (r *Repository) Register(reg *mcp.Registry) {
	reg.MustRegister(
		mcp.Tool{
			Name:        "list_contents",
			Description: "List files and directories directly inside a repository path",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "Directory relative to the repository root", Default: ""},
			},
			Handler: r.listContents,
		},
		mcp.Tool{
			Name:        "get_file_content",
			Description: "Read a file's content",
			Params: map[string]mcp.Param{
				"path": {Type: "string", Description: "File path relative to the repository root"},
			},
			Handler: r.getFileContent,
		},
		mcp.Tool{
			Name:        "get_repository_info",
			Description: "Describe the repository: name, root and file counts per language",
			Handler:     r.getRepositoryInfo,
		},
		mcp.Tool{
			Name:        "list_files",
			Description: "List every included file in the repository",
			Handler:     r.listFiles,
		},
	)
	_ = reg.AddResource("repository", map[string]any{"type": "local", "root": r.root},
		"Repository location", "")
}

// resolve maps a tool path argument onto disk, rejecting anything that
// leaves the root, including through symlinks. The returned disk path has
// its links resolved; it is empty when nothing exists at the path.
func (r *Repository) resolve(op, p string) (string, string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", "", errs.Validationf(op, "absolute paths are not allowed: %s", p)
	}
	clean := path.Clean("/" + p)[1:]
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", "", errs.Validationf(op, "path escapes repository root: %s", p)
		}
	}

	real, err := filepath.EvalSymlinks(filepath.Join(r.realRoot, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return clean, "", nil
		}
		return "", "", errs.Validationf(op, "cannot resolve %s: %v", clean, err)
	}
	if !within(r.realRoot, real) {
		return "", "", errs.Validationf(op, "path escapes repository root: %s", p)
	}
	return clean, real, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (r *Repository) listContents(_ context.Context, args mcp.Args) (any, error) {
	rel, abs, err := r.resolve("list_contents", args.String("path"))
	if err != nil {
		return nil, err
	}
	if abs == "" {
		return nil, errs.Validationf("list_contents", "no such directory: %s", rel)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Validationf("list_contents", "no such directory: %s", rel)
	}
	if !info.IsDir() {
		return nil, errs.Validationf("list_contents", "not a directory: %s", rel)
	}

	listed, err := r.walker.List(r.realRoot, rel)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Entry, 0, len(listed))
	for _, f := range listed {
		items = append(items, domain.Entry{Path: f.Path, IsDirectory: f.IsDir, Size: f.Size})
	}
	return map[string]any{"items": items}, nil
}

func (r *Repository) getFileContent(_ context.Context, args mcp.Args) (any, error) {
	rel, abs, err := r.resolve("get_file_content", args.String("path"))
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return nil, errs.Validationf("get_file_content", "path is empty")
	}
	if abs == "" {
		return nil, errs.Validationf("get_file_content", "no such file: %s", rel)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Validationf("get_file_content", "no such file: %s", rel)
	}
	if info.IsDir() {
		return nil, errs.Validationf("get_file_content", "is a directory: %s", rel)
	}
	content, err := ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": rel, "content": content, "size": len(content)}, nil
}

func (r *Repository) getRepositoryInfo(_ context.Context, _ mcp.Args) (any, error) {
	files, err := r.walker.Walk(r.realRoot)
	if err != nil {
		return nil, err
	}
	languages := map[string]int{}
	var total int64
	for _, f := range files {
		total += f.Size
		if lang, ok := domain.LanguageFor(f.Path); ok {
			languages[lang]++
		}
	}
	return map[string]any{
		"name":       filepath.Base(r.root),
		"root":       r.root,
		"file_count": len(files),
		"total_size": total,
		"languages":  languages,
	}, nil
}

func (r *Repository) listFiles(_ context.Context, _ mcp.Args) (any, error) {
	files, err := r.walker.Walk(r.realRoot)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Entry, 0, len(files))
	for _, f := range files {
		items = append(items, domain.Entry{Path: f.Path, Size: f.Size})
	}
	r.logger.Debug("listed files", zap.Int("count", len(items)))
	return map[string]any{"files": items}, nil
}
