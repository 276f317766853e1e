package fs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"repolens/internal/port"
)

var _ port.FileWalker = (*Walker)(nil)

type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns every included file below root, sorted by path. Symlinks
// are skipped.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := relative(root, p)
		if err != nil {
			return err
		}
		if rel != "" && d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if rel != "" && w.dirExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.fileIncluded(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, port.FileInfo{
			Path:    rel,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})

	return files, err
}

// List returns the entries directly inside dir, directories first. Symlinks
// are skipped.
// dir is relative to root; "" names the root itself.
func (w *Walker) List(root, dir string) ([]port.FileInfo, error) {
	abs := filepath.Join(root, filepath.FromSlash(dir))
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	var dirs, files []port.FileInfo
	for _, e := range entries {
		rel := path.Join(dir, e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if e.IsDir() {
			if w.dirExcluded(rel) {
				continue
			}
			dirs = append(dirs, port.FileInfo{Path: rel, IsDir: true})
			continue
		}
		if !w.fileIncluded(rel) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files = append(files, port.FileInfo{Path: rel, ModTime: info.ModTime().Unix(), Size: info.Size()})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return append(dirs, files...), nil
}

func (w *Walker) fileIncluded(rel string) bool {
	return matchAny(w.includes, rel) && !matchAny(w.excludes, rel)
}

func (w *Walker) dirExcluded(rel string) bool {
	return matchAny(w.excludes, rel) || matchAny(w.excludes, rel+"/")
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, p)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func relative(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func ReadFile(p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
