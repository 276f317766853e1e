package port

// FileWalker enumerates files under a repository root. Paths in FileInfo
// are slash-separated and relative to the root.
type FileWalker interface {
	// Walk returns every included file below root.
	Walk(root string) ([]FileInfo, error)

	// List returns the included entries directly inside dir.
	List(root, dir string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	IsDir   bool
	ModTime int64
	Size    int64
}
