package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes uploaded file bytes under a root directory, one subdirectory
// per file id. Descriptor metadata is tracked separately by the file
// repository.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Save(fileID, name string, r io.Reader) (int64, error) {
	dir := filepath.Join(l.root, fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create file dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, sanitize(name)))
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}
	return n, nil
}

func (l *Local) Open(fileID, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.root, fileID, sanitize(name)))
}

// sanitize strips path components so a crafted filename cannot escape the
// storage root.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	return name
}
