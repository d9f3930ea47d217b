package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Repository is the clip library, addressed by slash-separated refs such as
// "tips/breathe-between-combos.mp3".
type Repository interface {
	// List returns the refs directly inside dir. A missing dir yields an
	// error matching fs.ErrNotExist.
	List(ctx context.Context, dir string) ([]string, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// DirRepository serves clips from a local directory tree.
type DirRepository struct {
	root string
}

// NewDirRepository creates a repository rooted at dir.
func NewDirRepository(dir string) *DirRepository {
	return &DirRepository{root: filepath.Clean(dir)}
}

func (r *DirRepository) List(ctx context.Context, dir string) ([]string, error) {
	full, err := r.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		refs = append(refs, path.Join(dir, entry.Name()))
	}
	sort.Strings(refs)
	return refs, nil
}

func (r *DirRepository) Exists(ctx context.Context, ref string) (bool, error) {
	full, err := r.resolve(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (r *DirRepository) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	full, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// resolve maps a ref to a path under root. Cleaning against "/" keeps
// ".." segments from leaving the tree.
func (r *DirRepository) resolve(ref string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(ref))
	if clean == "/" {
		return "", fmt.Errorf("assets: empty ref %q", ref)
	}
	return filepath.Join(r.root, filepath.FromSlash(clean)), nil
}
