package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore releases assets stored under a local uploads directory.
type FSStore struct {
	root   string
	prefix string
}

// NewFSStore serves files under root.  publicPrefix (e.g. "/uploads") is
// stripped from incoming paths.
func NewFSStore(root, publicPrefix string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FSStore{root: abs, prefix: publicPrefix}, nil
}

// Release implements Store.
func (s *FSStore) Release(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return err
	}
	return nil
}

// resolve maps p into the root and refuses anything that escapes it.
func (s *FSStore) resolve(p string) (string, error) {
	key := objectKey(p, s.prefix)
	if key == "" {
		return "", fmt.Errorf("asset path %q has no file component", p)
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset path %q escapes the store root", p)
	}
	return full, nil
}
