package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirSink writes archive objects as files under a root directory.
type DirSink struct {
	root string
}

// NewDirSink returns a sink rooted at root, creating it if needed.
func NewDirSink(root string) (*DirSink, error) {
	if root == "" {
		return nil, fmt.Errorf("archive dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DirSink{root: root}, nil
}

// Put writes r to root/key. Existing objects are never overwritten.
func (d *DirSink) Put(ctx context.Context, key string, r io.Reader) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}
	path := filepath.Join(d.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// cleanKey rejects keys that would escape the root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}
