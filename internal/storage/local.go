package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalService keeps files on disk under a root directory that the router
// serves as static content.
type LocalService struct {
	root    string
	baseURL string
}

// NewLocalService creates the root directory if needed.
func NewLocalService(root, baseURL string) (*LocalService, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalService{root: root, baseURL: baseURL}, nil
}

// Root returns the directory files are written to.
func (s *LocalService) Root() string { return s.root }

func (s *LocalService) Put(ctx context.Context, key string, body io.Reader, _ string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", k, err)
	}

	// Write to a temp file first so readers never see a partial upload.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, body)); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", k, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", k, err)
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *LocalService) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(k)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalService) URL(key string) string {
	return joinURL(s.baseURL, key)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
