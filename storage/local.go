package storage

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs as plain files in one directory. Writes go through a
// pending temp file so a partially written blob is never visible under its key.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", abs, err)
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// Put never replaces an existing blob. The pending file is linked into place,
// which fails if the key already exists, so of several concurrent writers to
// one key exactly one wins.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(p); err == nil {
		return "", fmt.Errorf("put %s: %w", key, ErrBlobExists)
	}

	pending, err := renameio.NewPendingFile(p, renameio.WithTempDir(s.dir), renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("create pending file for %s: %w", key, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("cleanup pending blob")
		}
	}()

	n, err := io.Copy(pending, ctxReader{ctx: ctx, r: r})
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return "", fmt.Errorf("write blob %s: wrote %d bytes, expected %d", key, n, size)
	}
	if err := pending.Sync(); err != nil {
		return "", fmt.Errorf("sync blob %s: %w", key, err)
	}

	// Cleanup drops the temp name afterwards; the linked key keeps the data.
	if err := os.Link(pending.Name(), p); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("put %s: %w", key, ErrBlobExists)
		}
		return "", fmt.Errorf("commit blob %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
}

// ctxReader stops a copy once the caller has gone away.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
