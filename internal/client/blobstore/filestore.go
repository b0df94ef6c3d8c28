package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/filex"
)

const tmpSuffix = ".tmp"

// FileStore keeps one file per upload id in a single directory. Values are
// written to a temporary name and renamed into place, so a blob is never
// visible half-written.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed and returns a store
// over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := filex.EnsureDir(dir); err != nil {
		return nil, mapStorageErr(err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *FileStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp := s.path(id) + tmpSuffix

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o660)
	if err != nil {
		return 0, mapStorageErr(err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, mapStorageErr(err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, mapStorageErr(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, mapStorageErr(err)
	}

	if err := os.Rename(tmp, s.path(id)); err != nil {
		os.Remove(tmp)
		return 0, mapStorageErr(err)
	}

	return n, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, common.ErrNotFound
		}
		return nil, 0, mapStorageErr(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, mapStorageErr(err)
	}

	return f, info.Size(), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapStorageErr(err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// mapStorageErr folds OS-level failures into the two store error classes
// the upload manager distinguishes.
func mapStorageErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %v", common.ErrStorageFull, err)
	}
	return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
}
