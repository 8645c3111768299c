package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var _ Backend = fileBackend{}

// fileBackend keeps one file per key directly under dir.
//
// Layout:
//
//	{dir}/
//	  {sha256}-json        canonical JSON bytes
//	  {sha256}-binary      raw bytes
//	  out:{sha256}-json    symlink -> {sha256}-{tag}
//
// Entries are written to a temp file and hard-linked into place, so an entry
// only ever appears complete, and link(2)/symlink(2) failing with EEXIST is
// the create-if-absent primitive.
type fileBackend struct {
	dir string
}

// NewFileBackend returns a Backend rooted at dir, creating dir if needed.
func NewFileBackend(dir string) (Backend, error) {
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store dir: %v", ErrStoreWriteFailed, err)
	}
	return fileBackend{dir: dir}, nil
}

func (b fileBackend) path(key Key) string {
	return filepath.Join(b.dir, string(key))
}

func (b fileBackend) Load(_ context.Context, key Key) ([]byte, error) {
	raw, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
	}
	return raw, nil
}

func (b fileBackend) InsertIfAbsent(_ context.Context, key Key, raw []byte) (bool, error) {
	final := b.path(key)
	if _, err := os.Lstat(final); err == nil {
		return false, nil
	}

	tmpName := filepath.Join(b.dir, ".tmp-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
	}
	return true, nil
}

func (b fileBackend) LoadLink(_ context.Context, key Key) (Key, error) {
	target, err := os.Readlink(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrStoreReadFailed, key, err)
	}
	// Records written by other tools may hold a path; only the name is the key.
	return Key(filepath.Base(target)), nil
}

func (b fileBackend) LinkIfAbsent(_ context.Context, key, target Key) (bool, error) {
	if err := os.Symlink(string(target), b.path(key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %v", ErrStoreWriteFailed, key, err)
	}
	return true, nil
}
