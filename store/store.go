// Package store is a content-addressed store of write-once entries.
//
// An entry's key is derived from its bytes (see KeyOf), so storing the same
// value twice is a no-op that returns the same key. Besides value entries the
// store holds indirection records: named pointers from "out:<key>" to the key
// of another entry, used by the memoizer to remember computation outputs.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/value"
	"go.uber.org/zap"
)

// Store reads and writes entries through a Backend.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

type Option func(*Store)

// WithLogger sets the logger used for debug output. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config selects and sizes the backend of a Store.
type Config struct {
	Dir     string      `yaml:"dir"`
	Backend string      `yaml:"backend"` // "file" or "memory"
	Cache   CacheConfig `yaml:"cache"`
}

const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

// DefaultConfig stores files next to the running executable.
func DefaultConfig() Config {
	return Config{
		Dir:     DefaultDir(),
		Backend: BackendFile,
		Cache:   DefaultCacheConfig(),
	}
}

// DefaultDir is the "store" directory beside the executable, or under the
// working directory when the executable path is unknown.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "store"
	}
	return filepath.Join(filepath.Dir(exe), "store")
}

// Open builds the backend described by cfg and returns a Store over it.
func Open(cfg Config, opts ...Option) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "", BackendFile:
		backend, err = NewFileBackend(cfg.Dir)
	case BackendMemory:
		backend, err = NewMemDBBackend()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Enabled {
		if backend, err = NewCachedBackend(backend, cfg.Cache); err != nil {
			return nil, err
		}
	}
	return New(backend, opts...), nil
}

// Close releases backend resources, if the backend holds any.
func (s *Store) Close() error {
	if closer, ok := s.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Put stores raw under its content key and returns the key. Storing bytes
// that are already present succeeds without writing.
func (s *Store) Put(ctx context.Context, raw []byte, tag serial.TypeTag) (Key, error) {
	key, _, err := s.Insert(ctx, raw, tag)
	return key, err
}

// Insert is Put, also reporting whether this call created the entry.
func (s *Store) Insert(ctx context.Context, raw []byte, tag serial.TypeTag) (Key, bool, error) {
	key := KeyOf(raw, tag)
	if err := key.validate(); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	inserted, err := s.backend.InsertIfAbsent(ctx, key, raw)
	if err != nil {
		return "", false, writeFailed(key, err)
	}
	s.logger.Debug("put entry",
		zap.Stringer("key", key),
		zap.Int("size", len(raw)),
		zap.Bool("inserted", inserted),
	)
	return key, inserted, nil
}

// Get returns the bytes stored under key.
func (s *Store) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, readFailed(key, err)
	}
	return raw, nil
}

// StoreValue serializes v and stores it. Strings that are not valid UTF-8 are
// rejected before anything is written.
func (s *Store) StoreValue(ctx context.Context, v value.Value) (Key, error) {
	if err := value.Validate(v); err != nil {
		return "", err
	}
	raw, tag := serial.Serialize(v)
	return s.Put(ctx, raw, tag)
}

// FetchValue reads the entry under key and deserializes it according to the
// key's tag. An indirection key is resolved to the entry it points to.
func (s *Store) FetchValue(ctx context.Context, key Key) (value.Value, error) {
	if key.IsIndirection() {
		target, err := s.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		key = target
	}
	tag, err := key.Tag()
	if err != nil {
		return nil, err
	}
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	v, err := serial.Deserialize(raw, tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Link creates the indirection record from -> to unless a record already
// exists. It returns the target actually recorded: to when this call inserted
// it, the earlier target otherwise.
func (s *Store) Link(ctx context.Context, from, to Key) (recorded Key, inserted bool, err error) {
	if err := s.validateLink(from, to); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	inserted, err = s.backend.LinkIfAbsent(ctx, from, to)
	if err != nil {
		return "", false, writeFailed(from, err)
	}
	if inserted {
		s.logger.Debug("linked record", zap.Stringer("from", from), zap.Stringer("to", to))
		return to, true, nil
	}
	recorded, err = s.Resolve(ctx, from)
	if err != nil {
		return "", false, err
	}
	return recorded, false, nil
}

// Resolve returns the target of the indirection record at from.
func (s *Store) Resolve(ctx context.Context, from Key) (Key, error) {
	if err := from.validate(); err != nil {
		return "", err
	}
	if !from.IsIndirection() {
		return "", fmt.Errorf("%w: %q is not an indirection key", ErrMalformedKey, string(from))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := s.backend.LoadLink(ctx, from)
	if err != nil {
		return "", readFailed(from, err)
	}
	return target, nil
}

func (s *Store) validateLink(from, to Key) error {
	if err := from.validate(); err != nil {
		return err
	}
	if err := to.validate(); err != nil {
		return err
	}
	if !from.IsIndirection() {
		return fmt.Errorf("%w: %q is not an indirection key", ErrMalformedKey, string(from))
	}
	if to.IsIndirection() {
		return fmt.Errorf("%w: record target %q is itself an indirection key", ErrMalformedKey, string(to))
	}
	return nil
}
