// Package asset loads typed assets through a FileSystem and keeps them in a
// Store addressed by opaque handles.
package asset

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

var (
	ErrReadFailed    = errors.New("asset: read failed")
	ErrDecodeFailed  = errors.New("asset: decode failed")
	ErrInvalidHandle = errors.New("asset: invalid handle")
)

// Handle refers to an asset of type T held by a Store. Handles are assigned
// in insertion order and never reused.
type Handle[T any] struct {
	id uint32
}

func (h Handle[T]) Id() uint32 { return h.id }

func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle[%s](%d)", reflect.TypeFor[T](), h.id)
}

// Store owns loaded assets. It is not safe for concurrent mutation; inside a
// tick it is shared as an ECS resource and guarded by the resource lock.
type Store struct {
	fs     FileSystem
	assets *intmap.Map[uint32, any]
	next   uint32
	log    *zap.Logger
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

func NewStore(fs FileSystem, opts ...Option) *Store {
	s := &Store{
		fs:     fs,
		assets: intmap.New[uint32, any](32),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of assets currently stored.
func (s *Store) Len() int { return s.assets.Len() }

// ReadBytes reads a raw file through the store's filesystem.
func (s *Store) ReadBytes(path string) ([]byte, error) {
	return s.fs.ReadBytes(path)
}

// LoadWithoutStoring reads path and decodes it with loader, returning the
// value without keeping it in the store.
func LoadWithoutStoring[T any](s *Store, path string, loader Loader[T]) (T, error) {
	data, err := s.fs.ReadBytes(path)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := loader.Load(data)
	if err != nil {
		if !errors.Is(err, ErrDecodeFailed) {
			err = fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
		}
		return v, err
	}
	return v, nil
}

// Load reads and decodes path, then stores the result.
func Load[T any](s *Store, path string, loader Loader[T]) (Handle[T], error) {
	v, err := LoadWithoutStoring(s, path, loader)
	if err != nil {
		return Handle[T]{}, err
	}
	h := Put(s, v)
	s.log.Debug("asset loaded", zap.String("path", path), zap.Uint32("handle", h.id))
	return h, nil
}

// Put stores an already constructed asset.
func Put[T any](s *Store, v T) Handle[T] {
	h := Handle[T]{id: s.next}
	s.next++
	s.assets.Put(h.id, v)
	return h
}

// Get returns the asset h refers to. It reports false when the asset was
// removed or h was issued for a different type.
func Get[T any](s *Store, h Handle[T]) (T, bool) {
	v, ok := s.assets.Get(h.id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// MustGet is Get for callers that hold a handle they know to be live.
func MustGet[T any](s *Store, h Handle[T]) T {
	v, ok := Get(s, h)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrInvalidHandle, h))
	}
	return v
}

// Remove drops the asset h refers to.
func Remove[T any](s *Store, h Handle[T]) error {
	if _, ok := Get(s, h); !ok {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	s.assets.Del(h.id)
	return nil
}
