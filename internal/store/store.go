package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no committed version exists under a key.
var ErrNotFound = errors.New("artifact not found")

// Record is one committed version of an artifact.
type Record struct {
	Key       string    `json:"key"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable artifact store. Writes are all-or-nothing per key and
// never mutate in place: every Put creates a new version and downstream
// readers always see the latest committed one. A pending marker flags a key
// (or a whole range) as mid-regeneration so a crash cannot be mistaken for a
// committed artifact.
type Store interface {
	// Put commits content as a new version under key and clears any pending
	// marker on it.
	Put(ctx context.Context, key, content string) (*Record, error)
	// Get returns the latest committed version under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)
	Exists(ctx context.Context, key string) (bool, error)
	// MarkPending flags key as being (re)generated. Cleared by the next Put.
	MarkPending(ctx context.Context, key string) error
	Pending(ctx context.Context, key string) (bool, error)
}

// WithPrefix namespaces every key of s under prefix. Pipeline instances get
// disjoint namespaces this way, so independent stories can share one backing
// store with no cross-instance state.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{inner: s, prefix: prefix + "/"}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Put(ctx context.Context, key, content string) (*Record, error) {
	return p.inner.Put(ctx, p.prefix+key, content)
}

func (p *prefixed) Get(ctx context.Context, key string) (*Record, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Exists(ctx context.Context, key string) (bool, error) {
	return p.inner.Exists(ctx, p.prefix+key)
}

func (p *prefixed) MarkPending(ctx context.Context, key string) error {
	return p.inner.MarkPending(ctx, p.prefix+key)
}

func (p *prefixed) Pending(ctx context.Context, key string) (bool, error) {
	return p.inner.Pending(ctx, p.prefix+key)
}
