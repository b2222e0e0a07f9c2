// Package kvstore is the persisted key-value layer behind cooldowns and the scan cache.
// Every backend is last-write-wins with no cross-key transactions.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is an idempotent get/set/delete interface over string values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string // sqlite, memory, redis
	Path      string // sqlite file; empty means next to the binary
	RedisAddr string
	RedisDB   int
	Password  string
}

// Open creates the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return OpenSQLite(opts.Path)
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(opts.RedisAddr, opts.Password, opts.RedisDB), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
