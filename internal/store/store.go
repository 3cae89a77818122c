package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickgao/ddp-client/internal/config"
	"github.com/rickgao/ddp-client/internal/database"
)

// Errors
var (
	ErrNotFound      = errors.New("key not found")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store is a string key/value store for resumption tokens.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Del removes key. Removing a missing key is not an error.
	Del(ctx context.Context, key string) error
}

// Backend is a Store that holds external resources.
type Backend interface {
	Store
	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil

	case "redis":
		r, err := DialRedis(ctx, cfg.Redis.URL, cfg.KeyPrefix, cfg.Redis.TTL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return r, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		pg := NewPostgres(pool, cfg.Postgres.Table)
		pg.closeFn = pool.Close
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return pg, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
