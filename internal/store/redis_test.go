package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ddp-client/internal/config"
)

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	err    error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := newRedis(fake, "ddp:resume:", time.Hour)

	if err := r.Set(ctx, "wss://example.com/websocket", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	key := "ddp:resume:wss://example.com/websocket"
	if fake.data[key] != "abc" {
		t.Errorf("stored value = %q, want %q", fake.data[key], "abc")
	}
	if fake.ttls[key] != time.Hour {
		t.Errorf("stored ttl = %v, want %v", fake.ttls[key], time.Hour)
	}

	got, err := r.Get(ctx, "wss://example.com/websocket")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "abc" {
		t.Errorf("Get() = %q, want %q", got, "abc")
	}
}

func TestRedis_NotFound(t *testing.T) {
	r := newRedis(newFakeRedis(), "", 0)

	if _, err := r.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRedis_Del(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := newRedis(fake, "p:", 0)

	_ = r.Set(ctx, "k", "v")
	if err := r.Del(ctx, "k"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if _, ok := fake.data["p:k"]; ok {
		t.Error("key still present after Del")
	}
}

func TestRedis_ErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	r := newRedis(fake, "", 0)

	if _, err := r.Get(ctx, "k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want wrapped connection error", err)
	}
	if err := r.Set(ctx, "k", "v"); !errors.Is(err, fake.err) {
		t.Errorf("Set() error = %v, want %v", err, fake.err)
	}
	if err := r.Del(ctx, "k"); !errors.Is(err, fake.err) {
		t.Errorf("Del() error = %v, want %v", err, fake.err)
	}
}

func TestRedis_Close(t *testing.T) {
	fake := newFakeRedis()
	r := newRedis(fake, "", 0)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("client not closed")
	}
}

func TestOpen_RedisBadURL(t *testing.T) {
	cfg := configFor("redis")
	cfg.Redis.URL = "not-a-url"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("Open() with bad redis url expected error, got nil")
	}
}

func configFor(driver string) config.StorageConfig {
	return config.StorageConfig{Driver: driver, KeyPrefix: config.DefaultKeyPrefix}
}
