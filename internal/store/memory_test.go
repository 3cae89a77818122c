package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "wss://a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := m.Set(ctx, "wss://a", "session-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := m.Set(ctx, "wss://a", "session-2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := m.Get(ctx, "wss://a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "session-2" {
		t.Errorf("Get() = %q, want %q", got, "session-2")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	if err := m.Del(ctx, "wss://a"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if err := m.Del(ctx, "wss://a"); err != nil {
		t.Errorf("Del() of missing key error = %v, want nil", err)
	}
	if _, err := m.Get(ctx, "wss://a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Del error = %v, want ErrNotFound", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr error
	}{
		{name: "default", driver: ""},
		{name: "memory", driver: "memory"},
		{name: "unknown", driver: "etcd", wantErr: ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configFor(tt.driver)
			b, err := Open(context.Background(), cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if _, ok := b.(*Memory); !ok {
				t.Errorf("Open() = %T, want *Memory", b)
			}
			if err := b.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}
