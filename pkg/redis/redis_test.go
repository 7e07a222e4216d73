package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOptions_ParsesURL(t *testing.T) {
	opts, err := Options(Config{URL: "redis://:pw@localhost:6380/2", DialTimeout: time.Second, PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Errorf("expected localhost:6380, got %s", opts.Addr)
	}
	if opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("unexpected db/password: %d/%s", opts.DB, opts.Password)
	}
	if opts.DialTimeout != time.Second || opts.PoolSize != 7 {
		t.Errorf("overrides not applied: %+v", opts)
	}
}

func TestOptions_EmptyURL(t *testing.T) {
	if _, err := Options(Config{}); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestOptions_BadScheme(t *testing.T) {
	if _, err := Options(Config{URL: "http://localhost"}); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}

func TestNewRedis_Pings(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedis(context.Background(), Config{URL: "redis://" + mr.Addr() + "/0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rdb.Close()
	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("expected v, got %q", got)
	}
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(context.Background(), Config{URL: "redis://" + addr, DialTimeout: 100 * time.Millisecond}); err == nil {
		t.Error("expected a ping error")
	}
}
