package lock

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration, opts ...RedisOption) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	opts = append([]RedisOption{WithPollInterval(5 * time.Millisecond), WithPrefix("test:")}, opts...)
	return NewRedisLocker(rdb, ttl, opts...), mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "doc|2025-06-01|09:00", 5*time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected one holder at a time, saw %d", maxInside)
	}
}

func TestRedisLocker_TimeoutWhileHeld(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	start := time.Now()
	_, err = l.Acquire(ctx, "k", 60*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("gave up after %s, before the wait elapsed", elapsed)
	}
}

func TestRedisLocker_OtherKeysIndependent(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "a", time.Second)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer release()

	r, err := l.Acquire(ctx, "b", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("a different key must not wait: %v", err)
	}
	r()
}

func TestRedisLocker_WaiterGetsLockAfterRelease(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()

	r, err := l.Acquire(ctx, "k", 2*time.Second)
	if err != nil {
		t.Fatalf("expected the waiter to get the lock, got %v", err)
	}
	r()
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewHolder(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "k", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("expected the lapsed key to be free, got %v", err)
	}
	token, _ := mr.Get("test:k")

	stale()
	if got, err := mr.Get("test:k"); err != nil || got != token {
		t.Fatalf("the lapsed holder freed the new holder's lock (value %q, err %v)", got, err)
	}
	if _, err := l.Acquire(ctx, "k", 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected the key to stay held, got %v", err)
	}

	fresh()
	if mr.Exists("test:k") {
		t.Error("expected the holder's release to delete the key")
	}
}

func TestRedisLocker_ReleaseTwice(t *testing.T) {
	l, mr := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()

	first, err := l.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	first()

	second, err := l.Acquire(ctx, "k", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("expected the lock to be free, got %v", err)
	}
	first()
	if !mr.Exists("test:k") {
		t.Fatal("a repeated release freed the next holder's lock")
	}
	second()
}

func TestRedisLocker_KeyCarriesTTL(t *testing.T) {
	l, mr := newTestRedisLocker(t, 3*time.Second)

	release, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()
	if ttl := mr.TTL("test:k"); ttl <= 0 || ttl > 3*time.Second {
		t.Errorf("expected a ttl up to 3s, got %s", ttl)
	}
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)

	release, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", 5*time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the context deadline, got %v", err)
	}
}

func TestRedisLocker_ReleaseFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	l, mr := newTestRedisLocker(t, 10*time.Second, WithLogger(zerolog.New(&buf)))

	release, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.Close()
	release()

	out := buf.String()
	if !strings.Contains(out, "lock release failed") || !strings.Contains(out, "test:k") {
		t.Errorf("expected the failed release to be logged, got %q", out)
	}
}
