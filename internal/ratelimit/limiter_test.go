package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestMemoryWindowBoundary(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMemory(3, time.Second)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !m.Allow(ctx, "c1") {
			t.Fatalf("action %d should be allowed", i+1)
		}
	}
	if m.Allow(ctx, "c1") {
		t.Fatalf("4th action in window should be rejected")
	}

	// a different id has its own window
	if !m.Allow(ctx, "c2") {
		t.Fatalf("other id should not share the window")
	}

	// window rollover resets the count
	now = now.Add(time.Second + time.Millisecond)
	if !m.Allow(ctx, "c1") {
		t.Fatalf("new window should allow again")
	}
}

func TestMemoryForget(t *testing.T) {
	m := NewMemory(1, time.Minute)
	ctx := context.Background()

	if !m.Allow(ctx, "c1") {
		t.Fatalf("first action should pass")
	}
	if m.Allow(ctx, "c1") {
		t.Fatalf("second action should be rejected")
	}
	m.Forget(ctx, "c1")
	if !m.Allow(ctx, "c1") {
		t.Fatalf("forget should reset the counter")
	}
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	url := fmt.Sprintf("redis://%s/0", mr.Addr())
	r, err := NewRedis(url, 2, time.Second)
	if err != nil {
		t.Fatalf("ratelimit.NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisLimitAndForget(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if !r.Allow(ctx, "c1") || !r.Allow(ctx, "c1") {
		t.Fatalf("first two actions should pass")
	}
	if r.Allow(ctx, "c1") {
		t.Fatalf("third action should be rejected")
	}

	r.Forget(ctx, "c1")
	if !r.Allow(ctx, "c1") {
		t.Fatalf("forget should clear the counter")
	}
}
