package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 1, 3, 3, 3},
		{"exceeding burst blocks", 1, 2, 5, 2},
		{"single token", 1, 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				ok, err := rl.Allow(context.Background(), "caller")
				if err != nil {
					t.Fatalf("Allow() error = %v", err)
				}
				if ok {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.AllowKey("key1")
	if rl.AllowKey("key1") {
		t.Error("key1 should be exhausted")
	}
	if !rl.AllowKey("key2") {
		t.Error("key2 should be independent and allowed")
	}
}

func TestKeyedRateLimiter_RefillsOverTime(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	rl := newKeyed(1, 1, clock)

	if !rl.AllowKey("a") {
		t.Fatal("first call should pass")
	}
	if rl.AllowKey("a") {
		t.Fatal("second call in the same instant should be limited")
	}

	mu.Lock()
	now = now.Add(time.Second)
	mu.Unlock()

	if !rl.AllowKey("a") {
		t.Error("token should have refilled after one second")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newKeyed(1, 1, func() time.Time { return now })

	rl.AllowKey("old")
	now = now.Add(idleTTL + time.Second)
	rl.AllowKey("fresh")

	rl.evictIdle()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	rl.mu.Lock()
	_, stillThere := rl.limiters["old"]
	rl.mu.Unlock()
	if stillThere {
		t.Error("idle key should have been evicted")
	}
}

func TestPerMinute(t *testing.T) {
	rl := PerMinute(60, 2)
	defer rl.Stop()

	if rl.limit != 1 {
		t.Errorf("limit = %v, want 1/s", rl.limit)
	}
	if rl.burst != 2 {
		t.Errorf("burst = %d, want 2", rl.burst)
	}
}
