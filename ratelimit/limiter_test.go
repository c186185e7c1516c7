package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	l := NewLimiter(1, 2)

	if !l.Allow() {
		t.Fatal("first call within burst should be allowed")
	}
	if !l.Allow() {
		t.Fatal("second call within burst should be allowed")
	}
	if l.Allow() {
		t.Fatal("third immediate call should be denied")
	}
}

func TestWait_RespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should succeed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context error while waiting for a slow refill")
	}
}
