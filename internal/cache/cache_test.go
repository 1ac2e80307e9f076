package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"foodyar/backend/internal/domain"
)

func TestMemoryRoundTripsStructs(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	want := domain.AdviceResponse{Answer: "raise the latte price"}
	if err := c.Set(ctx, "advice:1", want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got domain.AdviceResponse
	ok, err := c.Get(ctx, "advice:1", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Answer != want.Answer {
		t.Fatalf("expected %q, got %q", want.Answer, got.Answer)
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	c := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(2 * time.Second)

	var got string
	if ok, _ := c.Get(ctx, "k", &got); ok {
		t.Fatalf("expected expired entry, got %q", got)
	}
}

func TestMemorySweepsExpiredKeysOnSet(t *testing.T) {
	c := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if err := c.Set(ctx, fmt.Sprintf("analytics:%d", i), i, time.Minute); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if err := c.Set(ctx, "pinned", "v", 0); err != nil {
		t.Fatalf("set pinned: %v", err)
	}
	now = now.Add(time.Hour)

	if err := c.Set(ctx, "fresh", "v", time.Minute); err != nil {
		t.Fatalf("set fresh: %v", err)
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("expected only the pinned and fresh entries to remain, got %d", got)
	}
	var got string
	if ok, _ := c.Get(ctx, "fresh", &got); !ok || got != "v" {
		t.Fatalf("expected fresh entry to survive the sweep, got ok=%v %q", ok, got)
	}
}

func TestNoopNeverHits(t *testing.T) {
	var got string
	_ = Noop{}.Set(context.Background(), "k", "v", time.Minute)
	if ok, err := (Noop{}).Get(context.Background(), "k", &got); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}
