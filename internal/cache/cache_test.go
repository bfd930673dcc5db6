package cache

import (
	"testing"
	"time"
)

func TestGet_TTLBoundary(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewWithClock(func() time.Time { return now })

	const ttl = 10 * time.Second
	c.Set(Key("ev1", "validate", "ABC", "scan-in"), "result", ttl)

	now = now.Add(ttl - time.Millisecond)
	if v, ok := c.Get(Key("ev1", "validate", "ABC", "scan-in")); !ok || v != "result" {
		t.Fatalf("expected live entry just inside ttl, got %v ok=%v", v, ok)
	}

	now = now.Add(2 * time.Millisecond)
	if _, ok := c.Get(Key("ev1", "validate", "ABC", "scan-in")); ok {
		t.Fatal("expected expiry just past ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry must be pruned on read, len=%d", c.Len())
	}
}

func TestSet_NonPositiveTTLDisables(t *testing.T) {
	c := New()
	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Fatal("zero ttl must not store")
	}
}

func TestInvalidate_PrefixScoped(t *testing.T) {
	c := New()
	c.Set(Key("ev1", "guests", "list"), 1, time.Minute)
	c.Set(Key("ev1", "validate", "X"), 2, time.Minute)
	c.Set(Key("ev2", "guests", "list"), 3, time.Minute)

	c.Invalidate(Key("ev1"))

	if _, ok := c.Get(Key("ev1", "guests", "list")); ok {
		t.Fatal("ev1 entries should be gone")
	}
	if _, ok := c.Get(Key("ev2", "guests", "list")); !ok {
		t.Fatal("ev2 entry should survive")
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
}
