package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }
func newClock() *fakeClock { return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)} }

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 is now the least recently used
	c.Set("key4", "value4")

	tests := []struct {
		key   string
		found bool
	}{
		{"key1", true},
		{"key2", false},
		{"key3", true},
		{"key4", true},
	}
	for _, tt := range tests {
		if _, found := c.Get(tt.key); found != tt.found {
			t.Errorf("Get(%q) found = %v, want %v", tt.key, found, tt.found)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string](100, time.Minute).WithClock(clock.now)

	c.Set("key1", "value1")
	if v, found := c.Get("key1"); !found || v != "value1" {
		t.Fatalf("key1 should exist immediately")
	}

	clock.advance(time.Minute + time.Second)
	if _, found := c.Get("key1"); found {
		t.Fatalf("key1 should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 || c.Size() != 1 {
		t.Fatalf("overwrite: got %d size %d", v, c.Size())
	}
	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Fatalf("a should be deleted")
	}
}

func TestLRUCacheDisabled(t *testing.T) {
	c := NewLRUCache[string](0, time.Hour)
	c.Set("k", "v")
	if _, found := c.Get("k"); found {
		t.Fatalf("zero-size cache must not store")
	}
}

func TestManagerCleanAll(t *testing.T) {
	clock := newClock()
	a := NewLRUCache[string](10, time.Minute).WithClock(clock.now)
	b := NewLRUCache[int](10, time.Hour).WithClock(clock.now)
	a.Set("k1", "v")
	a.Set("k2", "v")
	b.Set("k3", 1)

	m := NewManager()
	m.Register(a)
	m.Register(b)

	clock.advance(2 * time.Minute)
	if n := m.CleanAll(); n != 2 {
		t.Fatalf("CleanAll() = %d, want 2", n)
	}
	if b.Size() != 1 {
		t.Fatalf("unexpired entry removed")
	}

	m.StartCleanup(context.Background(), time.Hour)
	m.Stop()
	m.Stop()
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[string](1000, time.Hour)
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("bench-key", "value")
		} else {
			c.Get("bench-key")
		}
	}
}
