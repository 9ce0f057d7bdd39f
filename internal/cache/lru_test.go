package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", "primer")
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "primer" {
		t.Errorf("got %q, want %q", got, "primer")
	}
}

func TestLRUUpdateExistingKey(t *testing.T) {
	c := NewLRU[int](4, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)

	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
	if got, _ := c.Get("a"); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRU[string](4, time.Minute)

	c.Set("a", "x")
	c.Delete("a")
	c.Delete("never-existed")

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Delete")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[string](4, 10*time.Millisecond)

	c.Set("a", "x")
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after expired Get, want 0", c.Size())
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRU[int](8, 10*time.Millisecond)

	c.Set("old1", 1)
	c.Set("old2", 2)
	time.Sleep(30 * time.Millisecond)

	removed := c.CleanExpired()
	if removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after sweep, want 0", c.Size())
	}

	// A second sweep has nothing left to do.
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("second CleanExpired() = %d, want 0", removed)
	}
}

func TestLRUCleanExpiredKeepsFreshEntries(t *testing.T) {
	c := NewLRU[int](8, 40*time.Millisecond)

	c.Set("stale", 1)
	time.Sleep(60 * time.Millisecond)
	c.Set("fresh", 2)

	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive the sweep")
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts a

	c.Get("b")       // hit
	c.Get("c")       // hit
	c.Get("missing") // miss

	s := c.Stats()
	if s.Size != 2 {
		t.Errorf("Size = %d, want 2", s.Size)
	}
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[int](32, time.Minute)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("k%d", i%8)
				c.Set(key, g*1000+i)
				c.Get(key)
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if c.Size() > 8 {
		t.Errorf("size = %d, want at most 8 distinct keys", c.Size())
	}
}
