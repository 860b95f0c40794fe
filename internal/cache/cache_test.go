package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("other", "v")
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to be dropped")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_ZeroSizeStoresNothing(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("zero-size cache should not store entries")
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("cache unusable after Purge: %v %v", v, ok)
	}
}

func TestResults_StaleStoreIsDropped(t *testing.T) {
	r := NewResults(10, time.Minute)
	f := core.Filters{Category: "Services"}
	res := core.Result{View: core.ViewExpenses, Metrics: core.Metrics{Count: 1, Total: decimal.NewFromInt(5)}}

	_, token, ok := r.Lookup(core.ViewExpenses, f)
	if ok {
		t.Fatal("unexpected hit on empty cache")
	}
	r.Invalidate()
	if r.Store(core.ViewExpenses, f, token, res) {
		t.Error("Store with a token issued before Invalidate should be rejected")
	}

	_, token, _ = r.Lookup(core.ViewExpenses, f)
	if !r.Store(core.ViewExpenses, f, token, res) {
		t.Fatal("Store with a fresh token should succeed")
	}
	got, _, ok := r.Lookup(core.ViewExpenses, core.Filters{Category: "  services "})
	if !ok || got.Metrics.Count != 1 {
		t.Errorf("Lookup with equivalent filters = %+v, %v", got, ok)
	}
	if _, _, ok := r.Lookup(core.ViewCombined, f); ok {
		t.Error("different view must not share an entry")
	}
}

func TestManager_Sweeps(t *testing.T) {
	c := NewLRUCache[int](10, time.Nanosecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Size() != 0 {
		t.Error("expected manager to sweep expired entries")
	}
}
