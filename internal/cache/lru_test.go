package cache

import (
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("expected %s to be present", key)
		}
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k1", "v1")
	now = now.Add(30 * time.Second)
	c.Set("k2", "v2")

	now = now.Add(45 * time.Second) // k1 expired, k2 alive
	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected k1 to be expired")
	}
	if v, ok := c.Get("k2"); !ok || v != "v2" {
		t.Fatalf("Get(k2) = %q, %v", v, ok)
	}

	now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_OverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("Get(a) = %d, want 2", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
}

func TestManager_CleanNow(t *testing.T) {
	c := NewLRUCache[int](4, -time.Second) // every entry is born expired
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register("sessions", c)
	removed := m.CleanNow()
	if removed["sessions"] != 2 {
		t.Fatalf("CleanNow() = %v, want sessions:2", removed)
	}
	m.Stop()
}

func TestLRUCache_OnEvict(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](2, time.Minute)
	c.now = func() time.Time { return now }

	var evicted []string
	c.OnEvict(func(key string, data int) {
		evicted = append(evicted, key)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts a
	c.Set("b", 20)
	c.Delete("c")
	now = now.Add(2 * time.Minute)
	c.Get("b")

	want := []string{"a", "b", "c", "b"}
	if len(evicted) != len(want) {
		t.Fatalf("evicted = %v, want %v", evicted, want)
	}
	for i := range want {
		if evicted[i] != want[i] {
			t.Fatalf("evicted = %v, want %v", evicted, want)
		}
	}
}
