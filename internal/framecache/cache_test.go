package framecache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// tickClock returns a strictly increasing time on every call.
func tickClock() func() time.Time {
	var mu sync.Mutex
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func key(i int) string { return fmt.Sprintf("k%02d", i) }

func TestLookup_HitAndMiss(t *testing.T) {
	c := New(Config{Now: tickClock()})
	if _, ok := c.Lookup("nope"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Insert("a", "img-a")
	img, ok := c.Lookup("a")
	if !ok || img != "img-a" {
		t.Fatalf("lookup a: %q %v", img, ok)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestInsert_EvictsOldestFirst(t *testing.T) {
	const capacity = 5
	c := New(Config{Capacity: capacity, Threshold: 0.8, Batch: 1, Now: tickClock()})
	for i := 0; i <= capacity; i++ {
		c.Insert(key(i), "img")
	}
	if _, ok := c.Lookup(key(0)); ok {
		t.Fatalf("oldest entry should have been evicted first")
	}
	if _, ok := c.Lookup(key(1)); ok {
		t.Fatalf("second oldest entry should have been evicted next")
	}
	for i := 2; i <= capacity; i++ {
		if _, ok := c.Lookup(key(i)); !ok {
			t.Fatalf("entry %d missing", i)
		}
	}
	if c.Len() > capacity {
		t.Fatalf("len=%d over capacity", c.Len())
	}
}

func TestLookup_RefreshProtectsFromEviction(t *testing.T) {
	c := New(Config{Capacity: 5, Threshold: 0.8, Batch: 1, Now: tickClock()})
	for i := 0; i < 4; i++ {
		c.Insert(key(i), "img")
	}
	// touch the oldest so key(1) becomes the next candidate
	if _, ok := c.Lookup(key(0)); !ok {
		t.Fatalf("k00 missing")
	}
	c.Insert(key(4), "img")
	if _, ok := c.Lookup(key(0)); !ok {
		t.Fatalf("refreshed entry was evicted")
	}
	if _, ok := c.Lookup(key(1)); ok {
		t.Fatalf("k01 should have been evicted instead")
	}
}

func TestEviction_BatchAndThreshold(t *testing.T) {
	c := New(Config{Capacity: 100, Now: tickClock()})
	for i := 0; i < 81; i++ {
		c.Insert(fmt.Sprintf("p%03d", i), "img")
	}
	if c.Len() != 61 {
		t.Fatalf("len=%d, want 61 after one batch of 20", c.Len())
	}
	if c.Stats().Evicted != 20 {
		t.Fatalf("evicted=%d, want 20", c.Stats().Evicted)
	}
	for i := 0; i < 20; i++ {
		if _, ok := c.Lookup(fmt.Sprintf("p%03d", i)); ok {
			t.Fatalf("p%03d should have been evicted", i)
		}
	}
}

func TestEviction_TiesBreakByKey(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	run := func() []string {
		c := New(Config{Capacity: 4, Threshold: 0.5, Batch: 1, Now: func() time.Time { return fixed }})
		for _, k := range []string{"d", "b", "c", "a"} {
			c.Insert(k, "img")
		}
		var left []string
		for _, k := range []string{"a", "b", "c", "d"} {
			if _, ok := c.Lookup(k); ok {
				left = append(left, k)
			}
		}
		return left
	}
	first := run()
	if len(first) != 2 || first[0] != "c" || first[1] != "d" {
		t.Fatalf("unexpected survivors: %v", first)
	}
	if second := run(); fmt.Sprint(second) != fmt.Sprint(first) {
		t.Fatalf("eviction not deterministic: %v vs %v", first, second)
	}
}

func TestInsert_OverwriteRefreshes(t *testing.T) {
	c := New(Config{Now: tickClock()})
	c.Insert("a", "v1")
	c.Insert("a", "v2")
	if img, _ := c.Lookup("a"); img != "v2" {
		t.Fatalf("got %q, want v2", img)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("a dragon") != Fingerprint("a dragon") {
		t.Fatalf("fingerprint not deterministic")
	}
	if Fingerprint("a dragon") == Fingerprint("a dragon ") {
		t.Fatalf("distinct prompts share a fingerprint")
	}
	if len(Fingerprint("")) != 64 {
		t.Fatalf("expected hex sha256")
	}
}

func TestConcurrentInsertStaysBounded(t *testing.T) {
	c := New(Config{Capacity: 10, Threshold: 0.8, Batch: 2})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Insert(fmt.Sprintf("%d-%d", g, i), "img")
				_, _ = c.Lookup(fmt.Sprintf("%d-%d", g, i-1))
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Fatalf("len=%d above threshold", c.Len())
	}
}
