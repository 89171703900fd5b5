package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c := New(true, 1<<20, time.Minute)

	c.Set("thumb:1", []byte("abc"))
	got, ok := c.Get("thumb:1")
	if !ok || string(got) != "abc" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}

	c.Delete("thumb:1")
	if _, ok := c.Get("thumb:1"); ok {
		t.Fatal("Get() after Delete should miss")
	}

	st := c.Stats()
	if st.Items != 0 || st.UsedBytes != 0 || st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestExpiry(t *testing.T) {
	c := New(true, 1<<20, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v"))
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired item returned")
	}
	if c.Stats().UsedBytes != 0 {
		t.Error("expired item still accounted")
	}
}

func TestEvictionKeepsUsageBounded(t *testing.T) {
	c := New(true, 10*1024, time.Minute)
	payload := make([]byte, 1024)

	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), payload)
	}

	st := c.Stats()
	if st.UsedBytes > st.MaxBytes {
		t.Fatalf("UsedBytes %d exceeds MaxBytes %d", st.UsedBytes, st.MaxBytes)
	}
	if _, ok := c.Get("k49"); !ok {
		t.Error("most recent item should survive eviction")
	}
}

func TestOverwriteAccountsSize(t *testing.T) {
	c := New(true, 1<<20, time.Minute)
	c.Set("k", make([]byte, 100))
	c.Set("k", make([]byte, 40))
	if got := c.Stats().UsedBytes; got != 40 {
		t.Errorf("UsedBytes = %d, want 40", got)
	}
}

func TestOversizedItemsAreSkipped(t *testing.T) {
	c := New(true, 4<<20, time.Minute)
	c.Set("big", make([]byte, MaxItemSize+1))
	if _, ok := c.Get("big"); ok {
		t.Fatal("oversized item should not be cached")
	}
}

func TestDisabledCache(t *testing.T) {
	c := New(false, 0, 0)
	c.Set("k", []byte("v"))
	if _, ok := c.Get("k"); ok {
		t.Fatal("disabled cache returned a value")
	}
}
