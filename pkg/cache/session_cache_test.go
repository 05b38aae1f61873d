package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/angie-labs/angiehost/pkg/models"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := NewSessionCache(4, time.Minute)
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleModel, Content: "hello"},
	}
	c.Put("s1", history)

	got, ok := c.Get("s1")
	if !ok || len(got) != 2 || got[1].Content != "hello" {
		t.Fatalf("round trip failed: ok=%v got=%#v", ok, got)
	}

	// The cached copy must not alias the caller's slice.
	history[1].Content = "mutated"
	got, _ = c.Get("s1")
	if got[1].Content != "hello" {
		t.Fatalf("cache aliased caller slice: %#v", got)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewSessionCache(2, time.Minute)
	c.Put("a", []models.Message{{Role: models.RoleUser, Content: "a"}})
	c.Put("b", []models.Message{{Role: models.RoleUser, Content: "b"}})

	// Touch "a" so "b" is oldest.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing before eviction")
	}
	c.Put("c", []models.Message{{Role: models.RoleUser, Content: "c"}})

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, id := range []string{"a", "c"} {
		if _, ok := c.Get(id); !ok {
			t.Fatalf("%s should have survived", id)
		}
	}
}

func TestExpiry(t *testing.T) {
	c := NewSessionCache(4, 10*time.Millisecond)
	c.Put("s", []models.Message{{Role: models.RoleUser, Content: "x"}})

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("s"); ok {
		t.Fatal("expired session still served")
	}
	if c.Len() != 0 {
		t.Fatalf("expired session not dropped, len=%d", c.Len())
	}
}

func TestLenAndClear(t *testing.T) {
	c := NewSessionCache(8, time.Minute)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("s%d", i), nil)
	}
	if c.Len() != 5 {
		t.Fatalf("len = %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("clear left %d sessions", c.Len())
	}
}
