package cache

import (
	"testing"
	"time"
)

func TestMemoryBackend_PutThenGet(t *testing.T) {
	b := NewMemoryBackend(10)
	b.PutObj("https://origin.example/x", Entry{Body: []byte("hi"), Expires: time.Now().Add(time.Hour)})

	entry, ok := b.GetObj("https://origin.example/x")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(entry.Body) != "hi" {
		t.Errorf("Body = %q, want hi", entry.Body)
	}
}

func TestMemoryBackend_ExpiredEntryIsAMiss(t *testing.T) {
	b := NewMemoryBackend(10)
	b.PutObj("https://origin.example/x", Entry{Body: []byte("hi"), Expires: time.Now().Add(-time.Second)})

	if _, ok := b.GetObj("https://origin.example/x"); ok {
		t.Fatal("expected an expired entry to be a miss")
	}
}

func TestMemoryBackend_WithoutContentIsMissForGetObjButNotGetInfo(t *testing.T) {
	b := NewMemoryBackend(10)
	b.PutObj("https://origin.example/x", Entry{WithoutContent: true, Expires: time.Now().Add(time.Hour)})

	if _, ok := b.GetObj("https://origin.example/x"); ok {
		t.Fatal("a without_content entry must be a miss for GetObj")
	}
	if _, ok := b.GetInfo("https://origin.example/x"); !ok {
		t.Fatal("a without_content entry must still be visible to GetInfo")
	}
}

func TestMemoryBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	b := NewMemoryBackend(2)
	b.PutObj("a", Entry{Expires: time.Now().Add(time.Hour)})
	b.PutObj("b", Entry{Expires: time.Now().Add(time.Hour)})
	b.GetObj("a") // touch a so b becomes the LRU victim
	b.PutObj("c", Entry{Expires: time.Now().Add(time.Hour)})

	if _, ok := b.GetObj("b"); ok {
		t.Error("expected b to have been evicted as the least-recently-used entry")
	}
	if _, ok := b.GetObj("a"); !ok {
		t.Error("expected a to survive eviction since it was touched")
	}
}

func TestTTLForMIME_ImagesLongerThanHTML(t *testing.T) {
	if TTLForMIME("image/png") <= TTLForMIME("text/html") {
		t.Error("expected images to have a longer TTL than HTML")
	}
}

func TestMemoryBackend_Len(t *testing.T) {
	b := NewMemoryBackend(10)
	b.PutObj("a", Entry{Expires: time.Now().Add(time.Hour)})
	b.PutObj("b", Entry{Expires: time.Now().Add(time.Hour)})

	if got := b.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
