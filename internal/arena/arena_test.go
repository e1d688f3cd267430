package arena_test

import (
	"testing"

	"deedles.dev/wlt/internal/arena"
)

func TestStaleHandle(t *testing.T) {
	var a arena.Arena[string]

	h1 := a.Insert("one")
	if v, ok := a.Get(h1); !ok || *v != "one" {
		t.Fatalf("Get(h1) = %v, %v", v, ok)
	}

	if _, ok := a.Remove(h1); !ok {
		t.Fatal("Remove(h1) failed")
	}
	if _, ok := a.Get(h1); ok {
		t.Fatal("removed handle still resolves")
	}

	h2 := a.Insert("two")
	if h1 == h2 {
		t.Fatalf("reused slot returned identical handle %v", h2)
	}
	if _, ok := a.Get(h1); ok {
		t.Fatal("stale handle resolves after slot reuse")
	}
	if v, ok := a.Get(h2); !ok || *v != "two" {
		t.Fatalf("Get(h2) = %v, %v", v, ok)
	}
	if _, ok := a.Remove(h1); ok {
		t.Fatal("Remove of stale handle succeeded")
	}
	if a.Len() != 1 {
		t.Fatalf("Len() = %v, want 1", a.Len())
	}
}

func TestZeroHandle(t *testing.T) {
	var a arena.Arena[int]
	a.Insert(3)

	var h arena.Handle
	if h.Valid() {
		t.Fatal("zero handle is valid")
	}
	if _, ok := a.Get(h); ok {
		t.Fatal("zero handle resolves")
	}
}

func TestAll(t *testing.T) {
	var a arena.Arena[int]
	hs := []arena.Handle{a.Insert(1), a.Insert(2), a.Insert(3)}
	a.Remove(hs[1])

	var sum int
	for h, v := range a.All() {
		if !a.Contains(h) {
			t.Errorf("All yielded dead handle %v", h)
		}
		sum += *v
	}
	if sum != 4 {
		t.Fatalf("sum = %v, want 4", sum)
	}
}
