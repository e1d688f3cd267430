package objstore_test

import (
	"testing"

	"deedles.dev/wlt/internal/objstore"
)

func TestStore(t *testing.T) {
	s := objstore.New[string](2)

	a := s.Add("a")
	b := s.Add("b")
	if a != 2 || b != 3 {
		t.Fatalf("ids = %v, %v", a, b)
	}
	if v, ok := s.Get(a); !ok || v != "a" {
		t.Fatalf("Get(%v) = %q, %v", a, v, ok)
	}

	if _, ok := s.Delete(a); !ok {
		t.Fatal("delete failed")
	}
	if _, ok := s.Get(a); ok {
		t.Fatal("deleted object still present")
	}
	if c := s.Add("c"); c != a {
		t.Errorf("freed id not reused: got %v", c)
	}

	s.Set(0xFF000000, "server")
	if s.Len() != 3 {
		t.Errorf("len = %v", s.Len())
	}
	s.Delete(0xFF000000)
	if d := s.Add("d"); d != 4 {
		t.Errorf("server id reused: got %v", d)
	}
}
