package compositor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/config"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/render"
	"deedles.dev/wlt/wire"
)

type brokenBackend struct {
	start  error
	closed bool
}

func (b *brokenBackend) Name() string { return "broken" }
func (b *brokenBackend) Displays() []backend.Display { return nil }
func (b *brokenBackend) Start(*loop.Loop, backend.Sink) error { return b.start }
func (b *brokenBackend) Close() error {
	b.closed = true
	return nil
}

func TestNewFailureReleases(t *testing.T) {
	tests := []struct {
		name  string
		start error
	}{
		{name: "StartFails", start: errors.New("no device")},
		{name: "NoDisplays"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, err := loop.New()
			if err != nil {
				t.Fatal(err)
			}
			defer l.Close()

			lis, err := wire.Listen(filepath.Join(t.TempDir(), "wayland-test"))
			if err != nil {
				t.Fatal(err)
			}
			defer lis.Close()

			b := brokenBackend{start: test.start}
			s, err := New(Options{
				Config:   config.Default(),
				Loop:     l,
				Backend:  &b,
				Listener: lis,
				Renderer: render.Select(false),
			})
			if err == nil {
				s.Close()
				t.Fatal("New succeeded")
			}

			if !b.closed {
				t.Error("backend left open")
			}
			_, err = os.Stat(lis.Path())
			if !errors.Is(err, os.ErrNotExist) {
				t.Errorf("socket still present: %v", err)
			}
		})
	}
}

func TestExecTracksChildren(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	h := newHarness(t)
	err := h.state.exec("exec sleep 30")
	if err != nil {
		t.Fatal(err)
	}
	if n := h.state.children.Len(); n != 1 {
		t.Fatalf("tracking %v children", n)
	}

	h.state.children.Terminate(childGrace)

	deadline := time.Now().Add(5 * time.Second)
	for h.state.children.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("child still running")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
