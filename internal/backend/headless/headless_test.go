package headless_test

import (
	"errors"
	"testing"
	"time"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/backend/headless"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/shm/shmimage"
)

type sink struct {
	presented int
}

func (s *sink) Key(uint32, uint32, bool)                                      {}
func (s *sink) PointerMotion(uint32, float64, float64)                        {}
func (s *sink) PointerMotionAbsolute(uint32, backend.Display, float64, float64) {}
func (s *sink) PointerButton(uint32, uint32, bool)                            {}
func (s *sink) PointerAxis(uint32, uint32, float64, int32)                    {}
func (s *sink) Frame()                                                        {}
func (s *sink) Presented(backend.Display, time.Time)                          { s.presented++ }
func (s *sink) Resized(backend.Display)                                       {}
func (s *sink) Closed(error)                                                  {}

func TestFlip(t *testing.T) {
	l, err := loop.New()
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	b := headless.New(output.Mode{Width: 8, Height: 4, RefreshMHz: 60000})
	var s sink
	if err := b.Start(l, &s); err != nil {
		t.Fatal(err)
	}
	d := b.Display(0)

	for frame := range 3 {
		img, age, err := d.Buffer()
		if err != nil {
			t.Fatal(err)
		}
		if frame < 2 && age != 0 {
			t.Errorf("frame %v: age = %v", frame, age)
		}
		if frame == 2 && age != 2 {
			t.Errorf("frame %v: age = %v", frame, age)
		}
		if img.Rect.Dx() != 8 || img.Rect.Dy() != 4 {
			t.Fatalf("buffer bounds = %v", img.Rect)
		}
		img.Set(0, 0, shmimage.NewARGB8888Color(uint8(frame+1), 0, 0, 0xFF))

		if err := d.Flip(); err != nil {
			t.Fatal(err)
		}
		if err := d.Flip(); !errors.Is(err, output.ErrFlipPending) {
			t.Fatalf("second flip: %v", err)
		}
		l.Dispatch(0)

		if s.presented != frame+1 {
			t.Fatalf("presented %v times after frame %v", s.presented, frame)
		}
		if got := d.Front().ARGB8888At(0, 0); got != shmimage.NewARGB8888Color(uint8(frame+1), 0, 0, 0xFF) {
			t.Errorf("front buffer holds %#08x", uint32(got))
		}
	}

	snap := d.Snapshot()
	if snap.Bounds() != d.Front().Rect {
		t.Errorf("snapshot bounds = %v", snap.Bounds())
	}
}

func TestSetMode(t *testing.T) {
	b := headless.New()
	d := b.Display(0)
	if d.Output().Mode != headless.DefaultMode {
		t.Fatalf("mode = %v", d.Output().Mode)
	}

	m := output.Mode{Width: 100, Height: 50, RefreshMHz: 30000}
	if err := d.SetMode(m); err != nil {
		t.Fatal(err)
	}
	img, _, _ := d.Buffer()
	if img.Rect.Dx() != 100 || img.Rect.Dy() != 50 {
		t.Fatalf("buffer bounds = %v", img.Rect)
	}
}
