package output_test

import (
	"errors"
	"image"
	"testing"
	"time"

	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want *output.ModeSpec
		err  bool
	}{
		{in: "auto"},
		{in: ""},
		{in: "1920x1080", want: &output.ModeSpec{Width: 1920, Height: 1080}},
		{in: "2560x1440@144", want: &output.ModeSpec{Width: 2560, Height: 1440, Refresh: 144}},
		{in: "1920x1080@59.94Hz", want: &output.ModeSpec{Width: 1920, Height: 1080, Refresh: 60}},
		{in: "1920", err: true},
		{in: "0x1080", err: true},
		{in: "1920x1080@fast", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := output.ParseMode(test.in)
			if test.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if (got == nil) != (test.want == nil) || (got != nil && *got != *test.want) {
				t.Fatalf("got %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestSelectMode(t *testing.T) {
	modes := []output.Mode{
		{Width: 1920, Height: 1080, RefreshMHz: 60000, Preferred: true},
		{Width: 1920, Height: 1080, RefreshMHz: 144000},
		{Width: 2560, Height: 1440, RefreshMHz: 60000},
		{Width: 1280, Height: 720, RefreshMHz: 75000},
	}
	noPreferred := []output.Mode{
		{Width: 1280, Height: 720, RefreshMHz: 60000},
		{Width: 1920, Height: 1080, RefreshMHz: 50000},
		{Width: 1920, Height: 1080, RefreshMHz: 60000},
	}

	tests := []struct {
		name     string
		modes    []output.Mode
		override *output.ModeSpec
		want     output.Mode
		ok       bool
	}{
		{"Preferred", modes, nil, modes[1], true},
		{"Override", modes, &output.ModeSpec{Width: 1280, Height: 720}, modes[3], true},
		{"OverrideRefresh", modes, &output.ModeSpec{Width: 1920, Height: 1080, Refresh: 60}, modes[0], true},
		{"OverrideMissing", modes, &output.ModeSpec{Width: 800, Height: 600}, modes[1], true},
		{"Largest", noPreferred, nil, noPreferred[2], true},
		{"Empty", nil, nil, output.Mode{}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := output.SelectMode(test.modes, test.override)
			if got != test.want || ok != test.ok {
				t.Fatalf("got %v, %v, want %v, %v", got, ok, test.want, test.ok)
			}
		})
	}
}

func TestPresentInFlight(t *testing.T) {
	out := output.Output{Name: "test", Mode: output.Mode{Width: 100, Height: 100, RefreshMHz: 60000}}

	err := out.Present(func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	err = out.Present(func() error { t.Fatal("flipped twice"); return nil })
	if !errors.Is(err, output.ErrFlipPending) {
		t.Fatalf("expected ErrFlipPending, got %v", err)
	}

	out.Presented(time.Now())
	if out.InFlight() || out.Frames() != 1 {
		t.Fatal("presented frame not recorded")
	}

	flipErr := errors.New("flip failed")
	err = out.Present(func() error { return flipErr })
	if !errors.Is(err, flipErr) || out.InFlight() {
		t.Fatalf("failed flip left output in flight: %v", err)
	}
}

func TestUsableArea(t *testing.T) {
	out := output.Output{Mode: output.Mode{Width: 1920, Height: 1080}}
	if out.UsableArea() != image.Rect(0, 0, 1920, 1080) {
		t.Fatalf("default usable area = %v", out.UsableArea())
	}
	out.SetUsableArea(image.Rect(0, 30, 2000, 1080))
	if out.UsableArea() != image.Rect(0, 30, 1920, 1080) {
		t.Fatalf("usable area = %v", out.UsableArea())
	}
}

func TestScheduler(t *testing.T) {
	l, err := loop.New()
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	out := output.Output{Name: "test", Mode: output.Mode{Width: 100, Height: 100, RefreshMHz: 60000}}
	var renders int
	var s *output.Scheduler
	s, err = output.NewScheduler(l, &out, func() {
		renders++
		err := out.Present(func() error { return nil })
		if err != nil {
			t.Error(err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Schedule()
	s.Schedule()
	l.Dispatch(0)
	if renders != 1 {
		t.Fatalf("coalesced schedule rendered %v times", renders)
	}

	s.Schedule()
	l.Dispatch(0)
	if renders != 1 || !s.Pending() {
		t.Fatal("rendered while a frame was in flight")
	}

	s.Presented(time.Now())
	l.Dispatch(0)
	if renders != 2 {
		t.Fatalf("pending frame not rendered after presentation: %v", renders)
	}
}

func TestSchedulerVRR(t *testing.T) {
	l, err := loop.New()
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	out := output.Output{
		Name: "test",
		Mode: output.Mode{Width: 100, Height: 100, RefreshMHz: 60000, VRRMin: 10000, VRRMax: 20000},
		VRR:  true,
	}
	var renders int
	s, err := output.NewScheduler(l, &out, func() { renders++ })
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	out.Presented(time.Now())
	s.Schedule()
	l.Dispatch(0)
	if renders != 0 {
		t.Fatal("rendered before the minimum interval")
	}

	deadline := time.Now().Add(time.Second)
	for renders == 0 && time.Now().Before(deadline) {
		l.Dispatch(100 * time.Millisecond)
	}
	if renders != 1 {
		t.Fatalf("timer did not render: %v", renders)
	}
}
