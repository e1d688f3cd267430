package evdev

import (
	"fmt"
	"slices"
	"testing"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/pointer"
)

func setBits(n int, set ...int) bits {
	b := make(bits, n/8+1)
	for _, i := range set {
		b[i/8] |= 1 << (i % 8)
	}
	return b
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   bits
		key  bits
		rel  bits
		want Capability
	}{
		{
			name: "keyboard",
			ev:   setBits(31, evSyn, evKey),
			key:  setBits(keyMax, keyA, keySpace),
			rel:  setBits(relMax),
			want: Keyboard,
		},
		{
			name: "mouse",
			ev:   setBits(31, evSyn, evKey, evRel),
			key:  setBits(keyMax, int(pointer.ButtonLeft), int(pointer.ButtonRight)),
			rel:  setBits(relMax, relX, relY, relWheel),
			want: Pointer,
		},
		{
			name: "power button",
			ev:   setBits(31, evSyn, evKey),
			key:  setBits(keyMax, 116),
			rel:  setBits(relMax),
			want: 0,
		},
		{
			name: "wireless combo",
			ev:   setBits(31, evSyn, evKey, evRel),
			key:  setBits(keyMax, keyA, keySpace, int(pointer.ButtonLeft)),
			rel:  setBits(relMax, relX, relY),
			want: Keyboard | Pointer,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := classify(test.ev, test.key, test.rel); got != test.want {
				t.Errorf("got %v, want %v", got, test.want)
			}
		})
	}
}

type recorder struct {
	backend.Sink
	log []string
}

func (r *recorder) Key(_ uint32, code uint32, pressed bool) {
	r.log = append(r.log, fmt.Sprintf("key %v %v", code, pressed))
}

func (r *recorder) PointerMotion(_ uint32, dx, dy float64) {
	r.log = append(r.log, fmt.Sprintf("motion %v %v", dx, dy))
}

func (r *recorder) PointerButton(_ uint32, button uint32, pressed bool) {
	r.log = append(r.log, fmt.Sprintf("button %v %v", pointer.Button(button), pressed))
}

func (r *recorder) PointerAxis(_ uint32, axis uint32, value float64, discrete int32) {
	r.log = append(r.log, fmt.Sprintf("axis %v %v %v", pointer.Axis(axis), value, discrete))
}

func (r *recorder) Frame() {
	r.log = append(r.log, "frame")
}

func TestHandle(t *testing.T) {
	var r recorder
	b := Backend{sink: &r}
	d := Device{}

	for _, ev := range []event{
		{Type: evKey, Code: keyA, Value: 1},
		{Type: evKey, Code: keyA, Value: 2},
		{Type: evSyn, Code: synReport},
		{Type: evRel, Code: relX, Value: 3},
		{Type: evRel, Code: relY, Value: -2},
		{Type: evKey, Code: uint16(pointer.ButtonLeft), Value: 1},
		{Type: evSyn, Code: synReport},
		{Type: evRel, Code: relWheel, Value: 1},
		{Type: evSyn, Code: synReport},
		{Type: evKey, Code: keyA, Value: 0},
	} {
		b.handle(&d, &ev)
	}

	want := []string{
		"key 30 true",
		"frame",
		"button left true",
		"motion 3 -2",
		"frame",
		"axis vertical -15 -1",
		"frame",
		"key 30 false",
	}
	if !slices.Equal(r.log, want) {
		t.Errorf("got %q\nwant %q", r.log, want)
	}
}

func TestHandlePaused(t *testing.T) {
	var r recorder
	b := Backend{sink: &r}
	d := Device{}

	feed := func(evs ...event) {
		for _, ev := range evs {
			b.handle(&d, &ev)
		}
	}

	b.Pause()
	feed(
		event{Type: evKey, Code: keyA, Value: 1},
		event{Type: evSyn, Code: synReport},
	)
	if len(r.log) != 0 {
		t.Fatalf("paused backend delivered %q", r.log)
	}

	b.Resume()
	feed(
		event{Type: evKey, Code: keyA, Value: 0},
		event{Type: evSyn, Code: synReport},
	)
	want := []string{"key 30 false", "frame"}
	if !slices.Equal(r.log, want) {
		t.Errorf("got %q\nwant %q", r.log, want)
	}
}
