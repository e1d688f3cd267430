package compositor

import (
	"fmt"
	"image"
	"slices"
	"testing"

	wl "deedles.dev/wlt/client"
	"deedles.dev/wlt/pointer"
)

// Linux evdev key codes.
const (
	keyA       = 30
	keyJ       = 36
	keyLeftAlt = 56
)

// keyboard binds a wl_keyboard and records its focus and key events.
func (c *testClient) keyboard() *[]string {
	c.h.t.Helper()

	var events []string
	kb := c.seat.GetKeyboard()
	kb.Listener = wl.KeyboardListener{
		Enter: func(serial, surface uint32, keys []uint32) {
			events = append(events, fmt.Sprintf("enter %v", surface))
		},
		Leave: func(serial, surface uint32) {
			events = append(events, fmt.Sprintf("leave %v", surface))
		},
		Key: func(serial, time, key, state uint32) {
			events = append(events, fmt.Sprintf("key %v %v", key, state))
		},
	}
	c.h.roundTrip(c)
	return &events
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func TestKeyRouting(t *testing.T) {
	type press struct {
		code uint32
		down bool
	}

	tests := []struct {
		name    string
		presses []press
		want    func(a, b uint32) []string
	}{
		{
			name:    "Forwarded",
			presses: []press{{keyA, true}, {keyA, false}},
			want: func(a, b uint32) []string {
				return []string{"key 30 1", "key 30 0"}
			},
		},
		{
			name:    "Binding",
			presses: []press{{keyLeftAlt, true}, {keyJ, true}, {keyJ, false}, {keyLeftAlt, false}},
			want: func(a, b uint32) []string {
				return []string{
					"key 56 1",
					fmt.Sprintf("leave %v", b),
					fmt.Sprintf("enter %v", a),
					"key 56 0",
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.connect()
			events := c.keyboard()
			a := c.mapWindow("a")
			b := c.mapWindow("b")
			*events = nil

			for _, p := range test.presses {
				h.state.Key(0, p.code, p.down)
				h.roundTrip(c)
			}

			want := test.want(a.surf.ID(), b.surf.ID())
			if !slices.Equal(*events, want) {
				t.Errorf("events = %q, want %q", *events, want)
			}
		})
	}
}

func TestClickFocus(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	events := c.keyboard()
	a := c.mapWindow("a")
	b := c.mapWindow("b")
	*events = nil

	pt := center(h.window("a").Geometry(h.state))
	h.state.PointerMotionAbsolute(0, h.backend.Display(0), float64(pt.X), float64(pt.Y))
	h.state.PointerButton(0, uint32(pointer.ButtonLeft), true)
	h.state.PointerButton(0, uint32(pointer.ButtonLeft), false)
	h.state.Frame()
	h.roundTrip(c)

	want := []string{
		fmt.Sprintf("leave %v", b.surf.ID()),
		fmt.Sprintf("enter %v", a.surf.ID()),
	}
	if !slices.Equal(*events, want) {
		t.Errorf("events = %q, want %q", *events, want)
	}
	if st := h.state.State(); st.FocusedWindow != "a" {
		t.Errorf("focused window = %q", st.FocusedWindow)
	}
}

func TestDestroyedSurfaceLosesFocus(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	events := c.keyboard()
	a := c.mapWindow("a")
	b := c.mapWindow("b")

	gone := h.window("b").surface
	pt := center(h.window("b").Geometry(h.state))
	h.state.PointerMotionAbsolute(0, h.backend.Display(0), float64(pt.X), float64(pt.Y))
	h.roundTrip(c)
	if h.state.seat.focus != gone {
		t.Fatal("b does not have keyboard focus")
	}
	*events = nil

	b.tl.Destroy()
	b.xs.Destroy()
	b.surf.Destroy()
	h.roundTrip(c)

	seat := &h.state.seat
	for name, ref := range map[string]bool{
		"keyboard focus": seat.focus == gone,
		"pointer focus":  seat.hover == gone,
		"cursor":         seat.cursor == gone,
	} {
		if ref {
			t.Errorf("%v still refers to the destroyed surface", name)
		}
	}

	h.state.Key(0, keyA, true)
	h.state.Key(0, keyA, false)
	h.roundTrip(c)

	want := []string{
		fmt.Sprintf("leave %v", b.surf.ID()),
		fmt.Sprintf("enter %v", a.surf.ID()),
		"key 30 1",
		"key 30 0",
	}
	if !slices.Equal(*events, want) {
		t.Errorf("events = %q, want %q", *events, want)
	}
}
