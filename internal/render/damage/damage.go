// Package damage accumulates the parts of an output that need to be
// redrawn.
package damage

import (
	"image"

	"deedles.dev/wlt/internal/region"
)

// MaxRects is the number of rectangles tracked per frame before the
// whole output is considered damaged.
const MaxRects = 16

// historyLen is the number of previous frames remembered for buffer
// age.
const historyLen = 4

type frame struct {
	full  bool
	rects []image.Rectangle
}

func (f *frame) add(r image.Rectangle) {
	if f.full || r.Empty() {
		return
	}
	for _, c := range f.rects {
		if r.In(c) {
			return
		}
	}
	if len(f.rects) >= MaxRects {
		f.full = true
		f.rects = nil
		return
	}
	f.rects = append(f.rects, r)
}

// Tracker accumulates damage for one output between frames.
type Tracker struct {
	bounds  image.Rectangle
	cur     frame
	cursor  bool
	history []frame
}

// New returns a tracker for an output covering bounds. The first
// frame is fully damaged.
func New(bounds image.Rectangle) *Tracker {
	t := Tracker{bounds: bounds}
	t.cur.full = true
	return &t
}

// Resize changes the output bounds, damaging everything and
// forgetting the history.
func (t *Tracker) Resize(bounds image.Rectangle) {
	t.bounds = bounds
	t.history = nil
	t.AddFull()
}

func (t *Tracker) Bounds() image.Rectangle {
	return t.bounds
}

// Add damages r, clipped to the output.
func (t *Tracker) Add(r image.Rectangle) {
	r = r.Intersect(t.bounds)
	if r.Empty() {
		return
	}
	t.cur.add(r)
	t.cursor = false
}

// AddRegion damages every rectangle of reg.
func (t *Tracker) AddRegion(reg region.Region) {
	for _, r := range reg.Rects() {
		t.Add(r)
	}
}

// AddFull damages the whole output.
func (t *Tracker) AddFull() {
	t.cur.full = true
	t.cur.rects = nil
	t.cursor = false
}

// AddCursor damages the old and new positions of the cursor. If
// nothing else is damaged before the next frame, the frame is
// cursor-only.
func (t *Tracker) AddCursor(old, cur image.Rectangle) {
	onlyCursor := t.cursor || !t.Pending()
	t.cur.add(old.Intersect(t.bounds))
	t.cur.add(cur.Intersect(t.bounds))
	t.cursor = onlyCursor && t.Pending()
}

// Pending reports whether anything has been damaged since the last
// call to Commit.
func (t *Tracker) Pending() bool {
	return t.cur.full || len(t.cur.rects) > 0
}

// Full reports whether the whole output is damaged.
func (t *Tracker) Full() bool {
	return t.cur.full
}

// CursorOnly reports whether the only damage is from cursor movement.
func (t *Tracker) CursorOnly() bool {
	return t.cursor
}

// Rects returns the number of rectangles tracked for the current
// frame.
func (t *Tracker) Rects() int {
	return len(t.cur.rects)
}

// Region returns the area that must be repainted in a buffer whose
// contents are age frames old. An age of zero means the contents are
// unknown. An age of one is the previous frame.
func (t *Tracker) Region(age int) region.Region {
	full := region.Rect(t.bounds)
	if t.cur.full || age <= 0 || age-1 > len(t.history) {
		return full
	}

	var reg region.Region
	frames := append([]frame{t.cur}, t.history[:age-1]...)
	for _, f := range frames {
		if f.full {
			return full
		}
		for _, r := range f.rects {
			reg.Add(r)
		}
	}
	return reg
}

// Commit finishes the current frame and starts a new one.
func (t *Tracker) Commit() {
	t.history = append([]frame{t.cur}, t.history...)
	if len(t.history) > historyLen {
		t.history = t.history[:historyLen]
	}
	t.cur = frame{}
	t.cursor = false
}
