// Package render composites scenes into output buffers, either in
// software or with the GPU.
package render

import (
	"errors"
	"image"
	"image/color"

	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/shm/shmimage"
)

// ErrDeviceLost is returned by a backend whose device stopped working.
var ErrDeviceLost = errors.New("render device lost")

// Backend renders scenes.
type Backend interface {
	Name() string

	// BeginFrame acquires the next buffer of screen to render into.
	BeginFrame(screen Screen) (*Target, error)

	// Composite draws scene into t.
	Composite(scene *Scene, t *Target) error

	// Present submits t for display on out. It fails with
	// output.ErrFlipPending if the previous frame has not yet been
	// displayed.
	Present(out *output.Output, t *Target) error

	Close() error
}

// Screen is the presentation surface of one output, supplied by the
// display backend.
type Screen interface {
	// Buffer returns the buffer to draw the next frame into and its
	// age in frames, or zero if the age is unknown.
	Buffer() (*shmimage.ARGB8888, int, error)

	// Flip queues the buffer last returned by Buffer for display.
	// Completion is reported asynchronously.
	Flip() error
}

// Target is a buffer that a frame is being rendered into.
type Target struct {
	Image *shmimage.ARGB8888
	Age   int

	screen Screen
}

// NewTarget acquires a buffer from screen.
func NewTarget(screen Screen) (*Target, error) {
	img, age, err := screen.Buffer()
	if err != nil {
		return nil, err
	}
	return &Target{Image: img, Age: age, screen: screen}, nil
}

func present(out *output.Output, t *Target) error {
	return out.Present(t.screen.Flip)
}

// Source is client pixel data that surface elements sample from.
type Source interface {
	Size() image.Point
	Format() shm.Format

	// Serial changes whenever the contents of the source do.
	Serial() uint64

	// Read calls f with the pixel data. The data is only valid during
	// the call. An error means that the data could not be accessed.
	Read(f func(pix []byte, stride int)) error
}

// ElementKind is the type of an Element.
type ElementKind int

const (
	Solid ElementKind = iota
	Surface
	Picture
)

// Element is one thing drawn in a scene.
type Element struct {
	Kind ElementKind

	// Rect is the destination of the element in output coordinates.
	Rect image.Rectangle

	// Color is the fill of Solid elements. It is not premultiplied.
	Color color.NRGBA

	// Source and Crop are the buffer and the area of it drawn by
	// Surface elements. An empty crop means the whole buffer.
	Source Source
	Crop   image.Rectangle

	// Image is drawn by Picture elements. It should be premultiplied.
	Image image.Image

	// Opacity scales the alpha of Surface and Picture elements. Zero
	// means fully opaque.
	Opacity float64

	// Opaque is the part of Rect known to be fully opaque, in output
	// coordinates.
	Opaque region.Region
}

func (e *Element) opacity() float64 {
	if e.Opacity <= 0 || e.Opacity > 1 {
		return 1
	}
	return e.Opacity
}

func (e *Element) crop() image.Rectangle {
	if e.Crop.Empty() && e.Source != nil {
		return image.Rectangle{Max: e.Source.Size()}
	}
	return e.Crop
}

// opaqueRegion returns the part of the element that hides everything
// below it.
func (e *Element) opaqueRegion() region.Region {
	if e.opacity() < 1 {
		return region.Region{}
	}
	switch e.Kind {
	case Solid:
		if e.Color.A == 0xFF {
			return region.Rect(e.Rect)
		}
	case Surface:
		if e.Source != nil && e.Source.Format().Opaque() {
			return region.Rect(e.Rect)
		}
	}
	return e.Opaque.Intersect(e.Rect)
}

// Scene is everything to draw on one output for one frame.
type Scene struct {
	// Elements are drawn back to front.
	Elements []Element

	// Cursor, if not nil, is drawn above everything else.
	Cursor *Element

	// Background fills everything that no element covers.
	Background color.NRGBA

	// Damage is the area to repaint, in output coordinates.
	Damage region.Region
}

func (s *Scene) all() []Element {
	if s.Cursor == nil {
		return s.Elements
	}
	return append(s.Elements[:len(s.Elements):len(s.Elements)], *s.Cursor)
}

// visible computes the part of each element that needs to be drawn:
// the damaged part that isn't hidden by opaque elements above it. It
// also returns the damaged area that no opaque element covers.
func visible(elems []Element, damage region.Region) (vis []region.Region, background region.Region) {
	vis = make([]region.Region, len(elems))

	var covered region.Region
	for i := len(elems) - 1; i >= 0; i-- {
		e := &elems[i]
		v := damage.Intersect(e.Rect)
		v.SubtractRegion(covered)
		vis[i] = v

		covered.Union(e.opaqueRegion())
	}

	background = damage.Clone()
	background.SubtractRegion(covered)
	return vis, background
}

func premultiply(c color.NRGBA, opacity float64) shmimage.ARGB8888Color {
	a := uint32(float64(c.A)*opacity + 0.5)
	mul := func(v uint8) uint8 {
		return uint8((uint32(v)*a + 127) / 255)
	}
	return shmimage.NewARGB8888Color(mul(c.R), mul(c.G), mul(c.B), uint8(a))
}
