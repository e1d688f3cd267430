// Package output tracks the state of physical displays and decides
// when to render frames for them.
package output

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrFlipPending is returned when presenting to an output whose
// previous frame has not yet been displayed.
var ErrFlipPending = errors.New("page flip pending")

// Output is a display that frames are presented to.
type Output struct {
	Name         string
	Make         string
	Model        string
	Description  string
	PhysicalSize image.Point // millimeters

	Modes []Mode
	Mode  Mode

	Position  image.Point
	Scale     int
	Transform int

	VRR bool

	usable   image.Rectangle
	inFlight bool
	frames   uint64
	last     time.Time
}

// Bounds returns the area of the output in global coordinates.
func (o *Output) Bounds() image.Rectangle {
	return image.Rectangle{Min: o.Position, Max: o.Position.Add(o.Mode.Size())}
}

// UsableArea returns the area left for windows after reserved space
// has been removed.
func (o *Output) UsableArea() image.Rectangle {
	if o.usable.Empty() {
		return o.Bounds()
	}
	return o.usable
}

// SetUsableArea sets the area that windows may occupy. It is clipped
// to the bounds of the output.
func (o *Output) SetUsableArea(r image.Rectangle) {
	o.usable = r.Intersect(o.Bounds())
}

// SetMode switches the output to m. The usable area is reset.
func (o *Output) SetMode(m Mode) {
	o.Mode = m
	o.usable = image.Rectangle{}
}

// Present marks a frame as in flight and calls flip to submit it. It
// fails with ErrFlipPending if the previous frame is still in flight.
// If flip fails, the output is left idle.
func (o *Output) Present(flip func() error) error {
	if o.inFlight {
		return ErrFlipPending
	}

	o.inFlight = true
	err := flip()
	if err != nil {
		o.inFlight = false
		return fmt.Errorf("present %v: %w", o.Name, err)
	}
	return nil
}

// Presented records that the in-flight frame was displayed at t.
func (o *Output) Presented(t time.Time) {
	o.inFlight = false
	o.frames++
	o.last = t
}

// InFlight reports whether a frame is waiting to be displayed.
func (o *Output) InFlight() bool {
	return o.inFlight
}

// Frames returns the number of frames presented so far.
func (o *Output) Frames() uint64 {
	return o.frames
}

// LastPresented returns the time that the most recent frame was
// displayed.
func (o *Output) LastPresented() time.Time {
	return o.last
}

func (o *Output) String() string {
	return fmt.Sprintf("%v (%v)", o.Name, o.Mode)
}
