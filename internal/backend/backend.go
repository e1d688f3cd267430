// Package backend defines how the compositor talks to the hardware, or
// whatever stands in for it: displays to present frames on and input
// devices to read events from.
package backend

import (
	"errors"
	"time"

	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/render"
)

// Backend provides displays and input.
type Backend interface {
	Name() string

	// Displays returns the displays that the backend drives. It is only
	// valid after Start.
	Displays() []Display

	// Start registers the backend's event sources with l. Events are
	// delivered to sink from the loop.
	Start(l *loop.Loop, sink Sink) error

	Close() error
}

// Display is one output that frames can be presented on.
type Display interface {
	render.Screen

	Output() *output.Output

	// SetMode switches the display to one of the modes listed in its
	// output.
	SetMode(m output.Mode) error
}

// InputSink receives input events. Times are in milliseconds on an
// arbitrary monotonic clock. Keys and buttons use Linux input event
// codes.
type InputSink interface {
	Key(time uint32, code uint32, pressed bool)
	PointerMotion(time uint32, dx, dy float64)
	PointerMotionAbsolute(time uint32, d Display, x, y float64)
	PointerButton(time uint32, button uint32, pressed bool)
	PointerAxis(time uint32, axis uint32, value float64, discrete int32)

	// Frame ends a group of events that happened at the same time.
	Frame()
}

// Sink receives everything that a backend reports.
type Sink interface {
	InputSink

	// Presented is called once the frame last flipped on d is being
	// displayed.
	Presented(d Display, t time.Time)

	// Resized is called when the mode of d was changed by something
	// other than SetMode, such as the host window being resized.
	Resized(d Display)

	// Closed is called when the backend can no longer continue.
	Closed(err error)
}

// ErrPaused is returned by displays whose device has been handed over
// to another session.
var ErrPaused = errors.New("display paused")

// Pauser is implemented by backends that can give up their devices
// while the virtual terminal is switched away.
type Pauser interface {
	Pause() error
	Resume() error
}

// Now returns the current time in the millisecond format used for
// input events.
func Now() uint32 {
	return uint32(time.Now().UnixMilli())
}

// Group combines a backend that provides displays with others that
// provide input.
type Group []Backend

func (g Group) Name() string {
	var name string
	for i, b := range g {
		if i > 0 {
			name += "+"
		}
		name += b.Name()
	}
	return name
}

func (g Group) Displays() []Display {
	var displays []Display
	for _, b := range g {
		displays = append(displays, b.Displays()...)
	}
	return displays
}

func (g Group) Start(l *loop.Loop, sink Sink) error {
	for i, b := range g {
		err := b.Start(l, sink)
		if err != nil {
			for _, started := range g[:i] {
				started.Close()
			}
			return err
		}
	}
	return nil
}

func (g Group) Close() error {
	errs := make([]error, 0, len(g))
	for _, b := range g {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// Pause pauses every member of g that supports it.
func (g Group) Pause() error {
	var errs []error
	for _, b := range g {
		if p, ok := b.(Pauser); ok {
			errs = append(errs, p.Pause())
		}
	}
	return errors.Join(errs...)
}

// Resume resumes every member of g that supports it.
func (g Group) Resume() error {
	var errs []error
	for _, b := range g {
		if p, ok := b.(Pauser); ok {
			errs = append(errs, p.Resume())
		}
	}
	return errors.Join(errs...)
}
