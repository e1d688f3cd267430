// Package headless provides displays that exist only in memory. Page
// flips complete on the loop's next idle pass, so a headless
// compositor renders as fast as clients commit.
package headless

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/shm/shmimage"
	"deedles.dev/ximage/format"
	"github.com/sirupsen/logrus"
)

// DefaultMode is used when no modes are given to New.
var DefaultMode = output.Mode{Width: 1280, Height: 720, RefreshMHz: 60000, Preferred: true}

type Backend struct {
	displays []*Display
	loop     *loop.Loop
	sink     backend.Sink
	log      *logrus.Entry
}

// New creates a backend with one display per mode.
func New(modes ...output.Mode) *Backend {
	if len(modes) == 0 {
		modes = []output.Mode{DefaultMode}
	}

	b := Backend{log: logrus.WithFields(logrus.Fields{"component": "backend", "backend": "headless"})}
	for i, m := range modes {
		d := Display{
			backend: &b,
			out: output.Output{
				Name:        fmt.Sprintf("HEADLESS-%v", i+1),
				Make:        "wlt",
				Model:       "headless",
				Description: "Headless output",
				Modes:       []output.Mode{m},
				Scale:       1,
			},
		}
		d.out.SetMode(m)
		d.allocate()
		b.displays = append(b.displays, &d)
	}
	return &b
}

func (b *Backend) Name() string {
	return "headless"
}

func (b *Backend) Displays() []backend.Display {
	displays := make([]backend.Display, 0, len(b.displays))
	for _, d := range b.displays {
		displays = append(displays, d)
	}
	return displays
}

// Display returns the ith display.
func (b *Backend) Display(i int) *Display {
	return b.displays[i]
}

func (b *Backend) Start(l *loop.Loop, sink backend.Sink) error {
	b.loop = l
	b.sink = sink
	b.log.WithField("displays", len(b.displays)).Info("started")
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Display is an in-memory, double-buffered display.
type Display struct {
	backend *Backend
	out     output.Output

	bufs    [2]*shmimage.ARGB8888
	back    int
	flipped int
	pending bool
	flips   uint64
}

func (d *Display) allocate() {
	r := image.Rect(0, 0, d.out.Mode.Width, d.out.Mode.Height)
	for i := range d.bufs {
		d.bufs[i] = shmimage.NewARGB8888(r)
		d.bufs[i].Opaque = true
	}
	d.back = 0
	d.flipped = 0
}

func (d *Display) Output() *output.Output {
	return &d.out
}

func (d *Display) SetMode(m output.Mode) error {
	if d.pending {
		return output.ErrFlipPending
	}
	d.out.SetMode(m)
	d.allocate()
	return nil
}

// Buffer returns the back buffer. Its age is only known once both
// buffers have been displayed.
func (d *Display) Buffer() (*shmimage.ARGB8888, int, error) {
	age := 0
	if d.flipped >= 2 {
		age = 2
	}
	return d.bufs[d.back], age, nil
}

func (d *Display) Flip() error {
	if d.backend.loop == nil {
		return errors.New("backend not started")
	}
	if d.pending {
		return output.ErrFlipPending
	}
	d.pending = true

	d.backend.loop.Idle(func() {
		d.pending = false
		d.back ^= 1
		d.flipped++
		d.flips++
		if d.backend.sink != nil {
			d.backend.sink.Presented(d, time.Now())
		}
	})
	return nil
}

// Flips returns the number of completed page flips.
func (d *Display) Flips() uint64 {
	return d.flips
}

// Front returns the buffer currently being displayed.
func (d *Display) Front() *shmimage.ARGB8888 {
	return d.bufs[d.back^1]
}

// Snapshot returns a copy of what is currently displayed.
func (d *Display) Snapshot() draw.Image {
	front := d.Front()
	img := format.Image{
		Format: format.ARGB8888,
		Rect:   front.Rect,
		Pix:    make([]byte, len(front.Pix)),
	}
	copy(img.Pix, front.Pix)
	return &img
}
