// Package nested runs the compositor inside a window of another
// Wayland compositor. The host window is the only display, and host
// pointer and keyboard events are forwarded as input.
package nested

import (
	"errors"
	"fmt"
	"image"
	"time"

	wl "deedles.dev/wlt/client"
	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/shm/shmimage"
	"github.com/sirupsen/logrus"
)

// ErrMissingGlobal is returned by Open when the host compositor lacks
// an interface that the nested backend needs.
var ErrMissingGlobal = errors.New("host is missing a required global")

// Options configure Open.
type Options struct {
	Title string

	// Width and Height are used if the host lets the window pick its
	// own size.
	Width, Height int
}

type Backend struct {
	client *wl.Client
	reg    *wl.Registry
	comp   *wl.Compositor
	shm    *wl.Shm
	wm     *wl.WmBase
	seat   *wl.Seat

	display *Display
	src     *loop.Source
	sink    backend.Sink
	log     *logrus.Entry
}

// Open connects to the host compositor and creates the window. It
// blocks until the host has configured the window.
func Open(opts Options) (b *Backend, err error) {
	if opts.Title == "" {
		opts.Title = "wlt"
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}

	c, err := wl.Dial()
	if err != nil {
		return nil, fmt.Errorf("connect to host: %w", err)
	}
	b = &Backend{
		client: c,
		log:    logrus.WithFields(logrus.Fields{"component": "backend", "backend": "nested"}),
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	b.reg = c.Display().GetRegistry()
	err = c.RoundTrip()
	if err != nil {
		return nil, fmt.Errorf("get host globals: %w", err)
	}

	need := func(iface string) (wl.Global, error) {
		g, ok := b.reg.Find(iface)
		if !ok {
			return g, fmt.Errorf("%w: %v", ErrMissingGlobal, iface)
		}
		return g, nil
	}
	gcomp, err := need("wl_compositor")
	if err != nil {
		return nil, err
	}
	gshm, err := need("wl_shm")
	if err != nil {
		return nil, err
	}
	gwm, err := need("xdg_wm_base")
	if err != nil {
		return nil, err
	}

	b.comp = wl.Bind[wl.Compositor](b.reg, gcomp, 4)
	b.shm = wl.Bind[wl.Shm](b.reg, gshm, 1)
	b.wm = wl.Bind[wl.WmBase](b.reg, gwm, 2)
	if g, ok := b.reg.Find("wl_seat"); ok {
		b.seat = wl.Bind[wl.Seat](b.reg, g, 5)
		b.seat.OnCapabilities = b.capabilities
	} else {
		b.log.Warn("host has no seat, input is disabled")
	}

	d, err := b.newDisplay(opts)
	if err != nil {
		return nil, err
	}
	b.display = d

	return b, nil
}

func (b *Backend) Name() string {
	return "nested"
}

func (b *Backend) Displays() []backend.Display {
	return []backend.Display{b.display}
}

// Display returns the host window.
func (b *Backend) Display() *Display {
	return b.display
}

func (b *Backend) Start(l *loop.Loop, sink backend.Sink) error {
	b.sink = sink
	src, err := l.AddFD(b.client.Fd(), loop.Readable, b.readable)
	if err != nil {
		return fmt.Errorf("watch host connection: %w", err)
	}
	b.src = src
	b.log.WithField("size", b.display.out.Mode.Size()).Info("started")
	return b.flush()
}

func (b *Backend) readable(ev loop.Event) {
	err := b.client.Dispatch()
	if err == nil && (ev.Has(loop.Hangup) || ev.Has(loop.Error)) {
		err = errors.New("host connection closed")
	}
	if err == nil {
		err = b.flush()
	}
	if err != nil {
		b.src.Remove()
		b.sink.Closed(fmt.Errorf("host connection: %w", err))
	}
}

func (b *Backend) flush() error {
	return b.client.Flush()
}

func (b *Backend) Close() error {
	if b.src != nil {
		b.src.Remove()
	}
	if b.display != nil {
		b.display.destroy()
	}
	b.client.Flush()
	return b.client.Close()
}

func (b *Backend) capabilities(caps uint32) {
	if caps&protocol.SeatCapabilityPointer != 0 {
		p := b.seat.GetPointer()
		p.Listener = b.pointerListener(p)
	}
	if caps&protocol.SeatCapabilityKeyboard != 0 {
		kb := b.seat.GetKeyboard()
		kb.Listener = b.keyboardListener()
	}
}

func (b *Backend) pointerListener(p *wl.Pointer) wl.PointerListener {
	return wl.PointerListener{
		Enter: func(serial, surface uint32, x, y float64) {
			// The compositor draws its own cursor.
			p.SetCursor(serial, nil, 0, 0)
			if b.sink != nil {
				b.sink.PointerMotionAbsolute(backend.Now(), b.display, x, y)
			}
		},
		Motion: func(time uint32, x, y float64) {
			if b.sink != nil {
				b.sink.PointerMotionAbsolute(time, b.display, x, y)
			}
		},
		Button: func(serial, time, button, state uint32) {
			if b.sink != nil {
				b.sink.PointerButton(time, button, state == protocol.PointerButtonStatePressed)
			}
		},
		Axis: func(time, axis uint32, value float64) {
			if b.sink != nil {
				b.sink.PointerAxis(time, axis, value, 0)
			}
		},
		Frame: func() {
			if b.sink != nil {
				b.sink.Frame()
			}
		},
	}
}

func (b *Backend) keyboardListener() wl.KeyboardListener {
	return wl.KeyboardListener{
		Key: func(serial, time, key, state uint32) {
			if b.sink == nil {
				return
			}
			b.sink.Key(time, key, state == protocol.KeyboardKeyStatePressed)
			b.sink.Frame()
		},
	}
}

// Display is the host window.
type Display struct {
	backend  *Backend
	out      output.Output
	surface  *wl.Surface
	xdg      *wl.XdgSurface
	toplevel *wl.Toplevel

	bufs    [2]*wl.ImageBuffer
	back    int
	flipped int
	pending bool

	configured bool
	resize     image.Point
}

func (b *Backend) newDisplay(opts Options) (*Display, error) {
	d := Display{
		backend: b,
		out: output.Output{
			Name:        "WL-1",
			Make:        "wlt",
			Model:       "nested",
			Description: "Nested window",
			Scale:       1,
		},
	}

	d.surface = b.comp.CreateSurface()
	d.xdg = b.wm.GetXdgSurface(d.surface)
	d.toplevel = d.xdg.GetToplevel()
	d.toplevel.SetTitle(opts.Title)
	d.toplevel.SetAppID("wlt")
	d.toplevel.OnConfigure = func(c wl.ToplevelConfigure) {
		if c.Width > 0 && c.Height > 0 {
			d.resize = image.Pt(int(c.Width), int(c.Height))
		}
	}
	d.toplevel.OnClose = func() {
		if b.sink != nil {
			b.sink.Closed(nil)
		}
	}
	d.xdg.OnConfigure = d.configure

	if g, ok := b.reg.Find("zxdg_decoration_manager_v1"); ok {
		deco := wl.Bind[wl.DecorationManager](b.reg, g, 1)
		deco.GetToplevelDecoration(d.toplevel).SetMode(protocol.DecorationModeServerSide)
	}

	d.resize = image.Pt(opts.Width, opts.Height)
	d.surface.Commit()
	for !d.configured {
		err := b.client.RoundTrip()
		if err != nil {
			return nil, fmt.Errorf("wait for host configure: %w", err)
		}
	}

	err := d.allocate(d.resize)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Display) configure(serial uint32) {
	d.xdg.AckConfigure(serial)
	if !d.configured {
		d.configured = true
		return
	}
	if d.resize != d.out.Mode.Size() && !d.pending {
		d.applyResize()
	}
}

func (d *Display) applyResize() {
	err := d.allocate(d.resize)
	if err != nil {
		d.backend.log.WithError(err).Error("resize host buffers")
		return
	}
	if d.backend.sink != nil {
		d.backend.sink.Resized(d)
	}
}

func (d *Display) allocate(size image.Point) error {
	for i := range d.bufs {
		if d.bufs[i] != nil {
			err := d.bufs[i].Resize(int32(size.X), int32(size.Y))
			if err != nil {
				return fmt.Errorf("resize buffer: %w", err)
			}
			continue
		}

		buf, err := wl.NewImageBuffer(d.backend.shm, int32(size.X), int32(size.Y), protocol.ShmFormatXRGB8888)
		if err != nil {
			return fmt.Errorf("create buffer: %w", err)
		}
		d.bufs[i] = buf
	}
	d.back = 0
	d.flipped = 0

	m := output.Mode{Width: size.X, Height: size.Y, RefreshMHz: 60000, Preferred: true}
	d.out.Modes = []output.Mode{m}
	d.out.SetMode(m)
	return nil
}

func (d *Display) destroy() {
	for _, buf := range d.bufs {
		if buf != nil {
			buf.Destroy()
		}
	}
	d.toplevel.Destroy()
	d.xdg.Destroy()
	d.surface.Destroy()
}

func (d *Display) Output() *output.Output {
	return &d.out
}

// SetMode only accepts the current window size, which is controlled by
// the host.
func (d *Display) SetMode(m output.Mode) error {
	if m.Size() != d.out.Mode.Size() {
		return fmt.Errorf("nested display size is set by the host window")
	}
	return nil
}

func (d *Display) Buffer() (*shmimage.ARGB8888, int, error) {
	age := 0
	if d.flipped >= 2 {
		age = 2
	}
	return d.bufs[d.back].Pixels(), age, nil
}

func (d *Display) Flip() error {
	if d.pending {
		return output.ErrFlipPending
	}

	buf := d.bufs[d.back]
	d.surface.Attach(buf.Buffer(), 0, 0)
	d.surface.DamageBuffer(buf.Bounds())
	d.surface.Frame(func(uint32) { d.presented() })
	d.surface.Commit()
	d.pending = true

	return d.backend.flush()
}

func (d *Display) presented() {
	d.pending = false
	d.back ^= 1
	d.flipped++

	if d.backend.sink != nil {
		d.backend.sink.Presented(d, time.Now())
	}
	if d.resize != d.out.Mode.Size() {
		d.applyResize()
	}
}
