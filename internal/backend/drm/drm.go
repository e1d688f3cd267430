// Package drm drives displays directly through the kernel's mode
// setting interface using CPU-mapped dumb buffers.
package drm

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"time"
	"unsafe"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/set"
	"deedles.dev/wlt/shm/shmimage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ErrNoDevice is returned by Open when no usable display device is
// found.
var ErrNoDevice = errors.New("no usable DRM device")

var connectorTypes = [...]string{
	"Unknown", "VGA", "DVI-I", "DVI-D", "DVI-A", "Composite", "SVIDEO",
	"LVDS", "Component", "DIN", "DP", "HDMI-A", "HDMI-B", "TV", "eDP",
	"Virtual", "DSI", "DPI", "Writeback", "SPI", "USB",
}

func connectorName(typ, id uint32) string {
	name := "Unknown"
	if int(typ) < len(connectorTypes) {
		name = connectorTypes[typ]
	}
	return fmt.Sprintf("%v-%v", name, id)
}

// Options configure Open.
type Options struct {
	// Device is the path of the card to use, or empty or "auto" to use
	// the first card with a connected display.
	Device string

	// Mode overrides automatic mode selection.
	Mode *output.ModeSpec

	// VRR enables variable refresh on displays that support it.
	VRR bool
}

type Backend struct {
	card     card
	path     string
	displays []*Display
	src      *loop.Source
	sink     backend.Sink
	paused   bool
	log      *logrus.Entry
}

// Open opens a card and prepares a display for every connected
// connector that a CRTC can be found for. Nothing is shown until
// Start.
func Open(opts Options) (*Backend, error) {
	log := logrus.WithFields(logrus.Fields{"component": "backend", "backend": "drm"})

	paths := []string{opts.Device}
	if opts.Device == "" || opts.Device == "auto" {
		paths, _ = filepath.Glob("/dev/dri/card*")
		slices.Sort(paths)
	}

	var errs []error
	for _, path := range paths {
		b, err := open(path, opts, log)
		if err != nil {
			log.WithError(err).WithField("device", path).Debug("skipping device")
			errs = append(errs, fmt.Errorf("%v: %w", path, err))
			continue
		}
		return b, nil
	}
	return nil, errors.Join(append([]error{ErrNoDevice}, errs...)...)
}

func open(path string, opts Options, log *logrus.Entry) (*Backend, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	b := Backend{card: card{fd: fd}, path: path, log: log.WithField("device", path)}

	err = b.init(opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &b, nil
}

func (b *Backend) init(opts Options) error {
	err := b.card.setMaster()
	if err != nil {
		return fmt.Errorf("become DRM master: %w", err)
	}

	dumb, err := b.card.cap(capDumbBuffer)
	if err != nil || dumb == 0 {
		return errors.New("device does not support dumb buffers")
	}

	res, err := b.card.resources()
	if err != nil {
		return fmt.Errorf("get resources: %w", err)
	}

	used := make(set.Set[uint32])
	for _, id := range res.connectors {
		conn, err := b.card.connector(id)
		if err != nil {
			b.log.WithError(err).WithField("connector", id).Warn("get connector")
			continue
		}
		if !conn.connected || len(conn.modes) == 0 {
			continue
		}

		crtc, ok := b.findCRTC(&res, &conn, used)
		if !ok {
			b.log.WithField("connector", connectorName(conn.typ, conn.typeID)).Warn("no free CRTC")
			continue
		}
		used.Add(crtc)

		d, err := b.newDisplay(conn, crtc, opts)
		if err != nil {
			b.log.WithError(err).Warn("set up display")
			continue
		}
		b.displays = append(b.displays, d)
	}

	if len(b.displays) == 0 {
		return errors.New("no connected displays")
	}
	return nil
}

func (b *Backend) findCRTC(res *resources, conn *connector, used set.Set[uint32]) (uint32, bool) {
	if conn.encoderID != 0 {
		enc, err := b.card.encoder(conn.encoderID)
		if err == nil && enc.CRTCID != 0 && !used.Has(enc.CRTCID) {
			return enc.CRTCID, true
		}
	}

	for _, encID := range conn.encoders {
		enc, err := b.card.encoder(encID)
		if err != nil {
			continue
		}
		for i, crtc := range res.crtcs {
			if enc.PossibleCRTCs&(1<<i) != 0 && !used.Has(crtc) {
				return crtc, true
			}
		}
	}
	return 0, false
}

func (b *Backend) newDisplay(conn connector, crtc uint32, opts Options) (*Display, error) {
	saved, err := b.card.crtc(crtc)
	if err != nil {
		return nil, fmt.Errorf("get CRTC: %w", err)
	}

	vrrCapable := conn.properties["vrr_capable"].value == 1

	d := Display{
		backend: b,
		conn:    conn,
		crtc:    crtc,
		saved:   saved,
		out: output.Output{
			Name:         connectorName(conn.typ, conn.typeID),
			Make:         "Unknown",
			Model:        "Unknown",
			PhysicalSize: image.Pt(int(conn.mmW), int(conn.mmH)),
			Scale:        1,
		},
	}
	d.out.Description = fmt.Sprintf("%v (%v)", d.out.Name, filepath.Base(b.path))

	for i := range conn.modes {
		m := &conn.modes[i]
		mode := output.Mode{
			Width:      int(m.HDisplay),
			Height:     int(m.VDisplay),
			RefreshMHz: m.refreshMHz(),
			Preferred:  m.Type&modeTypePreferred != 0,
		}
		if vrrCapable {
			mode.VRRMax = mode.RefreshMHz
			mode.VRRMin = min(48000, mode.RefreshMHz)
		}
		d.out.Modes = append(d.out.Modes, mode)
	}

	mode, ok := output.SelectMode(d.out.Modes, opts.Mode)
	if !ok {
		return nil, errors.New("no usable mode")
	}
	d.out.SetMode(mode)

	if opts.VRR && vrrCapable {
		props, err := b.card.properties(crtc, objectCRTC)
		if err == nil {
			if p, ok := props["VRR_ENABLED"]; ok {
				d.vrrProp = p.id
			}
		}
	}

	return &d, nil
}

func (b *Backend) Name() string {
	return "drm"
}

func (b *Backend) Displays() []backend.Display {
	displays := make([]backend.Display, 0, len(b.displays))
	for _, d := range b.displays {
		displays = append(displays, d)
	}
	return displays
}

// Start sets the selected mode on every display and starts listening
// for page flip events.
func (b *Backend) Start(l *loop.Loop, sink backend.Sink) error {
	b.sink = sink

	for _, d := range b.displays {
		err := d.modeset(d.out.Mode)
		if err != nil {
			return fmt.Errorf("set mode on %v: %w", d.out.Name, err)
		}
		b.log.WithFields(logrus.Fields{
			"output": d.out.Name,
			"mode":   d.out.Mode,
			"vrr":    d.out.VRR,
		}).Info("display enabled")
	}

	src, err := l.AddFD(b.card.fd, loop.Readable, b.readable)
	if err != nil {
		return err
	}
	b.src = src
	return nil
}

func (b *Backend) readable(loop.Event) {
	var buf [1024]byte
	for {
		n, err := unix.Read(b.card.fd, buf[:])
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				b.log.WithError(err).Error("read DRM events")
			}
			return
		}
		if n == 0 {
			return
		}
		b.handleEvents(buf[:n])
	}
}

func (b *Backend) handleEvents(data []byte) {
	for len(data) >= int(unsafe.Sizeof(eventHeader{})) {
		hdr := (*eventHeader)(unsafe.Pointer(&data[0]))
		if hdr.Length < uint32(unsafe.Sizeof(eventHeader{})) || int(hdr.Length) > len(data) {
			return
		}

		if hdr.Type == eventFlipComplete && int(hdr.Length) >= int(unsafe.Sizeof(eventVblank{})) {
			ev := (*eventVblank)(unsafe.Pointer(&data[0]))
			i := int(ev.UserData)
			if i >= 0 && i < len(b.displays) {
				b.displays[i].flipComplete()
			}
		}

		data = data[hdr.Length:]
	}
}

// Close restores the displays to what they showed before and releases
// the device.
func (b *Backend) Close() error {
	if b.src != nil {
		b.src.Remove()
	}
	for _, d := range b.displays {
		d.close()
	}
	b.card.dropMaster()
	return unix.Close(b.card.fd)
}

// Display is one connector driven by a CRTC.
type Display struct {
	backend *Backend
	out     output.Output
	conn    connector
	crtc    uint32
	saved   modeCRTC
	vrrProp uint32

	bufs    [2]*dumb
	imgs    [2]*shmimage.ARGB8888
	back    int
	flipped int
	pending bool
}

func (d *Display) index() int {
	return slices.Index(d.backend.displays, d)
}

func (d *Display) Output() *output.Output {
	return &d.out
}

func (d *Display) SetMode(m output.Mode) error {
	if d.pending {
		return output.ErrFlipPending
	}
	if !slices.Contains(d.out.Modes, m) {
		return fmt.Errorf("mode %v not supported by %v", m, d.out.Name)
	}
	return d.modeset(m)
}

func (d *Display) modeset(m output.Mode) error {
	i := slices.Index(d.out.Modes, m)
	if i < 0 {
		return fmt.Errorf("unknown mode %v", m)
	}
	info := &d.conn.modes[i]

	d.freeBuffers()
	for i := range d.bufs {
		buf, err := d.backend.card.createDumb(m.Width, m.Height)
		if err != nil {
			d.freeBuffers()
			return fmt.Errorf("create scanout buffer: %w", err)
		}
		d.bufs[i] = buf
		d.imgs[i] = &shmimage.ARGB8888{
			Pix:    buf.data,
			Stride: int(buf.pitch),
			Rect:   image.Rect(0, 0, m.Width, m.Height),
			Opaque: true,
		}
	}

	err := d.backend.card.setCRTC(d.crtc, d.bufs[0].fb, d.conn.id, info)
	if err != nil {
		return fmt.Errorf("set CRTC: %w", err)
	}
	d.back = 1
	d.flipped = 0
	d.out.SetMode(m)

	if d.vrrProp != 0 {
		err := d.backend.card.setProperty(d.crtc, objectCRTC, d.vrrProp, 1)
		if err != nil {
			d.backend.log.WithError(err).Warn("enable variable refresh")
		} else {
			d.out.VRR = true
		}
	}

	return nil
}

func (d *Display) freeBuffers() {
	for i, buf := range d.bufs {
		if buf != nil {
			d.backend.card.destroyDumb(buf)
		}
		d.bufs[i] = nil
		d.imgs[i] = nil
	}
}

func (d *Display) Buffer() (*shmimage.ARGB8888, int, error) {
	if d.backend.paused {
		return nil, 0, backend.ErrPaused
	}
	if d.imgs[d.back] == nil {
		return nil, 0, errors.New("display not enabled")
	}
	age := 0
	if d.flipped >= 2 {
		age = 2
	}
	return d.imgs[d.back], age, nil
}

func (d *Display) Flip() error {
	if d.backend.paused {
		return backend.ErrPaused
	}
	if d.pending {
		return output.ErrFlipPending
	}
	err := d.backend.card.pageFlip(d.crtc, d.bufs[d.back].fb, uint64(d.index()))
	if err != nil {
		return fmt.Errorf("page flip: %w", err)
	}
	d.pending = true
	return nil
}

// Pause drops DRM master so that the session being switched to can
// take the device. Displays refuse to flip until Resume.
func (b *Backend) Pause() error {
	b.paused = true
	err := b.card.dropMaster()
	if err != nil {
		return fmt.Errorf("drop master: %w", err)
	}
	b.log.Info("paused")
	return nil
}

// Resume takes DRM master back and sets every display's mode again,
// since whoever had the device may have changed it.
func (b *Backend) Resume() error {
	err := b.card.setMaster()
	if err != nil {
		return fmt.Errorf("set master: %w", err)
	}
	b.paused = false

	var errs []error
	for _, d := range b.displays {
		d.pending = false
		err := d.modeset(d.out.Mode)
		if err != nil {
			errs = append(errs, fmt.Errorf("set mode on %v: %w", d.out.Name, err))
			continue
		}
		b.sink.Resized(d)
	}
	b.log.Info("resumed")
	return errors.Join(errs...)
}

func (d *Display) flipComplete() {
	d.pending = false
	d.back ^= 1
	d.flipped++
	d.backend.sink.Presented(d, time.Now())
}

func (d *Display) close() {
	if d.saved.CRTCID != 0 {
		err := d.backend.card.restoreCRTC(d.saved, d.conn.id)
		if err != nil {
			d.backend.log.WithError(err).Warn("restore CRTC")
		}
	}
	d.freeBuffers()
}
