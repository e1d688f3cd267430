// Package evdev reads keyboards and pointers from Linux input event
// devices.
package evdev

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"unsafe"

	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/ioctl"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/pointer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ErrNoDevices is returned by Open when no keyboard or pointer could
// be opened.
var ErrNoDevices = errors.New("no input devices")

const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	relX      = 0x00
	relY      = 0x01
	relHWheel = 0x06
	relWheel  = 0x08

	keyA     = 30
	keySpace = 57

	keyMax = 0x2ff
	relMax = 0x0f
)

// event is struct input_event on 64-bit platforms.
type event struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const eventSize = int(unsafe.Sizeof(event{}))

func evIOCGBit(ev, size uintptr) uintptr {
	return ioctl.IOR('E', 0x20+ev, size)
}

var (
	evIOCGName = ioctl.IOR('E', 0x06, 256)
	evIOCGrab  = ioctl.IOW('E', 0x90, unsafe.Sizeof(int32(0)))
)

// Capability is what a device can be used for.
type Capability uint8

const (
	Keyboard Capability = 1 << iota
	Pointer
)

func (c Capability) String() string {
	switch c {
	case Keyboard:
		return "keyboard"
	case Pointer:
		return "pointer"
	case Keyboard | Pointer:
		return "keyboard+pointer"
	}
	return "none"
}

type bits []byte

func (b bits) has(n int) bool {
	i := n / 8
	return i < len(b) && b[i]&(1<<(n%8)) != 0
}

func classify(evBits, keyBits, relBits bits) Capability {
	var caps Capability
	if evBits.has(evKey) && keyBits.has(keyA) && keyBits.has(keySpace) {
		caps |= Keyboard
	}
	if evBits.has(evRel) && relBits.has(relX) && relBits.has(relY) && keyBits.has(int(pointer.ButtonLeft)) {
		caps |= Pointer
	}
	return caps
}

// Device is an open input device.
type Device struct {
	Path string
	Name string
	Caps Capability

	fd     int
	src    *loop.Source
	dx, dy float64
}

func openDevice(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	d := Device{Path: path, fd: fd}

	name := make([]byte, 256)
	if ioctl.Ioctl(fd, evIOCGName, unsafe.Pointer(&name[0])) == nil {
		d.Name = cstring(name)
	}

	evBits := make(bits, 4)
	keyBits := make(bits, keyMax/8+1)
	relBits := make(bits, relMax/8+1)
	err = errors.Join(
		ioctl.Ioctl(fd, evIOCGBit(0, uintptr(len(evBits))), unsafe.Pointer(&evBits[0])),
		ioctl.Ioctl(fd, evIOCGBit(evKey, uintptr(len(keyBits))), unsafe.Pointer(&keyBits[0])),
		ioctl.Ioctl(fd, evIOCGBit(evRel, uintptr(len(relBits))), unsafe.Pointer(&relBits[0])),
	)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("query capabilities: %w", err)
	}
	d.Caps = classify(evBits, keyBits, relBits)

	return &d, nil
}

func cstring(b []byte) string {
	if i := slices.Index(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func (d *Device) close() {
	if d.src != nil {
		d.src.Remove()
	}
	ioctl.Int(d.fd, evIOCGrab, 0)
	unix.Close(d.fd)
}

type Backend struct {
	devices []*Device
	sink    backend.InputSink
	paused  bool
	log     *logrus.Entry
}

// Open opens every keyboard and pointer under /dev/input.
func Open() (*Backend, error) {
	b := Backend{log: logrus.WithFields(logrus.Fields{"component": "backend", "backend": "evdev"})}

	paths, _ := filepath.Glob("/dev/input/event*")
	slices.Sort(paths)
	for _, path := range paths {
		d, err := openDevice(path)
		if err != nil {
			b.log.WithError(err).WithField("device", path).Debug("skipping device")
			continue
		}
		if d.Caps == 0 {
			unix.Close(d.fd)
			continue
		}
		b.devices = append(b.devices, d)
		b.log.WithFields(logrus.Fields{"device": path, "name": d.Name, "caps": d.Caps}).Info("input device")
	}

	if len(b.devices) == 0 {
		return nil, ErrNoDevices
	}
	return &b, nil
}

// Devices returns the opened devices.
func (b *Backend) Devices() []*Device {
	return b.devices
}

func (b *Backend) Name() string {
	return "evdev"
}

func (b *Backend) Displays() []backend.Display {
	return nil
}

// Start grabs every device so that other programs, such as the
// console, stop seeing its events, and starts reading them.
func (b *Backend) Start(l *loop.Loop, sink backend.Sink) error {
	b.sink = sink
	for _, d := range b.devices {
		err := ioctl.Int(d.fd, evIOCGrab, 1)
		if err != nil {
			b.log.WithError(err).WithField("device", d.Path).Warn("grab device")
		}

		src, err := l.AddFD(d.fd, loop.Readable, func(ev loop.Event) { b.readable(d, ev) })
		if err != nil {
			return fmt.Errorf("watch %v: %w", d.Path, err)
		}
		d.src = src
	}
	return nil
}

func (b *Backend) readable(d *Device, ev loop.Event) {
	if ev.Has(loop.Hangup) || ev.Has(loop.Error) {
		b.log.WithField("device", d.Path).Info("device removed")
		b.remove(d)
		return
	}

	buf := make([]byte, eventSize*64)
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil {
			if errors.Is(err, unix.ENODEV) {
				b.remove(d)
			}
			return
		}
		if n < eventSize {
			return
		}
		for i := 0; i+eventSize <= n; i += eventSize {
			b.handle(d, (*event)(unsafe.Pointer(&buf[i])))
		}
	}
}

func (b *Backend) remove(d *Device) {
	d.close()
	b.devices = slices.DeleteFunc(b.devices, func(o *Device) bool { return o == d })
}

func (b *Backend) handle(d *Device, ev *event) {
	if b.paused {
		return
	}
	time := uint32(ev.Sec*1000 + ev.Usec/1000)

	switch ev.Type {
	case evKey:
		if ev.Value == 2 {
			// Key repeat is the client's business.
			return
		}
		pressed := ev.Value != 0
		if ev.Code >= uint16(pointer.ButtonLeft) && ev.Code <= uint16(pointer.ButtonTask) {
			b.sink.PointerButton(time, uint32(ev.Code), pressed)
			return
		}
		b.sink.Key(time, uint32(ev.Code), pressed)

	case evRel:
		switch ev.Code {
		case relX:
			d.dx += float64(ev.Value)
		case relY:
			d.dy += float64(ev.Value)
		case relWheel:
			b.sink.PointerAxis(time, uint32(pointer.AxisVertical), float64(-ev.Value)*pointer.ScrollStep, -ev.Value)
		case relHWheel:
			b.sink.PointerAxis(time, uint32(pointer.AxisHorizontal), float64(ev.Value)*pointer.ScrollStep, ev.Value)
		}

	case evSyn:
		if ev.Code != synReport {
			return
		}
		if d.dx != 0 || d.dy != 0 {
			b.sink.PointerMotion(time, d.dx, d.dy)
			d.dx, d.dy = 0, 0
		}
		b.sink.Frame()
	}
}

// Pause releases the grabs so that the console sees input again.
// Events read while paused are dropped.
func (b *Backend) Pause() error {
	b.paused = true
	for _, d := range b.devices {
		d.dx, d.dy = 0, 0
		err := ioctl.Int(d.fd, evIOCGrab, 0)
		if err != nil {
			b.log.WithError(err).WithField("device", d.Path).Warn("release device")
		}
	}
	return nil
}

// Resume grabs every device again.
func (b *Backend) Resume() error {
	b.paused = false
	for _, d := range b.devices {
		err := ioctl.Int(d.fd, evIOCGrab, 1)
		if err != nil {
			b.log.WithError(err).WithField("device", d.Path).Warn("grab device")
		}
	}
	return nil
}

func (b *Backend) Close() error {
	for _, d := range b.devices {
		d.close()
	}
	b.devices = nil
	return nil
}
