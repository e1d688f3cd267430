// Package session takes over the virtual terminal that a standalone
// compositor runs on and gives it back on exit.
package session

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"unsafe"

	"deedles.dev/wlt/internal/ioctl"
	"deedles.dev/wlt/internal/loop"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Console ioctls from linux/kd.h and linux/vt.h.
const (
	reqKDSetMode   = 0x4B3A
	reqKDGetMode   = 0x4B3B
	reqKDGKBMode   = 0x4B44
	reqKDSKBMode   = 0x4B45
	reqVTSetMode   = 0x5602
	reqVTGetState  = 0x5603
	reqVTRelDisp   = 0x5605
	reqVTActivate  = 0x5606
	reqVTWaitActiv = 0x5607
)

const (
	kdGraphics = 0x01

	kbOff = 0x04

	vtAuto    = 0x00
	vtProcess = 0x01
	vtAckAcq  = 0x02
)

// Signals the kernel sends when the user switches away from and back
// to the session's VT.
const (
	releaseSignal = unix.SIGUSR1
	acquireSignal = unix.SIGUSR2
)

const activePath = "/sys/class/tty/tty0/active"

type vtState struct {
	Active uint16
	Signal uint16
	State  uint16
}

type vtMode struct {
	Mode   int8
	Waitv  int8
	Relsig int16
	Acqsig int16
	Frsig  int16
}

// Handler is told when the session's VT is switched away from and
// back to. Backends that implement it give up and retake their
// devices.
type Handler interface {
	Pause() error
	Resume() error
}

// Session is the VT that the compositor has taken over.
type Session struct {
	tty    *os.File
	vt     int
	kdMode int32
	kbMode int32

	handler Handler
	active  bool
	sigs    chan os.Signal
	ctl     func(req, arg uintptr) error

	log *logrus.Entry
}

// Open takes over the active VT. The console stops drawing and stops
// reading the keyboard until Close.
func Open() (*Session, error) {
	log := logrus.WithField("component", "session")

	path := "/dev/tty"
	name, err := activeTTY(activePath)
	if err != nil {
		log.WithError(err).Warn("find active VT")
	} else {
		path = "/dev/" + name
	}

	tty, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", path, err)
	}
	fd := int(tty.Fd())

	s := Session{
		tty:    tty,
		active: true,
		ctl: func(req, arg uintptr) error {
			return ioctl.Int(fd, req, arg)
		},
		log: log,
	}

	var state vtState
	err = ioctl.Ioctl(fd, reqVTGetState, unsafe.Pointer(&state))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("%v is not a virtual terminal: %w", path, err)
	}
	s.vt = vtNumber(name, state.Active)

	err = ioctl.Ioctl(fd, reqKDGetMode, unsafe.Pointer(&s.kdMode))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("get console mode: %w", err)
	}
	err = ioctl.Ioctl(fd, reqKDGKBMode, unsafe.Pointer(&s.kbMode))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("get keyboard mode: %w", err)
	}

	err = s.ctl(reqKDSetMode, kdGraphics)
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("set graphics mode: %w", err)
	}
	err = s.ctl(reqKDSKBMode, kbOff)
	if err != nil {
		s.ctl(reqKDSetMode, uintptr(s.kdMode))
		tty.Close()
		return nil, fmt.Errorf("turn off console keyboard: %w", err)
	}

	s.log = log.WithField("vt", s.vt)
	s.log.Info("session opened")
	return &s, nil
}

// VT returns the number of the session's virtual terminal.
func (s *Session) VT() int {
	return s.vt
}

// Start asks the kernel to let the session decide when the VT is
// switched away, and calls h on l whenever that happens.
func (s *Session) Start(l *loop.Loop, h Handler) error {
	mode := vtMode{
		Mode:   vtProcess,
		Relsig: int16(releaseSignal),
		Acqsig: int16(acquireSignal),
	}
	err := ioctl.Ioctl(int(s.tty.Fd()), reqVTSetMode, unsafe.Pointer(&mode))
	if err != nil {
		return fmt.Errorf("set VT mode: %w", err)
	}

	s.handler = h
	s.sigs = make(chan os.Signal, 1)
	signal.Notify(s.sigs, releaseSignal, acquireSignal)
	go func() {
		for sig := range s.sigs {
			l.Post(func() { s.signaled(sig) })
		}
	}()
	return nil
}

func (s *Session) signaled(sig os.Signal) {
	switch sig {
	case releaseSignal:
		if !s.active {
			return
		}
		s.active = false
		err := s.handler.Pause()
		if err != nil {
			s.log.WithError(err).Warn("pause")
		}
		err = s.ctl(reqVTRelDisp, 1)
		if err != nil {
			s.log.WithError(err).Error("release VT")
		}
		s.log.Info("switched away")

	case acquireSignal:
		err := s.ctl(reqVTRelDisp, vtAckAcq)
		if err != nil {
			s.log.WithError(err).Error("acknowledge VT")
		}
		if s.active {
			return
		}
		s.active = true
		err = s.handler.Resume()
		if err != nil {
			s.log.WithError(err).Error("resume")
		}
		s.log.Info("switched back")
	}
}

// Active reports whether the session's VT is currently shown.
func (s *Session) Active() bool {
	return s.active
}

// Close gives the VT back to the console in the modes that it was
// found in.
func (s *Session) Close() error {
	if s.sigs != nil {
		signal.Stop(s.sigs)
		close(s.sigs)
	}

	fd := int(s.tty.Fd())
	var errs []error
	if s.handler != nil {
		mode := vtMode{Mode: vtAuto}
		errs = append(errs, ioctl.Ioctl(fd, reqVTSetMode, unsafe.Pointer(&mode)))
	}
	errs = append(errs,
		s.ctl(reqKDSKBMode, uintptr(s.kbMode)),
		s.ctl(reqKDSetMode, uintptr(s.kdMode)),
	)
	if s.vt > 0 {
		errs = append(errs,
			s.ctl(reqVTActivate, uintptr(s.vt)),
			s.ctl(reqVTWaitActiv, uintptr(s.vt)),
		)
	}
	errs = append(errs, s.tty.Close())

	s.log.Info("session closed")
	return errors.Join(errs...)
}

// activeTTY returns the name of the VT that the kernel currently
// shows, as listed in path.
func activeTTY(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if !strings.HasPrefix(name, "tty") {
		return "", fmt.Errorf("unexpected active console %q", name)
	}
	return name, nil
}

// vtNumber returns the number of the VT called name, or active if the
// name does not carry one.
func vtNumber(name string, active uint16) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "tty"))
	if err != nil || n <= 0 {
		return int(active)
	}
	return n
}
