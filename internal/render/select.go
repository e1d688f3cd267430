package render

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Selector owns the active backend and implements the fallback policy:
// the GPU is tried once at startup, a lost GPU device is
// re-initialized once, and after that the software backend is used
// for the rest of the process.
type Selector struct {
	backend  Backend
	reason   error
	fellBack bool
	losses   int
	log      *logrus.Entry

	newGPU func() (Backend, error)
}

// Select picks the backend to start with. If preferGPU is false, or
// the GPU backend fails to initialize, the software backend is used
// and the reason is recorded.
func Select(preferGPU bool) *Selector {
	return selectWith(preferGPU, func() (Backend, error) {
		g, err := NewGPU()
		if err != nil {
			return nil, err
		}
		return g, nil
	})
}

func selectWith(preferGPU bool, newGPU func() (Backend, error)) *Selector {
	s := Selector{
		log:    logrus.WithField("component", "render"),
		newGPU: newGPU,
	}

	if !preferGPU {
		s.reason = errors.New("GPU rendering disabled by configuration")
		s.useSoftware()
		return &s
	}

	g, err := newGPU()
	if err != nil {
		s.reason = err
		s.log.WithError(err).Warn("GPU renderer unavailable, using software")
		s.useSoftware()
		return &s
	}
	s.backend = g
	return &s
}

func (s *Selector) useSoftware() {
	s.fellBack = true
	s.backend = NewSoftware()
}

// Backend returns the active backend.
func (s *Selector) Backend() Backend {
	return s.backend
}

// Reason returns why the software backend is in use, if it is.
func (s *Selector) Reason() error {
	return s.reason
}

// Software reports whether the software backend is in use.
func (s *Selector) Software() bool {
	return s.fellBack
}

// Forget tells the active backend that src is gone so that anything
// cached for it is dropped right away.
func (s *Selector) Forget(src Source) {
	if f, ok := s.backend.(interface{ Forget(Source) }); ok {
		f.Forget(src)
	}
}

// Fallback permanently switches to the software backend.
func (s *Selector) Fallback(reason error) {
	if s.fellBack {
		return
	}
	if s.backend != nil {
		err := s.backend.Close()
		if err != nil {
			s.log.WithError(err).Warn("close renderer")
		}
	}
	s.reason = reason
	s.log.WithError(reason).Error("falling back to software rendering")
	s.useSoftware()
}

// Handle reacts to an error returned by the active backend and
// reports whether the frame should be retried with the new backend.
// Only ErrDeviceLost is acted upon: the first loss re-initializes the
// GPU and any further loss falls back to software.
func (s *Selector) Handle(err error) bool {
	if err == nil || !errors.Is(err, ErrDeviceLost) || s.fellBack {
		return false
	}

	s.losses++
	if s.losses > 1 {
		s.Fallback(err)
		return true
	}

	s.log.WithError(err).Error("GPU device lost, reinitializing")
	cerr := s.backend.Close()
	if cerr != nil {
		s.log.WithError(cerr).Warn("close renderer")
	}

	g, gerr := s.newGPU()
	if gerr != nil {
		s.backend = nil
		s.Fallback(errors.Join(err, gerr))
		return true
	}
	s.backend = g
	return true
}
