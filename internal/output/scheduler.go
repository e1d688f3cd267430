package output

import (
	"time"

	"deedles.dev/wlt/internal/loop"
	"github.com/sirupsen/logrus"
)

// Scheduler decides when to render frames for an output. Presentation
// completion is the only thing that starts a new frame while one is in
// flight. An idle output renders as soon as damage arrives, except
// that with variable refresh enabled frames are held back to the
// mode's minimum frame interval.
type Scheduler struct {
	loop   *loop.Loop
	out    *Output
	render func()
	log    *logrus.Entry

	timer   *loop.Timer
	armed   bool
	queued  bool
	pending bool

	now func() time.Time
}

// NewScheduler creates a scheduler that calls render on l whenever a
// frame should be drawn for out.
func NewScheduler(l *loop.Loop, out *Output, render func()) (*Scheduler, error) {
	s := Scheduler{
		loop:   l,
		out:    out,
		render: render,
		log:    logrus.WithFields(logrus.Fields{"component": "scheduler", "output": out.Name}),
		now:    time.Now,
	}

	timer, err := l.AddTimer(s.expired)
	if err != nil {
		return nil, err
	}
	s.timer = timer

	return &s, nil
}

// Close releases the scheduler's timer.
func (s *Scheduler) Close() {
	s.timer.Close()
}

// Schedule requests a frame.
func (s *Scheduler) Schedule() {
	if s.out.InFlight() {
		s.pending = true
		return
	}
	if s.queued || s.armed {
		return
	}

	if s.out.VRR {
		wait := s.out.Mode.MinInterval() - s.now().Sub(s.out.LastPresented())
		if wait > 0 {
			s.armed = true
			err := s.timer.Reset(wait)
			if err != nil {
				s.log.WithError(err).Warn("arm frame timer")
				s.armed = false
				s.queue()
			}
			return
		}
	}

	s.queue()
}

func (s *Scheduler) queue() {
	s.queued = true
	s.loop.Idle(func() {
		s.queued = false
		s.render()
	})
}

func (s *Scheduler) expired() {
	s.armed = false
	s.Schedule()
}

// Presented records that the output displayed its in-flight frame and
// starts the next frame if one was requested in the meantime.
func (s *Scheduler) Presented(t time.Time) {
	s.out.Presented(t)
	if s.pending {
		s.pending = false
		s.Schedule()
	}
}

// Pending reports whether a frame is waiting on the current one.
func (s *Scheduler) Pending() bool {
	return s.pending
}
