// Package loop implements the single-threaded readiness loop that
// drives the compositor. Every callback registered with a Loop runs on
// the goroutine that calls Dispatch or Run, one at a time, so state
// touched only from callbacks needs no locking.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deedles.dev/wlt/internal/cq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Event is a set of readiness conditions.
type Event uint32

const (
	Readable Event = unix.EPOLLIN
	Writable Event = unix.EPOLLOUT
	Hangup   Event = unix.EPOLLHUP | unix.EPOLLRDHUP
	Error    Event = unix.EPOLLERR
)

func (ev Event) Has(o Event) bool {
	return ev&o != 0
}

const maxEvents = 64

// Loop multiplexes file descriptors, timers, idle callbacks and
// callbacks posted from other goroutines.
type Loop struct {
	epfd    int
	wake    int
	sources map[int]*Source
	idle    []func()
	inbox   *cq.Queue[func()]
	stopped bool
	events  [maxEvents]unix.EpollEvent
	log     *logrus.Entry
}

// New creates a Loop.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create epoll: %w", err)
	}

	wake, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("create eventfd: %w", err)
	}

	l := Loop{
		epfd:    epfd,
		wake:    wake,
		sources: make(map[int]*Source),
		log:     logrus.WithField("component", "loop"),
	}
	l.inbox = cq.New[func()](l.notify)

	_, err = l.AddFD(wake, Readable, func(Event) { l.drainInbox() })
	if err != nil {
		l.Close()
		return nil, err
	}

	return &l, nil
}

// Close releases the loop's own descriptors. File descriptors that
// were registered with AddFD are not closed.
func (l *Loop) Close() error {
	for _, s := range l.sources {
		if s.owned {
			unix.Close(s.fd)
		}
	}
	l.sources = nil
	return errors.Join(unix.Close(l.wake), unix.Close(l.epfd))
}

// Source is a file descriptor registered with a Loop.
type Source struct {
	loop    *Loop
	fd      int
	events  Event
	cb      func(Event)
	removed bool
	owned   bool
}

// AddFD registers fd with the loop. cb is called with the ready
// conditions whenever any of events, or an error or hangup, occurs.
func (l *Loop) AddFD(fd int, events Event, cb func(Event)) (*Source, error) {
	if _, ok := l.sources[fd]; ok {
		return nil, fmt.Errorf("fd %v already registered", fd)
	}

	ev := unix.EpollEvent{Events: uint32(events), Fd: int32(fd)}
	err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	if err != nil {
		return nil, fmt.Errorf("add fd %v to epoll: %w", fd, err)
	}

	s := Source{loop: l, fd: fd, events: events, cb: cb}
	l.sources[fd] = &s
	return &s, nil
}

// Fd returns the registered file descriptor.
func (s *Source) Fd() int {
	return s.fd
}

// Events returns the conditions currently being watched.
func (s *Source) Events() Event {
	return s.events
}

// SetEvents changes the set of watched conditions.
func (s *Source) SetEvents(events Event) error {
	if s.removed {
		return nil
	}
	if events == s.events {
		return nil
	}

	ev := unix.EpollEvent{Events: uint32(events), Fd: int32(s.fd)}
	err := unix.EpollCtl(s.loop.epfd, unix.EPOLL_CTL_MOD, s.fd, &ev)
	if err != nil {
		return fmt.Errorf("modify fd %v: %w", s.fd, err)
	}
	s.events = events
	return nil
}

// Remove unregisters the source. Pending events for it in the current
// batch are dropped. It is safe to call Remove more than once.
func (s *Source) Remove() {
	if s.removed {
		return
	}
	s.removed = true

	l := s.loop
	if l.sources[s.fd] == s {
		delete(l.sources, s.fd)
	}
	err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, s.fd, nil)
	if err != nil && !errors.Is(err, unix.EBADF) && !errors.Is(err, unix.ENOENT) {
		l.log.WithError(err).WithField("fd", s.fd).Warn("remove fd from epoll")
	}
	if s.owned {
		unix.Close(s.fd)
	}
}

// Idle schedules f to run once after the current batch of events has
// been dispatched.
func (l *Loop) Idle(f func()) {
	l.idle = append(l.idle, f)
}

// Post schedules f to run on the loop. Unlike every other method, it
// may be called from any goroutine.
func (l *Loop) Post(f func()) {
	l.inbox.Add(f)
}

func (l *Loop) notify() {
	buf := [8]byte{1}
	_, err := unix.Write(l.wake, buf[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		l.log.WithError(err).Error("wake loop")
	}
}

func (l *Loop) drainInbox() {
	var buf [8]byte
	unix.Read(l.wake, buf[:])

	for _, f := range l.inbox.Get() {
		f()
	}
}

// Stop causes Run to return after the current batch.
func (l *Loop) Stop() {
	l.stopped = true
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	return l.stopped
}

// Dispatch waits up to timeout for events and dispatches one batch of
// them, followed by any idle callbacks. A negative timeout waits
// forever. Pending idle callbacks make the wait non-blocking.
func (l *Loop) Dispatch(timeout time.Duration) error {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout.Milliseconds())
	}
	if len(l.idle) > 0 {
		msec = 0
	}

	n, err := unix.EpollWait(l.epfd, l.events[:], msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			n = 0
		} else {
			return fmt.Errorf("epoll wait: %w", err)
		}
	}

	ready := make([]*Source, n)
	for i, ev := range l.events[:n] {
		ready[i] = l.sources[int(ev.Fd)]
	}
	for i, s := range ready {
		if s == nil || s.removed {
			continue
		}
		s.cb(Event(l.events[i].Events))
	}

	l.runIdle()
	return nil
}

func (l *Loop) runIdle() {
	idle := l.idle
	l.idle = nil
	for _, f := range idle {
		f()
	}
}

// Run dispatches events until Stop is called or ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Post(l.Stop) })
	defer stop()

	for !l.stopped {
		err := l.Dispatch(-1)
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}
