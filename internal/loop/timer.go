package loop

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Timer is a one-shot timer backed by a timerfd.
type Timer struct {
	src *Source
}

// AddTimer creates a disarmed timer that calls cb on the loop when it
// expires.
func (l *Loop) AddTimer(cb func()) (*Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create timerfd: %w", err)
	}

	src, err := l.AddFD(fd, Readable, func(Event) {
		var buf [8]byte
		n, _ := unix.Read(fd, buf[:])
		if n == len(buf) {
			cb()
		}
	})
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	src.owned = true

	return &Timer{src: src}, nil
}

// Reset arms the timer to fire once after d. A non-positive d fires as
// soon as possible.
func (t *Timer) Reset(d time.Duration) error {
	if d <= 0 {
		d = 1
	}
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(d.Nanoseconds())}
	err := unix.TimerfdSettime(t.src.fd, 0, &spec, nil)
	if err != nil {
		return fmt.Errorf("arm timer: %w", err)
	}
	return nil
}

// Stop disarms the timer.
func (t *Timer) Stop() error {
	var spec unix.ItimerSpec
	err := unix.TimerfdSettime(t.src.fd, 0, &spec, nil)
	if err != nil {
		return fmt.Errorf("disarm timer: %w", err)
	}
	return nil
}

// Close disarms the timer and releases its descriptor.
func (t *Timer) Close() {
	t.src.Remove()
}
