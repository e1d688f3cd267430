package loop_test

import (
	"context"
	"testing"
	"time"

	"deedles.dev/wlt/internal/loop"
	"golang.org/x/sys/unix"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	if err != nil {
		t.Fatalf("create loop: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestReadable(t *testing.T) {
	l := newLoop(t)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	var got []byte
	_, err = l.AddFD(fds[0], loop.Readable, func(ev loop.Event) {
		buf := make([]byte, 16)
		n, _ := unix.Read(fds[0], buf)
		got = append(got, buf[:n]...)
	})
	if err != nil {
		t.Fatal(err)
	}

	unix.Write(fds[1], []byte("ping"))
	if err := l.Dispatch(time.Second); err != nil {
		t.Fatal(err)
	}
	if string(got) != "ping" {
		t.Fatalf("got %q", got)
	}
}

func TestRemovedSourceNotDispatched(t *testing.T) {
	l := newLoop(t)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	var a, b *loop.Source
	var calls int
	a, _ = l.AddFD(fds[0], loop.Readable, func(loop.Event) {
		calls++
		b.Remove()
		buf := make([]byte, 16)
		unix.Read(fds[0], buf)
	})
	b, _ = l.AddFD(fds[1], loop.Readable, func(loop.Event) {
		calls++
		a.Remove()
		buf := make([]byte, 16)
		unix.Read(fds[1], buf)
	})

	unix.Write(fds[0], []byte("x"))
	unix.Write(fds[1], []byte("y"))
	// Give both ends a chance to become readable in the same batch.
	time.Sleep(10 * time.Millisecond)

	if err := l.Dispatch(time.Second); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("got %v callbacks, want 1", calls)
	}
}

func TestTimer(t *testing.T) {
	l := newLoop(t)

	var fired int
	timer, err := l.AddTimer(func() { fired++ })
	if err != nil {
		t.Fatal(err)
	}
	defer timer.Close()

	timer.Reset(time.Millisecond)
	for i := 0; i < 5 && fired == 0; i++ {
		l.Dispatch(100 * time.Millisecond)
	}
	if fired != 1 {
		t.Fatalf("fired %v times, want 1", fired)
	}

	l.Dispatch(20 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("one-shot timer fired %v times", fired)
	}
}

func TestPostAndIdle(t *testing.T) {
	l := newLoop(t)

	var order []string
	go l.Post(func() {
		order = append(order, "post")
		l.Idle(func() {
			order = append(order, "idle")
			l.Stop()
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "post" || order[1] != "idle" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunCanceled(t *testing.T) {
	l := newLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}
}
