package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"deedles.dev/wlt/internal/loop"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const maxPending = 4 << 20

// Server answers IPC requests on the compositor's loop. state is called
// whenever a client needs a fresh snapshot.
type Server struct {
	loop  *loop.Loop
	path  string
	fd    int
	src   *loop.Source
	state func() State
	conns map[*conn]struct{}
	log   *logrus.Entry
}

type conn struct {
	server     *Server
	fd         int
	src        *loop.Source
	in         []byte
	out        []byte
	subscribed bool
	closed     bool
}

// NewServer listens on path, replacing any stale socket there.
func NewServer(l *loop.Loop, path string, state func() State) (*Server, error) {
	fd, err := listenUnix(path)
	if err != nil {
		return nil, err
	}

	s := Server{
		loop:  l,
		path:  path,
		fd:    fd,
		state: state,
		conns: make(map[*conn]struct{}),
		log:   logrus.WithFields(logrus.Fields{"component": "ipc", "socket": path}),
	}
	s.src, err = l.AddFD(fd, loop.Readable, func(loop.Event) { s.accept() })
	if err != nil {
		unix.Close(fd)
		os.Remove(path)
		return nil, err
	}

	s.log.Info("IPC socket ready")
	return &s, nil
}

func listenUnix(path string) (int, error) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return -1, fmt.Errorf("remove stale socket: %w", err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("create socket: %w", err)
	}
	err = unix.Bind(fd, &unix.SockaddrUnix{Name: path})
	if err == nil {
		err = unix.Listen(fd, 16)
	}
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen on %q: %w", path, err)
	}
	return fd, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Subscribers returns the number of subscribed connections.
func (s *Server) Subscribers() int {
	var n int
	for c := range s.conns {
		if c.subscribed {
			n++
		}
	}
	return n
}

func (s *Server) accept() {
	for {
		fd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				s.log.WithError(err).Warn("accept IPC connection")
			}
			return
		}

		c := conn{server: s, fd: fd}
		c.src, err = s.loop.AddFD(fd, loop.Readable, c.ready)
		if err != nil {
			s.log.WithError(err).Warn("watch IPC connection")
			unix.Close(fd)
			continue
		}
		s.conns[&c] = struct{}{}
	}
}

func (c *conn) ready(ev loop.Event) {
	if ev.Has(loop.Writable) {
		if !c.flush() {
			return
		}
	}
	if ev.Has(loop.Readable) || ev.Has(loop.Hangup) || ev.Has(loop.Error) {
		c.read()
	}
}

func (c *conn) read() {
	var buf [4096]byte
	for {
		n, err := unix.Read(c.fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			c.close()
			return
		}
		if n == 0 {
			c.close()
			return
		}
		c.in = append(c.in, buf[:n]...)
	}

	for {
		payload, rest, err := split(c.in)
		if err != nil {
			c.server.log.WithError(err).Warn("bad IPC frame")
			c.close()
			return
		}
		if payload == nil {
			break
		}
		c.in = rest
		c.handle(payload)
		if c.closed {
			return
		}
	}
}

func (c *conn) handle(payload []byte) {
	var req Message
	err := json.Unmarshal(payload, &req)
	if err != nil {
		c.send(Message{Type: TypeError, Error: fmt.Sprintf("malformed request: %v", err)})
		return
	}

	switch req.Type {
	case TypeGetState:
		c.send(StateMessage(c.server.state()))
	case TypeSubscribe:
		c.subscribed = true
		c.send(StateMessage(c.server.state()))
	default:
		c.send(Message{Type: TypeError, Error: fmt.Sprintf("unknown request %q", req.Type)})
	}
}

func (c *conn) send(msg Message) {
	if c.closed {
		return
	}
	frame, err := Encode(msg)
	if err != nil {
		c.server.log.WithError(err).Error("encode IPC message")
		return
	}
	if len(c.out)+len(frame) > maxPending {
		c.server.log.Warn("IPC client is not reading, disconnecting")
		c.close()
		return
	}
	c.out = append(c.out, frame...)
	c.flush()
}

// flush writes as much queued output as the socket accepts. It reports
// whether the connection is still open.
func (c *conn) flush() bool {
	for len(c.out) > 0 {
		n, err := unix.Write(c.fd, c.out)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			c.close()
			return false
		}
		c.out = c.out[n:]
	}

	events := loop.Readable
	if len(c.out) > 0 {
		events |= loop.Writable
	}
	c.src.SetEvents(events)
	return true
}

func (c *conn) close() {
	if c.closed {
		return
	}
	c.closed = true
	delete(c.server.conns, c)
	c.src.Remove()
	unix.Close(c.fd)
}

// Publish sends msg to every subscriber.
func (s *Server) Publish(msg Message) {
	for c := range s.conns {
		if c.subscribed {
			c.send(msg)
		}
	}
}

// Close disconnects every client and removes the socket.
func (s *Server) Close() error {
	for c := range s.conns {
		c.close()
	}
	s.src.Remove()
	err := unix.Close(s.fd)
	os.Remove(s.path)
	return err
}
