package wire

import (
	"errors"
	"fmt"
	"io"

	"deedles.dev/wlt/internal/bin"
	"golang.org/x/sys/unix"
)

const (
	// MaxMessageSize is the largest message, header included, that
	// the wire format can carry.
	MaxMessageSize = 4096

	headerSize = 8
	maxFDsOut  = 28
	maxFDsIn   = 28
	maxOut     = 4 << 20
)

// Conn is a non-blocking Wayland connection. Incoming data is buffered
// by Fill and split into messages by Next. Outgoing messages are
// queued by MessageBuilder.Build and written by Flush.
type Conn struct {
	fd     int
	in     []byte
	fds    []int
	out    []byte
	outFDs []int
	closed bool
}

// NewConn wraps a connected Unix stream socket. The socket is switched
// to non-blocking mode and the Conn takes ownership of it.
func NewConn(fd int) (*Conn, error) {
	err := unix.SetNonblock(fd, true)
	if err != nil {
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	return &Conn{fd: fd}, nil
}

// Fd returns the underlying socket.
func (c *Conn) Fd() int {
	return c.fd
}

// Close closes the socket along with any file descriptors that were
// received but never consumed or queued but never sent.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	for _, fd := range c.fds {
		unix.Close(fd)
	}
	for _, fd := range c.outFDs {
		unix.Close(fd)
	}
	c.fds, c.outFDs = nil, nil
	return unix.Close(c.fd)
}

// Fill reads everything currently available on the socket. It returns
// io.EOF once the peer has hung up.
func (c *Conn) Fill() error {
	buf := make([]byte, MaxMessageSize)
	oob := make([]byte, unix.CmsgSpace(maxFDsIn*4))

	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC)
		if err != nil {
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.EAGAIN):
				return nil
			}
			return fmt.Errorf("recvmsg: %w", err)
		}

		if oobn > 0 {
			err := c.readFDs(oob[:oobn])
			if err != nil {
				return err
			}
		}
		if n == 0 {
			return io.EOF
		}
		c.in = append(c.in, buf[:n]...)
	}
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

// Next returns the next complete message that has been read, or nil if
// there is not one yet.
func (c *Conn) Next() (*MessageBuffer, error) {
	if len(c.in) < headerSize {
		return nil, nil
	}

	sender := bin.Value[uint32]([4]byte(c.in[0:4]))
	so := bin.Value[uint32]([4]byte(c.in[4:8]))
	size := int(so >> 16)
	if size < headerSize || size%4 != 0 {
		return nil, Errorf(sender, 0, "invalid message size %v", size)
	}
	if len(c.in) < size {
		return nil, nil
	}

	data := make([]byte, size-headerSize)
	copy(data, c.in[headerSize:size])
	c.in = c.in[size:]
	if len(c.in) == 0 {
		c.in = nil
	}

	return newMessageBuffer(c, sender, uint16(so&0xFFFF), uint16(size), data), nil
}

func (c *Conn) popFD() (int, bool) {
	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// Pending reports whether there is queued outgoing data.
func (c *Conn) Pending() bool {
	return len(c.out) > 0
}

func (c *Conn) queue(data []byte, fds []int) error {
	if len(c.out)+len(data) > maxOut {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return ErrBufferFull
	}
	c.out = append(c.out, data...)
	c.outFDs = append(c.outFDs, fds...)
	return nil
}

// Flush writes as much queued data as the socket will accept. It
// returns ErrWouldBlock if some of it is still queued afterwards.
func (c *Conn) Flush() error {
	for len(c.out) > 0 {
		nfds := min(len(c.outFDs), maxFDsOut)
		var oob []byte
		if nfds > 0 {
			oob = unix.UnixRights(c.outFDs[:nfds]...)
		}

		n, err := unix.SendmsgN(c.fd, c.out, oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		if err != nil {
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.EAGAIN):
				return ErrWouldBlock
			}
			return fmt.Errorf("sendmsg: %w", err)
		}

		for _, fd := range c.outFDs[:nfds] {
			unix.Close(fd)
		}
		c.outFDs = c.outFDs[nfds:]
		c.out = c.out[n:]
	}

	c.out = nil
	return nil
}
