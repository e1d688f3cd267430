// Package wl is a small synchronous Wayland client. It is driven by
// whoever owns the connection: Dispatch reads and handles whatever
// events have arrived without blocking, and RoundTrip blocks until the
// server has processed every request sent so far.
package wl

import (
	"errors"
	"fmt"
	"io"
	"time"

	"deedles.dev/wlt/internal/debug"
	"deedles.dev/wlt/internal/objstore"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type proxy interface {
	base() *object
	dispatch(msg *wire.MessageBuffer)
}

type object struct {
	client  *Client
	id      uint32
	kind    protocol.Kind
	version uint32
	dead    bool
}

func (obj *object) base() *object {
	return obj
}

// ID returns the object's protocol ID.
func (obj *object) ID() uint32 {
	return obj.id
}

// Version returns the version the object was bound or created with.
func (obj *object) Version() uint32 {
	return obj.version
}

func (obj *object) String() string {
	return fmt.Sprintf("%v@%v", obj.kind, obj.id)
}

func (obj *object) request(op uint16) *wire.MessageBuilder {
	msg := wire.NewMessage(obj.id, op)
	msg.Method, _ = obj.kind.Interface().Request(op)
	return msg
}

func (obj *object) send(msg *wire.MessageBuilder) {
	obj.client.send(obj, msg)
}

// destroy sends a destructor request. The ID is only freed when the
// server acknowledges it with delete_id.
func (obj *object) destroy(op uint16) {
	if obj.dead {
		return
	}
	obj.send(obj.request(op))
	obj.dead = true
}

// Client is a connection to a Wayland server.
type Client struct {
	conn    *wire.Conn
	objects *objstore.Store[proxy]
	display *Display
	err     error
	log     *logrus.Entry
}

// Dial connects to the server named by the environment.
func Dial() (*Client, error) {
	conn, err := wire.Dial()
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn *wire.Conn) *Client {
	c := Client{
		conn:    conn,
		objects: objstore.New[proxy](1),
		log:     logrus.WithField("component", "client"),
	}
	c.display = &Display{}
	c.register(c.display, protocol.KindDisplay, 1)
	return &c
}

func (c *Client) register(p proxy, kind protocol.Kind, version uint32) {
	obj := p.base()
	obj.client = c
	obj.kind = kind
	obj.version = version
	obj.id = c.objects.Add(p)
}

func (c *Client) send(obj *object, msg *wire.MessageBuilder) {
	if c.err != nil {
		return
	}
	if obj.dead {
		c.log.WithField("object", obj).Warn("request on destroyed object")
		return
	}

	if debug.Enabled() {
		debug.Printf(" -> %v", msg.Debug(obj.String()))
	}
	err := msg.Build(c.conn)
	if err != nil {
		c.err = fmt.Errorf("queue request: %w", err)
	}
}

// Display returns the wl_display singleton.
func (c *Client) Display() *Display {
	return c.display
}

// Fd returns the connection's socket, for use with a poller.
func (c *Client) Fd() int {
	return c.conn.Fd()
}

// Err returns the error that broke the connection, if any. A protocol
// error sent by the server is returned as a *wire.ProtocolError.
func (c *Client) Err() error {
	return c.err
}

// Flush writes all queued requests, waiting for the socket to become
// writable if necessary.
func (c *Client) Flush() error {
	if c.err != nil {
		return c.err
	}
	for {
		err := c.conn.Flush()
		if !errors.Is(err, wire.ErrWouldBlock) {
			return err
		}
		err = c.poll(unix.POLLOUT, -1)
		if err != nil {
			return err
		}
	}
}

func (c *Client) poll(events int16, timeout time.Duration) error {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout.Milliseconds())
	}
	fds := []unix.PollFd{{Fd: int32(c.conn.Fd()), Events: events}}
	for {
		_, err := unix.Poll(fds, msec)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		return nil
	}
}

// Dispatch reads whatever has arrived and handles every complete event
// without blocking.
func (c *Client) Dispatch() error {
	if c.err != nil {
		return c.err
	}

	fillErr := c.conn.Fill()
	for c.err == nil {
		msg, err := c.conn.Next()
		if err != nil {
			c.err = err
			break
		}
		if msg == nil {
			break
		}
		c.dispatch(msg)
	}
	if c.err == nil && fillErr != nil {
		c.err = fillErr
	}
	return c.err
}

func (c *Client) dispatch(msg *wire.MessageBuffer) {
	p, ok := c.objects.Get(msg.Sender())
	if !ok {
		c.log.WithField("id", msg.Sender()).Debug("event for unknown object")
		return
	}
	obj := p.base()
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(obj.String(), obj.kind.Interface().Event(msg.Op())))
	}
	if obj.dead && obj.kind != protocol.KindDisplay {
		return
	}
	p.dispatch(msg)

	err := msg.Err()
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("decode %v.%v: %w", obj, obj.kind.Interface().Event(msg.Op()), err)
	}
}

// RoundTrip flushes outstanding requests and blocks until the server
// has answered a wl_display.sync sent after them.
func (c *Client) RoundTrip() error {
	var done bool
	c.display.Sync(func(uint32) { done = true })

	for !done {
		err := c.Flush()
		if err != nil {
			return err
		}
		err = c.poll(unix.POLLIN, -1)
		if err != nil {
			return err
		}
		err = c.Dispatch()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("server hung up: %w", err)
			}
			return err
		}
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
