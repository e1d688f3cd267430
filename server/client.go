package server

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"deedles.dev/wlt/internal/debug"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
)

// Client is one connection to the compositor.
type Client struct {
	// Data is free for the Handler to use.
	Data any

	server  *Server
	conn    *wire.Conn
	src     *loop.Source
	creds   wire.Credentials
	objects map[uint32]*Object
	seq     uint64
	nextID  uint32
	dead    bool
	log     *logrus.Entry
}

func newClient(server *Server, conn *wire.Conn, creds wire.Credentials) *Client {
	c := Client{
		server:  server,
		conn:    conn,
		creds:   creds,
		objects: make(map[uint32]*Object),
		nextID:  firstServerID,
		log: server.log.WithFields(logrus.Fields{
			"client": conn.Fd(),
			"pid":    creds.PID,
		}),
	}
	c.insert(&Object{ID: 1, Kind: protocol.KindDisplay, Version: 1})
	return &c
}

// Credentials returns the identity of the connected process.
func (c *Client) Credentials() wire.Credentials {
	return c.creds
}

// Log returns a logger scoped to the client.
func (c *Client) Log() *logrus.Entry {
	return c.log
}

// Alive reports whether the client is still connected.
func (c *Client) Alive() bool {
	return !c.dead
}

// Display returns the client's wl_display object.
func (c *Client) Display() *Object {
	return c.objects[1]
}

func (c *Client) insert(obj *Object) {
	c.seq++
	obj.seq = c.seq
	obj.client = c
	c.objects[obj.ID] = obj
}

// Object returns the live object with the given ID, or nil.
func (c *Client) Object(id uint32) *Object {
	return c.objects[id]
}

// NewObject registers a client-allocated object ID.
func (c *Client) NewObject(id uint32, kind protocol.Kind, version uint32) (*Object, error) {
	if id == 0 || id >= firstServerID {
		return nil, wire.Errorf(1, protocol.DisplayErrorInvalidObject, "invalid new id %v", id)
	}
	if _, ok := c.objects[id]; ok {
		return nil, wire.Errorf(1, protocol.DisplayErrorInvalidObject, "id %v already in use", id)
	}

	obj := Object{ID: id, Kind: kind, Version: version}
	c.insert(&obj)
	return &obj, nil
}

// NewServerObject allocates an ID from the server's range for an
// object that the compositor creates, such as a wl_data_offer.
func (c *Client) NewServerObject(kind protocol.Kind, version uint32) *Object {
	for {
		id := c.nextID
		c.nextID++
		if c.nextID == 0 {
			c.nextID = firstServerID
		}
		if _, ok := c.objects[id]; ok {
			continue
		}

		obj := Object{ID: id, Kind: kind, Version: version}
		c.insert(&obj)
		return &obj
	}
}

// Delete removes obj from the client and, for client-allocated IDs,
// tells the client that the ID can be reused.
func (c *Client) Delete(obj *Object) {
	if obj == nil || obj.dead || c.objects[obj.ID] != obj {
		return
	}
	obj.dead = true
	delete(c.objects, obj.ID)

	if obj.ID < firstServerID && !c.dead {
		ev := c.Event(c.Display(), protocol.EvDisplayDeleteId)
		ev.WriteUint(obj.ID)
		c.Send(ev)
	}
}

// Event starts building an event sent from obj.
func (c *Client) Event(obj *Object, op uint16) *wire.MessageBuilder {
	msg := wire.NewMessage(obj.ID, op)
	msg.Method = obj.Kind.Interface().Event(op)
	return msg
}

// Send queues msg to be sent to the client. Messages are written out
// when the loop goes idle.
func (c *Client) Send(msg *wire.MessageBuilder) {
	if c.dead {
		return
	}

	if debug.Enabled() {
		if obj := c.objects[msg.Sender()]; obj != nil {
			debug.Printf(" -> %v", msg.Debug(obj.String()))
		}
	}

	err := msg.Build(c.conn)
	if err != nil {
		c.log.WithError(err).Error("queue event")
		if errors.Is(err, wire.ErrBufferFull) {
			c.server.loop.Idle(c.Destroy)
		}
		return
	}
	c.server.markDirty(c)
}

// PostError sends a fatal protocol error to the client and then
// disconnects it.
func (c *Client) PostError(perr *wire.ProtocolError) {
	if c.dead {
		return
	}

	c.log.WithFields(logrus.Fields{
		"object": perr.ObjectID,
		"code":   perr.Code,
	}).Warn(perr.Message)

	ev := c.Event(c.Display(), protocol.EvDisplayError)
	ev.WriteObject(perr.ObjectID)
	ev.WriteUint(perr.Code)
	ev.WriteString(perr.Message)
	c.Send(ev)
	c.flush()
	c.Destroy()
}

func (c *Client) readable(ev loop.Event) {
	if ev.Has(loop.Writable) {
		c.flush()
	}
	if ev.Has(loop.Readable) {
		err := c.conn.Fill()
		dispatchErr := c.dispatchAll()
		if dispatchErr != nil {
			c.fail(dispatchErr)
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.WithError(err).Debug("read")
			}
			c.Destroy()
			return
		}
	}
	if ev.Has(loop.Hangup) || ev.Has(loop.Error) {
		c.Destroy()
	}
}

func (c *Client) fail(err error) {
	var perr *wire.ProtocolError
	if errors.As(err, &perr) {
		c.PostError(perr)
		return
	}

	c.log.WithError(err).Error("dispatch failed")
	c.PostError(wire.Errorf(1, protocol.DisplayErrorImplementation, "%v", err))
}

func (c *Client) dispatchAll() error {
	for !c.dead {
		msg, err := c.conn.Next()
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}

		err = c.dispatch(msg)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) dispatch(msg *wire.MessageBuffer) error {
	obj := c.objects[msg.Sender()]
	if obj == nil {
		return wire.Errorf(1, protocol.DisplayErrorInvalidObject, "invalid object %v", msg.Sender())
	}

	iface := obj.Kind.Interface()
	method, ok := iface.Request(msg.Op())
	if !ok {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidMethod, "invalid method %v, object %v", msg.Op(), obj)
	}

	err := c.server.handler.Dispatch(c, obj, msg)
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(obj.String(), method))
	}
	if err != nil {
		return err
	}
	return msg.Err()
}

func (c *Client) flush() {
	if c.dead {
		return
	}

	err := c.conn.Flush()
	switch {
	case errors.Is(err, wire.ErrWouldBlock):
		c.src.SetEvents(loop.Readable | loop.Writable)
	case err != nil:
		c.log.WithError(err).Debug("flush")
		if !c.dead {
			c.server.loop.Idle(c.Destroy)
		}
	default:
		c.src.SetEvents(loop.Readable)
	}
}

// Destroy disconnects the client, tearing down every object it owns in
// reverse order of creation. It is safe to call more than once.
func (c *Client) Destroy() {
	if c.dead {
		return
	}
	c.dead = true

	objs := make([]*Object, 0, len(c.objects))
	for _, obj := range c.objects {
		objs = append(objs, obj)
	}
	slices.SortFunc(objs, func(a, b *Object) int { return cmp.Compare(b.seq, a.seq) })
	for _, obj := range objs {
		if obj.dead {
			continue
		}
		c.server.handler.Destroyed(c, obj)
		obj.dead = true
	}
	c.objects = nil

	c.server.handler.Disconnected(c)
	c.server.removeClient(c)

	c.src.Remove()
	err := c.conn.Close()
	if err != nil {
		c.log.WithError(err).Debug("close connection")
	}
	c.log.Info("client disconnected")
}

func (c *Client) String() string {
	return fmt.Sprintf("client(fd %v, pid %v)", c.conn.Fd(), c.creds.PID)
}
