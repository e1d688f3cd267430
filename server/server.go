// Package server implements the compositor side of Wayland
// connections: accepting clients, tracking their objects and routing
// their requests to a Handler.
package server

import (
	"fmt"
	"iter"

	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/set"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
)

// Handler implements the protocol on behalf of a Server. All of its
// methods are called on the loop.
type Handler interface {
	// Connected is called for every new client before any of its
	// requests are dispatched.
	Connected(c *Client)

	// Dispatch handles a request sent to obj. A *wire.ProtocolError
	// disconnects the client.
	Dispatch(c *Client, obj *Object, msg *wire.MessageBuffer) error

	// Destroyed is called for every object that is still alive when
	// its client disconnects, newest first.
	Destroyed(c *Client, obj *Object)

	// Disconnected is called after all of a client's objects have been
	// destroyed.
	Disconnected(c *Client)
}

type Server struct {
	loop    *loop.Loop
	lis     *wire.Listener
	src     *loop.Source
	handler Handler
	clients set.Set[*Client]
	dirty   []*Client
	log     *logrus.Entry
}

// New creates a server that routes requests to h. If lis is not nil,
// it is registered with the loop and accepted connections become
// clients automatically.
func New(l *loop.Loop, lis *wire.Listener, h Handler) (*Server, error) {
	server := Server{
		loop:    l,
		lis:     lis,
		handler: h,
		clients: make(set.Set[*Client]),
		log:     logrus.WithField("component", "server"),
	}

	if lis != nil {
		src, err := l.AddFD(lis.Fd(), loop.Readable, func(loop.Event) { server.accept() })
		if err != nil {
			return nil, fmt.Errorf("watch listener: %w", err)
		}
		server.src = src
	}

	return &server, nil
}

func (server *Server) accept() {
	for {
		conn, creds, err := server.lis.Accept()
		if err != nil {
			server.log.WithError(err).Error("accept client")
			return
		}
		if conn == nil {
			return
		}

		_, err = server.AddClient(conn, creds)
		if err != nil {
			server.log.WithError(err).Error("add client")
			conn.Close()
		}
	}
}

// AddClient adds a client for an already connected socket.
func (server *Server) AddClient(conn *wire.Conn, creds wire.Credentials) (*Client, error) {
	c := newClient(server, conn, creds)
	src, err := server.loop.AddFD(conn.Fd(), loop.Readable, c.readable)
	if err != nil {
		return nil, fmt.Errorf("watch client: %w", err)
	}
	c.src = src

	server.clients.Add(c)
	server.handler.Connected(c)
	c.log.WithField("uid", creds.UID).Info("client connected")
	return c, nil
}

func (server *Server) removeClient(c *Client) {
	server.clients.Delete(c)
}

// Clients returns the number of connected clients.
func (server *Server) Clients() int {
	return server.clients.Len()
}

// All iterates over the connected clients.
func (server *Server) All() iter.Seq[*Client] {
	return server.clients.All()
}

func (server *Server) markDirty(c *Client) {
	if len(server.dirty) == 0 {
		server.loop.Idle(server.flush)
	}
	server.dirty = append(server.dirty, c)
}

func (server *Server) flush() {
	dirty := server.dirty
	server.dirty = nil

	seen := make(set.Set[*Client], len(dirty))
	for _, c := range dirty {
		if seen.Has(c) || c.dead {
			continue
		}
		seen.Add(c)
		c.flush()
	}
}

// Close disconnects every client and stops listening.
func (server *Server) Close() error {
	for c := range server.clients.All() {
		c.Destroy()
	}
	if server.src == nil {
		return nil
	}
	server.src.Remove()
	return server.lis.Close()
}
