package server_test

import (
	"testing"
	"time"

	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
	"golang.org/x/sys/unix"
)

// syncHandler answers wl_display.sync and rejects everything else.
type syncHandler struct {
	destroyed    []protocol.Kind
	disconnected int
}

func (h *syncHandler) Connected(*server.Client) {}

func (h *syncHandler) Dispatch(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if obj.Kind == protocol.KindDisplay && msg.Op() == protocol.DisplaySync {
		cb, err := c.NewObject(msg.ReadUint(), protocol.KindCallback, 1)
		if err != nil {
			return err
		}
		ev := c.Event(cb, protocol.EvCallbackDone)
		ev.WriteUint(7)
		c.Send(ev)
		c.Delete(cb)
		return nil
	}
	if obj.Kind == protocol.KindDisplay && msg.Op() == protocol.DisplayGetRegistry {
		_, err := c.NewObject(msg.ReadUint(), protocol.KindRegistry, 1)
		return err
	}
	return wire.Errorf(obj.ID, 0, "unsupported")
}

func (h *syncHandler) Destroyed(c *server.Client, obj *server.Object) {
	h.destroyed = append(h.destroyed, obj.Kind)
}

func (h *syncHandler) Disconnected(*server.Client) {
	h.disconnected++
}

type peer struct {
	conn *wire.Conn
	c    *server.Client
}

func connect(t *testing.T, srv *server.Server) peer {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	sconn, _ := wire.NewConn(fds[0])
	cconn, _ := wire.NewConn(fds[1])
	t.Cleanup(func() { cconn.Close() })

	c, err := srv.AddClient(sconn, wire.Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	return peer{conn: cconn, c: c}
}

func (p peer) send(t *testing.T, msg *wire.MessageBuilder) {
	t.Helper()
	if err := msg.Build(p.conn); err != nil {
		t.Fatal(err)
	}
	if err := p.conn.Flush(); err != nil {
		t.Fatal(err)
	}
}

func (p peer) recv(t *testing.T, l *loop.Loop) []*wire.MessageBuffer {
	t.Helper()
	l.Dispatch(100 * time.Millisecond)
	l.Dispatch(0)
	p.conn.Fill()

	var msgs []*wire.MessageBuffer
	for {
		msg, err := p.conn.Next()
		if err != nil {
			t.Fatal(err)
		}
		if msg == nil {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func setup(t *testing.T) (*loop.Loop, *server.Server, *syncHandler) {
	t.Helper()
	l, err := loop.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	h := new(syncHandler)
	srv, err := server.New(l, nil, h)
	if err != nil {
		t.Fatal(err)
	}
	return l, srv, h
}

func TestSync(t *testing.T) {
	l, srv, _ := setup(t)
	p := connect(t, srv)

	msg := wire.NewMessage(1, protocol.DisplaySync)
	msg.WriteUint(2)
	p.send(t, msg)

	msgs := p.recv(t, l)
	if len(msgs) != 2 {
		t.Fatalf("got %v messages, want done and delete_id", len(msgs))
	}
	if msgs[0].Sender() != 2 || msgs[0].Op() != protocol.EvCallbackDone || msgs[0].ReadUint() != 7 {
		t.Errorf("bad done event")
	}
	if msgs[1].Sender() != 1 || msgs[1].Op() != protocol.EvDisplayDeleteId || msgs[1].ReadUint() != 2 {
		t.Errorf("bad delete_id event")
	}
}

func TestProtocolErrorIsolation(t *testing.T) {
	l, srv, h := setup(t)
	bad := connect(t, srv)
	good := connect(t, srv)

	reg := wire.NewMessage(1, protocol.DisplayGetRegistry)
	reg.WriteUint(2)
	bad.send(t, reg)
	bad.send(t, wire.NewMessage(2, protocol.RegistryBind))

	msgs := bad.recv(t, l)
	if len(msgs) != 1 || msgs[0].Op() != protocol.EvDisplayError {
		t.Fatalf("expected a wl_display.error, got %v messages", len(msgs))
	}
	if id := msgs[0].ReadObject(); id != 2 {
		t.Errorf("error reported on object %v", id)
	}
	if bad.c.Alive() {
		t.Error("misbehaving client still connected")
	}
	if h.disconnected != 1 || len(h.destroyed) != 2 {
		t.Errorf("disconnected = %v, destroyed = %v", h.disconnected, h.destroyed)
	}
	if h.destroyed[0] != protocol.KindRegistry {
		t.Errorf("objects not destroyed newest first: %v", h.destroyed)
	}

	msg := wire.NewMessage(1, protocol.DisplaySync)
	msg.WriteUint(3)
	good.send(t, msg)
	if msgs := good.recv(t, l); len(msgs) != 2 {
		t.Fatalf("well-behaved client got %v messages", len(msgs))
	}
	if srv.Clients() != 1 {
		t.Fatalf("%v clients remain", srv.Clients())
	}
}

func TestInvalidObject(t *testing.T) {
	l, srv, _ := setup(t)
	p := connect(t, srv)

	p.send(t, wire.NewMessage(55, 0))
	msgs := p.recv(t, l)
	if len(msgs) != 1 || msgs[0].Op() != protocol.EvDisplayError {
		t.Fatal("no error for unknown object")
	}
	msgs[0].ReadObject()
	if code := msgs[0].ReadUint(); code != protocol.DisplayErrorInvalidObject {
		t.Errorf("code = %v", code)
	}
}
