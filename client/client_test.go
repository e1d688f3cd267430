package wl_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	wl "deedles.dev/wlt/client"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
	"golang.org/x/sys/unix"
)

func pair(t *testing.T) (*wl.Client, *wire.Conn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	cc, err := wire.NewConn(fds[0])
	if err != nil {
		t.Fatal(err)
	}
	sc, err := wire.NewConn(fds[1])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sc.Close() })

	c := wl.NewClient(cc)
	t.Cleanup(func() { c.Close() })
	return c, sc
}

func serverRead(t *testing.T, sc *wire.Conn) *wire.MessageBuffer {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg, err := sc.Next()
		if err != nil {
			t.Fatal(err)
		}
		if msg != nil {
			return msg
		}
		fds := []unix.PollFd{{Fd: int32(sc.Fd()), Events: unix.POLLIN}}
		unix.Poll(fds, 100)
		err = sc.Fill()
		if err != nil {
			t.Fatal(err)
		}
	}
	t.Fatal("no message")
	return nil
}

func serverSend(t *testing.T, sc *wire.Conn, msg *wire.MessageBuilder) {
	t.Helper()
	err := msg.Build(sc)
	if err != nil {
		t.Fatal(err)
	}
	err = sc.Flush()
	if err != nil {
		t.Fatal(err)
	}
}

func clientDispatch(t *testing.T, c *wl.Client) {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(c.Fd()), Events: unix.POLLIN}}
	unix.Poll(fds, 100)
	c.Dispatch()
}

func TestRegistry(t *testing.T) {
	c, sc := pair(t)

	reg := c.Display().GetRegistry()
	var announced []string
	reg.OnGlobal = func(g wl.Global) { announced = append(announced, g.Interface) }
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	req := serverRead(t, sc)
	if req.Sender() != 1 || req.Op() != protocol.DisplayGetRegistry {
		t.Fatalf("request = %v.%v", req.Sender(), req.Op())
	}
	regID := req.ReadUint()
	if regID != reg.ID() {
		t.Fatalf("registry id = %v, want %v", regID, reg.ID())
	}

	for i, name := range []string{"wl_compositor", "wl_shm"} {
		ev := wire.NewMessage(regID, protocol.EvRegistryGlobal)
		ev.WriteUint(uint32(i + 1))
		ev.WriteString(name)
		ev.WriteUint(4)
		serverSend(t, sc, ev)
	}
	clientDispatch(t, c)

	if len(announced) != 2 || announced[1] != "wl_shm" {
		t.Fatalf("announced = %v", announced)
	}
	g, ok := reg.Find("wl_shm")
	if !ok || g.Name != 2 {
		t.Fatalf("Find = %+v, %v", g, ok)
	}

	g, _ = reg.Find("wl_compositor")
	comp := wl.Bind[wl.Compositor](reg, g, 6)
	if comp.Version() != 4 {
		t.Errorf("bound version %v, want 4", comp.Version())
	}
	c.Flush()

	bind := serverRead(t, sc)
	if bind.Op() != protocol.RegistryBind {
		t.Fatalf("op = %v", bind.Op())
	}
	name := bind.ReadUint()
	nid := bind.ReadNewID()
	if name != 1 || nid.Interface != "wl_compositor" || nid.Version != 4 || nid.ID != comp.ID() {
		t.Errorf("bind(%v, %+v)", name, nid)
	}
}

func TestDeleteID(t *testing.T) {
	c, sc := pair(t)

	var done uint32
	cb := c.Display().Sync(func(data uint32) { done = data })
	c.Flush()
	serverRead(t, sc)

	ev := wire.NewMessage(cb.ID(), protocol.EvCallbackDone)
	ev.WriteUint(42)
	serverSend(t, sc, ev)
	del := wire.NewMessage(1, protocol.EvDisplayDeleteId)
	del.WriteUint(cb.ID())
	serverSend(t, sc, del)
	clientDispatch(t, c)

	if done != 42 {
		t.Fatalf("done = %v", done)
	}

	next := c.Display().GetRegistry()
	if next.ID() != cb.ID() {
		t.Errorf("id %v not reused, got %v", cb.ID(), next.ID())
	}
}

func TestProtocolError(t *testing.T) {
	c, sc := pair(t)

	var reported *wire.ProtocolError
	c.Display().OnError = func(err *wire.ProtocolError) { reported = err }

	ev := wire.NewMessage(1, protocol.EvDisplayError)
	ev.WriteObject(3)
	ev.WriteUint(protocol.DisplayErrorInvalidMethod)
	ev.WriteString("bad request")
	serverSend(t, sc, ev)
	clientDispatch(t, c)

	var perr *wire.ProtocolError
	if !errors.As(c.Err(), &perr) {
		t.Fatalf("Err() = %v", c.Err())
	}
	if perr.ObjectID != 3 || perr.Message != "bad request" {
		t.Errorf("error = %+v", perr)
	}
	if reported == nil {
		t.Error("OnError not called")
	}
}

func TestImageBuffer(t *testing.T) {
	c, _ := pair(t)
	reg := c.Display().GetRegistry()
	shm := wl.Bind[wl.Shm](reg, wl.Global{Name: 1, Interface: "wl_shm", Version: 1}, 1)

	tests := []struct {
		name   string
		format uint32
	}{
		{name: "ARGB8888", format: protocol.ShmFormatARGB8888},
		{name: "XRGB8888", format: protocol.ShmFormatXRGB8888},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf, err := wl.NewImageBuffer(shm, 4, 2, test.format)
			if err != nil {
				t.Fatal(err)
			}
			defer buf.Destroy()

			img := buf.Image()
			if img.Bounds() != image.Rect(0, 0, 4, 2) {
				t.Fatalf("bounds = %v", img.Bounds())
			}
			img.Set(3, 1, color.NRGBA{R: 0xFF, A: 0xFF})
			r, g, b, a := img.At(3, 1).RGBA()
			if r != 0xFFFF || g != 0 || b != 0 || a != 0xFFFF {
				t.Errorf("pixel = %v, %v, %v, %v", r, g, b, a)
			}
		})
	}
}
