package compositor

import (
	"image"
	"slices"
	"time"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

// XdgSurface is an xdg_surface. It carries the configure handshake
// shared by toplevels and popups.
type XdgSurface struct {
	obj     *server.Object
	surface arena.Handle
	wmBase  *server.Object

	role role
	view arena.Handle

	geometry        image.Rectangle
	pendingGeometry image.Rectangle
	geometrySet     bool

	// initialized is set by the initial commit, which is answered
	// with the first configure.
	initialized bool

	// configured is set once the client has acked a configure.
	configured bool

	// serials are the configures that haven't been acked yet.
	serials []uint32

	acked      uint32
	ackPending bool
}

// Geometry returns the window geometry of xs in surface coordinates.
// Without an explicit geometry it is the extent of the surface tree.
func (s *State) xdgGeometry(xs *XdgSurface) image.Rectangle {
	surf := lookup(&s.surfaces, xs.surface)
	if surf == nil {
		return image.Rectangle{}
	}
	bounds := s.treeBounds(surf, image.Point{})
	if xs.geometry.Empty() {
		return bounds
	}
	if bounds.Empty() {
		return xs.geometry
	}
	return xs.geometry.Intersect(bounds)
}

// sendConfigure sends xdg_surface.configure with a new serial and
// returns it.
func (s *State) sendConfigure(xs *XdgSurface) uint32 {
	serial := s.nextSerial()
	xs.serials = append(xs.serials, serial)

	c := xs.obj.Client()
	ev := c.Event(xs.obj, protocol.EvXdgSurfaceConfigure)
	ev.WriteUint(serial)
	c.Send(ev)
	return serial
}

// xdgCommit applies the double-buffered xdg_surface state when its
// surface is committed.
func (s *State) xdgCommit(xs *XdgSurface) (acked uint32, ok bool) {
	if xs.geometrySet {
		xs.geometry, xs.geometrySet = xs.pendingGeometry, false
	}
	if !xs.ackPending {
		return 0, false
	}
	xs.ackPending = false
	return xs.acked, true
}

func (s *State) wmBaseRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.XdgWmBaseDestroy:
		for _, xs := range s.xdgSurfaces.All() {
			if (*xs).wmBase == obj {
				return wire.Errorf(obj.ID, protocol.XdgWmBaseErrorDefunctSurfaces, "%v destroyed before its surfaces", obj)
			}
		}
		s.destroy(c, obj)

	case protocol.XdgWmBaseCreatePositioner:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		pobj, err := c.NewObject(id, protocol.KindXdgPositioner, obj.Version)
		if err != nil {
			return err
		}
		pobj.Handle = s.positioners.Insert(new(Positioner))

	case protocol.XdgWmBaseGetXdgSurface:
		id := msg.ReadUint()
		sid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		surf, _ := s.surfaceArg(c, sid)
		if surf == nil {
			return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a wl_surface", sid)
		}
		if surf.role != roleNone && surf.role != roleToplevel && surf.role != rolePopup {
			return wire.Errorf(obj.ID, protocol.XdgWmBaseErrorRole, "%v already has the %v role", surf.obj, surf.role)
		}
		if surf.xdg.Valid() {
			return wire.Errorf(obj.ID, protocol.XdgWmBaseErrorRole, "%v already has an xdg_surface", surf.obj)
		}
		if surf.current.buffer != nil || (surf.pending.attached && surf.pending.buffer != nil) {
			return wire.Errorf(obj.ID, protocol.XdgWmBaseErrorInvalidSurfaceState, "%v already has a buffer", surf.obj)
		}

		xobj, err := c.NewObject(id, protocol.KindXdgSurface, obj.Version)
		if err != nil {
			return err
		}
		h := s.xdgSurfaces.Insert(&XdgSurface{
			obj:     xobj,
			surface: surf.handle,
			wmBase:  obj,
		})
		xobj.Handle = h
		surf.xdg = h

	case protocol.XdgWmBasePong:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		s.pong(c, serial)
	}
	return nil
}

func (s *State) xdgSurfaceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	xs := lookup(&s.xdgSurfaces, obj.Handle)
	if xs == nil {
		return wire.Errorf(obj.ID, protocol.DisplayErrorImplementation, "xdg_surface is gone")
	}
	surf := lookup(&s.surfaces, xs.surface)

	switch msg.Op() {
	case protocol.XdgSurfaceDestroy:
		if xs.view.Valid() {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorDefunctRoleObject, "%v destroyed before its %v", obj, xs.role)
		}
		s.destroy(c, obj)

	case protocol.XdgSurfaceGetToplevel:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if xs.role != roleNone {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorAlreadyConstructed, "%v already is an %v", obj, xs.role)
		}
		if surf == nil || !surf.setRole(roleToplevel) {
			return wire.Errorf(xs.wmBase.ID, protocol.XdgWmBaseErrorRole, "surface can't become a toplevel")
		}
		tobj, err := c.NewObject(id, protocol.KindXdgToplevel, obj.Version)
		if err != nil {
			return err
		}
		s.newWindow(tobj, xs, surf)

	case protocol.XdgSurfaceGetPopup:
		id := msg.ReadUint()
		pid := msg.ReadObject()
		posid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if xs.role != roleNone {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorAlreadyConstructed, "%v already is an %v", obj, xs.role)
		}
		if surf == nil || !surf.setRole(rolePopup) {
			return wire.Errorf(xs.wmBase.ID, protocol.XdgWmBaseErrorRole, "surface can't become a popup")
		}

		var parent *XdgSurface
		if pid != 0 {
			pobj := c.Object(pid)
			if pobj == nil || pobj.Kind != protocol.KindXdgSurface {
				return wire.Errorf(xs.wmBase.ID, protocol.XdgWmBaseErrorInvalidPopupParent, "%v is not an xdg_surface", pid)
			}
			parent = lookup(&s.xdgSurfaces, pobj.Handle)
		}
		pos, err := s.positionerArg(c, xs.wmBase, posid)
		if err != nil {
			return err
		}

		pobj, err := c.NewObject(id, protocol.KindXdgPopup, obj.Version)
		if err != nil {
			return err
		}
		s.newPopup(pobj, xs, surf, parent, pos)

	case protocol.XdgSurfaceSetWindowGeometry:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if xs.role == roleNone {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorNotConstructed, "%v has no role", obj)
		}
		if w <= 0 || h <= 0 {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorInvalidSize, "invalid window geometry %vx%v", w, h)
		}
		xs.pendingGeometry = image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
		xs.geometrySet = true

	case protocol.XdgSurfaceAckConfigure:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if xs.role == roleNone {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorNotConstructed, "%v has no role", obj)
		}
		i := slices.Index(xs.serials, serial)
		if i < 0 {
			return wire.Errorf(obj.ID, protocol.XdgSurfaceErrorInvalidSerial, "unknown configure serial %v", serial)
		}
		xs.serials = xs.serials[i+1:]
		xs.configured = true
		xs.acked, xs.ackPending = serial, true

		if xs.role == roleToplevel {
			if w := lookup(&s.windows, xs.view); w != nil {
				w.ack(serial)
			}
		}
	}
	return nil
}

func (s *State) destroyXdgSurface(h arena.Handle) {
	xs, ok := s.xdgSurfaces.Remove(h)
	if !ok {
		return
	}
	if surf := lookup(&s.surfaces, xs.surface); surf != nil && surf.xdg == h {
		surf.xdg = arena.Handle{}
	}
}

// pingClients checks that the client with keyboard focus still
// answers pings.
func (s *State) pingClients() {
	defer s.ping.Reset(pingInterval)

	focus := lookup(&s.surfaces, s.seat.focus)
	if focus == nil {
		return
	}
	c := focus.obj.Client()
	cd := data(c)
	if len(cd.wmBases) == 0 {
		return
	}

	if cd.pingSerial != 0 {
		if !cd.unresponsive {
			cd.unresponsive = true
			c.Log().WithField("since", cd.pingSent).Warn("client is not responding")
		}
		return
	}

	cd.pingSerial = s.nextSerial()
	cd.pingSent = time.Now()
	ev := c.Event(cd.wmBases[0], protocol.EvXdgWmBasePing)
	ev.WriteUint(cd.pingSerial)
	c.Send(ev)
}

func (s *State) pong(c *server.Client, serial uint32) {
	cd := data(c)
	if serial != cd.pingSerial {
		return
	}
	cd.pingSerial = 0
	if cd.unresponsive {
		cd.unresponsive = false
		c.Log().WithField("after", time.Since(cd.pingSent)).Info("client is responding again")
	}
}
