package compositor

import (
	"encoding/binary"
	"image"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

// configure is a toplevel configure that was sent but not yet acked.
type configure struct {
	serial uint32
	size   image.Point
	states windowStates
}

// windowStates are the toplevel states sent in a configure.
type windowStates struct {
	activated  bool
	maximized  bool
	fullscreen bool
	resizing   bool
	tiled      bool
}

func (st windowStates) encode(version uint32) []byte {
	var states []uint32
	if st.maximized {
		states = append(states, protocol.StateMaximized)
	}
	if st.fullscreen {
		states = append(states, protocol.StateFullscreen)
	}
	if st.resizing {
		states = append(states, protocol.StateResizing)
	}
	if st.activated {
		states = append(states, protocol.StateActivated)
	}
	if st.tiled && version >= 2 {
		states = append(states,
			protocol.StateTiledLeft,
			protocol.StateTiledRight,
			protocol.StateTiledTop,
			protocol.StateTiledBottom,
		)
	}

	buf := make([]byte, 0, 4*len(states))
	for _, v := range states {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

// Window is an xdg_toplevel and everything the window manager knows
// about it.
type Window struct {
	obj        *server.Object
	handle     arena.Handle
	surface    arena.Handle
	xdg        arena.Handle
	decoration *server.Object
	parent     arena.Handle

	title string
	appID string

	mapped    bool
	workspace int

	floating   bool
	fullscreen bool
	maximized  bool
	ssd        bool

	// frame is the area the window manager gave the window,
	// including decorations. float is where the window goes when
	// it's floating.
	frame image.Rectangle
	float image.Rectangle

	// configures have been sent and not acked, in order. acked is
	// the one acked most recently, which takes effect on the next
	// commit.
	configures []configure
	acked      *configure
	last       configure
	sent       bool

	// size is the content size of the last acked and committed
	// configure. It's what the window is drawn at.
	size image.Point

	min, max               image.Point
	pendingMin, pendingMax image.Point
}

func (s *State) newWindow(obj *server.Object, xs *XdgSurface, surf *Surface) {
	w := Window{
		obj:       obj,
		surface:   surf.handle,
		xdg:       xs.obj.Handle,
		workspace: -1,
	}
	h := s.windows.Insert(&w)
	w.handle = h
	obj.Handle = h
	xs.role, xs.view = roleToplevel, h
	surf.view = h

	if obj.Version >= 5 {
		caps := binary.LittleEndian.AppendUint32(nil, protocol.WmCapabilityMaximize)
		caps = binary.LittleEndian.AppendUint32(caps, protocol.WmCapabilityFullscreen)
		c := obj.Client()
		ev := c.Event(obj, protocol.EvXdgToplevelWmCapabilities)
		ev.WriteArray(caps)
		c.Send(ev)
	}
}

// content returns the area of the window's surface, which is frame
// without decorations.
func (w *Window) content(s *State) image.Rectangle {
	if w.ssd && !w.fullscreen {
		return s.decor.Content(w.frame)
	}
	return w.frame
}

// Geometry returns the area that the window is displayed in: the
// content area, at the size that the client last acked.
func (w *Window) Geometry(s *State) image.Rectangle {
	c := w.content(s)
	size := w.size
	if size.X <= 0 || size.Y <= 0 {
		if xs := lookup(&s.xdgSurfaces, w.xdg); xs != nil {
			size = s.xdgGeometry(xs).Size()
		}
	}
	return image.Rectangle{Min: c.Min, Max: c.Min.Add(size)}
}

// surfaceOrigin returns where the top-left corner of the window's
// surface goes, which is offset from the content area by the window
// geometry.
func (w *Window) surfaceOrigin(s *State) image.Point {
	origin := w.content(s).Min
	if xs := lookup(&s.xdgSurfaces, w.xdg); xs != nil {
		origin = origin.Sub(s.xdgGeometry(xs).Min)
	}
	return origin
}

func (w *Window) ack(serial uint32) {
	for i, conf := range w.configures {
		if conf.serial == serial {
			w.acked = &conf
			w.configures = w.configures[i+1:]
			return
		}
	}
}

// wantsFloat reports whether the window should float when mapped:
// dialogs and fixed-size windows do.
func (w *Window) wantsFloat() bool {
	if w.parent.Valid() {
		return true
	}
	return w.min.X > 0 && w.min == w.max
}

func (s *State) configureWindow(w *Window) {
	s.configureWindowForce(w, false)
}

// configureWindowForce sends a configure if the size or states that
// the window should have differ from the last ones sent.
func (s *State) configureWindowForce(w *Window, force bool) {
	xs := lookup(&s.xdgSurfaces, w.xdg)
	if xs == nil || !xs.initialized {
		return
	}

	conf := configure{
		size: w.content(s).Size(),
		states: windowStates{
			activated:  s.seat.focusedWindow() == w,
			maximized:  w.maximized,
			fullscreen: w.fullscreen,
			resizing:   s.seat.resizing(w),
			tiled:      w.mapped && !w.floating && !w.fullscreen,
		},
	}
	if !w.mapped && w.frame.Empty() {
		conf.size = image.Point{}
	}
	if !force && w.sent && conf.size == w.last.size && conf.states == w.last.states {
		return
	}

	c := w.obj.Client()
	if w.obj.Version >= 4 {
		bounds := s.workArea().Size()
		ev := c.Event(w.obj, protocol.EvXdgToplevelConfigureBounds)
		ev.WriteInt(int32(bounds.X))
		ev.WriteInt(int32(bounds.Y))
		c.Send(ev)
	}

	ev := c.Event(w.obj, protocol.EvXdgToplevelConfigure)
	ev.WriteInt(int32(conf.size.X))
	ev.WriteInt(int32(conf.size.Y))
	ev.WriteArray(conf.states.encode(w.obj.Version))
	c.Send(ev)

	conf.serial = s.sendConfigure(xs)
	w.configures = append(w.configures, conf)
	w.last = conf
	w.sent = true
}

// toplevelCommit handles a commit of a toplevel's surface: the initial
// configure, mapping and unmapping, and taking on the acked size.
func (s *State) toplevelCommit(w *Window, surf *Surface) {
	xs := lookup(&s.xdgSurfaces, w.xdg)
	if xs == nil {
		return
	}
	w.min, w.max = w.pendingMin, w.pendingMax

	if !xs.initialized {
		xs.initialized = true
		s.xdgCommit(xs)
		w.frame = s.initialFrame(w)
		s.configureWindowForce(w, true)
		return
	}

	s.xdgCommit(xs)
	if w.acked != nil {
		old := w.Geometry(s)
		w.size = w.acked.size
		w.acked = nil
		if w.mapped && w.Geometry(s) != old {
			s.damageRect(old)
			s.damageWindow(w)
		}
	}

	switch {
	case surf.Mapped() && !w.mapped:
		s.mapWindow(w)
	case !surf.Mapped() && w.mapped:
		s.unmapWindow(w)
		xs.initialized = false
		xs.configured = false
		w.sent = false
		w.size = image.Point{}
		w.configures = nil
	}
}

// initialFrame returns the frame that a window would get if it was
// mapped now, for its first configure.
func (s *State) initialFrame(w *Window) image.Rectangle {
	switch {
	case w.fullscreen:
		return s.primary().out.Bounds()
	case w.maximized:
		return s.workArea()
	case w.wantsFloat():
		return image.Rectangle{}
	}
	ws := s.activeWorkspace()
	return s.tileFrame(ws.tree.Preview(w.handle, ws.focused, s.tileArea()))
}

func (s *State) toplevelRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	w := lookup(&s.windows, obj.Handle)
	if w == nil {
		if msg.Op() == protocol.XdgToplevelDestroy {
			s.destroy(c, obj)
		}
		return nil
	}

	switch msg.Op() {
	case protocol.XdgToplevelDestroy:
		s.destroy(c, obj)

	case protocol.XdgToplevelSetParent:
		pid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		w.parent = arena.Handle{}
		if pid == 0 {
			return nil
		}
		pobj := c.Object(pid)
		if pobj == nil || pobj.Kind != protocol.KindXdgToplevel {
			return wire.Errorf(obj.ID, protocol.XdgToplevelErrorInvalidParent, "%v is not a toplevel", pid)
		}
		for p := lookup(&s.windows, pobj.Handle); p != nil; p = lookup(&s.windows, p.parent) {
			if p == w {
				return wire.Errorf(obj.ID, protocol.XdgToplevelErrorInvalidParent, "parent loop")
			}
		}
		w.parent = pobj.Handle

	case protocol.XdgToplevelSetTitle:
		title := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if title == w.title {
			return nil
		}
		w.title = title
		if w.mapped && w.ssd {
			s.damageRect(w.frame)
		}
		if s.seat.focusedWindow() == w {
			s.publishTitle(w)
		}

	case protocol.XdgToplevelSetAppId:
		w.appID = msg.ReadString()
		return msg.Err()

	case protocol.XdgToplevelShowWindowMenu, protocol.XdgToplevelSetMinimized:
		return msg.Err()

	case protocol.XdgToplevelMove:
		msg.ReadObject()
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		s.seat.startMove(w, serial)

	case protocol.XdgToplevelResize:
		msg.ReadObject()
		serial := msg.ReadUint()
		edges := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if !validEdges(edges) {
			return wire.Errorf(obj.ID, protocol.XdgToplevelErrorInvalidResizeEdge, "invalid resize edges %v", edges)
		}
		s.seat.startResize(w, serial, edges)

	case protocol.XdgToplevelSetMaxSize, protocol.XdgToplevelSetMinSize:
		width, height := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if width < 0 || height < 0 {
			return wire.Errorf(obj.ID, protocol.XdgToplevelErrorInvalidSize, "negative size %vx%v", width, height)
		}
		size := image.Pt(int(width), int(height))
		if msg.Op() == protocol.XdgToplevelSetMaxSize {
			w.pendingMax = size
			break
		}
		w.pendingMin = size

	case protocol.XdgToplevelSetMaximized, protocol.XdgToplevelUnsetMaximized:
		s.setMaximized(w, msg.Op() == protocol.XdgToplevelSetMaximized)
		s.configureWindowForce(w, true)

	case protocol.XdgToplevelSetFullscreen:
		msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		s.setFullscreen(w, true)
		s.configureWindowForce(w, true)

	case protocol.XdgToplevelUnsetFullscreen:
		s.setFullscreen(w, false)
		s.configureWindowForce(w, true)
	}
	return nil
}

func validEdges(edges uint32) bool {
	switch edges {
	case protocol.ResizeEdgeNone,
		protocol.ResizeEdgeTop,
		protocol.ResizeEdgeBottom,
		protocol.ResizeEdgeLeft,
		protocol.ResizeEdgeTopLeft,
		protocol.ResizeEdgeBottomLeft,
		protocol.ResizeEdgeRight,
		protocol.ResizeEdgeTopRight,
		protocol.ResizeEdgeBottomRight:
		return true
	}
	return false
}

// closeWindow asks the client to close w.
func (s *State) closeWindow(w *Window) {
	c := w.obj.Client()
	c.Send(c.Event(w.obj, protocol.EvXdgToplevelClose))
}

func (s *State) destroyToplevel(h arena.Handle) {
	w, ok := s.windows.Remove(h)
	if !ok {
		return
	}
	s.unmapWindow(w)

	if xs := lookup(&s.xdgSurfaces, w.xdg); xs != nil && xs.view == h {
		xs.view = arena.Handle{}
		xs.initialized = false
	}
	if surf := lookup(&s.surfaces, w.surface); surf != nil && surf.view == h {
		surf.view = arena.Handle{}
	}
	for _, other := range s.windows.All() {
		if (*other).parent == h {
			(*other).parent = arena.Handle{}
		}
	}
}

func (s *State) decorationManagerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if msg.Op() == protocol.DecorationManagerDestroy {
		s.destroy(c, obj)
		return nil
	}

	id := msg.ReadUint()
	tid := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}
	tobj := c.Object(tid)
	if tobj == nil || tobj.Kind != protocol.KindXdgToplevel {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a toplevel", tid)
	}
	w := lookup(&s.windows, tobj.Handle)
	if w == nil {
		return wire.Errorf(obj.ID, protocol.DecorationErrorOrphaned, "%v is gone", tobj)
	}
	if w.decoration != nil {
		return wire.Errorf(obj.ID, protocol.DecorationErrorAlreadyConstructed, "%v already has a decoration", tobj)
	}
	if surf := lookup(&s.surfaces, w.surface); surf != nil && surf.Mapped() {
		return wire.Errorf(obj.ID, protocol.DecorationErrorUnconfiguredBuffer, "%v already has a buffer", tobj)
	}

	dobj, err := c.NewObject(id, protocol.KindToplevelDecoration, obj.Version)
	if err != nil {
		return err
	}
	dobj.Handle = w.handle
	w.decoration = dobj
	s.setDecoration(w, protocol.DecorationModeServerSide)
	return nil
}

func (s *State) decorationRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	w := lookup(&s.windows, obj.Handle)

	switch msg.Op() {
	case protocol.ToplevelDecorationDestroy:
		s.destroy(c, obj)
		if w != nil {
			s.setDecoration(w, protocol.DecorationModeClientSide)
		}

	case protocol.ToplevelDecorationSetMode:
		mode := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if mode != protocol.DecorationModeClientSide && mode != protocol.DecorationModeServerSide {
			return wire.Errorf(obj.ID, protocol.DecorationErrorInvalidMode, "invalid mode %v", mode)
		}
		if w == nil {
			return wire.Errorf(obj.ID, protocol.DecorationErrorOrphaned, "toplevel is gone")
		}
		s.setDecoration(w, mode)

	case protocol.ToplevelDecorationUnsetMode:
		if w == nil {
			return wire.Errorf(obj.ID, protocol.DecorationErrorOrphaned, "toplevel is gone")
		}
		s.setDecoration(w, protocol.DecorationModeServerSide)
	}
	return nil
}

// setDecoration switches w between server-side and client-side
// decorations and tells the client.
func (s *State) setDecoration(w *Window, mode uint32) {
	ssd := mode == protocol.DecorationModeServerSide
	if w.decoration.Alive() {
		c := w.decoration.Client()
		ev := c.Event(w.decoration, protocol.EvToplevelDecorationConfigure)
		ev.WriteUint(mode)
		c.Send(ev)
	}
	if ssd == w.ssd {
		s.configureWindowForce(w, true)
		return
	}

	if w.mapped {
		s.damageRect(w.frame)
	}
	w.ssd = ssd
	s.configureWindowForce(w, true)
}
