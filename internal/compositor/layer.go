package compositor

import (
	"image"
	"slices"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

const anchorAll = protocol.LayerAnchorTop | protocol.LayerAnchorBottom | protocol.LayerAnchorLeft | protocol.LayerAnchorRight

// layerState is the double-buffered state of a layer surface.
type layerState struct {
	size      image.Point
	anchor    uint32
	exclusive int32
	keyboard  uint32
	layer     uint32

	// margin is top, right, bottom, left.
	margin [4]int
}

// LayerSurface is a zwlr_layer_surface_v1: a panel, background or
// overlay attached to an output.
type LayerSurface struct {
	obj       *server.Object
	handle    arena.Handle
	surface   arena.Handle
	output    *Output
	namespace string

	pending layerState
	current layerState

	// rect is where the surface is, in global coordinates.
	rect image.Rectangle

	initialized bool
	configured  bool
	mapped      bool
	serials     []uint32
	sentSize    image.Point
}

// check validates the pending state on commit.
func (l *LayerSurface) check(hasBuffer bool) error {
	st := &l.pending
	horiz := protocol.LayerAnchorLeft | protocol.LayerAnchorRight
	vert := protocol.LayerAnchorTop | protocol.LayerAnchorBottom
	if st.size.X == 0 && st.anchor&uint32(horiz) != uint32(horiz) {
		return wire.Errorf(l.obj.ID, protocol.LayerSurfaceErrorInvalidSize, "zero width requires left and right anchors")
	}
	if st.size.Y == 0 && st.anchor&uint32(vert) != uint32(vert) {
		return wire.Errorf(l.obj.ID, protocol.LayerSurfaceErrorInvalidSize, "zero height requires top and bottom anchors")
	}
	if hasBuffer && !l.configured {
		return wire.Errorf(l.obj.ID, protocol.LayerSurfaceErrorInvalidSurfaceState, "buffer attached before the first configure was acked")
	}
	return nil
}

func (s *State) layerShellRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if msg.Op() == protocol.LayerShellDestroy {
		s.destroy(c, obj)
		return nil
	}

	id := msg.ReadUint()
	sid := msg.ReadObject()
	oid := msg.ReadObject()
	layer := msg.ReadUint()
	namespace := msg.ReadString()
	if err := msg.Err(); err != nil {
		return err
	}

	if layer > protocol.LayerOverlay {
		return wire.Errorf(obj.ID, protocol.LayerShellErrorInvalidLayer, "invalid layer %v", layer)
	}
	surf, _ := s.surfaceArg(c, sid)
	if surf == nil {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a wl_surface", sid)
	}
	if surf.Mapped() {
		return wire.Errorf(obj.ID, protocol.LayerShellErrorAlreadyConstruct, "%v already has a buffer", surf.obj)
	}
	if surf.role == roleLayer && lookup(&s.layers, surf.view) != nil {
		return wire.Errorf(obj.ID, protocol.LayerShellErrorAlreadyConstruct, "%v already is a layer surface", surf.obj)
	}
	if !surf.setRole(roleLayer) {
		return wire.Errorf(obj.ID, protocol.LayerShellErrorRole, "%v already has the %v role", surf.obj, surf.role)
	}

	o := s.primary()
	if oid != 0 {
		if oobj := c.Object(oid); oobj != nil && oobj.Kind == protocol.KindOutput {
			if found := s.outputOf(oobj); found != nil {
				o = found
			}
		}
	}

	lobj, err := c.NewObject(id, protocol.KindLayerSurface, obj.Version)
	if err != nil {
		return err
	}
	l := LayerSurface{
		obj:       lobj,
		surface:   surf.handle,
		output:    o,
		namespace: namespace,
	}
	l.pending.layer = layer
	l.current.layer = layer
	h := s.layers.Insert(&l)
	l.handle = h
	lobj.Handle = h
	surf.view = h
	o.layers[layer] = append(o.layers[layer], h)
	return nil
}

func (s *State) layerSurfaceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	l := lookup(&s.layers, obj.Handle)
	if l == nil {
		if msg.Op() == protocol.LayerSurfaceDestroy {
			s.destroy(c, obj)
		}
		return nil
	}
	st := &l.pending

	switch msg.Op() {
	case protocol.LayerSurfaceSetSize:
		w, h := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if w > 1<<15 || h > 1<<15 {
			return wire.Errorf(obj.ID, protocol.LayerSurfaceErrorInvalidSize, "invalid size %vx%v", w, h)
		}
		st.size = image.Pt(int(w), int(h))

	case protocol.LayerSurfaceSetAnchor:
		anchor := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if anchor > anchorAll {
			return wire.Errorf(obj.ID, protocol.LayerSurfaceErrorInvalidAnchor, "invalid anchor %v", anchor)
		}
		st.anchor = anchor

	case protocol.LayerSurfaceSetExclusiveZone:
		st.exclusive = msg.ReadInt()
		return msg.Err()

	case protocol.LayerSurfaceSetMargin:
		for i := range st.margin {
			st.margin[i] = int(msg.ReadInt())
		}
		return msg.Err()

	case protocol.LayerSurfaceSetKeyboardInteractivity:
		ki := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		limit := uint32(protocol.KeyboardInteractivityOnDemand)
		if obj.Version < 4 {
			limit = protocol.KeyboardInteractivityExclusive
		}
		if ki > limit {
			return wire.Errorf(obj.ID, protocol.LayerSurfaceErrorInvalidKeyboardInteractive, "invalid keyboard interactivity %v", ki)
		}
		st.keyboard = ki

	case protocol.LayerSurfaceGetPopup:
		pid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		pobj := c.Object(pid)
		if pobj == nil || pobj.Kind != protocol.KindXdgPopup {
			return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a popup", pid)
		}
		if p := lookup(&s.popups, pobj.Handle); p != nil {
			p.parent = l.surface
		}

	case protocol.LayerSurfaceAckConfigure:
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		i := slices.Index(l.serials, serial)
		if i < 0 {
			return wire.Errorf(obj.ID, protocol.LayerSurfaceErrorInvalidSurfaceState, "unknown configure serial %v", serial)
		}
		l.serials = l.serials[i+1:]
		l.configured = true

	case protocol.LayerSurfaceDestroy:
		s.destroy(c, obj)

	case protocol.LayerSurfaceSetLayer:
		layer := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if layer > protocol.LayerOverlay {
			return wire.Errorf(obj.ID, protocol.LayerShellErrorInvalidLayer, "invalid layer %v", layer)
		}
		st.layer = layer
	}
	return nil
}

func (s *State) layerCommit(l *LayerSurface, surf *Surface) {
	if l.current.layer != l.pending.layer {
		o := l.output
		old := l.current.layer
		o.layers[old] = slices.DeleteFunc(o.layers[old], func(h arena.Handle) bool { return h == l.handle })
		o.layers[l.pending.layer] = append(o.layers[l.pending.layer], l.handle)
		if l.mapped {
			s.damageRect(l.rect)
		}
	}
	changed := l.current != l.pending
	l.current = l.pending

	if !l.initialized {
		l.initialized = true
		s.arrangeLayers(l.output)
		return
	}

	switch {
	case surf.Mapped() && !l.mapped:
		l.mapped = true
		s.arrangeLayers(l.output)
		s.damageRect(l.rect)
		s.seat.layerMapped(l)
		s.seat.refocusPointer()
	case !surf.Mapped() && l.mapped:
		s.unmapLayer(l)
		l.initialized = false
		l.configured = false
		l.sentSize = image.Point{}
	case changed:
		s.arrangeLayers(l.output)
	}
}

// layerVisible reports whether l is drawn. A fullscreen window hides
// every layer but the overlay on its output.
func (s *State) layerVisible(l *LayerSurface) bool {
	if l.current.layer == protocol.LayerOverlay || l.output != s.primary() {
		return true
	}
	return s.fullscreenWindow() == nil
}

// exclusiveEdge returns the edge that a surface with the given anchors
// reserves space along, or zero if it doesn't reserve any.
func exclusiveEdge(anchor uint32) uint32 {
	const (
		t = protocol.LayerAnchorTop
		b = protocol.LayerAnchorBottom
		l = protocol.LayerAnchorLeft
		r = protocol.LayerAnchorRight
	)
	switch anchor {
	case t, t | l | r:
		return t
	case b, b | l | r:
		return b
	case l, l | t | b:
		return l
	case r, r | t | b:
		return r
	}
	return 0
}

// placeLayer returns the rectangle of a layer surface with state st
// in bounds.
func placeLayer(st layerState, bounds image.Rectangle) image.Rectangle {
	top, right, bottom, left := st.margin[0], st.margin[1], st.margin[2], st.margin[3]
	size := st.size
	anchor := st.anchor

	var r image.Rectangle
	horiz := uint32(protocol.LayerAnchorLeft | protocol.LayerAnchorRight)
	switch {
	case anchor&horiz == horiz && size.X == 0:
		r.Min.X = bounds.Min.X + left
		r.Max.X = bounds.Max.X - right
	case anchor&horiz == horiz:
		r.Min.X = bounds.Min.X + (bounds.Dx()-size.X)/2
		r.Max.X = r.Min.X + size.X
	case anchor&protocol.LayerAnchorLeft != 0:
		r.Min.X = bounds.Min.X + left
		r.Max.X = r.Min.X + size.X
	case anchor&protocol.LayerAnchorRight != 0:
		r.Max.X = bounds.Max.X - right
		r.Min.X = r.Max.X - size.X
	default:
		r.Min.X = bounds.Min.X + (bounds.Dx()-size.X)/2
		r.Max.X = r.Min.X + size.X
	}

	vert := uint32(protocol.LayerAnchorTop | protocol.LayerAnchorBottom)
	switch {
	case anchor&vert == vert && size.Y == 0:
		r.Min.Y = bounds.Min.Y + top
		r.Max.Y = bounds.Max.Y - bottom
	case anchor&vert == vert:
		r.Min.Y = bounds.Min.Y + (bounds.Dy()-size.Y)/2
		r.Max.Y = r.Min.Y + size.Y
	case anchor&protocol.LayerAnchorTop != 0:
		r.Min.Y = bounds.Min.Y + top
		r.Max.Y = r.Min.Y + size.Y
	case anchor&protocol.LayerAnchorBottom != 0:
		r.Max.Y = bounds.Max.Y - bottom
		r.Min.Y = r.Max.Y - size.Y
	default:
		r.Min.Y = bounds.Min.Y + (bounds.Dy()-size.Y)/2
		r.Max.Y = r.Min.Y + size.Y
	}
	return r
}

// reserve removes the exclusive zone of st from usable.
func reserve(usable image.Rectangle, st layerState) image.Rectangle {
	if st.exclusive <= 0 {
		return usable
	}
	zone := int(st.exclusive)
	switch exclusiveEdge(st.anchor) {
	case protocol.LayerAnchorTop:
		usable.Min.Y += zone + st.margin[0]
	case protocol.LayerAnchorBottom:
		usable.Max.Y -= zone + st.margin[2]
	case protocol.LayerAnchorLeft:
		usable.Min.X += zone + st.margin[3]
	case protocol.LayerAnchorRight:
		usable.Max.X -= zone + st.margin[1]
	}
	return usable
}

// arrangeLayers places the layer surfaces of o, configures them and
// updates the area left for windows. Surfaces with exclusive zones
// are placed first, from the overlay layer down.
func (s *State) arrangeLayers(o *Output) {
	full := o.out.Bounds()
	usable := full

	var exclusive, rest []*LayerSurface
	for layer := protocol.LayerOverlay; layer >= protocol.LayerBackground; layer-- {
		for _, h := range o.layers[layer] {
			l := lookup(&s.layers, h)
			if l == nil || !l.initialized {
				continue
			}
			if l.current.exclusive > 0 {
				exclusive = append(exclusive, l)
				continue
			}
			rest = append(rest, l)
		}
	}

	for _, l := range slices.Concat(exclusive, rest) {
		bounds := usable
		if l.current.exclusive < 0 {
			bounds = full
		}
		r := placeLayer(l.current, bounds)
		if l.mapped && r != l.rect {
			s.damageRect(l.rect)
			s.damageRect(r)
		}
		l.rect = r
		if l.mapped {
			usable = reserve(usable, l.current)
		}
		s.configureLayer(l)
	}

	if usable != o.out.UsableArea() {
		o.out.SetUsableArea(usable)
		if o == s.primary() {
			s.relayout()
		}
	}
}

func (s *State) configureLayer(l *LayerSurface) {
	size := l.rect.Size()
	if len(l.serials) == 0 && l.configured && size == l.sentSize {
		return
	}
	if len(l.serials) > 0 && size == l.sentSize {
		return
	}

	l.sentSize = size
	serial := s.nextSerial()
	l.serials = append(l.serials, serial)

	c := l.obj.Client()
	ev := c.Event(l.obj, protocol.EvLayerSurfaceConfigure)
	ev.WriteUint(serial)
	ev.WriteUint(uint32(size.X))
	ev.WriteUint(uint32(size.Y))
	c.Send(ev)
}

func (s *State) unmapLayer(l *LayerSurface) {
	if !l.mapped {
		return
	}
	s.damageRect(l.rect)
	l.mapped = false
	s.dismissChildren(l.surface)
	s.seat.layerGone(l)
	s.arrangeLayers(l.output)
}

func (s *State) destroyLayer(h arena.Handle) {
	l, ok := s.layers.Remove(h)
	if !ok {
		return
	}
	s.unmapLayer(l)

	layer := l.current.layer
	l.output.layers[layer] = slices.DeleteFunc(l.output.layers[layer], func(lh arena.Handle) bool { return lh == h })
	s.arrangeLayers(l.output)

	if surf := lookup(&s.surfaces, l.surface); surf != nil && surf.view == h {
		surf.view = arena.Handle{}
	}
}

// closeLayers tells every layer surface on o that it's gone.
func (s *State) closeLayers(o *Output) {
	for _, hs := range o.layers {
		for _, h := range hs {
			l := lookup(&s.layers, h)
			if l == nil {
				continue
			}
			s.unmapLayer(l)
			c := l.obj.Client()
			c.Send(c.Event(l.obj, protocol.EvLayerSurfaceClosed))
		}
	}
}
