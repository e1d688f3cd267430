package compositor

import (
	"image"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

// Positioner is an xdg_positioner: the rules for placing a popup
// relative to its parent.
type Positioner struct {
	size       image.Point
	anchorRect image.Rectangle
	anchorSet  bool

	anchor  uint32
	gravity uint32
	adjust  uint32
	offset  image.Point

	reactive        bool
	parentSize      image.Point
	parentConfigure uint32
}

func hasLeft(edge uint32) bool {
	return edge == protocol.AnchorLeft || edge == protocol.AnchorTopLeft || edge == protocol.AnchorBottomLeft
}

func hasRight(edge uint32) bool {
	return edge == protocol.AnchorRight || edge == protocol.AnchorTopRight || edge == protocol.AnchorBottomRight
}

func hasTop(edge uint32) bool {
	return edge == protocol.AnchorTop || edge == protocol.AnchorTopLeft || edge == protocol.AnchorTopRight
}

func hasBottom(edge uint32) bool {
	return edge == protocol.AnchorBottom || edge == protocol.AnchorBottomLeft || edge == protocol.AnchorBottomRight
}

func flipX(edge uint32) uint32 {
	switch edge {
	case protocol.AnchorLeft:
		return protocol.AnchorRight
	case protocol.AnchorRight:
		return protocol.AnchorLeft
	case protocol.AnchorTopLeft:
		return protocol.AnchorTopRight
	case protocol.AnchorTopRight:
		return protocol.AnchorTopLeft
	case protocol.AnchorBottomLeft:
		return protocol.AnchorBottomRight
	case protocol.AnchorBottomRight:
		return protocol.AnchorBottomLeft
	}
	return edge
}

func flipY(edge uint32) uint32 {
	switch edge {
	case protocol.AnchorTop:
		return protocol.AnchorBottom
	case protocol.AnchorBottom:
		return protocol.AnchorTop
	case protocol.AnchorTopLeft:
		return protocol.AnchorBottomLeft
	case protocol.AnchorBottomLeft:
		return protocol.AnchorTopLeft
	case protocol.AnchorTopRight:
		return protocol.AnchorBottomRight
	case protocol.AnchorBottomRight:
		return protocol.AnchorTopRight
	}
	return edge
}

// place returns the popup's rectangle for the given anchor and
// gravity, before any constraints are applied.
func (p *Positioner) place(anchor, gravity uint32) image.Rectangle {
	ar := p.anchorRect

	var at image.Point
	switch {
	case hasLeft(anchor):
		at.X = ar.Min.X
	case hasRight(anchor):
		at.X = ar.Max.X
	default:
		at.X = ar.Min.X + ar.Dx()/2
	}
	switch {
	case hasTop(anchor):
		at.Y = ar.Min.Y
	case hasBottom(anchor):
		at.Y = ar.Max.Y
	default:
		at.Y = ar.Min.Y + ar.Dy()/2
	}

	switch {
	case hasLeft(gravity):
		at.X -= p.size.X
	case hasRight(gravity):
	default:
		at.X -= p.size.X / 2
	}
	switch {
	case hasTop(gravity):
		at.Y -= p.size.Y
	case hasBottom(gravity):
	default:
		at.Y -= p.size.Y / 2
	}

	at = at.Add(p.offset)
	return image.Rectangle{Min: at, Max: at.Add(p.size)}
}

// Position places the popup so that it stays within bounds as far as
// the constraint adjustments allow. Both rectangles are relative to
// the parent's window geometry.
func (p *Positioner) Position(bounds image.Rectangle) image.Rectangle {
	anchor, gravity := p.anchor, p.gravity
	r := p.place(anchor, gravity)
	if bounds.Empty() || r.In(bounds) {
		return r
	}

	outX := func(r image.Rectangle) bool { return r.Min.X < bounds.Min.X || r.Max.X > bounds.Max.X }
	outY := func(r image.Rectangle) bool { return r.Min.Y < bounds.Min.Y || r.Max.Y > bounds.Max.Y }

	if outX(r) && p.adjust&protocol.ConstraintAdjustmentFlipX != 0 {
		flipped := p.place(flipX(anchor), flipX(gravity))
		if !outX(flipped) {
			anchor, gravity = flipX(anchor), flipX(gravity)
			r = flipped
		}
	}
	if outY(r) && p.adjust&protocol.ConstraintAdjustmentFlipY != 0 {
		flipped := p.place(flipY(anchor), flipY(gravity))
		if !outY(flipped) {
			anchor, gravity = flipY(anchor), flipY(gravity)
			r = flipped
		}
	}

	if outX(r) && p.adjust&protocol.ConstraintAdjustmentSlideX != 0 {
		dx := 0
		if r.Max.X > bounds.Max.X {
			dx = bounds.Max.X - r.Max.X
		}
		if r.Min.X+dx < bounds.Min.X {
			dx = bounds.Min.X - r.Min.X
		}
		r = r.Add(image.Pt(dx, 0))
	}
	if outY(r) && p.adjust&protocol.ConstraintAdjustmentSlideY != 0 {
		dy := 0
		if r.Max.Y > bounds.Max.Y {
			dy = bounds.Max.Y - r.Max.Y
		}
		if r.Min.Y+dy < bounds.Min.Y {
			dy = bounds.Min.Y - r.Min.Y
		}
		r = r.Add(image.Pt(0, dy))
	}

	if outX(r) && p.adjust&protocol.ConstraintAdjustmentResizeX != 0 {
		r.Min.X = max(r.Min.X, bounds.Min.X)
		r.Max.X = min(r.Max.X, bounds.Max.X)
	}
	if outY(r) && p.adjust&protocol.ConstraintAdjustmentResizeY != 0 {
		r.Min.Y = max(r.Min.Y, bounds.Min.Y)
		r.Max.Y = min(r.Max.Y, bounds.Max.Y)
	}
	if r.Empty() {
		return p.place(anchor, gravity)
	}
	return r
}

func (s *State) positionerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if msg.Op() == protocol.XdgPositionerDestroy {
		s.destroy(c, obj)
		return nil
	}
	p := lookup(&s.positioners, obj.Handle)
	if p == nil {
		return nil
	}

	invalid := func(format string, args ...any) error {
		return wire.Errorf(obj.ID, protocol.XdgPositionerErrorInvalidInput, format, args...)
	}

	switch msg.Op() {
	case protocol.XdgPositionerSetSize:
		w, h := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if w <= 0 || h <= 0 {
			return invalid("invalid size %vx%v", w, h)
		}
		p.size = image.Pt(int(w), int(h))

	case protocol.XdgPositionerSetAnchorRect:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if w < 0 || h < 0 {
			return invalid("invalid anchor rect size %vx%v", w, h)
		}
		p.anchorRect = image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
		p.anchorSet = true

	case protocol.XdgPositionerSetAnchor, protocol.XdgPositionerSetGravity:
		v := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if v > protocol.AnchorBottomRight {
			return invalid("invalid anchor %v", v)
		}
		if msg.Op() == protocol.XdgPositionerSetAnchor {
			p.anchor = v
			break
		}
		p.gravity = v

	case protocol.XdgPositionerSetConstraintAdjustment:
		p.adjust = msg.ReadUint()
		return msg.Err()

	case protocol.XdgPositionerSetOffset:
		x, y := msg.ReadInt(), msg.ReadInt()
		p.offset = image.Pt(int(x), int(y))
		return msg.Err()

	case protocol.XdgPositionerSetReactive:
		p.reactive = true

	case protocol.XdgPositionerSetParentSize:
		w, h := msg.ReadInt(), msg.ReadInt()
		p.parentSize = image.Pt(int(w), int(h))
		return msg.Err()

	case protocol.XdgPositionerSetParentConfigure:
		p.parentConfigure = msg.ReadUint()
		return msg.Err()
	}
	return nil
}

// positionerArg returns a copy of a complete positioner.
func (s *State) positionerArg(c *server.Client, wmBase *server.Object, id uint32) (Positioner, error) {
	obj := c.Object(id)
	if obj == nil || obj.Kind != protocol.KindXdgPositioner {
		return Positioner{}, wire.Errorf(wmBase.ID, protocol.XdgWmBaseErrorInvalidPositioner, "%v is not a positioner", id)
	}
	p := lookup(&s.positioners, obj.Handle)
	if p == nil || p.size == (image.Point{}) || !p.anchorSet {
		return Positioner{}, wire.Errorf(wmBase.ID, protocol.XdgWmBaseErrorInvalidPositioner, "%v is incomplete", obj)
	}
	return *p, nil
}

// Popup is an xdg_popup.
type Popup struct {
	obj     *server.Object
	handle  arena.Handle
	surface arena.Handle
	xdg     arena.Handle

	// parent is the parent's wl_surface. It's unset until a layer
	// surface adopts a popup created without a parent.
	parent arena.Handle

	positioner Positioner
	rect       image.Rectangle

	mapped  bool
	grabbed bool
}

func (s *State) newPopup(obj *server.Object, xs *XdgSurface, surf *Surface, parent *XdgSurface, pos Positioner) {
	p := Popup{
		obj:        obj,
		surface:    surf.handle,
		xdg:        xs.obj.Handle,
		positioner: pos,
	}
	if parent != nil {
		p.parent = parent.surface
	}
	h := s.popups.Insert(&p)
	p.handle = h
	obj.Handle = h
	xs.role, xs.view = rolePopup, h
	surf.view = h
}

// parentGeometry returns the offset of the parent's window geometry
// from its surface.
func (p *Popup) parentGeometry(s *State) image.Point {
	parent := lookup(&s.surfaces, p.parent)
	if parent == nil {
		return image.Point{}
	}
	if xs := lookup(&s.xdgSurfaces, parent.xdg); xs != nil {
		return s.xdgGeometry(xs).Min
	}
	return image.Point{}
}

func (p *Popup) geometry(s *State) image.Rectangle {
	if xs := lookup(&s.xdgSurfaces, p.xdg); xs != nil {
		return s.xdgGeometry(xs)
	}
	return image.Rectangle{}
}

// constraint returns the area that the popup must fit in, relative to
// its parent's window geometry.
func (s *State) popupConstraint(p *Popup) image.Rectangle {
	bounds := s.primary().out.Bounds()
	parent := lookup(&s.surfaces, p.parent)
	if parent == nil {
		return image.Rectangle{}
	}
	origin, ok := s.surfaceOrigin(parent)
	if !ok {
		return image.Rectangle{}
	}
	for _, o := range s.outputs {
		if origin.In(o.out.Bounds()) {
			bounds = o.out.Bounds()
			break
		}
	}
	return bounds.Sub(origin.Add(p.parentGeometry(s)))
}

// configurePopup places p and tells the client.
func (s *State) configurePopup(p *Popup) {
	xs := lookup(&s.xdgSurfaces, p.xdg)
	if xs == nil {
		return
	}

	if p.mapped {
		if surf := lookup(&s.surfaces, p.surface); surf != nil {
			s.damageSurfaceTree(surf)
		}
	}
	p.rect = p.positioner.Position(s.popupConstraint(p))

	c := p.obj.Client()
	ev := c.Event(p.obj, protocol.EvXdgPopupConfigure)
	ev.WriteInt(int32(p.rect.Min.X))
	ev.WriteInt(int32(p.rect.Min.Y))
	ev.WriteInt(int32(p.rect.Dx()))
	ev.WriteInt(int32(p.rect.Dy()))
	c.Send(ev)
	s.sendConfigure(xs)
}

func (s *State) popupCommit(p *Popup, surf *Surface) {
	xs := lookup(&s.xdgSurfaces, p.xdg)
	if xs == nil {
		return
	}
	if !xs.initialized {
		xs.initialized = true
		s.xdgCommit(xs)
		s.configurePopup(p)
		return
	}
	s.xdgCommit(xs)

	switch {
	case surf.Mapped() && !p.mapped:
		p.mapped = true
		s.damageSurfaceTree(surf)
		s.seat.refocusPointer()
	case !surf.Mapped() && p.mapped:
		s.unmapPopup(p)
		xs.initialized = false
		xs.configured = false
	}
}

func (s *State) popupRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	p := lookup(&s.popups, obj.Handle)
	if p == nil {
		if msg.Op() == protocol.XdgPopupDestroy {
			s.destroy(c, obj)
		}
		return nil
	}

	switch msg.Op() {
	case protocol.XdgPopupDestroy:
		if top := s.seat.topPopup(); top != nil && p.grabbed && top != p {
			return wire.Errorf(obj.ID, protocol.XdgWmBaseErrorNotTheTopmostPopup, "%v is not the topmost popup", obj)
		}
		s.destroy(c, obj)

	case protocol.XdgPopupGrab:
		msg.ReadObject()
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.mapped {
			return wire.Errorf(obj.ID, protocol.XdgPopupErrorInvalidGrab, "%v grabbed after being mapped", obj)
		}
		s.seat.grabPopup(p, serial)

	case protocol.XdgPopupReposition:
		posid := msg.ReadObject()
		token := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		xs := lookup(&s.xdgSurfaces, p.xdg)
		if xs == nil {
			return nil
		}
		pos, err := s.positionerArg(c, xs.wmBase, posid)
		if err != nil {
			return err
		}
		p.positioner = pos

		ev := c.Event(obj, protocol.EvXdgPopupRepositioned)
		ev.WriteUint(token)
		c.Send(ev)
		s.configurePopup(p)
	}
	return nil
}

func (s *State) unmapPopup(p *Popup) {
	if !p.mapped {
		return
	}
	if surf := lookup(&s.surfaces, p.surface); surf != nil {
		s.damageSurfaceTree(surf)
	}
	p.mapped = false
	s.dismissChildren(p.surface)
	s.seat.popupGone(p)
}

// dismissPopup tells the client that p was closed.
func (s *State) dismissPopup(p *Popup) {
	s.unmapPopup(p)
	if p.obj.Alive() {
		c := p.obj.Client()
		c.Send(c.Event(p.obj, protocol.EvXdgPopupPopupDone))
	}
}

// dismissChildren dismisses every popup whose parent is the surface
// h.
func (s *State) dismissChildren(h arena.Handle) {
	for _, p := range s.popups.All() {
		if (*p).parent == h && (*p).mapped {
			s.dismissPopup(*p)
		}
	}
}

// popupsOf returns the mapped popups of the surface h.
func (s *State) popupsOf(h arena.Handle) []*Popup {
	var popups []*Popup
	for _, p := range s.popups.All() {
		if (*p).parent == h && (*p).mapped {
			popups = append(popups, *p)
		}
	}
	return popups
}

func (s *State) destroyPopup(h arena.Handle) {
	p, ok := s.popups.Remove(h)
	if !ok {
		return
	}
	s.unmapPopup(p)

	if xs := lookup(&s.xdgSurfaces, p.xdg); xs != nil && xs.view == h {
		xs.view = arena.Handle{}
	}
	if surf := lookup(&s.surfaces, p.surface); surf != nil && surf.view == h {
		surf.view = arena.Handle{}
	}
}
