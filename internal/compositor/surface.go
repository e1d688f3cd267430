package compositor

import (
	"image"
	"slices"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

// role is what a surface is used for. A surface gets at most one
// role in its lifetime, but may take the same one again once the
// previous role object is gone.
type role uint8

const (
	roleNone role = iota
	roleToplevel
	rolePopup
	roleLayer
	roleSubsurface
	roleCursor
	roleDragIcon
)

func (r role) String() string {
	switch r {
	case roleToplevel:
		return "xdg_toplevel"
	case rolePopup:
		return "xdg_popup"
	case roleLayer:
		return "zwlr_layer_surface_v1"
	case roleSubsurface:
		return "wl_subsurface"
	case roleCursor:
		return "cursor"
	case roleDragIcon:
		return "drag icon"
	}
	return "none"
}

// surfaceState is the double-buffered state of a surface. In pending
// and cached state the set flags say which fields were changed.
type surfaceState struct {
	attached bool
	buffer   *Buffer
	offset   image.Point

	damage       region.Region
	bufferDamage region.Region

	opaqueSet bool
	opaque    region.Region

	inputSet bool
	input    region.Region

	scaleSet bool
	scale    int32

	transformSet bool
	transform    int32

	frames []*server.Object
}

// merge moves the changes in src into dst. src is left empty.
func (dst *surfaceState) merge(src *surfaceState) {
	if src.attached {
		dst.attached = true
		dst.buffer = src.buffer
		dst.offset = dst.offset.Add(src.offset)
	}
	dst.damage.Union(src.damage)
	dst.bufferDamage.Union(src.bufferDamage)
	if src.opaqueSet {
		dst.opaqueSet, dst.opaque = true, src.opaque
	}
	if src.inputSet {
		dst.inputSet, dst.input = true, src.input
	}
	if src.scaleSet {
		dst.scaleSet, dst.scale = true, src.scale
	}
	if src.transformSet {
		dst.transformSet, dst.transform = true, src.transform
	}
	dst.frames = append(dst.frames, src.frames...)

	*src = surfaceState{}
}

// Surface is a wl_surface.
type Surface struct {
	obj    *server.Object
	handle arena.Handle

	pending surfaceState
	current struct {
		buffer    *Buffer
		offset    image.Point
		opaque    region.Region
		input     region.Region
		scale     int32
		transform int32
	}

	role role

	// xdg is set once the surface has an xdg_surface, even before it
	// has a toplevel or popup.
	xdg  arena.Handle
	view arena.Handle

	// stack is the surface itself and its subsurfaces, bottom to top.
	// pendingStack takes effect when the surface is committed.
	stack        []arena.Handle
	pendingStack []arena.Handle

	// damage is surface-local damage not yet handed to an output.
	damage region.Region

	// frames are committed frame callbacks waiting for the surface
	// to be drawn.
	frames []*server.Object

	// cursor hotspot, when the surface is a cursor.
	hotspot image.Point
}

// Size returns the size of the surface in surface coordinates.
func (surf *Surface) Size() image.Point {
	b := surf.current.buffer
	if b == nil {
		return image.Point{}
	}
	size := b.Size()
	if surf.current.transform%2 == 1 {
		size.X, size.Y = size.Y, size.X
	}
	if scale := surf.current.scale; scale > 1 {
		size = size.Div(int(scale))
	}
	return size
}

// Mapped reports whether the surface has content.
func (surf *Surface) Mapped() bool {
	return surf.current.buffer != nil
}

// inputRegion returns the part of the surface that accepts pointer
// input, in surface coordinates.
func (surf *Surface) inputRegion() region.Region {
	return surf.current.input.Intersect(image.Rectangle{Max: surf.Size()})
}

// setRole gives surf the role r. It fails if the surface already has
// a different one.
func (surf *Surface) setRole(r role) bool {
	if surf.role != roleNone && surf.role != r {
		return false
	}
	if r != rolePopup && r != roleToplevel && surf.xdg.Valid() {
		return false
	}
	surf.role = r
	return true
}

func (s *State) surfaceArg(c *server.Client, id uint32) (*Surface, *server.Object) {
	obj := c.Object(id)
	if obj == nil || obj.Kind != protocol.KindSurface {
		return nil, nil
	}
	return lookup(&s.surfaces, obj.Handle), obj
}

func (s *State) compositorRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	switch msg.Op() {
	case protocol.CompositorCreateSurface:
		sobj, err := c.NewObject(id, protocol.KindSurface, obj.Version)
		if err != nil {
			return err
		}
		surf := Surface{obj: sobj}
		surf.current.input = region.Infinite()
		surf.current.scale = 1
		surf.handle = s.surfaces.Insert(&surf)
		surf.stack = []arena.Handle{surf.handle}
		surf.pendingStack = []arena.Handle{surf.handle}
		sobj.Handle = surf.handle

	case protocol.CompositorCreateRegion:
		robj, err := c.NewObject(id, protocol.KindRegion, 1)
		if err != nil {
			return err
		}
		robj.Handle = s.regions.Insert(new(region.Region))
	}
	return nil
}

func (s *State) surfaceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	surf := lookup(&s.surfaces, obj.Handle)
	if surf == nil {
		return wire.Errorf(obj.ID, protocol.DisplayErrorImplementation, "surface is gone")
	}
	pending := &surf.pending

	switch msg.Op() {
	case protocol.SurfaceDestroy:
		s.destroy(c, obj)

	case protocol.SurfaceAttach:
		bid := msg.ReadObject()
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if obj.Version >= 5 && (x != 0 || y != 0) {
			return wire.Errorf(obj.ID, protocol.SurfaceErrorInvalidOffset, "attach offset must be zero, use wl_surface.offset")
		}

		var b *Buffer
		if bid != 0 {
			bobj := c.Object(bid)
			if bobj == nil || bobj.Kind != protocol.KindBuffer {
				return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a wl_buffer", bid)
			}
			b = lookup(&s.buffers, bobj.Handle)
		}
		pending.attached = true
		pending.buffer = b
		pending.offset = image.Pt(int(x), int(y))

	case protocol.SurfaceOffset:
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		pending.offset = image.Pt(int(x), int(y))

	case protocol.SurfaceDamage, protocol.SurfaceDamageBuffer:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if w <= 0 || h <= 0 {
			return nil
		}
		r := image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
		if msg.Op() == protocol.SurfaceDamage {
			pending.damage.Add(r)
			break
		}
		pending.bufferDamage.Add(r)

	case protocol.SurfaceFrame:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		cb, err := c.NewObject(id, protocol.KindCallback, 1)
		if err != nil {
			return err
		}
		pending.frames = append(pending.frames, cb)

	case protocol.SurfaceSetOpaqueRegion, protocol.SurfaceSetInputRegion:
		rid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		reg, err := s.regionArg(c, rid)
		if err != nil {
			return err
		}

		if msg.Op() == protocol.SurfaceSetOpaqueRegion {
			pending.opaqueSet = true
			pending.opaque = region.Region{}
			if reg != nil {
				pending.opaque = *reg
			}
			break
		}
		pending.inputSet = true
		pending.input = region.Infinite()
		if reg != nil {
			pending.input = *reg
		}

	case protocol.SurfaceSetBufferScale:
		scale := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if scale < 1 {
			return wire.Errorf(obj.ID, protocol.SurfaceErrorInvalidScale, "invalid buffer scale %v", scale)
		}
		pending.scaleSet, pending.scale = true, scale

	case protocol.SurfaceSetBufferTransform:
		transform := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if transform < 0 || transform > 7 {
			return wire.Errorf(obj.ID, protocol.SurfaceErrorInvalidTransform, "invalid buffer transform %v", transform)
		}
		pending.transformSet, pending.transform = true, transform

	case protocol.SurfaceCommit:
		return s.commit(surf)
	}
	return nil
}

// commit applies the pending state of surf, or caches it if surf is
// a synchronized subsurface.
func (s *State) commit(surf *Surface) error {
	if err := s.checkCommit(surf); err != nil {
		return err
	}

	if s.rejectBuffer(surf, &surf.pending) {
		return nil
	}

	if surf.role == roleSubsurface {
		if sub := lookup(&s.subsurfaces, surf.view); sub != nil && s.synchronized(sub) {
			sub.cached.merge(&surf.pending)
			sub.hasCache = true
			return nil
		}
	}

	s.apply(surf, &surf.pending)
	return nil
}

// rejectBuffer rejects a commit whose new buffer can't be imported.
// The pending buffer and damage are dropped and the surface keeps its
// current state. Frame callbacks still fire, as if nothing had been
// attached.
func (s *State) rejectBuffer(surf *Surface, st *surfaceState) bool {
	if !st.attached || st.buffer == nil || st.buffer.err == nil {
		return false
	}

	err := &ImportError{Buffer: st.buffer.obj.ID, Err: st.buffer.err}
	surf.obj.Client().Log().WithError(err).Warn("commit rejected")

	frames := st.frames
	*st = surfaceState{}
	surf.frames = append(surf.frames, frames...)
	s.scheduleSurface(surf)
	return true
}

// checkCommit enforces the rules of the surface's role that make a
// commit a protocol error.
func (s *State) checkCommit(surf *Surface) error {
	hasBuffer := surf.current.buffer != nil
	if surf.pending.attached {
		hasBuffer = surf.pending.buffer != nil
	}

	if surf.xdg.Valid() {
		xs := lookup(&s.xdgSurfaces, surf.xdg)
		if xs == nil {
			return nil
		}
		if xs.role == roleNone {
			return wire.Errorf(xs.obj.ID, protocol.XdgSurfaceErrorNotConstructed, "%v committed without a role", xs.obj)
		}
		if hasBuffer && !xs.configured {
			return wire.Errorf(xs.obj.ID, protocol.XdgSurfaceErrorUnconfiguredBuffer, "%v attached a buffer before acking a configure", xs.obj)
		}
		if xs.role == rolePopup {
			if p := lookup(&s.popups, xs.view); p != nil && hasBuffer {
				parent := lookup(&s.surfaces, p.parent)
				if parent == nil || !parent.Mapped() {
					return wire.Errorf(p.obj.ID, protocol.XdgWmBaseErrorInvalidPopupParent, "%v mapped with an unmapped parent", p.obj)
				}
			}
		}
	}

	if surf.role == roleLayer {
		if l := lookup(&s.layers, surf.view); l != nil {
			return l.check(hasBuffer)
		}
	}
	return nil
}

// apply makes st the current state of surf.
func (s *State) apply(surf *Surface, st *surfaceState) {
	cur := &surf.current
	oldSize := surf.Size()

	var oldRect image.Rectangle
	origin, visible := s.surfaceOrigin(surf)
	if visible {
		oldRect = image.Rectangle{Min: origin, Max: origin.Add(oldSize)}
	}

	if st.attached {
		old := cur.buffer
		b := st.buffer
		if b != nil && b.destroyed {
			b = nil
		}
		if b != nil {
			b.attach()
		}
		cur.buffer = b
		if old != nil {
			old.detach(s)
		}
		cur.offset = st.offset
	} else {
		cur.offset = image.Point{}
	}
	if st.opaqueSet {
		cur.opaque = st.opaque
	}
	if st.inputSet {
		cur.input = st.input
	}
	if st.scaleSet {
		cur.scale = st.scale
	}
	if st.transformSet {
		cur.transform = st.transform
	}

	surf.damage.Union(st.damage)
	if !st.bufferDamage.Empty() {
		scale := max(int(cur.scale), 1)
		for _, r := range st.bufferDamage.Rects() {
			surf.damage.Add(image.Rectangle{Min: r.Min.Div(scale), Max: r.Max.Add(image.Pt(scale-1, scale-1)).Div(scale)})
		}
	}
	if st.attached || surf.Size() != oldSize || (cur.transform != 0 && !st.bufferDamage.Empty()) {
		surf.damage = region.Rect(image.Rectangle{Max: surf.Size()})
	}
	surf.frames = append(surf.frames, st.frames...)
	*st = surfaceState{}

	if !slices.Equal(surf.stack, surf.pendingStack) {
		surf.stack = slices.Clone(surf.pendingStack)
		surf.damage = region.Rect(image.Rectangle{Max: surf.Size()})
	}
	s.applyChildren(surf)

	if !oldRect.Empty() {
		s.damageRect(oldRect)
	}
	s.roleCommit(surf)
	s.scheduleSurface(surf)
}

// applyChildren applies the cached state and positions of the
// subsurfaces of a parent that was just committed.
func (s *State) applyChildren(surf *Surface) {
	for _, h := range surf.stack {
		if h == surf.handle {
			continue
		}
		child := lookup(&s.surfaces, h)
		if child == nil {
			continue
		}
		sub := lookup(&s.subsurfaces, child.view)
		if sub == nil {
			continue
		}

		if sub.posSet {
			s.damageSurfaceTree(child)
			sub.pos, sub.posSet = sub.pendingPos, false
			child.damage = region.Rect(image.Rectangle{Max: child.Size()})
		}
		if sub.hasCache {
			sub.hasCache = false
			s.apply(child, &sub.cached)
			continue
		}
		s.applyChildren(child)
	}
}

// roleCommit runs the role-specific part of a commit.
func (s *State) roleCommit(surf *Surface) {
	switch surf.role {
	case roleToplevel:
		if w := lookup(&s.windows, surf.view); w != nil {
			s.toplevelCommit(w, surf)
		}
	case rolePopup:
		if p := lookup(&s.popups, surf.view); p != nil {
			s.popupCommit(p, surf)
		}
	case roleLayer:
		if l := lookup(&s.layers, surf.view); l != nil {
			s.layerCommit(l, surf)
		}
	case roleCursor:
		s.seat.cursorCommit(surf)
	}
}

func (s *State) destroySurface(h arena.Handle) {
	surf, ok := s.surfaces.Remove(h)
	if !ok {
		return
	}

	s.damageSurfaceTree(surf)

	switch surf.role {
	case roleToplevel:
		if w := lookup(&s.windows, surf.view); w != nil {
			s.unmapWindow(w)
		}
	case rolePopup:
		if p := lookup(&s.popups, surf.view); p != nil {
			s.unmapPopup(p)
		}
	case roleLayer:
		if l := lookup(&s.layers, surf.view); l != nil {
			s.unmapLayer(l)
		}
	case roleSubsurface:
		if sub := lookup(&s.subsurfaces, surf.view); sub != nil {
			s.unlinkSubsurface(sub)
			sub.surface = arena.Handle{}
		}
	}

	if b := surf.current.buffer; b != nil {
		surf.current.buffer = nil
		b.detach(s)
	}
	for _, cb := range surf.frames {
		cb.Client().Delete(cb)
	}
	surf.frames = nil

	for _, ch := range surf.stack {
		if ch == h {
			continue
		}
		if child := lookup(&s.surfaces, ch); child != nil {
			if sub := lookup(&s.subsurfaces, child.view); sub != nil {
				sub.parent = arena.Handle{}
			}
		}
	}

	s.seat.surfaceGone(h)
}

// surfaceOrigin returns the position of surf's top-left corner in
// global coordinates and whether it's currently shown.
func (s *State) surfaceOrigin(surf *Surface) (image.Point, bool) {
	if !surf.Mapped() {
		return image.Point{}, false
	}

	switch surf.role {
	case roleToplevel:
		w := lookup(&s.windows, surf.view)
		if w == nil || !s.windowVisible(w) {
			return image.Point{}, false
		}
		return w.surfaceOrigin(s), true

	case rolePopup:
		p := lookup(&s.popups, surf.view)
		if p == nil || !p.mapped {
			return image.Point{}, false
		}
		parent := lookup(&s.surfaces, p.parent)
		if parent == nil {
			return image.Point{}, false
		}
		porigin, ok := s.surfaceOrigin(parent)
		if !ok {
			return image.Point{}, false
		}
		return porigin.Add(p.parentGeometry(s)).Add(p.rect.Min).Sub(p.geometry(s).Min), true

	case roleLayer:
		l := lookup(&s.layers, surf.view)
		if l == nil || !l.mapped || !s.layerVisible(l) {
			return image.Point{}, false
		}
		return l.rect.Min, true

	case roleSubsurface:
		sub := lookup(&s.subsurfaces, surf.view)
		if sub == nil {
			return image.Point{}, false
		}
		parent := lookup(&s.surfaces, sub.parent)
		if parent == nil {
			return image.Point{}, false
		}
		porigin, ok := s.surfaceOrigin(parent)
		if !ok {
			return image.Point{}, false
		}
		return porigin.Add(sub.pos), true

	case roleCursor:
		if s.seat.cursor != surf.handle {
			return image.Point{}, false
		}
		return s.seat.pos.Sub(surf.hotspot), true
	}
	return image.Point{}, false
}

// walkTree calls f for every mapped surface in the tree rooted at
// surf, bottom to top, with its position relative to origin.
func (s *State) walkTree(surf *Surface, origin image.Point, f func(*Surface, image.Point)) {
	if !surf.Mapped() {
		return
	}
	for _, h := range surf.stack {
		if h == surf.handle {
			f(surf, origin)
			continue
		}
		child := lookup(&s.surfaces, h)
		if child == nil {
			continue
		}
		sub := lookup(&s.subsurfaces, child.view)
		if sub == nil {
			continue
		}
		s.walkTree(child, origin.Add(sub.pos), f)
	}
}

// treeAt returns the topmost surface of the tree rooted at surf whose
// input region contains p, and p relative to it.
func (s *State) treeAt(surf *Surface, origin, p image.Point) (*Surface, image.Point, bool) {
	var (
		hit   *Surface
		local image.Point
	)
	s.walkTree(surf, origin, func(ts *Surface, pos image.Point) {
		if ts.inputRegion().Contains(p.Sub(pos)) {
			hit, local = ts, p.Sub(pos)
		}
	})
	return hit, local, hit != nil
}

// treeBounds returns the area covered by the tree rooted at surf.
func (s *State) treeBounds(surf *Surface, origin image.Point) image.Rectangle {
	var r image.Rectangle
	s.walkTree(surf, origin, func(ts *Surface, pos image.Point) {
		r = r.Union(image.Rectangle{Min: pos, Max: pos.Add(ts.Size())})
	})
	return r
}

// damageSurfaceTree damages everything that surf and its subsurfaces
// cover on screen.
func (s *State) damageSurfaceTree(surf *Surface) {
	origin, ok := s.surfaceOrigin(surf)
	if !ok {
		return
	}
	s.damageRect(s.treeBounds(surf, origin))
}

// scheduleSurface hands surf's damage to the outputs that show it and
// makes sure that a frame is drawn if it has frame callbacks waiting.
func (s *State) scheduleSurface(surf *Surface) {
	origin, ok := s.surfaceOrigin(surf)
	if !ok {
		surf.damage.Clear()
		if len(surf.frames) > 0 {
			s.scheduleAll()
		}
		return
	}

	reg := surf.damage.Intersect(image.Rectangle{Max: surf.Size()}).Translate(origin)
	surf.damage.Clear()
	if !reg.Empty() {
		s.damageRegion(reg)
	}

	if len(surf.frames) > 0 {
		r := image.Rectangle{Min: origin, Max: origin.Add(surf.Size())}
		for _, o := range s.outputs {
			if o.out.Bounds().Overlaps(r) {
				o.sched.Schedule()
			}
		}
	}
}

// Subsurface is a wl_subsurface.
type Subsurface struct {
	obj     *server.Object
	surface arena.Handle
	parent  arena.Handle

	pos        image.Point
	pendingPos image.Point
	posSet     bool

	sync     bool
	cached   surfaceState
	hasCache bool
}

// synchronized reports whether sub's commits are cached until its
// parent commits, which is the case if it or any ancestor is in
// synchronized mode.
func (s *State) synchronized(sub *Subsurface) bool {
	for sub != nil {
		if sub.sync {
			return true
		}
		parent := lookup(&s.surfaces, sub.parent)
		if parent == nil || parent.role != roleSubsurface {
			return false
		}
		sub = lookup(&s.subsurfaces, parent.view)
	}
	return false
}

// isAncestor reports whether a is b or one of b's parents.
func (s *State) isAncestor(a, b *Surface) bool {
	for b != nil {
		if a == b {
			return true
		}
		if b.role != roleSubsurface {
			return false
		}
		sub := lookup(&s.subsurfaces, b.view)
		if sub == nil {
			return false
		}
		b = lookup(&s.surfaces, sub.parent)
	}
	return false
}

func (s *State) subcompositorRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if msg.Op() == protocol.SubcompositorDestroy {
		s.destroy(c, obj)
		return nil
	}

	id := msg.ReadUint()
	sid, pid := msg.ReadObject(), msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	surf, _ := s.surfaceArg(c, sid)
	parent, _ := s.surfaceArg(c, pid)
	if surf == nil || parent == nil {
		return wire.Errorf(obj.ID, protocol.SubcompositorErrorBadSurface, "invalid surface")
	}
	if s.isAncestor(surf, parent) {
		return wire.Errorf(obj.ID, protocol.SubcompositorErrorBadParent, "%v can't be a child of %v", surf.obj, parent.obj)
	}
	if lookup(&s.subsurfaces, surf.view) != nil && surf.role == roleSubsurface {
		return wire.Errorf(obj.ID, protocol.SubcompositorErrorBadSurface, "%v is already a subsurface", surf.obj)
	}
	if !surf.setRole(roleSubsurface) {
		return wire.Errorf(obj.ID, protocol.SubcompositorErrorBadSurface, "%v already has the %v role", surf.obj, surf.role)
	}

	sobj, err := c.NewObject(id, protocol.KindSubsurface, obj.Version)
	if err != nil {
		return err
	}
	sub := Subsurface{
		obj:     sobj,
		surface: surf.handle,
		parent:  parent.handle,
		sync:    true,
	}
	h := s.subsurfaces.Insert(&sub)
	sobj.Handle = h
	surf.view = h

	parent.stack = append(parent.stack, surf.handle)
	parent.pendingStack = append(parent.pendingStack, surf.handle)
	return nil
}

func (s *State) subsurfaceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	sub := lookup(&s.subsurfaces, obj.Handle)
	if sub == nil {
		return wire.Errorf(obj.ID, protocol.DisplayErrorImplementation, "subsurface is gone")
	}

	switch msg.Op() {
	case protocol.SubsurfaceDestroy:
		s.destroy(c, obj)

	case protocol.SubsurfaceSetPosition:
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		sub.pendingPos, sub.posSet = image.Pt(int(x), int(y)), true

	case protocol.SubsurfacePlaceAbove, protocol.SubsurfacePlaceBelow:
		sid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		parent := lookup(&s.surfaces, sub.parent)
		sibling, _ := s.surfaceArg(c, sid)
		if parent == nil || sibling == nil || sibling.handle == sub.surface {
			return wire.Errorf(obj.ID, protocol.SubsurfaceErrorBadSurface, "invalid sibling %v", sid)
		}
		i := slices.Index(parent.pendingStack, sibling.handle)
		if i < 0 {
			return wire.Errorf(obj.ID, protocol.SubsurfaceErrorBadSurface, "%v is not a sibling", sibling.obj)
		}

		stack := slices.DeleteFunc(parent.pendingStack, func(h arena.Handle) bool { return h == sub.surface })
		i = slices.Index(stack, sibling.handle)
		if msg.Op() == protocol.SubsurfacePlaceAbove {
			i++
		}
		parent.pendingStack = slices.Insert(stack, i, sub.surface)

	case protocol.SubsurfaceSetSync:
		sub.sync = true

	case protocol.SubsurfaceSetDesync:
		sub.sync = false
		if sub.hasCache && !s.synchronized(sub) {
			if surf := lookup(&s.surfaces, sub.surface); surf != nil {
				sub.hasCache = false
				s.apply(surf, &sub.cached)
			}
		}
	}
	return nil
}

// unlinkSubsurface removes sub from its parent's stacks.
func (s *State) unlinkSubsurface(sub *Subsurface) {
	parent := lookup(&s.surfaces, sub.parent)
	if parent == nil {
		return
	}
	if surf := lookup(&s.surfaces, sub.surface); surf != nil {
		s.damageSurfaceTree(surf)
	}
	match := func(h arena.Handle) bool { return h == sub.surface }
	parent.stack = slices.DeleteFunc(parent.stack, match)
	parent.pendingStack = slices.DeleteFunc(parent.pendingStack, match)
	sub.parent = arena.Handle{}
}

func (s *State) destroySubsurface(h arena.Handle) {
	sub, ok := s.subsurfaces.Remove(h)
	if !ok {
		return
	}
	s.unlinkSubsurface(sub)
	if surf := lookup(&s.surfaces, sub.surface); surf != nil && surf.view == h {
		surf.view = arena.Handle{}
	}
	for _, cb := range sub.cached.frames {
		cb.Client().Delete(cb)
	}
	sub.cached = surfaceState{}
}
