package compositor

import (
	"encoding/binary"
	"image"
	"math"
	"slices"

	"deedles.dev/wlt/cursor"
	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/set"
	"deedles.dev/wlt/internal/xkb"
	"deedles.dev/wlt/pointer"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
)

const seatName = "seat0"

type grabKind int

const (
	grabNone grabKind = iota
	grabMove
	grabResize
)

// grab is an interactive move or resize that follows the pointer
// until every button is released.
type grab struct {
	kind   grabKind
	window arena.Handle
	start  image.Point
	frame  image.Rectangle
	edges  uint32
}

// Seat routes input to clients.
type Seat struct {
	s   *State
	log *logrus.Entry

	keys     *xkb.State
	consumed set.Set[uint32]

	// focus is the surface with keyboard focus.
	focus arena.Handle

	// layer is the layer surface that holds the keyboard exclusively.
	layer arena.Handle

	// x and y are the pointer position in global coordinates. pos is
	// the same, rounded down.
	x, y float64
	pos  image.Point

	// hover is the surface that has pointer focus and origin is where
	// its top-left corner was when it got it.
	hover  arena.Handle
	origin image.Point

	buttons []uint32
	frame   bool

	cursor       arena.Handle
	cursorHidden bool
	image        *cursor.Image

	grab   grab
	popups []arena.Handle
}

func (seat *Seat) init(s *State) {
	seat.s = s
	seat.log = s.log.WithField("seat", seatName)
	seat.keys = xkb.NewState()
	seat.consumed = make(set.Set[uint32])
	seat.loadCursor()
}

// loadCursor picks the compositor's own cursor image from the theme.
func (seat *Seat) loadCursor() {
	c := cursor.Default()
	if seat.s.theme != nil {
		tc, err := seat.s.theme.Cursor("left_ptr")
		if err != nil {
			seat.log.WithError(err).Debug("using built-in cursor")
		}
		c = tc
	}
	seat.image = c.Frame(0)
}

func (seat *Seat) bind(c *server.Client, obj *server.Object) {
	ev := c.Event(obj, protocol.EvSeatCapabilities)
	ev.WriteUint(protocol.SeatCapabilityPointer | protocol.SeatCapabilityKeyboard)
	c.Send(ev)

	if obj.Version >= 2 {
		ev := c.Event(obj, protocol.EvSeatName)
		ev.WriteString(seatName)
		c.Send(ev)
	}
}

func (s *State) seatRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	seat := &s.seat
	cd := data(c)

	switch msg.Op() {
	case protocol.SeatGetPointer:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		p, err := c.NewObject(id, protocol.KindPointer, obj.Version)
		if err != nil {
			return err
		}
		cd.pointers = append(cd.pointers, p)
		if hover := lookup(&s.surfaces, seat.hover); hover != nil && hover.obj.Client() == c {
			seat.pointerEnter(p, hover)
		}

	case protocol.SeatGetKeyboard:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		kb, err := c.NewObject(id, protocol.KindKeyboard, obj.Version)
		if err != nil {
			return err
		}
		cd.keyboards = append(cd.keyboards, kb)
		seat.sendKeymap(kb)
		if focus := lookup(&s.surfaces, seat.focus); focus != nil && focus.obj.Client() == c {
			seat.keyboardEnter(kb, focus, s.nextSerial())
		}

	case protocol.SeatGetTouch:
		msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		return wire.Errorf(obj.ID, protocol.SeatErrorMissingCapability, "seat has no touch capability")

	case protocol.SeatRelease:
		s.destroy(c, obj)
	}
	return nil
}

func (seat *Seat) sendKeymap(kb *server.Object) {
	c := kb.Client()
	file, size, err := seat.s.keymap.File()
	if err != nil {
		seat.log.WithError(err).Error("keymap unavailable")
		return
	}

	ev := c.Event(kb, protocol.EvKeyboardKeymap)
	ev.WriteUint(protocol.KeyboardKeymapFormatXKBV1)
	ev.WriteFile(file)
	ev.WriteUint(size)
	c.Send(ev)

	seat.sendRepeatInfo(kb)
}

func (seat *Seat) sendRepeatInfo(kb *server.Object) {
	if kb.Version < 4 {
		return
	}
	c := kb.Client()
	kc := seat.s.cfg.Keyboard
	ev := c.Event(kb, protocol.EvKeyboardRepeatInfo)
	ev.WriteInt(int32(max(kc.RepeatRate, 0)))
	ev.WriteInt(int32(max(kc.RepeatDelay, 0)))
	c.Send(ev)
}

func (s *State) pointerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	seat := &s.seat

	switch msg.Op() {
	case protocol.PointerSetCursor:
		msg.ReadUint()
		sid := msg.ReadObject()
		hx, hy := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		hover := lookup(&s.surfaces, seat.hover)
		if hover == nil || hover.obj.Client() != c {
			return nil
		}

		old := s.cursorRect()
		if sid == 0 {
			seat.cursor = arena.Handle{}
			seat.cursorHidden = true
			s.damageCursor(old)
			return nil
		}

		surf, _ := s.surfaceArg(c, sid)
		if surf == nil {
			return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "%v is not a wl_surface", sid)
		}
		if !surf.setRole(roleCursor) {
			return wire.Errorf(obj.ID, protocol.PointerErrorRole, "%v already has the %v role", surf.obj, surf.role)
		}
		surf.hotspot = image.Pt(int(hx), int(hy))
		seat.cursor = surf.handle
		seat.cursorHidden = false
		s.damageCursor(old)

	case protocol.PointerRelease:
		s.destroy(c, obj)
	}
	return nil
}

// cursorCommit is called when the cursor surface is committed.
func (seat *Seat) cursorCommit(surf *Surface) {
	if seat.cursor != surf.handle {
		return
	}
	surf.hotspot = surf.hotspot.Sub(surf.current.offset)
	surf.current.offset = image.Point{}
	seat.s.damageCursor(image.Rectangle{})
}

// cursorRect returns the area covered by the cursor in global
// coordinates.
func (s *State) cursorRect() image.Rectangle {
	seat := &s.seat
	if seat.cursorHidden {
		return image.Rectangle{}
	}
	if surf := lookup(&s.surfaces, seat.cursor); surf != nil {
		origin := seat.pos.Sub(surf.hotspot)
		return s.treeBounds(surf, origin)
	}
	if seat.image == nil {
		return image.Rectangle{}
	}
	min := seat.pos.Sub(image.Pt(seat.image.XHot, seat.image.YHot))
	return image.Rectangle{Min: min, Max: min.Add(seat.image.Image.Rect.Size())}
}

// resetCursor goes back to the compositor's own cursor.
func (seat *Seat) resetCursor() {
	if !seat.cursor.Valid() && !seat.cursorHidden {
		return
	}
	old := seat.s.cursorRect()
	seat.cursor = arena.Handle{}
	seat.cursorHidden = false
	seat.s.damageCursor(old)
}

// focusedWindow returns the window whose surface has keyboard focus.
func (seat *Seat) focusedWindow() *Window {
	surf := lookup(&seat.s.surfaces, seat.focus)
	if surf == nil || surf.role != roleToplevel {
		return nil
	}
	return lookup(&seat.s.windows, surf.view)
}

// focusClient returns the client with keyboard focus.
func (seat *Seat) focusClient() *server.Client {
	surf := lookup(&seat.s.surfaces, seat.focus)
	if surf == nil {
		return nil
	}
	return surf.obj.Client()
}

// setFocus moves keyboard focus to surf. The old surface gets leave
// before the new one gets enter.
func (seat *Seat) setFocus(surf *Surface) {
	var h arena.Handle
	if surf != nil {
		h = surf.handle
	}
	if h == seat.focus {
		return
	}

	prev := seat.focusClient()
	if old := lookup(&seat.s.surfaces, seat.focus); old != nil {
		serial := seat.s.nextSerial()
		c := old.obj.Client()
		for _, kb := range data(c).keyboards {
			ev := c.Event(kb, protocol.EvKeyboardLeave)
			ev.WriteUint(serial)
			ev.WriteObject(old.obj.ID)
			c.Send(ev)
		}
	}

	seat.focus = h
	if surf == nil {
		return
	}

	serial := seat.s.nextSerial()
	c := surf.obj.Client()
	for _, kb := range data(c).keyboards {
		seat.keyboardEnter(kb, surf, serial)
	}
	if c != prev {
		seat.s.offerSelection(c)
	}
}

func (seat *Seat) keyboardEnter(kb *server.Object, surf *Surface, serial uint32) {
	var keys []byte
	for _, k := range seat.keys.Pressed() {
		if !seat.consumed.Has(k) {
			keys = binary.LittleEndian.AppendUint32(keys, k)
		}
	}

	c := kb.Client()
	ev := c.Event(kb, protocol.EvKeyboardEnter)
	ev.WriteUint(serial)
	ev.WriteObject(surf.obj.ID)
	ev.WriteArray(keys)
	c.Send(ev)
	seat.modifiers(kb, serial)
}

func (seat *Seat) modifiers(kb *server.Object, serial uint32) {
	m := seat.keys.Modifiers()
	c := kb.Client()
	ev := c.Event(kb, protocol.EvKeyboardModifiers)
	ev.WriteUint(serial)
	ev.WriteUint(m.Depressed)
	ev.WriteUint(m.Latched)
	ev.WriteUint(m.Locked)
	ev.WriteUint(m.Group)
	c.Send(ev)
}

// layerGrab reports whether a layer surface holds the keyboard.
func (seat *Seat) layerGrab() bool {
	l := lookup(&seat.s.layers, seat.layer)
	return l != nil && l.mapped
}

func (seat *Seat) layerMapped(l *LayerSurface) {
	if l.current.keyboard != protocol.KeyboardInteractivityExclusive || l.current.layer < protocol.LayerTop {
		return
	}
	seat.layer = l.handle
	seat.setFocus(lookup(&seat.s.surfaces, l.surface))
}

func (seat *Seat) layerGone(l *LayerSurface) {
	if seat.layer == l.handle {
		seat.layer = arena.Handle{}
	}
	if seat.focus == l.surface {
		seat.focus = arena.Handle{}
		seat.s.focusWindow(seat.s.focusedWindow())
	}
}

func (seat *Seat) windowGone(w *Window) {
	if seat.grab.window == w.handle {
		seat.grab = grab{}
	}
}

// surfaceGone forgets every reference to a destroyed surface.
func (seat *Seat) surfaceGone(h arena.Handle) {
	if seat.focus == h {
		seat.focus = arena.Handle{}
	}
	if seat.cursor == h {
		seat.cursor = arena.Handle{}
		seat.s.damageCursor(image.Rectangle{})
	}
	if seat.hover == h {
		seat.hover = arena.Handle{}
		seat.refocusPointer()
	}
}

func (seat *Seat) clientGone(c *server.Client) {
	if hover := lookup(&seat.s.surfaces, seat.hover); hover != nil && hover.obj.Client() == c {
		seat.hover = arena.Handle{}
	}
	seat.refocusPointer()
	seat.s.log.WithField("client", c).Debug("client gone")
}

func (seat *Seat) resizing(w *Window) bool {
	return seat.grab.kind == grabResize && seat.grab.window == w.handle
}

// canGrab reports whether the client of w may start an interactive
// grab: it needs a button held down on one of its surfaces.
func (seat *Seat) canGrab(w *Window) bool {
	if !w.mapped || !w.floating || w.fullscreen || len(seat.buttons) == 0 || seat.grab.kind != grabNone {
		return false
	}
	hover := lookup(&seat.s.surfaces, seat.hover)
	return hover != nil && hover.obj.Client() == w.obj.Client()
}

func (seat *Seat) startMove(w *Window, serial uint32) {
	if !seat.canGrab(w) {
		return
	}
	seat.beginGrab(grab{kind: grabMove, window: w.handle, start: seat.pos, frame: w.frame})
}

func (seat *Seat) startResize(w *Window, serial uint32, edges uint32) {
	if !seat.canGrab(w) || edges == protocol.ResizeEdgeNone {
		return
	}
	seat.beginGrab(grab{kind: grabResize, window: w.handle, start: seat.pos, frame: w.frame, edges: edges})
	seat.s.configureWindow(lookup(&seat.s.windows, w.handle))
}

func (seat *Seat) beginGrab(g grab) {
	seat.dismissPopups()
	seat.setHover(nil, image.Point{})
	seat.grab = g
	seat.log.WithField("kind", g.kind).Debug("grab started")
}

// updateGrab moves or resizes the grabbed window to follow the
// pointer.
func (seat *Seat) updateGrab() {
	g := seat.grab
	w := lookup(&seat.s.windows, g.window)
	if w == nil || !w.mapped {
		seat.grab = grab{}
		return
	}

	d := seat.pos.Sub(g.start)
	frame := g.frame
	switch g.kind {
	case grabMove:
		frame = frame.Add(d)
	case grabResize:
		if g.edges&protocol.ResizeEdgeLeft != 0 {
			frame.Min.X = min(frame.Min.X+d.X, frame.Max.X-1)
		}
		if g.edges&protocol.ResizeEdgeRight != 0 {
			frame.Max.X = max(frame.Max.X+d.X, frame.Min.X+1)
		}
		if g.edges&protocol.ResizeEdgeTop != 0 {
			frame.Min.Y = min(frame.Min.Y+d.Y, frame.Max.Y-1)
		}
		if g.edges&protocol.ResizeEdgeBottom != 0 {
			frame.Max.Y = max(frame.Max.Y+d.Y, frame.Min.Y+1)
		}
	}
	w.float = frame
	seat.s.placeWindow(w, frame)
}

func (seat *Seat) endGrab() {
	g := seat.grab
	seat.grab = grab{}
	if w := lookup(&seat.s.windows, g.window); w != nil && g.kind == grabResize {
		seat.s.configureWindow(w)
	}
	seat.refocusPointer()
}

// cancelGrab stops any grab: interactive ones and popup grabs.
func (seat *Seat) cancelGrab() {
	if seat.grab.kind != grabNone {
		seat.endGrab()
	}
	seat.dismissPopups()
}

func (seat *Seat) topPopup() *Popup {
	if len(seat.popups) == 0 {
		return nil
	}
	return lookup(&seat.s.popups, seat.popups[len(seat.popups)-1])
}

func (seat *Seat) grabPopup(p *Popup, serial uint32) {
	if top := seat.topPopup(); top != nil && top.surface != p.parent {
		seat.s.dismissPopup(p)
		return
	}
	p.grabbed = true
	seat.popups = append(seat.popups, p.handle)
	seat.setFocus(lookup(&seat.s.surfaces, p.surface))
}

func (seat *Seat) popupGone(p *Popup) {
	if !p.grabbed {
		return
	}
	p.grabbed = false
	seat.popups = slices.DeleteFunc(seat.popups, func(h arena.Handle) bool { return h == p.handle })
	if seat.focus != p.surface {
		return
	}
	if top := seat.topPopup(); top != nil {
		seat.setFocus(lookup(&seat.s.surfaces, top.surface))
		return
	}
	seat.focus = arena.Handle{}
	seat.s.focusWindow(seat.s.focusedWindow())
}

// dismissPopups closes every grabbing popup, topmost first.
func (seat *Seat) dismissPopups() {
	for len(seat.popups) > 0 {
		p := seat.topPopup()
		if p == nil {
			seat.popups = seat.popups[:len(seat.popups)-1]
			continue
		}
		seat.s.dismissPopup(p)
	}
}

// surfaceAt returns the surface that accepts pointer input at p, and
// the position of its top-left corner.
func (s *State) surfaceAt(p image.Point) (*Surface, image.Point) {
	o := s.outputAt(p)
	if o == nil {
		return nil, image.Point{}
	}
	roots := s.roots(o)
	for i := len(roots) - 1; i >= 0; i-- {
		root := roots[i]
		if !root.obj.Client().Alive() {
			continue
		}
		origin, ok := s.surfaceOrigin(root)
		if !ok {
			continue
		}
		if hit, local, ok := s.treeAt(root, origin, p); ok {
			return hit, p.Sub(local)
		}
	}
	return nil, image.Point{}
}

// windowAt returns the topmost window covering p on the active
// workspace, decorations included.
func (s *State) windowAt(p image.Point) *Window {
	stack := s.stacking(s.activeWorkspace())
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		if w.mapped && p.In(s.windowBounds(w)) {
			return w
		}
	}
	return nil
}

// refocusPointer gives pointer focus to whatever is under the
// pointer now.
func (seat *Seat) refocusPointer() {
	if seat.s == nil || seat.grab.kind != grabNone {
		return
	}
	if len(seat.buttons) > 0 && lookup(&seat.s.surfaces, seat.hover) != nil {
		return
	}
	surf, origin := seat.s.surfaceAt(seat.pos)
	seat.setHover(surf, origin)
}

func (seat *Seat) local(origin image.Point) (wire.Fixed, wire.Fixed) {
	return wire.FixedFloat(seat.x - float64(origin.X)), wire.FixedFloat(seat.y - float64(origin.Y))
}

// setHover moves pointer focus to surf, whose top-left corner is at
// origin.
func (seat *Seat) setHover(surf *Surface, origin image.Point) {
	var h arena.Handle
	if surf != nil {
		h = surf.handle
	}
	if h == seat.hover {
		seat.origin = origin
		return
	}

	if old := lookup(&seat.s.surfaces, seat.hover); old != nil {
		serial := seat.s.nextSerial()
		c := old.obj.Client()
		for _, p := range data(c).pointers {
			ev := c.Event(p, protocol.EvPointerLeave)
			ev.WriteUint(serial)
			ev.WriteObject(old.obj.ID)
			c.Send(ev)
			seat.pointerFrame(p)
		}
	}

	seat.hover = h
	seat.origin = origin
	seat.resetCursor()
	if surf == nil {
		return
	}
	for _, p := range data(surf.obj.Client()).pointers {
		seat.pointerEnter(p, surf)
	}
}

func (seat *Seat) pointerEnter(p *server.Object, surf *Surface) {
	x, y := seat.local(seat.origin)
	c := p.Client()
	ev := c.Event(p, protocol.EvPointerEnter)
	ev.WriteUint(seat.s.nextSerial())
	ev.WriteObject(surf.obj.ID)
	ev.WriteFixed(x)
	ev.WriteFixed(y)
	c.Send(ev)
	seat.pointerFrame(p)
}

func (seat *Seat) pointerFrame(p *server.Object) {
	if p.Version < 5 {
		return
	}
	c := p.Client()
	c.Send(c.Event(p, protocol.EvPointerFrame))
}

// hoverPointers returns the wl_pointers of the client under the
// pointer.
func (seat *Seat) hoverPointers() []*server.Object {
	hover := lookup(&seat.s.surfaces, seat.hover)
	if hover == nil {
		return nil
	}
	return data(hover.obj.Client()).pointers
}

// Key implements backend.InputSink. Keys that trigger a binding are
// never seen by clients, and neither are their releases.
func (s *State) Key(time uint32, code uint32, pressed bool) {
	seat := &s.seat
	changed := seat.keys.Update(code, pressed)

	if pressed {
		if b, ok := s.matchBinding(seat.keys.Effective(), xkb.BaseKeysym(code)); ok {
			seat.consumed.Add(code)
			s.log.WithFields(logrus.Fields{
				"key":    b.Keybind,
				"action": b.Action.Kind,
			}).Debug("keybind")
			s.runAction(b.Action)
			return
		}
	} else if seat.consumed.Has(code) {
		seat.consumed.Delete(code)
		return
	}

	c := seat.focusClient()
	if c == nil {
		return
	}
	state := uint32(protocol.KeyboardKeyStateReleased)
	if pressed {
		state = protocol.KeyboardKeyStatePressed
	}
	serial := s.nextSerial()
	for _, kb := range data(c).keyboards {
		ev := c.Event(kb, protocol.EvKeyboardKey)
		ev.WriteUint(serial)
		ev.WriteUint(time)
		ev.WriteUint(code)
		ev.WriteUint(state)
		c.Send(ev)
		if changed {
			seat.modifiers(kb, serial)
		}
	}
}

// PointerMotion implements backend.InputSink.
func (s *State) PointerMotion(time uint32, dx, dy float64) {
	s.movePointer(time, s.seat.x+dx, s.seat.y+dy)
}

// PointerMotionAbsolute implements backend.InputSink.
func (s *State) PointerMotionAbsolute(time uint32, d backend.Display, x, y float64) {
	o := s.outputFor(d)
	if o == nil {
		return
	}
	pos := o.out.Position
	s.movePointer(time, float64(pos.X)+x, float64(pos.Y)+y)
}

func (s *State) movePointer(time uint32, x, y float64) {
	seat := &s.seat
	bounds := s.layoutBounds()
	x = min(max(x, float64(bounds.Min.X)), float64(bounds.Max.X-1))
	y = min(max(y, float64(bounds.Min.Y)), float64(bounds.Max.Y-1))

	old := s.cursorRect()
	seat.x, seat.y = x, y
	seat.pos = image.Pt(int(math.Floor(x)), int(math.Floor(y)))
	s.damageCursor(old)

	if seat.grab.kind != grabNone {
		seat.updateGrab()
		return
	}

	before := seat.hover
	seat.refocusPointer()
	if seat.hover != before || !seat.hover.Valid() {
		return
	}

	lx, ly := seat.local(seat.origin)
	for _, p := range seat.hoverPointers() {
		c := p.Client()
		ev := c.Event(p, protocol.EvPointerMotion)
		ev.WriteUint(time)
		ev.WriteFixed(lx)
		ev.WriteFixed(ly)
		c.Send(ev)
	}
	seat.frame = true
}

// PointerButton implements backend.InputSink.
func (s *State) PointerButton(time uint32, button uint32, pressed bool) {
	seat := &s.seat
	if pressed {
		if slices.Contains(seat.buttons, button) {
			return
		}
		seat.buttons = append(seat.buttons, button)
	} else {
		i := slices.Index(seat.buttons, button)
		if i < 0 {
			return
		}
		seat.buttons = slices.Delete(seat.buttons, i, i+1)
	}

	if seat.grab.kind != grabNone {
		if len(seat.buttons) == 0 {
			seat.endGrab()
		}
		return
	}

	if pressed && len(seat.buttons) == 1 {
		s.clickFocus(button)
		if seat.grab.kind != grabNone {
			return
		}
	}

	state := uint32(protocol.PointerButtonStateReleased)
	if pressed {
		state = protocol.PointerButtonStatePressed
	}
	serial := s.nextSerial()
	for _, p := range seat.hoverPointers() {
		c := p.Client()
		ev := c.Event(p, protocol.EvPointerButton)
		ev.WriteUint(serial)
		ev.WriteUint(time)
		ev.WriteUint(button)
		ev.WriteUint(state)
		c.Send(ev)
	}
	seat.frame = true

	if !pressed && len(seat.buttons) == 0 {
		seat.refocusPointer()
	}
}

// clickFocus handles the first button press: it dismisses popups of
// other clients, moves keyboard focus and starts title bar drags.
func (s *State) clickFocus(button uint32) {
	seat := &s.seat
	hover := lookup(&s.surfaces, seat.hover)

	if top := seat.topPopup(); top != nil {
		if hover == nil || hover.obj.Client() != top.obj.Client() {
			seat.dismissPopups()
			seat.refocusPointer()
			hover = lookup(&s.surfaces, seat.hover)
		} else {
			return
		}
	}

	if hover != nil && hover.role == roleLayer {
		if l := lookup(&s.layers, hover.view); l != nil && l.current.keyboard != protocol.KeyboardInteractivityNone {
			seat.setFocus(hover)
			return
		}
	}

	w := s.windowAt(seat.pos)
	if w == nil {
		return
	}
	if w != s.focusedWindow() || seat.focus != w.surface {
		s.focusWindow(w)
	}

	if hover == nil && pointer.Button(button) == pointer.ButtonLeft && w.ssd && w.floating && !w.fullscreen {
		if seat.pos.In(w.frame) && !seat.pos.In(w.content(s)) {
			seat.grab = grab{kind: grabMove, window: w.handle, start: seat.pos, frame: w.frame}
		}
	}
}

// PointerAxis implements backend.InputSink.
func (s *State) PointerAxis(time uint32, axis uint32, value float64, discrete int32) {
	seat := &s.seat
	if seat.grab.kind != grabNone {
		return
	}
	for _, p := range seat.hoverPointers() {
		c := p.Client()
		if p.Version >= 5 && discrete != 0 {
			ev := c.Event(p, protocol.EvPointerAxisSource)
			ev.WriteUint(protocol.PointerAxisSourceWheel)
			c.Send(ev)

			ev = c.Event(p, protocol.EvPointerAxisDiscrete)
			ev.WriteUint(axis)
			ev.WriteInt(discrete)
			c.Send(ev)
		}
		ev := c.Event(p, protocol.EvPointerAxis)
		ev.WriteUint(time)
		ev.WriteUint(axis)
		ev.WriteFixed(wire.FixedFloat(value))
		c.Send(ev)
	}
	seat.frame = true
}

// Frame implements backend.InputSink.
func (s *State) Frame() {
	seat := &s.seat
	if !seat.frame {
		return
	}
	seat.frame = false
	for _, p := range seat.hoverPointers() {
		seat.pointerFrame(p)
	}
}
