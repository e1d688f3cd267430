package wl

import (
	"image"

	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
)

type WmBase struct {
	object

	// OnPing overrides the default of answering every ping right away.
	OnPing func(serial uint32)
}

func (wm *WmBase) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() != protocol.EvXdgWmBasePing {
		return
	}
	serial := msg.ReadUint()
	if wm.OnPing != nil {
		wm.OnPing(serial)
		return
	}
	wm.Pong(serial)
}

func (wm *WmBase) Pong(serial uint32) {
	msg := wm.request(protocol.XdgWmBasePong)
	msg.WriteUint(serial)
	wm.send(msg)
}

func (wm *WmBase) Destroy() {
	wm.destroy(protocol.XdgWmBaseDestroy)
}

func (wm *WmBase) CreatePositioner() *Positioner {
	var pos Positioner
	wm.client.register(&pos, protocol.KindXdgPositioner, wm.version)

	msg := wm.request(protocol.XdgWmBaseCreatePositioner)
	msg.WriteUint(pos.id)
	wm.send(msg)
	return &pos
}

func (wm *WmBase) GetXdgSurface(s *Surface) *XdgSurface {
	var xs XdgSurface
	wm.client.register(&xs, protocol.KindXdgSurface, wm.version)

	msg := wm.request(protocol.XdgWmBaseGetXdgSurface)
	msg.WriteUint(xs.id)
	msg.WriteObject(s.id)
	wm.send(msg)
	return &xs
}

type XdgSurface struct {
	object

	// OnConfigure is called at the end of every configure sequence.
	// If it is nil, the configure is acknowledged immediately.
	OnConfigure func(serial uint32)
}

func (xs *XdgSurface) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() != protocol.EvXdgSurfaceConfigure {
		return
	}
	serial := msg.ReadUint()
	if xs.OnConfigure != nil {
		xs.OnConfigure(serial)
		return
	}
	xs.AckConfigure(serial)
}

func (xs *XdgSurface) AckConfigure(serial uint32) {
	msg := xs.request(protocol.XdgSurfaceAckConfigure)
	msg.WriteUint(serial)
	xs.send(msg)
}

func (xs *XdgSurface) SetWindowGeometry(r image.Rectangle) {
	xs.send(rectRequest(xs.request(protocol.XdgSurfaceSetWindowGeometry), r))
}

func (xs *XdgSurface) GetToplevel() *Toplevel {
	var t Toplevel
	xs.client.register(&t, protocol.KindXdgToplevel, xs.version)

	msg := xs.request(protocol.XdgSurfaceGetToplevel)
	msg.WriteUint(t.id)
	xs.send(msg)
	return &t
}

// GetPopup creates a popup positioned relative to parent, which may be
// nil if the parent is set through another protocol.
func (xs *XdgSurface) GetPopup(parent *XdgSurface, pos *Positioner) *Popup {
	var p Popup
	xs.client.register(&p, protocol.KindXdgPopup, xs.version)

	var parentID uint32
	if parent != nil {
		parentID = parent.id
	}

	msg := xs.request(protocol.XdgSurfaceGetPopup)
	msg.WriteUint(p.id)
	msg.WriteObject(parentID)
	msg.WriteObject(pos.id)
	xs.send(msg)
	return &p
}

func (xs *XdgSurface) Destroy() {
	xs.destroy(protocol.XdgSurfaceDestroy)
}

// ToplevelConfigure is the state carried by one xdg_toplevel.configure.
type ToplevelConfigure struct {
	Width, Height int32
	States        []uint32
}

// Has reports whether state is in the configured states.
func (tc ToplevelConfigure) Has(state uint32) bool {
	for _, s := range tc.States {
		if s == state {
			return true
		}
	}
	return false
}

type Toplevel struct {
	object
	last ToplevelConfigure

	OnConfigure func(c ToplevelConfigure)
	OnClose     func()
	OnBounds    func(w, h int32)
}

// Last returns the most recent configure.
func (t *Toplevel) Last() ToplevelConfigure {
	return t.last
}

func (t *Toplevel) dispatch(msg *wire.MessageBuffer) {
	switch msg.Op() {
	case protocol.EvXdgToplevelConfigure:
		c := ToplevelConfigure{Width: msg.ReadInt(), Height: msg.ReadInt()}
		c.States = readKeys(msg.ReadArray())
		t.last = c
		if t.OnConfigure != nil {
			t.OnConfigure(c)
		}
	case protocol.EvXdgToplevelClose:
		if t.OnClose != nil {
			t.OnClose()
		}
	case protocol.EvXdgToplevelConfigureBounds:
		w, h := msg.ReadInt(), msg.ReadInt()
		if t.OnBounds != nil {
			t.OnBounds(w, h)
		}
	}
}

func (t *Toplevel) Destroy() {
	t.destroy(protocol.XdgToplevelDestroy)
}

func (t *Toplevel) SetParent(parent *Toplevel) {
	var id uint32
	if parent != nil {
		id = parent.id
	}
	msg := t.request(protocol.XdgToplevelSetParent)
	msg.WriteObject(id)
	t.send(msg)
}

func (t *Toplevel) SetTitle(title string) {
	msg := t.request(protocol.XdgToplevelSetTitle)
	msg.WriteString(title)
	t.send(msg)
}

func (t *Toplevel) SetAppID(id string) {
	msg := t.request(protocol.XdgToplevelSetAppId)
	msg.WriteString(id)
	t.send(msg)
}

func (t *Toplevel) Move(seat *Seat, serial uint32) {
	msg := t.request(protocol.XdgToplevelMove)
	msg.WriteObject(seat.id)
	msg.WriteUint(serial)
	t.send(msg)
}

func (t *Toplevel) Resize(seat *Seat, serial, edges uint32) {
	msg := t.request(protocol.XdgToplevelResize)
	msg.WriteObject(seat.id)
	msg.WriteUint(serial)
	msg.WriteUint(edges)
	t.send(msg)
}

func (t *Toplevel) SetMinSize(w, h int32) {
	msg := t.request(protocol.XdgToplevelSetMinSize)
	msg.WriteInt(w)
	msg.WriteInt(h)
	t.send(msg)
}

func (t *Toplevel) SetMaxSize(w, h int32) {
	msg := t.request(protocol.XdgToplevelSetMaxSize)
	msg.WriteInt(w)
	msg.WriteInt(h)
	t.send(msg)
}

func (t *Toplevel) SetMaximized() {
	t.send(t.request(protocol.XdgToplevelSetMaximized))
}

func (t *Toplevel) UnsetMaximized() {
	t.send(t.request(protocol.XdgToplevelUnsetMaximized))
}

// SetFullscreen asks to be made fullscreen on out, or on an output of
// the compositor's choosing if out is nil.
func (t *Toplevel) SetFullscreen(out *Output) {
	var id uint32
	if out != nil {
		id = out.id
	}
	msg := t.request(protocol.XdgToplevelSetFullscreen)
	msg.WriteObject(id)
	t.send(msg)
}

func (t *Toplevel) UnsetFullscreen() {
	t.send(t.request(protocol.XdgToplevelUnsetFullscreen))
}

func (t *Toplevel) SetMinimized() {
	t.send(t.request(protocol.XdgToplevelSetMinimized))
}

type Positioner struct {
	object
}

func (pos *Positioner) dispatch(*wire.MessageBuffer) {}

func (pos *Positioner) Destroy() {
	pos.destroy(protocol.XdgPositionerDestroy)
}

func (pos *Positioner) SetSize(w, h int32) {
	msg := pos.request(protocol.XdgPositionerSetSize)
	msg.WriteInt(w)
	msg.WriteInt(h)
	pos.send(msg)
}

func (pos *Positioner) SetAnchorRect(r image.Rectangle) {
	pos.send(rectRequest(pos.request(protocol.XdgPositionerSetAnchorRect), r))
}

func (pos *Positioner) SetAnchor(anchor uint32) {
	msg := pos.request(protocol.XdgPositionerSetAnchor)
	msg.WriteUint(anchor)
	pos.send(msg)
}

func (pos *Positioner) SetGravity(gravity uint32) {
	msg := pos.request(protocol.XdgPositionerSetGravity)
	msg.WriteUint(gravity)
	pos.send(msg)
}

func (pos *Positioner) SetConstraintAdjustment(adj uint32) {
	msg := pos.request(protocol.XdgPositionerSetConstraintAdjustment)
	msg.WriteUint(adj)
	pos.send(msg)
}

func (pos *Positioner) SetOffset(x, y int32) {
	msg := pos.request(protocol.XdgPositionerSetOffset)
	msg.WriteInt(x)
	msg.WriteInt(y)
	pos.send(msg)
}

type Popup struct {
	object

	OnConfigure func(r image.Rectangle)
	OnDone      func()
}

func (p *Popup) dispatch(msg *wire.MessageBuffer) {
	switch msg.Op() {
	case protocol.EvXdgPopupConfigure:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if p.OnConfigure != nil {
			p.OnConfigure(image.Rect(int(x), int(y), int(x+w), int(y+h)))
		}
	case protocol.EvXdgPopupPopupDone:
		if p.OnDone != nil {
			p.OnDone()
		}
	}
}

func (p *Popup) Grab(seat *Seat, serial uint32) {
	msg := p.request(protocol.XdgPopupGrab)
	msg.WriteObject(seat.id)
	msg.WriteUint(serial)
	p.send(msg)
}

func (p *Popup) Destroy() {
	p.destroy(protocol.XdgPopupDestroy)
}

type DecorationManager struct {
	object
}

func (m *DecorationManager) dispatch(*wire.MessageBuffer) {}

func (m *DecorationManager) Destroy() {
	m.destroy(protocol.DecorationManagerDestroy)
}

func (m *DecorationManager) GetToplevelDecoration(t *Toplevel) *ToplevelDecoration {
	var d ToplevelDecoration
	m.client.register(&d, protocol.KindToplevelDecoration, m.version)

	msg := m.request(protocol.DecorationManagerGetToplevelDecoration)
	msg.WriteUint(d.id)
	msg.WriteObject(t.id)
	m.send(msg)
	return &d
}

type ToplevelDecoration struct {
	object
	mode uint32

	OnConfigure func(mode uint32)
}

// Mode returns the last mode the compositor configured.
func (d *ToplevelDecoration) Mode() uint32 {
	return d.mode
}

func (d *ToplevelDecoration) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() != protocol.EvToplevelDecorationConfigure {
		return
	}
	d.mode = msg.ReadUint()
	if d.OnConfigure != nil {
		d.OnConfigure(d.mode)
	}
}

func (d *ToplevelDecoration) SetMode(mode uint32) {
	msg := d.request(protocol.ToplevelDecorationSetMode)
	msg.WriteUint(mode)
	d.send(msg)
}

func (d *ToplevelDecoration) UnsetMode() {
	d.send(d.request(protocol.ToplevelDecorationUnsetMode))
}

func (d *ToplevelDecoration) Destroy() {
	d.destroy(protocol.ToplevelDecorationDestroy)
}
