package wl

import (
	"image"

	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
)

type Compositor struct {
	object
}

func (comp *Compositor) dispatch(*wire.MessageBuffer) {}

func (comp *Compositor) CreateSurface() *Surface {
	var s Surface
	comp.client.register(&s, protocol.KindSurface, comp.version)

	msg := comp.request(protocol.CompositorCreateSurface)
	msg.WriteUint(s.id)
	comp.send(msg)
	return &s
}

func (comp *Compositor) CreateRegion() *Region {
	var r Region
	comp.client.register(&r, protocol.KindRegion, 1)

	msg := comp.request(protocol.CompositorCreateRegion)
	msg.WriteUint(r.id)
	comp.send(msg)
	return &r
}

type Surface struct {
	object

	OnEnter func(output uint32)
	OnLeave func(output uint32)
	OnScale func(factor int32)
}

func (s *Surface) dispatch(msg *wire.MessageBuffer) {
	switch msg.Op() {
	case protocol.EvSurfaceEnter:
		id := msg.ReadObject()
		if s.OnEnter != nil {
			s.OnEnter(id)
		}
	case protocol.EvSurfaceLeave:
		id := msg.ReadObject()
		if s.OnLeave != nil {
			s.OnLeave(id)
		}
	case protocol.EvSurfacePreferredBufferScale:
		factor := msg.ReadInt()
		if s.OnScale != nil {
			s.OnScale(factor)
		}
	}
}

func (s *Surface) Destroy() {
	s.destroy(protocol.SurfaceDestroy)
}

// Attach sets the pending buffer. A nil buffer unmaps the surface on
// the next commit.
func (s *Surface) Attach(buf *Buffer, x, y int32) {
	var id uint32
	if buf != nil {
		id = buf.id
	}

	msg := s.request(protocol.SurfaceAttach)
	msg.WriteObject(id)
	msg.WriteInt(x)
	msg.WriteInt(y)
	s.send(msg)
}

func (s *Surface) Damage(r image.Rectangle) {
	s.send(rectRequest(s.request(protocol.SurfaceDamage), r))
}

func (s *Surface) DamageBuffer(r image.Rectangle) {
	s.send(rectRequest(s.request(protocol.SurfaceDamageBuffer), r))
}

// Frame requests a callback for the next frame that shows the
// surface's committed content.
func (s *Surface) Frame(done func(time uint32)) *Callback {
	cb := Callback{OnDone: done}
	s.client.register(&cb, protocol.KindCallback, 1)

	msg := s.request(protocol.SurfaceFrame)
	msg.WriteUint(cb.id)
	s.send(msg)
	return &cb
}

func (s *Surface) SetOpaqueRegion(r *Region) {
	var id uint32
	if r != nil {
		id = r.id
	}

	msg := s.request(protocol.SurfaceSetOpaqueRegion)
	msg.WriteObject(id)
	s.send(msg)
}

func (s *Surface) SetInputRegion(r *Region) {
	var id uint32
	if r != nil {
		id = r.id
	}

	msg := s.request(protocol.SurfaceSetInputRegion)
	msg.WriteObject(id)
	s.send(msg)
}

func (s *Surface) Commit() {
	s.send(s.request(protocol.SurfaceCommit))
}

func (s *Surface) SetBufferScale(scale int32) {
	msg := s.request(protocol.SurfaceSetBufferScale)
	msg.WriteInt(scale)
	s.send(msg)
}

func (s *Surface) SetBufferTransform(transform int32) {
	msg := s.request(protocol.SurfaceSetBufferTransform)
	msg.WriteInt(transform)
	s.send(msg)
}

func (s *Surface) Offset(x, y int32) {
	msg := s.request(protocol.SurfaceOffset)
	msg.WriteInt(x)
	msg.WriteInt(y)
	s.send(msg)
}

type Region struct {
	object
}

func (r *Region) dispatch(*wire.MessageBuffer) {}

func (r *Region) Destroy() {
	r.destroy(protocol.RegionDestroy)
}

func (r *Region) Add(rect image.Rectangle) {
	r.send(rectRequest(r.request(protocol.RegionAdd), rect))
}

func (r *Region) Subtract(rect image.Rectangle) {
	r.send(rectRequest(r.request(protocol.RegionSubtract), rect))
}

func rectRequest(msg *wire.MessageBuilder, r image.Rectangle) *wire.MessageBuilder {
	msg.WriteInt(int32(r.Min.X))
	msg.WriteInt(int32(r.Min.Y))
	msg.WriteInt(int32(r.Dx()))
	msg.WriteInt(int32(r.Dy()))
	return msg
}
