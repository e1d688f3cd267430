package compositor

import (
	"image"
	"slices"
	"time"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/internal/render"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/wire"
)

// Capture is a zwlr_screencopy_frame_v1: a request to copy part of an
// output into a client's buffer.
type Capture struct {
	obj    *server.Object
	handle arena.Handle
	output *Output

	// rect is the captured area in output coordinates.
	rect image.Rectangle

	buffer     arena.Handle
	withDamage bool
	used       bool
	copied     bool
	damage     region.Region
}

func (cp *Capture) stride() int {
	return cp.rect.Dx() * 4
}

func (s *State) screencopyManagerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.ScreencopyManagerCaptureOutput, protocol.ScreencopyManagerCaptureOutputRegion:
		id := msg.ReadUint()
		msg.ReadInt() // overlay_cursor: the cursor is always part of the frame.
		oid := msg.ReadObject()
		var r image.Rectangle
		partial := msg.Op() == protocol.ScreencopyManagerCaptureOutputRegion
		if partial {
			x, y := msg.ReadInt(), msg.ReadInt()
			w, h := msg.ReadInt(), msg.ReadInt()
			r = image.Rect(int(x), int(y), int(x+w), int(y+h))
		}
		if err := msg.Err(); err != nil {
			return err
		}

		fobj, err := c.NewObject(id, protocol.KindScreencopyFrame, obj.Version)
		if err != nil {
			return err
		}
		cp := Capture{obj: fobj}
		cp.handle = s.captures.Insert(&cp)
		fobj.Handle = cp.handle

		o := s.outputOf(c.Object(oid))
		if o == nil {
			s.failCapture(&cp)
			return nil
		}
		cp.output = o
		cp.rect = image.Rectangle{Max: o.out.Mode.Size()}
		if partial {
			cp.rect = r.Canon().Intersect(cp.rect)
		}
		if cp.rect.Empty() {
			s.failCapture(&cp)
			return nil
		}

		ev := c.Event(fobj, protocol.EvScreencopyFrameBuffer)
		ev.WriteUint(uint32(shm.XRGB8888))
		ev.WriteUint(uint32(cp.rect.Dx()))
		ev.WriteUint(uint32(cp.rect.Dy()))
		ev.WriteUint(uint32(cp.stride()))
		c.Send(ev)
		if fobj.Version >= 3 {
			c.Send(c.Event(fobj, protocol.EvScreencopyFrameBufferDone))
		}

	case protocol.ScreencopyManagerDestroy:
		s.destroy(c, obj)
	}
	return nil
}

func (s *State) captureRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	cp := lookup(&s.captures, obj.Handle)

	switch msg.Op() {
	case protocol.ScreencopyFrameCopy, protocol.ScreencopyFrameCopyWithDamage:
		bid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if cp == nil {
			return nil
		}
		if cp.used {
			return wire.Errorf(obj.ID, protocol.ScreencopyErrorAlreadyUsed, "frame already used")
		}
		cp.used = true
		if cp.output == nil {
			return nil
		}

		bobj := c.Object(bid)
		if bobj == nil || bobj.Kind != protocol.KindBuffer {
			return wire.Errorf(obj.ID, protocol.ScreencopyErrorInvalidBuffer, "%v is not a buffer", bid)
		}
		b := lookup(&s.buffers, bobj.Handle)
		if b == nil || !s.captureBufferValid(cp, b) {
			return wire.Errorf(obj.ID, protocol.ScreencopyErrorInvalidBuffer, "buffer does not match the advertised parameters")
		}
		if !b.pool.Writable() {
			s.failCapture(cp)
			return nil
		}

		cp.buffer = b.handle
		cp.withDamage = msg.Op() == protocol.ScreencopyFrameCopyWithDamage
		o := cp.output
		o.captures = append(o.captures, cp.handle)
		if !cp.withDamage {
			o.sched.Schedule()
		}

	case protocol.ScreencopyFrameDestroy:
		s.destroy(c, obj)
	}
	return nil
}

func (s *State) captureBufferValid(cp *Capture, b *Buffer) bool {
	if b.pool == nil || b.dma != nil {
		return false
	}
	if b.format != shm.XRGB8888 && b.format != shm.ARGB8888 {
		return false
	}
	return b.width == cp.rect.Dx() && b.height == cp.rect.Dy() && b.stride == cp.stride()
}

func (s *State) failCapture(cp *Capture) {
	if !cp.obj.Alive() {
		return
	}
	c := cp.obj.Client()
	c.Send(c.Event(cp.obj, protocol.EvScreencopyFrameFailed))
}

// capturePending reports whether a capture is waiting for o to draw a
// frame regardless of damage.
func (s *State) capturePending(o *Output) bool {
	for _, h := range o.captures {
		cp := lookup(&s.captures, h)
		if cp != nil && !cp.copied && !cp.withDamage {
			return true
		}
	}
	return false
}

// copyCaptures copies a frame that was just composited into the
// buffers of o's waiting captures.
func (s *State) copyCaptures(o *Output, t *render.Target, damage region.Region) {
	for _, h := range o.captures {
		cp := lookup(&s.captures, h)
		if cp == nil || cp.copied {
			continue
		}
		if cp.withDamage && !damage.Overlaps(cp.rect) {
			continue
		}

		b := lookup(&s.buffers, cp.buffer)
		if b == nil || b.freed || !s.captureBufferValid(cp, b) || !cp.rect.In(t.Image.Rect) {
			s.failCapture(cp)
			cp.copied = true
			continue
		}

		err := shm.Guard(func() {
			dst := b.pool.Bytes()[b.offset:]
			src := t.Image
			w := cp.rect.Dx() * 4
			for y := 0; y < cp.rect.Dy(); y++ {
				si := src.PixOffset(cp.rect.Min.X, cp.rect.Min.Y+y)
				copy(dst[y*b.stride:y*b.stride+w], src.Pix[si:si+w])
			}
		})
		if err != nil {
			s.log.WithError(err).Warn("copy frame to client")
			s.failCapture(cp)
			cp.copied = true
			continue
		}

		cp.copied = true
		cp.damage = damage.Intersect(cp.rect).Translate(cp.rect.Min.Mul(-1))
	}
}

// finishCaptures reports the captures copied from the frame that o
// just presented.
func (s *State) finishCaptures(o *Output, t time.Time) {
	var waiting []arena.Handle
	for _, h := range o.captures {
		cp := lookup(&s.captures, h)
		if cp == nil {
			continue
		}
		if !cp.copied {
			waiting = append(waiting, h)
			continue
		}
		if !cp.obj.Alive() {
			continue
		}
		if lookup(&s.buffers, cp.buffer) == nil {
			continue
		}

		c := cp.obj.Client()
		ev := c.Event(cp.obj, protocol.EvScreencopyFrameFlags)
		ev.WriteUint(0)
		c.Send(ev)

		if cp.withDamage {
			for _, r := range cp.damage.Rects() {
				ev := c.Event(cp.obj, protocol.EvScreencopyFrameDamage)
				ev.WriteUint(uint32(r.Min.X))
				ev.WriteUint(uint32(r.Min.Y))
				ev.WriteUint(uint32(r.Dx()))
				ev.WriteUint(uint32(r.Dy()))
				c.Send(ev)
			}
		}

		sec := uint64(t.Unix())
		ev = c.Event(cp.obj, protocol.EvScreencopyFrameReady)
		ev.WriteUint(uint32(sec >> 32))
		ev.WriteUint(uint32(sec))
		ev.WriteUint(uint32(t.Nanosecond()))
		c.Send(ev)
	}
	o.captures = waiting
}

func (s *State) destroyCapture(h arena.Handle) {
	cp, ok := s.captures.Remove(h)
	if !ok || cp.output == nil {
		return
	}
	cp.output.captures = slices.DeleteFunc(cp.output.captures, func(c arena.Handle) bool { return c == h })
}
