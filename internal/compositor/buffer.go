package compositor

import (
	"image"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/dmabuf"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/internal/render"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/wire"
)

// Buffer is a wl_buffer backed by either a shared-memory pool or an
// imported dma-buf.
//
// A buffer is released to its client once no surface's current state
// shows it and no frame that read it is still waiting to be presented.
type Buffer struct {
	obj    *server.Object
	handle arena.Handle

	pool   *shm.Pool
	offset int
	width  int
	height int
	stride int
	format shm.Format

	dma *dmabuf.Buffer

	// err is set for buffers whose parameters didn't validate.
	// Committing one is rejected.
	err error

	refs      int
	inFlight  int
	busy      bool
	destroyed bool
	freed     bool
	serial    uint64

	// view shows the buffer with a surface's buffer transform undone.
	view *render.Transformed
}

func (b *Buffer) Size() image.Point {
	if b.dma != nil {
		return b.dma.Size()
	}
	return image.Pt(b.width, b.height)
}

func (b *Buffer) Format() shm.Format {
	if b.dma != nil {
		return b.dma.Format()
	}
	return b.format
}

func (b *Buffer) Serial() uint64 {
	return b.serial
}

func (b *Buffer) Read(f func(pix []byte, stride int)) error {
	if b.dma != nil {
		return b.dma.Read(f)
	}
	if b.pool == nil {
		return shm.ErrFault
	}
	data := b.pool.Bytes()
	end := b.offset + b.stride*b.height
	if end > len(data) {
		return shm.ErrFault
	}
	return shm.Guard(func() {
		f(data[b.offset:end], b.stride)
	})
}

// source returns what renderers should sample for a surface that
// shows b with the given buffer transform.
func (b *Buffer) source(transform int32) render.Source {
	if transform == 0 {
		return b
	}
	if b.view == nil || b.view.Transform() != transform {
		b.view = render.NewTransformed(b, transform)
	}
	return b.view
}

// attach records that a surface committed the buffer.
func (b *Buffer) attach() {
	b.refs++
	b.busy = true
	b.serial++
	if b.dma != nil {
		b.dma.Touch()
	}
}

// detach drops a surface's reference.
func (b *Buffer) detach(s *State) {
	b.refs--
	s.maybeRelease(b)
}

// maybeRelease sends wl_buffer.release if nothing uses b anymore, and
// frees it if the client already destroyed it.
func (s *State) maybeRelease(b *Buffer) {
	if b.refs > 0 || b.inFlight > 0 {
		return
	}
	if b.busy && b.obj.Alive() {
		c := b.obj.Client()
		c.Send(c.Event(b.obj, protocol.EvBufferRelease))
	}
	b.busy = false

	if b.destroyed {
		b.free(s)
	}
}

func (b *Buffer) free(s *State) {
	if b.freed {
		return
	}
	b.freed = true
	s.renderer.Forget(b)
	if b.view != nil {
		s.renderer.Forget(b.view)
		b.view = nil
	}
	if b.pool != nil {
		b.pool.Unref()
		b.pool = nil
	}
	if b.dma != nil {
		b.dma.Close()
		b.dma = nil
	}
}

func (s *State) newBuffer(c *server.Client, id uint32, b *Buffer) error {
	obj, err := c.NewObject(id, protocol.KindBuffer, 1)
	if err != nil {
		if b.pool != nil {
			b.pool.Unref()
		}
		if b.dma != nil {
			b.dma.Close()
		}
		return err
	}
	s.registerBuffer(obj, b)
	return nil
}

func (s *State) registerBuffer(obj *server.Object, b *Buffer) {
	b.obj = obj
	b.handle = s.buffers.Insert(b)
	obj.Handle = b.handle
}

func (s *State) destroyBuffer(h arena.Handle) {
	b, ok := s.buffers.Remove(h)
	if !ok {
		return
	}
	b.destroyed = true
	if b.refs > 0 || b.inFlight > 0 {
		if b.inFlight > 0 {
			s.condemned = append(s.condemned, b)
		}
		return
	}
	b.free(s)
}

// sweep frees condemned buffers that no frame reads anymore.
func (s *State) sweep() {
	kept := s.condemned[:0]
	for _, b := range s.condemned {
		if b.inFlight > 0 {
			kept = append(kept, b)
			continue
		}
		if b.refs == 0 {
			b.free(s)
		}
	}
	clear(s.condemned[len(kept):])
	s.condemned = kept
}

func (s *State) bufferRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	s.destroy(c, obj)
	return nil
}

func (s *State) shmRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadUint()
	file := msg.ReadFile()
	size := msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if file == nil {
		return wire.Errorf(obj.ID, protocol.ShmErrorInvalidFD, "missing pool fd")
	}
	if size <= 0 {
		file.Close()
		return wire.Errorf(obj.ID, protocol.ShmErrorInvalidStride, "invalid pool size %v", size)
	}

	pool, err := shm.NewPool(file, int(size))
	if err != nil {
		return wire.Errorf(obj.ID, protocol.ShmErrorInvalidFD, "%v", err)
	}
	po, err := c.NewObject(id, protocol.KindShmPool, obj.Version)
	if err != nil {
		pool.Close()
		return err
	}
	po.Handle = s.pools.Insert(pool)
	return nil
}

func (s *State) poolRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	pool := lookup(&s.pools, obj.Handle)
	if pool == nil {
		return wire.Errorf(obj.ID, protocol.DisplayErrorImplementation, "pool is gone")
	}

	switch msg.Op() {
	case protocol.ShmPoolCreateBuffer:
		id := msg.ReadUint()
		offset, width, height, stride := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		format := shm.Format(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}
		if !format.Supported() {
			return wire.Errorf(obj.ID, protocol.ShmErrorInvalidFormat, "unsupported format %v", format)
		}

		b := Buffer{
			offset: int(offset),
			width:  int(width),
			height: int(height),
			stride: int(stride),
			format: format,
		}
		b.err = shm.ValidateBuffer(offset, width, height, stride, format, pool.Size())
		if b.err == nil {
			pool.Ref()
			b.pool = pool
		} else {
			c.Log().WithError(b.err).Warn("created invalid buffer")
		}
		return s.newBuffer(c, id, &b)

	case protocol.ShmPoolDestroy:
		s.destroy(c, obj)

	case protocol.ShmPoolResize:
		size := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		err := pool.Resize(int(size))
		if err != nil {
			return wire.Errorf(obj.ID, protocol.ShmErrorInvalidStride, "%v", err)
		}
	}
	return nil
}

func (s *State) regionRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	if msg.Op() == protocol.RegionDestroy {
		s.destroy(c, obj)
		return nil
	}

	x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	reg := lookup(&s.regions, obj.Handle)
	if reg == nil {
		return nil
	}

	r := image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
	switch msg.Op() {
	case protocol.RegionAdd:
		reg.Add(r)
	case protocol.RegionSubtract:
		reg.Subtract(r)
	}
	return nil
}

// regionArg resolves a nullable wl_region argument. A nil result means
// no region was given.
func (s *State) regionArg(c *server.Client, id uint32) (*region.Region, error) {
	if id == 0 {
		return nil, nil
	}
	obj := c.Object(id)
	if obj == nil || obj.Kind != protocol.KindRegion {
		return nil, wire.Errorf(1, protocol.DisplayErrorInvalidObject, "%v is not a wl_region", id)
	}
	reg := lookup(&s.regions, obj.Handle)
	if reg == nil {
		return nil, nil
	}
	clone := reg.Clone()
	return &clone, nil
}
