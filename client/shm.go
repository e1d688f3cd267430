package wl

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/shm/shmimage"
	"deedles.dev/wlt/wire"
	"deedles.dev/ximage/format"
	"golang.org/x/sys/unix"
)

type Shm struct {
	object
	formats []uint32

	OnFormat func(format uint32)
}

func (s *Shm) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() != protocol.EvShmFormat {
		return
	}
	format := msg.ReadUint()
	s.formats = append(s.formats, format)
	if s.OnFormat != nil {
		s.OnFormat(format)
	}
}

// Formats returns the formats the server has announced so far.
func (s *Shm) Formats() []uint32 {
	return s.formats
}

// CreatePool shares size bytes of file with the server. The caller
// keeps ownership of file.
func (s *Shm) CreatePool(file *os.File, size int32) *ShmPool {
	var pool ShmPool
	s.client.register(&pool, protocol.KindShmPool, 1)

	msg := s.request(protocol.ShmCreatePool)
	msg.WriteUint(pool.id)
	msg.WriteFile(file)
	msg.WriteInt(size)
	s.send(msg)
	return &pool
}

type ShmPool struct {
	object
}

func (pool *ShmPool) dispatch(*wire.MessageBuffer) {}

func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) *Buffer {
	var buf Buffer
	pool.client.register(&buf, protocol.KindBuffer, 1)

	msg := pool.request(protocol.ShmPoolCreateBuffer)
	msg.WriteUint(buf.id)
	msg.WriteInt(offset)
	msg.WriteInt(width)
	msg.WriteInt(height)
	msg.WriteInt(stride)
	msg.WriteUint(format)
	pool.send(msg)
	return &buf
}

func (pool *ShmPool) Resize(size int32) {
	msg := pool.request(protocol.ShmPoolResize)
	msg.WriteInt(size)
	pool.send(msg)
}

func (pool *ShmPool) Destroy() {
	pool.destroy(protocol.ShmPoolDestroy)
}

type Buffer struct {
	object
	OnRelease func()
}

func (buf *Buffer) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() == protocol.EvBufferRelease && buf.OnRelease != nil {
		buf.OnRelease()
	}
}

func (buf *Buffer) Destroy() {
	buf.destroy(protocol.BufferDestroy)
}

// ImageBuffer is a wl_buffer backed by its own memfd that can be drawn
// into directly.
type ImageBuffer struct {
	w, h   int32
	format uint32
	shm    *Shm
	pool   *ShmPool
	buf    *Buffer
	file   *os.File
	mmap   shm.Mmap
}

// NewImageBuffer creates a w by h buffer in the given format, which
// must be ARGB8888 or XRGB8888.
func NewImageBuffer(s *Shm, w, h int32, format uint32) (buf *ImageBuffer, err error) {
	buf = &ImageBuffer{
		w:      w,
		h:      h,
		format: format,
		shm:    s,
	}
	defer func() {
		if err != nil {
			buf.Destroy()
		}
	}()

	fd, err := unix.MemfdCreate("wlt-buffer", unix.MFD_CLOEXEC)
	if err != nil {
		return buf, fmt.Errorf("create SHM file: %w", err)
	}
	buf.file = os.NewFile(uintptr(fd), "wlt-buffer")
	err = buf.file.Truncate(int64(buf.Len()))
	if err != nil {
		return buf, fmt.Errorf("truncate SHM file: %w", err)
	}

	mmap, err := shm.Map(fd, int(buf.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return buf, fmt.Errorf("mmap SHM file: %w", err)
	}
	buf.mmap = mmap

	buf.pool = buf.shm.CreatePool(buf.file, buf.Len())
	buf.buf = buf.pool.CreateBuffer(0, w, h, buf.Stride(), format)

	return buf, nil
}

func (s *ImageBuffer) Destroy() {
	if s.mmap != nil {
		s.mmap.Unmap()
		s.mmap = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.buf != nil {
		s.buf.Destroy()
	}
	if s.pool != nil {
		s.pool.Destroy()
	}
}

func (s *ImageBuffer) Buffer() *Buffer {
	return s.buf
}

func (s *ImageBuffer) Stride() int32 {
	return s.w * 4
}

func (s *ImageBuffer) Len() int32 {
	return s.Stride() * s.h
}

func (s *ImageBuffer) Cap() int32 {
	return int32(cap(s.mmap))
}

func (s *ImageBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(s.w), int(s.h))
}

// Resize changes the buffer's dimensions. The wl_buffer is replaced,
// so any OnRelease handler has to be set again.
func (s *ImageBuffer) Resize(w, h int32) error {
	if (w == s.w) && (h == s.h) {
		return nil
	}

	s.w = w
	s.h = h
	if s.Len() <= s.Cap() {
		s.mmap = s.mmap[:s.Len()]
		s.buf.Destroy()
		s.buf = s.pool.CreateBuffer(0, s.w, s.h, s.Stride(), s.format)
		return nil
	}

	err := s.file.Truncate(int64(s.Len()))
	if err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	err = s.mmap.Unmap()
	if err != nil {
		return fmt.Errorf("unmap: %w", err)
	}
	mmap, err := shm.Map(int(s.file.Fd()), int(s.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	s.mmap = mmap

	s.buf.Destroy()
	s.pool.Resize(s.Len())
	s.buf = s.pool.CreateBuffer(0, s.w, s.h, s.Stride(), s.format)

	return nil
}

// Image returns a view of the buffer's memory.
func (s *ImageBuffer) Image() draw.Image {
	if s.format == protocol.ShmFormatXRGB8888 {
		return s.Pixels()
	}
	return &format.Image{
		Format: format.ARGB8888,
		Rect:   s.Bounds(),
		Pix:    s.mmap,
	}
}

// Pixels returns the buffer's memory as a premultiplied ARGB image.
func (s *ImageBuffer) Pixels() *shmimage.ARGB8888 {
	return &shmimage.ARGB8888{
		Pix:    s.mmap,
		Stride: int(s.Stride()),
		Rect:   s.Bounds(),
		Opaque: s.format == protocol.ShmFormatXRGB8888,
	}
}
