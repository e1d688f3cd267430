// Package dmabuf imports client dma-buf buffers. Only linear,
// single-plane buffers in the formats that the renderer understands
// are accepted, and they are read through a CPU mapping.
package dmabuf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"unsafe"

	"deedles.dev/wlt/internal/bin"
	"deedles.dev/wlt/internal/ioctl"
	"deedles.dev/wlt/shm"
	"golang.org/x/sys/unix"
)

const (
	ModifierLinear  uint64 = 0
	ModifierInvalid uint64 = 0x00ffffffffffffff

	MaxPlanes = 4
)

var (
	// ErrUnsupported is wrapped by import failures caused by a buffer
	// layout that can't be read.
	ErrUnsupported = errors.New("unsupported dma-buf")

	ErrPlaneIndex = errors.New("plane index out of bounds")
	ErrPlaneSet   = errors.New("plane already set")
	ErrIncomplete = errors.New("missing planes")
	ErrUsed       = errors.New("params already used")
)

// Format is a DRM fourcc code paired with a layout modifier.
type Format struct {
	Fourcc   uint32
	Modifier uint64
}

// Formats returns the formats that can be imported.
func Formats() []Format {
	formats := make([]Format, 0, len(shm.Formats))
	for _, f := range shm.Formats {
		formats = append(formats, Format{Fourcc: f.DRM(), Modifier: ModifierLinear})
	}
	return formats
}

// Table is the format table shared with clients through
// zwp_linux_dmabuf_feedback_v1. Each entry is a 32-bit format, 32 bits
// of padding and a 64-bit modifier.
type Table struct {
	Formats []Format

	file *os.File
	size uint32
}

// NewTable writes formats into a sealed memfd.
func NewTable(formats []Format) (*Table, error) {
	fd, err := unix.MemfdCreate("wlt-dmabuf-formats", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("create memfd: %w", err)
	}
	file := os.NewFile(uintptr(fd), "wlt-dmabuf-formats")

	data := make([]byte, 0, 16*len(formats))
	for _, f := range formats {
		data = bin.Append(data, f.Fourcc, 0)
		data = bin.Append64(data, f.Modifier)
	}
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("write format table: %w", err)
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_WRITE|unix.F_SEAL_SEAL)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seal format table: %w", err)
	}

	return &Table{Formats: formats, file: file, size: uint32(len(data))}, nil
}

// File returns the table's memfd. It stays owned by the table.
func (t *Table) File() *os.File {
	return t.file
}

func (t *Table) Size() uint32 {
	return t.size
}

// Indices returns the index of every entry, in the form sent in
// tranche_formats.
func (t *Table) Indices() []byte {
	data := make([]byte, 0, 2*len(t.Formats))
	for i := range t.Formats {
		data = bin.Append16(data, uint16(i))
	}
	return data
}

// Supports reports whether the table contains f.
func (t *Table) Supports(f Format) bool {
	for _, tf := range t.Formats {
		if tf == f {
			return true
		}
	}
	return false
}

func (t *Table) Close() error {
	return t.file.Close()
}

// Plane is one plane of a dma-buf as added to the params.
type Plane struct {
	File     *os.File
	Offset   uint32
	Stride   uint32
	Modifier uint64
}

// Params accumulates planes until the buffer is created.
type Params struct {
	planes [MaxPlanes]*Plane
	used   bool
}

// Add sets plane idx. Params takes ownership of the plane's file.
func (p *Params) Add(idx uint32, plane Plane) error {
	if p.used {
		plane.File.Close()
		return ErrUsed
	}
	if idx >= MaxPlanes {
		plane.File.Close()
		return fmt.Errorf("%w: %v", ErrPlaneIndex, idx)
	}
	if p.planes[idx] != nil {
		plane.File.Close()
		return fmt.Errorf("%w: %v", ErrPlaneSet, idx)
	}
	p.planes[idx] = &plane
	return nil
}

// Planes returns the number of contiguous planes starting at 0, and an
// error if any plane after the gap is set.
func (p *Params) Planes() (int, error) {
	n := 0
	for n < MaxPlanes && p.planes[n] != nil {
		n++
	}
	for _, plane := range p.planes[n:] {
		if plane != nil {
			return n, fmt.Errorf("%w: plane %v is missing", ErrIncomplete, n)
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no planes", ErrIncomplete)
	}
	return n, nil
}

// Close releases every plane that hasn't been imported.
func (p *Params) Close() {
	for i, plane := range p.planes {
		if plane != nil {
			plane.File.Close()
			p.planes[i] = nil
		}
	}
}

// Buffer is an imported dma-buf.
type Buffer struct {
	fd     int
	data   shm.Mmap
	size   image.Point
	stride int
	offset int
	format shm.Format
	serial uint64
}

// Import creates a buffer from the planes in p. The params can't be
// used again afterwards, whether or not the import succeeds.
func Import(p *Params, width, height int32, fourcc uint32) (*Buffer, error) {
	if p.used {
		return nil, ErrUsed
	}
	p.used = true
	defer p.Close()

	n, err := p.Planes()
	if err != nil {
		return nil, err
	}

	format := shm.FromDRM(fourcc)
	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("%w: invalid size %vx%v", ErrUnsupported, width, height)
	case !format.Supported():
		return nil, fmt.Errorf("%w: format %#x", ErrUnsupported, fourcc)
	case n != 1:
		return nil, fmt.Errorf("%w: %v planes", ErrUnsupported, n)
	}

	plane := p.planes[0]
	if plane.Modifier != ModifierLinear && plane.Modifier != ModifierInvalid {
		return nil, fmt.Errorf("%w: modifier %#x", ErrUnsupported, plane.Modifier)
	}
	if int64(plane.Stride) < int64(width)*4 {
		return nil, fmt.Errorf("%w: stride %v too small for width %v", ErrUnsupported, plane.Stride, width)
	}

	size := int(plane.Offset) + int(plane.Stride)*int(height)
	end, err := unix.Seek(int(plane.File.Fd()), 0, unix.SEEK_END)
	if err == nil && end < int64(size) {
		return nil, fmt.Errorf("%w: %v bytes needed but buffer has %v", ErrUnsupported, size, end)
	}

	fd, err := unix.Dup(int(plane.File.Fd()))
	if err != nil {
		return nil, fmt.Errorf("dup dma-buf: %w", err)
	}
	data, err := shm.Map(fd, size, unix.PROT_READ)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap: %v", ErrUnsupported, err)
	}

	return &Buffer{
		fd:     fd,
		data:   data,
		size:   image.Pt(int(width), int(height)),
		stride: int(plane.Stride),
		offset: int(plane.Offset),
		format: format,
	}, nil
}

func (b *Buffer) Size() image.Point {
	return b.size
}

func (b *Buffer) Format() shm.Format {
	return b.format
}

// Touch marks the contents as changed.
func (b *Buffer) Touch() {
	b.serial++
}

func (b *Buffer) Serial() uint64 {
	return b.serial
}

const (
	syncRead  = 1 << 0
	syncStart = 0 << 2
	syncEnd   = 1 << 2
)

type syncArgs struct {
	flags uint64
}

var ioctlSync = ioctl.IOW('b', 0, unsafe.Sizeof(syncArgs{}))

func (b *Buffer) sync(flags uint64) error {
	args := syncArgs{flags: flags}
	err := ioctl.Ioctl(b.fd, ioctlSync, unsafe.Pointer(&args))
	if err != nil && !ioctl.IsNotSupported(err) {
		return err
	}
	return nil
}

// Read calls f with the buffer's pixels, bracketed by the CPU access
// sync ioctls.
func (b *Buffer) Read(f func(pix []byte, stride int)) error {
	err := b.sync(syncRead | syncStart)
	if err != nil {
		return fmt.Errorf("begin dma-buf access: %w", err)
	}
	defer b.sync(syncRead | syncEnd)

	return shm.Guard(func() {
		f(b.data[b.offset:], b.stride)
	})
}

func (b *Buffer) Close() error {
	return errors.Join(b.data.Unmap(), unix.Close(b.fd))
}
