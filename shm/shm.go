// Package shm maps client shared-memory pools and validates the
// buffers that clients carve out of them.
package shm

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// ErrInvalidBuffer is wrapped by every buffer validation failure.
var ErrInvalidBuffer = errors.New("invalid buffer")

// Format is a wl_shm pixel format.
type Format uint32

const (
	ARGB8888 Format = 0
	XRGB8888 Format = 1
	ABGR8888 Format = 0x34324241
	XBGR8888 Format = 0x34324258
)

// Formats lists every format that can be imported.
var Formats = []Format{ARGB8888, XRGB8888, ABGR8888, XBGR8888}

func (f Format) Supported() bool {
	switch f {
	case ARGB8888, XRGB8888, ABGR8888, XBGR8888:
		return true
	}
	return false
}

func (f Format) BytesPerPixel() int {
	return 4
}

// Opaque reports whether the format ignores its alpha channel.
func (f Format) Opaque() bool {
	return f == XRGB8888 || f == XBGR8888
}

// BGR reports whether the format stores red in the lowest byte.
func (f Format) BGR() bool {
	return f == ABGR8888 || f == XBGR8888
}

// DRM returns the DRM fourcc code of f. wl_shm uses its own codes for
// the two mandatory formats.
func (f Format) DRM() uint32 {
	switch f {
	case ARGB8888:
		return 0x34325241
	case XRGB8888:
		return 0x34325258
	}
	return uint32(f)
}

// FromDRM converts a DRM fourcc code to a Format.
func FromDRM(fourcc uint32) Format {
	switch fourcc {
	case 0x34325241:
		return ARGB8888
	case 0x34325258:
		return XRGB8888
	}
	return Format(fourcc)
}

func (f Format) String() string {
	switch f {
	case ARGB8888:
		return "ARGB8888"
	case XRGB8888:
		return "XRGB8888"
	case ABGR8888:
		return "ABGR8888"
	case XBGR8888:
		return "XBGR8888"
	}
	return fmt.Sprintf("Format(%#x)", uint32(f))
}

// ValidateBuffer checks that a buffer with the given geometry fits
// inside a pool of poolSize bytes.
func ValidateBuffer(offset, width, height, stride int32, format Format, poolSize int) error {
	switch {
	case !format.Supported():
		return fmt.Errorf("%w: unsupported format %v", ErrInvalidBuffer, format)
	case width <= 0 || height <= 0:
		return fmt.Errorf("%w: size %vx%v", ErrInvalidBuffer, width, height)
	case offset < 0:
		return fmt.Errorf("%w: negative offset %v", ErrInvalidBuffer, offset)
	case int64(stride) < int64(width)*int64(format.BytesPerPixel()):
		return fmt.Errorf("%w: stride %v too small for width %v", ErrInvalidBuffer, stride, width)
	case int64(offset)+int64(stride)*int64(height) > int64(poolSize):
		return fmt.Errorf("%w: %vx%v with stride %v at offset %v overruns pool of %v bytes", ErrInvalidBuffer, width, height, stride, offset, poolSize)
	}
	return nil
}

type Mmap []byte

func Map(fd int, size int, prot int) (Mmap, error) {
	m, err := unix.Mmap(fd, 0, size, prot, unix.MAP_SHARED)
	return Mmap(m), err
}

func (mmap Mmap) Unmap() error {
	if mmap == nil {
		return nil
	}
	return unix.Munmap(mmap)
}

// Pool is a client's shared-memory region. It stays mapped until it
// has been closed and every reference to it has been dropped.
type Pool struct {
	fd       int
	data     Mmap
	writable bool
	refs     int
	closed   bool
}

// mapPool maps the pool read-write if the descriptor allows it, since
// screen captures are written into client buffers, and read-only
// otherwise.
func mapPool(fd, size int) (Mmap, bool, error) {
	data, err := Map(fd, size, unix.PROT_READ|unix.PROT_WRITE)
	if err == nil {
		return data, true, nil
	}
	data, err = Map(fd, size, unix.PROT_READ)
	return data, false, err
}

// NewPool maps size bytes of file. The pool takes ownership of file's
// descriptor.
func NewPool(file *os.File, size int) (*Pool, error) {
	fd, err := unix.Dup(int(file.Fd()))
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("dup pool fd: %w", err)
	}

	var st unix.Stat_t
	err = unix.Fstat(fd, &st)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat pool fd: %w", err)
	}
	if st.Size < int64(size) {
		unix.Close(fd)
		return nil, fmt.Errorf("pool size %v exceeds file size %v", size, st.Size)
	}

	data, writable, err := mapPool(fd, size)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap pool: %w", err)
	}

	return &Pool{fd: fd, data: data, writable: writable, refs: 1}, nil
}

// Size returns the mapped size of the pool.
func (p *Pool) Size() int {
	return len(p.data)
}

// Bytes returns the mapped memory.
func (p *Pool) Bytes() []byte {
	return p.data
}

// Resize grows the mapping. Pools can never shrink.
func (p *Pool) Resize(size int) error {
	if size < len(p.data) {
		return fmt.Errorf("cannot shrink pool from %v to %v bytes", len(p.data), size)
	}
	if size == len(p.data) {
		return nil
	}

	data, writable, err := mapPool(p.fd, size)
	if err != nil {
		return fmt.Errorf("remap pool: %w", err)
	}
	p.data.Unmap()
	p.data = data
	p.writable = writable
	return nil
}

// Writable reports whether the pool's memory may be written to.
func (p *Pool) Writable() bool {
	return p.writable
}

// Ref adds a reference to the pool.
func (p *Pool) Ref() {
	p.refs++
}

// Unref drops a reference, unmapping the pool when the last one goes
// away.
func (p *Pool) Unref() {
	p.refs--
	if p.refs > 0 {
		return
	}
	p.data.Unmap()
	p.data = nil
	unix.Close(p.fd)
}

// Close drops the client's own reference to the pool. Buffers created
// from it keep it mapped.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.Unref()
}

// ErrFault is returned by Guard when shared memory could not be read,
// usually because the client truncated the file behind it.
var ErrFault = errors.New("fault reading shared memory")

// Guard calls f, converting a memory fault inside it into ErrFault
// instead of crashing the process.
func Guard(f func()) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			if _, ok := r.(interface{ Addr() uintptr }); ok {
				err = ErrFault
				return
			}
			panic(r)
		}
	}()

	f()
	return nil
}
