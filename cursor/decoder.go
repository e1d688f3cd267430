package cursor

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"slices"
	"time"

	"deedles.dev/wlt/shm/shmimage"
)

// ErrBadMagic indicates an unrecognized magic number when attempting
// to load a cursor.
var ErrBadMagic = errors.New("bad magic")

const (
	fileMagic = 0x72756358 // ASCII "Xcur"

	chunkComment = 0xfffe0001
	chunkImage   = 0xfffd0002

	// maxImageSize bounds the dimensions of a single frame.
	maxImageSize = 0x7fff
)

type decoder struct {
	r    io.Reader
	br   *bufio.Reader
	n    int
	err  error
	size int
}

func DecodeFile(path string, size int) (*Cursor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	return Decode(file, size)
}

// Decode reads an Xcursor file, keeping only the frames whose nominal
// size is closest to size.
func Decode(r io.Reader, size int) (*Cursor, error) {
	d := decoder{
		r:    r,
		br:   bufio.NewReader(r),
		size: size,
	}
	return d.Decode()
}

func (d *decoder) Decode() (c *Cursor, err error) {
	if d.err != nil {
		return nil, d.err
	}

	defer d.catch(&err)

	tocs := d.header()
	slices.SortFunc(tocs, func(t1, t2 fileToc) int { return cmp.Compare(t1.Position, t2.Position) })
	nominal := d.nearest(tocs)

	c = new(Cursor)
	for _, toc := range tocs {
		switch toc.Type {
		case chunkComment:
			d.SeekTo(int(toc.Position))
			c.Comments = append(c.Comments, d.comment())
		case chunkImage:
			if int(toc.Subtype) != nominal {
				continue
			}
			d.SeekTo(int(toc.Position))
			c.Frames = append(c.Frames, d.image())
		}
	}
	if len(c.Frames) == 0 {
		d.throw(errors.New("no images"))
	}

	return c, nil
}

func (d *decoder) header() []fileToc {
	magic := d.uint32()
	if magic != fileMagic {
		d.throw(ErrBadMagic)
	}
	hsize := d.uint32()
	d.uint32() // Version.
	ntoc := int(d.uint32())
	if ntoc > 0x10000 {
		d.throw(fmt.Errorf("%v table of contents entries", ntoc))
	}
	d.SeekTo(int(hsize))

	tocs := make([]fileToc, 0, ntoc)
	for i := 0; i < ntoc; i++ {
		tocs = append(tocs, fileToc{
			Type:     d.uint32(),
			Subtype:  d.uint32(),
			Position: d.uint32(),
		})
	}

	return tocs
}

// nearest returns the nominal image size closest to the requested
// one.
func (d *decoder) nearest(tocs []fileToc) int {
	best := -1
	for _, toc := range tocs {
		if toc.Type != chunkImage {
			continue
		}
		size := int(toc.Subtype)
		if best < 0 || abs(size-d.size) < abs(best-d.size) {
			best = size
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (d *decoder) chunkHeader(typ uint32) (subtype, version uint32) {
	hsize := d.uint32()
	if t := d.uint32(); t != typ {
		d.throw(fmt.Errorf("chunk type %#x does not match table of contents", t))
	}
	subtype = d.uint32()
	version = d.uint32()
	if hsize < 16 {
		d.throw(fmt.Errorf("chunk header of %v bytes", hsize))
	}
	return subtype, version
}

func (d *decoder) comment() *Comment {
	subtype, version := d.chunkHeader(chunkComment)

	length := d.uint32()
	if length > 0x100000 {
		d.throw(fmt.Errorf("comment of %v bytes", length))
	}
	buf := make([]byte, length)
	d.readFull(buf)

	return &Comment{
		Subtype: CommentSubtype(subtype),
		Version: version,
		Comment: string(buf),
	}
}

func (d *decoder) image() *Image {
	nominal, version := d.chunkHeader(chunkImage)

	width, height := d.uint32(), d.uint32()
	xhot, yhot := d.uint32(), d.uint32()
	delay := d.uint32()
	if width > maxImageSize || height > maxImageSize {
		d.throw(fmt.Errorf("image size %vx%v", width, height))
	}
	if xhot > width || yhot > height {
		d.throw(fmt.Errorf("hotspot %v,%v outside of %vx%v image", xhot, yhot, width, height))
	}

	img := shmimage.NewARGB8888(image.Rect(0, 0, int(width), int(height)))
	d.readFull(img.Pix)

	return &Image{
		Version:     int(version),
		NominalSize: int(nominal),
		XHot:        int(xhot),
		YHot:        int(yhot),
		Delay:       time.Duration(delay) * time.Millisecond,
		Image:       img,
	}
}

func (d *decoder) uint32() (v uint32) {
	var buf [4]byte
	d.readFull(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (d *decoder) readFull(buf []byte) {
	_, err := io.ReadFull(d, buf)
	d.throw(err)
}

func (d *decoder) Read(buf []byte) (int, error) {
	n, err := d.br.Read(buf)
	d.n += n
	return n, err
}

func (d *decoder) Discard(n int) (int, error) {
	disc, err := d.br.Discard(n)
	d.throw(err)
	d.n += disc
	return disc, err
}

func (d *decoder) SeekTo(n int) error {
	diff := n - d.n
	if diff < 0 {
		d.throw(fmt.Errorf("chunk at %v overlaps previous data", n))
	}
	if diff == 0 {
		return nil
	}

	s, ok := d.r.(io.Seeker)
	if !ok || (diff <= d.br.Buffered()) {
		_, err := d.Discard(diff)
		d.throw(err)
		return nil
	}

	_, err := s.Seek(int64(n), io.SeekStart)
	d.throw(err)
	d.br.Reset(d.r)
	d.n = n
	return nil
}

type fileToc struct {
	Type     uint32
	Subtype  uint32
	Position uint32
}

type decoderError struct {
	err error
}

func (d *decoder) throw(err error) {
	if err != nil {
		panic(decoderError{err: err})
	}
}

func (d *decoder) catch(err *error) {
	switch r := recover().(type) {
	case decoderError:
		*err = r.err
		d.err = r.err
	case nil:
		if d.err != nil {
			*err = d.err
		}
	default:
		panic(r)
	}
}
