package render

import (
	"image"

	"deedles.dev/wlt/shm"
)

// Transformed is a Source with a wl_output transform undone. Clients
// that set a buffer transform hand over rotated or flipped pixels, and
// Transformed turns them back so that backends can sample it like any
// other source. The converted pixels are kept until the underlying
// source's serial changes.
type Transformed struct {
	src       Source
	transform int32

	pix    []byte
	serial uint64
	valid  bool
}

// NewTransformed wraps src, which holds pixels that had transform
// applied to them.
func NewTransformed(src Source, transform int32) *Transformed {
	return &Transformed{src: src, transform: transform}
}

// Source returns the wrapped source.
func (t *Transformed) Source() Source {
	return t.src
}

// Transform returns the transform that t undoes.
func (t *Transformed) Transform() int32 {
	return t.transform
}

func (t *Transformed) Size() image.Point {
	size := t.src.Size()
	if t.transform%2 == 1 {
		size.X, size.Y = size.Y, size.X
	}
	return size
}

func (t *Transformed) Format() shm.Format {
	return t.src.Format()
}

func (t *Transformed) Serial() uint64 {
	return t.src.Serial()
}

func (t *Transformed) Read(f func(pix []byte, stride int)) error {
	size := t.Size()
	stride := size.X * 4
	if !t.valid || t.serial != t.src.Serial() || len(t.pix) != stride*size.Y {
		if cap(t.pix) < stride*size.Y {
			t.pix = make([]byte, stride*size.Y)
		}
		t.pix = t.pix[:stride*size.Y]

		err := t.src.Read(func(src []byte, sstride int) {
			for y := 0; y < size.Y; y++ {
				row := t.pix[y*stride : (y+1)*stride]
				for x := 0; x < size.X; x++ {
					p := untransform(t.transform, image.Pt(x, y), size)
					i := p.Y*sstride + p.X*4
					copy(row[x*4:x*4+4], src[i:i+4])
				}
			}
		})
		if err != nil {
			t.valid = false
			return err
		}
		t.serial = t.src.Serial()
		t.valid = true
	}

	f(t.pix, stride)
	return nil
}

// untransform returns the buffer pixel shown at p of a surface of the
// given size. Flipped transforms mirror around the vertical axis
// before rotating counter-clockwise.
func untransform(transform int32, p image.Point, size image.Point) image.Point {
	w, h := size.X, size.Y
	switch transform {
	case 1:
		return image.Pt(p.Y, w-1-p.X)
	case 2:
		return image.Pt(w-1-p.X, h-1-p.Y)
	case 3:
		return image.Pt(h-1-p.Y, p.X)
	case 4:
		return image.Pt(w-1-p.X, p.Y)
	case 5:
		return image.Pt(p.Y, p.X)
	case 6:
		return image.Pt(p.X, h-1-p.Y)
	case 7:
		return image.Pt(h-1-p.Y, w-1-p.X)
	}
	return p
}
