package render

import (
	"image"
	"image/color"

	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/shm/shmimage"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// Software is a backend that composites on the CPU.
type Software struct {
	log *logrus.Entry
}

func NewSoftware() *Software {
	return &Software{
		log: logrus.WithFields(logrus.Fields{"component": "render", "backend": "software"}),
	}
}

func (sw *Software) Name() string {
	return "software"
}

func (sw *Software) BeginFrame(screen Screen) (*Target, error) {
	return NewTarget(screen)
}

// Composite draws the damaged part of scene into t. Elements hidden
// behind opaque elements are skipped.
func (sw *Software) Composite(scene *Scene, t *Target) error {
	dst := t.Image
	damage := scene.Damage.Intersect(dst.Rect)
	if damage.Empty() {
		return nil
	}

	elems := scene.all()
	vis, bg := visible(elems, damage)

	bg0 := scene.Background
	bg0.A = 0xFF
	bgc := premultiply(bg0, 1)
	for _, r := range bg.Rects() {
		fill(dst, r, bgc)
	}

	for i := range elems {
		if vis[i].Empty() {
			continue
		}
		sw.draw(dst, &elems[i], vis[i])
	}

	return nil
}

func (sw *Software) Present(out *output.Output, t *Target) error {
	return present(out, t)
}

func (sw *Software) Close() error {
	return nil
}

func (sw *Software) draw(dst *shmimage.ARGB8888, e *Element, vis region.Region) {
	switch e.Kind {
	case Solid:
		c := premultiply(e.Color, 1)
		for _, r := range vis.Rects() {
			fill(dst, r, c)
		}

	case Surface:
		err := e.Source.Read(func(pix []byte, stride int) {
			src := sourceImage(pix, stride, e.Source.Size(), e.Source.Format())
			for _, r := range vis.Rects() {
				drawImage(dst, r, e, src)
			}
		})
		if err != nil {
			sw.log.WithError(err).Warn("read surface buffer")
		}

	case Picture:
		for _, r := range vis.Rects() {
			drawImage(dst, r, e, e.Image)
		}
	}
}

// sourceImage wraps client pixel data in an image of the matching
// layout.
func sourceImage(pix []byte, stride int, size image.Point, format shm.Format) image.Image {
	r := image.Rectangle{Max: size}
	if format.BGR() {
		return &shmimage.ABGR8888{Pix: pix, Stride: stride, Rect: r, Opaque: format.Opaque()}
	}
	return &shmimage.ARGB8888{Pix: pix, Stride: stride, Rect: r, Opaque: format.Opaque()}
}

// drawImage draws the part of e that falls in clip, sampling from src.
func drawImage(dst *shmimage.ARGB8888, clip image.Rectangle, e *Element, src image.Image) {
	sr := src.Bounds()
	if e.Kind == Surface {
		sr = e.crop().Intersect(sr)
	}
	if sr.Empty() {
		return
	}

	opacity := e.opacity()
	if s, ok := src.(*shmimage.ARGB8888); ok && opacity == 1 && sr.Size() == e.Rect.Size() {
		blit(dst, clip, s, sr.Min.Add(clip.Min.Sub(e.Rect.Min)))
		return
	}

	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha16{A: uint16(opacity * 0xFFFF)})}
	}

	sub := dst.SubImage(clip)
	if sr.Size() == e.Rect.Size() {
		xdraw.Copy(sub, e.Rect.Min, src, sr, xdraw.Over, opts)
		return
	}
	xdraw.ApproxBiLinear.Scale(sub, e.Rect, src, sr, xdraw.Over, opts)
}

// blit copies r from src, starting at sp, into dst. Opaque sources
// are copied row by row. Others are blended with premultiplied
// source-over.
func blit(dst *shmimage.ARGB8888, r image.Rectangle, src *shmimage.ARGB8888, sp image.Point) {
	w := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		di := dst.PixOffset(r.Min.X, r.Min.Y+y)
		si := src.PixOffset(sp.X, sp.Y+y)
		drow := dst.Pix[di : di+w : di+w]
		srow := src.Pix[si : si+w : si+w]

		if src.Opaque {
			copy(drow, srow)
			for x := 3; x < w; x += 4 {
				drow[x] = 0xFF
			}
			continue
		}

		for x := 0; x < w; x += 4 {
			sa := uint32(srow[x+3])
			switch sa {
			case 0:
				continue
			case 0xFF:
				copy(drow[x:x+4], srow[x:x+4])
				continue
			}
			inv := 255 - sa
			for c := range 4 {
				drow[x+c] = uint8(uint32(srow[x+c]) + (uint32(drow[x+c])*inv+127)/255)
			}
		}
	}
}

// fill fills r with c, blending if c is not opaque.
func fill(dst *shmimage.ARGB8888, r image.Rectangle, c shmimage.ARGB8888Color) {
	r = r.Intersect(dst.Rect)
	if r.Empty() {
		return
	}

	px := [4]byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)}
	sa := uint32(px[3])
	if sa == 0 {
		return
	}

	w := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		row := dst.Pix[i : i+w : i+w]

		if sa == 0xFF {
			copy(row, px[:])
			for filled := 4; filled < w; filled *= 2 {
				copy(row[filled:], row[:filled])
			}
			continue
		}

		inv := 255 - sa
		for x := 0; x < w; x += 4 {
			for c := range 4 {
				row[x+c] = uint8(uint32(px[c]) + (uint32(row[x+c])*inv+127)/255)
			}
		}
	}
}
