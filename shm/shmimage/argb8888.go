// Package shmimage provides draw.Image views of 32-bit pixel buffers
// in the layouts that Wayland clients and scanout buffers use.
package shmimage

import (
	"image"
	"image/color"
	"image/draw"

	"deedles.dev/wlt/internal/bin"
)

// ARGB8888 is an image whose pixels are stored as premultiplied
// little-endian 32-bit ARGB words, which is B, G, R, A in memory. If
// Opaque is set, the alpha byte is ignored and every pixel reads as
// fully opaque, which makes it an XRGB8888 image.
type ARGB8888 struct {
	// Pix holds the image's pixels. The pixel at (x, y) starts at
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle

	Opaque bool
}

// NewARGB8888 returns a new ARGB8888 image with the given bounds.
func NewARGB8888(r image.Rectangle) *ARGB8888 {
	return &ARGB8888{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (p *ARGB8888) Bounds() image.Rectangle { return p.Rect }

func (p *ARGB8888) ColorModel() color.Model { return ARGB8888Model }

func (p *ARGB8888) At(x, y int) color.Color {
	return p.ARGB8888At(x, y)
}

func (p *ARGB8888) ARGB8888At(x, y int) ARGB8888Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return ARGB8888Color(0)
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+4 : i+4]
	c := bin.Value[ARGB8888Color](*(*[4]byte)(s))
	if p.Opaque {
		c |= 0xFF000000
	}
	return c
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *ARGB8888) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *ARGB8888) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	c1 := ARGB8888Model.Convert(c).(ARGB8888Color)
	ca := bin.Bytes(c1)
	copy(p.Pix[i:i+4:i+4], ca[:])
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *ARGB8888) SubImage(r image.Rectangle) draw.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &ARGB8888{Opaque: p.Opaque}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &ARGB8888{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
		Opaque: p.Opaque,
	}
}

// ABGR8888 is like ARGB8888 with red and blue swapped, which is
// R, G, B, A in memory.
type ABGR8888 struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
	Opaque bool
}

func (p *ABGR8888) Bounds() image.Rectangle { return p.Rect }

func (p *ABGR8888) ColorModel() color.Model { return color.RGBAModel }

func (p *ABGR8888) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
	s := p.Pix[i : i+4 : i+4]
	a := s[3]
	if p.Opaque {
		a = 0xFF
	}
	return color.RGBA{R: s[0], G: s[1], B: s[2], A: a}
}
