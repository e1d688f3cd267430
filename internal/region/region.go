// Package region implements sets of pixels represented as lists of
// non-overlapping rectangles, used for damage, opaque and input
// regions.
package region

import (
	"image"
	"slices"
)

// Region is a set of non-overlapping rectangles. The zero value is an
// empty region.
type Region struct {
	rects []image.Rectangle
}

const inf = 1 << 30

// Infinite returns a region covering every representable point.
func Infinite() Region {
	return Region{rects: []image.Rectangle{image.Rect(-inf, -inf, inf, inf)}}
}

// Rect returns a region containing just r.
func Rect(r image.Rectangle) Region {
	var reg Region
	reg.Add(r)
	return reg
}

// Clone returns a copy of reg that shares no memory with it.
func (reg Region) Clone() Region {
	return Region{rects: slices.Clone(reg.rects)}
}

// Rects returns the rectangles that make up the region. The caller
// must not modify the returned slice.
func (reg Region) Rects() []image.Rectangle {
	return reg.rects
}

// Len returns the number of rectangles in the region.
func (reg Region) Len() int {
	return len(reg.rects)
}

// Empty reports whether the region contains no points.
func (reg Region) Empty() bool {
	return len(reg.rects) == 0
}

// Clear empties the region.
func (reg *Region) Clear() {
	reg.rects = reg.rects[:0]
}

// Add adds r to the region.
func (reg *Region) Add(r image.Rectangle) {
	if r.Empty() {
		return
	}

	pieces := []image.Rectangle{r}
	for _, e := range reg.rects {
		pieces = subtractAll(pieces, e)
		if len(pieces) == 0 {
			return
		}
	}
	reg.rects = append(reg.rects, pieces...)
}

// Union adds every rectangle of o to the region.
func (reg *Region) Union(o Region) {
	for _, r := range o.rects {
		reg.Add(r)
	}
}

// Subtract removes r from the region.
func (reg *Region) Subtract(r image.Rectangle) {
	if r.Empty() || len(reg.rects) == 0 {
		return
	}
	reg.rects = subtractAll(reg.rects, r)
}

// SubtractRegion removes every rectangle of o from the region.
func (reg *Region) SubtractRegion(o Region) {
	for _, r := range o.rects {
		reg.Subtract(r)
	}
}

// Intersect returns the part of the region that lies inside r.
func (reg Region) Intersect(r image.Rectangle) Region {
	var out Region
	for _, e := range reg.rects {
		i := e.Intersect(r)
		if !i.Empty() {
			out.rects = append(out.rects, i)
		}
	}
	return out
}

// IntersectRegion returns the points contained in both regions.
func (reg Region) IntersectRegion(o Region) Region {
	var out Region
	for _, r := range o.rects {
		out.Union(reg.Intersect(r))
	}
	return out
}

// Translate returns the region moved by p.
func (reg Region) Translate(p image.Point) Region {
	out := Region{rects: make([]image.Rectangle, 0, len(reg.rects))}
	for _, r := range reg.rects {
		if r.Min.X <= -inf || r.Max.X >= inf {
			out.rects = append(out.rects, r)
			continue
		}
		out.rects = append(out.rects, r.Add(p))
	}
	return out
}

// Contains reports whether p is in the region.
func (reg Region) Contains(p image.Point) bool {
	for _, r := range reg.rects {
		if p.In(r) {
			return true
		}
	}
	return false
}

// ContainsRect reports whether every point of r is in the region.
func (reg Region) ContainsRect(r image.Rectangle) bool {
	if r.Empty() {
		return true
	}
	pieces := []image.Rectangle{r}
	for _, e := range reg.rects {
		pieces = subtractAll(pieces, e)
		if len(pieces) == 0 {
			return true
		}
	}
	return false
}

// Overlaps reports whether any point of r is in the region.
func (reg Region) Overlaps(r image.Rectangle) bool {
	for _, e := range reg.rects {
		if e.Overlaps(r) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest rectangle containing the region.
func (reg Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, r := range reg.rects {
		b = b.Union(r)
	}
	return b
}

// Area returns the number of pixels in the region.
func (reg Region) Area() int {
	var a int
	for _, r := range reg.rects {
		a += r.Dx() * r.Dy()
	}
	return a
}

func subtractAll(rects []image.Rectangle, b image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, a := range rects {
		out = subtract(out, a, b)
	}
	return out
}

// subtract appends the pieces of a not covered by b to out.
func subtract(out []image.Rectangle, a, b image.Rectangle) []image.Rectangle {
	if !a.Overlaps(b) {
		return append(out, a)
	}

	if b.Min.Y > a.Min.Y {
		out = append(out, image.Rect(a.Min.X, a.Min.Y, a.Max.X, b.Min.Y))
	}
	if b.Max.Y < a.Max.Y {
		out = append(out, image.Rect(a.Min.X, b.Max.Y, a.Max.X, a.Max.Y))
	}

	top, bottom := max(a.Min.Y, b.Min.Y), min(a.Max.Y, b.Max.Y)
	if b.Min.X > a.Min.X {
		out = append(out, image.Rect(a.Min.X, top, b.Min.X, bottom))
	}
	if b.Max.X < a.Max.X {
		out = append(out, image.Rect(b.Max.X, top, a.Max.X, bottom))
	}
	return out
}
