package region_test

import (
	"image"
	"testing"

	"deedles.dev/wlt/internal/region"
)

func TestAddNoOverlap(t *testing.T) {
	var reg region.Region
	reg.Add(image.Rect(0, 0, 10, 10))
	reg.Add(image.Rect(5, 5, 15, 15))

	if a := reg.Area(); a != 175 {
		t.Fatalf("area = %v, want 175", a)
	}
	rects := reg.Rects()
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Overlaps(rects[j]) {
				t.Errorf("%v overlaps %v", rects[i], rects[j])
			}
		}
	}
	if b := reg.Bounds(); b != image.Rect(0, 0, 15, 15) {
		t.Errorf("bounds = %v", b)
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name string
		sub  image.Rectangle
		area int
	}{
		{"center", image.Rect(2, 2, 8, 8), 64},
		{"disjoint", image.Rect(20, 20, 30, 30), 100},
		{"all", image.Rect(-1, -1, 11, 11), 0},
		{"edge", image.Rect(0, 0, 10, 5), 50},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reg := region.Rect(image.Rect(0, 0, 10, 10))
			reg.Subtract(test.sub)
			if a := reg.Area(); a != test.area {
				t.Fatalf("area = %v, want %v", a, test.area)
			}
			if reg.Overlaps(test.sub) {
				t.Fatalf("region still overlaps %v", test.sub)
			}
		})
	}
}

func TestContainsRect(t *testing.T) {
	var reg region.Region
	reg.Add(image.Rect(0, 0, 10, 20))
	reg.Add(image.Rect(10, 0, 20, 20))

	if !reg.ContainsRect(image.Rect(5, 5, 15, 15)) {
		t.Error("rect spanning both halves not contained")
	}
	if reg.ContainsRect(image.Rect(15, 15, 25, 25)) {
		t.Error("rect sticking out reported as contained")
	}
}

func TestInfinite(t *testing.T) {
	reg := region.Infinite().Translate(image.Pt(100, 100))
	if !reg.Contains(image.Pt(-5000, 5000)) {
		t.Fatal("translated infinite region lost points")
	}
	clipped := reg.Intersect(image.Rect(0, 0, 4, 4))
	if clipped.Area() != 16 {
		t.Fatalf("clipped area = %v", clipped.Area())
	}
}
