package damage_test

import (
	"image"
	"testing"

	"deedles.dev/wlt/internal/render/damage"
)

var bounds = image.Rect(0, 0, 1000, 1000)

func TestFirstFrameFull(t *testing.T) {
	tr := damage.New(bounds)
	if !tr.Full() {
		t.Fatal("first frame not fully damaged")
	}
	tr.Commit()
	if tr.Pending() {
		t.Fatal("damage pending after commit")
	}
}

func TestOverflow(t *testing.T) {
	tr := damage.New(bounds)
	tr.Commit()

	for i := range damage.MaxRects {
		tr.Add(image.Rect(i*10, 0, i*10+5, 5))
	}
	if tr.Full() || tr.Rects() != damage.MaxRects {
		t.Fatalf("collapsed early: full=%v rects=%v", tr.Full(), tr.Rects())
	}

	tr.Add(image.Rect(500, 500, 510, 510))
	if !tr.Full() {
		t.Fatal("did not collapse to full damage")
	}
	if reg := tr.Region(1); reg.Bounds() != bounds || reg.Len() != 1 {
		t.Fatalf("full damage region = %v", reg.Rects())
	}
}

func TestClipAndContained(t *testing.T) {
	tr := damage.New(bounds)
	tr.Commit()

	tr.Add(image.Rect(-10, -10, 10, 10))
	tr.Add(image.Rect(2, 2, 5, 5))
	tr.Add(image.Rect(2000, 2000, 2010, 2010))

	reg := tr.Region(1)
	if reg.Len() != 1 || reg.Rects()[0] != image.Rect(0, 0, 10, 10) {
		t.Fatalf("region = %v", reg.Rects())
	}
}

func TestBufferAge(t *testing.T) {
	tr := damage.New(bounds)
	tr.Commit()

	a := image.Rect(0, 0, 10, 10)
	b := image.Rect(100, 100, 110, 110)
	tr.Add(a)
	tr.Commit()
	tr.Add(b)

	if reg := tr.Region(1); reg.Area() != 100 {
		t.Fatalf("age 1 area = %v", reg.Area())
	}
	if reg := tr.Region(2); reg.Area() != 200 || !reg.ContainsRect(a) {
		t.Fatalf("age 2 region = %v", reg.Rects())
	}
	if reg := tr.Region(0); reg.Bounds() != bounds {
		t.Fatal("unknown age did not repaint everything")
	}
	if reg := tr.Region(10); reg.Bounds() != bounds {
		t.Fatal("age beyond history did not repaint everything")
	}
	if reg := tr.Region(3); reg.Bounds() != bounds {
		t.Fatal("age reaching the initial full frame did not repaint everything")
	}
}

func TestCursorOnly(t *testing.T) {
	tr := damage.New(bounds)
	tr.Commit()

	tr.AddCursor(image.Rect(0, 0, 24, 24), image.Rect(5, 5, 29, 29))
	if !tr.CursorOnly() {
		t.Fatal("cursor movement not cursor-only")
	}
	tr.Add(image.Rect(500, 500, 600, 600))
	if tr.CursorOnly() {
		t.Fatal("surface damage left frame cursor-only")
	}
	tr.Commit()

	tr.Add(image.Rect(500, 500, 600, 600))
	tr.AddCursor(image.Rect(0, 0, 24, 24), image.Rect(5, 5, 29, 29))
	if tr.CursorOnly() {
		t.Fatal("cursor after surface damage marked cursor-only")
	}
}
