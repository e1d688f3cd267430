package layout_test

import (
	"image"
	"math/rand/v2"
	"slices"
	"testing"

	"deedles.dev/wlt/internal/layout"
)

var screen = image.Rect(0, 30, 1920, 1080)

func checkPartition(t *testing.T, tree *layout.Tree[int], area image.Rectangle) {
	t.Helper()

	rects := tree.Arrange(area)
	if len(rects) != tree.Len() {
		t.Fatalf("arranged %v keys, tree has %v", len(rects), tree.Len())
	}
	if len(rects) == 0 {
		return
	}

	var sum int
	for k, r := range rects {
		if !r.In(area) {
			t.Fatalf("%v: %v outside of %v", k, r, area)
		}
		sum += r.Dx() * r.Dy()
		for k2, r2 := range rects {
			if k != k2 && r.Overlaps(r2) {
				t.Fatalf("%v (%v) overlaps %v (%v)", k, r, k2, r2)
			}
		}
	}
	if sum != area.Dx()*area.Dy() {
		t.Fatalf("covered area %v != %v", sum, area.Dx()*area.Dy())
	}
}

func TestSingle(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)

	rects := tree.Arrange(screen)
	if rects[1] != screen {
		t.Fatalf("single window got %v", rects[1])
	}
}

func TestInsertAxis(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.Insert(2, 1, screen)

	rects := tree.Arrange(screen)
	if rects[1].Dy() != screen.Dy() || rects[2].Dy() != screen.Dy() {
		t.Fatalf("wide area was not split side by side: %v", rects)
	}
	if rects[1].Max.X != rects[2].Min.X || rects[2].Min.X != 960 {
		t.Fatalf("unexpected split: %v", rects)
	}

	tree.Insert(3, 2, screen)
	rects = tree.Arrange(screen)
	if rects[2].Dx() != rects[3].Dx() || rects[2].Max.Y != rects[3].Min.Y {
		t.Fatalf("tall cell was not stacked: %v", rects)
	}
}

func TestSquareTieBreak(t *testing.T) {
	square := image.Rect(0, 0, 100, 100)

	var tree layout.Tree[int]
	tree.Insert(1, 0, square)
	tree.Insert(2, 1, square)

	rects := tree.Arrange(square)
	if rects[1] != image.Rect(0, 0, 100, 50) {
		t.Fatalf("root split of a square was not stacked: %v", rects)
	}
}

func TestSetNextSplit(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.SetNextSplit(layout.Vertical)
	tree.Insert(2, 1, screen)

	rects := tree.Arrange(screen)
	if rects[1].Dx() != screen.Dx() {
		t.Fatalf("forced split ignored: %v", rects)
	}

	tree.Insert(3, 2, screen)
	rects = tree.Arrange(screen)
	if rects[3].Dy() != rects[2].Dy() {
		t.Fatalf("forced split applied twice: %v", rects)
	}
}

func TestRemoveCollapse(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.Insert(2, 1, screen)

	if !tree.Remove(1) {
		t.Fatal("remove failed")
	}
	rects := tree.Arrange(screen)
	if rects[2] != screen {
		t.Fatalf("remaining window got %v", rects[2])
	}
	if tree.Remove(1) {
		t.Fatal("removed twice")
	}

	tree.Remove(2)
	if tree.Len() != 0 || len(tree.Arrange(screen)) != 0 {
		t.Fatal("tree not empty")
	}
	tree.Insert(3, 2, screen)
	if tree.Arrange(screen)[3] != screen {
		t.Fatal("reinsert into empty tree failed")
	}
}

func TestRandomPartition(t *testing.T) {
	areas := []image.Rectangle{
		screen,
		image.Rect(0, 0, 1001, 777),
		image.Rect(-50, 10, 33, 2000),
	}

	for seed := range uint64(20) {
		r := rand.New(rand.NewPCG(seed, 0))
		area := areas[int(seed)%len(areas)]

		var tree layout.Tree[int]
		var keys []int
		for i := range 200 {
			if len(keys) > 0 && r.IntN(3) == 0 {
				j := r.IntN(len(keys))
				tree.Remove(keys[j])
				keys = slices.Delete(keys, j, j+1)
			} else {
				focused := 0
				if len(keys) > 0 {
					focused = keys[r.IntN(len(keys))]
				}
				tree.Insert(i+1, focused, area)
				keys = append(keys, i+1)
			}
			if r.IntN(10) == 0 && len(keys) > 0 {
				tree.Resize(keys[r.IntN(len(keys))], layout.Axis(r.IntN(2)), r.IntN(200)-100, area)
			}

			checkPartition(t, &tree, area)
		}
	}
}

func TestSwap(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.Insert(2, 1, screen)

	before := tree.Arrange(screen)
	tree.Swap(1, 2)
	after := tree.Arrange(screen)
	if before[1] != after[2] || before[2] != after[1] {
		t.Fatalf("swap: %v -> %v", before, after)
	}
	if !slices.Equal(tree.Leaves(), []int{2, 1}) {
		t.Fatalf("leaves = %v", tree.Leaves())
	}
}

func TestNeighbor(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.Insert(2, 1, screen)
	tree.Insert(3, 2, screen)

	tests := []struct {
		key  int
		dir  layout.Direction
		want int
		ok   bool
	}{
		{1, layout.Right, 2, true},
		{2, layout.Left, 1, true},
		{3, layout.Left, 1, true},
		{2, layout.Down, 3, true},
		{3, layout.Up, 2, true},
		{1, layout.Left, 0, false},
		{2, layout.Up, 0, false},
	}
	for _, test := range tests {
		got, ok := tree.Neighbor(test.key, test.dir, screen)
		if got != test.want || ok != test.ok {
			t.Errorf("Neighbor(%v, %v) = %v, %v", test.key, test.dir, got, ok)
		}
	}
}

func TestResize(t *testing.T) {
	var tree layout.Tree[int]
	tree.Insert(1, 0, screen)
	tree.Insert(2, 1, screen)

	if !tree.Resize(1, layout.Horizontal, 192, screen) {
		t.Fatal("resize failed")
	}
	rects := tree.Arrange(screen)
	if rects[1].Dx() != 1152 {
		t.Fatalf("grown width = %v", rects[1].Dx())
	}

	tree.Resize(2, layout.Horizontal, 10000, screen)
	rects = tree.Arrange(screen)
	if rects[1].Dx() != 192 {
		t.Fatalf("ratio not clamped: %v", rects[1].Dx())
	}

	if tree.Resize(1, layout.Vertical, 10, screen) {
		t.Fatal("resized along an axis with no split")
	}
	checkPartition(t, &tree, screen)
}

func TestPreview(t *testing.T) {
	var tree layout.Tree[int]
	if r := tree.Preview(1, 0, screen); r != screen {
		t.Fatalf("empty preview = %v, want %v", r, screen)
	}

	tree.Insert(1, 0, screen)
	tree.SetNextSplit(layout.Vertical)
	before := tree.Arrange(screen)

	r := tree.Preview(2, 1, screen)
	if want := image.Rect(0, 555, 1920, 1080); r != want {
		t.Errorf("preview = %v, want %v", r, want)
	}
	if tree.Len() != 1 || tree.Contains(2) {
		t.Fatalf("preview modified the tree: %v", tree.Leaves())
	}
	if after := tree.Arrange(screen); after[1] != before[1] {
		t.Errorf("arrangement changed from %v to %v", before, after)
	}

	tree.Insert(2, 1, screen)
	if got := tree.Arrange(screen)[2]; got != r {
		t.Errorf("inserted cell = %v, preview was %v", got, r)
	}
}
