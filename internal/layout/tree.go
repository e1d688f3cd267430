// Package layout implements the binary split tree used to tile
// windows within a workspace.
package layout

import (
	"image"
	"math"

	"golang.org/x/exp/constraints"
)

// Axis is the direction along which a branch divides its area.
type Axis int

const (
	// Horizontal places the children side by side.
	Horizontal Axis = iota

	// Vertical stacks the children on top of each other.
	Vertical
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

func (a Axis) Flip() Axis {
	return 1 - a
}

// Direction is a geometric direction used to find neighbors.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

const (
	minRatio = 0.1
	maxRatio = 0.9
)

type node[K comparable] struct {
	parent *node[K]

	// Leaves have a key and no children.
	leaf bool
	key  K

	axis     Axis
	ratio    float64
	children [2]*node[K]
}

func (n *node[K]) depth() (d int) {
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (n *node[K]) index() int {
	if n.parent.children[0] == n {
		return 0
	}
	return 1
}

// Tree is a binary split tree of keys. The zero value is an empty
// tree ready to use.
type Tree[K comparable] struct {
	root   *node[K]
	leaves map[K]*node[K]

	next    Axis
	hasNext bool
}

func (t *Tree[K]) Len() int {
	return len(t.leaves)
}

func (t *Tree[K]) Contains(key K) bool {
	_, ok := t.leaves[key]
	return ok
}

// SetNextSplit forces the next insertion to split along axis instead
// of choosing by aspect ratio.
func (t *Tree[K]) SetNextSplit(axis Axis) {
	t.next = axis
	t.hasNext = true
}

// Insert adds key to the tree by splitting the leaf of focused, or
// the last leaf if focused is not in the tree. The split axis is the
// one that best balances the aspect ratio of the leaf's cell in area,
// with ties broken by the leaf's depth. Inserting a key that is
// already present does nothing.
func (t *Tree[K]) Insert(key, focused K, area image.Rectangle) {
	if t.Contains(key) {
		return
	}
	if t.leaves == nil {
		t.leaves = make(map[K]*node[K])
	}

	leaf := &node[K]{leaf: true, key: key}
	t.leaves[key] = leaf

	if t.root == nil {
		t.root = leaf
		return
	}

	target, ok := t.leaves[focused]
	if !ok || target == leaf {
		target = t.last()
	}

	axis := t.chooseAxis(target, area)
	branch := &node[K]{
		parent:   target.parent,
		axis:     axis,
		ratio:    0.5,
		children: [2]*node[K]{target, leaf},
	}
	t.replace(target, branch)
	target.parent = branch
	leaf.parent = branch
}

// Preview returns the cell that key would get if it was inserted
// next to focused. The tree is left unchanged.
func (t *Tree[K]) Preview(key, focused K, area image.Rectangle) image.Rectangle {
	if t.Contains(key) {
		return t.Arrange(area)[key]
	}

	next, hasNext := t.next, t.hasNext
	t.Insert(key, focused, area)
	r := t.Arrange(area)[key]
	t.Remove(key)
	t.next, t.hasNext = next, hasNext
	return r
}

func (t *Tree[K]) chooseAxis(target *node[K], area image.Rectangle) Axis {
	if t.hasNext {
		t.hasNext = false
		return t.next
	}

	cell := t.cell(target, area)
	switch w, h := cell.Dx(), cell.Dy(); {
	case w > h:
		return Horizontal
	case h > w:
		return Vertical
	}
	if target.depth()%2 == 0 {
		return Vertical
	}
	return Horizontal
}

func (t *Tree[K]) last() *node[K] {
	n := t.root
	for !n.leaf {
		n = n.children[1]
	}
	return n
}

// replace puts n where old was in the tree without touching old.
func (t *Tree[K]) replace(old, n *node[K]) {
	n.parent = old.parent
	if old.parent == nil {
		t.root = n
		return
	}
	old.parent.children[old.index()] = n
}

// Remove removes key from the tree. Its sibling takes over the space
// of their parent.
func (t *Tree[K]) Remove(key K) bool {
	leaf, ok := t.leaves[key]
	if !ok {
		return false
	}
	delete(t.leaves, key)

	parent := leaf.parent
	if parent == nil {
		t.root = nil
		return true
	}

	sibling := parent.children[1-leaf.index()]
	t.replace(parent, sibling)
	return true
}

// Swap exchanges the positions of two keys.
func (t *Tree[K]) Swap(a, b K) bool {
	na, ok := t.leaves[a]
	if !ok {
		return false
	}
	nb, ok := t.leaves[b]
	if !ok {
		return false
	}

	na.key, nb.key = b, a
	t.leaves[a], t.leaves[b] = nb, na
	return true
}

// ToggleSplit flips the axis of the branch that directly contains
// key.
func (t *Tree[K]) ToggleSplit(key K) bool {
	leaf, ok := t.leaves[key]
	if !ok || leaf.parent == nil {
		return false
	}
	leaf.parent.axis = leaf.parent.axis.Flip()
	return true
}

// Resize moves the edge between key and its nearest neighbor along
// axis by delta pixels of area, growing key for positive deltas. The
// split ratio is kept within [0.1, 0.9].
func (t *Tree[K]) Resize(key K, axis Axis, delta int, area image.Rectangle) bool {
	leaf, ok := t.leaves[key]
	if !ok {
		return false
	}

	child := leaf
	for n := leaf.parent; n != nil; child, n = n, n.parent {
		if n.axis != axis {
			continue
		}

		cell := t.cell(n, area)
		size := cell.Dx()
		if axis == Vertical {
			size = cell.Dy()
		}
		if size <= 0 {
			return false
		}

		d := float64(delta) / float64(size)
		if child.index() == 1 {
			d = -d
		}
		n.ratio = clamp(n.ratio+d, minRatio, maxRatio)
		return true
	}
	return false
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// Leaves returns every key in the tree in order, left to right and
// top to bottom.
func (t *Tree[K]) Leaves() []K {
	keys := make([]K, 0, len(t.leaves))
	var walk func(*node[K])
	walk = func(n *node[K]) {
		if n == nil {
			return
		}
		if n.leaf {
			keys = append(keys, n.key)
			return
		}
		walk(n.children[0])
		walk(n.children[1])
	}
	walk(t.root)
	return keys
}

// Arrange partitions area among the keys of the tree. The returned
// rectangles cover area exactly with no overlap.
func (t *Tree[K]) Arrange(area image.Rectangle) map[K]image.Rectangle {
	rects := make(map[K]image.Rectangle, len(t.leaves))
	var walk func(*node[K], image.Rectangle)
	walk = func(n *node[K], r image.Rectangle) {
		if n.leaf {
			rects[n.key] = r
			return
		}
		a, b := split(r, n.axis, n.ratio)
		walk(n.children[0], a)
		walk(n.children[1], b)
	}
	if t.root != nil {
		walk(t.root, area)
	}
	return rects
}

func split(r image.Rectangle, axis Axis, ratio float64) (a, b image.Rectangle) {
	a, b = r, r
	switch axis {
	case Horizontal:
		x := r.Min.X + int(math.Round(float64(r.Dx())*ratio))
		a.Max.X, b.Min.X = x, x
	case Vertical:
		y := r.Min.Y + int(math.Round(float64(r.Dy())*ratio))
		a.Max.Y, b.Min.Y = y, y
	}
	return a, b
}

// cell returns the rectangle that n occupies when the tree is
// arranged in area.
func (t *Tree[K]) cell(n *node[K], area image.Rectangle) image.Rectangle {
	if n.parent == nil {
		return area
	}
	pr := t.cell(n.parent, area)
	a, b := split(pr, n.parent.axis, n.parent.ratio)
	if n.index() == 0 {
		return a
	}
	return b
}

// Neighbor returns the key whose cell is adjacent to key's in
// direction dir, preferring the one that overlaps it the most.
func (t *Tree[K]) Neighbor(key K, dir Direction, area image.Rectangle) (K, bool) {
	var zero K
	if !t.Contains(key) {
		return zero, false
	}

	rects := t.Arrange(area)
	from := rects[key]

	var (
		best     K
		found    bool
		bestDist = math.MaxInt
		bestOver = -1
	)
	for _, k := range t.Leaves() {
		r := rects[k]
		if k == key {
			continue
		}

		var dist, over int
		switch dir {
		case Left:
			dist, over = from.Min.X-r.Max.X, overlap(from.Min.Y, from.Max.Y, r.Min.Y, r.Max.Y)
		case Right:
			dist, over = r.Min.X-from.Max.X, overlap(from.Min.Y, from.Max.Y, r.Min.Y, r.Max.Y)
		case Up:
			dist, over = from.Min.Y-r.Max.Y, overlap(from.Min.X, from.Max.X, r.Min.X, r.Max.X)
		case Down:
			dist, over = r.Min.Y-from.Max.Y, overlap(from.Min.X, from.Max.X, r.Min.X, r.Max.X)
		}
		if dist < 0 || over <= 0 {
			continue
		}

		if dist < bestDist || (dist == bestDist && over > bestOver) {
			best, found, bestDist, bestOver = k, true, dist, over
		}
	}
	return best, found
}

func overlap(a0, a1, b0, b1 int) int {
	return min(a1, b1) - max(a0, b0)
}
