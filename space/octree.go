package space

import (
	"fmt"
	"sort"

	"pixelmc/common"
)

// maxItemsPerLeaf bounds how many items an octree leaf holds before it
// splits into eight children.
const maxItemsPerLeaf = 8

// maxOctreeDepth bounds recursion depth so degenerate inputs (many
// coincident points) cannot recurse forever.
const maxOctreeDepth = 24

// Item pairs a 3-D position with an arbitrary payload for storage in an
// Octree.
type Item[T any] struct {
	Pos   common.Point3D
	Value T
}

// Octree is a static spatial index over 3-D points. It is built once via
// NewOctree and is immutable afterwards; queries are safe for concurrent
// use by multiple goroutines.
type Octree[T any] struct {
	root *octNode[T]
}

type octNode[T any] struct {
	min, max common.Point3D
	items    []Item[T]
	children [8]*octNode[T]
	leaf     bool
}

// NewOctree builds an octree over items. It returns an error if items is
// empty, since an empty tree has no defined bounding box.
func NewOctree[T any](items []Item[T]) (*Octree[T], error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("NewOctree: no items to index")
	}
	min, max := boundingBox(items)
	// Inflate a degenerate (zero-volume) box so every item still falls
	// strictly inside it.
	const pad = 1e-6
	if max.X-min.X < pad {
		min.X -= pad
		max.X += pad
	}
	if max.Y-min.Y < pad {
		min.Y -= pad
		max.Y += pad
	}
	if max.Z-min.Z < pad {
		min.Z -= pad
		max.Z += pad
	}
	root := &octNode[T]{min: min, max: max, leaf: true}
	for _, it := range items {
		root.insert(it, 0)
	}
	return &Octree[T]{root: root}, nil
}

func boundingBox[T any](items []Item[T]) (min, max common.Point3D) {
	min, max = items[0].Pos, items[0].Pos
	for _, it := range items[1:] {
		p := it.Pos
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	return min, max
}

func (n *octNode[T]) center() common.Point3D {
	return common.Point3D{
		X: (n.min.X + n.max.X) / 2,
		Y: (n.min.Y + n.max.Y) / 2,
		Z: (n.min.Z + n.max.Z) / 2,
	}
}

func octant(c, p common.Point3D) int {
	idx := 0
	if p.X >= c.X {
		idx |= 1
	}
	if p.Y >= c.Y {
		idx |= 2
	}
	if p.Z >= c.Z {
		idx |= 4
	}
	return idx
}

func octantBounds(min, max, c common.Point3D, idx int) (common.Point3D, common.Point3D) {
	nmin, nmax := min, max
	if idx&1 != 0 {
		nmin.X = c.X
	} else {
		nmax.X = c.X
	}
	if idx&2 != 0 {
		nmin.Y = c.Y
	} else {
		nmax.Y = c.Y
	}
	if idx&4 != 0 {
		nmin.Z = c.Z
	} else {
		nmax.Z = c.Z
	}
	return nmin, nmax
}

func (n *octNode[T]) insert(it Item[T], depth int) {
	if n.leaf {
		n.items = append(n.items, it)
		if len(n.items) > maxItemsPerLeaf && depth < maxOctreeDepth {
			n.split(depth)
		}
		return
	}
	c := n.center()
	idx := octant(c, it.Pos)
	n.children[idx].insert(it, depth+1)
}

func (n *octNode[T]) split(depth int) {
	c := n.center()
	for i := 0; i < 8; i++ {
		nmin, nmax := octantBounds(n.min, n.max, c, i)
		n.children[i] = &octNode[T]{min: nmin, max: nmax, leaf: true}
	}
	items := n.items
	n.items = nil
	n.leaf = false
	for _, it := range items {
		idx := octant(c, it.Pos)
		n.children[idx].insert(it, depth+1)
	}
}

// boxDistance returns the minimum distance from p to the box [min,max],
// zero if p is inside the box.
func boxDistance(min, max, p common.Point3D) float64 {
	d := func(v, lo, hi common.Coordinate) common.Coordinate {
		if v < lo {
			return lo - v
		}
		if v > hi {
			return v - hi
		}
		return 0
	}
	dx := d(p.X, min.X, max.X)
	dy := d(p.Y, min.Y, max.Y)
	dz := d(p.Z, min.Z, max.Z)
	return Norm(common.Point3D{X: dx, Y: dy, Z: dz})
}

// Query returns every indexed item within radius of center, sorted by
// ascending distance from center. A non-positive radius returns no items.
func (t *Octree[T]) Query(center common.Point3D, radius float64) []Item[T] {
	if radius <= 0 {
		return nil
	}
	var out []Item[T]
	var dists []float64
	t.root.query(center, radius, &out, &dists)
	sort.Sort(&byDistance[T]{items: out, dists: dists})
	return out
}

func (n *octNode[T]) query(center common.Point3D, radius float64, out *[]Item[T], dists *[]float64) {
	if boxDistance(n.min, n.max, center) > radius {
		return
	}
	if n.leaf {
		for _, it := range n.items {
			d := EuclideanDistance(center, it.Pos)
			if d <= radius {
				*out = append(*out, it)
				*dists = append(*dists, d)
			}
		}
		return
	}
	for _, child := range n.children {
		child.query(center, radius, out, dists)
	}
}

type byDistance[T any] struct {
	items []Item[T]
	dists []float64
}

func (b *byDistance[T]) Len() int { return len(b.items) }
func (b *byDistance[T]) Less(i, j int) bool {
	return b.dists[i] < b.dists[j]
}
func (b *byDistance[T]) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.dists[i], b.dists[j] = b.dists[j], b.dists[i]
}

// Nearest returns the closest indexed item to p, searching outward from an
// initial radius and doubling it until an item is found or the search
// exceeds maxRadius. It returns false if no item lies within maxRadius.
func (t *Octree[T]) Nearest(p common.Point3D, initialRadius, maxRadius float64) (Item[T], bool) {
	var zero Item[T]
	if initialRadius <= 0 {
		initialRadius = 1e-3
	}
	for r := initialRadius; r <= maxRadius; r *= 2 {
		found := t.Query(p, r)
		if len(found) > 0 {
			return found[0], true
		}
	}
	return zero, false
}
