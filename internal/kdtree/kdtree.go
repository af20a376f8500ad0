// Package kdtree implements a static three dimensional kd-tree with bucketed leaves.
//
// The tree is built once over a slice of unit-sphere points and is read-only afterwards,
// so a single Tree can be queried from any number of goroutines without locking.
// Every indexed point carries its position in the slice passed to New; queries return
// those positions rather than the points themselves.
package kdtree

import (
	"container/heap"
	"math"
	"sort"

	"github.com/UnknownOlympus/meridian/internal/geo"
)

// DefaultBucketSize is the maximum number of points kept in a leaf before it is split.
const DefaultBucketSize = 32

const dims = 3

// Neighbour is a query result: the squared Euclidean distance to the query point and
// the position of the matching point in the slice the tree was built from.
type Neighbour struct {
	Distance float64
	Item     int
}

// less orders neighbours by distance, then by item for determinism.
func (n Neighbour) less(o Neighbour) bool {
	if n.Distance != o.Distance {
		return n.Distance < o.Distance
	}
	return n.Item < o.Item
}

type entry struct {
	point geo.Point
	item  int
}

// node is an inner node when left >= 0, a leaf covering entries[lo:hi] otherwise.
type node struct {
	axis        int
	split       float64
	left, right int
	lo, hi      int
}

// Tree is an immutable kd-tree over geo.Point values.
type Tree struct {
	entries    []entry
	nodes      []node
	bucketSize int
}

// New builds a tree with DefaultBucketSize leaves.
func New(points []geo.Point) *Tree {
	return NewWithBucketSize(points, DefaultBucketSize)
}

// NewWithBucketSize builds a tree whose leaves hold at most bucketSize points.
// Values below one are treated as one. The input slice is not modified.
func NewWithBucketSize(points []geo.Point, bucketSize int) *Tree {
	if bucketSize < 1 {
		bucketSize = 1
	}

	t := &Tree{
		entries:    make([]entry, len(points)),
		bucketSize: bucketSize,
	}
	for i, p := range points {
		t.entries[i] = entry{point: p, item: i}
	}
	if len(points) == 0 {
		return t
	}

	t.nodes = make([]node, 0, 2*(len(points)/bucketSize+1))
	t.build(0, len(t.entries), 0)

	return t
}

// Size returns the number of indexed points.
func (t *Tree) Size() int {
	return len(t.entries)
}

// BucketSize returns the leaf capacity the tree was built with.
func (t *Tree) BucketSize() int {
	return t.bucketSize
}

// build indexes entries[lo:hi] and returns the id of the created node.
// The split axis cycles x, y, z with depth; the split value is the median on that axis.
func (t *Tree) build(lo, hi, depth int) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, node{left: -1, right: -1, lo: lo, hi: hi})
	if hi-lo <= t.bucketSize {
		return id
	}

	axis := depth % dims
	mid := lo + (hi-lo)/2
	t.selectNth(lo, hi, mid, axis)
	split := t.entries[mid].point[axis]

	left := t.build(lo, mid, depth+1)
	right := t.build(mid, hi, depth+1)

	// t.nodes may have been reallocated by the recursive calls.
	n := &t.nodes[id]
	n.axis = axis
	n.split = split
	n.left = left
	n.right = right

	return id
}

// selectNth reorders entries[lo:hi] so that entries[n] holds the value that would be there
// if the range were sorted on axis, with smaller values before it and larger after it.
// Three-way partitioning keeps long runs of equal coordinates linear.
func (t *Tree) selectNth(lo, hi, n, axis int) {
	e := t.entries
	hi--
	for lo < hi {
		pivot := e[lo+(hi-lo)/2].point[axis]
		lt, i, gt := lo, lo, hi
		for i <= gt {
			v := e[i].point[axis]
			switch {
			case v < pivot:
				e[lt], e[i] = e[i], e[lt]
				lt++
				i++
			case v > pivot:
				e[i], e[gt] = e[gt], e[i]
				gt--
			default:
				i++
			}
		}

		switch {
		case n < lt:
			hi = lt - 1
		case n > gt:
			lo = gt + 1
		default:
			return
		}
	}
}

// NearestN returns up to k neighbours of q ordered by ascending distance, ties broken by
// item. Asking for more neighbours than indexed points returns all of them. An empty tree,
// k < 1 or a NaN query yield no results.
func (t *Tree) NearestN(q geo.Point, k int) []Neighbour {
	if k < 1 || len(t.entries) == 0 || q.IsNaN() {
		return nil
	}
	if k > len(t.entries) {
		k = len(t.entries)
	}

	best := make(candidates, 0, k)
	t.searchN(0, q, k, &best)

	out := []Neighbour(best)
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })

	return out
}

func (t *Tree) searchN(id int, q geo.Point, k int, best *candidates) {
	n := &t.nodes[id]
	if n.left < 0 {
		for i := n.lo; i < n.hi; i++ {
			c := Neighbour{Distance: geo.SquaredDistance(q, t.entries[i].point), Item: t.entries[i].item}
			switch {
			case best.Len() < k:
				heap.Push(best, c)
			case c.less((*best)[0]):
				(*best)[0] = c
				heap.Fix(best, 0)
			}
		}
		return
	}

	diff := q[n.axis] - n.split
	near, far := n.left, n.right
	if diff > 0 {
		near, far = far, near
	}

	t.searchN(near, q, k, best)
	if best.Len() < k || diff*diff <= (*best)[0].Distance {
		t.searchN(far, q, k, best)
	}
}

// Nearest returns the single closest neighbour of q. It reports false for an empty
// tree or a NaN query.
func (t *Tree) Nearest(q geo.Point) (Neighbour, bool) {
	if len(t.entries) == 0 || q.IsNaN() {
		return Neighbour{}, false
	}

	best := Neighbour{Distance: math.Inf(1), Item: -1}
	t.searchOne(0, q, &best)

	return best, best.Item >= 0
}

func (t *Tree) searchOne(id int, q geo.Point, best *Neighbour) {
	n := &t.nodes[id]
	if n.left < 0 {
		for i := n.lo; i < n.hi; i++ {
			c := Neighbour{Distance: geo.SquaredDistance(q, t.entries[i].point), Item: t.entries[i].item}
			if c.less(*best) {
				*best = c
			}
		}
		return
	}

	diff := q[n.axis] - n.split
	near, far := n.left, n.right
	if diff > 0 {
		near, far = far, near
	}

	t.searchOne(near, q, best)
	if diff*diff <= best.Distance {
		t.searchOne(far, q, best)
	}
}

// candidates is a max-heap of the best neighbours seen so far; the worst one sits on top.
type candidates []Neighbour

func (c candidates) Len() int           { return len(c) }
func (c candidates) Less(i, j int) bool { return c[j].less(c[i]) }
func (c candidates) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

func (c *candidates) Push(x any) { *c = append(*c, x.(Neighbour)) }

func (c *candidates) Pop() any {
	old := *c
	n := len(old)
	x := old[n-1]
	*c = old[:n-1]
	return x
}
