// Package quadtree implements the capacity bounded spatial index rebuilt at
// every simulation tick to find the neighbors of each boid.
//
// The tree is an arena: nodes live in one slice and address their four
// children by index. Entries are (id, position) copies, where id is whatever
// handle the caller uses for its agents (the index in its slice). The tree
// never keeps pointers into the caller's collections, so it is safe to build
// it from a snapshot and throw it away at the end of the tick.
package quadtree

import (
	"errors"

	"github.com/lao-tseu-is-alive/go-boids/pkg/geometry"
)

const (
	// DefaultMaxDepth bounds subdivision. Leaves at this depth accept any
	// number of entries, which is what happens with coincident positions.
	DefaultMaxDepth = 16

	// NoExclude is passed to Query when no id has to be skipped.
	NoExclude = -1

	leaf = 0
)

var (
	ErrInvalidCapacity = errors.New("quadtree: capacity must be positive")
	ErrInvalidRegion   = errors.New("quadtree: region must have positive finite half extents")
)

type entry struct {
	id  int
	pos geometry.Vector2D
}

type node struct {
	bounds  geometry.Bounds
	depth   int
	entries []entry
	// children is the arena index of the NE child, the other three follow
	// in geometry.Quadrant order. The root sits at index 0 so 0 means leaf.
	children int
}

// Tree is a point quadtree over a fixed region.
type Tree struct {
	region   geometry.Rectangle
	capacity int
	maxDepth int
	nodes    []node
	size     int
}

// Option customizes a Tree.
type Option func(*Tree)

// WithMaxDepth overrides DefaultMaxDepth. Values below zero are ignored.
func WithMaxDepth(depth int) Option {
	return func(t *Tree) {
		if depth >= 0 {
			t.maxDepth = depth
		}
	}
}

// New creates an empty tree whose root leaf covers region.
func New(capacity int, region geometry.Rectangle, opts ...Option) (*Tree, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if !region.Valid() {
		return nil, ErrInvalidRegion
	}
	t := &Tree{
		region:   region,
		capacity: capacity,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.nodes = append(t.nodes, node{bounds: region.Bounds(), entries: make([]entry, 0, capacity)})
	return t, nil
}

// Build creates a tree and inserts positions[i] under id i.
func Build(capacity int, region geometry.Rectangle, positions []geometry.Vector2D, opts ...Option) (*Tree, error) {
	t, err := New(capacity, region, opts...)
	if err != nil {
		return nil, err
	}
	for i, p := range positions {
		t.Insert(i, p)
	}
	return t, nil
}

// Region is the area covered by the root.
func (t *Tree) Region() geometry.Rectangle {
	return t.region
}

// Len is the number of entries stored.
func (t *Tree) Len() int {
	return t.size
}

// Nodes is the number of nodes in the arena, internal ones included.
func (t *Tree) Nodes() int {
	return len(t.nodes)
}

// Depth is the depth of the deepest node, the root being at depth 0.
func (t *Tree) Depth() int {
	deepest := 0
	for i := range t.nodes {
		if t.nodes[i].depth > deepest {
			deepest = t.nodes[i].depth
		}
	}
	return deepest
}

// Insert stores id at pos. Positions outside the root region are ignored and
// reported with false.
func (t *Tree) Insert(id int, pos geometry.Vector2D) bool {
	if !pos.IsFinite() || !t.nodes[0].bounds.Contains(pos) {
		return false
	}
	t.insert(0, entry{id: id, pos: pos})
	t.size++
	return true
}

func (t *Tree) insert(n int, e entry) {
	for {
		nd := &t.nodes[n]
		if nd.children != leaf {
			n = nd.children + int(nd.bounds.QuadrantOf(e.pos))
			continue
		}
		if len(nd.entries) < t.capacity || nd.depth >= t.maxDepth {
			nd.entries = append(nd.entries, e)
			return
		}
		t.subdivide(n)
	}
}

// subdivide turns leaf n into an internal node and pushes its entries down
// one level. Children are cut from the parent's corners and its Mid, so the
// cell routing a point always contains it. Children may themselves be full afterwards only when every
// entry lands in the same quadrant, and the next insert deals with that.
func (t *Tree) subdivide(n int) {
	first := len(t.nodes)
	bounds, depth := t.nodes[n].bounds, t.nodes[n].depth
	for q := geometry.NorthEast; q <= geometry.SouthWest; q++ {
		t.nodes = append(t.nodes, node{
			bounds:  bounds.Quadrant(q),
			depth:   depth + 1,
			entries: make([]entry, 0, t.capacity),
		})
	}
	// t.nodes may have been reallocated by the appends above.
	nd := &t.nodes[n]
	held := nd.entries
	nd.entries = nil
	nd.children = first
	for _, e := range held {
		t.insert(n, e)
	}
}

// Query appends to results the id of every entry lying within radius
// (inclusive) of origin, except exclude, and returns the extended slice.
// Nodes whose region does not meet the query disc are skipped with their
// whole subtree. A negative radius selects nothing.
func (t *Tree) Query(radius float64, origin geometry.Vector2D, exclude int, results []int) []int {
	if radius < 0 || !origin.IsFinite() {
		return results
	}
	return t.query(0, radius*radius, radius, origin, exclude, results)
}

func (t *Tree) query(n int, radiusSq, radius float64, origin geometry.Vector2D, exclude int, results []int) []int {
	nd := &t.nodes[n]
	if !nd.bounds.IntersectsCircle(origin, radius) {
		return results
	}
	if nd.children != leaf {
		for q := 0; q < 4; q++ {
			results = t.query(nd.children+q, radiusSq, radius, origin, exclude, results)
		}
		return results
	}
	for _, e := range nd.entries {
		if e.id == exclude {
			continue
		}
		if e.pos.DistanceSquaredTo(origin) <= radiusSq {
			results = append(results, e.id)
		}
	}
	return results
}

// Walk calls fn for every node in depth first order. It is the display hook
// used by the renderer to draw cell boundaries.
func (t *Tree) Walk(fn func(region geometry.Rectangle, depth int, isLeaf bool)) {
	t.walk(0, fn)
}

func (t *Tree) walk(n int, fn func(geometry.Rectangle, int, bool)) {
	nd := &t.nodes[n]
	fn(nd.bounds.Rectangle(), nd.depth, nd.children == leaf)
	if nd.children == leaf {
		return
	}
	for q := 0; q < 4; q++ {
		t.walk(nd.children+q, fn)
	}
}

// Leaves returns the regions of all leaf nodes.
func (t *Tree) Leaves() []geometry.Rectangle {
	var out []geometry.Rectangle
	t.Walk(func(r geometry.Rectangle, _ int, isLeaf bool) {
		if isLeaf {
			out = append(out, r)
		}
	})
	return out
}
