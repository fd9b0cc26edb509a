package atlas

import "fmt"

// NodeID is a handle into the packer's node arena.
type NodeID int32

// InvalidNode is the zero-value handle returned on failure.
const InvalidNode NodeID = -1

type nodeState uint8

const (
	nodeFree nodeState = iota
	nodeSplit
	nodeOccupied
	nodeDead
)

// node is one cell of a layer's split tree. Split nodes have two children
// and are never occupied themselves.
type node struct {
	rect          Rect
	layer         int
	first, second NodeID
	state         nodeState
}

// Placement is the result of a successful insert.
type Placement struct {
	Layer int
	Rect  Rect
	Node  NodeID

	// Generation is a stamp assigned by Cache each time the entry receives
	// a new placement. Packer leaves it zero.
	Generation uint64
}

// PackerStats holds packer counters.
type PackerStats struct {
	Inserts       uint64
	Releases      uint64
	LayersCreated uint64
	Resets        uint64
}

// Packer places rectangles into fixed-size layers using guillotine splits.
//
// Every layer owns a binary tree whose leaves are either free or occupied.
// Insert picks the smallest free leaf that fits (first found on ties) and
// splits it along the shorter leftover axis. Release frees a leaf without
// merging it with its sibling; Reset is the only way to recover fragmented
// space.
//
// Packer is deterministic and not safe for concurrent use.
type Packer struct {
	width, height int
	maxLayers     int

	nodes []node
	free  []NodeID
	roots []NodeID
	stack []NodeID

	stats PackerStats
}

// NewPacker creates a packer for layers of width x height texels holding at
// most maxLayers layers. No layer is allocated until the first insert.
func NewPacker(width, height, maxLayers int) *Packer {
	if maxLayers < 1 {
		maxLayers = 1
	}
	return &Packer{width: width, height: height, maxLayers: maxLayers}
}

// LayerSize returns the dimensions of every layer.
func (p *Packer) LayerSize() (width, height int) {
	return p.width, p.height
}

// LayerCount returns the number of allocated layers.
func (p *Packer) LayerCount() int {
	return len(p.roots)
}

// MaxLayers returns the current layer limit.
func (p *Packer) MaxLayers() int {
	return p.maxLayers
}

// SetMaxLayers changes the layer limit. Lowering it below LayerCount keeps
// the existing layers but prevents new ones.
func (p *Packer) SetMaxLayers(n int) {
	if n < 1 {
		n = 1
	}
	p.maxLayers = n
}

// Stats returns the packer counters.
func (p *Packer) Stats() PackerStats {
	return p.stats
}

// Insert places a width x height rectangle.
func (p *Packer) Insert(width, height int) (Placement, error) {
	p.stats.Inserts++
	if width <= 0 || height <= 0 || width > p.width || height > p.height {
		return Placement{}, fmt.Errorf("%w: %dx%d in %dx%d layer", ErrInvalidSize, width, height, p.width, p.height)
	}

	leaf := p.findLeaf(width, height)
	if leaf == InvalidNode {
		if len(p.roots) >= p.maxLayers {
			return Placement{}, &FullError{Width: width, Height: height, MaxLayers: p.maxLayers}
		}
		leaf = p.addLayer()
	}

	id := p.place(leaf, width, height)
	n := &p.nodes[id]
	return Placement{Layer: n.layer, Rect: n.rect, Node: id}, nil
}

// Release frees an occupied leaf. It reports false for handles that are not
// occupied leaves.
func (p *Packer) Release(id NodeID) bool {
	if id < 0 || int(id) >= len(p.nodes) || p.nodes[id].state != nodeOccupied {
		return false
	}
	p.nodes[id].state = nodeFree
	p.stats.Releases++
	return true
}

// Node returns the placement held by an occupied leaf.
func (p *Packer) Node(id NodeID) (Placement, bool) {
	if id < 0 || int(id) >= len(p.nodes) || p.nodes[id].state != nodeOccupied {
		return Placement{}, false
	}
	n := &p.nodes[id]
	return Placement{Layer: n.layer, Rect: n.rect, Node: id}, true
}

// Reset tears down every layer and returns all nodes to the free list.
func (p *Packer) Reset() {
	for _, root := range p.roots {
		p.freeTree(root)
	}
	p.roots = p.roots[:0]
	p.stats.Resets++
}

// Occupied returns the occupied rectangles of a layer in tree order.
func (p *Packer) Occupied(layer int) []Rect {
	var out []Rect
	p.walk(layer, func(n *node) {
		if n.state == nodeOccupied {
			out = append(out, n.rect)
		}
	})
	return out
}

// OccupiedArea returns the total occupied area over all layers.
func (p *Packer) OccupiedArea() int {
	total := 0
	for l := range p.roots {
		p.walk(l, func(n *node) {
			if n.state == nodeOccupied {
				total += n.rect.Area()
			}
		})
	}
	return total
}

// FreeArea returns the total area of free leaves over all layers.
func (p *Packer) FreeArea() int {
	return len(p.roots)*p.width*p.height - p.OccupiedArea()
}

// Utilization returns occupied area divided by allocated layer area.
func (p *Packer) Utilization() float64 {
	if len(p.roots) == 0 {
		return 0
	}
	capacity := len(p.roots) * p.width * p.height
	return float64(p.OccupiedArea()) / float64(capacity)
}

// Fragmentation returns 1 - largest free leaf / total free area. It is zero
// when the free space is one rectangle and approaches one as free space
// splinters.
func (p *Packer) Fragmentation() float64 {
	largest, total := 0, 0
	for l := range p.roots {
		p.walk(l, func(n *node) {
			if n.state != nodeFree {
				return
			}
			a := n.rect.Area()
			total += a
			largest = max(largest, a)
		})
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(largest)/float64(total)
}

// findLeaf returns the smallest free leaf that fits, or InvalidNode.
func (p *Packer) findLeaf(w, h int) NodeID {
	want := w * h
	best, bestArea := InvalidNode, 0

	stack := p.stack[:0]
	defer func() { p.stack = stack[:0] }()

	for _, root := range p.roots {
		stack = append(stack, root)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n := &p.nodes[id]
			switch n.state {
			case nodeSplit:
				// second first so that first is visited first
				stack = append(stack, n.second, n.first)
			case nodeFree:
				if n.rect.Width < w || n.rect.Height < h {
					continue
				}
				area := n.rect.Area()
				if area == want {
					return id
				}
				if best == InvalidNode || area < bestArea {
					best, bestArea = id, area
				}
			}
		}
	}
	return best
}

// place occupies a w x h corner of the free leaf id, splitting as needed,
// and returns the occupied leaf.
func (p *Packer) place(id NodeID, w, h int) NodeID {
	for {
		r := p.nodes[id].rect
		if r.Width == w && r.Height == h {
			p.nodes[id].state = nodeOccupied
			return id
		}

		lw, lh := r.Width-w, r.Height-h
		var first, second Rect
		if lw < lh {
			first = Rect{X: r.X, Y: r.Y, Width: r.Width, Height: h}
			second = Rect{X: r.X, Y: r.Y + h, Width: r.Width, Height: lh}
		} else {
			first = Rect{X: r.X, Y: r.Y, Width: w, Height: r.Height}
			second = Rect{X: r.X + w, Y: r.Y, Width: lw, Height: r.Height}
		}

		layer := p.nodes[id].layer
		a := p.alloc(first, layer)
		b := p.alloc(second, layer)

		n := &p.nodes[id]
		n.first, n.second, n.state = a, b, nodeSplit
		id = a
	}
}

func (p *Packer) addLayer() NodeID {
	root := p.alloc(Rect{Width: p.width, Height: p.height}, len(p.roots))
	p.roots = append(p.roots, root)
	p.stats.LayersCreated++
	return root
}

func (p *Packer) alloc(r Rect, layer int) NodeID {
	n := node{rect: r, layer: layer, first: InvalidNode, second: InvalidNode, state: nodeFree}
	if k := len(p.free); k > 0 {
		id := p.free[k-1]
		p.free = p.free[:k-1]
		p.nodes[id] = n
		return id
	}
	p.nodes = append(p.nodes, n)
	return NodeID(len(p.nodes) - 1)
}

func (p *Packer) freeTree(root NodeID) {
	stack := append(p.stack[:0], root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &p.nodes[id]
		if n.state == nodeSplit {
			stack = append(stack, n.second, n.first)
		}
		*n = node{state: nodeDead, first: InvalidNode, second: InvalidNode}
		p.free = append(p.free, id)
	}
	p.stack = stack[:0]
}

func (p *Packer) walk(layer int, fn func(*node)) {
	if layer < 0 || layer >= len(p.roots) {
		return
	}
	stack := []NodeID{p.roots[layer]}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &p.nodes[id]
		if n.state == nodeSplit {
			stack = append(stack, n.second, n.first)
		}
		fn(n)
	}
}
