// Package graph is a lazily built view of the legal multi-cell moves on a
// board.
//
// Every cell is a Node with one slot per (direction, jump, speed). A slot
// starts unresolved, becomes a concrete Edge on first use and is cleared once
// any cell on its path is claimed. Structural updates (Occupy, Update) must
// not run concurrently with lookups; lookups may run from many goroutines.
package graph

import (
	"sync"
	"sync/atomic"

	"github.com/brensch/speed/game"
)

// unresolved marks slots whose edge has not been walked yet.
var unresolved = &Edge{}

type edgeTable [NumEdgeSlots]atomic.Pointer[Edge]

type Node struct {
	Position game.Point

	graph *Graph
	value int8
	// table is nil once the cell is permanently claimed.
	table *edgeTable
}

// Value is the claimant recorded for this node.
func (n *Node) Value() int8 { return n.value }

// Edge returns the move leaving n, or nil if it is impossible.
func (n *Node) Edge(dir game.Direction, jump bool, speed int) *Edge {
	if n.table == nil || n.value != game.Empty || speed < game.MinSpeed || speed > game.MaxSpeed {
		return nil
	}
	slot := &n.table[Index(dir, jump, speed)]
	if e := slot.Load(); e != unresolved {
		return e
	}

	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()
	if e := slot.Load(); e != unresolved {
		return e
	}
	e := n.graph.buildEdge(n, dir, jump, speed)
	slot.Store(e)
	return e
}

// Graph owns one Node per board cell.
type Graph struct {
	Width  int
	Height int

	nodes []Node
	// mu serialises edge materialisation.
	mu sync.Mutex
}

func New(width, height int) *Graph {
	g := &Graph{Width: width, Height: height, nodes: make([]Node, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := &g.nodes[y*width+x]
			n.Position = game.Point{X: x, Y: y}
			n.graph = g
			n.table = new(edgeTable)
			for i := range n.table {
				n.table[i].Store(unresolved)
			}
		}
	}
	return g
}

// Node returns the node at p, or nil when p is off the board.
func (g *Graph) Node(p game.Point) *Node {
	if p.X < 0 || p.Y < 0 || p.X >= g.Width || p.Y >= g.Height {
		return nil
	}
	return &g.nodes[p.Y*g.Width+p.X]
}

// Edge is shorthand for g.Node(p).Edge(...).
func (g *Graph) Edge(p game.Point, dir game.Direction, jump bool, speed int) *Edge {
	n := g.Node(p)
	if n == nil {
		return nil
	}
	return n.Edge(dir, jump, speed)
}

// Occupy records that p was claimed by value. Every edge passing through or
// ending at p is cleared. With removeStarting the node itself is retired:
// its table is discarded and all future lookups on it return nil.
func (g *Graph) Occupy(p game.Point, value int8, removeStarting bool) {
	n := g.Node(p)
	if n == nil || value == game.Empty {
		return
	}

	if n.value != value {
		for _, a := range affectedEdges {
			start := g.Node(p.Add(a.offset))
			if start == nil || start.table == nil {
				continue
			}
			for _, slot := range a.slots {
				start.table[slot].Store(nil)
			}
		}
	}

	if removeStarting {
		if n.value != game.Empty && n.value != value {
			n.value = game.Multiple
		} else {
			n.value = value
		}
		n.table = nil
	}
}

// Update applies the moves of the last round.
//
// The cells self swept behind its position are retired, while its current
// cell only loses incoming edges so that the search can still leave it. For
// every enemy the swept cells that the board attributes to it are retired.
// Any other claimed board cell not yet known to the graph is retired as well,
// which catches jump gaps and start positions.
func (g *Graph) Update(board *game.Board, self game.Player, enemies []game.Player) {
	selfValue := int8(self.ID)
	back := self.Direction.Vector().Neg()

	for i := 1; i <= self.Speed; i++ {
		p := self.Position.Add(back.Scale(i))
		if g.Node(p) != nil && !board.IsEmpty(p) {
			g.Occupy(p, selfValue, true)
		}
	}
	g.Occupy(self.Position, selfValue, false)

	for _, e := range enemies {
		v := int8(e.ID)
		back := e.Direction.Vector().Neg()
		for i := 0; i <= e.Speed; i++ {
			p := e.Position.Add(back.Scale(i))
			if cell := board.Get(p); cell == v || cell == game.Multiple {
				g.Occupy(p, v, true)
			}
		}
	}

	for i, cell := range board.Cells {
		if cell == game.Empty {
			continue
		}
		n := &g.nodes[i]
		if n.table == nil || n.Position == self.Position {
			continue
		}
		g.Occupy(n.Position, cell, true)
	}
}
