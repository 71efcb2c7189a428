package graph

import (
	"github.com/brensch/speed/game"
)

// Edge is the multi-cell move a mover makes when leaving Start in Direction
// at Speed. Path lists the cells it claims; jumped-over cells are absent.
// Edges are immutable once built.
type Edge struct {
	Start     *Node
	Path      []*Node
	Segment   game.Segment
	Direction game.Direction
	Jump      bool
	Speed     int

	// Inverse covers the same cells in the opposite direction. It is nil
	// when the cell behind the end is off the board.
	Inverse *Edge
}

// Steps is the number of claimed cells.
func (e *Edge) Steps() int { return len(e.Path) }

func (e *Edge) End() *Node { return e.Path[len(e.Path)-1] }

// Intersects reports whether the two edges claim a common cell. Full paths
// are compared geometrically; paths with at most two cells are compared
// cell by cell, which is what makes jumps over a path legal.
func (e *Edge) Intersects(o *Edge) bool {
	if e.Steps() > 2 && o.Steps() > 2 {
		return e.Segment.Intersects(o.Segment)
	}

	short, long := e, o
	if short.Steps() > long.Steps() {
		short, long = long, short
	}

	if long.Steps() > 2 {
		for _, n := range short.Path {
			if long.Segment.Contains(n.Position) {
				return true
			}
		}
		return false
	}

	for _, a := range short.Path {
		for _, b := range long.Path {
			if a == b {
				return true
			}
		}
	}
	return false
}

// buildEdge walks the path of a new edge from start. It returns nil when any
// cell is off the board. When the cell behind the end exists, the inverse
// edge is built too and cached there if that slot is still unresolved.
// Callers hold g.mu.
func (g *Graph) buildEdge(start *Node, dir game.Direction, jump bool, speed int) *Edge {
	offsets := pathOffsets(jump, speed)
	path := make([]*Node, len(offsets))
	inverted := make([]*Node, len(offsets))
	v := dir.Vector()
	for i, k := range offsets {
		n := g.Node(start.Position.Add(v.Scale(k)))
		if n == nil {
			return nil
		}
		path[i] = n
		inverted[len(offsets)-1-i] = n
	}

	e := &Edge{
		Start:     start,
		Path:      path,
		Segment:   game.Segment{A: path[0].Position, B: path[len(path)-1].Position},
		Direction: dir,
		Jump:      jump,
		Speed:     speed,
	}

	invStart := g.Node(e.End().Position.Add(v))
	if invStart == nil {
		return e
	}
	inv := &Edge{
		Start:     invStart,
		Path:      inverted,
		Segment:   game.Segment{A: inverted[0].Position, B: inverted[len(inverted)-1].Position},
		Direction: dir.Inverse(),
		Jump:      jump,
		Speed:     speed,
		Inverse:   e,
	}
	e.Inverse = inv
	if invStart.table != nil {
		slot := &invStart.table[Index(inv.Direction, jump, speed)]
		if slot.Load() == unresolved {
			slot.Store(inv)
		}
	}
	return e
}
