package search

import (
	"math"

	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/engine/graph"
	"github.com/brensch/speed/game"
)

// trail is the persistent list of edges a frontier node travelled. Siblings
// share their parent's trail.
type trail struct {
	edge *graph.Edge
	prev *trail
}

func (t *trail) intersects(e *graph.Edge) bool {
	for l := t; l != nil; l = l.prev {
		if l.edge.Intersects(e) {
			return true
		}
	}
	return false
}

// Node is a frontier entry: one reachable own state and how it was rated.
type Node struct {
	Position  game.Point
	Direction game.Direction
	Speed     int
	// Round is the round whose move produced this state.
	Round int
	// Depth is the number of moves since the root.
	Depth int
	// Initial is the first maneuver on the way here.
	Initial game.Maneuver
	Success float64
	Cutoff  float64

	edges *trail
	// increments counts, per initial maneuver, how often the moves after
	// the first crossed that maneuver's initial edge.
	increments [game.NumManeuvers]int64
}

// Root is the search origin for the own player. completedRounds is the
// number of rounds already played.
func Root(p game.Player, completedRounds int) *Node {
	return &Node{
		Position:  p.Position,
		Direction: p.Direction,
		Speed:     p.Speed,
		Round:     completedRounds,
		Success:   1,
	}
}

// Edge is the last move made, nil for the root.
func (n *Node) Edge() *graph.Edge {
	if n.edges == nil {
		return nil
	}
	return n.edges.edge
}

// expander turns a node into its rated children. Its fields are shared by
// all workers and only read.
type expander struct {
	graph    *graph.Graph
	forecast *forecast.Matrix
	boost    float64
	// initial holds the root's outgoing edge per maneuver, nil when that
	// maneuver is impossible.
	initial [game.NumManeuvers]*graph.Edge
}

// expand appends the surviving children of parent to out. Children of the
// root record their own maneuver as the initial one.
func (x *expander) expand(parent *Node, out []*Node) []*Node {
	start := x.graph.Node(parent.Position)
	if start == nil {
		return out
	}
	root := parent.edges == nil
	jump := (parent.Round+1)%game.JumpInterval == 0

	for _, m := range game.Maneuvers {
		dir, speed := m.Apply(parent.Direction, parent.Speed)
		if speed < game.MinSpeed || speed > game.MaxSpeed {
			continue
		}
		e := start.Edge(dir, jump, speed)
		if e == nil || parent.edges.intersects(e) {
			continue
		}

		child := &Node{
			Position:  e.End().Position,
			Direction: dir,
			Speed:     speed,
			Round:     parent.Round + 1,
			Depth:     parent.Depth + 1,
			Initial:   parent.Initial,
			edges:     &trail{edge: e, prev: parent.edges},
		}
		if root {
			child.Initial = m
		} else {
			child.increments = parent.increments
			for i, ie := range x.initial {
				if ie != nil && ie.Intersects(e) {
					child.increments[i]++
				}
			}
		}

		x.rate(child, parent.Success, e)
		if child.Success == 0 {
			continue
		}
		out = append(out, child)
	}
	return out
}

// rate scores child's last move against the opponent forecast.
func (x *expander) rate(child *Node, parentSuccess float64, e *graph.Edge) {
	var ex exposure
	for _, n := range e.Path {
		ex.add(x.forecast.At(n.Position), child.Depth)
	}
	child.Success, child.Cutoff = ex.rate(parentSuccess, x.boost)
}

// exposure collects the forecast over the cells of one move made depth
// moves after the root. Cells an opponent can reach by then lower the
// survival chance; cells it can only reach later are ones the move takes
// away from it.
type exposure struct {
	reach float64
	cut   float64
}

func (ex *exposure) add(c forecast.Cell, depth int) {
	if depth >= c.MinSteps {
		ex.reach = max(ex.reach, c.Probability)
	} else {
		ex.cut = max(ex.cut, c.Probability)
	}
}

func (ex *exposure) rate(parentSuccess, boost float64) (success, cutoff float64) {
	success = parentSuccess * (1 - math.Pow(ex.reach, boost))
	return success, ex.cut * success
}
