package rules

import (
	"github.com/brensch/speed/game"
)

// Tail is one link of a player's long tail: the cells swept in one round,
// plus a pointer to everything swept before. Links are immutable and shared
// by every descendant, so siblings never copy history.
type Tail struct {
	cells  []game.Point
	parent *Tail
}

// Extend returns a long tail that also covers cells. The receiver is not
// modified.
func (t *Tail) Extend(cells []game.Point) *Tail {
	if len(cells) == 0 {
		return t
	}
	return &Tail{cells: cells, parent: t}
}

// Contains reports whether p was swept by any link of the chain.
func (t *Tail) Contains(p game.Point) bool {
	for n := t; n != nil; n = n.parent {
		for _, c := range n.cells {
			if c == p {
				return true
			}
		}
	}
	return false
}

// Len counts the cells in the chain.
func (t *Tail) Len() int {
	n := 0
	for l := t; l != nil; l = l.parent {
		n += len(l.cells)
	}
	return n
}

// Player is the predicted state of one mover. Values are never mutated once
// built; a child is derived from its parent and a maneuver.
//
// Round is the number of the round whose move produced this state.
type Player struct {
	ID        int
	Direction game.Direction
	Speed     int
	Position  game.Point
	Round     int
	Active    bool

	// ShortTail holds the cells swept by the move into this state.
	ShortTail []game.Point

	// history is the union of all ancestors' short tails.
	history *Tail
}

// FromSnapshot builds the root of a prediction from a server snapshot.
// completedRounds is the number of rounds already played.
func FromSnapshot(p game.Player, completedRounds int) Player {
	return Player{
		ID:        p.ID,
		Direction: p.Direction,
		Speed:     p.Speed,
		Position:  p.Position,
		Round:     completedRounds,
		Active:    p.Active,
	}
}

// LongTail returns the cells this player must never enter again, including
// its own short tail.
func (p Player) LongTail() *Tail {
	return p.history.Extend(p.ShortTail)
}

// IsJump reports whether a move made in round at the given speed skips the
// cells between its endpoints.
func IsJump(round, speed int) bool {
	return round%game.JumpInterval == 0 && speed > 2
}

// SweptCells returns the cells a mover claims when travelling speed cells
// from start in dir. Start itself is excluded. Jumping moves only claim the
// first and last cell.
func SweptCells(start game.Point, dir game.Direction, speed int, jump bool) []game.Point {
	if speed < 1 {
		return nil
	}
	v := dir.Vector()
	if jump && speed > 2 {
		return []game.Point{start.Add(v), start.Add(v.Scale(speed))}
	}
	cells := make([]game.Point, speed)
	for i := range cells {
		cells[i] = start.Add(v.Scale(i + 1))
	}
	return cells
}

// Child applies m to parent. The result is inactive when the parent already
// was, when the speed leaves [MinSpeed, MaxSpeed], when the mover leaves the
// board or when any swept cell was claimed before.
func Child(parent Player, m game.Maneuver, board *game.Board) Player {
	return child(parent, m, board, parent.LongTail())
}

func child(parent Player, m game.Maneuver, board *game.Board, history *Tail) Player {
	dir, speed := m.Apply(parent.Direction, parent.Speed)
	round := parent.Round + 1

	c := Player{
		ID:        parent.ID,
		Direction: dir,
		Speed:     speed,
		Position:  parent.Position.Add(dir.Vector().Scale(speed)),
		Round:     round,
		history:   history,
	}

	if speed < game.MinSpeed || speed > game.MaxSpeed {
		return c
	}
	c.ShortTail = SweptCells(parent.Position, dir, speed, IsJump(round, speed))

	if !parent.Active || !board.InBounds(c.Position) {
		return c
	}
	for _, p := range c.ShortTail {
		if !board.IsEmpty(p) || history.Contains(p) {
			return c
		}
	}
	c.Active = true
	return c
}

// Children returns the result of every maneuver in enumeration order. All
// children share one long tail link.
func Children(parent Player, board *game.Board) [game.NumManeuvers]Player {
	history := parent.LongTail()
	var out [game.NumManeuvers]Player
	for _, m := range game.Maneuvers {
		out[m] = child(parent, m, board, history)
	}
	return out
}

// ValidChildren returns only the active children, in enumeration order.
func ValidChildren(parent Player, board *game.Board) []Player {
	all := Children(parent, board)
	out := make([]Player, 0, len(all))
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}
