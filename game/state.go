// Package game defines the core game state types for spe_ed.
//
// These types represent the minimal state needed for rules evaluation and
// search. The board is replaced wholesale every tick, so everything here is
// cheap to clone.
package game

import (
	"sort"
	"time"
)

// MaxPlayers is the largest player id the server hands out.
const MaxPlayers = 6

// Player is a per-tick snapshot of one participant as reported by the server.
type Player struct {
	ID        int
	Name      string
	Position  Point
	Direction Direction
	Speed     int
	Active    bool
}

// GameState is the complete state delivered for one tick.
// You selects the ego player.
type GameState struct {
	Width    int
	Height   int
	Board    *Board
	Players  map[int]Player
	You      int
	Running  bool
	Deadline time.Time
	Round    int
}

// Me returns the ego player.
func (s *GameState) Me() (Player, bool) {
	p, ok := s.Players[s.You]
	return p, ok
}

// Opponents returns all other active players ordered by id.
func (s *GameState) Opponents() []Player {
	out := make([]Player, 0, len(s.Players))
	for id, p := range s.Players {
		if id == s.You || !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActivePlayers counts players still in the game, ego included.
func (s *GameState) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:    s.Width,
		Height:   s.Height,
		You:      s.You,
		Running:  s.Running,
		Deadline: s.Deadline,
		Round:    s.Round,
	}
	if s.Board != nil {
		out.Board = s.Board.Clone()
	}
	if len(s.Players) > 0 {
		out.Players = make(map[int]Player, len(s.Players))
		for id, p := range s.Players {
			out.Players[id] = p
		}
	}
	return out
}
