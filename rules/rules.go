package rules

import (
	"github.com/brensch/speed/game"
)

// LegalManeuvers returns the maneuvers that keep the given player alive for
// one more round, in enumeration order.
func LegalManeuvers(state *game.GameState, id int) []game.Maneuver {
	p, ok := state.Players[id]
	if !ok || !p.Active {
		return nil
	}
	root := FromSnapshot(p, state.Round-1)
	children := Children(root, state.Board)
	moves := make([]game.Maneuver, 0, game.NumManeuvers)
	for _, m := range game.Maneuvers {
		if children[m].Active {
			moves = append(moves, m)
		}
	}
	return moves
}

// NextStateSimultaneous resolves one round in which every active player
// moves at once. Players without an entry in moves are treated as having
// missed the deadline and are removed.
//
// A cell swept by two players in the same round becomes Multiple and kills
// both. Leaving the board, leaving the speed range or entering a claimed cell
// kills the mover.
func NextStateSimultaneous(state *game.GameState, moves map[int]game.Maneuver) *game.GameState {
	next := state.Clone()
	round := state.Round

	ids := make([]int, 0, len(next.Players))
	for id, p := range next.Players {
		if p.Active {
			ids = append(ids, id)
		}
	}

	claims := make(map[game.Point]int, 16)
	dead := make(map[int]bool)

	for _, id := range ids {
		p := next.Players[id]
		m, ok := moves[id]
		if !ok {
			dead[id] = true
			continue
		}

		dir, speed := m.Apply(p.Direction, p.Speed)
		p.Direction = dir
		p.Speed = speed
		if speed < game.MinSpeed || speed > game.MaxSpeed {
			dead[id] = true
			next.Players[id] = p
			continue
		}

		cells := SweptCells(p.Position, dir, speed, IsJump(round, speed))
		p.Position = p.Position.Add(dir.Vector().Scale(speed))
		next.Players[id] = p

		for _, c := range cells {
			if !state.Board.InBounds(c) {
				dead[id] = true
				continue
			}
			if !state.Board.IsEmpty(c) {
				dead[id] = true
			}
			if other, taken := claims[c]; taken && other != id {
				dead[id] = true
				dead[other] = true
				next.Board.Set(c, game.Multiple)
				continue
			}
			claims[c] = id
			next.Board.Claim(c, int8(id))
		}
	}

	for id := range dead {
		p := next.Players[id]
		p.Active = false
		next.Players[id] = p
	}

	next.Round = round + 1
	next.Running = next.ActivePlayers() > 1
	return next
}

// IsGameOver reports whether at most one player is left.
func IsGameOver(state *game.GameState) bool {
	return !state.Running || state.ActivePlayers() <= 1
}

// Winner returns the id of the only remaining player, or 0 for a draw or an
// unfinished game.
func Winner(state *game.GameState) int {
	winner := 0
	for id, p := range state.Players {
		if !p.Active {
			continue
		}
		if winner != 0 {
			return 0
		}
		winner = id
	}
	return winner
}
