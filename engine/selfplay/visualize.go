// visualize.go - Console visualization for debugging self-play games.
package selfplay

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
)

// RenderBoard draws the board with player heads in upper case letters
// (A for player 1) and trails as player ids.
func RenderBoard(state *game.GameState) string {
	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = make([]byte, state.Width)
		for x := range grid[y] {
			switch v := state.Board.Get(game.Point{X: x, Y: y}); {
			case v == game.Empty:
				grid[y][x] = '.'
			case v == game.Multiple:
				grid[y][x] = 'X'
			default:
				grid[y][x] = byte('0' + v)
			}
		}
	}

	ids := make([]int, 0, len(state.Players))
	for id := range state.Players {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		p := state.Players[id]
		if !p.Active || !state.Board.InBounds(p.Position) {
			continue
		}
		grid[p.Position.Y][p.Position.X] = byte('A' + id - 1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== Round %d (%dx%d) ===\n", state.Round, state.Width, state.Height)
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	for _, id := range ids {
		p := state.Players[id]
		status := "alive"
		if !p.Active {
			status = "dead"
		}
		fmt.Fprintf(&sb, "%c: %s speed=%d %s\n", 'A'+id-1, p.Direction, p.Speed, status)
	}
	return sb.String()
}

func PrintBoard(state *game.GameState) {
	log.Print(RenderBoard(state))
}

const shades = " .:-=+*#%@"

// RenderMatrix draws a decision layer with one shade per cell, from blank at
// m.Min to '@' at m.Max.
func RenderMatrix(m decision.NamedMatrix) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%g..%g]\n", m.Name, m.Min, m.Max)
	span := m.Max - m.Min
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := 0
			if span > 0 {
				i = int((m.Values[y*m.Width+x] - m.Min) / span * float64(len(shades)-1))
				i = min(max(i, 0), len(shades)-1)
			}
			sb.WriteByte(shades[i])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderDecision lists the ratings of one decision followed by its layers.
func RenderDecision(player int, d decision.Decision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n--- %c: %s by %s ---\n", 'A'+player-1, d.Maneuver, d.Solver)
	fmt.Fprintf(&sb, "scores  %s\nsuccess %s\ncutoff  %s\n", d.Scores, d.Success, d.Cutoff)
	for _, m := range d.Matrices {
		sb.WriteString(RenderMatrix(m))
	}
	return sb.String()
}
