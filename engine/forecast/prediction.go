package forecast

import (
	"math"

	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
)

// floodPoint is a frontier entry of the flood fill past the exact horizon.
// counter counts cells walked in the current round; once it reaches speed
// the next cell belongs to the following round.
type floodPoint struct {
	round   int
	pos     game.Point
	speed   int
	counter int
}

func (f floodPoint) next(pos game.Point) floodPoint {
	if f.counter >= f.speed {
		return floodPoint{round: f.round + 1, pos: pos, speed: min(f.speed+1, game.MaxSpeed), counter: 1}
	}
	return floodPoint{round: f.round, pos: pos, speed: f.speed, counter: f.counter + 1}
}

// prediction is the forecast for a single opponent.
type prediction struct {
	board  *game.Board
	depth  int
	result *Matrix
	seeds  []floodPoint
}

// baseProbability is the floor every cell starts with: the chance of one
// specific maneuver sequence one step past the horizon.
func baseProbability(depth int) float64 {
	return 1 / math.Pow(game.NumManeuvers, float64(depth+1))
}

func predict(board *game.Board, player rules.Player, depth int) *Matrix {
	p := &prediction{
		board:  board,
		depth:  depth,
		result: NewMatrix(board.Width, board.Height, baseProbability(depth)),
	}
	p.step(player, 1, 1, 0)
	p.floodFill()
	return p.result
}

// step splits prob evenly over the surviving children of player.
func (p *prediction) step(player rules.Player, prob float64, depth int, tag uint32) {
	children := rules.Children(player, p.board)

	alive := 0
	for _, c := range children {
		if c.Active {
			alive++
		}
	}
	if alive == 0 {
		return
	}
	childProb := prob / float64(alive)

	for _, m := range game.Maneuvers {
		c := children[m]
		if !c.Active {
			continue
		}
		childTag := tag*game.NumManeuvers + uint32(m) + 1
		for _, cell := range c.ShortTail {
			p.result.record(cell, childProb, depth, childTag)
		}

		if depth < p.depth {
			p.step(c, childProb, depth+1, childTag)
		} else {
			p.seeds = append(p.seeds, floodPoint{round: depth, pos: c.Position, speed: c.Speed, counter: 1})
		}
	}
}

// floodFill extends the arrival layer from the horizon seeds. Cells update
// only when reached in an earlier round than already stored.
func (p *prediction) floodFill() {
	queue := p.seeds
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, n := range cur.pos.Neighbours() {
			if !p.board.IsEmpty(n) {
				continue
			}
			next := cur.next(n)
			i := n.Y*p.result.Width + n.X
			if next.round < p.result.Cells[i].MinSteps {
				p.result.Cells[i].MinSteps = next.round
				queue = append(queue, next)
			}
		}
	}
	p.seeds = nil
}
