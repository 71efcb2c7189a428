package search

import "github.com/brensch/speed/game"

// Grid is a dense row-major float layer over the board.
type Grid struct {
	Width  int
	Height int
	Values []float64
}

func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Values: make([]float64, width*height)}
}

func (g *Grid) At(p game.Point) float64 {
	if p.X < 0 || p.Y < 0 || p.X >= g.Width || p.Y >= g.Height {
		return 0
	}
	return g.Values[p.Y*g.Width+p.X]
}

// Raise stores v at p if it exceeds the current value.
func (g *Grid) Raise(p game.Point, v float64) {
	if p.X < 0 || p.Y < 0 || p.X >= g.Width || p.Y >= g.Height {
		return
	}
	i := p.Y*g.Width + p.X
	if v > g.Values[i] {
		g.Values[i] = v
	}
}

// Merge raises every cell of g to the matching cell of o.
func (g *Grid) Merge(o *Grid) {
	for i, v := range o.Values {
		if v > g.Values[i] {
			g.Values[i] = v
		}
	}
}

func (g *Grid) Sum() float64 {
	var s float64
	for _, v := range g.Values {
		s += v
	}
	return s
}

func (g *Grid) Max() float64 {
	var m float64
	for _, v := range g.Values {
		m = max(m, v)
	}
	return m
}

// Count returns the number of cells equal to v.
func (g *Grid) Count(v float64) int {
	n := 0
	for _, x := range g.Values {
		if x == v {
			n++
		}
	}
	return n
}
