package forecast

import (
	"math"

	"github.com/brensch/speed/game"
)

// Unreached marks cells no opponent branch arrived at.
const Unreached = math.MaxInt32

// Cell is the per-cell opponent estimate.
//
// Tag identifies the branch that produced Probability. It only breaks ties
// between equal probabilities so that merging stays order independent.
type Cell struct {
	Probability float64
	MinSteps    int
	Tag         uint32
}

// better reports whether (p, tag) should replace the stored probability.
func (c Cell) better(p float64, tag uint32) bool {
	return p > c.Probability || (p == c.Probability && tag < c.Tag)
}

// Matrix holds one Cell per board position, row-major.
type Matrix struct {
	Width  int
	Height int
	Cells  []Cell
}

// NewMatrix returns a matrix where every cell has probability floor and no
// arrival yet.
func NewMatrix(width, height int, floor float64) *Matrix {
	m := &Matrix{Width: width, Height: height, Cells: make([]Cell, width*height)}
	for i := range m.Cells {
		m.Cells[i] = Cell{Probability: floor, MinSteps: Unreached, Tag: math.MaxUint32}
	}
	return m
}

func (m *Matrix) inBounds(p game.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

// At returns the cell at p. Off-board points read as certain and immediate.
func (m *Matrix) At(p game.Point) Cell {
	if !m.inBounds(p) {
		return Cell{Probability: 1, MinSteps: 0}
	}
	return m.Cells[p.Y*m.Width+p.X]
}

func (m *Matrix) Probability(p game.Point) float64 { return m.At(p).Probability }
func (m *Matrix) MinSteps(p game.Point) int        { return m.At(p).MinSteps }

// record folds one branch estimate into the cell at p.
func (m *Matrix) record(p game.Point, prob float64, steps int, tag uint32) {
	if !m.inBounds(p) {
		return
	}
	c := &m.Cells[p.Y*m.Width+p.X]
	if c.better(prob, tag) {
		c.Probability = prob
		c.Tag = tag
	}
	if steps < c.MinSteps {
		c.MinSteps = steps
	}
}

// Merge folds o into m cell by cell: maximum probability, minimum arrival.
// Merge is idempotent, commutative and associative.
func (m *Matrix) Merge(o *Matrix) {
	for i := range m.Cells {
		oc := o.Cells[i]
		c := &m.Cells[i]
		if c.better(oc.Probability, oc.Tag) {
			c.Probability = oc.Probability
			c.Tag = oc.Tag
		}
		if oc.MinSteps < c.MinSteps {
			c.MinSteps = oc.MinSteps
		}
	}
}

func (m *Matrix) Clone() *Matrix {
	out := &Matrix{Width: m.Width, Height: m.Height, Cells: make([]Cell, len(m.Cells))}
	copy(out.Cells, m.Cells)
	return out
}

// Probabilities returns the probability layer row-major.
func (m *Matrix) Probabilities() []float64 {
	out := make([]float64, len(m.Cells))
	for i, c := range m.Cells {
		out[i] = c.Probability
	}
	return out
}

// MinStepValues returns the arrival layer row-major.
func (m *Matrix) MinStepValues() []float64 {
	out := make([]float64, len(m.Cells))
	for i, c := range m.Cells {
		out[i] = float64(c.MinSteps)
	}
	return out
}
