package game

import (
	"fmt"
	"strings"
)

// Cell values. Positive values are player ids.
const (
	Empty       int8 = 0
	Multiple    int8 = -1
	OutOfBounds int8 = -2
)

const (
	MinSpeed = 1
	MaxSpeed = 10

	// JumpInterval is the round period on which fast players skip cells.
	JumpInterval = 6
)

// Board is a dense row-major ownership grid.
type Board struct {
	Width  int
	Height int
	Cells  []int8
}

func NewBoard(width, height int) *Board {
	return &Board{
		Width:  width,
		Height: height,
		Cells:  make([]int8, width*height),
	}
}

// BoardFromRows builds a board from the wire layout cells[y][x].
func BoardFromRows(rows [][]int) (*Board, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("board has no rows")
	}
	b := NewBoard(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != b.Width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", y, len(row), b.Width)
		}
		for x, v := range row {
			if v < int(Multiple) || v > MaxPlayers {
				return nil, fmt.Errorf("cell (%d,%d) has invalid value %d", x, y, v)
			}
			b.Cells[y*b.Width+x] = int8(v)
		}
	}
	return b, nil
}

func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.Width && p.Y < b.Height
}

func (b *Board) Index(p Point) int { return p.Y*b.Width + p.X }

// Get returns the cell value, or OutOfBounds for points off the board.
func (b *Board) Get(p Point) int8 {
	if !b.InBounds(p) {
		return OutOfBounds
	}
	return b.Cells[p.Y*b.Width+p.X]
}

// IsEmpty reports whether p is on the board and unclaimed.
func (b *Board) IsEmpty(p Point) bool { return b.Get(p) == Empty }

func (b *Board) Set(p Point, v int8) {
	if b.InBounds(p) {
		b.Cells[p.Y*b.Width+p.X] = v
	}
}

// Claim marks p for player id, turning it into Multiple if another player
// already holds it.
func (b *Board) Claim(p Point, id int8) {
	if !b.InBounds(p) {
		return
	}
	i := p.Y*b.Width + p.X
	if b.Cells[i] == Empty {
		b.Cells[i] = id
	} else {
		b.Cells[i] = Multiple
	}
}

func (b *Board) Clone() *Board {
	out := &Board{Width: b.Width, Height: b.Height, Cells: make([]int8, len(b.Cells))}
	copy(out.Cells, b.Cells)
	return out
}

// Rows returns the board in the wire layout cells[y][x].
func (b *Board) Rows() [][]int {
	rows := make([][]int, b.Height)
	for y := range rows {
		rows[y] = make([]int, b.Width)
		for x := range rows[y] {
			rows[y][x] = int(b.Cells[y*b.Width+x])
		}
	}
	return rows
}

// String renders the board top to bottom. Empty cells are '.', players
// their id and shared cells 'X'.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			switch v := b.Cells[y*b.Width+x]; {
			case v == Empty:
				sb.WriteByte('.')
			case v == Multiple:
				sb.WriteByte('X')
			default:
				sb.WriteByte(byte('0' + v))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
