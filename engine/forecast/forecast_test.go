package forecast

import (
	"context"
	"testing"

	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y int) game.Point { return game.Point{X: x, Y: y} }

// blockedAhead is an opponent at (5,5) facing up at speed 1 whose speed-up
// path is blocked two cells ahead.
func blockedAhead(t *testing.T) (*game.Board, rules.Player) {
	t.Helper()
	board := game.NewBoard(10, 10)
	board.Set(pt(5, 5), 2)
	board.Set(pt(5, 3), 4)
	opp := rules.FromSnapshot(game.Player{ID: 2, Position: pt(5, 5), Direction: game.Up, Speed: 1, Active: true}, 0)
	return board, opp
}

func TestPredictSplitsEvenly(t *testing.T) {
	board, opp := blockedAhead(t)
	f := New(Config{Depth: 1, Threads: 1})

	m := f.Predict(context.Background(), board, []rules.Player{opp})

	for _, p := range []game.Point{pt(4, 5), pt(6, 5), pt(5, 4)} {
		assert.InDelta(t, 1.0/3, m.Probability(p), 1e-12, "%v", p)
		assert.Equal(t, 1, m.MinSteps(p), "%v", p)
	}

	// Claimed cells are certain and immediate.
	assert.Equal(t, 1.0, m.Probability(pt(5, 3)))
	assert.Equal(t, 0, m.MinSteps(pt(5, 3)))
	assert.Equal(t, 1.0, m.Probability(pt(5, 5)))

	// Past the horizon only arrival rounds propagate.
	assert.InDelta(t, baseProbability(1), m.Probability(pt(4, 4)), 1e-12)
	assert.Equal(t, 2, m.MinSteps(pt(4, 4)))
	assert.Equal(t, 2, m.MinSteps(pt(3, 5)))
}

func TestPredictFloodFillStopsAtWalls(t *testing.T) {
	board := game.NewBoard(15, 3)
	for y := 0; y < 3; y++ {
		board.Set(pt(3, y), 5)
	}
	board.Set(pt(1, 1), 2)
	opp := rules.FromSnapshot(game.Player{ID: 2, Position: pt(1, 1), Direction: game.Right, Speed: 1, Active: true}, 0)

	m := New(Config{Depth: 1, Threads: 1}).Predict(context.Background(), board, []rules.Player{opp})

	// Unreached cells read as one past the horizon. Had the fill crossed the
	// wall, the far cells would arrive several rounds later.
	for x := 4; x < 15; x++ {
		for y := 0; y < 3; y++ {
			assert.Equal(t, 2, m.MinSteps(pt(x, y)), "(%d,%d) is behind the wall", x, y)
		}
	}
	assert.Equal(t, 1, m.MinSteps(pt(2, 1)))
	assert.Equal(t, 2, m.MinSteps(pt(0, 0)))
}

func TestPredictWithoutOpponents(t *testing.T) {
	board := game.NewBoard(5, 5)
	board.Set(pt(0, 0), 1)
	f := New(Config{Depth: 3, Threads: 4})

	m := f.Predict(context.Background(), board, nil)

	assert.Equal(t, 1.0, m.Probability(pt(0, 0)))
	assert.Equal(t, 0, m.MinSteps(pt(0, 0)))
	assert.Equal(t, 4, m.MinSteps(pt(2, 2)))

	// Free cells keep the same floor an opponent forecast starts from.
	assert.InDelta(t, baseProbability(3), m.Probability(pt(2, 2)), 1e-15)
	far, opp := blockedAhead(t)
	shallow := New(Config{Depth: 1, Threads: 1})
	alone := shallow.Predict(context.Background(), far, nil)
	withOpp := shallow.Predict(context.Background(), far, []rules.Player{opp})
	assert.Equal(t, withOpp.Probability(pt(0, 9)), alone.Probability(pt(0, 9)))
}

func TestPredictCancelled(t *testing.T) {
	board, opp := blockedAhead(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(Config{Depth: 2, Threads: 1}).Predict(ctx, board, []rules.Player{opp})
	assert.InDelta(t, baseProbability(2), m.Probability(pt(5, 4)), 1e-15)
	assert.Equal(t, 3, m.MinSteps(pt(5, 4)))
}

func TestPredictRecoversFromPanic(t *testing.T) {
	board, opp := blockedAhead(t)
	broken := rules.FromSnapshot(game.Player{ID: 3, Position: pt(0, 9), Direction: game.Up, Speed: 1, Active: true}, 0)
	board.Set(pt(0, 9), 3)

	orig := predictOpponent
	t.Cleanup(func() { predictOpponent = orig })
	predictOpponent = func(b *game.Board, p rules.Player, depth int) *Matrix {
		if p.ID == 3 {
			panic("boom")
		}
		return orig(b, p, depth)
	}

	f := New(Config{Depth: 1, Threads: 2})
	got := f.Predict(context.Background(), board, []rules.Player{opp, broken})

	predictOpponent = orig
	want := f.Predict(context.Background(), board, []rules.Player{opp})
	assert.Equal(t, want.Cells, got.Cells)
}

func TestMergeOrderIndependent(t *testing.T) {
	board := game.NewBoard(12, 12)
	a := rules.FromSnapshot(game.Player{ID: 1, Position: pt(3, 3), Direction: game.Right, Speed: 1, Active: true}, 0)
	b := rules.FromSnapshot(game.Player{ID: 2, Position: pt(5, 4), Direction: game.Up, Speed: 2, Active: true}, 0)
	board.Set(a.Position, 1)
	board.Set(b.Position, 2)

	ma := predict(board, a, 2)
	mb := predict(board, b, 2)

	ab := ma.Clone()
	ab.Merge(mb)
	ba := mb.Clone()
	ba.Merge(ma)
	require.Equal(t, ab.Cells, ba.Cells)

	again := ab.Clone()
	again.Merge(mb)
	assert.Equal(t, ab.Cells, again.Cells)

	for i, c := range ab.Cells {
		assert.Equal(t, max(ma.Cells[i].Probability, mb.Cells[i].Probability), c.Probability)
		assert.Equal(t, min(ma.Cells[i].MinSteps, mb.Cells[i].MinSteps), c.MinSteps)
	}
}

func TestMatrixOffBoard(t *testing.T) {
	m := NewMatrix(3, 3, 0.5)
	assert.Equal(t, 1.0, m.Probability(pt(-1, 0)))
	assert.Equal(t, 0, m.MinSteps(pt(3, 0)))
	assert.Equal(t, 0.5, m.Probability(pt(1, 1)))
	assert.Len(t, m.Probabilities(), 9)
}

func BenchmarkPredict(b *testing.B) {
	board := game.NewBoard(40, 40)
	opp := rules.FromSnapshot(game.Player{ID: 2, Position: pt(20, 20), Direction: game.Up, Speed: 1, Active: true}, 0)
	board.Set(opp.Position, 2)
	for i := 0; i < b.N; i++ {
		predict(board, opp, 5)
	}
}
