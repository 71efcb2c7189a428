package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brensch/speed/engine/search"
	"github.com/brensch/speed/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y int) game.Point { return game.Point{X: x, Y: y} }

func newState(width, height int, you int, players ...game.Player) *game.GameState {
	s := &game.GameState{
		Width:   width,
		Height:  height,
		Board:   game.NewBoard(width, height),
		Players: make(map[int]game.Player, len(players)),
		You:     you,
		Running: true,
		Round:   1,
	}
	for _, p := range players {
		s.Players[p.ID] = p
		s.Board.Set(p.Position, int8(p.ID))
	}
	return s
}

// seedsOnly stops the search right after the one-step moves were rated.
func seedsOnly() Config {
	c := DefaultConfig()
	c.Forecast.Threads = 1
	c.Search.Threads = 1
	c.Search.Seed = 1
	c.Search.SafetyMargin = time.Hour
	return c
}

func centred() game.Player {
	return game.Player{ID: 1, Position: pt(5, 5), Direction: game.Up, Speed: 2, Active: true}
}

func TestRatingBest(t *testing.T) {
	assert.Equal(t, game.TurnRight, Rating{0.2, 0.9, 0.9, 0.1, 0.5}.Best(), "ties go to the lower ordinal")
	assert.Equal(t, game.ChangeNothing, Rating{}.Best())
	assert.Equal(t, game.ChangeNothing, Rating{-1, -2, -0.5, -3, -1}.Best())
	assert.Equal(t, game.TurnLeft, Rating{1, 1, 1, 1, 1}.Best())
	assert.Equal(t, game.SpeedUp, Rating{0, 0, 0, 0.3, 0}.Best())
}

func TestRatingArithmetic(t *testing.T) {
	assert.Equal(t, Rating{0.5, 1, 0, 0.25, 0}, Rating{2, 4, 0, 1, 0}.Normalize())
	assert.Equal(t, Rating{}, Rating{}.Normalize())
	assert.Equal(t, Rating{1.5, 1, 0, 2, 0}, Rating{1, 1, 0, 1, 0}.Combine(Rating{1, 0, 0, 2, 0}, 0.5))
	assert.Equal(t, 4.0, Rating{2, 4, 0, 1, 0}.Max())
	assert.Len(t, Rating{}.Slice(), game.NumManeuvers)
}

func TestWeightsResolve(t *testing.T) {
	w := Weights{Cutoff: Dynamic, Importance: Dynamic}.Resolve(3)
	assert.InDelta(t, 0.3, w.Cutoff, 1e-12)
	assert.InDelta(t, 0.7, w.Importance, 1e-12)

	static := Weights{Cutoff: 0.35, Importance: 0.15}
	assert.Equal(t, static, static.Resolve(5))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Defensive ")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Depth)
	assert.Equal(t, Weights{Cutoff: 0.1, Importance: 0.35}, s.Weights)
	assert.Equal(t, Weights{Cutoff: 0.1, Importance: 0.35}, s.Classic)

	b, err := ParseStrategy("balanced")
	require.NoError(t, err)
	assert.Equal(t, Weights{Cutoff: 0.4, Importance: 0.05}, DefaultConfig().WithStrategy(b).ClassicWeights)

	_, err = ParseStrategy("reckless")
	assert.ErrorContains(t, err, "reckless")
	assert.Equal(t, []string{"aggressive", "balanced", "defensive", "dynamic"}, StrategyNames())
}

func TestNewSolver(t *testing.T) {
	for _, kind := range Kinds {
		s, err := NewSolver(kind, seedsOnly())
		require.NoError(t, err)
		assert.Equal(t, kind, s.Name())
	}
	_, err := NewSolver("oracle", seedsOnly())
	assert.Error(t, err)
}

func TestMissingPlayer(t *testing.T) {
	state := newState(10, 10, 3, centred())
	for _, kind := range Kinds {
		s, err := NewSolver(kind, seedsOnly())
		require.NoError(t, err)
		_, err = s.Decide(context.Background(), state)
		assert.True(t, errors.Is(err, ErrNoPlayer), kind)
	}
}

func TestSlowdownPrefersBraking(t *testing.T) {
	state := newState(10, 10, 1, centred())
	d, err := SlowdownSolver{}.Decide(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, game.SlowDown, d.Maneuver)
	assert.Equal(t, Rating{0.5, 0.5, 1, 0, 0.5}, d.Scores)
}

func TestRandomStaysLegal(t *testing.T) {
	// Cornered facing up: only turning right survives.
	me := game.Player{ID: 1, Position: pt(0, 0), Direction: game.Up, Speed: 1, Active: true}
	state := newState(5, 5, 1, me)
	cfg := seedsOnly()
	cfg.Seed = 42
	s, err := NewSolver(KindRandom, cfg)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		d, err := s.Decide(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, game.TurnRight, d.Maneuver)
	}
}

// With only the one-step moves rated, every maneuver scores the same on an
// empty board.
func TestAgentOneStepEqual(t *testing.T) {
	state := newState(10, 10, 1, centred())
	d, err := NewAgent(seedsOnly()).Decide(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, Rating{1, 1, 1, 1, 1}, d.Success)
	assert.Equal(t, Rating{}, d.Importance)
	assert.Equal(t, game.TurnLeft, d.Maneuver)
	assert.Equal(t, 5, d.Paths)
}

func TestAgentFullSearchPrefersBraking(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full tick")
	}
	for _, threads := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Forecast.Threads = threads
		cfg.Search.Threads = threads
		cfg.Search.Seed = 1

		ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
		d, err := NewAgent(cfg).Decide(ctx, newState(10, 10, 1, centred()))
		cancel()
		require.NoError(t, err)
		require.Greater(t, d.Expanded, 0)

		// Past the first move the sums differ: braking keeps the most cells
		// reachable, speeding up the fewest.
		assert.Equal(t, 1.0, d.Success[game.SlowDown], "threads=%d", threads)
		assert.Equal(t, game.SlowDown, d.Success.Best(), "threads=%d", threads)
		for _, m := range game.Maneuvers {
			assert.GreaterOrEqual(t, d.Success[m], 0.97, "threads=%d %s", threads, m)
		}
		assert.Less(t, d.Success[game.SpeedUp], d.Success[game.SlowDown], "threads=%d", threads)
	}
}

func TestSuccessRatingNormalised(t *testing.T) {
	res := &search.Result{Width: 2, Height: 1}
	sums := [game.NumManeuvers][2]float64{{1, 1}, {0.5, 0.5}, {1, 0}, {0, 0}, {0.25, 0.25}}
	for m, v := range sums {
		res.Success[m] = search.NewGrid(2, 1)
		copy(res.Success[m].Values, v[:])
	}
	assert.Equal(t, Rating{1, 0.5, 0.5, 0, 0.25}, SuccessRating(res))

	// A largest sum of exactly one goes through the same path.
	res.Success[game.TurnLeft].Values[1] = 0
	assert.Equal(t, Rating{1, 1, 1, 0, 0.5}, SuccessRating(res))
}

func TestAgentAvoidsOpponent(t *testing.T) {
	opp := game.Player{ID: 2, Position: pt(5, 1), Direction: game.Down, Speed: 1, Active: true}
	state := newState(10, 10, 1, centred(), opp)

	plain, err := NewAgent(seedsOnly()).Decide(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, plain.Matrices)

	cfg := seedsOnly()
	cfg.Matrices = true
	d, err := NewAgent(cfg).Decide(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, plain.Scores, d.Scores)
	assert.Less(t, d.Success[game.ChangeNothing], d.Success[game.TurnLeft])
	assert.Less(t, d.Success[game.SpeedUp], d.Success[game.TurnLeft])
	assert.NotContains(t, []game.Maneuver{game.ChangeNothing, game.SpeedUp}, d.Maneuver)

	names := make([]string, 0, len(d.Matrices))
	for _, m := range d.Matrices {
		names = append(names, m.Name)
		assert.Len(t, m.Values, 100, m.Name)
	}
	assert.Equal(t, []string{"success", "cut off", "inverted importance", "probability", "min steps"}, names)
}

func TestAgentInactive(t *testing.T) {
	me := centred()
	me.Active = false
	d, err := NewAgent(seedsOnly()).Decide(context.Background(), newState(10, 10, 1, me))
	require.NoError(t, err)
	assert.Equal(t, game.ChangeNothing, d.Maneuver)
}

func TestAgentTrapped(t *testing.T) {
	me := game.Player{ID: 1, Position: pt(0, 0), Direction: game.Left, Speed: 1, Active: true}
	state := newState(5, 5, 1, me)
	state.Board.Set(pt(1, 0), 2)
	state.Board.Set(pt(0, 1), 2)

	d, err := NewAgent(seedsOnly()).Decide(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, game.ChangeNothing, d.Maneuver)
	assert.Equal(t, 0, d.Paths)
}

func TestAgentAcrossTicks(t *testing.T) {
	cfg := seedsOnly()
	cfg.Search.SafetyMargin = 0
	agent := NewAgent(cfg)

	me := centred()
	opp := game.Player{ID: 2, Position: pt(1, 8), Direction: game.Right, Speed: 1, Active: true}
	state := newState(10, 10, 1, me, opp)

	for tick := 0; tick < 3; tick++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		d, err := agent.Decide(ctx, state)
		cancel()
		require.NoError(t, err)
		require.Greater(t, d.Paths, 0, "tick %d", tick)

		// Advance both players one cell, as the server would.
		me.Position = me.Position.Add(me.Direction.Vector())
		opp.Position = opp.Position.Add(opp.Direction.Vector())
		state.Board.Set(me.Position, 1)
		state.Board.Set(opp.Position, 2)
		state.Players[1] = me
		state.Players[2] = opp
		state.Round++
	}
}

func TestClassicOneStep(t *testing.T) {
	d, err := NewClassicAgent(seedsOnly()).Decide(context.Background(), newState(10, 10, 1, centred()))
	require.NoError(t, err)

	assert.Equal(t, KindClassic, d.Solver)
	assert.Equal(t, Rating{1, 1, 1, 1, 1}, d.Success)
	assert.Equal(t, Weights{Cutoff: 0.4, Importance: 0.05}, d.Weights)
	// Equal search ratings leave the tie to the slowdown term.
	assert.Equal(t, game.SlowDown, d.Maneuver)
	assert.Greater(t, d.Scores[game.SlowDown], d.Scores[game.TurnLeft])
	assert.Less(t, d.Scores[game.SpeedUp], d.Scores[game.TurnLeft])
	assert.Equal(t, 5, d.Paths)
	assert.Equal(t, 0, d.Expanded)
	assert.Nil(t, d.Matrices)
}

func TestClassicAvoidsOpponent(t *testing.T) {
	opp := game.Player{ID: 2, Position: pt(5, 1), Direction: game.Down, Speed: 1, Active: true}
	cfg := seedsOnly()
	cfg.Matrices = true

	d, err := NewClassicAgent(cfg).Decide(context.Background(), newState(10, 10, 1, centred(), opp))
	require.NoError(t, err)
	assert.Less(t, d.Success[game.ChangeNothing], d.Success[game.TurnLeft])
	assert.Less(t, d.Success[game.SpeedUp], d.Success[game.TurnLeft])
	assert.Greater(t, d.Cutoff[game.SlowDown], 0.0)
	assert.NotContains(t, []game.Maneuver{game.ChangeNothing, game.SpeedUp}, d.Maneuver)

	names := make([]string, 0, len(d.Matrices))
	for _, m := range d.Matrices {
		names = append(names, m.Name)
		assert.Len(t, m.Values, 100, m.Name)
	}
	assert.Equal(t, []string{"probability", "min steps", "success", "cut off"}, names)
}

func TestClassicTrapped(t *testing.T) {
	me := game.Player{ID: 1, Position: pt(0, 0), Direction: game.Left, Speed: 1, Active: true}
	state := newState(5, 5, 1, me)
	state.Board.Set(pt(1, 0), 2)
	state.Board.Set(pt(0, 1), 2)

	d, err := NewClassicAgent(seedsOnly()).Decide(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, game.ChangeNothing, d.Maneuver)
	assert.Equal(t, 0, d.Paths)
}

func TestClassicFullSearch(t *testing.T) {
	for _, threads := range []int{1, 5} {
		cfg := DefaultConfig()
		cfg.Forecast.Threads = 1
		cfg.Search.Threads = threads
		cfg.Search.Seed = 1
		cfg.Search.SafetyMargin = 10 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		d, err := NewClassicAgent(cfg).Decide(ctx, newState(10, 10, 1, centred()))
		cancel()
		require.NoError(t, err)
		assert.Greater(t, d.Expanded, 0, "threads=%d", threads)
		assert.Greater(t, d.MaxDepth, 1, "threads=%d", threads)
		assert.Equal(t, 1.0, d.Success.Max(), "threads=%d", threads)
	}
}
