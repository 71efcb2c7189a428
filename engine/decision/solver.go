// Package decision turns the forecast and search results into one maneuver
// per tick.
package decision

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
)

// ErrNoPlayer is returned when the state does not contain the ego player.
var ErrNoPlayer = errors.New("decision: ego player missing from state")

// Decision is the outcome of one tick.
type Decision struct {
	Maneuver game.Maneuver
	Round    int
	Solver   string

	Scores     Rating
	Success    Rating
	Cutoff     Rating
	Importance Rating
	Weights    Weights
	Matrices   []NamedMatrix

	Paths    int
	Expanded int
	MaxDepth int
	Elapsed  time.Duration
}

// Solver picks a maneuver for the ego player of state. Implementations may
// keep per-game state, so a Solver must not be shared between games.
type Solver interface {
	Name() string
	Decide(ctx context.Context, state *game.GameState) (Decision, error)
}

// Solver kinds accepted by NewSolver.
const (
	KindGraph    = "graph"
	KindClassic  = "classic"
	KindSlowdown = "slowdown"
	KindRandom   = "random"
)

// Kinds lists every solver kind NewSolver accepts.
var Kinds = []string{KindGraph, KindClassic, KindSlowdown, KindRandom}

// NewSolver builds a fresh solver of the given kind for one game.
func NewSolver(kind string, config Config) (Solver, error) {
	switch kind {
	case KindGraph, "":
		return NewAgent(config), nil
	case KindClassic:
		return NewClassicAgent(config), nil
	case KindSlowdown:
		return SlowdownSolver{}, nil
	case KindRandom:
		seed := config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return &RandomSolver{rng: rand.New(rand.NewSource(seed))}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", kind)
	}
}

// rootOf returns the ego player and the prediction root for state.
func rootOf(state *game.GameState) (game.Player, rules.Player, error) {
	me, ok := state.Me()
	if !ok {
		return game.Player{}, rules.Player{}, ErrNoPlayer
	}
	return me, rules.FromSnapshot(me, completedRounds(state)), nil
}

func completedRounds(state *game.GameState) int {
	return max(state.Round-1, 0)
}

// SlowdownRating prefers the slowest surviving move: each active child
// scores (parentSpeed - childSpeed)/2 + 0.5, inactive children 0.
func SlowdownRating(root rules.Player, board *game.Board) Rating {
	var r Rating
	for m, c := range rules.Children(root, board) {
		if c.Active {
			r[m] = float64(root.Speed-c.Speed)/2 + 0.5
		}
	}
	return r
}

// SlowdownSolver only looks one move ahead and brakes whenever it can.
type SlowdownSolver struct{}

func (SlowdownSolver) Name() string { return KindSlowdown }

func (SlowdownSolver) Decide(_ context.Context, state *game.GameState) (Decision, error) {
	start := time.Now()
	me, root, err := rootOf(state)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Maneuver: game.ChangeNothing, Round: state.Round, Solver: KindSlowdown}
	if !me.Active {
		return d, nil
	}
	d.Scores = SlowdownRating(root, state.Board)
	d.Maneuver = d.Scores.Best()
	d.Elapsed = time.Since(start)
	return d, nil
}

// RandomSolver picks uniformly among the surviving one-step moves.
type RandomSolver struct {
	rng *rand.Rand
}

func (*RandomSolver) Name() string { return KindRandom }

func (s *RandomSolver) Decide(_ context.Context, state *game.GameState) (Decision, error) {
	start := time.Now()
	me, root, err := rootOf(state)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Maneuver: game.ChangeNothing, Round: state.Round, Solver: KindRandom}
	if !me.Active {
		return d, nil
	}

	var legal []game.Maneuver
	for m, c := range rules.Children(root, state.Board) {
		if c.Active {
			legal = append(legal, game.Maneuver(m))
			d.Scores[m] = 1
		}
	}
	if len(legal) > 0 {
		d.Maneuver = legal[s.rng.Intn(len(legal))]
	}
	d.Elapsed = time.Since(start)
	return d, nil
}
