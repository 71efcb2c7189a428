// Package selfplay runs local spe_ed games between solvers.
//
// Each tick every active player decides concurrently on its own view of the
// state, bounded by a deadline drawn per tick. The moves are then resolved
// simultaneously by the rules package.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
	"github.com/brensch/speed/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Source is recorded on every row produced here.
const Source = "selfplay"

// Seat is one participant. NewSolver is called once per game.
type Seat struct {
	Label     string
	NewSolver func() (decision.Solver, error)
}

type Config struct {
	// Width and Height fix the board size. Zero draws a size in
	// [MinSize, MaxSize] per game.
	Width   int
	Height  int
	MinSize int
	MaxSize int

	// The time allowed per tick is drawn from [MinDeadline, MaxDeadline].
	MinDeadline time.Duration
	MaxDeadline time.Duration

	// MaxRounds ends a game as a draw. Zero means no cap.
	MaxRounds int
	// Record keeps a DecisionRow per player and tick.
	Record  bool
	Verbose bool
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		MinSize:     40,
		MaxSize:     80,
		MinDeadline: 2 * time.Second,
		MaxDeadline: 6 * time.Second,
		MaxRounds:   5000,
		Record:      true,
	}
}

// Outcome describes a finished game.
type Outcome struct {
	GameID string
	Rounds int
	// Winner is the last player standing, or 0 for a draw.
	Winner int
	Labels map[int]string
	Rows   []store.DecisionRow
	Final  *game.GameState
	// Decisions counts solver calls that produced a move in time.
	Decisions int
}

// WinnerLabel is the seat label of the winner, or "draw".
func (o Outcome) WinnerLabel() string {
	if o.Winner == 0 {
		return "draw"
	}
	return o.Labels[o.Winner]
}

// NewGame places players on distinct random cells with a random direction and
// speed 1. Each start cell is claimed on the board.
func NewGame(rng *rand.Rand, width, height, players int) (*game.GameState, error) {
	if players < 2 || players > game.MaxPlayers {
		return nil, fmt.Errorf("player count %d out of range [2,%d]", players, game.MaxPlayers)
	}
	if width*height < players {
		return nil, fmt.Errorf("board %dx%d too small for %d players", width, height, players)
	}

	state := &game.GameState{
		Width:   width,
		Height:  height,
		Board:   game.NewBoard(width, height),
		Players: make(map[int]game.Player, players),
		You:     1,
		Running: true,
		Round:   1,
	}
	for id := 1; id <= players; id++ {
		var p game.Point
		for {
			p = game.Point{X: rng.Intn(width), Y: rng.Intn(height)}
			if state.Board.IsEmpty(p) {
				break
			}
		}
		state.Board.Set(p, int8(id))
		state.Players[id] = game.Player{
			ID:        id,
			Name:      fmt.Sprintf("player%d", id),
			Position:  p,
			Direction: game.Directions[rng.Intn(len(game.Directions))],
			Speed:     1,
			Active:    true,
		}
	}
	return state, nil
}

// PlayGame sets up a board for the seats and plays it to the end.
func PlayGame(ctx context.Context, config Config, seats []Seat, rng *rand.Rand) (Outcome, error) {
	width, height := config.Width, config.Height
	if width <= 0 || height <= 0 {
		lo, hi := max(config.MinSize, 1), max(config.MaxSize, config.MinSize, 1)
		width = lo + rng.Intn(hi-lo+1)
		height = lo + rng.Intn(hi-lo+1)
	}
	state, err := NewGame(rng, width, height, len(seats))
	if err != nil {
		return Outcome{}, err
	}
	return Play(ctx, config, state, seats, rng)
}

// Play runs state to completion. Seat i controls player i+1.
//
// A solver that returns an error in time plays change_nothing. A solver
// that answers after the tick deadline misses the round and is removed, as
// the server would do.
func Play(ctx context.Context, config Config, state *game.GameState, seats []Seat, rng *rand.Rand) (Outcome, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := Outcome{
		GameID: uuid.NewString(),
		Labels: make(map[int]string, len(seats)),
	}
	logger = logger.With("component", "selfplay", "game", out.GameID)

	solvers := make(map[int]decision.Solver, len(seats))
	for i, seat := range seats {
		id := i + 1
		if _, ok := state.Players[id]; !ok {
			return out, fmt.Errorf("seat %d has no player", id)
		}
		s, err := seat.NewSolver()
		if err != nil {
			return out, fmt.Errorf("create solver for %s: %w", seat.Label, err)
		}
		solvers[id] = s
		out.Labels[id] = seat.Label
	}

	for !rules.IsGameOver(state) {
		if config.MaxRounds > 0 && state.Round > config.MaxRounds {
			logger.Info("round cap reached", "round", state.Round)
			break
		}
		if err := ctx.Err(); err != nil {
			out.Final = state
			out.Rounds = state.Round - 1
			return out, err
		}
		if config.Verbose {
			PrintBoard(state)
		}

		moves, rows, err := playTick(ctx, config, out.GameID, state, solvers, drawDeadline(rng, config), logger)
		if err != nil {
			out.Final = state
			out.Rounds = state.Round - 1
			return out, err
		}
		out.Decisions += len(moves)
		out.Rows = append(out.Rows, rows...)
		state = rules.NextStateSimultaneous(state, moves)
	}

	if config.Verbose {
		PrintBoard(state)
	}
	out.Final = state
	out.Rounds = state.Round - 1
	if state.ActivePlayers() <= 1 {
		out.Winner = rules.Winner(state)
	}
	for i := range out.Rows {
		out.Rows[i].Solver = out.Labels[int(out.Rows[i].Player)]
	}
	store.SetWinner(out.Rows, out.Winner)
	logger.Info("game finished", "rounds", out.Rounds, "winner", out.WinnerLabel())
	return out, nil
}

func drawDeadline(rng *rand.Rand, config Config) time.Duration {
	lo, hi := config.MinDeadline, config.MaxDeadline
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)+1))
}

type tickResult struct {
	move     game.Maneuver
	ok       bool
	row      store.DecisionRow
	keep     bool
	decision decision.Decision
}

func playTick(ctx context.Context, config Config, gameID string, state *game.GameState, solvers map[int]decision.Solver, budget time.Duration, logger *slog.Logger) (map[int]game.Maneuver, []store.DecisionRow, error) {
	deadline := time.Now().Add(budget)
	tickCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ids := make([]int, 0, len(state.Players))
	for id, p := range state.Players {
		if p.Active && solvers[id] != nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	results := make([]tickResult, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			view := *state
			view.You = id
			view.Deadline = deadline

			d, err := solvers[id].Decide(tickCtx, &view)
			if time.Now().After(deadline) {
				logger.Warn("deadline missed", "player", id, "round", state.Round)
				return nil
			}
			if err != nil {
				if errors.Is(err, decision.ErrNoPlayer) {
					return err
				}
				logger.Warn("solver failed, playing change_nothing", "player", id, "round", state.Round, "error", err)
				d = decision.Decision{Maneuver: game.ChangeNothing, Round: state.Round, Solver: solvers[id].Name()}
			}

			results[i].move = d.Maneuver
			results[i].ok = true
			results[i].decision = d
			if config.Record {
				row, err := store.NewDecisionRow(gameID, Source, &view, d)
				if err != nil {
					return err
				}
				results[i].row = row
				results[i].keep = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	moves := make(map[int]game.Maneuver, len(ids))
	var rows []store.DecisionRow
	for i, id := range ids {
		r := results[i]
		if !r.ok {
			continue
		}
		moves[id] = r.move
		if config.Verbose {
			log.Print(RenderDecision(id, r.decision))
		}
		if r.keep {
			rows = append(rows, r.row)
		}
	}
	return moves, rows, nil
}
