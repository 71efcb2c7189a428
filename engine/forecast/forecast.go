// Package forecast estimates where opponents can be in the next rounds.
//
// For every opponent all maneuver sequences up to a fixed depth are
// enumerated. Probability mass is split evenly over the surviving children
// at each level and the earliest arrival round per cell is tracked. Past the
// horizon a flood fill only propagates arrival rounds.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
	"golang.org/x/sync/errgroup"
)

// Config holds forecaster configuration.
type Config struct {
	// Depth is the number of rounds enumerated exactly.
	Depth int
	// Threads caps the number of opponents forecast concurrently.
	Threads int
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Depth:   6,
		Threads: runtime.NumCPU(),
	}
}

// predictOpponent is swapped out in tests.
var predictOpponent = predict

type Forecaster struct {
	config Config
	logger *slog.Logger
}

func New(config Config) *Forecaster {
	if config.Depth < 1 {
		config.Depth = 1
	}
	if config.Threads < 1 {
		config.Threads = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{config: config, logger: logger.With("component", "forecast")}
}

func (f *Forecaster) Depth() int { return f.config.Depth }

// Predict forecasts every opponent and merges the results. Cells already
// claimed on the board are certain and immediate. A forecast that panics is
// logged and left out. Opponents not started before ctx is done are skipped.
func (f *Forecaster) Predict(ctx context.Context, board *game.Board, opponents []rules.Player) *Matrix {
	results := make([]*Matrix, len(opponents))

	var g errgroup.Group
	g.SetLimit(min(f.config.Threads, max(len(opponents), 1)))
	for i, opp := range opponents {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			m, err := f.predictSafe(board, opp)
			if err != nil {
				f.logger.Warn("opponent forecast failed", "player", opp.ID, "error", err)
				return nil
			}
			results[i] = m
			return nil
		})
	}
	_ = g.Wait()

	out := NewMatrix(board.Width, board.Height, baseProbability(f.config.Depth))
	first := true
	for _, m := range results {
		if m == nil {
			continue
		}
		if first {
			out = m
			first = false
			continue
		}
		out.Merge(m)
	}

	f.finalize(out, board)
	return out
}

func (f *Forecaster) predictSafe(board *game.Board, opp rules.Player) (m *Matrix, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return predictOpponent(board, opp, f.config.Depth), nil
}

func (f *Forecaster) finalize(m *Matrix, board *game.Board) {
	for i := range m.Cells {
		c := &m.Cells[i]
		if board.Cells[i] != game.Empty {
			c.Probability = 1
			c.MinSteps = 0
			continue
		}
		if c.MinSteps == Unreached {
			c.MinSteps = f.config.Depth + 1
		}
	}
}
