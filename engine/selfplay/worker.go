package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/brensch/speed/engine/decision"
)

// Worker plays games back to back until its context is done.
type Worker struct {
	ID     int
	Config Config
	// Lineup picks the seats of the next game.
	Lineup func(rng *rand.Rand) []Seat
	// Seed fixes the worker's rng. Zero seeds from the clock.
	Seed int64
}

// Run sends every finished game to results. Games cut short by ctx are
// dropped. It returns nil once ctx is done.
func (w Worker) Run(ctx context.Context, results chan<- Outcome) error {
	seed := w.Seed
	if seed == 0 {
		seed = time.Now().UnixNano() + int64(w.ID)*1000003
	}
	rng := rand.New(rand.NewSource(seed))

	logger := w.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	config := w.Config
	config.Logger = logger.With("worker", w.ID)

	for ctx.Err() == nil {
		out, err := PlayGame(ctx, config, w.Lineup(rng), rng)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("worker %d: %w", w.ID, err)
		}
		select {
		case results <- out:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// SeatFor builds a seat from a lineup entry. An entry is a strategy preset
// played by the graph solver, "classic-" followed by a preset, or a plain
// solver kind. A plain "classic" keeps the weights of base.
func SeatFor(entry string, base decision.Config) (Seat, error) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	switch entry {
	case decision.KindSlowdown, decision.KindRandom, decision.KindClassic:
		return seat(entry, entry, base), nil
	}

	kind := decision.KindGraph
	preset := entry
	if rest, ok := strings.CutPrefix(entry, decision.KindClassic+"-"); ok {
		kind, preset = decision.KindClassic, rest
	}
	s, err := decision.ParseStrategy(preset)
	if err != nil {
		return Seat{}, err
	}
	label := s.Name
	if kind == decision.KindClassic {
		label = decision.KindClassic + "-" + s.Name
	}
	return seat(label, kind, base.WithStrategy(s)), nil
}

func seat(label, kind string, config decision.Config) Seat {
	return Seat{
		Label:     label,
		NewSolver: func() (decision.Solver, error) { return decision.NewSolver(kind, config) },
	}
}

// RandomLineup draws players seats from pool with replacement. With
// players <= 0 the count is drawn from [2, len(pool)+1] capped at six.
func RandomLineup(pool []Seat, players int) func(rng *rand.Rand) []Seat {
	return func(rng *rand.Rand) []Seat {
		n := players
		if n <= 0 {
			n = 2 + rng.Intn(min(len(pool), 5))
		}
		seats := make([]Seat, n)
		for i := range seats {
			seats[i] = pool[rng.Intn(len(pool))]
		}
		return seats
	}
}
