package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/engine/graph"
	"github.com/brensch/speed/engine/search"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
)

// Config holds the settings of the searching solvers.
type Config struct {
	Weights Weights
	// ClassicWeights replace Weights for the classic solver.
	ClassicWeights Weights
	Forecast       forecast.Config
	Search         search.Config
	// Matrices keeps the per-cell layers behind every decision.
	Matrices bool
	// Seed is used by the random solver; zero seeds from the clock.
	Seed   int64
	Logger *slog.Logger
}

// DefaultConfig returns the balanced preset.
func DefaultConfig() Config {
	s := strategies["balanced"]
	fc := forecast.DefaultConfig()
	fc.Depth = s.Depth
	return Config{
		Weights:        s.Weights,
		ClassicWeights: s.Classic,
		Forecast:       fc,
		Search:         search.DefaultConfig(),
	}
}

// WithStrategy applies a preset's weights and depth.
func (c Config) WithStrategy(s Strategy) Config {
	c.Weights = s.Weights
	c.ClassicWeights = s.Classic
	c.Forecast.Depth = s.Depth
	return c
}

// Agent is the graph solver for one game. It keeps the graph board between
// ticks and folds in each tick's new claims.
type Agent struct {
	config     Config
	logger     *slog.Logger
	forecaster *forecast.Forecaster
	engine     *search.Engine

	graph *graph.Graph
	// active holds the opponents that were alive after the previous tick.
	active []int
}

func NewAgent(config Config) *Agent {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	config.Forecast.Logger = logger
	config.Search.Logger = logger
	return &Agent{
		config:     config,
		logger:     logger.With("component", "agent"),
		forecaster: forecast.New(config.Forecast),
		engine:     search.New(config.Search),
	}
}

func (a *Agent) Name() string { return KindGraph }

// Decide runs forecast, graph update, search and combination for one tick.
// It always returns a maneuver unless the ego player is missing.
func (a *Agent) Decide(ctx context.Context, state *game.GameState) (Decision, error) {
	start := time.Now()
	me, root, err := rootOf(state)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Maneuver: game.ChangeNothing, Round: state.Round, Solver: KindGraph}
	if !me.Active {
		return d, nil
	}

	opponents := state.Opponents()
	preds := make([]rules.Player, len(opponents))
	for i, o := range opponents {
		preds[i] = rules.FromSnapshot(o, root.Round)
	}
	fm := a.forecaster.Predict(ctx, state.Board, preds)

	a.updateGraph(state, me)

	res := a.engine.Run(ctx, search.Input{
		Graph:    a.graph,
		Forecast: fm,
		Self:     me,
		Round:    root.Round,
	})

	d.Weights = a.config.Weights.Resolve(len(opponents))
	d.Success = SuccessRating(res)
	d.Cutoff = CutoffRating(res)
	d.Importance = ImportanceRating(res)
	d.Scores = d.Success.Combine(d.Cutoff, d.Weights.Cutoff).Combine(d.Importance, d.Weights.Importance)
	d.Maneuver = d.Scores.Best()

	if res.Initial[d.Maneuver] == nil {
		// Every rated move looks fatal; survive one more round if possible.
		fallback := SlowdownRating(root, state.Board).Best()
		a.logger.Debug("no promising move, braking", "round", state.Round, "maneuver", fallback)
		d.Maneuver = fallback
	}

	if a.config.Matrices {
		d.Matrices = Matrices(res, fm, d.Importance, d.Maneuver)
	}
	d.Paths = res.Paths
	d.Expanded = res.Expanded
	d.MaxDepth = res.MaxDepth
	d.Elapsed = time.Since(start)

	a.logger.Info("decided",
		"round", state.Round,
		"maneuver", d.Maneuver,
		"paths", d.Paths,
		"depth", d.MaxDepth,
		"elapsed", d.Elapsed,
	)
	a.logger.Debug("ratings",
		"round", state.Round,
		"success", d.Success.String(),
		"cutoff", d.Cutoff.String(),
		"importance", d.Importance.String(),
		"scores", d.Scores.String(),
	)
	return d, nil
}

// updateGraph creates the graph on the first tick and applies the board
// changes on every following one. Opponents that died before the previous
// tick are left out since their stale position no longer moves.
func (a *Agent) updateGraph(state *game.GameState, me game.Player) {
	if a.graph == nil || a.graph.Width != state.Width || a.graph.Height != state.Height {
		a.graph = graph.New(state.Width, state.Height)
		a.active = a.active[:0]
		for id := range state.Players {
			if id != state.You {
				a.active = append(a.active, id)
			}
		}
	}

	enemies := make([]game.Player, 0, len(a.active))
	for _, id := range a.active {
		if p, ok := state.Players[id]; ok {
			enemies = append(enemies, p)
		}
	}
	a.graph.Update(state.Board, me, enemies)

	a.active = a.active[:0]
	for _, p := range enemies {
		if p.Active {
			a.active = append(a.active, p.ID)
		}
	}
}
