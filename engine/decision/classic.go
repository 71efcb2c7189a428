package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/engine/search"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
)

// ClassicAgent searches predicted own states directly on the board, one
// independent search per first maneuver. It keeps no state between ticks.
//
// Scores are success + cutoff*ClassicWeights.Cutoff +
// slowdown*ClassicWeights.Importance.
type ClassicAgent struct {
	config     Config
	logger     *slog.Logger
	forecaster *forecast.Forecaster
	engine     *search.Engine
}

func NewClassicAgent(config Config) *ClassicAgent {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	config.Forecast.Logger = logger
	config.Search.Logger = logger
	return &ClassicAgent{
		config:     config,
		logger:     logger.With("component", "classic"),
		forecaster: forecast.New(config.Forecast),
		engine:     search.New(config.Search),
	}
}

func (a *ClassicAgent) Name() string { return KindClassic }

func (a *ClassicAgent) Decide(ctx context.Context, state *game.GameState) (Decision, error) {
	start := time.Now()
	me, root, err := rootOf(state)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Maneuver: game.ChangeNothing, Round: state.Round, Solver: KindClassic}
	if !me.Active {
		return d, nil
	}

	opponents := state.Opponents()
	preds := make([]rules.Player, len(opponents))
	for i, o := range opponents {
		preds[i] = rules.FromSnapshot(o, root.Round)
	}
	fm := a.forecaster.Predict(ctx, state.Board, preds)

	res := a.engine.RunClassic(ctx, search.ClassicInput{
		Board:    state.Board,
		Forecast: fm,
		Self:     root,
	})

	slowdown := SlowdownRating(root, state.Board)
	d.Weights = a.config.ClassicWeights.Resolve(len(opponents))
	d.Success = SuccessRating(res)
	d.Cutoff = CutoffRating(res)
	d.Scores = d.Success.Combine(d.Cutoff, d.Weights.Cutoff).Combine(slowdown, d.Weights.Importance)
	d.Maneuver = d.Scores.Best()
	if d.Scores.Max() <= 0 {
		d.Maneuver = slowdown.Best()
	}

	if a.config.Matrices {
		d.Matrices = ClassicMatrices(res, fm, d.Maneuver)
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
		"slowdown", slowdown.String(),
		"scores", d.Scores.String(),
	)
	return d, nil
}
