// Command live plays spe_ed games on the public server.
//
// Settings come from flags, the environment or a .env file in the working
// directory. URL and KEY are required.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brensch/speed/config"
	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/live/transport"
	"github.com/brensch/speed/logging"
	"github.com/brensch/speed/rules"
	"github.com/brensch/speed/store"
	"github.com/google/uuid"
)

// Source is recorded on every row written by this binary.
const Source = "live"

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalf("env: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	games := flag.Int("games", 1, "Number of games to play in a row (0 = until interrupted)")
	flag.Parse()

	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	wsURL, err := cfg.WebsocketURL()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	dc, err := cfg.Decision(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tc := transport.DefaultConfig()
	tc.URL = wsURL
	tc.TimeURL = cfg.TimeURL
	tc.SafetyBuffer = cfg.SafetyBuffer
	tc.Logger = logger
	client := transport.NewClient(tc)

	wins := 0
	for played := 0; *games <= 0 || played < *games; played++ {
		if ctx.Err() != nil {
			break
		}
		won, err := playOne(ctx, logger, client, cfg, dc)
		if err != nil {
			logger.Error("game failed", "error", err)
			os.Exit(1)
		}
		if won {
			wins++
		}
		logger.Info("games so far", "played", played+1, "won", wins)
	}
}

func playOne(ctx context.Context, logger *slog.Logger, client *transport.Client, cfg config.Config, dc decision.Config) (bool, error) {
	gameID := uuid.NewString()
	logger = logger.With("game", gameID)

	solver, err := decision.NewSolver(cfg.Solver, dc)
	if err != nil {
		return false, err
	}

	var rows []store.DecisionRow
	var observe transport.Observer
	if cfg.RecordDir != "" {
		observe = func(state *game.GameState, d decision.Decision) {
			row, err := store.NewDecisionRow(gameID, Source, state, d)
			if err != nil {
				logger.Warn("record decision", "error", err)
				return
			}
			rows = append(rows, row)
		}
	}

	res, playErr := client.Play(ctx, solver, observe)

	if len(rows) > 0 {
		store.SetWinner(rows, winnerOf(res))
		if err := record(cfg.RecordDir, rows, logger); err != nil {
			logger.Error("record game", "error", err)
		}
	}

	if playErr != nil {
		return false, playErr
	}
	stats := client.GetStats()
	logger.Info("game over", "rounds", res.Rounds, "won", res.Won, "ticks", stats.Ticks, "fallbacks", stats.Fallbacks)
	return res.Won, nil
}

// winnerOf is the ego player after a win, the survivor once the final state
// shows at most one active player, and unknown otherwise.
func winnerOf(res transport.Result) int {
	if res.Final == nil {
		return store.WinnerUnknown
	}
	if res.Won {
		return res.Final.You
	}
	if res.Final.ActivePlayers() <= 1 {
		return rules.Winner(res.Final)
	}
	return store.WinnerUnknown
}

func record(dir string, rows []store.DecisionRow, logger *slog.Logger) error {
	w, err := store.NewBatchWriter(dir)
	if err != nil {
		return err
	}
	if err := w.WriteGame(rows); err != nil {
		_, _ = w.Finalize()
		return err
	}
	batch, err := w.Finalize()
	if err != nil {
		return err
	}
	logger.Info("recorded game", "path", batch.Path, "rows", batch.Rows)
	return nil
}
