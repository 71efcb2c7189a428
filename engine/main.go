package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/speed/config"
	"github.com/brensch/speed/engine/selfplay"
	"github.com/brensch/speed/logging"
	"github.com/brensch/speed/store"
	tea "github.com/charmbracelet/bubbletea"
)

var totalDecisions atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Outcome  selfplay.Outcome
}

type model struct {
	gamesPlayed int
	decisions   int64
	startTime   time.Time
	wins        map[string]int
	recentGames []string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		wins:      make(map[string]int),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.decisions = totalDecisions.Load()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.wins[msg.Outcome.WinnerLabel()]++
		m.recentGames = append([]string{describe(msg)}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	decisionsPerSec := float64(m.decisions) / duration.Seconds()
	if duration.Seconds() < 1 {
		decisionsPerSec = 0
	}

	s := fmt.Sprintf("Games Played:   %d\n", m.gamesPlayed)
	s += fmt.Sprintf("Decisions:      %d\n", m.decisions)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Decisions/Sec:  %.2f\n\n", decisionsPerSec)

	s += "Wins:\n"
	labels := make([]string, 0, len(m.wins))
	for label := range m.wins {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		s += fmt.Sprintf("  %-12s %d\n", label, m.wins[label])
	}

	s += "\nRecent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func describe(u GameUpdate) string {
	o := u.Outcome
	ids := make([]int, 0, len(o.Labels))
	for id := range o.Labels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	seats := make([]string, len(ids))
	for i, id := range ids {
		seats[i] = o.Labels[id]
	}
	size := ""
	if o.Final != nil {
		size = fmt.Sprintf("%dx%d", o.Final.Width, o.Final.Height)
	}
	return fmt.Sprintf("Worker %d: %s %s -> %s after %d rounds", u.WorkerID, size, strings.Join(seats, " vs "), o.WinnerLabel(), o.Rounds)
}

func main() {
	cfg := config.DefaultConfig()
	cfg.Threads = 1

	outDir := flag.String("out-dir", "data/selfplay", "Output directory for decision parquet batches (empty disables recording)")
	gamesPerFlush := flag.Int("games-per-flush", 20, "Number of games per parquet file")
	workers := flag.Int("workers", 2, "Number of games played in parallel")
	maxGames := flag.Int64("max-games", 0, "Stop after this many games (0 = run until interrupted)")
	lineup := flag.String("lineup", "balanced,aggressive,defensive,dynamic", "Comma separated seats: strategy presets, classic-<preset> or solver kinds")
	players := flag.Int("players", 0, "Players per game (0 = random 2..6)")
	size := flag.Int("size", 0, "Fixed board width and height (0 = random 40..80)")
	minDeadline := flag.Duration("min-deadline", 2*time.Second, "Shortest time per tick")
	maxDeadline := flag.Duration("max-deadline", 6*time.Second, "Longest time per tick")
	maxRounds := flag.Int("max-rounds", 5000, "Round cap per game (0 = none)")
	noTUI := flag.Bool("no-tui", false, "Log to stderr instead of showing the status view")
	logFile := flag.String("log-file", "selfplay.log", "Log destination while the status view is shown")
	trace := flag.Bool("trace", false, "Print the board and decision matrices every round on worker 0")

	// The .env file must be loaded before flag defaults are read.
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalf("env: %v", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	var logOut io.Writer = os.Stderr
	if !*noTUI {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		logOut = f
		log.SetOutput(f)
	}
	logger, err := logging.New(logOut, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	slog.SetDefault(logger)

	base, err := cfg.Decision(logger)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	base.Matrices = *outDir != "" || *trace

	var pool []selfplay.Seat
	for _, entry := range strings.Split(*lineup, ",") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		seat, err := selfplay.SeatFor(entry, base)
		if err != nil {
			log.Fatalf("lineup: %v", err)
		}
		pool = append(pool, seat)
	}
	if len(pool) == 0 {
		log.Fatalf("lineup: no seats")
	}

	spCfg := selfplay.DefaultConfig()
	spCfg.Width, spCfg.Height = *size, *size
	spCfg.MinDeadline = *minDeadline
	spCfg.MaxDeadline = *maxDeadline
	spCfg.MaxRounds = *maxRounds
	spCfg.Record = *outDir != ""
	spCfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan GameUpdate, *workers)
	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan []store.DecisionRow, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(logger, *outDir, *gamesPerFlush, writeReqs)
		close(writerDone)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			c := spCfg
			c.Verbose = *trace && workerID == 0
			w := selfplay.Worker{
				ID:     workerID,
				Config: c,
				Lineup: selfplay.RandomLineup(pool, *players),
			}

			own := make(chan selfplay.Outcome)
			forwarded := make(chan struct{})
			go func() {
				defer close(forwarded)
				for o := range own {
					finished <- GameUpdate{WorkerID: workerID, Outcome: o}
				}
			}()

			logger.Info("worker started", "worker", workerID)
			if err := w.Run(ctx, own); err != nil {
				logger.Error("worker stopped", "worker", workerID, "error", err)
			}
			close(own)
			<-forwarded
		}(i)
	}

	// Fan finished games out to the writer and the status view.
	go func() {
		for u := range finished {
			totalDecisions.Add(int64(u.Outcome.Decisions))
			total := totalGames.Add(1)
			if *maxGames > 0 && total >= *maxGames {
				cancel()
			}
			if len(u.Outcome.Rows) > 0 {
				writeReqs <- u.Outcome.Rows
			}
			select {
			case updates <- u:
			default:
			}
		}
		close(writeReqs)
	}()

	if *noTUI {
		runHeadless(ctx, logger, updates)
	} else {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			logger.Error("status view failed", "error", err)
		}
	}

	cancel()
	logger.Info("shutdown requested, waiting for workers")
	workerWG.Wait()
	close(finished)
	<-writerDone
	logger.Info("shutdown complete", "games", totalGames.Load(), "decisions", totalDecisions.Load())
}

func runHeadless(ctx context.Context, logger *slog.Logger, updates <-chan GameUpdate) {
	startTime := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			logger.Info(describe(u))
		case <-ticker.C:
			perSec := float64(totalDecisions.Load()) / time.Since(startTime).Seconds()
			logger.Info("stats", "games", totalGames.Load(), "decisions_per_sec", perSec)
		}
	}
}

func parquetWriterLoop(logger *slog.Logger, outDir string, gamesPerFlush int, in <-chan []store.DecisionRow) {
	if outDir == "" {
		for range in {
		}
		return
	}
	if gamesPerFlush <= 0 {
		gamesPerFlush = 20
	}

	var w *store.BatchWriter
	flush := func() {
		if w == nil {
			return
		}
		batch, err := w.Finalize()
		w = nil
		if err != nil {
			logger.Error("parquet flush failed", "error", err)
			return
		}
		logger.Info("parquet flush ok", "path", batch.Path, "games", len(batch.GameIDs), "rows", batch.Rows)
	}

	for rows := range in {
		if w == nil {
			var err error
			if w, err = store.NewBatchWriter(outDir); err != nil {
				logger.Error("open parquet batch", "error", err)
				continue
			}
		}
		if err := w.WriteGame(rows); err != nil {
			logger.Error("write parquet game", "error", err)
			continue
		}
		if w.Games() >= gamesPerFlush {
			flush()
		}
	}
	flush()
}
