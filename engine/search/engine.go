// Package search runs the deadline-bounded best-first expansion of the own
// player's future moves over the graph board.
//
// Every frontier node carries the probability of still being alive when it
// is reached (success) and how much of an opponent's future space it takes
// (cutoff). Ratings are folded per initial maneuver into running max grids
// that the decision layer sums up.
package search

import (
	"context"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/engine/graph"
	"github.com/brensch/speed/game"
)

// DefaultBudget bounds a search whose context carries no deadline.
const DefaultBudget = time.Second

// Config holds search configuration.
type Config struct {
	// QueueSize is the capacity of each per-maneuver frontier queue.
	QueueSize int
	Threads   int
	// Boost shapes how strongly an opponent probability lowers success.
	Boost float64
	// SafetyMargin is kept free before the context deadline.
	SafetyMargin time.Duration
	// JoinGrace is how long the inline worker waits for the others after
	// the deadline before raising the stop flag again.
	JoinGrace time.Duration
	// Seed fixes the queue randomness; zero seeds from the clock.
	Seed   int64
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    10000,
		Threads:      runtime.NumCPU(),
		Boost:        0.8,
		SafetyMargin: 50 * time.Millisecond,
		JoinGrace:    100 * time.Millisecond,
	}
}

type Engine struct {
	config Config
	logger *slog.Logger
}

func New(config Config) *Engine {
	def := DefaultConfig()
	if config.QueueSize < 1 {
		config.QueueSize = def.QueueSize
	}
	if config.Threads < 1 {
		config.Threads = 1
	}
	if config.Boost <= 0 {
		config.Boost = def.Boost
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{config: config, logger: logger.With("component", "search")}
}

// Input is everything one search reads. Graph and Forecast must not change
// while Run is in progress.
type Input struct {
	Graph    *graph.Graph
	Forecast *forecast.Matrix
	Self     game.Player
	// Round is the number of rounds already played.
	Round int
}

// Result aggregates all workers of one search.
type Result struct {
	Width  int
	Height int

	Success    [game.NumManeuvers]*Grid
	Cutoff     [game.NumManeuvers]*Grid
	Importance [game.NumManeuvers]int64
	// Initial is the root's first edge per maneuver, nil when impossible.
	Initial [game.NumManeuvers]*graph.Edge

	Paths    int
	Expanded int
	MaxDepth int
	Threads  int
	Elapsed  time.Duration
}

func newResult(width, height int) *Result {
	r := &Result{Width: width, Height: height}
	for i := range r.Success {
		r.Success[i] = NewGrid(width, height)
		r.Cutoff[i] = NewGrid(width, height)
	}
	return r
}

func (r *Result) add(c *Calculation) {
	for i := range r.Success {
		r.Success[i].Merge(c.success[i])
		r.Cutoff[i].Merge(c.cutoff[i])
		r.Importance[i] += c.importance[i]
	}
	r.Paths += c.paths
	r.Expanded += c.expanded
	r.MaxDepth = max(r.MaxDepth, c.maxDepth)
}

// Run searches from in.Self until the context deadline minus the safety
// margin, or until the frontier is exhausted. The one-step children are
// always rated, even when the deadline has already passed.
func (e *Engine) Run(ctx context.Context, in Input) *Result {
	start := time.Now()
	var stop atomic.Bool
	cutoff, release := e.deadlineStop(ctx, start, &stop)
	defer release()

	x := &expander{graph: in.Graph, forecast: in.Forecast, boost: e.config.Boost}
	root := Root(in.Self, in.Round)
	seeds := x.expand(root, nil)
	for _, s := range seeds {
		x.initial[s.Initial] = s.Edge()
	}

	result := newResult(in.Graph.Width, in.Graph.Height)
	result.Initial = x.initial

	threads := e.config.Threads
	if threads <= 1 {
		c := newCalculation(x, e.config.QueueSize, e.rng(0))
		for _, s := range seeds {
			c.Add(s)
		}
		c.Run(&stop)
		result.add(c)
		result.Threads = 1
	} else {
		calcs := e.distribute(x, seeds, threads, &stop)
		e.runAll(calcs, cutoff, &stop)
		for _, c := range calcs {
			result.add(c)
		}
		result.Threads = threads
	}

	result.Elapsed = time.Since(start)
	e.logger.Debug("search finished",
		"round", in.Round+1,
		"paths", result.Paths,
		"expanded", result.Expanded,
		"depth", result.MaxDepth,
		"threads", result.Threads,
		"elapsed", result.Elapsed,
	)
	return result
}

// distribute grows a shared base frontier until every worker can get a
// meaningful share, then deals it out round-robin. The base's own ratings
// are kept in calcs[0].
func (e *Engine) distribute(x *expander, seeds []*Node, threads int, stop *atomic.Bool) []*Calculation {
	totalBase := (x.graph.Width + x.graph.Height) * 10 * threads

	base := newCalculation(x, totalBase, e.rng(-1))
	for _, s := range seeds {
		base.Add(s)
	}
	for base.HasNext() && base.Len() < totalBase && !stop.Load() {
		base.Step()
	}

	calcs := make([]*Calculation, threads)
	for i := range calcs {
		calcs[i] = newCalculation(x, e.config.QueueSize, e.rng(int64(i)))
	}
	calcs[0].absorb(base)

	// Re-adding a base frontier node counts it as a path a second time. The
	// grid raise is idempotent, so only Paths is affected.
	i := 0
	for n, ok := base.Poll(); ok; n, ok = base.Poll() {
		calcs[i].Add(n)
		i = (i + 1) % threads
	}
	return calcs
}

// runAll drives calcs[0] inline and the rest in goroutines.
func (e *Engine) runAll(calcs []*Calculation, cutoff time.Time, stop *atomic.Bool) {
	var wg sync.WaitGroup
	for _, c := range calcs[1:] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(stop)
		}()
	}
	calcs[0].Run(stop)
	e.join(&wg, cutoff, stop)
}

// deadlineStop raises stop at the context deadline minus the safety margin,
// or right away when that has already passed. Cancelling ctx raises it too.
func (e *Engine) deadlineStop(ctx context.Context, start time.Time, stop *atomic.Bool) (time.Time, func()) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = start.Add(DefaultBudget)
	}
	cutoff := deadline.Add(-e.config.SafetyMargin)
	if !start.Before(cutoff) {
		stop.Store(true)
	}
	timer := time.AfterFunc(time.Until(cutoff), func() { stop.Store(true) })
	release := context.AfterFunc(ctx, func() { stop.Store(true) })
	return cutoff, func() {
		timer.Stop()
		release()
	}
}

// join waits for wg. Workers get JoinGrace past the cutoff to notice the
// stop flag; after that it is raised again and they are waited for.
func (e *Engine) join(wg *sync.WaitGroup, cutoff time.Time, stop *atomic.Bool) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	t := time.NewTimer(time.Until(cutoff.Add(e.config.JoinGrace)))
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		e.logger.Warn("search workers slow to stop", "grace", e.config.JoinGrace)
		stop.Store(true)
		<-done
	}
}

func (e *Engine) rng(worker int64) *rand.Rand {
	seed := e.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + worker))
}
