package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/rules"
)

// ClassicInput is what RunClassic reads. The classic search walks predicted
// player states over the raw board instead of the edge graph, so it needs
// no graph at all. Board and Forecast must not change while it runs.
type ClassicInput struct {
	Board    *game.Board
	Forecast *forecast.Matrix
	// Self is the prediction root of the own player.
	Self rules.Player
}

type classicNode struct {
	player  rules.Player
	depth   int
	success float64
	cutoff  float64
}

// classicCalculation follows the successors of one initial maneuver. Each
// is driven by a single goroutine.
type classicCalculation struct {
	board    *game.Board
	forecast *forecast.Matrix
	boost    float64

	queue   *Queue[classicNode]
	success *Grid
	cutoff  *Grid

	paths    int
	expanded int
	maxDepth int
}

// rate scores p, reached from parent, over the cells of its last move.
func (c *classicCalculation) rate(parent classicNode, p rules.Player) (classicNode, bool) {
	if !p.Active {
		return classicNode{}, false
	}
	n := classicNode{player: p, depth: parent.depth + 1}
	var ex exposure
	for _, cell := range p.ShortTail {
		ex.add(c.forecast.At(cell), n.depth)
	}
	n.success, n.cutoff = ex.rate(parent.success, c.boost)
	return n, n.success > 0
}

func (c *classicCalculation) add(n classicNode) {
	c.success.Raise(n.player.Position, n.success)
	c.cutoff.Raise(n.player.Position, n.cutoff)
	c.queue.Add(n)
	c.paths++
	c.maxDepth = max(c.maxDepth, n.depth)
}

func (c *classicCalculation) step() bool {
	parent, ok := c.queue.Poll()
	if !ok {
		return false
	}
	c.expanded++
	for _, p := range rules.ValidChildren(parent.player, c.board) {
		if n, ok := c.rate(parent, p); ok {
			c.add(n)
		}
	}
	return true
}

func (c *classicCalculation) run(stop *atomic.Bool) {
	for !stop.Load() && c.step() {
	}
}

// RunClassic rates every maneuver by searching its successors on their own.
// With a single thread the maneuvers take turns one expansion at a time,
// otherwise each gets its own goroutine. Result.Initial stays empty and
// Importance is not counted.
func (e *Engine) RunClassic(ctx context.Context, in ClassicInput) *Result {
	start := time.Now()
	var stop atomic.Bool
	cutoff, release := e.deadlineStop(ctx, start, &stop)
	defer release()

	root := classicNode{player: in.Self, success: 1}
	children := rules.Children(in.Self, in.Board)
	var calcs [game.NumManeuvers]*classicCalculation
	for _, m := range game.Maneuvers {
		c := &classicCalculation{
			board:    in.Board,
			forecast: in.Forecast,
			boost:    e.config.Boost,
			queue:    NewQueue[classicNode](e.config.QueueSize, e.rng(int64(m))),
			success:  NewGrid(in.Board.Width, in.Board.Height),
			cutoff:   NewGrid(in.Board.Width, in.Board.Height),
		}
		if n, ok := c.rate(root, children[m]); ok {
			c.add(n)
		}
		calcs[m] = c
	}

	result := &Result{Width: in.Board.Width, Height: in.Board.Height}
	if e.config.Threads <= 1 {
		for busy := true; busy && !stop.Load(); {
			busy = false
			for _, c := range calcs {
				busy = c.step() || busy
			}
		}
		result.Threads = 1
	} else {
		var wg sync.WaitGroup
		for _, c := range calcs[1:] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.run(&stop)
			}()
		}
		calcs[0].run(&stop)
		e.join(&wg, cutoff, &stop)
		result.Threads = game.NumManeuvers
	}

	for m, c := range calcs {
		result.Success[m] = c.success
		result.Cutoff[m] = c.cutoff
		result.Paths += c.paths
		result.Expanded += c.expanded
		result.MaxDepth = max(result.MaxDepth, c.maxDepth)
	}
	result.Elapsed = time.Since(start)
	e.logger.Debug("classic search finished",
		"round", in.Self.Round+1,
		"paths", result.Paths,
		"expanded", result.Expanded,
		"depth", result.MaxDepth,
		"threads", result.Threads,
		"elapsed", result.Elapsed,
	)
	return result
}
