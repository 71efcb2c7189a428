package search

import (
	"math/rand"
	"sync/atomic"

	"github.com/brensch/speed/game"
)

// Calculation is one worker's private share of the search: its frontier
// queues and the running aggregates. Nothing in it is shared, so a
// calculation is only ever driven by a single goroutine.
type Calculation struct {
	x      *expander
	queues [game.NumManeuvers]*Queue[*Node]
	rng    *rand.Rand

	success    [game.NumManeuvers]*Grid
	cutoff     [game.NumManeuvers]*Grid
	importance [game.NumManeuvers]int64

	paths    int
	expanded int
	maxDepth int

	scratch []*Node
}

func newCalculation(x *expander, queueSize int, rng *rand.Rand) *Calculation {
	c := &Calculation{x: x, rng: rng, scratch: make([]*Node, 0, game.NumManeuvers)}
	w, h := x.graph.Width, x.graph.Height
	for i := range c.queues {
		c.queues[i] = NewQueue[*Node](queueSize, rng)
		c.success[i] = NewGrid(w, h)
		c.cutoff[i] = NewGrid(w, h)
	}
	return c
}

// Add records n's ratings at its position and queues it for expansion.
func (c *Calculation) Add(n *Node) {
	c.success[n.Initial].Raise(n.Position, n.Success)
	c.cutoff[n.Initial].Raise(n.Position, n.Cutoff)
	c.queues[n.Initial].Add(n)
	c.paths++
	c.maxDepth = max(c.maxDepth, n.Depth)
}

func (c *Calculation) HasNext() bool {
	for _, q := range c.queues {
		if q.HasNext() {
			return true
		}
	}
	return false
}

// Len is the number of queued nodes over all maneuvers.
func (c *Calculation) Len() int {
	n := 0
	for _, q := range c.queues {
		n += q.Len()
	}
	return n
}

// Poll takes the oldest node from a uniformly chosen non-empty queue.
func (c *Calculation) Poll() (*Node, bool) {
	var candidates [game.NumManeuvers]int
	k := 0
	for i, q := range c.queues {
		if q.HasNext() {
			candidates[k] = i
			k++
		}
	}
	if k == 0 {
		return nil, false
	}
	return c.queues[candidates[c.rng.Intn(k)]].Poll()
}

// Step expands one frontier node. The parent's crossings are credited once
// per surviving child.
func (c *Calculation) Step() bool {
	parent, ok := c.Poll()
	if !ok {
		return false
	}
	c.expanded++
	c.scratch = c.x.expand(parent, c.scratch[:0])
	for _, child := range c.scratch {
		for i, v := range parent.increments {
			c.importance[i] += v
		}
		c.Add(child)
	}
	return true
}

// Run expands until the frontier is exhausted or stop is raised.
func (c *Calculation) Run(stop *atomic.Bool) {
	for !stop.Load() {
		if !c.Step() {
			return
		}
	}
}

// absorb takes over the aggregates of o, leaving its queues alone.
func (c *Calculation) absorb(o *Calculation) {
	for i := range c.success {
		c.success[i].Merge(o.success[i])
		c.cutoff[i].Merge(o.cutoff[i])
		c.importance[i] += o.importance[i]
	}
	c.paths += o.paths
	c.expanded += o.expanded
	c.maxDepth = max(c.maxDepth, o.maxDepth)
}
