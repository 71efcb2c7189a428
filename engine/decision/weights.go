package decision

import (
	"fmt"
	"sort"
	"strings"
)

// Dynamic marks a weight that is derived from the number of active
// opponents on every tick.
const Dynamic = -1

// Weights scale the cutoff and inverted importance ratings before they are
// added to the success rating.
type Weights struct {
	Cutoff     float64
	Importance float64
}

// Resolve replaces Dynamic weights. With more opponents alive, cutting them
// off pays more and keeping corridors free pays less.
func (w Weights) Resolve(activeOpponents int) Weights {
	if w.Cutoff == Dynamic {
		w.Cutoff = float64(activeOpponents) / 10
	}
	if w.Importance == Dynamic {
		w.Importance = 1 - float64(activeOpponents)/10
	}
	return w
}

// Strategy is a named weight preset with its forecast depth. Classic holds
// the weights the classic solver uses instead; there the second weight
// scales the slowdown rating.
type Strategy struct {
	Name    string
	Weights Weights
	Classic Weights
	Depth   int
}

var strategies = map[string]Strategy{
	"aggressive": {
		Name:    "aggressive",
		Weights: Weights{Cutoff: 0.5, Importance: 0.01},
		Classic: Weights{Cutoff: 0.5, Importance: 0.01},
		Depth:   6,
	},
	"balanced": {
		Name:    "balanced",
		Weights: Weights{Cutoff: 0.35, Importance: 0.15},
		Classic: Weights{Cutoff: 0.4, Importance: 0.05},
		Depth:   6,
	},
	"defensive": {
		Name:    "defensive",
		Weights: Weights{Cutoff: 0.1, Importance: 0.35},
		Classic: Weights{Cutoff: 0.1, Importance: 0.35},
		Depth:   7,
	},
	"dynamic": {
		Name:    "dynamic",
		Weights: Weights{Cutoff: Dynamic, Importance: Dynamic},
		Classic: Weights{Cutoff: Dynamic, Importance: Dynamic},
		Depth:   6,
	},
}

// ParseStrategy looks up a preset by name.
func ParseStrategy(name string) (Strategy, error) {
	s, ok := strategies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Strategy{}, fmt.Errorf("unknown strategy %q (have %s)", name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}

func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
