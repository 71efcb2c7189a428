package decision

import (
	"github.com/brensch/speed/engine/forecast"
	"github.com/brensch/speed/engine/search"
	"github.com/brensch/speed/game"
)

// SuccessRating sums each maneuver's success grid, normalised to the
// largest sum.
func SuccessRating(res *search.Result) Rating {
	var r Rating
	for _, m := range game.Maneuvers {
		r[m] = res.Success[m].Sum()
	}
	return r.Normalize()
}

// CutoffRating is the best cutoff any path of each maneuver achieved.
func CutoffRating(res *search.Result) Rating {
	var r Rating
	for _, m := range game.Maneuvers {
		r[m] = res.Cutoff[m].Max()
	}
	return r
}

// ImportanceRating is 1 - count/maxCount for every possible first move,
// where count is how often later moves crossed that first edge. Without any
// crossing all scores are 0.
func ImportanceRating(res *search.Result) Rating {
	var r Rating
	var top int64
	for _, m := range game.Maneuvers {
		if res.Initial[m] != nil {
			top = max(top, res.Importance[m])
		}
	}
	if top == 0 {
		return r
	}
	for _, m := range game.Maneuvers {
		if res.Initial[m] != nil {
			r[m] = 1 - float64(res.Importance[m])/float64(top)
		}
	}
	return r
}

// NamedMatrix is a labelled board layer with its display range.
type NamedMatrix struct {
	Name   string
	Min    float64
	Max    float64
	Width  int
	Height int
	Values []float64
}

// Matrices returns the per-cell layers behind a graph decision for m.
func Matrices(res *search.Result, fm *forecast.Matrix, importance Rating, m game.Maneuver) []NamedMatrix {
	w, h := res.Width, res.Height
	inverted := make([]float64, w*h)
	for _, mm := range game.Maneuvers {
		e := res.Initial[mm]
		if e == nil {
			continue
		}
		for _, n := range e.Path {
			inverted[n.Position.Y*w+n.Position.X] = importance[mm]
		}
	}

	return append([]NamedMatrix{
		{Name: "success", Min: 0, Max: 1, Width: w, Height: h, Values: res.Success[m].Values},
		{Name: "cut off", Min: 0, Max: 1, Width: w, Height: h, Values: res.Cutoff[m].Values},
		{Name: "inverted importance", Min: 0, Max: 1, Width: w, Height: h, Values: inverted},
	}, forecastLayers(fm)...)
}

// ClassicMatrices returns the layers behind a classic decision for m.
func ClassicMatrices(res *search.Result, fm *forecast.Matrix, m game.Maneuver) []NamedMatrix {
	w, h := res.Width, res.Height
	return append(forecastLayers(fm),
		NamedMatrix{Name: "success", Min: 0, Max: 1, Width: w, Height: h, Values: res.Success[m].Values},
		NamedMatrix{Name: "cut off", Min: 0, Max: 1, Width: w, Height: h, Values: res.Cutoff[m].Values},
	)
}

func forecastLayers(fm *forecast.Matrix) []NamedMatrix {
	steps := fm.MinStepValues()
	var maxSteps float64
	for _, v := range steps {
		maxSteps = max(maxSteps, v)
	}
	return []NamedMatrix{
		{Name: "probability", Min: 0, Max: 1, Width: fm.Width, Height: fm.Height, Values: fm.Probabilities()},
		{Name: "min steps", Min: 0, Max: maxSteps, Width: fm.Width, Height: fm.Height, Values: steps},
	}
}
