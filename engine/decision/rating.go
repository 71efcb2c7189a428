package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/brensch/speed/game"
)

// Rating holds one score per maneuver, indexed by game.Maneuver.
type Rating [game.NumManeuvers]float64

func (r Rating) Max() float64 {
	m := math.Inf(-1)
	for _, v := range r {
		m = max(m, v)
	}
	return m
}

// Normalize divides every score by the largest one. A rating without a
// positive maximum is returned unchanged.
func (r Rating) Normalize() Rating {
	m := r.Max()
	if m <= 0 {
		return r
	}
	for i := range r {
		r[i] /= m
	}
	return r
}

// Combine returns r + w*o.
func (r Rating) Combine(o Rating, w float64) Rating {
	for i := range r {
		r[i] += w * o[i]
	}
	return r
}

// Best scans in maneuver order and keeps the first strictly greatest
// positive score. Without any positive score it is ChangeNothing.
func (r Rating) Best() game.Maneuver {
	best := game.ChangeNothing
	top := math.SmallestNonzeroFloat32
	for _, m := range game.Maneuvers {
		if r[m] > top {
			best, top = m, r[m]
		}
	}
	return best
}

func (r Rating) String() string {
	var b strings.Builder
	for i, m := range game.Maneuvers {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%.3f", m, r[m])
	}
	return b.String()
}

// Slice returns the scores as a plain slice for serialisation.
func (r Rating) Slice() []float64 {
	out := make([]float64, len(r))
	copy(out, r[:])
	return out
}
