package game

// Point is a board coordinate. (0,0) is the top-left cell and y grows downward.
type Point struct {
	X int
	Y int
}

// Vector is a displacement between two points.
type Vector = Point

func (p Point) Add(v Vector) Point { return Point{X: p.X + v.X, Y: p.Y + v.Y} }
func (p Point) Sub(o Point) Vector { return Vector{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point) Scale(k int) Vector { return Vector{X: p.X * k, Y: p.Y * k} }
func (p Point) Neg() Vector        { return Vector{X: -p.X, Y: -p.Y} }

// Neighbours returns the von Neumann neighbourhood of p.
func (p Point) Neighbours() [4]Point {
	return [4]Point{
		{X: p.X, Y: p.Y - 1},
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X - 1, Y: p.Y},
	}
}

// Segment is an axis-aligned line segment between two points, both inclusive.
// A and B may be given in either order.
type Segment struct {
	A Point
	B Point
}

func (s Segment) Horizontal() bool { return s.A.Y == s.B.Y }
func (s Segment) Vertical() bool   { return s.A.X == s.B.X }

func (s Segment) minX() int { return min(s.A.X, s.B.X) }
func (s Segment) maxX() int { return max(s.A.X, s.B.X) }
func (s Segment) minY() int { return min(s.A.Y, s.B.Y) }
func (s Segment) maxY() int { return max(s.A.Y, s.B.Y) }

// Contains reports whether p lies on the segment.
func (s Segment) Contains(p Point) bool {
	if s.Vertical() && p.X == s.A.X {
		return p.Y >= s.minY() && p.Y <= s.maxY()
	}
	if s.Horizontal() && p.Y == s.A.Y {
		return p.X >= s.minX() && p.X <= s.maxX()
	}
	return false
}

// Intersects reports whether the two segments share at least one point.
func (s Segment) Intersects(o Segment) bool {
	// Degenerate single-point segments are both horizontal and vertical, so
	// the containment checks below cover them.
	if (s.Horizontal() && o.Horizontal() && s.A.Y == o.A.Y) ||
		(s.Vertical() && o.Vertical() && s.A.X == o.A.X) {
		return s.Contains(o.A) || s.Contains(o.B) || o.Contains(s.A) || o.Contains(s.B)
	}

	if s.Horizontal() && o.Vertical() {
		return o.A.X >= s.minX() && o.A.X <= s.maxX() && s.A.Y >= o.minY() && s.A.Y <= o.maxY()
	}
	if s.Vertical() && o.Horizontal() {
		return s.A.X >= o.minX() && s.A.X <= o.maxX() && o.A.Y >= s.minY() && o.A.Y <= s.maxY()
	}
	return false
}
