package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionTurns(t *testing.T) {
	for _, d := range Directions {
		assert.Equal(t, d, d.TurnLeft().TurnRight(), "left then right from %s", d)
		assert.Equal(t, d, d.Inverse().Inverse(), "double inverse from %s", d)
		assert.Equal(t, d.Vector().Neg(), d.Inverse().Vector(), "inverse vector of %s", d)
	}
	assert.Equal(t, Left, Up.TurnLeft())
	assert.Equal(t, Right, Up.TurnRight())
	assert.Equal(t, Point{X: 0, Y: -1}, Up.Vector())
}

func TestParseNames(t *testing.T) {
	for _, m := range Maneuvers {
		got, err := ParseManeuver(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	for _, d := range Directions {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseManeuver("jump")
	assert.Error(t, err)
	_, err = ParseDirection("north")
	assert.Error(t, err)
}

func TestManeuverApply(t *testing.T) {
	cases := []struct {
		m     Maneuver
		dir   Direction
		speed int
	}{
		{TurnLeft, Left, 3},
		{TurnRight, Right, 3},
		{SlowDown, Up, 2},
		{SpeedUp, Up, 4},
		{ChangeNothing, Up, 3},
	}
	for _, tc := range cases {
		d, s := tc.m.Apply(Up, 3)
		assert.Equal(t, tc.dir, d, tc.m.String())
		assert.Equal(t, tc.speed, s, tc.m.String())
	}
}

func TestSegmentIntersects(t *testing.T) {
	h := Segment{A: Point{1, 5}, B: Point{6, 5}}
	v := Segment{A: Point{3, 2}, B: Point{3, 8}}
	farV := Segment{A: Point{9, 2}, B: Point{9, 8}}
	overlapH := Segment{A: Point{6, 5}, B: Point{10, 5}}
	parallelH := Segment{A: Point{1, 6}, B: Point{6, 6}}
	dot := Segment{A: Point{3, 5}, B: Point{3, 5}}
	offDot := Segment{A: Point{4, 4}, B: Point{4, 4}}

	cases := []struct {
		name string
		a, b Segment
		want bool
	}{
		{"cross", h, v, true},
		{"miss", h, farV, false},
		{"collinear touching", h, overlapH, true},
		{"parallel", h, parallelH, false},
		{"point on horizontal", h, dot, true},
		{"point on vertical", v, dot, true},
		{"point off", h, offDot, false},
		{"same point", dot, dot, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.a.Intersects(tc.b), "%s: a∩b", tc.name)
		assert.Equal(t, tc.want, tc.b.Intersects(tc.a), "%s: b∩a", tc.name)
	}
}

func TestBoardFromRows(t *testing.T) {
	b, err := BoardFromRows([][]int{
		{0, 1, 0},
		{0, -1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, int8(1), b.Get(Point{1, 0}))
	assert.Equal(t, Multiple, b.Get(Point{1, 1}))
	assert.Equal(t, OutOfBounds, b.Get(Point{3, 0}))
	assert.Equal(t, OutOfBounds, b.Get(Point{0, -1}))
	assert.Equal(t, ".1.\n.X2\n", b.String())

	_, err = BoardFromRows([][]int{{0, 0}, {0}})
	assert.Error(t, err)
	_, err = BoardFromRows([][]int{{0, 9}})
	assert.Error(t, err)
}

func TestBoardClaim(t *testing.T) {
	b := NewBoard(3, 3)
	b.Claim(Point{1, 1}, 2)
	assert.Equal(t, int8(2), b.Get(Point{1, 1}))
	b.Claim(Point{1, 1}, 3)
	assert.Equal(t, Multiple, b.Get(Point{1, 1}), "second claim shares the cell\n%s", b)

	clone := b.Clone()
	clone.Set(Point{0, 0}, 4)
	assert.True(t, b.IsEmpty(Point{0, 0}))
}

func TestGameStateOpponents(t *testing.T) {
	s := &GameState{
		You: 2,
		Players: map[int]Player{
			3: {ID: 3, Active: true},
			1: {ID: 1, Active: true},
			2: {ID: 2, Active: true},
			4: {ID: 4, Active: false},
		},
	}
	opp := s.Opponents()
	require.Len(t, opp, 2)
	assert.Equal(t, 1, opp[0].ID)
	assert.Equal(t, 3, opp[1].ID)
	assert.Equal(t, 3, s.ActivePlayers())

	me, ok := s.Me()
	require.True(t, ok)
	assert.Equal(t, 2, me.ID)
}
