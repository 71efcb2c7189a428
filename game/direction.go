package game

import "fmt"

// Direction is the heading of a player. The ordinal order matters: turning
// right is +1 and turning left is -1 modulo 4.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists all headings in ordinal order.
var Directions = [4]Direction{Up, Right, Down, Left}

var directionVectors = [4]Vector{
	Up:    {X: 0, Y: -1},
	Right: {X: 1, Y: 0},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
}

var directionNames = [4]string{"up", "right", "down", "left"}

func (d Direction) Vector() Vector        { return directionVectors[d&3] }
func (d Direction) TurnLeft() Direction  { return (d + 3) & 3 }
func (d Direction) TurnRight() Direction { return (d + 1) & 3 }
func (d Direction) Inverse() Direction   { return (d + 2) & 3 }

func (d Direction) String() string {
	if d < Up || d > Left {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection maps the wire name of a direction.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}

// Maneuver is one of the five actions a player can take per tick.
// The enumeration order is the tie-break order when ratings are equal.
type Maneuver int

const (
	TurnLeft Maneuver = iota
	TurnRight
	SlowDown
	SpeedUp
	ChangeNothing
)

// NumManeuvers is the size of the maneuver set.
const NumManeuvers = 5

// Maneuvers lists all maneuvers in enumeration order.
var Maneuvers = [NumManeuvers]Maneuver{TurnLeft, TurnRight, SlowDown, SpeedUp, ChangeNothing}

var maneuverNames = [NumManeuvers]string{"turn_left", "turn_right", "slow_down", "speed_up", "change_nothing"}

func (m Maneuver) String() string {
	if m < TurnLeft || m > ChangeNothing {
		return fmt.Sprintf("Maneuver(%d)", int(m))
	}
	return maneuverNames[m]
}

// ParseManeuver maps the wire name of a maneuver.
func ParseManeuver(s string) (Maneuver, error) {
	for i, name := range maneuverNames {
		if name == s {
			return Maneuver(i), nil
		}
	}
	return ChangeNothing, fmt.Errorf("unknown maneuver %q", s)
}

// Apply returns the direction and speed after taking m.
func (m Maneuver) Apply(d Direction, speed int) (Direction, int) {
	switch m {
	case TurnLeft:
		return d.TurnLeft(), speed
	case TurnRight:
		return d.TurnRight(), speed
	case SlowDown:
		return d, speed - 1
	case SpeedUp:
		return d, speed + 1
	}
	return d, speed
}
