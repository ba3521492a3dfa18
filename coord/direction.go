package coord

// Direction is one of the eight compass directions, numbered the way the
// host numbers them. DirectionNone is returned when no direction applies.
type Direction uint8

const (
	DirectionNone Direction = iota
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
	TopLeft
)

var directionNames = [...]string{
	DirectionNone: "none",
	Top:           "top",
	TopRight:      "top_right",
	Right:         "right",
	BottomRight:   "bottom_right",
	Bottom:        "bottom",
	BottomLeft:    "bottom_left",
	Left:          "left",
	TopLeft:       "top_left",
}

var directionDeltas = [...][2]int{
	Top:         {0, -1},
	TopRight:    {1, -1},
	Right:       {1, 0},
	BottomRight: {1, 1},
	Bottom:      {0, 1},
	BottomLeft:  {-1, 1},
	Left:        {-1, 0},
	TopLeft:     {-1, -1},
}

// Valid reports whether d is one of the eight compass directions.
func (d Direction) Valid() bool {
	return d >= Top && d <= TopLeft
}

// Linear returns the unit step for d. Invalid directions yield (0, 0).
func (d Direction) Linear() (dx, dy int) {
	if !d.Valid() {
		return 0, 0
	}
	delta := directionDeltas[d]
	return delta[0], delta[1]
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	if !d.Valid() {
		return DirectionNone
	}
	return (d+3)%8 + 1
}

func (d Direction) IsDiagonal() bool {
	return d.Valid() && d%2 == 0
}

func (d Direction) IsStraight() bool {
	return d.Valid() && d%2 == 1
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "invalid"
}
