package coord

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// MinRoom and MaxRoom bound each axis of a label-representable room.
	MinRoom = -100
	MaxRoom = 99

	simValue = -128
	simLabel = "sim"

	roomOffset = 128
)

var ErrInvalidFormat = errors.New("coord: invalid format")

// LabelError reports a room label that does not match <E|W><n><N|S><n>.
type LabelError struct {
	Label string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("coord: room name %q does not follow the standard pattern", e.Label)
}

func (e *LabelError) Unwrap() error { return ErrInvalidFormat }

// RoomCoord is the coordinate of a room on the world map.
// East and South are zero or positive; West and North are negative, with
// the label holding the magnitude minus one, so W0 is -1 and N3 is -4.
type RoomCoord struct {
	X, Y int
}

// Sim is the coordinate of the simulation room.
var Sim = RoomCoord{X: simValue, Y: simValue}

func (c RoomCoord) IsSim() bool {
	return c == Sim
}

// ParseRoomCoord parses a room label such as "W5N3" or "sim".
// Letters are accepted in either case.
func ParseRoomCoord(label string) (RoomCoord, error) {
	if len(label) == len(simLabel) && (label[0]|0x20) == 's' && (label[1]|0x20) == 'i' && (label[2]|0x20) == 'm' {
		return Sim, nil
	}
	x, rest, ok := parseAxis(label, 'e', 'w')
	if !ok {
		return RoomCoord{}, &LabelError{Label: label}
	}
	y, rest, ok := parseAxis(rest, 's', 'n')
	if !ok || len(rest) != 0 {
		return RoomCoord{}, &LabelError{Label: label}
	}
	return RoomCoord{X: x, Y: y}, nil
}

// MustParseRoomCoord is like ParseRoomCoord but panics on malformed input.
func MustParseRoomCoord(label string) RoomCoord {
	c, err := ParseRoomCoord(label)
	if err != nil {
		panic(err)
	}
	return c
}

// parseAxis consumes one letter and one or two digits. pos is the lowercase
// letter for the non-negative half.
func parseAxis(s string, pos, neg byte) (int, string, bool) {
	if len(s) < 2 {
		return 0, s, false
	}
	letter := s[0] | 0x20
	if letter != pos && letter != neg {
		return 0, s, false
	}
	n, digits := 0, 0
	for digits < 2 && 1+digits < len(s) && isDigit(s[1+digits]) {
		n = n*10 + int(s[1+digits]-'0')
		digits++
	}
	if digits == 0 {
		return 0, s, false
	}
	if letter == neg {
		n = -n - 1
	}
	return n, s[1+digits:], true
}

func isDigit(ch byte) bool {
	return ch-'0' < 10
}

// String returns the canonical label, for example "W5N3".
func (c RoomCoord) String() string {
	var buf [8]byte
	return string(c.AppendLabel(buf[:0]))
}

// AppendLabel appends the canonical label to b.
func (c RoomCoord) AppendLabel(b []byte) []byte {
	if c.IsSim() {
		return append(b, simLabel...)
	}
	b = appendAxis(b, c.X, 'E', 'W')
	return appendAxis(b, c.Y, 'S', 'N')
}

func appendAxis(b []byte, v int, pos, neg byte) []byte {
	if v < 0 {
		return strconv.AppendInt(append(b, neg), int64(-v-1), 10)
	}
	return strconv.AppendInt(append(b, pos), int64(v), 10)
}

func (c RoomCoord) MarshalText() ([]byte, error) {
	return c.AppendLabel(nil), nil
}

func (c *RoomCoord) UnmarshalText(text []byte) error {
	v, err := ParseRoomCoord(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// LinearDistanceTo returns the Chebyshev distance, which is what range and
// visibility rules use.
func (c RoomCoord) LinearDistanceTo(other RoomCoord) int {
	return max(abs(c.X-other.X), abs(c.Y-other.Y))
}

// CartesianDistanceTo returns the Euclidean distance. Use it for path
// heuristics only, never for range checks.
func (c RoomCoord) CartesianDistanceTo(other RoomCoord) float64 {
	dx, dy := float64(c.X-other.X), float64(c.Y-other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (c RoomCoord) IsNextTo(other RoomCoord) bool {
	return c.LinearDistanceTo(other) <= 1
}

// DirectionTo returns the compass direction from c towards other, or
// DirectionNone if they are equal.
func (c RoomCoord) DirectionTo(other RoomCoord) Direction {
	return directionOf(other.X-c.X, other.Y-c.Y)
}

// Sub is the operator form of DirectionTo: a.Sub(b) == b.DirectionTo(a).
func (c RoomCoord) Sub(other RoomCoord) Direction {
	return other.DirectionTo(c)
}

func (c RoomCoord) Offset(dx, dy int) RoomCoord {
	return RoomCoord{X: c.X + dx, Y: c.Y + dy}
}

func (c RoomCoord) Add(d Direction) RoomCoord {
	dx, dy := d.Linear()
	return c.Offset(dx, dy)
}

// Step moves n rooms in direction d. Negative n moves backwards.
func (c RoomCoord) Step(d Direction, n int) RoomCoord {
	dx, dy := d.Linear()
	return c.Offset(dx*n, dy*n)
}

// Pack stores the room in bits 16..31 of a word, each axis offset by 128 so
// it fits an unsigned byte. The simulation room packs to zero.
func (c RoomCoord) Pack() uint32 {
	return uint32(uint8(c.X+roomOffset))<<24 | uint32(uint8(c.Y+roomOffset))<<16
}

// UnpackRoomCoord is the inverse of Pack. Bits 0..15 are ignored.
func UnpackRoomCoord(packed uint32) RoomCoord {
	return RoomCoord{
		X: int(packed>>24&0xff) - roomOffset,
		Y: int(packed>>16&0xff) - roomOffset,
	}
}

func directionOf(dx, dy int) Direction {
	if dx == 0 && dy == 0 {
		return DirectionNone
	}
	ang := math.Atan2(float64(dy), float64(dx)) + math.Pi/2
	if ang < 0 {
		ang += 2 * math.Pi
	}
	return Direction(int(math.Round(ang/(math.Pi/4)))%8 + 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
