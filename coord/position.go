package coord

import (
	"fmt"
	"math"
)

// RoomSize is the width and height of a room in tiles.
const RoomSize = 50

// Position is a tile inside a room.
type Position struct {
	X, Y int
}

func (p Position) LinearDistanceTo(other Position) int {
	return max(abs(p.X-other.X), abs(p.Y-other.Y))
}

func (p Position) CartesianDistanceTo(other Position) float64 {
	dx, dy := float64(p.X-other.X), float64(p.Y-other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (p Position) IsNextTo(other Position) bool {
	return p.LinearDistanceTo(other) <= 1
}

func (p Position) DirectionTo(other Position) Direction {
	return directionOf(other.X-p.X, other.Y-p.Y)
}

func (p Position) Add(d Direction) Position {
	dx, dy := d.Linear()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// InBounds reports whether p lies inside a room.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < RoomSize && p.Y >= 0 && p.Y < RoomSize
}

func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// RoomPosition is a tile together with the room that contains it.
type RoomPosition struct {
	Position
	Room RoomCoord
}

// Pack encodes the position in one word: the room in bits 16..31 (see
// RoomCoord.Pack), the tile x in bits 8..15 and the tile y in bits 0..7.
func (p RoomPosition) Pack() uint32 {
	return p.Room.Pack() | uint32(uint8(p.X))<<8 | uint32(uint8(p.Y))
}

// UnpackRoomPosition is the inverse of RoomPosition.Pack.
func UnpackRoomPosition(packed uint32) RoomPosition {
	return RoomPosition{
		Position: Position{X: int(packed >> 8 & 0xff), Y: int(packed & 0xff)},
		Room:     UnpackRoomCoord(packed),
	}
}

// LinearDistanceTo measures across room borders as if the world were one
// continuous grid.
func (p RoomPosition) LinearDistanceTo(other RoomPosition) int {
	ax, ay := p.worldXY()
	bx, by := other.worldXY()
	return max(abs(ax-bx), abs(ay-by))
}

func (p RoomPosition) worldXY() (int, int) {
	return p.Room.X*RoomSize + p.X, p.Room.Y*RoomSize + p.Y
}

func (p RoomPosition) String() string {
	return fmt.Sprintf("[%d,%d:%s]", p.X, p.Y, p.Room)
}
