package world_test

import (
	"fmt"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/internal/hostsim"
	"github.com/plus3/tickbridge/objid"
	"github.com/plus3/tickbridge/world"
)

// ExampleGame follows one creep across ticks. The host reissues its
// reference between ticks, which the object absorbs by reacquiring it by
// id. The initial lookup by id counts as a reacquisition too. Once the
// creep dies every read reports it as gone.
func ExampleGame() {
	host := hostsim.New()
	game := world.NewGame(host)

	id := objid.MustParse("5bbcac4c9099fc012e6362e0")
	ref := host.Spawn(hostsim.Entity{
		Type: "creep",
		Id:   id,
		Name: "Harvester1",
		Pos:  coord.RoomPosition{Position: coord.Position{X: 10, Y: 20}, Room: coord.MustParseRoomCoord("W5N3")},
		Body: []body.Part{body.Work, body.Work, body.Carry, body.Move},
	})

	creep, err := game.ObjectById(id)
	if err != nil {
		panic(err)
	}
	b, _ := creep.Body()
	fmt.Println(b)

	game.Tick()
	next, _ := host.Reissue(ref)
	_ = host.Move(next, coord.RoomPosition{Position: coord.Position{X: 11, Y: 21}, Room: coord.MustParseRoomCoord("W5N3")})
	pos, _ := creep.Position()
	stats := game.Stats()
	fmt.Println(pos, stats.Renewals, stats.Reacquisitions)

	game.Tick()
	host.KillId(id)
	_, err = creep.Position()
	fmt.Println(creep.Exists(), err)

	// Output:
	// Composition(2x work, 1x carry, 1x move)
	// [11,21:W5N3] 1 2
	// false handle: 5bbcac4c9099fc012e6362e0 no longer exists
}
