package handle

import (
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/objid"
)

// Key is the identity used to look an entity up again from scratch.
// Entities with a database id use Id; named singletons such as flags and
// spawns use Room and Name.
type Key struct {
	Id   objid.ObjectId
	Room coord.RoomCoord
	Name string
}

func ById(id objid.ObjectId) Key {
	return Key{Id: id}
}

func ByName(room coord.RoomCoord, name string) Key {
	return Key{Room: room, Name: name}
}

// IsZero reports whether the key identifies nothing, in which case a lost
// handle cannot be reacquired.
func (k Key) IsZero() bool {
	return k.Id == objid.ObjectId{} && k.Name == ""
}

func (k Key) IsNamed() bool {
	return k.Name != ""
}

func (k Key) String() string {
	switch {
	case k.IsNamed():
		return k.Room.String() + "/" + k.Name
	case k.IsZero():
		return "<anonymous>"
	default:
		return k.Id.String()
	}
}
