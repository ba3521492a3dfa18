// Package hostsim is an in-memory host runtime. It hands out opaque refs that
// can be invalidated per entity, which is enough to drive handles through
// every liveness transition without a real game engine.
package hostsim

import (
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/handle"
	"github.com/plus3/tickbridge/objid"
)

var ErrInvalidRef = errors.New("hostsim: invalid ref")

// Entity is the host-side state of one game object.
type Entity struct {
	Type string
	Id   objid.ObjectId
	Name string
	Pos  coord.RoomPosition
	Body []body.Part
	Hits int
}

// Stats counts calls made into the host.
type Stats struct {
	Renews     int64
	Reacquires int64
	Batches    int64
	Reads      int64
}

const blockSize = 64

type slot struct {
	entity Entity
	serial uint32
	live   bool
}

// World stores entities in fixed-size blocks and reuses freed slots. A ref
// is the slot serial in the upper 32 bits and the slot index plus one in
// the lower 32 bits; bumping the serial invalidates every ref issued so far.
//
// World is not safe for concurrent use.
type World struct {
	blocks    [][blockSize]slot
	freeSlots []int
	nextIndex int
	live      int

	ids   map[objid.ObjectId]int
	names map[handle.Key]int
	rooms *intmap.Map[uint32, int]

	fault error
	stats Stats
}

func New() *World {
	return &World{
		ids:   make(map[objid.ObjectId]int),
		names: make(map[handle.Key]int),
		rooms: intmap.New[uint32, int](16),
	}
}

// NewObjectId returns a random full-length id.
func NewObjectId() objid.ObjectId {
	u := uuid.New()
	word := func(i int) uint32 {
		return uint32(u[i])<<24 | uint32(u[i+1])<<16 | uint32(u[i+2])<<8 | uint32(u[i+3])
	}
	id, err := objid.FromWords(word(0), word(4), word(8), objid.TextLen)
	if err != nil {
		panic(err)
	}
	return id
}

func makeRef(serial uint32, index int) handle.Ref {
	return handle.Ref(uint64(serial)<<32 | uint64(index+1))
}

func splitRef(ref handle.Ref) (serial uint32, index int) {
	return uint32(ref >> 32), int(uint32(ref)) - 1
}

func (w *World) slotAt(index int) *slot {
	if index < 0 || index >= w.nextIndex {
		return nil
	}
	return &w.blocks[index/blockSize][index%blockSize]
}

// resolve returns the slot a ref points to if the ref is still current.
func (w *World) resolve(ref handle.Ref) *slot {
	serial, index := splitRef(ref)
	s := w.slotAt(index)
	if s == nil || !s.live || s.serial != serial {
		return nil
	}
	return s
}

// Spawn adds an entity and returns its first ref. Entities without an id or
// a name get a random id. Rooms are indexed by their coordinate as well.
func (w *World) Spawn(e Entity) handle.Ref {
	if !e.Id.IsValid() && e.Name == "" {
		e.Id = NewObjectId()
	}

	var index int
	if n := len(w.freeSlots); n > 0 {
		index = w.freeSlots[n-1]
		w.freeSlots = w.freeSlots[:n-1]
	} else {
		index = w.nextIndex
		w.nextIndex++
		if index/blockSize >= len(w.blocks) {
			w.blocks = append(w.blocks, [blockSize]slot{})
		}
	}

	s := w.slotAt(index)
	s.entity = e
	s.serial++
	s.live = true
	w.live++

	if e.Id.IsValid() {
		w.ids[e.Id] = index
	}
	if e.Name != "" {
		w.names[handle.ByName(e.Pos.Room, e.Name)] = index
	}
	if e.Type == "room" {
		w.rooms.Put(e.Pos.Room.Pack(), index)
	}
	return makeRef(s.serial, index)
}

// SpawnRoom adds the room entity for c, named by its label.
func (w *World) SpawnRoom(c coord.RoomCoord) handle.Ref {
	return w.Spawn(Entity{Type: "room", Name: c.String(), Pos: coord.RoomPosition{Room: c}})
}

// Kill removes the entity behind ref. It reports false if ref is not current.
func (w *World) Kill(ref handle.Ref) bool {
	s := w.resolve(ref)
	if s == nil {
		return false
	}
	_, index := splitRef(ref)
	w.remove(s, index)
	return true
}

// KillId removes the entity with the given id.
func (w *World) KillId(id objid.ObjectId) bool {
	index, ok := w.ids[id]
	if !ok {
		return false
	}
	w.remove(w.slotAt(index), index)
	return true
}

func (w *World) remove(s *slot, index int) {
	e := &s.entity
	if i, ok := w.ids[e.Id]; ok && i == index {
		delete(w.ids, e.Id)
	}
	key := handle.ByName(e.Pos.Room, e.Name)
	if i, ok := w.names[key]; ok && i == index {
		delete(w.names, key)
	}
	if i, ok := w.rooms.Get(e.Pos.Room.Pack()); ok && i == index && e.Type == "room" {
		w.rooms.Del(e.Pos.Room.Pack())
	}
	s.entity = Entity{}
	s.live = false
	s.serial++
	w.freeSlots = append(w.freeSlots, index)
	w.live--
}

// Reissue invalidates ref and returns the entity's new ref. Renew on the
// old ref fails from now on while Reacquire finds the new one.
func (w *World) Reissue(ref handle.Ref) (handle.Ref, bool) {
	s := w.resolve(ref)
	if s == nil {
		return handle.NilRef, false
	}
	_, index := splitRef(ref)
	s.serial++
	return makeRef(s.serial, index), true
}

// ReissueAll invalidates every outstanding ref.
func (w *World) ReissueAll() {
	for index := range w.nextIndex {
		if s := w.slotAt(index); s.live {
			s.serial++
		}
	}
}

// Entity returns the entity behind ref for inspection or mutation. The
// pointer is valid until the entity is killed.
func (w *World) Entity(ref handle.Ref) (*Entity, bool) {
	s := w.resolve(ref)
	if s == nil {
		return nil, false
	}
	return &s.entity, true
}

// Move relocates an entity. Named entities keep the key they were spawned
// with.
func (w *World) Move(ref handle.Ref, pos coord.RoomPosition) error {
	s := w.resolve(ref)
	if s == nil {
		return fmt.Errorf("%w: %#x", ErrInvalidRef, uint64(ref))
	}
	s.entity.Pos = pos
	return nil
}

// RoomRef returns the current ref of the room entity at c.
func (w *World) RoomRef(c coord.RoomCoord) handle.Ref {
	index, ok := w.rooms.Get(c.Pack())
	if !ok {
		return handle.NilRef
	}
	return makeRef(w.slotAt(index).serial, index)
}

// All yields the current ref of every live entity.
func (w *World) All() iter.Seq2[handle.Ref, *Entity] {
	return func(yield func(handle.Ref, *Entity) bool) {
		for index := range w.nextIndex {
			s := w.slotAt(index)
			if !s.live {
				continue
			}
			if !yield(makeRef(s.serial, index), &s.entity) {
				return
			}
		}
	}
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.live }

// InjectFault makes every host call fail with err until cleared with nil.
func (w *World) InjectFault(err error) { w.fault = err }

func (w *World) Stats() Stats { return w.stats }

func (w *World) ResetStats() { w.stats = Stats{} }

func (w *World) Renew(ref handle.Ref) (bool, error) {
	w.stats.Renews++
	if w.fault != nil {
		return false, w.fault
	}
	return w.resolve(ref) != nil, nil
}

// RenewBatch renews many refs in one call.
func (w *World) RenewBatch(refs []handle.Ref) []bool {
	w.stats.Batches++
	live := make([]bool, len(refs))
	if w.fault != nil {
		return live
	}
	for i, ref := range refs {
		live[i] = w.resolve(ref) != nil
	}
	return live
}

func (w *World) Reacquire(key handle.Key) (handle.Ref, error) {
	w.stats.Reacquires++
	if w.fault != nil {
		return handle.NilRef, w.fault
	}

	var (
		index int
		ok    bool
	)
	switch {
	case key.Id.IsValid():
		index, ok = w.ids[key.Id]
	case key.IsNamed():
		index, ok = w.names[key]
	}
	if !ok {
		return handle.NilRef, nil
	}
	return makeRef(w.slotAt(index).serial, index), nil
}

func (w *World) read(ref handle.Ref) (*Entity, error) {
	w.stats.Reads++
	if w.fault != nil {
		return nil, w.fault
	}
	s := w.resolve(ref)
	if s == nil {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidRef, uint64(ref))
	}
	return &s.entity, nil
}

func (w *World) ReadType(ref handle.Ref) (string, error) {
	e, err := w.read(ref)
	if err != nil {
		return "", err
	}
	return e.Type, nil
}

func (w *World) ReadId(ref handle.Ref) (objid.ObjectId, error) {
	e, err := w.read(ref)
	if err != nil {
		return objid.ObjectId{}, err
	}
	return e.Id, nil
}

func (w *World) ReadName(ref handle.Ref) (string, error) {
	e, err := w.read(ref)
	if err != nil {
		return "", err
	}
	return e.Name, nil
}

func (w *World) ReadPosition(ref handle.Ref) (uint32, error) {
	e, err := w.read(ref)
	if err != nil {
		return 0, err
	}
	return e.Pos.Pack(), nil
}

func (w *World) ReadBody(ref handle.Ref) ([]body.Part, error) {
	e, err := w.read(ref)
	if err != nil {
		return nil, err
	}
	return append([]body.Part(nil), e.Body...), nil
}

func (w *World) ReadHits(ref handle.Ref) (int, error) {
	e, err := w.read(ref)
	if err != nil {
		return 0, err
	}
	return e.Hits, nil
}
