package world

import (
	"errors"
	"fmt"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/handle"
	"github.com/plus3/tickbridge/objid"
)

var (
	ErrUnsupported = errors.New("world: attribute not supported by kind")
	ErrUnknownType = errors.New("world: unknown type tag")
	ErrNotFound    = errors.New("world: object not found")
)

// UnsupportedError reports a read of an attribute group the kind lacks.
type UnsupportedError struct {
	Kind Kind
	Cap  Capability
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("world: %s has no %s", e.Kind, e.Cap)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Object wraps one host entity. Attribute reads go through the handle so a
// stale reference is renewed before use; a dead handle yields
// handle.ErrEntityGone.
type Object struct {
	kind   Kind
	handle *handle.Handle
	name   handle.Lifetime[string]
	pos    handle.PerTick[coord.RoomPosition]
	body   handle.PerTick[body.Composition[body.Part]]
	game   *Game
}

func newObject(g *Game, kind Kind, key handle.Key, ref handle.Ref) *Object {
	h := handle.New(g, g.tracked, key, ref)
	o := &Object{kind: kind, handle: h, game: g}
	o.name = handle.NewLifetime(h, g.host.ReadName)
	o.pos = handle.NewPerTick(h, func(ref handle.Ref) (coord.RoomPosition, error) {
		packed, err := g.host.ReadPosition(ref)
		if err != nil {
			return coord.RoomPosition{}, err
		}
		return coord.UnpackRoomPosition(packed), nil
	})
	o.body = handle.NewPerTick(h, func(ref handle.Ref) (body.Composition[body.Part], error) {
		parts, err := g.host.ReadBody(ref)
		if err != nil {
			return body.Composition[body.Part]{}, err
		}
		return body.FromSequence(parts), nil
	})
	return o
}

func (o *Object) Kind() Kind { return o.kind }

func (o *Object) Handle() *handle.Handle { return o.handle }

func (o *Object) Key() handle.Key { return o.handle.Key() }

// Id returns the object's id, or the zero id for named singletons.
func (o *Object) Id() objid.ObjectId { return o.handle.Key().Id }

func (o *Object) Exists() bool { return o.handle.Exists() }

func (o *Object) Touch() error { return o.handle.Touch() }

func (o *Object) require(c Capability) error {
	if !o.kind.Has(c) {
		return &UnsupportedError{Kind: o.kind, Cap: c}
	}
	return nil
}

// Name is read once and kept for the object's lifetime.
func (o *Object) Name() (string, error) {
	if err := o.require(CapName); err != nil {
		return "", err
	}
	return o.name.Get()
}

// Position is read at most once per tick.
func (o *Object) Position() (coord.RoomPosition, error) {
	if err := o.require(CapPosition); err != nil {
		return coord.RoomPosition{}, err
	}
	return o.pos.Get()
}

// Body is read at most once per tick.
func (o *Object) Body() (body.Composition[body.Part], error) {
	if err := o.require(CapBody); err != nil {
		return body.Composition[body.Part]{}, err
	}
	return o.body.Get()
}

// Hits is read from the host on every call.
func (o *Object) Hits() (int, error) {
	if err := o.require(CapHits); err != nil {
		return 0, err
	}
	ref, err := o.handle.Ref()
	if err != nil {
		return 0, err
	}
	return o.game.host.ReadHits(ref)
}

func (o *Object) String() string {
	return fmt.Sprintf("%s%s", o.kind, o.handle)
}
