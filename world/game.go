package world

import (
	"fmt"
	"weak"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"

	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/handle"
	"github.com/plus3/tickbridge/objid"
)

const DefaultPruneInterval = 10

type Option func(*Game)

func WithLogger(l *zap.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.log = l
		}
	}
}

// WithPruneInterval sets how many ticks pass between cache sweeps.
// Non-positive values keep the default.
func WithPruneInterval(ticks int) Option {
	return func(g *Game) {
		if ticks > 0 {
			g.pruneInterval = int64(ticks)
		}
	}
}

// WithBatchRenew toggles the use of the host's BatchRenewer, if any.
func WithBatchRenew(enabled bool) Option {
	return func(g *Game) {
		g.batch = enabled
	}
}

// Game is the root of the object graph. It owns the tick counter every
// handle checks its freshness against and hands out one *Object per
// entity for as long as the caller keeps it reachable.
//
// Game is not safe for concurrent use.
type Game struct {
	host          Host
	tracked       trackedHost
	log           *zap.Logger
	tick          int64
	pruneInterval int64
	batch         bool

	byId   map[objid.ObjectId]weak.Pointer[Object]
	byName map[handle.Key]weak.Pointer[Object]
	rooms  *intmap.Map[uint32, weak.Pointer[Object]]

	stats Stats
}

func NewGame(host Host, opts ...Option) *Game {
	g := &Game{
		host:          host,
		log:           zap.NewNop(),
		pruneInterval: DefaultPruneInterval,
		batch:         true,
		byId:          make(map[objid.ObjectId]weak.Pointer[Object]),
		byName:        make(map[handle.Key]weak.Pointer[Object]),
		rooms:         intmap.New[uint32, weak.Pointer[Object]](64),
	}
	g.tracked = trackedHost{g: g}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TickIndex returns the current tick. It starts at zero.
func (g *Game) TickIndex() int64 {
	return g.tick
}

// Tick advances the clock, making every handle stale. Every prune interval
// the wrapper caches drop entries that were collected or died.
func (g *Game) Tick() {
	g.tick++
	if g.tick%g.pruneInterval == 0 {
		g.prune()
	}
}

func (g *Game) Stats() Stats {
	return g.stats
}

// Cached returns the number of entries in the wrapper caches, including
// ones awaiting the next prune.
func (g *Game) Cached() int {
	return len(g.byId) + len(g.byName) + g.rooms.Len()
}

// Wrap returns the object for ref, reusing the cached wrapper when the
// entity is already known. A cached wrapper adopts ref as its current
// reference.
func (g *Game) Wrap(ref handle.Ref) (*Object, error) {
	if ref == handle.NilRef {
		return nil, ErrNotFound
	}
	tag, err := g.host.ReadType(ref)
	if err != nil {
		g.hostError("read type", err)
		return nil, err
	}
	kind, ok := KindOf(tag)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, tag)
	}
	key, name, err := g.keyOf(kind, ref)
	if err != nil {
		g.hostError("read key", err)
		return nil, err
	}

	if o := g.lookup(kind, key); o != nil {
		if err := o.handle.Replace(ref); err == nil {
			return o, nil
		}
	}

	o := newObject(g, kind, key, ref)
	if name != "" {
		o.name.Set(name)
	}
	g.store(o)
	return o, nil
}

// ObjectById returns the live object with the given id.
func (g *Game) ObjectById(id objid.ObjectId) (*Object, error) {
	if o := g.byId[id].Value(); o != nil && o.Exists() {
		return o, nil
	}
	return g.find(handle.ById(id))
}

// ObjectByName returns the live named singleton, such as a flag.
func (g *Game) ObjectByName(room coord.RoomCoord, name string) (*Object, error) {
	key := handle.ByName(room, name)
	if o := g.byName[key].Value(); o != nil && o.Exists() {
		return o, nil
	}
	return g.find(key)
}

// Room returns the room object at c if the host has visibility of it.
func (g *Game) Room(c coord.RoomCoord) (*Object, error) {
	if wp, ok := g.rooms.Get(c.Pack()); ok {
		if o := wp.Value(); o != nil && o.Exists() {
			return o, nil
		}
	}
	return g.find(handle.ByName(c, c.String()))
}

// BatchRenew revalidates every stale object in objs. Hosts implementing
// BatchRenewer are probed once for all of them; objects whose probe fails
// still get a chance to be reacquired. It returns the number of objects
// that are alive afterwards.
func (g *Game) BatchRenew(objs []*Object) int {
	if br, ok := g.host.(BatchRenewer); ok && g.batch {
		var (
			stale []*Object
			refs  []handle.Ref
		)
		for _, o := range objs {
			if o.handle.Stale() && o.handle.Peek() != handle.NilRef {
				stale = append(stale, o)
				refs = append(refs, o.handle.Peek())
			}
		}
		if len(refs) > 0 {
			g.stats.Batches++
			live := br.RenewBatch(refs)
			for i, o := range stale {
				ok := i < len(live) && live[i]
				if ok {
					g.stats.BatchRenewed++
				}
				o.handle.NotifyRenewed(ok)
			}
		}
	}

	alive := 0
	for _, o := range objs {
		if o.Exists() {
			alive++
		}
	}
	return alive
}

func (g *Game) find(key handle.Key) (*Object, error) {
	ref, err := g.tracked.Reacquire(key)
	if err != nil {
		return nil, err
	}
	if ref == handle.NilRef {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return g.Wrap(ref)
}

// keyOf reads the identity of the entity behind ref. Named kinds without a
// position are rooms, whose name is their label.
func (g *Game) keyOf(kind Kind, ref handle.Ref) (handle.Key, string, error) {
	if kind.Has(CapIdentity) {
		id, err := g.host.ReadId(ref)
		if err != nil {
			return handle.Key{}, "", err
		}
		if !id.IsValid() {
			return handle.Key{}, "", fmt.Errorf("world: %s at %#x has no id", kind, uint64(ref))
		}
		return handle.ById(id), "", nil
	}

	name, err := g.host.ReadName(ref)
	if err != nil {
		return handle.Key{}, "", err
	}
	if !kind.Has(CapPosition) {
		room, err := coord.ParseRoomCoord(name)
		if err != nil {
			return handle.Key{}, "", err
		}
		return handle.ByName(room, name), name, nil
	}
	packed, err := g.host.ReadPosition(ref)
	if err != nil {
		return handle.Key{}, "", err
	}
	return handle.ByName(coord.UnpackRoomPosition(packed).Room, name), name, nil
}

func (g *Game) lookup(kind Kind, key handle.Key) *Object {
	switch {
	case kind == KindRoom:
		wp, _ := g.rooms.Get(key.Room.Pack())
		return wp.Value()
	case kind.Has(CapIdentity):
		return g.byId[key.Id].Value()
	default:
		return g.byName[key].Value()
	}
}

func (g *Game) store(o *Object) {
	key := o.Key()
	wp := weak.Make(o)
	switch {
	case o.kind == KindRoom:
		g.rooms.Put(key.Room.Pack(), wp)
	case o.kind.Has(CapIdentity):
		g.byId[key.Id] = wp
	default:
		g.byName[key] = wp
	}
}

func prunable(wp weak.Pointer[Object]) bool {
	o := wp.Value()
	return o == nil || o.handle.State() == handle.Dead
}

func (g *Game) prune() {
	pruned := 0
	for id, wp := range g.byId {
		if prunable(wp) {
			delete(g.byId, id)
			pruned++
		}
	}
	for key, wp := range g.byName {
		if prunable(wp) {
			delete(g.byName, key)
			pruned++
		}
	}

	var deadRooms []uint32
	g.rooms.ForEach(func(packed uint32, wp weak.Pointer[Object]) bool {
		if prunable(wp) {
			deadRooms = append(deadRooms, packed)
		}
		return true
	})
	for _, packed := range deadRooms {
		g.rooms.Del(packed)
	}
	pruned += len(deadRooms)

	g.stats.Pruned += int64(pruned)
	g.log.Debug("pruned object caches",
		zap.Int64("tick", g.tick),
		zap.Int("pruned", pruned),
		zap.Int("cached", g.Cached()),
	)
}

func (g *Game) hostError(op string, err error) {
	g.stats.HostErrors++
	g.log.Debug("host call failed",
		zap.String("op", op),
		zap.Int64("tick", g.tick),
		zap.Error(err),
	)
}
