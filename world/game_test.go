package world_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/coord"
	"github.com/plus3/tickbridge/handle"
	"github.com/plus3/tickbridge/internal/hostsim"
	"github.com/plus3/tickbridge/objid"
	"github.com/plus3/tickbridge/world"
)

var w5n3 = coord.MustParseRoomCoord("W5N3")

func at(x, y int) coord.RoomPosition {
	return coord.RoomPosition{Position: coord.Position{X: x, Y: y}, Room: w5n3}
}

func spawnCreep(host *hostsim.World, name string) handle.Ref {
	return host.Spawn(hostsim.Entity{
		Type: "creep",
		Id:   hostsim.NewObjectId(),
		Name: name,
		Pos:  at(10, 20),
		Body: []body.Part{body.Work, body.Work, body.Carry, body.Move},
		Hits: 400,
	})
}

func setup(t *testing.T, opts ...world.Option) (*hostsim.World, *world.Game) {
	t.Helper()
	host := hostsim.New()
	return host, world.NewGame(host, opts...)
}

func wrap(t *testing.T, g *world.Game, ref handle.Ref) *world.Object {
	t.Helper()
	o, err := g.Wrap(ref)
	require.NoError(t, err)
	return o
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		tag  string
		kind world.Kind
		caps world.Capability
	}{
		{"creep", world.KindCreep, world.CapIdentity | world.CapName | world.CapPosition | world.CapBody | world.CapHits},
		{"spawn", world.KindSpawn, world.CapIdentity | world.CapName | world.CapPosition | world.CapHits},
		{"flag", world.KindFlag, world.CapName | world.CapPosition},
		{"source", world.KindSource, world.CapIdentity | world.CapPosition},
		{"structure", world.KindStructure, world.CapIdentity | world.CapPosition | world.CapHits},
		{"room", world.KindRoom, world.CapName},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			kind, ok := world.KindOf(tt.tag)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.caps, kind.Capabilities())
			assert.Equal(t, tt.tag, kind.String())
		})
	}

	_, ok := world.KindOf("nuke")
	assert.False(t, ok)
	assert.Equal(t, "unknown", world.KindUnknown.String())
	assert.Equal(t, world.Capability(0), world.KindUnknown.Capabilities())
	assert.Equal(t, "name|position", (world.CapName | world.CapPosition).String())
	assert.Equal(t, "none", world.Capability(0).String())
}

func TestWrapPreservesIdentity(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")

	o := wrap(t, g, ref)
	assert.Equal(t, world.KindCreep, o.Kind())
	assert.Same(t, o, wrap(t, g, ref))

	byId, err := g.ObjectById(o.Id())
	require.NoError(t, err)
	assert.Same(t, o, byId)
}

func TestObjectAttributes(t *testing.T) {
	host, g := setup(t)
	o := wrap(t, g, spawnCreep(host, "Harvester1"))

	name, err := o.Name()
	require.NoError(t, err)
	assert.Equal(t, "Harvester1", name)

	pos, err := o.Position()
	require.NoError(t, err)
	assert.Equal(t, at(10, 20), pos)

	b, err := o.Body()
	require.NoError(t, err)
	assert.True(t, b.Equal(body.MustFromPairs(
		body.Pair[body.Part]{Kind: body.Work, Count: 2},
		body.Pair[body.Part]{Kind: body.Carry, Count: 1},
		body.Pair[body.Part]{Kind: body.Move, Count: 1},
	)))

	hits, err := o.Hits()
	require.NoError(t, err)
	assert.Equal(t, 400, hits)
}

func TestPositionCachedPerTick(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")
	o := wrap(t, g, ref)
	host.ResetStats()

	_, err := o.Position()
	require.NoError(t, err)
	require.NoError(t, host.Move(ref, at(11, 20)))
	pos, err := o.Position()
	require.NoError(t, err)
	assert.Equal(t, at(10, 20), pos, "same tick serves the cached value")
	assert.Equal(t, int64(1), host.Stats().Reads)

	g.Tick()
	pos, err = o.Position()
	require.NoError(t, err)
	assert.Equal(t, at(11, 20), pos)
	assert.Equal(t, hostsim.Stats{Renews: 1, Reads: 2}, host.Stats())
}

func TestNameCachedForLifetime(t *testing.T) {
	host, g := setup(t)
	o := wrap(t, g, spawnCreep(host, "Harvester1"))

	_, err := o.Name()
	require.NoError(t, err)
	host.ResetStats()

	g.Tick()
	name, err := o.Name()
	require.NoError(t, err)
	assert.Equal(t, "Harvester1", name)
	assert.Equal(t, hostsim.Stats{}, host.Stats(), "no host calls, not even a renewal")
}

func TestHitsNotCached(t *testing.T) {
	host, g := setup(t)
	o := wrap(t, g, spawnCreep(host, "Harvester1"))
	host.ResetStats()

	_, err := o.Hits()
	require.NoError(t, err)
	_, err = o.Hits()
	require.NoError(t, err)
	assert.Equal(t, int64(2), host.Stats().Reads)
}

func TestUnsupportedAttribute(t *testing.T) {
	host, g := setup(t)
	flag := wrap(t, g, host.Spawn(hostsim.Entity{Type: "flag", Name: "Flag1", Pos: at(25, 25)}))

	_, err := flag.Body()
	assert.ErrorIs(t, err, world.ErrUnsupported)
	var unsupported *world.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, world.KindFlag, unsupported.Kind)
	assert.Equal(t, world.CapBody, unsupported.Cap)

	_, err = flag.Hits()
	assert.ErrorIs(t, err, world.ErrUnsupported)

	name, err := flag.Name()
	require.NoError(t, err)
	assert.Equal(t, "Flag1", name)
	assert.Equal(t, objid.ObjectId{}, flag.Id())
}

func TestReissuedRefIsReacquired(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")
	o := wrap(t, g, ref)

	g.Tick()
	next, ok := host.Reissue(ref)
	require.True(t, ok)

	assert.True(t, o.Exists())
	assert.Equal(t, next, o.Handle().Peek())
	assert.Equal(t, handle.Fresh, o.Handle().State())
	stats := g.Stats()
	assert.Equal(t, int64(1), stats.Renewals)
	assert.Equal(t, int64(1), stats.Reacquisitions)
}

func TestDeadObject(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")
	o := wrap(t, g, ref)
	id := o.Id()

	require.True(t, host.Kill(ref))
	g.Tick()

	assert.False(t, o.Exists())
	_, err := o.Hits()
	assert.ErrorIs(t, err, handle.ErrEntityGone)
	_, err = o.Position()
	assert.ErrorIs(t, err, handle.ErrEntityGone)

	_, err = g.ObjectById(id)
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestDeadObjectStaysDeadAcrossTicks(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")
	o := wrap(t, g, ref)
	require.True(t, host.Kill(ref))
	g.Tick()
	require.False(t, o.Exists())

	host.ResetStats()
	g.Tick()
	assert.False(t, o.Exists())
	assert.Equal(t, hostsim.Stats{}, host.Stats())
}

func TestNamedObjectFollowsRespawn(t *testing.T) {
	host, g := setup(t)
	first := host.Spawn(hostsim.Entity{Type: "flag", Name: "Flag1", Pos: at(25, 25)})
	o, err := g.ObjectByName(w5n3, "Flag1")
	require.NoError(t, err)

	require.True(t, host.Kill(first))
	host.Spawn(hostsim.Entity{Type: "flag", Name: "Flag1", Pos: at(30, 30)})
	g.Tick()

	again, err := g.ObjectByName(w5n3, "Flag1")
	require.NoError(t, err)
	assert.Same(t, o, again)
	pos, err := again.Position()
	require.NoError(t, err)
	assert.Equal(t, at(30, 30), pos)
}

func TestObjectByNameMissing(t *testing.T) {
	_, g := setup(t)
	_, err := g.ObjectByName(w5n3, "nope")
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestRoom(t *testing.T) {
	host, g := setup(t)
	host.SpawnRoom(w5n3)

	room, err := g.Room(w5n3)
	require.NoError(t, err)
	assert.Equal(t, world.KindRoom, room.Kind())
	name, err := room.Name()
	require.NoError(t, err)
	assert.Equal(t, "W5N3", name)

	again, err := g.Room(w5n3)
	require.NoError(t, err)
	assert.Same(t, room, again)

	_, err = room.Position()
	assert.ErrorIs(t, err, world.ErrUnsupported)

	_, err = g.Room(coord.MustParseRoomCoord("E1S1"))
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestRoomLosesVisibility(t *testing.T) {
	host, g := setup(t)
	ref := host.SpawnRoom(w5n3)
	room, err := g.Room(w5n3)
	require.NoError(t, err)

	require.True(t, host.Kill(ref))
	g.Tick()
	assert.False(t, room.Exists())
	_, err = g.Room(w5n3)
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestWrapErrors(t *testing.T) {
	host, g := setup(t)

	_, err := g.Wrap(handle.NilRef)
	assert.ErrorIs(t, err, world.ErrNotFound)

	_, err = g.Wrap(host.Spawn(hostsim.Entity{Type: "nuke"}))
	assert.ErrorIs(t, err, world.ErrUnknownType)

	ref := spawnCreep(host, "Harvester1")
	require.True(t, host.Kill(ref))
	_, err = g.Wrap(ref)
	assert.ErrorIs(t, err, hostsim.ErrInvalidRef)
}

func TestWrapAdoptsNewRef(t *testing.T) {
	host, g := setup(t)
	ref := spawnCreep(host, "Harvester1")
	o := wrap(t, g, ref)

	g.Tick()
	next, ok := host.Reissue(ref)
	require.True(t, ok)

	assert.Same(t, o, wrap(t, g, next))
	assert.Equal(t, handle.Fresh, o.Handle().State())
	assert.Equal(t, next, o.Handle().Peek())
	assert.Equal(t, int64(0), g.Stats().Renewals)
}

func TestWrapReplacesDeadObject(t *testing.T) {
	host, g := setup(t)
	id := hostsim.NewObjectId()
	ref := host.Spawn(hostsim.Entity{Type: "source", Id: id})
	o := wrap(t, g, ref)

	require.True(t, host.Kill(ref))
	g.Tick()
	require.False(t, o.Exists())

	// the host brings the same id back
	revived := wrap(t, g, host.Spawn(hostsim.Entity{Type: "source", Id: id}))
	assert.NotSame(t, o, revived)
	assert.True(t, revived.Exists())
}

func TestBatchRenew(t *testing.T) {
	host, g := setup(t)
	refs := []handle.Ref{
		spawnCreep(host, "a"),
		spawnCreep(host, "b"),
		spawnCreep(host, "c"),
	}
	objs := make([]*world.Object, len(refs))
	for i, ref := range refs {
		objs[i] = wrap(t, g, ref)
	}

	g.Tick()
	_, ok := host.Reissue(refs[1])
	require.True(t, ok)
	require.True(t, host.Kill(refs[2]))
	host.ResetStats()

	assert.Equal(t, 2, g.BatchRenew(objs))
	assert.Equal(t, hostsim.Stats{Batches: 1, Reacquires: 2}, host.Stats())

	stats := g.Stats()
	assert.Equal(t, int64(1), stats.Batches)
	assert.Equal(t, int64(1), stats.BatchRenewed)
	assert.Equal(t, int64(0), stats.Renewals)
	assert.Equal(t, handle.Dead, objs[2].Handle().State())

	// everything is settled for this tick
	assert.Equal(t, 2, g.BatchRenew(objs))
	assert.Equal(t, int64(1), host.Stats().Batches)
}

func TestBatchRenewDisabled(t *testing.T) {
	host, g := setup(t, world.WithBatchRenew(false))
	objs := []*world.Object{
		wrap(t, g, spawnCreep(host, "a")),
		wrap(t, g, spawnCreep(host, "b")),
	}
	g.Tick()
	host.ResetStats()

	assert.Equal(t, 2, g.BatchRenew(objs))
	assert.Equal(t, hostsim.Stats{Renews: 2}, host.Stats())
}

func TestPrune(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	host, g := setup(t, world.WithPruneInterval(2), world.WithLogger(zap.New(core)))

	keep := wrap(t, g, spawnCreep(host, "keep"))
	ref := spawnCreep(host, "gone")
	gone := wrap(t, g, ref)
	require.Equal(t, 2, g.Cached())

	require.True(t, host.Kill(ref))
	g.Tick()
	require.False(t, gone.Exists())
	require.True(t, keep.Exists())
	assert.Equal(t, 2, g.Cached())

	g.Tick()
	assert.Equal(t, 1, g.Cached())
	assert.Equal(t, int64(1), g.Stats().Pruned)

	entries := logs.FilterMessage("pruned object caches").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["pruned"])
	runtime.KeepAlive(keep)
}

func TestHostFaultsCountAsAbsent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	host, g := setup(t, world.WithLogger(zap.New(core)))
	o := wrap(t, g, spawnCreep(host, "Harvester1"))

	boom := errors.New("boom")
	host.InjectFault(boom)
	g.Tick()

	assert.False(t, o.Exists())
	assert.Equal(t, int64(2), g.Stats().HostErrors)
	assert.Equal(t, 2, logs.FilterMessage("host call failed").Len())

	_, err := g.Wrap(spawnCreep(host, "other"))
	assert.ErrorIs(t, err, boom)
}

func TestTickIndex(t *testing.T) {
	_, g := setup(t)
	assert.Equal(t, int64(0), g.TickIndex())
	g.Tick()
	g.Tick()
	assert.Equal(t, int64(2), g.TickIndex())
}
