package world

import (
	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/handle"
	"github.com/plus3/tickbridge/objid"
)

// Host is the embedding runtime: the liveness calls handles need plus the
// attribute readers used by Object. Positions travel packed, see
// coord.RoomPosition.Pack.
type Host interface {
	handle.Host
	ReadType(ref handle.Ref) (string, error)
	ReadId(ref handle.Ref) (objid.ObjectId, error)
	ReadName(ref handle.Ref) (string, error)
	ReadPosition(ref handle.Ref) (uint32, error)
	ReadBody(ref handle.Ref) ([]body.Part, error)
	ReadHits(ref handle.Ref) (int, error)
}

// BatchRenewer is implemented by hosts that can probe many refs in one
// call. The result is parallel to refs.
type BatchRenewer interface {
	RenewBatch(refs []handle.Ref) []bool
}

// Stats counts the host calls made on behalf of handles.
type Stats struct {
	Renewals       int64
	Reacquisitions int64
	HostErrors     int64
	Batches        int64
	BatchRenewed   int64
	Pruned         int64
}

// trackedHost forwards handle traffic to the host and counts it.
type trackedHost struct {
	g *Game
}

func (t trackedHost) Renew(ref handle.Ref) (bool, error) {
	t.g.stats.Renewals++
	ok, err := t.g.host.Renew(ref)
	if err != nil {
		t.g.hostError("renew", err)
	}
	return ok, err
}

func (t trackedHost) Reacquire(key handle.Key) (handle.Ref, error) {
	t.g.stats.Reacquisitions++
	ref, err := t.g.host.Reacquire(key)
	if err != nil {
		t.g.hostError("reacquire", err)
	}
	return ref, err
}
