package handle

import (
	"errors"
	"fmt"
)

// Ref is an opaque reference to an entity living in the host. Refs are only
// valid until the host invalidates them, usually at a tick boundary.
type Ref uint64

// NilRef is the absent reference.
const NilRef Ref = 0

// Clock exposes the global tick counter. It only ever moves forward.
type Clock interface {
	TickIndex() int64
}

// Host is the part of the embedding runtime a Handle calls into.
// Renew is a cheap probe that must not allocate a new reference.
// Reacquire performs a full lookup and returns NilRef when the entity
// cannot be found. Errors from either call count as "not live".
type Host interface {
	Renew(ref Ref) (bool, error)
	Reacquire(key Key) (Ref, error)
}

var ErrEntityGone = errors.New("handle: entity no longer exists")

// GoneError is returned when reading through a dead handle.
type GoneError struct {
	Key Key
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("handle: %s no longer exists", e.Key)
}

func (e *GoneError) Unwrap() error { return ErrEntityGone }

// State is the liveness state of a Handle.
type State uint8

const (
	// Fresh handles were validated during the current tick.
	Fresh State = iota
	// Stale handles were last validated in an earlier tick.
	Stale
	// Dead handles are permanently gone.
	Dead
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Handle caches a host reference across ticks.
//
// Staleness is detected lazily: the first Touch in a new tick renews the
// reference in place, or reacquires it by key when renewal fails. When both
// fail the handle is dead for good; a later entity in the same role needs a
// new Handle. Every successful revalidation advances the cache epoch, which
// empties all PerTick caches bound to the handle at once.
//
// A Handle belongs to exactly one owner and is not safe for concurrent use.
type Handle struct {
	clock     Clock
	host      Host
	key       Key
	ref       Ref
	validAsOf int64
	epoch     uint64
	dead      bool
}

// New wraps ref. A NilRef handle starts stale and will be reacquired by key
// on first use.
func New(clock Clock, host Host, key Key, ref Ref) *Handle {
	h := &Handle{
		clock:     clock,
		host:      host,
		key:       key,
		ref:       ref,
		validAsOf: -1,
		epoch:     1,
	}
	if ref != NilRef {
		h.validAsOf = clock.TickIndex()
	}
	return h
}

func (h *Handle) Key() Key {
	return h.key
}

// Stale reports whether the handle needs revalidation before use.
func (h *Handle) Stale() bool {
	return !h.dead && h.validAsOf < h.clock.TickIndex()
}

func (h *Handle) State() State {
	switch {
	case h.dead:
		return Dead
	case h.validAsOf < h.clock.TickIndex():
		return Stale
	default:
		return Fresh
	}
}

// Touch resolves staleness. It performs no host calls on a fresh handle
// and returns a *GoneError once the handle is dead.
func (h *Handle) Touch() error {
	if h.Stale() {
		h.revalidate()
	}
	if h.dead {
		return &GoneError{Key: h.key}
	}
	return nil
}

// Exists reports whether a Touch would succeed, resolving staleness first.
func (h *Handle) Exists() bool {
	if h.Stale() {
		h.revalidate()
	}
	return !h.dead
}

// Ref touches the handle and returns the current reference.
func (h *Handle) Ref() (Ref, error) {
	if err := h.Touch(); err != nil {
		return NilRef, err
	}
	return h.ref, nil
}

// Peek returns the reference held right now without any validation.
func (h *Handle) Peek() Ref {
	return h.ref
}

// Replace substitutes a reference obtained elsewhere during this tick, for
// example from a bulk lookup. A NilRef kills the handle. Dead handles cannot
// be revived.
func (h *Handle) Replace(ref Ref) error {
	if h.dead {
		return &GoneError{Key: h.key}
	}
	if ref == h.ref && !h.Stale() {
		return nil
	}
	h.ref = ref
	h.validAsOf = h.clock.TickIndex()
	h.epoch++
	if ref == NilRef {
		h.dead = true
	}
	return nil
}

// NotifyRenewed applies the result of a renewal probe made on the handle's
// behalf, as done by batch renewal. A failed probe still falls back to
// reacquisition. It is a no-op unless the handle is stale.
func (h *Handle) NotifyRenewed(live bool) {
	if !h.Stale() {
		return
	}
	h.settle(live)
}

// Kill marks the handle dead without asking the host.
func (h *Handle) Kill() {
	if h.dead {
		return
	}
	h.dead = true
	h.ref = NilRef
	h.epoch++
}

func (h *Handle) revalidate() {
	live := false
	if h.ref != NilRef {
		ok, err := h.host.Renew(h.ref)
		live = ok && err == nil
	}
	h.settle(live)
}

func (h *Handle) settle(live bool) {
	if !live {
		live = h.reacquire()
	}
	h.validAsOf = h.clock.TickIndex()
	h.epoch++
	h.dead = !live
}

func (h *Handle) reacquire() bool {
	h.ref = NilRef
	if h.key.IsZero() {
		return false
	}
	ref, err := h.host.Reacquire(h.key)
	if err != nil {
		return false
	}
	h.ref = ref
	return ref != NilRef
}

func (h *Handle) String() string {
	if h.dead {
		return fmt.Sprintf("Handle[%s](DEAD)", h.key)
	}
	return fmt.Sprintf("Handle[%s](%#x)", h.key, uint64(h.ref))
}
