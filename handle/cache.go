package handle

import "errors"

// ErrNotLoaded is returned by a Lifetime cache that has no loader and was
// never seeded.
var ErrNotLoaded = errors.New("handle: lifetime value was never set")

// PerTick caches a value derived from a handle's reference until the handle
// is next revalidated. Every read touches the handle first, so staleness is
// resolved before a possibly outdated value is returned.
type PerTick[T any] struct {
	h     *Handle
	load  func(ref Ref) (T, error)
	value T
	epoch uint64
}

func NewPerTick[T any](h *Handle, load func(ref Ref) (T, error)) PerTick[T] {
	return PerTick[T]{h: h, load: load}
}

// Get returns the cached value, loading it at most once per tick.
// Load errors are returned and nothing is cached.
func (c *PerTick[T]) Get() (T, error) {
	var zero T
	if err := c.h.Touch(); err != nil {
		return zero, err
	}
	if c.epoch != c.h.epoch {
		v, err := c.load(c.h.ref)
		if err != nil {
			return zero, err
		}
		c.value = v
		c.epoch = c.h.epoch
	}
	return c.value, nil
}

// Cached reports whether a value for the current epoch is held, without
// touching the handle.
func (c *PerTick[T]) Cached() bool {
	return c.epoch == c.h.epoch
}

// Lifetime caches a value the host guarantees never changes for the
// entity's identity, such as a name chosen at creation.
type Lifetime[T any] struct {
	h      *Handle
	load   func(ref Ref) (T, error)
	value  T
	filled bool
}

func NewLifetime[T any](h *Handle, load func(ref Ref) (T, error)) Lifetime[T] {
	return Lifetime[T]{h: h, load: load}
}

// Get returns the value, loading it through a live handle the first time.
// Once populated it never touches the handle again.
func (c *Lifetime[T]) Get() (T, error) {
	if c.filled {
		return c.value, nil
	}
	var zero T
	if c.load == nil {
		return zero, ErrNotLoaded
	}
	ref, err := c.h.Ref()
	if err != nil {
		return zero, err
	}
	v, err := c.load(ref)
	if err != nil {
		return zero, err
	}
	c.Set(v)
	return v, nil
}

// Set seeds the cache, typically at construction when the value is already
// known.
func (c *Lifetime[T]) Set(v T) {
	c.value = v
	c.filled = true
}

func (c *Lifetime[T]) Filled() bool {
	return c.filled
}
