package body

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var ErrInvalidCount = errors.New("body: pair count must be positive")

// Kind is any integer enum usable as a part kind.
type Kind interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Pair is a run of Count consecutive parts of the same kind.
type Pair[K Kind] struct {
	Kind  K
	Count int
}

// Composition is a run-length encoded, ordered sequence of part kinds.
// It is immutable once built. The zero value is an empty, invalid composition.
type Composition[K Kind] struct {
	pairs []Pair[K]
	total int
	hash  uint64
}

// FromSequence builds a composition from an ordered list of kinds, merging
// only adjacent repeats: [a a b a] becomes [(a,2) (b,1) (a,1)].
func FromSequence[K Kind](items []K) Composition[K] {
	return Collect(slices.Values(items))
}

// Collect is FromSequence over an iterator.
func Collect[K Kind](items iter.Seq[K]) Composition[K] {
	var pairs []Pair[K]
	total := 0
	for kind := range items {
		if n := len(pairs); n > 0 && pairs[n-1].Kind == kind {
			pairs[n-1].Count++
		} else {
			pairs = append(pairs, Pair[K]{Kind: kind, Count: 1})
		}
		total++
	}
	return newComposition(pairs, total)
}

// FromPairs copies pairs verbatim. Adjacent pairs of the same kind are kept
// apart rather than merged, so FromPairs([(a,1) (a,1)]) differs from
// FromSequence([a a]) even though both expand to the same sequence.
func FromPairs[K Kind](pairs []Pair[K]) (Composition[K], error) {
	total := 0
	for i, p := range pairs {
		if p.Count <= 0 {
			return Composition[K]{}, fmt.Errorf("%w: pair %d has count %d", ErrInvalidCount, i, p.Count)
		}
		total += p.Count
	}
	return newComposition(slices.Clone(pairs), total), nil
}

// MustFromPairs is like FromPairs but panics on a non-positive count.
func MustFromPairs[K Kind](pairs ...Pair[K]) Composition[K] {
	c, err := FromPairs(pairs)
	if err != nil {
		panic(err)
	}
	return c
}

func newComposition[K Kind](pairs []Pair[K], total int) Composition[K] {
	return Composition[K]{pairs: pairs, total: total, hash: hashPairs(pairs)}
}

func hashPairs[K Kind](pairs []Pair[K]) uint64 {
	if len(pairs) == 0 {
		return 0
	}
	d := xxhash.New()
	var buf [16]byte
	for _, p := range pairs {
		binary.LittleEndian.PutUint64(buf[0:], uint64(p.Kind))
		binary.LittleEndian.PutUint64(buf[8:], uint64(p.Count))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// IsValid reports whether the composition has at least one part.
func (c Composition[K]) IsValid() bool {
	return len(c.pairs) > 0
}

// Len returns the total number of parts.
func (c Composition[K]) Len() int {
	return c.total
}

// Pairs returns a copy of the run list.
func (c Composition[K]) Pairs() []Pair[K] {
	return slices.Clone(c.pairs)
}

// Hash returns the precomputed content hash.
func (c Composition[K]) Hash() uint64 {
	return c.hash
}

// Expand yields every part in order. The iterator can be ranged over any
// number of times.
func (c Composition[K]) Expand() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, p := range c.pairs {
			for range p.Count {
				if !yield(p.Kind) {
					return
				}
			}
		}
	}
}

// CountOf sums the counts of every run of kind.
func (c Composition[K]) CountOf(kind K) int {
	n := 0
	for _, p := range c.pairs {
		if p.Kind == kind {
			n += p.Count
		}
	}
	return n
}

func (c Composition[K]) Has(kind K) bool {
	return c.CountOf(kind) > 0
}

// Index returns the position of the first part of kind in the expanded
// sequence, or -1.
func (c Composition[K]) Index(kind K) int {
	offset := 0
	for _, p := range c.pairs {
		if p.Kind == kind {
			return offset
		}
		offset += p.Count
	}
	return -1
}

// LastIndex returns the position of the last part of kind in the expanded
// sequence, or -1.
func (c Composition[K]) LastIndex(kind K) int {
	offset := c.total
	for i := len(c.pairs) - 1; i >= 0; i-- {
		p := c.pairs[i]
		if p.Kind == kind {
			return offset - 1
		}
		offset -= p.Count
	}
	return -1
}

// Equal compares hashes first and then the exact run list.
func (c Composition[K]) Equal(other Composition[K]) bool {
	if c.hash != other.hash {
		return false
	}
	return slices.Equal(c.pairs, other.pairs)
}

func (c Composition[K]) String() string {
	if !c.IsValid() {
		return "Composition(invalid)"
	}
	var sb strings.Builder
	sb.WriteString("Composition(")
	for i, p := range c.pairs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%dx %v", p.Count, p.Kind)
	}
	sb.WriteByte(')')
	return sb.String()
}
