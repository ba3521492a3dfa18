package world

import (
	"fmt"
	"strings"
)

// Kind is the closed set of entity variants the world knows how to wrap.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCreep
	KindSpawn
	KindFlag
	KindSource
	KindStructure
	KindRoom
	kindCount
)

// Capability is a bit set of the attribute groups a kind exposes.
type Capability uint8

const (
	// CapIdentity kinds have an object id and are keyed by it.
	// Kinds without it are named singletons keyed by room and name.
	CapIdentity Capability = 1 << iota
	CapName
	CapPosition
	CapBody
	CapHits
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapIdentity, "identity"},
	{CapName, "name"},
	{CapPosition, "position"},
	{CapBody, "body"},
	{CapHits, "hits"},
}

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c&cn.cap != 0 {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

type kindSpec struct {
	kind Kind
	tag  string // type tag reported by the host
	caps Capability
}

// kindSpecs is the dispatch data. kindTable and kindsByTag are derived from
// it once at startup.
var kindSpecs = []kindSpec{
	{KindCreep, "creep", CapIdentity | CapName | CapPosition | CapBody | CapHits},
	{KindSpawn, "spawn", CapIdentity | CapName | CapPosition | CapHits},
	{KindFlag, "flag", CapName | CapPosition},
	{KindSource, "source", CapIdentity | CapPosition},
	{KindStructure, "structure", CapIdentity | CapPosition | CapHits},
	{KindRoom, "room", CapName},
}

var (
	kindTable  [kindCount]kindSpec
	kindsByTag = make(map[string]Kind, len(kindSpecs))
)

func init() {
	for _, spec := range kindSpecs {
		if spec.kind == KindUnknown || spec.kind >= kindCount {
			panic(fmt.Sprintf("world: kind spec %q has out of range kind %d", spec.tag, spec.kind))
		}
		if _, dup := kindsByTag[spec.tag]; dup {
			panic("world: duplicate kind tag " + spec.tag)
		}
		if spec.caps&CapIdentity == 0 && spec.caps&CapName == 0 {
			panic("world: kind " + spec.tag + " has neither identity nor name")
		}
		kindTable[spec.kind] = spec
		kindsByTag[spec.tag] = spec.kind
	}
}

// KindOf maps a host type tag to its Kind.
func KindOf(tag string) (Kind, bool) {
	k, ok := kindsByTag[tag]
	return k, ok
}

// Capabilities returns what attributes a kind exposes.
func (k Kind) Capabilities() Capability {
	if k >= kindCount {
		return 0
	}
	return kindTable[k].caps
}

func (k Kind) Has(c Capability) bool {
	return k.Capabilities()&c == c
}

func (k Kind) String() string {
	if k == KindUnknown || k >= kindCount {
		return "unknown"
	}
	return kindTable[k].tag
}
