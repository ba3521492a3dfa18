package body

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPart = errors.New("body: unknown part")

// Part is the kind of a creep body part.
type Part uint8

const (
	Move Part = iota
	Work
	Carry
	Attack
	RangedAttack
	Tough
	Heal
	Claim
)

var partNames = [...]string{
	Move:         "move",
	Work:         "work",
	Carry:        "carry",
	Attack:       "attack",
	RangedAttack: "ranged_attack",
	Tough:        "tough",
	Heal:         "heal",
	Claim:        "claim",
}

var partsByName = func() map[string]Part {
	m := make(map[string]Part, len(partNames))
	for p, name := range partNames {
		m[name] = Part(p)
	}
	return m
}()

func (p Part) String() string {
	if int(p) < len(partNames) {
		return partNames[p]
	}
	return fmt.Sprintf("Part(%d)", uint8(p))
}

// ParsePart accepts the host's part names, case-insensitively.
func ParsePart(name string) (Part, error) {
	if p, ok := partsByName[strings.ToLower(name)]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPart, name)
}

// ParseParts parses a list of part names in order.
func ParseParts(names []string) ([]Part, error) {
	parts := make([]Part, len(names))
	for i, name := range names {
		p, err := ParsePart(name)
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return parts, nil
}

func (p Part) MarshalText() ([]byte, error) {
	if int(p) >= len(partNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPart, uint8(p))
	}
	return []byte(partNames[p]), nil
}

func (p *Part) UnmarshalText(text []byte) error {
	v, err := ParsePart(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
