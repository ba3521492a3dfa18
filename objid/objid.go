package objid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// TextLen is the length of a canonical object id in hex characters.
const TextLen = 24

const (
	lenBits = 5
	lenMask = 1<<lenBits - 1
)

var (
	ErrInvalidFormat  = errors.New("objid: invalid format")
	ErrBufferTooSmall = errors.New("objid: buffer too small")
)

// FormatError describes why an id failed to parse.
type FormatError struct {
	Input  string
	Offset int // -1 when the input is too long
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("objid: %q is longer than %d characters", e.Input, TextLen)
	}
	return fmt.Sprintf("objid: invalid hex character %q at offset %d in %q", e.Input[e.Offset], e.Offset, e.Input)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

// ObjectId is the identity of a host entity.
// The host uses 24 character hex strings; ObjectId keeps the 96 decoded bits
// in three words so that comparing or hashing an id never touches a string.
// Shorter ids are treated as right-padded with '0' and remember their
// original length, so two ids of different lengths are never equal.
//
// The zero value is the empty id. ObjectId is comparable and can be used
// directly as a map key.
type ObjectId struct {
	tag     uint32 // hash<<lenBits | significant length
	a, b, c uint32
}

// Parse decodes up to 24 hex characters, case-insensitively.
func Parse(s string) (ObjectId, error) {
	return decode(s)
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) ObjectId {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseBytes decodes ASCII hex terminated either by the first zero byte or
// by the end of b.
func ParseBytes(b []byte) (ObjectId, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return decode(b)
}

// FromWords builds an id from the host's raw form: three big-endian words
// and the number of significant hex characters. Nibbles beyond n must be zero.
func FromWords(a, b, c uint32, n int) (ObjectId, error) {
	if n < 0 || n > TextLen {
		return ObjectId{}, fmt.Errorf("%w: length %d out of range", ErrInvalidFormat, n)
	}
	words := [3]uint32{a, b, c}
	for i := n; i < TextLen; i++ {
		if nibbleAt(&words, i) != 0 {
			return ObjectId{}, fmt.Errorf("%w: non-zero padding at offset %d", ErrInvalidFormat, i)
		}
	}
	return newObjectId(a, b, c, n), nil
}

func decode[T string | []byte](s T) (ObjectId, error) {
	if len(s) > TextLen {
		return ObjectId{}, &FormatError{Input: string(s), Offset: -1}
	}
	var words [3]uint32
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !isHex(ch) {
			return ObjectId{}, &FormatError{Input: string(s), Offset: i}
		}
		words[i>>3] |= nibble(ch) << (28 - 4*(i&7))
	}
	return newObjectId(words[0], words[1], words[2], len(s)), nil
}

func newObjectId(a, b, c uint32, n int) ObjectId {
	if n == 0 {
		return ObjectId{}
	}
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:], a)
	binary.BigEndian.PutUint32(buf[4:], b)
	binary.BigEndian.PutUint32(buf[8:], c)
	h := uint32(xxhash.Sum64(buf[:]))
	return ObjectId{tag: h<<lenBits | uint32(n), a: a, b: b, c: c}
}

// IsValid reports whether any decoded bit is set.
func (id ObjectId) IsValid() bool {
	return id.a != 0 || id.b != 0 || id.c != 0
}

// Len returns the number of significant hex characters.
func (id ObjectId) Len() int {
	return int(id.tag & lenMask)
}

// Words returns the raw big-endian words.
func (id ObjectId) Words() (a, b, c uint32) {
	return id.a, id.b, id.c
}

// Hash returns the precomputed hash/length tag.
func (id ObjectId) Hash() uint32 {
	return id.tag
}

// Equal compares the tag first and then the three words.
func (id ObjectId) Equal(other ObjectId) bool {
	return id.tag == other.tag && id.a == other.a && id.b == other.b && id.c == other.c
}

// AppendText appends the lowercase hex form to b.
func (id ObjectId) AppendText(b []byte) ([]byte, error) {
	words := [3]uint32{id.a, id.b, id.c}
	n := id.Len()
	for i := 0; i < n; i++ {
		b = append(b, hexDigit(nibbleAt(&words, i)))
	}
	return b, nil
}

// PutBytes writes the hex form into dst and zero-terminates it if there is
// room. It returns the number of hex characters written.
func (id ObjectId) PutBytes(dst []byte) (int, error) {
	n := id.Len()
	if len(dst) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, n, len(dst))
	}
	id.AppendText(dst[:0])
	if len(dst) > n {
		dst[n] = 0
	}
	return n, nil
}

// Bytes returns the hex form as a new byte slice.
func (id ObjectId) Bytes() []byte {
	b, _ := id.AppendText(make([]byte, 0, id.Len()))
	return b
}

func (id ObjectId) String() string {
	var buf [TextLen]byte
	b, _ := id.AppendText(buf[:0])
	return string(b)
}

func (id ObjectId) MarshalText() ([]byte, error) {
	return id.Bytes(), nil
}

func (id *ObjectId) UnmarshalText(text []byte) error {
	v, err := decode(text)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func nibbleAt(words *[3]uint32, i int) uint32 {
	return words[i>>3] >> (28 - 4*(i&7)) & 0xf
}

// nibble converts an ASCII hex digit without branching. '0'..'9' have bit 6
// clear; 'a'..'f' and 'A'..'F' have it set and a low nibble of 1..6.
func nibble(ch byte) uint32 {
	return uint32(ch&0xf) + 9*uint32(ch>>6)
}

// hexDigit is the inverse of nibble, emitting lowercase.
func hexDigit(n uint32) byte {
	d := int32(n)
	return byte('0' + d + ((9 - d) >> 31 & 39))
}

func isHex(ch byte) bool {
	return ch-'0' < 10 || (ch|0x20)-'a' < 6
}
