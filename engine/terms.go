package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Numeric terms are fixed-width big-endian with the sign bit flipped, so that
// byte-lexicographic order of the terms matches numeric order. The leading
// tag byte keeps 32-bit and 64-bit terms apart.
const (
	tagInt64 byte = 0x20
	tagInt32 byte = 0x60

	int32TermLen = 1 + 4
	int64TermLen = 1 + 8
)

// fieldSep separates the field name from the term in postings keys.
const fieldSep = 0x00

func EncodeInt32(v int32) []byte {
	buf := make([]byte, int32TermLen)
	buf[0] = tagInt32
	binary.BigEndian.PutUint32(buf[1:], uint32(v)^(1<<31))
	return buf
}

func DecodeInt32(term []byte) (int32, error) {
	if len(term) != int32TermLen || term[0] != tagInt32 {
		return 0, dataErrf(term, 0, nil, "invalid int32 term")
	}
	return int32(binary.BigEndian.Uint32(term[1:]) ^ (1 << 31)), nil
}

func EncodeInt64(v int64) []byte {
	buf := make([]byte, int64TermLen)
	buf[0] = tagInt64
	binary.BigEndian.PutUint64(buf[1:], uint64(v)^(1<<63))
	return buf
}

func DecodeInt64(term []byte) (int64, error) {
	if len(term) != int64TermLen || term[0] != tagInt64 {
		return 0, dataErrf(term, 0, nil, "invalid int64 term")
	}
	return int64(binary.BigEndian.Uint64(term[1:]) ^ (1 << 63)), nil
}

// EncodeFloat64 maps v onto a sortable int64 term: negative numbers have all
// bits inverted, non-negative ones only the sign bit. -0 is folded into 0.
func EncodeFloat64(v float64) []byte {
	if v == 0 {
		v = 0
	}
	return EncodeInt64(sortableFloat64(v))
}

func DecodeFloat64(term []byte) (float64, error) {
	s, err := DecodeInt64(term)
	if err != nil {
		return 0, err
	}
	return unsortableFloat64(s), nil
}

func sortableFloat64(v float64) int64 {
	bits := int64(math.Float64bits(v))
	if bits < 0 {
		bits ^= math.MaxInt64
	}
	return bits
}

func unsortableFloat64(s int64) float64 {
	if s < 0 {
		s ^= math.MaxInt64
	}
	return math.Float64frombits(uint64(s))
}

// Term identifies a single indexed term of a field.
type Term struct {
	Field string
	Bytes []byte
}

func NewTerm(field, text string) Term {
	return Term{Field: field, Bytes: []byte(text)}
}

func (t Term) String() string {
	return t.Field + ":" + termString(t.Bytes)
}

func validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("empty field name")
	}
	if strings.IndexByte(name, fieldSep) >= 0 {
		return fmt.Errorf("field name %q contains a NUL byte", name)
	}
	return nil
}

// postingKey returns the postings bucket key of term: field, NUL, term bytes.
func postingKey(field string, term []byte) []byte {
	key := make([]byte, 0, len(field)+1+len(term))
	key = append(key, field...)
	key = append(key, fieldSep)
	return append(key, term...)
}

func fieldPrefix(field string) []byte {
	return postingKey(field, nil)
}

func splitPostingKey(key []byte) (field string, term []byte, ok bool) {
	i := bytes.IndexByte(key, fieldSep)
	if i < 0 {
		return "", nil, false
	}
	return string(key[:i]), key[i+1:], true
}
