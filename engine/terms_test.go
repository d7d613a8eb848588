package engine

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeInt32_Order(t *testing.T) {
	values := []int32{math.MinInt32, -100000, -1, 0, 1, 42, 100000, math.MaxInt32}
	for i, v := range values {
		deepEqual(t, must(DecodeInt32(EncodeInt32(v))), v)
		if i > 0 && bytes.Compare(EncodeInt32(values[i-1]), EncodeInt32(v)) >= 0 {
			t.Errorf("** EncodeInt32(%d) does not sort before EncodeInt32(%d)", values[i-1], v)
		}
	}
}

func TestEncodeInt64_Order(t *testing.T) {
	values := []int64{math.MinInt64, -1 << 40, -1, 0, 1, 1 << 40, math.MaxInt64}
	for i, v := range values {
		deepEqual(t, must(DecodeInt64(EncodeInt64(v))), v)
		if i > 0 && bytes.Compare(EncodeInt64(values[i-1]), EncodeInt64(v)) >= 0 {
			t.Errorf("** EncodeInt64(%d) does not sort before EncodeInt64(%d)", values[i-1], v)
		}
	}
}

func TestEncodeFloat64_Order(t *testing.T) {
	values := []float64{math.Inf(-1), -1e300, -2.5, -1, -math.SmallestNonzeroFloat64, 0, math.SmallestNonzeroFloat64, 0.5, 1, 3.25, 1e300, math.Inf(1)}
	for i, v := range values {
		deepEqual(t, must(DecodeFloat64(EncodeFloat64(v))), v)
		if i > 0 && bytes.Compare(EncodeFloat64(values[i-1]), EncodeFloat64(v)) >= 0 {
			t.Errorf("** EncodeFloat64(%v) does not sort before EncodeFloat64(%v)", values[i-1], v)
		}
	}
}

func TestEncodeFloat64_NegativeZero(t *testing.T) {
	deepEqual(t, EncodeFloat64(math.Copysign(0, -1)), EncodeFloat64(0))
}

func TestDecodeTerm_Errors(t *testing.T) {
	if _, err := DecodeInt32(EncodeInt64(1)); err == nil {
		t.Errorf("** DecodeInt32 accepted an int64 term")
	}
	if _, err := DecodeInt64(EncodeInt32(1)); err == nil {
		t.Errorf("** DecodeInt64 accepted an int32 term")
	}
}

func TestPostingKey(t *testing.T) {
	key := postingKey("name", []byte("bernd"))
	field, term, ok := splitPostingKey(key)
	deepEqual(t, ok, true)
	deepEqual(t, field, "name")
	deepEqual(t, string(term), "bernd")
	deepEqual(t, bytes.HasPrefix(key, fieldPrefix("name")), true)
	deepEqual(t, bytes.HasPrefix(key, fieldPrefix("nam")), false)
}

func TestTermString(t *testing.T) {
	deepEqual(t, NewTerm("name", "bernd").String(), "name:bernd")
	deepEqual(t, Term{Field: "id", Bytes: EncodeInt32(1)}.String(), "id:0x6080000001")
}
