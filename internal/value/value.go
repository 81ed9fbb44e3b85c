// Package value implements the tagged Value sum the storage core reads
// and writes: either a 32-bit signed INT or a STRING bounded to 256
// payload bytes. Dynamic dispatch is replaced by a switch on Kind.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind tags which variant a Value holds.
type Kind int32

const (
	KindInt Kind = iota
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// MaxStringLen is the largest payload STRING columns accept.
const MaxStringLen = 256

// ErrTypeMismatch is returned when two Values of different Kind are
// compared.
var ErrTypeMismatch = errors.New("value: type mismatch")

// ErrStringTooLong is returned by NewString when the payload exceeds
// MaxStringLen.
var ErrStringTooLong = errors.New("value: string exceeds 256 bytes")

// Value is an immutable typed scalar: either an INT or a STRING.
type Value struct {
	kind Kind
	i    int32
	s    []byte
}

// NewInt wraps a 32-bit integer.
func NewInt(v int32) Value {
	return Value{kind: KindInt, i: v}
}

// NewString wraps a byte string, rejecting payloads over MaxStringLen.
func NewString(v []byte) (Value, error) {
	if len(v) > MaxStringLen {
		return Value{}, ErrStringTooLong
	}
	buf := make([]byte, len(v))
	copy(buf, v)
	return Value{kind: KindString, s: buf}, nil
}

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// Int returns the wrapped integer and whether this Value is a KindInt.
func (v Value) Int() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// String returns the wrapped payload and whether this Value is a
// KindString. The returned string is a copy of the payload.
func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return string(v.s), true
}

// Bytes returns the wrapped payload bytes and whether this Value is a
// KindString.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindString {
		return nil, false
	}
	out := make([]byte, len(v.s))
	copy(out, v.s)
	return out, true
}

// MarshalJSON renders a Value as its bare Go scalar — an int32 or a
// string — rather than exposing Kind/tag machinery to API clients.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindString:
		return json.Marshal(string(v.s))
	default:
		return json.Marshal(nil)
	}
}

// Equal reports whether v and other hold the same kind and value.
func (v Value) Equal(other Value) bool {
	cmp, err := Compare(v, other)
	return err == nil && cmp == 0
}

// Compare returns <0, 0, >0 as v is less than, equal to, or greater than
// other. It returns ErrTypeMismatch if the two Values have different
// kinds.
func Compare(v, other Value) (int, error) {
	if v.kind != other.kind {
		return 0, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, v.kind, other.kind)
	}
	switch v.kind {
	case KindInt:
		switch {
		case v.i < other.i:
			return -1, nil
		case v.i > other.i:
			return 1, nil
		default:
			return 0, nil
		}
	case KindString:
		switch {
		case string(v.s) < string(other.s):
			return -1, nil
		case string(v.s) > string(other.s):
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("value: unknown kind %d", v.kind)
	}
}
