// Package codec converts values to and from their wire representation.
//
// Fixed-width integers use an explicit byte order chosen by the caller.
// Structured values use CBOR with Core Deterministic Encoding, so the same
// value always produces the same bytes.
package codec

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Kind is the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindString
	KindBytes
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrMalformed is returned when bytes are not a valid encoded Value
var ErrMalformed = errors.New("malformed value")

// Value is a tagged union of null, integer, string, byte string and array.
// The zero Value is Null.
type Value struct {
	kind  Kind
	i     int64
	s     string
	b     []byte
	items []Value
}

func Null() Value { return Value{} }

func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Bytes(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return Value{kind: KindBytes, b: c}
}

func Array(items ...Value) Value {
	c := make([]Value, len(items))
	copy(c, items)
	return Value{kind: KindArray, items: c}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInteger
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsBytes() ([]byte, bool) {
	return v.b, v.kind == KindBytes
}

func (v Value) AsArray() ([]Value, bool) {
	return v.items, v.kind == KindArray
}

// Equal reports whether two values hold the same variant and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.b)
	case KindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "null"
	}
}

const maxNestedLevels = 64

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{MaxNestedLevels: maxNestedLevels}).DecMode(); err != nil {
		panic(err)
	}
}

// Encode returns the canonical encoding of v. Null encodes to an empty payload.
func Encode(v Value) ([]byte, error) {
	if v.kind == KindNull {
		return []byte{}, nil
	}
	native, err := toNative(v)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(native)
	if err != nil {
		return nil, errors.Wrap(err, "encode value")
	}
	return data, nil
}

// MustEncode is Encode for values built in code, which always encode.
func MustEncode(v Value) []byte {
	data, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode is the inverse of Encode. An empty payload decodes to Null.
func Decode(data []byte) (Value, error) {
	if len(data) == 0 {
		return Null(), nil
	}
	var native any
	if err := decMode.Unmarshal(data, &native); err != nil {
		return Value{}, errors.Wrap(ErrMalformed, err.Error())
	}
	return fromNative(native)
}

// toNative rejects strings that are not valid UTF-8, which Decode would refuse.
func toNative(v Value) (any, error) {
	switch v.kind {
	case KindInteger:
		return v.i, nil
	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, errors.Wrapf(ErrMalformed, "string %q is not valid UTF-8", v.s)
		}
		return v.s, nil
	case KindBytes:
		if v.b == nil {
			return []byte{}, nil
		}
		return v.b, nil
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			native, err := toNative(item)
			if err != nil {
				return nil, errors.Wrapf(err, "array element %d", i)
			}
			out[i] = native
		}
		return out, nil
	default:
		return nil, nil
	}
}

func fromNative(native any) (Value, error) {
	switch x := native.(type) {
	case nil:
		return Null(), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, errors.Wrapf(ErrMalformed, "integer %d out of range", x)
		}
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Value{kind: KindBytes, b: x}, nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := fromNative(item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "array element %d", i)
			}
			items[i] = v
		}
		return Value{kind: KindArray, items: items}, nil
	default:
		return Value{}, errors.Wrapf(ErrMalformed, "unsupported item of type %T", native)
	}
}
