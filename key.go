package dhbloom

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Tuple is a composite key. Two tuples encode identically exactly when they
// have the same arity and their elements encode identically, position by
// position.
type Tuple []any

// Type tags. Every encoded key starts with one of these, so values of
// different kinds never share an encoding.
const (
	tagInt    byte = 0x01
	tagUint   byte = 0x02 // only for uint64 values above math.MaxInt64
	tagString byte = 0x03
	tagBytes  byte = 0x04
	tagBool   byte = 0x05
	tagFloat  byte = 0x06
	tagTuple  byte = 0x07
	tagBinary byte = 0x08
	tagStruct byte = 0x09
)

// canonicalNaN is the single bit pattern every NaN is folded to.
const canonicalNaN = 0x7ff8000000000001

// EncodeKey returns the canonical tagged encoding of v.
func EncodeKey(v any) ([]byte, error) {
	return AppendKey(nil, v)
}

// AppendKey appends the canonical tagged encoding of v to dst.
//
// Supported values are every Go integer kind (all sharing one tag, so int(5)
// and uint8(5) encode the same), string, []byte, bool, float32/float64, Tuple
// and encoding.BinaryMarshaler. Named types are encoded by their underlying
// kind, so a `type UserID int` key matches the plain int. Arrays and slices
// encode like a Tuple of their elements (byte arrays like []byte), and
// structs as their fields in declaration order.
//
// Maps, channels, funcs, pointers and nil have no stable encoding and fail
// with an error wrapping ErrSerialization. On failure dst is returned
// unmodified in length.
func AppendKey(dst []byte, v any) ([]byte, error) {
	start := len(dst)
	out, err := appendKey(dst, v)
	if err != nil {
		return dst[:start], err
	}
	return out, nil
}

func appendKey(dst []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case int:
		return appendInt(dst, int64(x)), nil
	case int8:
		return appendInt(dst, int64(x)), nil
	case int16:
		return appendInt(dst, int64(x)), nil
	case int32:
		return appendInt(dst, int64(x)), nil
	case int64:
		return appendInt(dst, x), nil
	case uint:
		return appendUint(dst, uint64(x)), nil
	case uint8:
		return appendInt(dst, int64(x)), nil
	case uint16:
		return appendInt(dst, int64(x)), nil
	case uint32:
		return appendInt(dst, int64(x)), nil
	case uint64:
		return appendUint(dst, x), nil
	case uintptr:
		return appendUint(dst, uint64(x)), nil
	case string:
		dst = append(dst, tagString)
		dst = binary.AppendUvarint(dst, uint64(len(x)))
		return append(dst, x...), nil
	case []byte:
		dst = append(dst, tagBytes)
		dst = binary.AppendUvarint(dst, uint64(len(x)))
		return append(dst, x...), nil
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return append(dst, tagBool, b), nil
	case float32:
		return appendFloat(dst, float64(x)), nil
	case float64:
		return appendFloat(dst, x), nil
	case Tuple:
		return appendTuple(dst, x)
	case []any:
		return appendTuple(dst, x)
	case encoding.BinaryMarshaler:
		b, err := x.MarshalBinary()
		if err != nil {
			return dst, fmt.Errorf("%w: %T: %w", ErrSerialization, v, err)
		}
		dst = append(dst, tagBinary)
		dst = binary.AppendUvarint(dst, uint64(len(b)))
		return append(dst, b...), nil
	case nil:
		return dst, fmt.Errorf("%w: nil key", ErrSerialization)
	default:
		return appendValue(dst, reflect.ValueOf(v))
	}
}

// appendValue encodes values the type switch in appendKey does not name,
// going by reflect kind.
func appendValue(dst []byte, rv reflect.Value) ([]byte, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendInt(dst, rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendUint(dst, rv.Uint()), nil
	case reflect.String:
		s := rv.String()
		dst = append(dst, tagString)
		dst = binary.AppendUvarint(dst, uint64(len(s)))
		return append(dst, s...), nil
	case reflect.Bool:
		b := byte(0)
		if rv.Bool() {
			b = 1
		}
		return append(dst, tagBool, b), nil
	case reflect.Float32, reflect.Float64:
		return appendFloat(dst, rv.Float()), nil
	case reflect.Array, reflect.Slice:
		n := rv.Len()
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			dst = append(dst, tagBytes)
			dst = binary.AppendUvarint(dst, uint64(n))
			for i := range n {
				dst = append(dst, byte(rv.Index(i).Uint()))
			}
			return dst, nil
		}
		dst = append(dst, tagTuple)
		dst = binary.AppendUvarint(dst, uint64(n))
		for i := range n {
			var err error
			dst, err = appendElem(dst, rv.Index(i))
			if err != nil {
				return dst, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return dst, nil
	case reflect.Struct:
		n := rv.NumField()
		dst = append(dst, tagStruct)
		dst = binary.AppendUvarint(dst, uint64(n))
		for i := range n {
			var err error
			dst, err = appendElem(dst, rv.Field(i))
			if err != nil {
				return dst, fmt.Errorf("field %s: %w", rv.Type().Field(i).Name, err)
			}
		}
		return dst, nil
	case reflect.Interface:
		if rv.IsNil() {
			return dst, fmt.Errorf("%w: nil key", ErrSerialization)
		}
		return appendElem(dst, rv.Elem())
	default:
		return dst, fmt.Errorf("%w: unsupported key type %s", ErrSerialization, rv.Type())
	}
}

// appendElem encodes a nested value. Values reachable as interfaces go back
// through appendKey so marshalers and Tuples keep their encoding; unexported
// fields can only be read by kind.
func appendElem(dst []byte, rv reflect.Value) ([]byte, error) {
	if rv.CanInterface() {
		return appendKey(dst, rv.Interface())
	}
	return appendValue(dst, rv)
}

func appendInt(dst []byte, v int64) []byte {
	dst = append(dst, tagInt)
	return binary.BigEndian.AppendUint64(dst, uint64(v))
}

func appendUint(dst []byte, v uint64) []byte {
	if v <= math.MaxInt64 {
		return appendInt(dst, int64(v))
	}
	dst = append(dst, tagUint)
	return binary.BigEndian.AppendUint64(dst, v)
}

func appendFloat(dst []byte, v float64) []byte {
	var bits uint64
	switch {
	case math.IsNaN(v):
		bits = canonicalNaN
	case v == 0:
		bits = 0 // folds -0
	default:
		bits = math.Float64bits(v)
	}
	dst = append(dst, tagFloat)
	return binary.BigEndian.AppendUint64(dst, bits)
}

func appendTuple(dst []byte, t []any) ([]byte, error) {
	dst = append(dst, tagTuple)
	dst = binary.AppendUvarint(dst, uint64(len(t)))
	for i, elem := range t {
		var err error
		dst, err = appendKey(dst, elem)
		if err != nil {
			return dst, fmt.Errorf("tuple element %d: %w", i, err)
		}
	}
	return dst, nil
}
