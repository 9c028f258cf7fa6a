// Package coerce converts loosely-typed host values to the exact Go types
// used for each protobuf scalar type. Any integer kind is accepted for an
// integer field as long as the value is in range; named types (like an enum
// declared as "type Color int32") are accepted too.
package coerce

import (
	"math"
	"reflect"

	"github.com/jhump/reflectcodec/protoerr"
)

func mismatch(what string, v any) error {
	return protoerr.Downcastf("value of type %T is not compatible with %s", v, what)
}

func outOfRange(what string, v any) error {
	return protoerr.Downcastf("value %v is out of range for %s", v, what)
}

// Bool coerces v to a bool.
func Bool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), nil
	}
	return false, mismatch("bool", v)
}

// integer returns v as a signed or unsigned 64-bit value. For unsigned
// kinds, signed is false and u holds the value.
func integer(v any) (i int64, u uint64, signed bool, ok bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), 0, true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 0, rv.Uint(), false, true
	default:
		return 0, 0, false, false
	}
}

// Int32 coerces v to an int32.
func Int32(v any) (int32, error) {
	if x, ok := v.(int32); ok {
		return x, nil
	}
	i, u, signed, ok := integer(v)
	switch {
	case !ok:
		return 0, mismatch("int32", v)
	case signed && i >= math.MinInt32 && i <= math.MaxInt32:
		return int32(i), nil
	case !signed && u <= math.MaxInt32:
		return int32(u), nil
	default:
		return 0, outOfRange("int32", v)
	}
}

// Int64 coerces v to an int64.
func Int64(v any) (int64, error) {
	if x, ok := v.(int64); ok {
		return x, nil
	}
	i, u, signed, ok := integer(v)
	switch {
	case !ok:
		return 0, mismatch("int64", v)
	case signed:
		return i, nil
	case u <= math.MaxInt64:
		return int64(u), nil
	default:
		return 0, outOfRange("int64", v)
	}
}

// Uint32 coerces v to a uint32.
func Uint32(v any) (uint32, error) {
	if x, ok := v.(uint32); ok {
		return x, nil
	}
	i, u, signed, ok := integer(v)
	switch {
	case !ok:
		return 0, mismatch("uint32", v)
	case signed && i >= 0 && i <= math.MaxUint32:
		return uint32(i), nil
	case !signed && u <= math.MaxUint32:
		return uint32(u), nil
	default:
		return 0, outOfRange("uint32", v)
	}
}

// Uint64 coerces v to a uint64.
func Uint64(v any) (uint64, error) {
	if x, ok := v.(uint64); ok {
		return x, nil
	}
	i, u, signed, ok := integer(v)
	switch {
	case !ok:
		return 0, mismatch("uint64", v)
	case signed && i >= 0:
		return uint64(i), nil
	case !signed:
		return u, nil
	default:
		return 0, outOfRange("uint64", v)
	}
}

// Float64 coerces v to a float64. Integers are converted.
func Float64(v any) (float64, error) {
	if x, ok := v.(float64); ok {
		return x, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	i, u, signed, ok := integer(v)
	switch {
	case !ok:
		return 0, mismatch("double", v)
	case signed:
		return float64(i), nil
	default:
		return float64(u), nil
	}
}

// Float32 coerces v to a float32. Wider values lose precision, like any
// float narrowing.
func Float32(v any) (float32, error) {
	if x, ok := v.(float32); ok {
		return x, nil
	}
	f, err := Float64(v)
	if err != nil {
		return 0, mismatch("float", v)
	}
	return float32(f), nil
}

// String coerces v to a string.
func String(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", mismatch("string", v)
}

// Bytes coerces v to a byte slice. The result aliases v.
func Bytes(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), nil
	}
	return nil, mismatch("bytes", v)
}

// List coerces v to a list of values. Any slice other than a byte slice is
// accepted; nil is an empty list.
func List(v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch("list", v)
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, mismatch("list", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// IsList reports whether v is a list value: any slice other than a byte
// slice.
func IsList(v any) bool {
	if _, ok := v.([]any); ok {
		return true
	}
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8
}

// Map coerces v to a map of values. Any map type is accepted; nil is an
// empty map.
func Map(v any) (map[any]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[any]any:
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, mismatch("map", v)
	}
	out := make(map[any]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().Interface()] = iter.Value().Interface()
	}
	return out, nil
}
