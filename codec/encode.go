package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/internal/coerce"
	"github.com/jhump/reflectcodec/protoerr"
	"github.com/jhump/reflectcodec/wellknown"
)

// MarshalOptions configures the encoder. The zero value is ready to use.
//
// Output is deterministic: map entries are always written in key order, so
// equal messages produce equal bytes.
type MarshalOptions struct {
	// Packed writes repeated numeric and enum fields with more than one
	// element as a single length-delimited record. Otherwise every element
	// gets its own tag.
	Packed bool
	// Location is the time zone in which civil.DateTime timestamps are
	// interpreted. If nil, time.Local is used.
	Location *time.Location
	// Cache supplies message descriptors. If nil, the process-wide cache
	// in package desc is used.
	Cache *desc.Cache
}

// Marshal returns the wire bytes of msg using default options.
func Marshal(msg host.Message) ([]byte, error) {
	return MarshalOptions{}.Marshal(msg)
}

// Marshal returns the wire bytes of msg.
func (o MarshalOptions) Marshal(msg host.Message) ([]byte, error) {
	return o.MarshalAppend(nil, msg)
}

// MarshalAppend appends the wire bytes of msg to b. On failure, nothing is
// appended and b is returned as is.
func (o MarshalOptions) MarshalAppend(b []byte, msg host.Message) ([]byte, error) {
	cb := Buffer{buf: b}
	if err := o.marshalMessage(&cb, msg); err != nil {
		return b, err
	}
	return cb.buf, nil
}

// EncodeMessage writes the wire bytes of msg to the buffer, with no length
// prefix.
func (cb *Buffer) EncodeMessage(msg host.Message) error {
	return cb.encodeMessage(msg, false)
}

// EncodeDelimitedMessage writes the wire bytes of msg to the buffer,
// prefixed with their varint-encoded length.
func (cb *Buffer) EncodeDelimitedMessage(msg host.Message) error {
	return cb.encodeMessage(msg, true)
}

func (cb *Buffer) encodeMessage(msg host.Message, delimited bool) error {
	var nested Buffer
	if err := (MarshalOptions{}).marshalMessage(&nested, msg); err != nil {
		return err
	}
	if delimited {
		return cb.EncodeRawBytes(nested.buf)
	}
	_, err := cb.Write(nested.buf)
	return err
}

func (o MarshalOptions) loadDescriptor(cls host.Class) (*desc.MessageDescriptor, error) {
	if o.Cache != nil {
		return o.Cache.Load(cls)
	}
	return desc.LoadMessageDescriptorForClass(cls)
}

func (o MarshalOptions) marshalMessage(cb *Buffer, msg host.Message) error {
	if isNil(msg) {
		return protoerr.New(protoerr.NotAValidMessageClass, "nil message")
	}
	md, err := o.loadDescriptor(msg.Class())
	if err != nil {
		return err
	}
	return o.encodeFields(cb, msg, md)
}

func (o MarshalOptions) encodeFields(cb *Buffer, msg host.Message, md *desc.MessageDescriptor) error {
	var chosen map[string]string
	if groups := md.GetOneOfs(); len(groups) > 0 {
		chosen = make(map[string]string, len(groups))
		for _, g := range groups {
			name, err := msg.WhichOneof(g)
			if err != nil {
				return protoerr.Wrap(protoerr.HostInteropFailure, err)
			}
			chosen[g] = name
		}
	}
	for _, fd := range md.GetFields() {
		// only the selected member of a oneof is written, and it is written
		// even when it holds a zero value
		present := false
		if g := fd.GetOneOf(); g != "" {
			if chosen[g] != fd.GetName() {
				continue
			}
			present = true
		}
		val, err := msg.Get(fd.GetName())
		if err != nil {
			return protoerr.Wrap(protoerr.HostInteropFailure, err)
		}
		if err := o.encodeField(cb, fd, val, present); err != nil {
			return err
		}
	}
	return nil
}

func (o MarshalOptions) encodeField(cb *Buffer, fd *desc.FieldDescriptor, val any, present bool) error {
	switch k := fd.GetKind().(type) {
	case desc.Repeated:
		return o.encodeList(cb, fd.GetNumber(), k, val)
	case desc.Map:
		return o.encodeMap(cb, fd.GetNumber(), k, val)
	default:
		return o.encodeElement(cb, fd.GetNumber(), k, val, present)
	}
}

func (o MarshalOptions) encodeList(cb *Buffer, num protowire.Number, k desc.Repeated, val any) error {
	list, err := coerce.List(val)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	if o.Packed && len(list) > 1 && isPackable(k.Elem) {
		var packed Buffer
		for _, v := range list {
			if err := o.encodeValue(&packed, k.Elem, v); err != nil {
				return err
			}
		}
		if err := cb.EncodeTagAndWireType(num, protowire.BytesType); err != nil {
			return protoerr.Wrap(protoerr.WireEncode, err)
		}
		return cb.EncodeRawBytes(packed.buf)
	}
	for _, v := range list {
		if isNil(v) && k.Elem.WireType() == protowire.BytesType {
			return protoerr.Downcastf("list field %d has a nil element", num)
		}
		if err := o.encodeElement(cb, num, k.Elem, v, true); err != nil {
			return err
		}
	}
	return nil
}

func isPackable(k desc.Kind) bool {
	switch k := k.(type) {
	case desc.Scalar:
		return k.Type.IsPackable()
	case desc.Enum:
		return true
	default:
		return false
	}
}

type mapEntry struct {
	key, val any
	sortKey  any
}

func (o MarshalOptions) encodeMap(cb *Buffer, num protowire.Number, k desc.Map, val any) error {
	mp, err := coerce.Map(val)
	if err != nil {
		return err
	}
	if len(mp) == 0 {
		return nil
	}
	entries := make([]mapEntry, 0, len(mp))
	for key, v := range mp {
		sk, err := canonicalKey(k.Key, key)
		if err != nil {
			return err
		}
		entries = append(entries, mapEntry{key: key, val: v, sortKey: sk})
	}
	sort.Slice(entries, func(i, j int) bool {
		return keyLess(entries[i].sortKey, entries[j].sortKey)
	})
	keyKind := desc.Scalar{Type: k.Key}
	var entryBuffer Buffer
	for _, e := range entries {
		entryBuffer.Reset()
		if err := o.encodeElement(&entryBuffer, 1, keyKind, e.key, true); err != nil {
			return err
		}
		if err := o.encodeElement(&entryBuffer, 2, k.Value, e.val, true); err != nil {
			return err
		}
		if err := cb.EncodeTagAndWireType(num, protowire.BytesType); err != nil {
			return protoerr.Wrap(protoerr.WireEncode, err)
		}
		if err := cb.EncodeRawBytes(entryBuffer.buf); err != nil {
			return err
		}
	}
	return nil
}

// canonicalKey coerces a map key to int64, uint64, bool, or string, for
// sorting.
func canonicalKey(k desc.ScalarKind, key any) (any, error) {
	var (
		v   any
		err error
	)
	switch k {
	case desc.BoolKind:
		v, err = coerce.Bool(key)
	case desc.StringKind:
		v, err = coerce.String(key)
	case desc.Uint32Kind, desc.Uint64Kind, desc.Fixed32Kind, desc.Fixed64Kind:
		v, err = coerce.Uint64(key)
	default:
		v, err = coerce.Int64(key)
	}
	if err != nil {
		return nil, &protoerr.Error{Kind: protoerr.UnsupportedKeyType, Detail: fmt.Sprintf("%T", key), Err: err}
	}
	return v, nil
}

// keyLess orders two keys produced by canonicalKey for the same map, which
// are therefore of the same one of its four types.
func keyLess(a, b any) bool {
	switch a := a.(type) {
	case int64:
		return a < b.(int64)
	case uint64:
		return a < b.(uint64)
	case string:
		return a < b.(string)
	case bool:
		return !a && b.(bool)
	default:
		panic(fmt.Sprintf("cannot compare keys of type %T", a))
	}
}

// encodeElement writes one tagged value. Unless force is set, scalars and
// enums equal to their zero value are skipped; nil messages are always
// skipped.
func (o MarshalOptions) encodeElement(cb *Buffer, num protowire.Number, k desc.Kind, val any, force bool) error {
	switch k := k.(type) {
	case desc.Scalar:
		if !force {
			zero, err := isZeroScalar(k.Type, val)
			if err != nil {
				return err
			}
			if zero {
				return nil
			}
		}
	case desc.Enum:
		if !force {
			n, err := enumNumber(val)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
		}
	default:
		if isNil(val) {
			return nil
		}
	}
	if err := cb.EncodeTagAndWireType(num, k.WireType()); err != nil {
		return protoerr.Wrap(protoerr.WireEncode, err)
	}
	return o.encodeValue(cb, k, val)
}

// encodeValue writes a value of kind k without a tag.
func (o MarshalOptions) encodeValue(cb *Buffer, k desc.Kind, val any) error {
	switch k := k.(type) {
	case desc.Scalar:
		return encodeScalar(cb, k.Type, val)
	case desc.Enum:
		n, err := enumNumber(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(uint64(int64(n)))
	case desc.Message:
		m, ok := val.(host.Message)
		if !ok {
			return protoerr.New(protoerr.UnsupportedValueType, fmt.Sprintf("%T", val))
		}
		if !isNil(m) {
			if cls := m.Class(); cls != k.Class {
				return protoerr.Downcastf("message of class %s is not compatible with %s", className(cls), className(k.Class))
			}
		}
		var nested Buffer
		if err := o.marshalMessage(&nested, m); err != nil {
			return err
		}
		return cb.EncodeRawBytes(nested.buf)
	case desc.Wrapper:
		b, err := wellknown.MarshalWrapper(k.Type.String(), val)
		if err != nil {
			return err
		}
		return cb.EncodeRawBytes(b)
	case desc.Duration:
		b, err := wellknown.MarshalDuration(val)
		if err != nil {
			return err
		}
		return cb.EncodeRawBytes(b)
	case desc.Timestamp:
		b, err := wellknown.MarshalTimestamp(val, o.Location)
		if err != nil {
			return err
		}
		return cb.EncodeRawBytes(b)
	default:
		return protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}

func className(cls host.Class) string {
	if isNil(cls) {
		return "<nil>"
	}
	return cls.TypeName()
}

func enumNumber(val any) (int32, error) {
	if ev, ok := val.(host.EnumValue); ok {
		return ev.EnumNumber(), nil
	}
	return coerce.Int32(val)
}

func isZeroScalar(k desc.ScalarKind, val any) (bool, error) {
	switch k {
	case desc.BoolKind:
		b, err := coerce.Bool(val)
		return !b, err
	case desc.Int32Kind, desc.Sint32Kind, desc.Sfixed32Kind:
		i, err := coerce.Int32(val)
		return i == 0, err
	case desc.Int64Kind, desc.Sint64Kind, desc.Sfixed64Kind:
		i, err := coerce.Int64(val)
		return i == 0, err
	case desc.Uint32Kind, desc.Fixed32Kind:
		u, err := coerce.Uint32(val)
		return u == 0, err
	case desc.Uint64Kind, desc.Fixed64Kind:
		u, err := coerce.Uint64(val)
		return u == 0, err
	case desc.FloatKind:
		f, err := coerce.Float32(val)
		// negative zero is not the default and is written
		return math.Float32bits(f) == 0, err
	case desc.DoubleKind:
		f, err := coerce.Float64(val)
		return math.Float64bits(f) == 0, err
	case desc.StringKind:
		s, err := coerce.String(val)
		return s == "", err
	case desc.BytesKind:
		b, err := coerce.Bytes(val)
		return len(b) == 0, err
	default:
		return false, protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}

func encodeScalar(cb *Buffer, k desc.ScalarKind, val any) error {
	switch k {
	case desc.BoolKind:
		b, err := coerce.Bool(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(protowire.EncodeBool(b))
	case desc.Int32Kind:
		i, err := coerce.Int32(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(uint64(int64(i)))
	case desc.Sint32Kind:
		i, err := coerce.Int32(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(protowire.EncodeZigZag(int64(i)))
	case desc.Sfixed32Kind:
		i, err := coerce.Int32(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed32(uint32(i))
	case desc.Int64Kind:
		i, err := coerce.Int64(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(uint64(i))
	case desc.Sint64Kind:
		i, err := coerce.Int64(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(protowire.EncodeZigZag(i))
	case desc.Sfixed64Kind:
		i, err := coerce.Int64(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed64(uint64(i))
	case desc.Uint32Kind:
		u, err := coerce.Uint32(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(uint64(u))
	case desc.Fixed32Kind:
		u, err := coerce.Uint32(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed32(u)
	case desc.Uint64Kind:
		u, err := coerce.Uint64(val)
		if err != nil {
			return err
		}
		return cb.EncodeVarint(u)
	case desc.Fixed64Kind:
		u, err := coerce.Uint64(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed64(u)
	case desc.FloatKind:
		f, err := coerce.Float32(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed32(math.Float32bits(f))
	case desc.DoubleKind:
		f, err := coerce.Float64(val)
		if err != nil {
			return err
		}
		return cb.EncodeFixed64(math.Float64bits(f))
	case desc.StringKind:
		s, err := coerce.String(val)
		if err != nil {
			return err
		}
		return cb.EncodeRawBytes([]byte(s))
	case desc.BytesKind:
		b, err := coerce.Bytes(val)
		if err != nil {
			return err
		}
		return cb.EncodeRawBytes(b)
	default:
		return protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
