package codec

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/protoerr"
	"github.com/jhump/reflectcodec/wellknown"
)

// UnmarshalOptions configures the decoder. The zero value is ready to use.
type UnmarshalOptions struct {
	// Cache supplies message descriptors. If nil, the process-wide cache
	// in package desc is used.
	Cache *desc.Cache
	// Logger receives a debug event for every unknown field skipped. If
	// nil, nothing is logged.
	Logger log.Logger
}

// Unmarshal decodes data into a new instance of cls using default options.
func Unmarshal(data []byte, cls host.Class) (host.Message, error) {
	return UnmarshalOptions{}.Unmarshal(data, cls)
}

// Unmarshal decodes data into a new instance of cls. Fields that do not
// appear in data keep the defaults the constructor gave them. Unknown fields
// are skipped.
func (o UnmarshalOptions) Unmarshal(data []byte, cls host.Class) (host.Message, error) {
	return o.unmarshalMessage(NewBuffer(data), cls)
}

// DecodeMessage decodes the rest of the buffer as an instance of cls.
func (cb *Buffer) DecodeMessage(cls host.Class) (host.Message, error) {
	return UnmarshalOptions{}.unmarshalMessage(cb, cls)
}

// DecodeDelimitedMessage decodes a varint length prefix followed by that
// many bytes, as written by EncodeDelimitedMessage, as an instance of cls.
func (cb *Buffer) DecodeDelimitedMessage(cls host.Class) (host.Message, error) {
	b, err := cb.DecodeRawBytes(false)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.InvalidData, err)
	}
	return UnmarshalOptions{}.unmarshalMessage(NewBuffer(b), cls)
}

func (o UnmarshalOptions) loadDescriptor(cls host.Class) (*desc.MessageDescriptor, error) {
	if o.Cache != nil {
		return o.Cache.Load(cls)
	}
	return desc.LoadMessageDescriptorForClass(cls)
}

func (o UnmarshalOptions) logger() log.Logger {
	if o.Logger == nil {
		return log.NewNopLogger()
	}
	return o.Logger
}

func (o UnmarshalOptions) unmarshalMessage(cb *Buffer, cls host.Class) (host.Message, error) {
	md, err := o.loadDescriptor(cls)
	if err != nil {
		return nil, err
	}
	msg, err := cls.New()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.HostInteropFailure, err)
	}
	if err := o.decodeFields(cb, md, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// decodeFields reads fields until the buffer is exhausted. Values are
// collected first and assigned to msg at the end, so a failure part way
// through leaves msg untouched.
func (o UnmarshalOptions) decodeFields(cb *Buffer, md *desc.MessageDescriptor, msg host.Message) error {
	values := map[*desc.FieldDescriptor]any{}
	// the member of each oneof group seen last
	chosen := map[string]*desc.FieldDescriptor{}
	for !cb.EOF() {
		num, wt, err := cb.DecodeTagAndWireType()
		if err != nil {
			return protoerr.Wrap(protoerr.InvalidData, err)
		}
		fd := md.FindFieldByNumber(num)
		if fd == nil {
			level.Debug(o.logger()).Log("msg", "skipping unknown field", "message", md.GetName(), "field", num, "wiretype", wt)
			if err := cb.SkipField(num, wt); err != nil {
				return protoerr.Wrap(protoerr.InvalidData, err)
			}
			continue
		}
		switch k := fd.GetKind().(type) {
		case desc.Repeated:
			var list []any
			if v, ok := values[fd]; ok {
				list = v.([]any)
			}
			list, err = o.decodeListElements(cb, fd, k, wt, list)
			if err != nil {
				return err
			}
			values[fd] = list
		case desc.Map:
			if wt != protowire.BytesType {
				return wireTypeMismatch(fd, wt)
			}
			var mp map[any]any
			if v, ok := values[fd]; ok {
				mp = v.(map[any]any)
			} else {
				mp = map[any]any{}
				values[fd] = mp
			}
			key, val, err := o.decodeMapEntry(cb, k)
			if err != nil {
				return err
			}
			mp[key] = val
		default:
			if wt != k.WireType() {
				return wireTypeMismatch(fd, wt)
			}
			v, err := o.decodeValue(cb, k)
			if err != nil {
				return err
			}
			values[fd] = v
			if g := fd.GetOneOf(); g != "" {
				if prev := chosen[g]; prev != nil && prev != fd {
					delete(values, prev)
				}
				chosen[g] = fd
			}
		}
	}
	for _, fd := range md.GetFields() {
		v, ok := values[fd]
		if !ok {
			continue
		}
		if err := msg.Set(fd.GetName(), v); err != nil {
			return protoerr.Wrap(protoerr.HostInteropFailure, err)
		}
	}
	return nil
}

func wireTypeMismatch(fd *desc.FieldDescriptor, wt protowire.Type) error {
	return protoerr.InvalidDataf("field %s (%d) of kind %v cannot be read from wire type %d", fd.GetName(), fd.GetNumber(), fd.GetKind(), wt)
}

// decodeListElements reads one occurrence of a repeated field. Packed
// numeric lists arrive as a single length-delimited record holding many
// elements.
func (o UnmarshalOptions) decodeListElements(cb *Buffer, fd *desc.FieldDescriptor, k desc.Repeated, wt protowire.Type, list []any) ([]any, error) {
	if wt == protowire.BytesType && isPackable(k.Elem) {
		raw, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		packed := NewBuffer(raw)
		for !packed.EOF() {
			v, err := o.decodeValue(packed, k.Elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}
	if wt != k.Elem.WireType() {
		return nil, wireTypeMismatch(fd, wt)
	}
	v, err := o.decodeValue(cb, k.Elem)
	if err != nil {
		return nil, err
	}
	return append(list, v), nil
}

// decodeMapEntry reads one map entry. A missing key or value takes the
// default of its kind.
func (o UnmarshalOptions) decodeMapEntry(cb *Buffer, k desc.Map) (key, val any, err error) {
	raw, err := cb.DecodeRawBytes(false)
	if err != nil {
		return nil, nil, protoerr.Wrap(protoerr.InvalidData, err)
	}
	entry := NewBuffer(raw)
	keyKind := desc.Scalar{Type: k.Key}
	haveKey, haveVal := false, false
	for !entry.EOF() {
		num, wt, err := entry.DecodeTagAndWireType()
		if err != nil {
			return nil, nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		switch num {
		case 1:
			if wt != keyKind.WireType() {
				return nil, nil, protoerr.InvalidDataf("map key of kind %v cannot be read from wire type %d", keyKind, wt)
			}
			if key, err = o.decodeValue(entry, keyKind); err != nil {
				return nil, nil, err
			}
			haveKey = true
		case 2:
			if wt != k.Value.WireType() {
				return nil, nil, protoerr.InvalidDataf("map value of kind %v cannot be read from wire type %d", k.Value, wt)
			}
			if val, err = o.decodeValue(entry, k.Value); err != nil {
				return nil, nil, err
			}
			haveVal = true
		default:
			if err := entry.SkipField(num, wt); err != nil {
				return nil, nil, protoerr.Wrap(protoerr.InvalidData, err)
			}
		}
	}
	if !haveKey {
		key = scalarZero(k.Key)
	}
	if !haveVal {
		if val, err = o.zeroValue(k.Value); err != nil {
			return nil, nil, err
		}
	}
	return key, val, nil
}

// decodeValue reads an untagged value of kind k.
func (o UnmarshalOptions) decodeValue(cb *Buffer, k desc.Kind) (any, error) {
	switch k := k.(type) {
	case desc.Scalar:
		v, err := decodeScalar(cb, k.Type)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		if k.Type == desc.StringKind && !utf8.ValidString(v.(string)) {
			return nil, protoerr.InvalidDataf("string field contains invalid UTF-8")
		}
		return v, nil
	case desc.Enum:
		x, err := cb.DecodeVarint()
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		return enumOf(k, int32(x)), nil
	case desc.Message:
		raw, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		return o.unmarshalMessage(NewBuffer(raw), k.Class)
	case desc.Wrapper:
		raw, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		return wellknown.UnmarshalWrapper(k.Type.String(), raw)
	case desc.Duration:
		raw, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		return wellknown.UnmarshalDuration(raw)
	case desc.Timestamp:
		raw, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.InvalidData, err)
		}
		return wellknown.UnmarshalTimestamp(raw)
	default:
		return nil, protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}

func enumOf(k desc.Enum, n int32) any {
	if et, ok := k.Type.(host.EnumType); ok {
		return et.EnumOf(n)
	}
	return n
}

// zeroValue is the value a map entry gets when its value is absent from the
// wire.
func (o UnmarshalOptions) zeroValue(k desc.Kind) (any, error) {
	switch k := k.(type) {
	case desc.Scalar:
		return scalarZero(k.Type), nil
	case desc.Enum:
		return enumOf(k, 0), nil
	case desc.Message:
		return o.unmarshalMessage(NewBuffer(nil), k.Class)
	case desc.Wrapper:
		return scalarZero(k.Type), nil
	case desc.Duration:
		return time.Duration(0), nil
	case desc.Timestamp:
		return time.Unix(0, 0).UTC(), nil
	default:
		return nil, protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}

func scalarZero(k desc.ScalarKind) any {
	switch k {
	case desc.BoolKind:
		return false
	case desc.Int32Kind, desc.Sint32Kind, desc.Sfixed32Kind:
		return int32(0)
	case desc.Int64Kind, desc.Sint64Kind, desc.Sfixed64Kind:
		return int64(0)
	case desc.Uint32Kind, desc.Fixed32Kind:
		return uint32(0)
	case desc.Uint64Kind, desc.Fixed64Kind:
		return uint64(0)
	case desc.FloatKind:
		return float32(0)
	case desc.DoubleKind:
		return float64(0)
	case desc.StringKind:
		return ""
	case desc.BytesKind:
		return []byte{}
	default:
		return nil
	}
}

func decodeScalar(cb *Buffer, k desc.ScalarKind) (any, error) {
	switch k {
	case desc.FloatKind, desc.Fixed32Kind, desc.Sfixed32Kind:
		x, err := cb.DecodeFixed32()
		if err != nil {
			return nil, err
		}
		switch k {
		case desc.FloatKind:
			return math.Float32frombits(x), nil
		case desc.Fixed32Kind:
			return x, nil
		default:
			return int32(x), nil
		}
	case desc.DoubleKind, desc.Fixed64Kind, desc.Sfixed64Kind:
		x, err := cb.DecodeFixed64()
		if err != nil {
			return nil, err
		}
		switch k {
		case desc.DoubleKind:
			return math.Float64frombits(x), nil
		case desc.Fixed64Kind:
			return x, nil
		default:
			return int64(x), nil
		}
	case desc.StringKind:
		b, err := cb.DecodeRawBytes(false)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case desc.BytesKind:
		return cb.DecodeRawBytes(true)
	}

	x, err := cb.DecodeVarint()
	if err != nil {
		return nil, err
	}
	switch k {
	case desc.BoolKind:
		return x != 0, nil
	case desc.Int32Kind:
		return int32(x), nil
	case desc.Int64Kind:
		return int64(x), nil
	case desc.Uint32Kind:
		return uint32(x), nil
	case desc.Uint64Kind:
		return x, nil
	case desc.Sint32Kind:
		return int32(protowire.DecodeZigZag(x & math.MaxUint32)), nil
	case desc.Sint64Kind:
		return protowire.DecodeZigZag(x), nil
	default:
		return nil, protoerr.New(protoerr.UnsupportedValueType, k.String())
	}
}
