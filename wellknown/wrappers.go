// Package wellknown converts between the wire form of Google's well-known
// types and the native values a host uses for them.
//
// Wrapper types (google.protobuf.BoolValue, Int32Value, and so on) are
// single-field messages that a host sees as nullable scalars. Duration and
// Timestamp are seen as time.Duration and time.Time.
package wellknown

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/internal/coerce"
	"github.com/jhump/reflectcodec/protoerr"
)

// IsWrappable reports whether a google.protobuf wrapper type exists for the
// named scalar type.
func IsWrappable(typeName string) bool {
	switch typeName {
	case host.TypeBool, host.TypeBytes, host.TypeDouble, host.TypeFloat,
		host.TypeInt32, host.TypeInt64, host.TypeUint32, host.TypeUint64,
		host.TypeString:
		return true
	default:
		return false
	}
}

// WrapperMessage returns the wrapper message holding v, which is coerced to
// the named scalar type.
func WrapperMessage(typeName string, v any) (proto.Message, error) {
	switch typeName {
	case host.TypeBool:
		b, err := coerce.Bool(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Bool(b), nil
	case host.TypeBytes:
		b, err := coerce.Bytes(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Bytes(b), nil
	case host.TypeDouble:
		f, err := coerce.Float64(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Double(f), nil
	case host.TypeFloat:
		f, err := coerce.Float32(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Float(f), nil
	case host.TypeInt32:
		i, err := coerce.Int32(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Int32(i), nil
	case host.TypeInt64:
		i, err := coerce.Int64(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.Int64(i), nil
	case host.TypeUint32:
		u, err := coerce.Uint32(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.UInt32(u), nil
	case host.TypeUint64:
		u, err := coerce.Uint64(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.UInt64(u), nil
	case host.TypeString:
		s, err := coerce.String(v)
		if err != nil {
			return nil, err
		}
		return wrapperspb.String(s), nil
	default:
		return nil, protoerr.New(protoerr.UnsupportedWrappedType, typeName)
	}
}

// MarshalWrapper returns the wire bytes of the wrapper message holding v.
// The bytes are empty when v is its scalar's zero value; the caller still
// writes the enclosing field, since presence is what distinguishes a zero
// value from null.
func MarshalWrapper(typeName string, v any) ([]byte, error) {
	m, err := WrapperMessage(typeName, v)
	if err != nil {
		return nil, err
	}
	b, err := proto.Marshal(m)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.WireEncode, err)
	}
	return b, nil
}

// UnmarshalWrapper decodes the wire bytes of a wrapper message of the named
// scalar type and returns the bare scalar.
func UnmarshalWrapper(typeName string, b []byte) (any, error) {
	var (
		m   proto.Message
		get func() any
	)
	switch typeName {
	case host.TypeBool:
		w := &wrapperspb.BoolValue{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeBytes:
		w := &wrapperspb.BytesValue{}
		m, get = w, func() any {
			if w.Value == nil {
				return []byte{}
			}
			return w.Value
		}
	case host.TypeDouble:
		w := &wrapperspb.DoubleValue{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeFloat:
		w := &wrapperspb.FloatValue{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeInt32:
		w := &wrapperspb.Int32Value{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeInt64:
		w := &wrapperspb.Int64Value{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeUint32:
		w := &wrapperspb.UInt32Value{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeUint64:
		w := &wrapperspb.UInt64Value{}
		m, get = w, func() any { return w.GetValue() }
	case host.TypeString:
		w := &wrapperspb.StringValue{}
		m, get = w, func() any { return w.GetValue() }
	default:
		return nil, protoerr.New(protoerr.UnsupportedWrappedType, typeName)
	}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, protoerr.Wrap(protoerr.InvalidData, err)
	}
	return get(), nil
}
