package desc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/host"
)

// ScalarKind is the type of a scalar field, or of the value wrapped by a
// wrapper field.
type ScalarKind int

const (
	BoolKind ScalarKind = iota + 1
	Int32Kind
	Int64Kind
	Uint32Kind
	Uint64Kind
	Sint32Kind
	Sint64Kind
	Fixed32Kind
	Fixed64Kind
	Sfixed32Kind
	Sfixed64Kind
	FloatKind
	DoubleKind
	StringKind
	BytesKind
)

var scalarNames = map[ScalarKind]string{
	BoolKind:     host.TypeBool,
	Int32Kind:    host.TypeInt32,
	Int64Kind:    host.TypeInt64,
	Uint32Kind:   host.TypeUint32,
	Uint64Kind:   host.TypeUint64,
	Sint32Kind:   host.TypeSint32,
	Sint64Kind:   host.TypeSint64,
	Fixed32Kind:  host.TypeFixed32,
	Fixed64Kind:  host.TypeFixed64,
	Sfixed32Kind: host.TypeSfixed32,
	Sfixed64Kind: host.TypeSfixed64,
	FloatKind:    host.TypeFloat,
	DoubleKind:   host.TypeDouble,
	StringKind:   host.TypeString,
	BytesKind:    host.TypeBytes,
}

var scalarsByName = func() map[string]ScalarKind {
	m := make(map[string]ScalarKind, len(scalarNames))
	for k, n := range scalarNames {
		m[n] = k
	}
	return m
}()

// ScalarKindByName returns the scalar kind with the given type name, one of
// the host.Type* constants.
func ScalarKindByName(name string) (ScalarKind, bool) {
	k, ok := scalarsByName[name]
	return k, ok
}

// String returns the type name of k, as used in host metadata.
func (k ScalarKind) String() string {
	if n, ok := scalarNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ScalarKind(%d)", int(k))
}

// WireType returns the wire type used for a single value of kind k.
func (k ScalarKind) WireType() protowire.Type {
	switch k {
	case FloatKind, Fixed32Kind, Sfixed32Kind:
		return protowire.Fixed32Type
	case DoubleKind, Fixed64Kind, Sfixed64Kind:
		return protowire.Fixed64Type
	case StringKind, BytesKind:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

// IsPackable reports whether a repeated field of kind k may use the packed
// encoding.
func (k ScalarKind) IsPackable() bool {
	return k.WireType() != protowire.BytesType
}

// IsValidMapKey reports whether k may be the key type of a map field.
func (k ScalarKind) IsValidMapKey() bool {
	switch k {
	case FloatKind, DoubleKind, BytesKind:
		return false
	default:
		return true
	}
}

// Kind is the kind of a field. It is one of Scalar, Enum, Message, Wrapper,
// Duration, Timestamp, Repeated, or Map; no other implementations exist.
type Kind interface {
	fmt.Stringer
	// WireType is the wire type of one encoded value of this kind. For
	// Repeated, it is that of a single element.
	WireType() protowire.Type
	isKind()
}

// Scalar is a bool, numeric, string, or bytes field.
type Scalar struct {
	Type ScalarKind
}

// Enum is an enum field. Type is the field's declared enum class.
type Enum struct {
	Type host.Type
}

// Message is a nested message field.
type Message struct {
	Class host.Class
}

// Wrapper is a google.protobuf wrapper field, seen by the host as a
// nullable scalar.
type Wrapper struct {
	Type ScalarKind
}

// Duration is a google.protobuf.Duration field.
type Duration struct{}

// Timestamp is a google.protobuf.Timestamp field.
type Timestamp struct{}

// Repeated is a list field. Elem is never Repeated or Map.
type Repeated struct {
	Elem Kind
}

// Map is a map field. Value is never Repeated or Map.
type Map struct {
	Key   ScalarKind
	Value Kind
}

func (Scalar) isKind()    {}
func (Enum) isKind()      {}
func (Message) isKind()   {}
func (Wrapper) isKind()   {}
func (Duration) isKind()  {}
func (Timestamp) isKind() {}
func (Repeated) isKind()  {}
func (Map) isKind()       {}

func (k Scalar) WireType() protowire.Type   { return k.Type.WireType() }
func (Enum) WireType() protowire.Type       { return protowire.VarintType }
func (Message) WireType() protowire.Type    { return protowire.BytesType }
func (Wrapper) WireType() protowire.Type    { return protowire.BytesType }
func (Duration) WireType() protowire.Type   { return protowire.BytesType }
func (Timestamp) WireType() protowire.Type  { return protowire.BytesType }
func (k Repeated) WireType() protowire.Type { return k.Elem.WireType() }
func (Map) WireType() protowire.Type        { return protowire.BytesType }

func (k Scalar) String() string { return k.Type.String() }

func (k Enum) String() string {
	if k.Type == nil {
		return "enum"
	}
	return "enum " + k.Type.TypeName()
}

func (k Message) String() string {
	return "message " + k.Class.TypeName()
}

func (k Wrapper) String() string {
	return "wrapper " + k.Type.String()
}

func (Duration) String() string  { return host.DurationType.TypeName() }
func (Timestamp) String() string { return host.TimestampType.TypeName() }

func (k Repeated) String() string {
	return "repeated " + k.Elem.String()
}

func (k Map) String() string {
	return fmt.Sprintf("map<%s, %s>", k.Key, k.Value)
}
