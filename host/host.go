// Package host defines the contract a dynamically-typed message class must
// satisfy to be reflected, encoded, and decoded.
//
// A class is a constructor plus a name. Every instance it constructs exposes a
// metadata container (*Meta) describing its fields, and named field accessors.
// Any object model can be adapted behind these interfaces; package dynamic
// provides a map-backed one.
//
// Field values use these Go types:
//
//	bool, int32, int64, uint32, uint64, float32, float64  scalars
//	string, []byte                                        string and bytes
//	time.Duration                                         google.protobuf.Duration
//	time.Time, civil.DateTime                             google.protobuf.Timestamp
//	[]any                                                 repeated fields
//	map[any]any                                           map fields
//	Message                                               nested messages
//	nil                                                   absent message or wrapper
//
// Wrapper fields (google.protobuf.Int32Value and friends) hold either nil or
// the bare scalar.
package host

// Type is the declared value class of a message-, enum-, or temporal-typed
// field.
type Type interface {
	// TypeName returns a name for the type, used in error messages and logs.
	TypeName() string
}

// Class is a message class: a type that can construct new, default-valued
// instances of itself.
//
// Classes are used as cache keys, so implementations must be comparable and
// should be pointers.
type Class interface {
	Type
	// New is the zero-argument constructor.
	New() (Message, error)
}

// Message is an instance of a message class.
type Message interface {
	// Class returns the class that constructed this message.
	Class() Class
	// Meta returns the metadata container describing the message's fields.
	Meta() (*Meta, error)
	// Get returns the current value of the named field.
	Get(name string) (any, error)
	// Set assigns the named field. Setting a member of a oneof group clears
	// the other members of the group.
	Set(name string, val any) error
	// WhichOneof returns the name of the member of the given group that
	// currently holds a value, or "" if none does.
	WhichOneof(group string) (string, error)
}

// EnumType is an optional interface implemented by enum Types that want
// decoded enum numbers converted to their own values. Without it, decoded
// enums are int32.
type EnumType interface {
	Type
	EnumOf(number int32) any
}

// EnumValues is an optional interface implemented by enum Types that can
// list their named values. Schema export uses it; without it, an exported
// enum declares only a zero value.
type EnumValues interface {
	Type
	Values() map[string]int32
}

// EnumValue is an optional interface implemented by host enum values that
// are not plain integers.
type EnumValue interface {
	EnumNumber() int32
}

type nativeType string

func (t nativeType) TypeName() string {
	return string(t)
}

// The declared classes of fields whose host value is a native Go value
// instead of a Message.
var (
	// DurationType declares a google.protobuf.Duration field, whose host value
	// is a time.Duration.
	DurationType Type = nativeType("google.protobuf.Duration")
	// TimestampType declares a google.protobuf.Timestamp field, whose host
	// value is a time.Time (or, when encoding, a civil.DateTime that is
	// interpreted in the local time zone).
	TimestampType Type = nativeType("google.protobuf.Timestamp")
)
