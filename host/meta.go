package host

// Names of field types, as they appear in FieldMeta.ProtoType,
// FieldMeta.Wraps, and FieldMeta.MapTypes.
const (
	TypeEnum     = "enum"
	TypeBool     = "bool"
	TypeInt32    = "int32"
	TypeInt64    = "int64"
	TypeUint32   = "uint32"
	TypeUint64   = "uint64"
	TypeSint32   = "sint32"
	TypeSint64   = "sint64"
	TypeFloat    = "float"
	TypeDouble   = "double"
	TypeFixed32  = "fixed32"
	TypeSfixed32 = "sfixed32"
	TypeFixed64  = "fixed64"
	TypeSfixed64 = "sfixed64"
	TypeString   = "string"
	TypeBytes    = "bytes"
	TypeMessage  = "message"
	TypeMap      = "map"
)

// Meta is the metadata container of a message class.
type Meta struct {
	// ClsByField maps a field name to its declared class. It is required for
	// message and enum fields. The value class of a map field is found under
	// the key "<name>.value".
	ClsByField map[string]Type
	// MetaByFieldName maps a field name to its field metadata. Every field
	// of the message has an entry.
	MetaByFieldName map[string]FieldMeta
	// OneofGroupByField maps a field name to the name of its oneof group.
	// Fields that are not in a group have no entry.
	OneofGroupByField map[string]string
	// DefaultGen maps a field name to a function producing the field's
	// default value. A field is repeated if its generator produces a list.
	DefaultGen map[string]func() any
}

// FieldMeta describes one field.
type FieldMeta struct {
	// Number is the field number used on the wire.
	Number int32
	// ProtoType is one of the Type* constants.
	ProtoType string
	// MapTypes holds the key and value type names of a map field.
	MapTypes [2]string
	// Group is the name of the oneof group, if any. OneofGroupByField takes
	// precedence when both are set.
	Group string
	// Wraps names the scalar type wrapped by a google.protobuf wrapper field.
	Wraps string
}
