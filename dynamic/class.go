package dynamic

import (
	"fmt"

	"github.com/jhump/reflectcodec/host"
)

// FieldDef declares one field of a Class.
type FieldDef struct {
	Name   string
	Number int32
	// Type is one of the host.Type* constants.
	Type string
	// Class is the declared class of a message or enum field: a *Class, an
	// *Enum, host.DurationType, or host.TimestampType.
	Class host.Type
	// Repeated makes the field a list.
	Repeated bool
	// MapTypes holds the key and value type names of a map field.
	MapTypes [2]string
	// ValueClass is the declared class of a map field's message or enum
	// values.
	ValueClass host.Type
	// Oneof names the field's oneof group, if any.
	Oneof string
	// Wraps names the scalar type wrapped by a wrapper field.
	Wraps string
}

// Class is a message class whose fields are declared at runtime. It
// satisfies host.Class.
type Class struct {
	name string
	meta host.Meta
	defs []FieldDef
}

var _ host.Class = (*Class)(nil)

// NewClass declares a message class with the given fields. It panics if two
// fields share a name.
func NewClass(name string, fields ...FieldDef) *Class {
	c := &Class{
		name: name,
		meta: host.Meta{
			ClsByField:        map[string]host.Type{},
			MetaByFieldName:   map[string]host.FieldMeta{},
			OneofGroupByField: map[string]string{},
			DefaultGen:        map[string]func() any{},
		},
	}
	for _, f := range fields {
		c.AddField(f)
	}
	return c
}

// AddField declares another field. It lets classes refer to themselves,
// since the class exists before its fields do. It panics if a field with
// the same name is already declared.
func (c *Class) AddField(f FieldDef) {
	if _, ok := c.meta.MetaByFieldName[f.Name]; ok {
		panic(fmt.Sprintf("class %s already has a field named %q", c.name, f.Name))
	}
	c.defs = append(c.defs, f)
	c.meta.MetaByFieldName[f.Name] = host.FieldMeta{
		Number:    f.Number,
		ProtoType: f.Type,
		MapTypes:  f.MapTypes,
		Wraps:     f.Wraps,
	}
	if f.Class != nil {
		c.meta.ClsByField[f.Name] = f.Class
	}
	if f.ValueClass != nil {
		c.meta.ClsByField[f.Name+".value"] = f.ValueClass
	}
	if f.Oneof != "" {
		c.meta.OneofGroupByField[f.Name] = f.Oneof
	}
	c.meta.DefaultGen[f.Name] = defaultGenerator(f)
}

// TypeName returns the name given to NewClass.
func (c *Class) TypeName() string {
	return c.name
}

// New implements host.Class.
func (c *Class) New() (host.Message, error) {
	return c.NewMessage(), nil
}

// NewMessage returns a new, default-valued instance of c.
func (c *Class) NewMessage() *Message {
	return &Message{class: c}
}

// Fields returns the declared fields, in declaration order.
func (c *Class) Fields() []FieldDef {
	return c.defs
}

func (c *Class) String() string {
	return c.name
}

func defaultGenerator(f FieldDef) func() any {
	if f.Repeated {
		return func() any { return []any{} }
	}
	switch f.Type {
	case host.TypeMap:
		return func() any { return map[any]any{} }
	case host.TypeMessage:
		return func() any { return nil }
	case host.TypeEnum:
		if et, ok := f.Class.(host.EnumType); ok {
			return func() any { return et.EnumOf(0) }
		}
		return func() any { return int32(0) }
	case host.TypeBytes:
		return func() any { return []byte{} }
	}
	zero := scalarZero(f.Type)
	return func() any { return zero }
}

func scalarZero(typeName string) any {
	switch typeName {
	case host.TypeBool:
		return false
	case host.TypeInt32, host.TypeSint32, host.TypeSfixed32:
		return int32(0)
	case host.TypeInt64, host.TypeSint64, host.TypeSfixed64:
		return int64(0)
	case host.TypeUint32, host.TypeFixed32:
		return uint32(0)
	case host.TypeUint64, host.TypeFixed64:
		return uint64(0)
	case host.TypeFloat:
		return float32(0)
	case host.TypeDouble:
		return float64(0)
	case host.TypeString:
		return ""
	default:
		return nil
	}
}
