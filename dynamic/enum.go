package dynamic

import (
	"fmt"

	"github.com/jhump/reflectcodec/host"
)

// Enum is an enum type declared at runtime. It satisfies host.EnumType, so
// decoded values of its fields are EnumValues.
type Enum struct {
	name   string
	names  map[int32]string
	values map[string]int32
}

var (
	_ host.EnumType   = (*Enum)(nil)
	_ host.EnumValues = (*Enum)(nil)
)

// NewEnum declares an enum type with the given value names and numbers.
func NewEnum(name string, values map[string]int32) *Enum {
	e := &Enum{
		name:   name,
		names:  make(map[int32]string, len(values)),
		values: make(map[string]int32, len(values)),
	}
	for n, num := range values {
		e.values[n] = num
		if _, ok := e.names[num]; !ok {
			e.names[num] = n
		}
	}
	return e
}

// TypeName returns the name given to NewEnum.
func (e *Enum) TypeName() string {
	return e.name
}

// EnumOf returns the value of e with the given number. Numbers without a
// declared name are still valid values, as in proto3.
func (e *Enum) EnumOf(number int32) any {
	return EnumValue{Enum: e, Number: number}
}

// Value returns the value with the given name. It panics if there is none.
func (e *Enum) Value(name string) EnumValue {
	num, ok := e.values[name]
	if !ok {
		panic(fmt.Sprintf("enum %s has no value named %q", e.name, name))
	}
	return EnumValue{Enum: e, Number: num}
}

// Values returns the declared value names and their numbers.
func (e *Enum) Values() map[string]int32 {
	vals := make(map[string]int32, len(e.values))
	for n, num := range e.values {
		vals[n] = num
	}
	return vals
}

// EnumValue is one value of an Enum.
type EnumValue struct {
	Enum   *Enum
	Number int32
}

var _ host.EnumValue = EnumValue{}

// EnumNumber implements host.EnumValue.
func (v EnumValue) EnumNumber() int32 {
	return v.Number
}

func (v EnumValue) String() string {
	if v.Enum != nil {
		if n, ok := v.Enum.names[v.Number]; ok {
			return n
		}
	}
	return fmt.Sprintf("%d", v.Number)
}
