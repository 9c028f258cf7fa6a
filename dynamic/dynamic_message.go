// Package dynamic provides a host object model whose classes are declared at
// runtime: a Class is a list of field definitions and a Message is a map of
// field values. Both satisfy the interfaces in package host, so they can be
// encoded and decoded without any generated code.
package dynamic

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jhump/reflectcodec/host"
)

var ErrUnknownField = errors.New("unknown field name")
var ErrUnknownOneOf = errors.New("unknown oneof group")

// Message is an instance of a Class. Fields that were never set report
// their default value.
type Message struct {
	class  *Class
	values map[string]any
	// oneofs maps a oneof group to the member that currently holds a value
	oneofs map[string]string
}

var _ host.Message = (*Message)(nil)

// Class implements host.Message.
func (m *Message) Class() host.Class {
	return m.class
}

// GetClass returns the class of m.
func (m *Message) GetClass() *Class {
	return m.class
}

// Meta implements host.Message. The returned container is shared by all
// instances of the class and must not be modified.
func (m *Message) Meta() (*host.Meta, error) {
	return &m.class.meta, nil
}

func (m *Message) checkField(name string) error {
	if _, ok := m.class.meta.MetaByFieldName[name]; !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, m.class.name, name)
	}
	return nil
}

// Get implements host.Message.
func (m *Message) Get(name string) (any, error) {
	if err := m.checkField(name); err != nil {
		return nil, err
	}
	if v, ok := m.values[name]; ok {
		return v, nil
	}
	return m.class.meta.DefaultGen[name](), nil
}

// GetField is like Get but panics if the field does not exist.
func (m *Message) GetField(name string) any {
	v, err := m.Get(name)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// Set implements host.Message. Setting a oneof member clears the other
// members of its group; setting it to nil clears the group.
func (m *Message) Set(name string, val any) error {
	if err := m.checkField(name); err != nil {
		return err
	}
	if m.values == nil {
		m.values = map[string]any{}
	}
	group := m.class.meta.OneofGroupByField[name]
	if group == "" {
		m.values[name] = val
		return nil
	}
	// if this field is part of a one-of, make sure all other one-of choices are cleared
	if cur, ok := m.oneofs[group]; ok {
		delete(m.values, cur)
		delete(m.oneofs, group)
	}
	if val == nil {
		return nil
	}
	if m.oneofs == nil {
		m.oneofs = map[string]string{}
	}
	m.values[name] = val
	m.oneofs[group] = name
	return nil
}

// SetField is like Set but panics if the field does not exist. It returns m
// so calls can be chained.
func (m *Message) SetField(name string, val any) *Message {
	if err := m.Set(name, val); err != nil {
		panic(err.Error())
	}
	return m
}

// ClearField resets the named field to its default.
func (m *Message) ClearField(name string) error {
	if err := m.checkField(name); err != nil {
		return err
	}
	delete(m.values, name)
	if group := m.class.meta.OneofGroupByField[name]; group != "" && m.oneofs[group] == name {
		delete(m.oneofs, group)
	}
	return nil
}

// HasField reports whether the named field was explicitly set.
func (m *Message) HasField(name string) bool {
	_, ok := m.values[name]
	return ok
}

// WhichOneof implements host.Message.
func (m *Message) WhichOneof(group string) (string, error) {
	if !m.hasGroup(group) {
		return "", fmt.Errorf("%w: %s has no oneof %q", ErrUnknownOneOf, m.class.name, group)
	}
	return m.oneofs[group], nil
}

func (m *Message) hasGroup(group string) bool {
	for _, g := range m.class.meta.OneofGroupByField {
		if g == group {
			return true
		}
	}
	return false
}

// Equal reports whether m and other are instances of the same class with
// equal field values and the same oneof selections. Unset fields compare
// equal to fields explicitly set to their default.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.class != other.class {
		return false
	}
	for _, def := range m.class.defs {
		if def.Oneof != "" && m.oneofs[def.Oneof] != other.oneofs[def.Oneof] {
			return false
		}
		if !valuesEqual(m.GetField(def.Name), other.GetField(def.Name)) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case *Message:
		bv, ok := b.(*Message)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[any]any:
		bv, ok := b.(map[any]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !valuesEqual(v, ov) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// String returns a compact, human-readable form of the message, listing
// fields that were explicitly set.
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	names := make([]string, 0, len(m.values))
	for n := range m.values {
		names = append(names, n)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString(m.class.name)
	sb.WriteString("{")
	for i, n := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", n, m.values[n])
	}
	sb.WriteString("}")
	return sb.String()
}
