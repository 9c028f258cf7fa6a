// Package desc contains the descriptors of host message classes: the schema
// (field numbers, kinds, oneof groups) that the encoder and decoder walk.
//
// Descriptors are produced by reflecting on a class's metadata (see Reflect)
// and are memoized per class (see LoadMessageDescriptorForClass). They are
// immutable once built and safe to share across goroutines.
package desc

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/host"
)

// MessageDescriptor describes the fields of a message class.
type MessageDescriptor struct {
	class    host.Class
	fields   []*FieldDescriptor
	byNumber map[protowire.Number]*FieldDescriptor
	byName   map[string]*FieldDescriptor
	oneofs   []string
	members  map[string][]*FieldDescriptor
}

func newMessageDescriptor(cls host.Class, fields []*FieldDescriptor) *MessageDescriptor {
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].number < fields[j].number
	})
	md := &MessageDescriptor{
		class:    cls,
		fields:   fields,
		byNumber: make(map[protowire.Number]*FieldDescriptor, len(fields)),
		byName:   make(map[string]*FieldDescriptor, len(fields)),
		members:  map[string][]*FieldDescriptor{},
	}
	for _, fd := range fields {
		fd.owner = md
		md.byNumber[fd.number] = fd
		md.byName[fd.name] = fd
		if fd.oneof != "" {
			if _, ok := md.members[fd.oneof]; !ok {
				md.oneofs = append(md.oneofs, fd.oneof)
			}
			md.members[fd.oneof] = append(md.members[fd.oneof], fd)
		}
	}
	return md
}

// GetClass returns the class this descriptor describes.
func (md *MessageDescriptor) GetClass() host.Class {
	return md.class
}

// GetName returns the type name of the described class.
func (md *MessageDescriptor) GetName() string {
	if md.class == nil {
		return ""
	}
	return md.class.TypeName()
}

// GetFields returns all fields, ordered by field number.
func (md *MessageDescriptor) GetFields() []*FieldDescriptor {
	return md.fields
}

// FindFieldByNumber returns the field with the given number, or nil.
func (md *MessageDescriptor) FindFieldByNumber(num protowire.Number) *FieldDescriptor {
	return md.byNumber[num]
}

// FindFieldByName returns the field with the given name, or nil.
func (md *MessageDescriptor) FindFieldByName(name string) *FieldDescriptor {
	return md.byName[name]
}

// GetOneOfs returns the names of the message's oneof groups, ordered by the
// lowest field number in each.
func (md *MessageDescriptor) GetOneOfs() []string {
	return md.oneofs
}

// GetOneOfChoices returns the members of the named oneof group, ordered by
// field number.
func (md *MessageDescriptor) GetOneOfChoices(group string) []*FieldDescriptor {
	return md.members[group]
}

func (md *MessageDescriptor) String() string {
	var sb strings.Builder
	sb.WriteString("message ")
	sb.WriteString(md.GetName())
	sb.WriteString(" {")
	for i, fd := range md.fields {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(" ")
		sb.WriteString(fd.String())
	}
	sb.WriteString(" }")
	return sb.String()
}

// FieldDescriptor describes one field of a message class.
type FieldDescriptor struct {
	owner  *MessageDescriptor
	number protowire.Number
	name   string
	kind   Kind
	oneof  string
}

// GetOwner returns the descriptor of the message that declares the field.
func (fd *FieldDescriptor) GetOwner() *MessageDescriptor {
	return fd.owner
}

// GetNumber returns the field number used on the wire.
func (fd *FieldDescriptor) GetNumber() protowire.Number {
	return fd.number
}

// GetName returns the host-side name of the field.
func (fd *FieldDescriptor) GetName() string {
	return fd.name
}

// GetKind returns the kind of the field.
func (fd *FieldDescriptor) GetKind() Kind {
	return fd.kind
}

// GetOneOf returns the name of the field's oneof group, or "" if it is not
// in one.
func (fd *FieldDescriptor) GetOneOf() string {
	return fd.oneof
}

// IsRepeated returns true if the field is a list.
func (fd *FieldDescriptor) IsRepeated() bool {
	_, ok := fd.kind.(Repeated)
	return ok
}

// IsMap returns true if the field is a map.
func (fd *FieldDescriptor) IsMap() bool {
	_, ok := fd.kind.(Map)
	return ok
}

func (fd *FieldDescriptor) String() string {
	s := fmt.Sprintf("%s %s = %d", fd.kind, fd.name, fd.number)
	if fd.oneof != "" {
		s += " (oneof " + fd.oneof + ")"
	}
	return s
}
