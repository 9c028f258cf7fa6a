package desc

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/internal/coerce"
	"github.com/jhump/reflectcodec/protoerr"
	"github.com/jhump/reflectcodec/wellknown"
)

// Reflect builds the descriptor of cls from the metadata container of one of
// its instances. Most callers want LoadMessageDescriptorForClass instead,
// which memoizes the result.
func Reflect(cls host.Class, meta *host.Meta) (*MessageDescriptor, error) {
	if meta == nil || meta.MetaByFieldName == nil {
		return nil, protoerr.New(protoerr.NotAValidMessageClass, "missing field metadata")
	}
	names := make([]string, 0, len(meta.MetaByFieldName))
	for name := range meta.MetaByFieldName {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]*FieldDescriptor, 0, len(names))
	seen := make(map[protowire.Number]string, len(names))
	for _, name := range names {
		fd, err := reflectField(name, meta.MetaByFieldName[name], meta)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[fd.number]; ok {
			return nil, &protoerr.Error{
				Kind:   protoerr.NotAValidMessageClass,
				Detail: fmt.Sprintf("fields %q and %q both use number %d", other, name, fd.number),
			}
		}
		seen[fd.number] = name
		fields = append(fields, fd)
	}
	return newMessageDescriptor(cls, fields), nil
}

func reflectField(name string, fm host.FieldMeta, meta *host.Meta) (*FieldDescriptor, error) {
	num := protowire.Number(fm.Number)
	if !num.IsValid() {
		return nil, &protoerr.Error{
			Kind:   protoerr.NotAValidMessageClass,
			Detail: fmt.Sprintf("field %q has invalid number %d", name, fm.Number),
		}
	}
	repeated, err := isListField(name, meta)
	if err != nil {
		return nil, err
	}
	kind, err := fieldKind(name, fm, meta)
	if err != nil {
		return nil, err
	}
	if _, isMap := kind.(Map); repeated && !isMap {
		kind = Repeated{Elem: kind}
	}
	group := fm.Group
	if g, ok := meta.OneofGroupByField[name]; ok {
		group = g
	}
	if group != "" {
		switch kind.(type) {
		case Repeated, Map:
			return nil, &protoerr.Error{
				Kind:   protoerr.NotAValidMessageClass,
				Detail: fmt.Sprintf("field %q in oneof %q cannot be a list or map", name, group),
			}
		}
	}
	return &FieldDescriptor{number: num, name: name, kind: kind, oneof: group}, nil
}

// isListField calls the field's default generator and checks whether it
// produces a list.
func isListField(name string, meta *host.Meta) (bool, error) {
	gen := meta.DefaultGen[name]
	if gen == nil {
		return false, protoerr.ErrIncompleteMetadata
	}
	return coerce.IsList(gen()), nil
}

func getClass(key string, meta *host.Meta) (host.Type, error) {
	cls, ok := meta.ClsByField[key]
	if !ok || cls == nil {
		return nil, protoerr.ErrIncompleteMetadata
	}
	return cls, nil
}

func fieldKind(name string, fm host.FieldMeta, meta *host.Meta) (Kind, error) {
	switch fm.ProtoType {
	case host.TypeMessage:
		if fm.Wraps != "" {
			// wrapper fields need no class entry
			return messageKind(meta.ClsByField[name], fm.Wraps)
		}
		cls, err := getClass(name, meta)
		if err != nil {
			return nil, err
		}
		return messageKind(cls, "")
	case host.TypeEnum:
		cls, err := getClass(name, meta)
		if err != nil {
			return nil, err
		}
		return Enum{Type: cls}, nil
	case host.TypeMap:
		key, ok := ScalarKindByName(fm.MapTypes[0])
		if !ok || !key.IsValidMapKey() {
			return nil, protoerr.New(protoerr.UnsupportedKeyType, fm.MapTypes[0])
		}
		val, err := mapValueKind(name+".value", fm.MapTypes[1], meta)
		if err != nil {
			return nil, err
		}
		return Map{Key: key, Value: val}, nil
	default:
		if sk, ok := ScalarKindByName(fm.ProtoType); ok {
			return Scalar{Type: sk}, nil
		}
		return nil, protoerr.New(protoerr.UnsupportedValueType, fm.ProtoType)
	}
}

func mapValueKind(key, typeName string, meta *host.Meta) (Kind, error) {
	switch typeName {
	case host.TypeMessage:
		cls, err := getClass(key, meta)
		if err != nil {
			return nil, err
		}
		return messageKind(cls, "")
	case host.TypeEnum:
		cls, err := getClass(key, meta)
		if err != nil {
			return nil, err
		}
		return Enum{Type: cls}, nil
	default:
		if sk, ok := ScalarKindByName(typeName); ok {
			return Scalar{Type: sk}, nil
		}
		return nil, protoerr.New(protoerr.UnsupportedValueType, typeName)
	}
}

func messageKind(cls host.Type, wraps string) (Kind, error) {
	if wraps != "" {
		sk, ok := ScalarKindByName(wraps)
		if !ok || !wellknown.IsWrappable(wraps) {
			return nil, protoerr.New(protoerr.UnsupportedWrappedType, wraps)
		}
		return Wrapper{Type: sk}, nil
	}
	switch cls {
	case host.DurationType:
		return Duration{}, nil
	case host.TimestampType:
		return Timestamp{}, nil
	}
	if c, ok := cls.(host.Class); ok {
		return Message{Class: c}, nil
	}
	return nil, protoerr.New(protoerr.NotAValidMessageClass, cls.TypeName())
}
