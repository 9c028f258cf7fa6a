// Package protodescs exports the schemas of reflected message classes as
// standard protobuf descriptors.
//
// The result is a self-contained FileDescriptorSet: one proto3 file per
// package named by the exported classes, plus the well-known files they
// import, sorted so that every file follows its imports. It can be handed to
// protodesc or any other protobuf tooling, printed as source with package
// protoprint, or used to build dynamicpb messages that read the bytes
// package codec writes.
package protodescs

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	"github.com/jhump/reflectcodec/protoerr"
)

// Exporter builds protobuf descriptors for reflected message classes.
type Exporter struct {
	// Cache supplies the descriptors of exported classes. If nil, the
	// process-wide cache is used.
	Cache *desc.Cache
	// Packed marks repeated numeric and enum fields as packed, to match
	// bytes written with codec.MarshalOptions.Packed. Otherwise they are
	// marked unpacked.
	Packed bool
}

// FileDescriptorSet exports the given classes and every class and enum type
// reachable from their fields, using a zero Exporter.
func FileDescriptorSet(classes ...host.Class) (*descriptorpb.FileDescriptorSet, error) {
	return Exporter{}.FileDescriptorSet(classes...)
}

// FileDescriptorSet exports the given classes and every class and enum type
// reachable from their fields.
func (e Exporter) FileDescriptorSet(classes ...host.Class) (*descriptorpb.FileDescriptorSet, error) {
	x := &exporter{
		Exporter: e,
		files:    map[string]*descriptorpb.FileDescriptorProto{},
		imports:  map[string]protoreflect.FileDescriptor{},
		messages: map[protoreflect.FullName]host.Class{},
		enums:    map[protoreflect.FullName]host.Type{},
	}
	for _, cls := range classes {
		if _, err := x.addMessage(cls); err != nil {
			return nil, err
		}
	}
	for len(x.queue) > 0 {
		md := x.queue[0]
		x.queue = x.queue[1:]
		if err := x.message(md); err != nil {
			return nil, err
		}
	}
	return x.result()
}

// Files exports the given classes and links the result, ready for lookups
// by name.
func (e Exporter) Files(classes ...host.Class) (*protoregistry.Files, error) {
	set, err := e.FileDescriptorSet(classes...)
	if err != nil {
		return nil, err
	}
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.NotAValidMessageClass, err)
	}
	return files, nil
}

// MessageDescriptor exports cls and returns the linked descriptor of its
// message type.
func (e Exporter) MessageDescriptor(cls host.Class) (protoreflect.MessageDescriptor, error) {
	files, err := e.Files(cls)
	if err != nil {
		return nil, err
	}
	d, err := files.FindDescriptorByName(protoreflect.FullName(cls.TypeName()))
	if err != nil {
		return nil, protoerr.Wrap(protoerr.NotAValidMessageClass, err)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, protoerr.New(protoerr.NotAValidMessageClass, cls.TypeName())
	}
	return md, nil
}

type exporter struct {
	Exporter
	// files by package
	files    map[string]*descriptorpb.FileDescriptorProto
	imports  map[string]protoreflect.FileDescriptor
	messages map[protoreflect.FullName]host.Class
	enums    map[protoreflect.FullName]host.Type
	queue    []*desc.MessageDescriptor
}

func (x *exporter) load(cls host.Class) (*desc.MessageDescriptor, error) {
	if x.Cache != nil {
		return x.Cache.Load(cls)
	}
	return desc.LoadMessageDescriptorForClass(cls)
}

func typeName(t host.Type) (protoreflect.FullName, error) {
	name := protoreflect.FullName(t.TypeName())
	if !name.IsValid() {
		return "", &protoerr.Error{
			Kind:   protoerr.NotAValidMessageClass,
			Detail: fmt.Sprintf("%q is not a valid protobuf type name", t.TypeName()),
		}
	}
	return name, nil
}

func (x *exporter) file(pkg protoreflect.FullName) *descriptorpb.FileDescriptorProto {
	if fdp, ok := x.files[string(pkg)]; ok {
		return fdp
	}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:   proto.String(fileName(pkg)),
		Syntax: proto.String("proto3"),
	}
	if pkg != "" {
		fdp.Package = proto.String(string(pkg))
	}
	x.files[string(pkg)] = fdp
	return fdp
}

func fileName(pkg protoreflect.FullName) string {
	if pkg == "" {
		return "reflected.proto"
	}
	return strings.ReplaceAll(string(pkg), ".", "/") + ".proto"
}

func addImport(fdp *descriptorpb.FileDescriptorProto, path string) {
	if path == fdp.GetName() {
		return
	}
	for _, dep := range fdp.Dependency {
		if dep == path {
			return
		}
	}
	fdp.Dependency = append(fdp.Dependency, path)
}

func (x *exporter) addMessage(cls host.Class) (protoreflect.FullName, error) {
	if cls == nil {
		return "", protoerr.New(protoerr.NotAValidMessageClass, "nil class")
	}
	name, err := typeName(cls)
	if err != nil {
		return "", err
	}
	if prev, ok := x.messages[name]; ok {
		if prev != cls {
			return "", &protoerr.Error{
				Kind:   protoerr.NotAValidMessageClass,
				Detail: fmt.Sprintf("two classes are named %s", name),
			}
		}
		return name, nil
	}
	md, err := x.load(cls)
	if err != nil {
		return "", err
	}
	x.messages[name] = cls
	x.queue = append(x.queue, md)
	return name, nil
}

func (x *exporter) message(md *desc.MessageDescriptor) error {
	name := protoreflect.FullName(md.GetName())
	fdp := x.file(name.Parent())
	msg := &descriptorpb.DescriptorProto{Name: proto.String(string(name.Name()))}

	oneofIndex := map[string]int32{}
	for i, group := range md.GetOneOfs() {
		oneofIndex[group] = int32(i)
		msg.OneofDecl = append(msg.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String(group)})
	}

	// members of a oneof are declared together, where the first one appears
	emitted := map[string]bool{}
	for _, fd := range md.GetFields() {
		group := fd.GetOneOf()
		if group == "" {
			if err := x.field(fdp, msg, name, fd, nil); err != nil {
				return err
			}
			continue
		}
		if emitted[group] {
			continue
		}
		emitted[group] = true
		idx := proto.Int32(oneofIndex[group])
		for _, member := range md.GetOneOfChoices(group) {
			if err := x.field(fdp, msg, name, member, idx); err != nil {
				return err
			}
		}
	}
	fdp.MessageType = append(fdp.MessageType, msg)
	return nil
}

func (x *exporter) field(fdp *descriptorpb.FileDescriptorProto, msg *descriptorpb.DescriptorProto, scope protoreflect.FullName, fd *desc.FieldDescriptor, oneof *int32) error {
	fld := &descriptorpb.FieldDescriptorProto{
		Name:       proto.String(fd.GetName()),
		Number:     proto.Int32(int32(fd.GetNumber())),
		Label:      descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		OneofIndex: oneof,
	}
	kind := fd.GetKind()
	switch k := kind.(type) {
	case desc.Repeated:
		fld.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
		kind = k.Elem
		if isPackable(k.Elem) {
			fld.Options = &descriptorpb.FieldOptions{Packed: proto.Bool(x.Packed)}
		}
	case desc.Map:
		entry, err := x.mapEntry(fdp, fd.GetName(), k)
		if err != nil {
			return err
		}
		msg.NestedType = append(msg.NestedType, entry)
		fld.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
		fld.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
		fld.TypeName = proto.String(fmt.Sprintf(".%s.%s", scope, entry.GetName()))
		msg.Field = append(msg.Field, fld)
		return nil
	}
	if err := x.setType(fdp, fld, kind); err != nil {
		return err
	}
	msg.Field = append(msg.Field, fld)
	return nil
}

func isPackable(k desc.Kind) bool {
	switch k := k.(type) {
	case desc.Scalar:
		return k.Type.IsPackable()
	case desc.Enum:
		return true
	default:
		return false
	}
}

func (x *exporter) mapEntry(fdp *descriptorpb.FileDescriptorProto, fieldName string, k desc.Map) (*descriptorpb.DescriptorProto, error) {
	key := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String("key"),
		Number: proto.Int32(1),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if err := x.setType(fdp, key, desc.Scalar{Type: k.Key}); err != nil {
		return nil, err
	}
	val := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String("value"),
		Number: proto.Int32(2),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if err := x.setType(fdp, val, k.Value); err != nil {
		return nil, err
	}
	return &descriptorpb.DescriptorProto{
		Name:    proto.String(mapEntryName(fieldName)),
		Field:   []*descriptorpb.FieldDescriptorProto{key, val},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}, nil
}

// mapEntryName is the name protoc gives the synthetic entry message of a
// map field: the field name in CamelCase plus "Entry".
func mapEntryName(fieldName string) string {
	var sb strings.Builder
	upperNext := true
	for _, c := range fieldName {
		switch {
		case c == '_':
			upperNext = true
		case upperNext:
			sb.WriteString(strings.ToUpper(string(c)))
			upperNext = false
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteString("Entry")
	return sb.String()
}

var scalarTypes = map[desc.ScalarKind]descriptorpb.FieldDescriptorProto_Type{
	desc.BoolKind:     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	desc.Int32Kind:    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	desc.Int64Kind:    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	desc.Uint32Kind:   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	desc.Uint64Kind:   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	desc.Sint32Kind:   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	desc.Sint64Kind:   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	desc.Fixed32Kind:  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	desc.Fixed64Kind:  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	desc.Sfixed32Kind: descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	desc.Sfixed64Kind: descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	desc.FloatKind:    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	desc.DoubleKind:   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	desc.StringKind:   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	desc.BytesKind:    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
}

var wrapperNames = map[desc.ScalarKind]protoreflect.Name{
	desc.BoolKind:   "BoolValue",
	desc.Int32Kind:  "Int32Value",
	desc.Int64Kind:  "Int64Value",
	desc.Uint32Kind: "UInt32Value",
	desc.Uint64Kind: "UInt64Value",
	desc.FloatKind:  "FloatValue",
	desc.DoubleKind: "DoubleValue",
	desc.StringKind: "StringValue",
	desc.BytesKind:  "BytesValue",
}

func (x *exporter) setType(fdp *descriptorpb.FileDescriptorProto, fld *descriptorpb.FieldDescriptorProto, kind desc.Kind) error {
	switch k := kind.(type) {
	case desc.Scalar:
		t, ok := scalarTypes[k.Type]
		if !ok {
			return protoerr.New(protoerr.UnsupportedValueType, k.Type.String())
		}
		fld.Type = t.Enum()
	case desc.Enum:
		name, err := x.addEnum(k.Type)
		if err != nil {
			return err
		}
		addImport(fdp, fileName(name.Parent()))
		fld.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
		fld.TypeName = proto.String("." + string(name))
	case desc.Message:
		name, err := x.addMessage(k.Class)
		if err != nil {
			return err
		}
		addImport(fdp, fileName(name.Parent()))
		fld.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
		fld.TypeName = proto.String("." + string(name))
	case desc.Wrapper:
		name, ok := wrapperNames[k.Type]
		if !ok {
			return protoerr.New(protoerr.UnsupportedWrappedType, k.Type.String())
		}
		x.wellKnown(fdp, fld, wrapperspb.File_google_protobuf_wrappers_proto.Messages().ByName(name))
	case desc.Duration:
		x.wellKnown(fdp, fld, durationpb.File_google_protobuf_duration_proto.Messages().ByName("Duration"))
	case desc.Timestamp:
		x.wellKnown(fdp, fld, timestamppb.File_google_protobuf_timestamp_proto.Messages().ByName("Timestamp"))
	default:
		return protoerr.New(protoerr.UnsupportedValueType, fmt.Sprint(kind))
	}
	return nil
}

func (x *exporter) wellKnown(fdp *descriptorpb.FileDescriptorProto, fld *descriptorpb.FieldDescriptorProto, md protoreflect.MessageDescriptor) {
	file := md.ParentFile()
	x.imports[file.Path()] = file
	addImport(fdp, file.Path())
	fld.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
	fld.TypeName = proto.String("." + string(md.FullName()))
}

func (x *exporter) addEnum(t host.Type) (protoreflect.FullName, error) {
	name, err := typeName(t)
	if err != nil {
		return "", err
	}
	if prev, ok := x.enums[name]; ok {
		if prev != t {
			return "", &protoerr.Error{
				Kind:   protoerr.NotAValidMessageClass,
				Detail: fmt.Sprintf("two enum types are named %s", name),
			}
		}
		return name, nil
	}
	x.enums[name] = t

	type value struct {
		name string
		num  int32
	}
	var values []value
	if ev, ok := t.(host.EnumValues); ok {
		for n, num := range ev.Values() {
			values = append(values, value{n, num})
		}
	}
	// proto3 requires the first value to be zero
	hasZero := false
	for _, v := range values {
		hasZero = hasZero || v.num == 0
	}
	if !hasZero {
		values = append(values, value{upperSnake(string(name.Name())) + "_UNSPECIFIED", 0})
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := values[i], values[j]
		if (a.num == 0) != (b.num == 0) {
			return a.num == 0
		}
		if a.num != b.num {
			return a.num < b.num
		}
		return a.name < b.name
	})

	ed := &descriptorpb.EnumDescriptorProto{Name: proto.String(string(name.Name()))}
	seen := map[int32]bool{}
	for _, v := range values {
		if seen[v.num] {
			ed.Options = &descriptorpb.EnumOptions{AllowAlias: proto.Bool(true)}
		}
		seen[v.num] = true
		ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v.name),
			Number: proto.Int32(v.num),
		})
	}
	fdp := x.file(name.Parent())
	fdp.EnumType = append(fdp.EnumType, ed)
	return name, nil
}

func upperSnake(s string) string {
	var sb strings.Builder
	for i, c := range s {
		if i > 0 && 'A' <= c && c <= 'Z' {
			prev := s[i-1]
			if 'a' <= prev && prev <= 'z' || '0' <= prev && prev <= '9' {
				sb.WriteByte('_')
			}
		}
		sb.WriteString(strings.ToUpper(string(c)))
	}
	return sb.String()
}

func (x *exporter) result() (*descriptorpb.FileDescriptorSet, error) {
	set := &descriptorpb.FileDescriptorSet{}
	paths := make([]string, 0, len(x.imports))
	for path := range x.imports {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		set.File = append(set.File, protodesc.ToFileDescriptorProto(x.imports[path]))
	}
	pkgs := make([]string, 0, len(x.files))
	for pkg := range x.files {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	for _, pkg := range pkgs {
		fdp := x.files[pkg]
		sort.Strings(fdp.Dependency)
		set.File = append(set.File, fdp)
	}
	if err := SortFiles(set.File); err != nil {
		return nil, protoerr.Wrap(protoerr.NotAValidMessageClass, err)
	}
	return set, nil
}
