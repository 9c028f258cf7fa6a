package protoprint

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Printer knows how to format file descriptors as proto source code. Its
// fields provide some control over how the resulting source file is
// formatted.
type Printer struct {
	// The indentation used. Any characters other than spaces or tabs will be
	// replaced with spaces. If unset/empty, two spaces will be used.
	Indent string

	// If true, the printed output will eschew any blank lines, which otherwise
	// appear between top-level elements.
	Compact bool

	// If true, all references to messages and enums will be fully-qualified.
	// When left unset, references to elements in the same package omit the
	// package name.
	ForceFullyQualifiedNames bool
}

// PrintProtoFile prints the given file descriptor to the given writer.
func (p *Printer) PrintProtoFile(fd protoreflect.FileDescriptor, out io.Writer) error {
	w := &writer{Writer: out}
	p.printFile(fd, w)
	return w.err
}

// PrintProtoToString prints the given file descriptor and returns the
// resulting string.
func (p *Printer) PrintProtoToString(fd protoreflect.FileDescriptor) (string, error) {
	var buf bytes.Buffer
	if err := p.PrintProtoFile(fd, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *Printer) indentString() string {
	if p.Indent == "" {
		return "  "
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		return ' '
	}, p.Indent)
}

func (p *Printer) indent(w *writer, indent int) {
	ind := p.indentString()
	for i := 0; i < indent; i++ {
		w.print(ind)
	}
}

func (p *Printer) newLine(w *writer) {
	if !p.Compact {
		w.print("\n")
	}
}

func (p *Printer) printFile(fd protoreflect.FileDescriptor, w *writer) {
	switch fd.Syntax() {
	case protoreflect.Proto2:
		w.print("syntax = \"proto2\";\n")
	case protoreflect.Proto3:
		w.print("syntax = \"proto3\";\n")
	default:
		w.fail(fmt.Errorf("file %q: unsupported syntax %v", fd.Path(), fd.Syntax()))
		return
	}
	if fd.Package() != "" {
		p.newLine(w)
		w.printf("package %s;\n", fd.Package())
	}

	imports := make([]string, 0, fd.Imports().Len())
	for i := 0; i < fd.Imports().Len(); i++ {
		imports = append(imports, fd.Imports().Get(i).Path())
	}
	sort.Strings(imports)
	if len(imports) > 0 {
		p.newLine(w)
	}
	for _, imp := range imports {
		w.printf("import %s;\n", strconv.Quote(imp))
	}

	for i := 0; i < fd.Messages().Len(); i++ {
		p.newLine(w)
		p.printMessage(fd.Messages().Get(i), w, fd.Package(), 0)
	}
	for i := 0; i < fd.Enums().Len(); i++ {
		p.newLine(w)
		p.printEnum(fd.Enums().Get(i), w, 0)
	}
}

func (p *Printer) printMessage(md protoreflect.MessageDescriptor, w *writer, pkg protoreflect.FullName, indent int) {
	p.indent(w, indent)
	w.printf("message %s {\n", md.Name())

	printed := map[protoreflect.OneofDescriptor]bool{}
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fld := fields.Get(i)
		ood := fld.ContainingOneof()
		if ood == nil || ood.IsSynthetic() {
			p.printField(fld, w, pkg, indent+1)
			continue
		}
		if printed[ood] {
			continue
		}
		printed[ood] = true
		p.printOneOf(ood, w, pkg, indent+1)
	}

	for i := 0; i < md.Messages().Len(); i++ {
		nested := md.Messages().Get(i)
		if nested.IsMapEntry() {
			continue
		}
		p.printMessage(nested, w, pkg, indent+1)
	}
	for i := 0; i < md.Enums().Len(); i++ {
		p.printEnum(md.Enums().Get(i), w, indent+1)
	}

	p.indent(w, indent)
	w.print("}\n")
}

func (p *Printer) printOneOf(ood protoreflect.OneofDescriptor, w *writer, pkg protoreflect.FullName, indent int) {
	p.indent(w, indent)
	w.printf("oneof %s {\n", ood.Name())
	for i := 0; i < ood.Fields().Len(); i++ {
		p.printField(ood.Fields().Get(i), w, pkg, indent+1)
	}
	p.indent(w, indent)
	w.print("}\n")
}

func (p *Printer) printField(fld protoreflect.FieldDescriptor, w *writer, pkg protoreflect.FullName, indent int) {
	p.indent(w, indent)
	if label := fieldLabel(fld); label != "" {
		w.print(label + " ")
	}
	w.printf("%s %s = %d", p.typeString(fld, pkg), fld.Name(), fld.Number())

	var opts []string
	if fo, ok := fld.Options().(*descriptorpb.FieldOptions); ok && fo != nil && fo.Packed != nil {
		opts = append(opts, fmt.Sprintf("packed = %t", fo.GetPacked()))
	}
	if fld.HasDefault() && fld.Syntax() == protoreflect.Proto2 {
		opts = append(opts, "default = "+defaultString(fld))
	}
	if len(opts) > 0 {
		w.printf(" [%s]", strings.Join(opts, ", "))
	}
	w.print(";\n")
}

func fieldLabel(fld protoreflect.FieldDescriptor) string {
	switch {
	case fld.IsMap():
		return ""
	case fld.Cardinality() == protoreflect.Repeated:
		return "repeated"
	case fld.HasOptionalKeyword() && fld.Syntax() == protoreflect.Proto3:
		return "optional"
	case fld.ContainingOneof() != nil:
		return ""
	case fld.Syntax() == protoreflect.Proto2:
		return fld.Cardinality().String()
	default:
		return ""
	}
}

func defaultString(fld protoreflect.FieldDescriptor) string {
	switch fld.Kind() {
	case protoreflect.EnumKind:
		return string(fld.DefaultEnumValue().Name())
	case protoreflect.StringKind:
		return strconv.Quote(fld.Default().String())
	case protoreflect.BytesKind:
		return strconv.Quote(string(fld.Default().Bytes()))
	default:
		return fmt.Sprint(fld.Default().Interface())
	}
}

func (p *Printer) typeString(fld protoreflect.FieldDescriptor, pkg protoreflect.FullName) string {
	if fld.IsMap() {
		return fmt.Sprintf("map<%s, %s>", p.typeString(fld.MapKey(), pkg), p.typeString(fld.MapValue(), pkg))
	}
	switch fld.Kind() {
	case protoreflect.EnumKind:
		return p.qualifyName(pkg, fld.Enum().FullName())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return p.qualifyName(pkg, fld.Message().FullName())
	default:
		return fld.Kind().String()
	}
}

func (p *Printer) qualifyName(pkg, fqn protoreflect.FullName) string {
	if p.ForceFullyQualifiedNames {
		return "." + string(fqn)
	}
	if pkg != "" && strings.HasPrefix(string(fqn), string(pkg)+".") {
		return string(fqn)[len(pkg)+1:]
	}
	return string(fqn)
}

func (p *Printer) printEnum(ed protoreflect.EnumDescriptor, w *writer, indent int) {
	p.indent(w, indent)
	w.printf("enum %s {\n", ed.Name())
	if eo, ok := ed.Options().(*descriptorpb.EnumOptions); ok && eo.GetAllowAlias() {
		p.indent(w, indent+1)
		w.print("option allow_alias = true;\n")
	}
	for i := 0; i < ed.Values().Len(); i++ {
		ev := ed.Values().Get(i)
		p.indent(w, indent+1)
		w.printf("%s = %d;\n", ev.Name(), ev.Number())
	}
	p.indent(w, indent)
	w.print("}\n")
}

// writer remembers the first error so printing code can ignore write errors.
type writer struct {
	io.Writer
	err error
}

func (w *writer) print(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.Writer, s)
}

func (w *writer) printf(format string, args ...any) {
	w.print(fmt.Sprintf(format, args...))
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
