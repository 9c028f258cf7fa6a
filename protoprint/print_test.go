package protoprint_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/descriptorpb"

	prototesting "github.com/jhump/reflectcodec/internal/testing"
	"github.com/jhump/reflectcodec/protodescs"
	"github.com/jhump/reflectcodec/protoprint"
)

func exportedFile(t *testing.T) protoreflect.FileDescriptor {
	t.Helper()
	md, err := protodescs.Exporter{}.MessageDescriptor(prototesting.Everything)
	require.NoError(t, err)
	return md.ParentFile()
}

func TestPrintProtoFile(t *testing.T) {
	fd := exportedFile(t)
	src, err := (&protoprint.Printer{}).PrintProtoToString(fd)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(src, "syntax = \"proto3\";\n\npackage test;\n"), src)
	for _, line := range []string{
		`import "google/protobuf/duration.proto";`,
		"message Everything {",
		"  fixed32 f32 = 8;",
		"  Color color = 16;",
		"  repeated int32 nums = 18 [packed = false];",
		"  repeated string names = 19;",
		"  map<string, int32> counts = 21;",
		"  map<int64, Simple> by_id = 22;",
		"  oneof choice {",
		"    Simple item = 25;",
		"  google.protobuf.Int32Value opt_int = 27;",
		"  google.protobuf.Timestamp at = 31;",
		"  Everything child = 32;",
		"enum Color {",
		"  COLOR_UNSPECIFIED = 0;",
	} {
		require.Contains(t, src, line+"\n")
	}
	require.NotContains(t, src, "Entry")
	require.NotContains(t, src, "optional")
}

func TestPrintProtoFile_Compiles(t *testing.T) {
	fd := exportedFile(t)
	src, err := (&protoprint.Printer{}).PrintProtoToString(fd)
	require.NoError(t, err)

	compiled, err := prototesting.Compile(context.Background(), "test.proto", map[string]string{"test.proto": src})
	require.NoError(t, err)

	opts := []cmp.Option{
		protocmp.Transform(),
		protocmp.IgnoreFields(&descriptorpb.FieldDescriptorProto{}, "json_name"),
	}
	for _, name := range []protoreflect.Name{"Everything", "Simple"} {
		want := protodesc.ToDescriptorProto(fd.Messages().ByName(name))
		got := protodesc.ToDescriptorProto(compiled.Messages().ByName(name))
		require.Empty(t, cmp.Diff(want, got, opts...), "message %s", name)
	}
	want := protodesc.ToEnumDescriptorProto(fd.Enums().ByName("Color"))
	got := protodesc.ToEnumDescriptorProto(compiled.Enums().ByName("Color"))
	require.Empty(t, cmp.Diff(want, got, opts...))
}

func TestPrinterOptions(t *testing.T) {
	fd := exportedFile(t)

	compact, err := (&protoprint.Printer{Compact: true}).PrintProtoToString(fd)
	require.NoError(t, err)
	require.NotContains(t, compact, "\n\n")
	require.True(t, strings.HasPrefix(compact, "syntax = \"proto3\";\npackage test;\nimport "), compact)

	tabs, err := (&protoprint.Printer{Indent: "\t"}).PrintProtoToString(fd)
	require.NoError(t, err)
	require.Contains(t, tabs, "\n\tbool b = 1;\n")
	require.Contains(t, tabs, "\n\t\tstring text = 23;\n")

	// anything other than tabs counts as a space
	odd, err := (&protoprint.Printer{Indent: "-->"}).PrintProtoToString(fd)
	require.NoError(t, err)
	require.Contains(t, odd, "\n   bool b = 1;\n")

	qualified, err := (&protoprint.Printer{ForceFullyQualifiedNames: true}).PrintProtoToString(fd)
	require.NoError(t, err)
	require.Contains(t, qualified, "  .test.Color color = 16;\n")
	require.Contains(t, qualified, "  map<int64, .test.Simple> by_id = 22;\n")
	require.Contains(t, qualified, "  .google.protobuf.Duration elapsed = 30;\n")
}

func TestPrintEnumAliases(t *testing.T) {
	src := `syntax = "proto3";
package enums;
enum Mode {
  option allow_alias = true;
  MODE_UNSPECIFIED = 0;
  ON = 1;
  ENABLED = 1;
}
message Holder {
  optional Mode mode = 1;
}
`
	fd, err := prototesting.Compile(context.Background(), "enums.proto", map[string]string{"enums.proto": src})
	require.NoError(t, err)
	out, err := (&protoprint.Printer{}).PrintProtoToString(fd)
	require.NoError(t, err)
	require.Contains(t, out, "  option allow_alias = true;\n  MODE_UNSPECIFIED = 0;\n  ON = 1;\n  ENABLED = 1;\n")
	require.Contains(t, out, "  optional Mode mode = 1;\n")
	require.NotContains(t, out, "oneof")
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestPrintProtoFile_WriteError(t *testing.T) {
	w := &failingWriter{}
	err := (&protoprint.Printer{}).PrintProtoFile(exportedFile(t), w)
	require.EqualError(t, err, "disk full")
	require.Equal(t, 1, w.n)
}
