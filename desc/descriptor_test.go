package desc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/desc"
	"github.com/jhump/reflectcodec/host"
	prototesting "github.com/jhump/reflectcodec/internal/testing"
)

func TestLoadMessageDescriptorForClass(t *testing.T) {
	md, err := desc.LoadMessageDescriptorForClass(prototesting.Everything)
	require.NoError(t, err)
	require.Equal(t, "test.Everything", md.GetName())
	require.Equal(t, host.Class(prototesting.Everything), md.GetClass())

	fields := md.GetFields()
	require.Len(t, fields, 33)
	for i, fd := range fields {
		require.Equal(t, protowire.Number(i+1), fd.GetNumber())
		require.Same(t, md, fd.GetOwner())
		require.Same(t, fd, md.FindFieldByNumber(fd.GetNumber()))
		require.Same(t, fd, md.FindFieldByName(fd.GetName()))
	}
	require.Nil(t, md.FindFieldByNumber(34))
	require.Nil(t, md.FindFieldByName("nope"))

	testCases := []struct {
		name string
		kind desc.Kind
	}{
		{"b", desc.Scalar{Type: desc.BoolKind}},
		{"s64", desc.Scalar{Type: desc.Sint64Kind}},
		{"sf32", desc.Scalar{Type: desc.Sfixed32Kind}},
		{"byt", desc.Scalar{Type: desc.BytesKind}},
		{"color", desc.Enum{Type: prototesting.Color}},
		{"simple", desc.Message{Class: prototesting.Simple}},
		{"nums", desc.Repeated{Elem: desc.Scalar{Type: desc.Int32Kind}}},
		{"simples", desc.Repeated{Elem: desc.Message{Class: prototesting.Simple}}},
		{"colors", desc.Repeated{Elem: desc.Enum{Type: prototesting.Color}}},
		{"counts", desc.Map{Key: desc.StringKind, Value: desc.Scalar{Type: desc.Int32Kind}}},
		{"by_id", desc.Map{Key: desc.Int64Kind, Value: desc.Message{Class: prototesting.Simple}}},
		{"opt_bool", desc.Wrapper{Type: desc.BoolKind}},
		{"opt_bytes", desc.Wrapper{Type: desc.BytesKind}},
		{"elapsed", desc.Duration{}},
		{"at", desc.Timestamp{}},
		{"child", desc.Message{Class: prototesting.Everything}},
	}
	for _, tc := range testCases {
		fd := md.FindFieldByName(tc.name)
		require.NotNil(t, fd, tc.name)
		require.Equal(t, tc.kind, fd.GetKind(), tc.name)
	}

	require.True(t, md.FindFieldByName("nums").IsRepeated())
	require.False(t, md.FindFieldByName("nums").IsMap())
	require.True(t, md.FindFieldByName("counts").IsMap())
	require.False(t, md.FindFieldByName("counts").IsRepeated())
	require.False(t, md.FindFieldByName("byt").IsRepeated())

	require.Equal(t, []string{"choice"}, md.GetOneOfs())
	var choices []string
	for _, fd := range md.GetOneOfChoices("choice") {
		require.Equal(t, "choice", fd.GetOneOf())
		choices = append(choices, fd.GetName())
	}
	require.Equal(t, []string{"text", "number", "item"}, choices)
	require.Empty(t, md.FindFieldByName("str").GetOneOf())
	require.Nil(t, md.GetOneOfChoices("nope"))
}

func TestDescriptorStrings(t *testing.T) {
	md, err := desc.LoadMessageDescriptorForClass(prototesting.Everything)
	require.NoError(t, err)
	require.Equal(t, "int32 i32 = 2", md.FindFieldByName("i32").String())
	require.Equal(t, "string text = 23 (oneof choice)", md.FindFieldByName("text").String())
	require.Equal(t, "map<int64, message test.Simple> by_id = 22", md.FindFieldByName("by_id").String())
	require.Equal(t, "repeated enum test.Color colors = 33", md.FindFieldByName("colors").String())
	require.Equal(t, "wrapper bool opt_bool = 26", md.FindFieldByName("opt_bool").String())
	require.Equal(t, "google.protobuf.Duration elapsed = 30", md.FindFieldByName("elapsed").String())

	simple, err := desc.LoadMessageDescriptorForClass(prototesting.Simple)
	require.NoError(t, err)
	require.Equal(t, "message test.Simple { string name = 1; uint64 id = 2 }", simple.String())
}

func TestScalarKind(t *testing.T) {
	testCases := []struct {
		name     string
		kind     desc.ScalarKind
		wireType protowire.Type
		mapKey   bool
	}{
		{host.TypeBool, desc.BoolKind, protowire.VarintType, true},
		{host.TypeInt32, desc.Int32Kind, protowire.VarintType, true},
		{host.TypeInt64, desc.Int64Kind, protowire.VarintType, true},
		{host.TypeUint32, desc.Uint32Kind, protowire.VarintType, true},
		{host.TypeUint64, desc.Uint64Kind, protowire.VarintType, true},
		{host.TypeSint32, desc.Sint32Kind, protowire.VarintType, true},
		{host.TypeSint64, desc.Sint64Kind, protowire.VarintType, true},
		{host.TypeFixed32, desc.Fixed32Kind, protowire.Fixed32Type, true},
		{host.TypeFixed64, desc.Fixed64Kind, protowire.Fixed64Type, true},
		{host.TypeSfixed32, desc.Sfixed32Kind, protowire.Fixed32Type, true},
		{host.TypeSfixed64, desc.Sfixed64Kind, protowire.Fixed64Type, true},
		{host.TypeFloat, desc.FloatKind, protowire.Fixed32Type, false},
		{host.TypeDouble, desc.DoubleKind, protowire.Fixed64Type, false},
		{host.TypeString, desc.StringKind, protowire.BytesType, true},
		{host.TypeBytes, desc.BytesKind, protowire.BytesType, false},
	}
	for _, tc := range testCases {
		k, ok := desc.ScalarKindByName(tc.name)
		require.True(t, ok, tc.name)
		require.Equal(t, tc.kind, k)
		require.Equal(t, tc.name, k.String())
		require.Equal(t, tc.wireType, k.WireType(), tc.name)
		require.Equal(t, tc.wireType != protowire.BytesType, k.IsPackable(), tc.name)
		require.Equal(t, tc.mapKey, k.IsValidMapKey(), tc.name)
	}

	_, ok := desc.ScalarKindByName(host.TypeMessage)
	require.False(t, ok)
	require.Equal(t, "ScalarKind(99)", desc.ScalarKind(99).String())
}

func TestKindWireTypes(t *testing.T) {
	require.Equal(t, protowire.VarintType, desc.Enum{}.WireType())
	require.Equal(t, protowire.BytesType, desc.Message{}.WireType())
	require.Equal(t, protowire.BytesType, desc.Wrapper{Type: desc.Int32Kind}.WireType())
	require.Equal(t, protowire.BytesType, desc.Duration{}.WireType())
	require.Equal(t, protowire.BytesType, desc.Timestamp{}.WireType())
	require.Equal(t, protowire.Fixed64Type, desc.Repeated{Elem: desc.Scalar{Type: desc.DoubleKind}}.WireType())
	require.Equal(t, protowire.BytesType, desc.Map{Key: desc.Int32Kind, Value: desc.Scalar{Type: desc.Int32Kind}}.WireType())
}
