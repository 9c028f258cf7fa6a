package codec_test

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jhump/reflectcodec/codec"
	"github.com/jhump/reflectcodec/dynamic"
	prototesting "github.com/jhump/reflectcodec/internal/testing"
)

func TestBuffer_Varint(t *testing.T) {
	testCases := []struct {
		value uint64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{150, []byte{0x96, 0x01}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tc := range testCases {
		var cb codec.Buffer
		require.NoError(t, cb.EncodeVarint(tc.value))
		require.Equal(t, tc.bytes, cb.Bytes())

		v, err := cb.DecodeVarint()
		require.NoError(t, err)
		require.Equal(t, tc.value, v)
		require.True(t, cb.EOF())
	}
}

func TestBuffer_Fixed(t *testing.T) {
	var cb codec.Buffer
	require.NoError(t, cb.EncodeFixed32(0x01020304))
	require.NoError(t, cb.EncodeFixed64(math.Float64bits(-2.5)))
	require.Equal(t, 12, cb.Len())
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, cb.Bytes()[:4])

	u32, err := cb.DecodeFixed32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), u32)
	u64, err := cb.DecodeFixed64()
	require.NoError(t, err)
	require.Equal(t, -2.5, math.Float64frombits(u64))
	require.True(t, cb.EOF())
}

func TestBuffer_Tag(t *testing.T) {
	var cb codec.Buffer
	require.NoError(t, cb.EncodeTagAndWireType(1, protowire.VarintType))
	require.NoError(t, cb.EncodeTagAndWireType(18, protowire.BytesType))
	require.Equal(t, []byte{0x08, 0x92, 0x01}, cb.Bytes())

	num, wt, err := cb.DecodeTagAndWireType()
	require.NoError(t, err)
	require.Equal(t, protowire.Number(1), num)
	require.Equal(t, protowire.VarintType, wt)
	num, wt, err = cb.DecodeTagAndWireType()
	require.NoError(t, err)
	require.Equal(t, protowire.Number(18), num)
	require.Equal(t, protowire.BytesType, wt)

	require.Error(t, cb.EncodeTagAndWireType(0, protowire.VarintType))
	require.Error(t, cb.EncodeTagAndWireType(protowire.MaxValidNumber+1, protowire.VarintType))
}

func TestBuffer_DecodeTagRejectsFieldZero(t *testing.T) {
	_, _, err := codec.NewBuffer([]byte{0x00}).DecodeTagAndWireType()
	require.Error(t, err)
	_, _, err = codec.NewBuffer([]byte{0x02}).DecodeTagAndWireType()
	require.Error(t, err)
}

func TestBuffer_RawBytes(t *testing.T) {
	var cb codec.Buffer
	require.NoError(t, cb.EncodeRawBytes([]byte("abc")))
	require.Equal(t, []byte{0x03, 'a', 'b', 'c'}, cb.Bytes())

	b, err := cb.DecodeRawBytes(true)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), b)

	// length says 5, only 1 byte follows
	truncated := codec.NewBuffer([]byte{0x05, 'a'})
	_, err = truncated.DecodeRawBytes(false)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, 2, truncated.Len())
}

func TestBuffer_Truncated(t *testing.T) {
	_, err := codec.NewBuffer([]byte{0x80}).DecodeVarint()
	require.Error(t, err)
	_, err = codec.NewBuffer([]byte{0x01, 0x02}).DecodeFixed32()
	require.Error(t, err)
	_, err = codec.NewBuffer([]byte{0x01, 0x02, 0x03, 0x04}).DecodeFixed64()
	require.Error(t, err)
	require.ErrorIs(t, codec.NewBuffer([]byte{0x01}).Skip(2), io.ErrUnexpectedEOF)
	require.Error(t, codec.NewBuffer(nil).Skip(-1))
}

func TestBuffer_SkipField(t *testing.T) {
	var b []byte
	b = protowire.AppendVarint(b, 300)
	b = protowire.AppendFixed32(b, 1)
	b = protowire.AppendFixed64(b, 2)
	b = protowire.AppendBytes(b, []byte("skip me"))
	// a group holding a nested group
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, 2, protowire.StartGroupType)
	b = protowire.AppendTag(b, 2, protowire.EndGroupType)
	b = protowire.AppendTag(b, 9, protowire.EndGroupType)
	b = append(b, 0x2a)

	cb := codec.NewBuffer(b)
	require.NoError(t, cb.SkipField(1, protowire.VarintType))
	require.NoError(t, cb.SkipField(2, protowire.Fixed32Type))
	require.NoError(t, cb.SkipField(3, protowire.Fixed64Type))
	require.NoError(t, cb.SkipField(4, protowire.BytesType))
	require.NoError(t, cb.SkipField(9, protowire.StartGroupType))
	require.Equal(t, []byte{0x2a}, cb.Bytes())

	require.Error(t, cb.SkipField(5, protowire.EndGroupType))
	require.Error(t, cb.SkipField(5, protowire.Type(6)))
	require.Error(t, cb.SkipField(5, protowire.Type(7)))
}

func TestBuffer_SkipGroupWithoutEnd(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	require.Error(t, codec.NewBuffer(b).SkipField(3, protowire.StartGroupType))
}

func TestBuffer_Reset(t *testing.T) {
	var cb codec.Buffer
	_, err := cb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, cb.Skip(1))
	require.Equal(t, []byte{2, 3}, cb.Bytes())
	cb.Reset()
	require.True(t, cb.EOF())
	require.Equal(t, 0, cb.Len())
}

func TestBuffer_DelimitedMessages(t *testing.T) {
	first := prototesting.Simple.NewMessage().SetField("name", "first").SetField("id", uint64(1))
	second := prototesting.Simple.NewMessage()
	third := prototesting.Simple.NewMessage().SetField("id", uint64(3))

	var cb codec.Buffer
	for _, m := range []*dynamic.Message{first, second, third} {
		require.NoError(t, cb.EncodeDelimitedMessage(m))
	}
	for _, want := range []*dynamic.Message{first, second, third} {
		got, err := cb.DecodeDelimitedMessage(prototesting.Simple)
		require.NoError(t, err)
		require.True(t, want.Equal(got.(*dynamic.Message)), "want %v, got %v", want, got)
	}
	require.True(t, cb.EOF())
}

func TestBuffer_EncodeMessage(t *testing.T) {
	msg := prototesting.Simple.NewMessage().SetField("name", "x")
	var cb codec.Buffer
	require.NoError(t, cb.EncodeMessage(msg))
	require.Equal(t, []byte{0x0a, 0x01, 'x'}, cb.Bytes())

	got, err := cb.DecodeMessage(prototesting.Simple)
	require.NoError(t, err)
	require.Equal(t, "x", got.(*dynamic.Message).GetField("name"))
}
