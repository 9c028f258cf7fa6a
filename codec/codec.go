// Package codec encodes host messages to, and decodes them from, the protobuf
// binary format.
//
// Buffer is the low-level reader/writer of wire primitives: varints, fixed
// width integers, zig-zag integers, tags, and length-delimited values. On top
// of it, MarshalOptions and UnmarshalOptions walk a host message against the
// descriptor of its class (see package desc) to produce or consume a whole
// message.
package codec

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Buffer is a reader and a writer that wraps a slice of bytes and also
// provides API for decoding and encoding the protobuf binary format.
type Buffer struct {
	buf   []byte
	index int
}

// NewBuffer creates a new buffer with the given slice of bytes as the
// buffer's initial contents.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf}
}

// Reset resets this buffer back to empty. Any subsequent writes/encodes
// to the buffer will allocate a new backing slice of bytes.
func (cb *Buffer) Reset() {
	cb.buf = []byte(nil)
	cb.index = 0
}

// Bytes returns the slice of bytes remaining in the buffer. Note that
// this does not perform a copy: if the contents of the returned slice
// are modified, the modifications will be visible to subsequent reads
// via the buffer.
func (cb *Buffer) Bytes() []byte {
	return cb.buf[cb.index:]
}

// EOF returns true if there are no more bytes remaining to read.
func (cb *Buffer) EOF() bool {
	return cb.index >= len(cb.buf)
}

// Len returns the remaining number of bytes in the buffer.
func (cb *Buffer) Len() int {
	return len(cb.buf) - cb.index
}

// Skip skips the given number of bytes in the input. If the input has
// fewer bytes than the given count, io.ErrUnexpectedEOF is returned and the
// buffer is unchanged.
func (cb *Buffer) Skip(count int) error {
	if count < 0 {
		return fmt.Errorf("proto: bad byte length %d", count)
	}
	newIndex := cb.index + count
	if newIndex < cb.index || newIndex > len(cb.buf) {
		return io.ErrUnexpectedEOF
	}
	cb.index = newIndex
	return nil
}

// consumed advances the buffer by n bytes, where n is a length reported by
// one of the protowire Consume functions.
func (cb *Buffer) consumed(n int) error {
	if n < 0 {
		return protowire.ParseError(n)
	}
	cb.index += n
	return nil
}

// DecodeVarint reads a varint-encoded integer from the Buffer.
// This is the format for the
// int32, int64, uint32, uint64, bool, and enum
// protocol buffer types.
func (cb *Buffer) DecodeVarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(cb.buf[cb.index:])
	if err := cb.consumed(n); err != nil {
		return 0, err
	}
	return v, nil
}

// DecodeTagAndWireType decodes a field number and wire type from input.
// Field number zero and numbers above protowire.MaxValidNumber are errors.
func (cb *Buffer) DecodeTagAndWireType() (protowire.Number, protowire.Type, error) {
	v, err := cb.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	num, wt := protowire.DecodeTag(v)
	if num < protowire.MinValidNumber || v>>3 > uint64(protowire.MaxValidNumber) {
		return 0, 0, fmt.Errorf("proto: invalid field number %d", v>>3)
	}
	return num, wt, nil
}

// DecodeFixed64 reads a 64-bit integer from the Buffer.
// This is the format for the
// fixed64, sfixed64, and double protocol buffer types.
func (cb *Buffer) DecodeFixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(cb.buf[cb.index:])
	if err := cb.consumed(n); err != nil {
		return 0, err
	}
	return v, nil
}

// DecodeFixed32 reads a 32-bit integer from the Buffer.
// This is the format for the
// fixed32, sfixed32, and float protocol buffer types.
func (cb *Buffer) DecodeFixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(cb.buf[cb.index:])
	if err := cb.consumed(n); err != nil {
		return 0, err
	}
	return v, nil
}

// DecodeRawBytes reads a count-delimited byte buffer from the Buffer.
// This is the format used for the bytes protocol buffer
// type and for embedded messages. If alloc is false, the returned
// slice aliases the buffer's contents.
func (cb *Buffer) DecodeRawBytes(alloc bool) ([]byte, error) {
	b, n := protowire.ConsumeBytes(cb.buf[cb.index:])
	if err := cb.consumed(n); err != nil {
		return nil, err
	}
	if !alloc {
		return b, nil
	}
	return append([]byte(nil), b...), nil
}

// SkipField skips past the value of a field whose tag, with the given number
// and wire type, was just read. Groups are skipped through their matching
// end-group tag, including any nested groups.
func (cb *Buffer) SkipField(num protowire.Number, wireType protowire.Type) error {
	switch wireType {
	case protowire.Fixed32Type:
		return cb.Skip(4)
	case protowire.Fixed64Type:
		return cb.Skip(8)
	case protowire.VarintType:
		_, err := cb.DecodeVarint()
		return err
	case protowire.BytesType:
		_, err := cb.DecodeRawBytes(false)
		return err
	case protowire.StartGroupType:
		_, n := protowire.ConsumeGroup(num, cb.buf[cb.index:])
		return cb.consumed(n)
	case protowire.EndGroupType:
		return fmt.Errorf("proto: unexpected end group for field %d", num)
	default:
		return fmt.Errorf("proto: bad wiretype %d for field %d", wireType, num)
	}
}

// Write implements the io.Writer interface. It always returns
// len(data), nil.
func (cb *Buffer) Write(data []byte) (int, error) {
	cb.buf = append(cb.buf, data...)
	return len(data), nil
}

var _ io.Writer = (*Buffer)(nil)

// EncodeVarint writes a varint-encoded integer to the Buffer.
// This is the format for the
// int32, int64, uint32, uint64, bool, and enum
// protocol buffer types.
func (cb *Buffer) EncodeVarint(x uint64) error {
	cb.buf = protowire.AppendVarint(cb.buf, x)
	return nil
}

// EncodeTagAndWireType encodes the given field number and wire type to the
// buffer. This combines the two values and then writes them as a varint.
func (cb *Buffer) EncodeTagAndWireType(num protowire.Number, wireType protowire.Type) error {
	if !num.IsValid() {
		return fmt.Errorf("proto: invalid field number %d", num)
	}
	cb.buf = protowire.AppendTag(cb.buf, num, wireType)
	return nil
}

// EncodeFixed64 writes a 64-bit integer to the Buffer.
// This is the format for the
// fixed64, sfixed64, and double protocol buffer types.
func (cb *Buffer) EncodeFixed64(x uint64) error {
	cb.buf = protowire.AppendFixed64(cb.buf, x)
	return nil
}

// EncodeFixed32 writes a 32-bit integer to the Buffer.
// This is the format for the
// fixed32, sfixed32, and float protocol buffer types.
func (cb *Buffer) EncodeFixed32(x uint32) error {
	cb.buf = protowire.AppendFixed32(cb.buf, x)
	return nil
}

// EncodeRawBytes writes a count-delimited byte buffer to the Buffer.
// This is the format used for the bytes protocol buffer
// type and for embedded messages.
func (cb *Buffer) EncodeRawBytes(b []byte) error {
	cb.buf = protowire.AppendBytes(cb.buf, b)
	return nil
}
