package protoerr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/jhump/reflectcodec/protoerr"
)

func TestErrorMessages(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{protoerr.New(protoerr.NotAValidMessageClass, "x"), "Given object is not a valid betterproto message: x"},
		{protoerr.Wrap(protoerr.NotAValidMessageClass, errors.New("no class")), "Given object is not a valid betterproto message: no class"},
		{protoerr.ErrNotAValidMessageClass, "Given object is not a valid betterproto message."},
		{protoerr.New(protoerr.IncompleteMetadata, ""), "Given object is not a valid betterproto message."},
		{protoerr.New(protoerr.UnsupportedValueType, "int128"), "Unsupported value type `int128`."},
		{protoerr.New(protoerr.UnsupportedKeyType, "float"), "Unsupported key type `\"float\"`."},
		{protoerr.New(protoerr.UnsupportedWrappedType, "sint32"), "Unsupported wrapped type `\"sint32\"`."},
		{protoerr.ErrInvalidData, "The given binary data is not a valid protobuf message."},
		{protoerr.Wrap(protoerr.InvalidData, io.ErrUnexpectedEOF), "The given binary data is not a valid protobuf message: unexpected EOF"},
		{protoerr.ErrHostInteropFailure, "Host operation failed."},
		{protoerr.Wrap(protoerr.HostInteropFailure, errors.New("boom")), "Host operation failed: boom"},
		{protoerr.Downcastf("bad %s", "value"), "bad value"},
		{protoerr.ErrDowncastFailed, "Value has an incompatible type."},
		{protoerr.Wrap(protoerr.WireEncode, errors.New("too big")), "too big"},
		{protoerr.ErrWireEncode, "Wire encoding failed."},
		{
			&protoerr.Error{Kind: protoerr.TimestampOutOfBounds, Instant: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)},
			"The decoded timestamp 10000-01-01T00:00:00Z is out of the supported range.",
		},
		{
			&protoerr.Error{
				Kind:  protoerr.OffsetNaiveDateTimeDoesNotMap,
				Naive: civil.DateTime{Date: civil.Date{Year: 2021, Month: 11, Day: 7}, Time: civil.Time{Hour: 1, Minute: 30}},
			},
			"Offset-naive datetime 2021-11-07T01:30:00 is invalid for the current local timezone.",
		},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, tc.err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("decoding: %w", protoerr.Wrap(protoerr.InvalidData, io.ErrUnexpectedEOF))
	require.ErrorIs(t, err, protoerr.ErrInvalidData)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, err, protoerr.ErrWireEncode)
	require.Equal(t, protoerr.InvalidData, protoerr.KindOf(err))

	require.Equal(t, protoerr.Kind(0), protoerr.KindOf(errors.New("other")))
	require.Equal(t, protoerr.Kind(0), protoerr.KindOf(nil))
	require.Nil(t, protoerr.Wrap(protoerr.InvalidData, nil))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "InvalidData", protoerr.InvalidData.String())
	require.Equal(t, "OffsetNaiveDateTimeDoesNotMap", protoerr.OffsetNaiveDateTimeDoesNotMap.String())
	require.Equal(t, "Kind(99)", protoerr.Kind(99).String())
}

func TestToHost(t *testing.T) {
	require.NoError(t, protoerr.ToHost(nil))

	inner := protoerr.Wrap(protoerr.HostInteropFailure, io.EOF)
	err := protoerr.ToHost(inner)
	var re *protoerr.RuntimeError
	require.ErrorAs(t, err, &re)
	require.Equal(t, inner.Error(), err.Error())
	// nothing of the original survives the boundary
	require.NotErrorIs(t, err, protoerr.ErrHostInteropFailure)
	require.NotErrorIs(t, err, io.EOF)
	require.Nil(t, errors.Unwrap(err))

	require.Same(t, re, protoerr.ToHost(err))
	require.Equal(t, "plain", protoerr.ToHost(errors.New("plain")).Error())
}
