// Package protoerr defines the errors reported while reflecting, encoding, and
// decoding host messages.
//
// Inside this module every failure is a *Error that carries a Kind, so code and
// tests can branch on it with errors.Is. Callers on the other side of the host
// boundary only ever see a *RuntimeError, produced by ToHost, which carries the
// rendered message and nothing else.
package protoerr

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Kind identifies the category of a failure.
type Kind int

const (
	// NotAValidMessageClass means an object does not satisfy the host
	// message-class contract.
	NotAValidMessageClass Kind = iota + 1
	// IncompleteMetadata means a declared field is missing some required
	// metadata, like its default generator or its declared class.
	IncompleteMetadata
	// UnsupportedValueType means a field declares a type the codec does not know.
	UnsupportedValueType
	// UnsupportedKeyType means a map field declares a key type that cannot be
	// used as a map key.
	UnsupportedKeyType
	// UnsupportedWrappedType means a wrapper field wraps an unknown scalar type.
	UnsupportedWrappedType
	// DowncastFailed means a value could not be coerced to its declared kind.
	DowncastFailed
	// HostInteropFailure means a host operation (field read, field write,
	// constructor call) failed.
	HostInteropFailure
	// InvalidData means the input bytes are malformed or truncated.
	InvalidData
	// TimestampOutOfBounds means a decoded instant is outside years 1 to 9999.
	TimestampOutOfBounds
	// OffsetNaiveDateTimeDoesNotMap means a civil date-time is ambiguous or
	// does not exist in the configured local time zone.
	OffsetNaiveDateTimeDoesNotMap
	// WireEncode is a failure of the underlying wire encoder.
	WireEncode
)

var kindNames = map[Kind]string{
	NotAValidMessageClass:         "NotAValidMessageClass",
	IncompleteMetadata:            "IncompleteMetadata",
	UnsupportedValueType:          "UnsupportedValueType",
	UnsupportedKeyType:            "UnsupportedKeyType",
	UnsupportedWrappedType:        "UnsupportedWrappedType",
	DowncastFailed:                "DowncastFailed",
	HostInteropFailure:            "HostInteropFailure",
	InvalidData:                   "InvalidData",
	TimestampOutOfBounds:          "TimestampOutOfBounds",
	OffsetNaiveDateTimeDoesNotMap: "OffsetNaiveDateTimeDoesNotMap",
	WireEncode:                    "WireEncode",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinel values, one per kind, for use with errors.Is.
var (
	ErrNotAValidMessageClass         = &Error{Kind: NotAValidMessageClass}
	ErrIncompleteMetadata            = &Error{Kind: IncompleteMetadata}
	ErrUnsupportedValueType          = &Error{Kind: UnsupportedValueType}
	ErrUnsupportedKeyType            = &Error{Kind: UnsupportedKeyType}
	ErrUnsupportedWrappedType        = &Error{Kind: UnsupportedWrappedType}
	ErrDowncastFailed                = &Error{Kind: DowncastFailed}
	ErrHostInteropFailure            = &Error{Kind: HostInteropFailure}
	ErrInvalidData                   = &Error{Kind: InvalidData}
	ErrTimestampOutOfBounds          = &Error{Kind: TimestampOutOfBounds}
	ErrOffsetNaiveDateTimeDoesNotMap = &Error{Kind: OffsetNaiveDateTimeDoesNotMap}
	ErrWireEncode                    = &Error{Kind: WireEncode}
)

// Error is a failure with a known Kind.
type Error struct {
	Kind Kind
	// Detail names the offending type, field, or value, when there is one.
	Detail string
	// Instant is the computed (invalid) instant of a TimestampOutOfBounds error.
	Instant time.Time
	// Naive is the offending value of an OffsetNaiveDateTimeDoesNotMap error.
	Naive civil.DateTime
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnsupportedValueType:
		return fmt.Sprintf("Unsupported value type `%s`.", e.Detail)
	case UnsupportedKeyType:
		return fmt.Sprintf("Unsupported key type `%q`.", e.Detail)
	case UnsupportedWrappedType:
		return fmt.Sprintf("Unsupported wrapped type `%q`.", e.Detail)
	case OffsetNaiveDateTimeDoesNotMap:
		return fmt.Sprintf("Offset-naive datetime %s is invalid for the current local timezone.", e.Naive)
	case InvalidData:
		if e.Err != nil {
			return fmt.Sprintf("The given binary data is not a valid protobuf message: %v", e.Err)
		}
		return "The given binary data is not a valid protobuf message."
	case TimestampOutOfBounds:
		return fmt.Sprintf("The decoded timestamp %s is out of the supported range.", e.Instant.Format(time.RFC3339Nano))
	case HostInteropFailure:
		if e.Err != nil {
			return fmt.Sprintf("Host operation failed: %v", e.Err)
		}
		return "Host operation failed."
	case DowncastFailed:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Value has an incompatible type."
	case WireEncode:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Wire encoding failed."
	default:
		const msg = "Given object is not a valid betterproto message"
		switch {
		case e.Detail != "":
			return msg + ": " + e.Detail
		case e.Err != nil:
			return fmt.Sprintf("%s: %v", msg, e.Err)
		default:
			return msg + "."
		}
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets the
// package-level sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an error of the given kind with the given detail.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap returns an error of the given kind caused by err. If err is nil, so
// is the result.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// InvalidDataf returns an InvalidData error with a formatted cause.
func InvalidDataf(format string, args ...any) error {
	return &Error{Kind: InvalidData, Err: fmt.Errorf(format, args...)}
}

// Downcastf returns a DowncastFailed error with a formatted cause.
func Downcastf(format string, args ...any) error {
	return &Error{Kind: DowncastFailed, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or zero if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
