package wellknown

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/jhump/reflectcodec/internal/coerce"
	"github.com/jhump/reflectcodec/protoerr"
)

const nanosPerSecond = int32(time.Second)

// Range of seconds since the Unix epoch for instants in years 1 through 9999.
var (
	minTimestampSeconds = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxTimestampSeconds = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// DurationProto splits d into whole seconds and a nanosecond remainder. The
// seconds are floored, so the nanos are always in [0, 1e9): -0.5s becomes
// seconds=-1, nanos=500000000.
func DurationProto(d time.Duration) *durationpb.Duration {
	secs := int64(d / time.Second)
	nanos := int32(d % time.Second)
	if nanos < 0 {
		secs--
		nanos += nanosPerSecond
	}
	return &durationpb.Duration{Seconds: secs, Nanos: nanos}
}

// DurationValue converts a seconds and nanos pair back to a time.Duration.
// Negative nanos borrow a second from seconds. Pairs whose nanos are still
// outside [0, 1e9), or whose total does not fit a time.Duration, are
// InvalidData.
func DurationValue(secs int64, nanos int32) (time.Duration, error) {
	if nanos < 0 {
		secs--
		nanos += nanosPerSecond
	}
	if nanos < 0 || nanos >= nanosPerSecond {
		return 0, protoerr.InvalidDataf("duration nanos %d out of range", nanos)
	}
	const maxSecs = math.MaxInt64 / int64(time.Second)
	if secs > maxSecs || secs < -maxSecs-1 {
		return 0, protoerr.InvalidDataf("duration of %d seconds overflows", secs)
	}
	if secs < 0 {
		// borrow the second back so secs*1e9 stays in range at the minimum
		d := time.Duration(secs+1) * time.Second
		n := time.Duration(nanos) - time.Second
		if n < math.MinInt64-d {
			return 0, protoerr.InvalidDataf("duration of %d seconds overflows", secs)
		}
		return d + n, nil
	}
	d := time.Duration(secs) * time.Second
	if time.Duration(nanos) > math.MaxInt64-d {
		return 0, protoerr.InvalidDataf("duration of %d seconds overflows", secs)
	}
	return d + time.Duration(nanos), nil
}

// MarshalDuration returns the wire bytes of a google.protobuf.Duration
// holding v, a time.Duration or an integer count of nanoseconds.
func MarshalDuration(v any) ([]byte, error) {
	d, err := durationOf(v)
	if err != nil {
		return nil, err
	}
	b, err := proto.Marshal(DurationProto(d))
	if err != nil {
		return nil, protoerr.Wrap(protoerr.WireEncode, err)
	}
	return b, nil
}

// UnmarshalDuration decodes the wire bytes of a google.protobuf.Duration.
func UnmarshalDuration(b []byte) (time.Duration, error) {
	var dpb durationpb.Duration
	if err := proto.Unmarshal(b, &dpb); err != nil {
		return 0, protoerr.Wrap(protoerr.InvalidData, err)
	}
	return DurationValue(dpb.GetSeconds(), dpb.GetNanos())
}

// TimestampProto converts a timestamp host value to its proto form. A
// time.Time is normalized to UTC. A civil.DateTime carries no offset, so it
// is interpreted as wall-clock time in loc; if that wall-clock time is
// skipped or repeated in loc (as around a daylight saving transition), the
// conversion fails with OffsetNaiveDateTimeDoesNotMap.
func TimestampProto(v any, loc *time.Location) (*timestamppb.Timestamp, error) {
	switch t := v.(type) {
	case time.Time:
		return timestamppb.New(t.UTC()), nil
	case civil.DateTime:
		inst, err := LocalInstant(t, loc)
		if err != nil {
			return nil, err
		}
		return timestamppb.New(inst), nil
	case *civil.DateTime:
		if t != nil {
			return TimestampProto(*t, loc)
		}
	}
	return nil, protoerr.Downcastf("value of type %T is not compatible with google.protobuf.Timestamp", v)
}

// LocalInstant returns the single instant whose wall-clock time in loc is
// dt. A nil loc means time.Local.
func LocalInstant(dt civil.DateTime, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if !dt.IsValid() {
		return time.Time{}, &protoerr.Error{Kind: protoerr.OffsetNaiveDateTimeDoesNotMap, Naive: dt}
	}
	// The wall-clock reading as if it were UTC; each candidate offset of loc
	// near that reading yields one candidate instant, which is valid only if
	// loc really uses that offset at that instant.
	wall := dt.In(time.UTC)
	var found []time.Time
	seen := map[int]bool{}
	for _, probe := range []time.Time{wall.Add(-24 * time.Hour), wall, wall.Add(24 * time.Hour)} {
		_, off := probe.In(loc).Zone()
		if seen[off] {
			continue
		}
		seen[off] = true
		cand := wall.Add(-time.Duration(off) * time.Second)
		if _, actual := cand.In(loc).Zone(); actual == off {
			found = append(found, cand)
		}
	}
	if len(found) != 1 {
		return time.Time{}, &protoerr.Error{Kind: protoerr.OffsetNaiveDateTimeDoesNotMap, Naive: dt}
	}
	return found[0].UTC(), nil
}

// TimestampValue converts a seconds and nanos pair to a UTC time.Time. Nanos
// outside [0, 1e9) are InvalidData; instants outside years 1 through 9999
// fail with TimestampOutOfBounds.
func TimestampValue(secs int64, nanos int32) (time.Time, error) {
	if nanos < 0 || nanos >= nanosPerSecond {
		return time.Time{}, protoerr.InvalidDataf("timestamp nanos %d out of range", nanos)
	}
	t := time.Unix(secs, int64(nanos)).UTC()
	if secs < minTimestampSeconds || secs > maxTimestampSeconds {
		return time.Time{}, &protoerr.Error{Kind: protoerr.TimestampOutOfBounds, Instant: t}
	}
	return t, nil
}

// MarshalTimestamp returns the wire bytes of a google.protobuf.Timestamp
// holding v. See TimestampProto for the accepted values.
func MarshalTimestamp(v any, loc *time.Location) ([]byte, error) {
	ts, err := TimestampProto(v, loc)
	if err != nil {
		return nil, err
	}
	b, err := proto.Marshal(ts)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.WireEncode, err)
	}
	return b, nil
}

// UnmarshalTimestamp decodes the wire bytes of a google.protobuf.Timestamp.
func UnmarshalTimestamp(b []byte) (time.Time, error) {
	var tpb timestamppb.Timestamp
	if err := proto.Unmarshal(b, &tpb); err != nil {
		return time.Time{}, protoerr.Wrap(protoerr.InvalidData, err)
	}
	return TimestampValue(tpb.GetSeconds(), tpb.GetNanos())
}

func durationOf(v any) (time.Duration, error) {
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	n, err := coerce.Int64(v)
	if err != nil {
		return 0, protoerr.Downcastf("value of type %T is not compatible with google.protobuf.Duration", v)
	}
	return time.Duration(n), nil
}
