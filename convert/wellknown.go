package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anirudhraja/protocodec/message"
)

const (
	timestampType = "google.protobuf.Timestamp"
	durationType  = "google.protobuf.Duration"

	// Valid ranges from timestamp.proto and duration.proto.
	minTimestampSeconds = -62135596800
	maxTimestampSeconds = 253402300799
	maxDurationSeconds  = 315576000000
)

// isWrapper reports whether typeName is one of the wrappers.proto messages,
// whose JSON form is the bare wrapped value.
func isWrapper(typeName string) bool {
	switch typeName {
	case "google.protobuf.DoubleValue", "google.protobuf.FloatValue",
		"google.protobuf.Int64Value", "google.protobuf.UInt64Value",
		"google.protobuf.Int32Value", "google.protobuf.UInt32Value",
		"google.protobuf.BoolValue", "google.protobuf.StringValue",
		"google.protobuf.BytesValue":
		return true
	}
	return false
}

// wellKnownInput converts the JSON-native forms of well-known types into
// their message object shapes. Values already in object form pass through.
func wellKnownInput(typeName string, value interface{}) (interface{}, error) {
	if _, ok := value.(map[string]interface{}); ok {
		return value, nil
	}
	if _, ok := value.(*message.Message); ok {
		return value, nil
	}

	switch typeName {
	case timestampType:
		switch t := value.(type) {
		case string:
			sec, ns, err := parseRFC3339ToSecondsNanos(t)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"seconds": sec, "nanos": ns}, nil
		case time.Time:
			return map[string]interface{}{"seconds": t.Unix(), "nanos": int32(t.Nanosecond())}, nil
		}
	case durationType:
		switch t := value.(type) {
		case string:
			sec, ns, err := parseDurationString(t)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"seconds": sec, "nanos": ns}, nil
		case time.Duration:
			return map[string]interface{}{"seconds": int64(t / time.Second), "nanos": int32(t % time.Second)}, nil
		}
	default:
		if isWrapper(typeName) {
			return map[string]interface{}{"value": value}, nil
		}
	}
	return value, nil
}

// wellKnownOutput renders Timestamp, Duration and the wrappers in their
// JSON forms. ok is false for every other type.
func wellKnownOutput(m *message.Message, opts ToObjectOptions) (interface{}, bool) {
	typeName := m.Descriptor().TypeName()
	switch typeName {
	case timestampType:
		sec, _ := m.Get("seconds").(int64)
		ns, _ := m.Get("nanos").(int32)
		return formatTimestamp(sec, ns), true
	case durationType:
		sec, _ := m.Get("seconds").(int64)
		ns, _ := m.Get("nanos").(int32)
		return formatDuration(sec, ns), true
	}
	if isWrapper(typeName) {
		f := m.Descriptor().FieldByName("value")
		if f == nil {
			return nil, false
		}
		v, ok := m.GetField(f)
		if !ok {
			v = message.Default(f, m.Resolver())
		}
		return convertValue(&f.Type, v, m.Resolver(), opts), true
	}
	return nil, false
}

// parseRFC3339ToSecondsNanos parses RFC3339(ish) timestamp into seconds and nanos.
func parseRFC3339ToSecondsNanos(ts string) (int64, int32, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	sec := t.Unix()
	if sec < minTimestampSeconds || sec > maxTimestampSeconds {
		return 0, 0, fmt.Errorf("timestamp out of range")
	}
	return sec, int32(t.Nanosecond()), nil
}

// parseDurationString parses protobuf JSON duration (e.g. "1.010000001s").
// Seconds and nanos carry the same sign.
func parseDurationString(ds string) (int64, int32, error) {
	if !strings.HasSuffix(ds, "s") {
		return 0, 0, fmt.Errorf("invalid duration: missing 's' suffix")
	}
	core := strings.TrimSuffix(ds, "s")
	neg := false
	if strings.HasPrefix(core, "-") {
		neg = true
		core = core[1:]
	} else if strings.HasPrefix(core, "+") {
		core = core[1:]
	}
	secPart, fracPart, _ := strings.Cut(core, ".")
	if secPart == "" {
		secPart = "0"
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid duration seconds: %w", err)
	}
	if len(fracPart) > 9 {
		return 0, 0, fmt.Errorf("invalid duration nanos precision")
	}
	var ns int64
	if fracPart != "" {
		fracPart += strings.Repeat("0", 9-len(fracPart))
		ns, err = strconv.ParseInt(fracPart, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid duration nanos: %w", err)
		}
	}
	if sec > maxDurationSeconds {
		return 0, 0, fmt.Errorf("duration out of range")
	}
	if neg {
		sec, ns = -sec, -ns
	}
	return sec, int32(ns), nil
}

func formatTimestamp(sec int64, ns int32) string {
	return time.Unix(sec, int64(ns)).UTC().Format(time.RFC3339Nano)
}

// formatDuration renders seconds and nanos with 0, 3, 6 or 9 fractional
// digits, as the protobuf JSON mapping does.
func formatDuration(sec int64, ns int32) string {
	neg := sec < 0 || ns < 0
	if sec < 0 {
		sec = -sec
	}
	if ns < 0 {
		ns = -ns
	}
	out := strconv.FormatInt(sec, 10)
	if ns != 0 {
		frac := fmt.Sprintf("%09d", ns)
		for strings.HasSuffix(frac, "000") {
			frac = frac[:len(frac)-3]
		}
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out + "s"
}
