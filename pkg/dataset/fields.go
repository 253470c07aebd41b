package dataset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ccollicutt/logtriage/pkg/parser"
)

// ErrUnknownField is returned when a field name is not a LogRecord field.
var ErrUnknownField = errors.New("unknown field")

// Field names a LogRecord field.
type Field string

// Record fields addressable by name.
const (
	FieldIP        Field = "ip"
	FieldRegion    Field = "region"
	FieldTimestamp Field = "timestamp"
	FieldMethod    Field = "method"
	FieldURL       Field = "url"
	FieldProtocol  Field = "protocol"
	FieldStatus    Field = "status"
	FieldSize      Field = "size"
	FieldReferrer  Field = "referrer"
	FieldUserAgent Field = "user_agent"
	FieldDuration  Field = "duration"
)

// ValueTimeLayout is how timestamps are rendered by Value.
const ValueTimeLayout = "2006-01-02T15:04:05"

// Fields lists every addressable field in record order.
var Fields = []Field{
	FieldIP, FieldRegion, FieldTimestamp, FieldMethod, FieldURL, FieldProtocol,
	FieldStatus, FieldSize, FieldReferrer, FieldUserAgent, FieldDuration,
}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownField, name)
}

// Value returns the named field of a record as text.
func Value(r *parser.LogRecord, f Field) (string, error) {
	switch f {
	case FieldIP:
		return r.IP, nil
	case FieldRegion:
		return r.Region, nil
	case FieldTimestamp:
		return r.Timestamp.Format(ValueTimeLayout), nil
	case FieldMethod:
		return r.Method, nil
	case FieldURL:
		return r.URL, nil
	case FieldProtocol:
		return r.Protocol, nil
	case FieldStatus:
		return strconv.Itoa(r.Status), nil
	case FieldSize:
		return strconv.FormatInt(r.Size, 10), nil
	case FieldReferrer:
		return r.Referrer, nil
	case FieldUserAgent:
		return r.UserAgent, nil
	case FieldDuration:
		return r.Duration, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownField, string(f))
	}
}
