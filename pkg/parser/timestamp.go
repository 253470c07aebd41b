package parser

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the Go layout for the dd/mm/yyyy:HH:MM:SS access-log
// timestamp. Day and month accept one or two digits.
const TimestampLayout = "2/1/2006:15:04:05"

// ParseTimestamp parses an access-log timestamp. The result carries no zone
// information and is returned in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, &CoercionError{Field: "timestamp", Value: s, Err: err}
	}
	return ts, nil
}

// Coerce converts the text fields of a RawRecord into a typed LogRecord.
// It fails with a *CoercionError if the timestamp, status or size cannot be
// converted.
func Coerce(raw RawRecord) (LogRecord, error) {
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return LogRecord{}, err
	}

	status, err := strconv.Atoi(raw.Status)
	if err != nil {
		return LogRecord{}, &CoercionError{Field: "status", Value: raw.Status, Err: err}
	}

	size, err := strconv.ParseInt(raw.Size, 10, 64)
	if err != nil {
		return LogRecord{}, &CoercionError{Field: "size", Value: raw.Size, Err: err}
	}

	return LogRecord{
		IP:        raw.IP,
		Region:    raw.Region,
		Timestamp: ts,
		Method:    raw.Method,
		URL:       raw.URL,
		Protocol:  raw.Protocol,
		Status:    status,
		Size:      size,
		Referrer:  raw.Referrer,
		UserAgent: raw.UserAgent,
		Duration:  raw.Duration,
	}, nil
}

// ParseRecord parses and coerces a single log line.
func ParseRecord(line LogLine) (LogRecord, error) {
	if line.Truncated {
		err := &ParseError{
			Stage: StageFailed,
			Field: "length",
			Line:  line.Content,
			Err:   fmt.Errorf("%w (over %d bytes)", ErrLineTooLong, MaxLineSize),
		}
		return LogRecord{}, fmt.Errorf("%s:%d: %w", line.Source, line.LineNum, err)
	}
	raw, err := ParseLine(line.Content)
	if err != nil {
		return LogRecord{}, fmt.Errorf("%s:%d: %w", line.Source, line.LineNum, err)
	}
	rec, err := Coerce(raw)
	if err != nil {
		return LogRecord{}, fmt.Errorf("%s:%d: %w", line.Source, line.LineNum, err)
	}
	rec.Source = line.Source
	rec.LineNum = line.LineNum
	return rec, nil
}
