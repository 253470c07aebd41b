// Package parser provides access-log reading and line parsing functionality.
package parser

import (
	"strconv"
	"strings"
	"time"
)

// LogLine is a raw log line before parsing.
type LogLine struct {
	// Content is the raw line text, without the trailing newline.
	Content string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int

	// Truncated is set when the line was longer than MaxLineSize and
	// Content holds only its beginning.
	Truncated bool
}

// RawRecord holds the fields of a structurally parsed line as text.
// Status, Size and Timestamp have not been coerced yet.
type RawRecord struct {
	IP        string
	Region    string
	Timestamp string
	Method    string
	URL       string
	Protocol  string
	Status    string
	Size      string
	Referrer  string
	UserAgent string
	Duration  string
}

// LogRecord is one typed access-log entry. It is never modified after
// construction.
type LogRecord struct {
	IP        string    `json:"ip"`
	Region    string    `json:"region"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Protocol  string    `json:"protocol"`
	Status    int       `json:"status"`
	Size      int64     `json:"size"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"user_agent"`
	Duration  string    `json:"duration"`

	// Source is the file path this record came from.
	Source string `json:"source,omitempty"`

	// LineNum is the 1-based line number in the source file.
	LineNum int `json:"line_num,omitempty"`
}

// DurationMS returns the duration field as milliseconds.
// The second return value is false if the field is not numeric.
func (r *LogRecord) DurationMS() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Duration), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
