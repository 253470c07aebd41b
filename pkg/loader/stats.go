package loader

import (
	"errors"
	"fmt"
)

// FailureKind says which stage rejected a line.
type FailureKind string

const (
	// FailureParse is a line without the expected positional structure.
	FailureParse FailureKind = "parse"

	// FailureCoercion is a parsed line with a bad timestamp, status or size.
	FailureCoercion FailureKind = "coercion"
)

// Failure describes one rejected line.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Source  string      `json:"source"`
	LineNum int         `json:"line_num"`
	Reason  string      `json:"reason"`
	Line    string      `json:"line"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", f.Source, f.LineNum, f.Kind, f.Reason)
}

// Stats summarizes a load.
type Stats struct {
	// Files is the number of files that were opened.
	Files int `json:"files"`

	// LinesRead is the number of lines read from all files.
	LinesRead int `json:"lines_read"`

	// LinesParsed is the number of lines with the expected structure.
	LinesParsed int `json:"lines_parsed"`

	// RecordsKept is the number of records that survived coercion.
	RecordsKept int `json:"records_kept"`

	// ParseFailures is the number of lines skipped by the line parser.
	ParseFailures int `json:"parse_failures"`

	// CoercionFailures is the number of parsed lines dropped by coercion.
	CoercionFailures int `json:"coercion_failures"`

	// Samples holds the first rejected lines, in file order.
	Samples []Failure `json:"samples,omitempty"`

	// OpenErr is set when a file could not be opened.
	OpenErr error `json:"-"`

	// ReadErr is set when reading stopped early, including cancellation.
	ReadErr error `json:"-"`
}

// Add folds other into s. Samples are kept up to limit entries.
func (s *Stats) Add(other Stats, limit int) {
	s.Files += other.Files
	s.LinesRead += other.LinesRead
	s.LinesParsed += other.LinesParsed
	s.RecordsKept += other.RecordsKept
	s.ParseFailures += other.ParseFailures
	s.CoercionFailures += other.CoercionFailures
	for _, f := range other.Samples {
		if len(s.Samples) >= limit {
			break
		}
		s.Samples = append(s.Samples, f)
	}
	s.OpenErr = errors.Join(s.OpenErr, other.OpenErr)
	s.ReadErr = errors.Join(s.ReadErr, other.ReadErr)
}

// Rejected returns the number of lines that did not become records.
func (s *Stats) Rejected() int {
	return s.ParseFailures + s.CoercionFailures
}
