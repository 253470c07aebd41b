// Package dataset provides the ordered, read-only collection of parsed
// access-log records and the filter and grouping operations reports use.
package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/logtriage/pkg/parser"
)

// Dataset is an ordered sequence of LogRecords in file order. It is never
// modified after construction; every filter returns a new Dataset.
type Dataset struct {
	records []parser.LogRecord
}

// Count is the number of records sharing a field value.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// New creates a Dataset holding a copy of records.
func New(records []parser.LogRecord) *Dataset {
	cp := make([]parser.LogRecord, len(records))
	copy(cp, records)
	return &Dataset{records: cp}
}

// Empty returns a Dataset with no records.
func Empty() *Dataset {
	return &Dataset{}
}

// Concat returns a new Dataset with the records of each dataset in turn.
func Concat(sets ...*Dataset) *Dataset {
	n := 0
	for _, s := range sets {
		n += s.Len()
	}
	records := make([]parser.LogRecord, 0, n)
	for _, s := range sets {
		if s != nil {
			records = append(records, s.records...)
		}
	}
	return &Dataset{records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// IsEmpty reports whether the dataset has no records.
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// At returns the i-th record.
func (d *Dataset) At(i int) parser.LogRecord {
	return d.records[i]
}

// Records returns a copy of the records in order.
func (d *Dataset) Records() []parser.LogRecord {
	cp := make([]parser.LogRecord, d.Len())
	if d != nil {
		copy(cp, d.records)
	}
	return cp
}

// Each calls fn for every record in order until fn returns false.
func (d *Dataset) Each(fn func(r *parser.LogRecord) bool) {
	if d == nil {
		return
	}
	for i := range d.records {
		if !fn(&d.records[i]) {
			return
		}
	}
}

// Filter returns the records for which keep returns true.
// keep must not modify the record.
func (d *Dataset) Filter(keep func(r *parser.LogRecord) bool) *Dataset {
	out := &Dataset{}
	d.Each(func(r *parser.LogRecord) bool {
		if keep(r) {
			out.records = append(out.records, *r)
		}
		return true
	})
	return out
}

// FilterIP returns the records whose IP equals ip.
func (d *Dataset) FilterIP(ip string) *Dataset {
	return d.Filter(func(r *parser.LogRecord) bool { return r.IP == ip })
}

// FilterIPPrefix returns the records whose IP starts with prefix.
func (d *Dataset) FilterIPPrefix(prefix string) *Dataset {
	return d.Filter(func(r *parser.LogRecord) bool { return strings.HasPrefix(r.IP, prefix) })
}

// FilterIn returns the records whose field value is one of values.
func (d *Dataset) FilterIn(field Field, values ...string) (*Dataset, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return d.Filter(func(r *parser.LogRecord) bool {
		v, _ := Value(r, field)
		return set[v]
	}), nil
}

// FilterTimeRange returns the records with start <= timestamp <= end.
// A zero start or end leaves that side unbounded.
func (d *Dataset) FilterTimeRange(start, end time.Time) *Dataset {
	return d.Filter(func(r *parser.LogRecord) bool {
		if !start.IsZero() && r.Timestamp.Before(start) {
			return false
		}
		if !end.IsZero() && r.Timestamp.After(end) {
			return false
		}
		return true
	})
}

// FilterStatusRange returns the records with lo <= status <= hi.
// A zero bound leaves that side unbounded.
func (d *Dataset) FilterStatusRange(lo, hi int) *Dataset {
	return d.Filter(func(r *parser.LogRecord) bool {
		if lo > 0 && r.Status < lo {
			return false
		}
		if hi > 0 && r.Status > hi {
			return false
		}
		return true
	})
}

// CountBy counts records per field value, largest first. Equal counts keep
// the order in which the values first appear.
func (d *Dataset) CountBy(field Field) ([]Count, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var counts []Count
	d.Each(func(r *parser.LogRecord) bool {
		v, _ := Value(r, field)
		if i, ok := index[v]; ok {
			counts[i].Count++
			return true
		}
		index[v] = len(counts)
		counts = append(counts, Count{Value: v, Count: 1})
		return true
	})

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts, nil
}

// Unique returns the distinct values of a field in first-appearance order.
func (d *Dataset) Unique(field Field) ([]string, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var values []string
	d.Each(func(r *parser.LogRecord) bool {
		v, _ := Value(r, field)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
		return true
	})
	return values, nil
}

// TimeSpan returns the earliest and latest timestamps. Timestamps are not
// assumed to be monotonic in file order. ok is false for an empty dataset.
func (d *Dataset) TimeSpan() (start, end time.Time, ok bool) {
	d.Each(func(r *parser.LogRecord) bool {
		if !ok || r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if !ok || r.Timestamp.After(end) {
			end = r.Timestamp
		}
		ok = true
		return true
	})
	return start, end, ok
}
