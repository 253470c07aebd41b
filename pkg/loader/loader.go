// Package loader reads access-log files into datasets.
package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// Default values for loader options.
const (
	DefaultChunkSize  = 4096
	DefaultMaxSamples = 20
)

// Loader reads log files, parses and coerces every line, and collects the
// surviving records into a Dataset. Bad lines never fail a load.
type Loader struct {
	workers    int
	chunkSize  int
	maxSamples int
	logger     *slog.Logger
}

// Option configures loader behavior.
type Option func(*Loader)

// WithWorkers parses chunks of lines on n goroutines. Chunks are reassembled
// in file order. n <= 1 parses synchronously while reading.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		l.workers = n
	}
}

// WithChunkSize sets the number of lines per parallel chunk.
func WithChunkSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

// WithMaxSamples limits how many rejected lines are kept in Stats.Samples.
func WithMaxSamples(n int) Option {
	return func(l *Loader) {
		if n >= 0 {
			l.maxSamples = n
		}
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		workers:    1,
		chunkSize:  DefaultChunkSize,
		maxSamples: DefaultMaxSamples,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads one file with default options.
func Load(ctx context.Context, path string) (*dataset.Dataset, Stats) {
	return New().Load(ctx, path)
}

// Load reads one file. If the file cannot be opened the dataset is empty
// and Stats.OpenErr is set. The returned dataset is never nil.
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Dataset, Stats) {
	src := parser.NewFileSource(path)
	defer src.Close()

	var (
		chunks []*chunk
		stats  Stats
		err    error
	)
	if l.workers > 1 {
		chunks, stats.LinesRead, err = l.readParallel(ctx, src)
	} else {
		chunks, stats.LinesRead, err = l.readSequential(ctx, src)
	}

	if errors.Is(err, parser.ErrOpen) {
		stats.OpenErr = err
		l.logger.Warn("cannot open log file", "path", path, "error", err)
		return dataset.Empty(), stats
	}
	if err != nil {
		stats.ReadErr = err
		l.logger.Warn("log file read stopped early", "path", path, "lines", stats.LinesRead, "error", err)
	}
	stats.Files = 1

	var records []parser.LogRecord
	for _, c := range chunks {
		records = append(records, c.records...)
		stats.ParseFailures += c.parseFailures
		stats.CoercionFailures += c.coercionFailures
		for _, f := range c.samples {
			if len(stats.Samples) < l.maxSamples {
				stats.Samples = append(stats.Samples, f)
			}
		}
	}
	stats.LinesParsed = stats.LinesRead - stats.ParseFailures
	stats.RecordsKept = len(records)

	l.logger.Info("loaded log file",
		"path", path,
		"lines", stats.LinesRead,
		"parsed", stats.LinesParsed,
		"kept", stats.RecordsKept,
		"parse_failures", stats.ParseFailures,
		"coercion_failures", stats.CoercionFailures)

	return dataset.New(records), stats
}

// LoadAll loads each path in turn and concatenates the datasets in path
// order. Unopenable paths contribute no records.
func (l *Loader) LoadAll(ctx context.Context, paths []string) (*dataset.Dataset, Stats) {
	var (
		sets  []*dataset.Dataset
		total Stats
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			total.ReadErr = errors.Join(total.ReadErr, err)
			break
		}
		ds, stats := l.Load(ctx, path)
		sets = append(sets, ds)
		total.Add(stats, l.maxSamples)
	}
	return dataset.Concat(sets...), total
}

// chunk is a run of consecutive lines and what parsing them produced.
type chunk struct {
	lines []parser.LogLine

	records          []parser.LogRecord
	parseFailures    int
	coercionFailures int
	samples          []Failure
	maxSamples       int
}

func (c *chunk) add(line parser.LogLine) {
	rec, err := parser.ParseRecord(line)
	if err == nil {
		c.records = append(c.records, rec)
		return
	}

	kind := FailureParse
	if errors.Is(err, parser.ErrCoercion) {
		kind = FailureCoercion
		c.coercionFailures++
	} else {
		c.parseFailures++
	}
	if len(c.samples) < c.maxSamples {
		c.samples = append(c.samples, Failure{
			Kind:    kind,
			Source:  line.Source,
			LineNum: line.LineNum,
			Reason:  reason(err),
			Line:    clip(line.Content, maxSampleLine),
		})
	}
}

// maxSampleLine bounds the text kept for a rejected line.
const maxSampleLine = 512

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// reason strips the position prefix ParseRecord adds.
func reason(err error) string {
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	var cerr *parser.CoercionError
	if errors.As(err, &cerr) {
		return cerr.Error()
	}
	return err.Error()
}

func (c *chunk) parse() {
	for _, line := range c.lines {
		c.add(line)
	}
	c.lines = nil
}

// readSequential parses each line as it is read.
func (l *Loader) readSequential(ctx context.Context, src parser.LogSource) ([]*chunk, int, error) {
	c := &chunk{maxSamples: l.maxSamples}
	read := 0
	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return []*chunk{c}, read, nil
		}
		if err != nil {
			return []*chunk{c}, read, err
		}
		read++
		c.add(*line)
	}
}

// readParallel reads lines into fixed-size chunks and parses them on the
// worker pool. The returned chunks are in file order.
func (l *Loader) readParallel(ctx context.Context, src parser.LogSource) ([]*chunk, int, error) {
	jobs := make(chan *chunk)
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				c.parse()
			}
		}()
	}

	var (
		chunks  []*chunk
		current = &chunk{maxSamples: l.maxSamples}
		read    int
		readErr error
	)
	flush := func() {
		if len(current.lines) == 0 {
			return
		}
		chunks = append(chunks, current)
		jobs <- current
		current = &chunk{maxSamples: l.maxSamples}
	}

	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		read++
		current.lines = append(current.lines, *line)
		if len(current.lines) >= l.chunkSize {
			flush()
		}
	}
	flush()
	close(jobs)
	wg.Wait()

	return chunks, read, readErr
}
