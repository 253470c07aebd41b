package parser

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxLineSize is the longest line content a FileSource returns. Longer
// lines are cut to this size and flagged as truncated.
const MaxLineSize = 1024 * 1024

const readBufferSize = 64 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// FileSource implements LogSource over a list of files, read one after
// another in the order given. Gzip-compressed files (rotated logs such as
// access.log.2.gz) are decompressed transparently.
type FileSource struct {
	files []string
	index int

	file    *os.File
	gz      *gzip.Reader
	reader  *bufio.Reader
	source  string
	lineNum int
}

// NewFileSource creates a LogSource that reads from the given files.
func NewFileSource(files ...string) *FileSource {
	return &FileSource{files: files, index: -1}
}

// Next returns the next raw log line.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.reader == nil {
			if err := s.openNext(); err != nil {
				return nil, err
			}
		}

		content, truncated, err := s.readLine()
		if err == nil {
			s.lineNum++
			return &LogLine{
				Content:   content,
				Source:    s.source,
				LineNum:   s.lineNum,
				Truncated: truncated,
			}, nil
		}
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", s.source, err)
		}

		// Current file exhausted, move on
		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrent()
}

// readLine returns the next line without its line ending. Content beyond
// MaxLineSize is discarded and reported through truncated.
func (s *FileSource) readLine() (content string, truncated bool, err error) {
	// Room for the content plus a CRLF ending
	const limit = MaxLineSize + 2

	var line []byte
	seen := 0
	for {
		frag, err := s.reader.ReadSlice('\n')
		seen += len(frag)
		if room := limit - len(line); room > 0 {
			line = append(line, frag[:min(room, len(frag))]...)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && seen == 0 {
			return "", false, io.EOF
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		break
	}

	line = trimEOL(line)
	if len(line) > MaxLineSize || seen > limit {
		return string(line[:min(len(line), MaxLineSize)]), true, nil
	}
	return string(line), false, nil
}

// trimEOL drops a trailing "\n" or "\r\n".
func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}

func (s *FileSource) openNext() error {
	s.index++
	if s.index >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.index]
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	br := bufio.NewReaderSize(f, readBufferSize)
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
		}
		s.gz = gz
		br = bufio.NewReaderSize(gz, readBufferSize)
	}

	s.file = f
	s.reader = br
	s.source = path
	s.lineNum = 0
	return nil
}

func (s *FileSource) closeCurrent() error {
	s.reader = nil
	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
		s.gz = nil
	}
	if s.file == nil {
		return gzErr
	}
	err := s.file.Close()
	s.file = nil
	return errors.Join(gzErr, err)
}
