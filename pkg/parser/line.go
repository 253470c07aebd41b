package parser

import (
	"fmt"
	"strings"
)

// Stage is a state of the line tokenizer.
type Stage int

// Tokenizer states, in the order a well-formed line passes through them.
const (
	StageSeekOpenBracket Stage = iota
	StageSeekCloseBracket
	StageSeekQuote1
	StageSeekQuote2
	StageSeekQuote3
	StageSeekQuote4
	StageSeekQuote5
	StageSeekQuote6
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageSeekOpenBracket:  "SeekOpenBracket",
	StageSeekCloseBracket: "SeekCloseBracket",
	StageSeekQuote1:       "SeekQuote1",
	StageSeekQuote2:       "SeekQuote2",
	StageSeekQuote3:       "SeekQuote3",
	StageSeekQuote4:       "SeekQuote4",
	StageSeekQuote5:       "SeekQuote5",
	StageSeekQuote6:       "SeekQuote6",
	StageDone:             "Done",
	StageFailed:           "Failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// delimiter returns the byte a seek stage scans for.
func (s Stage) delimiter() byte {
	switch s {
	case StageSeekOpenBracket:
		return '['
	case StageSeekCloseBracket:
		return ']'
	default:
		return '"'
	}
}

// tokenizer scans one line left to right, recording the offset of each
// delimiter. Every seek starts just past the previous delimiter.
type tokenizer struct {
	line  string
	pos   int
	stage Stage
	marks [StageDone]int
}

// step advances the tokenizer by one stage.
func (t *tokenizer) step() error {
	idx := strings.IndexByte(t.line[t.pos:], t.stage.delimiter())
	if idx < 0 {
		failed := t.stage
		t.stage = StageFailed
		return &ParseError{
			Stage: failed,
			Line:  t.line,
			Err:   fmt.Errorf("%w %q", ErrMissingDelimiter, failed.delimiter()),
		}
	}
	t.marks[t.stage] = t.pos + idx
	t.pos += idx + 1
	t.stage++
	return nil
}

// between returns the text strictly between the delimiters found by two stages.
func (t *tokenizer) between(open, close Stage) string {
	return t.line[t.marks[open]+1 : t.marks[close]]
}

// ParseLine converts one access-log line of the form
//
//	<ip> <ident> <region> [<timestamp>] "<method> <url> <protocol>" <status> <size> "<referrer>" "<user_agent>" <duration>
//
// into a RawRecord. A trailing newline is ignored. A line with a missing
// delimiter, a segment with too few tokens or a request that is not exactly
// three tokens yields a *ParseError.
func ParseLine(line string) (RawRecord, error) {
	t := tokenizer{line: strings.TrimRight(line, "\r\n")}
	for t.stage != StageDone {
		if err := t.step(); err != nil {
			return RawRecord{}, err
		}
	}

	// ident (token 1) is not used
	client, err := t.tokens("client", t.line[:t.marks[StageSeekOpenBracket]], 3, false)
	if err != nil {
		return RawRecord{}, err
	}
	request, err := t.tokens("request", t.between(StageSeekQuote1, StageSeekQuote2), 3, true)
	if err != nil {
		return RawRecord{}, err
	}
	// status and size sit between the request and referrer quotes, not in a
	// quoted field of their own; the leading space makes them tokens 1 and 2
	response, err := t.tokens("status/size", t.between(StageSeekQuote2, StageSeekQuote3), 3, false)
	if err != nil {
		return RawRecord{}, err
	}

	return RawRecord{
		IP:        client[0],
		Region:    client[2],
		Timestamp: t.between(StageSeekOpenBracket, StageSeekCloseBracket),
		Method:    request[0],
		URL:       request[1],
		Protocol:  request[2],
		Status:    response[1],
		Size:      response[2],
		Referrer:  t.between(StageSeekQuote3, StageSeekQuote4),
		UserAgent: t.between(StageSeekQuote5, StageSeekQuote6),
		Duration:  strings.TrimSpace(t.line[t.marks[StageSeekQuote6]+1:]),
	}, nil
}

// tokens splits a segment on single spaces and requires at least want
// tokens, or exactly want when exact is set. The client and status/size
// segments end in a space, so they carry a trailing empty token.
func (t *tokenizer) tokens(field, segment string, want int, exact bool) ([]string, error) {
	parts := strings.Split(segment, " ")
	if len(parts) < want || (exact && len(parts) != want) {
		return nil, &ParseError{
			Stage: StageFailed,
			Field: field,
			Line:  t.line,
			Err:   fmt.Errorf("%w: %s has %d, want %d", ErrTokenCount, field, len(parts), want),
		}
	}
	return parts, nil
}
