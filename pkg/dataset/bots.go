package dataset

import (
	"strings"

	"github.com/ccollicutt/logtriage/pkg/parser"
)

// DefaultBotTokens are the user-agent substrings that mark automated clients.
var DefaultBotTokens = []string{"bot", "spider", "crawler", "python-request"}

// BotMatcher classifies user agents as bot-like by case-insensitive
// substring match against a fixed token set.
type BotMatcher struct {
	tokens []string
}

// NewBotMatcher creates a matcher for the given tokens. Empty tokens are
// ignored; with no usable tokens the defaults are used.
func NewBotMatcher(tokens ...string) *BotMatcher {
	m := &BotMatcher{}
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			m.tokens = append(m.tokens, t)
		}
	}
	if len(m.tokens) == 0 {
		m.tokens = append(m.tokens, DefaultBotTokens...)
	}
	return m
}

// Tokens returns the lower-cased tokens in use.
func (m *BotMatcher) Tokens() []string {
	return append([]string(nil), m.tokens...)
}

// IsBot reports whether the user agent contains any bot token.
func (m *BotMatcher) IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, t := range m.tokens {
		if strings.Contains(ua, t) {
			return true
		}
	}
	return false
}

// Partition splits the dataset into bot-like and other records. Every
// record lands in exactly one of the two, and both keep file order.
func (d *Dataset) Partition(m *BotMatcher) (bots, others *Dataset) {
	bots, others = &Dataset{}, &Dataset{}
	d.Each(func(r *parser.LogRecord) bool {
		if m.IsBot(r.UserAgent) {
			bots.records = append(bots.records, *r)
		} else {
			others.records = append(others.records, *r)
		}
		return true
	})
	return bots, others
}
