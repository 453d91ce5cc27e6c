// Package pattern serves canned replies for messages containing well-known phrases.
package pattern

import "strings"

// Pattern associates a lowercase substring with a canned reply.
type Pattern struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Reply   string `yaml:"reply" json:"reply"`
}

// DefaultPatterns is the quick-reply table, in registration order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Keyword: "thank you", Reply: "You're welcome! Happy to help."},
		{Keyword: "thanks", Reply: "You're welcome!"},
		{Keyword: "meeting", Reply: "I'll check my calendar and get back to you with available times."},
		{Keyword: "urgent", Reply: "I understand this is urgent. Reviewing now and will respond shortly."},
		{Keyword: "follow up", Reply: "Thank you for following up. I'll provide an update soon."},
		{Keyword: "schedule", Reply: "Let me check my availability and propose some meeting times."},
	}
}

// Matcher returns the reply of the first registered pattern found in a message.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher copies patterns, lowercasing keywords and dropping empty ones.
// An empty table is valid; Match then never hits.
func NewMatcher(patterns []Pattern) *Matcher {
	m := &Matcher{patterns: make([]Pattern, 0, len(patterns))}
	for _, p := range patterns {
		kw := strings.ToLower(strings.TrimSpace(p.Keyword))
		if kw == "" || p.Reply == "" {
			continue
		}
		m.patterns = append(m.patterns, Pattern{Keyword: kw, Reply: p.Reply})
	}
	return m
}

// Match returns the first-registered pattern reply contained in message.
func (m *Matcher) Match(message string) (string, bool) {
	if m == nil || len(m.patterns) == 0 {
		return "", false
	}
	lower := strings.ToLower(message)
	for _, p := range m.patterns {
		if strings.Contains(lower, p.Keyword) {
			return p.Reply, true
		}
	}
	return "", false
}

// Len is the number of registered patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
