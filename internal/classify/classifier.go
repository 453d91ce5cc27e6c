package classify

import "strings"

// Classifier applies an ordered rule table; the first matching rule wins.
type Classifier struct {
	rules []Rule
}

// New returns a Classifier over rules. A nil slice uses Rules().
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = Rules()
	}
	return &Classifier{rules: rules}
}

// Match returns the first rule triggered by message.
func (c *Classifier) Match(message string) (Rule, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return Rule{}, false
	}
	for _, r := range c.rules {
		if r.Matches(lower) {
			return r, true
		}
	}
	return Rule{}, false
}

// Classify returns the type of the first matching rule, or def.
func (c *Classifier) Classify(message string, def ResponseType) ResponseType {
	if r, ok := c.Match(message); ok {
		return r.Type
	}
	return def
}
