// Package classify labels an incoming message with the kind of reply it needs.
package classify

import "strings"

// ResponseType is the category assigned to a message.
type ResponseType string

const (
	TypeReturns        ResponseType = "returns"
	TypeBilling        ResponseType = "billing"
	TypeScheduling     ResponseType = "scheduling"
	TypeUrgent         ResponseType = "urgent"
	TypeSupport        ResponseType = "support"
	TypeFollowUp       ResponseType = "followup"
	TypeProposal       ResponseType = "proposal"
	TypeAcknowledgment ResponseType = "acknowledgment"
	TypeGeneral        ResponseType = "general"

	// TypeInstant tags replies served from the quick-pattern table.
	TypeInstant ResponseType = "instant"
)

// maxAcknowledgmentWords bounds how long a thank-you message may be and still count as a plain acknowledgment.
const maxAcknowledgmentWords = 20

// Rule maps a keyword group to a response type. Keywords are lowercase substrings.
type Rule struct {
	Type     ResponseType
	Keywords []string
	// Prefix rules only fire when the message starts with a keyword and stays short.
	Prefix bool
}

// Matches reports whether lower (already lowercased and trimmed) triggers the rule.
func (r Rule) Matches(lower string) bool {
	if r.Prefix {
		if len(strings.Fields(lower)) >= maxAcknowledgmentWords {
			return false
		}
		for _, kw := range r.Keywords {
			if strings.HasPrefix(lower, kw) {
				return true
			}
		}
		return false
	}
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Rules returns the rule table in priority order, highest first.
func Rules() []Rule {
	return []Rule{
		{Type: TypeReturns, Keywords: []string{"return", "refund", "exchange"}},
		{Type: TypeBilling, Keywords: []string{"invoice", "payment", "billing", "charge"}},
		{Type: TypeScheduling, Keywords: []string{"meeting", "schedule", "call", "appointment"}},
		{Type: TypeUrgent, Keywords: []string{"urgent", "asap", "immediately", "priority"}},
		{Type: TypeSupport, Keywords: []string{"question", "help", "assistance", "support"}},
		{Type: TypeFollowUp, Keywords: []string{"follow up", "following up", "checking in"}},
		{Type: TypeProposal, Keywords: []string{"proposal", "project", "collaboration"}},
		{Type: TypeAcknowledgment, Keywords: []string{"thank you", "thanks"}, Prefix: true},
	}
}

// ParseType maps a free-form hint onto a known type, or def when unknown or empty.
func ParseType(hint string, def ResponseType) ResponseType {
	switch t := ResponseType(strings.ToLower(strings.TrimSpace(hint))); t {
	case TypeReturns, TypeBilling, TypeScheduling, TypeUrgent, TypeSupport,
		TypeFollowUp, TypeProposal, TypeAcknowledgment, TypeGeneral:
		return t
	case "":
		return def
	default:
		// unknown hints such as "professional" are kept as tone labels
		return t
	}
}
