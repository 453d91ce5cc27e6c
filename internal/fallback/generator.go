// Package fallback produces deterministic templated replies without any external calls.
package fallback

import "email-responder/internal/classify"

// GenericReply is returned when no rule matches.
const GenericReply = "Thank you for your email. I've received your message and will get back to you soon."

var replies = map[classify.ResponseType]string{
	classify.TypeReturns:        "Thank you for reaching out about your return. I'll review the details and follow up with the next steps shortly.",
	classify.TypeBilling:        "Thank you for your message regarding billing. I'll review the invoice details and get back to you shortly.",
	classify.TypeScheduling:     "Thank you for reaching out. I'll check my calendar and get back to you with available times shortly.",
	classify.TypeUrgent:         "I understand this is urgent. I'm reviewing your message now and will respond as quickly as possible.",
	classify.TypeSupport:        "Thanks for getting in touch. I'm happy to help and will look into your question right away.",
	classify.TypeFollowUp:       "Thank you for following up. I'll provide an update on this soon.",
	classify.TypeProposal:       "Thank you for sharing this proposal. I'll review the details and share my thoughts soon.",
	classify.TypeAcknowledgment: "You're welcome! I'm glad I could help.",
}

// Generator maps the classifier's rule table onto one fixed sentence per category.
// It never fails and has no side effects.
type Generator struct {
	classifier *classify.Classifier
}

// New returns a Generator over classifier; nil uses the default rule table.
func New(classifier *classify.Classifier) *Generator {
	if classifier == nil {
		classifier = classify.New(nil)
	}
	return &Generator{classifier: classifier}
}

// Generate returns the templated reply for message.
func (g *Generator) Generate(message string) string {
	rule, ok := g.classifier.Match(message)
	if !ok {
		return GenericReply
	}
	return ReplyFor(rule.Type)
}

// ReplyFor returns the canonical sentence for t, or GenericReply.
func ReplyFor(t classify.ResponseType) string {
	if r, ok := replies[t]; ok {
		return r
	}
	return GenericReply
}
