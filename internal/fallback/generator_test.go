package fallback

import (
	"testing"

	"email-responder/internal/classify"
)

func TestGenerateScheduling(t *testing.T) {
	g := New(nil)
	got := g.Generate("Can we schedule a call for Tuesday?")
	if got != ReplyFor(classify.TypeScheduling) {
		t.Fatalf("expected scheduling sentence, got %q", got)
	}
}

func TestGenerateGeneric(t *testing.T) {
	g := New(nil)
	for _, msg := range []string{"", "Lunch sounds great", "   "} {
		if got := g.Generate(msg); got != GenericReply {
			t.Fatalf("Generate(%q) = %q, want generic", msg, got)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := New(nil)
	msg := "Please send the invoice ASAP"
	if a, b := g.Generate(msg), g.Generate(msg); a != b {
		t.Fatalf("fallback not deterministic: %q vs %q", a, b)
	}
}

func TestEveryRuleHasASentence(t *testing.T) {
	for _, r := range classify.Rules() {
		if _, ok := replies[r.Type]; !ok {
			t.Fatalf("rule %q has no fallback sentence", r.Type)
		}
	}
}
