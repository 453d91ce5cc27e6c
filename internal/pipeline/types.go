package pipeline

import (
	"context"
	"time"

	"email-responder/internal/classify"
	"email-responder/internal/store"
)

// Source records which stage produced a reply.
type Source string

const (
	SourceCache     Source = "cache"
	SourcePattern   Source = "pattern"
	SourceAI        Source = "ai"
	SourceFallback  Source = "fallback"
	SourceRecovered Source = "recovered"
)

// Confidence levels attached to each outcome.
const (
	ConfidenceCached   = 0.95
	ConfidencePattern  = 0.85
	ConfidenceAI       = 0.95
	ConfidenceFallback = 0.7
	ConfidenceDegraded = 0.5
)

const (
	suggestionCached   = "Cached response - instant delivery"
	suggestionPattern  = "Pattern-matched response"
	suggestionTone     = "Adjust tone as needed"
	suggestionTimeline = "Add timeline if applicable"
	suggestionAIDown   = "AI service temporarily unavailable"
)

// Request is a message to resolve.
type Request struct {
	Message string
	Sender  string
	Context string
	// TypeHint is the requested response type; it is also the classifier default.
	TypeHint string
}

// Result is built fresh for every request.
type Result struct {
	Reply       string                `json:"generated_response"`
	Confidence  float64               `json:"confidence"`
	Type        classify.ResponseType `json:"response_type"`
	Suggestions []string              `json:"suggestions"`
	Duration    time.Duration         `json:"-"`
	Cached      bool                  `json:"cached"`
	Source      Source                `json:"source"`
}

// HistorySink receives one record per freshly resolved reply. Errors are logged, never returned to callers.
type HistorySink interface {
	Append(ctx context.Context, rec store.HistoryRecord) error
}
