package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"email-responder/internal/pipeline"
	"email-responder/pkg/logging/logging"
)

// Resolver is the part of the pipeline the reply endpoint needs.
type Resolver interface {
	Resolve(ctx context.Context, req pipeline.Request) pipeline.Result
}

// ReplyRequest is the body of POST /v1/replies.
type ReplyRequest struct {
	EmailContent string `json:"email_content"`
	Sender       string `json:"sender,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Context      string `json:"context,omitempty"`
	ResponseType string `json:"response_type,omitempty"`
}

// ReplyResponse mirrors pipeline.Result with the processing time in seconds.
type ReplyResponse struct {
	GeneratedResponse string   `json:"generated_response"`
	Confidence        float64  `json:"confidence"`
	ResponseType      string   `json:"response_type"`
	Suggestions       []string `json:"suggestions"`
	ProcessingTime    float64  `json:"processing_time"`
	Cached            bool     `json:"cached"`
}

// ReplyHandler serves reply generation.
type ReplyHandler struct {
	Resolver Resolver
}

func NewReplyHandler(r Resolver) *ReplyHandler {
	return &ReplyHandler{Resolver: r}
}

// Generate handles POST /v1/replies. The pipeline always produces a reply, so the only
// client-visible failures are malformed requests.
func (h *ReplyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reply request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.EmailContent) == "" {
		writeError(w, http.StatusBadRequest, "email_content is required")
		return
	}

	ctx = logging.WithFields(ctx,
		zap.String("type_hint", req.ResponseType),
		zap.Int("message_chars", len(req.EmailContent)),
	)

	extra := req.Context
	if extra == "" && req.Subject != "" {
		extra = "Subject: " + req.Subject
	}

	res := h.Resolver.Resolve(ctx, pipeline.Request{
		Message:  req.EmailContent,
		Sender:   req.Sender,
		Context:  extra,
		TypeHint: req.ResponseType,
	})

	suggestions := res.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, ReplyResponse{
		GeneratedResponse: res.Reply,
		Confidence:        res.Confidence,
		ResponseType:      string(res.Type),
		Suggestions:       suggestions,
		ProcessingTime:    res.Duration.Seconds(),
		Cached:            res.Cached,
	})
}
