// Package aigateway adapts the external text generator to reply generation:
// prompt construction, a bounded call and cleanup of the returned text.
package aigateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"email-responder/internal/llm"
	"email-responder/internal/metrics"
)

var (
	// ErrDisabled is returned when no generator is configured.
	ErrDisabled = errors.New("aigateway: generator disabled")
	// ErrEmptyReply is returned when the generator answers with nothing usable.
	ErrEmptyReply = errors.New("aigateway: empty reply")
)

const (
	DefaultMaxPromptChars = 500
	DefaultTimeout        = 10 * time.Second
	DefaultModel          = "gpt-4o-mini"
)

// Request carries what the prompt is built from.
type Request struct {
	Message  string
	TypeHint string
	Sender   string
	Context  string
}

// Generator produces a reply or an error; there is no partial outcome.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Model          string
	MaxPromptChars int
	Timeout        time.Duration
	Temperature    float32
	MaxTokens      int
}

// Gateway is the Generator backed by an llm.Client.
type Gateway struct {
	client llm.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Gateway. A nil client yields a gateway that always returns ErrDisabled.
func New(client llm.Client, cfg Config, logger *zap.Logger) *Gateway {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{client: client, cfg: cfg, logger: logger.Named("aigateway")}
}

// Enabled reports whether a client is configured.
func (g *Gateway) Enabled() bool {
	return g != nil && g.client != nil
}

// Generate makes a single bounded call. The caller falls back on any error.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.ChatCompletion(ctx, &llm.ChatRequest{
		Model: g.cfg.Model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(req, g.cfg.MaxPromptChars)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		metrics.AICallsTotal.WithLabelValues(g.cfg.Model, "error").Inc()
		return "", fmt.Errorf("aigateway: generate: %w", err)
	}

	reply := CleanReply(resp.Content)
	if reply == "" {
		metrics.AICallsTotal.WithLabelValues(g.cfg.Model, "empty").Inc()
		return "", ErrEmptyReply
	}

	metrics.AICallsTotal.WithLabelValues(g.cfg.Model, "success").Inc()
	g.logger.Debug("reply generated",
		zap.String("model", g.cfg.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("reply_chars", len(reply)),
	)
	return reply, nil
}

const systemPrompt = "You are a professional email assistant. Write only the email reply, no explanations."

// BuildPrompt embeds the message (cut to maxChars runes), tone and optional sender/context.
func BuildPrompt(req Request, maxChars int) string {
	tone := strings.TrimSpace(req.TypeHint)
	if tone == "" {
		tone = "professional"
	}
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = "Unknown"
	}
	extra := strings.TrimSpace(req.Context)
	if extra == "" {
		extra = "General business communication"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reply in a %s tone to this email.\n", tone)
	fmt.Fprintf(&b, "Email: %s\n", truncateRunes(strings.TrimSpace(req.Message), maxChars))
	fmt.Fprintf(&b, "Sender: %s\n", sender)
	fmt.Fprintf(&b, "Context: %s\n", extra)
	b.WriteString("Keep it concise, address the key points and end with next steps if needed.")
	return b.String()
}

// CleanReply trims whitespace and strips one layer of matching surrounding quotes.
func CleanReply(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
