package store

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"email-responder/internal/metrics"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	// displayMessageChars is how much of the original message a history listing shows.
	displayMessageChars = 100
)

// HistoryRecord is one append-only resolution record.
type HistoryRecord struct {
	ID                string    `json:"id"`
	OriginalEmail     string    `json:"original_email"`
	GeneratedResponse string    `json:"generated_response"`
	ResponseType      string    `json:"response_type"`
	Source            string    `json:"source,omitempty"`
	Confidence        float64   `json:"confidence"`
	CreatedAt         time.Time `json:"created_at"`
}

// Stats summarizes stored history.
type Stats struct {
	TotalResponses int64            `json:"total_responses"`
	ByType         map[string]int64 `json:"type_breakdown"`
	BySource       map[string]int64 `json:"source_breakdown"`
}

// AppendHistory inserts rec, assigning an ID and creation time when missing.
func (s *Store) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_responses (id, original_email, generated_response, response_type, source, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalEmail, rec.GeneratedResponse, rec.ResponseType, rec.Source, rec.Confidence, rec.CreatedAt.UTC(),
	)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("append_history", "error").Inc()
		return fmt.Errorf("append history: %w", err)
	}
	metrics.StoreOperationsTotal.WithLabelValues("append_history", "success").Inc()
	return nil
}

// Append lets the store act as the resolution pipeline's history sink.
func (s *Store) Append(ctx context.Context, rec HistoryRecord) error {
	return s.AppendHistory(ctx, rec)
}

// ListHistory returns the newest records first. Original messages are shortened for display.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_email, generated_response, response_type, source, confidence, created_at
		 FROM email_responses ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("list_history", "error").Inc()
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]HistoryRecord, 0, limit)
	for rows.Next() {
		var rec HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.OriginalEmail, &rec.GeneratedResponse, &rec.ResponseType,
			&rec.Source, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.OriginalEmail = displayText(rec.OriginalEmail)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	metrics.StoreOperationsTotal.WithLabelValues("list_history", "success").Inc()
	return out, nil
}

// Stats counts stored records by type and source.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByType: map[string]int64{}, BySource: map[string]int64{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_responses`).Scan(&st.TotalResponses); err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	if err := s.groupCount(ctx, "response_type", st.ByType); err != nil {
		return Stats{}, err
	}
	if err := s.groupCount(ctx, "source", st.BySource); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// column is one of our own constants, never user input
func (s *Store) groupCount(ctx context.Context, column string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM email_responses GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("history stats by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("history stats by %s: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

func displayText(s string) string {
	if utf8.RuneCountInString(s) <= displayMessageChars {
		return s
	}
	return string([]rune(s)[:displayMessageChars]) + "..."
}
