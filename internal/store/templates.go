package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"email-responder/internal/metrics"
)

// Template is a reusable reply body with {placeholder} slots.
type Template struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
	Category string `json:"category"`
}

// Validate checks the fields a template must carry.
func (t Template) Validate() error {
	switch {
	case strings.TrimSpace(t.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(t.Template) == "":
		return errors.New("template is required")
	case strings.TrimSpace(t.Category) == "":
		return errors.New("category is required")
	}
	return nil
}

func defaultTemplates() []Template {
	return []Template{
		{Name: "Professional Thank You", Template: "Thank you for your email. I appreciate you reaching out about {topic}. I'll review this and get back to you within 24 hours.", Category: "professional"},
		{Name: "Meeting Request", Template: "Thank you for the meeting request. I'm available {availability}. Please let me know what works best for you.", Category: "scheduling"},
		{Name: "Quick Acknowledgment", Template: "Thanks for your message! I've received it and will respond shortly.", Category: "quick"},
		{Name: "Follow Up", Template: "Following up on our previous conversation about {topic}. Please let me know if you need any additional information.", Category: "followup"},
	}
}

func (s *Store) seedTemplates() error {
	for _, t := range defaultTemplates() {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO response_templates (name, template, category) VALUES (?, ?, ?)`,
			t.Name, t.Template, t.Category,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListTemplates returns all templates ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, template, category FROM response_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Template, &t.Category); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTemplate returns the template with id, or ErrNotFound.
func (s *Store) GetTemplate(ctx context.Context, id int64) (Template, error) {
	var t Template
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, template, category FROM response_templates WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Template, &t.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// CreateTemplate inserts t and returns it with its new id.
func (s *Store) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	if err := t.Validate(); err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO response_templates (name, template, category) VALUES (?, ?, ?)`,
		t.Name, t.Template, t.Category,
	)
	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues("create_template", "error").Inc()
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	metrics.StoreOperationsTotal.WithLabelValues("create_template", "success").Inc()
	return t, nil
}

// UpdateTemplate replaces the fields of an existing template.
func (s *Store) UpdateTemplate(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE response_templates SET name = ?, template = ?, category = ? WHERE id = ?`,
		t.Name, t.Template, t.Category, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return expectOneRow(res)
}

// DeleteTemplate removes the template with id.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
