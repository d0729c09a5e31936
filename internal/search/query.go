// Package search implements the ad-hoc task search: a best-effort
// mini-language of key:value tokens layered over free-text matching,
// evaluated as a conjunction against a listed task collection.
package search

import (
	"strings"
	"time"

	"github.com/ldi/backlog/internal/validate"
	"github.com/ldi/backlog/pkg/models"
)

// Query is the structured form of a free-text search string. Nil and empty
// fields mean the corresponding predicate is absent.
type Query struct {
	Status    *models.TaskStatus
	Priority  *models.TaskPriority
	Project   string
	DueBefore *time.Time
	DueAfter  *time.Time
	// Text is the space-joined lowercase remainder, matched as a substring
	// of title or description.
	Text string
}

// Parse splits raw on whitespace and extracts the recognized key:value
// tokens (priority, status, due, project); everything else becomes free
// text. This is deliberately not a strict grammar: unrecognized keys and
// unparseable values are dropped without error.
func Parse(raw string) Query {
	var q Query
	var words []string

	for _, tok := range strings.Fields(raw) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok {
			words = append(words, tok)
			continue
		}

		switch strings.ToLower(key) {
		case "priority":
			if p, err := validate.Priority(value); err == nil && p != models.TaskPriorityNone {
				q.Priority = &p
			}
		case "status":
			if status, err := validate.Status(value); err == nil {
				q.Status = &status
			}
		case "project":
			if value != "" {
				q.Project = value
			}
		case "due":
			op, date, ok := strings.Cut(value, ":")
			if !ok {
				continue
			}
			when, err := validate.Date(date)
			if err != nil {
				continue
			}
			switch strings.ToLower(op) {
			case "before":
				q.DueBefore = &when
			case "after":
				q.DueAfter = &when
			}
		}
	}

	q.Text = strings.ToLower(strings.Join(words, " "))
	return q
}

// Match reports whether t satisfies every predicate of the query except
// the project scope, which the engine resolves before listing. A due
// predicate fails for tasks without a due date.
func (q Query) Match(t *models.Task) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*q.DueBefore)) {
		return false
	}
	if q.DueAfter != nil && (t.DueDate == nil || !t.DueDate.After(*q.DueAfter)) {
		return false
	}
	if q.Text != "" {
		title := strings.ToLower(t.Title)
		description := strings.ToLower(t.Description)
		if !strings.Contains(title, q.Text) && !strings.Contains(description, q.Text) {
			return false
		}
	}
	return true
}
