// Package validate turns free-form caller input into canonical values:
// whitespace-normalized names, deduplicated lowercase tag sets, parsed
// dates and enum values. Services call these before anything is persisted.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/ldi/backlog/pkg/models"
)

// Name trims s and collapses internal runs of whitespace to single spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tags lowercases and trims each tag, drops empties, and deduplicates while
// preserving first-seen order.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// TagList splits a comma-separated tag string and normalizes it with Tags.
// Callers that already hold a structured list should use Tags directly.
func TagList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return Tags(strings.Split(s, ","))
}

// Date parses an ISO-8601 instant. A bare date is accepted and read as
// midnight UTC.
func Date(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC 3339 or YYYY-MM-DD", s)
}

// Status parses a task status string.
func Status(s string) (models.TaskStatus, error) {
	status := models.TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q: want todo, pending, completed or archived", s)
	}
	return status, nil
}

// Priority parses a task priority string. Empty input means "unset".
func Priority(s string) (models.TaskPriority, error) {
	priority := models.TaskPriority(strings.ToLower(strings.TrimSpace(s)))
	if !priority.Valid() {
		return "", fmt.Errorf("invalid priority %q: want low, medium or high", s)
	}
	return priority, nil
}
