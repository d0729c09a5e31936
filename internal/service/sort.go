package service

import (
	"sort"
	"strings"

	"github.com/ldi/backlog/pkg/models"
)

// SortTasks stably sorts tasks in place by the given key and order. Missing
// due dates sort as the maximum value, so tasks without one come last in
// ascending order. The search engine reuses this for its own output.
func SortTasks(tasks []*models.Task, key models.SortKey, order models.SortOrder) {
	less := lessFunc(key)
	if order == models.SortDesc {
		asc := less
		less = func(a, b *models.Task) bool { return asc(b, a) }
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

func lessFunc(key models.SortKey) func(a, b *models.Task) bool {
	switch key {
	case models.SortByDueDate:
		return func(a, b *models.Task) bool {
			if a.DueDate == nil {
				return false
			}
			if b.DueDate == nil {
				return true
			}
			return a.DueDate.Before(*b.DueDate)
		}
	case models.SortByPriority:
		return func(a, b *models.Task) bool {
			return a.Priority.Weight() < b.Priority.Weight()
		}
	case models.SortByTitle:
		return func(a, b *models.Task) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	default:
		return func(a, b *models.Task) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
}
