package search

import (
	"context"

	"github.com/ldi/backlog/internal/service"
	"github.com/ldi/backlog/pkg/models"
)

// Engine evaluates parsed queries against the task service's listing
// output, so search inherits the same scope and visibility rules.
type Engine struct {
	tasks *service.TaskService
}

func NewEngine(tasks *service.TaskService) *Engine {
	return &Engine{tasks: tasks}
}

// Request is a search call. Tags, when supplied, keep only tasks carrying
// at least one of them, on top of whatever the query string asks for.
type Request struct {
	Query           string
	Tags            []string
	IncludeArchived bool
	SortBy          models.SortKey
	Order           models.SortOrder
}

// Search parses the query, resolves an optional project: predicate to a
// project scope, lists the base collection and keeps the tasks matching
// every predicate. Sort semantics and defaults are the listing pipeline's.
func (e *Engine) Search(ctx context.Context, req Request) ([]*models.Task, error) {
	q := Parse(req.Query)

	filter := service.TaskFilter{
		IncludeArchived: req.IncludeArchived,
		Tags:            req.Tags,
		SortBy:          req.SortBy,
		Order:           req.Order,
	}

	if q.Project != "" {
		p, err := e.tasks.Projects().GetByName(ctx, q.Project)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return []*models.Task{}, nil
		}
		filter.ProjectID = p.ID
	}

	base, err := e.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Listing already sorted the collection; filtering keeps that order.
	matched := make([]*models.Task, 0, len(base))
	for _, t := range base {
		if q.Match(t) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}
