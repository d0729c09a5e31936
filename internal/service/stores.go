package service

import (
	"context"

	"github.com/ldi/backlog/pkg/models"
)

// ProjectStore is the persistence surface the project service consumes.
// *store.Store satisfies it.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error
	SaveProject(ctx context.Context, p *models.Project) error
	ListProjects(ctx context.Context) ([]*models.Project, error)
}

// TaskStore is the persistence surface the task service consumes.
// SaveTasks must be all-or-nothing.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	SaveTask(ctx context.Context, t *models.Task) error
	SaveTasks(ctx context.Context, tasks []*models.Task) error
	ListTasks(ctx context.Context) ([]*models.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]*models.Task, error)
}
