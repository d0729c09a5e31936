// Package service implements the project and task domain layer: lifecycle
// rules, the archive cascade, the listing pipeline and the status state
// machine. Persistence is consumed through the narrow store interfaces.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ldi/backlog/internal/validate"
	"github.com/ldi/backlog/pkg/models"
)

// ProjectService owns the project lifecycle. It also drives the archive
// cascade over the task store: archiving a project rewrites its live tasks
// in one batch.
type ProjectService struct {
	projects ProjectStore
	tasks    TaskStore
}

func NewProjectService(projects ProjectStore, tasks TaskStore) *ProjectService {
	return &ProjectService{projects: projects, tasks: tasks}
}

type CreateProjectRequest struct {
	Name        string
	Description string
	Tags        []string
}

// Create normalizes the request, assigns a fresh id and timestamp pair and
// persists the new project.
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*models.Project, error) {
	name := validate.Name(req.Name)
	if name == "" {
		return nil, validationErrorf("project name cannot be empty")
	}

	now := time.Now().UTC()
	p := &models.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: validate.Name(req.Description),
		Tags:        validate.Tags(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projects.CreateProject(ctx, p); err != nil {
		return nil, wrapStore(err)
	}
	return p, nil
}

// List returns projects sorted ascending by creation time, hiding archived
// ones unless requested. The store's insertion order breaks ties, so the
// result is deterministic for a fixed store state.
func (s *ProjectService) List(ctx context.Context, includeArchived bool) ([]*models.Project, error) {
	all, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, wrapStore(err)
	}

	projects := make([]*models.Project, 0, len(all))
	for _, p := range all {
		if p.Archived && !includeArchived {
			continue
		}
		projects = append(projects, p)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// GetByID retrieves a project or fails with NotFoundError.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	if p == nil {
		return nil, &NotFoundError{Entity: "project", ID: id}
	}
	return p, nil
}

// GetByName scans all projects, archived included, for an exact name match.
// Names are not unique; the first match in insertion order wins. Returns
// nil when nothing matches.
func (s *ProjectService) GetByName(ctx context.Context, name string) (*models.Project, error) {
	all, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, wrapStore(err)
	}
	for _, p := range all {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

// EnsureActive retrieves a project and fails with ConflictError if it has
// been archived. Task mutations consult this before touching anything.
func (s *ProjectService) EnsureActive(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Archived {
		return nil, &ConflictError{Msg: fmt.Sprintf("project %s is archived", id)}
	}
	return p, nil
}

// Archive archives a project and cascades to its tasks: every non-archived
// task is rewritten to archived status in a single batch write. Archiving
// an already-archived project is a no-op returning the current state.
//
// The project record is durably updated before the task batch is attempted,
// so a crash in between can leave live tasks under an archived project.
// Callers wanting stronger guarantees need a reconciliation sweep.
func (s *ProjectService) Archive(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Archived {
		return p, nil
	}

	now := time.Now().UTC()
	p.Archived = true
	p.UpdatedAt = now
	if err := s.projects.SaveProject(ctx, p); err != nil {
		return nil, wrapStore(err)
	}

	tasks, err := s.tasks.ListTasksByProject(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}

	var cascade []*models.Task
	for _, t := range tasks {
		if t.Archived {
			continue
		}
		t.Status = models.TaskStatusArchived
		t.Archived = true
		t.UpdatedAt = now
		cascade = append(cascade, t)
	}
	if err := s.tasks.SaveTasks(ctx, cascade); err != nil {
		return nil, wrapStore(err)
	}
	return p, nil
}
