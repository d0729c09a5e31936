package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ldi/backlog/internal/validate"
	"github.com/ldi/backlog/pkg/models"
)

// TaskService owns the task lifecycle. Every mutation consults the project
// service first: tasks under an archived project are frozen.
type TaskService struct {
	store    TaskStore
	projects *ProjectService
}

func NewTaskService(store TaskStore, projects *ProjectService) *TaskService {
	return &TaskService{store: store, projects: projects}
}

// Projects exposes the project service this task service consults. The
// search engine resolves project: predicates through it.
func (s *TaskService) Projects() *ProjectService {
	return s.projects
}

type CreateTaskRequest struct {
	ProjectID    string
	Title        string
	Description  string
	Priority     models.TaskPriority
	DueDate      *time.Time
	Tags         []string
	ParentTaskID string
	// Status overrides the default initial status of todo when set.
	Status models.TaskStatus
}

// Create validates the request against the owning project and the optional
// parent task, then persists a new task record.
func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	if _, err := s.projects.EnsureActive(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	title := validate.Name(req.Title)
	if title == "" {
		return nil, validationErrorf("task title cannot be empty")
	}
	if !req.Priority.Valid() {
		return nil, validationErrorf("unsupported priority %q", req.Priority)
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, validationErrorf("unsupported status %q", req.Status)
	}

	if req.ParentTaskID != "" {
		parent, err := s.store.GetTask(ctx, req.ParentTaskID)
		if err != nil {
			return nil, wrapStore(err)
		}
		if parent == nil {
			return nil, validationErrorf("parent task %s not found", req.ParentTaskID)
		}
		if parent.ProjectID != req.ProjectID {
			return nil, validationErrorf("parent task %s belongs to a different project", req.ParentTaskID)
		}
	}

	now := time.Now().UTC()
	t := &models.Task{
		ID:           uuid.New().String(),
		ProjectID:    req.ProjectID,
		Title:        title,
		Description:  validate.Name(req.Description),
		Status:       status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		Tags:         validate.Tags(req.Tags),
		ParentTaskID: req.ParentTaskID,
		Archived:     status == models.TaskStatusArchived,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, wrapStore(err)
	}
	return t, nil
}

// TaskFilter narrows and orders a listing. Nil pointer fields mean "no
// filter on this attribute".
type TaskFilter struct {
	ProjectID       string
	IncludeArchived bool
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	// Tags keeps a task if it carries at least one of these tags.
	Tags []string
	// HasSubtasks partitions tasks on whether some task (archived or not)
	// names them as parent.
	HasSubtasks *bool
	SortBy      models.SortKey
	Order       models.SortOrder
}

// List runs the four-stage pipeline: scope resolution, archived-visibility
// filtering, attribute filtering, stable sort.
func (s *TaskService) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = models.SortByCreatedAt
	}
	if !sortBy.Valid() {
		return nil, validationErrorf("unsupported sort key %q", filter.SortBy)
	}
	order := filter.Order
	if order == "" {
		order = models.SortAsc
	}
	if !order.Valid() {
		return nil, validationErrorf("unsupported sort order %q", filter.Order)
	}

	// Stage 1: scope resolution.
	var tasks []*models.Task
	if filter.ProjectID != "" {
		p, err := s.projects.GetByID(ctx, filter.ProjectID)
		if err != nil {
			return nil, err
		}
		if p.Archived && !filter.IncludeArchived {
			return []*models.Task{}, nil
		}
		tasks, err = s.store.ListTasksByProject(ctx, filter.ProjectID)
		if err != nil {
			return nil, wrapStore(err)
		}
	} else {
		var err error
		tasks, err = s.store.ListTasks(ctx)
		if err != nil {
			return nil, wrapStore(err)
		}
	}

	// Stage 2: archived-visibility filtering. When scanning across all
	// projects, tasks under archived projects are hidden too.
	if !filter.IncludeArchived {
		var activeProjects map[string]bool
		if filter.ProjectID == "" {
			projects, err := s.projects.List(ctx, false)
			if err != nil {
				return nil, err
			}
			activeProjects = make(map[string]bool, len(projects))
			for _, p := range projects {
				activeProjects[p.ID] = true
			}
		}

		visible := tasks[:0]
		for _, t := range tasks {
			if t.Archived {
				continue
			}
			if activeProjects != nil && !activeProjects[t.ProjectID] {
				continue
			}
			visible = append(visible, t)
		}
		tasks = visible
	}

	// Stage 3: attribute filtering.
	var parents map[string]bool
	if filter.HasSubtasks != nil {
		// Parenthood is judged against the full task universe, not the
		// already-filtered subset.
		universe, err := s.store.ListTasks(ctx)
		if err != nil {
			return nil, wrapStore(err)
		}
		parents = make(map[string]bool)
		for _, t := range universe {
			if t.ParentTaskID != "" {
				parents[t.ParentTaskID] = true
			}
		}
	}

	filtered := tasks[:0]
	for _, t := range tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if len(filter.Tags) > 0 && !hasAnyTag(t, filter.Tags) {
			continue
		}
		if filter.HasSubtasks != nil && parents[t.ID] != *filter.HasSubtasks {
			continue
		}
		filtered = append(filtered, t)
	}
	tasks = filtered

	// Stage 4: stable sort. Ties keep the order the previous stage produced.
	SortTasks(tasks, sortBy, order)
	return tasks, nil
}

func hasAnyTag(t *models.Task, tags []string) bool {
	for _, want := range tags {
		for _, have := range t.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UpdateTaskRequest carries a partial update. Nil fields are left unchanged;
// clearing a field is deliberately not supported by this operation.
type UpdateTaskRequest struct {
	TaskID      string
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	DueDate     *time.Time
	Tags        *[]string
}

// Update overwrites only the supplied fields and bumps the update timestamp.
func (s *TaskService) Update(ctx context.Context, req UpdateTaskRequest) (*models.Task, error) {
	t, err := s.getTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.EnsureActive(ctx, t.ProjectID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := validate.Name(*req.Title)
		if title == "" {
			return nil, validationErrorf("task title cannot be empty")
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = validate.Name(*req.Description)
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, validationErrorf("unsupported priority %q", *req.Priority)
		}
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Tags != nil {
		t.Tags = validate.Tags(*req.Tags)
	}

	t.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTask(ctx, t); err != nil {
		return nil, wrapStore(err)
	}
	return t, nil
}

// Move transitions a task to the given status. Every status is reachable
// from every other; the derived archived flag follows the status.
func (s *TaskService) Move(ctx context.Context, taskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, validationErrorf("unsupported status %q", status)
	}

	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.EnsureActive(ctx, t.ProjectID); err != nil {
		return nil, err
	}

	t.Status = status
	t.Archived = status == models.TaskStatusArchived
	t.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveTask(ctx, t); err != nil {
		return nil, wrapStore(err)
	}
	return t, nil
}

// Archive moves a task to archived status.
func (s *TaskService) Archive(ctx context.Context, taskID string) (*models.Task, error) {
	return s.Move(ctx, taskID, models.TaskStatusArchived)
}

func (s *TaskService) getTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	if t == nil {
		return nil, &NotFoundError{Entity: "task", ID: id}
	}
	return t, nil
}
