package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ldi/backlog/pkg/models"
)

func TestCreateTaskDefaults(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})

	task, err := tasks.Create(ctx, CreateTaskRequest{
		ProjectID: p.ID,
		Title:     "  Write   copy ",
		Tags:      []string{"Marketing", "urgent", "MARKETING"},
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if task.Title != "Write copy" {
		t.Errorf("Expected normalized title, got %q", task.Title)
	}
	if task.Status != models.TaskStatusTodo {
		t.Errorf("Expected default status todo, got %s", task.Status)
	}
	if task.Archived {
		t.Errorf("Expected new task to be active")
	}
	if task.Priority != models.TaskPriorityNone {
		t.Errorf("Expected unset priority, got %s", task.Priority)
	}
	if !reflect.DeepEqual(task.Tags, []string{"marketing", "urgent"}) {
		t.Errorf("Expected deduplicated lowercase tags, got %v", task.Tags)
	}

	// Round trip through listing.
	listed, err := tasks.List(ctx, TaskFilter{ProjectID: p.ID})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(listed))
	}
	got := listed[0]
	if got.ID != task.ID || got.Title != task.Title || !reflect.DeepEqual(got.Tags, task.Tags) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, task)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) || !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Errorf("Timestamps did not round trip: %+v vs %+v", got, task)
	}
}

func TestCreateTaskExplicitStatus(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})

	task, err := tasks.Create(ctx, CreateTaskRequest{
		ProjectID: p.ID,
		Title:     "Old work",
		Status:    models.TaskStatusArchived,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if task.Status != models.TaskStatusArchived || !task.Archived {
		t.Errorf("Expected explicit archived status honored, got %+v", task)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	other, _ := projects.Create(ctx, CreateProjectRequest{Name: "Other"})
	parent, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Parent"})

	var verr *ValidationError
	var nferr *NotFoundError
	var cerr *ConflictError

	// Empty title.
	_, err := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "  "})
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for empty title, got %v", err)
	}

	// Unknown project.
	_, err = tasks.Create(ctx, CreateTaskRequest{ProjectID: "missing", Title: "X"})
	if !errors.As(err, &nferr) {
		t.Errorf("Expected NotFoundError for unknown project, got %v", err)
	}

	// Unknown parent.
	_, err = tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "X", ParentTaskID: "missing"})
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for unknown parent, got %v", err)
	}

	// Cross-project parent.
	_, err = tasks.Create(ctx, CreateTaskRequest{ProjectID: other.ID, Title: "X", ParentTaskID: parent.ID})
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for cross-project parent, got %v", err)
	}

	// Bad priority.
	_, err = tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "X", Priority: "urgent"})
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for bad priority, got %v", err)
	}

	// Archived project.
	projects.Archive(ctx, other.ID)
	_, err = tasks.Create(ctx, CreateTaskRequest{ProjectID: other.ID, Title: "X"})
	if !errors.As(err, &cerr) {
		t.Errorf("Expected ConflictError for archived project, got %v", err)
	}
}

func TestCreateSubtask(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	parent, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Parent"})

	child, err := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Child", ParentTaskID: parent.ID})
	if err != nil {
		t.Fatalf("Failed to create subtask: %v", err)
	}
	if child.ParentTaskID != parent.ID {
		t.Errorf("Expected parent linkage, got %q", child.ParentTaskID)
	}
}

func TestListTasksPriorityDescScenario(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Write copy", Priority: models.TaskPriorityHigh, Tags: []string{"marketing", "urgent"}})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Design banner", Priority: models.TaskPriorityLow})

	listed, err := tasks.List(ctx, TaskFilter{ProjectID: p.ID, SortBy: models.SortByPriority, Order: models.SortDesc})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(listed))
	}
	if listed[0].Title != "Write copy" || listed[1].Title != "Design banner" {
		t.Errorf("Expected [Write copy, Design banner], got [%s, %s]", listed[0].Title, listed[1].Title)
	}
}

func TestListTasksArchivedProjectScenario(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Write copy"})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Design banner"})

	if _, err := projects.Archive(ctx, p.ID); err != nil {
		t.Fatalf("Failed to archive project: %v", err)
	}

	// Default visibility short-circuits to empty for an archived project.
	listed, err := tasks.List(ctx, TaskFilter{ProjectID: p.ID})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected empty listing for archived project, got %d tasks", len(listed))
	}

	listed, err = tasks.List(ctx, TaskFilter{ProjectID: p.ID, IncludeArchived: true})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 archived tasks, got %d", len(listed))
	}
	for _, task := range listed {
		if task.Status != models.TaskStatusArchived {
			t.Errorf("Expected archived status on %s, got %s", task.Title, task.Status)
		}
	}
}

func TestListTasksHidesArchivedProjectsInGlobalScan(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	active, _ := projects.Create(ctx, CreateProjectRequest{Name: "Active"})
	doomed, _ := projects.Create(ctx, CreateProjectRequest{Name: "Doomed"})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: active.ID, Title: "Keep"})
	tasks.Create(ctx, CreateTaskRequest{ProjectID: doomed.ID, Title: "Hide"})

	projects.Archive(ctx, doomed.ID)

	listed, err := tasks.List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Keep" {
		t.Errorf("Expected only the active project's task, got %v", listed)
	}
	for _, task := range listed {
		if task.Archived {
			t.Errorf("Expected no archived task in default listing")
		}
	}
}

func TestListTasksAttributeFilters(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	a, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "A", Priority: models.TaskPriorityHigh, Tags: []string{"x"}})
	b, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "B", Priority: models.TaskPriorityLow, Tags: []string{"y"}})
	c, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "C", ParentTaskID: a.ID})
	tasks.Move(ctx, b.ID, models.TaskStatusPending)

	status := models.TaskStatusPending
	listed, err := tasks.List(ctx, TaskFilter{ProjectID: p.ID, Status: &status})
	if err != nil {
		t.Fatalf("Failed to list by status: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != b.ID {
		t.Errorf("Expected only B pending, got %v", listed)
	}

	priority := models.TaskPriorityHigh
	listed, err = tasks.List(ctx, TaskFilter{ProjectID: p.ID, Priority: &priority})
	if err != nil {
		t.Fatalf("Failed to list by priority: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != a.ID {
		t.Errorf("Expected only A high priority, got %v", listed)
	}

	listed, err = tasks.List(ctx, TaskFilter{ProjectID: p.ID, Tags: []string{"y", "z"}})
	if err != nil {
		t.Fatalf("Failed to list by tags: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != b.ID {
		t.Errorf("Expected only B tagged y, got %v", listed)
	}

	hasSubtasks := true
	listed, err = tasks.List(ctx, TaskFilter{ProjectID: p.ID, HasSubtasks: &hasSubtasks})
	if err != nil {
		t.Fatalf("Failed to list by hasSubtasks: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != a.ID {
		t.Errorf("Expected only A to have subtasks, got %v", listed)
	}

	hasSubtasks = false
	listed, err = tasks.List(ctx, TaskFilter{ProjectID: p.ID, HasSubtasks: &hasSubtasks})
	if err != nil {
		t.Fatalf("Failed to list by hasSubtasks: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected B and C without subtasks, got %v", listed)
	}
	_ = c
}

func TestListTasksUnknownProject(t *testing.T) {
	_, tasks := newTestServices(t)

	_, err := tasks.List(context.Background(), TaskFilter{ProjectID: "missing"})
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestSortTasksDueDate(t *testing.T) {
	due1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	due2 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ts := []*models.Task{
		{ID: "none", Title: "no due"},
		{ID: "late", DueDate: &due2},
		{ID: "soon", DueDate: &due1},
	}

	SortTasks(ts, models.SortByDueDate, models.SortAsc)
	got := []string{ts[0].ID, ts[1].ID, ts[2].ID}
	want := []string{"soon", "late", "none"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ascending due sort = %v, want %v", got, want)
	}

	SortTasks(ts, models.SortByDueDate, models.SortDesc)
	got = []string{ts[0].ID, ts[1].ID, ts[2].ID}
	want = []string{"none", "late", "soon"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Descending due sort = %v, want %v", got, want)
	}
}

func TestSortTasksTitleCaseInsensitive(t *testing.T) {
	ts := []*models.Task{
		{ID: "b", Title: "banana"},
		{ID: "A", Title: "Apple"},
		{ID: "c", Title: "Cherry"},
	}
	SortTasks(ts, models.SortByTitle, models.SortAsc)
	got := []string{ts[0].ID, ts[1].ID, ts[2].ID}
	if !reflect.DeepEqual(got, []string{"A", "b", "c"}) {
		t.Errorf("Title sort = %v", got)
	}
}

func TestSortTasksDeterministic(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []*models.Task{
		{ID: "1", Title: "same", CreatedAt: base, Priority: models.TaskPriorityMedium},
		{ID: "2", Title: "same", CreatedAt: base, Priority: models.TaskPriorityMedium},
		{ID: "3", Title: "same", CreatedAt: base, Priority: models.TaskPriorityMedium},
	}

	SortTasks(ts, models.SortByPriority, models.SortDesc)
	first := []string{ts[0].ID, ts[1].ID, ts[2].ID}
	SortTasks(ts, models.SortByPriority, models.SortDesc)
	second := []string{ts[0].ID, ts[1].ID, ts[2].ID}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Sort not deterministic: %v then %v", first, second)
	}
	// Ties keep insertion order under a stable sort.
	if !reflect.DeepEqual(first, []string{"1", "2", "3"}) {
		t.Errorf("Expected stable tie order, got %v", first)
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	task, _ := tasks.Create(ctx, CreateTaskRequest{
		ProjectID:   p.ID,
		Title:       "Write copy",
		Description: "first draft",
		Priority:    models.TaskPriorityLow,
		Tags:        []string{"marketing"},
	})

	title := "Write better copy"
	updated, err := tasks.Update(ctx, UpdateTaskRequest{TaskID: task.ID, Title: &title})
	if err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	if updated.Title != "Write better copy" {
		t.Errorf("Expected updated title, got %q", updated.Title)
	}
	// Unsupplied fields stay untouched.
	if updated.Description != "first draft" {
		t.Errorf("Expected description unchanged, got %q", updated.Description)
	}
	if updated.Priority != models.TaskPriorityLow {
		t.Errorf("Expected priority unchanged, got %s", updated.Priority)
	}
	if !reflect.DeepEqual(updated.Tags, []string{"marketing"}) {
		t.Errorf("Expected tags unchanged, got %v", updated.Tags)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Errorf("Expected updated_at bump")
	}

	due := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	tags := []string{"Marketing", "launch"}
	priority := models.TaskPriorityHigh
	updated, err = tasks.Update(ctx, UpdateTaskRequest{
		TaskID:   task.ID,
		Priority: &priority,
		DueDate:  &due,
		Tags:     &tags,
	})
	if err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if updated.Priority != models.TaskPriorityHigh {
		t.Errorf("Expected high priority, got %s", updated.Priority)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Errorf("Expected due date set, got %v", updated.DueDate)
	}
	if !reflect.DeepEqual(updated.Tags, []string{"marketing", "launch"}) {
		t.Errorf("Expected normalized replacement tags, got %v", updated.Tags)
	}
}

func TestUpdateTaskErrors(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	task, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Write copy"})

	var nferr *NotFoundError
	_, err := tasks.Update(ctx, UpdateTaskRequest{TaskID: "missing"})
	if !errors.As(err, &nferr) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}

	var verr *ValidationError
	empty := "  "
	_, err = tasks.Update(ctx, UpdateTaskRequest{TaskID: task.ID, Title: &empty})
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for blank title, got %v", err)
	}

	projects.Archive(ctx, p.ID)
	var cerr *ConflictError
	title := "nope"
	_, err = tasks.Update(ctx, UpdateTaskRequest{TaskID: task.ID, Title: &title})
	if !errors.As(err, &cerr) {
		t.Errorf("Expected ConflictError under archived project, got %v", err)
	}
}

func TestMoveTaskScenario(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	task, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Write copy"})

	moved, err := tasks.Move(ctx, task.ID, models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("Failed to move task: %v", err)
	}
	if moved.Status != models.TaskStatusCompleted || moved.Archived {
		t.Errorf("Expected completed and not archived, got %+v", moved)
	}

	moved, err = tasks.Move(ctx, task.ID, models.TaskStatusArchived)
	if err != nil {
		t.Fatalf("Failed to archive task: %v", err)
	}
	if moved.Status != models.TaskStatusArchived || !moved.Archived {
		t.Errorf("Expected archived flag derived from status, got %+v", moved)
	}

	var verr *ValidationError
	_, err = tasks.Move(ctx, task.ID, "done")
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for unknown status, got %v", err)
	}
}

func TestArchiveTaskSugar(t *testing.T) {
	projects, tasks := newTestServices(t)
	ctx := context.Background()

	p, _ := projects.Create(ctx, CreateProjectRequest{Name: "Launch"})
	task, _ := tasks.Create(ctx, CreateTaskRequest{ProjectID: p.ID, Title: "Write copy"})

	archived, err := tasks.Archive(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to archive task: %v", err)
	}
	if archived.Status != models.TaskStatusArchived || !archived.Archived {
		t.Errorf("Expected archived task, got %+v", archived)
	}
}
