package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo      TaskStatus = "todo"
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusArchived  TaskStatus = "archived"
)

// Valid reports whether s is one of the four recognized statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusPending, TaskStatusCompleted, TaskStatusArchived:
		return true
	}
	return false
}

type TaskPriority string

const (
	// TaskPriorityNone is the zero value for an unset priority.
	TaskPriorityNone   TaskPriority = ""
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a recognized priority. The empty string is
// valid and means "no priority assigned".
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityNone, TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Weight maps a priority onto its sort ordinal. Unset sorts before low.
func (p TaskPriority) Weight() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	}
	return 0
}

type Task struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority,omitempty"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	Tags         []string     `json:"tags"`
	ParentTaskID string       `json:"parent_task_id,omitempty"`
	Archived     bool         `json:"archived"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SortKey selects the task listing sort attribute.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByDueDate   SortKey = "dueDate"
	SortByPriority  SortKey = "priority"
	SortByTitle     SortKey = "title"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

// SortOrder selects ascending or descending listing order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}
