package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ldi/backlog/pkg/models"
)

// GetTask retrieves a task by id. Returns nil when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	t := &models.Task{}
	if err := json.Unmarshal([]byte(data), t); err != nil {
		return nil, fmt.Errorf("failed to decode task record %s: %w", id, err)
	}
	return t, nil
}

// CreateTask inserts a new task record and registers it under its project.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task record: %w", err)
	}

	query := `INSERT INTO tasks (id, project_id, data) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, t.ID, t.ProjectID, string(data)); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// SaveTask overwrites an existing task record, inserting if absent.
func (s *Store) SaveTask(ctx context.Context, t *models.Task) error {
	return s.saveTask(ctx, s.db, t)
}

func (s *Store) saveTask(ctx context.Context, exec executor, t *models.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task record: %w", err)
	}

	query := `
		INSERT INTO tasks (id, project_id, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id, data = excluded.data
	`
	if _, err := exec.ExecContext(ctx, query, t.ID, t.ProjectID, string(data)); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// SaveTasks overwrites a batch of task records in a single transaction.
// Either every record is written or none is.
func (s *Store) SaveTasks(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if err := s.saveTask(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListTasks returns every task in insertion order. Corrupt records are
// logged and omitted.
func (s *Store) ListTasks(ctx context.Context) ([]*models.Task, error) {
	return s.queryTasks(ctx, `SELECT id, data FROM tasks ORDER BY rowid`)
}

// ListTasksByProject returns a single project's tasks in insertion order.
func (s *Store) ListTasksByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return s.queryTasks(ctx, `SELECT id, data FROM tasks WHERE project_id = ? ORDER BY rowid`, projectID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		t := &models.Task{}
		if err := json.Unmarshal([]byte(data), t); err != nil {
			s.log.WithError(err).WithField("id", id).Warn("skipping corrupt task record")
			continue
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}
