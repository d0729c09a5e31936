package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ldi/backlog/pkg/models"
)

// GetProject retrieves a project by id. Returns nil when absent.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM projects WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p := &models.Project{}
	if err := json.Unmarshal([]byte(data), p); err != nil {
		return nil, fmt.Errorf("failed to decode project record %s: %w", id, err)
	}
	return p, nil
}

// CreateProject inserts a new project record. Fails if the id already exists.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}

	query := `INSERT INTO projects (id, data) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, p.ID, string(data)); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// SaveProject overwrites an existing project record, inserting if absent.
func (s *Store) SaveProject(ctx context.Context, p *models.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}

	query := `
		INSERT INTO projects (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, string(data)); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// ListProjects returns every project in insertion order. Corrupt records
// are logged and omitted.
func (s *Store) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}

		p := &models.Project{}
		if err := json.Unmarshal([]byte(data), p); err != nil {
			s.log.WithError(err).WithField("id", id).Warn("skipping corrupt project record")
			continue
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return projects, nil
}
