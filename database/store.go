package database

import (
	"context"
	"database/sql"
	"fmt"

	"agenda-admin/models"
)

// Store exposes the whole-table reads the event/task cache rebuilds
// from. Every method returns rows in a deterministic order so repeated
// reloads over unchanged data yield identical snapshots.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// EventRows lists all events ordered by date, then id.
func (s *Store) EventRows(ctx context.Context) ([]models.EventRow, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, title, date, description, color, company, created_by, created_at, updated_at
        FROM events
        ORDER BY date, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.EventRow
	for rows.Next() {
		var e models.EventRow
		var description, color, company sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &description, &color, &company, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Description = description.String
		e.Color = color.String
		e.Company = company.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// TaskRows lists all tasks ordered by creation, then id.
func (s *Store) TaskRows(ctx context.Context) ([]models.TaskRow, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, event_id, title, completed, created_by, created_at, updated_at
        FROM tasks
        ORDER BY created_at, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []models.TaskRow
	for rows.Next() {
		var t models.TaskRow
		if err := rows.Scan(&t.ID, &t.EventID, &t.Title, &t.Completed, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssigneeLinks lists all task_assignees rows ordered by creation, then id.
func (s *Store) AssigneeLinks(ctx context.Context) ([]models.AssigneeLink, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, task_id, user_id, created_at
        FROM task_assignees
        ORDER BY created_at, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query task_assignees: %w", err)
	}
	defer rows.Close()

	var out []models.AssigneeLink
	for rows.Next() {
		var l models.AssigneeLink
		if err := rows.Scan(&l.ID, &l.TaskID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignee link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Profiles lists the public projection of every user.
func (s *Store) Profiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, username, role
        FROM users
        ORDER BY id
    `)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Role); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
