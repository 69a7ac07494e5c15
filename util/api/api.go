package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"agenda-admin/access"
	"agenda-admin/database"
	"agenda-admin/middleware"
	"agenda-admin/models"
	"agenda-admin/notify"
)

// Package-level collaborators, wired once at startup.
var (
	Store           *database.Store
	ChangeNotifier  *notify.Notifier
	EventEditPolicy = access.EventPolicyAdminOrEditor
)

// Configure wires the handler package to its collaborators.
func Configure(store *database.Store, notifier *notify.Notifier, policy access.EventPolicy) {
	Store = store
	ChangeNotifier = notifier
	EventEditPolicy = policy
}

// currentSubject resolves the authenticated user in the request
// context to an access subject (id, username, role).
func currentSubject(r *http.Request) (*access.Subject, error) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok || userID == 0 {
		return nil, nil
	}
	return subjectForUser(userID)
}

// subjectForUser loads a user's role from the database. The role is
// read fresh on every request so role changes take effect immediately.
func subjectForUser(userID int64) (*access.Subject, error) {
	var username, roleStr string
	err := database.DB.QueryRow("SELECT username, role FROM users WHERE id = ?", userID).Scan(&username, &roleStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load subject %d: %w", userID, err)
	}
	role, err := access.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return &access.Subject{ID: userID, Username: username, Role: role}, nil
}

// loadTask fetches a task row plus its assignee links so the access
// predicates can be evaluated against current state. Returns
// sql.ErrNoRows if the task does not exist.
func loadTask(taskID int64) (models.Task, error) {
	var t models.Task
	err := database.DB.QueryRow(`
        SELECT id, event_id, title, completed, created_by, created_at, updated_at
        FROM tasks WHERE id = ?
    `, taskID).Scan(&t.ID, &t.EventID, &t.Title, &t.Completed, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}

	rows, err := database.DB.Query(`
        SELECT ta.user_id, u.username, u.role
        FROM task_assignees ta
        LEFT JOIN users u ON u.id = ta.user_id
        WHERE ta.task_id = ?
        ORDER BY ta.created_at, ta.id
    `, taskID)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	t.Assignees = []models.Assignee{}
	for rows.Next() {
		var userID int64
		var username, role sql.NullString
		if err := rows.Scan(&userID, &username, &role); err != nil {
			return t, err
		}
		a := models.Assignee{UserID: userID, Username: username.String, Role: role.String, Resolved: username.Valid}
		if !a.Resolved {
			a.Username = fmt.Sprintf("%d", userID)
		}
		t.Assignees = append(t.Assignees, a)
	}
	return t, rows.Err()
}

// parseEventDate accepts the calendar form's plain date or RFC3339.
func parseEventDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC3339)", value)
	}
	return t, nil
}
