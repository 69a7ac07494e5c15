// Package access derives visibility and editability of tasks from the
// viewing user's role, creatorship and assignment. All predicates are
// pure functions over the provided state.
package access

import (
	"fmt"

	"agenda-admin/models"
)

// Role is a user's static capability tier.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole validates a role string coming from a request or a DB row.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Level orders roles by privilege for display purposes only. No
// permission rule may be inferred from it.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Subject is the authenticated user a predicate is evaluated for.
// A nil *Subject means no user is authenticated.
type Subject struct {
	ID       int64
	Username string
	Role     Role
}

// CanView reports whether the subject may see the task. All tasks
// within a visible event are shown to every authenticated user;
// filtering by assignment is a UI convenience, never an access
// restriction. This always returns true, nil subject included.
func CanView(t models.Task, u *Subject) bool {
	_ = t
	_ = u
	return true
}

// CanEdit reports whether the subject may modify the task: admins
// always, the task's creator always, and assignees only when their
// role is editor. A viewer who is an assignee but not the creator
// cannot edit.
func CanEdit(t models.Task, u *Subject) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	if t.CreatedBy == u.ID {
		return true
	}
	return u.Role == RoleEditor && t.HasAssignee(u.ID)
}

// CanToggleCompletion gates the completion checkbox. It is the same
// predicate as CanEdit; there is no relaxed rule for toggling.
func CanToggleCompletion(t models.Task, u *Subject) bool {
	return CanEdit(t, u)
}

// CanCreateTask reports whether the subject may create tasks at all.
// Viewers are read-only apart from what CanEdit grants them.
func CanCreateTask(u *Subject) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// EventPolicy selects who may create, edit or delete events.
// The choice is configuration, not code.
type EventPolicy string

const (
	EventPolicyAdminOnly     EventPolicy = "admin_only"
	EventPolicyAdminOrEditor EventPolicy = "admin_or_editor"
)

// CanModifyEvent reports whether the subject may create/edit/delete
// events under this policy.
func (p EventPolicy) CanModifyEvent(u *Subject) bool {
	if u == nil {
		return false
	}
	switch p {
	case EventPolicyAdminOnly:
		return u.Role == RoleAdmin
	default:
		return u.Role == RoleAdmin || u.Role == RoleEditor
	}
}
