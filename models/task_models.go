package models

import "time"

// Assignee is a user attached to a task. Resolved is false when the
// assignee link could not be matched against a profile row; in that
// case Username degrades to the bare user id string and Role is empty.
// The link is kept rather than dropped so assignment data is never
// silently lost while profile fetches race.
type Assignee struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	Resolved bool   `json:"resolved"`
}

// TaskRow is a bare tasks table row.
type TaskRow struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssigneeLink is a task_assignees join row.
type AssigneeLink struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a task with its assignees resolved and the derived Editable
// flag computed for the viewing user. Editable is never persisted.
type Task struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Assignees []Assignee `json:"assignees"`
	Editable  bool       `json:"editable"`
}

// HasAssignee reports whether userID appears in the task's assignee list.
func (t Task) HasAssignee(userID int64) bool {
	for _, a := range t.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// CreateTaskRequest defines the body for creating a task under an event.
// Assignees lists user ids to link after the task insert.
type CreateTaskRequest struct {
	Title     string  `json:"title"`
	Assignees []int64 `json:"assignees"`
}

// CreateTaskResponse reports the created task plus any assignee links
// that failed to insert (the task itself is not rolled back).
type CreateTaskResponse struct {
	Task            Task    `json:"task"`
	FailedAssignees []int64 `json:"failed_assignees,omitempty"`
}

// UpdateTaskRequest renames a task. Completion is toggled separately.
type UpdateTaskRequest struct {
	Title string `json:"title"`
}

// AddAssigneeRequest links a user to a task.
type AddAssigneeRequest struct {
	UserID int64 `json:"user_id"`
}
