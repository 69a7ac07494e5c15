package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"agenda-admin/access"
	"agenda-admin/database"
	"agenda-admin/models"
	"agenda-admin/notify"
)

// CreateTaskHandler creates a task under an event, then links each
// requested assignee. Link inserts that fail do NOT roll the task
// back; the failed user ids are reported in the response so the
// caller can retry them.
// POST /events/{eventID}/tasks
func CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("CreateTask: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !access.CanCreateTask(subject) {
		http.Error(w, "Forbidden: viewers cannot create tasks", http.StatusForbidden)
		return
	}

	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}
	exists, err := eventExists(eventID)
	if err != nil {
		log.Printf("CreateTask: checking event %d: %v", eventID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Task title cannot be empty", http.StatusBadRequest)
		return
	}

	now := time.Now()
	result, err := database.DB.Exec(`
        INSERT INTO tasks (event_id, title, completed, created_by, created_at, updated_at)
        VALUES (?, ?, FALSE, ?, ?, ?)
    `, eventID, req.Title, subject.ID, now, now)
	if err != nil {
		http.Error(w, "Failed to create task: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error inserting task for user %d: %v", subject.ID, err)
		return
	}
	taskID, err := result.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve task ID", http.StatusInternalServerError)
		log.Printf("Error getting last insert ID for task: %v", err)
		return
	}

	// Insert one link row per assignee. Known gap: a link failure
	// after the task insert is not compensated, only reported.
	var failed []int64
	for _, userID := range req.Assignees {
		_, err := database.DB.Exec(`
            INSERT INTO task_assignees (task_id, user_id, created_at)
            VALUES (?, ?, ?)
        `, taskID, userID, now)
		if err != nil {
			log.Printf("Error linking assignee %d to task %d: %v", userID, taskID, err)
			failed = append(failed, userID)
		}
	}

	ChangeNotifier.Publish(notify.TableTasks)
	if len(req.Assignees) > 0 {
		ChangeNotifier.Publish(notify.TableTaskAssignees)
	}
	log.Printf("User %d created task %d on event %d (%d/%d assignees linked)",
		subject.ID, taskID, eventID, len(req.Assignees)-len(failed), len(req.Assignees))

	task, err := loadTask(taskID)
	if err != nil {
		log.Printf("Error reloading created task %d: %v", taskID, err)
		http.Error(w, "Task created but could not be reloaded", http.StatusInternalServerError)
		return
	}
	task.Editable = access.CanEdit(task, subject)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.CreateTaskResponse{
		Task:            task,
		FailedAssignees: failed,
	})
}

// UpdateTaskHandler renames a task, gated by the edit predicate.
// PUT /tasks/{taskID}
func UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	subject, task, ok := taskForEdit(w, r)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Task title cannot be empty", http.StatusBadRequest)
		return
	}

	_, err := database.DB.Exec(
		"UPDATE tasks SET title = ?, updated_at = ? WHERE id = ?",
		req.Title, time.Now(), task.ID,
	)
	if err != nil {
		http.Error(w, "Failed to update task", http.StatusInternalServerError)
		log.Printf("Error updating task %d: %v", task.ID, err)
		return
	}

	ChangeNotifier.Publish(notify.TableTasks)
	log.Printf("User %d updated task %d", subject.ID, task.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Task updated successfully",
		"task_id": task.ID,
	})
}

// ToggleTaskCompletionHandler flips a task's completed flag. Same
// predicate as editing; there is no relaxed toggle rule.
// PATCH /tasks/{taskID}/toggle
func ToggleTaskCompletionHandler(w http.ResponseWriter, r *http.Request) {
	subject, task, ok := taskForEdit(w, r)
	if !ok {
		return
	}

	_, err := database.DB.Exec(
		"UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?",
		!task.Completed, time.Now(), task.ID,
	)
	if err != nil {
		http.Error(w, "Failed to toggle task", http.StatusInternalServerError)
		log.Printf("Error toggling task %d: %v", task.ID, err)
		return
	}

	ChangeNotifier.Publish(notify.TableTasks)
	log.Printf("User %d toggled task %d to completed=%v", subject.ID, task.ID, !task.Completed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Task completion toggled",
		"task_id":   task.ID,
		"completed": !task.Completed,
	})
}

// DeleteTaskHandler deletes a task and its assignee links.
// DELETE /tasks/{taskID}
func DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	subject, task, ok := taskForEdit(w, r)
	if !ok {
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM task_assignees WHERE task_id = ?", task.ID); err != nil {
		log.Printf("Error deleting assignee links for task %d: %v", task.ID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if _, err = tx.Exec("DELETE FROM tasks WHERE id = ?", task.ID); err != nil {
		log.Printf("Error deleting task %d: %v", task.ID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err = tx.Commit(); err != nil {
		log.Printf("Error committing transaction: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ChangeNotifier.Publish(notify.TableTaskAssignees)
	ChangeNotifier.Publish(notify.TableTasks)
	log.Printf("User %d deleted task %d", subject.ID, task.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Task deleted successfully",
		"task_id": task.ID,
	})
}

// taskForEdit resolves the subject and the addressed task and
// enforces the edit predicate. On failure it writes the response and
// returns ok=false.
func taskForEdit(w http.ResponseWriter, r *http.Request) (*access.Subject, models.Task, bool) {
	var zero models.Task

	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("taskForEdit: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, zero, false
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, zero, false
	}

	taskID, err := strconv.ParseInt(r.PathValue("taskID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid task ID", http.StatusBadRequest)
		return nil, zero, false
	}

	task, err := loadTask(taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Task not found", http.StatusNotFound)
			return nil, zero, false
		}
		log.Printf("taskForEdit: loading task %d: %v", taskID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, zero, false
	}

	if !access.CanEdit(task, subject) {
		http.Error(w, "Forbidden: you cannot modify this task", http.StatusForbidden)
		return nil, zero, false
	}
	return subject, task, true
}
