package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agenda-admin/database"
	"agenda-admin/models"
	"agenda-admin/notify"
)

// AddAssigneeHandler links a user to a task.
// POST /tasks/{taskID}/assignees
func AddAssigneeHandler(w http.ResponseWriter, r *http.Request) {
	subject, task, ok := taskForEdit(w, r)
	if !ok {
		return
	}

	var req models.AddAssigneeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var exists bool
	err := database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", req.UserID).Scan(&exists)
	if err != nil {
		log.Printf("Error checking user %d: %v", req.UserID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	_, err = database.DB.Exec(`
        INSERT INTO task_assignees (task_id, user_id, created_at)
        VALUES (?, ?, ?)
    `, task.ID, req.UserID, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			http.Error(w, "User is already assigned to this task", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to add assignee", http.StatusInternalServerError)
		log.Printf("Error adding assignee %d to task %d: %v", req.UserID, task.ID, err)
		return
	}

	ChangeNotifier.Publish(notify.TableTaskAssignees)
	log.Printf("User %d assigned user %d to task %d", subject.ID, req.UserID, task.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Assignee added successfully",
		"task_id": task.ID,
		"user_id": req.UserID,
	})
}

// RemoveAssigneeHandler unlinks a user from a task.
// DELETE /tasks/{taskID}/assignees/{userID}
func RemoveAssigneeHandler(w http.ResponseWriter, r *http.Request) {
	subject, task, ok := taskForEdit(w, r)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(
		"DELETE FROM task_assignees WHERE task_id = ? AND user_id = ?",
		task.ID, userID,
	)
	if err != nil {
		http.Error(w, "Failed to remove assignee", http.StatusInternalServerError)
		log.Printf("Error removing assignee %d from task %d: %v", userID, task.ID, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		log.Printf("Error checking rows affected: %v", err)
		return
	}
	if rowsAffected == 0 {
		http.Error(w, "Assignee not found on this task", http.StatusNotFound)
		return
	}

	ChangeNotifier.Publish(notify.TableTaskAssignees)
	log.Printf("User %d removed assignee %d from task %d", subject.ID, userID, task.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Assignee removed successfully",
		"task_id": task.ID,
		"user_id": userID,
	})
}
