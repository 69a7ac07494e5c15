package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"agenda-admin/cache"
	"agenda-admin/database"
	"agenda-admin/models"
	"agenda-admin/notify"
)

// GetEventsHandler returns every event with nested tasks, resolved
// assignees and the per-task editable flag for the requesting user.
// Visibility is never restricted by assignment: filtering assigned
// tasks is a frontend convenience, not an access rule.
func GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("GetEvents: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	eventRows, err := Store.EventRows(ctx)
	if err != nil {
		log.Printf("GetEvents: %v", err)
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	taskRows, err := Store.TaskRows(ctx)
	if err != nil {
		log.Printf("GetEvents: %v", err)
		http.Error(w, "Failed to load tasks", http.StatusInternalServerError)
		return
	}
	links, err := Store.AssigneeLinks(ctx)
	if err != nil {
		log.Printf("GetEvents: %v", err)
		http.Error(w, "Failed to load assignees", http.StatusInternalServerError)
		return
	}
	profiles, err := Store.Profiles(ctx)
	if err != nil {
		log.Printf("GetEvents: %v", err)
		http.Error(w, "Failed to load profiles", http.StatusInternalServerError)
		return
	}

	events := cache.Assemble(eventRows, taskRows, links, profiles, subject)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// CreateEventHandler creates an event. Gated by the configured event
// edit policy (admin only, or admin or editor).
func CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("CreateEvent: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !EventEditPolicy.CanModifyEvent(subject) {
		http.Error(w, "Forbidden: insufficient role to manage events", http.StatusForbidden)
		return
	}

	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Event title cannot be empty", http.StatusBadRequest)
		return
	}
	date, err := parseEventDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	stmt, err := database.DB.Prepare(`
        INSERT INTO events (title, date, description, color, company, created_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		http.Error(w, "Failed to prepare statement", http.StatusInternalServerError)
		log.Printf("Error preparing insert event statement: %v", err)
		return
	}
	defer stmt.Close()

	result, err := stmt.Exec(req.Title, date, req.Description, req.Color, req.Company, subject.ID, now, now)
	if err != nil {
		http.Error(w, "Failed to create event: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error inserting event for user %d: %v", subject.ID, err)
		return
	}

	eventID, err := result.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve event ID", http.StatusInternalServerError)
		log.Printf("Error getting last insert ID for event: %v", err)
		return
	}

	ChangeNotifier.Publish(notify.TableEvents)
	log.Printf("User %d created event %d (%s)", subject.ID, eventID, req.Title)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.EventRow{
		ID:          eventID,
		Title:       req.Title,
		Date:        date,
		Description: req.Description,
		Color:       req.Color,
		Company:     req.Company,
		CreatedBy:   subject.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// UpdateEventHandler performs a full update of an event's own fields.
// PUT /events/{eventID}
func UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("UpdateEvent: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !EventEditPolicy.CanModifyEvent(subject) {
		http.Error(w, "Forbidden: insufficient role to manage events", http.StatusForbidden)
		return
	}

	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Event title cannot be empty", http.StatusBadRequest)
		return
	}
	date, err := parseEventDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(`
        UPDATE events SET title = ?, date = ?, description = ?, color = ?, company = ?, updated_at = ?
        WHERE id = ?
    `, req.Title, date, req.Description, req.Color, req.Company, time.Now(), eventID)
	if err != nil {
		http.Error(w, "Failed to update event", http.StatusInternalServerError)
		log.Printf("Error updating event %d: %v", eventID, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		log.Printf("Error checking rows affected: %v", err)
		return
	}
	if rowsAffected == 0 {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	ChangeNotifier.Publish(notify.TableEvents)
	log.Printf("User %d updated event %d", subject.ID, eventID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Event updated successfully",
		"event_id": eventID,
	})
}

// DeleteEventHandler deletes an event and its tasks and assignee
// links in one transaction.
// DELETE /events/{eventID}
func DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("DeleteEvent: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !EventEditPolicy.CanModifyEvent(subject) {
		http.Error(w, "Forbidden: insufficient role to manage events", http.StatusForbidden)
		return
	}

	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	// Check the event exists before opening a transaction
	var exists bool
	err = database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM events WHERE id = ?)", eventID).Scan(&exists)
	if err != nil {
		log.Printf("Error checking event existence: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	// Delete related data first (due to foreign key constraints)
	_, err = tx.Exec(`
        DELETE FROM task_assignees
        WHERE task_id IN (SELECT id FROM tasks WHERE event_id = ?)
    `, eventID)
	if err != nil {
		log.Printf("Error deleting assignee links for event %d: %v", eventID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	_, err = tx.Exec("DELETE FROM tasks WHERE event_id = ?", eventID)
	if err != nil {
		log.Printf("Error deleting tasks for event %d: %v", eventID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	_, err = tx.Exec("DELETE FROM events WHERE id = ?", eventID)
	if err != nil {
		log.Printf("Error deleting event %d: %v", eventID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("Error committing transaction: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// One notification per touched relation, mirroring what the
	// change streams would emit.
	ChangeNotifier.Publish(notify.TableTaskAssignees)
	ChangeNotifier.Publish(notify.TableTasks)
	ChangeNotifier.Publish(notify.TableEvents)
	log.Printf("User %d deleted event %d", subject.ID, eventID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Event deleted successfully",
		"event_id": eventID,
	})
}

// eventExists reports whether an event row is present.
func eventExists(eventID int64) (bool, error) {
	var exists bool
	err := database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM events WHERE id = ?)", eventID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return exists, nil
}
