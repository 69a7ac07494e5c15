package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"agenda-admin/access"
	"agenda-admin/database"
	"agenda-admin/models"

	"golang.org/x/crypto/bcrypt"
)

// GetUsersHandler lists all user profiles (id, username, role) for
// the assignee picker and the admin user table.
func GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("GetUsers: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	profiles, err := Store.Profiles(r.Context())
	if err != nil {
		log.Printf("GetUsers: %v", err)
		http.Error(w, "Failed to load users", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profiles)
}

// AddUserHandler lets an admin create a user with an explicit role.
// POST /users
func AddUserHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("AddUser: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if subject.Role != access.RoleAdmin {
		http.Error(w, "Forbidden: only admins can manage users", http.StatusForbidden)
		return
	}

	var req models.AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		http.Error(w, "Invalid role: must be admin, editor or viewer", http.StatusBadRequest)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error processing password", http.StatusInternalServerError)
		log.Printf("Error hashing password: %v", err)
		return
	}

	now := time.Now()
	result, err := database.DB.Exec(`
        INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, req.Username, req.Email, string(hashedPassword), string(role), now, now)
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error inserting user: %v", err)
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve user ID", http.StatusInternalServerError)
		log.Printf("Error getting last insert ID: %v", err)
		return
	}

	log.Printf("Admin %d created user %s (ID: %d, role: %s)", subject.ID, req.Username, userID, role)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.UserResponse{
		ID:       userID,
		Username: req.Username,
		Email:    req.Email,
		Role:     string(role),
	})
}

// UpdateUserRoleHandler changes a user's role (admin only). User
// deletion is deliberately not exposed here; it is delegated to the
// backend admin console.
// PATCH /users/{userID}/role
func UpdateUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("UpdateUserRole: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if subject.Role != access.RoleAdmin {
		http.Error(w, "Forbidden: only admins can change roles", http.StatusForbidden)
		return
	}

	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		http.Error(w, "Invalid role: must be admin, editor or viewer", http.StatusBadRequest)
		return
	}

	result, err := database.DB.Exec(
		"UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		string(role), time.Now(), userID,
	)
	if err != nil {
		http.Error(w, "Failed to update role", http.StatusInternalServerError)
		log.Printf("Error updating role for user %d: %v", userID, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		log.Printf("Error checking rows affected: %v", err)
		return
	}
	if rowsAffected == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	log.Printf("Admin %d set role of user %d to %s", subject.ID, userID, role)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Role updated successfully",
		"user_id": userID,
		"role":    string(role),
	})
}
