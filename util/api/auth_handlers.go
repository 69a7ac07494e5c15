package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"agenda-admin/access"
	"agenda-admin/database"
	"agenda-admin/models"
	"agenda-admin/util"

	"golang.org/x/crypto/bcrypt"
)

// RegisterHandler handles user registration. Self-registered users
// always start as viewers; roles are granted by an admin afterwards.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" || req.Username == "" {
		http.Error(w, "Email, password, and username are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error processing password", http.StatusInternalServerError)
		log.Printf("Error hashing password: %v", err)
		return
	}

	now := time.Now()
	stmt, err := database.DB.Prepare(`
		INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		http.Error(w, "Failed to prepare statement: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error preparing insert statement: %v", err)
		return
	}
	defer stmt.Close()

	result, err := stmt.Exec(req.Username, req.Email, string(hashedPassword), string(access.RoleViewer), now, now)
	if err != nil {
		http.Error(w, "Failed to register user: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error inserting user: %v", err)
		return
	}

	userID, err := result.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve user ID: "+err.Error(), http.StatusInternalServerError)
		log.Printf("Error getting last insert ID: %v", err)
		return
	}

	sessionToken, err := util.CreateSession(userID)
	if err != nil {
		log.Printf("Failed to create session for new user %d after registration: %v", userID, err)
	} else {
		setSessionCookie(w, sessionToken)
		log.Printf("User %s (ID: %d) registered and session created.", req.Username, userID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.UserResponse{
		ID:       userID,
		Username: req.Username,
		Email:    req.Email,
		Role:     string(access.RoleViewer),
	})
}

// LoginHandler handles user login by username or email.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Login failed - invalid JSON: %v", err)
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Use whichever identifier is provided
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	if identifier == "" || req.Password == "" {
		log.Printf("Login failed - missing username/email or password")
		http.Error(w, "Username/email and password are required", http.StatusBadRequest)
		return
	}

	var userID int64
	var storedPasswordHash, username, email, role string
	err := database.DB.QueryRow(
		"SELECT id, password_hash, username, email, role FROM users WHERE username = ? OR email = ?",
		identifier, identifier,
	).Scan(&userID, &storedPasswordHash, &username, &email, &role)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("Login failed - user not found: %s", identifier)
			http.Error(w, "Invalid username/email or password", http.StatusUnauthorized)
		} else {
			log.Printf("Login failed - database error: %v", err)
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(storedPasswordHash), []byte(req.Password))
	if err != nil {
		log.Printf("Login failed - invalid password for: %s", identifier)
		http.Error(w, "Invalid username/email or password", http.StatusUnauthorized)
		return
	}

	sessionToken, err := util.CreateSession(userID)
	if err != nil {
		log.Printf("Login failed - session creation error: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, sessionToken)
	log.Printf("Login successful for user: %s (ID: %d, role: %s)", username, userID, role)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.UserResponse{
		ID:       userID,
		Username: username,
		Email:    email,
		Role:     role,
	})
}

// LogoutHandler handles user logout.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie(util.SessionCookieName)
	if err != nil {
		if err == http.ErrNoCookie {
			http.Error(w, "No active session", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Server error reading cookie", http.StatusInternalServerError)
		log.Printf("Error reading session cookie on logout: %v", err)
		return
	}

	util.DeleteSession(cookie.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     util.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	log.Println("User logged out successfully.")
}

// WhoAmIHandler returns the authenticated user's identity and role.
func WhoAmIHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("WhoAmI: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       subject.ID,
		"username": subject.Username,
		"role":     string(subject.Role),
	})
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     util.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(util.SessionTTL()),
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
}
