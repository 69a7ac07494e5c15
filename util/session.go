package util

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"agenda-admin/database"
)

const SessionCookieName = "session_token"

// In-memory session store: token -> user id with expiry. Sessions do
// not survive a restart, which is acceptable for this admin tool.
var (
	sessions   = make(map[string]sessionEntry)
	mu         sync.RWMutex
	sessionTTL = 24 * time.Hour
)

type sessionEntry struct {
	userID    int64
	expiresAt time.Time
}

// SetSessionTTL sets the lifetime applied to newly created sessions.
func SetSessionTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	mu.Lock()
	sessionTTL = d
	mu.Unlock()
}

// SessionTTL returns the current session lifetime.
func SessionTTL() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return sessionTTL
}

// GenerateSessionToken creates a cryptographically secure random session token.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateSession creates a new session for the user and returns the session token.
func CreateSession(userID int64) (string, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}

	mu.Lock()
	sessions[token] = sessionEntry{userID: userID, expiresAt: time.Now().Add(sessionTTL)}
	mu.Unlock()
	return token, nil
}

// GetUserIDFromSession retrieves the UserID associated with a session token.
// Returns 0 if the session is not valid or has expired.
func GetUserIDFromSession(token string) int64 {
	mu.RLock()
	entry, ok := sessions[token]
	mu.RUnlock()
	if !ok {
		return 0
	}
	if time.Now().After(entry.expiresAt) {
		DeleteSession(token)
		return 0
	}
	return entry.userID
}

// DeleteSession removes a session from the store.
func DeleteSession(token string) {
	mu.Lock()
	delete(sessions, token)
	mu.Unlock()
}

// PruneExpiredSessions drops every expired token and returns how many
// were removed. Wired to the cron scheduler in main.
func PruneExpiredSessions() int {
	now := time.Now()
	mu.Lock()
	defer mu.Unlock()

	pruned := 0
	for token, entry := range sessions {
		if now.After(entry.expiresAt) {
			delete(sessions, token)
			pruned++
		}
	}
	return pruned
}

// GetUserIDFromRequest extracts the UserID from the session cookie in an HTTP request.
func GetUserIDFromRequest(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if err == http.ErrNoCookie {
			return 0, nil // No session cookie; middleware handles auth
		}
		return 0, err
	}

	userID := GetUserIDFromSession(cookie.Value)
	if userID == 0 {
		return 0, nil // Invalid or expired token
	}

	// Check if user still exists in DB
	var exists bool
	err = database.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", userID).Scan(&exists)
	if err != nil || !exists {
		DeleteSession(cookie.Value) // Clean up invalid session
		return 0, nil
	}

	return userID, nil
}
