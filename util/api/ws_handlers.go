package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"agenda-admin/cache"
	"agenda-admin/middleware"
	"agenda-admin/notify"
	"agenda-admin/util"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev (restrict in production)
	},
}

// Store active WebSocket connections per user
var (
	activeConnections = make(map[int64]*websocket.Conn)
	connectionsMutex  sync.RWMutex
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WebSocketHandler is the realtime change feed. Each connection gets
// its own event cache bound to the connected user and a bridge onto
// the change notifier: any insert/update/delete on events, tasks or
// task_assignees triggers a full reload and a fresh "sync" frame.
// Closing the connection tears the subscription down.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	// Try to get session token from query string for local dev
	userID := int64(0)
	token := r.URL.Query().Get("token")
	if token != "" {
		userID = util.GetUserIDFromSession(token)
	}
	if userID == 0 {
		// Fallback to context (cookie/session)
		ctxUserID, ok := r.Context().Value(middleware.UserIDKey).(int64)
		if ok {
			userID = ctxUserID
		}
	}
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	subject, err := subjectForUser(userID)
	if err != nil || subject == nil {
		log.Printf("WebSocket: cannot resolve subject for user %d: %v", userID, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Replace any previous connection for this user
	connectionsMutex.Lock()
	if prev, ok := activeConnections[userID]; ok {
		prev.Close()
	}
	activeConnections[userID] = conn
	connectionsMutex.Unlock()

	log.Printf("User %d connected to the change feed", userID)

	defer func() {
		connectionsMutex.Lock()
		if activeConnections[userID] == conn {
			delete(activeConnections, userID)
		}
		connectionsMutex.Unlock()
		log.Printf("User %d disconnected from the change feed", userID)
	}()

	// gorilla/websocket allows one concurrent writer; the bridge
	// callback and the read loop both write.
	var writeMu sync.Mutex
	send := func(msg WSMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	sessionCache := cache.NewEventCache(Store, subject)
	if err := sessionCache.Reload(r.Context()); err != nil {
		log.Printf("Initial reload failed for user %d: %v", userID, err)
		send(WSMessage{Type: "reload_error", Data: "Failed to load events"})
	}
	send(WSMessage{Type: "sync", Data: sessionCache.Snapshot()})

	bridge := notify.NewBridge(ChangeNotifier, sessionCache, func(table notify.Table, reloadErr error) {
		if reloadErr != nil {
			// Stale snapshot is kept; surface the failure once.
			log.Printf("Reload after %s change failed for user %d: %v", table, userID, reloadErr)
			send(WSMessage{Type: "reload_error", Data: "Failed to refresh events"})
			return
		}
		if err := send(WSMessage{Type: "table_changed", Data: map[string]string{"table": string(table)}}); err != nil {
			return
		}
		send(WSMessage{Type: "sync", Data: sessionCache.Snapshot()})
	})
	defer bridge.Close()

	// Listen for messages from client
	for {
		var msg WSMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			log.Printf("WebSocket read error for user %d: %v", userID, err)
			break
		}

		switch msg.Type {
		case "ping":
			send(WSMessage{Type: "pong", Data: "pong"})

		case "heartbeat":
			send(WSMessage{Type: "heartbeat_ack", Data: "ok"})

		case "refresh":
			// Manual full reload requested by the client.
			if err := sessionCache.Reload(context.Background()); err != nil {
				log.Printf("Manual reload failed for user %d: %v", userID, err)
				send(WSMessage{Type: "reload_error", Data: "Failed to refresh events"})
				continue
			}
			send(WSMessage{Type: "sync", Data: sessionCache.Snapshot()})

		default:
			log.Printf("Unknown message type from user %d: %s", userID, msg.Type)
		}
	}
}
