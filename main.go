package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"agenda-admin/access"
	"agenda-admin/config"
	"agenda-admin/database"
	"agenda-admin/middleware"
	"agenda-admin/notify"
	"agenda-admin/pkg/db/sqlite"
	"agenda-admin/util"
	"agenda-admin/util/api"

	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
)

func main() {
	log.Println("Initializing application...")

	configPath := flag.String("config", "./config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Using database at: %s", cfg.DatabasePath)

	// Apply migrations before initializing the database
	migrateDB, err := sqlite.ConnectAndMigrate(cfg.DatabasePath, cfg.MigrationsPath)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	migrateDB.Close()

	// Initialize Database
	if err := database.InitDB(cfg.DatabasePath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	util.SetSessionTTL(cfg.SessionTTL())

	// Wire the handler package: store, change bus, event edit policy
	notifier := notify.NewNotifier()
	api.Configure(database.NewStore(database.DB), notifier, access.EventPolicy(cfg.EventEditPolicy))
	log.Printf("Event edit policy: %s", cfg.EventEditPolicy)

	// Expired-session sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SessionPruneCron, func() {
		if pruned := util.PruneExpiredSessions(); pruned > 0 {
			log.Printf("Pruned %d expired session(s)", pruned)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule session pruning: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()

	// Realtime change feed
	mux.Handle("/ws", middleware.AuthMiddleware(http.HandlerFunc(api.WebSocketHandler)))

	// Auth handlers
	mux.HandleFunc("POST /register", api.RegisterHandler)
	mux.HandleFunc("POST /login", api.LoginHandler)
	mux.HandleFunc("POST /logout", api.LogoutHandler)
	mux.Handle("GET /whoami", middleware.AuthMiddleware(http.HandlerFunc(api.WhoAmIHandler)))

	// Event handlers
	mux.Handle("GET /events", middleware.AuthMiddleware(http.HandlerFunc(api.GetEventsHandler)))
	mux.Handle("POST /events", middleware.AuthMiddleware(http.HandlerFunc(api.CreateEventHandler)))
	mux.Handle("PUT /events/{eventID}", middleware.AuthMiddleware(http.HandlerFunc(api.UpdateEventHandler)))
	mux.Handle("DELETE /events/{eventID}", middleware.AuthMiddleware(http.HandlerFunc(api.DeleteEventHandler)))

	// Task handlers
	mux.Handle("POST /events/{eventID}/tasks", middleware.AuthMiddleware(http.HandlerFunc(api.CreateTaskHandler)))
	mux.Handle("PUT /tasks/{taskID}", middleware.AuthMiddleware(http.HandlerFunc(api.UpdateTaskHandler)))
	mux.Handle("DELETE /tasks/{taskID}", middleware.AuthMiddleware(http.HandlerFunc(api.DeleteTaskHandler)))
	mux.Handle("PATCH /tasks/{taskID}/toggle", middleware.AuthMiddleware(http.HandlerFunc(api.ToggleTaskCompletionHandler)))

	// Assignee handlers
	mux.Handle("POST /tasks/{taskID}/assignees", middleware.AuthMiddleware(http.HandlerFunc(api.AddAssigneeHandler)))
	mux.Handle("DELETE /tasks/{taskID}/assignees/{userID}", middleware.AuthMiddleware(http.HandlerFunc(api.RemoveAssigneeHandler)))

	// User management handlers
	mux.Handle("GET /users", middleware.AuthMiddleware(http.HandlerFunc(api.GetUsersHandler)))
	mux.Handle("POST /users", middleware.AuthMiddleware(http.HandlerFunc(api.AddUserHandler)))
	mux.Handle("PATCH /users/{userID}/role", middleware.AuthMiddleware(http.HandlerFunc(api.UpdateUserRoleHandler)))

	// iCalendar export
	mux.Handle("GET /calendar.ics", middleware.AuthMiddleware(http.HandlerFunc(api.CalendarExportHandler)))

	// --- CORS Middleware ---
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true, // Required for cookies!
	})

	handler := c.Handler(mux)

	listen := cfg.Listen
	if port := os.Getenv("PORT"); port != "" {
		listen = ":" + port
	}

	fmt.Printf("Server running on %s\n", listen)
	log.Fatal(http.ListenAndServe(listen, handler))
}
