package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var DB *sql.DB

// InitDB initializes the database connection and creates tables if they don't exist.
func InitDB(dataSourceName string) error {
	var err error
	// Foreign keys on: assignee links must reference real tasks/users.
	DB, err = sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Check if the connection is successful
	err = DB.Ping()
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database!")

	// SQL statements to create tables (SQLite compatible)
	createTablesSQL := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        role TEXT NOT NULL CHECK(role IN ('admin', 'editor', 'viewer')) DEFAULT 'viewer',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        date DATETIME NOT NULL,
        description TEXT,
        color TEXT,
        company TEXT,
        created_by INTEGER NOT NULL REFERENCES users(id),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS tasks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        event_id INTEGER NOT NULL REFERENCES events(id),
        title TEXT NOT NULL,
        completed BOOLEAN DEFAULT FALSE,
        created_by INTEGER NOT NULL REFERENCES users(id),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS task_assignees (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        task_id INTEGER NOT NULL REFERENCES tasks(id),
        user_id INTEGER NOT NULL REFERENCES users(id),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(task_id, user_id)
    );

    CREATE INDEX IF NOT EXISTS idx_tasks_event_id ON tasks(event_id);
    CREATE INDEX IF NOT EXISTS idx_task_assignees_task_id ON task_assignees(task_id);
    `

	_, err = DB.Exec(createTablesSQL)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	// Run migrations for existing databases
	err = runMigrations()
	if err != nil {
		log.Printf("Migration warning: %v", err)
		// Don't fail on migration errors, as columns might already exist
	}

	log.Println("Database tables checked/created successfully.")
	return nil
}

// runMigrations adds missing columns to existing tables
func runMigrations() error {
	migrations := []string{
		`ALTER TABLE events ADD COLUMN color TEXT`,
		`ALTER TABLE events ADD COLUMN company TEXT`,
		`ALTER TABLE users ADD COLUMN role TEXT DEFAULT 'viewer'`,
	}

	for _, migration := range migrations {
		_, err := DB.Exec(migration)
		if err != nil {
			// Column might already exist, log but continue
			log.Printf("Migration info: %s (this is normal if column already exists)", err.Error())
		}
	}

	return nil
}
