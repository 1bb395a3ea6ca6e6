package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all persistence repositories. Both tables live
// in one SQLite database file.
type Repositories struct {
	Trigger  repo.TriggerRepo
	Settings repo.SettingsRepo

	db *sql.DB
}

// NewRepositories opens the trigger database and prepares the schema.
func NewRepositories(dbPath string) (*Repositories, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	triggerRepo, err := newTriggerRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	settingsRepo, err := newSettingsRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Trigger:  triggerRepo,
		Settings: settingsRepo,
		db:       db,
	}, nil
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	return r.db.Close()
}
