package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"
)

// settingsRepo implements the Settings repository on SQLite. The table
// holds exactly one row; Load enforces that.
type settingsRepo struct {
	db    *sql.DB
	rowID int64
}

// newSettingsRepo creates the settings repository and its table.
func newSettingsRepo(db *sql.DB) (repo.SettingsRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trigger_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cooldown INTEGER NOT NULL DEFAULT 0,
			case_sensitive INTEGER NOT NULL DEFAULT 0,
			avoid_links INTEGER NOT NULL DEFAULT 0,
			avoid_emotes INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &settingsRepo{db: db}, nil
}

// Load returns the settings row. A missing row is created with
// defaults; surplus rows are deleted, keeping only the first.
func (r *settingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cooldown, case_sensitive, avoid_links, avoid_emotes
		FROM trigger_settings
		ORDER BY id
	`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var first domain.Settings
	for rows.Next() {
		var id int64
		var s domain.Settings
		if err := rows.Scan(&id, &s.Cooldown, &s.CaseSensitive, &s.AvoidLinks, &s.AvoidEmotes); err != nil {
			return domain.Settings{}, fmt.Errorf("failed to scan settings: %w", err)
		}
		if len(ids) == 0 {
			first = s
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	if len(ids) == 0 {
		return r.create(ctx)
	}

	r.rowID = ids[0]
	if len(ids) > 1 {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM trigger_settings WHERE id != ?`, r.rowID); err != nil {
			return domain.Settings{}, fmt.Errorf("failed to prune settings rows: %w", err)
		}
	}
	return first, nil
}

func (r *settingsRepo) create(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO trigger_settings (cooldown, case_sensitive, avoid_links, avoid_emotes)
		VALUES (?, ?, ?, ?)
	`, s.Cooldown, s.CaseSensitive, s.AvoidLinks, s.AvoidEmotes)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to create settings: %w", err)
	}
	r.rowID, err = result.LastInsertId()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to read settings id: %w", err)
	}
	return s, nil
}

// Save rewrites the settings row in place.
func (r *settingsRepo) Save(ctx context.Context, s domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE trigger_settings SET cooldown = ?, case_sensitive = ?, avoid_links = ?, avoid_emotes = ?
		WHERE id = ?
	`, s.Cooldown, s.CaseSensitive, s.AvoidLinks, s.AvoidEmotes, r.rowID)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
