package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"
)

// triggerRepo implements the Trigger repository on SQLite.
type triggerRepo struct {
	db *sql.DB
}

// newTriggerRepo creates the trigger repository and its table.
func newTriggerRepo(db *sql.DB) (repo.TriggerRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS triggers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			mode TEXT NOT NULL,
			user_pattern TEXT NOT NULL,
			response TEXT NOT NULL,
			compiled_pattern TEXT NOT NULL,
			cooldown INTEGER,
			case_sensitive INTEGER,
			avoid_links INTEGER,
			avoid_emotes INTEGER,
			match_start INTEGER NOT NULL DEFAULT 0,
			match_end INTEGER NOT NULL DEFAULT 0,
			last_triggered INTEGER
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create triggers table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_triggers_position ON triggers(position)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &triggerRepo{db: db}, nil
}

const triggerColumns = `id, position, mode, user_pattern, response, compiled_pattern,
	cooldown, case_sensitive, avoid_links, avoid_emotes, match_start, match_end, last_triggered`

// ListAll returns every trigger ordered by position.
func (r *triggerRepo) ListAll(ctx context.Context) ([]*domain.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+triggerColumns+`
		FROM triggers
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []*domain.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// Insert stores a new trigger and assigns its ID.
func (r *triggerRepo) Insert(ctx context.Context, t *domain.Trigger) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO triggers (position, mode, user_pattern, response, compiled_pattern,
			cooldown, case_sensitive, avoid_links, avoid_emotes, match_start, match_end, last_triggered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, triggerArgs(t)...)
	if err != nil {
		return fmt.Errorf("failed to insert trigger: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read trigger id: %w", err)
	}
	t.ID = id
	return nil
}

// Update rewrites a single trigger row.
func (r *triggerRepo) Update(ctx context.Context, t *domain.Trigger) error {
	_, err := r.db.ExecContext(ctx, updateTriggerSQL, append(triggerArgs(t), t.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update trigger: %w", err)
	}
	return nil
}

const updateTriggerSQL = `
	UPDATE triggers SET position = ?, mode = ?, user_pattern = ?, response = ?, compiled_pattern = ?,
		cooldown = ?, case_sensitive = ?, avoid_links = ?, avoid_emotes = ?,
		match_start = ?, match_end = ?, last_triggered = ?
	WHERE id = ?
`

// UpdateAll rewrites the given rows in one transaction. Used by rank
// shifts, which must never leave a gap or duplicate position behind.
func (r *triggerRepo) UpdateAll(ctx context.Context, ts []*domain.Trigger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, t := range ts {
		if _, err := tx.ExecContext(ctx, updateTriggerSQL, append(triggerArgs(t), t.ID)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to update trigger %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Delete removes a trigger and rewrites the shifted rows atomically.
func (r *triggerRepo) Delete(ctx context.Context, id int64, shifted []*domain.Trigger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete trigger: %w", err)
	}
	for _, t := range shifted {
		if _, err := tx.ExecContext(ctx, updateTriggerSQL, append(triggerArgs(t), t.ID)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to shift trigger %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// UpdateLastTriggered persists a trigger's cooldown timestamp.
func (r *triggerRepo) UpdateLastTriggered(ctx context.Context, id int64, at *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE triggers SET last_triggered = ? WHERE id = ?
	`, nullUnix(at), id)
	if err != nil {
		return fmt.Errorf("failed to update last triggered: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *triggerRepo) Close() error {
	return r.db.Close()
}

func triggerArgs(t *domain.Trigger) []any {
	return []any{
		t.Position,
		string(t.Mode),
		t.Pattern,
		t.Response,
		t.CompiledExpr,
		nullInt(t.Cooldown),
		nullBool(t.CaseSensitive),
		nullBool(t.AvoidLinks),
		nullBool(t.AvoidEmotes),
		t.MatchStart,
		t.MatchEnd,
		nullUnix(t.LastTriggered),
	}
}

func scanTrigger(rows *sql.Rows) (*domain.Trigger, error) {
	var t domain.Trigger
	var mode string
	var cooldown, lastTriggered sql.NullInt64
	var caseSensitive, avoidLinks, avoidEmotes sql.NullBool

	err := rows.Scan(&t.ID, &t.Position, &mode, &t.Pattern, &t.Response, &t.CompiledExpr,
		&cooldown, &caseSensitive, &avoidLinks, &avoidEmotes, &t.MatchStart, &t.MatchEnd, &lastTriggered)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}

	t.Mode = domain.Mode(mode)
	if cooldown.Valid {
		v := int(cooldown.Int64)
		t.Cooldown = &v
	}
	if caseSensitive.Valid {
		v := caseSensitive.Bool
		t.CaseSensitive = &v
	}
	if avoidLinks.Valid {
		v := avoidLinks.Bool
		t.AvoidLinks = &v
	}
	if avoidEmotes.Valid {
		v := avoidEmotes.Bool
		t.AvoidEmotes = &v
	}
	if lastTriggered.Valid {
		at := time.Unix(lastTriggered.Int64, 0)
		t.LastTriggered = &at
	}
	return &t, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullUnix(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.Unix()
}
