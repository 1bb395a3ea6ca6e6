package repo

import (
	"context"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
)

// TriggerRepo is the trigger repository interface.
// Responsible for trigger persistence (SQLite). Multi-row mutations are
// atomic: either every row is written or none is.
type TriggerRepo interface {
	// ListAll returns every trigger ordered by position.
	ListAll(ctx context.Context) ([]*domain.Trigger, error)

	// Insert stores a new trigger and assigns its ID.
	Insert(ctx context.Context, t *domain.Trigger) error

	// Update rewrites a single trigger row.
	Update(ctx context.Context, t *domain.Trigger) error

	// UpdateAll rewrites the given rows in one transaction. Used by
	// position rank shifts and bulk recompiles.
	UpdateAll(ctx context.Context, ts []*domain.Trigger) error

	// Delete removes a trigger and rewrites the shifted rows in the
	// same transaction.
	Delete(ctx context.Context, id int64, shifted []*domain.Trigger) error

	// UpdateLastTriggered persists a trigger's cooldown timestamp.
	UpdateLastTriggered(ctx context.Context, id int64, at *time.Time) error

	// Close closes the underlying store.
	Close() error
}
