package repo

import (
	"context"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
)

// SettingsRepo is the global settings repository interface.
// There is exactly one settings record; the repository enforces that.
type SettingsRepo interface {
	// Load returns the settings record, creating it with defaults when
	// missing and discarding any duplicate rows.
	Load(ctx context.Context) (domain.Settings, error)

	// Save rewrites the settings record in place.
	Save(ctx context.Context, s domain.Settings) error
}
