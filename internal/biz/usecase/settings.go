package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"
)

// SettingsUsecase owns the global settings singleton. Callers only get
// and update it; creation happens once at load and nothing can add a
// second record later. Reads come from event goroutines, so access is
// guarded by mu.
type SettingsUsecase struct {
	repo repo.SettingsRepo

	mu       sync.RWMutex
	settings domain.Settings
}

// NewSettingsUsecase creates a new settings usecase.
func NewSettingsUsecase(r repo.SettingsRepo) *SettingsUsecase {
	return &SettingsUsecase{repo: r, settings: domain.DefaultSettings()}
}

// Load reads the settings record, enforcing the single-row invariant.
func (uc *SettingsUsecase) Load(ctx context.Context) error {
	s, err := uc.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	uc.mu.Lock()
	uc.settings = s
	uc.mu.Unlock()
	return nil
}

// Get returns the current global settings.
func (uc *SettingsUsecase) Get() domain.Settings {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.settings
}

// SettingsInput carries the fields to change; nil fields are left alone.
type SettingsInput struct {
	Cooldown      *int
	CaseSensitive *bool
	AvoidLinks    *bool
	AvoidEmotes   *bool
}

// Update applies a partial update to the settings record. The second
// return value reports whether case sensitivity changed, which obliges
// the caller to recompile every trigger that inherits it.
func (uc *SettingsUsecase) Update(ctx context.Context, in SettingsInput) (domain.Settings, bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	next := uc.settings
	changed := false
	caseChanged := false

	if in.Cooldown != nil && *in.Cooldown != next.Cooldown {
		next.Cooldown = *in.Cooldown
		changed = true
	}
	if in.CaseSensitive != nil && *in.CaseSensitive != next.CaseSensitive {
		next.CaseSensitive = *in.CaseSensitive
		changed = true
		caseChanged = true
	}
	if in.AvoidLinks != nil && *in.AvoidLinks != next.AvoidLinks {
		next.AvoidLinks = *in.AvoidLinks
		changed = true
	}
	if in.AvoidEmotes != nil && *in.AvoidEmotes != next.AvoidEmotes {
		next.AvoidEmotes = *in.AvoidEmotes
		changed = true
	}

	if !changed {
		return uc.settings, false, ErrNoChanges
	}

	if err := uc.repo.Save(ctx, next); err != nil {
		return uc.settings, false, fmt.Errorf("save settings: %w", err)
	}
	uc.settings = next
	return next, caseChanged, nil
}
