package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"
)

var (
	// ErrNotFound means no trigger exists at the given position.
	ErrNotFound = errors.New("trigger not found")

	// ErrNoChanges means an edit carried no field that differs from
	// the current value.
	ErrNoChanges = errors.New("nothing changed")

	// ErrUnknownProperty means a reset named a property that has no
	// global fallback.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrBadPosition means a requested position is out of range.
	ErrBadPosition = errors.New("position out of range")
)

// TriggerUsecase owns the ordered in-memory trigger cache that mirrors
// the persisted rows. The store is the system of record; evaluation
// reads the cache. The cache only mutates after a write commits.
// Message events arrive on their own goroutines, so every cache access
// goes through mu.
type TriggerUsecase struct {
	repo     repo.TriggerRepo
	settings *SettingsUsecase

	mu       sync.RWMutex
	triggers []*domain.Trigger // sorted by position, dense 0..N-1
}

// NewTriggerUsecase creates a new trigger usecase.
func NewTriggerUsecase(r repo.TriggerRepo, settings *SettingsUsecase) *TriggerUsecase {
	return &TriggerUsecase{repo: r, settings: settings}
}

// Load populates the cache from the store and compiles every pattern.
// Stored expressions are recompiled from their declared inputs rather
// than trusted, so a stale derived column cannot survive a restart.
func (uc *TriggerUsecase) Load(ctx context.Context) error {
	ts, err := uc.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list triggers: %w", err)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Position < ts[j].Position })

	s := uc.settings.Get()
	for _, t := range ts {
		if err := t.Recompile(s); err != nil {
			return fmt.Errorf("trigger %d: %w", t.ID, err)
		}
	}

	uc.mu.Lock()
	uc.triggers = ts
	uc.mu.Unlock()
	return nil
}

// List returns the triggers in evaluation order.
func (uc *TriggerUsecase) List() []*domain.Trigger {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]*domain.Trigger, len(uc.triggers))
	copy(out, uc.triggers)
	return out
}

// Count returns the number of triggers.
func (uc *TriggerUsecase) Count() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.triggers)
}

// Get returns a copy of the trigger at a 0-based position. A copy, so
// the caller can read it after the lock is released while a concurrent
// fire updates the cached row.
func (uc *TriggerUsecase) Get(position int) (*domain.Trigger, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	t, err := uc.get(position)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// get is Get without locking, for callers already holding mu.
func (uc *TriggerUsecase) get(position int) (*domain.Trigger, error) {
	if position < 0 || position >= len(uc.triggers) {
		return nil, ErrNotFound
	}
	return uc.triggers[position], nil
}

// AddInput carries the fields for a new trigger.
type AddInput struct {
	Mode     domain.Mode
	Pattern  string
	Response string

	Cooldown      *int
	CaseSensitive *bool
	AvoidLinks    *bool
	AvoidEmotes   *bool
	MatchStart    bool
	MatchEnd      bool
}

// Add appends a new trigger at the end of the list. The pattern is
// compiled before anything is persisted, so an invalid regex leaves the
// store untouched.
func (uc *TriggerUsecase) Add(ctx context.Context, in AddInput) (*domain.Trigger, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	t := &domain.Trigger{
		Position:      len(uc.triggers),
		Mode:          in.Mode,
		Pattern:       in.Pattern,
		Response:      domain.NormalizeResponse(in.Response),
		Cooldown:      in.Cooldown,
		CaseSensitive: in.CaseSensitive,
		AvoidLinks:    in.AvoidLinks,
		AvoidEmotes:   in.AvoidEmotes,
		MatchStart:    in.MatchStart,
		MatchEnd:      in.MatchEnd,
	}
	if err := t.Recompile(uc.settings.Get()); err != nil {
		return nil, err
	}
	if err := uc.repo.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("insert trigger: %w", err)
	}
	uc.triggers = append(uc.triggers, t)
	return t, nil
}

// EditInput carries the fields to change; nil fields are left alone.
type EditInput struct {
	NewPosition *int
	Mode        *domain.Mode
	Pattern     *string
	Response    *string

	Cooldown      *int
	CaseSensitive *bool
	AvoidLinks    *bool
	AvoidEmotes   *bool
	MatchStart    *bool
	MatchEnd      *bool
}

// Edit applies a partial edit to the trigger at a 0-based position.
// A field equal to its current value does not count as a change.
// Changing any matcher input recompiles the pattern; changing the
// cooldown clears the cooldown history. Moving the trigger re-ranks
// every trigger between the old and new position in one transaction.
func (uc *TriggerUsecase) Edit(ctx context.Context, position int, in EditInput) (*domain.Trigger, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	cur, err := uc.get(position)
	if err != nil {
		return nil, err
	}

	t := cur.Clone()
	changed, recompile, cooldownChanged := false, false, false

	if in.Mode != nil && *in.Mode != t.Mode {
		t.Mode = *in.Mode
		changed, recompile = true, true
	}
	if in.Pattern != nil && *in.Pattern != t.Pattern {
		t.Pattern = *in.Pattern
		changed, recompile = true, true
	}
	if in.Response != nil {
		if norm := domain.NormalizeResponse(*in.Response); norm != t.Response {
			t.Response = norm
			changed = true
		}
	}
	if in.Cooldown != nil && (t.Cooldown == nil || *t.Cooldown != *in.Cooldown) {
		v := *in.Cooldown
		t.Cooldown = &v
		changed, cooldownChanged = true, true
	}
	if in.CaseSensitive != nil && (t.CaseSensitive == nil || *t.CaseSensitive != *in.CaseSensitive) {
		v := *in.CaseSensitive
		t.CaseSensitive = &v
		changed, recompile = true, true
	}
	if in.AvoidLinks != nil && (t.AvoidLinks == nil || *t.AvoidLinks != *in.AvoidLinks) {
		v := *in.AvoidLinks
		t.AvoidLinks = &v
		changed = true
	}
	if in.AvoidEmotes != nil && (t.AvoidEmotes == nil || *t.AvoidEmotes != *in.AvoidEmotes) {
		v := *in.AvoidEmotes
		t.AvoidEmotes = &v
		changed = true
	}
	if in.MatchStart != nil && *in.MatchStart != t.MatchStart {
		t.MatchStart = *in.MatchStart
		changed, recompile = true, true
	}
	if in.MatchEnd != nil && *in.MatchEnd != t.MatchEnd {
		t.MatchEnd = *in.MatchEnd
		changed, recompile = true, true
	}

	moved := false
	if in.NewPosition != nil && *in.NewPosition != position {
		if *in.NewPosition < 0 || *in.NewPosition >= len(uc.triggers) {
			return nil, ErrBadPosition
		}
		changed, moved = true, true
	}

	if !changed {
		return nil, ErrNoChanges
	}
	if cooldownChanged {
		// a different cooldown invalidates the old cooldown history
		t.LastTriggered = nil
	}
	if recompile {
		if err := t.Recompile(uc.settings.Get()); err != nil {
			return nil, err
		}
	}

	if !moved {
		if err := uc.repo.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("update trigger: %w", err)
		}
		uc.triggers[position] = t
		return t, nil
	}

	next, dirty := uc.reorder(t, position, *in.NewPosition)
	if err := uc.repo.UpdateAll(ctx, dirty); err != nil {
		return nil, fmt.Errorf("update triggers: %w", err)
	}
	uc.triggers = next
	return t, nil
}

// reorder builds the post-move trigger list. The moved trigger lands at
// newPos and every trigger between the old and new slot shifts by one.
// Shifted rows are cloned so the live cache stays untouched until the
// transaction commits.
func (uc *TriggerUsecase) reorder(moved *domain.Trigger, oldPos, newPos int) (next, dirty []*domain.Trigger) {
	next = make([]*domain.Trigger, 0, len(uc.triggers))
	next = append(next, uc.triggers[:oldPos]...)
	next = append(next, uc.triggers[oldPos+1:]...)

	next = append(next, nil)
	copy(next[newPos+1:], next[newPos:])
	next[newPos] = moved

	for i, t := range next {
		if t == moved {
			t.Position = i
			dirty = append(dirty, t)
			continue
		}
		if t.Position != i {
			c := t.Clone()
			c.Position = i
			next[i] = c
			dirty = append(dirty, c)
		}
	}
	return next, dirty
}

// Remove deletes the trigger at a 0-based position and shifts every
// later trigger down by one, all in a single transaction.
func (uc *TriggerUsecase) Remove(ctx context.Context, position int) (*domain.Trigger, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	cur, err := uc.get(position)
	if err != nil {
		return nil, err
	}

	next := make([]*domain.Trigger, 0, len(uc.triggers)-1)
	next = append(next, uc.triggers[:position]...)

	var dirty []*domain.Trigger
	for _, t := range uc.triggers[position+1:] {
		c := t.Clone()
		c.Position--
		next = append(next, c)
		dirty = append(dirty, c)
	}

	if err := uc.repo.Delete(ctx, cur.ID, dirty); err != nil {
		return nil, fmt.Errorf("delete trigger: %w", err)
	}
	uc.triggers = next
	return cur, nil
}

// Reset clears one optional override on the trigger at a 0-based
// position, so the global default applies again.
func (uc *TriggerUsecase) Reset(ctx context.Context, position int, property string) (*domain.Trigger, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	cur, err := uc.get(position)
	if err != nil {
		return nil, err
	}

	t := cur.Clone()
	recompile := false
	switch property {
	case "cooldown":
		if t.Cooldown == nil {
			return nil, ErrNoChanges
		}
		t.Cooldown = nil
		// same rule as editing the cooldown
		t.LastTriggered = nil
	case "case_sensitive":
		if t.CaseSensitive == nil {
			return nil, ErrNoChanges
		}
		t.CaseSensitive = nil
		recompile = true
	case "avoid_links":
		if t.AvoidLinks == nil {
			return nil, ErrNoChanges
		}
		t.AvoidLinks = nil
	case "avoid_emotes":
		if t.AvoidEmotes == nil {
			return nil, ErrNoChanges
		}
		t.AvoidEmotes = nil
	default:
		return nil, ErrUnknownProperty
	}

	if recompile {
		if err := t.Recompile(uc.settings.Get()); err != nil {
			return nil, err
		}
	}
	if err := uc.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update trigger: %w", err)
	}
	uc.triggers[position] = t
	return t, nil
}

// RecompileInherited recompiles every trigger without a case
// sensitivity override and persists the changed rows in one
// transaction. Called after the global case_sensitive value changes,
// since those matchers are derived from it.
func (uc *TriggerUsecase) RecompileInherited(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s := uc.settings.Get()

	var next []*domain.Trigger
	var dirty []*domain.Trigger
	next = append(next, uc.triggers...)
	for i, t := range next {
		if t.CaseSensitive != nil {
			continue
		}
		c := t.Clone()
		if err := c.Recompile(s); err != nil {
			return fmt.Errorf("trigger %d: %w", c.ID, err)
		}
		next[i] = c
		dirty = append(dirty, c)
	}
	if len(dirty) == 0 {
		return nil
	}
	if err := uc.repo.UpdateAll(ctx, dirty); err != nil {
		return fmt.Errorf("update triggers: %w", err)
	}
	uc.triggers = next
	return nil
}
