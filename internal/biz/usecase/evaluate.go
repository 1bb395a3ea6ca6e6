package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
)

// Match is the outcome of evaluating a message against the trigger list.
type Match struct {
	Trigger *domain.Trigger
	Span    domain.Span
	Groups  []string // capture groups, index 0 is the whole match

	// OnCooldown is set when the winning trigger matched but is still
	// cooling down. The response is suppressed, yet the trigger keeps
	// the slot: evaluation does not fall through to later triggers.
	// Positions are curated so the most specific trigger is checked
	// first; a silenced winner still wins.
	OnCooldown bool
}

// Evaluate scans the triggers in position order and returns the first
// one whose pattern finds a span that survives the exclusion checks,
// or nil when nothing matches structurally.
func (uc *TriggerUsecase) Evaluate(content string, now time.Time) *Match {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	s := uc.settings.Get()

	var urlSpans, emoteSpans []domain.Span
	urlsDone, emotesDone := false, false

	for _, t := range uc.triggers {
		loc := t.Compiled.FindStringSubmatchIndex(content)
		if loc == nil {
			continue
		}
		span := domain.Span{Start: loc[0], End: loc[1]}

		if t.EffectiveAvoidLinks(s) {
			if !urlsDone {
				urlSpans = domain.URLSpans(content)
				urlsDone = true
			}
			if domain.WithinAny(urlSpans, span) {
				continue
			}
		}
		if t.EffectiveAvoidEmotes(s) {
			if !emotesDone {
				emoteSpans = domain.EmoteSpans(content)
				emotesDone = true
			}
			if domain.WithinAny(emoteSpans, span) {
				continue
			}
		}

		groups := make([]string, 0, len(loc)/2)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, content[loc[i]:loc[i+1]])
		}

		return &Match{
			Trigger:    t,
			Span:       span,
			Groups:     groups,
			OnCooldown: t.OnCooldown(s, now),
		}
	}
	return nil
}

// Fire records a non-suppressed fire and persists the timestamp. The
// caller has already sent the response; a persistence failure here is
// surfaced for escalation, never retried.
func (uc *TriggerUsecase) Fire(ctx context.Context, t *domain.Trigger, now time.Time) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	t.MarkTriggered(now)
	if err := uc.repo.UpdateLastTriggered(ctx, t.ID, t.LastTriggered); err != nil {
		return fmt.Errorf("persist last triggered: %w", err)
	}
	return nil
}
