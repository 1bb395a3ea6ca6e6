package domain

import (
	"regexp"
	"time"
)

// Mode selects the matching logic applied to a trigger's pattern.
type Mode string

const (
	ModePlain Mode = "plain" // substring match anywhere in the message
	ModeWord  Mode = "word"  // match on word boundaries
	ModeFull  Mode = "full"  // match the whole message
	ModeRegex Mode = "regex" // raw regular expression
)

// ParseMode parses a user-supplied mode name.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModePlain, ModeWord, ModeFull, ModeRegex:
		return Mode(s), true
	}
	return "", false
}

// Trigger represents one user-defined trigger rule.
type Trigger struct {
	ID       int64
	Position int // 0-based evaluation rank, dense across the store
	Mode     Mode
	Pattern  string // pattern as entered by the user
	Response string // ';'-separated variants, '\;' for a literal semicolon

	// Optional overrides; nil inherits the global settings value.
	Cooldown      *int // seconds
	CaseSensitive *bool
	AvoidLinks    *bool
	AvoidEmotes   *bool

	// Anchors have no global fallback.
	MatchStart bool
	MatchEnd   bool

	// Derived from mode, pattern, case sensitivity and anchors.
	// Recomputed whenever any of those change, never edited directly.
	CompiledExpr string
	Compiled     *regexp.Regexp

	LastTriggered *time.Time
}

// Recompile rebuilds the derived matcher from the trigger's declared
// inputs, resolving case sensitivity against the global settings.
func (t *Trigger) Recompile(s Settings) error {
	expr, re, err := Compile(t.Mode, t.Pattern, t.EffectiveCaseSensitive(s), t.MatchStart, t.MatchEnd)
	if err != nil {
		return err
	}
	t.CompiledExpr = expr
	t.Compiled = re
	return nil
}

// EffectiveCooldown resolves the cooldown in seconds.
func (t *Trigger) EffectiveCooldown(s Settings) int {
	return orDefault(t.Cooldown, s.Cooldown)
}

// EffectiveCaseSensitive resolves case sensitivity.
func (t *Trigger) EffectiveCaseSensitive(s Settings) bool {
	return orDefault(t.CaseSensitive, s.CaseSensitive)
}

// EffectiveAvoidLinks resolves the link exclusion flag.
func (t *Trigger) EffectiveAvoidLinks(s Settings) bool {
	return orDefault(t.AvoidLinks, s.AvoidLinks)
}

// EffectiveAvoidEmotes resolves the emote exclusion flag.
func (t *Trigger) EffectiveAvoidEmotes(s Settings) bool {
	return orDefault(t.AvoidEmotes, s.AvoidEmotes)
}

// OnCooldown reports whether the trigger fired within its effective
// cooldown window. A zero cooldown or a trigger that never fired is
// never on cooldown.
func (t *Trigger) OnCooldown(s Settings, now time.Time) bool {
	cd := t.EffectiveCooldown(s)
	if cd <= 0 || t.LastTriggered == nil {
		return false
	}
	return now.Sub(*t.LastTriggered) < time.Duration(cd)*time.Second
}

// MarkTriggered records a fire at the given time.
func (t *Trigger) MarkTriggered(now time.Time) {
	at := now
	t.LastTriggered = &at
}

// Clone returns a copy that shares no pointers with the original, so a
// pending edit can be discarded without touching the cached row.
func (t *Trigger) Clone() *Trigger {
	c := *t
	c.Cooldown = clonePtr(t.Cooldown)
	c.CaseSensitive = clonePtr(t.CaseSensitive)
	c.AvoidLinks = clonePtr(t.AvoidLinks)
	c.AvoidEmotes = clonePtr(t.AvoidEmotes)
	c.LastTriggered = clonePtr(t.LastTriggered)
	return &c
}

// orDefault resolves an optional per-trigger override against its
// global fallback. Shared by compile-time and evaluation-time callers.
func orDefault[T any](override *T, def T) T {
	if override != nil {
		return *override
	}
	return def
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
