package domain

import (
	"testing"
	"time"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestTrigger_EffectiveValues_Inherit(t *testing.T) {
	s := Settings{Cooldown: 30, CaseSensitive: true, AvoidLinks: true, AvoidEmotes: false}
	trigger := &Trigger{}

	if got := trigger.EffectiveCooldown(s); got != 30 {
		t.Errorf("EffectiveCooldown = %d, want 30", got)
	}
	if !trigger.EffectiveCaseSensitive(s) {
		t.Error("EffectiveCaseSensitive should inherit true")
	}
	if !trigger.EffectiveAvoidLinks(s) {
		t.Error("EffectiveAvoidLinks should inherit true")
	}
	if trigger.EffectiveAvoidEmotes(s) {
		t.Error("EffectiveAvoidEmotes should inherit false")
	}
}

func TestTrigger_EffectiveValues_Override(t *testing.T) {
	s := Settings{Cooldown: 30, CaseSensitive: true}
	trigger := &Trigger{Cooldown: intPtr(5), CaseSensitive: boolPtr(false)}

	if got := trigger.EffectiveCooldown(s); got != 5 {
		t.Errorf("EffectiveCooldown = %d, want 5", got)
	}
	if trigger.EffectiveCaseSensitive(s) {
		t.Error("EffectiveCaseSensitive override should win")
	}
}

func TestTrigger_OnCooldown(t *testing.T) {
	now := time.Now()
	s := Settings{Cooldown: 60}

	trigger := &Trigger{}
	if trigger.OnCooldown(s, now) {
		t.Error("never-fired trigger should not be on cooldown")
	}

	trigger.MarkTriggered(now.Add(-30 * time.Second))
	if !trigger.OnCooldown(s, now) {
		t.Error("trigger fired 30s ago with 60s cooldown should be on cooldown")
	}

	trigger.MarkTriggered(now.Add(-61 * time.Second))
	if trigger.OnCooldown(s, now) {
		t.Error("trigger fired 61s ago with 60s cooldown should be off cooldown")
	}
}

func TestTrigger_OnCooldown_ZeroCooldown(t *testing.T) {
	now := time.Now()
	trigger := &Trigger{}
	trigger.MarkTriggered(now)

	if trigger.OnCooldown(Settings{}, now) {
		t.Error("zero effective cooldown is never on cooldown")
	}
}

func TestTrigger_OnCooldown_OverrideBeatsGlobal(t *testing.T) {
	now := time.Now()
	s := Settings{Cooldown: 600}
	trigger := &Trigger{Cooldown: intPtr(10)}
	trigger.MarkTriggered(now.Add(-30 * time.Second))

	if trigger.OnCooldown(s, now) {
		t.Error("override cooldown of 10s should have elapsed")
	}
}

func TestTrigger_Recompile(t *testing.T) {
	trigger := &Trigger{Mode: ModeWord, Pattern: "end"}
	if err := trigger.Recompile(Settings{}); err != nil {
		t.Fatalf("Recompile error: %v", err)
	}
	if trigger.Compiled == nil || trigger.CompiledExpr == "" {
		t.Fatal("Recompile did not populate derived fields")
	}
	if trigger.Compiled.MatchString("Friendship is important") {
		t.Error("word mode should not match inside a word")
	}
	if !trigger.Compiled.MatchString("The end is near") {
		t.Error("word mode should match a whole word")
	}
}

func TestTrigger_Recompile_UsesGlobalCaseSensitivity(t *testing.T) {
	trigger := &Trigger{Mode: ModePlain, Pattern: "End"}

	if err := trigger.Recompile(Settings{CaseSensitive: true}); err != nil {
		t.Fatalf("Recompile error: %v", err)
	}
	if trigger.Compiled.MatchString("the end") {
		t.Error("globally case-sensitive pattern should not match lowercase")
	}

	if err := trigger.Recompile(Settings{CaseSensitive: false}); err != nil {
		t.Fatalf("Recompile error: %v", err)
	}
	if !trigger.Compiled.MatchString("the end") {
		t.Error("globally insensitive pattern should match lowercase")
	}
}

func TestTrigger_Clone_SharesNoPointers(t *testing.T) {
	now := time.Now()
	orig := &Trigger{Cooldown: intPtr(5), CaseSensitive: boolPtr(true), LastTriggered: &now}
	c := orig.Clone()

	*c.Cooldown = 99
	*c.CaseSensitive = false
	c.LastTriggered = nil

	if *orig.Cooldown != 5 || !*orig.CaseSensitive || orig.LastTriggered == nil {
		t.Error("Clone leaked pointers back into the original")
	}
}
