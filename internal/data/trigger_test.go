package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
)

func openTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewRepositories(filepath.Join(t.TempDir(), "triggers.db"))
	if err != nil {
		t.Fatalf("open repositories: %v", err)
	}
	t.Cleanup(func() { repos.Close() })
	return repos
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestTriggerRepo_InsertAndListRoundTrip(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0)
	in := &domain.Trigger{
		Position:      0,
		Mode:          domain.ModeWord,
		Pattern:       "end",
		Response:      "hi;there",
		CompiledExpr:  `(?i)\b(?:end)\b`,
		Cooldown:      intPtr(30),
		CaseSensitive: boolPtr(true),
		MatchEnd:      true,
		LastTriggered: &at,
	}
	if err := repos.Trigger.Insert(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if in.ID == 0 {
		t.Fatal("insert did not assign an ID")
	}

	list, err := repos.Trigger.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list returned %d rows", len(list))
	}

	got := list[0]
	if got.Mode != domain.ModeWord || got.Pattern != "end" || got.Response != "hi;there" {
		t.Errorf("row mismatch: %+v", got)
	}
	if got.Cooldown == nil || *got.Cooldown != 30 {
		t.Error("cooldown override lost")
	}
	if got.CaseSensitive == nil || !*got.CaseSensitive {
		t.Error("case_sensitive override lost")
	}
	if got.AvoidLinks != nil || got.AvoidEmotes != nil {
		t.Error("nil overrides must stay nil")
	}
	if !got.MatchEnd || got.MatchStart {
		t.Error("anchor flags lost")
	}
	if got.LastTriggered == nil || !got.LastTriggered.Equal(at) {
		t.Error("last_triggered lost")
	}
}

func TestTriggerRepo_UpdateAllOrdering(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	var triggers []*domain.Trigger
	for i, p := range []string{"a", "b", "c"} {
		trigger := &domain.Trigger{Position: i, Mode: domain.ModePlain, Pattern: p, Response: "r", CompiledExpr: p}
		if err := repos.Trigger.Insert(ctx, trigger); err != nil {
			t.Fatalf("insert: %v", err)
		}
		triggers = append(triggers, trigger)
	}

	// rotate positions: a->2, b->0, c->1
	triggers[0].Position = 2
	triggers[1].Position = 0
	triggers[2].Position = 1
	if err := repos.Trigger.UpdateAll(ctx, triggers); err != nil {
		t.Fatalf("update all: %v", err)
	}

	list, err := repos.Trigger.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantPatterns := []string{"b", "c", "a"}
	for i, got := range list {
		if got.Pattern != wantPatterns[i] || got.Position != i {
			t.Fatalf("order after update: got %q at position %d", got.Pattern, got.Position)
		}
	}
}

func TestTriggerRepo_DeleteWithShift(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	var triggers []*domain.Trigger
	for i, p := range []string{"a", "b", "c"} {
		trigger := &domain.Trigger{Position: i, Mode: domain.ModePlain, Pattern: p, Response: "r", CompiledExpr: p}
		if err := repos.Trigger.Insert(ctx, trigger); err != nil {
			t.Fatalf("insert: %v", err)
		}
		triggers = append(triggers, trigger)
	}

	triggers[2].Position = 1
	if err := repos.Trigger.Delete(ctx, triggers[1].ID, []*domain.Trigger{triggers[2]}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err := repos.Trigger.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Pattern != "a" || list[1].Pattern != "c" || list[1].Position != 1 {
		t.Fatalf("rows after delete: %+v", list)
	}
}

func TestTriggerRepo_UpdateLastTriggered(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	trigger := &domain.Trigger{Mode: domain.ModePlain, Pattern: "x", Response: "r", CompiledExpr: "x"}
	if err := repos.Trigger.Insert(ctx, trigger); err != nil {
		t.Fatalf("insert: %v", err)
	}

	at := time.Unix(1700000123, 0)
	if err := repos.Trigger.UpdateLastTriggered(ctx, trigger.ID, &at); err != nil {
		t.Fatalf("update last triggered: %v", err)
	}
	list, _ := repos.Trigger.ListAll(ctx)
	if list[0].LastTriggered == nil || !list[0].LastTriggered.Equal(at) {
		t.Error("timestamp not persisted")
	}

	// clearing the history stores NULL again
	if err := repos.Trigger.UpdateLastTriggered(ctx, trigger.ID, nil); err != nil {
		t.Fatalf("clear last triggered: %v", err)
	}
	list, _ = repos.Trigger.ListAll(ctx)
	if list[0].LastTriggered != nil {
		t.Error("timestamp not cleared")
	}
}

func TestSettingsRepo_CreatesSingletonOnFirstLoad(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	s, err := repos.Settings.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != (domain.Settings{}) {
		t.Errorf("first load = %+v, want defaults", s)
	}

	s.Cooldown = 15
	s.AvoidLinks = true
	if err := repos.Settings.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repos.Settings.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Cooldown != 15 || !got.AvoidLinks {
		t.Errorf("reload = %+v", got)
	}
}

func TestSettingsRepo_PrunesDuplicateRows(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()

	if _, err := repos.Settings.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := repos.Settings.Save(ctx, domain.Settings{Cooldown: 9}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// sneak in extra rows behind the repository's back
	for i := 0; i < 2; i++ {
		if _, err := repos.db.Exec(`INSERT INTO trigger_settings (cooldown) VALUES (99)`); err != nil {
			t.Fatalf("insert duplicate: %v", err)
		}
	}

	got, err := repos.Settings.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Cooldown != 9 {
		t.Errorf("load after prune = %+v, want the first row", got)
	}

	var count int
	if err := repos.db.QueryRow(`SELECT COUNT(*) FROM trigger_settings`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("settings rows = %d, want 1", count)
	}
}
