package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/usecase"
	"github.com/anthropics/feishu-trigger-bot/internal/conf"
)

const (
	// CommandPrefix starts every management command.
	CommandPrefix = "/triggers"

	listPageSize  = 10
	confirmWindow = 30 * time.Second

	genericFailure = "Something went wrong while talking to the store. The error has been reported."
)

// pendingRemove is a destructive delete awaiting confirmation.
type pendingRemove struct {
	position int
	asked    time.Time
}

// CommandService handles the owner-facing trigger management commands.
// User-facing IDs are 1-based; internal positions are 0-based, and this
// boundary owns the conversion.
type CommandService struct {
	triggers *usecase.TriggerUsecase
	settings *usecase.SettingsUsecase
	help     *conf.HelpConfig
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]pendingRemove // chatID -> awaiting confirmation
}

// NewCommandService creates a new command service.
func NewCommandService(triggers *usecase.TriggerUsecase, settings *usecase.SettingsUsecase, help *conf.HelpConfig) *CommandService {
	return &CommandService{
		triggers: triggers,
		settings: settings,
		help:     help,
		now:      time.Now,
		pending:  make(map[string]pendingRemove),
	}
}

// IsCommand reports whether the message text is a management command.
func IsCommand(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == CommandPrefix || strings.HasPrefix(trimmed, CommandPrefix+" ")
}

// Handle executes one management command and returns the reply text.
// Validation problems come back as reply text with a nil error; a
// non-nil error means the persistence layer failed and the caller
// should escalate it (the reply already tells the user it failed).
func (s *CommandService) Handle(ctx context.Context, chatID, text string) (string, error) {
	tokens := tokenize(strings.TrimSpace(text))
	if len(tokens) == 0 || tokens[0] != CommandPrefix {
		return "", nil
	}

	sub := "help"
	if len(tokens) > 1 {
		sub = tokens[1]
	}
	rest := tokens[2:]

	switch sub {
	case "help":
		return s.handleHelp(rest), nil
	case "list":
		return s.handleList(rest), nil
	case "inspect":
		return s.handleInspect(rest), nil
	case "add":
		return s.handleAdd(ctx, rest)
	case "edit":
		return s.handleEdit(ctx, rest)
	case "remove":
		return s.handleRemove(chatID, rest), nil
	case "confirm":
		return s.handleConfirm(ctx, chatID)
	case "cancel":
		return s.handleCancel(chatID), nil
	case "setglobal":
		return s.handleSetGlobal(ctx, rest)
	case "reset":
		return s.handleReset(ctx, rest)
	default:
		return fmt.Sprintf("Unknown subcommand %q. Try %s help.", sub, CommandPrefix), nil
	}
}

func (s *CommandService) handleHelp(rest []string) string {
	pages := s.help.Pages
	page := 1
	if len(rest) > 0 {
		if n, err := strconv.Atoi(rest[0]); err == nil && n >= 1 && n <= len(pages) {
			page = n
		}
	}

	p := pages[page-1]
	var b strings.Builder
	fmt.Fprintf(&b, "Triggers Help - %s\n\n%s\n", p.Title, p.Body)

	if page == 1 {
		b.WriteString("\nTable of Contents\n")
		for i, other := range pages {
			fmt.Fprintf(&b, "  Page %d: %s\n", i+1, other.Title)
		}
	}
	fmt.Fprintf(&b, "\nPage %d/%d", page, len(pages))
	if page < len(pages) {
		fmt.Fprintf(&b, " | Next: %s help %d", CommandPrefix, page+1)
	}
	return b.String()
}

func (s *CommandService) handleList(rest []string) string {
	triggers := s.triggers.List()
	if len(triggers) == 0 {
		return fmt.Sprintf("No triggers configured yet. Use %s add to create one.", CommandPrefix)
	}

	pageCount := (len(triggers) + listPageSize - 1) / listPageSize
	page := 1
	if len(rest) > 0 {
		if n, err := strconv.Atoi(rest[0]); err == nil && n >= 1 && n <= pageCount {
			page = n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Triggers (%d total, page %d/%d):\n", len(triggers), page, pageCount)
	start := (page - 1) * listPageSize
	end := min(start+listPageSize, len(triggers))
	for _, t := range triggers[start:end] {
		fmt.Fprintf(&b, "%3d. [%s] %s -> %s\n", t.Position+1, t.Mode, truncate(t.Pattern, 30), truncate(t.Response, 40))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *CommandService) handleInspect(rest []string) string {
	if len(rest) == 0 {
		return fmt.Sprintf("Usage: %s inspect <id> [advanced]", CommandPrefix)
	}
	position, msg := s.parseID(rest[0])
	if msg != "" {
		return msg
	}
	advanced := len(rest) > 1 && rest[1] == "advanced"

	t, err := s.triggers.Get(position)
	if err != nil {
		return s.notFound()
	}
	g := s.settings.Get()

	var b strings.Builder
	fmt.Fprintf(&b, "Trigger #%d\n", t.Position+1)
	fmt.Fprintf(&b, "  mode: %s\n", t.Mode)
	fmt.Fprintf(&b, "  pattern: %s\n", t.Pattern)
	fmt.Fprintf(&b, "  response: %s\n", t.Response)
	fmt.Fprintf(&b, "  cooldown: %s\n", describeInt(t.Cooldown, g.Cooldown, humanTime))
	fmt.Fprintf(&b, "  case_sensitive: %s\n", describeBool(t.CaseSensitive, g.CaseSensitive))
	fmt.Fprintf(&b, "  avoid_links: %s\n", describeBool(t.AvoidLinks, g.AvoidLinks))
	fmt.Fprintf(&b, "  avoid_emotes: %s\n", describeBool(t.AvoidEmotes, g.AvoidEmotes))
	fmt.Fprintf(&b, "  start: %v\n  end: %v\n", t.MatchStart, t.MatchEnd)

	if t.LastTriggered == nil {
		b.WriteString("  last triggered: never")
	} else {
		ago := int(s.now().Sub(*t.LastTriggered).Seconds())
		fmt.Fprintf(&b, "  last triggered: %s ago", humanTime(ago))
	}
	if advanced {
		fmt.Fprintf(&b, "\n  compiled: %s", t.CompiledExpr)
	}
	return b.String()
}

func (s *CommandService) handleAdd(ctx context.Context, rest []string) (string, error) {
	kv, err := parseArgs(rest)
	if err != nil {
		return err.Error(), nil
	}

	in := usecase.AddInput{}
	modeRaw, ok := kv.take("mode")
	if !ok {
		return "mode is required (one of plain, word, full, regex).", nil
	}
	in.Mode, ok = domain.ParseMode(modeRaw)
	if !ok {
		return fmt.Sprintf("Unknown mode %q. Use plain, word, full or regex.", modeRaw), nil
	}
	if in.Pattern, ok = kv.take("pattern"); !ok || in.Pattern == "" {
		return "pattern is required.", nil
	}
	if in.Response, ok = kv.take("response"); !ok || in.Response == "" {
		return "response is required.", nil
	}

	if in.Cooldown, err = kv.takeInt("cooldown"); err != nil {
		return err.Error(), nil
	}
	if in.CaseSensitive, err = kv.takeBool("case_sensitive"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidLinks, err = kv.takeBool("avoid_links"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidEmotes, err = kv.takeBool("avoid_emotes"); err != nil {
		return err.Error(), nil
	}
	start, err := kv.takeBool("start")
	if err != nil {
		return err.Error(), nil
	}
	end, err := kv.takeBool("end")
	if err != nil {
		return err.Error(), nil
	}
	if start != nil {
		in.MatchStart = *start
	}
	if end != nil {
		in.MatchEnd = *end
	}
	if err := kv.unknown(); err != nil {
		return err.Error(), nil
	}

	t, err := s.triggers.Add(ctx, in)
	if err != nil {
		return s.failure(err)
	}
	return fmt.Sprintf("Added trigger #%d.", t.Position+1), nil
}

func (s *CommandService) handleEdit(ctx context.Context, rest []string) (string, error) {
	if len(rest) == 0 {
		return fmt.Sprintf("Usage: %s edit <id> [properties]", CommandPrefix), nil
	}
	position, msg := s.parseID(rest[0])
	if msg != "" {
		return msg, nil
	}
	kv, err := parseArgs(rest[1:])
	if err != nil {
		return err.Error(), nil
	}

	in := usecase.EditInput{}
	if raw, ok := kv.take("new_id"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > s.triggers.Count() {
			return fmt.Sprintf("new_id must be between 1 and %d.", s.triggers.Count()), nil
		}
		p := n - 1
		in.NewPosition = &p
	}
	if raw, ok := kv.take("mode"); ok {
		mode, valid := domain.ParseMode(raw)
		if !valid {
			return fmt.Sprintf("Unknown mode %q. Use plain, word, full or regex.", raw), nil
		}
		in.Mode = &mode
	}
	if raw, ok := kv.take("pattern"); ok {
		in.Pattern = &raw
	}
	if raw, ok := kv.take("response"); ok {
		in.Response = &raw
	}
	if in.Cooldown, err = kv.takeInt("cooldown"); err != nil {
		return err.Error(), nil
	}
	if in.CaseSensitive, err = kv.takeBool("case_sensitive"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidLinks, err = kv.takeBool("avoid_links"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidEmotes, err = kv.takeBool("avoid_emotes"); err != nil {
		return err.Error(), nil
	}
	if in.MatchStart, err = kv.takeBool("start"); err != nil {
		return err.Error(), nil
	}
	if in.MatchEnd, err = kv.takeBool("end"); err != nil {
		return err.Error(), nil
	}
	if err := kv.unknown(); err != nil {
		return err.Error(), nil
	}

	t, err := s.triggers.Edit(ctx, position, in)
	if err != nil {
		return s.failure(err)
	}
	return fmt.Sprintf("Updated trigger #%d.", t.Position+1), nil
}

func (s *CommandService) handleRemove(chatID string, rest []string) string {
	if len(rest) == 0 {
		return fmt.Sprintf("Usage: %s remove <id>", CommandPrefix)
	}
	position, msg := s.parseID(rest[0])
	if msg != "" {
		return msg
	}
	t, err := s.triggers.Get(position)
	if err != nil {
		return s.notFound()
	}

	s.mu.Lock()
	s.pending[chatID] = pendingRemove{position: position, asked: s.now()}
	s.mu.Unlock()

	return fmt.Sprintf("About to remove trigger #%d ([%s] %s). Send %s confirm within %d seconds, or %s cancel.",
		position+1, t.Mode, truncate(t.Pattern, 30), CommandPrefix, int(confirmWindow.Seconds()), CommandPrefix)
}

func (s *CommandService) handleConfirm(ctx context.Context, chatID string) (string, error) {
	s.mu.Lock()
	p, ok := s.pending[chatID]
	delete(s.pending, chatID)
	s.mu.Unlock()

	if !ok || s.now().Sub(p.asked) > confirmWindow {
		return "Nothing awaiting confirmation.", nil
	}

	t, err := s.triggers.Remove(ctx, p.position)
	if err != nil {
		return s.failure(err)
	}
	return fmt.Sprintf("Removed trigger #%d.", t.Position+1), nil
}

func (s *CommandService) handleCancel(chatID string) string {
	s.mu.Lock()
	_, ok := s.pending[chatID]
	delete(s.pending, chatID)
	s.mu.Unlock()

	if !ok {
		return "Nothing awaiting confirmation."
	}
	return "Removal cancelled."
}

func (s *CommandService) handleSetGlobal(ctx context.Context, rest []string) (string, error) {
	kv, err := parseArgs(rest)
	if err != nil {
		return err.Error(), nil
	}

	in := usecase.SettingsInput{}
	if in.Cooldown, err = kv.takeInt("cooldown"); err != nil {
		return err.Error(), nil
	}
	if in.CaseSensitive, err = kv.takeBool("case_sensitive"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidLinks, err = kv.takeBool("avoid_links"); err != nil {
		return err.Error(), nil
	}
	if in.AvoidEmotes, err = kv.takeBool("avoid_emotes"); err != nil {
		return err.Error(), nil
	}
	if err := kv.unknown(); err != nil {
		return err.Error(), nil
	}

	next, caseChanged, err := s.settings.Update(ctx, in)
	if err != nil {
		return s.failure(err)
	}
	if caseChanged {
		// triggers without an override derive their matcher from this value
		if err := s.triggers.RecompileInherited(ctx); err != nil {
			return s.failure(err)
		}
	}
	return fmt.Sprintf("Global settings: cooldown=%s case_sensitive=%v avoid_links=%v avoid_emotes=%v",
		humanTime(next.Cooldown), next.CaseSensitive, next.AvoidLinks, next.AvoidEmotes), nil
}

func (s *CommandService) handleReset(ctx context.Context, rest []string) (string, error) {
	if len(rest) < 2 {
		return fmt.Sprintf("Usage: %s reset <id> <property>", CommandPrefix), nil
	}
	position, msg := s.parseID(rest[0])
	if msg != "" {
		return msg, nil
	}

	t, err := s.triggers.Reset(ctx, position, rest[1])
	if err != nil {
		return s.failure(err)
	}
	return fmt.Sprintf("Reset %s of trigger #%d to the global value.", rest[1], t.Position+1), nil
}

// parseID converts a 1-based user-facing ID into a 0-based position.
// The returned message is non-empty when the input is invalid.
func (s *CommandService) parseID(raw string) (int, string) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > s.triggers.Count() {
		return 0, s.notFound()
	}
	return n - 1, ""
}

func (s *CommandService) notFound() string {
	count := s.triggers.Count()
	if count == 0 {
		return "There are no triggers yet."
	}
	return fmt.Sprintf("No such trigger. IDs go from 1 to %d.", count)
}

// failure renders a usecase error. Validation errors become reply text;
// anything else is a store failure the caller must escalate.
func (s *CommandService) failure(err error) (string, error) {
	var perr *domain.PatternError
	switch {
	case errors.As(err, &perr):
		return "Invalid pattern: " + perr.Err.Error(), nil
	case errors.Is(err, usecase.ErrNotFound):
		return s.notFound(), nil
	case errors.Is(err, usecase.ErrNoChanges):
		return "Nothing changed.", nil
	case errors.Is(err, usecase.ErrBadPosition):
		return fmt.Sprintf("new_id must be between 1 and %d.", s.triggers.Count()), nil
	case errors.Is(err, usecase.ErrUnknownProperty):
		return "Unknown property. Use cooldown, case_sensitive, avoid_links or avoid_emotes.", nil
	}
	return genericFailure, err
}

func describeInt(override *int, global int, format func(int) string) string {
	if override != nil {
		return fmt.Sprintf("%s (override)", format(*override))
	}
	return fmt.Sprintf("%s (global)", format(global))
}

func describeBool(override *bool, global bool) string {
	if override != nil {
		return fmt.Sprintf("%v (override)", *override)
	}
	return fmt.Sprintf("%v (global)", global)
}
