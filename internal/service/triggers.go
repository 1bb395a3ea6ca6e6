package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/repo"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/usecase"
)

// IncomingMessage is the platform-neutral view of a received message.
type IncomingMessage struct {
	ChatID  string
	Content string
	Author  domain.Author
}

// TriggerService runs the trigger scan for incoming messages and sends
// the expanded response.
type TriggerService struct {
	triggers *usecase.TriggerUsecase
	messages repo.MessageRepo
	now      func() time.Time

	// rand.Rand is not safe for concurrent use and messages arrive on
	// their own goroutines
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewTriggerService creates a new trigger service.
func NewTriggerService(triggers *usecase.TriggerUsecase, messages repo.MessageRepo) *TriggerService {
	return &TriggerService{
		triggers: triggers,
		messages: messages,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// HandleMessage evaluates one message against the trigger list. At most
// one response is sent; a cooldown-suppressed winner sends nothing and
// still ends the scan.
func (s *TriggerService) HandleMessage(ctx context.Context, msg *IncomingMessage) error {
	now := s.now()
	m := s.triggers.Evaluate(msg.Content, now)
	if m == nil || m.OnCooldown {
		return nil
	}

	s.rngMu.Lock()
	variant := domain.PickVariant(domain.SplitVariants(m.Trigger.Response), s.rng)
	s.rngMu.Unlock()
	text := domain.ExpandResponse(variant, msg.Author, m.Groups, FeishuMention)
	if err := s.messages.SendText(ctx, msg.ChatID, text); err != nil {
		return fmt.Errorf("send response: %w", err)
	}

	if err := s.triggers.Fire(ctx, m.Trigger, now); err != nil {
		// the response is already out; surface the failure, don't retry
		return fmt.Errorf("record fire: %w", err)
	}
	return nil
}

// FeishuMention renders an inline mention tag for an author.
func FeishuMention(a domain.Author) string {
	name := a.Display
	if name == "" {
		name = a.Username
	}
	return fmt.Sprintf("<at user_id=%q>@%s</at>", a.ID, name)
}
