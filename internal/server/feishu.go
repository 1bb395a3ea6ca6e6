package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anthropics/feishu-trigger-bot/feishu"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/domain"
	"github.com/anthropics/feishu-trigger-bot/internal/service"
)

// FeishuServer receives Feishu messages and routes them: management
// commands from the owner go to the command service, everything else
// runs through the trigger scan.
type FeishuServer struct {
	client     *feishu.Client
	commandSvc *service.CommandService
	triggerSvc *service.TriggerService
	ownerID    string

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server.
func NewFeishuServer(client *feishu.Client, commandSvc *service.CommandService, triggerSvc *service.TriggerService, ownerID string) *FeishuServer {
	return &FeishuServer{
		client:     client,
		commandSvc: commandSvc,
		triggerSvc: triggerSvc,
		ownerID:    ownerID,
		seenMsgs:   make(map[string]time.Time),
	}
}

// Start starts listening for messages. Blocks until the connection is
// closed.
func (s *FeishuServer) Start() error {
	s.client.OnMessage(s.handleMessage)
	return s.client.Start()
}

// Stop stops the server.
func (s *FeishuServer) Stop() {
	s.client.Stop()
}

// handleMessage handles one incoming Feishu message.
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	// Feishu redelivers events it considers unacknowledged
	if s.isMessageSeen(msg.MsgID) {
		log.Printf("[Server] Duplicate message ignored: %s", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	ctx := context.Background()

	if service.IsCommand(msg.Content) {
		s.handleCommand(ctx, msg)
		return
	}

	incoming := &service.IncomingMessage{
		ChatID:  msg.ChatID,
		Content: msg.Content,
		Author:  s.resolveAuthor(ctx, msg),
	}
	if err := s.triggerSvc.HandleMessage(ctx, incoming); err != nil {
		log.Printf("[Server] Trigger handling error: %v", err)
	}
}

// handleCommand runs a management command and sends the reply. Only
// the configured owner may manage triggers.
func (s *FeishuServer) handleCommand(ctx context.Context, msg *feishu.Message) {
	if msg.SenderOpenID != s.ownerID {
		if err := s.client.SendText(ctx, msg.ChatID, "Only the bot owner can manage triggers."); err != nil {
			log.Printf("[Server] Failed to send reply: %v", err)
		}
		return
	}

	reply, err := s.commandSvc.Handle(ctx, msg.ChatID, msg.Content)
	if err != nil {
		log.Printf("[Server] Command store failure: %v", err)
	}
	if reply == "" {
		return
	}
	if err := s.client.SendText(ctx, msg.ChatID, reply); err != nil {
		log.Printf("[Server] Failed to send reply: %v", err)
	}
}

// resolveAuthor fills in the sender's display name from the chat
// member list. Resolution is best effort; responses that reference the
// author fall back to the open_id.
func (s *FeishuServer) resolveAuthor(ctx context.Context, msg *feishu.Message) domain.Author {
	author := domain.Author{
		ID:       msg.SenderOpenID,
		Username: msg.SenderOpenID,
		Display:  msg.SenderOpenID,
		Nickname: msg.SenderOpenID,
	}

	members, err := s.client.GetChatMembers(ctx, msg.ChatID)
	if err != nil {
		log.Printf("[Server] Failed to resolve sender name: %v", err)
		return author
	}
	for _, m := range members {
		if m.OpenID == msg.SenderOpenID && m.Name != "" {
			author.Username = m.Name
			author.Display = m.Name
			author.Nickname = m.Name
			break
		}
	}
	return author
}

// isMessageSeen checks if a message has been processed.
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed and prunes records
// older than five minutes.
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
