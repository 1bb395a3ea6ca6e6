package repo

import "context"

// MessageRepo sends messages to the chat platform. Mentions travel
// inline as platform tags inside the text.
type MessageRepo interface {
	SendText(ctx context.Context, chatID, text string) error
}
