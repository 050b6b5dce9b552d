package chatRepo

import (
	"context"

	"appispot/models"
)

// ChatRepository defines data access for chats and messages.
type ChatRepository interface {
	// EnsureChat returns the chat for the unordered pair, creating it if
	// missing. Concurrent calls for the same pair resolve to one chat.
	EnsureChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	// GetChat retrieves a chat by ID; nil if not found.
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	// ListChats retrieves a user's chats, most recently active first.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	// AppendMessage persists a message at the next position in the chat's
	// sequence and updates lastMessage and the unread counter.
	AppendMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error)
	// ListMessages retrieves a chat's messages in sequence order.
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	// MarkRead flips read on all unread messages addressed to readerID and
	// resets the chat's unread counter. Returns the number of messages flipped.
	MarkRead(ctx context.Context, chatID, readerID string) (int64, error)
}
