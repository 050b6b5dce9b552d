package chat

import (
	"context"

	"appispot/models"
	"appispot/realtime"
)

// Event is the envelope broadcast to sessions joined to a chat room.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types pushed to clients.
const (
	EventReceiveMessage = "receive_message"
	EventMessagesRead   = "messages_read"
)

// ChatService relays messages between the two participants of a chat and
// fans events out to their connected sessions.
type ChatService interface {
	// CreateChat returns the chat between the two users, creating it if
	// needed. Concurrent creates for the same pair yield the same chat.
	CreateChat(ctx context.Context, userID, otherID string) (*models.Chat, error)

	// ListChats retrieves the user's chats, most recently active first.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)

	// Messages retrieves a chat's history in send order; the caller must be
	// a participant.
	Messages(ctx context.Context, userID, chatID string) ([]models.Message, error)

	// JoinRoom subscribes the session to the chat's events; the session's
	// user must be a participant.
	JoinRoom(ctx context.Context, s *realtime.Session, chatID string) error

	// LeaveRoom unsubscribes the session from the chat's events.
	LeaveRoom(s *realtime.Session, chatID string)

	// SendMessage persists a message and broadcasts it to every joined
	// session, the sender's other sessions included.
	SendMessage(ctx context.Context, senderID, chatID, content string) (*models.Message, error)

	// MarkRead marks messages addressed to the caller as read, resets the
	// unread counter and broadcasts a read event.
	MarkRead(ctx context.Context, userID, chatID string) error
}
