package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	chatRepo "appispot/database/repository/chat"
	"appispot/models"
	"appispot/realtime"
	"appispot/utils"

	"go.uber.org/zap"
)

// DefaultRelay implements ChatService on a chat repository and a room bus.
// Sends within one chat are serialized with a per-chat mutex so persist order
// and broadcast order agree.
type DefaultRelay struct {
	Repo chatRepo.ChatRepository
	Bus  realtime.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDefaultRelay constructs a relay over the given repository and bus.
func NewDefaultRelay(repo chatRepo.ChatRepository, bus realtime.Bus) *DefaultRelay {
	return &DefaultRelay{
		Repo:  repo,
		Bus:   bus,
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *DefaultRelay) chatLock(chatID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[chatID] = lock
	}
	return lock
}

// memberChat loads the chat and verifies the user belongs to it.
func (r *DefaultRelay) memberChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	c, err := r.Repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if !c.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return c, nil
}

// CreateChat returns the chat between the two users, creating it if needed.
func (r *DefaultRelay) CreateChat(ctx context.Context, userID, otherID string) (*models.Chat, error) {
	if userID == otherID {
		return nil, ErrSelfChat
	}
	return r.Repo.EnsureChat(ctx, userID, otherID)
}

// ListChats retrieves the user's chats, most recently active first.
func (r *DefaultRelay) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return r.Repo.ListChats(ctx, userID)
}

// Messages retrieves a chat's history in send order.
func (r *DefaultRelay) Messages(ctx context.Context, userID, chatID string) ([]models.Message, error) {
	if _, err := r.memberChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return r.Repo.ListMessages(ctx, chatID)
}

// JoinRoom subscribes the session to the chat's events.
func (r *DefaultRelay) JoinRoom(ctx context.Context, s *realtime.Session, chatID string) error {
	if _, err := r.memberChat(ctx, s.UserID, chatID); err != nil {
		return err
	}
	if err := r.Bus.Join(chatID, s); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}
	utils.GetLogger().Debug("session joined chat",
		zap.String("sessionId", s.ID), zap.String("chatId", chatID))
	return nil
}

// LeaveRoom unsubscribes the session from the chat's events.
func (r *DefaultRelay) LeaveRoom(s *realtime.Session, chatID string) {
	r.Bus.Leave(chatID, s.ID)
}

// SendMessage persists the message and broadcasts it to joined sessions. The
// per-chat lock keeps broadcast order equal to persistence order.
func (r *DefaultRelay) SendMessage(ctx context.Context, senderID, chatID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if _, err := r.memberChat(ctx, senderID, chatID); err != nil {
		return nil, err
	}

	lock := r.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := r.Repo.AppendMessage(ctx, chatID, senderID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	r.broadcast(chatID, Event{Type: EventReceiveMessage, Payload: msg})
	return msg, nil
}

// MarkRead marks the caller's unread messages as read and broadcasts a read
// event so other sessions can clear their badges.
func (r *DefaultRelay) MarkRead(ctx context.Context, userID, chatID string) error {
	if _, err := r.memberChat(ctx, userID, chatID); err != nil {
		return err
	}

	modified, err := r.Repo.MarkRead(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	if modified > 0 {
		r.broadcast(chatID, Event{Type: EventMessagesRead, Payload: map[string]string{
			"chatId": chatID,
			"userId": userID,
		}})
	}
	return nil
}

func (r *DefaultRelay) broadcast(chatID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		utils.GetLogger().Error("failed to encode chat event", zap.Error(err))
		return
	}
	if err := r.Bus.Publish(chatID, data); err != nil {
		utils.GetLogger().Warn("chat broadcast failed",
			zap.String("chatId", chatID), zap.Error(err))
	}
}
