package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	chatRepo "appispot/database/repository/chat"
	"appispot/models"
	"appispot/realtime"

	"github.com/google/uuid"
)

// memChatRepo is an in-memory ChatRepository. EnsureChat dedupes on the pair
// key under a lock, mirroring the unique index the Mongo implementation
// relies on.
type memChatRepo struct {
	mu       sync.Mutex
	byPair   map[string]*models.Chat
	byID     map[string]*models.Chat
	messages map[string][]models.Message
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		byPair:   make(map[string]*models.Chat),
		byID:     make(map[string]*models.Chat),
		messages: make(map[string][]models.Message),
	}
}

func (r *memChatRepo) EnsureChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.ChatPairKey(userA, userB)
	if c, ok := r.byPair[key]; ok {
		cp := *c
		return &cp, nil
	}
	c := &models.Chat{
		ID:           uuid.New().String(),
		Participants: []string{userA, userB},
		PairKey:      key,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.byPair[key] = c
	r.byID[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[chatID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Chat
	for _, c := range r.byID {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memChatRepo) AppendMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %s not found", chatID)
	}
	c.Seq++
	msg := models.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Seq:       c.Seq,
		CreatedAt: time.Now(),
	}
	r.messages[chatID] = append(r.messages[chatID], msg)
	c.LastMessage = &msg
	c.UnreadCount++
	c.UpdatedAt = time.Now()
	return &msg, nil
}

func (r *memChatRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.messages[chatID]...), nil
}

func (r *memChatRepo) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	msgs := r.messages[chatID]
	for i := range msgs {
		if !msgs[i].Read && msgs[i].SenderID != readerID {
			msgs[i].Read = true
			modified++
		}
	}
	// The flip and the reset are one atomic step, like the mongo
	// repository's transaction.
	if modified > 0 {
		if c, ok := r.byID[chatID]; ok {
			c.UnreadCount = 0
		}
	}
	return modified, nil
}

var _ chatRepo.ChatRepository = (*memChatRepo)(nil)

// captureSink records delivered events for one session.
type captureSink struct {
	mu     sync.Mutex
	events [][]byte
}

func (s *captureSink) Deliver(event []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) Close() {}

func (s *captureSink) decoded(t *testing.T) []Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	for i, raw := range s.events {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			t.Fatalf("decode event %d: %v", i, err)
		}
	}
	return out
}

func testRelay() (*DefaultRelay, *realtime.MemoryBus) {
	bus := realtime.NewMemoryBus()
	return NewDefaultRelay(newMemChatRepo(), bus), bus
}

func joinSession(t *testing.T, relay *DefaultRelay, userID, chatID string) (*realtime.Session, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	sess := realtime.NewSession(uuid.New().String(), userID, sink)
	if err := relay.JoinRoom(context.Background(), sess, chatID); err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
	return sess, sink
}

func TestCreateChatDedupe(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	first, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same pair in either order resolves to the same chat.
	second, err := relay.CreateChat(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("create reversed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected one chat per pair, got %s and %s", first.ID, second.ID)
	}
}

func TestCreateChatConcurrentDedupe(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	const attempts = 16
	ids := make(chan string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := relay.CreateChat(ctx, "alice", "bob")
			if err != nil {
				t.Error(err)
				return
			}
			ids <- c.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Errorf("concurrent creates produced %d distinct chats, want 1", len(seen))
	}
}

func TestCreateChatWithSelf(t *testing.T) {
	relay, _ := testRelay()
	if _, err := relay.CreateChat(context.Background(), "alice", "alice"); !errors.Is(err, ErrSelfChat) {
		t.Errorf("got %v, want ErrSelfChat", err)
	}
}

func TestSendMessageDeliversToJoinedSessions(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, bobSink := joinSession(t, relay, "bob", c.ID)
	_, aliceSink := joinSession(t, relay, "alice", c.ID)

	msg, err := relay.SendMessage(ctx, "alice", c.ID, "hi bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Seq != 1 {
		t.Errorf("Seq = %d, want 1", msg.Seq)
	}

	// Exactly one receive_message event per joined session, including the
	// sender's own sessions.
	for name, sink := range map[string]*captureSink{"bob": bobSink, "alice": aliceSink} {
		events := sink.decoded(t)
		if len(events) != 1 {
			t.Fatalf("%s: got %d events, want 1", name, len(events))
		}
		if events[0].Type != EventReceiveMessage {
			t.Errorf("%s: event type = %s, want %s", name, events[0].Type, EventReceiveMessage)
		}
		payload, _ := json.Marshal(events[0].Payload)
		var got models.Message
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("%s: decode payload: %v", name, err)
		}
		if got.Content != "hi bob" || got.SenderID != "alice" {
			t.Errorf("%s: payload = %+v", name, got)
		}
	}
}

func TestSendMessageOrdering(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, bobSink := joinSession(t, relay, "bob", c.ID)

	for i := 1; i <= 5; i++ {
		if _, err := relay.SendMessage(ctx, "alice", c.ID, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	events := bobSink.decoded(t)
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	for i, ev := range events {
		payload, _ := json.Marshal(ev.Payload)
		var got models.Message
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("decode payload %d: %v", i, err)
		}
		if got.Seq != int64(i+1) {
			t.Errorf("event %d: Seq = %d, want %d", i, got.Seq, i+1)
		}
		if want := fmt.Sprintf("message %d", i+1); got.Content != want {
			t.Errorf("event %d: Content = %q, want %q", i, got.Content, want)
		}
	}

	// Persisted history matches delivery order.
	history, err := relay.Messages(ctx, "bob", c.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	for i, m := range history {
		if m.Seq != int64(i+1) {
			t.Errorf("history %d: Seq = %d, want %d", i, m.Seq, i+1)
		}
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, bobSink := joinSession(t, relay, "bob", c.ID)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := relay.SendMessage(ctx, "alice", c.ID, content); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("content %q: got %v, want ErrEmptyContent", content, err)
		}
	}

	// No message persisted, no event broadcast, unread untouched.
	history, _ := relay.Messages(ctx, "alice", c.ID)
	if len(history) != 0 {
		t.Errorf("expected no messages, got %d", len(history))
	}
	if events := bobSink.decoded(t); len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	chats, _ := relay.ListChats(ctx, "bob")
	if chats[0].UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0", chats[0].UnreadCount)
	}
}

func TestForbiddenForNonParticipants(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := relay.SendMessage(ctx, "mallory", c.ID, "let me in"); !errors.Is(err, ErrForbidden) {
		t.Errorf("send: got %v, want ErrForbidden", err)
	}
	if _, err := relay.Messages(ctx, "mallory", c.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("messages: got %v, want ErrForbidden", err)
	}
	if err := relay.MarkRead(ctx, "mallory", c.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("markRead: got %v, want ErrForbidden", err)
	}

	sess := realtime.NewSession("s-mallory", "mallory", &captureSink{})
	if err := relay.JoinRoom(ctx, sess, c.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("join: got %v, want ErrForbidden", err)
	}

	if _, err := relay.SendMessage(ctx, "alice", "no-such-chat", "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown chat: got %v, want ErrNotFound", err)
	}
}

func TestMarkReadFlipsOnlyAddressedMessages(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, aliceSink := joinSession(t, relay, "alice", c.ID)

	if _, err := relay.SendMessage(ctx, "alice", c.ID, "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := relay.SendMessage(ctx, "bob", c.ID, "two"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := relay.MarkRead(ctx, "bob", c.ID); err != nil {
		t.Fatalf("markRead: %v", err)
	}

	history, _ := relay.Messages(ctx, "bob", c.ID)
	for _, m := range history {
		switch m.SenderID {
		case "alice":
			if !m.Read {
				t.Errorf("message %q addressed to bob should be read", m.Content)
			}
		case "bob":
			if m.Read {
				t.Errorf("bob's own message %q must stay unread", m.Content)
			}
		}
	}

	chats, _ := relay.ListChats(ctx, "bob")
	if chats[0].UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0", chats[0].UnreadCount)
	}

	// Alice's sessions hear about the read. Two message events plus one
	// read event.
	events := aliceSink.decoded(t)
	var readEvents int
	for _, ev := range events {
		if ev.Type == EventMessagesRead {
			readEvents++
		}
	}
	if readEvents != 1 {
		t.Errorf("got %d messages_read events, want 1", readEvents)
	}

	// A second markRead with nothing unread stays silent.
	if err := relay.MarkRead(ctx, "bob", c.ID); err != nil {
		t.Fatalf("markRead again: %v", err)
	}
	events = aliceSink.decoded(t)
	readEvents = 0
	for _, ev := range events {
		if ev.Type == EventMessagesRead {
			readEvents++
		}
	}
	if readEvents != 1 {
		t.Errorf("redundant markRead must not broadcast, got %d read events", readEvents)
	}
}

func TestUnreadCountSurvivesReads(t *testing.T) {
	relay, _ := testRelay()
	ctx := context.Background()

	c, err := relay.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, content := range []string{"one", "two"} {
		if _, err := relay.SendMessage(ctx, "alice", c.ID, content); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := relay.MarkRead(ctx, "bob", c.ID); err != nil {
		t.Fatalf("markRead: %v", err)
	}

	// A message arriving after the read keeps its count.
	if _, err := relay.SendMessage(ctx, "alice", c.ID, "three"); err != nil {
		t.Fatalf("send: %v", err)
	}
	chats, _ := relay.ListChats(ctx, "bob")
	if chats[0].UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", chats[0].UnreadCount)
	}

	history, _ := relay.Messages(ctx, "bob", c.ID)
	var unread int
	for _, m := range history {
		if !m.Read {
			unread++
		}
	}
	if unread != 1 {
		t.Errorf("unread messages = %d, want 1", unread)
	}
}
