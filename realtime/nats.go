package realtime

import (
	"fmt"
	"sync"

	"appispot/utils"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBus fans room events out through NATS so sessions connected to
// different nodes still receive them. Local delivery goes through an embedded
// MemoryBus; Publish sends to NATS and each node's subscription relays the
// event to its own members.
type NATSBus struct {
	conn  *nats.Conn
	local *MemoryBus

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSBus connects to the NATS server at url.
func NewNATSBus(url string) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			utils.GetLogger().Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			utils.GetLogger().Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NATSBus{
		conn:  conn,
		local: NewMemoryBus(),
		subs:  make(map[string]*nats.Subscription),
	}, nil
}

func subjectFor(room string) string {
	return fmt.Sprintf("chat.%s", room)
}

// Join adds the session locally and ensures this node is subscribed to the
// room's subject.
func (b *NATSBus) Join(room string, s *Session) error {
	if err := b.local.Join(room, s); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[room]; ok {
		return nil
	}
	sub, err := b.conn.Subscribe(subjectFor(room), func(msg *nats.Msg) {
		if err := b.local.Publish(room, msg.Data); err != nil {
			utils.GetLogger().Warn("local fan-out failed",
				zap.String("room", room), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to room %s: %w", room, err)
	}
	b.subs[room] = sub
	return nil
}

func (b *NATSBus) Leave(room string, sessionID string) {
	b.local.Leave(room, sessionID)
}

// Publish sends the event to the room's subject. Joined sessions on every
// node, this one included, receive it via the subscription.
func (b *NATSBus) Publish(room string, event []byte) error {
	if err := b.conn.Publish(subjectFor(room), event); err != nil {
		return fmt.Errorf("nats publish failed: %w", err)
	}
	return nil
}

func (b *NATSBus) Close() error {
	b.mu.Lock()
	for room, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			utils.GetLogger().Warn("unsubscribe failed", zap.String("room", room), zap.Error(err))
		}
	}
	b.subs = make(map[string]*nats.Subscription)
	b.mu.Unlock()

	b.conn.Close()
	return b.local.Close()
}
