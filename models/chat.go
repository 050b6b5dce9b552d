package models

import (
	"strings"
	"time"
)

// Chat is a two-participant messaging thread. At most one chat exists per
// unordered participant pair, enforced by the unique pairKey index.
type Chat struct {
	ID           string    `bson:"id" json:"id"`
	Participants []string  `bson:"participants" json:"participants"` // exactly two user IDs
	PairKey      string    `bson:"pairKey" json:"-"`
	LastMessage  *Message  `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCount  int       `bson:"unreadCount" json:"unreadCount"`
	Seq          int64     `bson:"seq" json:"-"` // append-only message sequence
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatPairKey builds the canonical key for an unordered participant pair.
func ChatPairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}

// Message is immutable once created, except for the read flag which may only
// transition false -> true.
type Message struct {
	ID        string    `bson:"id" json:"id"`
	ChatID    string    `bson:"chatId" json:"chatId"`
	SenderID  string    `bson:"senderId" json:"senderId"`
	Content   string    `bson:"content" json:"content"`
	Read      bool      `bson:"read" json:"read"`
	Seq       int64     `bson:"seq" json:"seq"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
