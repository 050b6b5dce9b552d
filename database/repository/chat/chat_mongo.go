package chatRepo

import (
	"context"
	"fmt"
	"time"

	"appispot/database"
	"appispot/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoChatRepo implements ChatRepository using MongoDB.
type MongoChatRepo struct {
	chatColl    *mongo.Collection
	messageColl *mongo.Collection
}

// NewMongoChatRepo constructs a new instance of MongoChatRepo.
func NewMongoChatRepo() ChatRepository {
	db := database.DB()
	repo := &MongoChatRepo{
		chatColl:    db.Collection("chats"),
		messageColl: db.Collection("messages"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func (r *MongoChatRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chatIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// One chat per unordered participant pair.
		{Keys: bson.D{{Key: "pairKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
	}
	if _, err := r.chatColl.Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return fmt.Errorf("failed to create chat indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.messageColl.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

// ensureChatAttempts bounds the upsert retry loop in EnsureChat.
const ensureChatAttempts = 3

// retryOnDuplicateKey runs attempt until it succeeds, fails with a
// non-duplicate error, or the attempts run out. Two concurrent upserts on the
// same unique key can both miss the filter and race to insert; the loser gets
// E11000 and finds the winner's document on the next pass.
func retryOnDuplicateKey(attempts int, attempt func() (*models.Chat, error)) (*models.Chat, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		chat, err := attempt()
		if err == nil {
			return chat, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// EnsureChat upserts on the canonical pair key, so concurrent creates for the
// same pair converge on a single chat document.
func (r *MongoChatRepo) EnsureChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	pairKey := models.ChatPairKey(userA, userB)

	chat, err := retryOnDuplicateKey(ensureChatAttempts, func() (*models.Chat, error) {
		now := time.Now()
		filter := bson.M{"pairKey": pairKey}
		update := bson.M{
			"$setOnInsert": bson.M{
				"id":           uuid.New().String(),
				"participants": []string{userA, userB},
				"pairKey":      pairKey,
				"unreadCount":  0,
				"seq":          int64(0),
				"createdAt":    now,
				"updatedAt":    now,
			},
		}
		opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

		var c models.Chat
		if err := r.chatColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
			return nil, err
		}
		return &c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure chat for pair %s: %w", pairKey, err)
	}
	return chat, nil
}

// GetChat retrieves a chat by ID; nil if not found.
func (r *MongoChatRepo) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.chatColl.FindOne(ctx, bson.M{"id": chatID}).Decode(&chat); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch chat %s: %w", chatID, err)
	}
	return &chat, nil
}

// ListChats retrieves a user's chats, most recently active first.
func (r *MongoChatRepo) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.chatColl.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var chats []models.Chat
	for cursor.Next(ctx) {
		var c models.Chat
		if err := cursor.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, nil
}

// AppendMessage claims the next sequence number on the chat document, inserts
// the message, and updates lastMessage — all in one session transaction so the
// per-chat sequence stays gapless and ordered.
func (r *MongoChatRepo) AppendMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	client := r.chatColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var msg models.Message

	txnFn := func(sc mongo.SessionContext) error {
		update := bson.M{
			"$inc": bson.M{"seq": int64(1), "unreadCount": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var chat models.Chat
		if err := r.chatColl.FindOneAndUpdate(sc, bson.M{"id": chatID}, update, opts).Decode(&chat); err != nil {
			if err == mongo.ErrNoDocuments {
				return fmt.Errorf("chat %s not found", chatID)
			}
			return fmt.Errorf("failed to advance chat sequence: %w", err)
		}

		msg = models.Message{
			ID:        uuid.New().String(),
			ChatID:    chatID,
			SenderID:  senderID,
			Content:   content,
			Read:      false,
			Seq:       chat.Seq,
			CreatedAt: time.Now(),
		}
		if _, err := r.messageColl.InsertOne(sc, msg); err != nil {
			return fmt.Errorf("insert message failed: %w", err)
		}

		lastUpdate := bson.M{"$set": bson.M{"lastMessage": msg}}
		if _, err := r.chatColl.UpdateOne(sc, bson.M{"id": chatID}, lastUpdate); err != nil {
			return fmt.Errorf("failed to update last message: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return nil, fmt.Errorf("message transaction failed: %w", err)
	}

	return &msg, nil
}

// ListMessages retrieves a chat's messages in sequence order.
func (r *MongoChatRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := r.messageColl.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for chat %s: %w", chatID, err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	for cursor.Next(ctx) {
		var m models.Message
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return messages, nil
}

// MarkRead flips read on unread messages addressed to readerID (i.e. sent by
// the other participant) and resets the chat's unread counter. Both writes run
// in one session transaction so an AppendMessage increment cannot land between
// them and be silently zeroed; an append serializes entirely before the flip
// (and is covered by it) or entirely after (and its increment survives).
func (r *MongoChatRepo) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	client := r.chatColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var modified int64

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{"chatId": chatID, "read": false, "senderId": bson.M{"$ne": readerID}}
		result, err := r.messageColl.UpdateMany(sc, filter, bson.M{"$set": bson.M{"read": true}})
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		modified = result.ModifiedCount
		if modified == 0 {
			return nil
		}

		reset := bson.M{"$set": bson.M{"unreadCount": 0}}
		if _, err := r.chatColl.UpdateOne(sc, bson.M{"id": chatID}, reset); err != nil {
			return fmt.Errorf("failed to reset unread counter: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return 0, fmt.Errorf("mark read transaction failed: %w", err)
	}

	return modified, nil
}
