package repository

import (
	"context"
	"fmt"

	"supply_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository is the durable message store contract. Appends are
// independent inserts keyed by room; messages are immutable once written, so
// reads need no locking.
type MessageRepository interface {
	// Insert appends one persisted message.
	Insert(ctx context.Context, msg *domain.ChatMessage) error
	// FindRecent returns one page of a room's history. Page 1 is the newest
	// page; messages inside a page run oldest-first. hasMore reports whether
	// older pages exist. An unknown room yields an empty page, not an error.
	FindRecent(ctx context.Context, roomKey string, page, pageSize int) ([]domain.ChatMessage, bool, error)
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository backed by the
// chat_messages collection.
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("chat_messages"),
	}
}

// EnsureIndexes creates the (room_key, created_at) index history reads walk.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("chat_messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_key", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	return err
}

func (r *chatMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *chatMessageRepository) FindRecent(ctx context.Context, roomKey string, page, pageSize int) ([]domain.ChatMessage, bool, error) {
	filter := bson.M{"room_key": roomKey}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize + 1)) // one extra row decides hasMore

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, fmt.Errorf("find messages: %w", err)
	}

	var messages []domain.ChatMessage
	if err := cur.All(ctx, &messages); err != nil {
		return nil, false, fmt.Errorf("decode messages: %w", err)
	}

	hasMore := false
	if len(messages) > pageSize {
		hasMore = true
		messages = messages[:pageSize]
	}

	// newest-first from the store, oldest-first inside the page
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, hasMore, nil
}
