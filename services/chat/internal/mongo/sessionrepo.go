package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brewchat/brewchat/services/chat/internal/chat"
)

type ConversationRepo struct {
	collection *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
	}
}

func (r *ConversationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "finalized", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("cannot ensure conversation indexes: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *chat.Conversation) error {
	if c == nil {
		return fmt.Errorf("conversation is nil")
	}

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("cannot create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Get(ctx context.Context, id uuid.UUID) (*chat.Conversation, error) {
	var c chat.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get conversation: %w", err)
	}
	return &c, nil
}

func (r *ConversationRepo) List(ctx context.Context, since, until *time.Time) ([]chat.Conversation, error) {
	filter := bson.M{}
	if since != nil || until != nil {
		createdAt := bson.M{}
		if since != nil {
			createdAt["$gte"] = *since
		}
		if until != nil {
			createdAt["$lt"] = *until
		}
		filter["created_at"] = createdAt
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var result []chat.Conversation
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode conversations: %w", err)
	}
	return result, nil
}

func (r *ConversationRepo) AppendTurns(ctx context.Context, id uuid.UUID, turns []chat.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{"turns": bson.M{"$each": turns}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot append turns: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation not found")
	}
	return nil
}

func (r *ConversationRepo) SaveAnalytics(ctx context.Context, id uuid.UUID, analytics chat.AnalyticsState) error {
	update := bson.M{
		"$set": bson.M{
			"analytics":  analytics,
			"updated_at": time.Now(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("cannot save analytics: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation not found")
	}
	return nil
}

// MarkConverted stamps the conversion exactly once. A second call for the
// same conversation matches nothing and is a no-op, so conversion never
// flips back or re-points at a different order.
func (r *ConversationRepo) MarkConverted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error {
	filter := bson.M{"_id": id, "finalized": bson.M{"$ne": true}}
	update := bson.M{
		"$set": bson.M{
			"finalized":       true,
			"linked_order_id": orderID,
			"updated_at":      time.Now(),
		},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("cannot mark conversation converted: %w", err)
	}
	return nil
}
