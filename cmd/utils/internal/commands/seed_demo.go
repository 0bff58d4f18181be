package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/brewchat/brewchat/cmd/utils/internal/seeding"
)

const conversationSeedID = "demo_conversations_v1"

// SeedDemo seeds demo conversations into the chat database. Demo orders are
// seeded by the order service itself when started with seeding.demo=true.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	chatDB := client.Database("brewchat_chat")
	if err := seedConversationDemo(ctx, chatDB, logger); err != nil {
		return fmt.Errorf("seed conversation demo: %w", err)
	}

	return nil
}

func seedConversationDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	seedsCollection := db.Collection("_seeds")
	count, err := seedsCollection.CountDocuments(ctx, bson.M{"_id": conversationSeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}

	if count > 0 {
		logger.Info("Conversation demo seeds already applied, skipping")
		return nil
	}

	ids, err := seeding.SeedConversations(ctx, db)
	if err != nil {
		return fmt.Errorf("seed conversations: %w", err)
	}

	// The tracker keeps the seeded ids so clear-demo removes exactly these.
	_, err = seedsCollection.InsertOne(ctx, bson.M{
		"_id":         conversationSeedID,
		"description": "Create demo ordering conversations with analytics and conversions",
		"ids":         ids,
		"applied_at":  time.Now(),
	})
	if err != nil {
		logger.Infof("⚠️  Failed to mark seed as applied: %v", err)
	}

	logger.Info("Conversation demo seeds applied successfully", "count", len(ids))
	return nil
}
