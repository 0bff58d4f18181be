package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ClearDemo removes demo data from the chat and order databases.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	chatDB := client.Database("brewchat_chat")
	if err := clearConversationDemo(ctx, chatDB, logger); err != nil {
		return fmt.Errorf("clear conversation demo: %w", err)
	}

	orderDB := client.Database("brewchat_order")
	if err := clearOrderDemo(ctx, orderDB, logger); err != nil {
		return fmt.Errorf("clear order demo: %w", err)
	}

	return nil
}

func clearConversationDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	logger.Info("Clearing conversation demo data...")

	seedsCollection := db.Collection("_seeds")

	var tracker struct {
		IDs []uuid.UUID `bson:"ids"`
	}
	err := seedsCollection.FindOne(ctx, bson.M{"_id": conversationSeedID}).Decode(&tracker)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			logger.Info("No conversation demo seeds recorded, skipping")
			return nil
		}
		return fmt.Errorf("load seed tracker: %w", err)
	}

	conversations := db.Collection("conversations")
	result, err := conversations.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": tracker.IDs}})
	if err != nil {
		return fmt.Errorf("delete demo conversations: %w", err)
	}
	logger.Info("Deleted demo conversations", "count", result.DeletedCount)

	trackerResult, err := seedsCollection.DeleteOne(ctx, bson.M{"_id": conversationSeedID})
	if err != nil {
		return fmt.Errorf("delete conversation seed tracker: %w", err)
	}
	logger.Info("Cleared conversation seed tracker", "deleted", trackerResult.DeletedCount)

	return nil
}

func clearOrderDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	logger.Info("Clearing order demo data...")

	// Demo orders are the only ones without a session id: real orders always
	// come from a conversation.
	orders := db.Collection("orders")
	result, err := orders.DeleteMany(ctx, bson.M{"session_id": bson.M{"$exists": false}})
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", result.DeletedCount)

	return nil
}
