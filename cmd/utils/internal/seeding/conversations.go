package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SeedConversations inserts demo ordering conversations so the dashboard has
// realistic history on a fresh install. Documents mirror the chat service's
// conversation shape. The inserted ids are returned so the clear command can
// remove exactly what was seeded.
func SeedConversations(ctx context.Context, db *mongo.Database) ([]uuid.UUID, error) {
	now := time.Now()

	scenarios := []struct {
		age       time.Duration
		turns     []bson.M
		analytics bson.M
		converted bool
	}{
		{
			age: 45 * time.Minute,
			turns: []bson.M{
				{"speaker": "customer", "text": "Hi, can I get a large oat milk latte?"},
				{"speaker": "cashier", "text": "One large oat milk latte! Can I tempt you with a croissant to go with it?"},
				{"speaker": "customer", "text": "Sure, why not. That's everything."},
				{"speaker": "cashier", "text": "Great, order's in! That'll be ready at the counter shortly."},
			},
			analytics: bson.M{
				"off_menu_requests": []string{},
				"upsell_attempts":   []string{"croissant"},
				"upsell_successes":  []string{"croissant"},
			},
			converted: true,
		},
		{
			age: 30 * time.Minute,
			turns: []bson.M{
				{"speaker": "customer", "text": "Do you have bubble tea?"},
				{"speaker": "cashier", "text": "We don't carry bubble tea, sorry! Our iced chai is a house favorite if you'd like something similar."},
				{"speaker": "customer", "text": "No thanks, I'll pass."},
			},
			analytics: bson.M{
				"off_menu_requests": []string{"bubble tea"},
				"upsell_attempts":   []string{"iced chai"},
				"upsell_successes":  []string{},
			},
		},
		{
			age: 10 * time.Minute,
			turns: []bson.M{
				{"speaker": "customer", "text": "Two cold brews please."},
				{"speaker": "cashier", "text": "Two cold brews! Anything to eat with those?"},
				{"speaker": "customer", "text": "No, that's it. Confirm the order."},
				{"speaker": "cashier", "text": "Done, your ticket is at the counter!"},
			},
			analytics: bson.M{
				"off_menu_requests": []string{},
				"upsell_attempts":   []string{"pastry"},
				"upsell_successes":  []string{},
			},
			converted: true,
		},
	}

	collection := db.Collection("conversations")
	ids := make([]uuid.UUID, 0, len(scenarios))

	for i, sc := range scenarios {
		id := uuid.New()
		createdAt := now.Add(-sc.age)

		for j := range sc.turns {
			sc.turns[j]["at"] = createdAt.Add(time.Duration(j) * 20 * time.Second)
		}

		doc := bson.M{
			"_id":        id,
			"turns":      sc.turns,
			"analytics":  sc.analytics,
			"finalized":  sc.converted,
			"created_at": createdAt,
			"updated_at": createdAt,
		}
		if sc.converted {
			doc["linked_order_id"] = uuid.New()
		}

		if _, err := collection.InsertOne(ctx, doc); err != nil {
			return ids, fmt.Errorf("insert demo conversation %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
