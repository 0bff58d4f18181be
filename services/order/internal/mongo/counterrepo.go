package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TicketCounterRepo assigns order numbers from a single counter document.
// findOneAndUpdate with $inc is atomic server-side, so concurrent
// finalizations across sessions never collide or repeat a number.
type TicketCounterRepo struct {
	collection *mongo.Collection
}

func NewTicketCounterRepo(db *mongo.Database) *TicketCounterRepo {
	return &TicketCounterRepo{
		collection: db.Collection("counters"),
	}
}

func (r *TicketCounterRepo) Next(ctx context.Context) (int64, error) {
	filter := bson.M{"_id": "order_number"}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("cannot assign next order number: %w", err)
	}

	return doc.Seq, nil
}
