package trackingRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for frequently used fields in queries.
func (r *mongoAuditRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	requestIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "request_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	nurseIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "nurse_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{requestIdx, nurseIdx}); err != nil {
		return err
	}

	escalationIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "escalated_at", Value: -1}},
	}
	_, err := r.escalations.Indexes().CreateMany(ctx, []mongo.IndexModel{escalationIdx})
	return err
}
