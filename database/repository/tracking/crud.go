package trackingRepo

import (
	"context"
	"time"

	"homecare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArchiveSession upserts the final state of a session, keyed by request ID.
// Called when a session reaches a terminal status or tracking is ended.
func (r *mongoAuditRepo) ArchiveSession(ctx context.Context, session models.TrackingSession) error {
	session.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := r.sessions.ReplaceOne(ctx, bson.M{"request_id": session.RequestID}, session, opts)
	return err
}

// GetArchivedSession returns an archived session by request ID, or nil when
// none was recorded.
func (r *mongoAuditRepo) GetArchivedSession(ctx context.Context, requestID string) (*models.TrackingSession, error) {
	var session models.TrackingSession
	err := r.sessions.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionsByNurse fetches all archived sessions for a nurse.
func (r *mongoAuditRepo) GetSessionsByNurse(ctx context.Context, nurseID string) ([]models.TrackingSession, error) {
	cursor, err := r.sessions.Find(ctx, bson.M{"nurse_id": nurseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.TrackingSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// RecordEscalation writes a standalone escalation event for incident review.
func (r *mongoAuditRepo) RecordEscalation(ctx context.Context, requestID string, missedCount int) error {
	_, err := r.escalations.InsertOne(ctx, bson.M{
		"request_id":   requestID,
		"missed_count": missedCount,
		"escalated_at": time.Now(),
	})
	return err
}
