package trackingRepo

import (
	"context"

	"homecare/database"
	"homecare/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AuditRepository persists finished tracking sessions and share records.
// Live session state lives in Redis; this repository is the durable audit
// trail (full status history, share grants and revocations, escalations).
type AuditRepository interface {
	ArchiveSession(ctx context.Context, session models.TrackingSession) error
	GetArchivedSession(ctx context.Context, requestID string) (*models.TrackingSession, error)
	GetSessionsByNurse(ctx context.Context, nurseID string) ([]models.TrackingSession, error)
	RecordEscalation(ctx context.Context, requestID string, missedCount int) error
}

type mongoAuditRepo struct {
	sessions    *mongo.Collection
	escalations *mongo.Collection
}

// NewMongoAuditRepo returns a new AuditRepository instance using MongoDB.
func NewMongoAuditRepo() AuditRepository {
	db := database.MongoClient.Database("homecare")
	repo := &mongoAuditRepo{
		sessions:    db.Collection("tracking_sessions"),
		escalations: db.Collection("tracking_escalations"),
	}
	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("trackingRepo: failed to ensure indexes", zap.Error(err))
	}
	return repo
}
