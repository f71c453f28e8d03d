package tracking

import (
	"context"

	"homecare/models"

	"go.uber.org/zap"
)

// OpenSession starts tracking for an accepted service request. The session
// enters the lifecycle at accepted with a seeded history entry.
func (s *DefaultTrackingService) OpenSession(ctx context.Context, req models.OpenSessionRequest) (*models.TrackingSession, error) {
	if req.RequestID == "" || req.NurseID == "" || req.ClientID == "" {
		return nil, NewValidationError("requestId, nurseId and clientId are required")
	}
	if req.EstimatedDurationMinutes <= 0 {
		return nil, NewValidationError("estimatedDurationMinutes must be positive")
	}

	now := s.Monitor.Sched.Now()
	session := &models.TrackingSession{
		RequestID:                req.RequestID,
		NurseID:                  req.NurseID,
		ClientID:                 req.ClientID,
		NurseFirstName:           req.NurseFirstName,
		Status:                   models.StatusAccepted,
		StatusHistory:            []models.StatusChange{{Status: models.StatusAccepted, ChangedAt: now, ChangedBy: req.NurseID}},
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Destination:              req.Destination,
		TrustedShares:            []models.TrustedContactShare{},
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.Store.Create(ctx, session); err != nil {
		return nil, err
	}

	s.Logger.Info("tracking: session opened",
		zap.String("requestId", req.RequestID),
		zap.String("nurseId", req.NurseID),
		zap.Int("estimatedDurationMinutes", req.EstimatedDurationMinutes))
	return session, nil
}

// GetSession returns the live session for a request ID.
func (s *DefaultTrackingService) GetSession(ctx context.Context, requestID string) (*models.TrackingSession, error) {
	return s.Store.Get(ctx, requestID)
}

// EndTracking explicitly stops tracking for a session without a lifecycle
// transition (the nurse closes the tracking screen). Safe to call after the
// session has already ended.
func (s *DefaultTrackingService) EndTracking(ctx context.Context, requestID string) error {
	if err := s.teardown(ctx, requestID); err != nil {
		return err
	}
	s.Logger.Info("tracking: tracking ended explicitly", zap.String("requestId", requestID))
	return nil
}

// teardown cancels every outstanding timer, voids all trusted shares, closes
// the room so no fan-out survives, archives the final state and drops the
// live session. Idempotent: a second call on an ended session is a no-op.
func (s *DefaultTrackingService) teardown(ctx context.Context, requestID string) error {
	s.Monitor.Stop(requestID)

	updated, err := s.Store.Update(ctx, requestID, func(session *models.TrackingSession) error {
		now := s.Monitor.Sched.Now()
		for i := range session.TrustedShares {
			if session.TrustedShares[i].IsActive {
				session.TrustedShares[i].IsActive = false
				session.TrustedShares[i].RevokedAt = &now
			}
		}
		if session.CheckIn != nil {
			session.CheckIn.IsActive = false
			if session.CheckIn.State != models.CheckInEscalated {
				session.CheckIn.State = models.CheckInInactive
			}
		}
		return nil
	})
	if err == ErrSessionNotFound {
		s.Hub.CloseRoom(requestID)
		return nil
	}
	if err != nil {
		return err
	}

	s.Hub.CloseRoom(requestID)

	if s.Archiver != nil {
		if archiveErr := s.Archiver.ArchiveSession(ctx, *updated); archiveErr != nil {
			s.Logger.Warn("tracking: failed to archive session",
				zap.String("requestId", requestID), zap.Error(archiveErr))
		}
	}

	return s.Store.Delete(ctx, requestID)
}
