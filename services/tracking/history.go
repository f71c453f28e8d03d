package tracking

import (
	"context"

	"homecare/models"
)

// VisitHistory returns a nurse's archived sessions from the audit trail.
func (s *DefaultTrackingService) VisitHistory(ctx context.Context, nurseID string) ([]models.TrackingSession, error) {
	if nurseID == "" {
		return nil, NewValidationError("nurseId is required")
	}
	return s.Audit.GetSessionsByNurse(ctx, nurseID)
}

// ArchivedSession returns the final recorded state of an ended session.
func (s *DefaultTrackingService) ArchivedSession(ctx context.Context, requestID string) (*models.TrackingSession, error) {
	session, err := s.Audit.GetArchivedSession(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
