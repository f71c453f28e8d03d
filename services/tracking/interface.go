package tracking

import (
	"context"
	"time"

	"homecare/config"
	"homecare/models"

	"go.uber.org/zap"
)

// Broadcaster is the room-scoped fan-out the tracking core publishes through.
// Satisfied by realtime.Hub.
type Broadcaster interface {
	Emit(requestID, event string, payload interface{})
	CloseRoom(requestID string)
}

// TaskDispatcher enqueues background notification work so a slow push
// delivery never blocks a timer or a transition.
type TaskDispatcher interface {
	EnqueueReminder(payload models.TrackingTaskPayload) error
	EnqueueEscalation(payload models.TrackingTaskPayload) error
	EnqueueInvite(payload models.TrackingTaskPayload) error
}

// EscalationRecorder persists escalation events for incident review.
// Satisfied by the Mongo audit repository.
type EscalationRecorder interface {
	RecordEscalation(ctx context.Context, requestID string, missedCount int) error
}

// SessionArchiver persists a finished session's final state.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, session models.TrackingSession) error
}

// AuditReader reads archived sessions back for history views. Satisfied by
// the Mongo audit repository.
type AuditReader interface {
	GetArchivedSession(ctx context.Context, requestID string) (*models.TrackingSession, error)
	GetSessionsByNurse(ctx context.Context, nurseID string) ([]models.TrackingSession, error)
}

// Config carries the tracking knobs, injectable at startup.
type Config struct {
	MinTrackableMinutes     int
	CheckInIntervalMinutes  int
	ReminderTimeoutMinutes  int
	EscalationThreshold     int
	MaxTrustedShares        int
	SessionTTL              time.Duration
	ShareBaseURL            string
	ShareTokenSecret        string
	DefaultPhoneCountryCode string
}

// ConfigFromApp builds the tracking config from the loaded app config.
func ConfigFromApp() Config {
	c := config.AppConfig
	return Config{
		MinTrackableMinutes:     c.MinTrackableMinutes,
		CheckInIntervalMinutes:  c.CheckInIntervalMinutes,
		ReminderTimeoutMinutes:  c.ReminderTimeoutMinutes,
		EscalationThreshold:     c.EscalationThreshold,
		MaxTrustedShares:        c.MaxTrustedShares,
		SessionTTL:              time.Duration(c.SessionTTLHours) * time.Hour,
		ShareBaseURL:            c.ShareBaseURL,
		ShareTokenSecret:        c.ShareTokenSecret,
		DefaultPhoneCountryCode: c.DefaultPhoneCountryCode,
	}
}

// TrackingService coordinates one in-progress field visit: lifecycle
// transitions, live location fan-out, the welfare monitor, and trusted-contact
// shares.
type TrackingService interface {
	OpenSession(ctx context.Context, req models.OpenSessionRequest) (*models.TrackingSession, error)
	GetSession(ctx context.Context, requestID string) (*models.TrackingSession, error)
	Transition(ctx context.Context, requestID string, newStatus models.ServiceStatus, actor, note string) (*models.TrackingSession, error)
	EndTracking(ctx context.Context, requestID string) error

	PublishLocation(ctx context.Context, requestID string, update models.LocationUpdate) error

	CheckIn(ctx context.Context, requestID, message string) (*models.CheckInAck, error)

	Share(ctx context.Context, requestID string, contact models.TrustedContact) (*models.ShareResponse, error)
	Revoke(ctx context.Context, requestID, phone string) error
	ValidateShareToken(ctx context.Context, requestID, token string) error
	InviteMessage(session *models.TrackingSession, share *models.TrustedContactShare) string

	VisitHistory(ctx context.Context, nurseID string) ([]models.TrackingSession, error)
	ArchivedSession(ctx context.Context, requestID string) (*models.TrackingSession, error)
}

// DefaultTrackingService implements TrackingService.
type DefaultTrackingService struct {
	Store    SessionStore
	Hub      Broadcaster
	Monitor  *CheckInMonitor
	Archiver SessionArchiver
	Audit    AuditReader
	Dispatch TaskDispatcher
	Cfg      Config
	Logger   *zap.Logger
}
