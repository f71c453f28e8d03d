package tracking

import (
	"context"

	"homecare/models"
	"homecare/realtime"

	"go.uber.org/zap"
)

// allowedTransitions enumerates every legal forward edge of the lifecycle.
// Cancelled and rejected are reachable from any non-terminal state and are
// handled separately in validateTransition. A visit that needs no in-home
// phase may close out directly from arrived.
var allowedTransitions = map[models.ServiceStatus][]models.ServiceStatus{
	models.StatusPending:    {models.StatusAccepted},
	models.StatusAccepted:   {models.StatusOnTheWay},
	models.StatusOnTheWay:   {models.StatusArrived},
	models.StatusArrived:    {models.StatusInProgress, models.StatusCompleted},
	models.StatusInProgress: {models.StatusCompleted},
}

func validateTransition(from, to models.ServiceStatus) error {
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to}
	}
	if to == models.StatusCancelled || to == models.StatusRejected {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

type edge struct {
	from models.ServiceStatus
	to   models.ServiceStatus
}

// transitionEffect enumerates the side effects of one lifecycle edge so the
// state machine stays exhaustively testable. All effects are best-effort:
// a failed effect is logged as a warning and never rolls back the transition.
type transitionEffect struct {
	startBroadcast bool
	stopBroadcast  bool
	startMonitor   bool
	emit           string
	teardown       bool
}

var transitionEffects = map[edge]transitionEffect{
	{models.StatusAccepted, models.StatusOnTheWay}:    {startBroadcast: true, startMonitor: true},
	{models.StatusOnTheWay, models.StatusArrived}:     {stopBroadcast: true, emit: realtime.EventNurseArrived},
	{models.StatusArrived, models.StatusInProgress}:   {startBroadcast: true, emit: realtime.EventServiceStarted},
	{models.StatusArrived, models.StatusCompleted}:    {teardown: true, emit: realtime.EventServiceCompleted},
	{models.StatusInProgress, models.StatusCompleted}: {teardown: true, emit: realtime.EventServiceCompleted},
}

func effectsFor(from, to models.ServiceStatus) transitionEffect {
	if to == models.StatusCancelled || to == models.StatusRejected {
		return transitionEffect{teardown: true}
	}
	return transitionEffects[edge{from, to}]
}

// Transition validates and applies a lifecycle transition, appends to the
// status history, and runs the edge's side effects. Validation failures leave
// the session untouched; side-effect failures surface as warnings only.
func (s *DefaultTrackingService) Transition(ctx context.Context, requestID string, newStatus models.ServiceStatus, actor, note string) (*models.TrackingSession, error) {
	var from models.ServiceStatus

	updated, err := s.Store.Update(ctx, requestID, func(session *models.TrackingSession) error {
		from = session.Status
		if err := validateTransition(session.Status, newStatus); err != nil {
			return err
		}
		session.StatusHistory = append(session.StatusHistory, models.StatusChange{
			Status:    newStatus,
			ChangedAt: s.Monitor.Sched.Now(),
			ChangedBy: actor,
			Note:      note,
		})
		session.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("tracking: status transition",
		zap.String("requestId", requestID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
		zap.String("actor", actor))

	s.applyEffects(ctx, updated, from, newStatus)
	return updated, nil
}

func (s *DefaultTrackingService) applyEffects(ctx context.Context, session *models.TrackingSession, from, to models.ServiceStatus) {
	eff := effectsFor(from, to)
	requestID := session.RequestID

	if eff.emit != "" {
		s.Hub.Emit(requestID, eff.emit, session.Snapshot())
	}

	if eff.startBroadcast {
		s.Logger.Info("tracking: location broadcast active", zap.String("requestId", requestID))
	}
	if eff.stopBroadcast {
		s.Logger.Info("tracking: location broadcast paused", zap.String("requestId", requestID))
	}

	if eff.startMonitor {
		if err := s.Monitor.Start(ctx, session); err != nil {
			s.Logger.Warn("tracking: failed to start check-in monitor",
				zap.String("requestId", requestID), zap.Error(err))
		}
	}

	if eff.teardown {
		if err := s.teardown(ctx, requestID); err != nil {
			s.Logger.Warn("tracking: session teardown incomplete",
				zap.String("requestId", requestID), zap.Error(err))
		}
	}
}
