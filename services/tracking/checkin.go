package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homecare/models"

	"go.uber.org/zap"
)

// CheckIn records a welfare confirmation through the monitor.
func (s *DefaultTrackingService) CheckIn(ctx context.Context, requestID, message string) (*models.CheckInAck, error) {
	return s.Monitor.CheckIn(ctx, requestID, message)
}

// CheckInMonitor runs the periodic welfare prompts for nurses on long visits
// and escalates when they go unanswered. Each session holds at most two
// pending timers: the next-due timer and, once a reminder is shown, an
// independent reminder-timeout timer. A new cycle is only scheduled after the
// prior one resolves (check-in confirmed or counted as missed).
type CheckInMonitor struct {
	Store      SessionStore
	Sched      Scheduler
	Dispatch   TaskDispatcher
	Escalation EscalationRecorder
	Cfg        Config
	Logger     *zap.Logger

	mu     sync.Mutex
	timers map[string]*sessionTimers
}

type sessionTimers struct {
	due      TimerHandle
	reminder TimerHandle
}

func NewCheckInMonitor(store SessionStore, sched Scheduler, dispatch TaskDispatcher, escalation EscalationRecorder, cfg Config, logger *zap.Logger) *CheckInMonitor {
	return &CheckInMonitor{
		Store:      store,
		Sched:      sched,
		Dispatch:   dispatch,
		Escalation: escalation,
		Cfg:        cfg,
		Logger:     logger,
		timers:     make(map[string]*sessionTimers),
	}
}

func (m *CheckInMonitor) interval() time.Duration {
	return time.Duration(m.Cfg.CheckInIntervalMinutes) * time.Minute
}

func (m *CheckInMonitor) reminderTimeout() time.Duration {
	return time.Duration(m.Cfg.ReminderTimeoutMinutes) * time.Minute
}

// Start activates monitoring for a session if its estimated duration meets
// the minimum threshold. Calling Start on an already-active session does not
// reset progress or reschedule anything.
func (m *CheckInMonitor) Start(ctx context.Context, session *models.TrackingSession) error {
	if session.EstimatedDurationMinutes < m.Cfg.MinTrackableMinutes {
		m.Logger.Debug("checkin: visit too short for welfare monitoring",
			zap.String("requestId", session.RequestID),
			zap.Int("estimatedDurationMinutes", session.EstimatedDurationMinutes))
		return nil
	}

	m.mu.Lock()
	if _, active := m.timers[session.RequestID]; active {
		m.mu.Unlock()
		return nil
	}
	m.timers[session.RequestID] = &sessionTimers{}
	m.mu.Unlock()

	requestID := session.RequestID
	nextDue := m.Sched.Now().Add(m.interval())

	_, err := m.Store.Update(ctx, requestID, func(s *models.TrackingSession) error {
		s.CheckIn = &models.CheckInCycle{
			State:           models.CheckInActive,
			IntervalMinutes: m.Cfg.CheckInIntervalMinutes,
			NextDueAt:       nextDue,
			MissedCount:     0,
			IsActive:        true,
		}
		return nil
	})
	if err != nil {
		m.removeTimers(requestID)
		return fmt.Errorf("failed to activate check-in monitoring: %w", err)
	}

	m.scheduleDue(requestID, m.interval())
	m.Logger.Info("checkin: monitoring started",
		zap.String("requestId", requestID), zap.Time("nextDueAt", nextDue))
	return nil
}

// CheckIn records a welfare confirmation. On success the cycle resets: the
// miss counter returns to zero, the reminder is cleared and the next due time
// is recomputed from the acknowledged time. On failure nothing changes and
// the caller can retry.
func (m *CheckInMonitor) CheckIn(ctx context.Context, requestID, message string) (*models.CheckInAck, error) {
	now := m.Sched.Now()
	nextDue := now.Add(m.interval())

	updated, err := m.Store.Update(ctx, requestID, func(s *models.TrackingSession) error {
		if s.CheckIn != nil && s.CheckIn.State == models.CheckInEscalated {
			return NewValidationError("check-in monitor already escalated for request %s", requestID)
		}
		if s.CheckIn == nil || !s.CheckIn.IsActive {
			return ErrNoActiveSession
		}
		s.CheckIn.State = models.CheckInActive
		s.CheckIn.MissedCount = 0
		s.CheckIn.NextDueAt = nextDue
		s.CheckIn.LastCheckInAt = &now
		return nil
	})
	if err == ErrSessionNotFound {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	// The confirmation resolved the cycle; restart the due timer from the
	// acknowledged time.
	m.scheduleDue(requestID, m.interval())

	m.Logger.Info("checkin: confirmed",
		zap.String("requestId", requestID),
		zap.String("message", message),
		zap.Time("nextDueAt", nextDue))

	return &models.CheckInAck{
		RequestID:   requestID,
		NextDueAt:   updated.CheckIn.NextDueAt,
		MissedCount: updated.CheckIn.MissedCount,
	}, nil
}

// Stop cancels all pending timers for the session and resets its cycle.
// Always safe to call, including on sessions that were never started.
func (m *CheckInMonitor) Stop(requestID string) {
	m.mu.Lock()
	t, ok := m.timers[requestID]
	delete(m.timers, requestID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if t.due != nil {
		t.due.Cancel()
	}
	if t.reminder != nil {
		t.reminder.Cancel()
	}
	m.Logger.Debug("checkin: monitoring stopped", zap.String("requestId", requestID))
}

// onDue fires at nextDueAt: show the reminder, notify the nurse, and start
// the independent reminder-timeout clock.
func (m *CheckInMonitor) onDue(requestID string) {
	ctx := context.Background()

	updated, err := m.Store.Update(ctx, requestID, func(s *models.TrackingSession) error {
		if s.CheckIn == nil || !s.CheckIn.IsActive || s.CheckIn.State != models.CheckInActive {
			return ErrNoActiveSession
		}
		s.CheckIn.State = models.CheckInReminderShown
		return nil
	})
	if err == ErrSessionNotFound {
		m.Stop(requestID)
		return
	}
	if err != nil {
		// The cycle was resolved between scheduling and firing; whichever
		// path resolved it owns the timers now.
		return
	}

	payload := models.TrackingTaskPayload{
		RequestID: requestID,
		Target:    "nurse",
		TargetID:  updated.NurseID,
		Title:     "Welfare check-in",
		Body:      "Are you okay? Tap to confirm you're safe.",
		FireDate:  m.Sched.Now(),
	}
	if err := m.Dispatch.EnqueueReminder(payload); err != nil {
		m.Logger.Warn("checkin: failed to enqueue reminder",
			zap.String("requestId", requestID), zap.Error(err))
	}

	m.scheduleReminderTimeout(requestID, m.reminderTimeout())
}

// onReminderTimeout fires when the reminder went unanswered: count a miss and
// either schedule the next cycle or escalate for good.
func (m *CheckInMonitor) onReminderTimeout(requestID string) {
	ctx := context.Background()
	escalated := false

	updated, err := m.Store.Update(ctx, requestID, func(s *models.TrackingSession) error {
		if s.CheckIn == nil || !s.CheckIn.IsActive || s.CheckIn.State != models.CheckInReminderShown {
			return ErrNoActiveSession
		}
		s.CheckIn.MissedCount++
		if s.CheckIn.MissedCount >= m.Cfg.EscalationThreshold {
			s.CheckIn.State = models.CheckInEscalated
			s.CheckIn.IsActive = false
			escalated = true
		} else {
			s.CheckIn.State = models.CheckInActive
			s.CheckIn.NextDueAt = m.Sched.Now().Add(m.interval())
		}
		return nil
	})
	if err == ErrSessionNotFound {
		m.Stop(requestID)
		return
	}
	if err != nil {
		// A check-in landed before the timeout; its reschedule stands.
		return
	}

	if escalated {
		m.escalate(ctx, updated)
		return
	}

	m.Logger.Warn("checkin: missed check-in",
		zap.String("requestId", requestID),
		zap.Int("missedCount", updated.CheckIn.MissedCount))
	m.scheduleDue(requestID, m.interval())
}

// escalate hands the session off to the safety-alert path. This is final:
// the monitor does not reschedule after escalation.
func (m *CheckInMonitor) escalate(ctx context.Context, session *models.TrackingSession) {
	requestID := session.RequestID
	m.Stop(requestID)

	m.Logger.Error("checkin: escalation threshold reached",
		zap.String("requestId", requestID),
		zap.Int("missedCount", session.CheckIn.MissedCount))

	if m.Escalation != nil {
		if err := m.Escalation.RecordEscalation(ctx, requestID, session.CheckIn.MissedCount); err != nil {
			m.Logger.Warn("checkin: failed to record escalation",
				zap.String("requestId", requestID), zap.Error(err))
		}
	}

	payload := models.TrackingTaskPayload{
		RequestID:   requestID,
		Target:      "nurse",
		TargetID:    session.NurseID,
		MissedCount: session.CheckIn.MissedCount,
		FireDate:    m.Sched.Now(),
	}
	if err := m.Dispatch.EnqueueEscalation(payload); err != nil {
		m.Logger.Error("checkin: failed to enqueue escalation alert",
			zap.String("requestId", requestID), zap.Error(err))
	}
}

// scheduleDue replaces the session's pending timers with a single due timer.
// Cancelling before overwriting keeps exactly one cycle in flight when a
// check-in and a firing timer reschedule concurrently.
func (m *CheckInMonitor) scheduleDue(requestID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[requestID]
	if !ok {
		return
	}
	if t.due != nil {
		t.due.Cancel()
	}
	if t.reminder != nil {
		t.reminder.Cancel()
		t.reminder = nil
	}
	t.due = m.Sched.Schedule(d, func() { m.onDue(requestID) })
}

func (m *CheckInMonitor) scheduleReminderTimeout(requestID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[requestID]
	if !ok {
		return
	}
	if t.reminder != nil {
		t.reminder.Cancel()
	}
	t.reminder = m.Sched.Schedule(d, func() { m.onReminderTimeout(requestID) })
}

func (m *CheckInMonitor) removeTimers(requestID string) {
	m.mu.Lock()
	delete(m.timers, requestID)
	m.mu.Unlock()
}
