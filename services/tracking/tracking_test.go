package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"homecare/models"

	"go.uber.org/zap"
)

// memStore is an in-memory SessionStore for tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string][]byte)}
}

func (s *memStore) Create(_ context.Context, session *models.TrackingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.RequestID]; ok {
		return NewValidationError("tracking session already exists for request %s", session.RequestID)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.sessions[session.RequestID] = data
	return nil
}

func (s *memStore) Get(_ context.Context, requestID string) (*models.TrackingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(requestID)
}

func (s *memStore) getLocked(requestID string) (*models.TrackingSession, error) {
	data, ok := s.sessions[requestID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	var session models.TrackingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *memStore) Update(_ context.Context, requestID string, mutate func(*models.TrackingSession) error) (*models.TrackingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.getLocked(requestID)
	if err != nil {
		return nil, err
	}
	if err := mutate(session); err != nil {
		return nil, err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	s.sessions[requestID] = data
	return session, nil
}

func (s *memStore) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, requestID)
	return nil
}

// fakeHub records emitted events instead of fanning out.
type fakeHub struct {
	mu     sync.Mutex
	events []fakeEvent
	closed []string
}

type fakeEvent struct {
	requestID string
	name      string
	payload   interface{}
}

func (h *fakeHub) Emit(requestID, name string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fakeEvent{requestID, name, payload})
}

func (h *fakeHub) CloseRoom(requestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, requestID)
}

func (h *fakeHub) eventCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.name == name {
			n++
		}
	}
	return n
}

// fakeDispatcher records queued notification payloads.
type fakeDispatcher struct {
	mu          sync.Mutex
	reminders   []models.TrackingTaskPayload
	escalations []models.TrackingTaskPayload
	invites     []models.TrackingTaskPayload
}

func (d *fakeDispatcher) EnqueueReminder(p models.TrackingTaskPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders = append(d.reminders, p)
	return nil
}

func (d *fakeDispatcher) EnqueueEscalation(p models.TrackingTaskPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.escalations = append(d.escalations, p)
	return nil
}

func (d *fakeDispatcher) EnqueueInvite(p models.TrackingTaskPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invites = append(d.invites, p)
	return nil
}

// fakeAudit keeps archived sessions in memory.
type fakeAudit struct {
	mu       sync.Mutex
	archived map[string]models.TrackingSession
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{archived: make(map[string]models.TrackingSession)}
}

func (a *fakeAudit) ArchiveSession(_ context.Context, session models.TrackingSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived[session.RequestID] = session
	return nil
}

func (a *fakeAudit) GetArchivedSession(_ context.Context, requestID string) (*models.TrackingSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	session, ok := a.archived[requestID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (a *fakeAudit) GetSessionsByNurse(_ context.Context, nurseID string) ([]models.TrackingSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sessions []models.TrackingSession
	for _, s := range a.archived {
		if s.NurseID == nurseID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

// fakeRecorder counts escalation audit writes.
type fakeRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *fakeRecorder) RecordEscalation(_ context.Context, _ string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

// virtualScheduler drives timers off a virtual clock so tests advance time
// deterministically.
type virtualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*virtualTimer
}

type virtualTimer struct {
	at        time.Time
	fn        func()
	cancelled bool
	fired     bool
	sched     *virtualScheduler
}

func newVirtualScheduler() *virtualScheduler {
	return &virtualScheduler{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *virtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *virtualScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &virtualTimer{at: s.now.Add(d), fn: fn, sched: s}
	s.timers = append(s.timers, t)
	return t
}

func (t *virtualTimer) Cancel() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// Advance moves the clock forward, firing due timers synchronously in time
// order. Timers scheduled by a firing callback are picked up within the same
// advance when they fall inside the window.
func (s *virtualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *virtualTimer
		for _, t := range s.timers {
			if t.cancelled || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		fn := next.fn
		s.mu.Unlock()

		fn()
	}
}

func (s *virtualScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled && !t.fired {
			n++
		}
	}
	return n
}

func testConfig() Config {
	return Config{
		MinTrackableMinutes:     60,
		CheckInIntervalMinutes:  30,
		ReminderTimeoutMinutes:  5,
		EscalationThreshold:     3,
		MaxTrustedShares:        3,
		SessionTTL:              12 * time.Hour,
		ShareBaseURL:            "https://track.test/v",
		ShareTokenSecret:        "test-secret",
		DefaultPhoneCountryCode: "+254",
	}
}

type testEnv struct {
	svc      *DefaultTrackingService
	store    SessionStore
	hub      *fakeHub
	dispatch *fakeDispatcher
	recorder *fakeRecorder
	audit    *fakeAudit
	sched    *virtualScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newMemStore())
}

func newTestEnvWithStore(t *testing.T, store SessionStore) *testEnv {
	t.Helper()
	cfg := testConfig()
	hub := &fakeHub{}
	dispatch := &fakeDispatcher{}
	recorder := &fakeRecorder{}
	audit := newFakeAudit()
	sched := newVirtualScheduler()
	logger := zap.NewNop()

	monitor := NewCheckInMonitor(store, sched, dispatch, recorder, cfg, logger)
	svc := &DefaultTrackingService{
		Store:    store,
		Hub:      hub,
		Monitor:  monitor,
		Archiver: audit,
		Audit:    audit,
		Dispatch: dispatch,
		Cfg:      cfg,
		Logger:   logger,
	}
	return &testEnv{svc: svc, store: store, hub: hub, dispatch: dispatch, recorder: recorder, audit: audit, sched: sched}
}

func (e *testEnv) openSession(t *testing.T, requestID string, durationMinutes int) *models.TrackingSession {
	t.Helper()
	session, err := e.svc.OpenSession(context.Background(), models.OpenSessionRequest{
		RequestID:                requestID,
		NurseID:                  "nurse-1",
		ClientID:                 "client-1",
		NurseFirstName:           "Amina",
		EstimatedDurationMinutes: durationMinutes,
	})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	return session
}

func (e *testEnv) mustTransition(t *testing.T, requestID string, to models.ServiceStatus) *models.TrackingSession {
	t.Helper()
	session, err := e.svc.Transition(context.Background(), requestID, to, "nurse-1", "")
	if err != nil {
		t.Fatalf("transition to %s failed: %v", to, err)
	}
	return session
}
