package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"homecare/models"
	"homecare/realtime"
)

func TestTransitionValidation(t *testing.T) {
	cases := []struct {
		name string
		from models.ServiceStatus
		to   models.ServiceStatus
		ok   bool
	}{
		{"pending to accepted", models.StatusPending, models.StatusAccepted, true},
		{"accepted to on_the_way", models.StatusAccepted, models.StatusOnTheWay, true},
		{"on_the_way to arrived", models.StatusOnTheWay, models.StatusArrived, true},
		{"arrived to in_progress", models.StatusArrived, models.StatusInProgress, true},
		{"arrived to completed", models.StatusArrived, models.StatusCompleted, true},
		{"in_progress to completed", models.StatusInProgress, models.StatusCompleted, true},
		{"regression arrived to accepted", models.StatusArrived, models.StatusAccepted, false},
		{"skip accepted to arrived", models.StatusAccepted, models.StatusArrived, false},
		{"skip on_the_way to completed", models.StatusOnTheWay, models.StatusCompleted, false},
		{"cancel from accepted", models.StatusAccepted, models.StatusCancelled, true},
		{"reject from on_the_way", models.StatusOnTheWay, models.StatusRejected, true},
		{"no transition out of completed", models.StatusCompleted, models.StatusCancelled, false},
		{"no transition out of cancelled", models.StatusCancelled, models.StatusAccepted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTransition(tc.from, tc.to)
			if tc.ok && err != nil {
				t.Fatalf("expected %s -> %s to be legal, got %v", tc.from, tc.to, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
			}
		})
	}
}

func TestRejectedTransitionLeavesHistoryUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)

	_, err := env.svc.Transition(context.Background(), "req-1", models.StatusArrived, "nurse-1", "")
	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}

	session, err := env.svc.GetSession(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != models.StatusAccepted {
		t.Fatalf("status changed on rejected transition: %s", session.Status)
	}
	if len(session.StatusHistory) != 1 {
		t.Fatalf("history mutated on rejected transition: %d entries", len(session.StatusHistory))
	}
}

func TestTransitionAppendsHistoryInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)

	env.mustTransition(t, "req-1", models.StatusOnTheWay)
	session := env.mustTransition(t, "req-1", models.StatusArrived)

	want := []models.ServiceStatus{models.StatusAccepted, models.StatusOnTheWay, models.StatusArrived}
	if len(session.StatusHistory) != len(want) {
		t.Fatalf("expected %d history entries, got %d", len(want), len(session.StatusHistory))
	}
	for i, status := range want {
		if session.StatusHistory[i].Status != status {
			t.Fatalf("history[%d] = %s, want %s", i, session.StatusHistory[i].Status, status)
		}
	}
}

func TestArrivedEmitsEvent(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)
	env.mustTransition(t, "req-1", models.StatusOnTheWay)
	env.mustTransition(t, "req-1", models.StatusArrived)

	if n := env.hub.eventCount(realtime.EventNurseArrived); n != 1 {
		t.Fatalf("expected one %s event, got %d", realtime.EventNurseArrived, n)
	}
}

func TestTerminalTransitionTearsDown(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 90)
	env.mustTransition(t, "req-1", models.StatusOnTheWay)

	if _, err := env.svc.Share(context.Background(), "req-1", models.TrustedContact{
		Name:  "Joy",
		Phone: "+254712345678",
	}); err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	env.mustTransition(t, "req-1", models.StatusArrived)
	env.mustTransition(t, "req-1", models.StatusCompleted)

	if n := env.hub.eventCount(realtime.EventServiceCompleted); n != 1 {
		t.Fatalf("expected one %s event, got %d", realtime.EventServiceCompleted, n)
	}
	if len(env.hub.closed) != 1 || env.hub.closed[0] != "req-1" {
		t.Fatalf("expected room req-1 to be closed, got %v", env.hub.closed)
	}

	if _, err := env.svc.GetSession(context.Background(), "req-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected live session to be dropped, got %v", err)
	}

	// Every pending welfare timer must be gone: nothing fires after teardown.
	before := len(env.dispatch.reminders)
	env.sched.Advance(3 * time.Hour)
	if len(env.dispatch.reminders) != before {
		t.Fatalf("reminder fired after teardown")
	}
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)
	env.mustTransition(t, "req-1", models.StatusOnTheWay)
	env.mustTransition(t, "req-1", models.StatusCancelled)

	if _, err := env.svc.GetSession(context.Background(), "req-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected cancelled session to be dropped, got %v", err)
	}
}
