package tracking

import (
	"context"
	"errors"
	"testing"

	"homecare/models"
	"homecare/realtime"
)

func TestPublishLocationLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)
	env.mustTransition(t, "req-1", models.StatusOnTheWay)

	updates := []models.LocationUpdate{
		{Latitude: -1.2921, Longitude: 36.8219},
		{Latitude: -1.2950, Longitude: 36.8100},
		{Latitude: -1.3000, Longitude: 36.8000},
	}
	for _, u := range updates {
		if err := env.svc.PublishLocation(context.Background(), "req-1", u); err != nil {
			t.Fatalf("PublishLocation failed: %v", err)
		}
	}

	session, err := env.svc.GetSession(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	last := updates[len(updates)-1]
	if session.LastKnownLocation == nil {
		t.Fatal("lastKnownLocation not set")
	}
	if session.LastKnownLocation.Latitude != last.Latitude || session.LastKnownLocation.Longitude != last.Longitude {
		t.Fatalf("lastKnownLocation = (%f, %f), want (%f, %f)",
			session.LastKnownLocation.Latitude, session.LastKnownLocation.Longitude,
			last.Latitude, last.Longitude)
	}

	if n := env.hub.eventCount(realtime.EventLocationUpdate); n != len(updates) {
		t.Fatalf("expected %d location events fanned out, got %d", len(updates), n)
	}
}

func TestPublishLocationRejectedOutsideTrackableStates(t *testing.T) {
	env := newTestEnv(t)
	env.openSession(t, "req-1", 45)

	err := env.svc.PublishLocation(context.Background(), "req-1", models.LocationUpdate{Latitude: 1, Longitude: 1})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError while accepted, got %v", err)
	}

	env.mustTransition(t, "req-1", models.StatusOnTheWay)
	env.mustTransition(t, "req-1", models.StatusArrived)

	err = env.svc.PublishLocation(context.Background(), "req-1", models.LocationUpdate{Latitude: 1, Longitude: 1})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError while arrived, got %v", err)
	}

	// Publishing resumes once the in-home phase starts.
	env.mustTransition(t, "req-1", models.StatusInProgress)
	if err := env.svc.PublishLocation(context.Background(), "req-1", models.LocationUpdate{Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("PublishLocation failed in in_progress: %v", err)
	}
}

func TestPublishLocationEmitsETAWhenDestinationKnown(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.svc.OpenSession(context.Background(), models.OpenSessionRequest{
		RequestID:                "req-eta",
		NurseID:                  "nurse-1",
		ClientID:                 "client-1",
		EstimatedDurationMinutes: 45,
		Destination:              &models.Location{Latitude: -1.30, Longitude: 36.80},
	})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	env.mustTransition(t, session.RequestID, models.StatusOnTheWay)

	if err := env.svc.PublishLocation(context.Background(), session.RequestID, models.LocationUpdate{
		Latitude: -1.2921, Longitude: 36.8219,
	}); err != nil {
		t.Fatalf("PublishLocation failed: %v", err)
	}

	if n := env.hub.eventCount(realtime.EventNurseETA); n != 1 {
		t.Fatalf("expected one ETA event, got %d", n)
	}
}

func TestHaversineDistance(t *testing.T) {
	// Nairobi CBD to Westlands is roughly 3km.
	km := haversineKm(-1.2864, 36.8172, -1.2673, 36.8111)
	if km < 2 || km > 3 {
		t.Fatalf("unexpected distance: %.2f km", km)
	}
}
