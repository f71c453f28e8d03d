package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"homecare/models"
	"homecare/services/tracking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// stubTrackingService records location publishes; every other operation is a
// no-op.
type stubTrackingService struct {
	locations []models.LocationUpdate
}

func (s *stubTrackingService) OpenSession(context.Context, models.OpenSessionRequest) (*models.TrackingSession, error) {
	return nil, nil
}

func (s *stubTrackingService) GetSession(context.Context, string) (*models.TrackingSession, error) {
	return nil, tracking.ErrSessionNotFound
}

func (s *stubTrackingService) Transition(context.Context, string, models.ServiceStatus, string, string) (*models.TrackingSession, error) {
	return nil, nil
}

func (s *stubTrackingService) EndTracking(context.Context, string) error { return nil }

func (s *stubTrackingService) PublishLocation(_ context.Context, _ string, update models.LocationUpdate) error {
	s.locations = append(s.locations, update)
	return nil
}

func (s *stubTrackingService) CheckIn(context.Context, string, string) (*models.CheckInAck, error) {
	return nil, nil
}

func (s *stubTrackingService) Share(context.Context, string, models.TrustedContact) (*models.ShareResponse, error) {
	return nil, nil
}

func (s *stubTrackingService) Revoke(context.Context, string, string) error { return nil }

func (s *stubTrackingService) ValidateShareToken(context.Context, string, string) error { return nil }

func (s *stubTrackingService) InviteMessage(*models.TrackingSession, *models.TrustedContactShare) string {
	return ""
}

func (s *stubTrackingService) VisitHistory(context.Context, string) ([]models.TrackingSession, error) {
	return nil, nil
}

func (s *stubTrackingService) ArchivedSession(context.Context, string) (*models.TrackingSession, error) {
	return nil, tracking.ErrSessionNotFound
}

func newLocationRouter(svc tracking.TrackingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTrackingHandler(svc, nil, zap.NewNop())
	r.POST("/api/tracking/:requestId/location", h.LocationHandler)
	return r
}

func TestLocationHandlerAcceptsZeroCoordinates(t *testing.T) {
	svc := &stubTrackingService{}
	router := newLocationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/tracking/req-1/location",
		strings.NewReader(`{"latitude":0,"longitude":0}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.locations) != 1 {
		t.Fatalf("expected one recorded update, got %d", len(svc.locations))
	}
	if svc.locations[0].Latitude != 0 || svc.locations[0].Longitude != 0 {
		t.Fatalf("recorded update = %+v, want (0, 0)", svc.locations[0])
	}
}

func TestLocationHandlerRejectsMissingCoordinate(t *testing.T) {
	svc := &stubTrackingService{}
	router := newLocationRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/tracking/req-1/location",
		strings.NewReader(`{"latitude":-1.29}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.locations) != 0 {
		t.Fatalf("update recorded despite missing longitude: %+v", svc.locations)
	}
}
