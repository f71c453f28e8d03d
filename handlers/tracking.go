package handlers

import (
	"errors"
	"net/http"

	"homecare/models"
	"homecare/realtime"
	"homecare/services/tracking"
	"homecare/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TrackingHandler exposes the tracking core over REST and websocket.
type TrackingHandler struct {
	Svc    tracking.TrackingService
	Hub    *realtime.Hub
	Logger *zap.Logger
}

func NewTrackingHandler(svc tracking.TrackingService, hub *realtime.Hub, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{Svc: svc, Hub: hub, Logger: logger}
}

// respondTrackingError maps domain errors onto HTTP statuses.
func respondTrackingError(c *gin.Context, err error) {
	var transitionErr *tracking.TransitionError
	var authErr *tracking.AuthError
	var validationErr *tracking.ValidationError

	switch {
	case errors.Is(err, tracking.ErrSessionNotFound):
		utils.JSONError(c, http.StatusNotFound, "tracking session not found", "")
	case errors.Is(err, tracking.ErrNoActiveSession):
		utils.JSONError(c, http.StatusBadRequest, "no active session", "welfare monitoring is not active for this session")
	case errors.As(err, &transitionErr):
		utils.JSONError(c, http.StatusConflict, "illegal status transition", transitionErr.Error())
	case errors.As(err, &authErr):
		utils.JSONError(c, http.StatusUnauthorized, "not authorized for this session", authErr.Reason)
	case errors.As(err, &validationErr):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", validationErr.Message)
	default:
		utils.JSONError(c, http.StatusInternalServerError, "tracking operation failed", err.Error())
	}
}

// OpenSessionHandler starts tracking for an accepted service request.
func (h *TrackingHandler) OpenSessionHandler(c *gin.Context) {
	var req models.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.Svc.OpenSession(c.Request.Context(), req)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSessionHandler serves the read-only snapshot to a session participant
// (bearer) or a trusted contact (share token in the "token" query param).
func (h *TrackingHandler) GetSessionHandler(c *gin.Context) {
	requestID := c.Param("requestId")

	if token := c.Query("token"); token != "" {
		if err := h.Svc.ValidateShareToken(c.Request.Context(), requestID, token); err != nil {
			respondTrackingError(c, err)
			return
		}
	} else if !h.isParticipant(c, requestID) {
		return
	}

	session, err := h.Svc.GetSession(c.Request.Context(), requestID)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// TransitionHandler applies a lifecycle transition.
func (h *TrackingHandler) TransitionHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	actor := c.GetString("subjectID")
	session, err := h.Svc.Transition(c.Request.Context(), requestID, req.Status, actor, req.Note)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// LocationHandler records the nurse's latest position report. Coordinates are
// bound through pointers so a legitimate zero (equator, prime meridian) is not
// mistaken for an absent field.
func (h *TrackingHandler) LocationHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	var body struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
		Heading   *float64 `json:"heading"`
		Speed     *float64 `json:"speed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	update := models.LocationUpdate{
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Heading:   body.Heading,
		Speed:     body.Speed,
	}
	if err := h.Svc.PublishLocation(c.Request.Context(), requestID, update); err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CheckInHandler records a welfare confirmation and returns the next due
// time plus the updated miss count.
func (h *TrackingHandler) CheckInHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	ack, err := h.Svc.CheckIn(c.Request.Context(), requestID, req.Message)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// ShareHandler creates (or reuses) a trusted-contact share.
func (h *TrackingHandler) ShareHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	var contact models.TrustedContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	share, err := h.Svc.Share(c.Request.Context(), requestID, contact)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, share)
}

// RevokeShareHandler revokes a share by phone.
func (h *TrackingHandler) RevokeShareHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	phone := c.Query("phone")
	if phone == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "phone query parameter is required")
		return
	}

	if err := h.Svc.Revoke(c.Request.Context(), requestID, phone); err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// EndTrackingHandler explicitly ends tracking for a session.
func (h *TrackingHandler) EndTrackingHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	if err := h.Svc.EndTracking(c.Request.Context(), requestID); err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// HistoryHandler returns the caller's archived visits from the audit trail.
func (h *TrackingHandler) HistoryHandler(c *gin.Context) {
	subject := c.GetString("subjectID")
	sessions, err := h.Svc.VisitHistory(c.Request.Context(), subject)
	if err != nil {
		respondTrackingError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ArchivedSessionHandler returns the final recorded state of an ended session
// to one of its participants.
func (h *TrackingHandler) ArchivedSessionHandler(c *gin.Context) {
	requestID := c.Param("requestId")
	session, err := h.Svc.ArchivedSession(c.Request.Context(), requestID)
	if err != nil {
		respondTrackingError(c, err)
		return
	}

	subject := c.GetString("subjectID")
	if session.NurseID != subject && session.ClientID != subject {
		utils.JSONError(c, http.StatusForbidden, "not authorized for this session", "")
		return
	}
	c.JSON(http.StatusOK, session)
}

// SubscribeHandler upgrades a viewer onto the session's event room. Trusted
// contacts authenticate with their share token; participants with a bearer.
func (h *TrackingHandler) SubscribeHandler(c *gin.Context) {
	requestID := c.Param("requestId")

	if token := c.Query("token"); token != "" {
		if err := h.Svc.ValidateShareToken(c.Request.Context(), requestID, token); err != nil {
			respondTrackingError(c, err)
			return
		}
	} else if !h.isParticipant(c, requestID) {
		return
	}

	if !realtime.IsWebSocket(c.Request) {
		utils.JSONError(c, http.StatusBadRequest, "websocket upgrade required", "")
		return
	}

	sub := h.Hub.Join(requestID)
	h.Hub.Emit(requestID, realtime.EventTrackingJoin, gin.H{"viewers": h.Hub.RoomSize(requestID)})

	realtime.ServeSubscriber(c.Writer, c.Request, sub, func() {
		h.Hub.Leave(sub)
		h.Hub.Emit(requestID, realtime.EventTrackingLeave, gin.H{"viewers": h.Hub.RoomSize(requestID)})
	})
}

// isParticipant verifies the authenticated subject belongs to the session.
// Writes the error response itself when the check fails.
func (h *TrackingHandler) isParticipant(c *gin.Context, requestID string) bool {
	subject := c.GetString("subjectID")
	if subject == "" {
		utils.JSONError(c, http.StatusUnauthorized, "not authorized for this session", "missing credentials")
		return false
	}

	session, err := h.Svc.GetSession(c.Request.Context(), requestID)
	if err != nil {
		respondTrackingError(c, err)
		return false
	}
	if session.NurseID != subject && session.ClientID != subject {
		utils.JSONError(c, http.StatusForbidden, "not authorized for this session", "")
		return false
	}
	return true
}
