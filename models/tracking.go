package models

import "time"

// OpenSessionRequest starts tracking for an accepted service request.
type OpenSessionRequest struct {
	RequestID                string    `json:"requestId" binding:"required"`
	NurseID                  string    `json:"nurseId" binding:"required"`
	ClientID                 string    `json:"clientId" binding:"required"`
	NurseFirstName           string    `json:"nurseFirstName"`
	EstimatedDurationMinutes int       `json:"estimatedDurationMinutes" binding:"required"`
	Destination              *Location `json:"destination,omitempty"`
}

// TransitionRequest moves a session to a new lifecycle status.
type TransitionRequest struct {
	Status ServiceStatus `json:"status" binding:"required"`
	Note   string        `json:"note,omitempty"`
}

// LocationUpdate is the nurse client's periodic position report. Presence of
// the coordinates is validated at the transport edge; zero is a legal value.
type LocationUpdate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// CheckInRequest carries the optional free-text message of a welfare confirmation.
type CheckInRequest struct {
	Message string `json:"message,omitempty"`
}

// CheckInAck is the server's acknowledgement of a welfare confirmation.
type CheckInAck struct {
	RequestID   string    `json:"requestId"`
	NextDueAt   time.Time `json:"nextDueAt"`
	MissedCount int       `json:"missedCount"`
}

// TrustedContact is the contact triple supplied when creating a share.
type TrustedContact struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Relationship string `json:"relationship"`
}

// ShareResponse carries the tracking URL and its bearer token.
type ShareResponse struct {
	ShareURL string `json:"shareUrl"`
	Token    string `json:"token"`
}

// SessionSnapshot is the read-only view served to viewers (client or trusted
// contact). Share tokens are never included.
type SessionSnapshot struct {
	RequestID         string         `json:"requestId"`
	NurseFirstName    string         `json:"nurseFirstName"`
	Status            ServiceStatus  `json:"status"`
	StatusHistory     []StatusChange `json:"statusHistory"`
	LastKnownLocation *Location      `json:"lastKnownLocation,omitempty"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Snapshot builds the viewer-safe projection of a session.
func (s *TrackingSession) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		RequestID:         s.RequestID,
		NurseFirstName:    s.NurseFirstName,
		Status:            s.Status,
		StatusHistory:     s.StatusHistory,
		LastKnownLocation: s.LastKnownLocation,
		UpdatedAt:         s.UpdatedAt,
	}
}
