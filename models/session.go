package models

import "time"

// ServiceStatus is the lifecycle state of a service request under tracking.
type ServiceStatus string

const (
	StatusPending    ServiceStatus = "pending"
	StatusAccepted   ServiceStatus = "accepted"
	StatusOnTheWay   ServiceStatus = "on_the_way"
	StatusArrived    ServiceStatus = "arrived"
	StatusInProgress ServiceStatus = "in_progress"
	StatusCompleted  ServiceStatus = "completed"
	StatusCancelled  ServiceStatus = "cancelled"
	StatusRejected   ServiceStatus = "rejected"
)

// IsTerminal reports whether no further transitions are accepted from s.
func (s ServiceStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// IsTrackable reports whether live location broadcast is expected while in s.
// Arrived does not require continuous broadcast; the nurse is stationary.
func (s ServiceStatus) IsTrackable() bool {
	return s == StatusOnTheWay || s == StatusInProgress
}

// StatusChange is one entry in the append-only status history of a session.
type StatusChange struct {
	Status    ServiceStatus `bson:"status" json:"status"`
	ChangedAt time.Time     `bson:"changed_at" json:"changedAt"`
	ChangedBy string        `bson:"changed_by" json:"changedBy"`
	Note      string        `bson:"note,omitempty" json:"note,omitempty"`
}

// Location is a single position report from the nurse's device.
type Location struct {
	Latitude   float64   `bson:"latitude" json:"latitude"`
	Longitude  float64   `bson:"longitude" json:"longitude"`
	Heading    *float64  `bson:"heading,omitempty" json:"heading,omitempty"`
	Speed      *float64  `bson:"speed,omitempty" json:"speed,omitempty"`
	ObservedAt time.Time `bson:"observed_at" json:"observedAt"`
}

// CheckInState is the welfare monitor's per-session state.
type CheckInState string

const (
	CheckInInactive      CheckInState = "inactive"
	CheckInActive        CheckInState = "active"
	CheckInReminderShown CheckInState = "reminder_shown"
	CheckInEscalated     CheckInState = "escalated"
)

// CheckInCycle tracks one session's welfare check-in schedule.
type CheckInCycle struct {
	State           CheckInState `bson:"state" json:"state"`
	IntervalMinutes int          `bson:"interval_minutes" json:"intervalMinutes"`
	NextDueAt       time.Time    `bson:"next_due_at" json:"nextDueAt"`
	MissedCount     int          `bson:"missed_count" json:"missedCount"`
	IsActive        bool         `bson:"is_active" json:"isActive"`
	LastCheckInAt   *time.Time   `bson:"last_check_in_at,omitempty" json:"lastCheckInAt,omitempty"`
}

// TrustedContactShare grants a named third party read-only visibility of one
// session's live status and location. The token is a bearer capability scoped
// to exactly one request ID. Revoked shares stay in the set for audit but are
// excluded from fan-out and subscription.
type TrustedContactShare struct {
	ContactName  string     `bson:"contact_name" json:"contactName"`
	ContactPhone string     `bson:"contact_phone" json:"contactPhone"` // E.164
	Relationship string     `bson:"relationship" json:"relationship"`
	Token        string     `bson:"token" json:"token"`
	ShareURL     string     `bson:"share_url" json:"shareUrl"`
	IsActive     bool       `bson:"is_active" json:"isActive"`
	CreatedAt    time.Time  `bson:"created_at" json:"createdAt"`
	RevokedAt    *time.Time `bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`
}

// TrackingSession is the aggregate root for one active field visit.
// All mutation goes through the session store; other components read a
// snapshot and write back via store operations.
type TrackingSession struct {
	RequestID                string                `bson:"request_id" json:"requestId"`
	NurseID                  string                `bson:"nurse_id" json:"nurseId"`
	ClientID                 string                `bson:"client_id" json:"clientId"`
	NurseFirstName           string                `bson:"nurse_first_name" json:"nurseFirstName"`
	Status                   ServiceStatus         `bson:"status" json:"status"`
	StatusHistory            []StatusChange        `bson:"status_history" json:"statusHistory"`
	EstimatedDurationMinutes int                   `bson:"estimated_duration_minutes" json:"estimatedDurationMinutes"`
	Destination              *Location             `bson:"destination,omitempty" json:"destination,omitempty"`
	LastKnownLocation        *Location             `bson:"last_known_location,omitempty" json:"lastKnownLocation,omitempty"`
	CheckIn                  *CheckInCycle         `bson:"check_in,omitempty" json:"checkIn,omitempty"`
	TrustedShares            []TrustedContactShare `bson:"trusted_shares" json:"trustedShares"`
	CreatedAt                time.Time             `bson:"created_at" json:"createdAt"`
	UpdatedAt                time.Time             `bson:"updated_at" json:"updatedAt"`
}

// ActiveShare returns the active share for the given normalized phone, if any.
func (s *TrackingSession) ActiveShare(phone string) *TrustedContactShare {
	for i := range s.TrustedShares {
		if s.TrustedShares[i].ContactPhone == phone && s.TrustedShares[i].IsActive {
			return &s.TrustedShares[i]
		}
	}
	return nil
}

// ActiveShareCount counts shares still eligible for fan-out.
func (s *TrackingSession) ActiveShareCount() int {
	n := 0
	for i := range s.TrustedShares {
		if s.TrustedShares[i].IsActive {
			n++
		}
	}
	return n
}
