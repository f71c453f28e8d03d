package models

import "time"

// TrackingTaskPayload is the payload for queued tracking notifications
// (check-in reminders, escalation alerts, trusted-contact invites).
type TrackingTaskPayload struct {
	RequestID   string    `json:"requestId"`
	Target      string    `json:"target"` // "nurse" | "client" | "contact"
	TargetID    string    `json:"targetId"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	MissedCount int       `json:"missedCount,omitempty"`
	FireDate    time.Time `json:"fireDate"`
}
