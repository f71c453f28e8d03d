package tasks

import (
	"encoding/json"
	"time"

	"homecare/models"

	"github.com/hibiken/asynq"
)

const (
	TypeCheckInReminder = "tracking:reminder"
	TypeEscalationAlert = "tracking:escalation"
	TypeContactInvite   = "tracking:invite"
)

// NewCheckInReminderTask builds the queued push for a welfare reminder.
func NewCheckInReminderTask(payload models.TrackingTaskPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(30 * time.Second)}
	return asynq.NewTask(TypeCheckInReminder, b), opts, nil
}

// NewEscalationAlertTask builds the queued safety alert fired when the missed
// check-in threshold is reached. Escalations retry harder than reminders.
func NewEscalationAlertTask(payload models.TrackingTaskPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(10), asynq.Queue("critical")}
	return asynq.NewTask(TypeEscalationAlert, b), opts, nil
}

// NewContactInviteTask builds the queued delivery of a trusted-contact invite.
func NewContactInviteTask(payload models.TrackingTaskPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(5)}
	return asynq.NewTask(TypeContactInvite, b), opts, nil
}
