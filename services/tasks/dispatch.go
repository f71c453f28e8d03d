package tasks

import (
	"fmt"

	"homecare/config"
	"homecare/models"

	"github.com/hibiken/asynq"
)

// AsynqDispatcher enqueues tracking notification tasks onto the Redis-backed
// queue consumed by the worker in cron. Satisfies tracking.TaskDispatcher.
type AsynqDispatcher struct {
	Client *asynq.Client
}

func NewAsynqDispatcher() *AsynqDispatcher {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})
	return &AsynqDispatcher{Client: client}
}

func (d *AsynqDispatcher) EnqueueReminder(payload models.TrackingTaskPayload) error {
	task, opts, err := NewCheckInReminderTask(payload)
	if err != nil {
		return err
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue check-in reminder: %w", err)
	}
	return nil
}

func (d *AsynqDispatcher) EnqueueEscalation(payload models.TrackingTaskPayload) error {
	task, opts, err := NewEscalationAlertTask(payload)
	if err != nil {
		return err
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue escalation alert: %w", err)
	}
	return nil
}

func (d *AsynqDispatcher) EnqueueInvite(payload models.TrackingTaskPayload) error {
	task, opts, err := NewContactInviteTask(payload)
	if err != nil {
		return err
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue contact invite: %w", err)
	}
	return nil
}
