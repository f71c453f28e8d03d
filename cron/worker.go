package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"homecare/config"
	"homecare/models"
	"homecare/services/notification"
	"homecare/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitTrackingWorker runs the async worker that delivers queued tracking
// pushes (reminders, escalation alerts, contact invites) in the background.
func InitTrackingWorker(notifSvc notification.NotificationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 5,
				"default":  1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCheckInReminder, handleReminderTask(notifSvc))
	mux.HandleFunc(tasks.TypeEscalationAlert, handleEscalationTask(notifSvc))
	mux.HandleFunc(tasks.TypeContactInvite, handleInviteTask(notifSvc))

	go monitorRedisConnection()

	go func() {
		log.Println("[TrackingWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TrackingWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TrackingWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.TrackingTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TrackingWorker] invalid reminder payload: %v", err)
			return err
		}

		data := map[string]string{
			"type":      "checkin_reminder",
			"requestId": p.RequestID,
		}
		if err := notifSvc.SendNursePush(ctx, p.TargetID, p.Title, p.Body, data); err != nil {
			log.Printf("[TrackingWorker] failed to deliver reminder for %s: %v", p.RequestID, err)
			return err
		}
		return nil
	}
}

func handleEscalationTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.TrackingTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TrackingWorker] invalid escalation payload: %v", err)
			return err
		}

		if err := notifSvc.SendEscalationAlert(ctx, p.RequestID, p.TargetID, p.MissedCount); err != nil {
			log.Printf("[TrackingWorker] failed to deliver escalation for %s: %v", p.RequestID, err)
			return err
		}
		return nil
	}
}

func handleInviteTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.TrackingTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TrackingWorker] invalid invite payload: %v", err)
			return err
		}

		// Invites go to the session's client device; the contact themselves is
		// reached over SMS/WhatsApp by the messaging collaborator.
		data := map[string]string{
			"type":      "trusted_contact_invite",
			"requestId": p.RequestID,
		}
		if err := notifSvc.SendClientPush(ctx, p.TargetID, p.Title, p.Body, data); err != nil {
			log.Printf("[TrackingWorker] failed to deliver invite for %s: %v", p.RequestID, err)
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[TrackingWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
