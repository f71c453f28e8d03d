package notification

import (
	"context"
	"fmt"

	"homecare/utils"

	"firebase.google.com/go/v4/messaging"
)

// TokenResolver looks up the FCM device token for a party. Device identity is
// owned by an external service; tokens are mirrored into the cache by the
// device registration endpoint.
type TokenResolver interface {
	NurseToken(ctx context.Context, nurseID string) (string, error)
	ClientToken(ctx context.Context, clientID string) (string, error)
}

// NotificationService defines methods for sending FCM pushes.
type NotificationService interface {
	SendNursePush(ctx context.Context, nurseID, title, body string, data map[string]string) error
	SendClientPush(ctx context.Context, clientID, title, body string, data map[string]string) error
	SendEscalationAlert(ctx context.Context, requestID, nurseID string, missedCount int) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Tokens TokenResolver
}

func NewDefaultNotificationService(tokens TokenResolver) (*DefaultNotificationService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("notification service initialization error: token resolver is nil")
	}
	return &DefaultNotificationService{Tokens: tokens}, nil
}

// SendNursePush looks up a nurse's FCM token and sends a push.
func (s *DefaultNotificationService) SendNursePush(
	ctx context.Context,
	nurseID, title, body string,
	data map[string]string,
) error {
	token, err := s.Tokens.NurseToken(ctx, nurseID)
	if err != nil {
		return fmt.Errorf("SendNursePush: could not resolve token for nurse %s: %w", nurseID, err)
	}

	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = "nurse"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendNursePush: failed to send FCM message: %w", err)
	}
	return nil
}

// SendClientPush looks up a client's FCM token and sends a push.
func (s *DefaultNotificationService) SendClientPush(
	ctx context.Context,
	clientID, title, body string,
	data map[string]string,
) error {
	token, err := s.Tokens.ClientToken(ctx, clientID)
	if err != nil {
		return fmt.Errorf("SendClientPush: could not resolve token for client %s: %w", clientID, err)
	}

	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = "client"
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendClientPush: failed to send FCM message: %w", err)
	}
	return nil
}

// SendEscalationAlert delivers the highest-severity safety alert after the
// welfare monitor escalates. It uses a distinct channel and priority so it
// cannot be confused with an ordinary reminder.
func (s *DefaultNotificationService) SendEscalationAlert(
	ctx context.Context,
	requestID, nurseID string,
	missedCount int,
) error {
	token, err := s.Tokens.NurseToken(ctx, nurseID)
	if err != nil {
		return fmt.Errorf("SendEscalationAlert: could not resolve token for nurse %s: %w", nurseID, err)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Safety alert triggered",
			Body:  fmt.Sprintf("You missed %d welfare check-ins. Your trusted contacts and our safety desk have been alerted.", missedCount),
		},
		Data: map[string]string{
			"type":        "safety_escalation",
			"requestId":   requestID,
			"missedCount": fmt.Sprintf("%d", missedCount),
			"role":        "nurse",
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "safety_alerts",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendEscalationAlert: failed to send FCM message: %w", err)
	}
	return nil
}
