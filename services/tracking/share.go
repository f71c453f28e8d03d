package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homecare/models"
	"homecare/utils"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

// shareClaims are the claims carried by a trusted-contact capability token.
// The token grants read-only access to exactly one request's tracking view;
// every use is additionally checked against the session's live share set so
// revocation and session teardown void it immediately.
type shareClaims struct {
	RequestID string `json:"requestId"`
	Phone     string `json:"phone"`
	jwt.StandardClaims
}

func (s *DefaultTrackingService) shareSecret() []byte {
	secret := s.Cfg.ShareTokenSecret
	if secret == "" {
		secret = "homecare-share-dev"
	}
	return []byte(secret)
}

func (s *DefaultTrackingService) signShareToken(requestID, phone string) (string, error) {
	claims := shareClaims{
		RequestID: requestID,
		Phone:     phone,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: time.Now().Unix(),
			Subject:  requestID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.shareSecret())
}

func (s *DefaultTrackingService) parseShareToken(tokenString string) (*shareClaims, error) {
	claims := &shareClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.shareSecret(), nil
	})
	if err != nil || !token.Valid {
		return nil, &AuthError{Reason: "invalid share token"}
	}
	return claims, nil
}

// Share grants a trusted contact read-only tracking visibility for one
// session. Re-sharing the same phone is a logical no-op returning the
// existing share. The concurrent-share cap is enforced here, not left to
// callers.
func (s *DefaultTrackingService) Share(ctx context.Context, requestID string, contact models.TrustedContact) (*models.ShareResponse, error) {
	if contact.Name == "" {
		return nil, NewValidationError("contact name is required")
	}
	phone, err := utils.NormalizePhone(contact.Phone, s.Cfg.DefaultPhoneCountryCode)
	if err != nil {
		return nil, NewValidationError("malformed contact phone: %v", err)
	}

	var result models.ShareResponse
	var created *models.TrustedContactShare

	updated, err := s.Store.Update(ctx, requestID, func(session *models.TrackingSession) error {
		if session.Status.IsTerminal() {
			return NewValidationError("session %s has ended", requestID)
		}
		if existing := session.ActiveShare(phone); existing != nil {
			result = models.ShareResponse{ShareURL: existing.ShareURL, Token: existing.Token}
			return nil
		}
		if session.ActiveShareCount() >= s.Cfg.MaxTrustedShares {
			return NewValidationError("maximum of %d concurrent trusted shares reached", s.Cfg.MaxTrustedShares)
		}

		token, signErr := s.signShareToken(requestID, phone)
		if signErr != nil {
			return fmt.Errorf("failed to sign share token: %w", signErr)
		}
		share := models.TrustedContactShare{
			ContactName:  contact.Name,
			ContactPhone: phone,
			Relationship: contact.Relationship,
			Token:        token,
			ShareURL:     fmt.Sprintf("%s/%s", s.Cfg.ShareBaseURL, token),
			IsActive:     true,
			CreatedAt:    s.Monitor.Sched.Now(),
		}
		session.TrustedShares = append(session.TrustedShares, share)
		created = &session.TrustedShares[len(session.TrustedShares)-1]
		result = models.ShareResponse{ShareURL: share.ShareURL, Token: share.Token}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created != nil {
		s.Logger.Info("tracking: trusted contact added",
			zap.String("requestId", requestID),
			zap.String("contactPhone", phone))

		payload := models.TrackingTaskPayload{
			RequestID: requestID,
			Target:    "contact",
			TargetID:  updated.ClientID,
			Title:     "Virtual escort enabled",
			Body:      s.InviteMessage(updated, created),
			FireDate:  s.Monitor.Sched.Now(),
		}
		if dispatchErr := s.Dispatch.EnqueueInvite(payload); dispatchErr != nil {
			s.Logger.Warn("tracking: failed to enqueue contact invite",
				zap.String("requestId", requestID), zap.Error(dispatchErr))
		}
	}

	return &result, nil
}

// Revoke marks the matching share inactive. Subsequent subscribe attempts
// with its token are rejected; other shares are untouched.
func (s *DefaultTrackingService) Revoke(ctx context.Context, requestID, rawPhone string) error {
	phone, err := utils.NormalizePhone(rawPhone, s.Cfg.DefaultPhoneCountryCode)
	if err != nil {
		return NewValidationError("malformed contact phone: %v", err)
	}

	_, err = s.Store.Update(ctx, requestID, func(session *models.TrackingSession) error {
		share := session.ActiveShare(phone)
		if share == nil {
			return NewValidationError("no active share for phone %s", phone)
		}
		now := s.Monitor.Sched.Now()
		share.IsActive = false
		share.RevokedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("tracking: trusted-contact share revoked",
		zap.String("requestId", requestID), zap.String("contactPhone", phone))
	return nil
}

// ValidateShareToken authorizes a trusted-contact viewer. The token must be
// well-formed, scoped to this exact request, and still present as an active
// share on the live session.
func (s *DefaultTrackingService) ValidateShareToken(ctx context.Context, requestID, tokenString string) error {
	claims, err := s.parseShareToken(tokenString)
	if err != nil {
		return err
	}
	if claims.RequestID != requestID {
		return &AuthError{Reason: "share token is scoped to a different session"}
	}

	session, err := s.Store.Get(ctx, requestID)
	if err == ErrSessionNotFound {
		return &AuthError{Reason: "session has ended"}
	}
	if err != nil {
		return err
	}

	share := session.ActiveShare(claims.Phone)
	if share == nil || share.Token != tokenString {
		return &AuthError{Reason: "share token has been revoked"}
	}
	return nil
}

// InviteMessage formats the outbound invitation text for a trusted contact.
// String construction only; delivery happens through a messaging channel.
func (s *DefaultTrackingService) InviteMessage(session *models.TrackingSession, share *models.TrustedContactShare) string {
	first := session.NurseFirstName
	if first == "" {
		first = "Your contact"
	}
	return fmt.Sprintf(
		"Hi %s, %s is on a home visit and added you as a trusted contact. Follow the visit live here: %s",
		share.ContactName, first, share.ShareURL,
	)
}
