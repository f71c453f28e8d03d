package notification

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	nurseTokenPrefix  = "fcm:nurse:"
	clientTokenPrefix = "fcm:client:"
)

// RedisTokenResolver reads FCM device tokens mirrored into Redis by the
// device registration endpoint.
type RedisTokenResolver struct {
	Client *redis.Client
}

func (r *RedisTokenResolver) NurseToken(ctx context.Context, nurseID string) (string, error) {
	return r.lookup(ctx, nurseTokenPrefix+nurseID, "nurse", nurseID)
}

func (r *RedisTokenResolver) ClientToken(ctx context.Context, clientID string) (string, error) {
	return r.lookup(ctx, clientTokenPrefix+clientID, "client", clientID)
}

func (r *RedisTokenResolver) lookup(ctx context.Context, key, role, id string) (string, error) {
	token, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%s %s has no registered FCM token", role, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up FCM token for %s %s: %w", role, id, err)
	}
	return token, nil
}

// SaveNurseToken stores a nurse's device token.
func (r *RedisTokenResolver) SaveNurseToken(ctx context.Context, nurseID, token string) error {
	return r.Client.Set(ctx, nurseTokenPrefix+nurseID, token, 0).Err()
}

// SaveClientToken stores a client's device token.
func (r *RedisTokenResolver) SaveClientToken(ctx context.Context, clientID, token string) error {
	return r.Client.Set(ctx, clientTokenPrefix+clientID, token, 0).Err()
}
