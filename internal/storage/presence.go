package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chatsock/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Members of a presence set are connection ids scored by their expiry.
// unregisterScript drops one connection, sweeps expired ones and flips the
// activity status to inactive once nothing is left, all in one step.
var unregisterScript = redis.NewScript(`
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local remaining = redis.call("ZCARD", KEYS[1])
if remaining == 0 then
	redis.call("HSET", KEYS[2], "status", ARGV[3])
end
return remaining
`)

// RegisterConnection records a live connection and marks the user active.
func (s *Service) RegisterConnection(ctx context.Context, domain string, userID int64, connID string, ttl time.Duration) error {
	expiry := time.Now().Add(ttl)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.presenceKey(userID), redis.Z{Score: millis(expiry), Member: connID})
		pipe.Expire(ctx, s.presenceKey(userID), ttl)
		pipe.HSet(ctx, s.activityKey(domain, userID), "status", config.StatusActive)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register connection %d/%s: %w", userID, connID, err)
	}
	return nil
}

// RefreshConnection pushes the expiry of a live connection forward. Only
// members still in the set are touched: a heartbeat that races a disconnect
// must not bring the released connection back.
func (s *Service) RefreshConnection(ctx context.Context, userID int64, connID string, ttl time.Duration) error {
	expiry := time.Now().Add(ttl)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddXX(ctx, s.presenceKey(userID), redis.Z{Score: millis(expiry), Member: connID})
		pipe.Expire(ctx, s.presenceKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh connection %d/%s: %w", userID, connID, err)
	}
	return nil
}

// UnregisterConnection removes a connection and returns how many live
// connections the user still has across all processes.
func (s *Service) UnregisterConnection(ctx context.Context, domain string, userID int64, connID string) (int64, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	keys := []string{s.presenceKey(userID), s.activityKey(domain, userID)}

	remaining, err := unregisterScript.Run(ctx, s.Redis, keys, connID, now, config.StatusInactive).Int64()
	if err != nil {
		return 0, fmt.Errorf("unregister connection %d/%s: %w", userID, connID, err)
	}
	return remaining, nil
}

// Activity returns the user's activity hash (status, last_active).
func (s *Service) Activity(ctx context.Context, domain string, userID int64) (map[string]string, error) {
	out, err := s.Redis.HGetAll(ctx, s.activityKey(domain, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w", userID, err)
	}
	return out, nil
}

// ConnectionCount counts unexpired live connections for a user.
func (s *Service) ConnectionCount(ctx context.Context, userID int64) (int64, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	n, err := s.Redis.ZCount(ctx, s.presenceKey(userID), "("+now, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("connection count %d: %w", userID, err)
	}
	return n, nil
}
