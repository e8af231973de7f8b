package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Append stores msg and pushes its id onto the log in one MULTI/EXEC batch.
// The data entry is written before the id so the log never points at nothing.
// The sender's last_active and every inbox touch ride in the same batch.
func (s *Service) Append(ctx context.Context, key conversation.Key, msg models.Message, touches ...InboxTouch) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC().Truncate(time.Millisecond)

	raw, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("append %s: %w", key, err)
	}

	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.dataKey(key), msg.ID, raw)
		pipe.RPush(ctx, s.logKey(key), msg.ID)
		pipe.HSet(ctx, s.activityKey(key.Domain, msg.Author), "last_active", msg.Timestamp.Format(time.RFC3339Nano))
		for _, t := range touches {
			pipe.ZAdd(ctx, s.inboxKey(key.Domain, t.UserID), redis.Z{Score: millis(t.At), Member: t.Member})
		}
		return nil
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("append %s: %w", key, err)
	}
	return msg, nil
}

// Update merges patch onto a stored message and rewrites its data entry.
// The log itself is untouched.
func (s *Service) Update(ctx context.Context, key conversation.Key, id string, patch models.Patch) (models.Message, error) {
	msg, err := s.get(ctx, key, id)
	if err != nil {
		return models.Message{}, err
	}
	if msg == nil {
		return models.Message{}, apperr.NotFound()
	}

	if !msg.Apply(patch) {
		return models.Message{}, apperr.NoChanges()
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("update %s/%s: %w", key, id, err)
	}
	if err := s.Redis.HSet(ctx, s.dataKey(key), id, raw).Err(); err != nil {
		return models.Message{}, fmt.Errorf("update %s/%s: %w", key, id, err)
	}
	return *msg, nil
}

// Remove deletes the data entry and one occurrence of the id from the log.
func (s *Service) Remove(ctx context.Context, key conversation.Key, id string) error {
	exists, err := s.Redis.HExists(ctx, s.dataKey(key), id).Result()
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", key, id, err)
	}
	if !exists {
		return apperr.NotFound()
	}

	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.dataKey(key), id)
		pipe.LRem(ctx, s.logKey(key), -1, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", key, id, err)
	}
	return nil
}

// Page reads a window counted back from the tail of the log. Page 1 holds the
// newest perPage ids. Entries that are missing or fail to parse are dropped
// and do not count toward Total.
func (s *Service) Page(ctx context.Context, key conversation.Key, page, perPage int) (Page, error) {
	start := -int64(page * perPage)
	stop := -int64((page-1)*perPage + 1)

	ids, err := s.Redis.LRange(ctx, s.logKey(key), start, stop).Result()
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", key, err)
	}

	out := Page{Messages: []models.Message{}, TotalPages: 1}
	if len(ids) == 0 {
		return out, nil
	}

	values, err := s.Redis.HMGet(ctx, s.dataKey(key), ids...).Result()
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", key, err)
	}

	for _, v := range values {
		if msg, ok := decode(v); ok {
			out.Messages = append(out.Messages, msg)
		}
	}
	out.Total = len(out.Messages)
	out.TotalPages = models.TotalPages(out.Total, perPage)
	return out, nil
}

// Latest returns the newest message of the log, or nil when there is none.
func (s *Service) Latest(ctx context.Context, key conversation.Key) (*models.Message, error) {
	ids, err := s.Redis.LRange(ctx, s.logKey(key), -1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", key, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.get(ctx, key, ids[0])
}

// get returns nil without error when the entry is missing or unparseable.
func (s *Service) get(ctx context.Context, key conversation.Key, id string) (*models.Message, error) {
	raw, err := s.Redis.HGet(ctx, s.dataKey(key), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", key, id, err)
	}
	msg, ok := decode(raw)
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func decode(v any) (models.Message, bool) {
	var raw string
	switch t := v.(type) {
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return models.Message{}, false
	}
	var msg models.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil || msg.ID == "" {
		return models.Message{}, false
	}
	return msg, true
}
