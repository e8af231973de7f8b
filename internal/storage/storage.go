package storage

import (
	"context"
	"fmt"
	"time"

	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Storage is the Redis-backed message store, inbox index and presence registry.
type Storage interface {
	Append(ctx context.Context, key conversation.Key, msg models.Message, touches ...InboxTouch) (models.Message, error)
	Update(ctx context.Context, key conversation.Key, id string, patch models.Patch) (models.Message, error)
	Remove(ctx context.Context, key conversation.Key, id string) error
	Page(ctx context.Context, key conversation.Key, page, perPage int) (Page, error)
	Latest(ctx context.Context, key conversation.Key) (*models.Message, error)

	Touch(ctx context.Context, domain string, touch InboxTouch) error
	InboxScores(ctx context.Context, domain string, userID int64) ([]ScoredMember, error)

	RegisterConnection(ctx context.Context, domain string, userID int64, connID string, ttl time.Duration) error
	RefreshConnection(ctx context.Context, userID int64, connID string, ttl time.Duration) error
	UnregisterConnection(ctx context.Context, domain string, userID int64, connID string) (int64, error)
	Activity(ctx context.Context, domain string, userID int64) (map[string]string, error)
	ConnectionCount(ctx context.Context, userID int64) (int64, error)
}

type Service struct {
	Redis  *redis.Client
	Prefix string
}

// NewStorageService Constructor
func NewStorageService(rdb *redis.Client, prefix string) *Service {
	return &Service{
		Redis:  rdb,
		Prefix: prefix,
	}
}

// Page is one window of a conversation log.
type Page struct {
	Messages   []models.Message
	Total      int
	TotalPages int
}

// InboxTouch upserts Member into UserID's inbox with At as the score.
type InboxTouch struct {
	UserID int64
	Member string
	At     time.Time
}

// ScoredMember is a raw inbox member with its score in epoch milliseconds.
type ScoredMember struct {
	Member string
	Score  int64
}

func (s *Service) logKey(key conversation.Key) string {
	return fmt.Sprintf("%s:messages:%s", s.Prefix, key)
}

func (s *Service) dataKey(key conversation.Key) string {
	return s.logKey(key) + ":data"
}

func (s *Service) inboxKey(domain string, userID int64) string {
	return fmt.Sprintf("%s:messages:%s", s.Prefix, conversation.InboxKey(domain, userID))
}

func (s *Service) activityKey(domain string, userID int64) string {
	return fmt.Sprintf("%s:messages:%s", s.Prefix, conversation.ActivityKey(domain, userID))
}

func (s *Service) presenceKey(userID int64) string {
	return fmt.Sprintf("%s:presence:%d", s.Prefix, userID)
}

func millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}
