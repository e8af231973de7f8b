package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Touch upserts one inbox member outside of an append batch.
func (s *Service) Touch(ctx context.Context, domain string, touch InboxTouch) error {
	err := s.Redis.ZAdd(ctx, s.inboxKey(domain, touch.UserID), redis.Z{
		Score:  millis(touch.At),
		Member: touch.Member,
	}).Err()
	if err != nil {
		return fmt.Errorf("touch inbox %d: %w", touch.UserID, err)
	}
	return nil
}

// InboxScores returns every member of a user's inbox, highest score first.
func (s *Service) InboxScores(ctx context.Context, domain string, userID int64) ([]ScoredMember, error) {
	zs, err := s.Redis.ZRevRangeWithScores(ctx, s.inboxKey(domain, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("inbox %d: %w", userID, err)
	}
	out := make([]ScoredMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ScoredMember{Member: member, Score: int64(z.Score)})
	}
	return out, nil
}
