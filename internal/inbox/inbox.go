// Package inbox ranks each user's conversations by recency.
package inbox

import (
	"context"
	"sort"
	"time"

	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"
	"chatsock/backend/internal/storage"

	"go.uber.org/zap"
)

// Store is the part of storage.Storage the ranker reads and writes.
type Store interface {
	Touch(ctx context.Context, domain string, touch storage.InboxTouch) error
	InboxScores(ctx context.Context, domain string, userID int64) ([]storage.ScoredMember, error)
}

type Service struct {
	Store  Store
	Domain string
	Log    *zap.Logger
}

func NewService(store Store, domain string, log *zap.Logger) *Service {
	return &Service{Store: store, Domain: domain, Log: log}
}

// Touches returns the inbox upserts for one send. A direct message touches
// both participants. A topic message only touches the sender.
func Touches(sender int64, kind conversation.Kind, targetID int64, at time.Time) []storage.InboxTouch {
	touches := []storage.InboxTouch{
		{UserID: sender, Member: conversation.InboxMember(kind, targetID), At: at},
	}
	if kind == conversation.User && targetID != sender {
		touches = append(touches, storage.InboxTouch{
			UserID: targetID,
			Member: conversation.InboxMember(conversation.User, sender),
			At:     at,
		})
	}
	return touches
}

// Touch records activity on one conversation for one user.
func (s *Service) Touch(ctx context.Context, userID int64, kind conversation.Kind, id int64, at time.Time) error {
	return s.Store.Touch(ctx, s.Domain, storage.InboxTouch{
		UserID: userID,
		Member: conversation.InboxMember(kind, id),
		At:     at,
	})
}

// Page is one slice of a ranked inbox.
type Page struct {
	State   models.PageState
	Entries []models.InboxEntry
}

// ListPage reads the whole inbox, newest first, and slices it in memory.
// Ties on score are broken by member so the order is stable across reads.
func (s *Service) ListPage(ctx context.Context, userID int64, page, perPage int) (Page, error) {
	out := Page{
		State: models.PageState{
			Key:        conversation.InboxKey(s.Domain, userID),
			Page:       page,
			PerPage:    perPage,
			TotalPages: 1,
		},
		Entries: []models.InboxEntry{},
	}

	members, err := s.Store.InboxScores(ctx, s.Domain, userID)
	if err != nil {
		return Page{}, err
	}

	type ranked struct {
		member string
		entry  models.InboxEntry
	}
	all := make([]ranked, 0, len(members))
	for _, m := range members {
		kind, id, err := conversation.ParseInboxMember(m.Member)
		if err != nil {
			s.Log.Warn("skipping malformed inbox member",
				zap.Int64("user_id", userID), zap.String("member", m.Member), zap.Error(err))
			continue
		}
		all = append(all, ranked{
			member: m.Member,
			entry:  models.InboxEntry{Type: kind, ID: id, Timestamp: m.Score},
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].entry.Timestamp != all[j].entry.Timestamp {
			return all[i].entry.Timestamp > all[j].entry.Timestamp
		}
		return all[i].member < all[j].member
	})

	out.State.Total = len(all)
	out.State.TotalPages = models.TotalPages(len(all), perPage)

	// Compare page numbers before multiplying: a huge ?page would overflow start.
	if len(all) == 0 || page < 1 || perPage < 1 || page-1 > (len(all)-1)/perPage {
		return out, nil
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(all))
	for _, r := range all[start:end] {
		out.Entries = append(out.Entries, r.entry)
	}
	return out, nil
}
