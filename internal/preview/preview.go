// Package preview decorates inbox entries and history pages with directory
// profiles and latest messages.
package preview

import (
	"context"

	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/directory"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LatestReader returns the newest message of a conversation, or nil.
type LatestReader interface {
	Latest(ctx context.Context, key conversation.Key) (*models.Message, error)
}

type Aggregator struct {
	Store     LatestReader
	Directory directory.Service
	Domain    string
	Log       *zap.Logger
}

func NewAggregator(store LatestReader, dir directory.Service, domain string, log *zap.Logger) *Aggregator {
	return &Aggregator{Store: store, Directory: dir, Domain: domain, Log: log}
}

// Decorate attaches the latest message and the profile to every entry,
// keeping the input order. Topic and user buckets are fetched concurrently.
// A failed directory call fails the whole listing; a failed latest lookup
// or a profile missing from a successful batch renders as null.
func (a *Aggregator) Decorate(ctx context.Context, viewer int64, entries []models.InboxEntry) ([]models.PreviewEntry, error) {
	buckets := make(map[conversation.Kind][]int)
	for i, e := range entries {
		buckets[e.Type] = append(buckets[e.Type], i)
	}

	latest := make([]*models.MessageView, len(entries))
	profiles := make([]*models.Profile, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for kind, indices := range buckets {
		g.Go(func() error {
			return a.bucket(gctx, viewer, kind, entries, indices, latest, profiles)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.PreviewEntry, len(entries))
	for i, e := range entries {
		out[i] = models.PreviewEntry{
			Type:      e.Type,
			ID:        e.ID,
			Latest:    latest[i],
			Timestamp: models.TimestampFromMillis(e.Timestamp),
			Profile:   profiles[i],
		}
	}
	return out, nil
}

// bucket writes only to the positions listed in indices.
func (a *Aggregator) bucket(ctx context.Context, viewer int64, kind conversation.Kind, entries []models.InboxEntry,
	indices []int, latest []*models.MessageView, profiles []*models.Profile) error {
	g, gctx := errgroup.WithContext(ctx)

	ids := make([]int64, 0, len(indices))
	seen := make(map[int64]bool, len(indices))
	for _, i := range indices {
		if !seen[entries[i].ID] {
			seen[entries[i].ID] = true
			ids = append(ids, entries[i].ID)
		}
	}

	g.Go(func() error {
		found, err := a.Directory.GetProfilesByIDs(gctx, kind, ids)
		if err != nil {
			return err
		}
		byID := models.IndexProfiles(found)
		for _, i := range indices {
			profiles[i] = byID[entries[i].ID]
		}
		return nil
	})

	for _, i := range indices {
		g.Go(func() error {
			key, err := conversation.Resolve(a.Domain, kind, viewer, entries[i].ID)
			if err != nil {
				return nil
			}
			msg, err := a.Store.Latest(gctx, key)
			if err != nil {
				a.Log.Warn("latest message lookup failed",
					zap.String("key", key.String()), zap.Error(err))
				return nil
			}
			if msg != nil {
				v := msg.View()
				latest[i] = &v
			}
			return nil
		})
	}

	return g.Wait()
}

// History is a page of messages with resolved authors and the conversation entry.
type History struct {
	Entry    *models.Profile
	Messages []models.MessageView
}

// DecorateHistory resolves message authors and the page's entry: the topic
// for topic pages, the counterpart's profile for direct messages.
func (a *Aggregator) DecorateHistory(ctx context.Context, kind conversation.Kind, targetID int64, messages []models.Message) (History, error) {
	authorIDs := make([]int64, 0, len(messages)+1)
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			authorIDs = append(authorIDs, id)
		}
	}
	if kind == conversation.User {
		add(targetID)
	}
	for _, m := range messages {
		add(m.Author)
	}

	var (
		topic *models.Profile
		users map[int64]*models.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	if kind == conversation.Topic {
		g.Go(func() error {
			found, err := a.Directory.GetProfilesByIDs(gctx, conversation.Topic, []int64{targetID})
			if err != nil {
				return err
			}
			if len(found) > 0 {
				topic = &found[0]
			}
			return nil
		})
	}
	g.Go(func() error {
		found, err := a.Directory.GetProfilesByIDs(gctx, conversation.User, authorIDs)
		if err != nil {
			return err
		}
		users = models.IndexProfiles(found)
		return nil
	})
	if err := g.Wait(); err != nil {
		return History{}, err
	}

	out := History{Entry: topic, Messages: make([]models.MessageView, 0, len(messages))}
	if kind == conversation.User {
		out.Entry = users[targetID]
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, m.View().WithAuthor(users[m.Author]))
	}
	return out, nil
}
