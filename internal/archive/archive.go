// Package archive mirrors message writes into PostgreSQL. The live store
// stays authoritative; archive failures are logged and never surface to the
// request that caused them.
package archive

import (
	"context"
	"sync"
	"time"

	"chatsock/backend/internal/config"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
)

// Store persists archive rows.
type Store interface {
	Appended(ctx context.Context, key conversation.Key, m models.Message) error
	Updated(ctx context.Context, key conversation.Key, m models.Message) error
	Removed(ctx context.Context, key conversation.Key, messageID string) error
}

// Archiver runs Store writes in the background. A nil Store disables it.
// Writes for one conversation run one after another in call order, so an
// update never reaches the database ahead of the insert it amends.
type Archiver struct {
	Store   Store
	Timeout time.Duration
	Log     *zap.Logger

	wg    sync.WaitGroup
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func NewArchiver(store Store, log *zap.Logger) *Archiver {
	return &Archiver{Store: store, Timeout: config.ArchiveTimeout, Log: log}
}

// Disabled returns an archiver that drops every write.
func Disabled(log *zap.Logger) *Archiver {
	return NewArchiver(nil, log)
}

func (a *Archiver) Enabled() bool { return a.Store != nil }

func (a *Archiver) Appended(key conversation.Key, m models.Message) {
	a.run("append", key, m.ID, func(ctx context.Context) error {
		return a.Store.Appended(ctx, key, m)
	})
}

func (a *Archiver) Updated(key conversation.Key, m models.Message) {
	a.run("update", key, m.ID, func(ctx context.Context) error {
		return a.Store.Updated(ctx, key, m)
	})
}

func (a *Archiver) Removed(key conversation.Key, messageID string) {
	a.run("remove", key, messageID, func(ctx context.Context) error {
		return a.Store.Removed(ctx, key, messageID)
	})
}

// Wait blocks until every pending write has finished.
func (a *Archiver) Wait() {
	a.wg.Wait()
}

func (a *Archiver) run(op string, key conversation.Key, messageID string, write func(ctx context.Context) error) {
	if !a.Enabled() {
		return
	}
	k := key.String()
	done := make(chan struct{})
	a.mu.Lock()
	if a.tails == nil {
		a.tails = make(map[string]chan struct{})
	}
	prev := a.tails[k]
	a.tails[k] = done
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.finish(k, done)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		defer cancel()

		if err := write(ctx); err != nil {
			a.Log.Error("archive write failed",
				zap.String("op", op),
				zap.String("key", key.String()),
				zap.String("message_id", messageID),
				zap.Error(err))
		}
	}()
}

// finish releases the next write queued for k.
func (a *Archiver) finish(k string, done chan struct{}) {
	close(done)
	a.mu.Lock()
	if a.tails[k] == done {
		delete(a.tails, k)
	}
	a.mu.Unlock()
}
