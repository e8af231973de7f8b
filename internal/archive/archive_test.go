package archive_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chatsock/backend/internal/archive"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type failingStore struct {
	err   error
	calls int
}

func (s *failingStore) Appended(ctx context.Context, key conversation.Key, m models.Message) error {
	s.calls++
	return s.err
}

func (s *failingStore) Updated(ctx context.Context, key conversation.Key, m models.Message) error {
	s.calls++
	return s.err
}

func (s *failingStore) Removed(ctx context.Context, key conversation.Key, messageID string) error {
	s.calls++
	return s.err
}

func dmKey(t *testing.T) conversation.Key {
	t.Helper()
	key, err := conversation.Resolve("myplatform", conversation.User, 2, 1)
	require.NoError(t, err)
	return key
}

func message() models.Message {
	return models.Message{
		ID:        "m1",
		Author:    1,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Type:      models.TextMessage,
		Text:      "hi",
		Status:    models.StatusSeen,
	}
}

// dryRunStore builds SQL without a server and captures it through the zap adapter.
func dryRunStore(t *testing.T) (*archive.GormStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	gormLog := archive.NewGormLogger(zap.New(core)).LogMode(logger.Info)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=chatsock dbname=chatsock sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, Logger: gormLog})
	require.NoError(t, err)
	return &archive.GormStore{DB: db}, logs
}

func lastSQL(t *testing.T, logs *observer.ObservedLogs) string {
	t.Helper()
	entries := logs.FilterMessage("query").All()
	require.NotEmpty(t, entries)
	return entries[len(entries)-1].ContextMap()["sql"].(string)
}

func TestArchiver_DisabledDropsWrites(t *testing.T) {
	a := archive.Disabled(zap.NewNop())

	assert.False(t, a.Enabled())
	assert.NotPanics(t, func() {
		a.Appended(dmKey(t), message())
		a.Removed(dmKey(t), "m1")
		a.Wait()
	})
}

func TestArchiver_FailuresAreLogged(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.ErrorLevel)
	store := &failingStore{err: errors.New("connection refused")}
	a := archive.NewArchiver(store, zap.New(core))

	// Act
	a.Appended(dmKey(t), message())
	a.Wait()

	// Assert
	assert.Equal(t, 1, store.calls)
	entries := logs.FilterMessage("archive write failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "append", fields["op"])
	assert.Equal(t, "myplatform:dm:1-2", fields["key"])
	assert.Equal(t, "m1", fields["message_id"])
}

// recordingStore logs the order writes land in. Appends for a key listed in
// hold block until that channel is closed.
type recordingStore struct {
	mu   sync.Mutex
	ops  []string
	hold map[string]chan struct{}
}

func (s *recordingStore) record(op string, key conversation.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op+" "+key.String())
}

func (s *recordingStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *recordingStore) Appended(ctx context.Context, key conversation.Key, m models.Message) error {
	if gate, ok := s.hold[key.String()]; ok {
		<-gate
	}
	s.record("append", key)
	return nil
}

func (s *recordingStore) Updated(ctx context.Context, key conversation.Key, m models.Message) error {
	s.record("update", key)
	return nil
}

func (s *recordingStore) Removed(ctx context.Context, key conversation.Key, messageID string) error {
	s.record("remove", key)
	return nil
}

func TestArchiver_WritesForOneConversationKeepOrder(t *testing.T) {
	// Arrange
	gate := make(chan struct{})
	store := &recordingStore{hold: map[string]chan struct{}{"myplatform:dm:1-2": gate}}
	a := archive.NewArchiver(store, zap.NewNop())
	key := dmKey(t)
	other, err := conversation.Resolve("myplatform", conversation.Topic, 1, 42)
	require.NoError(t, err)

	// Act: the insert is slow, the follow-ups are queued right behind it.
	a.Appended(key, message())
	a.Updated(key, message())
	a.Removed(key, "m1")
	a.Appended(other, message())

	// Assert: other conversations are not held up.
	assert.Eventually(t, func() bool {
		return len(store.Ops()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"append myplatform:topic:42"}, store.Ops())

	close(gate)
	a.Wait()
	assert.Equal(t, []string{
		"append myplatform:topic:42",
		"append myplatform:dm:1-2",
		"update myplatform:dm:1-2",
		"remove myplatform:dm:1-2",
	}, store.Ops())
}

func TestGormStore_Appended(t *testing.T) {
	store, logs := dryRunStore(t)

	require.NoError(t, store.Appended(context.Background(), dmKey(t), message()))

	sql := lastSQL(t, logs)
	assert.True(t, strings.HasPrefix(sql, `INSERT INTO "message_records"`), sql)
	assert.Contains(t, sql, "'myplatform:dm:1-2'")
	assert.Contains(t, sql, "'m1'")
}

func TestGormStore_Updated(t *testing.T) {
	store, logs := dryRunStore(t)

	require.NoError(t, store.Updated(context.Background(), dmKey(t), message()))

	sql := lastSQL(t, logs)
	assert.True(t, strings.HasPrefix(sql, `UPDATE "message_records" SET`), sql)
	assert.Contains(t, sql, `"status"='seen'`)
	assert.Contains(t, sql, "message_id = 'm1'")
}

func TestGormStore_RemovedIsSoftDelete(t *testing.T) {
	store, logs := dryRunStore(t)

	require.NoError(t, store.Removed(context.Background(), dmKey(t), "m1"))

	sql := lastSQL(t, logs)
	assert.Contains(t, sql, `UPDATE "message_records" SET "deleted_at"=`)
	assert.NotContains(t, sql, "DELETE FROM")
}

func TestGormLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := archive.NewGormLogger(zap.New(core))
	ctx := context.Background()

	l.Info(ctx, "ignored at warn level")
	l.Warn(ctx, "slow %s", "thing")
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)

	assert.Equal(t, 0, logs.FilterMessage("ignored at warn level").Len())
	assert.Equal(t, 1, logs.FilterMessage("slow thing").Len())
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("query").Len())
}
