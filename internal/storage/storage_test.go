package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"
	"chatsock/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const domain = "myplatform"

var sentAt = time.UnixMilli(1464903576342).UTC()

func newTestService(t *testing.T) (*storage.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storage.NewStorageService(rdb, "chatsock"), mr
}

func dmKey(t *testing.T, a, b int64) conversation.Key {
	t.Helper()
	key, err := conversation.Resolve(domain, conversation.User, a, b)
	require.NoError(t, err)
	return key
}

func textMessage(id string, author int64, text string, at time.Time) models.Message {
	return models.Message{ID: id, Author: author, Timestamp: at, Type: models.TextMessage, Text: text}
}

func TestAppend_WritesDataLogActivityAndInbox(t *testing.T) {
	// Arrange
	s, mr := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 388636, 524376)
	touches := []storage.InboxTouch{
		{UserID: 388636, Member: "user-524376", At: sentAt},
		{UserID: 524376, Member: "user-388636", At: sentAt},
	}

	// Act
	stored, err := s.Append(ctx, key, textMessage("", 388636, "hello", sentAt), touches...)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	ids, err := mr.List("chatsock:messages:myplatform:dm:388636-524376")
	require.NoError(t, err)
	assert.Equal(t, []string{stored.ID}, ids)
	assert.NotEmpty(t, mr.HGet("chatsock:messages:myplatform:dm:388636-524376:data", stored.ID))
	assert.NotEmpty(t, mr.HGet("chatsock:messages:myplatform:activity:388636", "last_active"))

	score, err := mr.ZScore("chatsock:messages:myplatform:inbox:524376", "user-388636")
	require.NoError(t, err)
	assert.Equal(t, float64(sentAt.UnixMilli()), score)
}

func TestAppendThenPage_TailHoldsNewest(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 1, 2)

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, key, textMessage(fmt.Sprintf("m%d", i), 1, "hi", sentAt.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	page, err := s.Page(ctx, key, 1, 10)

	require.NoError(t, err)
	ids := make([]string, 0, len(page.Messages))
	for _, m := range page.Messages {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]string{"m0", "m1", "m2"}, ids); diff != "" {
		t.Errorf("page ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPage_WindowsFromTail(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 1, 2)
	for i := 0; i < 25; i++ {
		_, err := s.Append(ctx, key, textMessage(fmt.Sprintf("m%02d", i), 1, "hi", sentAt))
		require.NoError(t, err)
	}

	tests := []struct {
		page      int
		wantFirst string
		wantLast  string
		wantTotal int
	}{
		{1, "m15", "m24", 10},
		{2, "m05", "m14", 10},
		{3, "m00", "m04", 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			page, err := s.Page(ctx, key, tt.page, 10)

			require.NoError(t, err)
			require.Len(t, page.Messages, tt.wantTotal)
			assert.Equal(t, tt.wantFirst, page.Messages[0].ID)
			assert.Equal(t, tt.wantLast, page.Messages[len(page.Messages)-1].ID)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func TestPage_DropsUnparseableEntries(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 1, 2)
	_, err := s.Append(ctx, key, textMessage("good", 1, "hi", sentAt))
	require.NoError(t, err)

	_, err = mr.RPush("chatsock:messages:myplatform:dm:1-2", "broken", "ghost")
	require.NoError(t, err)
	mr.HSet("chatsock:messages:myplatform:dm:1-2:data", "broken", "{not json")

	page, err := s.Page(ctx, key, 1, 10)

	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "good", page.Messages[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestPage_Empty(t *testing.T) {
	s, _ := newTestService(t)

	page, err := s.Page(context.Background(), dmKey(t, 1, 2), 1, 10)

	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.NotNil(t, page.Messages)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestUpdate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 1, 2)
	_, err := s.Append(ctx, key, textMessage("m1", 1, "hi", sentAt))
	require.NoError(t, err)

	t.Run("changes text and keeps the rest", func(t *testing.T) {
		updated, err := s.Update(ctx, key, "m1", models.Patch{Text: "edited"})

		require.NoError(t, err)
		want := textMessage("m1", 1, "edited", sentAt)
		if diff := cmp.Diff(want, updated); diff != "" {
			t.Errorf("updated message mismatch (-want +got):\n%s", diff)
		}

		latest, err := s.Latest(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "edited", latest.Text)
	})

	t.Run("no effective change", func(t *testing.T) {
		_, err := s.Update(ctx, key, "m1", models.Patch{Text: "edited"})

		assert.ErrorIs(t, err, apperr.NoChanges())
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := s.Update(ctx, key, "m1", models.Patch{})

		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "No valid data was supplied", ae.Message)
		assert.Equal(t, 400, ae.Status)
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := s.Update(ctx, key, "nope", models.Patch{Status: "seen"})

		assert.ErrorIs(t, err, apperr.NotFound())
	})
}

func TestRemove(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	key := dmKey(t, 1, 2)
	_, err := s.Append(ctx, key, textMessage("m1", 1, "first", sentAt))
	require.NoError(t, err)
	_, err = s.Append(ctx, key, textMessage("m2", 2, "second", sentAt.Add(time.Second)))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, key, "m2"))

	page, err := s.Page(ctx, key, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "m1", page.Messages[0].ID)
	assert.Equal(t, 1, page.Total)

	latest, err := s.Latest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "m1", latest.ID)

	assert.ErrorIs(t, s.Remove(ctx, key, "m2"), apperr.NotFound())
}

func TestLatest_EmptyLog(t *testing.T) {
	s, _ := newTestService(t)

	latest, err := s.Latest(context.Background(), dmKey(t, 1, 2))

	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStorage_RedisFailure(t *testing.T) {
	s, mr := newTestService(t)
	mr.SetError("LOADING")

	_, err := s.Page(context.Background(), dmKey(t, 1, 2), 1, 10)

	assert.ErrorContains(t, err, "page myplatform:dm:1-2")
}
