package storage_test

import (
	"context"
	"testing"

	"chatsock/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouch_UpsertsByMember(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Touch(ctx, domain, storage.InboxTouch{UserID: 1, Member: "topic-5", At: sentAt}))
	require.NoError(t, s.Touch(ctx, domain, storage.InboxTouch{UserID: 1, Member: "user-2", At: sentAt.Add(1000)}))
	later := sentAt.Add(5e9)
	require.NoError(t, s.Touch(ctx, domain, storage.InboxTouch{UserID: 1, Member: "topic-5", At: later}))

	members, err := s.InboxScores(ctx, domain, 1)

	require.NoError(t, err)
	assert.Equal(t, []storage.ScoredMember{
		{Member: "topic-5", Score: later.UnixMilli()},
		{Member: "user-2", Score: sentAt.UnixMilli()},
	}, members)
}

func TestInboxScores_Empty(t *testing.T) {
	s, _ := newTestService(t)

	members, err := s.InboxScores(context.Background(), domain, 99)

	require.NoError(t, err)
	assert.Empty(t, members)
}
