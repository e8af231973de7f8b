package chathub_test

import (
	"context"
	"sync/atomic"
	"time"

	"chatsock/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID      int64
	connID      string
	closed      atomic.Bool
	RecvChannel chan models.Frame
}

func newMockClient(userID int64, connID string) *MockClient {
	return &MockClient{
		userID:      userID,
		connID:      connID,
		RecvChannel: make(chan models.Frame, 10),
	}
}

func (c *MockClient) GetUserID() int64 {
	return c.userID
}

func (c *MockClient) GetConnID() string {
	return c.connID
}

func (c *MockClient) GetSendChannel() chan<- models.Frame {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Store(true)
}

func (c *MockClient) IsClosed() bool {
	return c.closed.Load()
}

// MockPresence is a testify mock of chathub.Presence.
type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) RefreshConnection(ctx context.Context, userID int64, connID string, ttl time.Duration) error {
	args := m.Called(ctx, userID, connID, ttl)
	return args.Error(0)
}

func (m *MockPresence) UnregisterConnection(ctx context.Context, domain string, userID int64, connID string) (int64, error) {
	args := m.Called(ctx, domain, userID, connID)
	return args.Get(0).(int64), args.Error(1)
}
