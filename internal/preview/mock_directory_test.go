package preview_test

import (
	"context"
	"strconv"

	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetProfilesByIDs(ctx context.Context, kind conversation.Kind, ids []int64) ([]models.Profile, error) {
	args := m.Called(ctx, kind, ids)
	profiles, _ := args.Get(0).([]models.Profile)
	return profiles, args.Error(1)
}

func (m *MockDirectory) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

type MockLatest struct {
	mock.Mock
}

func (m *MockLatest) Latest(ctx context.Context, key conversation.Key) (*models.Message, error) {
	args := m.Called(ctx, key.String())
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func barry(id int64) models.Profile {
	return models.Profile{
		ID:       id,
		Username: "Barry from Earth-" + strconv.FormatInt(id, 10),
		Role:     &models.Role{ID: 3, Handle: "registered", Value: "Registered"},
	}
}
