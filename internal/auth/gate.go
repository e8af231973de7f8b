package auth

import (
	"context"
	"errors"
	"time"

	"chatsock/backend/internal/config"
	"chatsock/backend/internal/directory"
	"chatsock/backend/internal/models"
)

// Rejection types sent to live clients.
const (
	ErrTypeInvalidToken = "invalid_token"
	ErrTypeAPI          = "api_error"
	ErrTypeUser         = "user_error"
)

// LiveAuthError is a user-facing rejection of a live connection.
type LiveAuthError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *LiveAuthError) Error() string { return e.Type + ": " + e.Message }

// Gate admits live connections after a remote session check.
type Gate struct {
	Verifier  *Verifier
	Directory directory.Service
	Timeout   time.Duration
}

func NewGate(v *Verifier, dir directory.Service, timeout time.Duration) *Gate {
	return &Gate{Verifier: v, Directory: dir, Timeout: timeout}
}

// AuthenticateLive verifies token locally, then asks the directory for the
// full session. It returns the user's profile or a *LiveAuthError.
func (g *Gate) AuthenticateLive(ctx context.Context, token string) (*models.Profile, error) {
	claims, err := g.Verifier.Verify(token)
	if err != nil {
		return nil, &LiveAuthError{Message: "Your token is invalid - please check it and try again", Type: ErrTypeInvalidToken}
	}
	if _, ok := UserID(claims); !ok {
		return nil, &LiveAuthError{Message: "Incorrect token - please try a different one", Type: ErrTypeInvalidToken}
	}

	resigned, err := g.Verifier.Resign(claims)
	if err != nil {
		return nil, &LiveAuthError{Message: "Your token is invalid - please check it and try again", Type: ErrTypeInvalidToken}
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	session, err := g.Directory.Authenticate(ctx, resigned)
	if err != nil || session == nil {
		msg := "Failed to connect to the API"
		var remote *directory.RemoteError
		if errors.As(err, &remote) && remote.Message != "" {
			msg = remote.Message
		}
		return nil, &LiveAuthError{Message: msg, Type: ErrTypeAPI}
	}

	user := session.User
	if user == nil || user.ID == 0 {
		return nil, &LiveAuthError{Message: "Invalid user returned from the session", Type: ErrTypeAPI}
	}
	if user.RoleHandle() == "" {
		return nil, &LiveAuthError{Message: "Missing user role", Type: ErrTypeAPI}
	}
	if msg, blocked := config.BlockedRoles[user.RoleHandle()]; blocked {
		return nil, &LiveAuthError{Message: msg, Type: ErrTypeUser}
	}
	return user, nil
}
