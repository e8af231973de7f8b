// Package directory talks to the external service that owns user and topic
// profiles and validates sessions.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"
)

// Service resolves profiles and sessions.
type Service interface {
	GetProfilesByIDs(ctx context.Context, kind conversation.Kind, ids []int64) ([]models.Profile, error)
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

type Client struct {
	BaseURL    string
	UserAgent  string
	AuthHeader string
	HTTP       *http.Client
}

func NewClient(baseURL, userAgent, authHeader string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserAgent:  userAgent,
		AuthHeader: authHeader,
		HTTP:       &http.Client{Timeout: timeout},
	}
}

// RemoteError is an error the directory reported in its response body.
type RemoteError struct {
	Status  int
	Code    string
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("directory: %s (%d): %s", e.Name, e.Status, e.Message)
}

func (e *RemoteError) AppError() *apperr.Error {
	return apperr.Remote(e.Code, e.Name, e.Message, e.Status)
}

// TransportError covers failures to reach the directory or read its answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) AppError() *apperr.Error {
	return apperr.Unavailable(e)
}

var profileFields = map[conversation.Kind]struct{ path, fields string }{
	conversation.User:  {"/v1/users", "id,username,role"},
	conversation.Topic: {"/v1/topics", "id,title,status"},
}

// GetProfilesByIDs fetches all ids of one kind in a single call.
func (c *Client) GetProfilesByIDs(ctx context.Context, kind conversation.Kind, ids []int64) ([]models.Profile, error) {
	target, ok := profileFields[kind]
	if !ok {
		return nil, apperr.InvalidTarget(string(kind))
	}
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("fields", target.fields)
	q.Set("ids", strings.Join(parts, ","))

	var body struct {
		Entries []models.Profile `json:"entries"`
	}
	if err := c.get(ctx, target.path+"?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	if body.Entries == nil {
		return nil, &TransportError{Op: target.path, Err: fmt.Errorf("response has no entries")}
	}
	return body.Entries, nil
}

// Authenticate exchanges a signed token for the full session.
func (c *Client) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	header := http.Header{}
	header.Set(c.AuthHeader, token)
	if err := c.get(ctx, "/v1/session", header, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) get(ctx context.Context, path string, header http.Header, out any) error {
	op := strings.SplitN(path, "?", 2)[0]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if res.StatusCode >= 400 {
		var remote struct {
			Error   bool    `json:"error"`
			Code    *string `json:"code"`
			Name    string  `json:"name"`
			Message string  `json:"message"`
			Status  int     `json:"status"`
		}
		if json.Unmarshal(raw, &remote) == nil && remote.Error {
			re := &RemoteError{Status: remote.Status, Name: remote.Name, Message: remote.Message}
			if re.Status == 0 {
				re.Status = res.StatusCode
			}
			if remote.Code != nil {
				re.Code = *remote.Code
			}
			return re
		}
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}
