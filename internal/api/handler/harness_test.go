package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chatsock/backend/internal/api/handler"
	"chatsock/backend/internal/archive"
	"chatsock/backend/internal/bus"
	"chatsock/backend/internal/chathub"
	"chatsock/backend/internal/config"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"
	"chatsock/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "scene-passage-love-rhyme"

func init() {
	gin.SetMode(gin.TestMode)
}

// stubDirectory serves profiles from memory.
type stubDirectory struct {
	mu      sync.Mutex
	users   map[int64]models.Profile
	topics  map[int64]models.Profile
	session *models.Session
	err     error
	// delay holds back session checks until it passes or ctx ends.
	delay time.Duration
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		users: map[int64]models.Profile{
			1: {ID: 1, Username: "barry", Role: &models.Role{ID: 2, Handle: "member"}},
			2: {ID: 2, Username: "iris", Role: &models.Role{ID: 2, Handle: "member"}},
			3: {ID: 3, Username: "wally", Role: &models.Role{ID: 2, Handle: "member"}},
		},
		topics: map[int64]models.Profile{
			42: {ID: 42, Title: "Speed Force", Status: "open"},
		},
	}
}

func (d *stubDirectory) GetProfilesByIDs(ctx context.Context, kind conversation.Kind, ids []int64) ([]models.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	source := d.users
	if kind == conversation.Topic {
		source = d.topics
	}
	out := []models.Profile{}
	for _, id := range ids {
		if p, ok := source[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *stubDirectory) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	d.mu.Lock()
	session, err, delay := d.session, d.err, d.delay
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

type harness struct {
	Router    *gin.Engine
	Handler   *handler.Handler
	Directory *stubDirectory
	Store     *storage.Service
	Redis     *miniredis.Miniredis
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)

	cfg := config.Config{
		Env:            "test",
		APIBasePath:    "/api",
		Domain:         "myplatform",
		Redis:          config.RedisConfig{Prefix: "chatsock"},
		JWT:            config.JWTConfig{Algorithm: "HS256", Header: "X-Auth-Token", Secret: secret},
		ConnectTimeout: 2 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewStorageService(rdb, cfg.Redis.Prefix)
	dir := newStubDirectory()
	b := bus.NewRedisBus(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := chathub.NewManagerService(store, cfg.Domain, log)
	go hub.Run(ctx)
	require.NoError(t, chathub.NewListener(b, hub, cfg.Redis.Prefix, log).Start(ctx))

	publisher := chathub.NewPublisher(b, cfg.Redis.Prefix, cfg.PublishMutations, log)
	h, err := handler.NewHandler(cfg, store, dir, hub, publisher, archive.Disabled(log), log)
	require.NoError(t, err)

	return &harness{Router: handler.NewRouter(h), Handler: h, Directory: dir, Store: store, Redis: mr}
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// do sends a request as userID (0 for anonymous) and decodes the JSON reply.
func (h *harness) do(t *testing.T, method, path string, userID int64, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-Auth-Token", token(t, userID))
	}

	w := httptest.NewRecorder()
	h.Router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (h *harness) send(t *testing.T, from int64, target string, text string) map[string]any {
	t.Helper()
	status, body := h.do(t, http.MethodPost, "/api/"+target, from, map[string]any{"type": "text", "text": text})
	require.Equal(t, http.StatusCreated, status, body)
	return body
}
