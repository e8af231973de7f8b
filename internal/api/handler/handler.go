package handler

import (
	"context"
	"fmt"
	"strconv"

	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/archive"
	"chatsock/backend/internal/auth"
	"chatsock/backend/internal/chathub"
	"chatsock/backend/internal/config"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/directory"
	"chatsock/backend/internal/inbox"
	"chatsock/backend/internal/preview"
	"chatsock/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the REST API and the live endpoint.
type Handler struct {
	Config    config.Config
	Store     storage.Storage
	Inbox     *inbox.Service
	Preview   *preview.Aggregator
	Publisher *chathub.Publisher
	Archiver  *archive.Archiver
	Verifier  *auth.Verifier
	Gate      *auth.Gate
	Hub       *chathub.ManagerService
	Log       *zap.Logger
}

func NewHandler(cfg config.Config, store storage.Storage, dir directory.Service, hub *chathub.ManagerService,
	publisher *chathub.Publisher, archiver *archive.Archiver, log *zap.Logger) (*Handler, error) {
	verifier, err := auth.NewVerifier(cfg.JWT.Algorithm, cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}
	return &Handler{
		Config:    cfg,
		Store:     store,
		Inbox:     inbox.NewService(store, cfg.Domain, log),
		Preview:   preview.NewAggregator(store, dir, cfg.Domain, log),
		Publisher: publisher,
		Archiver:  archiver,
		Verifier:  verifier,
		Gate:      auth.NewGate(verifier, dir, cfg.ConnectTimeout),
		Hub:       hub,
		Log:       log,
	}, nil
}

// target is the conversation addressed by the :target/:target_id segments.
type target struct {
	Kind  conversation.Kind
	ID    int64
	Key   conversation.Key
	Actor int64
}

func (h *Handler) resolveTarget(c *gin.Context) (target, error) {
	kind, err := conversation.ParseKind(c.Param("target"))
	if err != nil {
		return target{}, err
	}
	raw := c.Param("target_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return target{}, apperr.Argument("", fmt.Sprintf("Invalid target_id %q", raw))
	}
	actor := auth.SessionFrom(c).UserID
	key, err := conversation.Resolve(h.Config.Domain, kind, actor, id)
	if err != nil {
		return target{}, err
	}
	return target{Kind: kind, ID: id, Key: key, Actor: actor}, nil
}

// paging reads ?page and ?limit, falling back to the defaults for anything
// missing or not positive.
func paging(c *gin.Context) (page, perPage int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = config.DefaultPage
	}
	perPage, err = strconv.Atoi(c.Query("limit"))
	if err != nil || perPage < 1 {
		perPage = config.DefaultPerPage
	}
	return page, min(perPage, config.MaxPerPage)
}

// detached keeps request values but outlives a client that hangs up early.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
