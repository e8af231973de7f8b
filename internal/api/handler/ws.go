package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatsock/backend/internal/auth"
	"chatsock/backend/internal/chathub"
	"chatsock/backend/internal/config"
	"chatsock/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = time.Second

type authenticatePayload struct {
	Token string `json:"token"`
}

// ServeWebSocket upgrades the connection and waits for an authenticate frame.
// The connection joins no room until the session check has passed. Reading
// the frame and the session check share one connect deadline.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	deadline := time.Now().Add(h.Config.ConnectTimeout)

	user, err := h.handshake(c, conn, deadline)
	if err != nil {
		h.reject(conn, err)
		return
	}

	client := chathub.NewWebSocketClient(conn, h.Hub, user.ID, h.Log)
	if err := h.Store.RegisterConnection(c.Request.Context(), h.Config.Domain, user.ID, client.ConnID, config.PresenceTTL); err != nil {
		h.Log.Error("failed to record presence", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	ack, err := models.NewFrame(models.EventAuthenticated, gin.H{"user": user})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err = conn.WriteJSON(ack)
	}
	if err != nil || !h.Hub.Register(client) {
		conn.Close()
		if _, err := h.Store.UnregisterConnection(detached(c), h.Config.Domain, user.ID, client.ConnID); err != nil {
			h.Log.Error("failed to release presence", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return
	}

	h.Log.Info("live connection admitted", zap.Int64("user_id", user.ID), zap.String("conn_id", client.ConnID))
	client.Run()
}

func (h *Handler) handshake(c *gin.Context, conn *websocket.Conn, deadline time.Time) (*models.Profile, error) {
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var frame models.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		return nil, &auth.LiveAuthError{Message: "Authentication timed out", Type: auth.ErrTypeInvalidToken}
	}
	var payload authenticatePayload
	if frame.Event != models.EventAuthenticate || json.Unmarshal(frame.Data, &payload) != nil || payload.Token == "" {
		return nil, &auth.LiveAuthError{Message: "Expected an authenticate event with a token", Type: auth.ErrTypeInvalidToken}
	}
	ctx, cancel := context.WithDeadline(c.Request.Context(), deadline)
	defer cancel()
	return h.Gate.AuthenticateLive(ctx, payload.Token)
}

// reject tells the client why it was refused and closes the socket.
func (h *Handler) reject(conn *websocket.Conn, err error) {
	defer conn.Close()

	var liveErr *auth.LiveAuthError
	if !errors.As(err, &liveErr) {
		liveErr = &auth.LiveAuthError{Message: "Failed to connect to the API", Type: auth.ErrTypeAPI}
	}
	h.Log.Info("live connection rejected", zap.String("type", liveErr.Type), zap.String("reason", liveErr.Message))

	frame, ferr := models.NewFrame(models.EventUnauthorized, liveErr)
	if ferr != nil {
		return
	}
	deadline := time.Now().Add(writeTimeout)
	conn.SetWriteDeadline(deadline)
	if conn.WriteJSON(frame) == nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, liveErr.Type), deadline)
	}
}
