package handler

import (
	"net/http"
	"time"

	"chatsock/backend/internal/apperr"
	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/inbox"
	"chatsock/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// writeState is the state block of write responses.
type writeState struct {
	Key      string `json:"key"`
	InboxKey string `json:"inbox_key"`
}

func newWriteState(t target) writeState {
	return writeState{Key: t.Key.String(), InboxKey: conversation.InboxMember(t.Kind, t.ID)}
}

// History returns one page of a conversation with authors resolved.
func (h *Handler) History(c *gin.Context) {
	t, err := h.resolveTarget(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, perPage := paging(c)

	result, err := h.Store.Page(c.Request.Context(), t.Key, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := h.Preview.DecorateHistory(c.Request.Context(), t.Kind, t.ID, result.Messages)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": models.PageState{
			Key:        t.Key.String(),
			Page:       page,
			PerPage:    perPage,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
		"entry":    history.Entry,
		"messages": history.Messages,
	})
}

// CreateMessage appends a message, updates the inboxes and announces it.
func (h *Handler) CreateMessage(c *gin.Context) {
	t, err := h.resolveTarget(c)
	if err != nil {
		fail(c, err)
		return
	}

	var draft models.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		fail(c, apperr.Argument("", "Invalid JSON body"))
		return
	}
	if err := draft.Validate(); err != nil {
		fail(c, err)
		return
	}

	msg := draft.Message(t.Actor, time.Now())
	touches := inbox.Touches(t.Actor, t.Kind, t.ID, msg.Timestamp)
	msg, err = h.Store.Append(c.Request.Context(), t.Key, msg, touches...)
	if err != nil {
		fail(c, err)
		return
	}

	view := msg.View()
	h.Archiver.Appended(t.Key, msg)
	h.Publisher.NewMessage(detached(c), t.Kind, t.ID, t.Actor, view)

	c.JSON(http.StatusCreated, gin.H{"state": newWriteState(t), "entry": view})
}

// UpdateMessage applies a partial update to one message.
func (h *Handler) UpdateMessage(c *gin.Context) {
	t, err := h.resolveTarget(c)
	if err != nil {
		fail(c, err)
		return
	}

	var patch models.Patch
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&patch); err != nil {
			fail(c, apperr.Argument("", "Invalid JSON body"))
			return
		}
	}

	msg, err := h.Store.Update(c.Request.Context(), t.Key, c.Param("message_id"), patch)
	if err != nil {
		fail(c, err)
		return
	}

	view := msg.View()
	h.Archiver.Updated(t.Key, msg)
	h.Publisher.Updated(detached(c), t.Kind, t.ID, t.Actor, view)

	c.JSON(http.StatusOK, gin.H{"state": newWriteState(t), "entry": view})
}

// DeleteMessage removes one message from the log.
func (h *Handler) DeleteMessage(c *gin.Context) {
	t, err := h.resolveTarget(c)
	if err != nil {
		fail(c, err)
		return
	}

	id := c.Param("message_id")
	if err := h.Store.Remove(c.Request.Context(), t.Key, id); err != nil {
		fail(c, err)
		return
	}

	h.Archiver.Removed(t.Key, id)
	h.Publisher.Deleted(detached(c), t.Kind, t.ID, t.Actor, id)

	c.JSON(http.StatusOK, gin.H{
		"state":   newWriteState(t),
		"message": "Message deleted",
		"success": true,
	})
}
