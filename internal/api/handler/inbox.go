package handler

import (
	"net/http"

	"chatsock/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// ListInbox returns the caller's conversations, newest first. With
// ?no_format the raw ranked entries are returned without decoration.
func (h *Handler) ListInbox(c *gin.Context) {
	page, perPage := paging(c)
	userID := auth.SessionFrom(c).UserID

	result, err := h.Inbox.ListPage(c.Request.Context(), userID, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}

	if _, raw := c.GetQuery("no_format"); raw {
		c.JSON(http.StatusOK, gin.H{"state": result.State, "entries": result.Entries})
		return
	}

	entries, err := h.Preview.Decorate(c.Request.Context(), userID, result.Entries)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": result.State, "entries": entries})
}
