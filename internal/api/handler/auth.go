package handler

import (
	"math/rand/v2"
	"net/http"

	"chatsock/backend/internal/auth"
	"chatsock/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// Status confirms the API is up and whether the caller's token was accepted.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated": auth.SessionFrom(c).Authenticated(),
		"message":       "Welcome to a realtime chat API",
		"success":       true,
	})
}

// Introduction answers the server root with a random greeting.
func (h *Handler) Introduction(c *gin.Context) {
	c.JSON(http.StatusOK, config.Introductions[rand.IntN(len(config.Introductions))])
}
