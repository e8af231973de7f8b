package handler

import (
	"chatsock/backend/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Error   bool     `json:"error"`
	Code    *string  `json:"code"`
	Name    string   `json:"name"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Stack   []string `json:"stack,omitempty"`
}

// ErrorRenderer writes the last error recorded on the context as the JSON
// error envelope. Stacks are only included outside production.
func ErrorRenderer(production bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := apperr.From(c.Errors.Last().Err)
		if err.Status >= 500 {
			log.Error("request error", zap.String("name", err.Name), zap.Error(err))
		}

		body := errorBody{
			Error:   true,
			Name:    err.Name,
			Message: err.Public(),
			Status:  err.Status,
		}
		if err.Code != "" {
			code := err.Code
			body.Code = &code
		}
		if !production {
			body.Stack = err.Stack()
		}
		c.JSON(err.Status, body)
	}
}
