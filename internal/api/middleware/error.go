package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/api/dto"
)

// ErrorHandlerMiddleware converts panics and unhandled handler errors into
// the JSON error body.
func ErrorHandlerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error().Interface("panic", err).Str("path", c.Request.URL.Path).Msg("Handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					dto.NewErrorResponse(http.StatusInternalServerError, "An unexpected error occurred"))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		logger.Error().Err(err.Err).Str("path", c.Request.URL.Path).Msg("Request failed")
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		}
	}
}
