package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/api/apperr"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal details are only exposed outside production.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var (
			ve *apperr.ValidationError
			nf *apperr.NotFoundError
		)
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Validation failed",
				"errors":  ve.Fields,
			})
		case errors.As(err, &nf):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": fmt.Sprintf("%s not found", nf.Resource),
			})
		default:
			LoggerFrom(c, log).Error("request failed", zap.Error(err))
			body := gin.H{"success": false, "message": "Internal server error"}
			if !production {
				body["error"] = err.Error()
			}
			c.JSON(http.StatusInternalServerError, body)
		}
	}
}

// Recovery turns panics into a 500 response and logs the stack.
func Recovery(log *zap.Logger, production bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		stack := debug.Stack()
		LoggerFrom(c, log).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.ByteString("stack", stack),
		)

		body := gin.H{"success": false, "message": "Internal server error"}
		if !production {
			body["error"] = fmt.Sprint(recovered)
			body["stack"] = string(stack)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
