package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/api/models"
)

const (
	// SessionHeader carries the browser's analytics session id.
	SessionHeader = "X-Session-Id"

	sessionRandLen = 9
	base36         = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateSessionID returns a fallback session token of the form
// "<unix millis>-<9 random base36 chars>", the same shape the frontend uses.
func GenerateSessionID(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')

	max := big.NewInt(int64(len(base36)))
	for i := 0; i < sessionRandLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; keep the token well-formed anyway.
			b.WriteByte(base36[(now.UnixNano()+int64(i))%int64(len(base36))])
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}

// SessionID returns the client supplied session id, or a freshly generated one.
func SessionID(c *gin.Context, now time.Time) string {
	if sid := strings.TrimSpace(c.GetHeader(SessionHeader)); sid != "" {
		return Truncate(sid, models.MaxSessionIDLength)
	}
	return GenerateSessionID(now)
}

// RequestInfo snapshots the client facts of the current request. The result
// holds no reference to c and is safe to use after the handler returns.
func RequestInfo(c *gin.Context, now time.Time) models.RequestContext {
	return models.RequestContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		SessionID: SessionID(c, now),
	}.Normalized()
}
