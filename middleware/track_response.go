package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/api/models"
	"portfolio/api/services"
	"portfolio/api/utils"
)

const maxCapturedBody = 64 << 10

var timeNow = time.Now

// ResponseInfo is what a MetadataExtractor sees of a finished response.
// Body holds at most the first 64 KiB written.
type ResponseInfo struct {
	Request *http.Request
	Status  int
	Header  http.Header
	Body    []byte
}

type MetadataExtractor func(ResponseInfo) models.Metadata

// TrackResponse records an event of the given type after a 2xx response.
// The extractor may be nil.
func TrackResponse(eventType models.EventType, rec EventRecorder, q TaskQueue, extract MetadataExtractor, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cw *captureWriter
		if extract != nil {
			cw = &captureWriter{ResponseWriter: c.Writer}
			c.Writer = cw
		}

		c.Next()

		// Errors are rendered by ErrorHandler after this returns, so the
		// writer still reports the default 200 for them.
		if len(c.Errors) > 0 {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		var md models.Metadata
		if cw != nil {
			md = safeExtract(extract, ResponseInfo{
				Request: c.Request,
				Status:  status,
				Header:  c.Writer.Header().Clone(),
				Body:    cw.buf.Bytes(),
			}, log)
		}

		rc := utils.RequestInfo(c, timeNow())
		in := services.TrackInput{
			Type:      eventType,
			Page:      utils.Truncate(c.Request.RequestURI, models.MaxPageLength),
			SessionID: rc.SessionID,
			Metadata:  md,
		}
		q.Submit(string(eventType), func(ctx context.Context) error {
			_, err := rec.Record(ctx, in, rc)
			return err
		})
	}
}

func safeExtract(extract MetadataExtractor, info ResponseInfo, log *zap.Logger) (md models.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("metadata extractor panicked", zap.Any("panic", r))
			md = models.Metadata{}
		}
	}()
	return extract(info)
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if room := maxCapturedBody - w.buf.Len(); room > 0 {
		w.buf.Write(b[:min(room, len(b))])
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	if room := maxCapturedBody - w.buf.Len(); room > 0 {
		w.buf.WriteString(s[:min(room, len(s))])
	}
	return w.ResponseWriter.WriteString(s)
}
