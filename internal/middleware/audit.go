package middleware

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/bookworm-labs/books-api/internal/audit"
	"github.com/bookworm-labs/books-api/internal/config"
	"github.com/gin-gonic/gin"
)

// Audit wraps the auth gate and the handler. It captures request and
// response facts and records a completion entry on every exit path:
// normal return, handler error status, an auth rejection that never
// reached the handler, or panic. On panic the entry is written with
// status 500 before the panic is re-raised for the recovery
// middleware.
func Audit(recorder *audit.Recorder, cfg config.AuditConfig) gin.HandlerFunc {
	excluded := make([]*regexp.Regexp, 0, len(cfg.ExcludePaths))
	for _, pattern := range cfg.ExcludePaths {
		// Patterns were validated at config load.
		excluded = append(excluded, regexp.MustCompile(pattern))
	}

	return func(c *gin.Context) {
		if !cfg.Enabled || isExcluded(excluded, c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody string
		if cfg.LogRequestBody && c.Request.Body != nil {
			data, err := io.ReadAll(c.Request.Body)
			if err != nil {
				log.Printf("Failed to read request body for audit: %v", err)
			} else {
				requestBody = captureBounded(string(data), cfg.MaxBodySize)
				c.Request.Body = io.NopCloser(bytes.NewReader(data))
			}
		}

		var writer *bodyCaptureWriter
		if cfg.LogResponseBody {
			writer = &bodyCaptureWriter{
				ResponseWriter: c.Writer,
				body:           &bytes.Buffer{},
				max:            cfg.MaxBodySize,
			}
			c.Writer = writer
		}

		defer func() {
			durationMs := time.Since(start).Milliseconds()

			status := c.Writer.Status()
			recovered := recover()
			if recovered != nil {
				status = http.StatusInternalServerError
			}

			facts := requestFacts(c)
			facts.Body = requestBody

			var responseBody string
			if writer != nil {
				responseBody = writer.body.String()
			}

			// The request context may already be canceled when the
			// client went away; the audit write still has to happen.
			recorder.RecordCompletion(context.Background(), facts, audit.ResponseFacts{
				StatusCode: status,
				Body:       responseBody,
			}, durationMs, status == http.StatusTooManyRequests)

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}

func isExcluded(patterns []*regexp.Regexp, path string) bool {
	for _, p := range patterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// requestFacts is shared by the audit and rate-limit stages so
// violation and completion entries describe requests the same way.
func requestFacts(c *gin.Context) audit.RequestFacts {
	return audit.RequestFacts{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Query:     c.Request.URL.RawQuery,
		Headers:   c.Request.Header,
		ClientIP:  c.ClientIP(),
		UserID:    c.GetString("user_id"),
		SessionID: c.GetString("request_id"),
	}
}

// captureBounded keeps just enough of a body for the recorder to apply
// its truncation rule; one byte past the limit is enough to mark the
// cut.
func captureBounded(body string, max int) string {
	if len(body) > max+1 {
		return body[:max+1]
	}
	return body
}

// bodyCaptureWriter tees the response body into a bounded buffer while
// writing through to the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
	max  int
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if remaining := w.max + 1 - w.body.Len(); remaining > 0 {
		if remaining > len(b) {
			remaining = len(b)
		}
		w.body.Write(b[:remaining])
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
