package audit

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bookworm-labs/books-api/internal/config"
	"github.com/bookworm-labs/books-api/internal/models"
)

// TruncationMarker is appended to bodies cut at the configured size.
const TruncationMarker = "... (truncated)"

var sensitiveHeaderParts = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"cookie",
}

// RequestFacts are the request attributes captured before the handler
// runs.
type RequestFacts struct {
	Method    string
	Path      string
	Query     string
	Headers   http.Header
	ClientIP  string
	UserID    string
	SessionID string
	Body      string
}

// ResponseFacts are the response attributes known once the handler has
// finished (or the pipeline short-circuited).
type ResponseFacts struct {
	StatusCode int
	Body       string
}

// Recorder builds redacted, size-bounded audit entries and hands them
// to the store. Persistence failures are logged and swallowed: a broken
// audit store must never change the HTTP response.
type Recorder struct {
	store Store
	cfg   config.AuditConfig
	clock func() time.Time
}

func NewRecorder(store Store, cfg config.AuditConfig) *Recorder {
	return &Recorder{
		store: store,
		cfg:   cfg,
		clock: time.Now,
	}
}

// RecordCompletion writes the audit entry for a request that ran
// through the pipeline, whatever its outcome.
func (r *Recorder) RecordCompletion(ctx context.Context, req RequestFacts, resp ResponseFacts, durationMs int64, rateLimitExceeded bool) {
	entry := r.buildEntry(req)
	entry.StatusCode = resp.StatusCode
	entry.ProcessingTimeMs = durationMs
	entry.RateLimitExceeded = rateLimitExceeded

	if r.cfg.LogResponseBody {
		entry.ResponseBody = Truncate(resp.Body, r.cfg.MaxBodySize)
	}

	r.save(ctx, entry)
}

// RecordViolation writes the synthetic entry for a request rejected by
// the rate limiter. The handler never ran, so processing time is zero.
func (r *Recorder) RecordViolation(ctx context.Context, req RequestFacts, key string) {
	entry := r.buildEntry(req)
	entry.StatusCode = http.StatusTooManyRequests
	entry.ProcessingTimeMs = 0
	entry.RateLimitExceeded = true
	entry.AdditionalInfo = "Rate limit exceeded for key: " + key

	r.save(ctx, entry)
}

func (r *Recorder) buildEntry(req RequestFacts) *models.AuditLog {
	entry := &models.AuditLog{
		HTTPMethod:     req.Method,
		Endpoint:       req.Path,
		ClientIP:       req.ClientIP,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		Timestamp:      r.clock(),
		RequestHeaders: RedactHeaders(req.Headers),
	}

	if r.cfg.LogQueryParams {
		entry.QueryParams = req.Query
	}
	if r.cfg.LogRequestBody {
		entry.RequestBody = Truncate(req.Body, r.cfg.MaxBodySize)
	}

	return entry
}

func (r *Recorder) save(ctx context.Context, entry *models.AuditLog) {
	if err := r.store.Save(ctx, entry); err != nil {
		log.Printf("Failed to save audit entry for %s %s: %v", entry.HTTPMethod, entry.Endpoint, err)
	}
}

// RedactHeaders serializes a header set with sensitive headers removed
// entirely. Redaction is categorical: neither the name nor a masked
// value of a sensitive header is kept.
func RedactHeaders(headers http.Header) string {
	if len(headers) == 0 {
		return ""
	}

	kept := make(map[string]string, len(headers))
	for name, values := range headers {
		if IsSensitiveHeader(name) {
			continue
		}
		kept[name] = strings.Join(values, ", ")
	}

	encoded, err := json.Marshal(kept)
	if err != nil {
		log.Printf("Failed to encode audit headers: %v", err)
		return ""
	}

	return string(encoded)
}

func IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveHeaderParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// Truncate bounds a body to max characters, marking the cut. Bodies at
// or under the limit are stored verbatim.
func Truncate(body string, max int) string {
	if len(body) <= max {
		return body
	}
	return body[:max] + TruncationMarker
}
