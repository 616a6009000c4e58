package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookworm-labs/books-api/internal/audit"
	"github.com/bookworm-labs/books-api/internal/config"
	"github.com/bookworm-labs/books-api/internal/models"
)

type captureStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (s *captureStore) Save(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureStore) last(t *testing.T) *models.AuditLog {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.entries)
	return s.entries[len(s.entries)-1]
}

func auditConfig() config.AuditConfig {
	return config.AuditConfig{
		Enabled:         true,
		LogRequestBody:  true,
		LogResponseBody: true,
		LogQueryParams:  true,
		MaxBodySize:     4000,
	}
}

func TestRecordCompletionFields(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	recorder := audit.NewRecorder(store, auditConfig())

	recorder.RecordCompletion(context.Background(), audit.RequestFacts{
		Method:    "POST",
		Path:      "/api/books",
		Query:     "verbose=1",
		ClientIP:  "192.0.2.7",
		UserID:    "42",
		SessionID: "req-1",
		Body:      `{"title":"Dune"}`,
	}, audit.ResponseFacts{
		StatusCode: http.StatusCreated,
		Body:       `{"id":9}`,
	}, 12, false)

	entry := store.last(t)
	assert.Equal(t, "POST", entry.HTTPMethod)
	assert.Equal(t, "/api/books", entry.Endpoint)
	assert.Equal(t, "verbose=1", entry.QueryParams)
	assert.Equal(t, "192.0.2.7", entry.ClientIP)
	assert.Equal(t, "42", entry.UserID)
	assert.Equal(t, "req-1", entry.SessionID)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	assert.Equal(t, int64(12), entry.ProcessingTimeMs)
	assert.Equal(t, `{"title":"Dune"}`, entry.RequestBody)
	assert.Equal(t, `{"id":9}`, entry.ResponseBody)
	assert.False(t, entry.RateLimitExceeded)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRecordViolationFields(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	recorder := audit.NewRecorder(store, auditConfig())

	recorder.RecordViolation(context.Background(), audit.RequestFacts{
		Method:   "GET",
		Path:     "/api/authors",
		ClientIP: "192.0.2.7",
	}, "ip:192.0.2.7:/api/authors")

	entry := store.last(t)
	assert.Equal(t, http.StatusTooManyRequests, entry.StatusCode)
	assert.Equal(t, int64(0), entry.ProcessingTimeMs)
	assert.True(t, entry.RateLimitExceeded)
	assert.Equal(t, "Rate limit exceeded for key: ip:192.0.2.7:/api/authors", entry.AdditionalInfo)
}

func TestRedactionDropsSensitiveHeaders(t *testing.T) {
	t.Parallel()

	headers := http.Header{
		"Authorization":    {"Bearer secret-token"},
		"Cookie":           {"session=abc"},
		"Set-Cookie":       {"session=abc"},
		"X-Api-Token":      {"tok"},
		"X-Client-Secret":  {"shh"},
		"MY-PASSWORD-Hint": {"hunter2"},
		"Content-Type":     {"application/json"},
		"Accept":           {"application/json"},
	}

	store := &captureStore{}
	recorder := audit.NewRecorder(store, auditConfig())
	recorder.RecordCompletion(context.Background(), audit.RequestFacts{
		Method:  "GET",
		Path:    "/api/books",
		Headers: headers,
	}, audit.ResponseFacts{StatusCode: 200}, 1, false)

	entry := store.last(t)

	var kept map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.RequestHeaders), &kept))

	assert.Equal(t, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}, kept)

	// Neither names nor values of sensitive headers survive anywhere in
	// the serialized form.
	for _, banned := range []string{"Authorization", "Cookie", "Token", "Secret", "Password", "hunter2", "secret-token"} {
		assert.NotContains(t, entry.RequestHeaders, banned)
	}
}

func TestIsSensitiveHeader(t *testing.T) {
	t.Parallel()

	sensitive := []string{
		"Authorization", "authorization", "Proxy-Authorization",
		"Cookie", "Set-Cookie", "X-Csrf-Token", "token",
		"X-Api-Secret", "password", "X-Password-Reset",
	}
	for _, name := range sensitive {
		assert.True(t, audit.IsSensitiveHeader(name), name)
	}

	benign := []string{"Content-Type", "Accept", "User-Agent", "X-Request-ID"}
	for _, name := range benign {
		assert.False(t, audit.IsSensitiveHeader(name), name)
	}
}

func TestTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 5000)
	stored := audit.Truncate(long, 4000)
	assert.Len(t, stored, 4000+len(audit.TruncationMarker))
	assert.True(t, strings.HasSuffix(stored, audit.TruncationMarker))
	assert.Equal(t, long[:4000], stored[:4000])

	exact := strings.Repeat("b", 4000)
	assert.Equal(t, exact, audit.Truncate(exact, 4000))

	assert.Equal(t, "", audit.Truncate("", 4000))
}

func TestRecorderAppliesTruncationToBodies(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	recorder := audit.NewRecorder(store, auditConfig())

	recorder.RecordCompletion(context.Background(), audit.RequestFacts{
		Method: "POST",
		Path:   "/api/books",
		Body:   strings.Repeat("x", 5000),
	}, audit.ResponseFacts{
		StatusCode: 200,
		Body:       strings.Repeat("y", 5000),
	}, 1, false)

	entry := store.last(t)
	assert.Len(t, entry.RequestBody, 4000+len(audit.TruncationMarker))
	assert.Len(t, entry.ResponseBody, 4000+len(audit.TruncationMarker))
}

func TestRecorderHonorsBodyToggles(t *testing.T) {
	t.Parallel()

	cfg := auditConfig()
	cfg.LogRequestBody = false
	cfg.LogResponseBody = false

	store := &captureStore{}
	recorder := audit.NewRecorder(store, cfg)

	recorder.RecordCompletion(context.Background(), audit.RequestFacts{
		Method: "POST",
		Path:   "/api/books",
		Body:   "request payload",
	}, audit.ResponseFacts{
		StatusCode: 200,
		Body:       "response payload",
	}, 1, false)

	entry := store.last(t)
	assert.Empty(t, entry.RequestBody)
	assert.Empty(t, entry.ResponseBody)
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	t.Parallel()

	store := &captureStore{err: errors.New("connection refused")}
	recorder := audit.NewRecorder(store, auditConfig())

	assert.NotPanics(t, func() {
		recorder.RecordCompletion(context.Background(), audit.RequestFacts{
			Method: "GET",
			Path:   "/api/books",
		}, audit.ResponseFacts{StatusCode: 200}, 1, false)

		recorder.RecordViolation(context.Background(), audit.RequestFacts{
			Method: "GET",
			Path:   "/api/books",
		}, "key")
	})
}
