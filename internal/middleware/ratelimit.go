package middleware

import (
	"log"
	"net/http"
	"strconv"

	"github.com/bookworm-labs/books-api/internal/audit"
	"github.com/bookworm-labs/books-api/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

const rateLimitExceededBody = "Rate limit exceeded. Please try again later."

// RateLimit is the first admission stage. It resolves the policy for
// the request path, counts the request against the strategy-derived
// key and rejects with 429 once the window's limit is spent. Rejected
// requests still leave an audit trail via a synthetic violation entry.
func RateLimit(limiter *ratelimit.Limiter, strategy ratelimit.Strategy, responseHeaders bool, recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		policies := limiter.Policies()
		if !policies.Enabled() {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		policy := policies.Resolve(path)

		key := strategy.Key(ratelimit.KeyInput{
			RemoteAddr: c.Request.RemoteAddr,
			Subject:    c.GetString("user_id"),
			AuthHeader: c.GetHeader("Authorization"),
			Path:       path,
		})

		decision := limiter.Admit(key, policy)

		if responseHeaders {
			setRateLimitHeaders(c, decision)
		}

		if !decision.Allowed {
			log.Printf("Rate limit exceeded for key: %s, path: %s", key, path)

			recorder.RecordViolation(c.Request.Context(), requestFacts(c), key)

			c.String(http.StatusTooManyRequests, rateLimitExceededBody)
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.UnixMilli(), 10))
}
