package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bookworm-labs/books-api/internal/repository"
	"github.com/bookworm-labs/books-api/internal/service"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Handles GET /api/audit
func (h *AuditHandler) Search(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	pageSize := 50
	if sizeStr := c.Query("page_size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 1000 {
			pageSize = s
		}
	}

	ctx := c.Request.Context()
	result, err := h.service.Search(ctx, filter, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Handles GET /api/audit/rate-limit-alerts
func (h *AuditHandler) RateLimitAlerts(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.RateLimitExceededOnly = true

	ctx := c.Request.Context()
	result, err := h.service.Search(ctx, filter, 1, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Handles GET /api/audit/metrics
func (h *AuditHandler) Metrics(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	metrics, err := h.service.GetMetrics(ctx, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func parseAuditFilter(c *gin.Context) (repository.AuditLogFilter, error) {
	filter := repository.AuditLogFilter{
		ClientIP: c.Query("client_ip"),
		UserID:   c.Query("user_id"),
		Endpoint: c.Query("endpoint"),
	}

	if statusStr := c.Query("status_code"); statusStr != "" {
		status, err := strconv.Atoi(statusStr)
		if err != nil {
			return filter, err
		}
		filter.StatusCode = &status
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := parseTime(fromStr)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}

	if toStr := c.Query("to"); toStr != "" {
		to, err := parseTime(toStr)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}

	if c.Query("rate_limit_exceeded") == "true" {
		filter.RateLimitExceededOnly = true
	}

	return filter, nil
}

// Parses 'from' and 'to' query parameters, defaulting to the last 24
// hours.
func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := parseTime(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if toStr := c.Query("to"); toStr != "" {
		parsed, err := parseTime(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}

// Accepts RFC3339 or a Unix timestamp
func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return parsed, nil
	}

	timestamp, err := strconv.ParseInt(value, 10, 64)
	if err == nil {
		return time.Unix(timestamp, 0), nil
	}

	return time.Time{}, err
}
