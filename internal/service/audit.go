package service

import (
	"context"
	"log"
	"time"

	"github.com/bookworm-labs/books-api/internal/models"
	"github.com/bookworm-labs/books-api/internal/repository"
)

type AuditService struct {
	repo *repository.AuditLogRepository
}

func NewAuditService(repo *repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Holds one page of audit search results
type AuditLogPage struct {
	Items    []models.AuditLog `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Holds usage metrics over a time range
type AuditMetrics struct {
	TotalRequests     int64                    `json:"total_requests"`
	AvgProcessingTime float64                  `json:"avg_processing_time_ms"`
	ErrorRate         float64                  `json:"error_rate"`
	SuccessRate       float64                  `json:"success_rate"`
	ClientErrorRate   float64                  `json:"client_error_rate"`
	ServerErrorRate   float64                  `json:"server_error_rate"`
	RateLimitHits     int64                    `json:"rate_limit_hits"`
	TopEndpoints      []map[string]interface{} `json:"top_endpoints"`
}

// Retrieves a page of audit entries matching the filter
func (s *AuditService) Search(ctx context.Context, filter repository.AuditLogFilter, page, pageSize int) (*AuditLogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	items, total, err := s.repo.Search(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &AuditLogPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Retrieves usage metrics for a time range
func (s *AuditService) GetMetrics(ctx context.Context, from, to time.Time) (*AuditMetrics, error) {
	metrics := &AuditMetrics{}

	totalRequests, err := s.repo.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.TotalRequests = totalRequests

	if totalRequests == 0 {
		return metrics, nil
	}

	avgProcessingTime, err := s.repo.GetAverageProcessingTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.AvgProcessingTime = avgProcessingTime

	clientErrors, err := s.repo.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.repo.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	totalErrors := clientErrors + serverErrors
	metrics.ErrorRate = (float64(totalErrors) / float64(totalRequests)) * 100
	metrics.SuccessRate = 100 - metrics.ErrorRate
	metrics.ClientErrorRate = (float64(clientErrors) / float64(totalRequests)) * 100
	metrics.ServerErrorRate = (float64(serverErrors) / float64(totalRequests)) * 100

	rateLimitHits, err := s.repo.CountViolations(ctx, from, to)
	if err != nil {
		return nil, err
	}
	metrics.RateLimitHits = rateLimitHits

	topEndpoints, err := s.repo.GetTopEndpoints(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}
	metrics.TopEndpoints = topEndpoints

	return metrics, nil
}

// StartRetentionWorker periodically deletes audit entries older than
// the retention period. The returned function stops the worker.
func (s *AuditService) StartRetentionWorker(retentionDays int, interval time.Duration) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				deleted, err := s.repo.DeleteBefore(context.Background(), cutoff)
				if err != nil {
					log.Printf("Audit retention cleanup failed: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("Audit retention cleanup removed %d entries older than %s", deleted, cutoff.Format(time.RFC3339))
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}
