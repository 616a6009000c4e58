package repository

import (
	"context"
	"time"

	"github.com/bookworm-labs/books-api/internal/models"
	"github.com/bookworm-labs/books-api/internal/storage"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *storage.Postgres
}

func NewAuditLogRepository(db *storage.Postgres) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// AuditLogFilter narrows an audit search. Zero values mean "no filter".
type AuditLogFilter struct {
	ClientIP              string
	UserID                string
	Endpoint              string // substring match
	StatusCode            *int
	From                  *time.Time
	To                    *time.Time
	RateLimitExceededOnly bool
}

// Inserts a single audit entry
func (r *AuditLogRepository) Save(ctx context.Context, entry *models.AuditLog) error {
	return r.db.DB.WithContext(ctx).Create(entry).Error
}

// Inserts multiple audit entries (for the buffered writer)
func (r *AuditLogRepository) SaveBatch(ctx context.Context, entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&entries).Error
}

// Retrieves a page of entries matching the filter, newest first,
// together with the total match count.
func (r *AuditLogRepository) Search(ctx context.Context, filter AuditLogFilter, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := r.applyFilter(r.db.DB.WithContext(ctx).Model(&models.AuditLog{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLog
	err := query.
		Order("timestamp DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&entries).Error

	return entries, total, err
}

func (r *AuditLogRepository) applyFilter(query *gorm.DB, filter AuditLogFilter) *gorm.DB {
	if filter.ClientIP != "" {
		query = query.Where("client_ip = ?", filter.ClientIP)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Endpoint != "" {
		query = query.Where("endpoint LIKE ?", "%"+filter.Endpoint+"%")
	}
	if filter.StatusCode != nil {
		query = query.Where("status_code = ?", *filter.StatusCode)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}
	if filter.RateLimitExceededOnly {
		query = query.Where("rate_limit_exceeded = ?", true)
	}

	return query
}

// Counts entries in a time range
func (r *AuditLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// Calculates average processing time
func (r *AuditLogRepository) GetAverageProcessingTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64

	err := r.db.DB.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("COALESCE(AVG(processing_time_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// Count entries by status code range (e.g., 4xx, 5xx)
func (r *AuditLogRepository) CountByStatusCodeRange(ctx context.Context, minStatusCode, maxStatusCode int, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("status_code BETWEEN ? AND ? AND timestamp BETWEEN ? AND ?", minStatusCode, maxStatusCode, from, to).
		Count(&count).Error

	return count, err
}

// Counts rate limit violations in a time range
func (r *AuditLogRepository) CountViolations(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("rate_limit_exceeded = ? AND timestamp BETWEEN ? AND ?", true, from, to).
		Count(&count).Error

	return count, err
}

// Returns most frequently accessed endpoints
func (r *AuditLogRepository) GetTopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.AuditLog{}).
		Select("endpoint, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("endpoint").
		Order("count DESC").
		Limit(limit).
		Rows()

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var endpoint string
		var count int64

		if err := rows.Scan(&endpoint, &count); err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"endpoint": endpoint,
			"count":    count,
		})
	}

	return results, nil
}

// Deletes entries older than the specified time
func (r *AuditLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.AuditLog{})

	return result.RowsAffected, result.Error
}
