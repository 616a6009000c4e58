package models

import (
	"time"
)

// Represents one audited API request. An entry is written once per
// completed request, or once per rejected request in the rate-limit
// violation case, and never updated afterwards.
type AuditLog struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	HTTPMethod        string    `gorm:"column:http_method;not null;size:10" json:"http_method"`
	Endpoint          string    `gorm:"not null;index" json:"endpoint"`
	QueryParams       string    `gorm:"column:query_params;size:1024" json:"query_params,omitempty"`
	RequestHeaders    string    `gorm:"column:request_headers;size:2048" json:"request_headers,omitempty"`
	ClientIP          string    `gorm:"column:client_ip;index" json:"client_ip"`
	UserID            string    `gorm:"column:user_id;index" json:"user_id,omitempty"`
	SessionID         string    `gorm:"column:session_id" json:"session_id,omitempty"`
	StatusCode        int       `gorm:"column:status_code;index" json:"status_code"`
	Timestamp         time.Time `gorm:"index" json:"timestamp"`
	ProcessingTimeMs  int64     `gorm:"column:processing_time_ms" json:"processing_time_ms"`
	RequestBody       string    `gorm:"column:request_body" json:"request_body,omitempty"`
	ResponseBody      string    `gorm:"column:response_body" json:"response_body,omitempty"`
	RateLimitExceeded bool      `gorm:"column:rate_limit_exceeded;index" json:"rate_limit_exceeded"`
	AdditionalInfo    string    `gorm:"column:additional_info" json:"additional_info,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
