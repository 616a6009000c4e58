package audit

import (
	"context"

	"github.com/bookworm-labs/books-api/internal/models"
)

// Store persists audit entries. The recorder only needs Save; the
// operator query surface consumes the richer repository type directly.
type Store interface {
	Save(ctx context.Context, entry *models.AuditLog) error
}

// BatchStore is implemented by stores that can persist several entries
// in one round trip.
type BatchStore interface {
	SaveBatch(ctx context.Context, entries []*models.AuditLog) error
}
