package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bookworm-labs/books-api/internal/models"
)

const (
	batchSize     = 100
	flushInterval = 5 * time.Second
)

// BufferedStore decorates a BatchStore with a bounded queue and a
// background worker that batches writes. It trades durability for
// throughput: entries are dropped with a log line when the queue is
// full, so it is opt-in and the pipeline defaults to synchronous saves.
type BufferedStore struct {
	inner BatchStore

	ch        chan *models.AuditLog
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewBufferedStore(inner BatchStore, size int) *BufferedStore {
	s := &BufferedStore{
		inner: inner,
		ch:    make(chan *models.AuditLog, size),
		done:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

// Save enqueues the entry without blocking the request path.
func (s *BufferedStore) Save(_ context.Context, entry *models.AuditLog) error {
	select {
	case s.ch <- entry:
	default:
		log.Printf("Audit buffer full, dropping entry for %s %s", entry.HTTPMethod, entry.Endpoint)
	}
	return nil
}

// Close flushes queued entries and stops the worker.
func (s *BufferedStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *BufferedStore) worker() {
	defer s.wg.Done()

	batch := make([]*models.AuditLog, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.inner.SaveBatch(context.Background(), batch); err != nil {
			log.Printf("Failed to flush %d audit entries: %v", len(batch), err)
		}
		batch = make([]*models.AuditLog, 0, batchSize)
	}

	for {
		select {
		case entry := <-s.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case entry := <-s.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
