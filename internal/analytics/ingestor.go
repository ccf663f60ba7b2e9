package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/bifrost/internal/platform/logger"
	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor persists request logs off the hot path. Records are queued on a
// buffered channel and written by a single worker; when the buffer is full
// the record is dropped with a warning rather than blocking a live request.
type Ingestor struct {
	repo  store.Repository
	queue chan *model.RequestLog
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

const defaultQueueSize = 1024

func NewIngestor(repo store.Repository) *Ingestor {
	ing := &Ingestor{
		repo:  repo,
		queue: make(chan *model.RequestLog, defaultQueueSize),
	}
	ing.wg.Add(1)
	go ing.run()
	return ing
}

// Record queues a request log for persistence. Never blocks.
func (i *Ingestor) Record(log *model.RequestLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.stopped {
		return
	}

	select {
	case i.queue <- log:
	default:
		logger.Warn("analytics queue full, dropping request log",
			zap.String("model", log.ModelID),
			zap.String("operation", log.Operation))
	}
}

func (i *Ingestor) run() {
	defer i.wg.Done()
	for log := range i.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := i.repo.Requests().Log(ctx, log); err != nil {
			logger.Error("failed to persist request log",
				zap.Error(err),
				zap.String("model", log.ModelID))
		}
		cancel()
	}
}

// Close drains the queue and stops the worker.
func (i *Ingestor) Close() {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	i.mu.Unlock()

	close(i.queue)
	i.wg.Wait()
}
