package analytics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nulzo/bifrost/internal/analytics"
	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo collects logged requests in memory.
type memRepo struct {
	mu   sync.Mutex
	logs []model.RequestLog
}

func (m *memRepo) VirtualKeys() store.VirtualKeyRepository { return nil }
func (m *memRepo) Requests() store.RequestRepository       { return &memRequests{m} }
func (m *memRepo) WithTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(m)
}
func (m *memRepo) Close() error { return nil }

type memRequests struct{ r *memRepo }

func (m *memRequests) Log(ctx context.Context, log *model.RequestLog) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.logs = append(m.r.logs, *log)
	return nil
}

func (m *memRequests) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make([]model.RequestLog, len(m.r.logs))
	copy(out, m.r.logs)
	return out, nil
}

func TestIngestorPersistsRecords(t *testing.T) {
	repo := &memRepo{}
	ing := analytics.NewIngestor(repo)

	ing.Record(&model.RequestLog{Provider: "openai", ModelID: "openai/gpt-4", Operation: "chat"})
	ing.Record(&model.RequestLog{Provider: "openai", ModelID: "openai/gpt-4", Operation: "embeddings"})
	ing.Close()

	logs, err := repo.Requests().GetRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// ids and timestamps are filled in when absent
	assert.NotEmpty(t, logs[0].ID)
	assert.False(t, logs[0].CreatedAt.IsZero())
}

func TestIngestorRecordAfterCloseIsNoop(t *testing.T) {
	repo := &memRepo{}
	ing := analytics.NewIngestor(repo)
	ing.Close()

	ing.Record(&model.RequestLog{ModelID: "openai/gpt-4", Operation: "chat"})
	time.Sleep(10 * time.Millisecond)

	logs, _ := repo.Requests().GetRecent(context.Background(), 10)
	assert.Empty(t, logs)
}
