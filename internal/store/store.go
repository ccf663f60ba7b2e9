package store

import (
	"context"
	"errors"

	"github.com/nulzo/bifrost/internal/store/model"
)

type contextKey string

const (
	// ContextKeyVirtualKey carries the resolved *model.VirtualKey for a request.
	ContextKeyVirtualKey contextKey = "virtual_key"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository is the main contract for the data layer.
type Repository interface {
	VirtualKeys() VirtualKeyRepository
	Requests() RequestRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

// VirtualKeyPatch holds a partial update; nil fields are not applied.
type VirtualKeyPatch struct {
	Name            *string
	IsActive        *bool
	ProviderConfigs *[]model.ProviderConfig
}

type VirtualKeyRepository interface {
	// Create persists a new key. ID, Value and timestamps must already be
	// assigned by the caller; provider configs are stored exactly as given,
	// empty slices included.
	Create(ctx context.Context, key *model.VirtualKey) error
	// Get returns a key by id, ErrNotFound when absent.
	Get(ctx context.Context, id string) (*model.VirtualKey, error)
	// GetByValue looks a key up by its secret value (credential auth path).
	GetByValue(ctx context.Context, value string) (*model.VirtualKey, error)
	// Update applies a partial update atomically and returns the new record.
	Update(ctx context.Context, id string, patch VirtualKeyPatch) (*model.VirtualKey, error)
}

type RequestRepository interface {
	// Log stores a completed request.
	Log(ctx context.Context, log *model.RequestLog) error
	// GetRecent returns the last N request logs.
	GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error)
}
