package auth

import (
	"context"
	"errors"

	"github.com/nulzo/bifrost/internal/store"
	"github.com/nulzo/bifrost/internal/store/model"
)

// Kind tags the result of credential resolution.
type Kind int

const (
	// NoCredential means the request carried no x-bf-vk header.
	NoCredential Kind = iota
	// ValidActiveKey means the credential matched an active virtual key.
	ValidActiveKey
	// ValidInactiveKey means the credential matched a deactivated key.
	ValidInactiveKey
	// UnknownCredential means the credential matched no stored key.
	UnknownCredential
)

// Outcome is the tagged result of resolving a request credential. Key is set
// only for the two Valid* kinds.
type Outcome struct {
	Kind Kind
	Key  *model.VirtualKey
}

// Restricts reports whether catalog filtering applies to this outcome. Only
// an active key with at least one provider config restricts visibility;
// every other outcome (including an active key with zero configs) is
// unrestricted.
func (o Outcome) Restricts() bool {
	return o.Kind == ValidActiveKey && o.Key != nil && len(o.Key.ProviderConfigs) > 0
}

// Resolver turns the inbound credential header into an Outcome.
type Resolver struct {
	repo store.Repository
}

func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve looks the credential up in the virtual key store. A store failure
// is returned as an error so the caller can fail the request outright —
// never degrade to a stale or partial filter.
func (r *Resolver) Resolve(ctx context.Context, credential string) (Outcome, error) {
	if credential == "" {
		return Outcome{Kind: NoCredential}, nil
	}

	key, err := r.repo.VirtualKeys().GetByValue(ctx, credential)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{Kind: UnknownCredential}, nil
		}
		return Outcome{}, err
	}

	if !key.IsActive {
		return Outcome{Kind: ValidInactiveKey, Key: key}, nil
	}
	return Outcome{Kind: ValidActiveKey, Key: key}, nil
}

type outcomeContextKey struct{}

// WithOutcome stashes the resolved outcome in the request context.
func WithOutcome(ctx context.Context, o Outcome) context.Context {
	return context.WithValue(ctx, outcomeContextKey{}, o)
}

// OutcomeFrom retrieves the resolved outcome; absent means NoCredential.
func OutcomeFrom(ctx context.Context) Outcome {
	if o, ok := ctx.Value(outcomeContextKey{}).(Outcome); ok {
		return o
	}
	return Outcome{Kind: NoCredential}
}
