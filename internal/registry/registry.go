// Package registry holds the catalog of upstream providers and the models
// each one exposes. The snapshot is stable between reloads.
package registry

import (
	"sync"
	"time"

	"github.com/nulzo/bifrost/pkg/api"
)

// Entry is one provider's contribution to the catalog: its name and the
// model names it exposes, in the provider's natural order.
type Entry struct {
	Provider string
	Models   []string
}

type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	catalog []api.Model
	byID    map[string]api.Model
}

func New() *Registry {
	return &Registry{byID: make(map[string]api.Model)}
}

// Reload replaces the snapshot atomically. Model creation timestamps are
// assigned at reload time and stay fixed until the next reload.
func (r *Registry) Reload(entries []Entry) {
	now := time.Now().Unix()

	catalog := make([]api.Model, 0)
	byID := make(map[string]api.Model)
	for _, e := range entries {
		for _, name := range e.Models {
			m := api.Model{
				ID:      e.Provider + "/" + name,
				Object:  "model",
				Created: now,
				OwnedBy: e.Provider,
			}
			if _, dup := byID[m.ID]; dup {
				continue
			}
			byID[m.ID] = m
			catalog = append(catalog, m)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = entries
	r.catalog = catalog
	r.byID = byID
}

// ListAllModels returns the full catalog in registration order. The returned
// slice is a copy; callers may filter it freely.
func (r *Registry) ListAllModels() []api.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.Model, len(r.catalog))
	copy(out, r.catalog)
	return out
}

// ListModelsForProvider returns the provider's model names in natural order,
// empty if the provider is unknown.
func (r *Registry) ListModelsForProvider(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Provider == provider {
			out := make([]string, len(e.Models))
			copy(out, e.Models)
			return out
		}
	}
	return []string{}
}

// Lookup returns the catalog entry for a full `provider/model` id.
func (r *Registry) Lookup(id string) (api.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	return m, ok
}
