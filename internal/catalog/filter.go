// Package catalog computes the model list visible to a request. Filtering is
// a pure projection over a catalog snapshot; nothing here is cached, so key
// updates are visible on the very next request.
package catalog

import (
	"strings"

	"github.com/nulzo/bifrost/internal/auth"
	"github.com/nulzo/bifrost/pkg/api"
)

// Filter returns the order-preserving subset of all that the resolved
// outcome may see.
//
// Rules:
//   - No credential, unknown credential, inactive key: all models. The
//     reject-invalid policy, when enabled, stops such requests before this
//     point; by the time filtering runs they are unrestricted.
//   - Active key with no provider configs: all models.
//   - Active key with provider configs: the union of each config's
//     inclusion set. A config with an empty allowed_models list includes
//     every model of its provider; a non-empty list includes only the named
//     ones. Configs naming the same provider twice merge (union); configs
//     naming an unregistered provider contribute nothing.
func Filter(all []api.Model, outcome auth.Outcome) []api.Model {
	if !outcome.Restricts() {
		return all
	}

	// provider -> nil means the whole provider; otherwise the allowed set
	allowed := make(map[string]map[string]bool)
	for _, pc := range outcome.Key.ProviderConfigs {
		if len(pc.AllowedModels) == 0 {
			allowed[pc.Provider] = nil
			continue
		}
		if existing, ok := allowed[pc.Provider]; ok && existing == nil {
			// an earlier config already granted the whole provider
			continue
		}
		set := allowed[pc.Provider]
		if set == nil {
			set = make(map[string]bool)
			allowed[pc.Provider] = set
		}
		for _, name := range pc.AllowedModels {
			set[name] = true
		}
	}

	filtered := make([]api.Model, 0, len(all))
	for _, m := range all {
		provider, name, ok := splitModelID(m.ID)
		if !ok {
			continue
		}
		set, granted := allowed[provider]
		if !granted {
			continue
		}
		if set == nil || set[name] {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Allows reports whether the outcome permits the given `provider/model` id.
// Unrestricted outcomes allow everything.
func Allows(outcome auth.Outcome, modelID string) bool {
	if !outcome.Restricts() {
		return true
	}
	probe := []api.Model{{ID: modelID}}
	return len(Filter(probe, outcome)) == 1
}

func splitModelID(id string) (provider, name string, ok bool) {
	i := strings.Index(id, "/")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}
