package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nulzo/bifrost/internal/analytics"
	"github.com/nulzo/bifrost/internal/cache"
	"github.com/nulzo/bifrost/internal/config"
	"github.com/nulzo/bifrost/internal/llm"
	"github.com/nulzo/bifrost/internal/platform/logger"
	"github.com/nulzo/bifrost/internal/registry"
	"github.com/nulzo/bifrost/pkg/api"
	"go.uber.org/zap"
)

// modelListTTL bounds how long a cached upstream model list is trusted.
// Catalog *visibility* is never cached; this only covers the raw list.
const modelListTTL = time.Hour

// Bootstrap connects every enabled provider from the configuration, loads
// each provider's model list (through the cache tier), and publishes the
// combined catalog to the registry.
func Bootstrap(ctx context.Context, cfg *config.Config, reg *registry.Registry, cacheSvc cache.CacheService, ingestor *analytics.Ingestor) (Service, error) {
	validate := validator.New()

	providers := make(map[string]providerEntry)
	var entries []registry.Entry

	for _, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		if err := validate.Struct(pc); err != nil {
			return nil, fmt.Errorf("provider %q config invalid: %w", pc.Name, err)
		}
		if _, dup := providers[pc.Name]; dup {
			return nil, fmt.Errorf("duplicate provider name %q", pc.Name)
		}

		factory, err := llm.Get(pc.Type)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		adapter, err := factory(pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}

		defs, err := loadModelDefinitions(ctx, cacheSvc, adapter)
		if err != nil {
			return nil, fmt.Errorf("provider %q: loading models: %w", pc.Name, err)
		}

		byName := make(map[string]api.ModelDefinition, len(defs))
		names := make([]string, 0, len(defs))
		for _, d := range defs {
			byName[d.Name] = d
			names = append(names, d.Name)
		}

		providers[pc.Name] = providerEntry{adapter: adapter, models: byName}
		entries = append(entries, registry.Entry{Provider: pc.Name, Models: names})

		logger.Info("provider connected",
			zap.String("provider", pc.Name),
			zap.String("type", pc.Type),
			zap.Int("models", len(names)))
	}

	reg.Reload(entries)
	return NewService(reg, providers, ingestor), nil
}

func loadModelDefinitions(ctx context.Context, cacheSvc cache.CacheService, adapter llm.Provider) ([]api.ModelDefinition, error) {
	key := "bifrost:models:" + adapter.Name()

	if data, err := cacheSvc.Get(ctx, key); err == nil {
		var defs []api.ModelDefinition
		if jsonErr := json.Unmarshal(data, &defs); jsonErr == nil {
			return defs, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("model list cache read failed", zap.Error(err), zap.String("provider", adapter.Name()))
	}

	defs, err := adapter.Models(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(defs); err == nil {
		if err := cacheSvc.Set(ctx, key, data, modelListTTL); err != nil {
			logger.Warn("model list cache write failed", zap.Error(err), zap.String("provider", adapter.Name()))
		}
	}
	return defs, nil
}
