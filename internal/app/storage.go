package app

import (
	"context"
	"fmt"
	"time"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

// wireStorage selects the configured backend and provisions its buckets.
// This is the single selection point; every service downstream only sees the
// Provider interface.
func wireStorage(log *logger.Logger, cfg Config) (storage.Provider, error) {
	provider, err := storage.New(log, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := provider.EnsureBuckets(ctx); err != nil {
		return nil, fmt.Errorf("provision buckets: %w", err)
	}
	log.Info("Object storage ready", "mode", string(cfg.Storage.Mode))
	return provider, nil
}
