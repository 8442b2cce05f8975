// Package store selects the observation store backend from configuration.
package store

import (
	"log/slog"
	"os"

	"github.com/HatiCode/pricewatch/cmd/watcher/config"
	"github.com/HatiCode/pricewatch/pkg/observation"
	"github.com/HatiCode/pricewatch/pkg/storage"
)

// New creates the configured observation store. A redis backend that cannot
// be reached is fatal at startup.
func New(cfg *config.Config, logger *slog.Logger) observation.Store {
	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to create redis store", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("using redis observation store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return s
	default:
		logger.Info("using in-memory observation store")
		return storage.NewMemoryStore()
	}
}
