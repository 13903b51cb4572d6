// Package bootstrap wires configuration, storage and logging into a ready
// calculator engine for the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Simplici0/dairycalc/internal/calculator"
	"github.com/Simplici0/dairycalc/internal/config"
	"github.com/Simplici0/dairycalc/internal/db"
	"github.com/Simplici0/dairycalc/internal/history"
	"github.com/Simplici0/dairycalc/internal/kvstore"
	"github.com/Simplici0/dairycalc/internal/logger"
	"github.com/Simplici0/dairycalc/internal/migrations"
)

// OpenStore opens the key-value backend selected by cfg. The returned close
// function releases it.
func OpenStore(ctx context.Context, cfg config.Config) (history.KeyValueStore, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return kvstore.NewMemory(), func() error { return nil }, nil
	case config.BackendRedis:
		rdb, err := kvstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewRedis(rdb, cfg.RedisPrefix), rdb.Close, nil
	case config.BackendSQLite:
		database, err := db.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Up(database); err != nil {
			database.Close()
			return nil, nil, err
		}
		return kvstore.NewSQLite(database), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Engine opens the configured store and returns an engine with its history
// loaded.
func Engine(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...calculator.Option) (*calculator.Engine, func() error, error) {
	kv, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	store := history.NewStore(kv, history.WithLimit(cfg.HistoryLimit))
	base := []calculator.Option{
		calculator.WithLogger(logger.Named(log, "calculator")),
		calculator.WithTimestampLayout(cfg.TimestampLayout),
	}
	engine := calculator.New(store, append(base, opts...)...)
	if err := engine.Open(ctx); err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("load calculation history: %w", err)
	}
	return engine, closeStore, nil
}
