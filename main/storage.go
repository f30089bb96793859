package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bnb-chain/zkbnb-tumbler/config"
	"github.com/bnb-chain/zkbnb-tumbler/database"
	wrappedBadger "github.com/bnb-chain/zkbnb-tumbler/database/badger"
	wrappedLevelDB "github.com/bnb-chain/zkbnb-tumbler/database/leveldb"
	"github.com/bnb-chain/zkbnb-tumbler/database/memory"
	wrappedRedis "github.com/bnb-chain/zkbnb-tumbler/database/redis"
)

const (
	levelDBCache   = 16
	levelDBHandles = 64
)

// openStore opens the configured backend. The memory backend forgets
// everything when the process exits, so it only makes sense for serve.
func openStore(cfg *config.StorageConfig, logger *zap.Logger) (database.KVStore, error) {
	switch cfg.Type {
	case database.Memory:
		db := memory.NewMemoryDB()
		if cfg.Namespace != "" {
			return memory.WrapWithNamespace(db, cfg.Namespace), nil
		}
		return db, nil
	case database.LevelDB:
		db, err := wrappedLevelDB.New(cfg.Path, levelDBCache, levelDBHandles, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open leveldb at %s: %w", cfg.Path, err)
		}
		if cfg.Namespace != "" {
			return wrappedLevelDB.WrapWithNamespace(db, cfg.Namespace), nil
		}
		return db, nil
	case database.Redis:
		db, err := wrappedRedis.New(wrappedRedis.DefaultConfig(cfg.RedisAddr), wrappedRedis.WithNamespace(cfg.Namespace))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return db, nil
	case database.Badger:
		db, err := wrappedBadger.New(&wrappedBadger.Config{Path: cfg.Path, Namespace: cfg.Namespace}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger at %s: %w", cfg.Path, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}
