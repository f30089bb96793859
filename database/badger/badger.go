package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/utils"
)

var (
	_ database.KVStore = (*Database)(nil)
	_ database.Batcher = (*batch)(nil)
)

const gcInterval = 5 * time.Minute

// Config describes where and how the badger database is opened. An empty
// Path opens an in-memory database.
type Config struct {
	Path      string
	Namespace string
}

// Database is a KVStore on top of Badger. Writes are synced to disk and a
// background goroutine runs value log GC.
type Database struct {
	namespace []byte
	db        *badgerdb.DB
	logger    *zap.Logger
	gcCancel  context.CancelFunc
	gcWg      sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

func New(cfg *Config, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badgerdb.Options
	inMemory := cfg.Path == ""
	if inMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		opts = badgerdb.DefaultOptions(absPath)
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", cfg.Path, err)
	}

	bdb := &Database{
		namespace: []byte(cfg.Namespace),
		db:        db,
		logger:    logger,
	}
	if !inMemory {
		ctx, cancel := context.WithCancel(context.Background())
		bdb.gcCancel = cancel
		bdb.gcWg.Add(1)
		go bdb.runGC(ctx)
	}
	logger.Sugar().Infow("Badger store opened", "path", cfg.Path, "inMemory", inMemory)
	return bdb, nil
}

// runGC runs periodic garbage collection in the background
func (db *Database) runGC(ctx context.Context) {
	defer db.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := db.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				db.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (db *Database) key(key []byte) []byte {
	return utils.WrapKey(db.namespace, key)
}

// WrapWithNamespace returns a view of db whose keys are prefixed with
// namespace. Closing the view closes the shared database.
func WrapWithNamespace(db *Database, namespace string) *NamespacedDB {
	return &NamespacedDB{Database: db, namespace: []byte(namespace)}
}

// NamespacedDB is a namespace view over a Database.
type NamespacedDB struct {
	*Database
	namespace []byte
}

func (v *NamespacedDB) Has(key []byte) (bool, error) {
	return v.Database.Has(utils.WrapKey(v.namespace, key))
}

func (v *NamespacedDB) Get(key []byte) ([]byte, error) {
	return v.Database.Get(utils.WrapKey(v.namespace, key))
}

func (v *NamespacedDB) Set(key []byte, value []byte) error {
	return v.Database.Set(utils.WrapKey(v.namespace, key), value)
}

func (v *NamespacedDB) Delete(key []byte) error {
	return v.Database.Delete(utils.WrapKey(v.namespace, key))
}

func (v *NamespacedDB) NewBatch() database.Batcher {
	return &batch{db: v.Database, namespace: utils.WrapKey(v.Database.namespace, v.namespace)}
}

func (db *Database) Has(key []byte) (bool, error) {
	_, err := db.Get(key)
	if database.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, database.ErrDatabaseClosed
	}

	var value []byte
	err := db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(db.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, database.ErrDatabaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return value, nil
}

func (db *Database) Set(key []byte, value []byte) error {
	return db.update(func(txn *badgerdb.Txn) error {
		return txn.Set(db.key(key), utils.CopyBytes(value))
	})
}

func (db *Database) Delete(key []byte) error {
	return db.update(func(txn *badgerdb.Txn) error {
		return txn.Delete(db.key(key))
	})
}

func (db *Database) update(fn func(txn *badgerdb.Txn) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return database.ErrDatabaseClosed
	}
	if err := db.db.Update(fn); err != nil {
		return fmt.Errorf("failed to update badger: %w", err)
	}
	return nil
}

// NewBatch buffers writes and applies them in a single badger transaction.
func (db *Database) NewBatch() database.Batcher {
	return &batch{db: db, namespace: db.namespace}
}

// Close stops GC and closes the database. It is safe to call twice.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	if db.gcCancel != nil {
		db.gcCancel()
		db.gcWg.Wait()
	}
	if err := db.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

type batch struct {
	db        *Database
	namespace []byte
	writes    []keyvalue
	size      int
}

func (b *batch) Set(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{utils.WrapKey(b.namespace, key), utils.CopyBytes(value), false})
	b.size += len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{utils.WrapKey(b.namespace, key), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) Write() error {
	return b.db.update(func(txn *badgerdb.Txn) error {
		for _, kv := range b.writes {
			if kv.delete {
				if err := txn.Delete(kv.key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(kv.key, kv.value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
