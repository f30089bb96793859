package memory

import (
	"sync"

	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/utils"
)

var (
	_ database.KVStore = (*MemoryDB)(nil)
	_ database.Batcher = (*batch)(nil)
)

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		db: make(map[string][]byte),
	}
}

// MemoryDB is a key-value store. It loses everything on exit and serves
// tests and throwaway pools.
type MemoryDB struct {
	db   map[string][]byte
	lock sync.RWMutex
}

// WrapWithNamespace returns a view of db whose keys are prefixed with
// namespace. The view shares the underlying map.
func WrapWithNamespace(db *MemoryDB, namespace string) *NamespacedDB {
	return &NamespacedDB{MemoryDB: db, namespace: []byte(namespace)}
}

// NamespacedDB is a namespace view over a MemoryDB.
type NamespacedDB struct {
	*MemoryDB
	namespace []byte
}

func (db *NamespacedDB) Get(key []byte) ([]byte, error) {
	return db.MemoryDB.Get(utils.WrapKey(db.namespace, key))
}

func (db *NamespacedDB) Has(key []byte) (bool, error) {
	return db.MemoryDB.Has(utils.WrapKey(db.namespace, key))
}

func (db *NamespacedDB) Set(key []byte, value []byte) error {
	return db.MemoryDB.Set(utils.WrapKey(db.namespace, key), value)
}

func (db *NamespacedDB) Delete(key []byte) error {
	return db.MemoryDB.Delete(utils.WrapKey(db.namespace, key))
}

func (db *NamespacedDB) NewBatch() database.Batcher {
	return &batch{db: db.MemoryDB, namespace: db.namespace}
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return nil, database.ErrDatabaseClosed
	}
	if entry, ok := db.db[string(key)]; ok {
		return utils.CopyBytes(entry), nil
	}
	return nil, database.ErrDatabaseNotFound
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return false, database.ErrDatabaseClosed
	}
	_, ok := db.db[string(key)]
	return ok, nil
}

func (db *MemoryDB) Set(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return database.ErrDatabaseClosed
	}
	db.db[string(key)] = utils.CopyBytes(value)
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return database.ErrDatabaseClosed
	}
	delete(db.db, string(key))
	return nil
}

// Len returns the number of stored keys across every namespace.
func (db *MemoryDB) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.db)
}

func (db *MemoryDB) NewBatch() database.Batcher {
	return &batch{
		db: db,
	}
}

func (db *MemoryDB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.db = nil
	return nil
}

// keyvalue is a key-value tuple tagged with a deletion field to allow creating
// memory-database write batches.
type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

// batch is a write-only memory batch that commits changes to its host
// database when Write is called. A batch cannot be used concurrently.
type batch struct {
	db        *MemoryDB
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

// Write applies every queued change under one lock, so readers see all of
// them or none.
func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.db == nil {
		return database.ErrDatabaseClosed
	}
	for _, keyvalue := range b.writes {
		if keyvalue.delete {
			delete(b.db.db, string(keyvalue.key))
			continue
		}
		b.db.db[string(keyvalue.key)] = keyvalue.value
	}
	return nil
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
