// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/utils"
)

var (
	_ database.KVStore = (*Database)(nil)
	_ database.Batcher = (*batch)(nil)
)

// New returns a wrapped Redis object.
func New(config *RedisConfig, opts ...Option) (*Database, error) {
	var client RedisClient
	if len(config.ClusterAddr) > 0 {
		// cluster mode
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           config.ClusterAddr,
			PoolSize:        config.PoolSize,
			Username:        config.Username,
			Password:        config.Password,
			MaxRedirects:    config.MaxRedirects,
			ReadOnly:        config.ReadOnly,
			RouteByLatency:  config.RouteByLatency,
			RouteRandomly:   config.RouteRandomly,
			MaxRetries:      config.MaxRetries,
			MinRetryBackoff: config.MinRetryBackoff,
			MaxRetryBackoff: config.MaxRetryBackoff,
			DialTimeout:     config.DialTimeout,
			ReadTimeout:     config.ReadTimeout,
			WriteTimeout:    config.WriteTimeout,
			MinIdleConns:    config.MinIdleConns,
			MaxConnAge:      config.MaxConnAge,
			PoolFIFO:        config.PoolFIFO,
			PoolTimeout:     config.PoolTimeout,
			IdleTimeout:     config.IdleTimeout,
		})
	} else {
		// single node mode
		client = redis.NewClient(&redis.Options{
			Addr:            config.Addr,
			DB:              config.DB,
			PoolSize:        config.PoolSize,
			Username:        config.Username,
			Password:        config.Password,
			MaxRetries:      config.MaxRetries,
			MinRetryBackoff: config.MinRetryBackoff,
			MaxRetryBackoff: config.MaxRetryBackoff,
			DialTimeout:     config.DialTimeout,
			ReadTimeout:     config.ReadTimeout,
			WriteTimeout:    config.WriteTimeout,
			MinIdleConns:    config.MinIdleConns,
			MaxConnAge:      config.MaxConnAge,
			PoolFIFO:        config.PoolFIFO,
			PoolTimeout:     config.PoolTimeout,
			IdleTimeout:     config.IdleTimeout,
		})
	}
	timeout := config.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewFromExistRedisClient(client, opts...), nil
}

// NewFromExistRedisClient returns a wrapped Redis object.
func NewFromExistRedisClient(client RedisClient, opts ...Option) *Database {
	db := &Database{
		db: client,
	}
	for _, opt := range opts {
		opt.Apply(db)
	}
	return db
}

// WrapWithNamespace returns a wrapped Redis object.
// The namespace is the prefix that the datastore.
func WrapWithNamespace(db *Database, namespace string) *Database {
	return &Database{
		namespace: []byte(namespace),
		db:        db.db,
	}
}

type Database struct {
	namespace []byte
	db        RedisClient // redis client
}

func (db *Database) key(key []byte) string {
	return utils.BytesToString(utils.WrapKey(db.namespace, key))
}

// Close closes the client. Pending batches are lost.
func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) Has(key []byte) (bool, error) {
	dat, err := db.db.Exists(context.Background(), db.key(key)).Result()
	if err != nil {
		return false, err
	}
	return dat > 0, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(context.Background(), db.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, database.ErrDatabaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(dat), nil
}

func (db *Database) Set(key []byte, value []byte) error {
	return db.db.Set(context.Background(), db.key(key), value, 0).Err()
}

func (db *Database) Delete(key []byte) error {
	return db.db.Del(context.Background(), db.key(key)).Err()
}

// NewBatch queues writes on a MULTI/EXEC pipeline, so a batch is applied
// atomically.
func (db *Database) NewBatch() database.Batcher {
	return &batch{
		namespace: db.namespace,
		b:         db.db.TxPipeline(),
	}
}

// batch is a write-only redis transaction pipeline that commits changes to
// its host database when Write is called.
type batch struct {
	namespace []byte
	b         redis.Pipeliner
	size      int
	lock      sync.RWMutex
}

func (b *batch) Set(key, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Set(context.Background(), utils.BytesToString(utils.WrapKey(b.namespace, key)), value, 0)
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Del(context.Background(), utils.BytesToString(utils.WrapKey(b.namespace, key)))
	b.size += len(key)
	return nil
}

func (b *batch) Write() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.size == 0 {
		return nil
	}
	if _, err := b.b.Exec(context.Background()); err != nil {
		return errors.Wrap(err, "exec redis batch")
	}
	b.size = 0
	return nil
}

func (b *batch) ValueSize() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.size
}

func (b *batch) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Discard()
	b.size = 0
}
