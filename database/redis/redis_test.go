// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/database/dbtest"
)

func TestRedis(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.KVStore {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})
			return NewFromExistRedisClient(client)
		})
	})
}

func TestRedisWithNamespace(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.KVStore {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})

			return WrapWithNamespace(NewFromExistRedisClient(client), "test")
		})
	})
}

func TestRedis_New(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	db, err := New(DefaultConfig(mr.Addr()), WithNamespace("pool"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	got, err := mr.Get("pool:k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	mr.Close()
	_, err = New(DefaultConfig(mr.Addr()))
	require.Error(t, err)
}
