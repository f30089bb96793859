// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import "time"

// RedisConfig selects cluster mode when ClusterAddr is set and single node
// mode otherwise.
type RedisConfig struct {
	Addr        string
	ClusterAddr []string

	Username string
	Password string
	DB       int

	PoolSize        int
	MinIdleConns    int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	MaxConnAge      time.Duration
	PoolFIFO        bool

	// cluster only
	MaxRedirects   int
	ReadOnly       bool
	RouteByLatency bool
	RouteRandomly  bool
}

// DefaultConfig returns a single node config for addr.
func DefaultConfig(addr string) *RedisConfig {
	return &RedisConfig{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	}
}
