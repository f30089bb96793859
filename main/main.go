package main

import (
	"log"
	"math"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/zkbnb-tumbler/config"
	"github.com/bnb-chain/zkbnb-tumbler/database"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tumbler",
		Usage: "Privacy pool ledger",
		Description: `Runs commitment pools on a local ledger.

Value is deposited under a secret and withdrawn later by revealing a
nullifier together with a membership proof of the deposit's commitment.
Each nullifier is accepted once.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "depth",
				Usage:   "Depth of every pool tree",
				Value:   config.DefaultDepth,
				EnvVars: []string{config.EnvDepth},
			},
			&cli.UintFlag{
				Name:    "nullifier-capacity",
				Usage:   "Number of spent nullifiers a pool can hold",
				Value:   config.DefaultNullifierCapacity,
				EnvVars: []string{config.EnvNullifierCapacity},
			},
			&cli.StringFlag{
				Name:    "hash",
				Usage:   "Hash primitive: sha256 or keccak256",
				Value:   "sha256",
				EnvVars: []string{config.EnvHashType},
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Storage backend: memory, leveldb, redis or badger",
				Value:   "memory",
				EnvVars: []string{config.EnvStorageType},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory of the leveldb or badger store",
				EnvVars: []string{config.EnvDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Address of the redis server",
				EnvVars: []string{config.EnvRedisAddr},
			},
			&cli.StringFlag{
				Name:    "namespace",
				Usage:   "Key prefix inside the store",
				EnvVars: []string{config.EnvNamespace},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			initCommand,
			fundCommand,
			balanceCommand,
			depositCommand,
			withdrawCommand,
			proofCommand,
			statusCommand,
			auditCommand,
			serveCommand,
		},
	}
}

func parseConfig(c *cli.Context) *config.Config {
	cfg := config.Default()
	// out of range values become 0 so that Validate rejects them
	if depth := c.Uint("depth"); depth <= math.MaxUint8 {
		cfg.Pool.Depth = uint8(depth)
	} else {
		cfg.Pool.Depth = 0
	}
	if capacity := c.Uint("nullifier-capacity"); uint64(capacity) <= math.MaxUint32 {
		cfg.Pool.NullifierCapacity = uint32(capacity)
	} else {
		cfg.Pool.NullifierCapacity = 0
	}
	cfg.Pool.HashType = c.String("hash")
	cfg.Storage.Type = database.Type(c.String("storage"))
	cfg.Storage.Path = c.String("data-dir")
	cfg.Storage.RedisAddr = c.String("redis-addr")
	cfg.Storage.Namespace = c.String("namespace")
	cfg.Verbose = c.Bool("verbose")
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	return cfg
}
