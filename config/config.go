package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/database"
)

// Environment variable names for the tumbler CLI
const (
	EnvDepth             = "TUMBLER_DEPTH"
	EnvNullifierCapacity = "TUMBLER_NULLIFIER_CAPACITY"
	EnvHashType          = "TUMBLER_HASH"
	EnvStorageType       = "TUMBLER_STORAGE"
	EnvDataDir           = "TUMBLER_DATA_DIR"
	EnvRedisAddr         = "TUMBLER_REDIS_ADDR"
	EnvNamespace         = "TUMBLER_NAMESPACE"
	EnvListenAddr        = "TUMBLER_LISTEN_ADDR"
	EnvVerbose           = "TUMBLER_VERBOSE"
)

const (
	DefaultDepth             = 20
	DefaultNullifierCapacity = 1024
	DefaultListenAddr        = "127.0.0.1:8080"
)

// PoolConfig fixes the shape of every pool the ledger creates.
type PoolConfig struct {
	Depth             uint8  `json:"depth"`
	NullifierCapacity uint32 `json:"nullifier_capacity"`
	HashType          string `json:"hash_type"`
}

type StorageConfig struct {
	Type      database.Type `json:"type"`
	Path      string        `json:"path"`
	RedisAddr string        `json:"redis_addr"`
	Namespace string        `json:"namespace"`
}

// Config is the complete configuration of a tumbler ledger process.
type Config struct {
	Pool       PoolConfig    `json:"pool"`
	Storage    StorageConfig `json:"storage"`
	ListenAddr string        `json:"listen_addr"`
	Verbose    bool          `json:"verbose"`
}

func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Depth:             DefaultDepth,
			NullifierCapacity: DefaultNullifierCapacity,
			HashType:          tumbler.SHA256.String(),
		},
		Storage: StorageConfig{
			Type: database.Memory,
		},
		ListenAddr: DefaultListenAddr,
	}
}

// Hash parses the configured hash name.
func (c *PoolConfig) Hash() (tumbler.HashType, error) {
	return tumbler.ParseHashType(c.HashType)
}

// Validate validates the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var allErrors field.ErrorList
	allErrors = append(allErrors, c.Pool.validate(field.NewPath("pool"))...)
	allErrors = append(allErrors, c.Storage.validate(field.NewPath("storage"))...)
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (c *PoolConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if c.Depth == 0 || c.Depth > tumbler.MaxDepth {
		allErrors = append(allErrors, field.Invalid(path.Child("depth"), c.Depth,
			fmt.Sprintf("must be between 1 and %d", tumbler.MaxDepth)))
	}
	if c.NullifierCapacity == 0 || c.NullifierCapacity > tumbler.MaxNullifierCapacity {
		allErrors = append(allErrors, field.Invalid(path.Child("nullifierCapacity"), c.NullifierCapacity,
			fmt.Sprintf("must be between 1 and %d", tumbler.MaxNullifierCapacity)))
	}
	if _, err := c.Hash(); err != nil {
		allErrors = append(allErrors, field.NotSupported(path.Child("hashType"), c.HashType,
			[]string{tumbler.SHA256.String(), tumbler.Keccak256.String()}))
	}
	return allErrors
}

func (c *StorageConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch c.Type {
	case database.Memory, database.Badger:
	case database.LevelDB:
		if c.Path == "" {
			allErrors = append(allErrors, field.Required(path.Child("path"), "path is required for leveldb"))
		}
	case database.Redis:
		if c.RedisAddr == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddr"), "redisAddr is required for redis"))
		}
	default:
		supported := make([]string, 0, len(database.Types()))
		for _, t := range database.Types() {
			supported = append(supported, string(t))
		}
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), c.Type, supported))
	}
	if strings.Contains(c.Namespace, ":") {
		allErrors = append(allErrors, field.Invalid(path.Child("namespace"), c.Namespace, "must not contain ':'"))
	}
	return allErrors
}
