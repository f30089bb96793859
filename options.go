package tumbler

import (
	"go.uber.org/zap"

	"github.com/bnb-chain/zkbnb-tumbler/metrics"
)

// Option is a function that configures a Processor.
type Option func(*Processor)

// WithHashType selects the hash primitive. The default is SHA256.
func WithHashType(t HashType) Option {
	return func(p *Processor) {
		p.hashType = t
	}
}

// WithHasher overrides the hasher built from the hash type. The hash type is
// still written to the state header.
func WithHasher(hasher *Hasher) Option {
	return func(p *Processor) {
		p.hasher = hasher
	}
}

func EnableMetrics(metrics metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = metrics
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}
