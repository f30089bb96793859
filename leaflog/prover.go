package leaflog

import (
	"context"
	"runtime"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/panjf2000/ants/v2"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
)

const (
	minCacheEntries = 1 << 12
	maxCacheEntries = 1 << 20
	// rough size of a cached node including its key and list element
	cacheEntryBytes = 128
)

// defaultCacheEntries spends about a thousandth of the host memory on
// cached nodes.
func defaultCacheEntries() int {
	entries := memory.TotalMemory() / 1024 / cacheEntryBytes
	if entries < minCacheEntries {
		return minCacheEntries
	}
	if entries > maxCacheEntries {
		return maxCacheEntries
	}
	return int(entries)
}

type ProverOption func(*Prover)

func CacheEntries(n int) ProverOption {
	return func(p *Prover) {
		p.cacheEntries = n
	}
}

func AuditWorkers(n int) ProverOption {
	return func(p *Prover) {
		p.workers = n
	}
}

func WithLogger(logger *zap.Logger) ProverOption {
	return func(p *Prover) {
		p.logger = logger
	}
}

// Prover builds membership proofs for pools from the leaf log. Completed
// subtree roots are shared across calls through an LRU cache.
type Prover struct {
	log          *Log
	cache        *lru.Cache
	cacheEntries int
	workers      int
	logger       *zap.Logger
}

func NewProver(log *Log, opts ...ProverOption) (*Prover, error) {
	p := &Prover{
		log:     log,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cacheEntries <= 0 {
		p.cacheEntries = defaultCacheEntries()
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	cache, err := lru.New(p.cacheEntries)
	if err != nil {
		return nil, errors.Wrap(err, "create node cache")
	}
	p.cache = cache
	return p, nil
}

type cacheKey struct {
	pool     string
	level    uint8
	position uint64
}

// poolCache is the tumbler.NodeCache view of one pool's cached nodes.
type poolCache struct {
	pool  string
	cache *lru.Cache
}

func (c *poolCache) Get(level uint8, position uint64) (tumbler.Digest, bool) {
	v, ok := c.cache.Get(cacheKey{c.pool, level, position})
	if !ok {
		return tumbler.Digest{}, false
	}
	return v.(tumbler.Digest), true
}

func (c *poolCache) Add(level uint8, position uint64, node tumbler.Digest) {
	c.cache.Add(cacheKey{c.pool, level, position}, node)
}

func (p *Prover) nodeCache(pool string) tumbler.NodeCache {
	return &poolCache{pool: pool, cache: p.cache}
}

// CachedNodes is the number of subtree roots currently cached.
func (p *Prover) CachedNodes() int {
	return p.cache.Len()
}

// Proof returns the path of leaf index against the current root of tree.
func (p *Prover) Proof(pool string, tree *tumbler.Accumulator, index uint64) (*tumbler.Proof, error) {
	return tree.GenerateProof(index, p.log.Source(pool), p.nodeCache(pool))
}

// AuditReport is the outcome of re-verifying a pool against its leaf log.
type AuditReport struct {
	Pool      string         `json:"pool"`
	LeafCount uint64         `json:"leafCount"`
	Root      tumbler.Digest `json:"root"`
	Verified  uint64         `json:"verified"`
	Failed    []uint64       `json:"failed,omitempty"`
}

// Audit checks that the leaf log reproduces the pool root, then proves and
// verifies every leaf on a worker pool. A log that disagrees with the pool
// fails with ErrLeafLogMismatch; individual leaves whose proof fails are
// listed in the report.
func (p *Prover) Audit(ctx context.Context, pool string, tree *tumbler.Accumulator) (*AuditReport, error) {
	count, err := p.log.Count(pool)
	if err != nil {
		return nil, err
	}
	if count != tree.LeafCount() {
		return nil, errors.Wrapf(tumbler.ErrLeafLogMismatch, "log holds %d leaves, pool holds %d", count, tree.LeafCount())
	}
	leaves, err := p.log.Leaves(pool, count)
	if err != nil {
		return nil, err
	}
	root, err := tree.Recompute(leaves)
	if err != nil {
		return nil, err
	}
	if root != tree.Root() {
		return nil, errors.Wrapf(tumbler.ErrLeafLogMismatch, "recomputed root %s, pool root %s", root, tree.Root())
	}

	report := &AuditReport{Pool: pool, LeafCount: count, Root: tree.Root()}
	if count == 0 {
		return report, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	workers, err := ants.NewPool(p.workers, ants.WithPanicHandler(func(v interface{}) {
		p.logger.Sugar().Errorw("audit worker panicked", "pool", pool, "panic", v)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create audit workers")
	}
	defer workers.Release()

	source := tumbler.LeafSlice(leaves)
	cache := p.nodeCache(pool)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		index := i
		wg.Add(1)
		err := workers.Submit(func() {
			defer wg.Done()
			_, err := tree.GenerateProof(index, source, cache)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, index)
				return
			}
			report.Verified++
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, errors.Wrap(err, "submit audit task")
		}
	}
	wg.Wait()

	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i] < report.Failed[j] })
	p.logger.Sugar().Infow("pool audited",
		"pool", pool,
		"leaves", count,
		"verified", report.Verified,
		"failed", len(report.Failed),
	)
	return report, nil
}
