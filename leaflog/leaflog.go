// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

// Package leaflog keeps the append-only sequence of pool commitments that
// clients need to build membership proofs. The pool account itself only
// stores the root, the leaf count and the tree frontier.
package leaflog

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/utils"
)

var (
	keyPrefix   = []byte("leaflog")
	countSuffix = []byte("count")
	leafSuffix  = []byte("leaf")
)

// Record is one appended leaf and the pool root right after it was inserted.
type Record struct {
	Commitment []byte
	Root       []byte
}

func (r *Record) CommitmentDigest() (tumbler.Digest, error) {
	return tumbler.BytesToDigest(r.Commitment)
}

func (r *Record) RootDigest() (tumbler.Digest, error) {
	return tumbler.BytesToDigest(r.Root)
}

func countKey(pool string) []byte {
	return utils.JoinKey(keyPrefix, []byte(pool), countSuffix)
}

func recordKey(pool string, index uint64) []byte {
	return utils.JoinKey(keyPrefix, []byte(pool), leafSuffix, utils.Uint64ToBytes(index))
}

type Log struct {
	db database.KVStore
}

func New(db database.KVStore) *Log {
	return &Log{db: db}
}

// Count returns the number of records of pool.
func (l *Log) Count(pool string) (uint64, error) {
	buf, err := l.db.Get(countKey(pool))
	if database.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read leaf count of %s", pool)
	}
	return utils.BytesToUint64(buf), nil
}

// Record returns the record at index.
func (l *Log) Record(pool string, index uint64) (*Record, error) {
	buf, err := l.db.Get(recordKey(pool, index))
	if database.IsNotFound(err) {
		return nil, errors.Wrapf(tumbler.ErrInvalidIndex, "no leaf %d in %s", index, pool)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read leaf %d of %s", index, pool)
	}
	record := &Record{}
	if err := rlp.DecodeBytes(buf, record); err != nil {
		return nil, errors.Wrapf(err, "decode leaf %d of %s", index, pool)
	}
	return record, nil
}

// Append queues the record for index on batch. index must be the current
// count, so the log never has gaps.
func (l *Log) Append(batch database.Batcher, pool string, index uint64, commitment, root tumbler.Digest) error {
	count, err := l.Count(pool)
	if err != nil {
		return err
	}
	if index != count {
		return errors.Wrapf(tumbler.ErrLeafLogMismatch, "append at %d, log of %s holds %d", index, pool, count)
	}
	buf, err := rlp.EncodeToBytes(&Record{Commitment: commitment.Bytes(), Root: root.Bytes()})
	if err != nil {
		return errors.Wrap(err, "encode leaf record")
	}
	if err := batch.Set(recordKey(pool, index), buf); err != nil {
		return err
	}
	return batch.Set(countKey(pool), utils.Uint64ToBytes(index+1))
}

// Leaves returns the first count commitments of pool.
func (l *Log) Leaves(pool string, count uint64) ([]tumbler.Digest, error) {
	leaves := make([]tumbler.Digest, count)
	source := l.Source(pool)
	for i := range leaves {
		leaf, err := source.Leaf(uint64(i))
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// Source exposes the commitments of pool as a tumbler.LeafSource.
func (l *Log) Source(pool string) tumbler.LeafSource {
	return &poolLeaves{log: l, pool: pool}
}

type poolLeaves struct {
	log  *Log
	pool string
}

func (p *poolLeaves) Leaf(index uint64) (tumbler.Digest, error) {
	record, err := p.log.Record(p.pool, index)
	if err != nil {
		return tumbler.Digest{}, err
	}
	return record.CommitmentDigest()
}
