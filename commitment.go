// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Domain tags prepended to every hash input so that commitments, tree nodes
// and nullifiers can never collide with each other.
const (
	commitmentPrefix byte = 0x00
	nodePrefix       byte = 0x01
	nullifierPrefix  byte = 0x02
)

const SecretSize = 32

// Secret is the depositor's private opening of a commitment.
type Secret [SecretSize]byte

// NewSecret draws a secret from crypto/rand.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return s, errors.Wrap(err, "read random secret")
	}
	return s, nil
}

// HexToSecret parses a 32-byte hex secret.
func HexToSecret(s string) (Secret, error) {
	d, err := HexToDigest(s)
	return Secret(d), err
}

func (s Secret) String() string {
	return Digest(s).String()
}

// Commit computes H(0x00 || amount_le64 || secret).
func Commit(hasher *Hasher, amount uint64, secret Secret) Digest {
	var amt [8]byte
	binary.LittleEndian.PutUint64(amt[:], amount)
	return hasher.digest([]byte{commitmentPrefix}, amt[:], secret[:])
}

// DeriveNullifier binds a secret to the leaf it withdraws:
// H(0x02 || secret || index_le64 || commitment).
func DeriveNullifier(hasher *Hasher, secret Secret, index uint64, commitment Digest) Digest {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	return hasher.digest([]byte{nullifierPrefix}, secret[:], idx[:], commitment[:])
}

// HashNode computes the parent of two tree nodes.
func HashNode(hasher *Hasher, left, right Digest) Digest {
	return hasher.digest([]byte{nodePrefix}, left[:], right[:])
}
