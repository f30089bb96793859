// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"github.com/pkg/errors"
)

// Proof is a Merkle authentication path in leaf-to-root order. Bit i of
// LeafIndex tells whether the running node is the right operand at level i.
type Proof struct {
	LeafIndex uint64   `json:"leafIndex"`
	Siblings  []Digest `json:"siblings"`
}

// Bytes concatenates the siblings, the encoding used in withdraw
// instructions.
func (p *Proof) Bytes() []byte {
	buf := make([]byte, 0, len(p.Siblings)*DigestSize)
	for i := range p.Siblings {
		buf = append(buf, p.Siblings[i][:]...)
	}
	return buf
}

// DecodeProof splits data into 32-byte siblings.
func DecodeProof(index uint64, data []byte) (*Proof, error) {
	if len(data)%DigestSize != 0 {
		return nil, errors.Errorf("proof length %d is not a multiple of %d", len(data), DigestSize)
	}
	proof := &Proof{
		LeafIndex: index,
		Siblings:  make([]Digest, len(data)/DigestSize),
	}
	for i := range proof.Siblings {
		copy(proof.Siblings[i][:], data[i*DigestSize:])
	}
	return proof, nil
}

// ProofVerifier checks membership paths for trees of one depth.
type ProofVerifier struct {
	hasher *Hasher
	depth  uint8
}

func NewProofVerifier(hasher *Hasher, depth uint8) *ProofVerifier {
	return &ProofVerifier{hasher: hasher, depth: depth}
}

// Verify reports whether proof leads from leaf to root. A proof of the wrong
// length or with an index outside the tree is rejected before any hashing.
func (v *ProofVerifier) Verify(root, leaf Digest, proof *Proof) bool {
	if proof == nil || len(proof.Siblings) != int(v.depth) {
		return false
	}
	if v.depth < 64 && proof.LeafIndex>>v.depth != 0 {
		return false
	}
	current := leaf
	for level := uint8(0); level < v.depth; level++ {
		if (proof.LeafIndex>>level)&1 == 0 {
			current = HashNode(v.hasher, current, proof.Siblings[level])
		} else {
			current = HashNode(v.hasher, proof.Siblings[level], current)
		}
	}
	return current == root
}
