// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle builds the sibling-hash branch a Stratum job embeds so a
// miner can recompute the block's merkle root from the coinbase hash alone.
package merkle

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// hashPair returns the double-SHA256 of the concatenation of two hashes,
// the same primitive btcd's blockchain package uses to climb a merkle tree.
func hashPair(left, right chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// Branch computes the list of sibling hashes needed to fold a coinbase
// transaction hash up to the block's merkle root, given the hashes of the
// remaining transactions in block order (coinbase excluded).
//
// The coinbase always occupies leaf position 0; everywhere else in the
// tree its hash is unknown until a miner picks an extranonce2, so the
// branch records, at each level, the sibling needed to keep folding the
// coinbase-rooted subtree upward. A nil placeholder stands in for the
// coinbase leaf while the rest of the level is built and padded exactly
// as btcd's merkle tree store pads an odd trailing node (duplicate it).
func Branch(otherTxHashes []chainhash.Hash) []chainhash.Hash {
	const coinbaseSlot = 0
	level := make([]*chainhash.Hash, 0, len(otherTxHashes)+1)
	level = append(level, nil) // coinbase placeholder at index 0
	for i := range otherTxHashes {
		h := otherTxHashes[i]
		level = append(level, &h)
	}

	var branch []chainhash.Hash
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		branch = append(branch, *level[coinbaseSlot+1])

		next := make([]*chainhash.Hash, 0, len(level)/2)
		next = append(next, nil) // the coinbase-rooted subtree's new hash
		for i := 2; i < len(level); i += 2 {
			h := hashPair(*level[i], *level[i+1])
			next = append(next, &h)
		}
		level = next
	}

	return branch
}

// Root folds a coinbase hash through a branch produced by Branch (or
// received over the wire) to recompute the merkle root, mirroring exactly
// what a miner does with coinb1/coinb2/branch from mining.notify.
func Root(coinbaseHash chainhash.Hash, branch []chainhash.Hash) chainhash.Hash {
	root := coinbaseHash
	for _, sibling := range branch {
		root = hashPair(root, sibling)
	}
	return root
}
