// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestBranchNoOtherTransactions(t *testing.T) {
	branch := Branch(nil)
	require.Empty(t, branch)

	coinbaseHash := hashFromByte(0x01)
	require.Equal(t, coinbaseHash, Root(coinbaseHash, branch))
}

func TestBranchOneOtherTransaction(t *testing.T) {
	coinbaseHash := hashFromByte(0x01)
	tx1 := hashFromByte(0x02)

	branch := Branch([]chainhash.Hash{tx1})
	require.Len(t, branch, 1)
	require.Equal(t, tx1, branch[0])

	want := hashPair(coinbaseHash, tx1)
	require.Equal(t, want, Root(coinbaseHash, branch))
}

func TestBranchTwoOtherTransactions(t *testing.T) {
	coinbaseHash := hashFromByte(0x01)
	tx1 := hashFromByte(0x02)
	tx2 := hashFromByte(0x03)

	branch := Branch([]chainhash.Hash{tx1, tx2})
	require.Len(t, branch, 2)

	level1Coinbase := hashPair(coinbaseHash, tx1)
	level1Right := hashPair(tx2, tx2) // odd level padded by duplication
	want := hashPair(level1Coinbase, level1Right)

	require.Equal(t, want, Root(coinbaseHash, branch))
}

// TestBranchRootRoundTrip checks that for any number of sibling
// transactions, folding the coinbase hash through the computed branch
// reproduces the same root a direct from-scratch tree build would give.
func TestBranchRootRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		others := make([]chainhash.Hash, n)
		for i := range others {
			others[i] = hashFromByte(byte(i + 2))
		}
		coinbaseHash := hashFromByte(0x01)

		branch := Branch(others)
		root1 := Root(coinbaseHash, branch)
		root2 := directRoot(coinbaseHash, others)
		require.Equal(t, root2, root1)
	})
}

// directRoot builds the merkle root directly from a full leaf list,
// independent of Branch/Root's folding logic, as an oracle for the
// property test above.
func directRoot(coinbaseHash chainhash.Hash, others []chainhash.Hash) chainhash.Hash {
	level := append([]chainhash.Hash{coinbaseHash}, others...)
	if len(level) == 1 {
		return level[0]
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = hashPair(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}
