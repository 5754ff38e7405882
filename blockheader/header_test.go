// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockheader

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func randHash(seed byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = seed + byte(i)
	}
	return h
}

func TestWordSwapInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := byte(rapid.IntRange(0, 255).Draw(t, "seed"))
		h := randHash(seed)

		swapped := WordSwap(h)
		back, err := UndoWordSwap(swapped)
		require.NoError(t, err)
		require.Equal(t, h, back)
	})
}

func TestWordSwapByteOrder(t *testing.T) {
	var h chainhash.Hash
	for i := 0; i < 4; i++ {
		h[i] = byte(i)
	}
	swapped := WordSwap(h)
	// First word [0,1,2,3] should come back reversed as "03020100".
	require.Equal(t, "03020100", swapped[:8])
}

func TestComputeAndParseNBitsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		diff := rapid.Int64Range(1, 1<<20).Draw(t, "difficulty")
		target := TargetForDifficulty(diff)

		nbits := ComputeNBits(target)
		recovered := ParseNBits(nbits)

		// ComputeNBits truncates to 3 significant bytes, so recovered may
		// be slightly below the original target but never above it, and
		// never differs by more than one unit in the last represented byte.
		require.LessOrEqual(t, recovered.Cmp(target), 0)

		diffBytes := new(big.Int).Sub(target, recovered)
		// Allow one extra byte of slack: ComputeNBits shifts its
		// coefficient right a further byte whenever the top bit would
		// otherwise be mistaken for a sign bit.
		bytesLen := len(target.Bytes())
		if bytesLen > 3 {
			limit := new(big.Int).Lsh(big.NewInt(1), uint((bytesLen-3)*8+8))
			require.LessOrEqual(t, diffBytes.Cmp(limit), 0)
		}
	})
}

func TestAssembleHeaderDeterministic(t *testing.T) {
	job := Job{
		Coinb1:          "01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff0803012f7368656c2f",
		Coinb2:          "ffffffff0100f2052a010000001976a914000000000000000000000000000000000000000088ac00000000",
		MerkleBranch:    nil,
		VersionLE:       "20000000",
		PrevHashSwapped: WordSwap(randHash(0x10)),
		NBits:           "1d00ffff",
	}

	_, hash1, int1, err := Assemble(job, "00000001", "00000000", "5f5e1000", "00000000")
	require.NoError(t, err)

	_, hash2, int2, err := Assemble(job, "00000001", "00000000", "5f5e1000", "00000000")
	require.NoError(t, err)

	require.Equal(t, hash1, hash2)
	require.Equal(t, 0, int1.Cmp(int2))

	_, hash3, _, err := Assemble(job, "00000001", "00000000", "5f5e1000", "00000001")
	require.NoError(t, err)
	require.NotEqual(t, hash1, hash3)
}
