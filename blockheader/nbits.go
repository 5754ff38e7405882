// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockheader

import (
	"fmt"
	"math/big"
)

// MaxTarget is the difficulty-1 target: MAX_TARGET / difficulty gives the
// block/share target for a given difficulty.
var MaxTarget, _ = new(big.Int).SetString("00000000FFFF0000000000000000000000000000000000000000000000000000", 16)

// TargetForDifficulty returns MAX_TARGET / max(1, difficulty).
func TargetForDifficulty(difficulty int64) *big.Int {
	if difficulty < 1 {
		difficulty = 1
	}
	return new(big.Int).Div(MaxTarget, big.NewInt(difficulty))
}

// ComputeNBits converts a target into Bitcoin's compact "nbits"
// representation: the 3 most-significant bytes of the target, left
// aligned, become the coefficient; the exponent is the number of bytes
// needed to hold the target. If the high bit of the coefficient would be
// set (which would be read back as a negative number) the coefficient is
// shifted right one byte and the exponent bumped, exactly mirroring
// btcd's CompactToBig/BigToCompact inverse pair.
func ComputeNBits(target *big.Int) uint32 {
	bytes := target.Bytes()
	exponent := len(bytes)

	var coefficient uint32
	switch {
	case exponent <= 3:
		for _, b := range bytes {
			coefficient = coefficient<<8 | uint32(b)
		}
		coefficient <<= uint(8 * (3 - exponent))
	default:
		coefficient = uint32(bytes[0])<<16 | uint32(bytes[1])<<8 | uint32(bytes[2])
	}

	if coefficient&0x00800000 != 0 {
		coefficient >>= 8
		exponent++
	}

	return uint32(exponent)<<24 | coefficient
}

// ParseNBits is the inverse of ComputeNBits: it recovers the target a
// compact nbits value encodes, following the same layout CompactToBig
// uses in the teacher's mobile miner.
func ParseNBits(nbits uint32) *big.Int {
	coefficient := nbits & 0x007fffff
	exponent := nbits >> 24

	result := new(big.Int)
	if exponent <= 3 {
		result.SetUint64(uint64(coefficient) >> uint(8*(3-exponent)))
	} else {
		result.SetUint64(uint64(coefficient))
		result.Lsh(result, uint(8*(exponent-3)))
	}
	return result
}

// NBitsHex formats a difficulty as the lower-case hex nbits string a
// Stratum job embeds.
func NBitsHex(difficulty int64) string {
	nbits := ComputeNBits(TargetForDifficulty(difficulty))
	return fmt.Sprintf("%08x", nbits)
}
