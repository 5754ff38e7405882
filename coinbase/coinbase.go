// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coinbase builds the Bitcoin-format coinbase transaction split
// into the prefix/suffix halves a Stratum job hands out around the
// extranonce region, following the teacher's CreateCoinbase/
// BuildCoinbaseScript shape but to the bit-exact layout the protocol
// requires.
package coinbase

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Opcodes used in the simplified output script. Shell's coinbase output
// is not a valid Bitcoin address encoding (see spec.md §9) — on-chain
// script execution is out of scope for the mining core.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opPush20      = 0x14
)

// BIP34Height encodes a block height per BIP34 for inclusion in a
// coinbase's scriptSig.
func BIP34Height(height int64) []byte {
	switch {
	case height < 17:
		return []byte{byte(0x50 + height)}
	case height < 128:
		return []byte{0x01, byte(height)}
	case height < 32768:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(height))
		return append([]byte{0x02}, buf...)
	default:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(height))
		return append([]byte{0x03}, buf[:3]...)
	}
}

func putVarInt(n int) []byte {
	// Script lengths here are always well under 0xfd; the single-byte
	// varint form is the only one this coinbase ever needs.
	if n >= 0xfd {
		panic(fmt.Sprintf("coinbase: script length %d exceeds single-byte varint range", n))
	}
	return []byte{byte(n)}
}

// Split builds a coinbase transaction and returns it split into coinb1
// and coinb2 hex halves such that the full coinbase is
// coinb1 ‖ extranonce1 ‖ extranonce2 ‖ coinb2.
//
// Layout:
//
//	coinb1: version(4) | txin count(1)=01 | null prevout(36) |
//	        script varint | BIP34 height push | pool tag
//	coinb2: sequence(4)=ffffffff | txout count(1)=01 |
//	        value(8 LE) | pkscript | locktime(4)=00000000
func Split(height int64, extranonce1Size, extranonce2Size int, rewardSat int64, recipientAddress string, poolTag string) (coinb1 string, coinb2 string, err error) {
	heightPush := BIP34Height(height)
	tag := []byte(poolTag)

	scriptPrefix := make([]byte, 0, len(heightPush)+len(tag))
	scriptPrefix = append(scriptPrefix, heightPush...)
	scriptPrefix = append(scriptPrefix, tag...)

	scriptLen := len(scriptPrefix) + extranonce1Size + extranonce2Size

	var b1 []byte
	b1 = append(b1, 0x01, 0x00, 0x00, 0x00) // version
	b1 = append(b1, 0x01)                   // one input
	b1 = append(b1, make([]byte, 32)...)    // null prev-tx hash
	b1 = append(b1, 0xff, 0xff, 0xff, 0xff) // prev-index
	b1 = append(b1, putVarInt(scriptLen)...)
	b1 = append(b1, scriptPrefix...)

	pkScript := p2pkhLikeScript(recipientAddress)

	var b2 []byte
	b2 = append(b2, 0xff, 0xff, 0xff, 0xff) // sequence
	b2 = append(b2, 0x01)                   // one output
	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, uint64(rewardSat))
	b2 = append(b2, value...)
	b2 = append(b2, putVarInt(len(pkScript))...)
	b2 = append(b2, pkScript...)
	b2 = append(b2, 0x00, 0x00, 0x00, 0x00) // locktime

	return hex.EncodeToString(b1), hex.EncodeToString(b2), nil
}

// p2pkhLikeScript builds the simplified output script of spec.md §4.4:
// OP_DUP OP_HASH160 <20 bytes SHA256(address)[:20]> OP_EQUALVERIFY
// OP_CHECKSIG. This is deliberately not the standard Bitcoin pubkey-hash
// construction (RIPEMD160(SHA256(x))) — it is a truncated single SHA256,
// preserved exactly as the source computes it because on-chain script
// execution/validation is out of scope for the mining core (spec.md §9).
func p2pkhLikeScript(address string) []byte {
	sha := sha256.Sum256([]byte(address))
	hash160 := sha[:20]

	script := make([]byte, 0, 25)
	script = append(script, opDup, opHash160, opPush20)
	script = append(script, hash160...)
	script = append(script, opEqualVerify, opCheckSig)
	return script
}
