// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockheader reconstructs the 80-byte block header from a
// Stratum submission and computes the double-SHA256 proof-of-work hash,
// following the same CompactToBig/HashToBig conventions the teacher's
// mobile miner uses for target comparison.
package blockheader

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/shellreserve/stratumd/merkle"
)

// HeaderSize is the fixed on-wire size of a Bitcoin-format block header.
const HeaderSize = 80

// Job is the minimal slice of a Stratum job the assembler needs: it
// mirrors the wire fields of mining.notify without importing the stratum
// package, to keep this package dependency-free in that direction.
type Job struct {
	Coinb1         string
	Coinb2         string
	MerkleBranch   []chainhash.Hash
	VersionLE      string // "20000000"
	PrevHashSwapped string // stratum word-swapped prevhash, as sent to the miner
	NBits          string
}

// Assemble reconstructs the 80-byte header for (job, extranonce1,
// extranonce2, ntime, nonce) and returns the header bytes, the
// double-SHA256 proof-of-work hash (display/big-endian order), and that
// hash interpreted as a big-endian 256-bit integer for target comparison.
func Assemble(job Job, extranonce1, extranonce2, ntimeHex, nonceHex string) (header [HeaderSize]byte, hash chainhash.Hash, hashInt *big.Int, err error) {
	coinbaseHex := job.Coinb1 + extranonce1 + extranonce2 + job.Coinb2
	coinbase, err := hex.DecodeString(coinbaseHex)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: decode coinbase: %w", err)
	}

	coinbaseHash := chainhash.DoubleHashH(coinbase)
	mroot := merkle.Root(coinbaseHash, job.MerkleBranch)

	version, err := parseHexUint32(job.VersionLE)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: version: %w", err)
	}
	prevHash, err := UndoWordSwap(job.PrevHashSwapped)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: prevhash: %w", err)
	}
	ntime, err := parseHexUint32(ntimeHex)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: ntime: %w", err)
	}
	nbits, err := parseHexUint32(job.NBits)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: nbits: %w", err)
	}
	nonce, err := parseHexUint32(nonceHex)
	if err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: nonce: %w", err)
	}

	wh := wire.BlockHeader{
		Version:    int32(version),
		PrevBlock:  prevHash,
		MerkleRoot: mroot,
		Timestamp:  time.Unix(int64(ntime), 0),
		Bits:       nbits,
		Nonce:      nonce,
	}

	var buf bytes.Buffer
	if err := wh.Serialize(&buf); err != nil {
		return header, hash, nil, fmt.Errorf("blockheader: serialize: %w", err)
	}
	if buf.Len() != HeaderSize {
		return header, hash, nil, fmt.Errorf("blockheader: assembled %d bytes, want %d", buf.Len(), HeaderSize)
	}
	copy(header[:], buf.Bytes())

	powHash := chainhash.DoubleHashH(header[:])
	hash = reverseHash(powHash)
	hashInt = new(big.Int).SetBytes(hash[:])

	return header, hash, hashInt, nil
}

// reverseHash returns h with its bytes reversed, the standard
// internal-to-display byte order flip for a Bitcoin-style block hash.
func reverseHash(h chainhash.Hash) chainhash.Hash {
	var out chainhash.Hash
	for i := 0; i < chainhash.HashSize; i++ {
		out[i] = h[chainhash.HashSize-1-i]
	}
	return out
}

// WordSwap reverses the byte order of each 4-byte word of a 32-byte hash,
// the "stratum swap" applied to prevhash in mining.notify.
func WordSwap(h chainhash.Hash) string {
	var out [chainhash.HashSize]byte
	for word := 0; word < chainhash.HashSize/4; word++ {
		for b := 0; b < 4; b++ {
			out[word*4+b] = h[word*4+3-b]
		}
	}
	return hex.EncodeToString(out[:])
}

// UndoWordSwap inverts WordSwap: undo_word_swap(word_swap(h)) == h.
func UndoWordSwap(swappedHex string) (chainhash.Hash, error) {
	raw, err := hex.DecodeString(swappedHex)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if len(raw) != chainhash.HashSize {
		return chainhash.Hash{}, fmt.Errorf("blockheader: swapped hash has %d bytes, want %d", len(raw), chainhash.HashSize)
	}

	var out chainhash.Hash
	for word := 0; word < chainhash.HashSize/4; word++ {
		for b := 0; b < 4; b++ {
			out[word*4+b] = raw[word*4+3-b]
		}
	}
	return out, nil
}

// parseHexUint32 parses an 8-hex-char textual field (version, ntime,
// nbits, nonce) as the 32-bit integer it denotes. The header then carries
// that integer little-endian — the hex text itself is always big-endian
// digit order, matching Bitcoin Stratum convention.
func parseHexUint32(hexStr string) (uint32, error) {
	v, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
