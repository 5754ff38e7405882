// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blocktemplate assembles the ephemeral descriptor the job
// manager turns into per-miner Stratum jobs: next height, chosen
// timestamp, included transactions, previous hash, difficulty and reward.
package blocktemplate

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
	"github.com/shellreserve/stratumd/difficulty"
)

const pendingTxLimit = 100

// Template is the ephemeral block-in-waiting.
type Template struct {
	Height       int64
	Timestamp    time.Time
	Transactions []chainstore.Transaction
	PreviousHash chainhash.Hash
	Difficulty   int64
	RewardSat    int64
	// PendingTxIDs is the set of tx ids that must be confirmed if this
	// template is accepted as a block.
	PendingTxIDs []string
}

// Builder produces block templates from a chain store and a difficulty
// oracle.
type Builder struct {
	store  chainstore.Store
	oracle *difficulty.Oracle
	params chaincfg.Params
}

// NewBuilder returns a Builder reading from store and params.
func NewBuilder(store chainstore.Store, params chaincfg.Params) *Builder {
	return &Builder{
		store:  store,
		oracle: difficulty.NewOracle(params),
		params: params,
	}
}

// Build reads the latest block and pending transactions, computes the
// reward by halving schedule and the difficulty via the oracle, and
// returns a new Template stamped with the current wall-clock time.
func (b *Builder) Build(now time.Time) (*Template, error) {
	latest, err := b.store.LatestBlock()
	if err != nil {
		return nil, err
	}

	var nextHeight int64
	var prevHash chainhash.Hash
	if latest != nil {
		nextHeight = latest.Height + 1
		prevHash = latest.Hash
	}

	pending, err := b.store.PendingTransactions(pendingTxLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(pending))
	for i, tx := range pending {
		ids[i] = tx.ID
	}

	diff, err := b.oracle.NextForChain(b.store, now)
	if err != nil {
		return nil, err
	}

	log.Tracef("blocktemplate: built height %d with %d pending tx at difficulty %d", nextHeight, len(pending), diff)

	return &Template{
		Height:       nextHeight,
		Timestamp:    now,
		Transactions: pending,
		PreviousHash: prevHash,
		Difficulty:   diff,
		RewardSat:    Subsidy(nextHeight, b.params),
		PendingTxIDs: ids,
	}, nil
}

// TxHash computes a deterministic identifier hash for a mempool-view
// transaction, used as its merkle-tree leaf. The mining core's
// Transaction is an opaque ledger entry rather than a full Bitcoin
// wire.MsgTx (script execution and UTXO validation are out of scope,
// spec.md §1), so its "txid" is the double-SHA256 of a canonical
// encoding of the fields that make it unique.
func TxHash(tx chainstore.Transaction) chainhash.Hash {
	buf := make([]byte, 0, len(tx.ID)+len(tx.Sender)+len(tx.Recipient)+8)
	buf = append(buf, tx.ID...)
	buf = append(buf, tx.Sender...)
	buf = append(buf, tx.Recipient...)
	var amount [8]byte
	binary.BigEndian.PutUint64(amount[:], uint64(tx.Amount))
	buf = append(buf, amount[:]...)
	return chainhash.DoubleHashH(buf)
}

// Subsidy computes the block reward at height via the halving schedule:
// BaseSubsidy halved every SubsidyHalvingInterval blocks, zero beyond
// MaxHalvings halvings.
func Subsidy(height int64, params chaincfg.Params) int64 {
	halvings := uint(height / params.SubsidyHalvingInterval)
	if halvings >= params.MaxHalvings {
		return 0
	}
	return params.BaseSubsidy >> halvings
}
