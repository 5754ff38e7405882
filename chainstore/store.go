// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstore defines the capability set the mining core uses to
// read and mutate chain state, plus the small set of concrete types
// (Block, Transaction, ShareRecord) that flow through it. The mining core
// never depends on a concrete storage engine — only on this interface.
package chainstore

import (
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrAlreadyExists is returned by InsertBlock when a block at the given
// height has already been stored. It is not a failure: the caller already
// got what it wanted.
var ErrAlreadyExists = errors.New("chainstore: block already exists at height")

// Transaction is the mempool view of a transaction: opaque enough for the
// mining core, which only ever reads unconfirmed transactions and flips
// their confirmed flag on inclusion.
type Transaction struct {
	ID        string
	Sender    string
	Recipient string
	Amount    int64 // satoshis
	Type      string
	Timestamp time.Time
	Confirmed bool
	BlockIdx  *int64 // nil until confirmed
}

// CoinbaseTxType and CoinbaseSender mark the reward transaction injected
// by the mining core on block acceptance.
const (
	CoinbaseSender  = "COINBASE"
	CoinbaseTxType  = "mining_reward"
	CoinbaseDefault = ""
)

// Block is an immutable, stored block.
type Block struct {
	Height       int64
	Timestamp    time.Time
	Transactions []Transaction // coinbase first
	PreviousHash chainhash.Hash
	Nonce        uint32
	Difficulty   int64
	Hash         chainhash.Hash
}

// ShareRecord is an append-only record of a share submission.
type ShareRecord struct {
	Miner      string
	Worker     string
	Timestamp  time.Time
	Difficulty float64
	JobID      string
	IsBlock    bool
}

// Store is the capability set the mining core requires of any chain
// storage backend. Implementations are interchangeable variants, not a
// class hierarchy: the core holds one Store and never type-switches on it.
type Store interface {
	// LatestBlock returns the highest-height stored block, or nil if the
	// store is empty.
	LatestBlock() (*Block, error)

	// BlockCount returns the number of stored blocks.
	BlockCount() (int64, error)

	// LastNBlocks returns up to n blocks ordered by height descending.
	LastNBlocks(n int64) ([]Block, error)

	// PendingTransactions returns up to limit unconfirmed transactions in
	// a stable order.
	PendingTransactions(limit int) ([]Transaction, error)

	// InsertBlock stores a new block. It is idempotent keyed by height: a
	// duplicate height returns ErrAlreadyExists without side effects.
	InsertBlock(b Block) error

	// ConfirmTransactions marks the given tx ids confirmed at blockHeight.
	// It is commutative with respect to distinct tx ids.
	ConfirmTransactions(txIDs []string, blockHeight int64) error

	// InsertCoinbaseTransaction records the reward transaction of a
	// newly accepted block into the mempool view (it is also embedded in
	// the block itself; this lets readers find it by id before the block
	// is durable if a backend chooses to expose it that way).
	InsertCoinbaseTransaction(tx Transaction) error

	// RecordShare appends a share record.
	RecordShare(s ShareRecord) error

	// PurgeSharesOlderThan deletes share records older than the window.
	PurgeSharesOlderThan(window time.Duration) error

	// RecentShares returns up to n of the most recently recorded shares,
	// most recent first, for PPLNS accounting.
	RecentShares(n int) ([]ShareRecord, error)

	// IsWalletBlocked reports whether address is on the block list.
	IsWalletBlocked(address string) (bool, error)

	// CreditBalance adds amountSat (may be fractional-satoshi precision
	// losses are the caller's concern) to a worker's accrued PPLNS
	// balance. Implementations must never let a balance go negative.
	CreditBalance(worker string, amountSat int64) error
}
