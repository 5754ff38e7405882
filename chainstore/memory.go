// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store, used by tests and as the default when
// no on-disk path is configured. It follows the same guarded-map shape as
// the teacher's transaction pool: a single RWMutex over a handful of maps,
// never held across I/O (there is none here to hold it across).
type MemoryStore struct {
	mtx sync.RWMutex

	blocksByHeight map[int64]Block
	topHeight      int64
	haveBlock      bool

	pending map[string]Transaction
	order   []string // insertion order, for stable PendingTransactions

	shares []ShareRecord

	blockedWallets map[string]struct{}

	balances map[string]int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocksByHeight: make(map[int64]Block),
		pending:        make(map[string]Transaction),
		blockedWallets: make(map[string]struct{}),
		balances:       make(map[string]int64),
	}
}

// BlockWallet adds an address to the block list. Test/admin helper, not
// part of the Store interface.
func (m *MemoryStore) BlockWallet(address string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.blockedWallets[address] = struct{}{}
}

// AddPendingTransaction is a test/admin helper to seed the mempool view.
func (m *MemoryStore) AddPendingTransaction(tx Transaction) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, exists := m.pending[tx.ID]; !exists {
		m.order = append(m.order, tx.ID)
	}
	m.pending[tx.ID] = tx
}

func (m *MemoryStore) LatestBlock() (*Block, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	if !m.haveBlock {
		return nil, nil
	}
	b := m.blocksByHeight[m.topHeight]
	return &b, nil
}

func (m *MemoryStore) BlockCount() (int64, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return int64(len(m.blocksByHeight)), nil
}

func (m *MemoryStore) LastNBlocks(n int64) ([]Block, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	heights := make([]int64, 0, len(m.blocksByHeight))
	for h := range m.blocksByHeight {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })

	if int64(len(heights)) > n {
		heights = heights[:n]
	}

	out := make([]Block, 0, len(heights))
	for _, h := range heights {
		out = append(out, m.blocksByHeight[h])
	}
	return out, nil
}

func (m *MemoryStore) PendingTransactions(limit int) ([]Transaction, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	out := make([]Transaction, 0, limit)
	for _, id := range m.order {
		tx, ok := m.pending[id]
		if !ok || tx.Confirmed {
			continue
		}
		out = append(out, tx)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertBlock(b Block) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, exists := m.blocksByHeight[b.Height]; exists {
		return ErrAlreadyExists
	}

	m.blocksByHeight[b.Height] = b
	if !m.haveBlock || b.Height > m.topHeight {
		m.topHeight = b.Height
		m.haveBlock = true
	}
	return nil
}

func (m *MemoryStore) ConfirmTransactions(txIDs []string, blockHeight int64) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for _, id := range txIDs {
		tx, ok := m.pending[id]
		if !ok {
			continue
		}
		tx.Confirmed = true
		h := blockHeight
		tx.BlockIdx = &h
		m.pending[id] = tx
	}
	return nil
}

func (m *MemoryStore) InsertCoinbaseTransaction(tx Transaction) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, exists := m.pending[tx.ID]; !exists {
		m.order = append(m.order, tx.ID)
	}
	m.pending[tx.ID] = tx
	return nil
}

func (m *MemoryStore) RecordShare(s ShareRecord) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.shares = append(m.shares, s)
	return nil
}

func (m *MemoryStore) PurgeSharesOlderThan(window time.Duration) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	cutoff := time.Now().Add(-window)
	kept := m.shares[:0]
	for _, s := range m.shares {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	m.shares = kept
	return nil
}

func (m *MemoryStore) RecentShares(n int) ([]ShareRecord, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	if n > len(m.shares) {
		n = len(m.shares)
	}
	out := make([]ShareRecord, n)
	// Most recent first.
	for i := 0; i < n; i++ {
		out[i] = m.shares[len(m.shares)-1-i]
	}
	return out, nil
}

func (m *MemoryStore) IsWalletBlocked(address string) (bool, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	_, blocked := m.blockedWallets[address]
	return blocked, nil
}

func (m *MemoryStore) CreditBalance(worker string, amountSat int64) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	newBalance := m.balances[worker] + amountSat
	if newBalance < 0 {
		newBalance = 0
	}
	m.balances[worker] = newBalance
	return nil
}

// Balance is a test/admin helper returning a worker's accrued PPLNS credit.
func (m *MemoryStore) Balance(worker string) int64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.balances[worker]
}

var _ Store = (*MemoryStore)(nil)
