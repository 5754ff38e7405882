// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertBlockIsIdempotentByHeight(t *testing.T) {
	s := NewMemoryStore()

	err := s.InsertBlock(Block{Height: 1, Timestamp: time.Now()})
	require.NoError(t, err)

	err = s.InsertBlock(Block{Height: 1, Timestamp: time.Now()})
	require.ErrorIs(t, err, ErrAlreadyExists)

	count, err := s.BlockCount()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestConfirmTransactionsMarksOnlyNamedIDs(t *testing.T) {
	s := NewMemoryStore()
	s.AddPendingTransaction(Transaction{ID: "tx1"})
	s.AddPendingTransaction(Transaction{ID: "tx2"})

	require.NoError(t, s.ConfirmTransactions([]string{"tx1"}, 5))

	pending, err := s.PendingTransactions(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "tx2", pending[0].ID)
}

func TestRecentSharesMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	require.NoError(t, s.RecordShare(ShareRecord{Miner: "a", Timestamp: now}))
	require.NoError(t, s.RecordShare(ShareRecord{Miner: "b", Timestamp: now.Add(time.Second)}))

	shares, err := s.RecentShares(10)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	require.Equal(t, "b", shares[0].Miner)
	require.Equal(t, "a", shares[1].Miner)
}

func TestPurgeSharesOlderThanWindow(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.RecordShare(ShareRecord{Miner: "old", Timestamp: time.Now().Add(-2 * time.Hour)}))
	require.NoError(t, s.RecordShare(ShareRecord{Miner: "new", Timestamp: time.Now()}))

	require.NoError(t, s.PurgeSharesOlderThan(time.Hour))

	shares, err := s.RecentShares(10)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	require.Equal(t, "new", shares[0].Miner)
}

func TestCreditBalanceNeverGoesNegative(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreditBalance("w", -100))
	require.Equal(t, int64(0), s.Balance("w"))

	require.NoError(t, s.CreditBalance("w", 50))
	require.NoError(t, s.CreditBalance("w", -20))
	require.Equal(t, int64(30), s.Balance("w"))
}

func TestIsWalletBlocked(t *testing.T) {
	s := NewMemoryStore()
	blocked, err := s.IsWalletBlocked("addr")
	require.NoError(t, err)
	require.False(t, blocked)

	s.BlockWallet("addr")
	blocked, err = s.IsWalletBlocked("addr")
	require.NoError(t, err)
	require.True(t, blocked)
}
