// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blocktemplate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
)

func TestSubsidyHalvingSchedule(t *testing.T) {
	params := chaincfg.Params{
		BaseSubsidy:            50 * 1e8,
		SubsidyHalvingInterval: 100,
		MaxHalvings:            3,
	}

	require.Equal(t, int64(50*1e8), Subsidy(0, params))
	require.Equal(t, int64(50*1e8), Subsidy(99, params))
	require.Equal(t, int64(25*1e8), Subsidy(100, params))
	require.Equal(t, int64(1250000000), Subsidy(250, params))
	require.Equal(t, int64(0), Subsidy(300, params))
	require.Equal(t, int64(0), Subsidy(1_000_000, params))
}

func TestBuildReflectsPendingAndHeight(t *testing.T) {
	store := chainstore.NewMemoryStore()
	store.AddPendingTransaction(chainstore.Transaction{ID: "tx1", Amount: 1})
	store.AddPendingTransaction(chainstore.Transaction{ID: "tx2", Amount: 2})

	b := NewBuilder(store, chaincfg.MainNetParams)
	tpl, err := b.Build(time.Now())
	require.NoError(t, err)

	require.Equal(t, int64(0), tpl.Height)
	require.Len(t, tpl.Transactions, 2)
	require.Equal(t, chaincfg.MainNetParams.BaseSubsidy, tpl.RewardSat)

	require.NoError(t, store.InsertBlock(chainstore.Block{Height: 0, Timestamp: time.Now()}))
	tpl2, err := b.Build(time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), tpl2.Height)
}

func TestTxHashStableForIdenticalFields(t *testing.T) {
	tx := chainstore.Transaction{ID: "a", Sender: "s", Recipient: "r", Amount: 10}
	h1 := TxHash(tx)
	h2 := TxHash(tx)
	require.Equal(t, h1, h2)

	tx.Amount = 11
	h3 := TxHash(tx)
	require.NotEqual(t, h1, h3)
}
