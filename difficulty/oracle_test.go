// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package difficulty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
)

func testParams() chaincfg.Params {
	return chaincfg.Params{
		TargetTimePerBlock: 10 * time.Minute,
		PreRetargetWindow:  4,
		RetargetInterval:   8,
		MinRetargetFactor:  0.25,
		MaxRetargetFactor:  4.0,
		InitialDifficulty:  1,
	}
}

func TestNextForChainGenesis(t *testing.T) {
	store := chainstore.NewMemoryStore()
	o := NewOracle(testParams())

	diff, err := o.NextForChain(store, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), diff)
}

func TestNextForChainNonBoundaryCarriesLastDifficulty(t *testing.T) {
	store := chainstore.NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.InsertBlock(chainstore.Block{Height: 0, Timestamp: base, Difficulty: 5}))

	o := NewOracle(testParams())
	diff, err := o.NextForChain(store, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(5), diff)
}

func TestNextForChainRetargetClampsUp(t *testing.T) {
	params := testParams()
	params.RetargetInterval = 4
	params.PreRetargetWindow = 2
	o := NewOracle(params)
	store := chainstore.NewMemoryStore()

	base := time.Now().Add(-time.Hour)
	// 8 blocks (two full 4-block retarget windows), all mined one second
	// apart: wildly faster than the 10-minute target, so the ratio should
	// clamp to MaxRetargetFactor rather than spike unbounded.
	for h := int64(0); h < 8; h++ {
		require.NoError(t, store.InsertBlock(chainstore.Block{
			Height:     h,
			Timestamp:  base.Add(time.Duration(h) * time.Second),
			Difficulty: 100,
		}))
	}

	diff, err := o.NextForChain(store, base.Add(7*time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(100*4), diff)
}

func TestDecayHalvesPerStalledInterval(t *testing.T) {
	o := NewOracle(testParams())
	last := time.Now()

	require.Equal(t, int64(100), o.decay(100, last, last.Add(o.params.TargetTimePerBlock)))
	require.Equal(t, int64(50), o.decay(100, last, last.Add(2*o.params.TargetTimePerBlock)))
	require.Equal(t, int64(25), o.decay(100, last, last.Add(3*o.params.TargetTimePerBlock)))
	require.Equal(t, int64(1), o.decay(1, last, last.Add(10*o.params.TargetTimePerBlock)))
}
