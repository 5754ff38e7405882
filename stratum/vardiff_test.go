// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testVardiffConfig() Config {
	cfg := DefaultConfig()
	cfg.VardiffWindow = 4
	cfg.VardiffEvery = 4
	cfg.VardiffLowSeconds = 8
	cfg.VardiffHighSeconds = 30
	cfg.MaxShareDifficulty = 1000
	return cfg
}

func TestVardiffDoublesWhenSubmittingTooFast(t *testing.T) {
	cfg := testVardiffConfig()
	v := newVardiff(cfg, 10)

	now := time.Now()
	var changed bool
	var newDiff float64
	for i := 0; i < cfg.VardiffEvery; i++ {
		now = now.Add(2 * time.Second) // well under VardiffLowSeconds
		newDiff, changed = v.RecordAccepted(now)
	}

	require.True(t, changed)
	require.Equal(t, float64(20), newDiff)
}

func TestVardiffHalvesWhenSubmittingTooSlow(t *testing.T) {
	cfg := testVardiffConfig()
	v := newVardiff(cfg, 10)

	now := time.Now()
	var changed bool
	var newDiff float64
	for i := 0; i < cfg.VardiffEvery; i++ {
		now = now.Add(60 * time.Second) // well over VardiffHighSeconds
		newDiff, changed = v.RecordAccepted(now)
	}

	require.True(t, changed)
	require.Equal(t, float64(5), newDiff)
}

func TestVardiffStaysWithinBand(t *testing.T) {
	cfg := testVardiffConfig()
	v := newVardiff(cfg, 10)

	now := time.Now()
	var changed bool
	for i := 0; i < cfg.VardiffEvery; i++ {
		now = now.Add(15 * time.Second) // within [low, high]
		_, changed = v.RecordAccepted(now)
	}

	require.False(t, changed)
	require.Equal(t, float64(10), v.Difficulty())
}

func TestVardiffSuggestDifficultyClamps(t *testing.T) {
	cfg := testVardiffConfig()
	v := newVardiff(cfg, 10)

	require.Equal(t, float64(1), v.SuggestDifficulty(0))
	require.Equal(t, cfg.MaxShareDifficulty, v.SuggestDifficulty(cfg.MaxShareDifficulty*10))
	require.Equal(t, float64(42), v.SuggestDifficulty(42))
}
