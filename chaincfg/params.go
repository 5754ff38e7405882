// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg carries the handful of consensus constants the mining
// core needs: the target block interval, the retarget window, and the
// subsidy halving schedule. It intentionally does not carry network
// magic, DNS seeds, or soft-fork deployment machinery — those belong to
// the full node, not the Stratum core.
package chaincfg

import "time"

// Params holds the consensus parameters the mining core consults.
type Params struct {
	// TargetTimePerBlock is the intended average spacing between blocks.
	TargetTimePerBlock time.Duration

	// PreRetargetWindow is the number of blocks used to measure actual vs.
	// expected elapsed time before the chain has produced RetargetInterval
	// blocks.
	PreRetargetWindow int64

	// RetargetInterval is the number of blocks between full difficulty
	// recalculations once the chain has produced RetargetInterval blocks.
	RetargetInterval int64

	// MinRetargetFactor and MaxRetargetFactor bound how far a single
	// retarget may move the difficulty.
	MinRetargetFactor float64
	MaxRetargetFactor float64

	// InitialDifficulty is the difficulty assigned to the genesis block.
	InitialDifficulty int64

	// BaseSubsidy is the block reward in satoshis before any halving.
	BaseSubsidy int64

	// SubsidyHalvingInterval is the number of blocks between subsidy
	// halvings.
	SubsidyHalvingInterval int64

	// MaxHalvings caps the halving schedule; beyond it the subsidy is zero.
	MaxHalvings uint
}

// MainNetParams are the parameters used by the production chain store.
var MainNetParams = Params{
	TargetTimePerBlock:     600 * time.Second,
	PreRetargetWindow:      10,
	RetargetInterval:       2016,
	MinRetargetFactor:      0.25,
	MaxRetargetFactor:      4.0,
	InitialDifficulty:      1,
	BaseSubsidy:            50 * 1e8,
	SubsidyHalvingInterval: 210000,
	MaxHalvings:            64,
}
