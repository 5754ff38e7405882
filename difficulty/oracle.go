// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package difficulty computes the target difficulty for the next block
// from recent chain history, including a liveness rule that decays
// difficulty when the chain stalls.
package difficulty

import (
	"math"
	"time"

	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
)

// ChainReader is the slice of chainstore.Store the oracle needs. It is
// satisfied by chainstore.Store directly; kept narrow so difficulty tests
// don't need a full store.
type ChainReader interface {
	LatestBlock() (*chainstore.Block, error)
	BlockCount() (int64, error)
	LastNBlocks(n int64) ([]chainstore.Block, error)
}

// Oracle computes the next block's difficulty.
type Oracle struct {
	params chaincfg.Params
}

// NewOracle returns an Oracle bound to the given consensus parameters.
func NewOracle(params chaincfg.Params) *Oracle {
	return &Oracle{params: params}
}

// NextForChain computes the next block's difficulty by reading the chain
// through reader, implementing spec algorithm:
//  1. height == 0 -> initial difficulty.
//  2. non-boundary height -> last block's difficulty, subject to decay.
//  3. boundary height -> retarget by expected/actual ratio (clamped),
//     then subject to decay.
func (o *Oracle) NextForChain(reader ChainReader, now time.Time) (int64, error) {
	count, err := reader.BlockCount()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return o.params.InitialDifficulty, nil
	}

	top, err := reader.LatestBlock()
	if err != nil {
		return 0, err
	}
	if top == nil {
		return o.params.InitialDifficulty, nil
	}

	interval := o.params.PreRetargetWindow
	if count >= o.params.RetargetInterval {
		interval = o.params.RetargetInterval
	}

	var base int64
	if count%interval != 0 {
		base = top.Difficulty
	} else {
		blocks, err := reader.LastNBlocks(interval + 1)
		if err != nil {
			return 0, err
		}
		if int64(len(blocks)) <= interval {
			// Not enough history yet (e.g. genesis-adjacent); fall back
			// to the last difficulty rather than guessing a ratio.
			base = top.Difficulty
		} else {
			// blocks is height-descending: blocks[0] is top, blocks[interval] is top-interval.
			newest := blocks[0].Timestamp
			oldest := blocks[interval].Timestamp
			actual := newest.Sub(oldest).Seconds()
			expected := float64(interval) * o.params.TargetTimePerBlock.Seconds()

			ratio := expected / actual
			if ratio < o.params.MinRetargetFactor {
				ratio = o.params.MinRetargetFactor
			}
			if ratio > o.params.MaxRetargetFactor {
				ratio = o.params.MaxRetargetFactor
			}

			base = int64(math.Floor(float64(top.Difficulty) * ratio))
			if base < 1 {
				base = 1
			}
			log.Debugf("difficulty: retargeted %d -> %d at height %d (ratio %.4f)", top.Difficulty, base, count, ratio)
		}
	}

	return o.decay(base, top.Timestamp, now), nil
}

// decay implements the chain-liveness rule: difficulty halves for every
// additional target-block-time elapsed without a new block.
func (o *Oracle) decay(base int64, lastBlockTime, now time.Time) int64 {
	targetSeconds := o.params.TargetTimePerBlock.Seconds()
	elapsed := now.Sub(lastBlockTime).Seconds()

	if elapsed <= targetSeconds {
		return base
	}

	periods := elapsed/targetSeconds - 1
	decayed := int64(math.Floor(float64(base) * math.Pow(0.5, periods)))
	if decayed < 1 {
		decayed = 1
	}
	return decayed
}
