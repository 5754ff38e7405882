// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"sync"
	"time"
)

// vardiff tracks a sliding window of inter-submission intervals for one
// connection and adjusts its share difficulty toward a target submission
// rate, per spec.md §4.8. Its own connection's read loop calls
// RecordAccepted/SuggestDifficulty, while the broadcast/refresh loop reads
// Difficulty for the same connection concurrently when pushing a fresh
// job (server.go's broadcastJobs), so every field access is guarded by mu.
type vardiff struct {
	cfg Config

	mu sync.Mutex

	difficulty float64

	intervals      []float64
	lastSubmit     time.Time
	haveLastSubmit bool

	acceptedSinceCheck int
}

func newVardiff(cfg Config, initial float64) *vardiff {
	if initial < 1 {
		initial = 1
	}
	return &vardiff{cfg: cfg, difficulty: initial}
}

// Difficulty returns the current share difficulty.
func (v *vardiff) Difficulty() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.difficulty
}

// SuggestDifficulty applies an explicit miner-requested difficulty,
// clamped to >= 1.
func (v *vardiff) SuggestDifficulty(d float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if d < 1 {
		d = 1
	}
	if d > v.cfg.MaxShareDifficulty {
		d = v.cfg.MaxShareDifficulty
	}
	v.difficulty = d
	return v.difficulty
}

// RecordAccepted folds one more accepted submission's inter-arrival time
// into the sliding window and, every VardiffEvery accepted submissions,
// recomputes the mean and adjusts difficulty. It returns the new
// difficulty and whether it changed.
func (v *vardiff) RecordAccepted(now time.Time) (newDifficulty float64, changed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.haveLastSubmit {
		interval := now.Sub(v.lastSubmit).Seconds()
		v.intervals = append(v.intervals, interval)
		if len(v.intervals) > v.cfg.VardiffWindow {
			v.intervals = v.intervals[len(v.intervals)-v.cfg.VardiffWindow:]
		}
	}
	v.lastSubmit = now
	v.haveLastSubmit = true

	v.acceptedSinceCheck++
	if v.acceptedSinceCheck < v.cfg.VardiffEvery || len(v.intervals) == 0 {
		return v.difficulty, false
	}
	v.acceptedSinceCheck = 0

	var sum float64
	for _, iv := range v.intervals {
		sum += iv
	}
	mean := sum / float64(len(v.intervals))

	old := v.difficulty
	switch {
	case mean < v.cfg.VardiffLowSeconds:
		v.difficulty *= 2
	case mean > v.cfg.VardiffHighSeconds:
		v.difficulty /= 2
	}
	if v.difficulty > v.cfg.MaxShareDifficulty {
		v.difficulty = v.cfg.MaxShareDifficulty
	}
	if v.difficulty < 1 {
		v.difficulty = 1
	}

	return v.difficulty, v.difficulty != old
}
