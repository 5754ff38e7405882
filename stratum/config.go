// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stratum implements the Stratum v1 mining server: per-connection
// job lifecycle, share validation, variable difficulty, and the
// accept/broadcast loop, following the shape of the teacher's mobile
// mining pool (StratumServer/JobManager/ShareValidator) generalized from
// ASIC-agnostic mobile jobs to the Bitcoin-compatible header format this
// chain actually mines.
package stratum

import "time"

// Config carries the constants spec.md pins to specific values plus the
// handful of deployment knobs (host/port, pool tag).
type Config struct {
	Host string
	Port string

	PoolTag string

	InitialShareDifficulty float64
	MaxShareDifficulty      float64

	VardiffWindow     int
	VardiffEvery      int
	VardiffLowSeconds float64
	VardiffHighSeconds float64

	ShareRetention time.Duration
	PPLNSWindow    int

	JobRefreshInterval time.Duration
	SharePurgeInterval time.Duration

	// FallbackJobCacheSize bounds the process-wide job map consulted when
	// a submit cites a job its own connection no longer holds.
	FallbackJobCacheSize int

	ConnectionReadTimeout time.Duration
}

// DefaultConfig returns the constants spec.md §6/§4.8/§4.7 pin.
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: "3333",

		PoolTag: "/shell/",

		InitialShareDifficulty: 1,
		MaxShareDifficulty:     1_000_000,

		VardiffWindow:      20,
		VardiffEvery:       15,
		VardiffLowSeconds:  8,
		VardiffHighSeconds: 30,

		ShareRetention: time.Hour,
		PPLNSWindow:    1000,

		JobRefreshInterval: 30 * time.Second,
		SharePurgeInterval: 5 * time.Minute,

		FallbackJobCacheSize: 4096,

		ConnectionReadTimeout: 0, // miner controls cadence; no per-request timeout
	}
}
