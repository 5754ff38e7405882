// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"

	"github.com/shellreserve/stratumd/blockheader"
	"github.com/shellreserve/stratumd/blocktemplate"
	"github.com/shellreserve/stratumd/coinbase"
	"github.com/shellreserve/stratumd/merkle"
)

const extranonce2Size = 4

// JobManager creates personalized per-miner jobs and caches them, mirroring
// the teacher's JobManager but keyed by worker address rather than a
// single shared job, since every job here pays whoever mines it.
type JobManager struct {
	cfg     Config
	builder *blocktemplate.Builder

	idCounter uint64

	// fallback is a bounded, process-wide cache of recently issued jobs,
	// consulted only when a submit cites a job id its own connection no
	// longer holds (spec.md §4.6, §9).
	fallbackMu sync.Mutex
	fallback   *lru.Map[string, *Job]

	latestMu sync.RWMutex
	latest   *blocktemplate.Template
}

// NewJobManager returns a JobManager bound to a block template builder.
func NewJobManager(cfg Config, builder *blocktemplate.Builder) *JobManager {
	return &JobManager{
		cfg:      cfg,
		builder:  builder,
		fallback: lru.NewMap[string, *Job](uint32(cfg.FallbackJobCacheSize)),
	}
}

// RefreshTemplate rebuilds the block template from the chain store. Called
// by the server's periodic loop and immediately after a block is accepted.
func (jm *JobManager) RefreshTemplate(now time.Time) error {
	tpl, err := jm.builder.Build(now)
	if err != nil {
		return fmt.Errorf("stratum: refresh template: %w", err)
	}

	jm.latestMu.Lock()
	jm.latest = tpl
	jm.latestMu.Unlock()
	return nil
}

// currentTemplate returns the most recently built template, or nil if
// none has been built yet.
func (jm *JobManager) currentTemplate() *blocktemplate.Template {
	jm.latestMu.RLock()
	defer jm.latestMu.RUnlock()
	return jm.latest
}

// NewJobFor builds a personalized job paying recipient, using the current
// template, for a miner whose extranonce1/extranonce2 size are fixed by
// its connection. cleanJobs instructs the miner to abandon in-flight
// work (set on a new block or when no job exists yet).
func (jm *JobManager) NewJobFor(recipient string, shareDifficulty float64, cleanJobs bool) (*Job, error) {
	tpl := jm.currentTemplate()
	if tpl == nil {
		return nil, fmt.Errorf("stratum: no block template available")
	}

	id := fmt.Sprintf("%x", atomic.AddUint64(&jm.idCounter, 1))

	extranonce1Size := 4 // fixed per spec.md §3/§6
	coinb1, coinb2, err := coinbase.Split(tpl.Height, extranonce1Size, extranonce2Size, tpl.RewardSat, recipient, jm.cfg.PoolTag)
	if err != nil {
		return nil, fmt.Errorf("stratum: build coinbase: %w", err)
	}

	otherHashes := make([]chainhash.Hash, len(tpl.Transactions))
	for i, tx := range tpl.Transactions {
		otherHashes[i] = blocktemplate.TxHash(tx)
	}
	branch := merkle.Branch(otherHashes)

	job := newJob()
	job.ID = id
	job.Coinb1 = coinb1
	job.Coinb2 = coinb2
	job.MerkleBranch = branch
	job.PrevHashSwapped = blockheader.WordSwap(tpl.PreviousHash)
	job.NBits = blockheader.NBitsHex(tpl.Difficulty)
	job.NTime = fmt.Sprintf("%08x", tpl.Timestamp.Unix())
	job.CleanJobs = cleanJobs
	job.Template = tpl
	job.Recipient = recipient
	job.ShareDifficulty = shareDifficulty

	jm.fallbackMu.Lock()
	jm.fallback.Put(id, job)
	jm.fallbackMu.Unlock()

	return job, nil
}

// Lookup resolves a job id against the fallback cache, for submits that
// cite a job the connection's own map no longer holds. Conn.lookupJob,
// which the validator calls, hands back a copy with Recipient set to the
// submitting connection's own worker, so a miner is always paid into its
// own wallet.
func (jm *JobManager) Lookup(id string) (*Job, bool) {
	jm.fallbackMu.Lock()
	defer jm.fallbackMu.Unlock()
	return jm.fallback.Get(id)
}
