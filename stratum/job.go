// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/stratumd/blocktemplate"
)

// jobVersion is the fixed block version every job advertises.
const jobVersion = "20000000"

// Job is a per-miner Stratum job: the personalized coinbase split plus
// everything needed to reassemble and hash a submission.
type Job struct {
	ID string

	Coinb1       string
	Coinb2       string
	MerkleBranch []chainhash.Hash
	PrevHashSwapped string
	NBits        string
	NTime        string
	CleanJobs    bool

	Template  *blocktemplate.Template
	Recipient string

	// ShareDifficulty is the difficulty in effect when this job was
	// emitted; vardiff changes apply to the *next* job, not this one.
	ShareDifficulty float64

	mu   sync.Mutex
	seen map[submissionKey]struct{}
}

// submissionKey identifies a unique (extranonce2, ntime, nonce) triple
// for duplicate-share rejection.
type submissionKey struct {
	extranonce2 string
	ntime       string
	nonce       string
}

// newJob allocates a Job with an initialized duplicate-share set.
func newJob() *Job {
	return &Job{seen: make(map[submissionKey]struct{})}
}

// markSeen records (extranonce2, ntime, nonce) if not already present,
// returning false if it was a duplicate. Safe for concurrent submits
// against the same job.
func (j *Job) markSeen(extranonce2, ntime, nonce string) (firstTime bool) {
	key := submissionKey{extranonce2, ntime, nonce}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.seen[key]; exists {
		return false
	}
	j.seen[key] = struct{}{}
	return true
}

// withRecipient returns a copy of j whose Recipient is worker, leaving j
// itself untouched. Used when a submit is resolved through the shared
// process-wide fallback cache (spec.md §4.6): that *Job may still be the
// authoritative entry in another connection's own job map, so it must
// never be mutated in place. The duplicate-share set is intentionally
// shared (not copied) between views of the same job id — it is field
// state of the job itself, not of the recipient override. Built field by
// field rather than by struct-copying j, since j embeds a sync.Mutex.
func (j *Job) withRecipient(worker string) *Job {
	return &Job{
		ID:              j.ID,
		Coinb1:          j.Coinb1,
		Coinb2:          j.Coinb2,
		MerkleBranch:    j.MerkleBranch,
		PrevHashSwapped: j.PrevHashSwapped,
		NBits:           j.NBits,
		NTime:           j.NTime,
		CleanJobs:       j.CleanJobs,
		Template:        j.Template,
		Recipient:       worker,
		ShareDifficulty: j.ShareDifficulty,
		seen:            j.seen,
	}
}
