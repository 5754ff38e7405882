// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/shellreserve/stratumd/blockheader"
	"github.com/shellreserve/stratumd/chainstore"
)

// ShareValidator implements C7: it resolves a submitted share against its
// job, reassembles the header, and decides accept/reject, escalating to a
// block-acceptance path when the share also clears the network target.
type ShareValidator struct {
	store      chainstore.Store
	jobManager *JobManager
	params     shareParams
}

// shareParams is the subset of chaincfg.Params the validator needs,
// threaded through rather than importing chaincfg directly so this
// package stays agnostic of chain-wide parameters beyond the network
// target it is handed per template.
type shareParams struct {
	pplnsWindow int
}

// NewShareValidator returns a ShareValidator bound to store and jm.
func NewShareValidator(store chainstore.Store, jm *JobManager, pplnsWindow int) *ShareValidator {
	return &ShareValidator{store: store, jobManager: jm, params: shareParams{pplnsWindow: pplnsWindow}}
}

// submission is one mining.submit's parameters, already positionally
// decoded by the connection handler.
type submission struct {
	worker      string
	jobID       string
	extranonce2 string
	ntime       string
	nonce       string
}

// Validate runs the full C7 algorithm (spec.md §4.7) against one
// submission from conn, returning the RPCError to send back (nil on
// accept) and whether the share turned out to be a block.
func (sv *ShareValidator) Validate(c *Conn, s submission) (*RPCError, bool, error) {
	job, ok := c.lookupJob(s.jobID)
	if !ok {
		return rpcError(ErrCodeJobNotFound, "Job not found"), false, nil
	}

	if first := job.markSeen(s.extranonce2, s.ntime, s.nonce); !first {
		return rpcError(ErrCodeDuplicateShare, "Duplicate share"), false, nil
	}

	hj := blockheader.Job{
		Coinb1:          job.Coinb1,
		Coinb2:          job.Coinb2,
		MerkleBranch:    job.MerkleBranch,
		VersionLE:       jobVersion,
		PrevHashSwapped: job.PrevHashSwapped,
		NBits:           job.NBits,
	}

	_, hash, hashInt, err := blockheader.Assemble(hj, c.extranonce1, s.extranonce2, s.ntime, s.nonce)
	if err != nil {
		// A submission whose fields cannot be parsed into a header is an
		// invalid share, answered with the low-difficulty code.
		return rpcError(ErrCodeLowDifficultyShare, "Low difficulty share"), false, nil
	}

	shareTarget := blockheader.TargetForDifficulty(int64(job.ShareDifficulty))
	if hashInt.Cmp(shareTarget) > 0 {
		return rpcError(ErrCodeLowDifficultyShare, "Low difficulty share"), false, nil
	}

	now := time.Now()
	isBlock := hashInt.Cmp(blockheader.TargetForDifficulty(job.Template.Difficulty)) <= 0

	if err := sv.store.RecordShare(chainstore.ShareRecord{
		Miner:      job.Recipient,
		Worker:     s.worker,
		Timestamp:  now,
		Difficulty: job.ShareDifficulty,
		JobID:      job.ID,
		IsBlock:    isBlock,
	}); err != nil {
		return nil, false, fmt.Errorf("stratum: record share: %w", err)
	}

	if !isBlock {
		return nil, false, nil
	}

	if err := sv.acceptBlock(job, hash, s.nonce); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// acceptBlock stores the found block, confirms its transactions, mints and
// distributes the PPLNS payout, and triggers a job-manager refresh so the
// next mining.notify reflects the new chain tip (spec.md §4.7, §5, §9).
func (sv *ShareValidator) acceptBlock(job *Job, hash [32]byte, nonceHex string) error {
	tpl := job.Template

	nonce, err := strconv.ParseUint(nonceHex, 16, 32)
	if err != nil {
		return fmt.Errorf("stratum: parse winning nonce: %w", err)
	}

	coinbaseTx := chainstore.Transaction{
		ID:        fmt.Sprintf("coinbase-%d", tpl.Height),
		Sender:    chainstore.CoinbaseSender,
		Recipient: job.Recipient,
		Amount:    tpl.RewardSat,
		Type:      chainstore.CoinbaseTxType,
		Timestamp: time.Now(),
		Confirmed: true,
	}

	txs := make([]chainstore.Transaction, 0, len(tpl.Transactions)+1)
	txs = append(txs, coinbaseTx)
	txs = append(txs, tpl.Transactions...)

	block := chainstore.Block{
		Height:       tpl.Height,
		Timestamp:    tpl.Timestamp,
		Transactions: txs,
		PreviousHash: tpl.PreviousHash,
		Nonce:        uint32(nonce),
		Difficulty:   tpl.Difficulty,
		Hash:         hash,
	}

	if err := sv.store.InsertBlock(block); err != nil {
		if err == chainstore.ErrAlreadyExists {
			// Another share already claimed this height; nothing left to
			// do (spec.md §9 — InsertBlock's idempotency is the single
			// serialization point for concurrent block hits).
			log.Debugf("stratum: block %d already claimed, skipping", tpl.Height)
			return nil
		}
		return fmt.Errorf("stratum: insert block: %w", err)
	}
	log.Infof("stratum: found block %d, reward %s to %s", tpl.Height, btcutil.Amount(tpl.RewardSat), job.Recipient)

	if err := sv.store.InsertCoinbaseTransaction(coinbaseTx); err != nil {
		return fmt.Errorf("stratum: insert coinbase: %w", err)
	}

	if len(tpl.PendingTxIDs) > 0 {
		if err := sv.store.ConfirmTransactions(tpl.PendingTxIDs, tpl.Height); err != nil {
			return fmt.Errorf("stratum: confirm transactions: %w", err)
		}
	}

	if err := sv.payPPLNS(tpl.RewardSat); err != nil {
		return fmt.Errorf("stratum: pplns payout: %w", err)
	}

	if err := sv.jobManager.RefreshTemplate(time.Now()); err != nil {
		return fmt.Errorf("stratum: refresh template after block: %w", err)
	}
	return nil
}

// payPPLNS distributes rewardSat across the last N recorded shares
// proportional to each worker's contributed difficulty (spec.md §4.7,
// §8 invariant: credited amounts sum to rewardSat within rounding, no
// worker is ever credited a negative amount).
func (sv *ShareValidator) payPPLNS(rewardSat int64) error {
	shares, err := sv.store.RecentShares(sv.params.pplnsWindow)
	if err != nil {
		return err
	}
	if len(shares) == 0 {
		return nil
	}

	var total float64
	byMiner := make(map[string]float64)
	for _, s := range shares {
		byMiner[s.Miner] += s.Difficulty
		total += s.Difficulty
	}
	if total <= 0 {
		return nil
	}

	var distributed int64
	miners := make([]string, 0, len(byMiner))
	for m := range byMiner {
		miners = append(miners, m)
	}
	for i, m := range miners {
		var share int64
		if i == len(miners)-1 {
			// Last recipient takes the remainder so the total credited
			// always equals rewardSat exactly, regardless of rounding.
			share = rewardSat - distributed
		} else {
			share = int64(float64(rewardSat) * byMiner[m] / total)
		}
		distributed += share
		if share <= 0 {
			continue
		}
		if err := sv.store.CreditBalance(m, share); err != nil {
			return err
		}
	}
	return nil
}
