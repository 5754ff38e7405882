// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"encoding/json"
	"fmt"
	"time"
)

// handleMethod dispatches one parsed JSON-RPC request against the
// connection's current state (spec.md §4.9). Every request that carries
// an id gets exactly one response; notifications pushed by the server
// (mining.notify, mining.set_difficulty) never originate here.
func (c *Conn) handleMethod(msg *Message) error {
	switch msg.Method {
	case "mining.configure":
		return c.handleConfigure(msg)
	case "mining.subscribe":
		return c.handleSubscribe(msg)
	case "mining.authorize":
		return c.handleAuthorize(msg)
	case "mining.submit":
		return c.handleSubmit(msg)
	case "mining.suggest_difficulty":
		return c.handleSuggestDifficulty(msg)
	case "mining.extranonce.subscribe":
		return c.sendResult(msg.ID, true)
	default:
		if msg.ID != nil {
			return c.sendResult(msg.ID, true)
		}
		return nil
	}
}

// versionRollingMask is the mask advertised back to miners that request
// the version-rolling extension in mining.configure.
const versionRollingMask = "1fffe000"

// handleConfigure negotiates extensions without changing connection
// state (spec.md §4.9). When the miner's extension list requests
// version-rolling, the server accepts it and advertises the mask; the
// server itself never rewrites the submitted version field, it only
// tolerates a miner rolling bits within the mask.
func (c *Conn) handleConfigure(msg *Message) error {
	var params []json.RawMessage
	_ = json.Unmarshal(msg.Params, &params)

	var extensions []string
	if len(params) > 0 {
		_ = json.Unmarshal(params[0], &extensions)
	}

	requested := false
	for _, ext := range extensions {
		if ext == "version-rolling" {
			requested = true
			break
		}
	}

	if !requested {
		return c.sendResult(msg.ID, map[string]interface{}{
			"version-rolling": false,
		})
	}

	c.jobsMu.Lock()
	c.versionRolling = true
	c.jobsMu.Unlock()

	return c.sendResult(msg.ID, map[string]interface{}{
		"version-rolling":      true,
		"version-rolling.mask": versionRollingMask,
	})
}

// handleSubscribe replies with this connection's extranonce1 (assigned
// when the server accepted the socket) in the subscription/extranonce
// shape spec.md §4.9 requires, then pushes the connection's initial
// difficulty and job.
func (c *Conn) handleSubscribe(msg *Message) error {
	subID := c.subscriptionID()
	result := []interface{}{
		[][2]string{
			{"mining.set_difficulty", subID},
			{"mining.notify", subID},
		},
		c.extranonce1,
		extranonce2Size,
	}
	if err := c.sendResult(msg.ID, result); err != nil {
		return err
	}

	c.jobsMu.Lock()
	c.state = stateSubscribed
	c.jobsMu.Unlock()

	if err := c.sendSetDifficulty(c.vd.Difficulty()); err != nil {
		return err
	}
	return c.pushNewJob(true)
}

// handleAuthorize records the worker name, rejects blocked wallets, and
// otherwise marks the connection authorized and registers it with the
// server's online-miner table.
func (c *Conn) handleAuthorize(msg *Message) error {
	var params []string
	if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) == 0 {
		return c.sendResult(msg.ID, false)
	}
	worker := params[0]

	blocked, err := c.server.store.IsWalletBlocked(worker)
	if err != nil {
		if sendErr := c.sendResult(msg.ID, false); sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("check wallet blocklist: %w", err)
	}
	if blocked {
		return c.sendError(msg.ID, rpcError(ErrCodeUnauthorizedWorker, "Wallet blocked"))
	}

	c.jobsMu.Lock()
	c.worker = worker
	c.state = stateAuthorized
	c.jobsMu.Unlock()

	c.server.addOnlineMiner(c)

	if err := c.sendResult(msg.ID, true); err != nil {
		return err
	}
	return c.pushNewJob(true)
}

// handleSubmit decodes a mining.submit request and forwards it to the
// server's share validator, always answering with either true or a coded
// rejection (spec.md §4.9).
func (c *Conn) handleSubmit(msg *Message) error {
	var params []string
	if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) < 5 {
		return c.sendError(msg.ID, rpcError(ErrCodeJobNotFound, "Malformed submit"))
	}

	c.jobsMu.Lock()
	authorized := c.state == stateAuthorized
	c.jobsMu.Unlock()
	if !authorized {
		return c.sendError(msg.ID, rpcError(ErrCodeUnauthorizedWorker, "Unauthorized worker"))
	}

	s := submission{
		worker:      params[0],
		jobID:       params[1],
		extranonce2: params[2],
		ntime:       params[3],
		nonce:       params[4],
	}

	rpcErr, isBlock, err := c.server.validator.Validate(c, s)
	if err != nil {
		// Chain-store failures are answered as accepted so the miner is not
		// disconnected; the error is still returned for logging.
		if sendErr := c.sendResult(msg.ID, true); sendErr != nil {
			return sendErr
		}
		return err
	}
	if rpcErr != nil {
		return c.sendError(msg.ID, rpcErr)
	}

	if err := c.sendResult(msg.ID, true); err != nil {
		return err
	}

	newDiff, changed := c.vd.RecordAccepted(time.Now())
	if changed {
		if err := c.sendSetDifficulty(newDiff); err != nil {
			return err
		}
	}

	if isBlock {
		c.server.broadcastNewJob()
	}
	return nil
}

// handleSuggestDifficulty applies a miner-requested difficulty and
// immediately pushes mining.set_difficulty with the clamped value.
func (c *Conn) handleSuggestDifficulty(msg *Message) error {
	var params []float64
	if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) == 0 {
		return c.sendResult(msg.ID, false)
	}

	d := c.vd.SuggestDifficulty(params[0])
	if err := c.sendResult(msg.ID, true); err != nil {
		return err
	}
	return c.sendSetDifficulty(d)
}

// pushNewJob asks the job manager for a fresh job paying this
// connection's worker and sends it, registering it under the
// connection's own job map.
func (c *Conn) pushNewJob(cleanJobs bool) error {
	c.jobsMu.Lock()
	worker := c.worker
	diff := c.vd.Difficulty()
	c.jobsMu.Unlock()

	if worker == "" {
		// Not authorized yet: mine anonymously against the pool tag so
		// the miner has work to warm up on before authorize() lands.
		worker = c.peer
	}

	job, err := c.server.jobManager.NewJobFor(worker, diff, cleanJobs)
	if err != nil {
		return fmt.Errorf("new job: %w", err)
	}
	c.storeJob(job)
	return c.sendJob(job)
}
