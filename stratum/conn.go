// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
)

// connState is the C9 state machine's position. Connected -> Subscribed ->
// Authorized; Submitting is not tracked as a distinct value since submits
// are handled one at a time per connection (messages on a single
// connection are processed in receive order, spec.md §5) — Authorized
// already implies a miner may submit.
type connState int

const (
	stateConnected connState = iota
	stateSubscribed
	stateAuthorized
	stateClosed
)

// Conn is one miner's Stratum connection: subscribe -> authorize ->
// notify/submit lifecycle, owning its own job map and duplicate-share
// bookkeeping exclusively (spec.md §3 "Ownership").
type Conn struct {
	id   uint64
	conn net.Conn
	peer string

	reader *bufio.Reader
	writer *bufio.Writer
	// writeMu serializes writes: notifications from the broadcast loop
	// and responses from the read loop both write to the same socket.
	writeMu sync.Mutex

	state          connState
	extranonce1    string
	versionRolling bool

	worker string

	vd *vardiff

	shareCount uint64
	blockCount uint64

	jobsMu sync.Mutex
	jobs   map[string]*Job

	server *Server
}

func newConn(id uint64, nc net.Conn, extranonce1 string, server *Server) *Conn {
	return &Conn{
		id:          id,
		conn:        nc,
		peer:        nc.RemoteAddr().String(),
		reader:      bufio.NewReader(nc),
		writer:      bufio.NewWriter(nc),
		state:       stateConnected,
		extranonce1: extranonce1,
		vd:          newVardiff(server.cfg, server.cfg.InitialShareDifficulty),
		jobs:        make(map[string]*Job),
		server:      server,
	}
}

// storeJob registers a job under this connection's authoritative map.
func (c *Conn) storeJob(j *Job) {
	c.jobsMu.Lock()
	c.jobs[j.ID] = j
	c.jobsMu.Unlock()
}

// lookupJob resolves a job id against this connection's own map first,
// falling back to the process-wide cache — which, per spec.md §4.6, is
// consulted read-only and handed back as a recipient-overridden copy
// rather than mutated in place, since the same *Job may still be the
// authoritative entry in another connection's own job map.
func (c *Conn) lookupJob(id string) (*Job, bool) {
	c.jobsMu.Lock()
	j, ok := c.jobs[id]
	c.jobsMu.Unlock()
	if ok {
		return j, true
	}

	j, ok = c.server.jobManager.Lookup(id)
	if !ok {
		return nil, false
	}
	return j.withRecipient(c.worker), true
}

// run reads newline-delimited JSON-RPC messages until EOF, I/O error, or
// protocol abort, dispatching each to handleMethod. It never propagates
// errors to the server (spec.md §7): on exit it just closes and
// deregisters itself.
func (c *Conn) run() {
	defer c.close()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("stratum: %s: panic in connection handler: %v", c.peer, r)
		}
	}()

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			// Malformed lines are dropped silently (spec.md §7).
			continue
		}

		if err := c.handleMethod(&msg); err != nil {
			log.Warnf("stratum: %s: %s: %v", c.peer, msg.Method, err)
		}
	}
}

func (c *Conn) close() {
	c.jobsMu.Lock()
	c.state = stateClosed
	c.jobs = nil
	c.jobsMu.Unlock()

	c.conn.Close()
	c.server.removeConn(c)
}

// send writes a single JSON-RPC message as a newline-terminated line.
func (c *Conn) send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.writer.Write(data); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Conn) sendResult(id interface{}, result interface{}) error {
	return c.send(&Message{ID: id, Result: result})
}

func (c *Conn) sendError(id interface{}, rpcErr *RPCError) error {
	return c.send(&Message{ID: id, Result: false, Error: rpcErr})
}

func (c *Conn) sendNotification(method string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.send(&Message{ID: nil, Method: method, Params: raw})
}

// sendSetDifficulty pushes mining.set_difficulty.
func (c *Conn) sendSetDifficulty(d float64) error {
	return c.sendNotification("mining.set_difficulty", []float64{d})
}

// sendJob pushes mining.notify for j.
func (c *Conn) sendJob(j *Job) error {
	branch := make([]string, len(j.MerkleBranch))
	for i, h := range j.MerkleBranch {
		branch[i] = h.String()
	}

	params := []interface{}{
		j.ID,
		j.PrevHashSwapped,
		j.Coinb1,
		j.Coinb2,
		branch,
		jobVersion,
		j.NBits,
		j.NTime,
		j.CleanJobs,
	}
	return c.sendNotification("mining.notify", params)
}

// subscriptionID returns the 8-char lower-case hex string subscribe()
// replies carry as the per-connection subscription identifier used in
// the [["mining.set_difficulty", id], ...] pair. It reuses extranonce1
// since both are already unique-per-connection 4-byte hex values.
func (c *Conn) subscriptionID() string {
	return c.extranonce1
}
