// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shellreserve/stratumd/blocktemplate"
	"github.com/shellreserve/stratumd/chainstore"
)

// Server is C10: it owns the listening socket, the per-connection
// registry, and the periodic job-broadcast and share-purge loops. Its
// online-miner table is a value on the Server, not a process-global
// singleton, so multiple servers (e.g. in tests) never share state.
type Server struct {
	cfg        Config
	store      chainstore.Store
	jobManager *JobManager
	validator  *ShareValidator

	listener net.Listener

	idCounter uint64

	connMu sync.Mutex
	conns  map[uint64]*Conn

	wg sync.WaitGroup
}

// NewServer wires a Server from its config, storage backend and a block
// template builder. The job manager and share validator are constructed
// internally from those, mirroring how the teacher's pool package
// composes JobManager from its storage layer.
func NewServer(cfg Config, store chainstore.Store, builder *blocktemplate.Builder) *Server {
	jm := NewJobManager(cfg, builder)
	return &Server{
		cfg:        cfg,
		store:      store,
		jobManager: jm,
		validator:  NewShareValidator(store, jm, cfg.PPLNSWindow),
		conns:      make(map[uint64]*Conn),
	}
}

// Run binds the listening socket, builds the first block template, and
// runs the accept loop plus the periodic refresh/purge loops until ctx is
// canceled. It never returns a connection-level error — those are
// isolated to their own goroutine (spec.md §7).
func (s *Server) Run(ctx context.Context) error {
	if err := s.jobManager.RefreshTemplate(time.Now()); err != nil {
		return fmt.Errorf("stratum: initial template: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stratum: listen %s: %w", addr, err)
	}
	s.listener = ln
	log.Infof("stratum: listening on %s", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.refreshLoop(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.purgeLoop(ctx)
	}()

	<-ctx.Done()
	ln.Close()
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			// Listener closed on shutdown; exit quietly.
			return
		}

		id := atomic.AddUint64(&s.idCounter, 1)
		extranonce1 := fmt.Sprintf("%08x", uint32(id))

		c := newConn(id, nc, extranonce1, s)

		s.connMu.Lock()
		s.conns[id] = c
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.run()
		}()
	}
}

func (s *Server) removeConn(c *Conn) {
	s.connMu.Lock()
	delete(s.conns, c.id)
	s.connMu.Unlock()
}

// addOnlineMiner registers a newly authorized connection. The registry is
// the conns map itself; this hook exists for observability parity with
// the teacher's connection-accounting logging.
func (s *Server) addOnlineMiner(c *Conn) {
	log.Infof("stratum: %s authorized as %s", c.peer, c.worker)
}

// refreshLoop rebuilds the block template and pushes a fresh (non-clean)
// job to every subscribed connection every JobRefreshInterval, so pending
// transactions and a decaying difficulty eventually reach miners even
// absent a new block (spec.md §4.10).
func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.JobRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.jobManager.RefreshTemplate(time.Now()); err != nil {
				log.Warnf("stratum: periodic refresh: %v", err)
				continue
			}
			s.broadcastJobs(false)
		}
	}
}

// purgeLoop deletes share records older than ShareRetention every
// SharePurgeInterval, bounding the storage backend's share history.
func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SharePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.PurgeSharesOlderThan(s.cfg.ShareRetention); err != nil {
				log.Warnf("stratum: share purge: %v", err)
			}
		}
	}
}

// broadcastNewJob refreshes the template and pushes a clean job to every
// subscribed connection, used when a share just produced a new block.
func (s *Server) broadcastNewJob() {
	if err := s.jobManager.RefreshTemplate(time.Now()); err != nil {
		log.Warnf("stratum: post-block refresh: %v", err)
		return
	}
	s.broadcastJobs(true)
}

// broadcastJobs sends every subscribed connection a personalized job for
// the current template. The writes run on the calling goroutine and are
// serialized per connection by Conn.send's writeMu; a push error on one
// connection is logged and the loop moves on to the next (spec.md §7, §9).
func (s *Server) broadcastJobs(cleanJobs bool) {
	s.connMu.Lock()
	targets := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.connMu.Unlock()

	for _, c := range targets {
		c.jobsMu.Lock()
		subscribed := c.state == stateSubscribed || c.state == stateAuthorized
		c.jobsMu.Unlock()
		if !subscribed {
			continue
		}
		if err := c.pushNewJob(cleanJobs); err != nil {
			log.Warnf("stratum: %s: push job: %v", c.peer, err)
		}
	}
}
