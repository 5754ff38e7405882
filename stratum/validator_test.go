// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/stratumd/blocktemplate"
	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
)

func newTestConn(t *testing.T, server *Server) *Conn {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close(); srv.Close() })
	return newConn(1, srv, "00000001", server)
}

func newTestServer(t *testing.T) (*Server, chainstore.Store) {
	t.Helper()
	store := chainstore.NewMemoryStore()
	builder := blocktemplate.NewBuilder(store, chaincfg.MainNetParams)
	srv := NewServer(DefaultConfig(), store, builder)
	require.NoError(t, srv.jobManager.RefreshTemplate(time.Now()))
	return srv, store
}

func TestValidateJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestConn(t, srv)
	c.worker = "miner1"

	rpcErr, isBlock, err := srv.validator.Validate(c, submission{
		worker: "miner1",
		jobID:  "does-not-exist",
	})
	require.NoError(t, err)
	require.False(t, isBlock)
	require.NotNil(t, rpcErr)
	require.Equal(t, ErrCodeJobNotFound, rpcErr.Code)
}

func TestValidateRejectsDuplicateSubmission(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestConn(t, srv)
	c.worker = "miner1"

	job, err := srv.jobManager.NewJobFor("miner1", 1, true)
	require.NoError(t, err)
	c.storeJob(job)

	s := submission{
		worker:      "miner1",
		jobID:       job.ID,
		extranonce2: "00000000",
		ntime:       job.NTime,
		nonce:       "00000000",
	}

	_, _, err = srv.validator.Validate(c, s)
	require.NoError(t, err)

	rpcErr, isBlock, err := srv.validator.Validate(c, s)
	require.NoError(t, err)
	require.False(t, isBlock)
	require.NotNil(t, rpcErr)
	require.Equal(t, ErrCodeDuplicateShare, rpcErr.Code)
}

func TestPayPPLNSDistributesProportionally(t *testing.T) {
	store := chainstore.NewMemoryStore()
	builder := blocktemplate.NewBuilder(store, chaincfg.MainNetParams)
	jm := NewJobManager(DefaultConfig(), builder)
	sv := NewShareValidator(store, jm, 1000)

	require.NoError(t, store.RecordShare(chainstore.ShareRecord{Miner: "a", Difficulty: 1}))
	require.NoError(t, store.RecordShare(chainstore.ShareRecord{Miner: "a", Difficulty: 1}))
	require.NoError(t, store.RecordShare(chainstore.ShareRecord{Miner: "b", Difficulty: 2}))

	require.NoError(t, sv.payPPLNS(4000))

	balA := store.Balance("a")
	balB := store.Balance("b")
	require.Equal(t, int64(4000), balA+balB)
	require.InDelta(t, 2000, balA, 1)
	require.InDelta(t, 2000, balB, 1)
}
