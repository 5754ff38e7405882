// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key space, one byte prefix per record kind so a single leveldb.DB can
// hold blocks, the mempool view, shares and balances without collision.
const (
	prefixBlock   = 'b'
	prefixTx      = 't'
	prefixShare   = 's'
	prefixBlocked = 'w'
	prefixBalance = 'c'
	metaTopHeight = "meta:top-height"
)

// LevelStore is a Store backed by an embedded goleveldb database — the
// "local embedded store" option §6 leaves open, used when a deployment
// doesn't want a separate document database for mining state.
type LevelStore struct {
	db *leveldb.DB

	// mtx guards the small amount of state leveldb doesn't answer
	// cheaply on its own: tx insertion order and the current tip height.
	mtx       sync.RWMutex
	order     []string
	topHeight int64
	haveBlock bool
}

// OpenLevelStore opens (creating if necessary) a goleveldb database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	s := &LevelStore{db: db}
	if err := s.loadMeta(); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("chainstore: opened %s at height %d", path, s.topHeight)
	return s, nil
}

// Close releases the underlying database handle.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

func blockKey(height int64) []byte {
	key := make([]byte, 9)
	key[0] = prefixBlock
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

func txKey(id string) []byte {
	return append([]byte{prefixTx}, []byte(id)...)
}

func shareKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixShare
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func blockedKey(address string) []byte {
	return append([]byte{prefixBlocked}, []byte(address)...)
}

func balanceKey(worker string) []byte {
	return append([]byte{prefixBalance}, []byte(worker)...)
}

func (s *LevelStore) loadMeta() error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixBlock}), nil)
	defer iter.Release()

	for iter.Next() {
		height := int64(binary.BigEndian.Uint64(iter.Key()[1:]))
		if !s.haveBlock || height > s.topHeight {
			s.topHeight = height
			s.haveBlock = true
		}
	}

	iter2 := s.db.NewIterator(util.BytesPrefix([]byte{prefixTx}), nil)
	defer iter2.Release()
	for iter2.Next() {
		var tx Transaction
		if err := json.Unmarshal(iter2.Value(), &tx); err == nil {
			s.order = append(s.order, tx.ID)
		}
	}

	return iter.Error()
}

func (s *LevelStore) LatestBlock() (*Block, error) {
	s.mtx.RLock()
	have, height := s.haveBlock, s.topHeight
	s.mtx.RUnlock()
	if !have {
		return nil, nil
	}

	raw, err := s.db.Get(blockKey(height), nil)
	if err != nil {
		return nil, err
	}
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *LevelStore) BlockCount() (int64, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixBlock}), nil)
	defer iter.Release()

	var count int64
	for iter.Next() {
		count++
	}
	return count, iter.Error()
}

func (s *LevelStore) LastNBlocks(n int64) ([]Block, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixBlock}), nil)
	defer iter.Release()

	var all []Block
	for iter.Next() {
		var b Block
		val := append([]byte(nil), iter.Value()...)
		if err := json.Unmarshal(val, &b); err != nil {
			return nil, err
		}
		all = append(all, b)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	// Keys are big-endian height encoded, so iteration order is ascending;
	// reverse and cap at n for height-descending output.
	out := make([]Block, 0, n)
	for i := len(all) - 1; i >= 0 && int64(len(out)) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *LevelStore) PendingTransactions(limit int) ([]Transaction, error) {
	s.mtx.RLock()
	order := append([]string(nil), s.order...)
	s.mtx.RUnlock()

	out := make([]Transaction, 0, limit)
	for _, id := range order {
		raw, err := s.db.Get(txKey(id), nil)
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, err
		}
		if tx.Confirmed {
			continue
		}
		out = append(out, tx)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// InsertBlock is the single serialization point two concurrent valid
// blocks at the same height race through (spec.md §5): s.mtx is held
// across the existence check and the write so exactly one caller ever
// observes ErrNotFound and gets to Put.
func (s *LevelStore) InsertBlock(b Block) error {
	key := blockKey(b.Height)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, err := s.db.Get(key, nil)
	if err == nil {
		return ErrAlreadyExists
	}
	if err != leveldb.ErrNotFound {
		return err
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.db.Put(key, raw, nil); err != nil {
		return err
	}

	if !s.haveBlock || b.Height > s.topHeight {
		s.topHeight = b.Height
		s.haveBlock = true
	}
	log.Debugf("chainstore: inserted block %d (%s)", b.Height, b.Hash)
	return nil
}

func (s *LevelStore) ConfirmTransactions(txIDs []string, blockHeight int64) error {
	for _, id := range txIDs {
		raw, err := s.db.Get(txKey(id), nil)
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return err
		}
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return err
		}
		tx.Confirmed = true
		h := blockHeight
		tx.BlockIdx = &h

		updated, err := json.Marshal(tx)
		if err != nil {
			return err
		}
		if err := s.db.Put(txKey(id), updated, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *LevelStore) InsertCoinbaseTransaction(tx Transaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	if err := s.db.Put(txKey(tx.ID), raw, nil); err != nil {
		return err
	}

	s.mtx.Lock()
	s.order = append(s.order, tx.ID)
	s.mtx.Unlock()
	return nil
}

func (s *LevelStore) RecordShare(sh ShareRecord) error {
	raw, err := json.Marshal(sh)
	if err != nil {
		return err
	}
	return s.db.Put(shareKey(uint64(sh.Timestamp.UnixNano())), raw, nil)
}

func (s *LevelStore) PurgeSharesOlderThan(window time.Duration) error {
	cutoff := time.Now().Add(-window)

	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixShare}), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		var sh ShareRecord
		if err := json.Unmarshal(iter.Value(), &sh); err != nil {
			continue
		}
		if sh.Timestamp.Before(cutoff) {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) RecentShares(n int) ([]ShareRecord, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{prefixShare}), nil)
	defer iter.Release()

	var all []ShareRecord
	for iter.Next() {
		var sh ShareRecord
		if err := json.Unmarshal(iter.Value(), &sh); err != nil {
			return nil, err
		}
		all = append(all, sh)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	if n > len(all) {
		n = len(all)
	}
	out := make([]ShareRecord, n)
	for i := 0; i < n; i++ {
		out[i] = all[len(all)-1-i]
	}
	return out, nil
}

func (s *LevelStore) IsWalletBlocked(address string) (bool, error) {
	_, err := s.db.Get(blockedKey(address), nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *LevelStore) CreditBalance(worker string, amountSat int64) error {
	raw, err := s.db.Get(balanceKey(worker), nil)
	var current int64
	if err == nil {
		current = int64(binary.BigEndian.Uint64(raw))
	} else if err != leveldb.ErrNotFound {
		return err
	}

	next := current + amountSat
	if next < 0 {
		next = 0
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	return s.db.Put(balanceKey(worker), buf, nil)
}

var _ Store = (*LevelStore)(nil)
