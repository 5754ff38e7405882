// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command stratumd runs a standalone Stratum v1 mining server: it builds
// block templates from a chain store, hands out personalized per-miner
// jobs, validates submitted shares, and pays PPLNS rewards on every block
// found.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/shellreserve/stratumd/blocktemplate"
	"github.com/shellreserve/stratumd/chaincfg"
	"github.com/shellreserve/stratumd/chainstore"
	"github.com/shellreserve/stratumd/stratum"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return fmt.Errorf("init log rotator: %w", err)
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	defer closeStore()

	scfg := stratum.DefaultConfig()
	scfg.Host = cfg.Host
	scfg.Port = cfg.Port
	scfg.PoolTag = cfg.PoolTag

	builder := blocktemplate.NewBuilder(store, chaincfg.MainNetParams)
	srv := stratum.NewServer(scfg, store, builder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		srvrLog.Info("stratumd: shutdown signal received")
		cancel()
	}()

	srvrLog.Infof("stratumd: starting on %s:%s", cfg.Host, cfg.Port)
	return srv.Run(ctx)
}

// openStore opens a LevelStore at cfg.DataDir, or an in-memory store if
// no data directory is configured — matching spec.md §6's "local embedded
// store OR in-memory for tests" option.
func openStore(cfg *config) (chainstore.Store, func(), error) {
	if cfg.DataDir == "" {
		return chainstore.NewMemoryStore(), func() {}, nil
	}

	ls, err := chainstore.OpenLevelStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return ls, func() { ls.Close() }, nil
}
