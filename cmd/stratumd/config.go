// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname = "data"
	defaultLogFilename = "stratumd.log"
	defaultLogLevel    = "info"
)

// config mirrors the teacher's btcd-style daemon config: a flat struct
// decoded from the command line and environment variables (STRATUM_HOST,
// STRATUM_PORT and STRATUMD_-prefixed ones) by go-flags.
type config struct {
	HomeDir string `short:"A" long:"appdata" description:"Application data directory" env:"STRATUMD_APPDATA"`

	Host string `long:"host" description:"Interface to listen on" env:"STRATUM_HOST"`
	Port string `long:"port" description:"Port to listen on" env:"STRATUM_PORT"`

	DataDir string `long:"datadir" description:"Directory holding the chain store (leveldb); empty uses an in-memory store" env:"STRATUMD_DATADIR"`
	LogDir  string `long:"logdir" description:"Directory to log to"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" env:"STRATUMD_DEBUGLEVEL"`

	PoolTag string `long:"pooltag" description:"Coinbase pool tag embedded in mined blocks"`
}

// defaultConfig returns a config with the daemon's defaults, before
// command-line/environment overrides are applied.
func defaultConfig() config {
	homeDir := appDataDir()
	return config{
		HomeDir:    homeDir,
		Host:       "0.0.0.0",
		Port:       "3333",
		DataDir:    filepath.Join(homeDir, defaultDataDirname),
		LogDir:     homeDir,
		DebugLevel: defaultLogLevel,
		PoolTag:    "/shell/",
	}
}

// loadConfig parses the command line over defaultConfig's defaults,
// following the teacher's config-loading shape (defaults, then
// flags.Parse, then directory creation).
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	return &cfg, nil
}

// appDataDir returns the default per-OS application data directory via
// btcutil's standard helper, the same one btcd and its sibling daemons use.
func appDataDir() string {
	return btcutil.AppDataDir("stratumd", false)
}
