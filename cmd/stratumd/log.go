// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/shellreserve/stratumd/blocktemplate"
	"github.com/shellreserve/stratumd/chainstore"
	"github.com/shellreserve/stratumd/difficulty"
	"github.com/shellreserve/stratumd/stratum"
)

// logRotator rotates the log file stratumd writes to, initialized in
// initLogRotator and kept alive for the process lifetime.
var logRotator *rotator.Rotator

// subsystemLoggers maps each package's logging tag to its btclog.Logger,
// following the teacher's per-subsystem log wiring (mining/randomx's
// UseLogger pattern generalized across every package this daemon drives).
var subsystemLoggers = map[string]btclog.Logger{}

var (
	srvrLog = backendLog.Logger("SRVR")
	strmLog = backendLog.Logger("STRM")
	chstLog = backendLog.Logger("CHST")
	dffcLog = backendLog.Logger("DFFC")
)

var backendLog = btclog.NewBackend(logWriter{})

func init() {
	subsystemLoggers["SRVR"] = srvrLog
	subsystemLoggers["STRM"] = strmLog
	subsystemLoggers["CHST"] = chstLog
	subsystemLoggers["DFFC"] = dffcLog

	stratum.UseLogger(strmLog)
	chainstore.UseLogger(chstLog)
	difficulty.UseLogger(dffcLog)
	blocktemplate.UseLogger(strmLog)
}

// logWriter implements io.Writer to both standard output and the log
// rotator, matching the teacher's dual-sink logging setup.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// initLogRotator opens (creating if necessary) the log rotator writing to
// logFile, 10 MiB per file with up to 3 rolled-over files kept.
func initLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return err
	}

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// setLogLevels sets every subsystem logger to level, a btclog level
// string such as "info", "debug", or "trace".
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return errInvalidLogLevel(levelStr)
	}
	for _, l := range subsystemLoggers {
		l.SetLevel(level)
	}
	return nil
}

type errInvalidLogLevel string

func (e errInvalidLogLevel) Error() string {
	return "invalid log level: " + string(e)
}
