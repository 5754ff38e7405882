// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratum

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger. It defaults to disabled so the
// package is silent when used as a library; stratumd's main package wires
// it to a real backend via UseLogger.
var log = btclog.Disabled

// UseLogger lets a calling application redirect this package's logging
// output to logger. It must be called before Server.Run for the log
// output to be seen, following the teacher's per-subsystem UseLogger
// convention.
func UseLogger(logger btclog.Logger) {
	log = logger
}
