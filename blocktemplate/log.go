// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blocktemplate

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger, silent until a calling
// application wires it via UseLogger.
var log = btclog.Disabled

// UseLogger redirects this package's logging output to logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
