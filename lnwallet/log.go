package lnwallet

import "github.com/btcsuite/btclog"

// log is the package-level logger for commitment-transaction construction
// and signing. A caller wires in a real backend with UseLogger.
var log btclog.Logger

func init() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by the lnwallet package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
