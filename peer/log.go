package peer

import "github.com/btcsuite/btclog"

// log is the package-level logger for the peer packet engine. It starts
// out disabled; a caller wires in a real backend with UseLogger, exactly as
// lnd's subpackages do.
var log btclog.Logger

func init() {
	log = btclog.Disabled
}

// UseLogger sets the package-wide logger used by the peer package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// logClosure defers formatting of a log message's arguments until it's
// actually printed by a backend at or below the active log level -- calling
// spew.Sdump on every queued or decoded message regardless of whether
// anything is listening at Trace level would be wasteful.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

// newLogClosure wraps fn so it is only invoked if the log record built
// around it is actually emitted.
func newLogClosure(fn func() string) logClosure {
	return logClosure(fn)
}
