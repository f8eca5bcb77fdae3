package peer

import (
	"fmt"

	"github.com/go-errors/errors"
)

// ProtocolError is the recoverable failure tier: a malformed field, a
// signature that doesn't verify, an HTLC policy violation. The channel
// that produced one always tears down cleanly -- an Error wire message
// carrying Problem is sent, then the connection is dropped. The stack
// trace go-errors captures is for our own logs, never sent to the peer.
type ProtocolError struct {
	inner   *errors.Error
	problem string
}

// protoErrorf builds a ProtocolError with a formatted, peer-visible
// problem description.
func protoErrorf(format string, args ...interface{}) *ProtocolError {
	problem := fmt.Sprintf(format, args...)
	return &ProtocolError{
		inner:   errors.Errorf(format, args...),
		problem: problem,
	}
}

func (e *ProtocolError) Error() string {
	return e.inner.Error()
}

// Problem is the human-readable string carried in the outbound Error
// message's Problem field.
func (e *ProtocolError) Problem() string {
	return e.problem
}

// FatalError indicates a staging replay inconsistency, a shachain insert
// failure, or an attempt to sign a CommitInfo that already carries a
// signature -- states that mean this node's own bookkeeping has diverged
// from the protocol's invariants, or the code itself is wrong. There is no
// clean recovery; the caller is expected to let this panic propagate and
// crash the peer's task rather than risk a further signature over
// corrupted state.
type FatalError struct {
	reason string
}

func (e *FatalError) Error() string {
	return e.reason
}

// fatalf panics with a FatalError built from the given message. It is used
// wherever this package detects that its own bookkeeping has broken an
// invariant: staging replay, shachain insert, commit/revocation chain state,
// and failures to encode or sign its own messages.
func fatalf(format string, args ...interface{}) {
	panic(&FatalError{reason: fmt.Sprintf(format, args...)})
}

// errUnexpected builds the ProtocolError produced when a message arrives in
// a state it isn't valid in, mirroring packets.c's pkt_err_unexpected.
func errUnexpected(msgName string, s State) *ProtocolError {
	return protoErrorf("unexpected %s message in state %s", msgName, s)
}
