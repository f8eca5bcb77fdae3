package peer

// State is this peer's position in the channel-open-through-close state
// machine. Only a handful of message types are valid in each state; an
// incoming message not valid in the current state produces the protocol
// error built by errUnexpected rather than being silently ignored,
// mirroring packets.c's pkt_err_unexpected.
type State uint8

const (
	// StateOpenWaitOpen is the state before either side's Open has been
	// processed: we've sent ours (if we're the one who dials out) and
	// are waiting for theirs.
	StateOpenWaitOpen State = iota

	// StateOpenWaitAnchor is entered once both sides have exchanged
	// Open. The side that offered WITHOUT_ANCHOR waits here for
	// OpenAnchor; the side that offered WITH_ANCHOR has already sent it
	// and moves straight to StateOpenWaitCommitSig.
	StateOpenWaitAnchor

	// StateOpenWaitCommitSig is entered once the anchor identity is
	// known to both sides and setup_first_commit has run. The
	// anchor-funding side waits here for OpenCommitSig; the other side
	// sends its OpenCommitSig from here.
	StateOpenWaitCommitSig

	// StateOpenWaitComplete is entered by the anchor-funding side once a
	// valid OpenCommitSig has been received and its OpenComplete has been
	// sent, and by the other side once it has sent OpenCommitSig; either
	// side waits here for the peer's OpenComplete.
	StateOpenWaitComplete

	// StateNormal is the channel's steady-state operating mode: HTLCs
	// may be staged, committed, and revoked in either direction.
	StateNormal

	// StateClosingClearingSent is entered once this side has sent
	// CloseClearing, either on request or because MaybeSendClearing
	// observed every HTLC had resolved. It waits here for the peer's
	// CloseClearing.
	StateClosingClearingSent

	// StateClosingSigExchange is entered once both sides have
	// exchanged CloseClearing; CloseSignature messages are negotiated
	// back and forth here until both fees agree.
	StateClosingSigExchange

	// StateClosed is terminal: the mutual close transaction's
	// signatures agree and nothing further is expected from this peer.
	StateClosed

	// StateErrored is terminal: a protocol error tore the channel down.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpenWaitOpen:
		return "open_wait_open"
	case StateOpenWaitAnchor:
		return "open_wait_anchor"
	case StateOpenWaitCommitSig:
		return "open_wait_commit_sig"
	case StateOpenWaitComplete:
		return "open_wait_complete"
	case StateNormal:
		return "normal"
	case StateClosingClearingSent:
		return "closing_clearing_sent"
	case StateClosingSigExchange:
		return "closing_sig_exchange"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
