package peer

import (
	"fmt"

	"github.com/lightningnetwork/lnchannel/lnwire"
)

// Dispatch routes a decoded inbound message to whichever Accept handler is
// valid for the channel's current state, tearing the channel down with a
// protocol error for anything unexpected -- mirroring packets.c's per-state
// dispatch and its pkt_err_unexpected fallback.
func (p *Peer) Dispatch(msg lnwire.Message) error {
	switch m := msg.(type) {
	case *lnwire.Open:
		return p.AcceptOpen(m)
	case *lnwire.OpenAnchor:
		return p.AcceptAnchor(m)
	case *lnwire.OpenCommitSig:
		return p.AcceptOpenCommitSig(m)
	case *lnwire.OpenComplete:
		return p.AcceptOpenComplete(m)
	case *lnwire.UpdateAddHtlc:
		return p.AcceptHTLCAdd(m)
	case *lnwire.UpdateFulfillHtlc:
		return p.AcceptHTLCFulfill(m)
	case *lnwire.UpdateFailHtlc:
		return p.AcceptHTLCFail(m)
	case *lnwire.UpdateCommit:
		return p.AcceptCommit(m)
	case *lnwire.UpdateRevocation:
		return p.AcceptRevocation(m)
	case *lnwire.CloseClearing:
		return p.AcceptCloseClearing(m)
	case *lnwire.CloseSignature:
		return p.AcceptCloseSignature(m)
	case *lnwire.Error:
		p.state = StateErrored
		return fmt.Errorf("peer reported error: %s", m.Problem)
	default:
		return p.fail(protoErrorf("received message of unhandled type %T", msg))
	}
}
