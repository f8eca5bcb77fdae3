package peer

import (
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// settled reports whether every commit chain and staging state is free of
// HTLCs -- the precondition packets.c's peer->cleared tracks before mutual
// close may begin.
func (p *Peer) settled() bool {
	empty := func(cs *lnwallet.ChannelState) bool {
		return cs == nil || len(cs.Htlcs) == 0
	}
	return empty(p.State.Ours.State) && empty(p.State.Theirs.State) &&
		empty(p.State.StagingOurs) && empty(p.State.StagingTheirs)
}

// MaybeSendClearing sends CloseClearing with ourScript once the channel has
// settled into a state with no HTLCs outstanding on either chain. It is a
// no-op outside StateNormal or while HTLCs remain in flight, mirroring
// packets.c's logic for when peer->cleared may be announced.
func (p *Peer) MaybeSendClearing(ourScript []byte) {
	if p.state != StateNormal || !p.settled() {
		return
	}
	p.SendCloseClearing(ourScript)
}

// SendCloseClearing begins mutual close negotiation by announcing the
// script this side wants paid in the final settlement transaction.
func (p *Peer) SendCloseClearing(ourScript []byte) {
	p.closing.OurScript = ourScript
	p.enqueue(&lnwire.CloseClearing{ScriptPubkey: ourScript})
	p.state = StateClosingClearingSent
}

// AcceptCloseClearing processes the peer's CloseClearing. If we have not
// already sent our own, one is synthesized from OurFinalKey and sent in
// response; once both sides' scripts are known, whichever side funded the
// anchor proposes the first closing fee.
func (p *Peer) AcceptCloseClearing(msg *lnwire.CloseClearing) error {
	if p.state != StateNormal && p.state != StateClosingClearingSent {
		return p.fail(errUnexpected("close_clearing", p.state))
	}
	if !p.settled() {
		return p.fail(protoErrorf("peer requested close with htlcs still outstanding"))
	}

	p.closing.TheirScript = msg.ScriptPubkey

	if p.state == StateNormal {
		script, err := lnwallet.DefaultCloseScript(p.State.OurFinalKey)
		if err != nil {
			return p.fail(protoErrorf("deriving close script: %v", err))
		}
		p.SendCloseClearing(script)
	}

	p.state = StateClosingSigExchange

	if p.OurOffer == OfferWithAnchor {
		return p.proposeCloseFee(p.initialCloseFee())
	}
	return nil
}

// initialCloseFee estimates a starting closing fee from the current
// commitment fee rate applied to an HTLC-free close transaction's weight.
func (p *Peer) initialCloseFee() uint64 {
	weight := lnwallet.EstimateCloseTxWeight()
	return uint64(weight) * p.State.Ours.State.FeeRate / 1000
}

// proposeCloseFee signs the close transaction at fee and sends it.
func (p *Peer) proposeCloseFee(fee uint64) error {
	tx, err := lnwallet.CreateCloseTx(p.State, p.State.Ours.State.OurBalanceMsat,
		p.State.Ours.State.TheirBalanceMsat, fee, p.closing.OurScript, p.closing.TheirScript)
	if err != nil {
		return p.fail(protoErrorf("building close tx: %v", err))
	}

	sig, err := lnwallet.SignCloseTx(p.secrets.CommitKey, p.State, tx)
	if err != nil {
		fatalf("signing close tx: %v", err)
	}

	p.closing.OurFee = fee
	p.enqueue(&lnwire.CloseSignature{CloseFee: fee, Sig: sig})
	return nil
}

// AcceptCloseSignature processes the peer's closing fee proposal. A fee
// matching our own last proposal closes the channel; otherwise this side
// counters with the average of the two, the same convergence strategy
// packets.c's fee negotiation uses, until the two sides agree exactly.
func (p *Peer) AcceptCloseSignature(msg *lnwire.CloseSignature) error {
	if p.state != StateClosingSigExchange {
		return p.fail(errUnexpected("close_signature", p.state))
	}

	tx, err := lnwallet.CreateCloseTx(p.State, p.State.Ours.State.OurBalanceMsat,
		p.State.Ours.State.TheirBalanceMsat, msg.CloseFee, p.closing.OurScript, p.closing.TheirScript)
	if err != nil {
		return p.fail(protoErrorf("building close tx at peer's proposed fee: %v", err))
	}
	if err := lnwallet.VerifyCloseSig(p.State, tx, p.State.TheirCommitKey, msg.Sig); err != nil {
		return p.fail(protoErrorf("close signature invalid: %v", err))
	}

	p.closing.TheirFee = msg.CloseFee
	p.closing.TheirSig = &msg.Sig

	if msg.CloseFee == p.closing.OurFee {
		p.state = StateClosed
		return nil
	}

	next := (p.closing.OurFee + msg.CloseFee) / 2
	if next == p.closing.OurFee {
		// Integer averaging can't move any closer to theirs; meet it
		// exactly rather than looping forever.
		return p.proposeCloseFee(msg.CloseFee)
	}
	return p.proposeCloseFee(next)
}
