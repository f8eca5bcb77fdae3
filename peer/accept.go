package peer

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/lightningnetwork/lnchannel/shachain"
)

// AcceptOpen processes the peer's Open message: the inbound half of the
// open handshake. It validates the proposed parameters against cfg,
// mirroring packets.c's accept_pkt_open, then seeds the Theirs commit_num 0
// CommitInfo the same way SendOpen seeds Ours.
func (p *Peer) AcceptOpen(msg *lnwire.Open) error {
	if p.state != StateOpenWaitOpen {
		return p.fail(errUnexpected("open", p.state))
	}

	if msg.Delay > p.cfg.RelLocktimeMax {
		return p.fail(protoErrorf("peer's requested delay of %d exceeds our "+
			"maximum of %d", msg.Delay, p.cfg.RelLocktimeMax))
	}
	if msg.MinDepth > p.cfg.AnchorConfirmsMax {
		return p.fail(protoErrorf("peer's requested min depth of %d exceeds "+
			"our maximum of %d", msg.MinDepth, p.cfg.AnchorConfirmsMax))
	}
	if msg.InitialFeeRate < p.cfg.CommitmentFeeRateMin {
		return p.fail(protoErrorf("peer's proposed fee rate of %d is below "+
			"our minimum of %d", msg.InitialFeeRate, p.cfg.CommitmentFeeRateMin))
	}
	if msg.AnchorOffer == wireAnchorOffer(p.OurOffer) {
		if p.OurOffer == OfferWithAnchor {
			return p.fail(protoErrorf("both sides offered to fund the anchor"))
		}
		return p.fail(protoErrorf("neither side offered to fund the anchor"))
	}

	p.TheirOffer = OfferWithoutAnchor
	if msg.AnchorOffer == lnwire.AnchorOfferWill {
		p.TheirOffer = OfferWithAnchor
	}
	p.haveTheirOffer = true

	p.State.TheirCommitKey = msg.CommitKey
	p.State.TheirFinalKey = msg.FinalKey
	p.State.TheirDelay = msg.Delay
	p.State.TheirNextRevocationHash = msg.NextRevocationHash
	p.theirMinDepth = msg.MinDepth
	p.theirFeeRate = msg.InitialFeeRate

	p.State.Theirs = &lnwallet.CommitInfo{
		CommitNum:      0,
		RevocationHash: msg.RevocationHash,
	}

	p.state = StateOpenWaitAnchor
	return nil
}

// AcceptAnchor processes the OpenAnchor message sent by whichever side
// funded the anchor. Only valid for the side that did not offer to fund it
// itself; it assumes the single-funder balance split packets.c's
// setup_first_commit uses, crediting the full anchor value to the funder.
func (p *Peer) AcceptAnchor(msg *lnwire.OpenAnchor) error {
	if p.state != StateOpenWaitAnchor {
		return p.fail(errUnexpected("open_anchor", p.state))
	}
	if p.TheirOffer != OfferWithAnchor {
		return p.fail(protoErrorf("peer sent open_anchor but did not offer " +
			"to fund the anchor"))
	}

	p.State.Anchor.TxID = chainhash.Hash(msg.TxID)
	p.State.Anchor.OutputIndex = msg.OutputIndex
	p.State.Anchor.Amount = int64(msg.Amount)

	theirBalanceMsat := lnwallet.MilliSatoshi(msg.Amount * 1000)
	if err := p.setupFirstCommit(0, theirBalanceMsat); err != nil {
		return p.fail(protoErrorf("setting up first commit: %v", err))
	}

	p.state = StateOpenWaitCommitSig
	return nil
}

// AcceptOpenCommitSig processes the peer's signature over our own (Ours)
// commit_num 0 commitment transaction, the counterpart to SendOpenCommitSig.
func (p *Peer) AcceptOpenCommitSig(msg *lnwire.OpenCommitSig) error {
	if p.state != StateOpenWaitCommitSig {
		return p.fail(errUnexpected("open_commit_sig", p.state))
	}

	if err := lnwallet.VerifyCommitSig(p.State, p.State.Ours, p.State.TheirCommitKey, msg.Sig); err != nil {
		return p.fail(protoErrorf("open commit signature invalid: %v", err))
	}
	p.State.Ours.Sig = &msg.Sig

	p.enqueue(&lnwire.OpenComplete{})
	p.state = StateOpenWaitComplete
	return nil
}

// AcceptOpenComplete processes the peer's acknowledgement that it considers
// the anchor sufficiently confirmed. Once both sides have exchanged this,
// the channel is ready for normal operation.
func (p *Peer) AcceptOpenComplete(msg *lnwire.OpenComplete) error {
	if p.state != StateOpenWaitComplete {
		return p.fail(errUnexpected("open_complete", p.state))
	}

	p.state = StateNormal
	return nil
}

// AcceptHTLCAdd stages an HTLC the peer originates directly against
// StagingOurs, and records it as an unacked change against the current
// Ours commit so it replays onto StagingTheirs once that commit is
// revoked.
func (p *Peer) AcceptHTLCAdd(msg *lnwire.UpdateAddHtlc) error {
	if p.state != StateNormal {
		return p.fail(errUnexpected("update_add_htlc", p.state))
	}

	amt := lnwallet.MilliSatoshi(msg.AmountMsat)
	if err := p.State.StagingOurs.AddHtlc(lnwallet.Theirs, msg.ID, amt, msg.RHash, msg.Expiry); err != nil {
		return p.fail(protoErrorf("cannot accept htlc %d: %v", msg.ID, err))
	}
	htlc := p.State.StagingOurs.HtlcByID(lnwallet.Theirs, msg.ID)

	p.State.Ours.UnackedChanges = append(p.State.Ours.UnackedChanges,
		lnwallet.AddStaging(htlc))
	return nil
}

// AcceptHTLCFulfill resolves an HTLC we originated, once the peer reveals
// its preimage.
func (p *Peer) AcceptHTLCFulfill(msg *lnwire.UpdateFulfillHtlc) error {
	if p.state != StateNormal {
		return p.fail(errUnexpected("update_fulfill_htlc", p.state))
	}

	if err := p.State.StagingOurs.FulfillHtlc(lnwallet.Ours, msg.ID, msg.R); err != nil {
		return p.fail(protoErrorf("fulfill htlc %d: %v", msg.ID, err))
	}
	delete(p.htlcExpiries, msg.ID)

	p.State.Ours.UnackedChanges = append(p.State.Ours.UnackedChanges,
		lnwallet.FulfillStaging(msg.ID, msg.R))
	return nil
}

// AcceptHTLCFail resolves an HTLC we originated without payment.
func (p *Peer) AcceptHTLCFail(msg *lnwire.UpdateFailHtlc) error {
	if p.state != StateNormal {
		return p.fail(errUnexpected("update_fail_htlc", p.state))
	}

	if err := p.State.StagingOurs.FailHtlc(lnwallet.Ours, msg.ID); err != nil {
		return p.fail(protoErrorf("fail htlc %d: %v", msg.ID, err))
	}
	delete(p.htlcExpiries, msg.ID)

	p.State.Ours.UnackedChanges = append(p.State.Ours.UnackedChanges,
		lnwallet.FailStaging(msg.ID))
	return nil
}

// AcceptCommit is the inbound half of the Commit Protocol Driver: the peer
// has signed a new Ours commit_num folding in everything staged in
// StagingOurs since our current head. Accepting it immediately revokes the
// commit it superseded.
func (p *Peer) AcceptCommit(msg *lnwire.UpdateCommit) error {
	if p.state != StateNormal {
		return p.fail(errUnexpected("update_commit", p.state))
	}

	prev := p.State.Ours
	if prev.Prev != nil && prev.Prev.RevocationPreimage == nil {
		return p.fail(protoErrorf("received a second commit before the " +
			"previous one was revoked"))
	}

	ci, err := lnwallet.CreateCommitInfo(nil, p.State, lnwallet.Ours, prev,
		p.State.OurNextRevocationHash, p.State.StagingOurs)
	if err != nil {
		return p.fail(protoErrorf("%v", err))
	}

	if err := lnwallet.VerifyCommitSig(p.State, ci, p.State.TheirCommitKey, msg.Sig); err != nil {
		return p.fail(protoErrorf("commit signature invalid: %v", err))
	}
	ci.Sig = &msg.Sig

	p.State.Ours = ci
	p.State.OurNextRevocationHash = p.secrets.RevocationHash(ci.CommitNum + 1)

	return p.SendRevocation()
}

// AcceptRevocation is the inbound half of the Revocation Manager: the peer
// has revealed the preimage revoking the Theirs commit it just superseded.
// The changes staged against that commit are replayed onto StagingOurs.
func (p *Peer) AcceptRevocation(msg *lnwire.UpdateRevocation) error {
	if p.state != StateNormal {
		return p.fail(errUnexpected("update_revocation", p.state))
	}

	old := p.State.Theirs.Prev
	if old == nil {
		return p.fail(protoErrorf("peer revoked a commitment that does not exist"))
	}
	if old.RevocationPreimage != nil {
		return p.fail(protoErrorf("commit %d already revoked", old.CommitNum))
	}
	if !lnwallet.VerifyRevocationPreimage(msg.RevocationPreimage, old.RevocationHash) {
		return p.fail(protoErrorf("revocation preimage does not match "+
			"commit %d's hash", old.CommitNum))
	}

	if err := p.theirPreimages.Insert(^uint64(0)-old.CommitNum, shachain.Hash(msg.RevocationPreimage)); err != nil {
		fatalf("inserting revealed preimage for commit %d: %v", old.CommitNum, err)
	}

	old.RevocationPreimage = &msg.RevocationPreimage
	p.State.TheirNextRevocationHash = msg.NextRevocationHash

	changes := old.Release()
	if err := lnwallet.ApplyChangeset(p.State.StagingOurs, lnwallet.Ours, changes); err != nil {
		fatalf("replaying revoked changes onto local staging: %v", err)
	}

	return nil
}
