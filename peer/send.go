package peer

import (
	"time"

	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// wireAnchorOffer maps this package's AnchorOffer to its wire encoding.
func wireAnchorOffer(o AnchorOffer) lnwire.AnchorOffer {
	if o == OfferWithAnchor {
		return lnwire.AnchorOfferWill
	}
	return lnwire.AnchorOfferWont
}

// SendOpen builds and queues this side's Open message, seeding our very
// first CommitInfo (commit_num 0) with the revocation hash precomputed at
// construction and advancing OurNextRevocationHash to the one after it.
func (p *Peer) SendOpen() {
	ci := &lnwallet.CommitInfo{
		CommitNum:      0,
		RevocationHash: p.State.OurNextRevocationHash,
	}
	p.State.Ours = ci
	p.State.OurNextRevocationHash = p.secrets.RevocationHash(1)

	p.enqueue(&lnwire.Open{
		RevocationHash:     ci.RevocationHash,
		NextRevocationHash: p.State.OurNextRevocationHash,
		CommitKey:          p.State.OurCommitKey,
		FinalKey:           p.State.OurFinalKey,
		Delay:              p.State.OurDelay,
		MinDepth:           p.ourMinDepth,
		InitialFeeRate:     p.ourFeeRate,
		AnchorOffer:        wireAnchorOffer(p.OurOffer),
	})
}

// SendAnchor announces the on-chain identity of the anchor this side is
// funding, drawing the UTXO descriptor from WithAnchorInput, and runs
// setupFirstCommit now that both commitment transactions can be built.
// Only valid when OurOffer is OfferWithAnchor and WithAnchorInput has
// already been called.
func (p *Peer) SendAnchor(ourBalanceMsat, theirBalanceMsat lnwallet.MilliSatoshi) error {
	if p.anchorInput == nil {
		fatalf("SendAnchor called without WithAnchorInput")
	}

	p.State.Anchor.TxID = p.anchorInput.TxID
	p.State.Anchor.OutputIndex = p.anchorInput.OutputIndex
	p.State.Anchor.Amount = p.anchorInput.Satoshis

	if err := p.setupFirstCommit(ourBalanceMsat, theirBalanceMsat); err != nil {
		p.sendError(err.Error())
		return err
	}

	p.enqueue(&lnwire.OpenAnchor{
		TxID:        p.State.Anchor.TxID,
		OutputIndex: p.State.Anchor.OutputIndex,
		Amount:      uint64(p.State.Anchor.Amount),
	})
	p.state = StateOpenWaitCommitSig
	return nil
}

// SendOpenCommitSig signs the peer's very first commitment transaction
// (Theirs, commit_num 0) and sends the signature.
func (p *Peer) SendOpenCommitSig() error {
	sig, err := lnwallet.CreateCommitInfo(p.secrets.CommitKey, p.State, lnwallet.Theirs,
		nil, p.State.Theirs.RevocationHash, p.State.Theirs.State)
	if err != nil {
		fatalf("signing first commit: %v", err)
	}
	p.State.Theirs = sig

	p.enqueue(&lnwire.OpenCommitSig{Sig: *sig.Sig})
	p.state = StateOpenWaitComplete
	return nil
}

// SendOpenComplete signals this side is satisfied the anchor has reached
// its negotiated depth.
func (p *Peer) SendOpenComplete() {
	p.enqueue(&lnwire.OpenComplete{})
}

// nextHtlcID returns a fresh, channel-unique id for an HTLC this side
// originates.
func (p *Peer) nextHtlcID() uint64 {
	id := p.htlcIDCounter
	p.htlcIDCounter++
	return id
}

// AddHTLC stages a new HTLC we originate: immediately against
// StagingTheirs (it will be mirrored into StagingOurs once the peer
// revokes), and schedules the commit coalescing timer.
func (p *Peer) AddHTLC(amountMsat lnwallet.MilliSatoshi, rHash [32]byte, expiry uint32) (uint64, error) {
	id := p.nextHtlcID()

	if err := p.State.StagingTheirs.AddHtlc(lnwallet.Ours, id, amountMsat, rHash, expiry); err != nil {
		return 0, protoErrorf("cannot afford %d msat htlc: %v", amountMsat, err)
	}
	htlc := p.State.StagingTheirs.HtlcByID(lnwallet.Ours, id)

	p.State.Theirs.UnackedChanges = append(p.State.Theirs.UnackedChanges,
		lnwallet.AddStaging(htlc))
	p.htlcExpiries[id] = time.Unix(int64(expiry), 0)
	p.remoteChangesPending()

	p.enqueue(&lnwire.UpdateAddHtlc{
		ID:         id,
		AmountMsat: lnwire.MilliSatoshi(amountMsat),
		RHash:      rHash,
		Expiry:     expiry,
	})
	return id, nil
}

// FulfillHTLC resolves an HTLC the peer originated (staged as Theirs in
// our own staging, i.e. present in StagingTheirs with side Theirs) by
// revealing its preimage.
func (p *Peer) FulfillHTLC(id uint64, preimage [32]byte) error {
	if err := p.State.StagingTheirs.FulfillHtlc(lnwallet.Theirs, id, preimage); err != nil {
		return protoErrorf("fulfill htlc %d: %v", id, err)
	}

	p.State.Theirs.UnackedChanges = append(p.State.Theirs.UnackedChanges,
		lnwallet.FulfillStaging(id, preimage))
	p.remoteChangesPending()

	p.enqueue(&lnwire.UpdateFulfillHtlc{ID: id, R: preimage})
	return nil
}

// FailHTLC resolves an HTLC the peer originated without payment.
func (p *Peer) FailHTLC(id uint64, reason []byte) error {
	if err := p.State.StagingTheirs.FailHtlc(lnwallet.Theirs, id); err != nil {
		return protoErrorf("fail htlc %d: %v", id, err)
	}

	p.State.Theirs.UnackedChanges = append(p.State.Theirs.UnackedChanges,
		lnwallet.FailStaging(id))
	p.remoteChangesPending()

	p.enqueue(&lnwire.UpdateFailHtlc{ID: id, Reason: reason})
	return nil
}

// failExpiredHTLC fails an HTLC this side originated (tracked in
// htlcExpiries and staged with side Ours against StagingTheirs) that has
// passed its expiry without being fulfilled. Unlike FailHTLC, which resolves
// an HTLC the peer originated, this refunds the value back to us.
func (p *Peer) failExpiredHTLC(id uint64) error {
	if err := p.State.StagingTheirs.FailHtlc(lnwallet.Ours, id); err != nil {
		return protoErrorf("fail expired htlc %d: %v", id, err)
	}

	p.State.Theirs.UnackedChanges = append(p.State.Theirs.UnackedChanges,
		lnwallet.FailStaging(id))
	p.remoteChangesPending()

	p.enqueue(&lnwire.UpdateFailHtlc{ID: id, Reason: []byte("htlc expired")})
	return nil
}

// remoteChangesPending resumes the commit coalescing timer so a batch of
// staged changes gets folded into a single commit message rather than one
// per operation.
func (p *Peer) remoteChangesPending() {
	p.commitTimer.Resume()
}

// SendCommit is the outbound half of the Commit Protocol Driver: it signs
// Theirs' next commitment transaction over everything staged in
// StagingTheirs since Theirs' current cstate, and switches Theirs to point
// at it. It refuses to build an empty commit, and refuses to build a second
// commit while the one before it remains unrevoked -- at most one commit
// per direction may be outstanding at a time.
func (p *Peer) SendCommit() error {
	p.commitTimer.Pause()

	prev := p.State.Theirs
	if prev.Prev != nil && prev.Prev.RevocationPreimage == nil {
		return protoErrorf("refusing to send a second commit before the " +
			"previous one is revoked")
	}
	if prev.State.Changes() == p.State.StagingTheirs.Changes() {
		return protoErrorf("refusing to send an empty commit")
	}

	ci, err := lnwallet.CreateCommitInfo(p.secrets.CommitKey, p.State, lnwallet.Theirs,
		prev, p.State.TheirNextRevocationHash, p.State.StagingTheirs)
	if err != nil {
		fatalf("signing commit: %v", err)
	}

	p.State.Theirs = ci
	p.enqueue(&lnwire.UpdateCommit{Sig: *ci.Sig})
	return nil
}

// SendRevocation is the outbound half of the Revocation Manager: it
// reveals the preimage for the commitment Ours just superseded, applies
// that commitment's unacked changes to StagingTheirs, and releases them.
func (p *Peer) SendRevocation() error {
	old := p.State.Ours.Prev
	if old == nil {
		fatalf("no previous commit to revoke")
	}
	if old.RevocationPreimage != nil {
		fatalf("commit %d already revoked", old.CommitNum)
	}
	if p.State.Ours.Sig == nil {
		fatalf("revoking before our commit is signed")
	}

	preimage := p.secrets.RevocationPreimage(old.CommitNum)
	old.RevocationPreimage = &preimage

	p.enqueue(&lnwire.UpdateRevocation{
		RevocationPreimage: preimage,
		NextRevocationHash: p.State.OurNextRevocationHash,
	})

	changes := old.Release()
	if err := lnwallet.ApplyChangeset(p.State.StagingTheirs, lnwallet.Theirs, changes); err != nil {
		fatalf("replaying revoked changes onto remote staging: %v", err)
	}
	if len(changes) > 0 {
		p.remoteChangesPending()
	}
	return nil
}
