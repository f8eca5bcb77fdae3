package peer

import (
	"github.com/lightningnetwork/lnchannel/lnwallet"
)

// setupFirstCommit builds the commit_num 0 staging state and CommitInfo for
// both sides once the anchor's on-chain identity is known to both sides,
// mirroring packets.c's setup_first_commit. It is called from both SendAnchor
// and AcceptAnchor, whichever side learns the anchor's txid last -- by the
// time either runs, p.State.Ours and p.State.Theirs already hold their
// commit_num 0 RevocationHash (seeded by SendOpen/AcceptOpen), and
// p.State.Anchor.TxID/OutputIndex/Amount are already set.
func (p *Peer) setupFirstCommit(ourBalanceMsat, theirBalanceMsat lnwallet.MilliSatoshi) error {
	script, err := lnwallet.AnchorWitnessScript(p.State.OurCommitKey, p.State.TheirCommitKey)
	if err != nil {
		return err
	}
	p.State.Anchor.WitnessScript = script
	p.State.Anchor.OurMultiSigKey = p.State.OurCommitKey
	p.State.Anchor.TheirMultiSigKey = p.State.TheirCommitKey

	p.State.StagingOurs = lnwallet.NewChannelState(ourBalanceMsat, theirBalanceMsat, p.ourFeeRate)
	p.State.StagingTheirs = lnwallet.NewChannelState(ourBalanceMsat, theirBalanceMsat, p.theirFeeRate)

	ours, err := lnwallet.CreateCommitInfo(nil, p.State, lnwallet.Ours, nil,
		p.State.Ours.RevocationHash, p.State.StagingOurs)
	if err != nil {
		return err
	}
	p.State.Ours = ours

	theirs, err := lnwallet.CreateCommitInfo(nil, p.State, lnwallet.Theirs, nil,
		p.State.Theirs.RevocationHash, p.State.StagingTheirs)
	if err != nil {
		return err
	}
	p.State.Theirs = theirs

	return nil
}
