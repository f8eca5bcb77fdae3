package peer

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnchannel/channeldb"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/shachain"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
)

// privKeyBytes serializes a private key to a fixed 32-byte array.
func privKeyBytes(k *btcec.PrivateKey) [32]byte {
	var out [32]byte
	copy(out[:], k.Serialize())
	return out
}

// snapshotCommit converts a runtime CommitInfo into its persisted form. Only
// the head is converted: its Prev link and its UnackedChanges are not
// persisted, so a predecessor still awaiting the peer's revocation (as
// between SendCommit and AcceptRevocation) is not captured.
func snapshotCommit(ci *lnwallet.CommitInfo) *channeldb.CommitSnapshot {
	if ci == nil || ci.State == nil {
		return nil
	}

	htlcs := make([]channeldb.HtlcSnapshot, len(ci.State.Htlcs))
	for i, h := range ci.State.Htlcs {
		htlcs[i] = channeldb.HtlcSnapshot{
			ID:         h.ID,
			Side:       uint8(h.Side),
			AmountMsat: uint64(h.AmountMsat),
			RHash:      h.RHash,
			Expiry:     h.Expiry,
		}
	}

	snap := &channeldb.CommitSnapshot{
		CommitNum:        ci.CommitNum,
		RevocationHash:   ci.RevocationHash,
		OurBalanceMsat:   uint64(ci.State.OurBalanceMsat),
		TheirBalanceMsat: uint64(ci.State.TheirBalanceMsat),
		FeeRate:          ci.State.FeeRate,
		Htlcs:            htlcs,
	}
	if ci.Sig != nil {
		snap.HasSig = true
		snap.Sig = *ci.Sig
	}
	if ci.RevocationPreimage != nil {
		snap.HasPreimage = true
		snap.Preimage = *ci.RevocationPreimage
	}
	return snap
}

// commitFromSnapshot is snapshotCommit's inverse. The rebuilt CommitInfo has
// a nil Prev and empty UnackedChanges; any predecessor or unacked changes
// present when the snapshot was taken are not restored.
func commitFromSnapshot(snap *channeldb.CommitSnapshot) *lnwallet.CommitInfo {
	if snap == nil {
		return nil
	}

	htlcs := make([]*lnwallet.Htlc, len(snap.Htlcs))
	for i, h := range snap.Htlcs {
		htlcs[i] = &lnwallet.Htlc{
			ID:         h.ID,
			Side:       lnwallet.ChannelSide(h.Side),
			AmountMsat: lnwallet.MilliSatoshi(h.AmountMsat),
			RHash:      h.RHash,
			Expiry:     h.Expiry,
		}
	}

	ci := &lnwallet.CommitInfo{
		CommitNum:      snap.CommitNum,
		RevocationHash: snap.RevocationHash,
		State: &lnwallet.ChannelState{
			OurBalanceMsat:   lnwallet.MilliSatoshi(snap.OurBalanceMsat),
			TheirBalanceMsat: lnwallet.MilliSatoshi(snap.TheirBalanceMsat),
			FeeRate:          snap.FeeRate,
			Htlcs:            htlcs,
		},
	}
	if snap.HasSig {
		sig := snap.Sig
		ci.Sig = &sig
	}
	if snap.HasPreimage {
		preimage := snap.Preimage
		ci.RevocationPreimage = &preimage
	}
	return ci
}

// Snapshot captures everything about the channel that must survive a
// restart: key material, negotiated parameters, each side's head
// commitment, and any in-progress close negotiation. It does not capture
// the peer's counterparty-disclosed preimage log; callers that also want
// that persisted should serialize it separately with the shachain package's
// own ToBytes, keyed alongside this snapshot.
func (p *Peer) Snapshot() *channeldb.ChannelSnapshot {
	s := p.State

	snap := &channeldb.ChannelSnapshot{
		OurCommitPriv: privKeyBytes(p.secrets.CommitKey),
		OurFinalPriv:  privKeyBytes(p.secrets.FinalKey),

		OurDelay:   s.OurDelay,
		TheirDelay: s.TheirDelay,

		OurMinDepth:   p.ourMinDepth,
		TheirMinDepth: p.theirMinDepth,
		OurFeeRate:    p.ourFeeRate,
		TheirFeeRate:  p.theirFeeRate,

		OurOffer:       uint8(p.OurOffer),
		TheirOffer:     uint8(p.TheirOffer),
		HaveTheirOffer: p.haveTheirOffer,

		AnchorTxID:        s.Anchor.TxID,
		AnchorOutputIndex: s.Anchor.OutputIndex,
		AnchorAmount:      s.Anchor.Amount,

		OurNextRevocationHash:   s.OurNextRevocationHash,
		TheirNextRevocationHash: s.TheirNextRevocationHash,

		Ours:   snapshotCommit(s.Ours),
		Theirs: snapshotCommit(s.Theirs),

		ClosingOurScript:   p.closing.OurScript,
		ClosingTheirScript: p.closing.TheirScript,
		ClosingOurFee:      p.closing.OurFee,
		ClosingTheirFee:    p.closing.TheirFee,

		State:         uint8(p.state),
		HtlcIDCounter: p.htlcIDCounter,
	}
	copy(snap.ShaSeed[:], p.secrets.ShaSeedBytes())

	if s.TheirCommitKey != nil {
		snap.TheirCommitPub = s.TheirCommitKey.SerializeCompressed()
	}
	if s.TheirFinalKey != nil {
		snap.TheirFinalPub = s.TheirFinalKey.SerializeCompressed()
	}

	return snap
}

// ResumeFromSnapshot rebuilds a Peer from a snapshot previously produced by
// Snapshot. cfg supplies everything a snapshot deliberately omits: the
// channel config policy and an optional clock override. The rebuilt channel
// has no staging history older than its two heads, so it resumes with
// StagingOurs/StagingTheirs set equal to Ours.State/Theirs.State; any HTLCs
// staged but not yet committed at the moment of the last snapshot must be
// re-proposed by the caller.
func ResumeFromSnapshot(cfg ChannelConfig, snap *channeldb.ChannelSnapshot, clk clock.Clock) (*Peer, error) {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	commitPriv, _ := btcec.PrivKeyFromBytes(snap.OurCommitPriv[:])
	finalPriv, _ := btcec.PrivKeyFromBytes(snap.OurFinalPriv[:])

	var seed shachain.Hash
	copy(seed[:], snap.ShaSeed[:])

	p := &Peer{
		cfg:            cfg,
		OurOffer:       AnchorOffer(snap.OurOffer),
		TheirOffer:     AnchorOffer(snap.TheirOffer),
		haveTheirOffer: snap.HaveTheirOffer,
		ourMinDepth:    snap.OurMinDepth,
		ourFeeRate:     snap.OurFeeRate,
		theirMinDepth:  snap.TheirMinDepth,
		theirFeeRate:   snap.TheirFeeRate,
		State: &lnwallet.PeerVisibleState{
			Anchor: lnwallet.AnchorInfo{
				TxID:        snap.AnchorTxID,
				OutputIndex: snap.AnchorOutputIndex,
				Amount:      snap.AnchorAmount,
			},
			OurCommitKey:            commitPriv.PubKey(),
			OurFinalKey:             finalPriv.PubKey(),
			OurDelay:                snap.OurDelay,
			TheirDelay:              snap.TheirDelay,
			OurNextRevocationHash:   snap.OurNextRevocationHash,
			TheirNextRevocationHash: snap.TheirNextRevocationHash,
		},
		secrets:        NewSecrets(commitPriv, finalPriv, seed),
		theirPreimages: shachain.NewStore(),
		htlcExpiries:   make(map[uint64]time.Time),
		clk:            clk,
		outbox:         queue.NewConcurrentQueue(outboxBufferSize),
		commitTimer:    ticker.New(commitCoalesceInterval),
		closing: ClosingInfo{
			OurScript:   snap.ClosingOurScript,
			TheirScript: snap.ClosingTheirScript,
			OurFee:      snap.ClosingOurFee,
			TheirFee:    snap.ClosingTheirFee,
		},
		state:         State(snap.State),
		htlcIDCounter: snap.HtlcIDCounter,
		quit:          make(chan struct{}),
	}

	if len(snap.TheirCommitPub) > 0 {
		key, err := btcec.ParsePubKey(snap.TheirCommitPub)
		if err != nil {
			return nil, fmt.Errorf("peer: decoding their commit key: %w", err)
		}
		p.State.TheirCommitKey = key
	}
	if len(snap.TheirFinalPub) > 0 {
		key, err := btcec.ParsePubKey(snap.TheirFinalPub)
		if err != nil {
			return nil, fmt.Errorf("peer: decoding their final key: %w", err)
		}
		p.State.TheirFinalKey = key
	}
	if p.State.TheirCommitKey != nil {
		script, err := lnwallet.AnchorWitnessScript(p.State.OurCommitKey, p.State.TheirCommitKey)
		if err != nil {
			return nil, fmt.Errorf("peer: rebuilding anchor script: %w", err)
		}
		p.State.Anchor.WitnessScript = script
		p.State.Anchor.OurMultiSigKey = p.State.OurCommitKey
		p.State.Anchor.TheirMultiSigKey = p.State.TheirCommitKey
	} else {
		p.State.Anchor.OurMultiSigKey = p.State.OurCommitKey
	}

	p.State.Ours = commitFromSnapshot(snap.Ours)
	p.State.Theirs = commitFromSnapshot(snap.Theirs)
	if p.State.Ours != nil {
		p.State.StagingOurs = p.State.Ours.State.Copy()
	}
	if p.State.Theirs != nil {
		p.State.StagingTheirs = p.State.Theirs.State.Copy()
	}

	for _, staged := range []*lnwallet.ChannelState{p.State.StagingOurs, p.State.StagingTheirs} {
		if staged == nil {
			continue
		}
		for _, h := range staged.Htlcs {
			if h.Side == lnwallet.Ours {
				p.htlcExpiries[h.ID] = time.Unix(int64(h.Expiry), 0)
			}
		}
	}

	p.outbox.Start()
	p.commitTimer.Pause()

	return p, nil
}
