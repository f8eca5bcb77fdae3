// Package lnwallet implements the channel state machine: the funding
// arithmetic, HTLC staging, and commitment-transaction construction that
// sits underneath the peer-to-peer update protocol.
package lnwallet

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ChannelSide identifies which party a piece of channel state belongs to,
// from the perspective of the node running this code.
type ChannelSide uint8

const (
	// Ours identifies state describing this node.
	Ours ChannelSide = iota

	// Theirs identifies state describing the channel counterparty.
	Theirs
)

func (s ChannelSide) String() string {
	if s == Ours {
		return "ours"
	}
	return "theirs"
}

// MilliSatoshi is a thousandth of a satoshi. lnwallet keeps its own
// definition, rather than importing lnwire's, to avoid a dependency cycle
// between the wire codec and the channel state machine; both are defined as
// a plain uint64 so values convert between the two with a cast.
type MilliSatoshi uint64

// ToSatoshis rounds down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() int64 {
	return int64(m) / 1000
}

// Htlc is a single in-flight HTLC, staged on one or both sides' working
// commitment state.
type Htlc struct {
	// ID uniquely identifies this HTLC within the channel. IDs are
	// assigned by whichever side originates the HTLC and are never
	// reused within a channel's lifetime.
	ID uint64

	// Side records who added this HTLC: Ours if this node is the payer,
	// Theirs if the counterparty is.
	Side ChannelSide

	// AmountMsat is the value routed by this HTLC.
	AmountMsat MilliSatoshi

	// RHash is the SHA-256 hash of the payment preimage that resolves
	// this HTLC.
	RHash [32]byte

	// Expiry is the absolute expiration time, in seconds, after which
	// the payer may time the HTLC out.
	Expiry uint32
}

// ChannelState is one side's view of the HTLCs and balances a commitment
// transaction would encode. Two ChannelStates, ours and theirs, exist for
// every commitment: they must always be constructible into mirror-image
// transactions that pay the same total value to the same two parties.
type ChannelState struct {
	// OurBalanceMsat and TheirBalanceMsat are the balances not
	// encumbered by any HTLC.
	OurBalanceMsat   MilliSatoshi
	TheirBalanceMsat MilliSatoshi

	// Htlcs is the set of HTLCs staged in this state, in the order they
	// were added.
	Htlcs []*Htlc

	// FeeRate is the commitment transaction fee rate, expressed in
	// satoshis per kiloweight, this state was built with.
	FeeRate uint64

	// changes counts every mutation (add, fulfill, fail) ever applied
	// to this state, including ones later reverted by a failed HTLC. A
	// commit built from a state whose changes counter has not advanced
	// since the previous commit would be empty and is refused.
	changes uint64
}

// NewChannelState returns a fresh, HTLC-free channel state with the given
// starting balances.
func NewChannelState(ourBalance, theirBalance MilliSatoshi, feeRate uint64) *ChannelState {
	return &ChannelState{
		OurBalanceMsat:   ourBalance,
		TheirBalanceMsat: theirBalance,
		FeeRate:          feeRate,
	}
}

// Changes reports how many mutations have ever been applied to this state.
// The staging manager uses it to detect an attempt to commit with nothing
// new to sign.
func (c *ChannelState) Changes() uint64 {
	return c.changes
}

// Copy returns a deep copy of the channel state, safe to mutate
// independently of the original.
func (c *ChannelState) Copy() *ChannelState {
	cpy := &ChannelState{
		OurBalanceMsat:   c.OurBalanceMsat,
		TheirBalanceMsat: c.TheirBalanceMsat,
		FeeRate:          c.FeeRate,
		changes:          c.changes,
		Htlcs:            make([]*Htlc, len(c.Htlcs)),
	}
	for i, h := range c.Htlcs {
		htlcCopy := *h
		cpy.Htlcs[i] = &htlcCopy
	}
	return cpy
}

// HtlcByID returns the staged HTLC with the given id, or nil if none is
// staged.
func (c *ChannelState) HtlcByID(side ChannelSide, id uint64) *Htlc {
	for _, h := range c.Htlcs {
		if h.Side == side && h.ID == id {
			return h
		}
	}
	return nil
}

// CountBySide returns how many HTLCs originated by side are staged.
func (c *ChannelState) CountBySide(side ChannelSide) int {
	n := 0
	for _, h := range c.Htlcs {
		if h.Side == side {
			n++
		}
	}
	return n
}

// fee computes the commitment transaction fee, in satoshis, this state
// would pay at its configured fee rate.
func (c *ChannelState) fee() int64 {
	weight := estimateCommitTxWeight(len(c.Htlcs), false)
	return (int64(c.FeeRate) * weight) / 1000
}

// AddHtlc stages a new HTLC, charging its value against the payer's
// balance. side indicates who is paying: Ours if this node originated the
// HTLC, Theirs if the counterparty did. The HTLC must have a positive
// amount, the side's HTLC count must remain within MaxHTLCNumber, the id
// must not already be staged, and the payer must be able to afford the HTLC.
// For an HTLC this node originates (side Ours), the payer must also be able
// to afford the resulting commitment fee; an HTLC the counterparty
// originates is checked against its amount only.
func (c *ChannelState) AddHtlc(side ChannelSide, id uint64, amountMsat MilliSatoshi,
	rHash [32]byte, expiry uint32) error {

	if amountMsat == 0 {
		return fmt.Errorf("htlc amount must be positive")
	}
	if c.CountBySide(side) >= MaxHTLCNumber {
		return fmt.Errorf("side %s already has the maximum of %d htlcs",
			side, MaxHTLCNumber)
	}
	if c.HtlcByID(side, id) != nil {
		return fmt.Errorf("htlc id %d already staged", id)
	}

	payerBalance := &c.OurBalanceMsat
	if side == Theirs {
		payerBalance = &c.TheirBalanceMsat
	}

	feeMsat := MilliSatoshi(int64(c.FeeRate)*estimateCommitTxWeight(len(c.Htlcs), true)/1000) * 1000
	reserved := amountMsat
	if side == Ours {
		reserved += feeMsat
	}
	if *payerBalance < reserved {
		return fmt.Errorf("payer balance %d msat insufficient for htlc of "+
			"%d msat", *payerBalance, amountMsat)
	}

	*payerBalance -= amountMsat

	c.Htlcs = append(c.Htlcs, &Htlc{
		ID:         id,
		Side:       side,
		AmountMsat: amountMsat,
		RHash:      rHash,
		Expiry:     expiry,
	})
	c.changes++

	return nil
}

// removeHtlc removes the staged HTLC originated by side with the given id
// and returns it. It returns an error if no such HTLC is staged.
func (c *ChannelState) removeHtlc(side ChannelSide, id uint64) (*Htlc, error) {
	for i, h := range c.Htlcs {
		if h.Side == side && h.ID == id {
			c.Htlcs = append(c.Htlcs[:i], c.Htlcs[i+1:]...)
			return h, nil
		}
	}
	return nil, fmt.Errorf("no htlc staged with id %d originated by %s", id, side)
}

// FulfillHtlc resolves the staged HTLC originated by side with the given id
// by crediting its value to the payee and removing it from the staged set.
// preimage must hash, under SHA-256, to the HTLC's RHash.
func (c *ChannelState) FulfillHtlc(side ChannelSide, id uint64, preimage [32]byte) error {
	if staged := c.HtlcByID(side, id); staged != nil {
		hash := chainhash.HashB(preimage[:])
		if !bytes.Equal(hash, staged.RHash[:]) {
			// Checked before removal: the caller rejects the whole
			// message, and the state must remain exactly as it was.
			return fmt.Errorf("preimage does not match htlc %d's rhash", id)
		}
	}

	h, err := c.removeHtlc(side, id)
	if err != nil {
		return err
	}

	payeeBalance := &c.TheirBalanceMsat
	if h.Side == Theirs {
		payeeBalance = &c.OurBalanceMsat
	}
	*payeeBalance += h.AmountMsat
	c.changes++

	return nil
}

// FailHtlc resolves the staged HTLC originated by side with the given id
// without payment, refunding its value to the payer and removing it from
// the staged set.
func (c *ChannelState) FailHtlc(side ChannelSide, id uint64) error {
	h, err := c.removeHtlc(side, id)
	if err != nil {
		return err
	}

	payerBalance := &c.OurBalanceMsat
	if h.Side == Theirs {
		payerBalance = &c.TheirBalanceMsat
	}
	*payerBalance += h.AmountMsat
	c.changes++

	return nil
}

// AnchorInfo describes the on-chain funding output both commitment
// transactions spend.
type AnchorInfo struct {
	TxID        chainhash.Hash
	OutputIndex uint32
	Amount      int64

	// WitnessScript is the 2-of-2 redeem script that output pays to.
	WitnessScript []byte

	// OurMultiSigKey and TheirMultiSigKey are the two keys that redeem
	// script commits to.
	OurMultiSigKey   *btcec.PublicKey
	TheirMultiSigKey *btcec.PublicKey
}

// AnchorInput describes the wallet UTXO the side offering to fund the
// anchor intends to spend to create it. Sourcing and signing that input is
// the wallet's job (out of scope here); this is only the descriptor a
// caller supplies so the anchor's on-chain identity can be announced via
// OpenAnchor before the funding transaction has confirmed.
type AnchorInput struct {
	TxID        chainhash.Hash
	OutputIndex uint32
	Satoshis    int64

	// WalletEntry identifies, for the external wallet's own bookkeeping,
	// which UTXO this input spends. Its type is opaque here.
	WalletEntry interface{}
}

// CommitInfo is one link in a side's chain of commitment transactions. Each
// commit points at the one it replaced via Prev, so a stale commit can
// always be traced back to the point of divergence.
type CommitInfo struct {
	// Prev is the commitment this one supersedes, or nil if this is the
	// very first commitment.
	Prev *CommitInfo

	// CommitNum is this commitment's sequence number, starting at zero.
	CommitNum uint64

	// RevocationHash is the hash whose preimage, once disclosed, revokes
	// this commitment.
	RevocationHash [32]byte

	// State is the channel state, as seen by the side this commitment
	// belongs to, that this commitment transaction encodes.
	State *ChannelState

	// Tx is the constructed, unsigned commitment transaction.
	Tx *wire.MsgTx

	// Sig is the counterparty's signature authorizing Tx, once received.
	// A CommitInfo with a nil Sig has been proposed but not yet
	// accepted.
	Sig *[64]byte

	// RevocationPreimage is set once this commitment has been
	// superseded and the side that owns it has disclosed the preimage
	// that revokes it. A CommitInfo still at the head of its chain
	// always has a nil RevocationPreimage.
	RevocationPreimage *[32]byte

	// UnackedChanges records every HTLC add/fulfill/fail that was
	// staged on the *other* side between this commitment and its
	// predecessor. It is consumed exactly once, replayed via
	// ApplyChangeset at the moment this commitment is revoked, and must
	// never be read afterward -- Release enforces that by clearing it.
	UnackedChanges []HtlcStaging
}

// Release returns this commitment's unacked changes and clears them,
// enforcing that they are read at most once. Calling it a second time
// returns nil.
func (ci *CommitInfo) Release() []HtlcStaging {
	changes := ci.UnackedChanges
	ci.UnackedChanges = nil
	return changes
}

// PeerVisibleState holds everything about a channel that either side's
// commitment construction needs to reference: the keys, the relative
// delays, the anchor, and the current and staging commitment chains.
type PeerVisibleState struct {
	Anchor AnchorInfo

	// OurCommitKey and TheirCommitKey pay out the non-delayed half of
	// each side's own commitment transaction.
	OurCommitKey   *btcec.PublicKey
	TheirCommitKey *btcec.PublicKey

	// OurFinalKey and TheirFinalKey are the keys controlling the mutual
	// close outputs.
	OurFinalKey   *btcec.PublicKey
	TheirFinalKey *btcec.PublicKey

	// OurDelay and TheirDelay are the relative locktimes, in seconds,
	// imposed on OUR commitment's delayed output and THEIR commitment's
	// delayed output, respectively.
	OurDelay   uint32
	TheirDelay uint32

	// OurNextRevocationHash is the hash we will use for our next
	// commitment, already disclosed to the counterparty.
	OurNextRevocationHash [32]byte

	// TheirNextRevocationHash is the hash they have told us they will
	// use for their next commitment.
	TheirNextRevocationHash [32]byte

	// Ours and Theirs are the chain heads of each side's accepted
	// commitments.
	Ours   *CommitInfo
	Theirs *CommitInfo

	// StagingOurs and StagingTheirs are the working states that HTLC
	// adds, fulfills, and fails mutate before they are folded into a new
	// commitment. They start each round as a copy of Ours.State and
	// Theirs.State.
	StagingOurs   *ChannelState
	StagingTheirs *ChannelState
}

// NewPeerVisibleState seeds a fresh channel with symmetric opening balances
// and no HTLCs.
func NewPeerVisibleState(ourBalance, theirBalance MilliSatoshi, feeRate uint64,
	ourDelay, theirDelay uint32) *PeerVisibleState {

	ours := NewChannelState(ourBalance, theirBalance, feeRate)
	theirs := NewChannelState(ourBalance, theirBalance, feeRate)

	return &PeerVisibleState{
		OurDelay:      ourDelay,
		TheirDelay:    theirDelay,
		StagingOurs:   ours.Copy(),
		StagingTheirs: theirs.Copy(),
	}
}
