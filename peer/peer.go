// Package peer implements the per-peer channel packet engine: the single
// state machine that drives one bidirectional Lightning payment channel
// through open, HTLC update, commit/revoke, and mutual close by building
// outgoing protocol messages and validating incoming ones against the
// channel's current local and remote state.
package peer

import (
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnchannel/lnwallet"
	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/lightningnetwork/lnchannel/shachain"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
)

// commitCoalesceInterval is how long queued staged changes wait for more
// siblings before a commit message is cut for them.
const commitCoalesceInterval = 20 * time.Millisecond

// outboxBufferSize sizes the outbound queue's internal channel buffer; it
// does not bound the queue, which holds any overflow until Run drains it.
// It mirrors queue_raw_pkt's tal_resize'd array: the peer never blocks
// queuing a message, just grows the backlog.
const outboxBufferSize = 50

// ChannelConfig carries the protocol constants accept_pkt_open checks
// against: the caller's daemon config layer feeds these in the way lnd's
// config.go feeds dstate.config into peer.go.
type ChannelConfig struct {
	// RelLocktimeMax is the largest relative delay, in seconds, this
	// node will accept the peer imposing on our commitment outputs.
	RelLocktimeMax uint32

	// AnchorConfirmsMax is the largest MinDepth this node will accept.
	AnchorConfirmsMax uint32

	// CommitmentFeeRateMin is the lowest initial commitment fee rate,
	// satoshis per kiloweight, this node will accept.
	CommitmentFeeRateMin uint64
}

// AnchorOffer indicates which side of a channel will fund its anchor
// output. Exactly one side offers WithAnchor.
type AnchorOffer uint8

const (
	// OfferWithAnchor means this node will create and fund the anchor.
	OfferWithAnchor AnchorOffer = iota

	// OfferWithoutAnchor means the counterparty will.
	OfferWithoutAnchor
)

// ClosingInfo tracks mutual-close fee negotiation and the scripts both
// sides want paid in the final settlement transaction.
type ClosingInfo struct {
	// OurFee is the fee, in satoshis, we last proposed.
	OurFee uint64

	// OurScript and TheirScript are the scriptPubkeys from each side's
	// CloseClearing.
	OurScript   []byte
	TheirScript []byte

	// TheirFee and TheirSig are set once the peer has offered a
	// signature for a specific fee.
	TheirFee uint64
	TheirSig *[64]byte
}

// Transport is the external collaborator that moves already-framed wire
// bytes to and from the peer. Encryption, authentication, and the
// underlying socket are all its concern, not this package's.
type Transport interface {
	Send([]byte) error
	Recv() ([]byte, error)
}

// Peer drives a single channel with a single counterparty: it owns both
// sides' commitment chains and staging state, the per-channel key
// material, the revocation preimage log, and the outbound message queue.
// There is no shared mutable state between two Peer values -- each is a
// self-contained value safe to run on its own goroutine or task.
type Peer struct {
	cfg ChannelConfig

	// OurOffer and TheirOffer record which side funds the anchor. They
	// must differ once both are known; see invariant 4 in spec.md.
	OurOffer       AnchorOffer
	TheirOffer     AnchorOffer
	haveTheirOffer bool

	ourMinDepth   uint32
	ourFeeRate    uint64
	theirMinDepth uint32
	theirFeeRate  uint64

	// State is the shared funding/commitment/staging state both
	// directions' commit construction reads and writes.
	State *lnwallet.PeerVisibleState

	secrets        *Secrets
	theirPreimages *shachain.Store

	// anchorInput is set only if we are the side funding the anchor.
	anchorInput *lnwallet.AnchorInput

	htlcIDCounter uint64

	// htlcExpiries maps a staged HTLC's id to its absolute expiry, for
	// HTLCs this side originated (we are the one who can time it out).
	htlcExpiries map[uint64]time.Time
	clk          clock.Clock

	outbox      *queue.ConcurrentQueue
	commitTimer ticker.Ticker

	closing ClosingInfo
	state   State

	quit chan struct{}
}

// Config bundles the arguments NewPeer needs to seed a fresh channel.
type Config struct {
	ChannelConfig ChannelConfig
	Offer         AnchorOffer

	OurCommitKey *btcec.PrivateKey
	OurFinalKey  *btcec.PrivateKey

	// ShaSeed is the 32-byte root this side derives every revocation
	// preimage it will ever disclose from.
	ShaSeed shachain.Hash

	// Delay is the relative locktime, in seconds, this side wants
	// imposed on the *counterparty's* commitment outputs.
	Delay uint32

	MinDepth       uint32
	InitialFeeRate uint64

	Clock clock.Clock
}

// NewPeer seeds a fresh, pre-open channel engine. The caller must still
// exchange Open/OpenAnchor/OpenCommitSig/OpenComplete (via Send*/Accept*)
// before the channel reaches StateNormal.
func NewPeer(cfg Config) *Peer {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	p := &Peer{
		cfg:         cfg.ChannelConfig,
		OurOffer:    cfg.Offer,
		ourMinDepth: cfg.MinDepth,
		ourFeeRate:  cfg.InitialFeeRate,
		State: &lnwallet.PeerVisibleState{
			OurDelay: cfg.Delay,
		},
		secrets:        NewSecrets(cfg.OurCommitKey, cfg.OurFinalKey, cfg.ShaSeed),
		theirPreimages: shachain.NewStore(),
		htlcExpiries:   make(map[uint64]time.Time),
		clk:            clk,
		outbox:         queue.NewConcurrentQueue(outboxBufferSize),
		commitTimer:    ticker.New(commitCoalesceInterval),
		state:          StateOpenWaitOpen,
		quit:           make(chan struct{}),
	}

	p.State.OurCommitKey = p.secrets.CommitKey.PubKey()
	p.State.OurFinalKey = p.secrets.FinalKey.PubKey()
	p.State.Anchor.OurMultiSigKey = p.State.OurCommitKey

	// The revocation hash we'll use for our very first commitment is
	// derived up front; SendOpen consumes it and immediately advances
	// OurNextRevocationHash to the one after it.
	p.State.OurNextRevocationHash = p.secrets.RevocationHash(0)

	p.outbox.Start()
	p.commitTimer.Pause()

	return p
}

// WithAnchorInput supplies the wallet UTXO this side will spend to fund
// the anchor. Only meaningful when OurOffer is OfferWithAnchor.
func (p *Peer) WithAnchorInput(in *lnwallet.AnchorInput) {
	p.anchorInput = in
}

// CurrentState returns the peer's current position in the
// open/normal/close state machine.
func (p *Peer) CurrentState() State {
	return p.state
}

// Stop halts the outbound queue and releases the channel's state as a
// single scoped resource, per spec.md 5's cancellation model.
func (p *Peer) Stop() {
	select {
	case <-p.quit:
		return
	default:
		close(p.quit)
	}
	p.outbox.Stop()
	p.commitTimer.Stop()
}

// Outbound returns the channel outbound wire messages are delivered on, in
// enqueue order. A transport loop drains this and writes each message's
// encoded form to the wire.
func (p *Peer) Outbound() <-chan interface{} {
	return p.outbox.ChanOut()
}

// enqueue appends msg to the outbound queue, waking anything waiting on
// Outbound(). Appending never blocks the caller on the transport itself.
func (p *Peer) enqueue(msg lnwire.Message) {
	log.Debugf("queued %T", msg)
	p.outbox.ChanIn() <- msg
}

// sendError enqueues an Error message carrying problem and transitions
// the channel to StateErrored. No further outbound messages are valid
// after this; the caller is expected to close the transport once it has
// drained the outbox.
func (p *Peer) sendError(problem string) {
	p.state = StateErrored
	p.enqueue(&lnwire.Error{Problem: problem})
}

// fail sends a ProtocolError's Problem as an Error message and returns the
// error so callers can propagate the teardown to whatever drives Dispatch.
func (p *Peer) fail(err *ProtocolError) error {
	p.sendError(err.Problem())
	return err
}

