package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Open is the first message sent when establishing a new channel. It
// carries the sender's keys, the revocation hash for their very first
// commitment, and the channel parameters (delay, minimum anchor depth,
// initial fee rate, and whether the sender will fund the anchor).
type Open struct {
	RevocationHash     [32]byte
	NextRevocationHash [32]byte
	CommitKey          *btcec.PublicKey
	FinalKey           *btcec.PublicKey

	// Delay is the relative locktime, in seconds, the sender wants
	// imposed on the other side's commitment outputs.
	Delay uint32

	// MinDepth is the number of confirmations the sender wants on the
	// anchor transaction before treating the channel as usable.
	MinDepth uint32

	// InitialFeeRate is the commitment fee rate, in satoshis per
	// kilo-weight, the sender is proposing.
	InitialFeeRate uint64

	AnchorOffer AnchorOffer
}

var _ Message = (*Open)(nil)

func (o *Open) Decode(r io.Reader, pver uint32) error {
	return readElements(r,
		&o.RevocationHash,
		&o.NextRevocationHash,
		&o.CommitKey,
		&o.FinalKey,
		&o.Delay,
		&o.MinDepth,
		&o.InitialFeeRate,
		&o.AnchorOffer,
	)
}

func (o *Open) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		o.RevocationHash,
		o.NextRevocationHash,
		o.CommitKey,
		o.FinalKey,
		o.Delay,
		o.MinDepth,
		o.InitialFeeRate,
		o.AnchorOffer,
	)
}

func (o *Open) MsgType() MessageType {
	return MsgOpen
}

func (o *Open) MaxPayloadLength(uint32) uint32 {
	// 32 + 32 + 33 + 33 + 4 + 4 + 8 + 1
	return 147
}
