package channeldb

import (
	"bytes"
	"fmt"
)

// HtlcSnapshot is the persisted form of a single staged HTLC.
type HtlcSnapshot struct {
	ID         uint64
	Side       uint8
	AmountMsat uint64
	RHash      [32]byte
	Expiry     uint32
}

func (h HtlcSnapshot) encode(buf *bytes.Buffer) error {
	if err := writeFixed(buf, h.ID); err != nil {
		return err
	}
	if err := writeFixed(buf, h.Side); err != nil {
		return err
	}
	if err := writeFixed(buf, h.AmountMsat); err != nil {
		return err
	}
	if err := writeFixed(buf, h.RHash); err != nil {
		return err
	}
	return writeFixed(buf, h.Expiry)
}

func decodeHtlc(buf *bytes.Buffer) (HtlcSnapshot, error) {
	var h HtlcSnapshot
	for _, err := range []error{
		readFixed(buf, &h.ID),
		readFixed(buf, &h.Side),
		readFixed(buf, &h.AmountMsat),
		readFixed(buf, &h.RHash),
		readFixed(buf, &h.Expiry),
	} {
		if err != nil {
			return h, err
		}
	}
	return h, nil
}

// CommitSnapshot is the persisted form of one side's head CommitInfo: just
// enough to rebuild the runtime CommitInfo (and, by resigning or
// re-verifying, its transaction) without needing the transaction's raw
// bytes on disk.
type CommitSnapshot struct {
	CommitNum        uint64
	RevocationHash   [32]byte
	OurBalanceMsat   uint64
	TheirBalanceMsat uint64
	FeeRate          uint64
	Htlcs            []HtlcSnapshot

	HasSig bool
	Sig    [64]byte

	HasPreimage bool
	Preimage    [32]byte
}

func (c *CommitSnapshot) encode(buf *bytes.Buffer) error {
	if c == nil {
		return writeFixed(buf, uint8(0))
	}
	if err := writeFixed(buf, uint8(1)); err != nil {
		return err
	}

	fields := []interface{}{
		c.CommitNum, c.RevocationHash, c.OurBalanceMsat,
		c.TheirBalanceMsat, c.FeeRate,
	}
	for _, f := range fields {
		if err := writeFixed(buf, f); err != nil {
			return err
		}
	}

	if err := writeFixed(buf, uint16(len(c.Htlcs))); err != nil {
		return err
	}
	for _, h := range c.Htlcs {
		if err := h.encode(buf); err != nil {
			return err
		}
	}

	if err := writeFixed(buf, c.HasSig); err != nil {
		return err
	}
	if c.HasSig {
		if err := writeFixed(buf, c.Sig); err != nil {
			return err
		}
	}

	if err := writeFixed(buf, c.HasPreimage); err != nil {
		return err
	}
	if c.HasPreimage {
		if err := writeFixed(buf, c.Preimage); err != nil {
			return err
		}
	}

	return nil
}

func decodeCommit(buf *bytes.Buffer) (*CommitSnapshot, error) {
	var present uint8
	if err := readFixed(buf, &present); err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}

	c := &CommitSnapshot{}
	fields := []interface{}{
		&c.CommitNum, &c.RevocationHash, &c.OurBalanceMsat,
		&c.TheirBalanceMsat, &c.FeeRate,
	}
	for _, f := range fields {
		if err := readFixed(buf, f); err != nil {
			return nil, err
		}
	}

	var n uint16
	if err := readFixed(buf, &n); err != nil {
		return nil, err
	}
	c.Htlcs = make([]HtlcSnapshot, n)
	for i := range c.Htlcs {
		h, err := decodeHtlc(buf)
		if err != nil {
			return nil, err
		}
		c.Htlcs[i] = h
	}

	if err := readFixed(buf, &c.HasSig); err != nil {
		return nil, err
	}
	if c.HasSig {
		if err := readFixed(buf, &c.Sig); err != nil {
			return nil, err
		}
	}

	if err := readFixed(buf, &c.HasPreimage); err != nil {
		return nil, err
	}
	if c.HasPreimage {
		if err := readFixed(buf, &c.Preimage); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ChannelSnapshot is everything about a single channel this package
// persists: key material, negotiated parameters, each side's head
// commitment, and any in-progress close negotiation.
type ChannelSnapshot struct {
	ShaSeed       [32]byte
	OurCommitPriv [32]byte
	OurFinalPriv  [32]byte

	// TheirCommitPub and TheirFinalPub are nil until the peer's Open has
	// been processed.
	TheirCommitPub []byte
	TheirFinalPub  []byte

	OurDelay, TheirDelay       uint32
	OurMinDepth, TheirMinDepth uint32
	OurFeeRate, TheirFeeRate   uint64
	OurOffer, TheirOffer       uint8
	HaveTheirOffer             bool

	AnchorTxID        [32]byte
	AnchorOutputIndex uint32
	AnchorAmount      int64

	OurNextRevocationHash   [32]byte
	TheirNextRevocationHash [32]byte

	Ours   *CommitSnapshot
	Theirs *CommitSnapshot

	ClosingOurScript, ClosingTheirScript []byte
	ClosingOurFee, ClosingTheirFee       uint64

	State         uint8
	HtlcIDCounter uint64
}

// ToBytes serializes the snapshot.
func (s *ChannelSnapshot) ToBytes() ([]byte, error) {
	var buf bytes.Buffer

	fixed := []interface{}{
		s.ShaSeed, s.OurCommitPriv, s.OurFinalPriv,
		s.OurDelay, s.TheirDelay, s.OurMinDepth, s.TheirMinDepth,
		s.OurFeeRate, s.TheirFeeRate, s.OurOffer, s.TheirOffer,
		s.HaveTheirOffer, s.AnchorTxID, s.AnchorOutputIndex, s.AnchorAmount,
		s.OurNextRevocationHash, s.TheirNextRevocationHash,
		s.ClosingOurFee, s.ClosingTheirFee, s.State, s.HtlcIDCounter,
	}
	for _, f := range fixed {
		if err := writeFixed(&buf, f); err != nil {
			return nil, err
		}
	}

	for _, b := range [][]byte{
		s.TheirCommitPub, s.TheirFinalPub,
		s.ClosingOurScript, s.ClosingTheirScript,
	} {
		if err := writeBytes(&buf, b); err != nil {
			return nil, err
		}
	}

	if err := s.Ours.encode(&buf); err != nil {
		return nil, err
	}
	if err := s.Theirs.encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// SnapshotFromBytes deserializes a ChannelSnapshot produced by ToBytes.
func SnapshotFromBytes(b []byte) (*ChannelSnapshot, error) {
	buf := bytes.NewBuffer(b)
	s := &ChannelSnapshot{}

	fixed := []interface{}{
		&s.ShaSeed, &s.OurCommitPriv, &s.OurFinalPriv,
		&s.OurDelay, &s.TheirDelay, &s.OurMinDepth, &s.TheirMinDepth,
		&s.OurFeeRate, &s.TheirFeeRate, &s.OurOffer, &s.TheirOffer,
		&s.HaveTheirOffer, &s.AnchorTxID, &s.AnchorOutputIndex, &s.AnchorAmount,
		&s.OurNextRevocationHash, &s.TheirNextRevocationHash,
		&s.ClosingOurFee, &s.ClosingTheirFee, &s.State, &s.HtlcIDCounter,
	}
	for _, f := range fixed {
		if err := readFixed(buf, f); err != nil {
			return nil, fmt.Errorf("channeldb: decoding snapshot: %w", err)
		}
	}

	ptrs := []*[]byte{
		&s.TheirCommitPub, &s.TheirFinalPub,
		&s.ClosingOurScript, &s.ClosingTheirScript,
	}
	for _, p := range ptrs {
		v, err := readBytes(buf)
		if err != nil {
			return nil, err
		}
		*p = v
	}

	ours, err := decodeCommit(buf)
	if err != nil {
		return nil, err
	}
	s.Ours = ours

	theirs, err := decodeCommit(buf)
	if err != nil {
		return nil, err
	}
	s.Theirs = theirs

	return s, nil
}
