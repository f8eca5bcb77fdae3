package lnwire

import "io"

// OpenCommitSig carries the signature over the funder's very first
// commitment transaction, sent once the anchor has reached its
// negotiated confirmation depth.
type OpenCommitSig struct {
	// Sig is a 64-byte compact (r, s) ECDSA signature.
	Sig [64]byte
}

var _ Message = (*OpenCommitSig)(nil)

func (o *OpenCommitSig) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &o.Sig)
}

func (o *OpenCommitSig) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, o.Sig)
}

func (o *OpenCommitSig) MsgType() MessageType {
	return MsgOpenCommitSig
}

func (o *OpenCommitSig) MaxPayloadLength(uint32) uint32 {
	return 64
}
