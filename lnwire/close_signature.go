package lnwire

import "io"

// CloseSignature proposes a closing fee and signs the resulting
// mutual-close transaction. Negotiation repeats until both sides
// settle on the same fee.
type CloseSignature struct {
	CloseFee uint64
	Sig      [64]byte
}

var _ Message = (*CloseSignature)(nil)

func (c *CloseSignature) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &c.CloseFee, &c.Sig)
}

func (c *CloseSignature) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, c.CloseFee, c.Sig)
}

func (c *CloseSignature) MsgType() MessageType {
	return MsgCloseSignature
}

func (c *CloseSignature) MaxPayloadLength(uint32) uint32 {
	// 8 + 64
	return 72
}
