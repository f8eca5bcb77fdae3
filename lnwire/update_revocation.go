package lnwire

import "io"

// UpdateRevocation discloses the preimage for a commitment just
// superseded, and advertises the revocation hash the sender will use
// for its next commitment.
type UpdateRevocation struct {
	RevocationPreimage [32]byte
	NextRevocationHash [32]byte
}

var _ Message = (*UpdateRevocation)(nil)

func (u *UpdateRevocation) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.RevocationPreimage, &u.NextRevocationHash)
}

func (u *UpdateRevocation) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.RevocationPreimage, u.NextRevocationHash)
}

func (u *UpdateRevocation) MsgType() MessageType {
	return MsgUpdateRevocation
}

func (u *UpdateRevocation) MaxPayloadLength(uint32) uint32 {
	// 32 + 32
	return 64
}
