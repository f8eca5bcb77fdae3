package lnwire

import "io"

// UpdateFulfillHtlc resolves a previously added HTLC by revealing the
// payment preimage.
type UpdateFulfillHtlc struct {
	ID uint64
	R  [32]byte
}

var _ Message = (*UpdateFulfillHtlc)(nil)

func (u *UpdateFulfillHtlc) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ID, &u.R)
}

func (u *UpdateFulfillHtlc) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ID, u.R)
}

func (u *UpdateFulfillHtlc) MsgType() MessageType {
	return MsgUpdateFulfillHtlc
}

func (u *UpdateFulfillHtlc) MaxPayloadLength(uint32) uint32 {
	// 8 + 32
	return 40
}
