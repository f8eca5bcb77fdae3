package lnwire

import "io"

// UpdateFailHtlc resolves a previously added HTLC without payment,
// carrying an opaque, possibly onion-encrypted failure reason.
type UpdateFailHtlc struct {
	ID     uint64
	Reason []byte
}

var _ Message = (*UpdateFailHtlc)(nil)

func (u *UpdateFailHtlc) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.ID, &u.Reason)
}

func (u *UpdateFailHtlc) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.ID, u.Reason)
}

func (u *UpdateFailHtlc) MsgType() MessageType {
	return MsgUpdateFailHtlc
}

func (u *UpdateFailHtlc) MaxPayloadLength(uint32) uint32 {
	// 8 + (2 + MaxSliceLength)
	return 8 + 2 + MaxSliceLength
}
