package lnwire

import "io"

// UpdateAddHtlc stages a new HTLC for inclusion in the next commitment.
// Route is an opaque onion blob this layer never inspects.
type UpdateAddHtlc struct {
	ID        uint64
	AmountMsat MilliSatoshi
	RHash     [32]byte
	Expiry    uint32
	Route     []byte
}

var _ Message = (*UpdateAddHtlc)(nil)

func (u *UpdateAddHtlc) Decode(r io.Reader, pver uint32) error {
	return readElements(r,
		&u.ID,
		&u.AmountMsat,
		&u.RHash,
		&u.Expiry,
		&u.Route,
	)
}

func (u *UpdateAddHtlc) Encode(w io.Writer, pver uint32) error {
	return writeElements(w,
		u.ID,
		u.AmountMsat,
		u.RHash,
		u.Expiry,
		u.Route,
	)
}

func (u *UpdateAddHtlc) MsgType() MessageType {
	return MsgUpdateAddHtlc
}

func (u *UpdateAddHtlc) MaxPayloadLength(uint32) uint32 {
	// 8 + 8 + 32 + 4 + (2 + MaxSliceLength)
	return 8 + 8 + 32 + 4 + 2 + MaxSliceLength
}
