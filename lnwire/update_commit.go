package lnwire

import "io"

// UpdateCommit signs a new commitment transaction that folds in every
// change staged since the last commit.
type UpdateCommit struct {
	Sig [64]byte
}

var _ Message = (*UpdateCommit)(nil)

func (u *UpdateCommit) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &u.Sig)
}

func (u *UpdateCommit) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, u.Sig)
}

func (u *UpdateCommit) MsgType() MessageType {
	return MsgUpdateCommit
}

func (u *UpdateCommit) MaxPayloadLength(uint32) uint32 {
	return 64
}
