package lnwire

import "io"

// CloseClearing begins mutual close negotiation by announcing the
// output script the sender wants paid in the final settlement
// transaction.
type CloseClearing struct {
	ScriptPubkey []byte
}

var _ Message = (*CloseClearing)(nil)

func (c *CloseClearing) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &c.ScriptPubkey)
}

func (c *CloseClearing) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, c.ScriptPubkey)
}

func (c *CloseClearing) MsgType() MessageType {
	return MsgCloseClearing
}

func (c *CloseClearing) MaxPayloadLength(uint32) uint32 {
	return 2 + MaxSliceLength
}
