package lnwire

import "io"

// OpenAnchor is sent by whichever side offered to fund the anchor,
// identifying the on-chain transaction the other side should watch for
// confirmations before considering the channel open.
type OpenAnchor struct {
	TxID        [32]byte
	OutputIndex uint32
	Amount      uint64
}

var _ Message = (*OpenAnchor)(nil)

func (a *OpenAnchor) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &a.TxID, &a.OutputIndex, &a.Amount)
}

func (a *OpenAnchor) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, a.TxID, a.OutputIndex, a.Amount)
}

func (a *OpenAnchor) MsgType() MessageType {
	return MsgOpenAnchor
}

func (a *OpenAnchor) MaxPayloadLength(uint32) uint32 {
	// 32 + 4 + 8
	return 44
}
