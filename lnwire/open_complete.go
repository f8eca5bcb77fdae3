package lnwire

import "io"

// OpenComplete signals that the sender has seen the anchor reach its
// minimum depth and considers the channel ready for normal operation.
// It carries no payload.
type OpenComplete struct{}

var _ Message = (*OpenComplete)(nil)

func (o *OpenComplete) Decode(r io.Reader, pver uint32) error {
	return nil
}

func (o *OpenComplete) Encode(w io.Writer, pver uint32) error {
	return nil
}

func (o *OpenComplete) MsgType() MessageType {
	return MsgOpenComplete
}

func (o *OpenComplete) MaxPayloadLength(uint32) uint32 {
	return 0
}
