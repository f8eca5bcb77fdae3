package lnwire

import "io"

// Error carries a human-readable description of why the channel is
// being torn down. It is always the last message sent before the
// connection to the peer is closed.
type Error struct {
	Problem string
}

var _ Message = (*Error)(nil)

func (e *Error) Decode(r io.Reader, pver uint32) error {
	return readElements(r, &e.Problem)
}

func (e *Error) Encode(w io.Writer, pver uint32) error {
	return writeElements(w, e.Problem)
}

func (e *Error) MsgType() MessageType {
	return MsgError
}

func (e *Error) MaxPayloadLength(uint32) uint32 {
	return 2 + MaxSliceLength
}
