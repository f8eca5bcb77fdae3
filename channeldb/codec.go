// Package channeldb persists the durable half of a channel's state: the
// shachain seed, per-channel key material, each side's head commitment,
// and any in-progress mutual close negotiation. Everything else -- the
// working staging states, the outbound message queue, in-flight timers --
// is runtime-only and rebuilt fresh whenever a channel resumes.
package channeldb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// writeBytes appends a uint16 length prefix followed by b. Every
// variable-length field in this package's wire format uses this shape, the
// same convention lnwire's writeElement uses for route blobs and scripts.
func writeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > 65535 {
		return fmt.Errorf("channeldb: field of length %d exceeds max 65535", len(b))
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := buf.Write(b)
	return err
}

// readBytes reads a length-prefixed byte slice written by writeBytes.
func readBytes(buf *bytes.Buffer) ([]byte, error) {
	var length uint16
	if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeFixed writes a fixed-size array or integer field.
func writeFixed(buf *bytes.Buffer, v interface{}) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// readFixed reads a fixed-size array or integer field into v, which must be
// a pointer.
func readFixed(buf *bytes.Buffer, v interface{}) error {
	return binary.Read(buf, binary.BigEndian, v)
}
