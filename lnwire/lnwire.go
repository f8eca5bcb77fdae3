package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// MaxSliceLength is the maximum length of a single variable-length byte
// slice (route blobs, failure reasons, close scripts) this codec will ever
// read off the wire, regardless of what the message's own MaxPayloadLength
// would otherwise allow.
const MaxSliceLength = 65535

// AnchorOffer indicates whether a peer intends to fund the channel's 2-of-2
// anchor output. Exactly one side of every channel must offer WILL.
type AnchorOffer uint8

const (
	AnchorOfferWill AnchorOffer = iota
	AnchorOfferWont
)

func (a AnchorOffer) String() string {
	if a == AnchorOfferWill {
		return "will-create-anchor"
	}
	return "wont-create-anchor"
}

// writeElement serializes a single field into w using the fixed-width wire
// encoding for its type. This mirrors the teacher's readElement/writeElement
// pair, extended with the handful of extra types this protocol's messages
// need (AnchorOffer, []byte with a length prefix).
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		if _, err := w.Write([]byte{e}); err != nil {
			return err
		}
	case uint32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], e)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	case uint64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], e)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	case MilliSatoshi:
		return writeElement(w, uint64(e))
	case AnchorOffer:
		return writeElement(w, uint8(e))
	case [32]byte:
		if _, err := w.Write(e[:]); err != nil {
			return err
		}
	case [64]byte:
		if _, err := w.Write(e[:]); err != nil {
			return err
		}
	case *btcec.PublicKey:
		if e == nil {
			return fmt.Errorf("lnwire: cannot serialize nil pubkey")
		}
		if _, err := w.Write(e.SerializeCompressed()); err != nil {
			return err
		}
	case []byte:
		if len(e) > MaxSliceLength {
			return fmt.Errorf("lnwire: slice of length %d exceeds max %d",
				len(e), MaxSliceLength)
		}
		if err := writeElement(w, uint16(len(e))); err != nil {
			return err
		}
		if _, err := w.Write(e); err != nil {
			return err
		}
	case string:
		return writeElement(w, []byte(e))
	case uint16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], e)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("lnwire: unknown type %T", e)
	}
	return nil
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = b[0]
	case *uint16:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint16(b[:])
	case *uint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint32(b[:])
	case *uint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = binary.BigEndian.Uint64(b[:])
	case *MilliSatoshi:
		var v uint64
		if err := readElement(r, &v); err != nil {
			return err
		}
		*e = MilliSatoshi(v)
	case *AnchorOffer:
		var v uint8
		if err := readElement(r, &v); err != nil {
			return err
		}
		*e = AnchorOffer(v)
	case *[32]byte:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}
	case *[64]byte:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}
	case **btcec.PublicKey:
		var raw [33]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return err
		}
		pub, err := btcec.ParsePubKey(raw[:])
		if err != nil {
			return fmt.Errorf("lnwire: invalid compressed pubkey: %w", err)
		}
		*e = pub
	case *[]byte:
		var length uint16
		if err := readElement(r, &length); err != nil {
			return err
		}
		if int(length) > MaxSliceLength {
			return fmt.Errorf("lnwire: slice of length %d exceeds max %d",
				length, MaxSliceLength)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		*e = buf
	case *string:
		var raw []byte
		if err := readElement(r, &raw); err != nil {
			return err
		}
		*e = string(raw)
	default:
		return fmt.Errorf("lnwire: unknown type %T", e)
	}
	return nil
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}
