package shachain

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Serialization for Store: a count byte followed by that many 41-byte
// records (1 byte bucket, 8 byte index, 32 byte hash). Mirrors the layout
// the teacher's elkrem package used for its receiver tree.

const recordSize = 1 + 8 + 32

// ToBytes serializes the store's occupied buckets in bucket order.
func (s *Store) ToBytes() ([]byte, error) {
	var buf bytes.Buffer

	n := uint8(s.Count())
	if err := binary.Write(&buf, binary.BigEndian, n); err != nil {
		return nil, err
	}

	for bucket, e := range s.buckets {
		if e == nil {
			continue
		}
		if err := binary.Write(&buf, binary.BigEndian, uint8(bucket)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, e.index); err != nil {
			return nil, err
		}
		if _, err := buf.Write(e.hash[:]); err != nil {
			return nil, err
		}
	}

	if buf.Len() != int(n)*recordSize+1 {
		return nil, fmt.Errorf("shachain: wrote wrong size buffer, got %d", buf.Len())
	}
	return buf.Bytes(), nil
}

// StoreFromBytes deserializes a Store produced by ToBytes.
func StoreFromBytes(b []byte) (*Store, error) {
	s := NewStore()
	if len(b) == 0 {
		return s, nil
	}

	buf := bytes.NewBuffer(b)
	count, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if buf.Len() != int(count)*recordSize {
		return nil, fmt.Errorf("shachain: expected %d remaining bytes, got %d",
			int(count)*recordSize, buf.Len())
	}

	for i := 0; i < int(count); i++ {
		bucket, err := buf.ReadByte()
		if err != nil {
			return nil, err
		}
		if bucket > maxHeight {
			return nil, fmt.Errorf("shachain: invalid bucket %d", bucket)
		}

		var index uint64
		if err := binary.Read(buf, binary.BigEndian, &index); err != nil {
			return nil, err
		}

		var h Hash
		copy(h[:], buf.Next(32))

		s.buckets[bucket] = &element{index: index, hash: h}
	}
	return s, nil
}
