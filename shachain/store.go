package shachain

import "fmt"

// element is a single stored (index, hash) pair, bucketed by the number of
// trailing zero bits in its index -- which is also exactly how far forward
// (towards larger indices sharing its high bits) it can derive.
type element struct {
	index uint64
	hash  Hash
}

// Store is the receiver side of shachain: a fixed-capacity log of revocation
// preimages disclosed by the peer. It never grows past 65 entries (one per
// possible trailing-zero-count, 0..64) regardless of how many preimages are
// inserted, and can reconstruct any previously inserted preimage from its
// ancestors.
type Store struct {
	buckets [maxHeight + 1]*element
}

// NewStore returns an empty preimage log.
func NewStore() *Store {
	return &Store{}
}

// ErrInconsistentPreimage is returned by Insert when the supplied preimage
// does not hash/derive consistently with a preimage already on file --
// meaning either the peer or this store has diverged from the shachain.
var ErrInconsistentPreimage = fmt.Errorf("shachain: preimage inconsistent with stored tree")

// ErrNoAncestor is returned by LookupPreimage when no stored element can
// derive the requested index.
var ErrNoAncestor = fmt.Errorf("shachain: no stored element can derive index")

// Insert stores a newly-disclosed preimage at the given index. For every
// already-stored element with strictly less reach than the new preimage's
// bucket, the new preimage is derived forward to that element's index and
// checked against the stored hash; any mismatch means the new preimage does
// not belong to the
// same tree and is rejected before it can corrupt the log.
func (s *Store) Insert(index uint64, hash Hash) error {
	bucket := trailingZeros(index)
	for b := uint8(0); b < bucket; b++ {
		e := s.buckets[b]
		if e == nil {
			continue
		}
		if derive(hash, index, e.index) != e.hash {
			return ErrInconsistentPreimage
		}
	}
	s.buckets[bucket] = &element{index: index, hash: hash}
	return nil
}

// LookupPreimage reconstructs the preimage at index from the closest stored
// ancestor, if one exists. Because every stored element's bucket records
// its derivation reach, this never needs more than ceil(log2(N)) of the
// stored elements to succeed for any of the N previously inserted indices.
func (s *Store) LookupPreimage(index uint64) (*Hash, error) {
	for b := len(s.buckets) - 1; b >= 0; b-- {
		e := s.buckets[b]
		if e == nil {
			continue
		}
		if e.index == index {
			h := e.hash
			return &h, nil
		}
		reach := uint8(b)
		var mask uint64
		if reach < 64 {
			mask = ^((uint64(1) << reach) - 1)
		}
		if (index^e.index)&mask == 0 {
			h := derive(e.hash, e.index, index)
			return &h, nil
		}
	}
	return nil, ErrNoAncestor
}

// Count returns the number of buckets currently occupied -- always <= 65.
func (s *Store) Count() int {
	n := 0
	for _, e := range s.buckets {
		if e != nil {
			n++
		}
	}
	return n
}

// ToBytes and StoreFromBytes, the store's persisted encoding, live in
// serdes.go alongside the rest of this package's wire format.
