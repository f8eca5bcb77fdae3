package shachain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProducerDeterministic(t *testing.T) {
	p := NewProducer(Hash{1, 2, 3})

	h1 := p.AtIndex(42)
	h2 := p.AtIndex(42)
	require.Equal(t, h1, h2)

	h3 := p.AtIndex(43)
	require.NotEqual(t, h1, h3)
}

func TestStoreReconstructsEveryInsertedIndex(t *testing.T) {
	p := NewProducer(Hash{9, 9, 9})
	s := NewStore()

	const n = 300
	for i := uint64(0); i < n; i++ {
		// Descending key, as used for the per-channel revocation log.
		index := ^uint64(0) - i
		require.NoError(t, s.Insert(index, p.AtIndex(index)))
	}

	for i := uint64(0); i < n; i++ {
		index := ^uint64(0) - i
		got, err := s.LookupPreimage(index)
		require.NoError(t, err)
		require.Equal(t, p.AtIndex(index), *got)
	}

	require.LessOrEqual(t, s.Count(), 64)
}

func TestStoreRejectsInconsistentPreimage(t *testing.T) {
	p := NewProducer(Hash{4, 5, 6})
	s := NewStore()

	require.NoError(t, s.Insert(101, p.AtIndex(101)))

	bogus := p.AtIndex(100)
	bogus[0] ^= 0xff
	err := s.Insert(100, bogus)
	require.ErrorIs(t, err, ErrInconsistentPreimage)
}

func TestStoreLookupMissingAncestor(t *testing.T) {
	s := NewStore()
	_, err := s.LookupPreimage(7)
	require.ErrorIs(t, err, ErrNoAncestor)
}

func TestSerdesRoundTrip(t *testing.T) {
	p := NewProducer(Hash{7, 7, 7})
	s := NewStore()
	for i := uint64(0); i < 50; i++ {
		index := ^uint64(0) - i
		require.NoError(t, s.Insert(index, p.AtIndex(index)))
	}

	b, err := s.ToBytes()
	require.NoError(t, err)

	s2, err := StoreFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, s.Count(), s2.Count())

	for i := uint64(0); i < 50; i++ {
		index := ^uint64(0) - i
		got, err := s2.LookupPreimage(index)
		require.NoError(t, err)
		require.Equal(t, p.AtIndex(index), *got)
	}
}

func TestProducerSerdesRoundTrip(t *testing.T) {
	p := NewProducer(Hash{1, 1, 1})
	p2, err := ProducerFromBytes(p.ToBytes())
	require.NoError(t, err)
	require.Equal(t, p.AtIndex(5), p2.AtIndex(5))
}
