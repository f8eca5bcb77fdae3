package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func newTestState() *ChannelState {
	return NewChannelState(5_000_000_000, 5_000_000_000, 5000)
}

func TestAddHtlcChargesPayer(t *testing.T) {
	cs := newTestState()

	var rhash [32]byte
	rhash[0] = 0x42

	err := cs.AddHtlc(Ours, 0, 100_000_000, rhash, 500000)
	require.NoError(t, err)
	require.EqualValues(t, 1, cs.Changes())
	require.Equal(t, MilliSatoshi(5_000_000_000-100_000_000), cs.OurBalanceMsat)
	require.Len(t, cs.Htlcs, 1)
}

func TestAddHtlcRejectsZeroAmount(t *testing.T) {
	cs := newTestState()
	err := cs.AddHtlc(Ours, 0, 0, [32]byte{}, 500000)
	require.Error(t, err)
}

func TestAddHtlcRejectsDuplicateID(t *testing.T) {
	cs := newTestState()
	require.NoError(t, cs.AddHtlc(Ours, 5, 1000, [32]byte{}, 1))
	err := cs.AddHtlc(Ours, 5, 1000, [32]byte{}, 1)
	require.Error(t, err)
}

func TestAddHtlcRejectsInsufficientBalance(t *testing.T) {
	cs := NewChannelState(100_000, 5_000_000_000, 5000)
	err := cs.AddHtlc(Ours, 0, 1_000_000_000, [32]byte{}, 1)
	require.Error(t, err)
}

func TestAddHtlcEnforcesMaxHTLCNumber(t *testing.T) {
	cs := newTestState()
	for i := 0; i < MaxHTLCNumber; i++ {
		require.NoError(t, cs.AddHtlc(Ours, uint64(i), 1000, [32]byte{}, 1))
	}
	err := cs.AddHtlc(Ours, MaxHTLCNumber, 1000, [32]byte{}, 1)
	require.Error(t, err)
	require.Equal(t, MaxHTLCNumber, cs.CountBySide(Ours))
}

func TestFulfillHtlcCreditsPayee(t *testing.T) {
	cs := newTestState()

	preimage := [32]byte{1, 2, 3}
	rhash := chainhash.Hash(chainhash.HashH(preimage[:]))

	require.NoError(t, cs.AddHtlc(Ours, 9, 250_000, rhash, 1))
	theirBalBefore := cs.TheirBalanceMsat

	require.NoError(t, cs.FulfillHtlc(Ours, 9, preimage))
	require.Equal(t, theirBalBefore+250_000, cs.TheirBalanceMsat)
	require.Nil(t, cs.HtlcByID(Ours, 9))
}

func TestFulfillHtlcRejectsBadPreimage(t *testing.T) {
	cs := newTestState()

	preimage := [32]byte{1, 2, 3}
	rhash := chainhash.Hash(chainhash.HashH(preimage[:]))
	require.NoError(t, cs.AddHtlc(Ours, 9, 250_000, rhash, 1))

	htlcsBefore := len(cs.Htlcs)
	bogus := preimage
	bogus[0] ^= 0xff

	err := cs.FulfillHtlc(Ours, 9, bogus)
	require.Error(t, err)
	// The htlc must still be staged -- a rejected fulfill must not mutate
	// anything.
	require.Len(t, cs.Htlcs, htlcsBefore)
	require.NotNil(t, cs.HtlcByID(Ours, 9))
}

func TestFailHtlcRefundsPayer(t *testing.T) {
	cs := newTestState()
	ourBalBefore := cs.OurBalanceMsat

	require.NoError(t, cs.AddHtlc(Ours, 3, 400_000, [32]byte{}, 1))
	require.NoError(t, cs.FailHtlc(Ours, 3))

	require.Equal(t, ourBalBefore, cs.OurBalanceMsat)
	require.Nil(t, cs.HtlcByID(Ours, 3))
}

func TestCopyIsIndependent(t *testing.T) {
	cs := newTestState()
	require.NoError(t, cs.AddHtlc(Ours, 1, 1000, [32]byte{}, 1))

	cpy := cs.Copy()
	require.NoError(t, cpy.AddHtlc(Ours, 2, 1000, [32]byte{}, 1))

	require.Len(t, cs.Htlcs, 1)
	require.Len(t, cpy.Htlcs, 2)
	require.Equal(t, cs.Changes(), uint64(1))
	require.Equal(t, cpy.Changes(), uint64(2))
}

