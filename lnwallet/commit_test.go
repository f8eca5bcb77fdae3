package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// testCommitFixture wires up a minimal two-party PeerVisibleState with real
// secp256k1 keys, suitable for signing and verifying commitment transactions.
type testCommitFixture struct {
	pvs        *PeerVisibleState
	ourPriv    *btcec.PrivateKey
	theirPriv  *btcec.PrivateKey
}

func newTestCommitFixture(t *testing.T) *testCommitFixture {
	t.Helper()

	ourPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	theirPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pvs := NewPeerVisibleState(5_000_000_000, 5_000_000_000, 5000, 144, 144)
	pvs.OurCommitKey = ourPriv.PubKey()
	pvs.TheirCommitKey = theirPriv.PubKey()

	redeemScript, err := AnchorWitnessScript(pvs.OurCommitKey, pvs.TheirCommitKey)
	require.NoError(t, err)
	pvs.Anchor.WitnessScript = redeemScript
	pvs.Anchor.Amount = 10_000_000
	pvs.Anchor.TxID = chainhash.Hash{0x01}
	pvs.Anchor.OutputIndex = 0

	return &testCommitFixture{pvs: pvs, ourPriv: ourPriv, theirPriv: theirPriv}
}

func TestCreateCommitTxPaysBothSides(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	tx, err := CreateCommitTx(f.pvs, Ours, [32]byte{0x02}, cstate)
	require.NoError(t, err)
	require.Len(t, tx.TxIn, 1)
	require.Len(t, tx.TxOut, 2)
}

func TestCreateCommitTxOmitsDustOutput(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 0, 5000)

	tx, err := CreateCommitTx(f.pvs, Ours, [32]byte{0x02}, cstate)
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 1)
}

func TestCreateCommitTxRejectsFeeExceedingBalance(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(0, 5_000_000_000, 5000)

	_, err := CreateCommitTx(f.pvs, Ours, [32]byte{0x02}, cstate)
	require.Error(t, err)
}

func TestCreateCommitTxAddsOneOutputPerHtlc(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)
	require.NoError(t, cstate.AddHtlc(Ours, 0, 100_000_000, [32]byte{0x03}, 500_000))

	tx, err := CreateCommitTx(f.pvs, Ours, [32]byte{0x02}, cstate)
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 3)
}

func TestCreateCommitInfoSignsAndChains(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	first, err := CreateCommitInfo(f.theirPriv, f.pvs, Ours, nil, [32]byte{0x02}, cstate)
	require.NoError(t, err)
	require.EqualValues(t, 0, first.CommitNum)
	require.NotNil(t, first.Sig)
	require.Nil(t, first.Prev)

	require.NoError(t, cstate.AddHtlc(Ours, 0, 100_000_000, [32]byte{0x03}, 500_000))
	second, err := CreateCommitInfo(f.theirPriv, f.pvs, Ours, first, [32]byte{0x04}, cstate)
	require.NoError(t, err)
	require.EqualValues(t, 1, second.CommitNum)
	require.Same(t, first, second.Prev)
}

func TestCreateCommitInfoRejectsEmptyCommit(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	first, err := CreateCommitInfo(f.theirPriv, f.pvs, Ours, nil, [32]byte{0x02}, cstate)
	require.NoError(t, err)

	_, err = CreateCommitInfo(f.theirPriv, f.pvs, Ours, first, [32]byte{0x05}, cstate)
	require.Error(t, err)
}

func TestCreateCommitInfoWithoutPrivKeyLeavesSigNil(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	ci, err := CreateCommitInfo(nil, f.pvs, Ours, nil, [32]byte{0x02}, cstate)
	require.NoError(t, err)
	require.Nil(t, ci.Sig)
}

func TestVerifyCommitSigRoundTrip(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	// Theirs signs Ours' commitment, exactly as the non-funder signs the
	// funder's very first commit during the open handshake.
	ci, err := CreateCommitInfo(f.theirPriv, f.pvs, Ours, nil, [32]byte{0x02}, cstate)
	require.NoError(t, err)

	err = VerifyCommitSig(f.pvs, ci, f.pvs.TheirCommitKey, *ci.Sig)
	require.NoError(t, err)
}

func TestVerifyCommitSigRejectsWrongKey(t *testing.T) {
	f := newTestCommitFixture(t)
	cstate := NewChannelState(5_000_000_000, 5_000_000_000, 5000)

	ci, err := CreateCommitInfo(f.theirPriv, f.pvs, Ours, nil, [32]byte{0x02}, cstate)
	require.NoError(t, err)

	err = VerifyCommitSig(f.pvs, ci, f.pvs.OurCommitKey, *ci.Sig)
	require.Error(t, err)
}

func TestVerifyRevocationPreimage(t *testing.T) {
	preimage := [32]byte{7, 7, 7}
	hash := chainhash.HashH(preimage[:])

	require.True(t, VerifyRevocationPreimage(preimage, hash))

	bogus := preimage
	bogus[0] ^= 0xff
	require.False(t, VerifyRevocationPreimage(bogus, hash))
}
