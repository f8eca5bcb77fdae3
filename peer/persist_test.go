package peer

import (
	"testing"

	"github.com/lightningnetwork/lnchannel/lnwire"
	"github.com/stretchr/testify/require"
)

func TestSnapshotResumeRoundTrip(t *testing.T) {
	funder, other := handshakePeers(t)

	_, err := funder.AddHTLC(100_000_000, [32]byte{1}, 500000)
	require.NoError(t, err)
	require.NoError(t, other.AcceptHTLCAdd(recvOne(t, funder).(*lnwire.UpdateAddHtlc)))
	require.NoError(t, funder.SendCommit())
	require.NoError(t, other.AcceptCommit(recvOne(t, funder).(*lnwire.UpdateCommit)))
	require.NoError(t, funder.AcceptRevocation(recvOne(t, other).(*lnwire.UpdateRevocation)))

	snap := funder.Snapshot()

	resumed, err := ResumeFromSnapshot(funder.cfg, snap, funder.clk)
	require.NoError(t, err)

	require.Equal(t, funder.CurrentState(), resumed.CurrentState())
	require.Equal(t, funder.State.Ours.CommitNum, resumed.State.Ours.CommitNum)
	require.Equal(t, funder.State.Theirs.CommitNum, resumed.State.Theirs.CommitNum)
	require.Equal(t, funder.State.Ours.State.OurBalanceMsat, resumed.State.Ours.State.OurBalanceMsat)
	require.Len(t, resumed.State.StagingTheirs.Htlcs, len(funder.State.StagingTheirs.Htlcs))
	require.True(t, resumed.State.TheirCommitKey.IsEqual(funder.State.TheirCommitKey))
}

func TestSnapshotBeforeOpenOmitsCommits(t *testing.T) {
	p := newTestPeer(t, OfferWithAnchor, 0x01)
	p.SendOpen()

	snap := p.Snapshot()
	require.Nil(t, snap.Ours)
	require.Nil(t, snap.Theirs)
	require.Empty(t, snap.TheirCommitPub)

	resumed, err := ResumeFromSnapshot(p.cfg, snap, p.clk)
	require.NoError(t, err)
	require.Equal(t, p.CurrentState(), resumed.CurrentState())
	require.Nil(t, resumed.State.Ours)
	require.Nil(t, resumed.State.TheirCommitKey)
}

func TestResumeFromSnapshotRejectsBadTheirCommitPub(t *testing.T) {
	funder, _ := handshakePeers(t)
	snap := funder.Snapshot()
	snap.TheirCommitPub = []byte{0x01, 0x02, 0x03}

	_, err := ResumeFromSnapshot(funder.cfg, snap, funder.clk)
	require.Error(t, err)
}
