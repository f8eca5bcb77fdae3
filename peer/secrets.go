package peer

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnchannel/shachain"
)

// Secrets holds the per-channel key material this node uses: the two
// private keys backing PeerVisibleState's OurCommitKey/OurFinalKey, and the
// shachain seed this side derives every revocation preimage it will ever
// disclose from.
type Secrets struct {
	CommitKey *btcec.PrivateKey
	FinalKey  *btcec.PrivateKey

	revocations *shachain.Producer
}

// NewSecrets wraps a channel's key material. seed is the 32-byte root this
// side's revocation preimages are derived from; it is the only piece of
// revocation state that needs to be persisted for the sending side (see
// spec.md 3, "Revocation preimage").
func NewSecrets(commitKey, finalKey *btcec.PrivateKey, seed shachain.Hash) *Secrets {
	return &Secrets{
		CommitKey:   commitKey,
		FinalKey:    finalKey,
		revocations: shachain.NewProducer(seed),
	}
}

// RevocationPreimage derives the preimage this side discloses to revoke
// its commit_num'th commitment. Preimages are drawn from the shachain tree
// in descending index order (commit_num 0 at index 2^64-1, commit_num 1 at
// 2^64-2, ...) so that the receiving Store's ancestor-consistency check
// holds as commit_num increases; see shachain.Store.Insert.
func (s *Secrets) RevocationPreimage(commitNum uint64) [32]byte {
	return [32]byte(s.revocations.AtIndex(^uint64(0) - commitNum))
}

// RevocationHash derives the hash this side advertises, ahead of time, for
// the commitment it will use at commitNum. The peer reveals the matching
// preimage only once that commitment is superseded.
func (s *Secrets) RevocationHash(commitNum uint64) [32]byte {
	preimage := s.RevocationPreimage(commitNum)
	return sha256.Sum256(preimage[:])
}

// ShaSeedBytes exports the 32-byte root every revocation preimage this side
// will ever disclose is derived from.
func (s *Secrets) ShaSeedBytes() []byte {
	return s.revocations.ToBytes()
}
