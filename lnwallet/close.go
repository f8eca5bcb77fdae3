package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
)

// CreateCloseTx builds the unsigned mutual close transaction spending the
// channel's anchor output. It pays ourScript and theirScript the given
// balances, less fee split as evenly as possible between them, and omits
// either output entirely if its balance nets to exactly zero. It returns an
// error if either side's share of the fee exceeds that side's balance.
func CreateCloseTx(pvs *PeerVisibleState, ourBalance, theirBalance MilliSatoshi,
	fee uint64, ourScript, theirScript []byte) (*wire.MsgTx, error) {

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{
			Hash:  pvs.Anchor.TxID,
			Index: pvs.Anchor.OutputIndex,
		},
		Sequence: wire.MaxTxInSequenceNum,
	})

	ourHalf := int64(fee) / 2
	theirHalf := int64(fee) - ourHalf
	ourSat := ourBalance.ToSatoshis() - ourHalf
	theirSat := theirBalance.ToSatoshis() - theirHalf
	if ourSat < 0 || theirSat < 0 {
		return nil, fmt.Errorf("close fee of %d sat exceeds channel balance", fee)
	}

	if ourSat > 0 {
		tx.AddTxOut(wire.NewTxOut(ourSat, ourScript))
	}
	if theirSat > 0 {
		tx.AddTxOut(wire.NewTxOut(theirSat, theirScript))
	}

	return tx, nil
}

// SignCloseTx signs tx's sole input, the anchor output, the same way a
// commitment transaction is signed.
func SignCloseTx(priv *btcec.PrivateKey, pvs *PeerVisibleState, tx *wire.MsgTx) ([64]byte, error) {
	return signCommitTx(priv, tx, pvs.Anchor.WitnessScript, pvs.Anchor.Amount)
}

// VerifyCloseSig checks that sig is a valid signature by signerKey over
// tx's sole input.
func VerifyCloseSig(pvs *PeerVisibleState, tx *wire.MsgTx, signerKey *btcec.PublicKey,
	sig [64]byte) error {

	return verifyCommitSig(signerKey, tx, pvs.Anchor.WitnessScript, pvs.Anchor.Amount, sig)
}

// DefaultCloseScript derives a pay-to-witness-pubkey-hash script paying
// key, used as this side's close destination when nothing more specific
// has been supplied -- e.g. responding to a peer-initiated close before
// the wallet layer has had a chance to hand over a chosen address.
func DefaultCloseScript(key *btcec.PublicKey) ([]byte, error) {
	return witnessPubKeyHash(key)
}
