package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// toLocalScript builds the output script protecting the balance of the
// commitment's owner. Presenting the revocation preimage lets the
// counterparty sweep the output immediately with its own key, since
// possession of the preimage is only ever given up once the commitment has
// been superseded; absent that, the owner can claim it after delay seconds
// with its own key.
func toLocalScript(ownerKey, counterpartyKey *btcec.PublicKey, delay uint32,
	revocationHash [32]byte) ([]byte, error) {

	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_SHA256)
	bldr.AddData(revocationHash[:])
	bldr.AddOp(txscript.OP_EQUAL)
	bldr.AddOp(txscript.OP_NOTIF)
	bldr.AddInt64(int64(delay))
	bldr.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	bldr.AddOp(txscript.OP_DROP)
	bldr.AddData(ownerKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ELSE)
	bldr.AddData(counterpartyKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ENDIF)

	return bldr.Script()
}

// htlcScript builds the output script for a single staged HTLC: the payee
// can claim it by presenting the payment preimage before expiry, or the
// payer can reclaim it after expiry.
func htlcScript(payeeKey, payerKey *btcec.PublicKey, rHash [32]byte,
	expiry uint32) ([]byte, error) {

	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_SHA256)
	bldr.AddData(rHash[:])
	bldr.AddOp(txscript.OP_EQUAL)
	bldr.AddOp(txscript.OP_IF)
	bldr.AddData(payeeKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ELSE)
	bldr.AddInt64(int64(expiry))
	bldr.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	bldr.AddOp(txscript.OP_DROP)
	bldr.AddData(payerKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ENDIF)

	return bldr.Script()
}

// CreateCommitTx builds the unsigned commitment transaction for cstate, as
// seen by the side identified by owner. The commitment fee is paid out of
// the owner's balance; the counterparty's output pays nothing toward it.
//
// The returned transaction has exactly one input, spending the anchor
// output, and one output per non-empty balance plus one per staged HTLC.
func CreateCommitTx(pvs *PeerVisibleState, owner ChannelSide,
	revocationHash [32]byte, cstate *ChannelState) (*wire.MsgTx, error) {

	ownerKey, counterpartyKey := pvs.OurCommitKey, pvs.TheirCommitKey
	delay := pvs.OurDelay
	ownerBalance, counterpartyBalance := cstate.OurBalanceMsat, cstate.TheirBalanceMsat
	if owner == Theirs {
		ownerKey, counterpartyKey = pvs.TheirCommitKey, pvs.OurCommitKey
		delay = pvs.TheirDelay
		ownerBalance, counterpartyBalance = cstate.TheirBalanceMsat, cstate.OurBalanceMsat
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{
			Hash:  pvs.Anchor.TxID,
			Index: pvs.Anchor.OutputIndex,
		},
		Sequence: wire.MaxTxInSequenceNum,
	})

	fee := cstate.fee()
	ownerSat := ownerBalance.ToSatoshis() - fee
	if ownerSat < 0 {
		return nil, fmt.Errorf("commitment fee of %d sat exceeds owner "+
			"balance of %d sat", fee, ownerBalance.ToSatoshis())
	}

	if ownerSat > 0 {
		script, err := toLocalScript(ownerKey, counterpartyKey, delay, revocationHash)
		if err != nil {
			return nil, err
		}
		pkScript, err := witnessScriptHash(script)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(ownerSat, pkScript))
	}

	if counterpartySat := counterpartyBalance.ToSatoshis(); counterpartySat > 0 {
		pkScript, err := witnessPubKeyHash(counterpartyKey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(counterpartySat, pkScript))
	}

	for _, htlc := range cstate.Htlcs {
		payeeKey, payerKey := ownerKey, counterpartyKey
		if (htlc.Side == Ours && owner == Ours) || (htlc.Side == Theirs && owner == Theirs) {
			payeeKey, payerKey = counterpartyKey, ownerKey
		}

		script, err := htlcScript(payeeKey, payerKey, htlc.RHash, htlc.Expiry)
		if err != nil {
			return nil, err
		}
		pkScript, err := witnessScriptHash(script)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(htlc.AmountMsat.ToSatoshis(), pkScript))
	}

	return tx, nil
}

// CreateCommitInfo constructs and signs a new CommitInfo chained off prev,
// for the given owner side. It returns an error if cstate has not changed
// since prev's state: signing an empty commit is a protocol violation the
// caller must reject before it ever reaches this layer, not something this
// layer papers over.
func CreateCommitInfo(priv *btcec.PrivateKey, pvs *PeerVisibleState, owner ChannelSide,
	prev *CommitInfo, revocationHash [32]byte, cstate *ChannelState) (*CommitInfo, error) {

	if prev != nil && prev.State.Changes() == cstate.Changes() {
		return nil, fmt.Errorf("refusing to build an empty commitment: " +
			"no changes since the previous commit")
	}

	tx, err := CreateCommitTx(pvs, owner, revocationHash, cstate)
	if err != nil {
		return nil, err
	}

	commitNum := uint64(0)
	if prev != nil {
		commitNum = prev.CommitNum + 1
	}

	log.Debugf("signing commit %d for %s: %d/%d msat, %d htlcs", commitNum,
		owner, cstate.OurBalanceMsat, cstate.TheirBalanceMsat, len(cstate.Htlcs))

	ci := &CommitInfo{
		Prev:           prev,
		CommitNum:      commitNum,
		RevocationHash: revocationHash,
		State:          cstate.Copy(),
		Tx:             tx,
	}

	if priv != nil {
		sig, err := signCommitTx(priv, tx, pvs.Anchor.WitnessScript, pvs.Anchor.Amount)
		if err != nil {
			return nil, err
		}
		ci.Sig = &sig
	}

	return ci, nil
}

// VerifyCommitSig checks that sig is a valid signature, by signerKey, over
// ci's transaction.
func VerifyCommitSig(pvs *PeerVisibleState, ci *CommitInfo, signerKey *btcec.PublicKey,
	sig [64]byte) error {

	return verifyCommitSig(signerKey, ci.Tx, pvs.Anchor.WitnessScript, pvs.Anchor.Amount, sig)
}

// checkPreimage reports whether preimage hashes, under SHA-256, to hash.
func checkPreimage(preimage, hash [32]byte) bool {
	return chainhash.HashH(preimage[:]) == chainhash.Hash(hash)
}

// VerifyRevocationPreimage reports whether preimage is the correct
// disclosure for a commitment whose RevocationHash is hash.
func VerifyRevocationPreimage(preimage, hash [32]byte) bool {
	return checkPreimage(preimage, hash)
}
