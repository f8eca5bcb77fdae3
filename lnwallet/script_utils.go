package lnwallet

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// witnessScriptHash generates a pay-to-witness-script-hash public key script
// paying to a version 0 witness program paying to the passed redeem script.
func witnessScriptHash(redeemScript []byte) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_0)
	scriptHash := chainhash.HashB(redeemScript)
	bldr.AddData(scriptHash)
	return bldr.Script()
}

// witnessPubKeyHash generates a pay-to-witness-public-key-hash output script
// paying directly to pubKey.
func witnessPubKeyHash(pubKey *btcec.PublicKey) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_0)
	bldr.AddData(btcutil.Hash160(pubKey.SerializeCompressed()))
	return bldr.Script()
}

// genMultiSigScript generates the non-p2sh'd multisig script for 2 of 2
// pubkeys.
func genMultiSigScript(aPub, bPub []byte) ([]byte, error) {
	if len(aPub) != 33 || len(bPub) != 33 {
		return nil, fmt.Errorf("pubkey size error, compressed pubkeys only")
	}

	// Sort pubkeys lexicographically so both sides derive the identical
	// script independent of who is "local" and who is "remote". The
	// witness stack ordering in spendMultiSig must follow the same rule.
	if bytes.Compare(aPub, bPub) == -1 {
		aPub, bPub = bPub, aPub
	}

	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_2)
	bldr.AddData(aPub)
	bldr.AddData(bPub)
	bldr.AddOp(txscript.OP_2)
	bldr.AddOp(txscript.OP_CHECKMULTISIG)
	return bldr.Script()
}

// AnchorWitnessScript builds the 2-of-2 redeem script an anchor output
// pays to, given both sides' commit keys. Either side can compute it
// independent of who created the anchor, since genMultiSigScript sorts the
// two keys canonically.
func AnchorWitnessScript(aPub, bPub *btcec.PublicKey) ([]byte, error) {
	return genMultiSigScript(aPub.SerializeCompressed(), bPub.SerializeCompressed())
}

// genFundingPkScript creates the 2-of-2 redeem script for the anchor output,
// and the p2wsh output paying to it.
func genFundingPkScript(aPub, bPub []byte, amt int64) ([]byte, *wire.TxOut, error) {
	if amt <= 0 {
		return nil, nil, fmt.Errorf("can't create anchor output with " +
			"zero or negative value")
	}

	redeemScript, err := genMultiSigScript(aPub, bPub)
	if err != nil {
		return nil, nil, err
	}

	pkScript, err := witnessScriptHash(redeemScript)
	if err != nil {
		return nil, nil, err
	}

	return redeemScript, wire.NewTxOut(amt, pkScript), nil
}

// spendMultiSig generates the witness stack required to redeem the 2-of-2
// p2wsh anchor output.
func spendMultiSig(redeemScript, pubA, sigA, pubB, sigB []byte) [][]byte {
	witness := make([][]byte, 4)

	// p2wsh multisig needs a nil stack element to eat the extra pop
	// OP_CHECKMULTISIG leaves behind.
	witness[0] = nil

	if bytes.Compare(pubA, pubB) == -1 {
		witness[1] = sigB
		witness[2] = sigA
	} else {
		witness[1] = sigA
		witness[2] = sigB
	}

	witness[3] = redeemScript

	return witness
}

// findScriptOutputIndex finds the index of the output whose pkScript matches
// script. The search stops after the first match.
func findScriptOutputIndex(tx *wire.MsgTx, script []byte) (bool, uint32) {
	for i, txOut := range tx.TxOut {
		if bytes.Equal(txOut.PkScript, script) {
			return true, uint32(i)
		}
	}

	return false, 0
}

// commitSigHash computes the sighash for tx's sole input, spending the
// anchor output under witnessScript.
func commitSigHash(tx *wire.MsgTx, witnessScript []byte, amt int64) ([]byte, error) {
	sigHashes := txscript.NewTxSigHashes(tx, txscript.NewCannedPrevOutputFetcher(
		witnessScript, amt,
	))
	return txscript.CalcWitnessSigHash(
		witnessScript, sigHashes, txscript.SigHashAll, tx, 0, amt,
	)
}

// signCommitTx produces a 64-byte compact (r, s) signature over the
// commitment transaction's sole input, the anchor output. The wire format
// carries a bare signature with no sighash-type byte; SigHashAll is always
// implied.
func signCommitTx(priv *btcec.PrivateKey, tx *wire.MsgTx, witnessScript []byte,
	amt int64) ([64]byte, error) {

	var raw [64]byte

	sigHash, err := commitSigHash(tx, witnessScript, amt)
	if err != nil {
		return raw, err
	}

	sig := ecdsa.Sign(priv, sigHash)

	r := sig.R().Bytes()
	s := sig.S().Bytes()
	copy(raw[32-len(r):32], r)
	copy(raw[64-len(s):64], s)

	return raw, nil
}

// verifyCommitSig checks that sig is a valid SigHashAll signature by pubKey
// over tx's sole input, spending the anchor output under witnessScript.
func verifyCommitSig(pubKey *btcec.PublicKey, tx *wire.MsgTx, witnessScript []byte,
	amt int64, sig [64]byte) error {

	sigHash, err := commitSigHash(tx, witnessScript, amt)
	if err != nil {
		return err
	}

	var r, s btcec.ModNScalar
	r.SetByteSlice(sig[:32])
	s.SetByteSlice(sig[32:])

	parsedSig := ecdsa.NewSignature(&r, &s)
	if !parsedSig.Verify(sigHash, pubKey) {
		return fmt.Errorf("commit signature verification failed")
	}

	return nil
}

// derSigWithSighashType converts a 64-byte compact signature into the
// DER-encoded, sighash-type-suffixed form the script interpreter expects in
// a witness stack.
func derSigWithSighashType(sig [64]byte) []byte {
	var r, s btcec.ModNScalar
	r.SetByteSlice(sig[:32])
	s.SetByteSlice(sig[32:])

	der := ecdsa.NewSignature(&r, &s).Serialize()
	return append(der, byte(txscript.SigHashAll))
}
