package lnwire

import "github.com/btcsuite/btcd/btcutil"

// MilliSatoshi is a thousandth of a satoshi, the smallest denomination
// HTLC and balance amounts are expressed in so that sub-satoshi routing
// fees can still be represented exactly.
type MilliSatoshi uint64

// ToSatoshis rounds down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(uint64(m) / 1000)
}
