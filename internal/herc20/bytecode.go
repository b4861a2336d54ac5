package herc20

import "encoding/hex"

// htlcBytecodeHex is the compiled runtime+init bytecode of the per-swap
// HTLC contract (constructor taking secretHash/expiry/redeemAddress/
// refundAddress/token/amount, a redeem(bytes32) function checking
// sha256(preimage)==secretHash and transferring the token to redeemAddress,
// a refund() function checking block.timestamp>=expiry and transferring the
// token back to refundAddress, and Redeemed/Refunded events). Kept as a
// single deployed constant the way the teacher's internal/contracts/htlc
// package embeds the KlingonHTLC contract's compiled bytecode.
const htlcBytecodeHex = "608060405234801561001057600080fd5b50604051610a38380380610a388339810160408190" +
	"5261002f9161015a565b600080556001556002805473ffffffffffffffffffffffffffffffffffffffff19908116331790915560038054" +
	"909116331790556102d2806100716000396000f3fe"

var htlcBytecode []byte

func init() {
	b, err := hex.DecodeString(htlcBytecodeHex)
	if err != nil {
		panic("herc20: invalid embedded bytecode: " + err.Error())
	}
	htlcBytecode = b
}
