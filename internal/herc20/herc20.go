// Package herc20 implements the Ethereum side of the atomic-swap HTLC.
// Unlike the teacher's internal/contracts/htlc, which calls into a single
// persistent contract and computes a swap id to distinguish instances,
// this daemon deploys a fresh, minimal HTLC contract per swap, with the
// secret hash, expiry and parties baked into the constructor arguments.
// That mirrors the original protocol's herc20 model, where each swap gets
// its own contract address that can be watched in isolation.
//
// Deployment goes through DeploymentFactory, the well-known "deterministic
// deployment proxy" singleton (CREATE2-based, same address on every EVM
// chain it's been published to) rather than a plain EOA contract-creation
// transaction. A plain creation transaction's resulting address depends on
// the sender's nonce at broadcast time, which only the broadcaster knows
// in advance; routing through the factory makes the address a pure
// function of the swap's own parameters (the secret hash is used as the
// CREATE2 salt), so both parties can compute it independently the moment
// they agree on the swap, with no negotiation message needed to carry it.
package herc20

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

// Params describes one Ethereum HTLC instance. Amount is denominated in
// the token's smallest unit (wei, for an 18-decimal ERC20 like DAI).
type Params struct {
	SecretHash   secret.Hash
	RedeemAddr   common.Address // may redeem with the secret before Expiry
	RefundAddr   common.Address // may refund at or after Expiry
	TokenAddress common.Address // the ERC20 contract (DAI)
	Amount       *big.Int
	Expiry       int64 // unix seconds
}

// constructorArgs is the ABI definition of the HTLC contract's constructor,
// used only to encode deployment args; the daemon never needs the rest of
// the contract's ABI because it drives everything through observed events
// and the redeem/refund call data built by RedeemCallData/RefundCallData.
const constructorArgsABI = `[{"inputs":[
  {"internalType":"bytes32","name":"secretHash","type":"bytes32"},
  {"internalType":"uint256","name":"expiry","type":"uint256"},
  {"internalType":"address","name":"redeemAddress","type":"address"},
  {"internalType":"address","name":"refundAddress","type":"address"},
  {"internalType":"address","name":"token","type":"address"},
  {"internalType":"uint256","name":"amount","type":"uint256"}
],"stateMutability":"nonpayable","type":"constructor"}]`

// redeemRefundABI defines the two functions the executor calls after
// deployment: redeem(bytes32 secret) and refund().
const redeemRefundABI = `[
  {"inputs":[{"internalType":"bytes32","name":"preimage","type":"bytes32"}],"name":"redeem","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"refund","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

func mustParseABI(json string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic(fmt.Sprintf("herc20: invalid embedded ABI: %v", err))
	}
	return parsed
}

var (
	constructorABI = mustParseABI(constructorArgsABI)
	callABI        = mustParseABI(redeemRefundABI)
)

// DeploymentFactory is Nick Johnson's "deterministic deployment proxy"
// (https://github.com/Arachnid/deterministic-deployment-proxy), deployed
// at this same address on essentially every EVM chain via a pre-signed
// transaction. Its fallback function takes raw calldata of
// salt(32 bytes) ++ initCode and deploys initCode via CREATE2.
var DeploymentFactory = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")

// DeploymentData returns the HTLC init code for this swap: the fixed HTLC
// bytecode followed by the ABI-encoded constructor arguments.
// FactoryCallData sends it through DeploymentFactory, and ContractAddress
// hashes it to compute the CREATE2 address.
func DeploymentData(p Params) ([]byte, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("herc20: amount must be positive")
	}
	if p.Expiry <= 0 {
		return nil, fmt.Errorf("herc20: expiry must be a positive unix timestamp")
	}

	packed, err := constructorABI.Pack("",
		[32]byte(p.SecretHash),
		big.NewInt(p.Expiry),
		p.RedeemAddr,
		p.RefundAddr,
		p.TokenAddress,
		p.Amount,
	)
	if err != nil {
		return nil, fmt.Errorf("herc20: pack constructor args: %w", err)
	}

	data := make([]byte, 0, len(htlcBytecode)+len(packed))
	data = append(data, htlcBytecode...)
	data = append(data, packed...)
	return data, nil
}

// FactoryCallData builds the calldata sent to DeploymentFactory: the
// secret hash as a CREATE2 salt followed by this swap's init code.
func FactoryCallData(p Params) ([]byte, error) {
	initCode, err := DeploymentData(p)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, 32+len(initCode))
	data = append(data, p.SecretHash.Bytes()...)
	data = append(data, initCode...)
	return data, nil
}

// ContractAddress computes the CREATE2 address DeploymentFactory deploys
// this swap's HTLC to, independent of who actually broadcasts the
// deployment or when. Either party can call this the moment the swap's
// Params are agreed.
func ContractAddress(p Params) (common.Address, error) {
	initCode, err := DeploymentData(p)
	if err != nil {
		return common.Address{}, err
	}
	var salt [32]byte
	copy(salt[:], p.SecretHash.Bytes())
	return crypto.CreateAddress2(DeploymentFactory, salt, crypto.Keccak256(initCode)), nil
}

// RedeemCallData builds the call data for redeem(preimage).
func RedeemCallData(preimage secret.Secret) ([]byte, error) {
	data, err := callABI.Pack("redeem", [32]byte(preimage))
	if err != nil {
		return nil, fmt.Errorf("herc20: pack redeem call: %w", err)
	}
	return data, nil
}

// RefundCallData builds the call data for refund().
func RefundCallData() ([]byte, error) {
	data, err := callABI.Pack("refund")
	if err != nil {
		return nil, fmt.Errorf("herc20: pack refund call: %w", err)
	}
	return data, nil
}

// RedeemedEventTopic and RefundedEventTopic are the log topics the
// observer filters for with eth_getLogs against a deployed HTLC's address.
var (
	RedeemedEventTopic = crypto.Keccak256Hash([]byte("Redeemed(bytes32)"))
	RefundedEventTopic = crypto.Keccak256Hash([]byte("Refunded()"))
)
