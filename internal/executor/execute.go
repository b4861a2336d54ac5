package executor

import (
	"fmt"
	"strconv"

	"github.com/klingon-exchange/swapmakerd/internal/actionjson"
	"github.com/klingon-exchange/swapmakerd/internal/hbit"
	"github.com/klingon-exchange/swapmakerd/internal/herc20"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/pkg/helpers"
)

// SwapParams carries the fixed, per-swap details NextAction's Action
// needs translated into a concrete wire instruction. These never change
// once a swap starts, so they're kept separately rather than re-derived
// from the event log on every call. Unlike a plain EOA deployment, the
// herc20 contract's address doesn't need to be carried here: it's a pure
// function of Herc20 (see herc20.ContractAddress), so both parties can
// compute it directly. Role and Position decide which of Hbit/Herc20 is
// the alpha side (swapid.AlphaBeta); Dispatch needs both to turn an
// abstract Kind into the right concrete action.
type SwapParams struct {
	Role     swapid.Role
	Position swapid.Position
	Hbit     hbit.Params
	Herc20   herc20.Params
	ChainID  uint64
	GasLimit string
}

// alphaIsHbit reports whether p's alpha side is the Bitcoin ledger.
func (p SwapParams) alphaIsHbit() bool {
	alpha, _ := swapid.AlphaBeta(p.Role, p.Position)
	return alpha == swapid.LedgerBitcoin
}

// sideIsHbit reports whether the abstract side action kind addresses
// (alpha or beta) is p's Bitcoin side.
func sideIsHbit(kind Kind, p SwapParams) bool {
	isAlpha := kind == KindFundAlpha || kind == KindRedeemAlpha || kind == KindRefundAlpha
	return isAlpha == p.alphaIsHbit()
}

// Dispatch turns one executor Action into the actionjson.Response that
// should be handed to the wallet for signing, following the boundary in
// SPEC_FULL.md section 4.1: the executor decides WHAT to do, the wallet
// decides HOW to sign it, and nothing in this package ever touches a
// private key.
func Dispatch(action Action, p SwapParams) (*actionjson.Response, error) {
	switch action.Kind {
	case KindFundAlpha, KindFundBeta:
		if sideIsHbit(action.Kind, p) {
			addr, _, err := hbit.Address(p.Hbit)
			if err != nil {
				return nil, fmt.Errorf("executor: dispatch %s: %w", action.Kind, err)
			}
			return &actionjson.Response{
				Type: actionjson.TypeBitcoinSendAmountToAddress,
				Payload: actionjson.BitcoinSendAmountToAddress{
					ToAddress: addr.EncodeAddress(),
					Amount:    strconv.FormatInt(p.Hbit.Amount, 10),
					Network:   p.Hbit.Network.Name,
				},
			}, nil
		}
		data, err := herc20.FactoryCallData(p.Herc20)
		if err != nil {
			return nil, fmt.Errorf("executor: dispatch %s: %w", action.Kind, err)
		}
		dataHex := helpers.BytesToHex(data)
		return &actionjson.Response{
			Type: actionjson.TypeEthereumCallContract,
			Payload: actionjson.EthereumCallContract{
				ContractAddress: herc20.DeploymentFactory.Hex(),
				Data:            &dataHex,
				GasLimit:        p.GasLimit,
				ChainID:         p.ChainID,
			},
		}, nil

	case KindRedeemAlpha, KindRedeemBeta:
		// Redeeming needs the secret, which isn't part of SwapParams;
		// callers use DispatchRedeem once the secret is known.
		return nil, fmt.Errorf("executor: dispatch %s requires DispatchRedeem", action.Kind)

	case KindRefundAlpha, KindRefundBeta:
		if sideIsHbit(action.Kind, p) {
			// Bitcoin refund needs a fully-built, signed witness, which
			// requires the UTXO actually funding the HTLC (outpoint and
			// amount) discovered by the observer; building the raw
			// transaction is the wallet layer's job (spec section 4.1),
			// not the executor's.
			return nil, fmt.Errorf("executor: dispatch %s requires the wallet's transaction builder", action.Kind)
		}
		contractAddr, err := herc20.ContractAddress(p.Herc20)
		if err != nil {
			return nil, fmt.Errorf("executor: dispatch %s: %w", action.Kind, err)
		}
		data, err := herc20.RefundCallData()
		if err != nil {
			return nil, fmt.Errorf("executor: dispatch %s: %w", action.Kind, err)
		}
		dataHex := helpers.BytesToHex(data)
		return &actionjson.Response{
			Type: actionjson.TypeEthereumCallContract,
			Payload: actionjson.EthereumCallContract{
				ContractAddress: contractAddr.Hex(),
				Data:            &dataHex,
				GasLimit:        p.GasLimit,
				ChainID:         p.ChainID,
			},
		}, nil

	case KindWait, KindDone:
		return nil, nil

	default:
		return nil, fmt.Errorf("executor: dispatch: unknown action kind %q", action.Kind)
	}
}

// DispatchRedeem builds the action that reveals preimage to claim the
// side named by kind (KindRedeemAlpha or KindRedeemBeta), split out from
// Dispatch because redeem is the one action that needs data beyond
// SwapParams. Only a herc20 redeem can be built here: reclaiming a hbit
// HTLC needs a hand-built, signed Bitcoin witness, which is the wallet
// layer's job (spec section 4.1), not the executor's.
func DispatchRedeem(kind Kind, p SwapParams, preimage secret.Secret) (*actionjson.Response, error) {
	if kind != KindRedeemAlpha && kind != KindRedeemBeta {
		return nil, fmt.Errorf("executor: dispatch redeem: unexpected action kind %q", kind)
	}
	if sideIsHbit(kind, p) {
		return nil, fmt.Errorf("executor: dispatch %s requires the wallet's transaction builder", kind)
	}
	contractAddr, err := herc20.ContractAddress(p.Herc20)
	if err != nil {
		return nil, fmt.Errorf("executor: dispatch %s: %w", kind, err)
	}
	data, err := herc20.RedeemCallData(preimage)
	if err != nil {
		return nil, fmt.Errorf("executor: dispatch %s: %w", kind, err)
	}
	dataHex := helpers.BytesToHex(data)
	return &actionjson.Response{
		Type: actionjson.TypeEthereumCallContract,
		Payload: actionjson.EthereumCallContract{
			ContractAddress: contractAddr.Hex(),
			Data:            &dataHex,
			GasLimit:        p.GasLimit,
			ChainID:         p.ChainID,
		},
	}, nil
}
