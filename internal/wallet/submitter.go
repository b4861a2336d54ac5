package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/klingon-exchange/swapmakerd/internal/actionjson"
	"github.com/klingon-exchange/swapmakerd/internal/chain"
)

// EthereumSubmitter signs and broadcasts the Ethereum-side actions the
// executor dispatches, implementing executor.Submitter for the
// ethereum-deploy-contract and ethereum-call-contract action types.
//
// It does not handle bitcoin-send-amount-to-address: paying an exact
// amount to an address needs UTXO selection and change handling this
// daemon doesn't implement, the same scope cut chain.FeeRateSource's
// doc comment names for fee estimation.
type EthereumSubmitter struct {
	Wallet  *Wallet
	Ledger  *chain.EthereumLedger
	Account uint32
}

func (s *EthereumSubmitter) signingKey() (*ecdsa.PrivateKey, common.Address, error) {
	priv, err := s.Wallet.DerivePrivateKey(ChainEthereum, s.Account, 0, 0)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("wallet: submitter: derive key: %w", err)
	}
	addr, err := s.Wallet.DeriveEthereumAddress(s.Account, 0)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("wallet: submitter: derive address: %w", err)
	}
	return priv.ToECDSA(), common.HexToAddress(addr), nil
}

// Submit implements executor.Submitter.
func (s *EthereumSubmitter) Submit(ctx context.Context, resp *actionjson.Response) (string, error) {
	switch payload := resp.Payload.(type) {
	case actionjson.EthereumDeployContract:
		return s.send(ctx, nil, payload.Data, payload.ChainID, payload.GasLimit)
	case *actionjson.EthereumDeployContract:
		return s.send(ctx, nil, payload.Data, payload.ChainID, payload.GasLimit)
	case actionjson.EthereumCallContract:
		to := common.HexToAddress(payload.ContractAddress)
		return s.send(ctx, &to, dataOrEmpty(payload.Data), payload.ChainID, payload.GasLimit)
	case *actionjson.EthereumCallContract:
		to := common.HexToAddress(payload.ContractAddress)
		return s.send(ctx, &to, dataOrEmpty(payload.Data), payload.ChainID, payload.GasLimit)
	case actionjson.BitcoinSendAmountToAddress, *actionjson.BitcoinSendAmountToAddress:
		return "", fmt.Errorf("wallet: submitter: bitcoin-send-amount-to-address needs UTXO selection, not implemented")
	default:
		return "", fmt.Errorf("wallet: submitter: unsupported action payload %T", resp.Payload)
	}
}

func dataOrEmpty(data *string) string {
	if data == nil {
		return ""
	}
	return *data
}

// send signs and broadcasts a legacy transaction, returning the broadcast
// transaction hash. When to is nil, it's a contract-creation transaction;
// this daemon's own Dispatch no longer produces that shape for herc20
// deployment (see herc20.DeploymentFactory), but the wire format still
// defines it, so it's supported here for completeness.
func (s *EthereumSubmitter) send(ctx context.Context, to *common.Address, dataHex string, chainID uint64, gasLimitStr string) (string, error) {
	priv, from, err := s.signingKey()
	if err != nil {
		return "", err
	}
	// Hold the wallet's lock from nonce lookup through broadcast so that
	// two submissions signing with this wallet never share a nonce.
	s.Wallet.mu.Lock()
	defer s.Wallet.mu.Unlock()
	data, err := hex.DecodeString(strings.TrimPrefix(dataHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: decode call data: %w", err)
	}
	nonce, err := s.Ledger.NonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: nonce: %w", err)
	}
	gasPrice, err := s.Ledger.GasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: gas price: %w", err)
	}
	gasLimit, err := strconv.ParseUint(gasLimitStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: parse gas limit %q: %w", gasLimitStr, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signer := types.NewEIP155Signer(new(big.Int).SetUint64(chainID))
	signedTx, err := types.SignTx(tx, signer, priv)
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: sign tx: %w", err)
	}
	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: encode tx: %w", err)
	}
	hash, err := s.Ledger.SendRawTransaction(ctx, "0x"+hex.EncodeToString(raw))
	if err != nil {
		return "", fmt.Errorf("wallet: submitter: broadcast: %w", err)
	}
	return hash.Hex(), nil
}
