package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// erc20BalanceOfABI is the one ERC20 function the daemon needs to read,
// encoded the same way herc20.Params' constructorArgsABI is: an embedded
// ABI fragment parsed once at package init, rather than a generated
// contract binding.
const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var erc20ABI = mustParseERC20ABI()

func mustParseERC20ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid embedded ERC20 ABI: %v", err))
	}
	return parsed
}

// Call issues an eth_call against to with the given calldata and returns
// the raw return bytes. Its only caller is the balance query below.
func (e *EthereumLedger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	params := []interface{}{
		map[string]string{
			"to":   to.Hex(),
			"data": "0x" + common.Bytes2Hex(data),
		},
		"latest",
	}
	var hexResult string
	if err := e.rpc.Call(ctx, "eth_call", params, &hexResult); err != nil {
		return nil, fmt.Errorf("ethereum eth_call: %w", err)
	}
	return common.FromHex(hexResult), nil
}

// ERC20BalanceOf queries token.balanceOf(owner), used to observe the
// daemon's spendable DAI balance before sizing a buy order.
func (e *EthereumLedger) ERC20BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("chain: pack balanceOf: %w", err)
	}
	out, err := e.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	results, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack balanceOf: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("chain: balanceOf: unexpected result count %d", len(results))
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: balanceOf: unexpected result type %T", results[0])
	}
	return balance, nil
}
