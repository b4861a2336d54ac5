// Package actionjson implements the externally-facing JSON encoding of
// executor actions, grounded on original_source/cnd/src/http_api/action.rs:
// a tagged union with a kebab-case "type" discriminator and a "payload"
// object whose shape depends on the type.
package actionjson

import (
	"encoding/json"
	"fmt"
)

// Type identifies one of the four action payload shapes.
type Type string

const (
	TypeBitcoinSendAmountToAddress      Type = "bitcoin-send-amount-to-address"
	TypeBitcoinBroadcastSignedTransaction Type = "bitcoin-broadcast-signed-transaction"
	TypeEthereumDeployContract           Type = "ethereum-deploy-contract"
	TypeEthereumCallContract             Type = "ethereum-call-contract"
)

// BitcoinSendAmountToAddress instructs the wallet to pay amount (satoshis,
// as a decimal string) to address on the named network.
type BitcoinSendAmountToAddress struct {
	ToAddress string `json:"to"`
	Amount    string `json:"amount"`
	Network   string `json:"network"`
}

// BitcoinBroadcastSignedTransaction instructs the wallet to broadcast a
// fully-signed raw transaction.
type BitcoinBroadcastSignedTransaction struct {
	HexTransaction  string `json:"hex"`
	Network         string `json:"network"`
	MinMedianBlockTime *int64 `json:"min_median_block_time,omitempty"`
}

// EthereumDeployContract instructs the wallet to deploy data as a contract
// creation transaction carrying amount (decimal wei string, usually "0").
type EthereumDeployContract struct {
	Data     string `json:"data"`
	Amount   string `json:"amount"`
	GasLimit string `json:"gas_limit"`
	ChainID  uint64 `json:"chain_id"`
}

// EthereumCallContract instructs the wallet to send a call transaction to
// a previously deployed contract. Data is a pointer because the wire
// format omits the key entirely when no call data is supplied (a plain
// value transfer), rather than encoding it as an empty string.
type EthereumCallContract struct {
	ContractAddress   string  `json:"contract_address"`
	Data              *string `json:"data,omitempty"`
	GasLimit          string  `json:"gas_limit"`
	ChainID           uint64  `json:"chain_id"`
	MinBlockTimestamp *int64  `json:"min_block_timestamp,omitempty"`
}

// Response is the tagged-union envelope actually sent over the wire.
type Response struct {
	Type    Type
	Payload interface{}
}

type wireForm struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the response as {"type": "...", "payload": {...}}.
func (r Response) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("actionjson: marshal payload: %w", err)
	}
	return json.Marshal(wireForm{Type: r.Type, Payload: payload})
}

// UnmarshalJSON decodes a response, dispatching the payload type on the
// "type" discriminator.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("actionjson: unmarshal envelope: %w", err)
	}
	r.Type = w.Type

	var target interface{}
	switch w.Type {
	case TypeBitcoinSendAmountToAddress:
		target = &BitcoinSendAmountToAddress{}
	case TypeBitcoinBroadcastSignedTransaction:
		target = &BitcoinBroadcastSignedTransaction{}
	case TypeEthereumDeployContract:
		target = &EthereumDeployContract{}
	case TypeEthereumCallContract:
		target = &EthereumCallContract{}
	default:
		return fmt.Errorf("actionjson: unknown action type %q", w.Type)
	}
	if err := json.Unmarshal(w.Payload, target); err != nil {
		return fmt.Errorf("actionjson: unmarshal payload for %q: %w", w.Type, err)
	}
	r.Payload = target
	return nil
}
