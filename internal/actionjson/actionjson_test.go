package actionjson

import (
	"encoding/json"
	"testing"
)

func TestBitcoinSendAmountToAddressWireShape(t *testing.T) {
	r := Response{
		Type: TypeBitcoinSendAmountToAddress,
		Payload: BitcoinSendAmountToAddress{
			ToAddress: "2N3pk6v15FrDiRNKYVuxnnugn1Yg7wfQRL9",
			Amount:    "100000000",
			Network:   "testnet",
		},
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if generic["type"] != "bitcoin-send-amount-to-address" {
		t.Fatalf("expected kebab-case type tag, got %v", generic["type"])
	}
	payload, ok := generic["payload"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected payload object, got %T", generic["payload"])
	}
	if payload["to"] != "2N3pk6v15FrDiRNKYVuxnnugn1Yg7wfQRL9" {
		t.Fatalf("unexpected to: %v", payload["to"])
	}
	if payload["amount"] != "100000000" {
		t.Fatalf("unexpected amount: %v", payload["amount"])
	}
}

func TestEthereumCallContractOmitsAbsentData(t *testing.T) {
	r := Response{
		Type: TypeEthereumCallContract,
		Payload: EthereumCallContract{
			ContractAddress: "0x0a81e8be41b21f651a71aab1a85c6813b8bbccf8",
			GasLimit:        "0x1",
			ChainID:         3,
		},
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	payload := generic["payload"].(map[string]interface{})
	if _, present := payload["data"]; present {
		t.Fatalf("expected data key to be absent, got %v", payload["data"])
	}
}

func TestRoundTripAllFourVariants(t *testing.T) {
	callData := "0x00"
	cases := []Response{
		{Type: TypeBitcoinSendAmountToAddress, Payload: BitcoinSendAmountToAddress{ToAddress: "a", Amount: "1", Network: "mainnet"}},
		{Type: TypeBitcoinBroadcastSignedTransaction, Payload: BitcoinBroadcastSignedTransaction{HexTransaction: "deadbeef", Network: "mainnet"}},
		{Type: TypeEthereumDeployContract, Payload: EthereumDeployContract{Data: "0x00", Amount: "0", GasLimit: "21000", ChainID: 1}},
		{Type: TypeEthereumCallContract, Payload: EthereumCallContract{ContractAddress: "0xabc", Data: &callData, GasLimit: "21000", ChainID: 1}},
	}

	for _, c := range cases {
		b, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", c.Type, err)
		}
		var decoded Response
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s): %v", c.Type, err)
		}
		if decoded.Type != c.Type {
			t.Fatalf("round trip type mismatch: want %s got %s", c.Type, decoded.Type)
		}
	}
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var r Response
	err := json.Unmarshal([]byte(`{"type":"not-a-real-type","payload":{}}`), &r)
	if err == nil {
		t.Fatalf("expected error for unknown action type")
	}
}
