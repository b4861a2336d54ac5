package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/klingon-exchange/swapmakerd/internal/chain"
	"github.com/klingon-exchange/swapmakerd/internal/jsonrpc"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

func methodServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		result, ok := results[req.Method]
		if !ok {
			result = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func TestAwaitHerc20DeployedReturnsImmediatelyWhenCodePresent(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	srv := methodServer(t, map[string]interface{}{
		"eth_getCode": "0x6001600101",
	})
	defer srv.Close()

	ledger := chain.NewEthereumLedger(jsonrpc.New(srv.URL))
	if err := AwaitHerc20Deployed(context.Background(), ledger, addr); err != nil {
		t.Fatalf("AwaitHerc20Deployed: %v", err)
	}
}

func TestAwaitHerc20DeployedCancelledByContext(t *testing.T) {
	srv := methodServer(t, map[string]interface{}{"eth_getCode": "0x"})
	defer srv.Close()

	ledger := chain.NewEthereumLedger(jsonrpc.New(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := AwaitHerc20Deployed(ctx, ledger, common.HexToAddress("0xabc")); err == nil {
		t.Fatalf("AwaitHerc20Deployed: expected context cancellation error")
	}
}

func TestAwaitHbitFundedCancelledByContext(t *testing.T) {
	srv := methodServer(t, map[string]interface{}{"getblockcount": 10})
	defer srv.Close()

	ledger := chain.NewBitcoinLedger(jsonrpc.New(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitHbitFunded(ctx, ledger, "bcrt1q...", 1000, 11, func(string) (uint32, int64, bool) { return 0, 0, false })
	if err == nil {
		t.Fatalf("AwaitHbitFunded: expected context cancellation error")
	}
}

func TestAwaitHbitSpentDistinguishesRedeemFromRefund(t *testing.T) {
	findSpend := func(txHex string) (s secret.Secret, redeemed bool, refunded bool, ok bool) {
		if txHex != "refundtx" {
			return secret.Secret{}, false, false, false
		}
		return secret.Secret{}, false, true, true
	}
	srv := methodServer(t, map[string]interface{}{
		"getblockcount":       0,
		"getblockhash":        "00",
		"getblock":            map[string]interface{}{"hash": "00", "height": 0, "time": 0, "Tx": []string{"refundtx"}},
		"getrawtransaction":   "refundtx",
	})
	defer srv.Close()

	ledger := chain.NewBitcoinLedger(jsonrpc.New(srv.URL))
	spend, err := AwaitHbitSpent(context.Background(), ledger, 0, findSpend)
	if err != nil {
		t.Fatalf("AwaitHbitSpent: %v", err)
	}
	if !spend.Refunded || spend.Redeemed {
		t.Fatalf("AwaitHbitSpent: expected refund, got %+v", spend)
	}
}
