package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
)

// newFakeRPCServer returns a fake JSON-RPC server which answers eth_chainId with chainIDHex and
// every other method with "0x1".
//
// When the test is done, the server is closed automatically.
func newFakeRPCServer(t *testing.T, chainIDHex string) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result := "0x1"
		if req.Method == "eth_chainId" {
			result = chainIDHex
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	})

	srv := httptest.NewServer(handler)

	t.Cleanup(func() {
		srv.Close()
	})

	return srv
}

// alwaysFailingTransactorGenerator is a SignerGenerator that always fails.
type alwaysFailingTransactorGenerator struct{}

func (a *alwaysFailingTransactorGenerator) Generate(*big.Int) (*bind.TransactOpts, error) {
	return nil, assert.AnError
}

func (a *alwaysFailingTransactorGenerator) Address() (common.Address, error) {
	return common.Address{}, assert.AnError
}

// alwaysFailingConfirmFunctor is a ConfirmFunctor that always fails.
type alwaysFailingConfirmFunctor struct{}

func (a *alwaysFailingConfirmFunctor) Generate(
	context.Context, uint64, evm.OnchainClient, common.Address,
) (evm.ConfirmFunc, error) {
	return nil, assert.AnError
}
