package registry_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	abiPath      = "../../contracts/compiled/bootcampcertificate_abi.json"
	contractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	ownerAddr    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	txHash       = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcHandler func(params []json.RawMessage) (interface{}, *rpcError)

// fakeNode is a minimal JSON-RPC endpoint answering only the methods a test
// registers.
type fakeNode struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	node := &fakeNode{t: t, handlers: map[string]rpcHandler{}, calls: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(server.Close)
	return node, server
}

func (n *fakeNode) handle(method string, h rpcHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = rpcError{Code: -32601, Message: "method not found: " + req.Method}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func receipt(status string, logs []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"transactionHash":   txHash,
		"transactionIndex":  "0x0",
		"blockHash":         "0x" + strings.Repeat("ab", 32),
		"blockNumber":       "0x2a",
		"cumulativeGasUsed": "0x1d4c0",
		"gasUsed":           "0x1d4c0",
		"status":            status,
		"logsBloom":         "0x" + strings.Repeat("00", 256),
		"logs":              logs,
		"contractAddress":   nil,
		"type":              "0x0",
	}
}

func transferLog(t *testing.T, tokenID int64) map[string]interface{} {
	parsed, err := registry.LoadABI(abiPath)
	require.NoError(t, err)

	return map[string]interface{}{
		"address": contractAddr,
		"topics": []string{
			parsed.Events["Transfer"].ID.Hex(),
			common.Hash{}.Hex(),
			common.BytesToHash(common.HexToAddress(ownerAddr).Bytes()).Hex(),
			common.BigToHash(big.NewInt(tokenID)).Hex(),
		},
		"data":             "0x",
		"blockNumber":      "0x2a",
		"transactionHash":  txHash,
		"transactionIndex": "0x0",
		"blockHash":        "0x" + strings.Repeat("ab", 32),
		"logIndex":         "0x0",
		"removed":          false,
	}
}

func dial(t *testing.T, url string, timeout time.Duration) *registry.Client {
	client, err := registry.Dial(context.Background(), registry.Options{
		ProviderURI:     url,
		ContractAddress: contractAddr,
		ABIPath:         abiPath,
		GasLimit:        1000000,
		PollInterval:    10 * time.Millisecond,
		Timeout:         timeout,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func record() models.RegistrationRecord {
	return models.RegistrationRecord{
		Owner:               ownerAddr,
		SubjectName:         "Jane Doe",
		CompletionDate:      "December 2022",
		CertificateURI:      "ipfs://QmMeta",
		ImageContentAddress: "QmImage",
	}
}

func TestAccounts(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_accounts", func([]json.RawMessage) (interface{}, *rpcError) {
		return []string{strings.ToLower(ownerAddr), "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"}, nil
	})

	accounts, err := dial(t, server.URL, time.Second).Accounts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{ownerAddr, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}, accounts)
}

func TestChainID(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_chainId", func([]json.RawMessage) (interface{}, *rpcError) {
		return "0x539", nil
	})

	id, err := dial(t, server.URL, time.Second).ChainID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1337), id.Int64())
}

func TestRegisterCertificate(t *testing.T) {
	node, server := newFakeNode(t)

	node.handle("eth_sendTransaction", func(params []json.RawMessage) (interface{}, *rpcError) {
		require.Len(t, params, 1)
		var tx struct {
			From string         `json:"from"`
			To   string         `json:"to"`
			Gas  hexutil.Uint64 `json:"gas"`
			Data hexutil.Bytes  `json:"data"`
		}
		require.NoError(t, json.Unmarshal(params[0], &tx))

		assert.Equal(t, common.HexToAddress(ownerAddr), common.HexToAddress(tx.From))
		assert.Equal(t, common.HexToAddress(contractAddr), common.HexToAddress(tx.To))
		assert.Equal(t, hexutil.Uint64(1000000), tx.Gas)

		parsed, err := registry.LoadABI(abiPath)
		require.NoError(t, err)
		method := parsed.Methods["registerCertificate"]
		assert.Equal(t, method.ID, []byte(tx.Data[:4]))

		args, err := method.Inputs.Unpack(tx.Data[4:])
		require.NoError(t, err)
		assert.Equal(t, []interface{}{
			common.HexToAddress(ownerAddr),
			"Jane Doe",
			"December 2022",
			"ipfs://QmMeta",
			"QmImage",
		}, args)

		return txHash, nil
	})

	// Pending on the first poll, mined on the second.
	var polls int
	var mu sync.Mutex
	node.handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpcError) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls == 1 {
			return nil, nil
		}
		return receipt("0x1", []interface{}{transferLog(t, 7)}), nil
	})

	out, err := dial(t, server.URL, 5*time.Second).RegisterCertificate(context.Background(), record())

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, txHash, out.TxHash)
	assert.Equal(t, uint64(42), out.BlockNumber)
	assert.Equal(t, uint64(120000), out.GasUsed)
	assert.Equal(t, "7", out.TokenID)
	assert.Equal(t, 2, node.count("eth_getTransactionReceipt"))
}

func TestRegisterCertificate_Reverted(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return txHash, nil
	})
	node.handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpcError) {
		return receipt("0x0", []interface{}{}), nil
	})

	out, err := dial(t, server.URL, 5*time.Second).RegisterCertificate(context.Background(), record())

	assert.True(t, apperr.Is(err, apperr.CodeSubmissionRejected))
	require.NotNil(t, out)
	assert.False(t, out.Success)
	assert.Empty(t, out.TokenID)
}

func TestRegisterCertificate_NodeRejects(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "authentication needed: password or unlock"}
	})

	_, err := dial(t, server.URL, 5*time.Second).RegisterCertificate(context.Background(), record())

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeSubmissionRejected))
	assert.Contains(t, err.Error(), "unlock")
	assert.Equal(t, 0, node.count("eth_getTransactionReceipt"))
}

func TestRegisterCertificate_ReceiptTimeout(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return txHash, nil
	})
	node.handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpcError) {
		return nil, nil
	})

	out, err := dial(t, server.URL, 60*time.Millisecond).RegisterCertificate(context.Background(), record())

	assert.True(t, apperr.Is(err, apperr.CodeSubmissionRejected))
	assert.Contains(t, err.Error(), txHash)
	require.NotNil(t, out)
	assert.Equal(t, txHash, out.TxHash)
	assert.False(t, out.Success)
}

func TestRegisterCertificate_CallerCancelledAfterSend(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return txHash, nil
	})
	mined := time.Now().Add(200 * time.Millisecond)
	node.handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpcError) {
		if time.Now().Before(mined) {
			return nil, nil
		}
		return receipt("0x1", []interface{}{transferLog(t, 3)}), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := dial(t, server.URL, 5*time.Second).RegisterCertificate(ctx, record())

	require.NoError(t, err)
	assert.Error(t, ctx.Err())
	assert.True(t, out.Success)
	assert.Equal(t, txHash, out.TxHash)
	assert.Equal(t, "3", out.TokenID)
	assert.Equal(t, 1, node.count("eth_sendTransaction"))
}

func TestRegisterCertificate_CallerCancelledNeverMined(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return txHash, nil
	})
	node.handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpcError) {
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	out, err := dial(t, server.URL, 200*time.Millisecond).RegisterCertificate(ctx, record())

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeSubmissionRejected))
	assert.True(t, apperr.Recoverable(err))
	require.NotNil(t, out)
	assert.Equal(t, txHash, out.TxHash)
}

func TestRegisterCertificate_CancelledBeforeSend(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle("eth_sendTransaction", func([]json.RawMessage) (interface{}, *rpcError) {
		return txHash, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := dial(t, server.URL, 5*time.Second).RegisterCertificate(ctx, record())

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperr.Recoverable(err))
	assert.Nil(t, out)
	assert.Equal(t, 0, node.count("eth_sendTransaction"))
}

func TestRegisterCertificate_InvalidOwner(t *testing.T) {
	node, server := newFakeNode(t)

	rec := record()
	rec.Owner = "not-an-address"
	_, err := dial(t, server.URL, time.Second).RegisterCertificate(context.Background(), rec)

	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	assert.Equal(t, 0, node.count("eth_sendTransaction"))
}

func TestLoadABI(t *testing.T) {
	_, err := registry.LoadABI(abiPath)
	require.NoError(t, err)

	_, err = registry.LoadABI(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, apperr.Is(err, apperr.CodeAssetMissing))

	noMethod := filepath.Join(t.TempDir(), "abi.json")
	require.NoError(t, os.WriteFile(noMethod, []byte(`[{"type":"function","name":"other","inputs":[],"outputs":[]}]`), 0o644))
	_, err = registry.LoadABI(noMethod)
	assert.True(t, apperr.Is(err, apperr.CodeAssetMissing))
}

func TestDial_InvalidContractAddress(t *testing.T) {
	_, err := registry.Dial(context.Background(), registry.Options{
		ProviderURI:     "http://127.0.0.1:1",
		ContractAddress: "0x1234",
		ABIPath:         abiPath,
	}, zap.NewNop())
	assert.Error(t, err)
}
