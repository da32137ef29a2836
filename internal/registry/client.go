// Package registry submits certificate registrations to the deployed
// certificate contract over Ethereum JSON-RPC. Transactions are signed by
// the node, which must hold the owner account unlocked.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	registerMethod = "registerCertificate"
	transferEvent  = "Transfer"
)

type Options struct {
	ProviderURI     string
	ContractAddress string
	ABIPath         string
	GasLimit        uint64
	PollInterval    time.Duration
	Timeout         time.Duration
}

type Client struct {
	rpc          *rpc.Client
	eth          *ethclient.Client
	contract     common.Address
	abi          abi.ABI
	gasLimit     uint64
	pollInterval time.Duration
	timeout      time.Duration
	logger       *zap.Logger
}

// sendTxArgs is the eth_sendTransaction parameter object.
type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Gas  hexutil.Uint64  `json:"gas"`
	Data hexutil.Bytes   `json:"data"`
}

// LoadABI reads the compiled contract ABI. A missing or unparsable file is
// reported as ASSET_MISSING.
func LoadABI(path string) (abi.ABI, error) {
	f, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, apperr.NewAssetMissingError(path, err)
	}
	defer f.Close()

	parsed, err := abi.JSON(f)
	if err != nil {
		return abi.ABI{}, apperr.NewAssetMissingError(path, fmt.Errorf("failed to parse contract ABI: %w", err))
	}
	if _, ok := parsed.Methods[registerMethod]; !ok {
		return abi.ABI{}, apperr.NewAssetMissingError(path, fmt.Errorf("ABI has no %s method", registerMethod))
	}
	return parsed, nil
}

// Dial loads the contract ABI and opens a JSON-RPC client. HTTP providers
// are not contacted until the first call.
func Dial(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", opts.ContractAddress)
	}

	parsed, err := LoadABI(opts.ABIPath)
	if err != nil {
		return nil, err
	}

	rpcClient, err := rpc.DialContext(ctx, opts.ProviderURI)
	if err != nil {
		return nil, fmt.Errorf("failed to dial web3 provider: %w", err)
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		rpc:          rpcClient,
		eth:          ethclient.NewClient(rpcClient),
		contract:     common.HexToAddress(opts.ContractAddress),
		abi:          parsed,
		gasLimit:     opts.GasLimit,
		pollInterval: pollInterval,
		timeout:      opts.Timeout,
		logger:       logger,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID reports the connected chain, which doubles as a liveness check.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// Accounts lists the node's accounts in checksum form.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var addrs []common.Address
	if err := c.rpc.CallContext(ctx, &addrs, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]string, len(addrs))
	for i, addr := range addrs {
		accounts[i] = addr.Hex()
	}
	return accounts, nil
}

// RegisterCertificate sends registerCertificate from rec.Owner with the
// configured gas limit and blocks until the transaction is mined or the
// ledger timeout elapses. Cancelling ctx only stops a registration that has
// not been sent yet. Once the node accepts the transaction the wait is
// bounded by the ledger timeout alone, and a receipt that never arrives is
// reported as SUBMISSION_REJECTED alongside a Receipt carrying the hash.
func (c *Client) RegisterCertificate(ctx context.Context, rec models.RegistrationRecord) (*models.Receipt, error) {
	if !common.IsHexAddress(rec.Owner) {
		return nil, apperr.NewInvalidInputError(fmt.Sprintf("owner %q is not an address", rec.Owner))
	}
	owner := common.HexToAddress(rec.Owner)

	data, err := c.abi.Pack(registerMethod, owner, rec.SubjectName, rec.CompletionDate, rec.CertificateURI, rec.ImageContentAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", registerMethod, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sendCtx, cancelSend := c.withLedgerTimeout(ctx)
	defer cancelSend()

	var hash common.Hash
	err = c.rpc.CallContext(sendCtx, &hash, "eth_sendTransaction", sendTxArgs{
		From: owner,
		To:   &c.contract,
		Gas:  hexutil.Uint64(c.gasLimit),
		Data: data,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.NewSubmissionRejectedError("eth_sendTransaction failed", err)
	}

	c.logger.Info("Certificate registration submitted",
		zap.String("tx_hash", hash.Hex()),
		zap.String("owner", owner.Hex()),
	)

	// Past this point only the ledger timeout ends the wait.
	waitCtx, cancelWait := c.withLedgerTimeout(context.WithoutCancel(ctx))
	defer cancelWait()

	receipt, err := c.waitReceipt(waitCtx, hash)
	if err != nil {
		c.logger.Warn("No receipt for submitted registration",
			zap.String("tx_hash", hash.Hex()),
			zap.Error(err),
		)
		return &models.Receipt{TxHash: hash.Hex()}, apperr.NewSubmissionRejectedError("no receipt for "+hash.Hex(), err)
	}

	out := &models.Receipt{
		Success: receipt.Status == types.ReceiptStatusSuccessful,
		TxHash:  hash.Hex(),
		GasUsed: receipt.GasUsed,
		TokenID: c.mintedTokenID(receipt),
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}

	if !out.Success {
		return out, apperr.NewSubmissionRejectedError("transaction "+hash.Hex()+" reverted", nil)
	}
	return out, nil
}

func (c *Client) withLedgerTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// mintedTokenID returns the token id from the contract's Transfer log, or
// "" when the receipt has none.
func (c *Client) mintedTokenID(receipt *types.Receipt) string {
	event, ok := c.abi.Events[transferEvent]
	if !ok {
		return ""
	}
	for _, log := range receipt.Logs {
		if log.Address != c.contract || len(log.Topics) != 4 || log.Topics[0] != event.ID {
			continue
		}
		return new(big.Int).SetBytes(log.Topics[3].Bytes()).String()
	}
	return ""
}
