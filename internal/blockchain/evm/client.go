package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"vaultmint/internal/config"
)

// ErrReadOnly is returned when a write is attempted without a signing key
var ErrReadOnly = errors.New("client has no signing key")

// ContractCall describes one contract function invocation
type ContractCall struct {
	Address common.Address
	ABI     *abi.ABI
	Method  string
	Args    []interface{}
	From    common.Address
	Value   *big.Int
}

// SimulatedCall is a call that passed a dry run and can be written as-is
type SimulatedCall struct {
	Call   ContractCall
	Data   []byte
	Gas    uint64
	Result []interface{}
}

// Client wraps Ethereum client functionality for reading, simulating and writing contract calls
type Client struct {
	ethClient   *ethclient.Client
	chainConfig *config.ChainConfig
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	logger      *zap.Logger
}

// NewClient dials the chain RPC endpoint. privateKeyHex may be empty for a read-only client.
func NewClient(ctx context.Context, chainCfg *config.ChainConfig, privateKeyHex string, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("evm")

	ethClient, err := ethclient.DialContext(ctx, chainCfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", chainCfg.RPCEndpoint, err)
	}

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainCfg.ChainID != 0 && chainID.Int64() != chainCfg.ChainID {
		ethClient.Close()
		return nil, fmt.Errorf("RPC endpoint serves chain %s, expected %d", chainID, chainCfg.ChainID)
	}

	c := &Client{
		ethClient:   ethClient,
		chainConfig: chainCfg,
		chainID:     chainID,
		logger:      logger,
	}

	if privateKeyHex != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			ethClient.Close()
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		c.privateKey = privateKey
		c.fromAddress = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	logger.Info("EVM client initialized",
		zap.String("chain_id", chainID.String()),
		zap.String("chain_name", chainCfg.Name),
		zap.Bool("can_sign", c.privateKey != nil),
		zap.String("wallet_address", c.fromAddress.Hex()))

	return c, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.ethClient.Close()
}

// GetAddresses returns the addresses the client can sign for
func (c *Client) GetAddresses(ctx context.Context) ([]common.Address, error) {
	if c.privateKey == nil {
		return nil, nil
	}
	return []common.Address{c.fromAddress}, nil
}

// ReadContract executes a view call and returns the unpacked outputs
func (c *Client) ReadContract(ctx context.Context, call ContractCall) ([]interface{}, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", call.Method, err)
	}

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		From: call.From,
		To:   &call.Address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", call.Method, err)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("empty response from %s on %s", call.Method, call.Address.Hex())
	}

	outputs, err := call.ABI.Unpack(call.Method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", call.Method, err)
	}

	return outputs, nil
}

// SimulateContract dry-runs a state-changing call from call.From.
// A revert is returned as a *RevertError carrying the decoded reason.
func (c *Client) SimulateContract(ctx context.Context, call ContractCall) (*SimulatedCall, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", call.Method, err)
	}

	msg := ethereum.CallMsg{
		From:  call.From,
		To:    &call.Address,
		Data:  data,
		Value: call.Value,
	}

	result, err := c.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, newRevertError(call.Method, err)
	}

	gasLimit, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return nil, newRevertError(call.Method, err)
	}

	// Add 20% buffer
	gasLimit = gasLimit * 120 / 100

	var outputs []interface{}
	if len(result) > 0 {
		outputs, err = call.ABI.Unpack(call.Method, result)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s simulation result: %w", call.Method, err)
		}
	}

	return &SimulatedCall{
		Call:   call,
		Data:   data,
		Gas:    gasLimit,
		Result: outputs,
	}, nil
}

// WriteContract signs and broadcasts a previously simulated call
func (c *Client) WriteContract(ctx context.Context, sim *SimulatedCall) (common.Hash, error) {
	if c.privateKey == nil {
		return common.Hash{}, ErrReadOnly
	}
	if sim.Call.From != c.fromAddress {
		return common.Hash{}, fmt.Errorf("simulated from %s but signer is %s", sim.Call.From.Hex(), c.fromAddress.Hex())
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	value := sim.Call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx, err := c.buildTransaction(ctx, nonce, sim.Call.Address, value, sim.Gas, sim.Data)
	if err != nil {
		return common.Hash{}, err
	}

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("Transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("method", sim.Call.Method),
		zap.String("to", sim.Call.Address.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", sim.Gas))

	return signedTx.Hash(), nil
}

// buildTransaction prefers an EIP-1559 transaction and falls back to legacy pricing
// on chains without a base fee
func (c *Client) buildTransaction(
	ctx context.Context,
	nonce uint64,
	to common.Address,
	value *big.Int,
	gasLimit uint64,
	data []byte,
) (*types.Transaction, error) {
	head, err := c.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data), nil
	}

	tip, err := c.ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}

	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}

// TransactionReceipt gets the receipt for a transaction; ethereum.NotFound while pending
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.ethClient.TransactionReceipt(ctx, txHash)
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// IsContractDeployed checks if a contract exists at the given address
func (c *Client) IsContractDeployed(ctx context.Context, address common.Address) (bool, error) {
	code, err := c.ethClient.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at address: %w", err)
	}
	return len(code) > 0, nil
}
