package mint

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultmint/internal/blockchain/evm"
)

// ReceiptReader is the part of the read client used for confirmation polling
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ReadClient is the read-capable blockchain client shared by the services
type ReadClient interface {
	ReceiptReader
	ReadContract(ctx context.Context, call evm.ContractCall) ([]interface{}, error)
	SimulateContract(ctx context.Context, call evm.ContractCall) (*evm.SimulatedCall, error)
}

// WalletClient is the signing side of the blockchain client
type WalletClient interface {
	GetAddresses(ctx context.Context) ([]common.Address, error)
	WriteContract(ctx context.Context, sim *evm.SimulatedCall) (common.Hash, error)
}

var (
	_ ReadClient   = (*evm.Client)(nil)
	_ WalletClient = (*evm.Client)(nil)
)
