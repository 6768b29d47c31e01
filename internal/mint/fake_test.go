package mint

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultmint/internal/blockchain/evm"
)

var (
	testAsset      = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testSender     = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
	testAccountant = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testTeller     = common.HexToAddress("0x0000000000000000000000000000000000000b22")
	testVault      = common.HexToAddress("0x0000000000000000000000000000000000000c33")
	testWarpRoute  = common.HexToAddress("0x0000000000000000000000000000000000000d44")

	errTransport = errors.New("connection reset by peer")
)

// fastPolicy keeps polling tests in the millisecond range
var fastPolicy = ReceiptPolicy{
	Timeout:       2 * time.Second,
	Confirmations: 1,
	PollInterval:  time.Millisecond,
	RetryCount:    3,
	RetryDelay:    time.Millisecond,
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}

// fakeChain is an in-memory ReadClient and WalletClient that records every call in order
type fakeChain struct {
	mu sync.Mutex

	calls   []string
	written []evm.ContractCall

	addresses  []common.Address
	addressErr error

	balance   *big.Int
	allowance *big.Int
	rate      *big.Int
	readErr   error

	simulateErr map[string]error
	writeErr    error

	// receipt decides the outcome of each poll; nil means mined on the first poll
	receipt  func(hash common.Hash, attempt int) (*types.Receipt, error)
	attempts map[common.Hash]int
	head     uint64
	nextHash byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		addresses:   []common.Address{testSender},
		balance:     wei("5000000000000000000"),
		allowance:   new(big.Int),
		rate:        wei("950000000000000000"),
		simulateErr: map[string]error{},
		attempts:    map[common.Hash]int{},
		head:        100,
	}
}

func (f *fakeChain) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeChain) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeChain) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeChain) GetAddresses(ctx context.Context) ([]common.Address, error) {
	f.record("addresses")
	return f.addresses, f.addressErr
}

func (f *fakeChain) ReadContract(ctx context.Context, call evm.ContractCall) ([]interface{}, error) {
	f.record("read:" + call.Method)
	if f.readErr != nil {
		return nil, f.readErr
	}

	switch call.Method {
	case "balanceOf":
		return []interface{}{new(big.Int).Set(f.balance)}, nil
	case "allowance":
		return []interface{}{new(big.Int).Set(f.allowance)}, nil
	case "getRateInQuote":
		return []interface{}{new(big.Int).Set(f.rate)}, nil
	}
	return nil, errors.New("unexpected method " + call.Method)
}

func (f *fakeChain) SimulateContract(ctx context.Context, call evm.ContractCall) (*evm.SimulatedCall, error) {
	f.record("simulate:" + call.Method)
	if err := f.simulateErr[call.Method]; err != nil {
		return nil, err
	}
	return &evm.SimulatedCall{Call: call, Gas: 60_000}, nil
}

func (f *fakeChain) WriteContract(ctx context.Context, sim *evm.SimulatedCall) (common.Hash, error) {
	f.record("write:" + sim.Call.Method)
	if f.writeErr != nil {
		return common.Hash{}, f.writeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHash++
	f.written = append(f.written, sim.Call)
	return common.BytesToHash([]byte{f.nextHash}), nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.record("receipt")

	f.mu.Lock()
	f.attempts[hash]++
	attempt := f.attempts[hash]
	f.mu.Unlock()

	if f.receipt != nil {
		return f.receipt(hash, attempt)
	}
	return minedReceipt(hash, 100), nil
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	f.record("blockNumber")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func minedReceipt(hash common.Hash, block int64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(block),
	}
}

func notFoundUntil(n int) func(common.Hash, int) (*types.Receipt, error) {
	return func(hash common.Hash, attempt int) (*types.Receipt, error) {
		if attempt < n {
			return nil, ethereum.NotFound
		}
		return minedReceipt(hash, 100), nil
	}
}
