package mint

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var testHash = common.HexToHash("0xabc1")

func TestWaitForReceipt_ConfirmsAfterPolling(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = notFoundUntil(3)

	receipt, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.NoError(t, err)
	require.Equal(t, testHash, receipt.TxHash)
	require.Equal(t, 3, chain.count("receipt"))
	require.Zero(t, chain.count("blockNumber"))
}

func TestWaitForReceipt_Timeout(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(common.Hash, int) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}

	policy := fastPolicy
	policy.Timeout = 30 * time.Millisecond
	policy.PollInterval = 5 * time.Millisecond

	start := time.Now()
	_, err := WaitForReceipt(context.Background(), chain, testHash, policy)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.True(t, IsIndeterminate(err))
	require.Less(t, time.Since(start), time.Second)
}

func TestWaitForReceipt_RetriesTransportErrors(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(hash common.Hash, attempt int) (*types.Receipt, error) {
		if attempt <= 2 {
			return nil, errTransport
		}
		return minedReceipt(hash, 7), nil
	}

	receipt, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.NoError(t, err)
	require.Equal(t, int64(7), receipt.BlockNumber.Int64())
}

func TestWaitForReceipt_RetriesExhausted(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(common.Hash, int) (*types.Receipt, error) {
		return nil, errTransport
	}

	_, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.ErrorIs(t, err, ErrReceiptUnavailable)
	require.True(t, IsIndeterminate(err))
	require.Equal(t, fastPolicy.RetryCount+1, chain.count("receipt"))
}

func TestWaitForReceipt_AnswersResetRetries(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(hash common.Hash, attempt int) (*types.Receipt, error) {
		switch {
		case attempt >= 14:
			return minedReceipt(hash, 9), nil
		case attempt%2 == 1:
			return nil, errTransport
		default:
			return nil, ethereum.NotFound
		}
	}

	receipt, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.NoError(t, err)
	require.Equal(t, int64(9), receipt.BlockNumber.Int64())
	require.Equal(t, 14, chain.count("receipt"))
}

func TestWaitForReceipt_ConsecutiveErrorsAfterAnswers(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(_ common.Hash, attempt int) (*types.Receipt, error) {
		if attempt <= 2 {
			return nil, ethereum.NotFound
		}
		return nil, errTransport
	}

	_, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.ErrorIs(t, err, ErrReceiptUnavailable)
	require.Contains(t, err.Error(), "6 attempts")
	require.Equal(t, 2+fastPolicy.RetryCount+1, chain.count("receipt"))
}

func TestWaitForReceipt_Reverted(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(hash common.Hash, _ int) (*types.Receipt, error) {
		r := minedReceipt(hash, 100)
		r.Status = types.ReceiptStatusFailed
		return r, nil
	}

	receipt, err := WaitForReceipt(context.Background(), chain, testHash, fastPolicy)
	require.ErrorIs(t, err, ErrTransactionReverted)
	require.False(t, IsIndeterminate(err))
	require.NotNil(t, receipt)
}

func TestWaitForReceipt_WaitsForConfirmations(t *testing.T) {
	chain := newFakeChain()
	chain.head = 101
	chain.receipt = func(hash common.Hash, attempt int) (*types.Receipt, error) {
		if attempt == 2 {
			chain.mu.Lock()
			chain.head = 102
			chain.mu.Unlock()
		}
		return minedReceipt(hash, 100), nil
	}

	policy := fastPolicy
	policy.Confirmations = 3

	receipt, err := WaitForReceipt(context.Background(), chain, testHash, policy)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), receipt.BlockNumber)
	require.Equal(t, 2, chain.count("receipt"))
	require.Equal(t, 2, chain.count("blockNumber"))
}

func TestWaitForReceipt_CallerCancel(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(common.Hash, int) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := WaitForReceipt(ctx, chain, testHash, fastPolicy)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsIndeterminate(err))
}
