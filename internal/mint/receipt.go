package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptPolicy bounds how long and how hard WaitForReceipt polls
type ReceiptPolicy struct {
	Timeout       time.Duration
	Confirmations uint64
	PollInterval  time.Duration
	RetryCount    int
	RetryDelay    time.Duration
}

// DefaultReceiptPolicy waits up to a minute for one confirmation
var DefaultReceiptPolicy = ReceiptPolicy{
	Timeout:       60 * time.Second,
	Confirmations: 1,
	PollInterval:  10 * time.Second,
	RetryCount:    5,
	RetryDelay:    5 * time.Second,
}

// WaitForReceipt polls until txHash is mined with the required confirmations.
//
// A receipt that is not found yet keeps the poll going. Transport errors are
// re-polled after RetryDelay; more than RetryCount consecutive errors return
// ErrReceiptUnavailable. Any poll that gets an answer resets the count. Reaching Timeout returns
// ErrConfirmationTimeout. A mined receipt with failed status is returned
// together with ErrTransactionReverted.
func WaitForReceipt(ctx context.Context, client ReceiptReader, txHash common.Hash, policy ReceiptPolicy) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	attempts, retries := 0, 0
	for {
		wait := policy.PollInterval
		attempts++

		receipt, err := client.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, txHash.Hex())
			}

			var confirmed bool
			confirmed, err = hasConfirmations(waitCtx, client, receipt, policy.Confirmations)
			if err == nil && confirmed {
				return receipt, nil
			}
		}

		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if waitCtx.Err() != nil {
				return nil, waitError(ctx, txHash)
			}
			retries++
			if retries > policy.RetryCount {
				return nil, fmt.Errorf("%w: %d consecutive errors in %d attempts for %s: %v",
					ErrReceiptUnavailable, retries, attempts, txHash.Hex(), err)
			}
			wait = policy.RetryDelay
		} else {
			retries = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return nil, waitError(ctx, txHash)
		case <-timer.C:
		}
	}
}

// hasConfirmations only reads the chain head when more than one confirmation is required
func hasConfirmations(ctx context.Context, client ReceiptReader, receipt *types.Receipt, required uint64) (bool, error) {
	if required <= 1 {
		return true, nil
	}
	if receipt.BlockNumber == nil {
		return false, nil
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read block number: %w", err)
	}

	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return false, nil
	}
	return head-mined+1 >= required, nil
}

// waitError distinguishes our own deadline from cancellation by the caller
func waitError(parent context.Context, txHash common.Hash) error {
	if parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded) {
		return parent.Err()
	}
	return fmt.Errorf("%w: %s", ErrConfirmationTimeout, txHash.Hex())
}
