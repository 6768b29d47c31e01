package mint

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorkflow(chain *fakeChain, variant Variant) *Workflow {
	return NewWorkflow(chain, chain, WorkflowConfig{
		Variant:     variant,
		Accountant:  testAccountant,
		SlippageBps: DefaultSlippageBps,
		Receipt:     fastPolicy,
	}, zap.NewNop())
}

func oneToken() DepositRequest {
	return DepositRequest{Asset: testAsset, Amount: wei("1000000000000000000")}
}

func TestDeposit_TellerApprovesWhenAllowanceShort(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = wei("999999999999999999")
	workflow := newTestWorkflow(chain, TellerVariant(testTeller, testVault))

	var states []State
	res, err := workflow.Deposit(context.Background(), oneToken(), func(s State) {
		states = append(states, s)
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"addresses",
		"read:allowance",
		"simulate:approve",
		"write:approve",
		"receipt",
		"read:getRateInQuote",
		"simulate:deposit",
		"write:deposit",
		"receipt",
	}, chain.Calls())

	require.Equal(t, []State{
		StateResolvingIdentity,
		StateCheckingAllowance,
		StateApproving,
		StateAwaitingApprovalConfirmation,
		StateComputingMinimum,
		StateSimulatingTransaction,
		StateSubmitting,
		StateAwaitingConfirmation,
		StateConfirmed,
	}, states)

	require.Equal(t, StateConfirmed, res.State)
	require.Equal(t, testSender, res.Sender)
	require.NotNil(t, res.ApprovalTxHash)
	require.NotNil(t, res.TxHash)
	require.NotNil(t, res.Receipt)

	approve := chain.written[0]
	require.Equal(t, testAsset, approve.Address)
	require.Equal(t, testVault, approve.Args[0])
	require.Equal(t, "1000000000000000000", approve.Args[1].(*big.Int).String())
}

func TestDeposit_TellerSkipsApprovalWhenAllowanceSufficient(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = wei("1000000000000000000")
	workflow := newTestWorkflow(chain, TellerVariant(testTeller, testVault))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, res.State)
	require.Nil(t, res.ApprovalTxHash)
	require.Zero(t, chain.count("simulate:approve"))
	require.Zero(t, chain.count("write:approve"))

	deposit := chain.written[0]
	require.Equal(t, testTeller, deposit.Address)
	require.Equal(t, "deposit", deposit.Method)
	require.Equal(t, testAsset, deposit.Args[0])
	require.Equal(t, "1042105263157894736", deposit.Args[2].(*big.Int).String())
}

func TestDeposit_BridgeEndToEnd(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = notFoundUntil(3)
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	req := oneToken()
	req.Recipient[31] = 0x42

	res, err := workflow.Deposit(context.Background(), req, nil)
	require.NoError(t, err)

	require.Equal(t, StateConfirmed, res.State)
	require.Equal(t, "950000000000000000", res.Rate.String())
	require.Equal(t, "1042105263157894736", res.MinimumMint.String())
	require.Zero(t, chain.count("read:allowance"))
	require.Equal(t, 3, chain.count("receipt"))

	require.Len(t, chain.written, 1)
	call := chain.written[0]
	require.Equal(t, testWarpRoute, call.Address)
	require.Equal(t, "depositAndBridge", call.Method)
	require.Equal(t, testAsset, call.Args[0])
	require.Equal(t, "1000000000000000000", call.Args[1].(*big.Int).String())
	require.Equal(t, "1042105263157894736", call.Args[2].(*big.Int).String())
	require.Equal(t, uint32(1408864445), call.Args[3])
	require.Equal(t, req.Recipient, call.Args[4])
	require.Equal(t, testSender, call.From)
}

func TestDeposit_SimulationRevertBlocksBroadcast(t *testing.T) {
	chain := newFakeChain()
	chain.simulateErr["depositAndBridge"] = errors.New("execution reverted: paused")
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)

	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	require.Equal(t, "depositAndBridge", simErr.Method)
	require.Equal(t, StateFailed, res.State)
	require.Nil(t, res.TxHash)
	require.Zero(t, chain.count("write:depositAndBridge"))
}

func TestDeposit_ApprovalSimulationRevert(t *testing.T) {
	chain := newFakeChain()
	chain.simulateErr["approve"] = errors.New("execution reverted")
	workflow := newTestWorkflow(chain, TellerVariant(testTeller, testVault))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)

	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	require.Equal(t, StateFailed, res.State)
	require.Empty(t, chain.written)
	require.Zero(t, chain.count("read:getRateInQuote"))
}

func TestDeposit_TimeoutKeepsHash(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(common.Hash, int) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}

	policy := fastPolicy
	policy.Timeout = 30 * time.Millisecond
	policy.PollInterval = 5 * time.Millisecond

	workflow := NewWorkflow(chain, chain, WorkflowConfig{
		Variant:     BridgeVariant(testWarpRoute, 1408864445),
		Accountant:  testAccountant,
		SlippageBps: DefaultSlippageBps,
		Receipt:     policy,
	}, zap.NewNop())

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.Equal(t, StateTimedOut, res.State)
	require.NotNil(t, res.TxHash)
	require.Equal(t, common.BytesToHash([]byte{1}), *res.TxHash)
	require.Nil(t, res.Receipt)
}

func TestDeposit_ApprovalTimeoutFails(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(common.Hash, int) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}

	policy := fastPolicy
	policy.Timeout = 20 * time.Millisecond

	workflow := NewWorkflow(chain, chain, WorkflowConfig{
		Variant:    TellerVariant(testTeller, testVault),
		Accountant: testAccountant,
		Receipt:    policy,
	}, zap.NewNop())

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.Equal(t, StateFailed, res.State)
	require.NotNil(t, res.ApprovalTxHash)
	require.Nil(t, res.TxHash)
	require.Zero(t, chain.count("simulate:deposit"))
}

func TestDeposit_Reverted(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = func(hash common.Hash, _ int) (*types.Receipt, error) {
		r := minedReceipt(hash, 100)
		r.Status = types.ReceiptStatusFailed
		return r, nil
	}
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)
	require.ErrorIs(t, err, ErrTransactionReverted)
	require.Equal(t, StateFailed, res.State)
	require.NotNil(t, res.TxHash)
	require.NotNil(t, res.Receipt)
}

func TestDeposit_IdentityUnavailable(t *testing.T) {
	tests := []struct {
		name      string
		addresses []common.Address
		err       error
	}{
		{name: "no addresses"},
		{name: "wallet error", err: errors.New("locked")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.addresses = tt.addresses
			chain.addressErr = tt.err
			workflow := newTestWorkflow(chain, TellerVariant(testTeller, testVault))

			res, err := workflow.Deposit(context.Background(), oneToken(), nil)
			require.ErrorIs(t, err, ErrIdentityUnavailable)
			require.Equal(t, StateFailed, res.State)
			require.Equal(t, []string{"addresses"}, chain.Calls())
		})
	}
}

func TestDeposit_SubmissionError(t *testing.T) {
	chain := newFakeChain()
	chain.writeErr = errors.New("nonce too low")
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, StateFailed, res.State)
	require.Nil(t, res.TxHash)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	chain := newFakeChain()
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	res, err := workflow.Deposit(context.Background(), DepositRequest{Asset: testAsset, Amount: big.NewInt(0)}, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Equal(t, StateFailed, res.State)
	require.Empty(t, chain.Calls())
}

func TestDeposit_ZeroRateUsesAmount(t *testing.T) {
	chain := newFakeChain()
	chain.rate = big.NewInt(0)
	workflow := newTestWorkflow(chain, BridgeVariant(testWarpRoute, 1408864445))

	res, err := workflow.Deposit(context.Background(), oneToken(), nil)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", res.MinimumMint.String())
}

func TestState_IsTerminal(t *testing.T) {
	require.True(t, StateConfirmed.IsTerminal())
	require.True(t, StateFailed.IsTerminal())
	require.True(t, StateTimedOut.IsTerminal())
	require.False(t, StateSubmitting.IsTerminal())
	require.False(t, StateIdle.IsTerminal())
}
