package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"vaultmint/internal/blockchain/evm"
)

// State is a deposit workflow step
type State string

const (
	StateIdle                         State = "IDLE"
	StateResolvingIdentity            State = "RESOLVING_IDENTITY"
	StateCheckingAllowance            State = "CHECKING_ALLOWANCE"
	StateApproving                    State = "APPROVING"
	StateAwaitingApprovalConfirmation State = "AWAITING_APPROVAL_CONFIRMATION"
	StateComputingMinimum             State = "COMPUTING_MINIMUM"
	StateSimulatingTransaction        State = "SIMULATING_TRANSACTION"
	StateSubmitting                   State = "SUBMITTING"
	StateAwaitingConfirmation         State = "AWAITING_CONFIRMATION"
	StateConfirmed                    State = "CONFIRMED"
	StateFailed                       State = "FAILED"
	StateTimedOut                     State = "TIMED_OUT"
)

// IsTerminal reports whether no further transitions follow s
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// Variant selects the deposit entry point
type Variant struct {
	Name string

	// RequiresAllowanceCheck inserts the allowance check and approval steps
	RequiresAllowanceCheck bool

	// Target receives the deposit call
	Target common.Address

	// Spender is approved to pull the deposit asset when RequiresAllowanceCheck is set
	Spender common.Address

	// DestinationDomain is the Hyperlane domain for bridged deposits
	DestinationDomain uint32

	bridge bool
}

// TellerVariant deposits through the vault teller, approving the vault as spender first
func TellerVariant(teller, vault common.Address) Variant {
	return Variant{
		Name:                   "teller",
		RequiresAllowanceCheck: true,
		Target:                 teller,
		Spender:                vault,
	}
}

// BridgeVariant deposits and bridges in one call to the warp route
func BridgeVariant(warpRoute common.Address, destinationDomain uint32) Variant {
	return Variant{
		Name:              "bridge",
		Target:            warpRoute,
		DestinationDomain: destinationDomain,
		bridge:            true,
	}
}

// IsBridge reports whether the variant needs a destination recipient
func (v Variant) IsBridge() bool {
	return v.bridge
}

func (v Variant) depositCall(req DepositRequest, minimumMint *big.Int, from common.Address) evm.ContractCall {
	if v.bridge {
		return evm.DepositAndBridgeCall(v.Target, req.Asset, req.Amount, minimumMint, v.DestinationDomain, req.Recipient, from)
	}
	return evm.TellerDepositCall(v.Target, req.Asset, req.Amount, minimumMint, from)
}

// DepositRequest is one deposit attempt
type DepositRequest struct {
	Asset     common.Address
	Amount    *big.Int
	Recipient [32]byte // destination account for bridged deposits
}

// DepositResult records how far a deposit got.
// It is returned even when the workflow fails.
type DepositResult struct {
	State          State
	Sender         common.Address
	Rate           *big.Int
	MinimumMint    *big.Int
	ApprovalTxHash *common.Hash
	TxHash         *common.Hash
	Receipt        *types.Receipt
	Err            error
}

// WorkflowConfig holds the per-deployment workflow settings
type WorkflowConfig struct {
	Variant     Variant
	Accountant  common.Address
	SlippageBps uint16
	Receipt     ReceiptPolicy
}

// TransitionFunc observes every state the workflow enters
type TransitionFunc func(State)

// Workflow runs deposits against the chain
type Workflow struct {
	reader   ReadClient
	wallet   WalletClient
	quotes   *QuoteService
	balances *BalanceService
	cfg      WorkflowConfig
	logger   *zap.Logger
}

// NewWorkflow creates a deposit workflow
func NewWorkflow(reader ReadClient, wallet WalletClient, cfg WorkflowConfig, logger *zap.Logger) *Workflow {
	return &Workflow{
		reader:   reader,
		wallet:   wallet,
		quotes:   NewQuoteService(reader, cfg.Accountant, logger),
		balances: NewBalanceService(reader),
		cfg:      cfg,
		logger:   logger.Named("workflow"),
	}
}

// Variant returns the configured deposit variant
func (w *Workflow) Variant() Variant {
	return w.cfg.Variant
}

// Deposit runs one deposit to a terminal state.
//
// The exchange rate is read fresh for the minimum; previously displayed rates
// are never reused. Every write is simulated first and nothing is broadcast
// when simulation fails. A deposit that is broadcast but not confirmed in time
// or abandoned on shutdown ends TimedOut with its hash kept, since it may still land.
func (w *Workflow) Deposit(ctx context.Context, req DepositRequest, onTransition TransitionFunc) (*DepositResult, error) {
	res := &DepositResult{State: StateIdle}
	logger := w.logger.With(
		zap.String("variant", w.cfg.Variant.Name),
		zap.String("asset", req.Asset.Hex()))

	transition := func(s State) {
		res.State = s
		logger.Debug("Deposit state", zap.String("state", string(s)))
		if onTransition != nil {
			onTransition(s)
		}
	}

	fail := func(err error) (*DepositResult, error) {
		res.Err = err
		if res.TxHash != nil && (IsIndeterminate(err) || errors.Is(err, context.Canceled)) {
			transition(StateTimedOut)
			logger.Warn("Deposit not confirmed before timeout",
				zap.String("tx_hash", res.TxHash.Hex()),
				zap.Error(err))
		} else {
			transition(StateFailed)
			logger.Error("Deposit failed", zap.Error(err))
		}
		return res, err
	}

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return fail(ErrInvalidAmount)
	}

	transition(StateResolvingIdentity)
	sender, err := w.resolveIdentity(ctx)
	if err != nil {
		return fail(err)
	}
	res.Sender = sender
	logger = logger.With(zap.String("sender", sender.Hex()))

	if w.cfg.Variant.RequiresAllowanceCheck {
		if err := w.ensureAllowance(ctx, req, sender, res, transition); err != nil {
			return fail(err)
		}
	}

	transition(StateComputingMinimum)
	rate, err := w.quotes.RateInQuote(ctx, req.Asset)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch exchange rate: %w", err))
	}
	res.Rate = rate
	res.MinimumMint = MinimumMint(req.Amount, rate, w.cfg.SlippageBps)

	logger.Info("Computed minimum mint",
		zap.String("amount", req.Amount.String()),
		zap.String("rate", rate.String()),
		zap.String("minimum_mint", res.MinimumMint.String()))

	transition(StateSimulatingTransaction)
	call := w.cfg.Variant.depositCall(req, res.MinimumMint, sender)
	sim, err := w.reader.SimulateContract(ctx, call)
	if err != nil {
		return fail(&SimulationError{Method: call.Method, Reason: evm.RevertReason(err), Err: err})
	}

	transition(StateSubmitting)
	txHash, err := w.wallet.WriteContract(ctx, sim)
	if err != nil {
		return fail(&SubmissionError{Method: call.Method, Err: err})
	}
	res.TxHash = &txHash

	logger.Info("Deposit submitted", zap.String("tx_hash", txHash.Hex()))

	transition(StateAwaitingConfirmation)
	receipt, err := WaitForReceipt(ctx, w.reader, txHash, w.cfg.Receipt)
	res.Receipt = receipt
	if err != nil {
		return fail(err)
	}

	transition(StateConfirmed)
	logger.Info("Deposit confirmed",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()))

	return res, nil
}

func (w *Workflow) resolveIdentity(ctx context.Context) (common.Address, error) {
	if w.wallet == nil {
		return common.Address{}, ErrIdentityUnavailable
	}

	addresses, err := w.wallet.GetAddresses(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	if len(addresses) == 0 {
		return common.Address{}, ErrIdentityUnavailable
	}
	return addresses[0], nil
}

// ensureAllowance approves the spender for exactly the deposit amount when
// the current allowance is short, and waits for the approval to confirm
func (w *Workflow) ensureAllowance(ctx context.Context, req DepositRequest, sender common.Address, res *DepositResult, transition func(State)) error {
	spender := w.cfg.Variant.Spender

	transition(StateCheckingAllowance)
	allowance, err := w.balances.Allowance(ctx, req.Asset, sender, spender)
	if err != nil {
		return err
	}
	if req.Amount.Cmp(allowance) <= 0 {
		w.logger.Debug("Allowance sufficient, skipping approval",
			zap.String("allowance", allowance.String()))
		return nil
	}

	transition(StateApproving)
	call := evm.ApproveCall(req.Asset, spender, req.Amount, sender)
	sim, err := w.reader.SimulateContract(ctx, call)
	if err != nil {
		return &SimulationError{Method: call.Method, Reason: evm.RevertReason(err), Err: err}
	}

	approvalHash, err := w.wallet.WriteContract(ctx, sim)
	if err != nil {
		return &SubmissionError{Method: call.Method, Err: err}
	}
	res.ApprovalTxHash = &approvalHash

	w.logger.Info("Approval submitted",
		zap.String("spender", spender.Hex()),
		zap.String("tx_hash", approvalHash.Hex()))

	transition(StateAwaitingApprovalConfirmation)
	if _, err := WaitForReceipt(ctx, w.reader, approvalHash, w.cfg.Receipt); err != nil {
		return fmt.Errorf("approval %s not confirmed: %w", approvalHash.Hex(), err)
	}

	return nil
}
