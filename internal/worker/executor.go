package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vaultmint/internal/mint"
	"vaultmint/internal/models"
	"vaultmint/internal/session"
)

// Executor runs deposit workflows for sessions
type Executor struct {
	manager *WorkerManager
	logger  *zap.Logger
}

// NewExecutor creates a new deposit executor
func NewExecutor(manager *WorkerManager) *Executor {
	return &Executor{
		manager: manager,
		logger:  manager.logger.Named("executor"),
	}
}

// Launch runs the deposit in the background.
// The session must already be marked pending by BeginDeposit.
func (e *Executor) Launch(s *session.Session, req mint.DepositRequest) {
	e.manager.wg.Add(1)
	go func() {
		defer e.manager.wg.Done()
		e.execute(e.manager.ctx, s, req)
	}()
}

// execute runs one deposit and always clears the session's pending flag
func (e *Executor) execute(ctx context.Context, s *session.Session, req mint.DepositRequest) {
	start := time.Now()
	variant := e.manager.workflow.Variant().Name

	outcome := session.Outcome{State: mint.StateFailed}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Deposit panicked",
				zap.String("session_id", s.ID()),
				zap.Any("panic", r))
			outcome = session.Outcome{State: mint.StateFailed, Error: fmt.Sprintf("internal error: %v", r)}
		}
		s.FinishDeposit(outcome)
		e.manager.metrics.ObserveDeposit(variant, string(outcome.State), time.Since(start))
	}()

	e.logger.Info("Executing deposit",
		zap.String("session_id", s.ID()),
		zap.String("variant", variant),
		zap.String("asset", req.Asset.Hex()),
		zap.String("amount", req.Amount.String()))

	deposit := e.openJournal(s, variant, req)

	res, err := e.manager.workflow.Deposit(ctx, req, s.SetWorkflowState)

	outcome = session.Outcome{
		State:          res.State,
		TxHash:         res.TxHash,
		ApprovalTxHash: res.ApprovalTxHash,
		MinimumMint:    res.MinimumMint,
	}
	if err != nil {
		outcome.Error = err.Error()
	}

	e.closeJournal(deposit, res)
}

// openJournal records the attempt; journal failures never block a deposit
func (e *Executor) openJournal(s *session.Session, variant string, req mint.DepositRequest) *models.Deposit {
	if e.manager.deposits == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), JournalTimeout)
	defer cancel()

	deposit, err := e.manager.deposits.Open(ctx, s.ID(), variant, req)
	if err != nil {
		e.logger.Error("Failed to journal deposit",
			zap.String("session_id", s.ID()),
			zap.Error(err))
		return nil
	}
	return deposit
}

func (e *Executor) closeJournal(deposit *models.Deposit, res *mint.DepositResult) {
	if deposit == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), JournalTimeout)
	defer cancel()

	if err := e.manager.deposits.Close(ctx, deposit, res); err != nil {
		e.logger.Error("Failed to record deposit outcome",
			zap.String("deposit_id", deposit.DepositID),
			zap.Error(err))
	}
}
