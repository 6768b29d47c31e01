package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vaultmint/internal/mint"
	"vaultmint/internal/models"
)

// DefaultHistoryLimit caps the deposits returned per sender
const DefaultHistoryLimit = 50

// DepositStore persists the deposit journal
type DepositStore interface {
	CreateDeposit(ctx context.Context, deposit *models.Deposit) error
	UpdateDepositOutcome(ctx context.Context, deposit *models.Deposit) error
	GetDepositByTxHash(ctx context.Context, txHash string) (*models.Deposit, error)
	GetDepositsBySender(ctx context.Context, sender string, limit int) ([]models.Deposit, error)
}

// DepositService records every submission attempt and its outcome
type DepositService struct {
	store  DepositStore
	logger *zap.Logger
}

// NewDepositService creates a new deposit service
func NewDepositService(store DepositStore, logger *zap.Logger) *DepositService {
	return &DepositService{
		store:  store,
		logger: logger,
	}
}

// Open records a deposit attempt before the workflow starts
func (s *DepositService) Open(ctx context.Context, sessionID, variant string, req mint.DepositRequest) (*models.Deposit, error) {
	deposit := &models.Deposit{
		DepositID: uuid.NewString(),
		SessionID: sessionID,
		Variant:   variant,
		Asset:     req.Asset.Hex(),
		Amount:    req.Amount.String(),
		Status:    models.DepositStatusPending,
	}

	if err := s.store.CreateDeposit(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	s.logger.Info("Deposit opened",
		zap.String("deposit_id", deposit.DepositID),
		zap.String("session_id", sessionID),
		zap.String("asset", deposit.Asset),
		zap.String("amount", deposit.Amount))

	return deposit, nil
}

// Close stores the workflow result on the deposit record
func (s *DepositService) Close(ctx context.Context, deposit *models.Deposit, res *mint.DepositResult) error {
	deposit.Status = StatusForState(res.State)
	if res.Sender != (common.Address{}) {
		deposit.Sender = res.Sender.Hex()
	}
	if res.MinimumMint != nil {
		deposit.MinimumMint = stringPtr(res.MinimumMint.String())
	}
	if res.Rate != nil {
		deposit.Rate = stringPtr(res.Rate.String())
	}
	if res.ApprovalTxHash != nil {
		deposit.ApprovalTxHash = stringPtr(res.ApprovalTxHash.Hex())
	}
	if res.TxHash != nil {
		deposit.TxHash = stringPtr(res.TxHash.Hex())
	}
	if res.Err != nil {
		deposit.ErrorMessage = stringPtr(res.Err.Error())
	}

	if err := s.store.UpdateDepositOutcome(ctx, deposit); err != nil {
		return fmt.Errorf("failed to update deposit %s: %w", deposit.DepositID, err)
	}

	s.logger.Info("Deposit closed",
		zap.String("deposit_id", deposit.DepositID),
		zap.String("status", string(deposit.Status)))

	return nil
}

// GetByTxHash returns the deposit submitted as txHash, or nil when unknown
func (s *DepositService) GetByTxHash(ctx context.Context, txHash string) (*models.Deposit, error) {
	return s.store.GetDepositByTxHash(ctx, txHash)
}

// ListBySender returns sender's most recent deposits
func (s *DepositService) ListBySender(ctx context.Context, sender string) ([]models.Deposit, error) {
	return s.store.GetDepositsBySender(ctx, sender, DefaultHistoryLimit)
}

// StatusForState maps a workflow state onto the journal status
func StatusForState(state mint.State) models.DepositStatus {
	switch state {
	case mint.StateConfirmed:
		return models.DepositStatusConfirmed
	case mint.StateTimedOut:
		return models.DepositStatusTimedOut
	case mint.StateFailed:
		return models.DepositStatusFailed
	default:
		return models.DepositStatusPending
	}
}

func stringPtr(s string) *string {
	return &s
}
