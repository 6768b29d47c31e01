package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vaultmint/internal/models"
)

const depositColumns = `
	id, deposit_id, session_id, variant, sender, asset, amount::text AS amount,
	minimum_mint::text AS minimum_mint, rate::text AS rate,
	approval_tx_hash, tx_hash, status, error_message, created_at, updated_at
`

// CreateDeposit records a new submission attempt
func (db *DB) CreateDeposit(ctx context.Context, deposit *models.Deposit) error {
	query := `
		INSERT INTO deposits (deposit_id, session_id, variant, sender, asset, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return db.QueryRowContext(
		ctx, query,
		deposit.DepositID,
		deposit.SessionID,
		deposit.Variant,
		deposit.Sender,
		deposit.Asset,
		deposit.Amount,
		deposit.Status,
	).Scan(&deposit.ID, &deposit.CreatedAt, &deposit.UpdatedAt)
}

// UpdateDepositOutcome stores the final state of a submission attempt
func (db *DB) UpdateDepositOutcome(ctx context.Context, deposit *models.Deposit) error {
	query := `
		UPDATE deposits
		SET sender = $2,
		    minimum_mint = $3,
		    rate = $4,
		    approval_tx_hash = $5,
		    tx_hash = $6,
		    status = $7,
		    error_message = $8,
		    updated_at = NOW()
		WHERE deposit_id = $1
	`
	result, err := db.ExecContext(
		ctx, query,
		deposit.DepositID,
		deposit.Sender,
		deposit.MinimumMint,
		deposit.Rate,
		deposit.ApprovalTxHash,
		deposit.TxHash,
		deposit.Status,
		deposit.ErrorMessage,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("deposit %s not found", deposit.DepositID)
	}
	return nil
}

// GetDepositByTxHash retrieves a deposit by its transaction hash
func (db *DB) GetDepositByTxHash(ctx context.Context, txHash string) (*models.Deposit, error) {
	var deposit models.Deposit
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE LOWER(tx_hash) = LOWER($1)`
	err := db.GetContext(ctx, &deposit, query, txHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

// GetDepositsBySender retrieves the most recent deposits submitted by sender
func (db *DB) GetDepositsBySender(ctx context.Context, sender string, limit int) ([]models.Deposit, error) {
	var deposits []models.Deposit
	query := `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE LOWER(sender) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := db.SelectContext(ctx, &deposits, query, sender, limit)
	return deposits, err
}
