package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DepositStatus represents the terminal or in-flight state of a recorded deposit
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "PENDING"
	DepositStatusConfirmed DepositStatus = "CONFIRMED"
	DepositStatusFailed    DepositStatus = "FAILED"
	DepositStatusTimedOut  DepositStatus = "TIMED_OUT"
)

// DefaultDecimals is the precision every configured deposit asset uses today
const DefaultDecimals = 18

// Asset is immutable reference data for a depositable ERC-20 token
type Asset struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Icon     string         `json:"icon"`
	Decimals int            `json:"decimals"`
}

// IsZero reports whether the asset is unset
func (a Asset) IsZero() bool {
	return a.Address == (common.Address{})
}

// Deposit is a journal entry for one submission attempt
type Deposit struct {
	ID             int64         `db:"id"`
	DepositID      string        `db:"deposit_id"`
	SessionID      string        `db:"session_id"`
	Variant        string        `db:"variant"`
	Sender         string        `db:"sender"`
	Asset          string        `db:"asset"`
	Amount         string        `db:"amount"`       // minimal units, decimal string
	MinimumMint    *string       `db:"minimum_mint"` // nullable, minimal units
	Rate           *string       `db:"rate"`         // nullable, scaled by 1e18
	ApprovalTxHash *string       `db:"approval_tx_hash"`
	TxHash         *string       `db:"tx_hash"`
	Status         DepositStatus `db:"status"`
	ErrorMessage   *string       `db:"error_message"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}
