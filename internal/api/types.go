package api

import (
	"time"

	"vaultmint/internal/models"
)

// ==================== Tokens ====================

// GetTokensResponse lists the depositable assets
type GetTokensResponse struct {
	Tokens []models.Asset `json:"tokens"`
}

// ==================== Quotes ====================

// QuoteRequest asks what a deposit would mint at the current rate
type QuoteRequest struct {
	Asset  string `json:"asset"`  // symbol or address
	Amount string `json:"amount"` // whole tokens, decimal string
}

// QuoteResponse carries both formatted and minimal-unit amounts
type QuoteResponse struct {
	Asset            models.Asset `json:"asset"`
	Amount           string       `json:"amount"`
	AmountRaw        string       `json:"amount_raw"`
	Rate             string       `json:"rate"` // scaled by 1e18
	ReceiveAmount    string       `json:"receive_amount"`
	ReceiveAmountRaw string       `json:"receive_amount_raw"`
	MinimumMint      string       `json:"minimum_mint"`
	MinimumMintRaw   string       `json:"minimum_mint_raw"`
	SlippageBps      uint16       `json:"slippage_bps"`
}

// ==================== Sessions ====================

// CreateSessionRequest opens a mint session; every field is optional
type CreateSessionRequest struct {
	Holder    string `json:"holder"`
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
}

// SetAssetRequest switches the deposit asset
type SetAssetRequest struct {
	Asset string `json:"asset"`
}

// SetAmountRequest updates the typed deposit amount
type SetAmountRequest struct {
	Amount string `json:"amount"`
}

// SetIdentityRequest connects or disconnects a holder.
// An empty holder disconnects; a nil recipient leaves it unchanged.
type SetIdentityRequest struct {
	Holder    string  `json:"holder"`
	Recipient *string `json:"recipient"`
}

// DepositOutcome is the last deposit attempt of a session
type DepositOutcome struct {
	State          string    `json:"state"`
	TxHash         *string   `json:"tx_hash,omitempty"`
	ApprovalTxHash *string   `json:"approval_tx_hash,omitempty"`
	MinimumMint    *string   `json:"minimum_mint,omitempty"`
	Error          *string   `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}

// SessionResponse is the presentation state of a session
type SessionResponse struct {
	ID            string          `json:"id"`
	Asset         models.Asset    `json:"asset"`
	Holder        *string         `json:"holder"`
	Recipient     string          `json:"recipient,omitempty"`
	DepositAmount string          `json:"deposit_amount"`
	ReceiveAmount *string         `json:"receive_amount"` // null while the rate is unknown
	Balance       *string         `json:"balance"`        // null while the balance is unknown
	ExchangeRate  *string         `json:"exchange_rate"`
	Pending       bool            `json:"pending"`
	WorkflowState string          `json:"workflow_state"`
	MintDisabled  bool            `json:"mint_disabled"`
	OverBalance   bool            `json:"over_balance"`
	LastDeposit   *DepositOutcome `json:"last_deposit,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ==================== Deposits ====================

// TxHashes holds the transaction hashes of a deposit
type TxHashes struct {
	Approval *string `json:"approval"`
	Deposit  *string `json:"deposit"`
}

// DepositResponse is one deposit journal entry
type DepositResponse struct {
	DepositID   string               `json:"deposit_id"`
	SessionID   string               `json:"session_id"`
	Variant     string               `json:"variant"`
	Sender      string               `json:"sender"`
	Asset       string               `json:"asset"`
	Amount      string               `json:"amount"` // minimal units
	MinimumMint *string              `json:"minimum_mint"`
	Rate        *string              `json:"rate"`
	Status      models.DepositStatus `json:"status"`
	TxHashes    TxHashes             `json:"tx_hashes"`
	Error       *string              `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// GetDepositsResponse lists a sender's deposits
type GetDepositsResponse struct {
	Deposits []DepositResponse `json:"deposits"`
}

// ==================== Error Response ====================

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==================== Health Check ====================

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Variant string `json:"variant,omitempty"`
}
