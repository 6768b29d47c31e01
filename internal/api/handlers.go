package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"vaultmint/internal/mint"
	"vaultmint/internal/models"
	"vaultmint/internal/service"
	"vaultmint/internal/session"
	"vaultmint/internal/worker"
)

// SessionManager owns the mint sessions
type SessionManager interface {
	OpenSession(asset models.Asset, holder *common.Address, recipient string) (*session.Session, error)
	Session(id string) (*session.Session, bool)
	CloseSession(id string) bool
	Submit(id string) error
	Variant() mint.Variant
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	assets   *service.AssetService
	previews *service.PreviewService
	deposits *service.DepositService
	sessions SessionManager
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	assets *service.AssetService,
	previews *service.PreviewService,
	deposits *service.DepositService,
	sessions SessionManager,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		assets:   assets,
		previews: previews,
		deposits: deposits,
		sessions: sessions,
		logger:   logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	if h.sessions != nil {
		response.Variant = h.sessions.Variant().Name
	}
	respondJSON(w, http.StatusOK, response)
}

// ==================== Tokens ====================

// HandleGetTokens handles GET /api/v1/tokens
func (h *Handler) HandleGetTokens(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetTokensResponse{Tokens: h.assets.List()})
}

// ==================== Quotes ====================

// HandleQuote handles POST /api/v1/quotes
// Computes the receive amount and minimum mint at the current rate
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Asset == "" {
		respondError(w, http.StatusBadRequest, "asset is required", nil)
		return
	}
	if req.Amount == "" {
		respondError(w, http.StatusBadRequest, "amount is required", nil)
		return
	}

	preview, err := h.previews.PreviewDeposit(r.Context(), req.Asset, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, mint.ErrClientUnavailable):
			respondError(w, http.StatusServiceUnavailable, "Blockchain client unavailable", err)
		case errors.Is(err, service.ErrRateUnavailable):
			h.logger.Error("Failed to fetch exchange rate",
				zap.String("asset", req.Asset),
				zap.Error(err))
			respondError(w, http.StatusBadGateway, "Failed to fetch exchange rate", err)
		default:
			respondError(w, http.StatusBadRequest, "Invalid quote request", err)
		}
		return
	}

	response := QuoteResponse{
		Asset:            preview.Asset,
		Amount:           models.FormatUnits(preview.Amount, preview.Asset.Decimals),
		AmountRaw:        preview.Amount.String(),
		Rate:             preview.Rate.String(),
		ReceiveAmount:    models.FormatUnits(preview.ReceiveAmount, models.DefaultDecimals),
		ReceiveAmountRaw: preview.ReceiveAmount.String(),
		MinimumMint:      models.FormatUnits(preview.MinimumMint, models.DefaultDecimals),
		MinimumMintRaw:   preview.MinimumMint.String(),
		SlippageBps:      preview.SlippageBps,
	}

	respondJSON(w, http.StatusOK, response)
}

// ==================== Sessions ====================

// HandleCreateSession handles POST /api/v1/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asset := h.assets.Default()
	if req.Asset != "" {
		var ok bool
		asset, ok = h.assets.Lookup(req.Asset)
		if !ok {
			respondError(w, http.StatusBadRequest, "Unknown asset", nil)
			return
		}
	}

	holder, err := parseHolder(req.Holder)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid holder address", err)
		return
	}

	s, err := h.sessions.OpenSession(asset, holder, req.Recipient)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			respondError(w, http.StatusServiceUnavailable, "Service shutting down", err)
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid recipient", err)
		return
	}

	respondJSON(w, http.StatusCreated, newSessionResponse(s.View()))
}

// HandleGetSession handles GET /api/v1/sessions/{sessionId}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(s.View()))
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{sessionId}
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]
	if !h.sessions.CloseSession(id) {
		respondError(w, http.StatusNotFound, "Session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetAsset handles PUT /api/v1/sessions/{sessionId}/asset
func (h *Handler) HandleSetAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req SetAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asset, found := h.assets.Lookup(req.Asset)
	if !found {
		respondError(w, http.StatusBadRequest, "Unknown asset", nil)
		return
	}

	s.SetDepositAsset(asset)
	respondJSON(w, http.StatusOK, newSessionResponse(s.View()))
}

// HandleSetAmount handles PUT /api/v1/sessions/{sessionId}/amount
// Invalid input is ignored and the previous amount is returned
func (h *Handler) HandleSetAmount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req SetAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s.SetDepositAmount(req.Amount)
	respondJSON(w, http.StatusOK, newSessionResponse(s.View()))
}

// HandleSetIdentity handles PUT /api/v1/sessions/{sessionId}/identity
func (h *Handler) HandleSetIdentity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req SetIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	holder, err := parseHolder(req.Holder)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid holder address", err)
		return
	}

	if req.Recipient != nil {
		if err := s.SetRecipient(*req.Recipient); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid recipient", err)
			return
		}
	}
	s.SetIdentity(holder)

	respondJSON(w, http.StatusOK, newSessionResponse(s.View()))
}

// HandleMint handles POST /api/v1/sessions/{sessionId}/mint
// Starts the deposit workflow; progress is reported through the session
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]

	err := h.sessions.Submit(id)
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusNotFound, "Session not found", nil)
		return
	case errors.Is(err, session.ErrDepositPending):
		respondError(w, http.StatusConflict, "Deposit already pending", nil)
		return
	case errors.Is(err, session.ErrOverBalance),
		errors.Is(err, session.ErrMintDisabled),
		errors.Is(err, session.ErrRecipientRequired):
		respondError(w, http.StatusBadRequest, "Mint rejected", err)
		return
	default:
		h.logger.Error("Failed to submit deposit",
			zap.String("session_id", id),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to submit deposit", err)
		return
	}

	h.logger.Info("Deposit accepted", zap.String("session_id", id))

	s, ok := h.sessions.Session(id)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	respondJSON(w, http.StatusAccepted, newSessionResponse(s.View()))
}

// ==================== Deposits ====================

// HandleGetDeposit handles GET /api/v1/deposits/{txHash}
func (h *Handler) HandleGetDeposit(w http.ResponseWriter, r *http.Request) {
	txHash := mux.Vars(r)["txHash"]
	if !isTxHash(txHash) {
		respondError(w, http.StatusBadRequest, "Invalid transaction hash", nil)
		return
	}

	deposit, err := h.deposits.GetByTxHash(r.Context(), txHash)
	if err != nil {
		h.logger.Error("Failed to get deposit",
			zap.String("tx_hash", txHash),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get deposit", err)
		return
	}
	if deposit == nil {
		respondError(w, http.StatusNotFound, "Deposit not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, newDepositResponse(deposit))
}

// HandleGetSenderDeposits handles GET /api/v1/deposits/sender/{address}
func (h *Handler) HandleGetSenderDeposits(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid sender address", nil)
		return
	}

	deposits, err := h.deposits.ListBySender(r.Context(), common.HexToAddress(address).Hex())
	if err != nil {
		h.logger.Error("Failed to get sender deposits",
			zap.String("sender", address),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get deposits", err)
		return
	}

	response := GetDepositsResponse{Deposits: make([]DepositResponse, 0, len(deposits))}
	for i := range deposits {
		response.Deposits = append(response.Deposits, newDepositResponse(&deposits[i]))
	}

	respondJSON(w, http.StatusOK, response)
}

// ==================== Helper Functions ====================

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.sessions.Session(mux.Vars(r)["sessionId"])
	if !ok {
		respondError(w, http.StatusNotFound, "Session not found", nil)
	}
	return s, ok
}

func parseHolder(raw string) (*common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("%q is not an address", raw)
	}
	holder := common.HexToAddress(raw)
	return &holder, nil
}

func isTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func newSessionResponse(v session.View) SessionResponse {
	response := SessionResponse{
		ID:            v.ID,
		Asset:         v.Asset,
		Recipient:     v.Recipient,
		DepositAmount: v.DepositAmount,
		Pending:       v.Pending,
		WorkflowState: string(v.WorkflowState),
		MintDisabled:  v.MintDisabled,
		OverBalance:   v.OverBalance,
		CreatedAt:     v.CreatedAt,
	}
	if v.Holder != nil {
		response.Holder = stringPtr(v.Holder.Hex())
	}
	if v.ReceiveAmount != "" {
		response.ReceiveAmount = stringPtr(v.ReceiveAmount)
	}
	if v.Balance != "" {
		response.Balance = stringPtr(v.Balance)
	}
	if v.ExchangeRate != nil {
		response.ExchangeRate = stringPtr(v.ExchangeRate.String())
	}

	if last := v.LastDeposit; last != nil {
		outcome := &DepositOutcome{
			State:      string(last.State),
			FinishedAt: last.FinishedAt,
		}
		if last.TxHash != nil {
			outcome.TxHash = stringPtr(last.TxHash.Hex())
		}
		if last.ApprovalTxHash != nil {
			outcome.ApprovalTxHash = stringPtr(last.ApprovalTxHash.Hex())
		}
		if last.MinimumMint != nil {
			outcome.MinimumMint = stringPtr(last.MinimumMint.String())
		}
		if last.Error != "" {
			outcome.Error = stringPtr(last.Error)
		}
		response.LastDeposit = outcome
	}

	return response
}

func newDepositResponse(d *models.Deposit) DepositResponse {
	return DepositResponse{
		DepositID:   d.DepositID,
		SessionID:   d.SessionID,
		Variant:     d.Variant,
		Sender:      d.Sender,
		Asset:       d.Asset,
		Amount:      d.Amount,
		MinimumMint: d.MinimumMint,
		Rate:        d.Rate,
		Status:      d.Status,
		TxHashes: TxHashes{
			Approval: d.ApprovalTxHash,
			Deposit:  d.TxHash,
		},
		Error:     d.ErrorMessage,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func stringPtr(s string) *string {
	return &s
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already written, so an encode error cannot reach the client
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	response := ErrorResponse{
		Error:   message,
		Message: errorMsg,
	}

	respondJSON(w, statusCode, response)
}
