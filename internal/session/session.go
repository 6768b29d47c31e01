package session

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultmint/internal/blockchain/evm"
	"vaultmint/internal/mint"
	"vaultmint/internal/models"
)

var (
	ErrDepositPending    = errors.New("a deposit is already pending")
	ErrMintDisabled      = errors.New("mint is disabled")
	ErrOverBalance       = errors.New("deposit amount exceeds balance")
	ErrRecipientRequired = errors.New("bridge recipient required")
	ErrClosed            = errors.New("session closed")
)

// Outcome is the result of the last deposit attempt
type Outcome struct {
	State          mint.State
	TxHash         *common.Hash
	ApprovalTxHash *common.Hash
	MinimumMint    *big.Int
	Error          string
	FinishedAt     time.Time
}

// RateTicket identifies an in-flight rate fetch
type RateTicket struct {
	generation uint64
	Asset      common.Address
}

// BalanceTicket identifies an in-flight balance fetch
type BalanceTicket struct {
	generation uint64
	Asset      common.Address
	Holder     common.Address
}

// View is the derived state handed to the presentation layer
type View struct {
	ID            string
	Asset         models.Asset
	Holder        *common.Address
	Recipient     string
	DepositAmount string
	ReceiveAmount string // empty while the rate is unknown
	Balance       string // empty while the balance is unknown
	ExchangeRate  *big.Int
	Pending       bool
	WorkflowState mint.State
	MintDisabled  bool
	OverBalance   bool
	LastDeposit   *Outcome
	CreatedAt     time.Time
}

// Session holds one user's mint form state.
//
// Rate and balance carry generation counters. A fetch takes a ticket before
// going to the chain and its result is applied only if no input it depends
// on changed in the meantime.
type Session struct {
	id               string
	requireRecipient bool
	createdAt        time.Time
	logger           *zap.Logger

	mu          sync.Mutex
	asset       models.Asset
	amount      string
	holder      *common.Address
	recipient   string
	recipient32 [32]byte
	rate        *big.Int
	balance     *big.Int
	rateGen     uint64
	balanceGen  uint64
	pending     bool
	state       mint.State
	last        *Outcome
	closed      bool

	rateWake    chan struct{}
	balanceWake chan struct{}
	done        chan struct{}
}

// New creates a session for asset. requireRecipient is set for bridged deposits.
func New(id string, asset models.Asset, requireRecipient bool, logger *zap.Logger) *Session {
	return &Session{
		id:               id,
		requireRecipient: requireRecipient,
		createdAt:        time.Now(),
		logger:           logger.Named("session").With(zap.String("session_id", id)),
		asset:            asset,
		state:            mint.StateIdle,
		rateWake:         make(chan struct{}, 1),
		balanceWake:      make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// SetDepositAsset switches the selected asset. The old rate and balance no
// longer apply, so both are cleared and both refresh loops are woken.
func (s *Session) SetDepositAsset(asset models.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || asset.Address == s.asset.Address {
		return
	}

	s.asset = asset
	s.amount = sanitizeInput(s.amount, "", asset.Decimals)
	s.rate = nil
	s.balance = nil
	s.rateGen++
	s.balanceGen++

	s.logger.Debug("Deposit asset changed", zap.String("asset", asset.Symbol))

	notify(s.rateWake)
	notify(s.balanceWake)
}

// SetDepositAmount stores the sanitized amount and returns it.
// Invalid input leaves the previous amount in place.
func (s *Session) SetDepositAmount(input string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.amount = sanitizeInput(input, s.amount, s.asset.Decimals)
	return s.amount
}

// SetIdentity sets the connected holder address; nil disconnects
func (s *Session) SetIdentity(holder *common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || sameAddress(s.holder, holder) {
		return
	}

	if holder != nil {
		h := *holder
		s.holder = &h
	} else {
		s.holder = nil
	}
	s.balance = nil
	s.balanceGen++

	notify(s.balanceWake)
}

// SetRecipient sets the destination account for bridged deposits.
// The view shows the bytes32 that will be sent, re-encoded as base58.
// An empty string clears it.
func (s *Session) SetRecipient(recipient string) error {
	recipient = strings.TrimSpace(recipient)

	var decoded [32]byte
	if recipient != "" {
		var err error
		decoded, err = evm.DecodeSVMAddress(recipient)
		if err != nil {
			return err
		}
		recipient = evm.EncodeSVMAddress(decoded)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipient = recipient
	s.recipient32 = decoded
	return nil
}

// BeginRateFetch returns a ticket for the current asset; false once the session is closed
func (s *Session) BeginRateFetch() (RateTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.asset.IsZero() {
		return RateTicket{}, false
	}
	return RateTicket{generation: s.rateGen, Asset: s.asset.Address}, true
}

// ApplyRate stores rate if the ticket is still current and reports whether it did
func (s *Session) ApplyRate(ticket RateTicket, rate *big.Int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ticket.generation != s.rateGen {
		s.logger.Debug("Discarding stale rate", zap.String("asset", ticket.Asset.Hex()))
		return false
	}
	s.rate = new(big.Int).Set(rate)
	return true
}

// BeginBalanceFetch returns a ticket for the current asset and holder.
// There is nothing to fetch without a holder.
func (s *Session) BeginBalanceFetch() (BalanceTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.holder == nil || s.asset.IsZero() {
		return BalanceTicket{}, false
	}
	return BalanceTicket{generation: s.balanceGen, Asset: s.asset.Address, Holder: *s.holder}, true
}

// ApplyBalance stores balance if the ticket is still current and reports whether it did
func (s *Session) ApplyBalance(ticket BalanceTicket, balance *big.Int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ticket.generation != s.balanceGen {
		s.logger.Debug("Discarding stale balance", zap.String("asset", ticket.Asset.Hex()))
		return false
	}
	s.balance = new(big.Int).Set(balance)
	return true
}

// RateWake fires when the rate must be refetched immediately
func (s *Session) RateWake() <-chan struct{} {
	return s.rateWake
}

// BalanceWake fires when the balance must be refetched immediately
func (s *Session) BalanceWake() <-chan struct{} {
	return s.balanceWake
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session. Results arriving afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// BeginDeposit validates the form and marks a deposit pending.
// Every successful call must be paired with FinishDeposit.
func (s *Session) BeginDeposit() (mint.DepositRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return mint.DepositRequest{}, ErrClosed
	}
	if s.pending {
		return mint.DepositRequest{}, ErrDepositPending
	}
	if s.requireRecipient && s.recipient == "" {
		return mint.DepositRequest{}, ErrRecipientRequired
	}
	if s.disabledLocked() {
		return mint.DepositRequest{}, ErrMintDisabled
	}

	amount, err := models.ParseUnits(trimPoint(s.amount), s.asset.Decimals)
	if err != nil {
		return mint.DepositRequest{}, fmt.Errorf("%w: %v", ErrMintDisabled, err)
	}
	if amount.Sign() <= 0 {
		return mint.DepositRequest{}, ErrMintDisabled
	}
	if s.balance != nil && amount.Cmp(s.balance) > 0 {
		return mint.DepositRequest{}, ErrOverBalance
	}

	s.pending = true
	s.state = mint.StateIdle

	return mint.DepositRequest{
		Asset:     s.asset.Address,
		Amount:    amount,
		Recipient: s.recipient32,
	}, nil
}

// SetWorkflowState records the step the pending deposit is in
func (s *Session) SetWorkflowState(state mint.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		s.state = state
	}
}

// FinishDeposit clears the pending flag and records the outcome.
// The balance is refetched since a deposit changes it.
func (s *Session) FinishDeposit(outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = time.Now()
	}
	s.pending = false
	s.state = outcome.State
	s.last = &outcome

	if !s.closed {
		s.balanceGen++
		notify(s.balanceWake)
	}
}

// View derives the presentation state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:            s.id,
		Asset:         s.asset,
		Recipient:     s.recipient,
		DepositAmount: s.amount,
		Pending:       s.pending,
		WorkflowState: s.state,
		MintDisabled:  s.disabledLocked() || (s.requireRecipient && s.recipient == ""),
		CreatedAt:     s.createdAt,
	}
	if s.holder != nil {
		h := *s.holder
		v.Holder = &h
	}
	if s.last != nil {
		last := *s.last
		v.LastDeposit = &last
	}

	amount, _ := models.ParseUnits(trimPoint(s.amount), s.asset.Decimals)

	if s.rate != nil {
		v.ExchangeRate = new(big.Int).Set(s.rate)
		if amount != nil {
			v.ReceiveAmount = models.FormatUnits(mint.ReceiveAmount(amount, s.rate), models.DefaultDecimals)
		}
	}
	if s.balance != nil {
		v.Balance = models.FormatUnits(s.balance, s.asset.Decimals)
		v.OverBalance = amount != nil && amount.Cmp(s.balance) > 0
	}

	return v
}

func (s *Session) disabledLocked() bool {
	return s.pending || s.amount == "" || s.asset.IsZero() || s.holder == nil
}

func trimPoint(amount string) string {
	amount = strings.TrimSuffix(amount, ".")
	if amount == "" {
		return "0"
	}
	return amount
}

func sameAddress(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
