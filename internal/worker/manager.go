package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vaultmint/internal/config"
	"vaultmint/internal/metrics"
	"vaultmint/internal/mint"
	"vaultmint/internal/models"
	"vaultmint/internal/session"
)

// Constants for worker configuration
const (
	DefaultRateRefreshInterval = 30 * time.Second
	FetchTimeout               = 15 * time.Second
	JournalTimeout             = 5 * time.Second
)

// ErrSessionNotFound is returned for unknown or closed session IDs
var ErrSessionNotFound = errors.New("session not found")

// DepositRecorder journals deposit attempts
type DepositRecorder interface {
	Open(ctx context.Context, sessionID, variant string, req mint.DepositRequest) (*models.Deposit, error)
	Close(ctx context.Context, deposit *models.Deposit, res *mint.DepositResult) error
}

type sessionEntry struct {
	session *session.Session
	cancel  context.CancelFunc
}

// WorkerManager owns the mint sessions and the goroutines serving them
type WorkerManager struct {
	cfg    *config.Config
	logger *zap.Logger

	quotes   *mint.QuoteService
	balances *mint.BalanceService
	workflow *mint.Workflow
	deposits DepositRecorder
	metrics  *metrics.Registry

	monitor  *Monitor
	executor *Executor

	mu       sync.RWMutex
	sessions map[string]sessionEntry
	closing  bool

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerManager creates a new worker manager with all required dependencies
func NewWorkerManager(
	cfg *config.Config,
	reader mint.ReadClient,
	wallet mint.WalletClient,
	deposits DepositRecorder,
	registry *metrics.Registry,
	logger *zap.Logger,
) *WorkerManager {
	logger = logger.Named("worker")
	workflowCfg := BuildWorkflowConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())

	wm := &WorkerManager{
		cfg:      cfg,
		logger:   logger,
		quotes:   mint.NewQuoteService(reader, workflowCfg.Accountant, logger),
		balances: mint.NewBalanceService(reader),
		workflow: mint.NewWorkflow(reader, wallet, workflowCfg, logger),
		deposits: deposits,
		metrics:  registry,
		sessions: make(map[string]sessionEntry),
		ctx:      ctx,
		cancel:   cancel,
	}

	wm.monitor = NewMonitor(wm)
	wm.executor = NewExecutor(wm)

	logger.Info("Worker manager initialized",
		zap.String("variant", workflowCfg.Variant.Name),
		zap.String("target", workflowCfg.Variant.Target.Hex()),
		zap.Duration("rate_refresh_interval", wm.monitor.rateInterval))

	return wm
}

// BuildWorkflowConfig derives the deposit workflow settings from the service configuration
func BuildWorkflowConfig(cfg *config.Config) mint.WorkflowConfig {
	chain := cfg.Chain

	var variant mint.Variant
	if chain.Variant == config.VariantTeller {
		variant = mint.TellerVariant(
			common.HexToAddress(chain.TellerAddress),
			common.HexToAddress(chain.VaultAddress))
	} else {
		variant = mint.BridgeVariant(
			common.HexToAddress(chain.WarpRouteAddress),
			chain.DestinationDomain)
	}

	return mint.WorkflowConfig{
		Variant:     variant,
		Accountant:  common.HexToAddress(chain.AccountantAddress),
		SlippageBps: uint16(cfg.Mint.SlippageBps),
		Receipt: mint.ReceiptPolicy{
			Timeout:       cfg.Mint.ReceiptTimeout,
			Confirmations: uint64(cfg.Mint.Confirmations),
			PollInterval:  cfg.Mint.PollInterval,
			RetryCount:    cfg.Mint.RetryCount,
			RetryDelay:    cfg.Mint.RetryDelay,
		},
	}
}

// Quotes returns the shared quote service
func (wm *WorkerManager) Quotes() *mint.QuoteService {
	return wm.quotes
}

// Variant returns the configured deposit variant
func (wm *WorkerManager) Variant() mint.Variant {
	return wm.workflow.Variant()
}

// OpenSession registers a session and starts its refresh loops
func (wm *WorkerManager) OpenSession(asset models.Asset, holder *common.Address, recipient string) (*session.Session, error) {
	s := session.New(uuid.NewString(), asset, wm.Variant().IsBridge(), wm.logger)
	s.SetIdentity(holder)
	if err := s.SetRecipient(recipient); err != nil {
		return nil, err
	}

	wm.mu.Lock()
	if wm.closing {
		wm.mu.Unlock()
		s.Close()
		return nil, session.ErrClosed
	}
	ctx, cancel := context.WithCancel(wm.ctx)
	wm.sessions[s.ID()] = sessionEntry{session: s, cancel: cancel}
	count := len(wm.sessions)
	// loops join the WaitGroup before Shutdown can observe it
	wm.monitor.Watch(ctx, s)
	wm.mu.Unlock()

	wm.metrics.SetActiveSessions(count)

	wm.logger.Info("Session opened",
		zap.String("session_id", s.ID()),
		zap.String("asset", asset.Symbol))

	return s, nil
}

// Session returns an open session
func (wm *WorkerManager) Session(id string) (*session.Session, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	entry, ok := wm.sessions[id]
	return entry.session, ok
}

// CloseSession ends a session and stops its refresh loops.
// A deposit already in flight runs to completion and is still journaled.
func (wm *WorkerManager) CloseSession(id string) bool {
	wm.mu.Lock()
	entry, ok := wm.sessions[id]
	delete(wm.sessions, id)
	count := len(wm.sessions)
	wm.mu.Unlock()

	if !ok {
		return false
	}

	entry.cancel()
	entry.session.Close()
	wm.metrics.SetActiveSessions(count)

	wm.logger.Info("Session closed", zap.String("session_id", id))
	return true
}

// Submit starts a deposit for the session's current form.
// The deposit runs in the background; progress is visible through the session view.
func (wm *WorkerManager) Submit(id string) error {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	entry, ok := wm.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	req, err := entry.session.BeginDeposit()
	if err != nil {
		return err
	}

	wm.executor.Launch(entry.session, req)
	return nil
}

// Shutdown closes every session and waits for in-flight work
func (wm *WorkerManager) Shutdown(timeout time.Duration) error {
	wm.logger.Info("Shutting down worker manager")

	wm.mu.Lock()
	wm.closing = true
	entries := wm.sessions
	wm.sessions = make(map[string]sessionEntry)
	wm.mu.Unlock()

	for _, entry := range entries {
		entry.session.Close()
	}
	wm.metrics.SetActiveSessions(0)

	// Signal workers to stop
	wm.cancel()

	done := make(chan struct{})
	go func() {
		wm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wm.logger.Info("Workers stopped gracefully")
	case <-time.After(timeout):
		wm.logger.Warn("Worker shutdown timed out")
		return errors.New("worker shutdown timed out")
	}

	wm.logger.Info("Worker manager shutdown complete")
	return nil
}
