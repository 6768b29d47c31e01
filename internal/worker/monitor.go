package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vaultmint/internal/mint"
	"vaultmint/internal/session"
)

// Monitor runs the per-session rate and balance refresh loops
type Monitor struct {
	manager      *WorkerManager
	logger       *zap.Logger
	rateInterval time.Duration
}

// NewMonitor creates a new refresh monitor
func NewMonitor(manager *WorkerManager) *Monitor {
	interval := manager.cfg.Mint.RateRefreshInterval
	if interval <= 0 {
		interval = DefaultRateRefreshInterval
	}

	return &Monitor{
		manager:      manager,
		logger:       manager.logger.Named("monitor"),
		rateInterval: interval,
	}
}

// Watch starts both refresh loops for s; they stop when ctx is canceled
func (m *Monitor) Watch(ctx context.Context, s *session.Session) {
	m.manager.wg.Add(2)
	go func() {
		defer m.manager.wg.Done()
		m.runRateLoop(ctx, s)
	}()
	go func() {
		defer m.manager.wg.Done()
		m.runBalanceLoop(ctx, s)
	}()
}

// runRateLoop fetches immediately, on every asset change and on a fixed interval.
// An asset change restarts the interval.
func (m *Monitor) runRateLoop(ctx context.Context, s *session.Session) {
	ticker := time.NewTicker(m.rateInterval)
	defer ticker.Stop()

	// Initial fetch
	m.refreshRate(ctx, s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Done():
			return
		case <-s.RateWake():
			ticker.Reset(m.rateInterval)
			m.refreshRate(ctx, s)
		case <-ticker.C:
			m.refreshRate(ctx, s)
		}
	}
}

// runBalanceLoop fetches immediately and whenever the asset or holder changes
func (m *Monitor) runBalanceLoop(ctx context.Context, s *session.Session) {
	m.refreshBalance(ctx, s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Done():
			return
		case <-s.BalanceWake():
			m.refreshBalance(ctx, s)
		}
	}
}

func (m *Monitor) refreshRate(ctx context.Context, s *session.Session) {
	ticket, ok := s.BeginRateFetch()
	if !ok {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	rate, err := m.manager.quotes.RateInQuote(fetchCtx, ticket.Asset)
	if err != nil {
		m.logFetchError("rate", s, err)
		return
	}

	if s.ApplyRate(ticket, rate) {
		m.manager.metrics.IncRefresh("rate", "applied")
	} else {
		m.manager.metrics.IncRefresh("rate", "stale")
	}
}

func (m *Monitor) refreshBalance(ctx context.Context, s *session.Session) {
	ticket, ok := s.BeginBalanceFetch()
	if !ok {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	balance, err := m.manager.balances.BalanceOf(fetchCtx, ticket.Asset, ticket.Holder)
	if err != nil {
		m.logFetchError("balance", s, err)
		return
	}

	if s.ApplyBalance(ticket, balance) {
		m.manager.metrics.IncRefresh("balance", "applied")
	} else {
		m.manager.metrics.IncRefresh("balance", "stale")
	}
}

// logFetchError keeps the last good value in place; the next refresh retries
func (m *Monitor) logFetchError(kind string, s *session.Session, err error) {
	if errors.Is(err, mint.ErrClientUnavailable) || errors.Is(err, context.Canceled) {
		m.logger.Debug("Skipped refresh",
			zap.String("kind", kind),
			zap.String("session_id", s.ID()),
			zap.Error(err))
		return
	}

	m.manager.metrics.IncRefresh(kind, "error")
	m.logger.Warn("Refresh failed",
		zap.String("kind", kind),
		zap.String("session_id", s.ID()),
		zap.Error(err))
}
