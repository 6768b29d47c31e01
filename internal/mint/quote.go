package mint

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultmint/internal/blockchain/evm"
)

// QuoteService reads the receipt-token exchange rate from the vault accountant
type QuoteService struct {
	client     ReadClient
	accountant common.Address
	logger     *zap.Logger
}

// NewQuoteService creates a new quote service
func NewQuoteService(client ReadClient, accountant common.Address, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		client:     client,
		accountant: accountant,
		logger:     logger.Named("quote"),
	}
}

// RateInQuote returns the exchange rate for asset scaled by 1e18.
// There is no caching; every call reads the chain.
func (s *QuoteService) RateInQuote(ctx context.Context, asset common.Address) (*big.Int, error) {
	if s.client == nil {
		return nil, ErrClientUnavailable
	}

	outputs, err := s.client.ReadContract(ctx, evm.RateInQuoteCall(s.accountant, asset))
	if err != nil {
		return nil, fmt.Errorf("failed to read rate for %s: %w", asset.Hex(), err)
	}

	rate, err := evm.FirstBigInt("getRateInQuote", outputs)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Fetched exchange rate",
		zap.String("asset", asset.Hex()),
		zap.String("rate", rate.String()))

	return rate, nil
}
