package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultmint/internal/mint"
	"vaultmint/internal/models"
)

var (
	// ErrUnknownAsset is returned for assets outside the configured list
	ErrUnknownAsset = errors.New("unknown deposit asset")

	// ErrRateUnavailable wraps exchange rate read failures
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// RateSource provides exchange rates
type RateSource interface {
	RateInQuote(ctx context.Context, asset common.Address) (*big.Int, error)
}

// PreviewService computes what a deposit would mint without a session
type PreviewService struct {
	rates       RateSource
	assets      *AssetService
	slippageBps uint16
	logger      *zap.Logger
}

// NewPreviewService creates a new preview service
func NewPreviewService(rates RateSource, assets *AssetService, slippageBps uint16, logger *zap.Logger) *PreviewService {
	return &PreviewService{
		rates:       rates,
		assets:      assets,
		slippageBps: slippageBps,
		logger:      logger,
	}
}

// Preview holds the expected outcome of a deposit at the current rate
type Preview struct {
	Asset         models.Asset
	Amount        *big.Int
	Rate          *big.Int
	ReceiveAmount *big.Int
	MinimumMint   *big.Int
	SlippageBps   uint16
}

// PreviewDeposit quotes amount of the asset referenced by assetRef.
// amount is a decimal string in whole tokens.
func (s *PreviewService) PreviewDeposit(ctx context.Context, assetRef, amount string) (*Preview, error) {
	asset, ok := s.assets.Lookup(assetRef)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetRef)
	}

	value, err := models.ParseUnits(amount, asset.Decimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, mint.ErrInvalidAmount
	}

	rate, err := s.rates.RateInQuote(ctx, asset.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}

	preview := &Preview{
		Asset:         asset,
		Amount:        value,
		Rate:          rate,
		ReceiveAmount: mint.ReceiveAmount(value, rate),
		MinimumMint:   mint.MinimumMint(value, rate, s.slippageBps),
		SlippageBps:   s.slippageBps,
	}

	s.logger.Debug("Computed deposit preview",
		zap.String("asset", asset.Symbol),
		zap.String("amount", value.String()),
		zap.String("rate", rate.String()),
		zap.String("minimum_mint", preview.MinimumMint.String()))

	return preview, nil
}
