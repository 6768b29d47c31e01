package service

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultmint/internal/config"
	"vaultmint/internal/models"
)

// AssetService resolves the configured deposit assets
type AssetService struct {
	assets []models.Asset
	logger *zap.Logger
}

// NewAssetService builds the asset list from the token configuration
func NewAssetService(tokens []config.TokenConfig, logger *zap.Logger) (*AssetService, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no deposit assets configured")
	}

	assets := make([]models.Asset, 0, len(tokens))
	for _, token := range tokens {
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("token %s has invalid address %q", token.Symbol, token.Address)
		}

		decimals := token.Decimals
		if decimals == 0 {
			decimals = models.DefaultDecimals
		}

		assets = append(assets, models.Asset{
			Address:  common.HexToAddress(token.Address),
			Symbol:   token.Symbol,
			Name:     token.Name,
			Icon:     token.Icon,
			Decimals: decimals,
		})
	}

	logger.Info("Deposit assets loaded", zap.Int("count", len(assets)))

	return &AssetService{
		assets: assets,
		logger: logger,
	}, nil
}

// List returns every configured asset in configuration order
func (s *AssetService) List() []models.Asset {
	out := make([]models.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// Default returns the asset selected when a session opens
func (s *AssetService) Default() models.Asset {
	return s.assets[0]
}

// Lookup finds an asset by address or case-insensitive symbol
func (s *AssetService) Lookup(ref string) (models.Asset, bool) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		address := common.HexToAddress(ref)
		for _, asset := range s.assets {
			if asset.Address == address {
				return asset, true
			}
		}
		return models.Asset{}, false
	}

	for _, asset := range s.assets {
		if strings.EqualFold(asset.Symbol, ref) {
			return asset, true
		}
	}
	return models.Asset{}, false
}
