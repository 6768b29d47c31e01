package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig describes a depositable token
type TokenConfig struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Icon     string `json:"icon"`
	Decimals int    `json:"decimals"`
}

// DefaultTokens are the mainnet deposit assets accepted by the vault
var DefaultTokens = []TokenConfig{
	{
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Address:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		Icon:     "/token-weth.svg",
		Decimals: 18,
	},
	{
		Symbol:   "wstETH",
		Name:     "Wrapped liquid staked Ether",
		Address:  "0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0",
		Icon:     "/token-wsteth.svg",
		Decimals: 18,
	},
	{
		Symbol:   "weETH",
		Name:     "Wrapped eETH",
		Address:  "0xCd5fE23C85820F7B72D0926FC9b05b43E359b7ee",
		Icon:     "/token-weeth.svg",
		Decimals: 18,
	},
}

// LoadTokens reads the token list from a JSON file, or returns DefaultTokens when path is empty
func LoadTokens(path string) ([]TokenConfig, error) {
	if path == "" {
		tokens := make([]TokenConfig, len(DefaultTokens))
		copy(tokens, DefaultTokens)
		return tokens, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tokens []TokenConfig
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := validateTokens(tokens); err != nil {
		return nil, err
	}

	return tokens, nil
}

func validateTokens(tokens []TokenConfig) error {
	seen := make(map[string]bool)
	for i, token := range tokens {
		if token.Symbol == "" {
			return fmt.Errorf("token %d: symbol is required", i)
		}
		if !common.IsHexAddress(token.Address) {
			return fmt.Errorf("token %s: invalid address %q", token.Symbol, token.Address)
		}
		if token.Decimals <= 0 || token.Decimals > 36 {
			return fmt.Errorf("token %s: invalid decimals %d", token.Symbol, token.Decimals)
		}
		key := strings.ToLower(token.Symbol)
		if seen[key] {
			return fmt.Errorf("duplicate token symbol %s", token.Symbol)
		}
		seen[key] = true
	}
	return nil
}
