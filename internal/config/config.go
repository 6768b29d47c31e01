package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Deposit workflow variants
const (
	VariantBridge = "bridge" // depositAndBridge on the WarpRoute, no allowance check
	VariantTeller = "teller" // approve the vault, then deposit on the Teller
)

// EclipseHyperlaneDomain is the Hyperlane domain ID of Eclipse mainnet
const EclipseHyperlaneDomain = 1408864445

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chain    ChainConfig
	Wallet   WalletConfig
	Mint     MintConfig
	Tokens   []TokenConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ChainConfig holds the source chain endpoint and contract addresses
type ChainConfig struct {
	ChainID           int64
	Name              string
	RPCEndpoint       string
	AccountantAddress string // exchange-rate oracle (getRateInQuote)
	TellerAddress     string // vault deposit entry point
	VaultAddress      string // spender for teller deposits
	WarpRouteAddress  string // deposit-and-bridge entry point
	DestinationDomain uint32 // Hyperlane domain of the receiving chain
	Variant           string // VariantBridge or VariantTeller
}

// WalletConfig holds the signing key used for submissions
type WalletConfig struct {
	PrivateKey string // optional; without it every submission fails identity resolution
}

// MintConfig holds the deposit workflow tuning
type MintConfig struct {
	SlippageBps         int
	RateRefreshInterval time.Duration
	ReceiptTimeout      time.Duration
	Confirmations       int
	PollInterval        time.Duration
	RetryCount          int
	RetryDelay          time.Duration
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	domain := getEnvInt("HYPERLANE_DESTINATION_DOMAIN", EclipseHyperlaneDomain)
	if domain < 0 || int64(domain) > math.MaxUint32 {
		return nil, fmt.Errorf("invalid hyperlane destination domain: %d", domain)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "vault_mint"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Chain: ChainConfig{
			ChainID:           int64(getEnvInt("CHAIN_ID", 1)),
			Name:              getEnv("CHAIN_NAME", "Ethereum"),
			RPCEndpoint:       getEnv("ETH_RPC_ENDPOINT", ""),
			AccountantAddress: getEnv("ACCOUNTANT_ADDRESS", ""),
			TellerAddress:     getEnv("TELLER_ADDRESS", ""),
			VaultAddress:      getEnv("BORING_VAULT_ADDRESS", ""),
			WarpRouteAddress:  getEnv("WARP_ROUTE_ADDRESS", ""),
			DestinationDomain: uint32(domain),
			Variant:           strings.ToLower(getEnv("DEPOSIT_VARIANT", VariantBridge)),
		},
		Wallet: WalletConfig{
			PrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
		},
		Mint: MintConfig{
			SlippageBps:         getEnvInt("MINT_SLIPPAGE_BPS", 100),
			RateRefreshInterval: getEnvSeconds("RATE_REFRESH_SECONDS", 30),
			ReceiptTimeout:      getEnvSeconds("RECEIPT_TIMEOUT_SECONDS", 60),
			Confirmations:       getEnvInt("RECEIPT_CONFIRMATIONS", 1),
			PollInterval:        getEnvSeconds("RECEIPT_POLL_INTERVAL_SECONDS", 10),
			RetryCount:          getEnvInt("RECEIPT_RETRY_COUNT", 5),
			RetryDelay:          getEnvSeconds("RECEIPT_RETRY_DELAY_SECONDS", 5),
		},
	}

	tokens, err := LoadTokens(getEnv("TOKENS_FILE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	cfg.Tokens = tokens

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Chain.RPCEndpoint == "" {
		return fmt.Errorf("ETH_RPC_ENDPOINT is required")
	}

	if !common.IsHexAddress(c.Chain.AccountantAddress) {
		return fmt.Errorf("invalid accountant address: %q", c.Chain.AccountantAddress)
	}

	switch c.Chain.Variant {
	case VariantBridge:
		if !common.IsHexAddress(c.Chain.WarpRouteAddress) {
			return fmt.Errorf("invalid warp route address: %q", c.Chain.WarpRouteAddress)
		}
	case VariantTeller:
		if !common.IsHexAddress(c.Chain.TellerAddress) {
			return fmt.Errorf("invalid teller address: %q", c.Chain.TellerAddress)
		}
		if !common.IsHexAddress(c.Chain.VaultAddress) {
			return fmt.Errorf("invalid vault address: %q", c.Chain.VaultAddress)
		}
	default:
		return fmt.Errorf("unknown deposit variant: %q", c.Chain.Variant)
	}

	if c.Mint.SlippageBps < 0 || c.Mint.SlippageBps >= 10000 {
		return fmt.Errorf("slippage must be within 0..9999 bps, got %d", c.Mint.SlippageBps)
	}

	if c.Mint.Confirmations < 1 {
		return fmt.Errorf("at least one confirmation is required, got %d", c.Mint.Confirmations)
	}

	if c.Mint.RetryCount < 0 || c.Mint.RetryDelay < 0 {
		return fmt.Errorf("receipt retry count and delay must not be negative")
	}

	if c.Mint.RateRefreshInterval <= 0 {
		return fmt.Errorf("rate refresh interval must be positive")
	}

	if c.Mint.ReceiptTimeout <= 0 || c.Mint.PollInterval <= 0 {
		return fmt.Errorf("receipt timeout and poll interval must be positive")
	}

	if len(c.Tokens) == 0 {
		return fmt.Errorf("at least one token must be configured")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
