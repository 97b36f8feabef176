// Package mockgw is an in-memory stand-in for the gateway: it issues tokens, verifies
// EIP-712 authentication, answers the JSON-RPC methods the harness uses and models
// session keys, including fund expiry and refund on deletion.
package mockgw

import (
	"fmt"
	"math/big"
	"time"
)

// Config holds the mock gateway settings. The env tags are read by the mock-gateway command.
type Config struct {
	Addr           string        `env:"MOCKGW_ADDR"             envDefault:"127.0.0.1:3000"`
	ChainID        int64         `env:"MOCKGW_CHAIN_ID"         envDefault:"443"`
	GasPriceWei    uint64        `env:"MOCKGW_GAS_PRICE_WEI"    envDefault:"1000000000"`
	ExpiryWindow   time.Duration `env:"MOCKGW_EXPIRY_WINDOW"    envDefault:"5m"`
	SweepInterval  time.Duration `env:"MOCKGW_SWEEP_INTERVAL"   envDefault:"10s"`
	JoinRateLimit  int           `env:"MOCKGW_JOIN_RATE_LIMIT"  envDefault:"100"`
	JoinRateWindow time.Duration `env:"MOCKGW_JOIN_RATE_WINDOW" envDefault:"1s"`
	TokenTTL       time.Duration `env:"MOCKGW_TOKEN_TTL"        envDefault:"24h"`
	MaxTokens      int           `env:"MOCKGW_MAX_TOKENS"       envDefault:"100000"`
}

// DefaultConfig mirrors the envDefault values.
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:3000",
		ChainID:        443,
		GasPriceWei:    1_000_000_000,
		ExpiryWindow:   5 * time.Minute,
		SweepInterval:  10 * time.Second,
		JoinRateLimit:  100,
		JoinRateWindow: time.Second,
		TokenTTL:       24 * time.Hour,
		MaxTokens:      100_000,
	}
}

// Validate checks the settings. A JoinRateLimit of 0 disables rate limiting.
func (c Config) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.ChainID)
	}
	if c.GasPriceWei == 0 {
		return fmt.Errorf("gas price must be positive")
	}
	if c.ExpiryWindow <= 0 || c.SweepInterval <= 0 || c.TokenTTL <= 0 {
		return fmt.Errorf("expiry window, sweep interval and token ttl must be positive")
	}
	if c.JoinRateLimit < 0 {
		return fmt.Errorf("join rate limit must not be negative")
	}
	if c.JoinRateLimit > 0 && c.JoinRateWindow <= 0 {
		return fmt.Errorf("join rate window must be positive")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	return nil
}

func (c Config) gasPrice() *big.Int {
	return new(big.Int).SetUint64(c.GasPriceWei)
}
