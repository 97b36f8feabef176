package scenarios

import (
	"fmt"
	"time"

	"tengw/shared"
)

// DefaultReturnAddress receives whatever the stress test's main account holds at the end.
const DefaultReturnAddress = "0x10DeC2baF2944Ce99710B4319Ec7C7B619E70a0E"

// Settings holds every timing and count the scenarios use. Fields can be set from a
// YAML file and from SCENARIO_* environment variables.
type Settings struct {
	// Polling for funds on a freshly created account
	FundsTimeout  time.Duration `yaml:"funds_timeout" env:"FUNDS_TIMEOUT"`
	FundsInterval time.Duration `yaml:"funds_interval" env:"FUNDS_INTERVAL"`

	// Polling for a transaction receipt
	ReceiptTimeout  time.Duration `yaml:"receipt_timeout" env:"RECEIPT_TIMEOUT"`
	ReceiptInterval time.Duration `yaml:"receipt_interval" env:"RECEIPT_INTERVAL"`

	// Fixed pauses after submitting transactions
	MiningWait       time.Duration `yaml:"mining_wait" env:"MINING_WAIT"`
	StressMiningWait time.Duration `yaml:"stress_mining_wait" env:"STRESS_MINING_WAIT"`

	// Fund expiration stress test
	StressUsers       int           `yaml:"stress_users" env:"STRESS_USERS"`
	StressKeysPerUser int           `yaml:"stress_keys_per_user" env:"STRESS_KEYS_PER_USER"`
	ExpirationWait    time.Duration `yaml:"expiration_wait" env:"EXPIRATION_WAIT"`
	CountdownTick     time.Duration `yaml:"countdown_tick" env:"COUNTDOWN_TICK"`
	CountdownLogEvery time.Duration `yaml:"countdown_log_every" env:"COUNTDOWN_LOG_EVERY"`
	ReturnAddress     string        `yaml:"return_address" env:"RETURN_ADDRESS"`

	// Join rate limit smoke test
	JoinRequests int           `yaml:"join_requests" env:"JOIN_REQUESTS"`
	JoinWorkers  int           `yaml:"join_workers" env:"JOIN_WORKERS"`
	JoinTimeout  time.Duration `yaml:"join_timeout" env:"JOIN_TIMEOUT"`
}

// DefaultSettings returns the settings used against a live gateway.
func DefaultSettings() Settings {
	return Settings{
		FundsTimeout:      300 * time.Second,
		FundsInterval:     5 * time.Second,
		ReceiptTimeout:    60 * time.Second,
		ReceiptInterval:   2 * time.Second,
		MiningWait:        5 * time.Second,
		StressMiningWait:  10 * time.Second,
		StressUsers:       5,
		StressKeysPerUser: 3,
		ExpirationWait:    600 * time.Second,
		CountdownTick:     10 * time.Second,
		CountdownLogEvery: time.Minute,
		ReturnAddress:     DefaultReturnAddress,
		JoinRequests:      5000,
		JoinWorkers:       100,
		JoinTimeout:       10 * time.Second,
	}
}

// Validate rejects settings that would make a scenario hang or divide by zero.
func (s Settings) Validate() error {
	positive := map[string]time.Duration{
		"funds_timeout":       s.FundsTimeout,
		"funds_interval":      s.FundsInterval,
		"receipt_timeout":     s.ReceiptTimeout,
		"receipt_interval":    s.ReceiptInterval,
		"countdown_tick":      s.CountdownTick,
		"countdown_log_every": s.CountdownLogEvery,
		"join_timeout":        s.JoinTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if s.MiningWait < 0 || s.StressMiningWait < 0 || s.ExpirationWait < 0 {
		return fmt.Errorf("wait durations must not be negative")
	}
	if s.StressUsers <= 0 || s.StressKeysPerUser <= 0 {
		return fmt.Errorf("stress_users and stress_keys_per_user must be positive")
	}
	if s.JoinRequests <= 0 || s.JoinWorkers <= 0 {
		return fmt.Errorf("join_requests and join_workers must be positive")
	}
	if !shared.IsValidAddress(s.ReturnAddress) {
		return fmt.Errorf("invalid return_address %q", s.ReturnAddress)
	}
	return nil
}
