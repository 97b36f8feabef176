// Package scenarios chains gateway client calls into end-to-end exercises of the
// authentication flow, session keys and the join rate limit.
package scenarios

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"tengw/gateway"
	"tengw/internal/ethsign"
	"tengw/internal/logging"
	"tengw/shared"
)

var (
	// ErrVerification is returned when a scenario's post-condition does not hold.
	ErrVerification = errors.New("verification failed")
	// ErrInvalidSettings is returned before any request when Env.Settings fails Validate.
	ErrInvalidSettings = errors.New("invalid scenario settings")
)

// Env carries what every scenario needs.
type Env struct {
	Network    shared.NetworkConfig
	HTTPClient *http.Client
	// PrivateKey is the account that receives funds. A fresh account is generated
	// when nil, and its address is logged so it can be funded.
	PrivateKey *ecdsa.PrivateKey
	Logger     *zap.Logger
	Settings   Settings
}

// Scenario is a named, runnable exercise.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env Env) error
}

func (e Env) validate() error {
	if err := e.Settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

func (e Env) log() *zap.Logger {
	return logging.OrNop(e.Logger)
}

func (e Env) newClient(key *ecdsa.PrivateKey) (*gateway.Client, error) {
	opts := []gateway.Option{gateway.WithLogger(e.log())}
	if key != nil {
		opts = append(opts, gateway.WithPrivateKey(key))
	}
	if e.HTTPClient != nil {
		opts = append(opts, gateway.WithHTTPClient(e.HTTPClient))
	}
	return gateway.New(e.Network, opts...)
}

// newAccount creates a client for key (or a fresh account), logs its credentials and
// authenticates it.
func (e Env) newAccount(ctx context.Context, key *ecdsa.PrivateKey, label string) (*gateway.Client, error) {
	client, err := e.newClient(key)
	if err != nil {
		return nil, err
	}
	e.log().Info("Account ready",
		zap.String("role", label),
		zap.String("address", client.Address().Hex()),
		zap.String("private_key", ethsign.PrivateKeyHex(client.PrivateKey())),
	)

	if err := client.RequireAuth(ctx); err != nil {
		return nil, err
	}
	e.log().Info("Authentication successful", zap.String("role", label))
	return client, nil
}

// step logs the start of a numbered scenario step.
func (e Env) step(n int, msg string) {
	e.log().Info(msg, zap.Int("step", n))
}
