package scenarios

import (
	"context"
	"fmt"
	"strings"
)

var registry = []Scenario{
	{
		Name:        "basic-auth",
		Description: "create an account and run join, sign and authenticate",
		Run: func(ctx context.Context, env Env) error {
			_, err := BasicAuth(ctx, env)
			return err
		},
	},
	{
		Name:        "basic-session-key",
		Description: "create, inspect and delete a session key",
		Run: func(ctx context.Context, env Env) error {
			_, err := BasicSessionKey(ctx, env)
			return err
		},
	},
	{
		Name:        "join-rate-limit",
		Description: "flood /join/ with parallel requests and count 200/429 responses",
		Run: func(ctx context.Context, env Env) error {
			_, err := JoinRateLimit(ctx, env)
			return err
		},
	},
	{
		Name:        "session-key-transaction",
		Description: "fund a session key and send the funds back through it",
		Run: func(ctx context.Context, env Env) error {
			_, err := SessionKeyTransaction(ctx, env)
			return err
		},
	},
	{
		Name:        "session-key-zero-value-tx",
		Description: "send a zero value transaction from a funded session key",
		Run: func(ctx context.Context, env Env) error {
			_, err := SessionKeyZeroValueTx(ctx, env)
			return err
		},
	},
	{
		Name:        "session-key-return-on-delete",
		Description: "delete a funded session key and verify the refund",
		Run: func(ctx context.Context, env Env) error {
			_, err := SessionKeyReturnOnDelete(ctx, env)
			return err
		},
	},
	{
		Name:        "fund-expiration-stress",
		Description: "fund many session keys and verify their funds expire back",
		Run: func(ctx context.Context, env Env) error {
			_, err := FundExpirationStress(ctx, env)
			return err
		},
	},
}

// All returns every scenario in a stable order.
func All() []Scenario {
	out := make([]Scenario, len(registry))
	copy(out, registry)
	return out
}

// Names returns the scenario names in the order of All.
func Names() []string {
	names := make([]string, len(registry))
	for i, s := range registry {
		names[i] = s.Name
	}
	return names
}

// Find returns the scenario called name (case-insensitive).
func Find(name string) (Scenario, error) {
	for _, s := range registry {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q (known: %s)", name, strings.Join(Names(), ", "))
}
