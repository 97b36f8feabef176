package scenarios

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tengw/shared"
)

// BasicAuth creates an account and runs the join/sign/authenticate flow.
func BasicAuth(ctx context.Context, env Env) (common.Address, error) {
	if err := env.validate(); err != nil {
		return common.Address{}, err
	}
	env.log().Info("Starting basic auth test", zap.String("url", env.Network.URL))

	client, err := env.newAccount(ctx, env.PrivateKey, "main")
	if err != nil {
		return common.Address{}, err
	}

	env.log().Info("Basic auth scenario completed")
	return client.Address(), nil
}

// BasicSessionKey authenticates, creates a session key, reads its balance and deletes it.
func BasicSessionKey(ctx context.Context, env Env) (common.Address, error) {
	if err := env.validate(); err != nil {
		return common.Address{}, err
	}
	logger := env.log()
	logger.Info("Starting basic session key test", zap.String("url", env.Network.URL))

	client, err := env.newAccount(ctx, env.PrivateKey, "main")
	if err != nil {
		return common.Address{}, err
	}

	sk, err := client.CreateSessionKey(ctx)
	if err != nil {
		return common.Address{}, err
	}

	// a fresh session key is expected to be empty; a failed read is not fatal
	if balance, err := client.GetBalance(ctx, sk, shared.BlockLatest); err != nil {
		logger.Warn("Could not get session key balance", zap.Error(err))
	} else {
		logger.Info("Session key balance",
			zap.String("wei", balance.String()),
			zap.String("eth", shared.FormatWeiToEth(balance)),
		)
	}

	deleted, err := client.DeleteSessionKey(ctx, sk)
	if err != nil {
		return sk, err
	}
	if !deleted {
		logger.Warn("Session key deletion may have failed", zap.String("session_key", sk.Hex()))
	}

	logger.Info("Basic session key scenario completed")
	return sk, nil
}
