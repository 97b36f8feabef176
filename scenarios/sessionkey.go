package scenarios

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tengw/gateway"
	"tengw/shared"
)

// fundedKey is the state shared by the session key transfer scenarios once a session
// key holds most of the account's funds.
type fundedKey struct {
	client         *gateway.Client
	initialBalance *big.Int
	sessionKey     common.Address
	gasCost        *big.Int
	transferred    *big.Int
	keyBalance     *big.Int
}

// fundSessionKey authenticates, waits for funds, creates a session key and moves
// TransferAmount of the balance to it, verifying at least 99% arrived.
func fundSessionKey(ctx context.Context, env Env) (*fundedKey, error) {
	logger := env.log()
	s := env.Settings

	env.step(1, "Creating account")
	client, err := env.newAccount(ctx, env.PrivateKey, "main")
	if err != nil {
		return nil, err
	}

	env.step(2, "Waiting for funds")
	logger.Info("Please send funds", zap.String("address", client.Address().Hex()))
	initial, err := WaitForFunds(ctx, logger, client, client.Address(), s.FundsTimeout, s.FundsInterval)
	if err != nil {
		return nil, err
	}

	env.step(3, "Creating session key and transferring funds")
	sk, err := client.CreateSessionKey(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := client.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := client.EstimateGas(ctx, client.Address(), sk, initial)
	if err != nil {
		return nil, err
	}
	gasCost := shared.GasCost(gas, gasPrice)

	amount, err := TransferAmount(initial, gasCost)
	if err != nil {
		return nil, err
	}
	logger.Info("Transferring to session key",
		zap.String("wei", amount.String()),
		zap.String("eth", shared.FormatWeiToEth(amount)),
		zap.Uint64("gas", gas),
		zap.String("gas_price", gasPrice.String()),
		zap.String("gas_cost", gasCost.String()),
	)

	if _, err := client.SendTransaction(ctx, sk, amount, gas, gasPrice); err != nil {
		return nil, err
	}
	logger.Info("Waiting for transaction to be mined")
	if err := sleep(ctx, s.MiningWait); err != nil {
		return nil, err
	}

	env.step(4, "Verifying session key balance")
	keyBalance, err := client.GetBalance(ctx, sk, shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	if !AtLeastPercent(keyBalance, amount, 99) {
		logger.Error("Transfer verification failed",
			zap.String("expected_wei", amount.String()),
			zap.String("actual_wei", keyBalance.String()),
		)
		return nil, fmt.Errorf("%w: session key holds %s wei, expected about %s", ErrVerification, keyBalance, amount)
	}
	logger.Info("Funds successfully transferred to session key")

	return &fundedKey{
		client:         client,
		initialBalance: initial,
		sessionKey:     sk,
		gasCost:        gasCost,
		transferred:    amount,
		keyBalance:     keyBalance,
	}, nil
}

// cleanup deletes the session key, warning when the gateway does not confirm it.
func (f *fundedKey) cleanup(ctx context.Context, logger *zap.Logger) (bool, error) {
	logger.Info("Cleaning up: deleting session key")
	deleted, err := f.client.DeleteSessionKey(ctx, f.sessionKey)
	if err != nil {
		return false, err
	}
	if !deleted {
		logger.Warn("Session key deletion may have failed", zap.String("session_key", f.sessionKey.Hex()))
	}
	return deleted, nil
}

// TransferReport summarises a session key round trip.
type TransferReport struct {
	Account        common.Address
	SessionKey     common.Address
	InitialBalance *big.Int
	Transferred    *big.Int
	Returned       *big.Int
	FinalBalance   *big.Int
	BalanceDiff    *big.Int
	Deleted        bool
}

// SessionKeyTransaction funds a session key, sends most of it back through the
// gateway-signed session key path and deletes the key.
func SessionKeyTransaction(ctx context.Context, env Env) (*TransferReport, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	logger := env.log()
	s := env.Settings
	logger.Info("Starting session key transaction test", zap.String("url", env.Network.URL))

	f, err := fundSessionKey(ctx, env)
	if err != nil {
		return nil, err
	}
	client := f.client

	env.step(5, "Sending funds back using session key")
	gasPrice, err := client.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := client.EstimateGas(ctx, f.sessionKey, client.Address(), f.keyBalance)
	if err != nil {
		return nil, err
	}
	returnGasCost := shared.GasCost(gas, gasPrice)

	amount := ReturnAmount(f.keyBalance, returnGasCost)
	if amount.Sign() <= 0 {
		logger.Warn("Not enough balance on session key to cover gas; sending half")
		amount = new(big.Int).Quo(f.keyBalance, big.NewInt(2))
	}
	logger.Info("Sending funds back to account",
		zap.String("wei", amount.String()),
		zap.String("eth", shared.FormatWeiToEth(amount)),
		zap.Uint64("gas", gas),
		zap.String("gas_price", gasPrice.String()),
	)

	if _, err := client.SendTransactionFromSessionKey(ctx, f.sessionKey, client.Address(), amount, gas, gasPrice); err != nil {
		return nil, err
	}
	logger.Info("Waiting for return transaction to be mined")
	if err := sleep(ctx, s.MiningWait); err != nil {
		return nil, err
	}

	env.step(6, "Verifying funds returned to account")
	final, err := client.GetBalance(ctx, client.Address(), shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	diff := new(big.Int).Sub(final, f.initialBalance)
	if diff.Sign() > 0 {
		logger.Info("Funds returned, balance increased", zap.String("wei", diff.String()))
	} else {
		logger.Warn("Balance decreased (likely due to gas costs)", zap.String("wei", new(big.Int).Neg(diff).String()))
	}

	deleted, err := f.cleanup(ctx, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Session key transaction scenario completed")
	return &TransferReport{
		Account:        client.Address(),
		SessionKey:     f.sessionKey,
		InitialBalance: f.initialBalance,
		Transferred:    f.transferred,
		Returned:       amount,
		FinalBalance:   final,
		BalanceDiff:    diff,
		Deleted:        deleted,
	}, nil
}

// SessionKeyZeroValueTx funds a session key, sends a zero-value transaction from it and
// requires the receipt to report success.
func SessionKeyZeroValueTx(ctx context.Context, env Env) (*gateway.Receipt, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	logger := env.log()
	s := env.Settings
	logger.Info("Starting session key zero value transaction test", zap.String("url", env.Network.URL))

	f, err := fundSessionKey(ctx, env)
	if err != nil {
		return nil, err
	}
	client := f.client

	env.step(5, "Sending zero value transaction from session key")
	hash, err := client.SendTransactionFromSessionKey(ctx, f.sessionKey, client.Address(), big.NewInt(0), 0, nil)
	if err != nil {
		return nil, err
	}

	env.step(6, "Verifying zero value transaction is included")
	receipt, err := WaitForReceipt(ctx, logger, client, hash, s.ReceiptTimeout, s.ReceiptInterval)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%w: zero value transaction %s failed with status %s", ErrVerification, hash, receipt.Status)
	}
	logger.Info("Zero value transaction included",
		zap.Uint64("block", receipt.Block()),
		zap.Uint64("gas_used", receipt.Gas()),
	)

	if _, err := f.cleanup(ctx, logger); err != nil {
		return receipt, err
	}

	logger.Info("Session key zero value transaction scenario completed")
	return receipt, nil
}

// ReturnReport summarises the automatic refund on session key deletion.
type ReturnReport struct {
	SessionKey       common.Address
	KeyBalance       *big.Int
	BalanceBefore    *big.Int
	BalanceAfter     *big.Int
	Increase         *big.Int
	KeyFinalBalance  *big.Int
	Deleted          bool
	KeyCleared       bool
	MetMinimumReturn bool
}

// SessionKeyReturnOnDelete funds a session key, deletes it and verifies the gateway
// returned its balance to the owner.
func SessionKeyReturnOnDelete(ctx context.Context, env Env) (*ReturnReport, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	logger := env.log()
	s := env.Settings
	logger.Info("Starting session key return funds on delete test", zap.String("url", env.Network.URL))

	f, err := fundSessionKey(ctx, env)
	if err != nil {
		return nil, err
	}
	client := f.client

	env.step(5, "Deleting session key")
	before, err := client.GetBalance(ctx, client.Address(), shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	deleted, err := client.DeleteSessionKey(ctx, f.sessionKey)
	if err != nil {
		return nil, err
	}
	if !deleted {
		logger.Warn("Session key deletion may have failed")
	}
	logger.Info("Waiting for automatic fund return")
	if err := sleep(ctx, s.MiningWait); err != nil {
		return nil, err
	}

	env.step(6, "Verifying funds automatically returned")
	after, err := client.GetBalance(ctx, client.Address(), shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	keyFinal, err := client.GetBalance(ctx, f.sessionKey, shared.BlockLatest)
	if err != nil {
		return nil, err
	}

	report := &ReturnReport{
		SessionKey:      f.sessionKey,
		KeyBalance:      f.keyBalance,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Increase:        new(big.Int).Sub(after, before),
		KeyFinalBalance: keyFinal,
		Deleted:         deleted,
	}

	if report.Increase.Sign() > 0 {
		logger.Info("Funds automatically returned", zap.String("increase_wei", report.Increase.String()))
		report.KeyCleared = keyFinal.Cmp(shared.PercentOf(f.keyBalance, 1)) <= 0
		if report.KeyCleared {
			logger.Info("Session key balance cleared")
		} else {
			logger.Warn("Session key still has balance", zap.String("wei", keyFinal.String()))
		}
	} else {
		logger.Error("Funds were not automatically returned", zap.String("change_wei", report.Increase.String()))
	}

	minimum := shared.PercentOf(f.keyBalance, 90)
	report.MetMinimumReturn = report.Increase.Cmp(minimum) >= 0
	if report.MetMinimumReturn {
		logger.Info("Balance increase meets expected minimum", zap.String("minimum_wei", minimum.String()))
	} else {
		logger.Warn("Balance increase is less than expected minimum",
			zap.String("increase_wei", report.Increase.String()),
			zap.String("minimum_wei", minimum.String()),
		)
	}

	if report.Increase.Sign() <= 0 {
		return report, fmt.Errorf("%w: balance changed by %s wei after deletion", ErrVerification, report.Increase)
	}

	logger.Info("Session key return funds on delete scenario completed")
	return report, nil
}
