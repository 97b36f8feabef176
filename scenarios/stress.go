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

// maxListedKeys bounds how many non-empty session keys are logged after expiration.
const maxListedKeys = 10

// StressReport summarises the fund expiration stress test.
type StressReport struct {
	Account             common.Address
	SessionKeys         int
	PerKey              *big.Int
	Successful          int
	Failed              int
	KeysTotalBefore     *big.Int
	MainAfterTransfers  *big.Int
	MainAfterExpiration *big.Int
	Increase            *big.Int
	KeysTotalAfter      *big.Int
	NonEmptyKeys        int
	Swept               *big.Int
	Passed              bool
}

type ownedKey struct {
	owner *gateway.Client
	key   common.Address
}

// FundExpirationStress funds many session keys across several users, waits for the
// gateway to expire their funds back to the funder and checks the accounting.
func FundExpirationStress(ctx context.Context, env Env) (*StressReport, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	logger := env.log()
	s := env.Settings
	totalKeys := s.StressUsers * s.StressKeysPerUser

	logger.Info("Starting fund expiration stress test",
		zap.String("url", env.Network.URL),
		zap.Int("users", s.StressUsers),
		zap.Int("keys_per_user", s.StressKeysPerUser),
		zap.Int("total_keys", totalKeys),
		zap.Duration("expiration_wait", s.ExpirationWait),
	)

	env.step(1, "Creating main account and waiting for funds")
	funder, err := env.newAccount(ctx, env.PrivateKey, "main")
	if err != nil {
		return nil, err
	}
	logger.Info("Please send funds to main account", zap.String("address", funder.Address().Hex()))
	initial, err := WaitForFunds(ctx, logger, funder, funder.Address(), s.FundsTimeout, s.FundsInterval)
	if err != nil {
		return nil, err
	}

	env.step(2, "Creating users and session keys")
	keys := make([]ownedKey, 0, totalKeys)
	for u := 0; u < s.StressUsers; u++ {
		user, err := env.newAccount(ctx, nil, fmt.Sprintf("user-%d", u+1))
		if err != nil {
			return nil, err
		}
		for k := 0; k < s.StressKeysPerUser; k++ {
			sk, err := user.CreateSessionKey(ctx)
			if err != nil {
				return nil, err
			}
			keys = append(keys, ownedKey{owner: user, key: sk})
			logger.Info("Session key created",
				zap.Int("user", u+1),
				zap.Int("key", k+1),
				zap.String("session_key", sk.Hex()),
			)
		}
	}
	logger.Info("Created users", zap.Int("users", s.StressUsers), zap.Int("session_keys", len(keys)))

	env.step(3, "Distributing funds to all session keys")
	gasPrice, err := funder.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	perKey, reserve, err := PlanDistribution(initial, gasPrice, len(keys))
	if err != nil {
		logger.Error("Not enough funds to cover gas costs",
			zap.String("initial_wei", initial.String()),
			zap.String("reserve_wei", reserve.String()),
		)
		return nil, err
	}
	logger.Info("Distributing to each session key",
		zap.String("wei", perKey.String()),
		zap.String("eth", shared.FormatWeiToEth(perKey)),
		zap.String("gas_price", gasPrice.String()),
	)

	report := &StressReport{Account: funder.Address(), SessionKeys: len(keys), PerKey: perKey}
	for i, k := range keys {
		if err := sendFromMain(ctx, funder, k.key, perKey, gasPrice); err != nil {
			report.Failed++
			logger.Error("Failed to send to session key", zap.String("session_key", k.key.Hex()), zap.Error(err))
			continue
		}
		report.Successful++
		if (i+1)%10 == 0 || i+1 == len(keys) {
			logger.Info("Transfer progress", zap.Int("sent", i+1), zap.Int("total", len(keys)))
		}
	}
	logger.Info("Transfers completed", zap.Int("successful", report.Successful), zap.Int("failed", report.Failed))

	logger.Info("Waiting for transactions to be mined")
	if err := sleep(ctx, s.StressMiningWait); err != nil {
		return nil, err
	}

	env.step(4, "Verifying funds on session keys")
	report.KeysTotalBefore, _ = sumKeyBalances(ctx, logger, keys)
	report.MainAfterTransfers, err = funder.GetBalance(ctx, funder.Address(), shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	logger.Info("Balances after distribution",
		zap.String("main_wei", report.MainAfterTransfers.String()),
		zap.String("session_keys_wei", report.KeysTotalBefore.String()),
	)

	env.step(5, "Waiting for fund expiration")
	if err := Countdown(ctx, logger, s.ExpirationWait, s.CountdownTick, s.CountdownLogEvery); err != nil {
		return nil, err
	}

	env.step(6, "Verifying fund expiration")
	report.MainAfterExpiration, err = funder.GetBalance(ctx, funder.Address(), shared.BlockLatest)
	if err != nil {
		return nil, err
	}
	var nonEmpty []ownedBalance
	report.KeysTotalAfter, nonEmpty = sumKeyBalances(ctx, logger, keys)
	report.NonEmptyKeys = len(nonEmpty)
	if len(nonEmpty) > 0 {
		logger.Warn("Session keys with non-zero balance", zap.Int("count", len(nonEmpty)))
		for _, b := range nonEmpty[:min(len(nonEmpty), maxListedKeys)] {
			logger.Warn("Non-empty session key", zap.String("session_key", b.key.Hex()), zap.String("wei", b.balance.String()))
		}
	}

	report.Passed = true
	report.Increase = new(big.Int).Sub(report.MainAfterExpiration, report.MainAfterTransfers)
	if report.Increase.Sign() > 0 {
		logger.Info("Main balance increased", zap.String("wei", report.Increase.String()))
		minimum := shared.PercentOf(report.KeysTotalBefore, 80)
		if report.Increase.Cmp(minimum) < 0 {
			logger.Warn("Balance increase is less than expected minimum",
				zap.String("increase_wei", report.Increase.String()),
				zap.String("minimum_wei", minimum.String()),
			)
		}
	} else {
		logger.Error("Main balance did not increase after expiration",
			zap.String("after_distribution_wei", report.MainAfterTransfers.String()),
			zap.String("after_expiration_wei", report.MainAfterExpiration.String()),
		)
		report.Passed = false
	}

	tolerance := shared.PercentOf(report.KeysTotalBefore, 1)
	if report.KeysTotalAfter.Cmp(tolerance) <= 0 {
		logger.Info("Session key balances cleared",
			zap.String("total_wei", report.KeysTotalAfter.String()),
			zap.String("tolerance_wei", tolerance.String()),
		)
	} else {
		logger.Warn("Some session keys still have balance", zap.String("total_wei", report.KeysTotalAfter.String()))
		if report.KeysTotalAfter.Cmp(new(big.Int).Mul(tolerance, big.NewInt(5))) > 0 {
			report.Passed = false
		}
	}

	env.step(7, "Sending remaining funds to return address")
	report.Swept = sweep(ctx, env, funder)

	if !report.Passed {
		logger.Error("Fund expiration stress test FAILED")
		return report, fmt.Errorf("%w: session key funds did not expire as expected", ErrVerification)
	}
	logger.Info("Fund expiration stress test completed successfully")
	return report, nil
}

func sendFromMain(ctx context.Context, funder *gateway.Client, to common.Address, value, gasPrice *big.Int) error {
	gas, err := funder.EstimateGas(ctx, funder.Address(), to, value)
	if err != nil {
		return err
	}
	_, err = funder.SendTransaction(ctx, to, value, gas, gasPrice)
	return err
}

type ownedBalance struct {
	key     common.Address
	balance *big.Int
}

// sumKeyBalances totals the session key balances, reading each through its owner.
// Unreadable balances are logged and skipped.
func sumKeyBalances(ctx context.Context, logger *zap.Logger, keys []ownedKey) (*big.Int, []ownedBalance) {
	total := new(big.Int)
	var nonEmpty []ownedBalance
	for _, k := range keys {
		balance, err := k.owner.GetBalance(ctx, k.key, shared.BlockLatest)
		if err != nil {
			logger.Warn("Could not check balance", zap.String("session_key", k.key.Hex()), zap.Error(err))
			continue
		}
		total.Add(total, balance)
		if balance.Sign() > 0 {
			nonEmpty = append(nonEmpty, ownedBalance{key: k.key, balance: balance})
		}
	}
	return total, nonEmpty
}

// sweep sends what the main account holds, less gas and a small buffer, to the
// configured return address. Failures are logged; it returns the amount sent.
func sweep(ctx context.Context, env Env, funder *gateway.Client) *big.Int {
	logger := env.log()
	returnAddr := common.HexToAddress(env.Settings.ReturnAddress)
	logger.Info("Return address", zap.String("address", returnAddr.Hex()))

	balance, err := funder.GetBalance(ctx, funder.Address(), shared.BlockLatest)
	if err != nil {
		logger.Error("Failed to read main balance", zap.Error(err))
		return new(big.Int)
	}
	if balance.Sign() <= 0 {
		logger.Info("No funds remaining to return")
		return new(big.Int)
	}

	gasPrice, err := funder.GetGasPrice(ctx)
	if err != nil {
		logger.Error("Failed to get gas price", zap.Error(err))
		return new(big.Int)
	}
	gas, err := funder.EstimateGas(ctx, funder.Address(), returnAddr, balance)
	if err != nil {
		logger.Error("Failed to estimate gas", zap.Error(err))
		return new(big.Int)
	}

	amount := ReturnAmount(balance, shared.GasCost(gas, gasPrice))
	if amount.Sign() <= 0 {
		logger.Warn("Not enough balance to cover gas costs for return transaction")
		return new(big.Int)
	}

	logger.Info("Sending to return address", zap.String("wei", amount.String()), zap.String("eth", shared.FormatWeiToEth(amount)))
	if _, err := funder.SendTransaction(ctx, returnAddr, amount, gas, gasPrice); err != nil {
		logger.Error("Failed to send funds to return address", zap.Error(err))
		return new(big.Int)
	}

	if err := sleep(ctx, env.Settings.MiningWait); err == nil {
		if remaining, err := funder.GetBalance(ctx, funder.Address(), shared.BlockLatest); err == nil {
			logger.Info("Remaining balance", zap.String("wei", remaining.String()))
		}
	}
	return amount
}
