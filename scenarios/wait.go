package scenarios

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tengw/gateway"
	"tengw/shared"
)

// ErrTimeout is returned when a polling helper gives up.
var ErrTimeout = errors.New("timed out")

// BalanceReader reads account balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, addr common.Address, block string) (*big.Int, error)
}

// ReceiptReader reads transaction receipts; a nil receipt means pending.
type ReceiptReader interface {
	GetTransactionReceipt(ctx context.Context, hash string) (*gateway.Receipt, error)
}

// WaitForFunds polls the balance of addr every interval until it is positive. Errors
// while polling are logged at debug level and ignored. After timeout it returns ErrTimeout.
func WaitForFunds(ctx context.Context, logger *zap.Logger, r BalanceReader, addr common.Address, timeout, interval time.Duration) (*big.Int, error) {
	logger.Info("Waiting for funds",
		zap.String("address", addr.Hex()),
		zap.Duration("timeout", timeout),
		zap.Duration("interval", interval),
	)

	start := time.Now()
	for time.Since(start) < timeout {
		balance, err := r.GetBalance(ctx, addr, shared.BlockLatest)
		if err != nil {
			logger.Debug("Error checking balance", zap.Error(err))
		} else if balance.Sign() > 0 {
			logger.Info("Funds detected",
				zap.String("wei", balance.String()),
				zap.String("eth", shared.FormatWeiToEth(balance)),
			)
			return balance, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
		logger.Info("Still waiting...",
			zap.Duration("elapsed", time.Since(start).Truncate(time.Second)),
			zap.Duration("timeout", timeout),
		)
	}

	return nil, fmt.Errorf("no funds received at %s within %s: %w", addr.Hex(), timeout, ErrTimeout)
}

// WaitForReceipt polls for the receipt of hash every interval. Errors while polling are
// logged at debug level and ignored. After timeout it returns ErrTimeout.
func WaitForReceipt(ctx context.Context, logger *zap.Logger, r ReceiptReader, hash string, timeout, interval time.Duration) (*gateway.Receipt, error) {
	logger.Info("Waiting for receipt", zap.String("hash", hash), zap.Duration("timeout", timeout))

	start := time.Now()
	for time.Since(start) < timeout {
		receipt, err := r.GetTransactionReceipt(ctx, hash)
		if err != nil {
			logger.Debug("Error fetching receipt", zap.Error(err))
		} else if receipt != nil {
			return receipt, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("no receipt for %s within %s: %w", hash, timeout, ErrTimeout)
}

const (
	defaultCountdownTick     = 10 * time.Second
	defaultCountdownLogEvery = time.Minute
)

// Countdown waits for total, checking every tick and logging progress once per logEvery.
// A non-positive tick or logEvery falls back to 10s and one minute.
func Countdown(ctx context.Context, logger *zap.Logger, total, tick, logEvery time.Duration) error {
	if tick <= 0 {
		tick = defaultCountdownTick
	}
	if logEvery <= 0 {
		logEvery = defaultCountdownLogEvery
	}
	start := time.Now()
	lastLogged := time.Duration(-1)

	for {
		elapsed := time.Since(start)
		if elapsed >= total {
			break
		}
		if bucket := elapsed / logEvery; bucket != lastLogged {
			remaining := total - elapsed
			logger.Info("Waiting...",
				zap.Duration("elapsed", elapsed.Truncate(time.Second)),
				zap.Duration("total", total),
				zap.Duration("remaining", remaining.Truncate(time.Second)),
			)
			lastLogged = bucket
		}
		if err := sleep(ctx, min(tick, total-elapsed)); err != nil {
			return err
		}
	}

	logger.Info("Wait period completed", zap.Duration("total", total))
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
