package scenarios

import (
	"errors"
	"fmt"
	"math/big"

	"tengw/shared"
)

// Share of the balance moved to a session key.
const transferPercent = 95

// ErrInsufficientFunds is returned when a balance cannot cover the planned transfers.
var ErrInsufficientFunds = errors.New("insufficient funds")

// TransferAmount returns 95% of balance, or balance - gasCost - balance/1000 when the
// 95% share plus gasCost would exceed balance. It fails if nothing is left to send.
func TransferAmount(balance, gasCost *big.Int) (*big.Int, error) {
	amount := shared.PercentOf(balance, transferPercent)
	if new(big.Int).Add(amount, gasCost).Cmp(balance) > 0 {
		amount = ReturnAmount(balance, gasCost)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: balance %s cannot cover gas cost %s", ErrInsufficientFunds, balance, gasCost)
	}
	return amount, nil
}

// ReturnAmount returns balance - gasCost - balance/1000. The result may be zero or negative.
func ReturnAmount(balance, gasCost *big.Int) *big.Int {
	v := new(big.Int).Sub(balance, gasCost)
	return v.Sub(v, shared.Permille(balance))
}

// PlanDistribution splits balance across keys session keys after reserving twice the gas
// of one plain transfer per key. It returns the per-key amount and the reserve.
func PlanDistribution(balance, gasPrice *big.Int, keys int) (perKey, reserve *big.Int, err error) {
	if keys <= 0 {
		return nil, nil, fmt.Errorf("keys must be positive, got %d", keys)
	}
	n := big.NewInt(int64(keys))

	reserve = shared.GasCost(shared.TransferGas, gasPrice)
	reserve.Mul(reserve, n)
	reserve.Mul(reserve, big.NewInt(2))

	available := new(big.Int).Sub(balance, reserve)
	if available.Sign() <= 0 {
		return nil, reserve, fmt.Errorf("%w: balance %s, gas reserve %s", ErrInsufficientFunds, balance, reserve)
	}
	return available.Quo(available, n), reserve, nil
}

// AtLeastPercent reports whether actual >= floor(reference * pct / 100).
func AtLeastPercent(actual, reference *big.Int, pct int64) bool {
	return actual.Cmp(shared.PercentOf(reference, pct)) >= 0
}
