package shared

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatWeiToEth renders a wei amount as a whole-unit string with 6 decimal places.
func FormatWeiToEth(wei *big.Int) string {
	if wei == nil {
		return decimal.Zero.StringFixed(6)
	}
	return decimal.NewFromBigInt(wei, -WeiDecimals).StringFixed(6)
}

// EthToWei converts a decimal string amount (e.g. "0.25") to wei, truncating below 1 wei.
func EthToWei(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	return d.Shift(WeiDecimals).Truncate(0).BigInt(), nil
}

// PercentOf returns floor(amount * pct / 100).
func PercentOf(amount *big.Int, pct int64) *big.Int {
	v := new(big.Int).Mul(amount, big.NewInt(pct))
	return v.Quo(v, big.NewInt(100))
}

// Permille returns floor(amount / 1000).
func Permille(amount *big.Int) *big.Int {
	return new(big.Int).Quo(amount, big.NewInt(1000))
}

// GasCost returns gas * gasPrice.
func GasCost(gas uint64, gasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
}
