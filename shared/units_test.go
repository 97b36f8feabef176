package shared

import (
	"math/big"
	"testing"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return v
}

func TestFormatWeiToEth(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0.000000"},
		{"1", "0.000000"},
		{"1000000000000", "0.000001"},
		{"1000000000000000000", "1.000000"},
		{"1234567890000000000", "1.234568"},
		{"950000000000000000", "0.950000"},
		{"123000000000000000000000", "123000.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.wei, func(t *testing.T) {
			if got := FormatWeiToEth(mustBig(t, tt.wei)); got != tt.want {
				t.Errorf("FormatWeiToEth(%s) = %s, want %s", tt.wei, got, tt.want)
			}
		})
	}

	if got := FormatWeiToEth(nil); got != "0.000000" {
		t.Errorf("FormatWeiToEth(nil) = %s, want 0.000000", got)
	}
}

func TestEthToWei(t *testing.T) {
	got, err := EthToWei("0.25")
	if err != nil {
		t.Fatalf("EthToWei: %v", err)
	}
	if got.String() != "250000000000000000" {
		t.Errorf("EthToWei(0.25) = %s", got)
	}

	if _, err := EthToWei("abc"); err == nil {
		t.Error("EthToWei(abc) should fail")
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		amount int64
		pct    int64
		want   int64
	}{
		{1000, 95, 950},
		{999, 99, 989}, // floor
		{1, 50, 0},
		{0, 95, 0},
		{12345, 100, 12345},
	}
	for _, tt := range tests {
		got := PercentOf(big.NewInt(tt.amount), tt.pct)
		if got.Int64() != tt.want {
			t.Errorf("PercentOf(%d, %d) = %s, want %d", tt.amount, tt.pct, got, tt.want)
		}
	}
}

func TestPermilleAndGasCost(t *testing.T) {
	if got := Permille(big.NewInt(123456)); got.Int64() != 123 {
		t.Errorf("Permille(123456) = %s, want 123", got)
	}
	if got := GasCost(21000, DefaultGasPrice()); got.String() != "420000000000000" {
		t.Errorf("GasCost(21000, 20 gwei) = %s", got)
	}
}

func TestDefaultGasPriceIsCopy(t *testing.T) {
	p := DefaultGasPrice()
	p.SetInt64(1)
	if DefaultGasPrice().String() != "20000000000" {
		t.Error("DefaultGasPrice must return an independent value")
	}
}
