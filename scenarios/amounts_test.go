package scenarios

import (
	"errors"
	"math/big"
	"testing"
)

func bigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int %q", s)
	}
	return v
}

func TestTransferAmount(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		gasCost string
		want    string
		wantErr bool
	}{
		{"ninety five percent", "1000000000000000000", "21000000000000", "950000000000000000", false},
		{"fallback when share plus gas exceeds balance", "1000", "100", "899", false},
		{"exact fit keeps share", "1000", "50", "950", false},
		{"gas exceeds balance", "100", "200", "", true},
		{"zero balance", "0", "0", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransferAmount(bigInt(t, tt.balance), bigInt(t, tt.gasCost))
			if tt.wantErr {
				if !errors.Is(err, ErrInsufficientFunds) {
					t.Fatalf("expected ErrInsufficientFunds, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cmp(bigInt(t, tt.want)) != 0 {
				t.Errorf("TransferAmount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReturnAmount(t *testing.T) {
	tests := []struct {
		balance, gasCost, want string
	}{
		{"1000000", "21000", "978000"},
		{"999", "0", "999"},
		{"100", "200", "-100"},
	}

	for _, tt := range tests {
		got := ReturnAmount(bigInt(t, tt.balance), bigInt(t, tt.gasCost))
		if got.Cmp(bigInt(t, tt.want)) != 0 {
			t.Errorf("ReturnAmount(%s, %s) = %s, want %s", tt.balance, tt.gasCost, got, tt.want)
		}
	}
}

func TestPlanDistribution(t *testing.T) {
	gasPrice := big.NewInt(1_000_000_000)

	perKey, reserve, err := PlanDistribution(bigInt(t, "1000000000000000000"), gasPrice, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := bigInt(t, "168000000000000"); reserve.Cmp(want) != 0 {
		t.Errorf("reserve = %s, want %s", reserve, want)
	}
	if want := bigInt(t, "249958000000000000"); perKey.Cmp(want) != 0 {
		t.Errorf("perKey = %s, want %s", perKey, want)
	}

	_, reserve, err = PlanDistribution(big.NewInt(1000), gasPrice, 2)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if reserve == nil || reserve.Sign() <= 0 {
		t.Errorf("reserve should be reported on failure, got %v", reserve)
	}

	if _, _, err := PlanDistribution(big.NewInt(1000), gasPrice, 0); err == nil {
		t.Error("expected error for zero keys")
	}
}

func TestPlanDistribution_StaysWithinBalance(t *testing.T) {
	tests := []struct {
		balance  string
		gasPrice int64
		keys     int
	}{
		{"1000000000000000000", 1_000_000_000, 4},
		{"1000000000000000000", 1_000_000_000, 15},
		{"1000000000000000001", 1_000_000_000, 7},
		{"123456789012345678", 30_000_000_000, 3},
		{"5000000000000000000", 1, 100},
		{"84000000000001", 1_000_000_000, 2},
		{"42000000000000", 1, 1},
		{"999999999999999999999", 250_000_000_000, 13},
	}

	for _, tt := range tests {
		balance := bigInt(t, tt.balance)
		gasPrice := big.NewInt(tt.gasPrice)

		perKey, reserve, err := PlanDistribution(balance, gasPrice, tt.keys)
		if err != nil {
			t.Fatalf("PlanDistribution(%s, %d, %d) failed: %v", tt.balance, tt.gasPrice, tt.keys, err)
		}

		wantReserve := new(big.Int).Mul(big.NewInt(2*21000*int64(tt.keys)), gasPrice)
		if reserve.Cmp(wantReserve) != 0 {
			t.Errorf("reserve(%s, %d, %d) = %s, want %s", tt.balance, tt.gasPrice, tt.keys, reserve, wantReserve)
		}
		if perKey.Sign() < 0 {
			t.Errorf("perKey(%s, %d, %d) = %s, want non-negative", tt.balance, tt.gasPrice, tt.keys, perKey)
		}

		spent := new(big.Int).Mul(perKey, big.NewInt(int64(tt.keys)))
		available := new(big.Int).Sub(balance, reserve)
		if spent.Cmp(available) > 0 {
			t.Errorf("perKey*keys = %s exceeds balance-reserve = %s", spent, available)
		}
		// integer division leaves less than one wei per key behind
		if left := new(big.Int).Sub(available, spent); left.Cmp(big.NewInt(int64(tt.keys))) >= 0 {
			t.Errorf("%s wei left undistributed across %d keys", left, tt.keys)
		}
	}
}

func TestAtLeastPercent(t *testing.T) {
	ref := big.NewInt(1000)
	if !AtLeastPercent(big.NewInt(990), ref, 99) {
		t.Error("990 is 99% of 1000")
	}
	if AtLeastPercent(big.NewInt(989), ref, 99) {
		t.Error("989 is below 99% of 1000")
	}
	if !AtLeastPercent(big.NewInt(0), big.NewInt(0), 90) {
		t.Error("zero meets a percentage of zero")
	}
}

func TestCountStatuses(t *testing.T) {
	got := countStatuses([]int{200, 429, 200, 0, 503, 429, 429})
	want := JoinStats{Total: 7, Success: 2, RateLimited: 3, Other: 2}
	if got != want {
		t.Errorf("countStatuses = %+v, want %+v", got, want)
	}
}
