package scenarios

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tengw/gateway"
)

// fakeBalances returns results[i] on the i-th call and the last entry afterwards.
type fakeBalances struct {
	calls   atomic.Int32
	results []func() (*big.Int, error)
}

func (f *fakeBalances) GetBalance(_ context.Context, _ common.Address, _ string) (*big.Int, error) {
	i := int(f.calls.Add(1)) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

type fakeReceipts struct {
	calls    atomic.Int32
	readyAt  int32
	failures int32
}

func (f *fakeReceipts) GetTransactionReceipt(_ context.Context, hash string) (*gateway.Receipt, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("temporary failure")
	}
	if n < f.readyAt {
		return nil, nil
	}
	return &gateway.Receipt{TransactionHash: hash, Status: "0x1"}, nil
}

func balance(v int64) func() (*big.Int, error) {
	return func() (*big.Int, error) { return big.NewInt(v), nil }
}

func failing() (*big.Int, error) { return nil, errors.New("connection refused") }

func TestWaitForFunds(t *testing.T) {
	r := &fakeBalances{results: []func() (*big.Int, error){balance(0), failing, balance(0), balance(42)}}

	got, err := WaitForFunds(context.Background(), zap.NewNop(), r, common.Address{}, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 42 {
		t.Errorf("balance = %s, want 42", got)
	}
	if calls := r.calls.Load(); calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestWaitForFunds_Timeout(t *testing.T) {
	r := &fakeBalances{results: []func() (*big.Int, error){balance(0)}}

	_, err := WaitForFunds(context.Background(), zap.NewNop(), r, common.Address{}, 30*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitForFunds_Cancelled(t *testing.T) {
	r := &fakeBalances{results: []func() (*big.Int, error){balance(0)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForFunds(ctx, zap.NewNop(), r, common.Address{}, time.Minute, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForReceipt(t *testing.T) {
	r := &fakeReceipts{failures: 1, readyAt: 3}

	got, err := WaitForReceipt(context.Background(), zap.NewNop(), r, "0xabc", time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TransactionHash != "0xabc" || !got.Succeeded() {
		t.Errorf("unexpected receipt %+v", got)
	}
	if calls := r.calls.Load(); calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWaitForReceipt_Timeout(t *testing.T) {
	r := &fakeReceipts{readyAt: 1 << 30}

	_, err := WaitForReceipt(context.Background(), zap.NewNop(), r, "0xabc", 20*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCountdown(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	start := time.Now()

	if err := Countdown(context.Background(), zap.New(core), 60*time.Millisecond, 5*time.Millisecond, 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("returned after %s, before the full wait", elapsed)
	}

	progress := logs.FilterMessage("Waiting...").Len()
	if progress < 2 || progress > 4 {
		t.Errorf("progress lines = %d, want about one per 20ms", progress)
	}
	if logs.FilterMessage("Wait period completed").Len() != 1 {
		t.Error("missing completion log")
	}
}

func TestCountdown_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Countdown(ctx, zap.NewNop(), time.Hour, 5*time.Millisecond, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestCountdown_Zero(t *testing.T) {
	if err := Countdown(context.Background(), zap.NewNop(), 0, time.Second, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCountdown_NonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name     string
		tick     time.Duration
		logEvery time.Duration
	}{
		{"zero log interval", 5 * time.Millisecond, 0},
		{"negative log interval", 5 * time.Millisecond, -time.Second},
		{"zero tick", 0, time.Minute},
		{"both zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			start := time.Now()

			if err := Countdown(context.Background(), zap.New(core), 20*time.Millisecond, tt.tick, tt.logEvery); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("countdown of 20ms took %s", elapsed)
			}
			if n := logs.FilterMessage("Waiting...").Len(); n != 1 {
				t.Errorf("progress lines = %d, want 1 with the one minute default", n)
			}
		})
	}
}
