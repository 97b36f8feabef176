package shared

import (
	"math/big"
	"strings"
	"testing"
)

// =============================================================================
// Token / Address Validation Tests
// =============================================================================

func TestIsValidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"lowercase 40 hex", strings.Repeat("ab", 20), true},
		{"uppercase 40 hex", strings.Repeat("AB", 20), true},
		{"mixed case", "0123456789abcdefABCDEF0123456789abcdef01", true},

		{"empty", "", false},
		{"too short", strings.Repeat("a", 39), false},
		{"too long", strings.Repeat("a", 41), false},
		{"with 0x prefix", "0x" + strings.Repeat("a", 38), false},
		{"non hex", strings.Repeat("g", 40), false},
		{"with newline", strings.Repeat("a", 39) + "\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidToken(tt.token); got != tt.want {
				t.Errorf("IsValidToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"checksummed", "0x10DeC2baF2944Ce99710B4319Ec7C7B619E70a0E", true},
		{"lowercase", "0x10dec2baf2944ce99710b4319ec7c7b619e70a0e", true},
		{"reserved create", CreateSessionKeyAddress, true},

		{"missing prefix", "10dec2baf2944ce99710b4319ec7c7b619e70a0e", false},
		{"short", "0x10dec2", false},
		{"empty", "", false},
		{"storage slot", "0x" + strings.Repeat("0", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAddress(tt.addr); got != tt.want {
				t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestIsValidTxHash(t *testing.T) {
	valid := "0x" + strings.Repeat("a1", 32)
	if !IsValidTxHash(valid) {
		t.Errorf("IsValidTxHash(%q) = false, want true", valid)
	}
	for _, bad := range []string{"", "0x", strings.Repeat("a1", 32), "0x" + strings.Repeat("a", 63), "0x" + strings.Repeat("z", 64)} {
		if IsValidTxHash(bad) {
			t.Errorf("IsValidTxHash(%q) = true, want false", bad)
		}
	}
}

// =============================================================================
// Hex Quantity Tests
// =============================================================================

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"zero", "0x0", "0", false},
		{"one", "0x1", "1", false},
		{"leading zeros", "0x00ff", "255", false},
		{"upper prefix", "0XFF", "255", false},
		{"one ether", "0xde0b6b3a7640000", "1000000000000000000", false},

		{"no prefix", "ff", "", true},
		{"empty", "", "", true},
		{"bare prefix", "0x", "", true},
		{"non hex", "0xzz", "", true},
		{"negative", "-0x1", "", true},
		{"too large", "0x1" + strings.Repeat("0", 64), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuantity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseQuantity(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseUint64Quantity(t *testing.T) {
	got, err := ParseUint64Quantity("0x5208")
	if err != nil {
		t.Fatalf("ParseUint64Quantity: %v", err)
	}
	if got != 21000 {
		t.Errorf("ParseUint64Quantity = %d, want 21000", got)
	}

	if _, err := ParseUint64Quantity("0x10000000000000000"); err == nil {
		t.Error("expected overflow error for 2^64")
	}
}

func TestValidateToken(t *testing.T) {
	if err := ValidateToken(strings.Repeat("0f", 20)); err != nil {
		t.Errorf("ValidateToken(valid) = %v", err)
	}
	if err := ValidateToken(""); err == nil || !strings.Contains(err.Error(), "token required") {
		t.Errorf("ValidateToken(\"\") = %v, want token required", err)
	}
	if err := ValidateToken("nope"); err == nil {
		t.Error("ValidateToken(nope) should fail")
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(big.NewInt(0)); err != nil {
		t.Errorf("zero amount should be valid: %v", err)
	}
	if err := ValidateAmount(nil); err == nil {
		t.Error("nil amount should be invalid")
	}
	if err := ValidateAmount(big.NewInt(-1)); err == nil {
		t.Error("negative amount should be invalid")
	}
}
