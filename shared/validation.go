package shared

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Compiled regexes for validation (compiled once for performance)
var (
	validHexRegex      = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	validQuantityRegex = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// IsValidHex checks if string is non-empty hex (either case, no prefix)
func IsValidHex(s string) bool {
	if s == "" {
		return false
	}
	return validHexRegex.MatchString(s)
}

// IsValidToken checks if a gateway token is 40 hex chars (it doubles as an address in the auth message)
func IsValidToken(token string) bool {
	return len(token) == TokenHexLength && IsValidHex(token)
}

// IsValidAddress checks for a 0x-prefixed 20-byte hex address
func IsValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// IsValidTxHash checks for a 0x-prefixed 32-byte hex hash
func IsValidTxHash(hash string) bool {
	h := strings.TrimPrefix(hash, "0x")
	return len(hash) == len(h)+2 && len(h) == TxHashHexLength && IsValidHex(h)
}

// ParseQuantity decodes a 0x-prefixed hex quantity. Leading zeros are accepted.
func ParseQuantity(s string) (*big.Int, error) {
	if !validQuantityRegex.MatchString(s) {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("hex quantity %q exceeds 256 bits", s)
	}
	return v, nil
}

// ParseUint64Quantity decodes a 0x-prefixed hex quantity that must fit in 64 bits.
func ParseUint64Quantity(s string) (uint64, error) {
	v, err := ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("hex quantity %q overflows uint64", s)
	}
	return v.Uint64(), nil
}

// ValidateToken validates a token returned by /join/
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("token required")
	}
	if !IsValidToken(token) {
		return fmt.Errorf("token must be %d hex chars, got %q", TokenHexLength, token)
	}
	return nil
}

// ValidateAmount rejects nil and negative wei amounts
func ValidateAmount(wei *big.Int) error {
	if wei == nil {
		return fmt.Errorf("amount required")
	}
	if wei.Sign() < 0 {
		return fmt.Errorf("amount must not be negative, got %s", wei)
	}
	return nil
}
