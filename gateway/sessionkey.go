package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tengw/shared"
)

// ErrNoSessionKey is returned when the create overload yields no usable address.
var ErrNoSessionKey = errors.New("gateway returned no session key")

// CreateSessionKey asks the gateway for a new session key owned by the account. The
// gateway answers eth_getStorageAt at the reserved create address with a storage slot
// whose leading 20 bytes are the session key address.
func (c *Client) CreateSessionKey(ctx context.Context) (common.Address, error) {
	var result *string
	params := []any{shared.CreateSessionKeyAddress, "0x0", shared.BlockLatest}
	if err := c.Call(ctx, "eth_getStorageAt", params, &result); err != nil {
		return common.Address{}, fmt.Errorf("create session key: %w", err)
	}
	if result == nil {
		return common.Address{}, ErrNoSessionKey
	}

	sk, err := decodeSessionKeySlot(*result)
	if err != nil {
		return common.Address{}, fmt.Errorf("create session key: %w", err)
	}
	c.logger.Info("Session key created", zap.String("session_key", sk.Hex()))
	return sk, nil
}

// DeleteSessionKey asks the gateway to delete sk, which returns its remaining funds to
// the owner. The session key address is passed where the storage slot would be.
func (c *Client) DeleteSessionKey(ctx context.Context, sk common.Address) (bool, error) {
	var result json.RawMessage
	params := []any{shared.DeleteSessionKeyAddress, sk.Hex(), shared.BlockLatest}
	if err := c.Call(ctx, "eth_getStorageAt", params, &result); err != nil {
		return false, fmt.Errorf("delete session key: %w", err)
	}

	deleted := deleteSucceeded(result)
	if deleted {
		c.logger.Info("Session key deleted", zap.String("session_key", sk.Hex()))
	} else {
		c.logger.Warn("Session key deletion not confirmed",
			zap.String("session_key", sk.Hex()),
			zap.String("result", string(result)),
		)
	}
	return deleted, nil
}

// decodeSessionKeySlot extracts an address from a hex slot. A value longer than an
// address is a slot with its leading zero bytes stripped, so it is left-padded back
// to 32 bytes before the first 20 are taken. Shorter values are left-padded to 20 bytes.
func decodeSessionKeySlot(slot string) (common.Address, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(slot, "0x"), "0X")
	if digits == "" {
		return common.Address{}, ErrNoSessionKey
	}
	if !shared.IsValidHex(digits) {
		return common.Address{}, fmt.Errorf("invalid session key slot %q", slot)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid session key slot %q: %w", slot, err)
	}

	if len(raw) > common.AddressLength && len(raw) < common.HashLength {
		raw = common.LeftPadBytes(raw, common.HashLength)
	}

	var addr common.Address
	if len(raw) >= common.AddressLength {
		addr = common.BytesToAddress(raw[:common.AddressLength])
	} else {
		addr = common.BytesToAddress(raw)
	}
	if addr == (common.Address{}) {
		return common.Address{}, ErrNoSessionKey
	}
	return addr, nil
}

// deleteSucceeded interprets the delete overload result: null, false and all-zero hex
// values mean failure; anything else means the key was deleted.
func deleteSucceeded(result json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		return false
	}
	switch r := v.(type) {
	case nil:
		return false
	case bool:
		return r
	case string:
		digits := strings.TrimPrefix(strings.TrimPrefix(r, "0x"), "0X")
		if digits == "" {
			return true
		}
		return strings.Trim(digits, "0") != ""
	default:
		return true
	}
}
