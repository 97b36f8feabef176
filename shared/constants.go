// Package shared contains the network table, constants and validation helpers used by
// the gateway client, the scenarios and the mock gateway.
package shared

import "math/big"

const (
	// Reserved addresses overloaded by the gateway through eth_getStorageAt
	CreateSessionKeyAddress = "0x0000000000000000000000000000000000000003"
	DeleteSessionKeyAddress = "0x0000000000000000000000000000000000000004"
	ZeroAddress             = "0x0000000000000000000000000000000000000000"

	// Transaction defaults
	DefaultGasLimit     = 25000
	DefaultGasPriceGwei = 20
	TransferGas         = 21000 // intrinsic gas of a plain value transfer

	// Default block parameter for state queries
	BlockLatest = "latest"

	// Hex lengths (without 0x prefix)
	TokenHexLength       = 40 // 20 bytes hex-encoded
	AddressHexLength     = 40 // 20 bytes hex-encoded
	StorageSlotHexLength = 64 // 32 bytes hex-encoded
	TxHashHexLength      = 64 // 32 bytes hex-encoded

	// Auth response body returned by the gateway on success
	AuthSuccessBody = "success"

	// EIP-712 authentication domain
	AuthDomainName    = "Ten"
	AuthDomainVersion = "1.0"
	AuthPrimaryType   = "Authentication"
	AuthTokenField    = "Encryption Token"

	// Wei per whole unit of the native currency (10^18)
	WeiDecimals = 18
)

// Gwei is 10^9 wei.
var Gwei = big.NewInt(1_000_000_000)

// Ether is 10^18 wei.
var Ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(WeiDecimals), nil)

// DefaultGasPrice returns a fresh copy of the 20 gwei fallback gas price.
func DefaultGasPrice() *big.Int {
	return new(big.Int).Mul(big.NewInt(DefaultGasPriceGwei), Gwei)
}
