// Package ethsign holds the Ethereum key, EIP-712 and transaction signing helpers
// shared by the gateway client and the mock gateway.
package ethsign

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/crypto/sha3"

	"tengw/shared"
)

// SignatureLength is the length of an r || s || v signature.
const SignatureLength = 65

// ErrSignerMismatch is returned when a signature recovers to a different address.
var ErrSignerMismatch = errors.New("signature does not match address")

// GenerateKey creates a fresh secp256k1 account key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// ParsePrivateKey parses a 32-byte hex private key with or without a 0x prefix.
func ParsePrivateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// PrivateKeyHex returns the 0x-prefixed hex encoding of key.
func PrivateKeyHex(key *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.FromECDSA(key))
}

// AddressOf derives the account address of key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// AuthenticationTypedData builds the EIP-712 message the gateway expects for token
// authentication. The token is embedded as an address value.
func AuthenticationTypedData(token string, chainID int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			shared.AuthPrimaryType: {
				{Name: shared.AuthTokenField, Type: "address"},
			},
		},
		PrimaryType: shared.AuthPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              shared.AuthDomainName,
			Version:           shared.AuthDomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: shared.ZeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			shared.AuthTokenField: "0x" + token,
		},
	}
}

// TypedDataDigest computes keccak256(0x19 0x01 || domainSeparator || hashStruct(message)).
func TypedDataDigest(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte{0x19, 0x01})
	hash.Write(domainSeparator)
	hash.Write(messageHash)
	return hash.Sum(nil), nil
}

// SignAuthentication signs the authentication message for token and returns the
// 0x-prefixed r || s || v signature with v in {27, 28}.
func SignAuthentication(key *ecdsa.PrivateKey, token string, chainID int64) (string, error) {
	if err := shared.ValidateToken(token); err != nil {
		return "", err
	}
	digest, err := TypedDataDigest(AuthenticationTypedData(token, chainID))
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("signing failed: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// RecoverAddress recovers the signer address of a 65-byte r || s || v signature over
// digest. v may be 0/1 or 27/28.
func RecoverAddress(digest, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature length = %d, want %d", len(sig), SignatureLength)
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}

	// btcec compact format: header || r || s, header = 27 + recid for uncompressed keys
	compact := make([]byte, SignatureLength)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pubKey, _, err := btcecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovery failed: %w", err)
	}
	return pubKeyToAddress(pubKey), nil
}

// VerifyAuthentication checks that sigHex is address's signature of the
// authentication message for token.
func VerifyAuthentication(token string, chainID int64, sigHex string, address common.Address) error {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	digest, err := TypedDataDigest(AuthenticationTypedData(token, chainID))
	if err != nil {
		return err
	}
	signer, err := RecoverAddress(digest, sig)
	if err != nil {
		return err
	}
	if signer != address {
		return fmt.Errorf("%w: recovered %s, claimed %s", ErrSignerMismatch, signer.Hex(), address.Hex())
	}
	return nil
}

// LegacyTx is the unsigned form of a value transfer.
type LegacyTx struct {
	Nonce    uint64
	To       common.Address
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// SignLegacyTx signs tx with EIP-155 replay protection and returns the signed
// transaction plus its 0x-prefixed raw encoding.
func SignLegacyTx(key *ecdsa.PrivateKey, chainID int64, tx LegacyTx) (*types.Transaction, string, error) {
	if err := shared.ValidateAmount(tx.Value); err != nil {
		return nil, "", err
	}
	if tx.GasPrice == nil {
		return nil, "", fmt.Errorf("gas price required")
	}
	to := tx.To
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    tx.Nonce,
		To:       &to,
		Value:    tx.Value,
		Gas:      tx.Gas,
		GasPrice: tx.GasPrice,
	})

	signed, err := types.SignTx(unsigned, types.NewEIP155Signer(big.NewInt(chainID)), key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode transaction: %w", err)
	}

	return signed, hexutil.Encode(raw), nil
}

// DecodeRawTx decodes a raw transaction and recovers its sender for chainID.
func DecodeRawTx(rawHex string, chainID int64) (*types.Transaction, common.Address, error) {
	raw, err := hexutil.Decode(rawHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid raw transaction encoding: %w", err)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid raw transaction: %w", err)
	}
	if tx.Protected() && tx.ChainId().Cmp(big.NewInt(chainID)) != 0 {
		return nil, common.Address{}, fmt.Errorf("chain id mismatch: tx %s, gateway %d", tx.ChainId(), chainID)
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(chainID)), tx)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to recover sender: %w", err)
	}
	return tx, from, nil
}

// pubKeyToAddress converts a btcec public key to an Ethereum address
func pubKeyToAddress(pubKey *btcec.PublicKey) common.Address {
	pubKeyBytes := pubKey.SerializeUncompressed()[1:] // Remove 0x04 prefix

	hash := sha3.NewLegacyKeccak256()
	hash.Write(pubKeyBytes)
	return common.BytesToAddress(hash.Sum(nil)[12:])
}
