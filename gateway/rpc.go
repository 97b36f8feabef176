package gateway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"tengw/internal/ethsign"
	"tengw/shared"
)

// Receipt is the subset of eth_getTransactionReceipt the harness reads.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`
	Status          string `json:"status"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
}

// Succeeded reports whether the receipt status is 1.
func (r *Receipt) Succeeded() bool {
	status, err := shared.ParseUint64Quantity(r.Status)
	return err == nil && status == 1
}

// Block returns the block number, or 0 when absent or malformed.
func (r *Receipt) Block() uint64 {
	n, _ := shared.ParseUint64Quantity(r.BlockNumber)
	return n
}

// Gas returns the gas used, or 0 when absent or malformed.
func (r *Receipt) Gas() uint64 {
	n, _ := shared.ParseUint64Quantity(r.GasUsed)
	return n
}

func blockOrLatest(block string) string {
	if block == "" {
		return shared.BlockLatest
	}
	return block
}

func (c *Client) callQuantity(ctx context.Context, method string, params []any) (*big.Int, error) {
	var result string
	if err := c.Call(ctx, method, params, &result); err != nil {
		return nil, err
	}
	v, err := shared.ParseQuantity(result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

// GetTransactionCount returns the nonce of addr at block ("" means latest).
func (c *Client) GetTransactionCount(ctx context.Context, addr common.Address, block string) (uint64, error) {
	v, err := c.callQuantity(ctx, "eth_getTransactionCount", []any{addr.Hex(), blockOrLatest(block)})
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("eth_getTransactionCount: nonce %s overflows uint64", v)
	}
	return v.Uint64(), nil
}

// GetBalance returns the wei balance of addr at block ("" means latest).
func (c *Client) GetBalance(ctx context.Context, addr common.Address, block string) (*big.Int, error) {
	balance, err := c.callQuantity(ctx, "eth_getBalance", []any{addr.Hex(), blockOrLatest(block)})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Balance",
		zap.String("address", addr.Hex()),
		zap.String("wei", balance.String()),
		zap.String("eth", shared.FormatWeiToEth(balance)),
	)
	return balance, nil
}

// GetGasPrice returns the current gas price in wei.
func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return c.callQuantity(ctx, "eth_gasPrice", nil)
}

// EstimateGas estimates the gas of a value transfer from -> to.
func (c *Client) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error) {
	if err := shared.ValidateAmount(value); err != nil {
		return 0, err
	}
	args := shared.CallArgs{
		From:  from.Hex(),
		To:    to.Hex(),
		Value: hexutil.EncodeBig(value),
	}
	v, err := c.callQuantity(ctx, "eth_estimateGas", []any{args})
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("eth_estimateGas: %s overflows uint64", v)
	}
	return v.Uint64(), nil
}

// SendTransaction signs a legacy transfer with the account key and submits it with
// eth_sendRawTransaction. A zero gas limit or nil gas price falls back to the defaults.
// It returns the transaction hash reported by the gateway.
func (c *Client) SendTransaction(ctx context.Context, to common.Address, value *big.Int, gas uint64, gasPrice *big.Int) (string, error) {
	if gas == 0 {
		gas = shared.DefaultGasLimit
	}
	if gasPrice == nil {
		gasPrice = shared.DefaultGasPrice()
	}

	nonce, err := c.GetTransactionCount(ctx, c.address, shared.BlockLatest)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}

	signed, raw, err := ethsign.SignLegacyTx(c.key, c.network.ChainID, ethsign.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
	})
	if err != nil {
		return "", err
	}

	var hash string
	if err := c.Call(ctx, "eth_sendRawTransaction", []any{raw}, &hash); err != nil {
		return "", err
	}

	c.logger.Info("Transaction sent",
		zap.String("hash", hash),
		zap.String("local_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("value_wei", value.String()),
		zap.Uint64("nonce", nonce),
	)
	return hash, nil
}

// SendTransactionFromSessionKey asks the gateway to sign and submit a transfer from the
// session key sk with eth_sendTransaction. Gas and gas price are omitted when zero/nil.
func (c *Client) SendTransactionFromSessionKey(ctx context.Context, sk, to common.Address, value *big.Int, gas uint64, gasPrice *big.Int) (string, error) {
	if err := shared.ValidateAmount(value); err != nil {
		return "", err
	}
	args := shared.CallArgs{
		From:  sk.Hex(),
		To:    to.Hex(),
		Value: hexutil.EncodeBig(value),
	}
	if gas > 0 {
		args.Gas = hexutil.EncodeUint64(gas)
	}
	if gasPrice != nil && gasPrice.Sign() > 0 {
		args.GasPrice = hexutil.EncodeBig(gasPrice)
	}

	var hash string
	if err := c.Call(ctx, "eth_sendTransaction", []any{args}, &hash); err != nil {
		return "", err
	}

	c.logger.Info("Session key transaction sent",
		zap.String("hash", hash),
		zap.String("session_key", sk.Hex()),
		zap.String("to", to.Hex()),
		zap.String("value_wei", value.String()),
	)
	return hash, nil
}

// GetTransactionReceipt returns the receipt for hash, or nil while it is pending.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt *Receipt
	if err := c.Call(ctx, "eth_getTransactionReceipt", []any{hash}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}
