package mockgw

import (
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"tengw/internal/ethsign"
	"tengw/shared"
)

func invalidParams(format string, args ...any) *shared.JSONRPCError {
	return &shared.JSONRPCError{Code: shared.RPCCodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func serverError(err error) *shared.JSONRPCError {
	return &shared.JSONRPCError{Code: shared.RPCCodeServer, Message: err.Error()}
}

func stringParam(params []json.RawMessage, i int) (string, *shared.JSONRPCError) {
	if i >= len(params) {
		return "", invalidParams("missing value for required argument %d", i)
	}
	var s string
	if err := json.Unmarshal(params[i], &s); err != nil {
		return "", invalidParams("argument %d: expected string", i)
	}
	return s, nil
}

func addressParam(params []json.RawMessage, i int) (common.Address, *shared.JSONRPCError) {
	s, rpcErr := stringParam(params, i)
	if rpcErr != nil {
		return common.Address{}, rpcErr
	}
	if !shared.IsValidAddress(s) {
		return common.Address{}, invalidParams("argument %d: invalid address %q", i, s)
	}
	return common.HexToAddress(s), nil
}

// dispatch runs method for token. The result is marshalled as the JSON-RPC result; a
// nil result is sent as null.
func (s *Server) dispatch(token string, state tokenState, method string, params []json.RawMessage) (any, *shared.JSONRPCError) {
	if len(state.accounts) == 0 {
		return nil, &shared.JSONRPCError{Code: shared.RPCCodeServer, Message: "token has no authenticated account"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch method {
	case "eth_chainId":
		return hexutil.EncodeUint64(uint64(s.cfg.ChainID)), nil
	case "eth_blockNumber":
		return hexutil.EncodeUint64(s.ledger.block), nil
	case "eth_gasPrice":
		return hexutil.EncodeBig(s.cfg.gasPrice()), nil
	case "eth_estimateGas":
		return hexutil.EncodeUint64(shared.TransferGas), nil
	case "eth_getBalance":
		addr, rpcErr := addressParam(params, 0)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return hexutil.EncodeBig(s.ledger.balance(addr)), nil
	case "eth_getTransactionCount":
		addr, rpcErr := addressParam(params, 0)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return hexutil.EncodeUint64(s.ledger.nonces[addr]), nil
	case "eth_getTransactionReceipt":
		h, rpcErr := stringParam(params, 0)
		if rpcErr != nil {
			return nil, rpcErr
		}
		if !shared.IsValidTxHash(h) {
			return nil, invalidParams("invalid transaction hash %q", h)
		}
		if r, ok := s.ledger.receipts[common.HexToHash(h)]; ok {
			return r.render(), nil
		}
		return nil, nil
	case "eth_sendRawTransaction":
		return s.sendRawTransaction(state, params)
	case "eth_sendTransaction":
		return s.sendTransaction(token, params)
	case "eth_getStorageAt":
		return s.getStorageAt(token, state, params)
	default:
		return nil, &shared.JSONRPCError{
			Code:    shared.RPCCodeMethodNotFound,
			Message: fmt.Sprintf("the method %s does not exist/is not available", method),
		}
	}
}

func (s *Server) sendRawTransaction(state tokenState, params []json.RawMessage) (any, *shared.JSONRPCError) {
	raw, rpcErr := stringParam(params, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}
	tx, from, err := ethsign.DecodeRawTx(raw, s.cfg.ChainID)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	if !slices.Contains(state.accounts, from) {
		return nil, serverError(fmt.Errorf("sender %s is not authenticated for this token", from.Hex()))
	}
	if tx.To() == nil {
		return nil, serverError(fmt.Errorf("contract creation is not supported"))
	}
	if want := s.ledger.nonces[from]; tx.Nonce() != want {
		return nil, serverError(fmt.Errorf("%w: have %d, want %d", errNonce, tx.Nonce(), want))
	}

	r, err := s.ledger.transfer(from, *tx.To(), tx.Value(), tx.Gas(), tx.GasPrice(), tx.Hash())
	if err != nil {
		return nil, serverError(err)
	}
	return r.hash.Hex(), nil
}

// sendTransaction signs on behalf of a session key held by token.
func (s *Server) sendTransaction(token string, params []json.RawMessage) (any, *shared.JSONRPCError) {
	if len(params) == 0 {
		return nil, invalidParams("missing transaction object")
	}
	var args shared.CallArgs
	if err := json.Unmarshal(params[0], &args); err != nil {
		return nil, invalidParams("invalid transaction object: %v", err)
	}
	if !shared.IsValidAddress(args.From) || !shared.IsValidAddress(args.To) {
		return nil, invalidParams("from and to must be addresses")
	}
	from := common.HexToAddress(args.From)
	to := common.HexToAddress(args.To)

	sk, ok := s.ledger.sessionKeys[from]
	if !ok || sk.token != token {
		return nil, serverError(fmt.Errorf("unknown session key %s", from.Hex()))
	}

	value := new(big.Int)
	if args.Value != "" {
		v, err := shared.ParseQuantity(args.Value)
		if err != nil {
			return nil, invalidParams("value: %v", err)
		}
		value = v
	}
	gas := uint64(shared.TransferGas)
	if args.Gas != "" {
		g, err := shared.ParseUint64Quantity(args.Gas)
		if err != nil {
			return nil, invalidParams("gas: %v", err)
		}
		gas = g
	}
	gasPrice := s.cfg.gasPrice()
	if args.GasPrice != "" {
		p, err := shared.ParseQuantity(args.GasPrice)
		if err != nil {
			return nil, invalidParams("gasPrice: %v", err)
		}
		gasPrice = p
	}

	hash := syntheticHash(from, to, s.ledger.nonces[from], value)
	r, err := s.ledger.transfer(from, to, value, gas, gasPrice, hash)
	if err != nil {
		return nil, serverError(err)
	}
	return r.hash.Hex(), nil
}

// getStorageAt answers the session key overloads and returns an empty slot otherwise.
func (s *Server) getStorageAt(token string, state tokenState, params []json.RawMessage) (any, *shared.JSONRPCError) {
	addr, rpcErr := addressParam(params, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}

	switch addr {
	case common.HexToAddress(shared.CreateSessionKeyAddress):
		key, err := ethsign.GenerateKey()
		if err != nil {
			return nil, &shared.JSONRPCError{Code: shared.RPCCodeInternal, Message: err.Error()}
		}
		sk := ethsign.AddressOf(key)
		s.ledger.sessionKeys[sk] = &sessionKey{owner: state.accounts[0], token: token}
		s.metrics.sessionKeys.Set(float64(len(s.ledger.sessionKeys)))
		slot := make([]byte, shared.StorageSlotHexLength/2)
		copy(slot, sk.Bytes())
		return hexutil.Encode(slot), nil

	case common.HexToAddress(shared.DeleteSessionKeyAddress):
		target, rpcErr := stringParam(params, 1)
		if rpcErr != nil {
			return nil, rpcErr
		}
		if !shared.IsValidAddress(target) {
			return nil, invalidParams("invalid session key %q", target)
		}
		skAddr := common.HexToAddress(target)
		sk, ok := s.ledger.sessionKeys[skAddr]
		if !ok || sk.token != token {
			return "0x0", nil
		}
		s.deleteSessionKey(skAddr, sk)
		return "0x01", nil

	default:
		return "0x" + strings.Repeat("0", shared.StorageSlotHexLength), nil
	}
}

// deleteSessionKey refunds the key balance, less one transfer fee, to its owner and
// forgets the key.
func (s *Server) deleteSessionKey(addr common.Address, sk *sessionKey) {
	balance := s.ledger.balance(addr)
	refund := new(big.Int).Sub(balance, shared.GasCost(shared.TransferGas, s.cfg.gasPrice()))
	if refund.Sign() > 0 {
		s.ledger.move(addr, sk.owner, refund)
	}
	delete(s.ledger.balances, addr)
	delete(s.ledger.sessionKeys, addr)
	s.metrics.sessionKeys.Set(float64(len(s.ledger.sessionKeys)))

	s.logger.Info("Session key deleted",
		zap.String("session_key", addr.Hex()),
		zap.String("owner", sk.owner.Hex()),
		zap.String("refund_wei", refund.String()),
	)
}
