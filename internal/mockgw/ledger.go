package mockgw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"tengw/shared"
)

var (
	errNonce            = errors.New("nonce mismatch")
	errInsufficientFund = errors.New("insufficient funds for gas * price + value")
	errGasTooLow        = errors.New("intrinsic gas too low")
)

// receipt is stored per transaction; it is rendered in the eth_getTransactionReceipt shape.
type receipt struct {
	hash    common.Hash
	from    common.Address
	to      common.Address
	block   uint64
	gasUsed uint64
}

func (r *receipt) render() map[string]string {
	return map[string]string{
		"transactionHash": r.hash.Hex(),
		"blockNumber":     hexutil.EncodeUint64(r.block),
		"gasUsed":         hexutil.EncodeUint64(r.gasUsed),
		"status":          "0x1",
		"from":            r.from.Hex(),
		"to":              r.to.Hex(),
	}
}

// deposit is value sent into a session key that expires back to its funder.
type deposit struct {
	funder    common.Address
	remaining *big.Int
	at        time.Time
}

type sessionKey struct {
	owner    common.Address // refund recipient on deletion
	token    string
	deposits []deposit
}

// ledger is the account state. It is not safe for concurrent use; Server guards it.
type ledger struct {
	balances    map[common.Address]*big.Int
	nonces      map[common.Address]uint64
	receipts    map[common.Hash]*receipt
	sessionKeys map[common.Address]*sessionKey
	block       uint64
}

func newLedger() *ledger {
	return &ledger{
		balances:    make(map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		receipts:    make(map[common.Hash]*receipt),
		sessionKeys: make(map[common.Address]*sessionKey),
	}
}

func (l *ledger) balance(addr common.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (l *ledger) credit(addr common.Address, amount *big.Int) {
	b, ok := l.balances[addr]
	if !ok {
		b = new(big.Int)
		l.balances[addr] = b
	}
	b.Add(b, amount)
}

func (l *ledger) debit(addr common.Address, amount *big.Int) {
	l.credit(addr, new(big.Int).Neg(amount))
	b := l.balances[addr]
	// expiry never returns more than the key still holds
	if sk, ok := l.sessionKeys[addr]; ok {
		sk.capDeposits(b)
	}
}

// transfer moves value from -> to, charging TransferGas at gasPrice, and records a
// receipt. gasLimit must cover a plain transfer and the sender must cover the limit.
func (l *ledger) transfer(from, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, hash common.Hash) (*receipt, error) {
	if gasLimit < shared.TransferGas {
		return nil, fmt.Errorf("%w: have %d, want %d", errGasTooLow, gasLimit, shared.TransferGas)
	}
	need := new(big.Int).Add(value, shared.GasCost(gasLimit, gasPrice))
	if l.balance(from).Cmp(need) < 0 {
		return nil, fmt.Errorf("%w: have %s, want %s", errInsufficientFund, l.balance(from), need)
	}

	fee := shared.GasCost(shared.TransferGas, gasPrice)
	l.debit(from, new(big.Int).Add(value, fee))
	l.credit(to, value)
	l.nonces[from]++

	if sk, ok := l.sessionKeys[to]; ok && value.Sign() > 0 {
		sk.deposits = append(sk.deposits, deposit{funder: from, remaining: new(big.Int).Set(value), at: time.Now()})
	}

	l.block++
	r := &receipt{hash: hash, from: from, to: to, block: l.block, gasUsed: shared.TransferGas}
	l.receipts[hash] = r
	return r, nil
}

// move transfers value without fees or nonces; used for gateway-initiated refunds.
func (l *ledger) move(from, to common.Address, value *big.Int) {
	l.debit(from, value)
	l.credit(to, value)
	l.block++
}

// syntheticHash derives a transaction hash for a gateway-signed transfer.
func syntheticHash(from, to common.Address, nonce uint64, value *big.Int) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), to.Bytes(), n[:], value.Bytes())
}

// capDeposits trims deposits, newest first, so their sum does not exceed balance.
func (sk *sessionKey) capDeposits(balance *big.Int) {
	total := new(big.Int)
	for _, d := range sk.deposits {
		total.Add(total, d.remaining)
	}
	excess := total.Sub(total, balance)
	for i := len(sk.deposits) - 1; i >= 0 && excess.Sign() > 0; i-- {
		d := sk.deposits[i].remaining
		take := new(big.Int).Set(d)
		if take.Cmp(excess) > 0 {
			take.Set(excess)
		}
		d.Sub(d, take)
		excess.Sub(excess, take)
	}
	kept := sk.deposits[:0]
	for _, d := range sk.deposits {
		if d.remaining.Sign() > 0 {
			kept = append(kept, d)
		}
	}
	sk.deposits = kept
}

// expire returns every deposit older than cutoff to its funder and reports how much
// was moved.
func (l *ledger) expire(cutoff time.Time) (refunds int, total *big.Int) {
	total = new(big.Int)
	for addr, sk := range l.sessionKeys {
		var kept []deposit
		var due []deposit
		for _, d := range sk.deposits {
			if d.at.Before(cutoff) {
				due = append(due, d)
			} else {
				kept = append(kept, d)
			}
		}
		if len(due) == 0 {
			continue
		}
		sk.deposits = kept
		for _, d := range due {
			amount := d.remaining
			if bal := l.balance(addr); amount.Cmp(bal) > 0 {
				amount = bal
			}
			if amount.Sign() <= 0 {
				continue
			}
			l.balances[addr].Sub(l.balances[addr], amount)
			l.credit(d.funder, amount)
			l.block++
			total.Add(total, amount)
			refunds++
		}
	}
	return refunds, total
}
