package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is the write half of a wallet: who is sending and how to sign.
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Contract is an (ABI, address, backend) handle. It never changes after creation; writes
// take the signer explicitly so a signer change never leaves a stale handle behind.
type Contract struct {
	name    string
	abi     abi.ABI
	address common.Address
	backend Backend
	bound   *bind.BoundContract
}

func NewContract(name, abiJSON string, address common.Address, backend Backend) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}

	return &Contract{
		name:    name,
		abi:     parsed,
		address: address,
		backend: backend,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// MustContract is NewContract for the ABIs compiled into this package.
func MustContract(name, abiJSON string, address common.Address, backend Backend) *Contract {
	c, err := NewContract(name, abiJSON, address, backend)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Contract) Name() string            { return c.name }
func (c *Contract) Address() common.Address { return c.address }
func (c *Contract) ABI() *abi.ABI           { return &c.abi }

// Call runs a read-only method and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return nil, Classify(err, &c.abi, c.name, method)
	}
	return out, nil
}

// CallBig is Call for the common single uint256 return.
func (c *Contract) CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: empty result", c.name, method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s: unexpected result type %T", c.name, method, out[0])
	}
	return v, nil
}

// Pack encodes calldata for method, used to build multicall payloads.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", c.name, method, err)
	}
	return data, nil
}

// Transact signs and sends method, then waits for the transaction to be included.
// value is the native amount attached and may be nil. A pending transaction cannot be
// aborted: cancelling ctx only stops the wait.
func (c *Contract) Transact(ctx context.Context, signer Signer, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if signer == nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, ErrProviderUnavailable)
	}

	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return nil, Classify(err, nil, c.name, method)
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}

	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		recordTx(c.name, method, "rejected")
		return nil, Classify(err, &c.abi, c.name, method)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		recordTx(c.name, method, "unconfirmed")
		return nil, fmt.Errorf("%w: wait for %s: %v", ErrNetwork, tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		recordTx(c.name, method, "reverted")
		return receipt, &RevertError{
			Contract: c.name,
			Method:   method,
			Reason:   c.replayReason(ctx, opts.From, tx, receipt.BlockNumber),
			TxHash:   tx.Hash(),
		}
	}

	recordTx(c.name, method, "confirmed")
	return receipt, nil
}

// replayReason re-executes a mined failed transaction as an eth_call at its block to
// recover the revert reason the receipt does not carry.
func (c *Contract) replayReason(ctx context.Context, from common.Address, tx *types.Transaction, block *big.Int) string {
	_, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	if err == nil {
		return ""
	}

	var revert *RevertError
	if errors.As(Classify(err, &c.abi, c.name, ""), &revert) {
		return revert.Reason
	}
	return ""
}

// Event unpacks the first log in receipt emitted by this contract for event.
func (c *Contract) Event(receipt *types.Receipt, event string, out interface{}) (bool, error) {
	ev, ok := c.abi.Events[event]
	if !ok {
		return false, fmt.Errorf("%s has no event %s", c.name, event)
	}
	for _, lg := range receipt.Logs {
		if lg.Address != c.address || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		if err := c.bound.UnpackLog(out, event, *lg); err != nil {
			return false, fmt.Errorf("unpack %s: %w", event, err)
		}
		return true, nil
	}
	return false, nil
}
