package eth_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/eth/ethtest"
)

var (
	_ eth.Backend = (*eth.Client)(nil)
	_ eth.Backend = (*ethtest.Backend)(nil)
	_ eth.Signer  = (*ethtest.Signer)(nil)
)

var tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func bigInt(v int64) *big.Int { return big.NewInt(v) }

func newToken(t *testing.T) (*ethtest.Backend, *eth.Contract) {
	t.Helper()
	backend := ethtest.New()
	backend.Deploy(tokenAddr, eth.ERC20ABI)
	c, err := eth.NewContract("Token", eth.ERC20ABI, tokenAddr, backend)
	require.NoError(t, err)
	return backend, c
}

func TestContractCall(t *testing.T) {
	backend, token := newToken(t)
	holder := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	backend.Handle(tokenAddr, "balanceOf", func(c *ethtest.Call) ([]interface{}, error) {
		if c.Args[0].(common.Address) != holder {
			return []interface{}{bigInt(0)}, nil
		}
		return []interface{}{bigInt(42)}, nil
	})

	v, err := token.CallBig(context.Background(), "balanceOf", holder)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())
}

func TestContractCallRevert(t *testing.T) {
	backend, token := newToken(t)
	backend.Fail(tokenAddr, "totalSupply", ethtest.Revert("paused"))

	_, err := token.Call(context.Background(), "totalSupply")
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "paused", revert.Reason)
	assert.Equal(t, "totalSupply", revert.Method)
}

func TestContractCallNetworkDown(t *testing.T) {
	backend, token := newToken(t)
	backend.SetDown(errors.New("dial tcp: connection refused"))

	_, err := token.Call(context.Background(), "totalSupply")
	assert.ErrorIs(t, err, eth.ErrNetwork)
}

func TestContractTransact(t *testing.T) {
	backend, token := newToken(t)
	signer := ethtest.NewSigner()
	spender := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	receipt, err := token.Transact(context.Background(), signer, nil, "approve", spender, bigInt(7))
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	sent := backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "approve", sent[0].Call.Method)
	assert.Equal(t, signer.Address(), sent[0].Call.From)
	assert.Equal(t, spender, sent[0].Call.Args[0])
	assert.Equal(t, int64(7), sent[0].Call.Args[1].(*big.Int).Int64())
}

func TestContractTransactWithoutSigner(t *testing.T) {
	backend, token := newToken(t)

	_, err := token.Transact(context.Background(), nil, nil, "approve", common.Address{}, bigInt(1))
	assert.ErrorIs(t, err, eth.ErrProviderUnavailable)
	assert.Zero(t, backend.Requests())
}

func TestContractTransactUserRejected(t *testing.T) {
	backend, token := newToken(t)
	signer := ethtest.NewSigner()
	signer.Reject = true

	_, err := token.Transact(context.Background(), signer, nil, "approve", common.Address{}, bigInt(1))
	assert.ErrorIs(t, err, eth.ErrUserRejected)
	assert.Empty(t, backend.Sent())
}

func TestContractTransactRevertedBeforeSend(t *testing.T) {
	backend, token := newToken(t)
	backend.Fail(tokenAddr, "transfer", ethtest.Revert("ERC20: transfer amount exceeds balance"))

	_, err := token.Transact(context.Background(), ethtest.NewSigner(), nil, "transfer", common.Address{}, bigInt(1))
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "ERC20: transfer amount exceeds balance", revert.Reason)
	assert.Empty(t, backend.Sent())
}

func TestContractTransactMinedFailure(t *testing.T) {
	backend, token := newToken(t)
	backend.Handle(tokenAddr, "transfer", func(c *ethtest.Call) ([]interface{}, error) {
		if c.Estimate {
			return []interface{}{true}, nil
		}
		return nil, ethtest.Revert("frozen")
	})

	receipt, err := token.Transact(context.Background(), ethtest.NewSigner(), nil, "transfer", common.Address{}, bigInt(1))
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "frozen", revert.Reason)
	assert.Equal(t, receipt.TxHash, revert.TxHash)
}

func TestContractEvent(t *testing.T) {
	backend, token := newToken(t)
	signer := ethtest.NewSigner()
	to := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	backend.Handle(tokenAddr, "transfer", func(c *ethtest.Call) ([]interface{}, error) {
		if !c.Estimate {
			err := c.Emit("Transfer", []common.Hash{
				common.BytesToHash(c.From.Bytes()),
				common.BytesToHash(c.Args[0].(common.Address).Bytes()),
			}, c.Args[1])
			if err != nil {
				return nil, err
			}
		}
		return []interface{}{true}, nil
	})

	receipt, err := token.Transact(context.Background(), signer, nil, "transfer", to, bigInt(9))
	require.NoError(t, err)

	var ev struct {
		From  common.Address
		To    common.Address
		Value *big.Int
	}
	found, err := token.Event(receipt, "Transfer", &ev)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, signer.Address(), ev.From)
	assert.Equal(t, to, ev.To)
	assert.Equal(t, int64(9), ev.Value.Int64())

	found, err = token.Event(receipt, "Approval", &ev)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestContractPack(t *testing.T) {
	_, token := newToken(t)

	data, err := token.Pack("approve", common.Address{}, bigInt(1))
	require.NoError(t, err)
	assert.Len(t, data, 4+32+32)

	_, err = token.Pack("nope")
	assert.Error(t, err)
}
