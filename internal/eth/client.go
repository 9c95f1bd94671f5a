package eth

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultCallTimeout = 15 * time.Second

// Backend is everything the contract services need from a node. Client satisfies it,
// and so does ethtest.Backend in tests.
type Backend interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Client struct {
	rpc     *ethclient.Client
	raw     *rpc.Client
	timeout time.Duration
}

// Dial connects to the node at url. A zero timeout uses the default per-call timeout.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: rpc url not set", ErrNetwork)
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	raw, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetwork, url, err)
	}

	return &Client{rpc: ethclient.NewClient(raw), raw: raw, timeout: timeout}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// RPC exposes the raw JSON-RPC client for methods ethclient has no wrapper for.
func (c *Client) RPC() *rpc.Client {
	return c.raw
}

// observe runs fn under the per-call timeout and records it in the rpc metrics
func observe[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx)
	recordRPC(method, time.Since(start), err)
	return out, err
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return observe(ctx, c, "eth_getCode", func(ctx context.Context) ([]byte, error) {
		return c.rpc.CodeAt(ctx, account, blockNumber)
	})
}

func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return observe(ctx, c, "eth_call", func(ctx context.Context) ([]byte, error) {
		return c.rpc.CallContract(ctx, call, blockNumber)
	})
}

func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return observe(ctx, c, "eth_getCode", func(ctx context.Context) ([]byte, error) {
		return c.rpc.PendingCodeAt(ctx, account)
	})
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return observe(ctx, c, "eth_getTransactionCount", func(ctx context.Context) (uint64, error) {
		return c.rpc.PendingNonceAt(ctx, account)
	})
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return observe(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*types.Header, error) {
		return c.rpc.HeaderByNumber(ctx, number)
	})
}

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return observe(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*types.Block, error) {
		return c.rpc.BlockByNumber(ctx, number)
	})
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return observe(ctx, c, "eth_estimateGas", func(ctx context.Context) (uint64, error) {
		return c.rpc.EstimateGas(ctx, call)
	})
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return observe(ctx, c, "eth_gasPrice", func(ctx context.Context) (*big.Int, error) {
		return c.rpc.SuggestGasPrice(ctx)
	})
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return observe(ctx, c, "eth_maxPriorityFeePerGas", func(ctx context.Context) (*big.Int, error) {
		return c.rpc.SuggestGasTipCap(ctx)
	})
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := observe(ctx, c, "eth_sendRawTransaction", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.rpc.SendTransaction(ctx, tx)
	})
	return err
}

// TransactionReceipt is polled by WaitMined, so it gets the caller's context unchanged.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	start := time.Now()
	receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
	if err == ethereum.NotFound {
		recordRPC("eth_getTransactionReceipt", time.Since(start), nil)
		return nil, err
	}
	recordRPC("eth_getTransactionReceipt", time.Since(start), err)
	return receipt, err
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return observe(ctx, c, "eth_getLogs", func(ctx context.Context) ([]types.Log, error) {
		return c.rpc.FilterLogs(ctx, q)
	})
}

func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.rpc.SubscribeFilterLogs(ctx, q, ch)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return observe(ctx, c, "eth_getBalance", func(ctx context.Context) (*big.Int, error) {
		return c.rpc.BalanceAt(ctx, account, blockNumber)
	})
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return observe(ctx, c, "eth_chainId", func(ctx context.Context) (*big.Int, error) {
		return c.rpc.ChainID(ctx)
	})
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return observe(ctx, c, "eth_blockNumber", func(ctx context.Context) (uint64, error) {
		return c.rpc.BlockNumber(ctx)
	})
}
