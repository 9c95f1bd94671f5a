package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pulkyeet/dappkit/internal/eth"
)

// RPCProvider talks to a wallet that exposes the eth_ namespace over JSON-RPC and keeps
// its keys to itself: Frame, Clef, or a dev node with unlocked accounts.
type RPCProvider struct {
	client *rpc.Client
}

func DialRPC(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial wallet %s: %v", eth.ErrProviderUnavailable, url, err)
	}
	return NewRPCProvider(client), nil
}

func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.accounts(ctx, "eth_requestAccounts")
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return p.accounts(ctx, "eth_accounts")
}

func (p *RPCProvider) accounts(ctx context.Context, method string) ([]common.Address, error) {
	var accts []common.Address
	if err := p.client.CallContext(ctx, &accts, method); err != nil {
		return nil, classify(err, method)
	}
	return accts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, classify(err, "eth_chainId")
	}
	return (*big.Int)(&id), nil
}

func (p *RPCProvider) Signer(ctx context.Context, from common.Address) (eth.Signer, error) {
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return &rpcSigner{client: p.client, from: from, chainID: chainID}, nil
}

// txArgs is the eth_signTransaction parameter object.
type txArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	ChainID              *hexutil.Big    `json:"chainId"`
}

type rpcSigner struct {
	client  *rpc.Client
	from    common.Address
	chainID *big.Int
}

func (s *rpcSigner) Address() common.Address { return s.from }

func (s *rpcSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{
		From:    s.from,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			return s.sign(ctx, addr, tx)
		},
	}, nil
}

func (s *rpcSigner) sign(ctx context.Context, addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
	if addr != s.from {
		return nil, bind.ErrNotAuthorized
	}

	args := txArgs{
		From:    addr,
		To:      tx.To(),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   (*hexutil.Big)(tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		Data:    tx.Data(),
		ChainID: (*hexutil.Big)(s.chainID),
	}
	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	} else {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}

	var res json.RawMessage
	if err := s.client.CallContext(ctx, &res, "eth_signTransaction", args); err != nil {
		return nil, classify(err, "eth_signTransaction")
	}
	raw, err := decodeSigned(res)
	if err != nil {
		return nil, err
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(s.chainID), signed)
	if err != nil {
		return nil, fmt.Errorf("recover signer: %w", err)
	}
	if sender != s.from {
		return nil, fmt.Errorf("wallet signed as %s, expected %s", sender.Hex(), s.from.Hex())
	}
	return signed, nil
}

// decodeSigned accepts geth's {"raw": ..., "tx": ...} result as well as a bare hex string.
func decodeSigned(res json.RawMessage) ([]byte, error) {
	var hex hexutil.Bytes
	if err := json.Unmarshal(res, &hex); err == nil {
		return hex, nil
	}
	var obj struct {
		Raw hexutil.Bytes `json:"raw"`
	}
	if err := json.Unmarshal(res, &obj); err != nil || len(obj.Raw) == 0 {
		return nil, fmt.Errorf("unexpected eth_signTransaction result %s", string(res))
	}
	return obj.Raw, nil
}
