// Package wallet connects to a user's wallet, tracks the connected account and hands out
// signers for contract writes.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pulkyeet/dappkit/internal/config"
	"github.com/pulkyeet/dappkit/internal/eth"
)

// Provider is a source of accounts and signatures.
type Provider interface {
	// RequestAccounts asks the wallet for access; the user may decline.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts lists the accounts already exposed, without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Signer(ctx context.Context, from common.Address) (eth.Signer, error)
}

// json-rpc "method not found"
const methodNotFoundCode = -32601

// Open picks a provider from configuration: a private key wins over a wallet endpoint.
func Open(ctx context.Context, cfg *config.Config, chain ChainReader) (Provider, error) {
	switch {
	case cfg.WalletPrivateKey != "":
		return NewKeyProvider(cfg.WalletPrivateKey, chain)
	case cfg.WalletRPCURL != "":
		return DialRPC(ctx, cfg.WalletRPCURL)
	default:
		return nil, fmt.Errorf("%w: set WALLET_PRIVATE_KEY or WALLET_RPC_URL", eth.ErrProviderUnavailable)
	}
}

// classify maps a wallet error onto the eth error taxonomy.
func classify(err error, method string) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == methodNotFoundCode {
		return fmt.Errorf("%w: wallet does not support %s", eth.ErrProviderUnavailable, method)
	}
	return eth.Classify(err, nil, "wallet", method)
}
