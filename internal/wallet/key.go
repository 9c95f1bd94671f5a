package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pulkyeet/dappkit/internal/eth"
)

// ChainReader is the part of a node a key wallet needs to pick the signing chain.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeyProvider signs locally with a single private key. It never prompts, so it never
// reports a user rejection.
type KeyProvider struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	chain ChainReader
}

func NewKeyProvider(hexKey string, chain ChainReader) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key", eth.ErrProviderUnavailable)
	}
	return &KeyProvider{key: key, addr: crypto.PubkeyToAddress(key.PublicKey), chain: chain}, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.addr}, nil
}

func (p *KeyProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.addr}, nil
}

func (p *KeyProvider) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := p.chain.ChainID(ctx)
	if err != nil {
		return nil, eth.Classify(err, nil, "wallet", "eth_chainId")
	}
	return id, nil
}

func (p *KeyProvider) Signer(ctx context.Context, from common.Address) (eth.Signer, error) {
	if from != p.addr {
		return nil, fmt.Errorf("%w: no key for %s", eth.ErrProviderUnavailable, from.Hex())
	}
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return &keySigner{key: p.key, addr: p.addr, chainID: chainID}, nil
}

type keySigner struct {
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
}

func (s *keySigner) Address() common.Address { return s.addr }

func (s *keySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("keyed transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
