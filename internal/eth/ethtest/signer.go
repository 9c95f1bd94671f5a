package ethtest

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is a throwaway keyed account. Setting Reject makes every signature request fail
// the way a wallet does when the user clicks "reject".
type Signer struct {
	Key    *ecdsa.PrivateKey
	Reject bool

	chainID *big.Int
}

func NewSigner() *Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Signer{Key: key, chainID: new(big.Int).Set(DefaultChainID)}
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.Key.PublicKey)
}

func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.Key, s.chainID)
	if err != nil {
		return nil, err
	}
	if s.Reject {
		opts.Signer = func(common.Address, *types.Transaction) (*types.Transaction, error) {
			return nil, Rejected()
		}
	}
	opts.Context = ctx
	return opts, nil
}
