package circles

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
)

// Recipes lists the base tokens burned to forge each forged token, in the order the
// forge checks them.
var Recipes = map[uint64][]uint64{
	3: {0, 1},
	4: {1, 2},
	5: {0, 2},
	6: {0, 1, 2},
}

// InsufficientTokenError names the first recipe input the caller is short of.
type InsufficientTokenError struct {
	Token uint64
}

func (e *InsufficientTokenError) Error() string {
	return fmt.Sprintf("insufficient token %d", e.Token)
}

type Forge struct {
	contract *eth.Contract
	log      *zap.Logger
}

func NewForge(backend eth.Backend, addr common.Address, log *zap.Logger) *Forge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Forge{
		contract: eth.MustContract("CirclesForge", eth.CirclesForgeABI, addr, backend),
		log:      log.With(zap.String("service", "forge")),
	}
}

func (f *Forge) Address() common.Address { return f.contract.Address() }

// ForgeToken burns the recipe inputs for token n and mints amount of it.
func (f *Forge) ForgeToken(ctx context.Context, signer eth.Signer, n uint64, amount *big.Int) (*types.Receipt, error) {
	if _, ok := Recipes[n]; !ok {
		return nil, fmt.Errorf("%w: token %d cannot be forged", ErrInvalidToken, n)
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return send(ctx, f.log, f.contract, signer, fmt.Sprintf("forgeToken%d", n), amount)
}

// MintTokensForContract mints base tokens to the forge itself; admin only.
func (f *Forge) MintTokensForContract(ctx context.Context, signer eth.Signer, id uint64, amount *big.Int) (*types.Receipt, error) {
	if err := checkToken(id); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return send(ctx, f.log, f.contract, signer, "mintTokensForContract", new(big.Int).SetUint64(id), amount)
}

// CheckForge reports whether balances cover forging amount of token n, so a doomed
// transaction is never sent.
func CheckForge(balances Balances, n uint64, amount *big.Int) error {
	inputs, ok := Recipes[n]
	if !ok {
		return fmt.Errorf("%w: token %d cannot be forged", ErrInvalidToken, n)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	for _, in := range inputs {
		have := balances[in]
		if have == nil || have.Cmp(amount) < 0 {
			return &InsufficientTokenError{Token: in}
		}
	}
	return nil
}
