// Package circles wraps the CirclesERC1155 collection and its CirclesForge. Tokens 0-2
// are freely mintable with a cooldown; 3-6 are forged by burning a recipe of 0-2 and can
// be traded back into 0-2.
package circles

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/dappkit/internal/eth"
)

const (
	NumTokens    = 7
	MaxBaseToken = 2
	MintCooldown = 60 * time.Second

	balanceReadLimit = 4
)

var (
	ErrInvalidToken  = errors.New("invalid token id")
	ErrInvalidTrade  = errors.New("only tokens 3-6 can be traded, and only for tokens 0-2")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrZeroForge     = errors.New("forging contract address is zero")
)

// Balances holds one balance per token id.
type Balances [NumTokens]*big.Int

type Collection struct {
	contract *eth.Contract
	log      *zap.Logger
}

func NewCollection(backend eth.Backend, addr common.Address, log *zap.Logger) *Collection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection{
		contract: eth.MustContract("CirclesERC1155", eth.CirclesERC1155ABI, addr, backend),
		log:      log.With(zap.String("service", "circles")),
	}
}

func (c *Collection) Address() common.Address { return c.contract.Address() }

func (c *Collection) Mint(ctx context.Context, signer eth.Signer, to common.Address, id uint64, amount *big.Int) (*types.Receipt, error) {
	if err := checkToken(id); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return send(ctx, c.log, c.contract, signer, "mint", to, new(big.Int).SetUint64(id), amount)
}

func (c *Collection) Burn(ctx context.Context, signer eth.Signer, from common.Address, id uint64, amount *big.Int) (*types.Receipt, error) {
	if err := checkToken(id); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return send(ctx, c.log, c.contract, signer, "burn", from, new(big.Int).SetUint64(id), amount)
}

// SetForgingContract grants the minter role to forge and revokes it from the previous
// forging contract. Admin only.
func (c *Collection) SetForgingContract(ctx context.Context, signer eth.Signer, forge common.Address) (*types.Receipt, error) {
	if forge == (common.Address{}) {
		return nil, ErrZeroForge
	}
	return send(ctx, c.log, c.contract, signer, "setForgingContract", forge)
}

// TradeToken burns amount of a forged token and mints the same amount of a base token.
func (c *Collection) TradeToken(ctx context.Context, signer eth.Signer, id, desired uint64, amount *big.Int) (*types.Receipt, error) {
	if err := CheckTrade(id, desired); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return send(ctx, c.log, c.contract, signer, "tradeToken", new(big.Int).SetUint64(id), new(big.Int).SetUint64(desired), amount)
}

func (c *Collection) BalanceOf(ctx context.Context, owner common.Address, id uint64) (*big.Int, error) {
	if err := checkToken(id); err != nil {
		return nil, err
	}
	return c.contract.CallBig(ctx, "balanceOf", owner, new(big.Int).SetUint64(id))
}

// BalancesOf reads all seven balances concurrently.
func (c *Collection) BalancesOf(ctx context.Context, owner common.Address) (Balances, error) {
	var out Balances
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceReadLimit)
	for id := uint64(0); id < NumTokens; id++ {
		id := id
		g.Go(func() error {
			v, err := c.BalanceOf(ctx, owner, id)
			if err != nil {
				return fmt.Errorf("balance of token %d: %w", id, err)
			}
			out[id] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Balances{}, err
	}
	return out, nil
}

// LastMintTimestamp is when owner last minted token id; zero time if never.
func (c *Collection) LastMintTimestamp(ctx context.Context, owner common.Address, id uint64) (time.Time, error) {
	v, err := c.contract.CallBig(ctx, "getLastMintTimestamp", owner, new(big.Int).SetUint64(id))
	if err != nil {
		return time.Time{}, err
	}
	if v.Sign() == 0 {
		return time.Time{}, nil
	}
	return time.Unix(v.Int64(), 0), nil
}

// CooldownRemaining is how long until a base token can be minted again.
func CooldownRemaining(last, now time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}
	if left := last.Add(MintCooldown).Sub(now); left > 0 {
		return left
	}
	return 0
}

// CheckTrade enforces the trade direction the collection accepts.
func CheckTrade(id, desired uint64) error {
	if id <= MaxBaseToken || id >= NumTokens || desired > MaxBaseToken {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidTrade, id, desired)
	}
	return nil
}

func checkToken(id uint64) error {
	if id >= NumTokens {
		return fmt.Errorf("%w: %d", ErrInvalidToken, id)
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func send(ctx context.Context, log *zap.Logger, c *eth.Contract, signer eth.Signer, method string, args ...interface{}) (*types.Receipt, error) {
	receipt, err := c.Transact(ctx, signer, nil, method, args...)
	if err != nil {
		log.Warn("transaction failed", zap.String("method", method), zap.Error(err))
		return receipt, err
	}
	log.Info("transaction confirmed", zap.String("method", method), zap.String("tx", receipt.TxHash.Hex()))
	return receipt, nil
}
