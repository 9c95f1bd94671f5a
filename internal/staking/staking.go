// Package staking covers the upgradeable CirclesNFT collection, the NFTStaking vault that
// pays ERC20 rewards for staked tokens, and the reward token itself.
package staking

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/format"
)

// MintPrice is what CirclesNFT charges per token: 0.01 ether.
var MintPrice = big.NewInt(params.Ether / 100)

var ErrNoTransferEvent = errors.New("mint receipt has no Transfer event")

type Addresses struct {
	NFT     common.Address
	Staking common.Address
	Reward  common.Address
}

type CirclesNFT struct {
	contract *eth.Contract
	log      *zap.Logger
}

func NewCirclesNFT(backend eth.Backend, addr common.Address, log *zap.Logger) *CirclesNFT {
	if log == nil {
		log = zap.NewNop()
	}
	return &CirclesNFT{
		contract: eth.MustContract("CirclesNFT", eth.CirclesNFTABI, addr, backend),
		log:      log.With(zap.String("service", "circles-nft")),
	}
}

func (n *CirclesNFT) Address() common.Address { return n.contract.Address() }

// Mint pays MintPrice and returns the id of the minted token, read from the Transfer log.
func (n *CirclesNFT) Mint(ctx context.Context, signer eth.Signer) (*big.Int, error) {
	receipt, err := send(ctx, n.log, n.contract, signer, MintPrice, "mint")
	if err != nil {
		return nil, err
	}
	var ev struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	found, err := n.contract.Event(receipt, "Transfer", &ev)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoTransferEvent
	}
	return ev.TokenId, nil
}

func (n *CirclesNFT) Approve(ctx context.Context, signer eth.Signer, spender common.Address, id *big.Int) (*types.Receipt, error) {
	return send(ctx, n.log, n.contract, signer, nil, "approve", spender, id)
}

// GodModeTransfer moves id from one holder to another without their approval. Only the
// owner of the upgraded (V2) collection may call it.
func (n *CirclesNFT) GodModeTransfer(ctx context.Context, signer eth.Signer, from, to common.Address, id *big.Int) (*types.Receipt, error) {
	return send(ctx, n.log, n.contract, signer, nil, "godModeTransfer", from, to, id)
}

func (n *CirclesNFT) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	out, err := n.contract.Call(ctx, "ownerOf", id)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (n *CirclesNFT) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return n.contract.CallBig(ctx, "balanceOf", owner)
}

type Staking struct {
	contract *eth.Contract
	nft      *CirclesNFT
	log      *zap.Logger
}

func NewStaking(backend eth.Backend, addrs Addresses, log *zap.Logger) *Staking {
	if log == nil {
		log = zap.NewNop()
	}
	return &Staking{
		contract: eth.MustContract("NFTStaking", eth.NFTStakingABI, addrs.Staking, backend),
		nft:      NewCirclesNFT(backend, addrs.NFT, log),
		log:      log.With(zap.String("service", "staking")),
	}
}

func (s *Staking) Address() common.Address { return s.contract.Address() }

// Stake approves the vault for id and then stakes it; the stake is not sent if the
// approval fails.
func (s *Staking) Stake(ctx context.Context, signer eth.Signer, id *big.Int) (*types.Receipt, error) {
	if _, err := s.nft.Approve(ctx, signer, s.contract.Address(), id); err != nil {
		return nil, err
	}
	return send(ctx, s.log, s.contract, signer, nil, "stakeNFT", id)
}

func (s *Staking) Unstake(ctx context.Context, signer eth.Signer, id *big.Int) (*types.Receipt, error) {
	return send(ctx, s.log, s.contract, signer, nil, "unstakeNFT", id)
}

func (s *Staking) WithdrawRewards(ctx context.Context, signer eth.Signer, id *big.Int) (*types.Receipt, error) {
	return send(ctx, s.log, s.contract, signer, nil, "withdrawERC20", id)
}

// RewardToken is the ERC20 the vault pays out.
type RewardToken struct {
	contract *eth.Contract
}

func NewRewardToken(backend eth.Backend, addr common.Address) *RewardToken {
	return &RewardToken{contract: eth.MustContract("ERC20Test", eth.ERC20ABI, addr, backend)}
}

// BalanceOf is the owner's reward balance in whole tokens, e.g. "12.5".
func (r *RewardToken) BalanceOf(ctx context.Context, owner common.Address) (string, error) {
	v, err := r.contract.CallBig(ctx, "balanceOf", owner)
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

func send(ctx context.Context, log *zap.Logger, c *eth.Contract, signer eth.Signer, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	receipt, err := c.Transact(ctx, signer, value, method, args...)
	if err != nil {
		log.Warn("transaction failed", zap.String("method", method), zap.Error(err))
		return receipt, err
	}
	log.Info("transaction confirmed", zap.String("method", method), zap.String("tx", receipt.TxHash.Hex()))
	return receipt, nil
}
