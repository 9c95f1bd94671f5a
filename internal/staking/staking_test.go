package staking

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/eth/ethtest"
)

var testAddrs = Addresses{
	NFT:     common.HexToAddress("0x00000000000000000000000000000000000000b1"),
	Staking: common.HexToAddress("0x00000000000000000000000000000000000000b2"),
	Reward:  common.HexToAddress("0x00000000000000000000000000000000000000b3"),
}

// vault models CirclesNFT, NFTStaking and the reward token together.
type vault struct {
	mu       sync.Mutex
	admin    common.Address
	next     int64
	owners   map[int64]common.Address
	approved map[int64]common.Address
	stakers  map[int64]common.Address
	rewards  map[common.Address]*big.Int
}

func newVault(t *testing.T) (*ethtest.Backend, *vault) {
	t.Helper()
	v := &vault{
		owners:   make(map[int64]common.Address),
		approved: make(map[int64]common.Address),
		stakers:  make(map[int64]common.Address),
		rewards:  make(map[common.Address]*big.Int),
	}
	backend := ethtest.New()
	backend.Deploy(testAddrs.NFT, eth.CirclesNFTABI)
	backend.Deploy(testAddrs.Staking, eth.NFTStakingABI)
	backend.Deploy(testAddrs.Reward, eth.ERC20ABI)

	backend.Handle(testAddrs.NFT, "mint", func(c *ethtest.Call) ([]interface{}, error) {
		if c.Value == nil || c.Value.Cmp(MintPrice) < 0 {
			return nil, ethtest.Revert("Insufficient funds")
		}
		if !c.Mined() {
			return nil, nil
		}
		v.mu.Lock()
		id := v.next
		v.next++
		v.owners[id] = c.From
		v.mu.Unlock()
		return nil, c.Emit("Transfer", []common.Hash{{}, common.BytesToHash(c.From.Bytes()), common.BigToHash(big.NewInt(id))})
	})
	backend.Handle(testAddrs.NFT, "approve", func(c *ethtest.Call) ([]interface{}, error) {
		id := c.Args[1].(*big.Int).Int64()
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.owners[id] != c.From {
			return nil, ethtest.Revert("ERC721: approve caller is not token owner")
		}
		if c.Mined() {
			v.approved[id] = c.Args[0].(common.Address)
		}
		return nil, nil
	})
	backend.Handle(testAddrs.NFT, "godModeTransfer", func(c *ethtest.Call) ([]interface{}, error) {
		from, to := c.Args[0].(common.Address), c.Args[1].(common.Address)
		id := c.Args[2].(*big.Int)
		v.mu.Lock()
		defer v.mu.Unlock()
		if c.From != v.admin {
			return nil, ethtest.Revert("Ownable: caller is not the owner")
		}
		if v.owners[id.Int64()] != from {
			return nil, ethtest.Revert("ERC721: transfer from incorrect owner")
		}
		if !c.Mined() {
			return nil, nil
		}
		v.owners[id.Int64()] = to
		delete(v.approved, id.Int64())
		return nil, c.Emit("Transfer", []common.Hash{common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes()), common.BigToHash(id)})
	})
	backend.Handle(testAddrs.NFT, "ownerOf", func(c *ethtest.Call) ([]interface{}, error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		return []interface{}{v.owners[c.Args[0].(*big.Int).Int64()]}, nil
	})
	backend.Handle(testAddrs.NFT, "balanceOf", func(c *ethtest.Call) ([]interface{}, error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		n := int64(0)
		for _, o := range v.owners {
			if o == c.Args[0].(common.Address) {
				n++
			}
		}
		return []interface{}{big.NewInt(n)}, nil
	})
	backend.Handle(testAddrs.Staking, "stakeNFT", func(c *ethtest.Call) ([]interface{}, error) {
		id := c.Args[0].(*big.Int).Int64()
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.approved[id] != testAddrs.Staking {
			return nil, ethtest.Revert("ERC721: caller is not token owner or approved")
		}
		if c.Mined() {
			v.stakers[id] = c.From
			v.owners[id] = testAddrs.Staking
			delete(v.approved, id)
		}
		return nil, nil
	})
	backend.Handle(testAddrs.Staking, "withdrawERC20", func(c *ethtest.Call) ([]interface{}, error) {
		id := c.Args[0].(*big.Int).Int64()
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.stakers[id] != c.From {
			return nil, ethtest.Revert("Not the staker")
		}
		if c.Mined() {
			v.rewards[c.From] = new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether))
		}
		return nil, nil
	})
	backend.Handle(testAddrs.Staking, "unstakeNFT", func(c *ethtest.Call) ([]interface{}, error) {
		id := c.Args[0].(*big.Int).Int64()
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.stakers[id] != c.From {
			return nil, ethtest.Revert("Not the staker")
		}
		if c.Mined() {
			v.owners[id] = c.From
			delete(v.stakers, id)
		}
		return nil, nil
	})
	backend.Handle(testAddrs.Reward, "balanceOf", func(c *ethtest.Call) ([]interface{}, error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		if r, ok := v.rewards[c.Args[0].(common.Address)]; ok {
			return []interface{}{r}, nil
		}
		return []interface{}{new(big.Int)}, nil
	})
	return backend, v
}

func TestMintChargesPrice(t *testing.T) {
	backend, _ := newVault(t)
	nft := NewCirclesNFT(backend, testAddrs.NFT, zap.NewNop())
	user := ethtest.NewSigner()
	ctx := context.Background()

	id, err := nft.Mint(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id.Int64())
	assert.Equal(t, MintPrice, backend.Sent()[0].Tx.Value())

	bal, err := nft.BalanceOf(ctx, user.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(1), bal.Int64())
}

func TestStakeWithdrawUnstake(t *testing.T) {
	backend, _ := newVault(t)
	nft := NewCirclesNFT(backend, testAddrs.NFT, nil)
	staking := NewStaking(backend, testAddrs, nil)
	reward := NewRewardToken(backend, testAddrs.Reward)
	user := ethtest.NewSigner()
	ctx := context.Background()

	id, err := nft.Mint(ctx, user)
	require.NoError(t, err)

	_, err = staking.Stake(ctx, user, id)
	require.NoError(t, err)
	owner, err := nft.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testAddrs.Staking, owner)

	_, err = staking.WithdrawRewards(ctx, user, id)
	require.NoError(t, err)
	bal, err := reward.BalanceOf(ctx, user.Address())
	require.NoError(t, err)
	assert.Equal(t, "10.0", bal)

	_, err = staking.Unstake(ctx, user, id)
	require.NoError(t, err)
	owner, err = nft.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.Address(), owner)

	assert.Equal(t, []string{"mint", "approve", "stakeNFT", "withdrawERC20", "unstakeNFT"}, backend.SentMethods())
	approve := backend.Sent()[1].Call
	assert.Equal(t, []interface{}{testAddrs.Staking, id}, approve.Args)
}

func TestStakeSkippedWhenApproveFails(t *testing.T) {
	backend, _ := newVault(t)
	staking := NewStaking(backend, testAddrs, nil)

	_, err := staking.Stake(context.Background(), ethtest.NewSigner(), big.NewInt(7))
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "approve", revert.Method)
	assert.Empty(t, backend.Sent())
}

func TestUnstakeByStranger(t *testing.T) {
	backend, _ := newVault(t)
	nft := NewCirclesNFT(backend, testAddrs.NFT, nil)
	staking := NewStaking(backend, testAddrs, nil)
	ctx := context.Background()
	user := ethtest.NewSigner()

	id, err := nft.Mint(ctx, user)
	require.NoError(t, err)
	_, err = staking.Stake(ctx, user, id)
	require.NoError(t, err)

	_, err = staking.Unstake(ctx, ethtest.NewSigner(), id)
	assert.ErrorContains(t, err, "Not the staker")
	assert.ErrorIs(t, err, eth.ErrTransactionReverted)
}

func TestMintWithoutTransferEvent(t *testing.T) {
	backend, _ := newVault(t)
	backend.Handle(testAddrs.NFT, "mint", func(*ethtest.Call) ([]interface{}, error) { return nil, nil })
	nft := NewCirclesNFT(backend, testAddrs.NFT, nil)

	id, err := nft.Mint(context.Background(), ethtest.NewSigner())
	assert.ErrorIs(t, err, ErrNoTransferEvent)
	assert.Nil(t, id)
	assert.Equal(t, []string{"mint"}, backend.SentMethods())
}

func TestGodModeTransfer(t *testing.T) {
	backend, v := newVault(t)
	deployer, user1, user2 := ethtest.NewSigner(), ethtest.NewSigner(), ethtest.NewSigner()
	v.admin = deployer.Address()
	nft := NewCirclesNFT(backend, testAddrs.NFT, nil)
	ctx := context.Background()

	id, err := nft.Mint(ctx, user1)
	require.NoError(t, err)

	_, err = nft.GodModeTransfer(ctx, user1, user1.Address(), user2.Address(), id)
	assert.ErrorContains(t, err, "Ownable: caller is not the owner")

	receipt, err := nft.GodModeTransfer(ctx, deployer, user1.Address(), user2.Address(), id)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, common.BytesToHash(user2.Address().Bytes()), receipt.Logs[0].Topics[2])

	owner, err := nft.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user2.Address(), owner)

	_, err = nft.GodModeTransfer(ctx, deployer, user1.Address(), user2.Address(), id)
	assert.ErrorContains(t, err, "transfer from incorrect owner")
}
