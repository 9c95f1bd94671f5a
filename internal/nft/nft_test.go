package nft

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/eth/ethtest"
)

var nftAddr = common.HexToAddress("0x00000000000000000000000000000000000a0f70")

func addrs(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
	}
	return out
}

func TestMerkleTreeShape(t *testing.T) {
	list := addrs(3)
	tree, err := NewMerkleTree(list)
	require.NoError(t, err)

	l0, l1, l2 := Leaf(list[0]), Leaf(list[1]), Leaf(list[2])
	assert.Equal(t, crypto.Keccak256Hash(list[0].Bytes()), l0)
	assert.Equal(t, hashPair(hashPair(l0, l1), l2), tree.Root())
	assert.Equal(t, hashPair(l1, l0), hashPair(l0, l1))

	proof, err := tree.Proof(list[2])
	require.NoError(t, err)
	assert.Equal(t, [][32]byte{hashPair(l0, l1)}, proof)
}

func TestMerkleProofsVerify(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8, 13} {
		list := addrs(n)
		tree, err := NewMerkleTree(list)
		require.NoError(t, err)

		for _, a := range list {
			proof, err := tree.Proof(a)
			require.NoError(t, err)
			assert.True(t, Verify(proof, Leaf(a), tree.Root()), "n=%d %s", n, a.Hex())
		}

		outsider := common.HexToAddress("0x000000000000000000000000000000000000dead")
		_, err = tree.Proof(outsider)
		assert.ErrorIs(t, err, ErrNotInTree)
		proof, _ := tree.Proof(list[0])
		assert.False(t, Verify(proof, Leaf(outsider), tree.Root()))
	}

	_, err := NewMerkleTree(nil)
	assert.ErrorIs(t, err, ErrEmptyTree)
}

func TestRevealWindow(t *testing.T) {
	w := RevealWindow{CommitBlock: 100}
	assert.ErrorIs(t, w.Check(99), ErrRevealTooEarly)
	assert.ErrorIs(t, w.Check(100), ErrRevealTooEarly)
	assert.NoError(t, w.Check(101))
	assert.NoError(t, w.Check(350))
	assert.ErrorIs(t, w.Check(351), ErrRevealTooLate)
}

// drop is a toy AdvancedNFT.
type drop struct {
	mu      sync.Mutex
	root    common.Hash
	open    bool
	owners  map[uint64]common.Address
	commits map[common.Address]common.Hash
	abi     abi.ABI
}

func (d *drop) mint(c *ethtest.Call, from common.Address, proof [][32]byte, id *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ethtest.CustomError(eth.AdvancedNFTABI, "AdvancedNFT__NotInCorrectSaleState")
	}
	if !Verify(proof, Leaf(from), d.root) {
		return ethtest.CustomError(eth.AdvancedNFTABI, "AdvancedNFT__InvalidMerkleProof")
	}
	if _, taken := d.owners[id.Uint64()]; taken {
		return ethtest.CustomError(eth.AdvancedNFTABI, "AdvancedNFT__TokenAlreadyMinted")
	}
	if c.Mined() {
		d.owners[id.Uint64()] = from
		return c.Emit("Transfer", []common.Hash{{}, common.BytesToHash(from.Bytes()), common.BigToHash(id)})
	}
	return nil
}

func newDrop(t *testing.T, allow []common.Address) (*ethtest.Backend, *drop, *AdvancedNFT) {
	t.Helper()
	tree, err := NewMerkleTree(allow)
	require.NoError(t, err)
	parsed, err := abi.JSON(strings.NewReader(eth.AdvancedNFTABI))
	require.NoError(t, err)

	d := &drop{root: tree.Root(), open: true, owners: make(map[uint64]common.Address), commits: make(map[common.Address]common.Hash), abi: parsed}
	backend := ethtest.New()
	backend.Deploy(nftAddr, eth.AdvancedNFTABI)

	backend.Handle(nftAddr, "mintWithMerkleProof", func(c *ethtest.Call) ([]interface{}, error) {
		return nil, d.mint(c, c.From, c.Args[0].([][32]byte), c.Args[1].(*big.Int))
	})
	backend.Handle(nftAddr, "multicall", func(c *ethtest.Call) ([]interface{}, error) {
		calls := c.Args[0].([][]byte)
		results := make([][]byte, len(calls))
		for _, data := range calls {
			m, err := d.abi.MethodById(data[:4])
			if err != nil {
				return nil, err
			}
			args, err := m.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			if err := d.mint(c, c.From, args[0].([][32]byte), args[1].(*big.Int)); err != nil {
				return nil, err
			}
		}
		return []interface{}{results}, nil
	})
	backend.Handle(nftAddr, "ownerOf", func(c *ethtest.Call) ([]interface{}, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		owner, ok := d.owners[c.Args[0].(*big.Int).Uint64()]
		if !ok {
			return nil, ethtest.Revert("ERC721: invalid token ID")
		}
		return []interface{}{owner}, nil
	})
	backend.Handle(nftAddr, "commit", func(c *ethtest.Call) ([]interface{}, error) {
		if !c.Mined() {
			return nil, nil
		}
		hash := c.Args[0].([32]byte)
		d.mu.Lock()
		d.commits[c.From] = hash
		d.mu.Unlock()
		return nil, c.Emit("CommitEvent", []common.Hash{common.BytesToHash(c.From.Bytes())}, hash, new(big.Int).SetUint64(c.Block))
	})
	backend.Handle(nftAddr, "reveal", func(c *ethtest.Call) ([]interface{}, error) {
		secret := c.Args[0].([32]byte)
		d.mu.Lock()
		want := d.commits[c.From]
		d.mu.Unlock()
		if common.Hash(Commitment(secret)) != want {
			return nil, ethtest.CustomError(eth.AdvancedNFTABI, "AdvancedNFT__InvalidReveal")
		}
		if !c.Mined() {
			return nil, nil
		}
		random := new(big.Int).SetBytes(crypto.Keccak256(secret[:]))
		return nil, c.Emit("RevealEvent", []common.Hash{common.BytesToHash(c.From.Bytes())}, random)
	})
	backend.Handle(nftAddr, "endSale", func(c *ethtest.Call) ([]interface{}, error) {
		if c.Mined() {
			d.mu.Lock()
			d.open = false
			d.mu.Unlock()
		}
		return nil, nil
	})
	backend.Handle(nftAddr, "startPublicSale", func(c *ethtest.Call) ([]interface{}, error) {
		if c.Mined() {
			d.mu.Lock()
			d.open = true
			d.mu.Unlock()
		}
		return nil, nil
	})

	return backend, d, NewAdvancedNFT(backend, nftAddr, zap.NewNop())
}

func TestMintWithMerkleProof(t *testing.T) {
	minter := ethtest.NewSigner()
	allow := append(addrs(4), minter.Address())
	tree, err := NewMerkleTree(allow)
	require.NoError(t, err)
	_, _, drop := newDrop(t, allow)
	ctx := context.Background()

	proof, err := tree.Proof(minter.Address())
	require.NoError(t, err)
	receipt, err := drop.MintWithMerkleProof(ctx, minter, proof, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, common.BytesToHash(minter.Address().Bytes()), receipt.Logs[0].Topics[2])

	owner, err := drop.OwnerOf(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, minter.Address(), owner)

	_, err = drop.MintWithMerkleProof(ctx, minter, proof, big.NewInt(1))
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "AdvancedNFT__TokenAlreadyMinted", revert.Reason)
}

func TestMintNotAllowlisted(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(3))

	_, err := drop.MintWithMerkleProof(context.Background(), ethtest.NewSigner(), nil, big.NewInt(1))
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "AdvancedNFT__InvalidMerkleProof", revert.Reason)
	assert.Empty(t, backend.Sent())
}

func TestSaleState(t *testing.T) {
	minter := ethtest.NewSigner()
	owner := ethtest.NewSigner()
	allow := []common.Address{minter.Address(), common.Address{1}}
	tree, _ := NewMerkleTree(allow)
	proof, _ := tree.Proof(minter.Address())
	_, _, drop := newDrop(t, allow)
	ctx := context.Background()

	_, err := drop.EndSale(ctx, owner)
	require.NoError(t, err)
	_, err = drop.MintWithMerkleProof(ctx, minter, proof, big.NewInt(5))
	assert.ErrorContains(t, err, "AdvancedNFT__NotInCorrectSaleState")

	_, err = drop.StartPublicSale(ctx, owner)
	require.NoError(t, err)
	_, err = drop.MintWithMerkleProof(ctx, minter, proof, big.NewInt(5))
	assert.NoError(t, err)
}

func TestMulticallMintsBoth(t *testing.T) {
	minter := ethtest.NewSigner()
	allow := []common.Address{minter.Address(), common.Address{1}, common.Address{2}}
	tree, _ := NewMerkleTree(allow)
	proof, _ := tree.Proof(minter.Address())
	backend, _, drop := newDrop(t, allow)
	ctx := context.Background()

	var calls [][]byte
	for _, id := range []int64{3, 4} {
		data, err := drop.MintCall(proof, big.NewInt(id))
		require.NoError(t, err)
		calls = append(calls, data)
	}
	_, err := drop.Multicall(ctx, minter, calls)
	require.NoError(t, err)
	assert.Equal(t, []string{"multicall"}, backend.SentMethods())

	for _, id := range []int64{3, 4} {
		owner, err := drop.OwnerOf(ctx, big.NewInt(id))
		require.NoError(t, err)
		assert.Equal(t, minter.Address(), owner)
	}

	_, err = drop.Multicall(ctx, minter, nil)
	assert.ErrorIs(t, err, ErrEmptyMulticall)
}

func TestCommitReveal(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(1))
	user := ethtest.NewSigner()
	ctx := context.Background()
	secret := crypto.Keccak256Hash([]byte("123"))

	window, err := drop.Commit(ctx, user, Commitment(secret))
	require.NoError(t, err)
	sent := backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, sent[0].Receipt.BlockNumber.Uint64(), window.CommitBlock)

	_, err = drop.Reveal(ctx, user, window, secret)
	assert.ErrorIs(t, err, ErrRevealTooEarly)
	assert.Len(t, backend.Sent(), 1)

	backend.AddBlock(&types.Header{})
	random, err := drop.Reveal(ctx, user, window, secret)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetBytes(crypto.Keccak256(secret[:])), random)
}

func TestRevealWithoutEvent(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(1))
	user := ethtest.NewSigner()
	ctx := context.Background()
	secret := crypto.Keccak256Hash([]byte("123"))

	window, err := drop.Commit(ctx, user, Commitment(secret))
	require.NoError(t, err)
	backend.AddBlock(&types.Header{})
	backend.Handle(nftAddr, "reveal", func(*ethtest.Call) ([]interface{}, error) { return nil, nil })

	random, err := drop.Reveal(ctx, user, window, secret)
	assert.ErrorIs(t, err, ErrNoRevealEvent)
	assert.Nil(t, random)
	assert.Equal(t, []string{"commit", "reveal"}, backend.SentMethods())
}

func TestRevealWrongSecret(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(1))
	user := ethtest.NewSigner()
	ctx := context.Background()

	window, err := drop.Commit(ctx, user, Commitment(crypto.Keccak256Hash([]byte("123"))))
	require.NoError(t, err)
	backend.AddBlock(&types.Header{})

	_, err = drop.Reveal(ctx, user, window, crypto.Keccak256Hash([]byte("456")))
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "AdvancedNFT__InvalidReveal", revert.Reason)
}

func TestRevealTooLate(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(1))
	user := ethtest.NewSigner()
	ctx := context.Background()
	secret := crypto.Keccak256Hash([]byte("123"))

	window, err := drop.Commit(ctx, user, Commitment(secret))
	require.NoError(t, err)
	for i := 0; i < RevealBlocks+1; i++ {
		backend.AddBlock(&types.Header{})
	}

	_, err = drop.Reveal(ctx, user, window, secret)
	assert.ErrorIs(t, err, ErrRevealTooLate)
	assert.Len(t, backend.Sent(), 1)
}

func TestWithdrawFunds(t *testing.T) {
	backend, _, drop := newDrop(t, addrs(1))
	owner := ethtest.NewSigner()
	recipients := []common.Address{{1}, {2}}
	ctx := context.Background()

	_, err := drop.WithdrawFunds(ctx, owner, recipients, []*big.Int{big.NewInt(1)})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.Zero(t, backend.Requests())

	amounts := []*big.Int{big.NewInt(1e18), big.NewInt(1e18)}
	_, err = drop.WithdrawFunds(ctx, owner, recipients, amounts)
	require.NoError(t, err)
	sent := backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []interface{}{recipients, amounts}, sent[0].Call.Args)
}
