// Package nft drives the AdvancedNFT drop: allowlisted minting against a Merkle root,
// commit-reveal randomness, multicall batching and the owner's sale controls.
package nft

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
)

// RevealBlocks is how many blocks after the commit a reveal is still accepted.
const RevealBlocks = 250

var (
	ErrRevealTooEarly = errors.New("reveal must be mined after the commit block")
	ErrRevealTooLate  = errors.New("reveal window has closed")
	ErrLengthMismatch = errors.New("recipients and amounts differ in length")
	ErrNoCommitEvent  = errors.New("commit receipt has no CommitEvent")
	ErrNoRevealEvent  = errors.New("reveal receipt has no RevealEvent")
	ErrEmptyMulticall = errors.New("multicall needs at least one call")
)

// Commitment is the hash committed for secret; revealing secret later must match it.
func Commitment(secret [32]byte) [32]byte {
	return crypto.Keccak256Hash(secret[:])
}

// RevealWindow is the range of blocks in which a commit made at CommitBlock can be
// revealed.
type RevealWindow struct {
	CommitBlock uint64
}

// Check takes the latest block number; the reveal is mined in the block after it.
func (w RevealWindow) Check(current uint64) error {
	if current <= w.CommitBlock {
		return ErrRevealTooEarly
	}
	if current > w.CommitBlock+RevealBlocks {
		return ErrRevealTooLate
	}
	return nil
}

type AdvancedNFT struct {
	contract *eth.Contract
	backend  eth.Backend
	log      *zap.Logger
}

func NewAdvancedNFT(backend eth.Backend, addr common.Address, log *zap.Logger) *AdvancedNFT {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdvancedNFT{
		contract: eth.MustContract("AdvancedNFT", eth.AdvancedNFTABI, addr, backend),
		backend:  backend,
		log:      log.With(zap.String("service", "advanced-nft")),
	}
}

func (n *AdvancedNFT) Address() common.Address { return n.contract.Address() }

func (n *AdvancedNFT) MintWithMerkleProof(ctx context.Context, signer eth.Signer, proof [][32]byte, tokenID *big.Int) (*types.Receipt, error) {
	return n.send(ctx, signer, "mintWithMerkleProof", proof, tokenID)
}

// MintCall is the calldata of a mintWithMerkleProof call, for use in Multicall.
func (n *AdvancedNFT) MintCall(proof [][32]byte, tokenID *big.Int) ([]byte, error) {
	return n.contract.Pack("mintWithMerkleProof", proof, tokenID)
}

func (n *AdvancedNFT) Multicall(ctx context.Context, signer eth.Signer, calls [][]byte) (*types.Receipt, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyMulticall
	}
	return n.send(ctx, signer, "multicall", calls)
}

// Commit records hash and returns the block the commit was recorded in, which opens the
// reveal window.
func (n *AdvancedNFT) Commit(ctx context.Context, signer eth.Signer, hash [32]byte) (RevealWindow, error) {
	receipt, err := n.send(ctx, signer, "commit", hash)
	if err != nil {
		return RevealWindow{}, err
	}

	var ev struct {
		User        common.Address
		DataHash    [32]byte
		BlockNumber *big.Int
	}
	found, err := n.contract.Event(receipt, "CommitEvent", &ev)
	if err != nil {
		return RevealWindow{}, err
	}
	if !found {
		return RevealWindow{CommitBlock: receipt.BlockNumber.Uint64()}, ErrNoCommitEvent
	}
	return RevealWindow{CommitBlock: ev.BlockNumber.Uint64()}, nil
}

// Reveal checks the window against the chain head before sending secret and returns the
// random number the contract derives. A mined reveal without a RevealEvent is an error.
func (n *AdvancedNFT) Reveal(ctx context.Context, signer eth.Signer, window RevealWindow, secret [32]byte) (*big.Int, error) {
	head, err := n.backend.BlockNumber(ctx)
	if err != nil {
		return nil, eth.Classify(err, nil, "AdvancedNFT", "reveal")
	}
	if err := window.Check(head); err != nil {
		return nil, err
	}

	receipt, err := n.send(ctx, signer, "reveal", secret)
	if err != nil {
		return nil, err
	}
	var ev struct {
		User         common.Address
		RandomNumber *big.Int
	}
	found, err := n.contract.Event(receipt, "RevealEvent", &ev)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoRevealEvent
	}
	return ev.RandomNumber, nil
}

func (n *AdvancedNFT) StartPublicSale(ctx context.Context, signer eth.Signer) (*types.Receipt, error) {
	return n.send(ctx, signer, "startPublicSale")
}

func (n *AdvancedNFT) EndSale(ctx context.Context, signer eth.Signer) (*types.Receipt, error) {
	return n.send(ctx, signer, "endSale")
}

func (n *AdvancedNFT) WithdrawFunds(ctx context.Context, signer eth.Signer, recipients []common.Address, amounts []*big.Int) (*types.Receipt, error) {
	if len(recipients) != len(amounts) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(recipients), len(amounts))
	}
	return n.send(ctx, signer, "withdrawFunds", recipients, amounts)
}

func (n *AdvancedNFT) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	out, err := n.contract.Call(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (n *AdvancedNFT) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return n.contract.CallBig(ctx, "balanceOf", owner)
}

func (n *AdvancedNFT) send(ctx context.Context, signer eth.Signer, method string, args ...interface{}) (*types.Receipt, error) {
	receipt, err := n.contract.Transact(ctx, signer, nil, method, args...)
	if err != nil {
		n.log.Warn("transaction failed", zap.String("method", method), zap.Error(err))
		return receipt, err
	}
	n.log.Info("transaction confirmed", zap.String("method", method), zap.String("tx", receipt.TxHash.Hex()))
	return receipt, nil
}
