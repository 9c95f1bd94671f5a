package nft

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEmptyTree = errors.New("merkle tree has no leaves")
	ErrNotInTree = errors.New("address is not on the allowlist")
)

// MerkleTree is the allowlist tree AdvancedNFT checks proofs against. Leaves are
// keccak256 of the 20 address bytes, sibling pairs are sorted before hashing and an
// odd node at the end of a layer is carried up unchanged.
type MerkleTree struct {
	layers [][]common.Hash
	index  map[common.Hash]int
}

func NewMerkleTree(addrs []common.Address) (*MerkleTree, error) {
	if len(addrs) == 0 {
		return nil, ErrEmptyTree
	}
	leaves := make([]common.Hash, len(addrs))
	index := make(map[common.Hash]int, len(addrs))
	for i, a := range addrs {
		leaves[i] = Leaf(a)
		if _, dup := index[leaves[i]]; !dup {
			index[leaves[i]] = i
		}
	}

	layers := [][]common.Hash{leaves}
	for cur := leaves; len(cur) > 1; {
		next := make([]common.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				next = append(next, cur[i])
				continue
			}
			next = append(next, hashPair(cur[i], cur[i+1]))
		}
		layers = append(layers, next)
		cur = next
	}
	return &MerkleTree{layers: layers, index: index}, nil
}

func Leaf(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

func (t *MerkleTree) Root() common.Hash {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Proof returns the sibling hashes from leaf to root for addr.
func (t *MerkleTree) Proof(addr common.Address) ([][32]byte, error) {
	i, ok := t.index[Leaf(addr)]
	if !ok {
		return nil, ErrNotInTree
	}
	var proof [][32]byte
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := i ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		i /= 2
	}
	return proof, nil
}

// Verify folds proof into leaf and compares with root, the same check the contract runs.
func Verify(proof [][32]byte, leaf, root common.Hash) bool {
	h := leaf
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return h == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}
