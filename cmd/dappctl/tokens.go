package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/pulkyeet/dappkit/internal/circles"
	"github.com/pulkyeet/dappkit/internal/format"
	"github.com/pulkyeet/dappkit/internal/forms"
	"github.com/pulkyeet/dappkit/internal/nft"
	"github.com/pulkyeet/dappkit/internal/staking"
)

var circlesCmd = &cli.Command{
	Name:  "circles",
	Usage: "Circles ERC1155 minting, forging and trading",
	Subcommands: []*cli.Command{
		{
			Name:  "balances",
			Usage: "Show balances of tokens 0-6",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				coll, _, err := circlesContracts(rt)
				if err != nil {
					return err
				}
				acct, ok := rt.wallet.Account()
				if !ok {
					return cli.Exit("Please connect your wallet first.", 1)
				}
				balances, err := coll.BalancesOf(c.Context, acct.Address)
				if err != nil {
					return err
				}
				for id, b := range balances {
					fmt.Printf("  token %d: %s\n", id, b)
				}
				return nil
			}),
		},
		{
			Name:  "mint",
			Usage: "Mint a base token (0-2)",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "token", Usage: "Token id"},
				&cli.StringFlag{Name: "amount", Value: "1", Usage: "Amount"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				coll, _, err := circlesContracts(rt)
				if err != nil {
					return err
				}
				form := forms.NewMintForm(coll, rt.wallet, nil)
				return report(form.HandleMint(c.Context, c.Uint64("token"), c.String("amount")))
			}),
		},
		{
			Name:  "forge",
			Usage: "Forge token 3-6 from its recipe",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "token", Usage: "Token id to forge", Required: true},
				&cli.StringFlag{Name: "amount", Value: "1", Usage: "Amount"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				coll, forge, err := circlesContracts(rt)
				if err != nil {
					return err
				}
				form := forms.NewForgeForm(coll, forge, rt.wallet)
				return report(form.HandleForge(c.Context, c.Uint64("token"), c.String("amount")))
			}),
		},
		{
			Name:  "trade",
			Usage: "Trade a forged token for a base token",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "from", Usage: "Forged token (3-6)", Required: true},
				&cli.Uint64Flag{Name: "to", Usage: "Base token (0-2)"},
				&cli.StringFlag{Name: "amount", Value: "1", Usage: "Amount"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				coll, forge, err := circlesContracts(rt)
				if err != nil {
					return err
				}
				form := forms.NewForgeForm(coll, forge, rt.wallet)
				return report(form.HandleTrade(c.Context, c.Uint64("from"), c.Uint64("to"), c.String("amount")))
			}),
		},
		{
			Name:  "set-forge",
			Usage: "Grant the minter role to a forging contract (admin only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "forge", Usage: "Forging contract (defaults to the configured CirclesForge)"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				coll, forge, err := circlesContracts(rt)
				if err != nil {
					return err
				}
				target := forge.Address()
				if raw := c.String("forge"); raw != "" {
					if !common.IsHexAddress(raw) {
						return fmt.Errorf("invalid forging contract %q", raw)
					}
					target = common.HexToAddress(raw)
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				if _, err := coll.SetForgingContract(c.Context, signer, target); err != nil {
					return err
				}
				fmt.Printf("Forging contract set to %s\n", target.Hex())
				return nil
			}),
		},
	},
}

func circlesContracts(rt *runtime) (*circles.Collection, *circles.Forge, error) {
	collAddr, err := rt.address("CirclesERC1155")
	if err != nil {
		return nil, nil, err
	}
	forgeAddr, err := rt.address("CirclesForge")
	if err != nil {
		return nil, nil, err
	}
	return circles.NewCollection(rt.client, collAddr, rt.log), circles.NewForge(rt.client, forgeAddr, rt.log), nil
}

var allowlistFlag = &cli.StringSliceFlag{Name: "allow", Usage: "Allowlisted address (repeatable)", Required: true}

var nftCmd = &cli.Command{
	Name:  "nft",
	Usage: "AdvancedNFT allowlist mint and commit-reveal",
	Subcommands: []*cli.Command{
		{
			Name:  "root",
			Usage: "Print the Merkle root and the proof of each allowlisted address",
			Flags: []cli.Flag{allowlistFlag},
			Action: func(c *cli.Context) error {
				tree, err := allowlist(c)
				if err != nil {
					return err
				}
				fmt.Printf("Root: %s\n", tree.Root().Hex())
				for _, raw := range c.StringSlice("allow") {
					addr := common.HexToAddress(raw)
					proof, _ := tree.Proof(addr)
					fmt.Printf("  %s: %d hashes\n", format.TruncateAddress(addr.Hex()), len(proof))
				}
				return nil
			},
		},
		{
			Name:  "mint",
			Usage: "Mint token ids with the connected account's proof (several ids use multicall)",
			Flags: []cli.Flag{
				allowlistFlag,
				&cli.Int64SliceFlag{Name: "id", Usage: "Token id (repeatable)", Required: true},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				drop, err := advancedNFT(rt)
				if err != nil {
					return err
				}
				tree, err := allowlist(c)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				proof, err := tree.Proof(signer.Address())
				if err != nil {
					return err
				}

				ids := c.Int64Slice("id")
				if len(ids) == 1 {
					_, err = drop.MintWithMerkleProof(c.Context, signer, proof, big.NewInt(ids[0]))
				} else {
					calls := make([][]byte, 0, len(ids))
					for _, id := range ids {
						data, err := drop.MintCall(proof, big.NewInt(id))
						if err != nil {
							return err
						}
						calls = append(calls, data)
					}
					_, err = drop.Multicall(c.Context, signer, calls)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Minted %v\n", ids)
				return nil
			}),
		},
		{
			Name:  "commit",
			Usage: "Commit to a secret phrase",
			Flags: []cli.Flag{&cli.StringFlag{Name: "secret", Required: true}},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				drop, err := advancedNFT(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				window, err := drop.Commit(c.Context, signer, nft.Commitment(secretHash(c.String("secret"))))
				if err != nil {
					return err
				}
				fmt.Printf("Committed in block %d; reveal after block %d and by block %d\n",
					window.CommitBlock, window.CommitBlock, window.CommitBlock+nft.RevealBlocks)
				return nil
			}),
		},
		{
			Name:  "reveal",
			Usage: "Reveal a committed secret phrase",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "secret", Required: true},
				&cli.Uint64Flag{Name: "commit-block", Required: true},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				drop, err := advancedNFT(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				window := nft.RevealWindow{CommitBlock: c.Uint64("commit-block")}
				random, err := drop.Reveal(c.Context, signer, window, secretHash(c.String("secret")))
				if err != nil {
					return err
				}
				fmt.Printf("Revealed; random number %s\n", random)
				return nil
			}),
		},
		{
			Name:      "sale",
			Usage:     "Start or end the public sale",
			ArgsUsage: "start|end",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				drop, err := advancedNFT(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				switch c.Args().First() {
				case "start":
					_, err = drop.StartPublicSale(c.Context, signer)
				case "end":
					_, err = drop.EndSale(c.Context, signer)
				default:
					return cli.Exit("usage: nft sale start|end", 2)
				}
				return err
			}),
		},
		{
			Name:  "withdraw",
			Usage: "Pay out contract funds",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "to", Usage: "Recipient (repeatable)", Required: true},
				&cli.StringSliceFlag{Name: "eth", Usage: "ETH amount per recipient (repeatable)", Required: true},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				drop, err := advancedNFT(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				var recipients []common.Address
				for _, raw := range c.StringSlice("to") {
					if !common.IsHexAddress(raw) {
						return fmt.Errorf("invalid recipient %q", raw)
					}
					recipients = append(recipients, common.HexToAddress(raw))
				}
				var amounts []*big.Int
				for _, raw := range c.StringSlice("eth") {
					wei, err := format.ParseEther(raw)
					if err != nil {
						return err
					}
					amounts = append(amounts, wei)
				}
				_, err = drop.WithdrawFunds(c.Context, signer, recipients, amounts)
				return err
			}),
		},
	},
}

func advancedNFT(rt *runtime) (*nft.AdvancedNFT, error) {
	addr, err := rt.address("AdvancedNFT")
	if err != nil {
		return nil, err
	}
	return nft.NewAdvancedNFT(rt.client, addr, rt.log), nil
}

func allowlist(c *cli.Context) (*nft.MerkleTree, error) {
	var addrs []common.Address
	for _, raw := range c.StringSlice("allow") {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid allowlist address %q", raw)
		}
		addrs = append(addrs, common.HexToAddress(raw))
	}
	return nft.NewMerkleTree(addrs)
}

// secretHash turns a phrase into the 32-byte secret, the way ethers' id() does.
func secretHash(phrase string) [32]byte {
	return crypto.Keccak256Hash([]byte(phrase))
}

var tokenIDFlag = &cli.StringFlag{Name: "id", Usage: "Token id", Required: true}

var stakingCmd = &cli.Command{
	Name:  "staking",
	Usage: "CirclesNFT staking",
	Subcommands: []*cli.Command{
		{
			Name:  "mint",
			Usage: "Mint a CirclesNFT for 0.01 ETH",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				s, err := stakingContracts(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				id, err := s.nft.Mint(c.Context, signer)
				if err != nil {
					return err
				}
				fmt.Printf("Minted token %s\n", id)
				return nil
			}),
		},
		{
			Name:  "god-transfer",
			Usage: "Move a token between holders without approval (CirclesNFTV2 owner only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "Current holder", Required: true},
				&cli.StringFlag{Name: "to", Usage: "New holder", Required: true},
				tokenIDFlag,
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				from, to := c.String("from"), c.String("to")
				if !common.IsHexAddress(from) || !common.IsHexAddress(to) {
					return fmt.Errorf("invalid holder address")
				}
				id, ok := new(big.Int).SetString(c.String("id"), 10)
				if !ok || id.Sign() < 0 {
					return fmt.Errorf("invalid token id %q", c.String("id"))
				}
				s, err := stakingContracts(rt)
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				if _, err := s.nft.GodModeTransfer(c.Context, signer, common.HexToAddress(from), common.HexToAddress(to), id); err != nil {
					return err
				}
				fmt.Printf("Token %s moved to %s\n", id, format.TruncateAddress(common.HexToAddress(to).Hex()))
				return nil
			}),
		},
		stakingAction("stake", "Approve and stake a token", func(c *cli.Context, s *stakingSet, id *big.Int) error {
			signer, err := s.rt.wallet.Signer(c.Context)
			if err != nil {
				return err
			}
			_, err = s.vault.Stake(c.Context, signer, id)
			return err
		}),
		stakingAction("unstake", "Unstake a token", func(c *cli.Context, s *stakingSet, id *big.Int) error {
			signer, err := s.rt.wallet.Signer(c.Context)
			if err != nil {
				return err
			}
			_, err = s.vault.Unstake(c.Context, signer, id)
			return err
		}),
		stakingAction("withdraw", "Withdraw ERC20 rewards for a staked token", func(c *cli.Context, s *stakingSet, id *big.Int) error {
			signer, err := s.rt.wallet.Signer(c.Context)
			if err != nil {
				return err
			}
			if _, err := s.vault.WithdrawRewards(c.Context, signer, id); err != nil {
				return err
			}
			bal, err := s.reward.BalanceOf(c.Context, signer.Address())
			if err != nil {
				return err
			}
			fmt.Printf("Reward balance: %s\n", bal)
			return nil
		}),
	},
}

type stakingSet struct {
	rt     *runtime
	nft    *staking.CirclesNFT
	vault  *staking.Staking
	reward *staking.RewardToken
}

func stakingContracts(rt *runtime) (*stakingSet, error) {
	var addrs staking.Addresses
	var err error
	if addrs.NFT, err = rt.address("CirclesNFT"); err != nil {
		return nil, err
	}
	if addrs.Staking, err = rt.address("NFTStaking"); err != nil {
		return nil, err
	}
	if addrs.Reward, err = rt.address("ERC20Test"); err != nil {
		return nil, err
	}
	return &stakingSet{
		rt:     rt,
		nft:    staking.NewCirclesNFT(rt.client, addrs.NFT, rt.log),
		vault:  staking.NewStaking(rt.client, addrs, rt.log),
		reward: staking.NewRewardToken(rt.client, addrs.Reward),
	}, nil
}

func stakingAction(name, usage string, fn func(c *cli.Context, s *stakingSet, id *big.Int) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{tokenIDFlag},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			id, err := strconv.ParseUint(c.String("id"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q", c.String("id"))
			}
			s, err := stakingContracts(rt)
			if err != nil {
				return err
			}
			if err := fn(c, s, new(big.Int).SetUint64(id)); err != nil {
				return err
			}
			fmt.Printf("%s %d done\n", name, id)
			return nil
		}),
	}
}
