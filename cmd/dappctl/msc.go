package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pulkyeet/dappkit/internal/format"
	"github.com/pulkyeet/dappkit/internal/forms"
)

var walletCmd = &cli.Command{
	Name:  "wallet",
	Usage: "Connected wallet",
	Subcommands: []*cli.Command{
		{
			Name:  "connect",
			Usage: "Connect and show the account and its native balance",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				acct, err := rt.wallet.Connect(c.Context)
				if err != nil {
					return err
				}
				fmt.Printf("Connected: %s\n", format.TruncateAddress(acct.Address.Hex()))
				fmt.Printf("  Address: %s\n", acct.Address.Hex())
				fmt.Printf("  Balance: %s ETH\n", acct.Balance)
				fmt.Printf("  Chain:   %s\n", acct.ChainID)
				return nil
			}),
		},
		{
			Name:  "info",
			Usage: "Show the account's MSC position",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				info, msg := forms.LoadWalletInfo(c.Context, engine, rt.wallet)
				if msg.Text != "" {
					return report(msg)
				}
				fmt.Printf("Account:          %s\n", info.ShortAddress)
				fmt.Printf("Balance:          %s ETH\n", info.Balance)
				fmt.Printf("MSC minted:       %s\n", info.MscMinted)
				fmt.Printf("WETH collateral:  %s\n", info.CollateralWeth)
				fmt.Printf("Collateral value: %s\n", info.CollateralUsd)
				return nil
			}),
		},
	},
}

var mscCmd = &cli.Command{
	Name:  "msc",
	Usage: "Metana stablecoin engine",
	Subcommands: []*cli.Command{
		{
			Name:  "wrap",
			Usage: "Wrap ETH into WETH",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "eth", Usage: "ETH amount", Required: true},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				signer, err := rt.wallet.Signer(c.Context)
				if err != nil {
					return err
				}
				receipt, err := engine.WrapETH(c.Context, signer, c.String("eth"))
				if err != nil {
					return err
				}
				fmt.Printf("Wrapped %s ETH in %s\n", c.String("eth"), receipt.TxHash.Hex())
				return nil
			}),
		},
		{
			Name:  "deposit-mint",
			Usage: "Approve WETH, deposit it and mint MSC",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "weth", Usage: "WETH collateral", Required: true},
				&cli.StringFlag{Name: "msc", Usage: "MSC to mint (defaults to the maximum)"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				form := forms.NewDepositMintForm(engine, rt.wallet, rt.log)
				form.SetEthAmount(c.String("weth"))
				limit := form.RefreshMax(c.Context)
				fmt.Printf("Max mintable: %s MSC\n", limit)

				mint := c.String("msc")
				if mint == "" {
					mint = limit
				}
				form.SetMscAmount(mint)

				if err := report(form.HandleApprove(c.Context)); err != nil {
					return err
				}
				return report(form.HandleDepositAndMint(c.Context))
			}),
		},
		{
			Name:  "redeem",
			Usage: "Burn MSC and take WETH collateral back",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "weth", Usage: "WETH to redeem", Required: true},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				form := forms.NewRedeemForm(engine, rt.wallet, rt.log)
				form.SetWethAmount(c.String("weth"))
				fmt.Printf("MSC to burn: %s\n", form.RefreshBurn(c.Context))

				if err := report(form.HandleApprove(c.Context)); err != nil {
					return err
				}
				return report(form.HandleRedeem(c.Context))
			}),
		},
		{
			Name:  "liquidate",
			Usage: "Cover an undercollateralised user's debt",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Usage: "Address to liquidate"},
				&cli.StringFlag{Name: "debt", Usage: "MSC debt to cover"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				form := forms.NewLiquidateForm(engine, rt.wallet)
				form.SetUser(c.String("user"))
				form.SetDebtToCover(c.String("debt"))
				return report(form.HandleLiquidate(c.Context))
			}),
		},
		{
			Name:  "health",
			Usage: "Show a user's health factor",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Usage: "Address to check (defaults to the connected account)"},
			},
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				user := c.String("user")
				if acct, ok := rt.wallet.Account(); ok && user == "" {
					user = acct.Address.Hex()
				}
				res := forms.NewHealthFactorForm(engine, rt.log).Check(c.Context, user)
				return report(res.Message)
			}),
		},
		{
			Name:  "coin-info",
			Usage: "Show the deployment and total supply",
			Action: withRuntime(func(c *cli.Context, rt *runtime) error {
				engine, err := rt.engine()
				if err != nil {
					return err
				}
				info, msg := forms.LoadCoinInfo(c.Context, engine, rt.cfg.Network.Explorer)
				fmt.Printf("Engine: %s %s\n", info.EngineAddress, info.EngineURL)
				fmt.Printf("Coin:   %s %s\n", info.CoinAddress, info.CoinURL)
				if msg.Text != "" {
					return report(msg)
				}
				fmt.Printf("Total supply: %s MSC\n", info.TotalSupply)
				return nil
			}),
		},
	},
}
