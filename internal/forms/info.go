package forms

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/dappkit/internal/format"
	"github.com/pulkyeet/dappkit/internal/msc"
)

type WalletInfo struct {
	Address        string
	ShortAddress   string
	Balance        string // native, ether
	MscMinted      string // whole coins
	CollateralWeth string // 2 decimals
	CollateralUsd  string // "USD x.xx"
}

// LoadWalletInfo reads the position of the connected account. The reads run
// concurrently and either all land or none do.
func LoadWalletInfo(ctx context.Context, engine *msc.Engine, session Session) (WalletInfo, Message) {
	acct, ok := session.Account()
	if !ok {
		return WalletInfo{}, info(msgConnectWallet)
	}

	var (
		acctInfo msc.AccountInfo
		weth     string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acctInfo, err = engine.AccountInformation(gctx, acct.Address)
		return err
	})
	g.Go(func() error {
		var err error
		weth, err = engine.CollateralBalanceOf(gctx, acct.Address, engine.Addresses().WETH)
		return err
	})
	if err := g.Wait(); err != nil {
		return WalletInfo{}, failure("Failed to fetch account information", err)
	}

	out := WalletInfo{
		Address:      acct.Address.Hex(),
		ShortAddress: format.TruncateAddress(acct.Address.Hex()),
		Balance:      acct.Balance,
	}
	out.MscMinted = formatOrZero(acctInfo.TotalMscMinted, 0)
	out.CollateralWeth = formatOrZero(weth, 2)
	if usd, err := decimal.NewFromString(acctInfo.CollateralValueInUsd); err == nil {
		out.CollateralUsd = format.FormatCurrency(usd, format.DefaultCurrency, 2)
	}
	return out, Message{}
}

type CoinInfo struct {
	EngineAddress string
	EngineURL     string
	CoinAddress   string
	CoinURL       string
	TotalSupply   string
}

// LoadCoinInfo describes the deployment; explorer is the block explorer base URL and
// may be empty.
func LoadCoinInfo(ctx context.Context, engine *msc.Engine, explorer string) (CoinInfo, Message) {
	addrs := engine.Addresses()
	out := CoinInfo{
		EngineAddress: addrs.Engine.Hex(),
		CoinAddress:   addrs.Coin.Hex(),
	}
	if explorer != "" {
		out.EngineURL = explorer + "/address/" + out.EngineAddress
		out.CoinURL = explorer + "/address/" + out.CoinAddress
	}

	supply, err := engine.TotalSupply(ctx)
	if err != nil {
		return out, failure("Failed to fetch total supply", err)
	}
	out.TotalSupply = formatOrZero(supply, 2)
	return out, Message{}
}

func formatOrZero(v string, decimals int32) string {
	s, err := format.FormatNumberString(v, decimals)
	if err != nil {
		return format.FormatNumber(decimal.Zero, decimals)
	}
	return s
}
