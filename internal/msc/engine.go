// Package msc drives the Metana stablecoin: WETH collateral goes into MSCEngine and MSC
// is minted against it at 200% over-collateralization.
package msc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/format"
)

const (
	StatusHealthy = "Healthy"
	StatusAtRisk  = "At Risk of Liquidation"
	StatusUnknown = "Unknown"
)

var two = decimal.NewFromInt(2)

type Addresses struct {
	Engine common.Address
	Coin   common.Address
	WETH   common.Address
}

// SepoliaAddresses is the deployment the frontend shipped with.
var SepoliaAddresses = Addresses{
	Engine: eth.SepoliaMSCEngine,
	Coin:   eth.SepoliaMSCCoin,
	WETH:   eth.SepoliaWETH,
}

type AccountInfo struct {
	TotalMscMinted       string
	CollateralValueInUsd string
}

type Engine struct {
	addrs  Addresses
	engine *eth.Contract
	coin   *eth.Contract
	weth   *eth.Contract
	log    *zap.Logger
}

func New(backend eth.Backend, addrs Addresses, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		addrs:  addrs,
		engine: eth.MustContract("MSCEngine", eth.MSCEngineABI, addrs.Engine, backend),
		coin:   eth.MustContract("MetanaStableCoin", eth.ERC20ABI, addrs.Coin, backend),
		weth:   eth.MustContract("WETH", eth.WETHABI, addrs.WETH, backend),
		log:    log.With(zap.String("service", "msc")),
	}
}

func (e *Engine) Addresses() Addresses { return e.addrs }

// ApproveWETH lets the engine pull amount WETH from the signer.
func (e *Engine) ApproveWETH(ctx context.Context, signer eth.Signer, amount string) (*types.Receipt, error) {
	wei, err := parseAmount("WETH amount", amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.weth, signer, nil, "approve", e.addrs.Engine, wei)
}

// WrapETH converts native ETH into WETH collateral.
func (e *Engine) WrapETH(ctx context.Context, signer eth.Signer, amount string) (*types.Receipt, error) {
	wei, err := parseAmount("ETH amount", amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.weth, signer, wei, "deposit")
}

func (e *Engine) DepositCollateralAndMint(ctx context.Context, signer eth.Signer, collateral, mint string) (*types.Receipt, error) {
	collateralWei, err := parseAmount("collateral amount", collateral)
	if err != nil {
		return nil, err
	}
	mintWei, err := parseAmount("MSC amount", mint)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.engine, signer, nil, "depositCollateralAndMintMsc", e.addrs.WETH, collateralWei, mintWei)
}

// ApproveMSC lets the engine burn amount MSC from the signer.
func (e *Engine) ApproveMSC(ctx context.Context, signer eth.Signer, amount string) (*types.Receipt, error) {
	wei, err := parseAmount("MSC amount", amount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.coin, signer, nil, "approve", e.addrs.Engine, wei)
}

func (e *Engine) RedeemCollateralForMsc(ctx context.Context, signer eth.Signer, wethAmount, mscAmount string) (*types.Receipt, error) {
	wethWei, err := parseAmount("WETH amount", wethAmount)
	if err != nil {
		return nil, err
	}
	mscWei, err := parseAmount("MSC amount", mscAmount)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.engine, signer, nil, "reedemCollateralForMsc", e.addrs.WETH, wethWei, mscWei)
}

// Liquidate covers debtToCover MSC of user's debt and takes their WETH collateral.
func (e *Engine) Liquidate(ctx context.Context, signer eth.Signer, user common.Address, debtToCover string) (*types.Receipt, error) {
	debt, err := parseAmount("debt to cover", debtToCover)
	if err != nil {
		return nil, err
	}
	return e.send(ctx, e.engine, signer, nil, "liquidate", e.addrs.WETH, user, debt)
}

func (e *Engine) UsdValue(ctx context.Context, token common.Address, amountWei *big.Int) (string, error) {
	v, err := e.engine.CallBig(ctx, "getUsdValue", token, amountWei)
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

func (e *Engine) AccountInformation(ctx context.Context, user common.Address) (AccountInfo, error) {
	out, err := e.engine.Call(ctx, "getAccountInformation", user)
	if err != nil {
		return AccountInfo{}, err
	}
	if len(out) != 2 {
		return AccountInfo{}, fmt.Errorf("getAccountInformation: want 2 results, got %d", len(out))
	}
	minted, ok1 := out[0].(*big.Int)
	usd, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return AccountInfo{}, fmt.Errorf("getAccountInformation: unexpected result types %T, %T", out[0], out[1])
	}
	return AccountInfo{
		TotalMscMinted:       format.FormatEther(minted),
		CollateralValueInUsd: format.FormatEther(usd),
	}, nil
}

func (e *Engine) HealthFactor(ctx context.Context, user common.Address) (string, error) {
	v, err := e.engine.CallBig(ctx, "getHealthFactor", user)
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

func (e *Engine) CollateralBalanceOf(ctx context.Context, user, token common.Address) (string, error) {
	v, err := e.engine.CallBig(ctx, "getCollateralBalanceOfUser", user, token)
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

func (e *Engine) TotalSupply(ctx context.Context) (string, error) {
	v, err := e.coin.CallBig(ctx, "totalSupply")
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

func (e *Engine) CoinBalanceOf(ctx context.Context, user common.Address) (string, error) {
	v, err := e.coin.CallBig(ctx, "balanceOf", user)
	if err != nil {
		return "", err
	}
	return format.FormatEther(v), nil
}

// MaxMintable is the most MSC a collateral worth usdValue can back: half of it, rounded
// down to a whole coin. Unparseable input yields "0".
func MaxMintable(usdValue string) string {
	usd, err := decimal.NewFromString(usdValue)
	if err != nil || usd.IsNegative() {
		return "0"
	}
	return usd.Div(two).Floor().String()
}

// HealthStatus classifies a health factor; below 1 the position can be liquidated.
func HealthStatus(hf string) string {
	v, err := decimal.NewFromString(hf)
	if err != nil {
		return StatusUnknown
	}
	if v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return StatusHealthy
	}
	return StatusAtRisk
}

func parseAmount(what, amount string) (*big.Int, error) {
	wei, err := format.ParseEther(amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return wei, nil
}

func (e *Engine) send(ctx context.Context, c *eth.Contract, signer eth.Signer, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	receipt, err := c.Transact(ctx, signer, value, method, args...)
	if err != nil {
		e.log.Warn("transaction failed",
			zap.String("contract", c.Name()),
			zap.String("method", method),
			zap.Error(err),
		)
		return receipt, err
	}
	e.log.Info("transaction confirmed",
		zap.String("contract", c.Name()),
		zap.String("method", method),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return receipt, nil
}
