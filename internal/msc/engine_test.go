package msc

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/eth/ethtest"
	"github.com/pulkyeet/dappkit/internal/format"
)

var testAddrs = Addresses{
	Engine: common.HexToAddress("0x00000000000000000000000000000000000000e1"),
	Coin:   common.HexToAddress("0x00000000000000000000000000000000000000c1"),
	WETH:   common.HexToAddress("0x00000000000000000000000000000000000000f1"),
}

func ether(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(params.Ether))
}

// newEngine prices WETH at 2000 USD.
func newEngine(t *testing.T) (*ethtest.Backend, *Engine) {
	t.Helper()
	backend := ethtest.New()
	backend.Deploy(testAddrs.Engine, eth.MSCEngineABI)
	backend.Deploy(testAddrs.Coin, eth.ERC20ABI)
	backend.Deploy(testAddrs.WETH, eth.WETHABI)
	backend.Handle(testAddrs.Engine, "getUsdValue", func(c *ethtest.Call) ([]interface{}, error) {
		return []interface{}{new(big.Int).Mul(c.Args[1].(*big.Int), big.NewInt(2000))}, nil
	})
	return backend, New(backend, testAddrs, zap.NewNop())
}

func TestMaxMintable(t *testing.T) {
	assert.Equal(t, "2000", MaxMintable("4000"))
	assert.Equal(t, "2000", MaxMintable("4000.0"))
	assert.Equal(t, "0", MaxMintable("1.99"))
	assert.Equal(t, "1", MaxMintable("3.5"))
	assert.Equal(t, "0", MaxMintable(""))
	assert.Equal(t, "0", MaxMintable("-10"))
}

func TestMaxMintableFromUsdValue(t *testing.T) {
	_, engine := newEngine(t)
	wei, err := format.ParseEther("2")
	require.NoError(t, err)

	usd, err := engine.UsdValue(context.Background(), testAddrs.WETH, wei)
	require.NoError(t, err)
	assert.Equal(t, "4000.0", usd)
	assert.Equal(t, "2000", MaxMintable(usd))
}

func TestHealthStatus(t *testing.T) {
	assert.Equal(t, StatusHealthy, HealthStatus("1.0"))
	assert.Equal(t, StatusHealthy, HealthStatus("2.37"))
	assert.Equal(t, StatusAtRisk, HealthStatus("0.99"))
	assert.Equal(t, StatusUnknown, HealthStatus("n/a"))
}

func TestDepositCollateralAndMint(t *testing.T) {
	backend, engine := newEngine(t)
	signer := ethtest.NewSigner()

	_, err := engine.ApproveWETH(context.Background(), signer, "2")
	require.NoError(t, err)
	_, err = engine.DepositCollateralAndMint(context.Background(), signer, "2", "1500")
	require.NoError(t, err)

	sent := backend.Sent()
	require.Len(t, sent, 2)

	approve := sent[0].Call
	assert.Equal(t, testAddrs.WETH, approve.To)
	assert.Equal(t, "approve", approve.Method)
	assert.Equal(t, testAddrs.Engine, approve.Args[0])
	assert.Equal(t, ether(2), approve.Args[1])

	deposit := sent[1].Call
	assert.Equal(t, "depositCollateralAndMintMsc", deposit.Method)
	assert.Equal(t, testAddrs.WETH, deposit.Args[0])
	assert.Equal(t, ether(2), deposit.Args[1])
	assert.Equal(t, ether(1500), deposit.Args[2])
}

func TestWrapETHSendsValue(t *testing.T) {
	backend, engine := newEngine(t)

	_, err := engine.WrapETH(context.Background(), ethtest.NewSigner(), "0.5")
	require.NoError(t, err)

	sent := backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "deposit", sent[0].Call.Method)
	assert.Equal(t, big.NewInt(params.Ether/2), sent[0].Tx.Value())
}

func TestRedeemAndLiquidate(t *testing.T) {
	backend, engine := newEngine(t)
	signer := ethtest.NewSigner()
	user := common.HexToAddress("0x0000000000000000000000000000000000000bad")

	_, err := engine.ApproveMSC(context.Background(), signer, "1000")
	require.NoError(t, err)
	_, err = engine.RedeemCollateralForMsc(context.Background(), signer, "1", "1000")
	require.NoError(t, err)
	_, err = engine.Liquidate(context.Background(), signer, user, "100")
	require.NoError(t, err)

	assert.Equal(t, []string{"approve", "reedemCollateralForMsc", "liquidate"}, backend.SentMethods())
	sent := backend.Sent()
	assert.Equal(t, testAddrs.Coin, sent[0].Call.To)
	assert.Equal(t, []interface{}{testAddrs.WETH, user, ether(100)}, sent[2].Call.Args)
}

func TestWriteRejectsBadAmount(t *testing.T) {
	backend, engine := newEngine(t)

	_, err := engine.DepositCollateralAndMint(context.Background(), ethtest.NewSigner(), "-1", "1")
	assert.ErrorIs(t, err, format.ErrNegativeAmount)
	_, err = engine.ApproveWETH(context.Background(), ethtest.NewSigner(), "lots")
	assert.ErrorIs(t, err, format.ErrMalformedNumber)
	assert.Zero(t, backend.Requests())
}

func TestLiquidateHealthyUserReverts(t *testing.T) {
	backend, engine := newEngine(t)
	backend.Fail(testAddrs.Engine, "liquidate", ethtest.CustomError(eth.MSCEngineABI, "MSCEngine__HealthFactorOk"))

	_, err := engine.Liquidate(context.Background(), ethtest.NewSigner(), common.Address{1}, "1")
	var revert *eth.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "MSCEngine__HealthFactorOk", revert.Reason)
}

func TestReads(t *testing.T) {
	backend, engine := newEngine(t)
	user := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	backend.Return(testAddrs.Engine, "getAccountInformation", ether(1500), ether(4000))
	backend.Return(testAddrs.Engine, "getHealthFactor", new(big.Int).Div(ether(133), big.NewInt(100)))
	backend.Return(testAddrs.Engine, "getCollateralBalanceOfUser", ether(2))
	backend.Return(testAddrs.Coin, "totalSupply", ether(1_000_000))
	backend.Return(testAddrs.Coin, "balanceOf", ether(7))

	ctx := context.Background()
	info, err := engine.AccountInformation(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, AccountInfo{TotalMscMinted: "1500.0", CollateralValueInUsd: "4000.0"}, info)

	hf, err := engine.HealthFactor(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "1.33", hf)
	assert.Equal(t, StatusHealthy, HealthStatus(hf))

	bal, err := engine.CollateralBalanceOf(ctx, user, testAddrs.WETH)
	require.NoError(t, err)
	assert.Equal(t, "2.0", bal)

	supply, err := engine.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000000.0", supply)

	coins, err := engine.CoinBalanceOf(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "7.0", coins)

	reads := backend.Reads()
	require.NotEmpty(t, reads)
	assert.Equal(t, []interface{}{user, testAddrs.WETH}, reads[2].Args)
}

func TestReadNetworkError(t *testing.T) {
	backend, engine := newEngine(t)
	backend.SetDown(context.DeadlineExceeded)

	_, err := engine.TotalSupply(context.Background())
	assert.ErrorIs(t, err, eth.ErrNetwork)
}
