package main

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/config"
	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/logger"
	"github.com/pulkyeet/dappkit/internal/msc"
	"github.com/pulkyeet/dappkit/internal/wallet"
)

// runtime is what every command needs: settings, a node connection and the wallet.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	client *eth.Client
	wallet *wallet.Connector
}

// setup loads config, dials the node and connects the wallet when one is configured.
// A missing wallet is not an error here; write commands report it when they need it.
func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	ctx := c.Context
	client, err := eth.Dial(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, client: client}
	provider, err := wallet.Open(ctx, cfg, client)
	switch {
	case errors.Is(err, eth.ErrProviderUnavailable):
		log.Debug("no wallet configured")
		rt.wallet = wallet.NewConnector(nil, client, log)
		return rt, nil
	case err != nil:
		client.Close()
		return nil, err
	}

	rt.wallet = wallet.NewConnector(provider, client, log)
	if _, err := rt.wallet.Connect(ctx); err != nil {
		log.Warn("wallet connect failed", zap.Error(err))
	}
	return rt, nil
}

func (r *runtime) close() {
	r.client.Close()
	_ = r.log.Sync()
}

func (r *runtime) address(contract string) (common.Address, error) {
	return r.cfg.Network.Address(contract)
}

func (r *runtime) engine() (*msc.Engine, error) {
	var addrs msc.Addresses
	var err error
	if addrs.Engine, err = r.address("MSCEngine"); err != nil {
		return nil, err
	}
	if addrs.Coin, err = r.address("MetanaStableCoin"); err != nil {
		return nil, err
	}
	if addrs.WETH, err = r.address("WETH"); err != nil {
		return nil, err
	}
	return msc.New(r.client, addrs, r.log), nil
}

// withRuntime wraps a command action with setup and teardown.
func withRuntime(action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		defer rt.close()
		return action(c, rt)
	}
}
