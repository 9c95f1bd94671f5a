package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/format"
)

// BalanceReader is the part of a node the connector needs.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Account struct {
	Address   common.Address
	Balance   string // native balance in ether, FormatEther style
	Connected bool
	ChainID   *big.Int
}

type EventKind int

const (
	EventNone EventKind = iota
	EventAccountChanged
	EventChainChanged
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventAccountChanged:
		return "accountsChanged"
	case EventChainChanged:
		return "chainChanged"
	case EventDisconnected:
		return "disconnected"
	default:
		return "none"
	}
}

// Event reports what Sync found. Previous is the account that was torn down.
type Event struct {
	Kind     EventKind
	Previous common.Address
	Current  common.Address
	ChainID  *big.Int
}

// Connector holds at most one connected account. It is safe for concurrent use.
type Connector struct {
	provider Provider
	backend  BalanceReader
	log      *zap.Logger

	mu      sync.RWMutex
	account *Account
	signer  eth.Signer
}

func NewConnector(provider Provider, backend BalanceReader, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{provider: provider, backend: backend, log: log}
}

// Connect requests account access and loads the first account's native balance.
func (c *Connector) Connect(ctx context.Context) (Account, error) {
	if c.provider == nil {
		return Account{}, eth.ErrProviderUnavailable
	}

	accts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		c.log.Warn("wallet connect failed", zap.Error(err))
		return Account{}, err
	}
	if len(accts) == 0 {
		return Account{}, fmt.Errorf("%w: wallet exposed no accounts", eth.ErrProviderUnavailable)
	}
	addr := accts[0]

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return Account{}, err
	}
	balance, err := c.balance(ctx, addr)
	if err != nil {
		return Account{}, err
	}

	acct := &Account{Address: addr, Balance: balance, Connected: true, ChainID: chainID}
	c.mu.Lock()
	c.account = acct
	c.signer = nil
	c.mu.Unlock()

	c.log.Info("wallet connected",
		zap.String("address", addr.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.String("balance", balance),
	)
	return *acct, nil
}

// Refresh reloads the native balance of the connected account.
func (c *Connector) Refresh(ctx context.Context) (Account, error) {
	acct, ok := c.Account()
	if !ok {
		return Account{}, fmt.Errorf("%w: not connected", eth.ErrProviderUnavailable)
	}
	balance, err := c.balance(ctx, acct.Address)
	if err != nil {
		return Account{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil || c.account.Address != acct.Address {
		return Account{}, fmt.Errorf("%w: account changed during refresh", eth.ErrProviderUnavailable)
	}
	c.account.Balance = balance
	return *c.account, nil
}

func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account != nil {
		c.log.Info("wallet disconnected", zap.String("address", c.account.Address.Hex()))
	}
	c.account = nil
	c.signer = nil
}

// Account returns a copy of the connected account.
func (c *Connector) Account() (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return Account{}, false
	}
	return *c.account, true
}

// Signer returns the signer for the connected account, creating it on first use.
func (c *Connector) Signer(ctx context.Context) (eth.Signer, error) {
	c.mu.RLock()
	acct, signer := c.account, c.signer
	c.mu.RUnlock()

	if acct == nil {
		return nil, fmt.Errorf("%w: not connected", eth.ErrProviderUnavailable)
	}
	if signer != nil {
		return signer, nil
	}

	signer, err := c.provider.Signer(ctx, acct.Address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account != acct {
		return nil, fmt.Errorf("%w: account changed", eth.ErrProviderUnavailable)
	}
	c.signer = signer
	return signer, nil
}

// Sync compares the wallet's current account and chain with the connected ones. On any
// change the connection is torn down and the change is returned; reconnecting is up to
// the caller.
func (c *Connector) Sync(ctx context.Context) (Event, error) {
	acct, ok := c.Account()
	if !ok {
		return Event{Kind: EventNone}, nil
	}

	accts, err := c.provider.Accounts(ctx)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Previous: acct.Address, ChainID: acct.ChainID}

	switch {
	case len(accts) == 0:
		ev.Kind = EventDisconnected
	case accts[0] != acct.Address:
		ev.Kind = EventAccountChanged
		ev.Current = accts[0]
	default:
		chainID, err := c.provider.ChainID(ctx)
		if err != nil {
			return Event{}, err
		}
		if chainID.Cmp(acct.ChainID) == 0 {
			return Event{Kind: EventNone, Previous: acct.Address, Current: acct.Address, ChainID: chainID}, nil
		}
		ev.Kind = EventChainChanged
		ev.Current = acct.Address
		ev.ChainID = chainID
	}

	c.log.Info("wallet changed", zap.Stringer("event", ev.Kind), zap.String("previous", acct.Address.Hex()))
	c.Disconnect()
	return ev, nil
}

func (c *Connector) balance(ctx context.Context, addr common.Address) (string, error) {
	wei, err := c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return "", eth.Classify(err, nil, "wallet", "eth_getBalance")
	}
	return format.FormatEther(wei), nil
}
