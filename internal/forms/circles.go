package forms

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pulkyeet/dappkit/internal/circles"
)

// MintForm mints base Circles tokens, checking the cooldown before a transaction is
// built so a doomed mint never reaches the wallet.
type MintForm struct {
	collection *circles.Collection
	session    Session
	now        func() time.Time
}

func NewMintForm(collection *circles.Collection, session Session, now func() time.Time) *MintForm {
	if now == nil {
		now = time.Now
	}
	return &MintForm{collection: collection, session: session, now: now}
}

func (f *MintForm) HandleMint(ctx context.Context, token uint64, amount string) Message {
	acct, ok := f.session.Account()
	if !ok {
		return validation(msgConnectWallet)
	}
	n, err := parseCount(amount)
	if err != nil {
		return validation(err.Error())
	}

	if token <= circles.MaxBaseToken {
		last, err := f.collection.LastMintTimestamp(ctx, acct.Address, token)
		if err != nil {
			return failure("Error minting tokens", err)
		}
		if left := circles.CooldownRemaining(last, f.now()); left > 0 {
			return validation(fmt.Sprintf("Cooldown has not elapsed yet. Try again in %s.", left.Round(time.Second)))
		}
	}

	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error minting tokens", err)
	}
	if _, err := f.collection.Mint(ctx, signer, acct.Address, token, n); err != nil {
		return failure("Error minting tokens", err)
	}
	return success(fmt.Sprintf("Minted %s of token %d", n, token))
}

// ForgeForm forges and trades tokens after checking balances locally.
type ForgeForm struct {
	collection *circles.Collection
	forge      *circles.Forge
	session    Session
}

func NewForgeForm(collection *circles.Collection, forge *circles.Forge, session Session) *ForgeForm {
	return &ForgeForm{collection: collection, forge: forge, session: session}
}

func (f *ForgeForm) HandleForge(ctx context.Context, token uint64, amount string) Message {
	acct, ok := f.session.Account()
	if !ok {
		return validation(msgConnectWallet)
	}
	n, err := parseCount(amount)
	if err != nil {
		return validation(err.Error())
	}

	balances, err := f.collection.BalancesOf(ctx, acct.Address)
	if err != nil {
		return failure("Error reading balances", err)
	}
	if err := circles.CheckForge(balances, token, n); err != nil {
		return validation("Cannot forge: " + err.Error())
	}

	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error forging", err)
	}
	if _, err := f.forge.ForgeToken(ctx, signer, token, n); err != nil {
		return failure("Error forging", err)
	}
	return success(fmt.Sprintf("Successfully forged using forgeToken%d!", token))
}

func (f *ForgeForm) HandleTrade(ctx context.Context, token, desired uint64, amount string) Message {
	if err := circles.CheckTrade(token, desired); err != nil {
		return validation(err.Error())
	}
	n, err := parseCount(amount)
	if err != nil {
		return validation(err.Error())
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error trading", err)
	}
	if _, err := f.collection.TradeToken(ctx, signer, token, desired, n); err != nil {
		return failure("Error trading", err)
	}
	return success(fmt.Sprintf("Traded %s of token %d for token %d", n, token, desired))
}

var errBadCount = errors.New("amount must be a positive whole number")

func parseCount(s string) (*big.Int, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return nil, errBadCount
	}
	return new(big.Int).SetUint64(v), nil
}
