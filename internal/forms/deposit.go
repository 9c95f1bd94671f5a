package forms

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/flow"
	"github.com/pulkyeet/dappkit/internal/format"
	"github.com/pulkyeet/dappkit/internal/msc"
)

// DepositMintForm approves WETH, then deposits it and mints MSC against it.
type DepositMintForm struct {
	engine  *msc.Engine
	session Session
	log     *zap.Logger
	flow    flow.Machine

	mu        sync.Mutex
	ethAmount string
	mscAmount string
	maxMsc    string
}

func NewDepositMintForm(engine *msc.Engine, session Session, log *zap.Logger) *DepositMintForm {
	if log == nil {
		log = zap.NewNop()
	}
	return &DepositMintForm{engine: engine, session: session, log: log, maxMsc: "0"}
}

// SetEthAmount changes the collateral amount. A different amount voids an approval,
// pending or confirmed, and zeroes the max until RefreshMax runs again.
func (f *DepositMintForm) SetEthAmount(v string) {
	v = strings.TrimSpace(v)
	f.mu.Lock()
	changed := v != f.ethAmount
	f.ethAmount = v
	if changed {
		f.maxMsc = "0"
	}
	f.mu.Unlock()

	if changed {
		switch f.flow.State() {
		case flow.Approving, flow.Approved:
			f.flow.Reset()
		}
	}
}

func (f *DepositMintForm) SetMscAmount(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mscAmount = strings.TrimSpace(v)
}

func (f *DepositMintForm) EthAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ethAmount
}

func (f *DepositMintForm) MscAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mscAmount
}

func (f *DepositMintForm) MaxMsc() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxMsc
}

func (f *DepositMintForm) State() flow.State { return f.flow.State() }

// RefreshMax recomputes the most MSC the current collateral can back. Any failure
// shows a max of 0.
func (f *DepositMintForm) RefreshMax(ctx context.Context) string {
	amount := f.EthAmount()
	max := "0"
	if amount != "" {
		max = maxFor(ctx, f.engine, amount, f.log)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ethAmount == amount {
		f.maxMsc = max
	}
	return max
}

func (f *DepositMintForm) HandleApprove(ctx context.Context) Message {
	amount := f.EthAmount()
	if amount == "" {
		return validation("Enter a WETH amount to approve")
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error approving WETH", err)
	}

	err = f.flow.Approve(ctx, func(ctx context.Context) error {
		_, err := f.engine.ApproveWETH(ctx, signer, amount)
		return err
	})
	if err != nil {
		return failure("Error approving WETH", err)
	}
	return success("WETH approval successful")
}

// HandleDepositAndMint sends nothing until the WETH approval is confirmed.
func (f *DepositMintForm) HandleDepositAndMint(ctx context.Context) Message {
	if f.flow.State() != flow.Approved {
		return info("Approve WETH before depositing")
	}

	f.mu.Lock()
	ethAmount, mscAmount, maxMsc := f.ethAmount, f.mscAmount, f.maxMsc
	f.mu.Unlock()

	if ethAmount == "" || mscAmount == "" {
		return validation(msgFillAllFields)
	}
	if exceeds(mscAmount, maxMsc) {
		return validation(fmt.Sprintf("You can mint at most %s MSC", maxMsc))
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error depositing collateral and minting MSC", err)
	}

	err = f.flow.Submit(ctx, func(ctx context.Context) error {
		_, err := f.engine.DepositCollateralAndMint(ctx, signer, ethAmount, mscAmount)
		return err
	})
	if err != nil {
		return failure("Error depositing collateral and minting MSC", err)
	}
	f.Reset()
	return success("Collateral deposited and MSC minted successfully")
}

func (f *DepositMintForm) Reset() {
	f.mu.Lock()
	f.ethAmount, f.mscAmount, f.maxMsc = "", "", "0"
	f.mu.Unlock()
	f.flow.Reset()
}

// maxFor is floor(usd(amount) / 2), or "0" when the amount or the price read fails.
func maxFor(ctx context.Context, engine *msc.Engine, amount string, log *zap.Logger) string {
	wei, err := format.ParseEther(amount)
	if err != nil {
		return "0"
	}
	usd, err := engine.UsdValue(ctx, engine.Addresses().WETH, wei)
	if err != nil {
		log.Warn("usd value lookup failed", zap.String("amount", amount), zap.Error(err))
		return "0"
	}
	return msc.MaxMintable(usd)
}

// exceeds reports amount > limit; unparseable input counts as exceeding.
func exceeds(amount, limit string) bool {
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return true
	}
	l, err := decimal.NewFromString(limit)
	if err != nil {
		return true
	}
	return a.GreaterThan(l)
}

