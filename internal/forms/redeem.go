package forms

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/flow"
	"github.com/pulkyeet/dappkit/internal/msc"
)

// RedeemForm burns MSC to take WETH collateral back. The MSC to burn is derived from
// the WETH amount the same way the mint maximum is.
type RedeemForm struct {
	engine  *msc.Engine
	session Session
	log     *zap.Logger
	flow    flow.Machine

	mu         sync.Mutex
	wethAmount string
	mscToBurn  string
}

func NewRedeemForm(engine *msc.Engine, session Session, log *zap.Logger) *RedeemForm {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedeemForm{engine: engine, session: session, log: log, mscToBurn: "0"}
}

// SetWethAmount changes the collateral to redeem. A different amount voids an approval
// and zeroes the burn until RefreshBurn runs again.
func (f *RedeemForm) SetWethAmount(v string) {
	v = strings.TrimSpace(v)
	f.mu.Lock()
	changed := v != f.wethAmount
	f.wethAmount = v
	if changed {
		f.mscToBurn = "0"
	}
	f.mu.Unlock()

	if changed {
		switch f.flow.State() {
		case flow.Approving, flow.Approved:
			f.flow.Reset()
		}
	}
}

func (f *RedeemForm) MscToBurn() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mscToBurn
}

func (f *RedeemForm) State() flow.State { return f.flow.State() }

func (f *RedeemForm) RefreshBurn(ctx context.Context) string {
	f.mu.Lock()
	amount := f.wethAmount
	f.mu.Unlock()

	burn := "0"
	if amount != "" {
		burn = maxFor(ctx, f.engine, amount, f.log)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wethAmount == amount {
		f.mscToBurn = burn
	}
	return burn
}

// HandleApprove approves the engine to burn the computed MSC amount.
func (f *RedeemForm) HandleApprove(ctx context.Context) Message {
	burn := f.MscToBurn()
	if burn == "" || burn == "0" {
		return validation("Enter a WETH amount to redeem")
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error approving MSC", err)
	}

	err = f.flow.Approve(ctx, func(ctx context.Context) error {
		_, err := f.engine.ApproveMSC(ctx, signer, burn)
		return err
	})
	if err != nil {
		return failure("Error approving MSC", err)
	}
	return success("MSC approval successful")
}

func (f *RedeemForm) HandleRedeem(ctx context.Context) Message {
	if f.flow.State() != flow.Approved {
		return info("Approve MSC before redeeming")
	}

	f.mu.Lock()
	weth, burn := f.wethAmount, f.mscToBurn
	f.mu.Unlock()
	if weth == "" || burn == "" || burn == "0" {
		return validation(msgFillAllFields)
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error redeeming collateral", err)
	}

	err = f.flow.Submit(ctx, func(ctx context.Context) error {
		_, err := f.engine.RedeemCollateralForMsc(ctx, signer, weth, burn)
		return err
	})
	if err != nil {
		return failure("Error redeeming collateral", err)
	}
	f.Reset()
	return success("Collateral redeemed and MSC burned successfully")
}

func (f *RedeemForm) Reset() {
	f.mu.Lock()
	f.wethAmount, f.mscToBurn = "", "0"
	f.mu.Unlock()
	f.flow.Reset()
}
