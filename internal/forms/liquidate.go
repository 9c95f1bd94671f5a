package forms

import (
	"context"
	"strings"
	"sync"

	"github.com/pulkyeet/dappkit/internal/msc"
)

type LiquidateForm struct {
	engine  *msc.Engine
	session Session

	mu          sync.Mutex
	user        string
	debtToCover string
}

func NewLiquidateForm(engine *msc.Engine, session Session) *LiquidateForm {
	return &LiquidateForm{engine: engine, session: session}
}

func (f *LiquidateForm) SetUser(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = strings.TrimSpace(v)
}

func (f *LiquidateForm) SetDebtToCover(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debtToCover = strings.TrimSpace(v)
}

// HandleLiquidate validates locally first; an incomplete form never reaches the node.
func (f *LiquidateForm) HandleLiquidate(ctx context.Context) Message {
	f.mu.Lock()
	user, debt := f.user, f.debtToCover
	f.mu.Unlock()

	if user == "" || debt == "" {
		return validation(msgFillAllFields)
	}
	addr, ok := parseAddress(user)
	if !ok {
		return validation(msgInvalidAddress)
	}
	signer, err := f.session.Signer(ctx)
	if err != nil {
		return failure("Error during liquidation", err)
	}

	if _, err := f.engine.Liquidate(ctx, signer, addr, debt); err != nil {
		return failure("Error during liquidation", err)
	}

	f.mu.Lock()
	f.user, f.debtToCover = "", ""
	f.mu.Unlock()
	return success("Liquidation successful")
}
