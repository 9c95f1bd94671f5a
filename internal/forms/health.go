package forms

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/format"
	"github.com/pulkyeet/dappkit/internal/msc"
)

type HealthFactorResult struct {
	Value   string // two decimals
	Status  string
	Message Message
}

type HealthFactorForm struct {
	engine *msc.Engine
	log    *zap.Logger
}

func NewHealthFactorForm(engine *msc.Engine, log *zap.Logger) *HealthFactorForm {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthFactorForm{engine: engine, log: log}
}

func (f *HealthFactorForm) Check(ctx context.Context, address string) HealthFactorResult {
	addr, ok := parseAddress(address)
	if !ok {
		return HealthFactorResult{Message: validation(msgInvalidAddress)}
	}

	hf, err := f.engine.HealthFactor(ctx, addr)
	if err != nil {
		f.log.Warn("health factor read failed", zap.String("user", addr.Hex()), zap.Error(err))
		return HealthFactorResult{Message: Message{Kind: KindError, Text: "Error fetching health factor"}}
	}
	value, err := format.FormatNumberString(hf, 2)
	if err != nil {
		return HealthFactorResult{Message: Message{Kind: KindError, Text: "Error fetching health factor"}}
	}

	status := msc.HealthStatus(hf)
	return HealthFactorResult{
		Value:   value,
		Status:  status,
		Message: info(fmt.Sprintf("Your health factor is currently: %s (%s)", value, status)),
	}
}
