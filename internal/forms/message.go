// Package forms holds the view models behind each screen: they keep transient input,
// validate it, call the services and turn every outcome into a Message to render.
// Nothing here panics or exits on a failed call.
package forms

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/wallet"
)

type Kind string

const (
	KindInfo       Kind = "info"
	KindSuccess    Kind = "success"
	KindValidation Kind = "validation"
	KindError      Kind = "error"
)

const (
	msgFillAllFields  = "Please fill in all fields"
	msgConnectWallet  = "Please connect your wallet first."
	msgInvalidAddress = "Invalid address"
)

type Message struct {
	Kind Kind
	Text string
}

func (m Message) IsError() bool {
	return m.Kind == KindError || m.Kind == KindValidation
}

func (m Message) String() string { return m.Text }

func info(text string) Message       { return Message{Kind: KindInfo, Text: text} }
func success(text string) Message    { return Message{Kind: KindSuccess, Text: text} }
func validation(text string) Message { return Message{Kind: KindValidation, Text: text} }

// failure renders err under prefix, e.g. "Error during liquidation: execution reverted: x".
func failure(prefix string, err error) Message {
	var text string
	switch {
	case errors.Is(err, eth.ErrProviderUnavailable):
		text = msgConnectWallet
	case errors.Is(err, eth.ErrUserRejected):
		text = prefix + ": rejected in wallet"
	default:
		text = prefix + ": " + err.Error()
	}
	return Message{Kind: KindError, Text: text}
}

// Session is the connected wallet as the forms see it; *wallet.Connector satisfies it.
type Session interface {
	Account() (wallet.Account, bool)
	Signer(ctx context.Context) (eth.Signer, error)
}

func parseAddress(s string) (common.Address, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
