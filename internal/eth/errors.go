package eth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrProviderUnavailable = errors.New("no wallet provider available")
	ErrUserRejected        = errors.New("request rejected by user")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrNetwork             = errors.New("network error")
)

// eip-1193 code for a request the user declined
const userRejectedCode = 4001

type Kind string

const (
	KindProviderUnavailable Kind = "provider_unavailable"
	KindUserRejected        Kind = "user_rejected"
	KindReverted            Kind = "reverted"
	KindNetwork             Kind = "network"
	KindOther               Kind = "error"
)

// RevertError carries the contract's revert reason verbatim.
type RevertError struct {
	Contract string
	Method   string
	Reason   string
	TxHash   common.Hash
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error {
	return ErrTransactionReverted
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrUserRejected):
		return KindUserRejected
	case errors.Is(err, ErrTransactionReverted):
		return KindReverted
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return KindUserRejected
	}
	if isRevert(err) {
		return KindReverted
	}
	if isTransport(err) {
		return KindNetwork
	}
	return KindOther
}

// Classify maps an error coming back from the node onto the error taxonomy. parsed is
// the ABI of the contract being called and is used to name custom errors; it may be nil.
func Classify(err error, parsed *abi.ABI, contract, method string) error {
	if err == nil {
		return nil
	}
	var revert *RevertError
	if errors.As(err, &revert) {
		return err
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrUserRejected) || errors.Is(err, ErrNetwork) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return fmt.Errorf("%w: %s", ErrUserRejected, rpcErr.Error())
	}

	if isRevert(err) {
		return &RevertError{Contract: contract, Method: method, Reason: revertReason(err, parsed)}
	}

	return fmt.Errorf("%w: %s %s: %v", ErrNetwork, contract, method, err)
}

// DecodeRevert turns revert data into a reason string: Error(string), Panic(uint256), or
// the name of a custom error declared in parsed.
func DecodeRevert(data []byte, parsed *abi.ABI) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	if parsed == nil {
		return "", false
	}
	for name, e := range parsed.Errors {
		if !bytes.Equal(e.ID[:4], data[:4]) {
			continue
		}
		if len(e.Inputs) == 0 {
			return name, true
		}
		args, err := e.Unpack(data)
		if err != nil {
			return name, true
		}
		return fmt.Sprintf("%s%v", name, args), true
	}
	return "", false
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok && len(s) >= 10 {
			return true
		}
	}
	return strings.Contains(err.Error(), "execution reverted") || strings.Contains(err.Error(), "reverted with")
}

func revertReason(err error, parsed *abi.ABI) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, ok := DecodeRevert(data, parsed); ok {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted:"):])
	}
	if idx := strings.Index(msg, "reverted with reason string"); idx >= 0 {
		return strings.Trim(strings.TrimSpace(msg[idx+len("reverted with reason string"):]), "'\"")
	}
	return ""
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "no such host", "EOF", "i/o timeout", "Too Many Requests"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
