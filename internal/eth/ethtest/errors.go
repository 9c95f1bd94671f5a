package ethtest

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RPCError mimics a JSON-RPC error object as returned by geth's rpc client.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string          { return e.Message }
func (e *RPCError) ErrorCode() int         { return e.Code }
func (e *RPCError) ErrorData() interface{} { return e.Data }

// Revert builds the error a node returns for require(false, reason).
func Revert(reason string) error {
	str, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: str}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	data := append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)
	return &RPCError{Code: 3, Message: "execution reverted: " + reason, Data: hexutil.Encode(data)}
}

// CustomError builds the error a node returns for a Solidity custom error declared in abiJSON.
func CustomError(abiJSON, name string, args ...interface{}) error {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	e, ok := parsed.Errors[name]
	if !ok {
		panic(fmt.Sprintf("ethtest: no error %s", name))
	}
	packed, err := e.Inputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	data := append(append([]byte{}, e.ID[:4]...), packed...)
	return &RPCError{Code: 3, Message: "execution reverted", Data: hexutil.Encode(data)}
}

// Rejected is the error a wallet returns when the user declines a request.
func Rejected() error {
	return &RPCError{Code: 4001, Message: "User denied transaction signature."}
}
