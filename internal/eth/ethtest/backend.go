// Package ethtest is an in-process chain backend for tests. Contracts are registered by
// ABI; calldata is decoded and routed to per-method handlers, so services can be driven
// end to end through the real bind runtime without a node.
//
// Handlers run twice for a write: once for gas estimation (Call.Estimate set) and once
// when the transaction is mined. A handler that fails only when mined produces a receipt
// with status 0; one that fails in both phases is rejected before sending.
package ethtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

var (
	DefaultChainID = big.NewInt(1337)
	defaultBaseFee = big.NewInt(params.GWei)
)

// Call is one decoded contract invocation.
type Call struct {
	From     common.Address
	To       common.Address
	Method   string
	Args     []interface{}
	Value    *big.Int
	Block    uint64
	Estimate bool

	contract *contract
	logs     []*types.Log
	isRead   bool
}

func (c *Call) read() bool { return c.isRead }

// Mined reports whether this run is the transaction being included, the only run in
// which a handler should change state.
func (c *Call) Mined() bool { return !c.isRead && !c.Estimate }

// Emit appends a log for event to the receipt of the transaction being mined. indexed
// are the topic values after the event id; data are the non-indexed values in order.
func (c *Call) Emit(event string, indexed []common.Hash, data ...interface{}) error {
	ev, ok := c.contract.abi.Events[event]
	if !ok {
		return fmt.Errorf("no event %s", event)
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", event, err)
	}
	topics := append([]common.Hash{ev.ID}, indexed...)
	c.logs = append(c.logs, &types.Log{Address: c.To, Topics: topics, Data: packed})
	return nil
}

// Handler returns the method's outputs in ABI order, or an error to revert.
type Handler func(c *Call) ([]interface{}, error)

type contract struct {
	abi      abi.ABI
	handlers map[string]Handler
}

// Sent is a transaction accepted by SendTransaction.
type Sent struct {
	Tx      *types.Transaction
	Call    Call
	Receipt *types.Receipt
}

type Backend struct {
	mu sync.Mutex

	chainID   *big.Int
	contracts map[common.Address]*contract
	balances  map[common.Address]*big.Int
	headers   []*types.Header
	logs      []types.Log
	receipts  map[common.Hash]*types.Receipt
	sent      []Sent
	reads     []Call
	requests  int
	down      error
}

func New() *Backend {
	b := &Backend{
		chainID:   new(big.Int).Set(DefaultChainID),
		contracts: make(map[common.Address]*contract),
		balances:  make(map[common.Address]*big.Int),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
	b.headers = append(b.headers, &types.Header{
		Number:   big.NewInt(0),
		BaseFee:  new(big.Int).Set(defaultBaseFee),
		GasLimit: 30_000_000,
	})
	return b
}

// Deploy registers a contract at addr. It panics on a bad ABI; tests pass package constants.
func (b *Backend) Deploy(addr common.Address, abiJSON string) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("ethtest: parse abi: %v", err))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[addr] = &contract{abi: parsed, handlers: make(map[string]Handler)}
}

func (b *Backend) Handle(addr common.Address, method string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.contracts[addr]
	if !ok {
		panic(fmt.Sprintf("ethtest: no contract at %s", addr.Hex()))
	}
	c.handlers[method] = h
}

// Return makes method always return values.
func (b *Backend) Return(addr common.Address, method string, values ...interface{}) {
	b.Handle(addr, method, func(*Call) ([]interface{}, error) { return values, nil })
}

// Fail makes method always revert with err.
func (b *Backend) Fail(addr common.Address, method string, err error) {
	b.Handle(addr, method, func(*Call) ([]interface{}, error) { return nil, err })
}

// SetDown makes every request fail with err until cleared with nil.
func (b *Backend) SetDown(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = err
}

func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Set(wei)
}

// AddBlock appends a header on top of the chain; Number is filled in when nil.
func (b *Backend) AddBlock(h *types.Header) *types.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendHeader(h)
}

func (b *Backend) appendHeader(h *types.Header) *types.Header {
	h = types.CopyHeader(h)
	h.Number = new(big.Int).SetUint64(uint64(len(b.headers)))
	if h.GasLimit == 0 {
		h.GasLimit = 30_000_000
	}
	if h.BaseFee == nil {
		h.BaseFee = new(big.Int).Set(defaultBaseFee)
	}
	b.headers = append(b.headers, h)
	return h
}

// AddLog stores a log for FilterLogs.
func (b *Backend) AddLog(l types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, l)
}

// Sent returns the transactions accepted so far.
func (b *Backend) Sent() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Sent(nil), b.sent...)
}

// SentMethods lists the method of every accepted transaction in order.
func (b *Backend) SentMethods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.sent))
	for i, s := range b.sent {
		out[i] = s.Call.Method
	}
	return out
}

// Reads returns the eth_call invocations seen so far.
func (b *Backend) Reads() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.reads...)
}

// Requests counts every backend method invoked.
func (b *Backend) Requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func (b *Backend) head() *types.Header {
	return b.headers[len(b.headers)-1]
}

// enter counts a request and reports the injected outage, if any. Callers hold b.mu.
func (b *Backend) enter() error {
	b.requests++
	return b.down
}

func (b *Backend) decode(to common.Address, data []byte) (*contract, *abi.Method, []interface{}, error) {
	c, ok := b.contracts[to]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	if len(data) < 4 {
		return nil, nil, nil, errors.New("calldata too short")
	}
	m, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unpack %s args: %w", m.Name, err)
	}
	return c, m, args, nil
}

// run executes a handler with b.mu released so handlers may call back into the backend.
// Writes without a handler succeed.
func (b *Backend) run(c *contract, m *abi.Method, call *Call) ([]interface{}, error) {
	h := c.handlers[m.Name]
	if h == nil {
		if call.read() && len(m.Outputs) > 0 {
			return nil, fmt.Errorf("ethtest: no handler for %s", m.Name)
		}
		return nil, nil
	}

	b.mu.Unlock()
	defer b.mu.Lock()
	return h(call)
}

func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if _, ok := b.contracts[account]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errors.New("ethtest: contract creation not supported")
	}
	c, m, args, err := b.decode(*msg.To, msg.Data)
	if err != nil {
		return nil, err
	}

	call := Call{From: msg.From, To: *msg.To, Method: m.Name, Args: args, Value: msg.Value, Block: b.head().Number.Uint64(), contract: c}
	if blockNumber != nil {
		call.Block = blockNumber.Uint64()
	}
	call.isRead = true
	b.reads = append(b.reads, call)
	values, err := b.run(c, m, &call)
	if err != nil {
		return nil, err
	}
	return m.Outputs.Pack(values...)
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	var n uint64
	for _, s := range b.sent {
		if s.Call.From == account {
			n++
		}
	}
	return n, nil
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if number == nil {
		return types.CopyHeader(b.head()), nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(b.headers)) {
		return nil, ethereum.NotFound
	}
	return types.CopyHeader(b.headers[number.Uint64()]), nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	if msg.To == nil {
		return 0, errors.New("ethtest: contract creation not supported")
	}
	c, m, args, err := b.decode(*msg.To, msg.Data)
	if err != nil {
		return 0, err
	}
	call := Call{From: msg.From, To: *msg.To, Method: m.Name, Args: args, Value: msg.Value, Block: b.head().Number.Uint64() + 1, Estimate: true, contract: c}
	if _, err := b.run(c, m, &call); err != nil {
		return 0, err
	}
	return 100_000, nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return new(big.Int).Mul(defaultBaseFee, big.NewInt(2)), nil
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return big.NewInt(params.GWei), nil
}

// SendTransaction mines tx immediately in a block of its own.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return err
	}
	if tx.To() == nil {
		return errors.New("ethtest: contract creation not supported")
	}
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	c, m, args, err := b.decode(*tx.To(), tx.Data())
	if err != nil {
		return err
	}

	header := b.appendHeader(&types.Header{GasUsed: 100_000, Time: uint64(len(b.headers)) * 12})
	call := Call{From: from, To: *tx.To(), Method: m.Name, Args: args, Value: tx.Value(), Block: header.Number.Uint64(), contract: c}
	_, runErr := b.run(c, m, &call)

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     100_000,
		BlockNumber: new(big.Int).Set(header.Number),
		BlockHash:   header.Hash(),
	}
	if runErr != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		for i, l := range call.logs {
			l.BlockNumber = header.Number.Uint64()
			l.TxHash = tx.Hash()
			l.Index = uint(i)
			receipt.Logs = append(receipt.Logs, l)
			b.logs = append(b.logs, *l)
		}
	}

	b.receipts[tx.Hash()] = receipt
	b.sent = append(b.sent, Sent{Tx: tx, Call: call, Receipt: receipt})
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}

	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if !matchTopics(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *Backend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("ethtest: subscriptions not supported")
}

func (b *Backend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if v, ok := b.balances[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	return b.head().Number.Uint64(), nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func matchTopics(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		match := false
		for _, t := range alts {
			if t == topics[i] {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}
