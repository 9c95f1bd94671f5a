// Package analytics builds the chart series of the dashboard: recent base fees, block
// gas usage and per-block ERC20 transfer volume.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/dappkit/internal/storage"
)

const (
	DefaultBlocks = 10

	headerCacheSize  = 1024
	fetchConcurrency = 8
	scanWindow       = 2000
	maxScanWindows   = 50
	// Blocks this deep are treated as final and may be written to the persistent cache.
	finalityDepth = 64
)

var ErrInvalidCount = errors.New("block count must be positive")

// transferTopic is keccak256("Transfer(address,address,uint256)").
var transferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// Backend is the read-only chain access the charts need. *eth.Client satisfies it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Point is one bar: a block and its value as a decimal string.
type Point struct {
	Block uint64
	Value string
}

type Series struct {
	Name   string
	Points []Point // newest first
}

type Charts struct {
	backend Backend
	headers *lru.Cache[uint64, storage.BlockStat]
	db      *storage.CacheDB
	log     *zap.Logger
}

// New builds the chart service; db may be nil to skip the persistent cache.
func New(backend Backend, db *storage.CacheDB, log *zap.Logger) (*Charts, error) {
	if log == nil {
		log = zap.NewNop()
	}
	headers, err := lru.New[uint64, storage.BlockStat](headerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("header cache: %w", err)
	}
	return &Charts{backend: backend, headers: headers, db: db, log: log.With(zap.String("service", "analytics"))}, nil
}

// BaseFees returns the base fee of the last n blocks in gwei.
func (c *Charts) BaseFees(ctx context.Context, n int) (Series, error) {
	stats, err := c.recentBlocks(ctx, n)
	if err != nil {
		return Series{}, err
	}
	s := Series{Name: "Base Fees"}
	for _, st := range stats {
		fee := decimal.Zero
		if st.BaseFee != nil {
			fee = decimal.NewFromBigInt(st.BaseFee, -9)
		}
		s.Points = append(s.Points, Point{Block: st.Number, Value: fee.String()})
	}
	return s, nil
}

// GasRatios returns gasUsed/gasLimit as a percentage with two decimals for the last n
// blocks.
func (c *Charts) GasRatios(ctx context.Context, n int) (Series, error) {
	stats, err := c.recentBlocks(ctx, n)
	if err != nil {
		return Series{}, err
	}
	s := Series{Name: "Gas Used Ratio"}
	for _, st := range stats {
		s.Points = append(s.Points, Point{Block: st.Number, Value: GasRatio(st.GasUsed, st.GasLimit)})
	}
	return s, nil
}

func GasRatio(used, limit uint64) string {
	if limit == 0 {
		return decimal.Zero.StringFixed(2)
	}
	r := decimal.NewFromInt(int64(used)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(limit)))
	return r.StringFixed(2)
}

// recentBlocks reads the last n headers concurrently, newest first.
func (c *Charts) recentBlocks(ctx context.Context, n int) ([]storage.BlockStat, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	if uint64(n) > head+1 {
		n = int(head + 1)
	}

	out := make([]storage.BlockStat, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			st, err := c.block(gctx, head-uint64(i), head)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Charts) block(ctx context.Context, number, head uint64) (storage.BlockStat, error) {
	if st, ok := c.headers.Get(number); ok {
		return st, nil
	}
	if c.db != nil {
		if st, ok := c.db.GetBlock(number); ok {
			c.headers.Add(number, st)
			return st, nil
		}
	}

	h, err := c.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return storage.BlockStat{}, fmt.Errorf("header %d: %w", number, err)
	}
	st := storage.BlockStat{
		Number:    number,
		BaseFee:   h.BaseFee,
		GasUsed:   h.GasUsed,
		GasLimit:  h.GasLimit,
		Timestamp: h.Time,
	}
	c.headers.Add(number, st)
	if c.db != nil && number+finalityDepth <= head {
		if err := c.db.SetBlock(st); err != nil {
			c.log.Warn("cache block failed", zap.Uint64("block", number), zap.Error(err))
		}
	}
	return st, nil
}

// TransferVolume sums the nonzero Transfer values of token per block and returns the n
// most recent blocks that had any, newest first. Values are scaled by decimals.
func (c *Charts) TransferVolume(ctx context.Context, token common.Address, decimals int32, n int) (Series, error) {
	if n <= 0 {
		return Series{}, ErrInvalidCount
	}
	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return Series{}, fmt.Errorf("block number: %w", err)
	}

	// Windows start on multiples of scanWindow so a full window covers the same range on
	// every run and can be served from the cache once final.
	var found []storage.TransferPoint
	to := head
	for w := 0; w < maxScanWindows && len(found) < n; w++ {
		from := to - to%scanWindow
		points, err := c.transferWindow(ctx, token, from, to, head)
		if err != nil {
			return Series{}, err
		}
		for i := len(points) - 1; i >= 0; i-- {
			found = append(found, points[i])
		}
		if from == 0 {
			break
		}
		to = from - 1
	}
	if len(found) > n {
		found = found[:n]
	}

	s := Series{Name: "Transfers"}
	for _, p := range found {
		s.Points = append(s.Points, Point{Block: p.Block, Value: decimal.NewFromBigInt(p.Value, -decimals).String()})
	}
	return s, nil
}

// transferWindow returns the per-block sums in [from, to], oldest first.
func (c *Charts) transferWindow(ctx context.Context, token common.Address, from, to, head uint64) ([]storage.TransferPoint, error) {
	if c.db != nil {
		points, ok, err := c.db.TransferRange(token, from, to)
		if err != nil {
			c.log.Warn("transfer cache read failed", zap.Error(err))
		} else if ok {
			return points, nil
		}
	}

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{transferTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter transfers %d-%d: %w", from, to, err)
	}
	points := SumTransfers(logs)

	if c.db != nil && to+finalityDepth <= head {
		if err := c.db.SetTransferRange(token, from, to, points); err != nil {
			c.log.Warn("cache transfers failed", zap.Uint64("from", from), zap.Uint64("to", to), zap.Error(err))
		}
	}
	return points, nil
}

// SumTransfers aggregates Transfer logs per block, oldest first. Zero-value and removed
// logs are skipped.
func SumTransfers(logs []types.Log) []storage.TransferPoint {
	sums := make(map[uint64]*big.Int)
	for _, l := range logs {
		if l.Removed || len(l.Topics) == 0 || l.Topics[0] != transferTopic || len(l.Data) < 32 {
			continue
		}
		v := new(big.Int).SetBytes(l.Data[:32])
		if v.Sign() == 0 {
			continue
		}
		if sum, ok := sums[l.BlockNumber]; ok {
			sum.Add(sum, v)
		} else {
			sums[l.BlockNumber] = v
		}
	}

	out := make([]storage.TransferPoint, 0, len(sums))
	for b, v := range sums {
		out = append(out, storage.TransferPoint{Block: b, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out
}
