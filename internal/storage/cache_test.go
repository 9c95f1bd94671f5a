package storage

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T) *CacheDB {
	t.Helper()
	c, err := NewCacheDB(filepath.Join(t.TempDir(), "nested", "charts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBlockStats(t *testing.T) {
	c := openCache(t)

	_, ok := c.GetBlock(10)
	assert.False(t, ok)

	want := BlockStat{Number: 10, BaseFee: big.NewInt(12_345_678_901), GasUsed: 15_000_000, GasLimit: 30_000_000, Timestamp: 1_700_000_000}
	require.NoError(t, c.SetBlock(want))
	got, ok := c.GetBlock(10)
	require.True(t, ok)
	assert.Equal(t, want, got)

	want.GasUsed = 1
	require.NoError(t, c.BatchSetBlocks([]BlockStat{want, {Number: 11}}))
	got, _ = c.GetBlock(10)
	assert.Equal(t, uint64(1), got.GasUsed)
	got, ok = c.GetBlock(11)
	require.True(t, ok)
	assert.Zero(t, got.BaseFee.Sign())
}

func TestTransferRange(t *testing.T) {
	c := openCache(t)
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	_, ok, err := c.TransferRange(token, 100, 200)
	require.NoError(t, err)
	assert.False(t, ok)

	points := []TransferPoint{{Block: 120, Value: big.NewInt(5)}, {Block: 180, Value: big.NewInt(7)}}
	require.NoError(t, c.SetTransferRange(token, 100, 200, points))

	got, ok, err := c.TransferRange(token, 100, 200)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, points, got)

	got, ok, err = c.TransferRange(token, 150, 160)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok, err = c.TransferRange(token, 150, 250)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = c.TransferRange(common.Address{1}, 100, 200)
	assert.False(t, ok)
}

func TestTransferRangeValidation(t *testing.T) {
	c := openCache(t)
	token := common.Address{1}

	assert.ErrorIs(t, c.SetTransferRange(token, 5, 4, nil), ErrBadRange)
	_, _, err := c.TransferRange(token, 5, 4)
	assert.ErrorIs(t, err, ErrBadRange)

	err = c.SetTransferRange(token, 10, 20, []TransferPoint{{Block: 30, Value: big.NewInt(1)}})
	assert.Error(t, err)
	_, ok, _ := c.TransferRange(token, 10, 20)
	assert.False(t, ok)
}

func TestGetStats(t *testing.T) {
	c := openCache(t)
	require.NoError(t, c.BatchSetBlocks([]BlockStat{{Number: 1}, {Number: 2}}))
	require.NoError(t, c.SetTransferRange(common.Address{1}, 1, 2, []TransferPoint{{Block: 2, Value: big.NewInt(3)}}))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"block_entries": 2, "transfer_entries": 1, "transfer_scans": 1}, stats)
}
