// Package storage persists chart inputs that never change once a block is final: header
// stats and per-block token transfer volume.
package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

type CacheDB struct {
	db *sql.DB
}

func NewCacheDB(dbPath string) (*CacheDB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	return &CacheDB{db: db}, nil
}

func (c *CacheDB) Close() error {
	return c.db.Close()
}

// BlockStat is the part of a header the charts plot.
type BlockStat struct {
	Number    uint64
	BaseFee   *big.Int
	GasUsed   uint64
	GasLimit  uint64
	Timestamp uint64
}

func (c *CacheDB) GetBlock(number uint64) (BlockStat, bool) {
	var (
		baseFee string
		s       = BlockStat{Number: number}
	)
	err := c.db.QueryRow(
		"SELECT base_fee, gas_used, gas_limit, timestamp FROM block_stats WHERE block_number = ?",
		number,
	).Scan(&baseFee, &s.GasUsed, &s.GasLimit, &s.Timestamp)
	if err != nil {
		return BlockStat{}, false
	}

	fee, ok := new(big.Int).SetString(baseFee, 10)
	if !ok {
		return BlockStat{}, false
	}
	s.BaseFee = fee
	return s, true
}

func (c *CacheDB) SetBlock(s BlockStat) error {
	return c.BatchSetBlocks([]BlockStat{s})
}

func (c *CacheDB) BatchSetBlocks(stats []BlockStat) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO block_stats (block_number, base_fee, gas_used, gas_limit, timestamp) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		fee := "0"
		if s.BaseFee != nil {
			fee = s.BaseFee.String()
		}
		if _, err := stmt.Exec(s.Number, fee, s.GasUsed, s.GasLimit, s.Timestamp); err != nil {
			return fmt.Errorf("insert block %d: %w", s.Number, err)
		}
	}
	return tx.Commit()
}

// TransferPoint is the summed Transfer value of one token in one block.
type TransferPoint struct {
	Block uint64
	Value *big.Int
}

var ErrBadRange = errors.New("from block is after to block")

// TransferRange returns the cached points for token in [from, to], oldest first. ok is
// false unless one recorded scan covers the whole range.
func (c *CacheDB) TransferRange(token common.Address, from, to uint64) ([]TransferPoint, bool, error) {
	if from > to {
		return nil, false, ErrBadRange
	}
	var covered int
	err := c.db.QueryRow(
		"SELECT COUNT(*) FROM transfer_scans WHERE token = ? AND from_block <= ? AND to_block >= ?",
		token.Hex(), from, to,
	).Scan(&covered)
	if err != nil {
		return nil, false, err
	}
	if covered == 0 {
		return nil, false, nil
	}

	rows, err := c.db.Query(
		"SELECT block_number, value FROM transfer_volume WHERE token = ? AND block_number BETWEEN ? AND ? ORDER BY block_number",
		token.Hex(), from, to,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []TransferPoint
	for rows.Next() {
		var (
			p   TransferPoint
			raw string
		)
		if err := rows.Scan(&p.Block, &raw); err != nil {
			return nil, false, err
		}
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, false, fmt.Errorf("bad transfer value %q at block %d", raw, p.Block)
		}
		p.Value = v
		out = append(out, p)
	}
	return out, true, rows.Err()
}

// SetTransferRange stores the points found scanning [from, to] and records the scan, so
// blocks in the range without a point are known to have no transfers.
func (c *CacheDB) SetTransferRange(token common.Address, from, to uint64, points []TransferPoint) error {
	if from > to {
		return ErrBadRange
	}
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO transfer_volume (token, block_number, value) VALUES (?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if p.Block < from || p.Block > to {
			return fmt.Errorf("block %d outside scanned range %d-%d", p.Block, from, to)
		}
		if _, err := stmt.Exec(token.Hex(), p.Block, p.Value.String()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO transfer_scans (token, from_block, to_block) VALUES (?, ?, ?)",
		token.Hex(), from, to,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetStats counts rows per table for the CLI's cache report.
func (c *CacheDB) GetStats() (map[string]int64, error) {
	stats := make(map[string]int64)
	for key, table := range map[string]string{
		"block_entries":    "block_stats",
		"transfer_entries": "transfer_volume",
		"transfer_scans":   "transfer_scans",
	} {
		var count int64
		if err := c.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, err
		}
		stats[key] = count
	}
	return stats, nil
}
