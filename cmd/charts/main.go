package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/pulkyeet/dappkit/internal/analytics"
	"github.com/pulkyeet/dappkit/internal/config"
	"github.com/pulkyeet/dappkit/internal/eth"
	"github.com/pulkyeet/dappkit/internal/logger"
	"github.com/pulkyeet/dappkit/internal/storage"
)

func main() {
	blocks := flag.Int("blocks", analytics.DefaultBlocks, "number of recent blocks to chart")
	token := flag.String("token", "DAI", "token for the transfer volume chart (DAI or WETH)")
	cachePath := flag.String("cache", "", "sqlite cache for final blocks and transfer scans (defaults to CACHE_DB)")
	out := flag.String("out", "", "write every series to this parquet file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	info, ok := eth.KnownTokens[strings.ToUpper(*token)]
	if !ok {
		log.Fatalf("unsupported token: %s (use DAI or WETH)", *token)
	}

	ctx := context.Background()
	client, err := eth.Dial(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		log.Fatalf("failed to connect to Ethereum: %v", err)
	}
	defer client.Close()

	var db *storage.CacheDB
	if path := firstNonEmpty(*cachePath, cfg.CacheDB); path != "" {
		db, err = storage.NewCacheDB(path)
		if err != nil {
			log.Fatalf("failed to open cache: %v", err)
		}
		defer db.Close()
	}

	charts, err := analytics.New(client, db, zl)
	if err != nil {
		log.Fatalf("charts: %v", err)
	}

	fees, err := charts.BaseFees(ctx, *blocks)
	if err != nil {
		log.Fatalf("base fees: %v", err)
	}
	ratios, err := charts.GasRatios(ctx, *blocks)
	if err != nil {
		log.Fatalf("gas ratios: %v", err)
	}
	volume, err := charts.TransferVolume(ctx, info.Address, int32(info.Decimals), *blocks)
	if err != nil {
		log.Fatalf("transfer volume: %v", err)
	}
	volume.Name = info.Symbol + " " + volume.Name

	printSeries(fees, "gwei")
	printSeries(ratios, "%")
	printSeries(volume, info.Symbol)

	if *out != "" {
		n, err := analytics.Export(*out, fees, ratios, volume)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		fmt.Printf("\nwrote %d rows to %s\n", n, *out)
	}

	if db != nil {
		stats, err := db.GetStats()
		if err == nil {
			zl.Debug("cache stats", zap.Any("stats", stats))
		}
	}
}

func printSeries(s analytics.Series, unit string) {
	fmt.Printf("\n%s:\n", s.Name)
	fmt.Println(strings.Repeat("=", len(s.Name)+1))
	if len(s.Points) == 0 {
		fmt.Println("  (no data)")
		return
	}
	for _, p := range s.Points {
		fmt.Printf("  block %d: %s %s\n", p.Block, p.Value, unit)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
