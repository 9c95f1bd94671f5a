package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/pulkyeet/dappkit/internal/forms"
)

func main() {
	app := &cli.App{
		Name:  "dappctl",
		Usage: "Drive the stablecoin, Circles, NFT and staking contracts from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address (e.g. :9102)",
				EnvVars: []string{"METRICS_ADDR"},
			},
		},
		Before: startMetrics,
		Commands: []*cli.Command{
			walletCmd,
			mscCmd,
			circlesCmd,
			nftCmd,
			stakingCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func startMetrics(c *cli.Context) error {
	addr := c.String("metrics-addr")
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(os.Stderr, "metrics server:", err)
		}
	}()
	return nil
}

// report prints a form message; error messages become the command's exit error.
func report(m forms.Message) error {
	if m.Text == "" {
		return nil
	}
	if m.IsError() {
		return cli.Exit(m.Text, 1)
	}
	fmt.Println(m.Text)
	return nil
}
