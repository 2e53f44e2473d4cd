// Package server implements the "node" command running the ledger with
// its RPC and monitoring services.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/compactmint/compactmint/cli/options"
	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/core"
	"github.com/compactmint/compactmint/pkg/core/storage"
	"github.com/compactmint/compactmint/pkg/services/metrics"
	"github.com/compactmint/compactmint/pkg/services/rpcsrv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// NewCommands returns the server command of the CLI app.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "start the compactmint node",
			UsageText: "compactmint node --config-path <path> [--debug]",
			Action:    startServer,
			Flags: []cli.Flag{
				options.Config,
				options.Debug,
			},
		},
	}
}

func startServer(ctx *cli.Context) error {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer logCloser()

	return runNode(cfg, log)
}

func runNode(cfg config.Config, log *zap.Logger) error {
	serverErrors := make(chan error)

	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to open the DB: %w", err), 1)
	}
	ledger, err := core.NewLedger(store, cfg.LedgerConfiguration, log)
	if err != nil {
		closeErr := store.Close()
		if closeErr != nil {
			log.Error("failed to close the DB", zap.Error(closeErr))
		}
		return cli.NewExitError(fmt.Errorf("failed to initialize the ledger: %w", err), 1)
	}

	rpcServer := rpcsrv.New(ledger, cfg.ApplicationConfiguration.RPC, log)
	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)

	go func() {
		if err := rpcServer.Start(); err != nil {
			serverErrors <- fmt.Errorf("failed to start RPC server: %w", err)
		}
	}()
	go func() {
		if err := prometheus.Start(); err != nil {
			serverErrors <- fmt.Errorf("failed to start Prometheus service: %w", err)
		}
	}()
	go func() {
		if err := pprof.Start(); err != nil {
			serverErrors <- fmt.Errorf("failed to start pprof service: %w", err)
		}
	}()

	log.Info("node started",
		zap.String("collection", ledger.Name()),
		zap.Uint64("mintIndex", ledger.MintIndex()),
		zap.Uint64("totalSupply", ledger.TotalSupply()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var shutdownErr error
Main:
	for {
		select {
		case err := <-serverErrors:
			shutdownErr = err
			break Main
		case sig := <-sigCh:
			log.Info("shutting down", zap.Stringer("signal", sig))
			break Main
		}
	}

	rpcServer.Shutdown()
	prometheus.ShutDown()
	pprof.ShutDown()
	if err := ledger.Close(); err != nil {
		log.Error("failed to close the ledger", zap.Error(err))
	}

	if shutdownErr != nil {
		return cli.NewExitError(shutdownErr, 1)
	}
	return nil
}
