// Package options contains a set of common CLI options and helper
// functions to use them.
package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/rpcclient"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout used by RPC client requests.
const DefaultTimeout = 10 * time.Second

// RPC is a set of CLI flags for commands talking to a running node.
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  "rpc-endpoint, r",
		Usage: "RPC node address",
		Value: "http://localhost:10332",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Usage: "Timeout for the operation",
		Value: DefaultTimeout,
	},
}

// Config is a CLI flag for commands needing the node configuration file.
var Config = cli.StringFlag{
	Name:  "config-path",
	Usage: "path to the node configuration file",
}

// Debug is a CLI flag overriding the configured log level to debug.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output)",
}

// GetConfigFromContext reads the configuration file named by the CLI
// context.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config-path")
	if path == "" {
		return config.Config{}, errors.New("missing --config-path flag")
	}
	return config.LoadFile(path)
}

// GetRPCClient returns an RPC client instance for the given CLI context.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String("rpc-endpoint")
	if endpoint == "" {
		return nil, cli.NewExitError("missing --rpc-endpoint flag", 1)
	}
	c := rpcclient.New(gctx, endpoint, rpcclient.Options{
		RequestTimeout: ctx.Duration("timeout"),
	})
	return c, nil
}

// GetTimeoutContext returns a context for RPC commands, cancelled both
// on timeout and on SIGINT/SIGTERM.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	timeout := ctx.Duration("timeout")
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(context.Background(), timeout)
	sctx, scancel := signal.NotifyContext(tctx, syscall.SIGINT, syscall.SIGTERM)
	return sctx, func() {
		scancel()
		cancel()
	}
}

// GetSignalContext returns a context cancelled on SIGINT/SIGTERM, for
// open-ended commands the timeout flag doesn't apply to.
func GetSignalContext() (context.Context, func()) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// HandleLoggingParams reads logging parameters from the application
// configuration. If a log path is configured, logs are written into the
// file, otherwise to stdout. Returns the logger and a closer that has to
// be called on exit to flush it.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting LogLevel is invalid: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if cfg.LogPath != "" {
		if err := makeDir(cfg.LogPath); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{cfg.LogPath}
	}

	log, err := cc.Build()
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

func makeDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create dir for logger: %w", err)
	}
	return nil
}
