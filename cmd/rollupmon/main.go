package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/rollupmon/rollupmon/config"
	"github.com/rollupmon/rollupmon/flags"
	"github.com/rollupmon/rollupmon/monitor"
	"github.com/rollupmon/rollupmon/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "rollupmon"
	app.Usage = "Monitors L2 rollup settlement activity on Ethereum L1"
	app.Version = version.SimpleWithMeta
	app.Flags = flags.Flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	logger, err := newLogger(cliCtx.String(flags.LogLevelFlag.Name))
	if err != nil {
		return err
	}
	if err := flags.CheckRequired(cliCtx); err != nil {
		return err
	}
	cfg, err := config.NewConfig(cliCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := monitor.NewService(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return svc.Stop(stopCtx)
}

func newLogger(lvlStr string) (log.Logger, error) {
	lvl, err := levelFromString(lvlStr)
	if err != nil {
		return nil, err
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)
	return log.NewLogger(handler), nil
}

func levelFromString(lvlStr string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvlStr)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelDebug, fmt.Errorf("unknown log level: %q", lvlStr)
	}
}
