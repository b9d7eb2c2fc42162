package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/imageboard-client/internal/app"
	"github.com/samvad-hq/imageboard-client/internal/config"
	"github.com/samvad-hq/imageboard-client/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "boardctl failed: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("boardctl", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	// Global flags stop at the command name; the rest belongs to the command.
	fs.SetInterspersed(false)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console, err := app.NewConsole(cfg, os.Stdout, log)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		console.Usage()
		return fmt.Errorf("%w: no command given", app.ErrUsage)
	}
	return console.Run(ctx, fs.Args())
}
