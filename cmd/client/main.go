package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/studiosync/internal/buildinfo"
	"github.com/dmitrijs2005/studiosync/internal/client/cli"
	"github.com/dmitrijs2005/studiosync/internal/client/config"
	"github.com/dmitrijs2005/studiosync/internal/client/engine"
	"github.com/dmitrijs2005/studiosync/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cli.NewApp(e).Run(ctx)

	if err := e.Close(context.Background()); err != nil {
		logger.Error(ctx, "shutdown", "error", err)
	}
}
