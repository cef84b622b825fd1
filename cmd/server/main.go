package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/studiosync/internal/buildinfo"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server"
	"github.com/dmitrijs2005/studiosync/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup", "error", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
	}
}
