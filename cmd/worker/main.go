package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/f-lab-edu/stock-simulator/internal/app/engine"
	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/logger"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	config.MustLoad(cfg)

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	log = l
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	engine, err := app.NewEngine(ctx, cfg, log)
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "init_engine",
		})
		return
	}

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	sig := <-sigChan
	log.Info("received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}
}
