package main

import (
	"context"
	"github.com/ariefcatur/clinic-orders/internal/config"
	"github.com/ariefcatur/clinic-orders/internal/inventory"
	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/logging"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("clinic-stockwatch")
	if err != nil {
		bootLog := logging.New("production", "info", "clinic-stockwatch")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for low-stock alerts
	alerts := kafkax.NewProducer(cfg.KafkaBrokers(), orders.TopicStockLow, 256, log)
	alerts.Start(ctx)

	svc := &inventory.Service{
		Redis:       rdb,
		Alerts:      alerts,
		ServiceName: cfg.ServiceName,
		Log:         log,
	}

	if low, err := svc.LowStock(ctx); err != nil {
		log.Warn().Err(err).Msg("read low-stock set")
	} else {
		log.Info().Strs("medicine_ids", low).Msg("medicines at or below threshold")
	}

	// One consumer per source topic, same group and handler
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{orders.TopicAdministrationCommitted, orders.TopicStockRestocked} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers(), cfg.StockwatchGroup, topic, cfg.StockwatchWorkers, log)
		g.Go(func() error { return cons.Start(gctx, svc.HandleMessage) })
	}
	log.Info().Str("group", cfg.StockwatchGroup).Int("workers", cfg.StockwatchWorkers).Msg("stockwatch started")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("shutting down")
	alerts.Close()
	alerts.WaitClosed()
}
