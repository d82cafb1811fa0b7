package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/clinic-orders/internal/auth"
	"github.com/ariefcatur/clinic-orders/internal/config"
	"github.com/ariefcatur/clinic-orders/internal/httpx"
	kafkax "github.com/ariefcatur/clinic-orders/internal/kafka"
	"github.com/ariefcatur/clinic-orders/internal/logging"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/postgres"
	"github.com/ariefcatur/clinic-orders/internal/redisx"
	"github.com/joho/godotenv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("clinic-api")
	if err != nil {
		bootLog := logging.New("production", "info", "clinic-api")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, postgres.PoolConfig{
		DSN: cfg.PostgresDSN, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if n, err := postgres.Migrate(ctx, db, postgres.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	} else if n > 0 {
		log.Info().Int("applied", n).Msg("migrations applied")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	committed := kafkax.NewProducer(cfg.KafkaBrokers(), orders.TopicAdministrationCommitted, 1024, log)
	committed.Start(ctx)
	restocked := kafkax.NewProducer(cfg.KafkaBrokers(), orders.TopicStockRestocked, 256, log)
	restocked.Start(ctx)

	api := &httpx.API{
		Catalog:         &orders.CatalogRepo{DB: db},
		Administrations: &orders.AdministrationRepo{DB: db},
		Stock:           &orders.StockRepo{DB: db},
		Reports:         &orders.ReportRepo{DB: db},
		Users:           &orders.UserRepo{DB: db},
		Issuer:          auth.NewIssuer(cfg.Secret(), cfg.ServiceName, cfg.TokenTTL),
		Redis:           rdb,
		Committed:       committed,
		Restocked:       restocked,
		Service:         cfg.ServiceName,
		CatalogTTL:      cfg.CatalogCacheTTL,
		Log:             log,
	}
	router := httpx.NewRouter(log)
	api.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	committed.Close()
	restocked.Close()
	committed.WaitClosed()
	restocked.WaitClosed()
}
