// Package main запускает HTTP-сервер аукциона с эскроу.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/escrow-auction/internal/auction"
	"github.com/mmeshcher/escrow-auction/internal/config"
	"github.com/mmeshcher/escrow-auction/internal/handler"
	"github.com/mmeshcher/escrow-auction/internal/middleware"
	"github.com/mmeshcher/escrow-auction/internal/notify"
	"github.com/mmeshcher/escrow-auction/internal/observability"
	"github.com/mmeshcher/escrow-auction/internal/repository"
	"github.com/mmeshcher/escrow-auction/internal/service"
	"github.com/mmeshcher/escrow-auction/internal/transfer"
)

const notificationBuffer = 1024

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	metrics := observability.NewMetrics()
	hub := notify.NewHub(logger)
	sinks := []notify.Sink{hub}

	var journal service.Journal
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		journal = repo
		sinks = append(sinks, notify.SinkFunc("journal", repo.SaveEvents))
	} else {
		sugar.Warn("DATABASE_URI is not set, running without event journal")
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("escrow-auction"))
		if err != nil {
			sugar.Fatalw("nats connection error", "error", err.Error())
		}
		defer nc.Drain()

		js, err := jetstream.New(nc)
		if err != nil {
			sugar.Fatalw("jetstream initialization error", "error", err.Error())
		}

		streamCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = notify.EnsureStream(streamCtx, js)
		cancel()
		if err != nil {
			sugar.Fatalw("jetstream stream setup error", "error", err.Error())
		}
		sinks = append(sinks, notify.NewNATSSink(js))
	}

	fanout := notify.NewFanout(logger, notificationBuffer, sinks...)
	fanout.OnSinkError = func(sink string, err error) {
		metrics.SinkErrors.WithLabelValues(sink).Inc()
	}

	auctionCfg := auction.NewConfig(cfg.Owner, cfg.Seller, cfg.Item, cfg.StartTime, cfg.Duration)
	auctionCfg.ExtensionWindow = cfg.ExtensionWindow

	svc, err := service.NewService(auctionCfg, transfer.NewClient(cfg.TransferServiceAddress), fanout, journal, metrics, logger)
	if err != nil {
		sugar.Fatalw("auction initialization error", "error", err.Error())
	}
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, tokens are valid until restart")
	}
	h := handler.NewHandler(svc, logger, authMiddleware, hub, metrics.Handler())

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Доставка уведомлений живёт дольше сервера, чтобы досылать события последних запросов.
	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()

	g.Go(func() error {
		return fanout.Run(fanoutCtx)
	})

	g.Go(func() error {
		svc.RunFinalizeWatcher(ctx, cfg.FinalizeInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting auction server",
			"addr", cfg.RunAddress,
			"owner", cfg.Owner,
			"seller", cfg.Seller,
			"start", auctionCfg.StartTime,
			"end", auctionCfg.EndTime)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		stopFanout()
		if err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
