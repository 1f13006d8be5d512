package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"bandmon-server/internal/collector/netio"
	"bandmon-server/internal/config"
	"bandmon-server/internal/core"
	"bandmon-server/internal/domain"
	"bandmon-server/internal/logger"
	"bandmon-server/internal/storage/sqlite"
	"bandmon-server/internal/transport/rest"
	"bandmon-server/internal/transport/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	clk := clock.New()

	iface := cfg.Interface
	if iface == "" {
		iface = netio.DetectDefaultInterface(log)
	}

	db, err := sqlite.NewDB(cfg.DBPath, log)
	if err != nil {
		log.Error("sqlite", "connect", err)
		return
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("sqlite", "close", err)
		}
	}()

	usageRepo := sqlite.NewUsageRepository(db)
	hub := websocket.NewHub(log)

	monitor := core.NewMonitor(core.MonitorOptions{
		Interface:      iface,
		Source:         netio.NewSource(iface),
		SampleInterval: cfg.SampleInterval,
		MaxSamples:     cfg.MaxSamples(),
		Clock:          clk,
		Log:            log,
		Sink: func(snap domain.BandwidthSnapshot) {
			hub.Emit("bandwidth.sample", snap)
		},
	})

	if usage, err := usageRepo.Load(ctx, core.MonthKey(clk.Now())); err == nil {
		monitor.Restore(usage)
		log.Info("restored monthly usage", "month", usage.Month, "bytes_sent", usage.BytesSent, "bytes_recv", usage.BytesRecv)
	} else if !errors.Is(err, domain.ErrUsageNotFound) {
		log.Error("monthly usage load failed, starting fresh", "error", err)
	}

	flusher := core.NewScheduler(cfg.PersistInterval, clk, log,
		func(context.Context) domain.MonthlyUsage {
			return monitor.MonthlySnapshot()
		},
		func(ctx context.Context, usage domain.MonthlyUsage) {
			if err := usageRepo.Save(ctx, usage); err != nil {
				log.Error("monthly usage save failed", "error", err)
			}
		})

	go monitor.Run(ctx)
	go flusher.Start(ctx)
	go hub.Run()

	wsHandler := websocket.NewHandler(hub, cfg, log)
	statsHandler := rest.NewStatsHandler(monitor)

	router := rest.NewRouter(cfg, &rest.RouterDeps{
		Stats:   statsHandler,
		WS:      wsHandler,
		Monitor: monitor,
	})

	srv := rest.NewServer(router, cfg.Address)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "address", cfg.Address, "interface", iface)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown error", "error", err)
		}

	case err := <-errCh:
		log.Error("http server error", "error", err)
	}

	// Last flush so at most one persist interval of usage is lost.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := usageRepo.Save(flushCtx, monitor.MonthlySnapshot()); err != nil {
		log.Error("final monthly usage save failed", "error", err)
	}

	log.Info("server stopped")
}
