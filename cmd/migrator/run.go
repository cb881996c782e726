package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	apiserver "github.com/wm2snap/migrator/internal/api_server"
	"github.com/wm2snap/migrator/internal/client"
	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/events"
	"github.com/wm2snap/migrator/internal/service"
	"github.com/wm2snap/migrator/internal/store"
	"github.com/wm2snap/migrator/pkg/log"
	"github.com/wm2snap/migrator/pkg/metrics"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the migrator web service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting migrator")
		defer zap.S().Info("migrator stopped")
		zap.S().Infof("Using config: %s", cfg)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		zap.S().Info("Initializing history store")
		history, err := store.New(cfg)
		if err != nil {
			zap.S().Fatalw("initializing history store", "error", err)
		}
		defer func() { _ = history.Close() }()

		estimationSrv, err := service.NewEstimationService(ctx, history)
		if err != nil {
			zap.S().Fatalw("loading history", "error", err)
		}

		if err := metrics.RegisterHistoryCollector(estimationSrv); err != nil {
			zap.S().Fatalw("registering history collector", "error", err)
		}

		migrationSrv := service.NewMigrationService(
			client.NewMigrationClient(cfg.SnapLogic.URL, cfg.SnapLogic.BearerToken, cfg.SnapLogic.Timeout),
			estimationSrv,
		)

		if cfg.Service.EventsEnabled {
			producer := events.NewEventProducer(&events.LogWriter{}, events.WithOutputTopic(cfg.Service.EventsTopic))
			defer func() { _ = producer.Close() }()
			migrationSrv.WithEventPublisher(producer)
		}

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, estimationSrv, migrationSrv, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("Error running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
