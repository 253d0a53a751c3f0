package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	assetrepo "depot/internal/assets/repository"
	assetservice "depot/internal/assets/service"
	maintrepo "depot/internal/maintenance/repository"
	resrepo "depot/internal/reservations/repository"
	"depot/pkg/config"
	"depot/pkg/kafka"
	kafka_config "depot/pkg/kafka/config"
)

const (
	ServiceName = "resync"

	resyncTopic    = "asset-status-resync"
	resyncDLQTopic = "asset-status-resync-dlq"
)

// One-shot reconciliation pass, meant for cron or manual invocation. The
// same logic is reachable over HTTP on the assets service.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	notifier, closeProducer := initNotifier(cfg)
	defer closeProducer()

	counters := assetrepo.NewMongoCounterRepository(cfg)
	engine := assetservice.NewResyncService(
		assetrepo.NewMongoAssetRepository(cfg, counters),
		maintrepo.NewMongoTaskRepository(cfg),
		resrepo.NewMongoLoanRepository(cfg),
		notifier,
		cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.Resync(ctx)
	if err != nil {
		cfg.Log.Error("Reconciliation pass failed", "error", err)
		return 1
	}

	cfg.Log.Info("Reconciliation pass finished",
		"scanned", report.Scanned,
		"corrected", report.Corrected,
	)
	return 0
}

func initNotifier(cfg *config.Config) (assetservice.ResyncNotifier, func()) {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, reconciliation notifications disabled")
		return assetservice.NoopResyncNotifier{}, func() {}
	}

	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, resyncTopic, resyncDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	return assetservice.NewKafkaResyncNotifier(producer, ServiceName), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
