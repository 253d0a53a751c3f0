package main

import (
	assethandler "depot/internal/assets/handler"
	assetrepo "depot/internal/assets/repository"
	assetservice "depot/internal/assets/service"
	assetvalidator "depot/internal/assets/validator"
	mainthandler "depot/internal/maintenance/handler"
	maintrepo "depot/internal/maintenance/repository"
	maintservice "depot/internal/maintenance/service"
	maintvalidator "depot/internal/maintenance/validator"
	resrepo "depot/internal/reservations/repository"
	"depot/pkg/app"
	"depot/pkg/config"
	"depot/pkg/contracts"
	"depot/pkg/kafka"
	kafka_config "depot/pkg/kafka/config"

	"github.com/julienschmidt/httprouter"
)

const (
	ServiceName = "assets"

	resyncTopic    = "asset-status-resync"
	resyncDLQTopic = "asset-status-resync-dlq"
)

// compositeHandler registers several handlers on one router; the assets
// service exposes both the inventory and the maintenance endpoints.
type compositeHandler struct {
	handlers []contracts.Handler
}

func (c compositeHandler) RegisterRoutes(router *httprouter.Router) {
	for _, h := range c.handlers {
		h.RegisterRoutes(router)
	}
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	notifier, closeProducer := initResyncNotifier(cfg)
	defer closeProducer()

	cfg.Log.Info("Starting Assets service")

	counters := assetrepo.NewMongoCounterRepository(cfg)
	assetRepository := assetrepo.NewMongoAssetRepository(cfg, counters)
	loanRepository := resrepo.NewMongoLoanRepository(cfg)
	requestRepository := resrepo.NewMongoRequestRepository(cfg)
	eventRepository := resrepo.NewMongoEventRepository(cfg)
	assetService := assetservice.NewAssetService(
		assetRepository,
		loanRepository,
		requestRepository,
		eventRepository,
		assetvalidator.NewAssetValidator(cfg.Log),
		cfg,
	)

	taskRepository := maintrepo.NewMongoTaskRepository(cfg)
	taskService := maintservice.NewTaskService(
		taskRepository,
		assetRepository,
		maintvalidator.NewTaskValidator(cfg.Log),
		cfg,
	)

	resyncService := assetservice.NewResyncService(
		assetRepository,
		taskRepository,
		loanRepository,
		notifier,
		cfg,
	)

	cfg.Log.Info("Asset services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		compositeHandler{handlers: []contracts.Handler{
			assethandler.NewAssetHandler(assetService, resyncService, cfg.Log),
			mainthandler.NewTaskHandler(taskService, cfg.Log),
		}},
		assethandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initResyncNotifier(cfg *config.Config) (assetservice.ResyncNotifier, func()) {
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
