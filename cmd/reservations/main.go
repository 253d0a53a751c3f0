package main

import (
	"depot/internal/reservations/handler"
	"depot/internal/reservations/repository"
	"depot/internal/reservations/service"
	"depot/internal/reservations/validator"
	"depot/pkg/app"
	"depot/pkg/config"
	"depot/pkg/contracts"
	"depot/pkg/kafka"
	kafka_config "depot/pkg/kafka/config"

	"github.com/julienschmidt/httprouter"
)

const (
	ServiceName = "reservations"

	notificationsTopic    = "reservation-notifications"
	notificationsDLQTopic = "reservation-notifications-dlq"
)

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

	notifier, closeProducer := initNotifier(cfg)
	defer closeProducer()

	cfg.Log.Info("Starting Reservations service")

	locks := repository.NewAssetLockRepository(cfg)
	assets := repository.NewMongoAssetRepository(cfg)
	events := repository.NewMongoEventRepository(cfg)
	loans := repository.NewMongoLoanRepository(cfg)
	requests := repository.NewMongoRequestRepository(cfg)

	availabilityService := service.NewAvailabilityService(assets, events, cfg)
	requestService := service.NewRequestService(
		requests,
		loans,
		events,
		assets,
		availabilityService,
		locks,
		notifier,
		validator.NewRequestValidator(cfg.Log),
		cfg,
	)
	loanService := service.NewLoanService(loans, assets, notifier, cfg)
	eventService := service.NewEventService(
		events,
		availabilityService,
		assets,
		locks,
		validator.NewEventValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		compositeHandler{handlers: []contracts.Handler{
			handler.NewRequestHandler(requestService, cfg.Log),
			handler.NewLoanHandler(loanService, cfg.Log),
			handler.NewEventHandler(eventService, cfg.Log),
			handler.NewAvailabilityHandler(availabilityService, cfg.Log),
		}},
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initNotifier(cfg *config.Config) (service.Notifier, func()) {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, reservation notifications disabled")
		return service.NoopNotifier{}, func() {}
	}

	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, notificationsTopic, notificationsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	return service.NewKafkaNotifier(producer, ServiceName), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
