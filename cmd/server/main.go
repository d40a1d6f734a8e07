package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence"
	"github.com/enerflow/metering/modules/metering/presentation/controllers"
	"github.com/enerflow/metering/modules/metering/services"
	"github.com/enerflow/metering/pkg/configuration"
	"github.com/enerflow/metering/pkg/eventbus"
	"github.com/enerflow/metering/pkg/middleware"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	publisher := eventbus.NewEventPublisher(logger)
	publisher.Subscribe(func(event *item.ImportedEvent) {
		logger.WithFields(logrus.Fields{
			"register": event.RegisterID,
			"filename": event.Filename,
			"created":  event.Created,
			"skipped":  event.Skipped,
		}).Info("register imported")
	})
	publisher.Subscribe(func(event *item.TransferredEvent) {
		logger.WithFields(logrus.Fields{
			"items":  len(event.ItemIDs),
			"toUnit": event.ToUnitID,
			"actor":  event.ActorID,
		}).Info("items transferred")
	})
	publisher.Subscribe(func(event *item.DeletedEvent) {
		logger.WithFields(logrus.Fields{
			"items": len(event.ItemIDs),
			"actor": event.ActorID,
		}).Info("items deleted")
	})

	itemRepo := persistence.NewItemRepository()
	unitRepo := persistence.NewUnitRepository()
	actorRepo := persistence.NewActorRepository()
	movementRepo := persistence.NewMovementRepository()
	typeRuleRepo := persistence.NewTypeRuleRepository()
	registerRepo := persistence.NewRegisterRepository()

	policy := services.NewAccessPolicy(unitRepo)
	matcher := services.NewTypeMatcher(typeRuleRepo)
	itemService := services.NewItemService(itemRepo, unitRepo, movementRepo, policy, matcher, publisher, conf.AdminCode)
	queryService := services.NewItemQueryService(itemRepo, registerRepo, policy)
	numberingService := services.NewNumberingService(itemRepo, unitRepo)
	ingestService := services.NewIngestService(itemRepo, unitRepo, registerRepo, publisher, conf.Import.MaxRows)
	enrichmentService := services.NewEnrichmentService(itemRepo, conf.Import.HeaderScanRows)

	loggerOpts := middleware.LoggerOptions{
		RequestIDHeader: conf.RequestIDHeader,
		RealIPHeader:    conf.RealIPHeader,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewRequestMetrics(registry)

	router := mux.NewRouter()
	router.Use(
		middleware.WithLogger(logger, loggerOpts),
		metrics.Middleware(),
		middleware.WithPool(pool),
		middleware.RequestParams(loggerOpts),
	)

	if conf.Prometheus.Enabled {
		router.Handle(conf.Prometheus.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(
		middleware.Authorize(conf.JWTSecret, actorRepo),
		middleware.WithTransaction(),
	)
	for _, controller := range []interface {
		Register(r *mux.Router)
	}{
		controllers.NewItemAPIController(itemService, queryService),
		controllers.NewNumberingAPIController(numberingService),
		controllers.NewImportAPIController(ingestService, enrichmentService, queryService, conf.MaxUploadSize),
		controllers.NewOrgAPIController(policy, queryService),
	} {
		controller.Register(api)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", conf.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
