package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/config"
	"shuttle-ledger/internal/database"
	"shuttle-ledger/internal/domain"
	httpapi "shuttle-ledger/internal/http"
	"shuttle-ledger/internal/journal"
	"shuttle-ledger/internal/logger"
	"shuttle-ledger/internal/notify"
	"shuttle-ledger/internal/service"
	"shuttle-ledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(logger.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Service:  "shuttle-ledger",
		Location: cfg.Location,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	backend, db, err := openStore(cfg, lg)
	if err != nil {
		lg.Fatal("Failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer database.Close(db)

	clock := domain.SystemClock{Loc: cfg.Location}
	repos := service.NewRepos(store.WithTimeout(backend, cfg.Store.Timeout), clock)

	var sagaJournal journal.Journal = journal.Nop{}
	if cfg.Journal.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		sagaJournal = journal.NewRedisJournal(redisClient, cfg.Journal.Stream, lg)
		lg.Info("Saga journal enabled", zap.String("stream", cfg.Journal.Stream))
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.MQTT.Enabled {
		mqttClient, err := notify.NewClient(&cfg.MQTT, lg)
		if err != nil {
			// alerts still land in the store; only the push fan-out is lost
			lg.Warn("MQTT unavailable, alert fan-out disabled", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()
			notifier = notify.NewAlertPublisher(mqttClient, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, lg)
		}
	}

	ledger := service.NewLedgerService(repos, lg)
	recon := service.NewReconciliationService(repos, clock, lg)
	workflow := service.NewWorkflowService(repos, clock, sagaJournal, notifier, lg)
	board := service.NewBoardService(repos, clock, lg)
	directory := service.NewDirectoryService(repos, lg)

	router := httpapi.NewRouter(lg)
	router.RegisterHealthRoutes()
	router.RegisterPaymentRoutes(httpapi.NewPaymentsHandler(ledger, recon, lg))
	router.RegisterWorkflowRoutes(httpapi.NewWorkflowHandler(workflow, lg))
	router.RegisterDirectoryRoutes(httpapi.NewDirectoryHandler(directory, lg))
	router.RegisterBoardRoutes(httpapi.NewBoardHandler(board, workflow, lg))

	srv := service.NewServer(service.ServerOptions{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, router, lg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			lg.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		lg.Error("Failed to stop HTTP server", zap.Error(err))
	}
}

// openStore builds the configured backend; db is non-nil only for postgres
func openStore(cfg *config.Config, lg *zap.Logger) (store.Store, *sql.DB, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgREST:
		lg.Info("Using PostgREST store", zap.String("url", cfg.PostgREST.URL))
		return store.NewPostgRESTStore(cfg.PostgREST.URL, cfg.PostgREST.ServiceKey, cfg.PostgREST.RetryCount, lg), nil, nil
	case config.BackendPostgres:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := database.Migrate(ctx, db); err != nil {
				database.Close(db)
				return nil, nil, err
			}
			lg.Info("Schema migration applied")
		}
		lg.Info("Using Postgres store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		return store.NewPostgresStore(db), db, nil
	case config.BackendMemory:
		lg.Warn("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrUnknownBackend, cfg.Store.Backend)
	}
}
