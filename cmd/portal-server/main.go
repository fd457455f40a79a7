package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camp-portal/internal/api"
	"camp-portal/internal/applications"
	"camp-portal/internal/common/auth"
	"camp-portal/internal/common/aws"
	"camp-portal/internal/common/camunda"
	"camp-portal/internal/common/config"
	"camp-portal/internal/common/database"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/common/validation"
	"camp-portal/internal/lifecycle"
	"camp-portal/internal/progress"
	"camp-portal/internal/review"
	"camp-portal/internal/search"
	"camp-portal/internal/store"

	ia "camp-portal/internal/workers/application/index-application"
	sdn "camp-portal/internal/workers/application/send-decision-notification"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
)

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting portal server", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()
	checks := map[string]api.Check{}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping
	st := store.New(pg)

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	checks["redis"] = rdb.Ping

	progressSvc := progress.NewService(st, rdb.Client, time.Duration(cfg.Cache.ProgressTTL)*time.Second, obs, log)

	// Interfaces stay nil, never typed-nil, when a collaborator is disabled.
	var (
		indexer   lifecycle.Indexer
		searcher  applications.Searcher
		publisher lifecycle.Publisher
		index     *search.Index
	)

	// --- Init Elasticsearch with retry ---
	if cfg.Search.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = es.Ping

		index = search.NewIndex(es.Client, cfg.Search.Index, st, log)
		if err := index.EnsureIndex(ctx); err != nil {
			log.Warn("could not ensure search index", map[string]interface{}{"error": err.Error()})
		}
		indexer, searcher = index, index
	} else {
		log.Info("search disabled, admin list uses postgres", nil)
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
				RetryConfig:            camunda.DefaultRetryConfig,
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		checks["zeebe"] = zeebe.HealthCheck
		publisher = camunda.NewPublisher(zeebe, cfg.Camunda.ProcessID, log)
	} else {
		log.Info("camunda disabled, lifecycle events are not published", nil)
	}

	hooks := lifecycle.NewHooks(progressSvc, indexer, publisher, log)

	appsSvc := applications.NewService(st, hooks, searcher, applications.Options{
		DefaultPageSize: cfg.Search.DefaultSize,
		MaxPageSize:     cfg.Search.MaxSize,
	}, log)
	ledger := review.NewLedger(st, hooks, obs, log)

	validator, err := validation.NewValidator()
	if err != nil {
		zapLog.Fatal("failed to compile request schemas", zap.Error(err))
	}

	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	// --- Lifecycle workers ---
	var workers []worker.JobWorker
	if zeebe != nil {
		workers = startWorkers(ctx, cfg, zeebe, st, index, log)
	}

	// --- HTTP server ---
	server := api.NewServer(api.Deps{
		Applications: appsSvc,
		Review:       ledger,
		Progress:     progressSvc,
		Verifier:     keycloak,
		Users:        st,
		Validator:    validator,
		Checks:       checks,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Close()
	}

	log.Info("portal server stopped gracefully", nil)
}

func startWorkers(ctx context.Context, cfg *config.Config, zeebe *camunda.Client, st *store.Store, index *search.Index, log logger.Logger) []worker.JobWorker {
	var workers []worker.JobWorker
	add := func(w worker.JobWorker) {
		if w != nil {
			workers = append(workers, w)
		}
	}

	awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		log.Error("notification worker not started", map[string]interface{}{"error": err.Error()})
	} else {
		handler := sdn.NewHandler(
			sdn.LoadConfig(cfg),
			st,
			aws.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail),
			aws.NewSNSClient(awsCfg, cfg.Notifications.SMS.SenderID),
			log,
		)
		add(camunda.StartWorker(zeebe.GetClient(), sdn.TaskType, config.GetWorkerConfig(cfg, sdn.TaskType), handler.Handle, log))
	}

	if index != nil {
		handler := ia.NewHandler(ia.LoadConfig(cfg), st, index, log)
		add(camunda.StartWorker(zeebe.GetClient(), ia.TaskType, config.GetWorkerConfig(cfg, ia.TaskType), handler.Handle, log))
	} else {
		log.Info("index worker not started, search disabled", nil)
	}

	log.Info("lifecycle workers registered", map[string]interface{}{"count": len(workers)})
	return workers
}
