package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/camunda"
	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/database"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/observability"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/notify"
	"study-abroad-engine/internal/profile"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/pkg/registry"

	pba "study-abroad-engine/internal/workers/admission/predict-batch-admission"
	pa "study-abroad-engine/internal/workers/admission/predict-admission"
	su "study-abroad-engine/internal/workers/catalog/search-universities"
	ac "study-abroad-engine/internal/workers/cost/analyze-costs"
	pct "study-abroad-engine/internal/workers/cost/project-cost-trends"
	srd "study-abroad-engine/internal/workers/notification/send-recommendation-digest"
	rsp "study-abroad-engine/internal/workers/profile/resolve-student-profile"
	er "study-abroad-engine/internal/workers/recommendation/explain-recommendation"
	gr "study-abroad-engine/internal/workers/recommendation/generate-recommendations"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(cfg.Logging)
	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"catalog":     cfg.Catalog.Primary,
	})

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown()

	ctx := context.Background()
	backends := map[string]database.Pinger{}

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		fatal(log, "zeebe client failed after retries", err)
	}
	defer zeebe.Close()
	if brokers, err := zeebe.Brokers(ctx); err != nil {
		log.Warn("zeebe topology unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("Zeebe client connected successfully", map[string]interface{}{"brokers": brokers})
	}
	backends["zeebe"] = pingFunc(zeebe.HealthCheck)

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Configured() {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			fatal(log, "postgres failed after retries", err)
		}
		defer pg.Close()
		backends["postgres"] = pg
		log.Info("PostgreSQL connected successfully", nil)
	}

	// --- Elasticsearch ---
	var es *database.ElasticsearchClient
	if len(cfg.Database.Elasticsearch.GetAddresses()) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			fatal(log, "elasticsearch failed after retries", err)
		}
		backends["elasticsearch"] = es
		log.Info("Elasticsearch connected successfully", nil)
	}

	// --- Redis ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			fatal(log, "redis failed after retries", err)
		}
		defer rdb.Close()
		backends["redis"] = rdb
		log.Info("Redis connected successfully", nil)
	}

	// --- Domain ---
	catalogBackends := catalog.Backends{Postgres: pg}
	if es != nil {
		catalogBackends.Elasticsearch = es.Client
	}
	cat, err := catalog.NewFromConfig(cfg.Catalog, catalogBackends, log)
	if err != nil {
		fatal(log, "catalog setup failed", err)
	}

	var profiles service.ProfileSource
	if pg != nil {
		var cache *redis.Client
		if rdb != nil {
			cache = rdb.Client
		}
		store, err := profile.NewStore(pg.DB, cache, cfg.Profile.Table, time.Duration(cfg.Profile.CacheTTL)*time.Second, log)
		if err != nil {
			fatal(log, "profile store setup failed", err)
		}
		profiles = store
	} else {
		log.Warn("profile store disabled, jobs must carry studentProfile", nil)
	}

	estimator, err := engine.NewEstimatorFromConfig(cfg.Scoring)
	if err != nil {
		fatal(log, "admission estimator setup failed", err)
	}
	eng := engine.New(engine.NewConfig(cfg.Scoring), estimator, log)
	svc := service.New(eng, cat, log,
		service.WithObservability(obs),
		service.WithCatalogTimeout(config.GetDuration(cfg.Catalog.Timeout)),
	)

	notifier, err := notify.NewFromConfig(ctx, cfg.Notifications, log)
	if err != nil {
		fatal(log, "notifier setup failed", err)
	}

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		fatal(log, "activity registry load failed", err)
	}
	if problems := reg.Check(); len(problems) > 0 {
		fatal(log, "activity registry is inconsistent", fmt.Errorf("%d problems, first: %w", len(problems), problems[0]))
	}

	// --- Workers ---
	manager := camunda.NewManager(zeebe.GetClient(), obs, log)
	workerCfg := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(cfg, taskType) }

	manager.Start(gr.TaskType, workerCfg(gr.TaskType),
		gr.NewHandler(gr.LoadConfig(reg), svc, profiles, notifier, reg, log).Handle)
	manager.Start(er.TaskType, workerCfg(er.TaskType),
		er.NewHandler(er.LoadConfig(reg), svc, profiles, reg, log).Handle)
	manager.Start(pa.TaskType, workerCfg(pa.TaskType),
		pa.NewHandler(pa.LoadConfig(reg), svc, profiles, reg, log).Handle)
	manager.Start(pba.TaskType, workerCfg(pba.TaskType),
		pba.NewHandler(pba.LoadConfig(reg), svc, profiles, reg, log).Handle)
	manager.Start(pct.TaskType, workerCfg(pct.TaskType),
		pct.NewHandler(pct.LoadConfig(reg), svc, profiles, reg, log).Handle)
	manager.Start(ac.TaskType, workerCfg(ac.TaskType),
		ac.NewHandler(ac.LoadConfig(reg), svc, profiles, reg, log).Handle)
	manager.Start(su.TaskType, workerCfg(su.TaskType),
		su.NewHandler(su.LoadConfig(reg), svc, reg, log).Handle)
	manager.Start(rsp.TaskType, workerCfg(rsp.TaskType),
		rsp.NewHandler(rsp.LoadConfig(reg), profiles, reg, log).Handle)
	manager.Start(srd.TaskType, workerCfg(srd.TaskType),
		srd.NewHandler(srd.LoadConfig(reg), profiles, notifier, reg, log).Handle)

	log.Info("workers registered", map[string]interface{}{"running": manager.Running()})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newRouter(backends, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
