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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/microblog/internal/auth"
	"github.com/weiawesome/microblog/internal/config"
	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/events"
	"github.com/weiawesome/microblog/internal/handler"
	"github.com/weiawesome/microblog/internal/media"
	"github.com/weiawesome/microblog/internal/reconciler"
	"github.com/weiawesome/microblog/internal/repository"
	"github.com/weiawesome/microblog/internal/search"
	"github.com/weiawesome/microblog/internal/service"
	"github.com/weiawesome/microblog/internal/store"
	"github.com/weiawesome/microblog/pkg/clock"
	"github.com/weiawesome/microblog/pkg/database"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/middleware"
	"github.com/weiawesome/microblog/pkg/pubsub"
	"github.com/weiawesome/microblog/pkg/storage"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	logCfg := cfg.Log
	if logCfg.ServiceName == "" {
		logCfg.ServiceName = "microblog"
	}
	pkglog.Init(logCfg)
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Init DB and migrate
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SlowThreshold:   cfg.Database.SlowThreshold,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	// 4. Follower-count cache
	var followStore store.FollowStore = store.NoopFollowStore{}
	var rec *reconciler.Reconciler
	if cfg.Redis.Address != "" {
		redisStore, err := store.NewRedisFollowStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisStore.Close()
		followStore = redisStore
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

		rec = reconciler.New(redisStore, followRepo, cfg.Reconciler)
		rec.Start(ctx)
		logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("top_n", cfg.Reconciler.TopN).Msg("reconciler started")
	} else {
		logger.Warn().Msg("REDIS_ADDRESS not configured; follower counts read from the database")
	}

	// 5. Event publisher
	eventsCfg := cfg.Events
	if eventsCfg.Driver == "kafka" && len(eventsCfg.Kafka.Topics) == 0 {
		eventsCfg.Kafka.Topics = events.Topics()
	}
	publisher, err := pubsub.NewPublisher(eventsCfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", eventsCfg.Driver).Msg("failed to create event publisher")
	}
	if eventsCfg.Driver == "" {
		logger.Warn().Msg("EVENTS_DRIVER not configured; domain events disabled")
	}

	// 6. Search indexer
	var indexer search.Indexer
	if len(cfg.Elasticsearch.Addresses) > 0 {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
		}
		res, err := esClient.Info()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to elasticsearch")
		}
		res.Body.Close()
		indexer = search.NewESIndexer(esClient, cfg.Elasticsearch.Index)
		logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")
	} else {
		indexer = search.NewSQLIndexer(postRepo)
		logger.Warn().Msg("ELASTICSEARCH_ADDRESSES not configured; searching posts in the database")
	}

	// 7. Avatar storage
	var files storage.Storage
	var local *storage.LocalStorage
	switch cfg.Storage.Type {
	case "s3":
		files, err = storage.NewS3Storage(ctx, cfg.Storage.S3)
	default:
		local, err = storage.NewLocalStorage(cfg.Storage.Local)
		files = local
	}
	if err != nil {
		logger.Fatal().Err(err).Str("type", cfg.Storage.Type).Msg("failed to create storage")
	}

	// 8. Services
	clk := clock.New()
	tx := database.NewTxManager(db)
	emitter := events.NewEmitter(publisher)
	counter := service.NewFollowerCounter(followRepo, followStore)
	tokens := auth.NewTokenAuthenticator(userRepo, clk, auth.Config{
		TTL:         cfg.Auth.TokenTTL,
		ReuseWindow: cfg.Auth.ReuseWindow,
	})

	userSvc := service.NewUserService(tx, userRepo, tokens, counter,
		media.NewAvatarProcessor(files, cfg.Storage.URLTTL), emitter, clk, cfg.Auth.BcryptCost)
	graphSvc := service.NewSocialGraphService(tx, userRepo, followRepo, postRepo, counter, emitter)
	messageSvc := service.NewMessagingService(tx, userRepo, messageRepo, emitter, clk)
	postSvc := service.NewPostService(tx, userRepo, postRepo, indexer, emitter, clk)

	// 9. Setup Gin router + HTTP server
	httpHandler := handler.NewHandler(userSvc, graphSvc, messageSvc, postSvc,
		cfg.Languages, cfg.Server.MaxUploadMB<<20)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, "microblog").Middleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if local != nil {
		r.Static(local.URLPrefix(), local.BasePath())
	}
	httpHandler.RegisterRoutes(r)

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("microblog starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// stop the reconciler ticker
		cancel()
		if rec != nil {
			rec.Stop()
			<-rec.Done()
		}

		// drain HTTP
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// flush pending events
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing event publisher")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("microblog stopped")
	case <-time.After(shutdownTimeout):
		logger.Warn().Dur("timeout", shutdownTimeout).Msg("shutdown timed out")
	}
}
