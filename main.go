package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosspost/domain/repository"
	"crosspost/infrastructure/cache"
	tiktokclient "crosspost/infrastructure/clients/tiktok"
	"crosspost/infrastructure/clients/videosource"
	"crosspost/infrastructure/configuration"
	"crosspost/infrastructure/cryptox"
	"crosspost/infrastructure/logger"
	"crosspost/infrastructure/metrics"
	"crosspost/infrastructure/persistence"
	"crosspost/infrastructure/pubsub"
	"crosspost/infrastructure/realtime"
	"crosspost/infrastructure/servicebus"
	"crosspost/infrastructure/storage"
	httpHandler "crosspost/interfaces/http"
	"crosspost/server"
	"crosspost/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	cfg := configuration.C
	app := cfg.App

	cipher, err := cryptox.NewTokenCipher(cfg.Crypto.TokenKey, cfg.Crypto.Salt)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Token encryption key not configured")
	}

	accountDb, psqlDb, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed")
	}

	mongoDb, err := persistence.NewMongoDb(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - schedules fall back to PostgreSQL")
		mongoDb = nil
	}

	accounts := initiateAccountRepository(accountDb, psqlDb)
	schedules := initiateScheduleRepository(mongoDb, psqlDb)

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)
	if err != nil {
		redisClient = nil
	} else {
		logger.GetLogger().Info("Redis client initialized successfully.")
	}
	publishCache := cache.NewPublishCache(redisClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := metrics.NewPromMetrics(registry)

	hub := realtime.NewPublishHub()
	sinks := []repository.IPublishEvents{hub}

	if cfg.Pubsub.ProjectID != "" && cfg.Pubsub.Topic != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		} else {
			defer pubSubClient.Close()
			sinks = append(sinks, pubsub.NewPublishEvents(pubSubClient, cfg.Pubsub.Topic))
		}
	}
	if cfg.ServiceBus.Namespace != "" && cfg.ServiceBus.Queue != "" {
		azServiceBusClient, err := servicebus.NewServiceBus(cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus events")
		} else {
			defer azServiceBusClient.Close(context.Background())
			sinks = append(sinks, servicebus.NewPublishEvents(azServiceBusClient, cfg.ServiceBus.Queue))
		}
	}

	var videoStorage repository.IVideoStorage
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3Storage(ctx, storage.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			SignedURLTTL:    cfg.Storage.SignedURLTTL,
		})
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Video storage not available - object-key schedules will fail")
		} else {
			videoStorage = s3
		}
	}

	tiktok := tiktokclient.NewTikTokClient(&tiktokclient.Config{
		ClientKey:    cfg.TikTok.ClientKey,
		ClientSecret: cfg.TikTok.ClientSecret,
		BaseURL:      cfg.TikTok.APIBaseURL,
		Timeout:      cfg.TikTok.HTTPTimeout,
	})
	fetcher := videosource.NewFetcher(cfg.TikTok.HTTPTimeout, videosource.DefaultMaxBytes)

	reporter := usecase.NewResultReporter(schedules, publishCache, promMetrics, 24*time.Hour, sinks...)
	publisher := usecase.NewPublishUsecase(tiktok, accounts, cipher, fetcher, reporter, usecase.PublisherConfig{
		PullAllowedDomains: cfg.TikTok.PullAllowedDomains,
		PollInterval:       cfg.TikTok.PollInterval,
		PollAttempts:       cfg.TikTok.PollAttempts,
		RateLimitBackoff:   cfg.TikTok.RateLimitBackoff,
	})

	handlers := server.Handlers{
		Health:  httpHandler.NewHealthHandler(),
		Publish: httpHandler.NewTikTokPublishHandler(publisher, accounts),
		TikTokOAuth: httpHandler.NewTikTokOAuthHandler(httpHandler.TikTokOAuthConfig{
			ClientKey:   cfg.TikTok.ClientKey,
			AuthURL:     cfg.TikTok.AuthURL,
			RedirectURI: cfg.TikTok.RedirectURI,
			Scopes:      cfg.TikTok.Scopes,
		}, tiktok, accounts, cipher),
		Stream: hub.Serve,
	}

	if schedules != nil {
		scheduleUC := usecase.NewScheduleUsecase(schedules, accounts, videoStorage, publisher, reporter, publishCache)
		handlers.Schedule = httpHandler.NewScheduleHandler(scheduleUC)

		// Background schedule processor (simple ticker loop)
		sc := cfg.Scheduler
		g.Go(func() error {
			ticker := time.NewTicker(sc.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := scheduleUC.ProcessDue(ctx, sc.BatchSize, sc.Concurrency)
					if err != nil {
						logger.GetLogger().WithField("error", err).Error("Error while processing due schedules")
					} else if n > 0 {
						logger.GetLogger().WithField("count", n).Info("Processed due schedules")
					}
				}
			}
		})
	} else {
		logger.GetLogger().Warn("No schedule store available - scheduling disabled")
	}

	router := server.InitiateRouter(handlers, app.SecretKey, app.AllowedOrigins, registry)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase returns (accountDB, psqlDB). In production accountDB is
// MSSQL and psqlDB may be nil; locally both are the same Postgres pool.
func InitiateDatabase() (*sql.DB, *sql.DB, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil, err
		}
		if err := persistence.EnsureAccountSchemaMSSQL(mssql); err != nil {
			return nil, nil, err
		}
		// Postgres is optional next to MSSQL and only backs schedules.
		postgres, err := persistence.NewPostgreSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Info("PostgreSQL not available in this environment")
			return mssql, nil, nil
		}
		if err := persistence.EnsureSchema(postgres); err != nil {
			return nil, nil, err
		}
		return mssql, postgres, nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to the local database")
		return nil, nil, err
	}
	if err := persistence.EnsureSchema(postgres); err != nil {
		return nil, nil, err
	}
	return postgres, postgres, nil
}

func initiateAccountRepository(accountDb, psqlDb *sql.DB) repository.IAccount {
	if psqlDb != nil && accountDb == psqlDb {
		return persistence.NewAccountRepository(psqlDb)
	}
	return persistence.NewAccountRepositoryMSSQL(accountDb)
}

func initiateScheduleRepository(mongoDb *mongo.Database, psqlDb *sql.DB) repository.ISchedule {
	if mongoDb != nil {
		logger.GetLogger().Info("Schedules stored in MongoDB")
		return persistence.NewScheduleRepositoryMongo(mongoDb)
	}
	if psqlDb != nil {
		return persistence.NewScheduleRepository(psqlDb)
	}
	return nil
}
