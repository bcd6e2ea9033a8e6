package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	jwttoken "securitypassport/internal/jwt_token"
	"securitypassport/internal/passport/assembler"
	"securitypassport/internal/passport/export"
	passporthandler "securitypassport/internal/passport/handler"
	passportmetrics "securitypassport/internal/passport/metrics"
	"securitypassport/internal/passport/overrides"
	overrideshandler "securitypassport/internal/passport/overrides/handler"
	overridestore "securitypassport/internal/passport/overrides/store"
	"securitypassport/internal/passport/schema"
	"securitypassport/internal/passport/store"
	"securitypassport/internal/platform/config"
	"securitypassport/internal/platform/httpserver"
	"securitypassport/internal/platform/kafka"
	"securitypassport/internal/platform/logger"
	httpmetrics "securitypassport/internal/platform/metrics"
	"securitypassport/internal/platform/objectstore"
	"securitypassport/internal/platform/postgres"
	"securitypassport/internal/platform/redis"
	"securitypassport/internal/ratelimit"
	audit "securitypassport/pkg/platform/audit"
	"securitypassport/pkg/platform/audit/publisher"
	auditkafka "securitypassport/pkg/platform/audit/publishers/kafka"
	auditpostgres "securitypassport/pkg/platform/audit/store/postgres"
)

const shutdownTimeout = 15 * time.Second

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal/passport packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	sinks := audit.Fanout{auditpostgres.New(db)}
	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		if err := auditkafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka.AuditTopic, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		sinks = append(sinks, auditkafka.NewSink(kafkaClient, cfg.Kafka.AuditTopic))
	}
	auditPublisher := publisher.NewPublisher(sinks,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	var overrideStore overrides.Store = overridestore.NewPostgres(db)
	var rateStore ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		overrideStore = overridestore.NewRedisCache(overrideStore, redisClient.Client, cfg.Redis.OverrideCacheTTL, log)
		rateStore = ratelimit.NewRedisStore(redisClient.Client)
	}
	var cache pinger
	if redisClient != nil {
		cache = redisClient
	}
	exportLimiter := ratelimit.NewMiddleware(rateStore, cfg.Export.RateLimit, cfg.Export.RateWindow, log, prometheus.DefaultRegisterer)

	objects, err := objectstore.New(cfg.S3)
	if err != nil {
		return err
	}

	assemblerSvc := assembler.New(store.NewPostgres(db), store.NewPostgresInspector(db), schema.DefaultCatalog,
		assembler.WithLogger(log),
	)
	exportSvc := export.New(assemblerSvc, overrides.NewPolicy(overrideStore, log), objects,
		export.Config{
			DownloadConcurrency: cfg.Export.DownloadConcurrency,
			DownloadTimeout:     cfg.Export.DownloadTimeout,
		},
		export.WithLogger(log),
		export.WithMetrics(passportmetrics.New()),
		export.WithHTTPClient(&http.Client{Transport: http.DefaultTransport}),
	)
	overridesSvc := overrides.NewService(overrideStore,
		overrides.WithLogger(log),
		overrides.WithAuditPublisher(auditPublisher),
	)

	router := newRouter(routerDeps{
		logger:      log,
		tokens:      jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)),
		db:          db,
		cache:       cache,
		gatherer:    prometheus.DefaultGatherer,
		metrics:     httpmetrics.New(prometheus.DefaultRegisterer),
		passport:    passporthandler.New(exportSvc, auditPublisher, log),
		overrides:   overrideshandler.New(overridesSvc, log),
		exportLimit: exportLimiter.Handler,
	})

	srv := httpserver.New(cfg.Addr, router)
	if err := httpserver.Run(ctx, srv, shutdownTimeout, log); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
