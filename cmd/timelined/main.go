package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/getsentry/sentry-go"
    "github.com/nats-io/nats.go"
    "github.com/redis/go-redis/v9"
    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
    "go.opentelemetry.io/otel/propagation"
    sdkresource "go.opentelemetry.io/otel/sdk/resource"
    sdktrace "go.opentelemetry.io/otel/sdk/trace"
    "go.uber.org/zap"
    "gorm.io/gorm"

    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/api/handler"
    "github.com/d60-Lab/home-timeline/internal/cache"
    "github.com/d60-Lab/home-timeline/internal/ingest"
    "github.com/d60-Lab/home-timeline/internal/repository"
    "github.com/d60-Lab/home-timeline/internal/router"
    "github.com/d60-Lab/home-timeline/internal/service"
    "github.com/d60-Lab/home-timeline/pkg/database"
    "github.com/d60-Lab/home-timeline/pkg/logger"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        panic(err)
    }
    logger.Init(cfg.Log.Level, cfg.Server.Debug)
    defer logger.Sync()

    if cfg.Sentry.DSN != "" {
        if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
            logger.Warn("sentry init failed", zap.Error(err))
        }
        defer sentry.Flush(2 * time.Second)
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if cfg.Otel.Enabled {
        shutdown, err := initTracer(ctx, cfg)
        if err != nil {
            logger.Warn("tracer init failed", zap.Error(err))
        } else {
            defer func() { _ = shutdown(context.Background()) }()
        }
    }

    // 主库 + 可选分片
    db, err := database.InitDB(cfg)
    if err != nil {
        logger.Error("init db", zap.Error(err))
        os.Exit(1)
    }
    logRepo, err := buildLogRepo(cfg, db)
    if err != nil {
        logger.Error("init log shards", zap.Error(err))
        os.Exit(1)
    }

    rdb := redis.NewClient(&redis.Options{
        Addr:     cfg.Redis.Addr,
        Password: cfg.Redis.Password,
        DB:       cfg.Redis.DB,
    })
    if err := rdb.Ping(ctx).Err(); err != nil {
        logger.Error("redis ping", zap.Error(err))
        os.Exit(1)
    }
    defer rdb.Close()

    nc, err := nats.Connect(cfg.Nats.URL, nats.Name("timelined"))
    if err != nil {
        logger.Error("nats connect", zap.Error(err))
        os.Exit(1)
    }
    defer nc.Close()
    bus, err := ingest.NewBus(nc, cfg.Nats.Stream, cfg.Nats.Subject)
    if err != nil {
        logger.Error("jetstream setup", zap.Error(err))
        os.Exit(1)
    }

    // repositories
    followRepo := repository.NewFollowRepository(db)
    fanRepo := repository.NewFanRepository(db)
    postRepo := repository.NewPostRepository(db)
    profileRepo := repository.NewProfileRepository(db)
    deadLetterRepo := repository.NewDeadLetterRepository(db)

    // caches
    timelineCache := cache.NewTimelineCache(rdb, cfg.Timeline.CacheCapacity, cfg.Timeline.CacheTTL)
    profileCache := cache.NewProfileCache(profileRepo, cfg.Timeline.ProfileCacheTTL)
    stopRefresh := profileCache.StartRefresh(cfg.Timeline.ProfileCacheTTL / 2)
    defer stopRefresh()

    // services
    classifier := service.NewClassifier(profileCache, cfg.Timeline)
    engine := service.NewFanoutEngine(logRepo, timelineCache, fanRepo, profileRepo, deadLetterRepo, cfg.Timeline)
    hydrator := service.NewHydrator(postRepo, profileCache)
    assembler := service.NewAssembler(timelineCache, logRepo, followRepo, profileRepo, profileCache, classifier, hydrator, cfg.Timeline)
    publisher := service.NewPublisher(postRepo, bus)
    replicator := service.NewGraphReplicator(fanRepo, logRepo, timelineCache, cfg.Timeline.CelebrityLookback, 100000)
    stopReplicator := replicator.Start(4)
    defer func() { _ = stopReplicator(context.Background()) }()
    relService := service.NewRelationshipService(followRepo, fanRepo, replicator)

    // ingest consumer
    consumer := ingest.NewConsumer(nc, cfg.Nats.Subject, cfg.Nats.Durable, classifier, engine, cfg.Timeline.FanoutBudget)
    stopConsumer, err := consumer.Start()
    if err != nil {
        logger.Error("ingest subscribe", zap.Error(err))
        os.Exit(1)
    }
    defer func() { _ = stopConsumer(context.Background()) }()

    h := handler.New(assembler, publisher, relService, cfg.Timeline)
    srv := &http.Server{Addr: cfg.Server.Addr, Handler: router.New(cfg, h)}

    go func() {
        logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error("http serve", zap.Error(err))
            stop()
        }
    }()

    <-ctx.Done()
    logger.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

// buildLogRepo shard_dsns 配置了就走分片仓储
func buildLogRepo(cfg *config.Config, db *gorm.DB) (repository.TimelineLogRepository, error) {
    if len(cfg.Database.ShardDSNs) == 0 {
        return repository.NewTimelineLogRepository(db), nil
    }
    shards := make([]*gorm.DB, 0, len(cfg.Database.ShardDSNs))
    for _, dsn := range cfg.Database.ShardDSNs {
        shard, err := database.Open(dsn, cfg)
        if err != nil {
            return nil, err
        }
        if err := database.Migrate(shard); err != nil {
            return nil, err
        }
        shards = append(shards, shard)
    }
    return repository.NewShardedLogRepository(shards), nil
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
    exporter, err := otlptracehttp.New(ctx,
        otlptracehttp.WithEndpoint(cfg.Otel.Endpoint),
        otlptracehttp.WithInsecure(),
    )
    if err != nil {
        return nil, err
    }
    res, err := sdkresource.New(ctx)
    if err != nil {
        return nil, err
    }
    tp := sdktrace.NewTracerProvider(
        sdktrace.WithBatcher(exporter),
        sdktrace.WithResource(res),
    )
    otel.SetTracerProvider(tp)
    otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
    return tp.Shutdown, nil
}
