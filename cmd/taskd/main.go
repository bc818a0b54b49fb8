package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/jamaynor/maynor-kernel/internal/config"
	"github.com/jamaynor/maynor-kernel/internal/shared/infra/analytics/clickhouse"
	infraEvents "github.com/jamaynor/maynor-kernel/internal/shared/infra/events"
	infraCache "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/cache"
	outboxMongo "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/mongodb"
	outboxPostgres "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/postgres"
	outboxSQLite "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/sqlite"
	infraRelayer "github.com/jamaynor/maynor-kernel/internal/shared/infra/relayer"
	taskApp "github.com/jamaynor/maynor-kernel/internal/task/application"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	taskEvents "github.com/jamaynor/maynor-kernel/internal/task/infra/inbound/events"
	taskHttp "github.com/jamaynor/maynor-kernel/internal/task/infra/inbound/http"
	taskMongo "github.com/jamaynor/maynor-kernel/internal/task/infra/outbound/db/mongodb"
	taskPostgres "github.com/jamaynor/maynor-kernel/internal/task/infra/outbound/db/postgre"
	taskSQLite "github.com/jamaynor/maynor-kernel/internal/task/infra/outbound/db/sqlite"
	"github.com/jamaynor/maynor-kernel/pkg/logger"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
	sharedCache "github.com/jamaynor/maynor-kernel/shared/platform/cache"
)

// ---------------- Main ----------------
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogEncoding); err != nil {
		panic(err)
	}
	log := logger.Logger()
	defer log.Sync() // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- DB ----------------
	repo, outboxRepo, closeDB, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer closeDB()
	log.Info("✅ Storage ready", zap.String("driver", cfg.DBDriver))

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	redisCache := infraCache.NewRedisCache(rdb, cfg.CacheTTL, "taskd:")
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		memCache := infraCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer memCache.Stop()
		cacheInstance = memCache
	} else {
		defer rdb.Close()
		cacheInstance = redisCache
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// --------------- Servicio --------------
	taskService := taskApp.NewTaskService(repo, cacheInstance, log, taskApp.WithCacheTTL(cfg.CacheTTLSeconds()))

	// ---------------- Events ---------------
	var publisher sharedBus.EventPublisher
	consumer := taskEvents.NewTaskConsumer(cacheInstance, log)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos", zap.Strings("brokers", cfg.KafkaBrokers))

		writer := infraEvents.NewKafkaWriter(cfg.KafkaBrokers)
		defer writer.Close()
		publisher = infraEvents.NewKafkaPublisher(writer, taskDomain.TaskTopic, log)

		reader := infraEvents.NewKafkaReader(cfg.KafkaBrokers, taskDomain.TaskTopic, cfg.KafkaGroupID)
		defer reader.Close()
		infraEvents.NewConsumerAdapter(reader, consumer, log).Start(ctx)
	} else {
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryEventBus(taskDomain.TaskTopic)
		defer bus.Close()
		publisher = bus
		go infraEvents.ConsumeChan(ctx, bus.Subscribe(64), consumer)
	}

	// ------------ Outbox Worker ------------
	var relayerOpts []infraRelayer.Option
	var archive *clickhouse.EventArchive
	if cfg.ClickHouseAddr != "" {
		archive, err = clickhouse.NewEventArchive(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err == nil {
			err = archive.InitSchema(ctx)
		}
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin archivo de eventos", zap.Error(err))
			archive = nil
		} else {
			defer archive.Close()
			relayerOpts = append(relayerOpts, infraRelayer.WithArchive(archive))
		}
	}

	worker := infraRelayer.NewOutboxWorker(outboxRepo, publisher, taskDomain.NewEventRegistry(),
		cfg.OutboxPeriod, cfg.OutboxLimit, log, relayerOpts...)
	go worker.Start(ctx)

	// ---------------- HTTP ----------------
	router := gin.New()
	router.Use(gin.Recovery())
	taskHttp.RegisterTaskRoutes(router, taskHttp.NewTaskHandler(taskService, log))
	if archive != nil {
		taskHttp.RegisterStatsRoutes(router, taskHttp.NewStatsHandler(archive, log))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown failed", zap.Error(err))
		}
	}()

	log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// openStorage abre el repositorio de tareas y el outbox del driver configurado. Ambos
// comparten conexión para que la escritura del agregado y del outbox sea atómica.
func openStorage(ctx context.Context, cfg *config.Config) (taskDomain.TaskRepository, sharedDomain.OutboxRepository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := taskPostgres.InitPostgres(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return taskPostgres.NewTaskRepoPostgres(db), outboxPostgres.NewOutboxRepoPostgres(db), func() { db.Close() }, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo, err := taskMongo.NewTaskRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		return repo, outboxMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB), closeFn, nil

	default:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		// SQLite admite un único escritor
		db.SetMaxOpenConns(1)
		if err := taskSQLite.InitSQLite(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return taskSQLite.NewTaskRepoSQLite(db), outboxSQLite.NewOutboxRepoSQLite(db), func() { db.Close() }, nil
	}
}
