package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/davicafu/userlab/internal/config"
	roleApp "github.com/davicafu/userlab/internal/role/application"
	roleDomain "github.com/davicafu/userlab/internal/role/domain"
	roleHttp "github.com/davicafu/userlab/internal/role/infra/inbound/http"
	roleRepoMongo "github.com/davicafu/userlab/internal/role/infra/outbound/db/mongodb"
	roleRepoPg "github.com/davicafu/userlab/internal/role/infra/outbound/db/postgre"
	roleRepoSQLite "github.com/davicafu/userlab/internal/role/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/userlab/internal/shared/domain/events"
	outboxMongo "github.com/davicafu/userlab/internal/shared/infra/db/mongodb"
	outboxPg "github.com/davicafu/userlab/internal/shared/infra/db/postgre"
	outboxSQLite "github.com/davicafu/userlab/internal/shared/infra/db/sqlite"
	infraEvents "github.com/davicafu/userlab/internal/shared/infra/events"
	sharedHttp "github.com/davicafu/userlab/internal/shared/infra/inbound/http"
	infraRelayer "github.com/davicafu/userlab/internal/shared/infra/relayer"
	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
	sharedCache "github.com/davicafu/userlab/internal/shared/platform/cache"
	userApp "github.com/davicafu/userlab/internal/user/application"
	userDomain "github.com/davicafu/userlab/internal/user/domain"
	userHttp "github.com/davicafu/userlab/internal/user/infra/inbound/http"
	userAudit "github.com/davicafu/userlab/internal/user/infra/outbound/analytics/clickhouse"
	userCache "github.com/davicafu/userlab/internal/user/infra/outbound/cache"
	userRepoMongo "github.com/davicafu/userlab/internal/user/infra/outbound/db/mongodb"
	userRepoPg "github.com/davicafu/userlab/internal/user/infra/outbound/db/postgre"
	userRepoSQLite "github.com/davicafu/userlab/internal/user/infra/outbound/db/sqlite"
	"github.com/davicafu/userlab/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.IsDevelopment())
	log := logger.Logger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Persistencia ----------------
	var (
		userRepo   userDomain.UserRepository
		roleRepo   roleDomain.RoleRepository
		outboxRepo sharedDomain.OutboxRepository
	)

	switch cfg.DBDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}
		userRepo = userRepoPg.NewUserRepoPostgres(db)
		roleRepo = roleRepoPg.NewRoleRepoPostgres(db)
		outboxRepo = outboxPg.NewOutboxRepoPostgres(db)

	case "mongo":
		client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)
		userRepo, err = userRepoMongo.NewUserRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize Mongo user repo", zap.Error(err))
		}
		roleRepo, err = roleRepoMongo.NewRoleRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize Mongo role repo", zap.Error(err))
		}
		outboxRepo = outboxMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB)

	default:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()
		if err := userRepoSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		userRepo = userRepoSQLite.NewUserRepoSQLite(db)
		roleRepo = roleRepoSQLite.NewRoleRepoSQLite(db)
		outboxRepo = outboxSQLite.NewOutboxRepoSQLite(db)
	}

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		cacheInstance = userCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = userCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Servicios ----------------
	userService := userApp.NewUserService(userRepo, roleRepo, cacheInstance, log)
	roleService := roleApp.NewRoleService(roleRepo, log)

	// ---------------- Events ----------------
	var publishers []sharedBus.EventBus

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")
		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   userDomain.UserTopic,
		})
		defer writer.Close()
		publishers = append(publishers, infraEvents.NewKafkaPublisher(writer, log))
	}

	var analytics userDomain.UserAnalyticsRepository
	if cfg.UseClickHouse {
		sink, err := userAudit.NewUserAuditSink(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.AuditBatchSize, cfg.AuditFlushEvery, log)
		if err != nil {
			log.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		if err := sink.InitSchema(); err != nil {
			log.Fatal("failed to initialize ClickHouse schema", zap.Error(err))
		}
		defer sink.Stop()
		publishers = append(publishers, sink)
		analytics = sink
		log.Info("✅ ClickHouse conectado, auditoría habilitada")
	}

	// ------------ Outbox Worker ------------
	if len(publishers) > 0 {
		registry := make(map[string]sharedEvents.EventMetadata)
		for k, v := range userDomain.NewEventRegistry() {
			registry[k] = v
		}
		for k, v := range roleDomain.NewEventRegistry() {
			registry[k] = v
		}

		worker := infraRelayer.NewOutboxWorker(
			outboxRepo, sharedBus.NewFanout(publishers...), registry,
			cfg.OutboxPeriod, cfg.OutboxLimit, log,
		)
		go worker.Start(ctx)
	}

	// ---------------- HTTP ----------------
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sharedHttp.TraceID())
	router.Use(sharedHttp.ExceptionBoundary(log, cfg.IsDevelopment()))

	userHttp.RegisterUserRoutes(router, userHttp.NewUserHandler(userService, analytics))
	roleHttp.RegisterRoleRoutes(router, roleHttp.NewRoleHandler(roleService))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
