package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/config"
	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/container"
	pginfra "github.com/oksasatya/taskboard-api/internal/infrastructure/postgres"
	"github.com/oksasatya/taskboard-api/internal/infrastructure/search"
	"github.com/oksasatya/taskboard-api/internal/interface/middleware"
	"github.com/oksasatya/taskboard-api/internal/router"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/mailer"
	"github.com/oksasatya/taskboard-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:          cfg.PostgresDSN(),
		MaxConns:     cfg.DBMaxConns,
		MinConns:     cfg.DBMinConns,
		MaxConnLife:  cfg.DBMaxConnLife,
		PingAttempts: cfg.DBPingRetries,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTimeout)
	defer func() { _ = rdb.Close() }()
	if err := helpers.PingRedis(ctx, rdb); err != nil {
		logger.WithError(err).Warn("redis unreachable, rate limiting disabled until it recovers")
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL))
	container.SetSender(newSender(cfg, logger))

	if pub := newPublisher(cfg, logger); pub != nil {
		defer pub.Close()
		container.SetRabbitPub(pub)
	}
	if es := newES(ctx, cfg, logger); es != nil {
		container.SetES(es)
		if cfg.ESReindexOnStart {
			go backfillIndex(ctx, pool, es, cfg.ESTasksIndex, logger)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(middleware.RequestLogger(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server exited properly")
}

// newSender picks Mailgun when sending is enabled and configured; otherwise
// codes are written to the log so local sign-up still works.
func newSender(cfg *config.Config, logger *logrus.Logger) mailer.Sender {
	if cfg.MailSendEnabled && cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	}
	logger.Warn("mailgun not configured, emails will be logged")
	return mailer.LogSender{Logger: logger}
}

// newPublisher connects the login-notification queue. It is optional.
func newPublisher(cfg *config.Config, logger *logrus.Logger) *helpers.RabbitPublisher {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable, login notifications disabled")
		return nil
	}
	return pub
}

// newES connects task search. Without it search falls back to Postgres.
func newES(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *elasticsearch.Client {
	addrs := cfg.ESAddrs()
	if len(addrs) == 0 {
		return nil
	}
	es, err := helpers.NewESClient(ctx, addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch unavailable, search uses postgres")
		return nil
	}
	if err := search.NewTaskIndex(es, cfg.ESTasksIndex).EnsureIndex(ctx); err != nil {
		logger.WithError(err).Warn("elasticsearch index setup failed, search uses postgres")
		return nil
	}
	return es
}

// backfillIndex copies stored tasks into the search index in the background
// so tasks the index missed become searchable without blocking startup.
func backfillIndex(ctx context.Context, pool *pgxpool.Pool, es *elasticsearch.Client, index string, logger *logrus.Logger) {
	svc := application.NewTaskService(pginfra.NewTaskRepository(pool), search.NewTaskIndex(es, index), logger)
	n, err := svc.Reindex(ctx)
	if err != nil {
		logger.WithError(err).WithField("indexed", n).Warn("task reindex stopped early")
		return
	}
	logger.WithField("indexed", n).Info("task index backfilled")
}
