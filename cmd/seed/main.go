package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/config"
	"github.com/oksasatya/taskboard-api/internal/application"
	pginfra "github.com/oksasatya/taskboard-api/internal/infrastructure/postgres"
	"github.com/oksasatya/taskboard-api/internal/infrastructure/search"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

type sampleTask struct {
	title, description, status, priority string
}

var sampleTasks = []sampleTask{
	{"Write onboarding notes", "Cover local setup and the seed user", "TODO", "MEDIUM"},
	{"Review open pull requests", "", "IN_PROGRESS", "HIGH"},
	{"Archive last sprint board", "Move finished cards to the archive", "DONE", "LOW"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:          cfg.PostgresDSN(),
		MaxConns:     2,
		MinConns:     0,
		MaxConnLife:  cfg.DBMaxConnLife,
		PingAttempts: cfg.DBPingRetries,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	email := envOr("SEED_EMAIL", "demo@taskboard.local")
	password := envOr("SEED_PASSWORD", "password123")
	hash, err := helpers.HashPassword(password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.WithError(err).Fatal("begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (full_name, email, password_hash, role, gender, age, is_verified)
		VALUES ($1, $2, $3, 'Developer', 'other', 30, TRUE)
		ON CONFLICT (email) DO UPDATE
			SET password_hash = EXCLUDED.password_hash, is_verified = TRUE, updated_at = now()
		RETURNING id
	`, "Demo User", email, hash).Scan(&userID)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed user")
	}

	// reseeding replaces the demo user's tasks instead of piling up copies
	rows, err := tx.Query(ctx, `DELETE FROM tasks WHERE user_id = $1 RETURNING id`, userID)
	if err != nil {
		logger.WithError(err).Fatal("failed to clear tasks")
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		logger.WithError(err).Fatal("failed to clear tasks")
	}
	batch := &pgx.Batch{}
	for _, t := range sampleTasks {
		var desc *string
		if t.description != "" {
			desc = &t.description
		}
		batch.Queue(`INSERT INTO tasks (title, description, status, priority, user_id) VALUES ($1, $2, $3, $4, $5)`,
			t.title, desc, t.status, t.priority, userID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		logger.WithError(err).Fatal("failed to seed tasks")
	}
	if err := tx.Commit(ctx); err != nil {
		logger.WithError(err).Fatal("commit")
	}

	logger.WithField("user_id", userID).WithField("email", email).
		Infof("seeded demo user with %d tasks (password %s)", len(sampleTasks), password)

	syncIndex(ctx, cfg, pool, removed, logger)
}

// syncIndex drops the replaced tasks from the search index and copies every
// stored task into it, since the seed writes straight to Postgres.
func syncIndex(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, removed []int64, logger *logrus.Logger) {
	addrs := cfg.ESAddrs()
	if len(addrs) == 0 {
		return
	}
	es, err := helpers.NewESClient(ctx, addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch unavailable, index not synced")
		return
	}
	index := search.NewTaskIndex(es, cfg.ESTasksIndex)
	if err := index.EnsureIndex(ctx); err != nil {
		logger.WithError(err).Warn("elasticsearch index setup failed, index not synced")
		return
	}
	for _, id := range removed {
		if err := index.Remove(ctx, id); err != nil {
			logger.WithError(err).WithField("task_id", id).Warn("failed to remove stale task from index")
		}
	}
	n, err := application.NewTaskService(pginfra.NewTaskRepository(pool), index, logger).Reindex(ctx)
	if err != nil {
		logger.WithError(err).WithField("indexed", n).Fatal("task reindex failed")
	}
	logger.WithField("indexed", n).Info("task index synced")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
